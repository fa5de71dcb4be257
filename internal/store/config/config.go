package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/openvdm/openvdm-web/internal/store/constants"
)

type AppConfig struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Worker    WorkerConfig    `toml:"worker"`
	Site      SiteConfig      `toml:"site"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Listen      string   `toml:"listen"`
	RateLimit   float64  `toml:"rate_limit"`
	RateBurst   int      `toml:"rate_burst"`
	CORSOrigins []string `toml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// WorkerConfig points at the single worker pool endpoint.
type WorkerConfig struct {
	Network     string   `toml:"network"`
	Address     string   `toml:"address"`
	DialTimeout Duration `toml:"dial_timeout"`
	SyncTimeout Duration `toml:"sync_timeout"`
	AckTimeout  Duration `toml:"ack_timeout"`
}

type SiteConfig struct {
	Root string `toml:"root"`
}

type SchedulerConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      Duration `toml:"interval"`
	MaxConcurrent int      `toml:"max_concurrent"`
}

type LogConfig struct {
	File string `toml:"file"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg = createDefaults()
		if err := saveToDisk(path, cfg); err != nil {
			return nil, err
		}
	} else {
		cfg = createDefaults()
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func createDefaults() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Listen:    constants.DefaultListenAddr,
			RateLimit: constants.HTTPRateLimit,
			RateBurst: constants.HTTPRateBurst,
		},
		Database: DatabaseConfig{
			Path: constants.DefaultDbPath,
		},
		Worker: WorkerConfig{
			Network:     "unix",
			Address:     constants.WorkerSocketPath,
			DialTimeout: Duration{constants.WorkerDialTimeout},
			SyncTimeout: Duration{constants.WorkerSyncTimeout},
			AckTimeout:  Duration{constants.WorkerAckTimeout},
		},
		Site: SiteConfig{
			Root: "http://127.0.0.1/",
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			Interval:      Duration{constants.DefaultTransferInterval},
			MaxConcurrent: 4,
		},
	}
}

func (c *AppConfig) Validate() error {
	if c.Worker.Network != "unix" && c.Worker.Network != "tcp" {
		return fmt.Errorf("worker.network must be unix or tcp, got %q", c.Worker.Network)
	}
	if c.Worker.Address == "" {
		return fmt.Errorf("worker.address is empty")
	}
	if c.Worker.SyncTimeout.Duration <= 0 {
		return fmt.Errorf("worker.sync_timeout must be positive")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval.Duration <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	return nil
}

// ApplyEnv loads envFile (when present) and overrides settings from
// OPENVDM_* environment variables.
func (c *AppConfig) ApplyEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}
		}
	}

	if v, ok := os.LookupEnv("OPENVDM_LISTEN"); ok {
		c.Server.Listen = v
	}
	if v, ok := os.LookupEnv("OPENVDM_DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv("OPENVDM_WORKER_NETWORK"); ok {
		c.Worker.Network = v
	}
	if v, ok := os.LookupEnv("OPENVDM_WORKER_ADDRESS"); ok {
		c.Worker.Address = v
	}
	if v, ok := os.LookupEnv("OPENVDM_WORKER_SYNC_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OPENVDM_WORKER_SYNC_TIMEOUT: %w", err)
		}
		c.Worker.SyncTimeout = Duration{d}
	}
	if v, ok := os.LookupEnv("OPENVDM_SITE_ROOT"); ok {
		c.Site.Root = v
	}
	if v, ok := os.LookupEnv("OPENVDM_SCHEDULER_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OPENVDM_SCHEDULER_ENABLED: %w", err)
		}
		c.Scheduler.Enabled = b
	}
	if v, ok := os.LookupEnv("OPENVDM_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v, ok := os.LookupEnv("OPENVDM_LOG_FILE"); ok {
		c.Log.File = v
	}

	return c.Validate()
}

func saveToDisk(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
