package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gofrs/flock"
	"github.com/openvdm/openvdm-web/internal/scheduler"
	"github.com/openvdm/openvdm-web/internal/status"
	"github.com/openvdm/openvdm-web/internal/store"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	"github.com/openvdm/openvdm-web/internal/syslog"
	"github.com/openvdm/openvdm-web/internal/transfer"
	"github.com/openvdm/openvdm-web/internal/warehouse"
	"github.com/openvdm/openvdm-web/internal/web"
	"github.com/openvdm/openvdm-web/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	// By default, it sets `GOMEMLIMIT` to 90% of cgroup's memory limit.
	_ "github.com/KimMachineGun/automemlimit"
)

var Version = "v0.0.0"

type arrayFlags []string

func (i *arrayFlags) String() string {
	return fmt.Sprintf("%v", *i)
}

func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

var errLocked = errors.New("lock is held by another process")

// acquireLock takes the process lock at path without waiting.
func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	fileLock := flock.New(path)
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, errLocked
	}
	return fileLock, nil
}

func main() {
	mainCtx, mainCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer mainCancel()

	var runIDs arrayFlags
	configPath := flag.String("config", constants.AppConfigFile, "Path to the TOML config file")
	envFile := flag.String("env", constants.EnvFile, "Path to the environment override file")
	dbPath := flag.String("db", "", "Path to the sqlite database (overrides config)")
	lockPath := flag.String("lock", constants.LockFilePath, "Lock file guarding against a second server")
	flag.Var(&runIDs, "run", "Collection system transfer ID/s to run, then exit (only while the server is stopped)")
	version := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println(Version)
		return
	}

	paths := map[string]string{
		"config": *configPath,
		"env":    *envFile,
	}
	if *dbPath != "" {
		paths["sqlite"] = *dbPath
	}

	storeInstance, err := store.Initialize(mainCtx, paths)
	if err != nil {
		syslog.L.Error(err).WithMessage("failed to initialize store").Write()
		os.Exit(1)
	}
	defer storeInstance.Close()

	if err := syslog.L.SetFileLogger(storeInstance.GetAppConfig().Log.File); err != nil {
		syslog.L.Error(err).WithMessage("failed to enable file logger").Write()
	}
	defer syslog.L.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dispatcher := worker.NewClient(func() worker.Endpoint {
		conf := storeInstance.GetAppConfig()
		return worker.Endpoint{
			Network:     conf.Worker.Network,
			Address:     conf.Worker.Address,
			DialTimeout: conf.Worker.DialTimeout.Duration,
			AckTimeout:  conf.Worker.AckTimeout.Duration,
		}
	}, worker.NewMetrics(registry))

	transfers := transfer.NewService(storeInstance.Database, dispatcher, func() transfer.Settings {
		conf := storeInstance.GetAppConfig()
		return transfer.Settings{SiteRoot: conf.Site.Root, SyncTimeout: conf.Worker.SyncTimeout.Duration}
	})
	warehouseService := warehouse.NewService(storeInstance.Database, dispatcher, func() warehouse.Settings {
		conf := storeInstance.GetAppConfig()
		return warehouse.Settings{SiteRoot: conf.Site.Root, SyncTimeout: conf.Worker.SyncTimeout.Duration}
	})

	// One-shot runs share the server's lock. Transfer locks are per
	// process, so a run next to a live server could submit a second job.
	fileLock, err := acquireLock(*lockPath)
	if err != nil {
		msg := "another server instance holds the lock"
		if len(runIDs) > 0 {
			msg = "the server is running; use the run action of its API instead"
		}
		syslog.L.Error(err).WithField("lock", *lockPath).WithMessage(msg).Write()
		os.Exit(1)
	}
	defer fileLock.Unlock()

	// Handle one-shot runs
	if len(runIDs) > 0 {
		failed := false
		for _, raw := range runIDs {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				syslog.L.Error(err).WithField("transferId", raw).WithMessage("invalid transfer id").Write()
				failed = true
				continue
			}
			if _, handle, err := transfers.Run(mainCtx, id); err != nil {
				syslog.L.Error(err).WithTransfer(id).WithMessage("failed to run transfer").Write()
				failed = true
			} else {
				fmt.Printf("%d %s\n", id, handle)
			}
		}
		if failed {
			fileLock.Unlock()
			os.Exit(1)
		}
		return
	}

	conf := storeInstance.GetAppConfig()
	handler := web.NewRouter(web.Services{
		Database:   storeInstance.Database,
		Transfers:  transfers,
		Reconciler: status.NewReconciler(storeInstance.Database),
		Warehouse:  warehouseService,
		Registry:   registry,
	}, web.Options{
		CORSOrigins: conf.Server.CORSOrigins,
		RateLimit:   conf.Server.RateLimit,
		RateBurst:   conf.Server.RateBurst,
	})
	apiServer := web.NewServer(conf.Server.Listen, handler)

	g, ctx := errgroup.WithContext(mainCtx)

	var sched *scheduler.Scheduler
	var manager *scheduler.Manager
	if conf.Scheduler.Enabled {
		manager = scheduler.NewManager(ctx, conf.Scheduler.MaxConcurrent, 64)
		sched = scheduler.New(manager, transfers, warehouseService, func() time.Duration {
			if d := storeInstance.GetAppConfig().Scheduler.Interval.Duration; d > 0 {
				return d
			}
			return constants.DefaultTransferInterval
		})
		transfers.SetPendingRuns(sched)
	}

	g.Go(func() error {
		return web.ListenAndServe(ctx, apiServer, func() {
			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				syslog.L.Warn().WithMessage("sd_notify failed").WithField("error", err.Error()).Write()
			}
		})
	})

	if sched != nil {
		g.Go(func() error {
			defer manager.Close()
			syslog.L.Info().WithMessage("transfer scheduler started").
				WithField("interval", conf.Scheduler.Interval.Duration.String()).Write()
			return sched.Start(ctx)
		})
	}

	syslog.L.Info().WithMessage("openvdm-web started").WithField("version", Version).Write()

	if err := g.Wait(); err != nil {
		syslog.L.Error(err).WithMessage("server stopped with error").Write()
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	syslog.L.Info().WithMessage("openvdm-web stopped").Write()
}
