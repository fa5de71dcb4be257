package constants

import "time"

const (
	DefaultListenAddr = ":8080"

	AppConfigFile = "/etc/openvdm/openvdm-web.toml"
	EnvFile       = "/etc/openvdm/openvdm-web.env"
	DefaultDbPath = "/var/lib/openvdm/openvdm.db"
	LockFilePath  = "/run/openvdm/openvdm-web.lock"

	WorkerSocketPath  = "/run/openvdm/worker.sock"
	WorkerDialTimeout = 5 * time.Second
	WorkerSyncTimeout = 60 * time.Second
	WorkerAckTimeout  = 30 * time.Second

	// Clients refresh status tables on this interval.
	StatusPollInterval = 5 * time.Second

	DefaultTransferInterval = 5 * time.Minute

	HTTPReadTimeout = 10 * time.Second
	// Test actions block on the worker, so writes outlive WorkerSyncTimeout.
	HTTPWriteTimeout   = 2 * time.Minute
	HTTPIdleTimeout    = 5 * time.Minute
	HTTPMaxHeaderBytes = 1 << 20
	HTTPRateLimit      = 100.0
	HTTPRateBurst      = 200

	DefaultSMBDomain     = "WORKGROUP"
	DefaultIncludeFilter = "*"
	AnonymousRsyncUser   = "anonymous"

	// Name of the required cruise data transfer that feeds the shoreside
	// warehouse.
	ShipToShoreTransferName = "SSDW"
)
