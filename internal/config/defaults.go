package config

const (
	defaultFastDir            = "/downloading"
	defaultCapacityDir        = "/downloads"
	defaultStateDir           = "~/.local/share/shuttle"
	defaultLogDir             = "~/.local/share/shuttle/logs"
	defaultThresholdGiB       = 700
	defaultCopyRetryAttempts  = 3
	defaultControllerURL      = "/dev/shm/rtorrent.sock"
	defaultConnectTimeout     = 30
	defaultFetchTimeout       = 15
	defaultFetchRetryAttempts = 3
	defaultMaxConcurrent      = 2
	defaultNotifyTimeout      = 30
	defaultSonarrLabel        = "sonarr"
	defaultRadarrLabel        = "radarr"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			FastDir:     defaultFastDir,
			CapacityDir: defaultCapacityDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Space: Space{
			ThresholdGiB: defaultThresholdGiB,
		},
		Copy: Copy{
			RetryAttempts: defaultCopyRetryAttempts,
			Verification:  true,
		},
		Controller: Controller{
			URL:                defaultControllerURL,
			ConnectTimeout:     defaultConnectTimeout,
			FetchTimeout:       defaultFetchTimeout,
			FetchRetryAttempts: defaultFetchRetryAttempts,
		},
		Workers: Workers{
			MaxConcurrent: defaultMaxConcurrent,
		},
		Notifications: Notifications{
			Enabled:        false,
			RequestTimeout: defaultNotifyTimeout,
		},
		Sonarr: Arr{
			Label: defaultSonarrLabel,
		},
		Radarr: Arr{
			Label: defaultRadarrLabel,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
