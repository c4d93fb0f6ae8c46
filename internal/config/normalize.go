package config

import "strings"

// normalize expands paths and fills empty values with defaults so later code
// can rely on every field being populated.
func (c *Config) normalize() error {
	var err error

	for _, field := range []*string{
		&c.Paths.FastDir,
		&c.Paths.CapacityDir,
		&c.Paths.StateDir,
		&c.Paths.LogDir,
	} {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			continue
		}
		if *field, err = expandPath(*field); err != nil {
			return err
		}
	}

	c.Controller.URL = strings.TrimSpace(c.Controller.URL)
	if c.Controller.ConnectTimeout <= 0 {
		c.Controller.ConnectTimeout = defaultConnectTimeout
	}
	if c.Controller.FetchTimeout <= 0 {
		c.Controller.FetchTimeout = defaultFetchTimeout
	}
	if c.Controller.FetchRetryAttempts <= 0 {
		c.Controller.FetchRetryAttempts = defaultFetchRetryAttempts
	}

	if c.Copy.RetryAttempts < 1 {
		c.Copy.RetryAttempts = 1
	}

	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}

	c.Sonarr.URL = strings.TrimRight(strings.TrimSpace(c.Sonarr.URL), "/")
	c.Radarr.URL = strings.TrimRight(strings.TrimSpace(c.Radarr.URL), "/")
	c.Sonarr.APIKey = strings.TrimSpace(c.Sonarr.APIKey)
	c.Radarr.APIKey = strings.TrimSpace(c.Radarr.APIKey)
	if strings.TrimSpace(c.Sonarr.Label) == "" {
		c.Sonarr.Label = defaultSonarrLabel
	}
	if strings.TrimSpace(c.Radarr.Label) == "" {
		c.Radarr.Label = defaultRadarrLabel
	}

	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
