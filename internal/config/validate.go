package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSpace(); err != nil {
		return err
	}
	if err := c.validateController(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.FastDir == "" {
		return errors.New("paths.fast_dir must be set")
	}
	if c.Paths.CapacityDir == "" {
		return errors.New("paths.capacity_dir must be set")
	}
	if c.Paths.FastDir == c.Paths.CapacityDir {
		return errors.New("paths.fast_dir and paths.capacity_dir must differ")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateSpace() error {
	if c.Space.ThresholdGiB <= 0 {
		return errors.New("space.threshold_gib must be positive")
	}
	return nil
}

func (c *Config) validateController() error {
	url := c.Controller.URL
	if url == "" {
		return errors.New("controller.url must be set")
	}
	if !strings.HasPrefix(url, "scgi://") && !strings.HasPrefix(url, "/") {
		return fmt.Errorf("controller.url %q must be scgi://host:port or an absolute socket path", url)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.MaxConcurrent < 1 {
		return errors.New("workers.max_concurrent must be >= 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if !c.Notifications.Enabled {
		return nil
	}
	if c.Sonarr.URL == "" && c.Radarr.URL == "" {
		return errors.New("notifications.enabled requires sonarr.url or radarr.url")
	}
	if c.Sonarr.URL != "" && c.Sonarr.APIKey == "" {
		return errors.New("sonarr.api_key must be set when sonarr.url is configured")
	}
	if c.Radarr.URL != "" && c.Radarr.APIKey == "" {
		return errors.New("radarr.api_key must be set when radarr.url is configured")
	}
	return nil
}
