package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"shuttle/internal/config"
	"shuttle/internal/controller"
	"shuttle/internal/coordinator"
	"shuttle/internal/copyverify"
	"shuttle/internal/lease"
	"shuttle/internal/logging"
	"shuttle/internal/notify"
	"shuttle/internal/queue"
	"shuttle/internal/relocation"
	"shuttle/internal/space"
)

type commandContext struct {
	configFlag *string
	dryRunFlag *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, dryRunFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		dryRunFlag: dryRunFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

func (c *commandContext) dryRun() bool {
	return c.dryRunFlag != nil && *c.dryRunFlag
}

func (c *commandContext) logger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.log, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.log, c.loggerErr
}

// rtorrentClient builds the retrying controller client shared by commands.
func (c *commandContext) rtorrentClient() (controller.Client, *controller.Rtorrent, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, nil, err
	}
	raw, err := controller.NewRtorrent(cfg.Controller.URL,
		time.Duration(cfg.Controller.ConnectTimeout)*time.Second,
		logging.NewComponentLogger(log, "controller"))
	if err != nil {
		return nil, nil, err
	}
	retrying := controller.NewRetrying(raw,
		cfg.Controller.FetchRetryAttempts,
		time.Duration(cfg.Controller.FetchTimeout)*time.Second,
		logging.NewComponentLogger(log, "controller"))
	return retrying, raw, nil
}

func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg, logging.NewComponentLogger(log, "queue"))
}

func (c *commandContext) leaseManager() (*lease.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, err
	}
	return lease.NewManager(cfg.LockDir(), logging.NewComponentLogger(log, "lease")), nil
}

func (c *commandContext) newCoordinator(store *queue.Store) (*coordinator.Coordinator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, err
	}
	leases, err := c.leaseManager()
	if err != nil {
		return nil, err
	}
	return coordinator.New(cfg, store, leases, c.configPath, c.dryRun(),
		logging.NewComponentLogger(log, "coordinator")), nil
}

func (c *commandContext) newRelocator(client controller.Client) (*relocation.Relocator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, err
	}
	engine := copyverify.NewEngine(cfg.Copy.RetryAttempts, cfg.Copy.Verification, c.dryRun(),
		logging.NewComponentLogger(log, "copyverify"))
	notifier := notify.NewService(cfg, c.dryRun(), logging.NewComponentLogger(log, "notify"))
	return relocation.NewRelocator(client, engine, notifier,
		cfg.Paths.FastDir, cfg.Paths.CapacityDir, c.dryRun(),
		logging.NewComponentLogger(log, "relocation")), nil
}

func (c *commandContext) newReclaimManager(client controller.Client) (*relocation.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := c.logger()
	if err != nil {
		return nil, err
	}
	relocator, err := c.newRelocator(client)
	if err != nil {
		return nil, err
	}
	selector := space.NewSelector(client, cfg.Paths.FastDir,
		logging.NewComponentLogger(log, "space"))
	return relocation.NewManager(relocator, selector, cfg.Paths.FastDir,
		cfg.Space.ThresholdGiB, logging.NewComponentLogger(log, "relocation")), nil
}
