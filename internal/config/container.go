package config

import (
	"sync/atomic"
)

// Container wraps configuration providing sync access and reload.
type Container struct {
	configValue atomic.Value
}

// NewContainer creates new Container.
func NewContainer(config Config) (*Container, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Container{}
	c.configValue.Store(config)
	return c, nil
}

// Reload validates and stores new config. Parts of the server which read
// config through the Container observe the change, long-lived sessions
// keep options they were created with.
func (c *Container) Reload(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.configValue.Store(cfg)
	return nil
}

// Config returns a copy of current Config.
func (c *Container) Config() Config {
	return c.configValue.Load().(Config)
}
