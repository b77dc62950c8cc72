package tracker

import (
	"time"

	fetchpkg "github.com/hazyhaar/partwatch/tracker/internal/fetch"
	"github.com/hazyhaar/partwatch/tracker/internal/scheduler"
)

// Config configures the tracker service.
type Config struct {
	// Fetch settings
	Fetch fetchpkg.Config

	// Scheduler settings (daily trigger time, UTC)
	Scheduler scheduler.Config

	// BaseDelay is the fixed part of the pause between consecutive target
	// fetches. Default: 2s. Production clamps it to at least 5s.
	BaseDelay time.Duration

	// MaxJitter is the upper bound of the random part added to BaseDelay.
	// Default: 3s.
	MaxJitter time.Duration

	// FailureThreshold is the consecutive-failure count at which a target
	// is deactivated. Default: 5.
	FailureThreshold int

	// Production enforces the polite-scraping floor on BaseDelay.
	Production bool
}

func (c *Config) defaults() {
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 * 1024 * 1024
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.MaxJitter <= 0 {
		c.MaxJitter = 3 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Production && c.BaseDelay < 5*time.Second {
		c.BaseDelay = 5 * time.Second
	}
}

func defaultConfig() *Config {
	return &Config{
		BaseDelay:        2 * time.Second,
		MaxJitter:        3 * time.Second,
		FailureThreshold: 5,
	}
}
