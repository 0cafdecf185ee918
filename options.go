package exfat

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Partition or an EntryFilesystem.
type Option func(*cfg)

type cfg struct {
	log     *zap.Logger
	metrics *Metrics

	sectorsPerFATPage int

	now                  func() time.Time
	updateLastAccessTime bool
}

const defaultSectorsPerFATPage = 1

func initConfig(c *cfg) {
	*c = cfg{
		log:               zap.NewNop(),
		sectorsPerFATPage: defaultSectorsPerFATPage,
		now:               time.Now,
	}
}

func newConfig(opts []Option) cfg {
	var c cfg
	initConfig(&c)
	for i := range opts {
		opts[i](&c)
	}
	return c
}

// WithLogger returns option to set the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *cfg) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics returns option to record partition activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *cfg) {
		c.metrics = m
	}
}

// WithSectorsPerFATPage returns option to set the size of the cached FAT page.
// Values below 1 are ignored.
func WithSectorsPerFATPage(n int) Option {
	return func(c *cfg) {
		if n >= 1 {
			c.sectorsPerFATPage = n
		}
	}
}

// WithClock returns option to set the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *cfg) {
		if now != nil {
			c.now = now
		}
	}
}

// WithUpdateLastAccessTime returns option to refresh the last access time
// of entries whose content was opened for reading.
func WithUpdateLastAccessTime(enabled bool) Option {
	return func(c *cfg) {
		c.updateLastAccessTime = enabled
	}
}
