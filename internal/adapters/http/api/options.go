package api

import (
	"github.com/okian/sprinkler/pkg/logger"
)

type serverConfig struct {
	maxBodyBytes int64
	logger       logger.Logger
}

// Option configures the API server.
type Option func(*serverConfig)

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
