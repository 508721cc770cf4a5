package rate

import (
	log "github.com/sirupsen/logrus"
)

type Option func(c *config)

type config struct {
	logger log.FieldLogger
}

func WithLogger(l log.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}
