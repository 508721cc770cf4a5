package convert

import (
	log "github.com/sirupsen/logrus"
)

type Option func(c *config)

type config struct {
	logger   log.FieldLogger
	progress func(done, total int)
	name     string
}

// WithLogger sets where decode messages go. Defaults to the logrus standard
// logger.
func WithLogger(l log.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithProgress is called after each frame file is written.
func WithProgress(fn func(done, total int)) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithSourceName records where the stream came from in the header and in
// each output file.
func WithSourceName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
