package cron

import (
	"time"

	"github.com/goliatone/go-dispatch"
)

// Parser represents a cron expression parser type.
type Parser int

const (
	DefaultParser Parser = iota
	StandardParser
	SecondsParser
)

// Option defines the functional option type for the Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone location for the scheduler.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l dispatch.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithParser selects the cron expression grammar.
func WithParser(p Parser) Option {
	return func(s *Scheduler) {
		s.parser = p
	}
}

// WithErrorHandler receives enqueue failures from scheduled firings.
func WithErrorHandler(h func(error)) Option {
	return func(s *Scheduler) {
		if h == nil {
			h = func(error) {}
		}
		s.errorHandler = h
	}
}
