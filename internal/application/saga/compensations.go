// Package saga holds the compensation stack used by the upload and delete
// orchestrators.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

type step struct {
	name string
	fn   func(ctx context.Context) error
}

// Compensations is a LIFO stack of undo actions. It is not safe for
// concurrent use; one saga run owns one stack.
type Compensations struct {
	saga    string
	logger  *zap.Logger
	counter *prometheus.CounterVec
	timeout time.Duration
	fields  []zap.Field
	steps   []step
}

func New(saga string, logger *zap.Logger, counter *prometheus.CounterVec) *Compensations {
	return &Compensations{
		saga:    saga,
		logger:  logger,
		counter: counter,
		timeout: DefaultTimeout,
	}
}

func (c *Compensations) WithTimeout(d time.Duration) *Compensations {
	c.timeout = d
	return c
}

// With adds log fields attached to every compensation record.
func (c *Compensations) With(fields ...zap.Field) {
	c.fields = append(c.fields, fields...)
}

// Push registers the undo for an action that has just succeeded.
func (c *Compensations) Push(name string, fn func(ctx context.Context) error) {
	c.steps = append(c.steps, step{name: name, fn: fn})
}

func (c *Compensations) Len() int { return len(c.steps) }

// Discard forgets every pushed step, once the saga is committed.
func (c *Compensations) Discard() { c.steps = nil }

// Unwind runs the pushed steps newest first. Each step gets its own
// timeout on a context detached from the caller's cancellation, so a
// timed out request still cleans up. Failures are logged and joined into
// the returned error; they never stop the remaining steps.
func (c *Compensations) Unwind(ctx context.Context) error {
	base := context.WithoutCancel(ctx)

	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		s := c.steps[i]

		err := c.run(base, s)

		result := "ok"
		if err != nil {
			result = "error"
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			c.logger.Error("compensation failed",
				append([]zap.Field{
					zap.String("saga", c.saga),
					zap.String("step", s.name),
					zap.Error(err),
				}, c.fields...)...,
			)
		} else {
			c.logger.Info("compensation applied",
				append([]zap.Field{
					zap.String("saga", c.saga),
					zap.String("step", s.name),
				}, c.fields...)...,
			)
		}
		if c.counter != nil {
			c.counter.WithLabelValues(c.saga, s.name, result).Inc()
		}
	}
	c.steps = nil

	return errors.Join(errs...)
}

func (c *Compensations) run(base context.Context, s step) (err error) {
	ctx, cancel := context.WithTimeout(base, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return s.fn(ctx)
}
