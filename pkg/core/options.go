package core

import (
	"go.uber.org/zap"

	"github.com/go-drift/composite/pkg/errors"
)

// DefaultMaxCascade bounds the number of flush rounds one transaction may run.
const DefaultMaxCascade = 100

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithHandler routes warnings of this reconciler to h instead of the global
// errors handler.
func WithHandler(h errors.ErrorHandler) Option {
	return func(r *Reconciler) {
		r.handler = h
	}
}

// WithLogger sets the logger used for debug traces. Nil disables tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		if logger == nil {
			logger = zap.NewNop()
		}
		r.logger = logger
	}
}

// WithMaxCascade sets how many rounds of updates a flush may run before it
// fails with errors.ErrCascadeLimit. Non-positive values are ignored.
func WithMaxCascade(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxCascade = n
		}
	}
}
