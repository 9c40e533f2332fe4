// Package panicerr keeps a panicking background worker from taking the
// server down with it.
package panicerr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// SafeContext wraps fn so that a panic is returned as an error carrying the
// recovered value and its stack.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn(ctx)
		})
		if r := catcher.Recovered(); r != nil {
			return r.AsError()
		}
		return err
	}
}

// Go runs fn on wg until it returns. A failure or panic is logged under
// name; returning nil or the context's cancellation is a clean stop.
func Go(ctx context.Context, wg *conc.WaitGroup, logger *slog.Logger, name string, fn func(context.Context) error) {
	wg.Go(func() {
		err := SafeContext(fn)(ctx)
		if err == nil || errors.Is(err, context.Canceled) {
			logger.InfoContext(ctx, "worker stopped", "worker", name)
			return
		}
		logger.ErrorContext(ctx, "worker failed", "worker", name, "error", err)
	})
}
