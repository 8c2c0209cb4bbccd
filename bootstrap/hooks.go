package bootstrap

import (
	"context"
	"errors"
	"fmt"
)

// Hook is a lifecycle callback that runs during shutdown.
type Hook func(ctx context.Context) error

// OnStop registers a hook that runs during graceful shutdown. Hooks run in
// reverse registration order.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks executes hooks last to first and joins their errors.
func runHooks(ctx context.Context, hooks []Hook) error {
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("hook %d failed: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
