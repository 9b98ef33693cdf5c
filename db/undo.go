package db

import (
	"context"

	"github.com/go-kit/log/level"

	"tripgenie/logger"
)

type undoKey struct{}

type undoLog struct {
	steps []func(ctx context.Context) error
}

// Compensating runs fn as a unit on a store without transactions. Steps
// registered with OnRollback while fn runs are replayed newest first when fn
// fails, so that the writes fn already made are taken back.
func Compensating(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(undoKey{}).(*undoLog); nested {
		return fn(ctx)
	}
	undo := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, undo))
	if err != nil {
		undo.rollback(context.WithoutCancel(ctx))
	}
	return err
}

// OnRollback registers step to undo a write that fn just made. Inside a real
// transaction, or outside any unit, it does nothing.
func OnRollback(ctx context.Context, step func(ctx context.Context) error) {
	if undo, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		undo.steps = append(undo.steps, step)
	}
}

func (u *undoLog) rollback(ctx context.Context) {
	for i := len(u.steps) - 1; i >= 0; i-- {
		if err := u.steps[i](ctx); err != nil {
			level.Error(logger.Log).Log("msg", "undo step failed; data needs repair", "step", i, "err", err)
		}
	}
}
