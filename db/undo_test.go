package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompensatingUndoesNewestFirst(t *testing.T) {
	var undone []string
	step := func(name string) func(context.Context) error {
		return func(context.Context) error {
			undone = append(undone, name)
			return nil
		}
	}

	boom := errors.New("boom")
	err := Compensating(context.Background(), func(ctx context.Context) error {
		OnRollback(ctx, step("charge"))
		OnRollback(ctx, step("count"))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"count", "charge"}, undone)
}

func TestCompensatingKeepsWritesOnSuccess(t *testing.T) {
	undone := 0
	err := Compensating(context.Background(), func(ctx context.Context) error {
		OnRollback(ctx, func(context.Context) error { undone++; return nil })
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, undone)
}

func TestCompensatingRunsUndoAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undoCtxErr error
	err := Compensating(ctx, func(ctx context.Context) error {
		OnRollback(ctx, func(ctx context.Context) error { undoCtxErr = ctx.Err(); return nil })
		cancel()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, undoCtxErr, "undo steps run even when the request is gone")
}

func TestNestedCompensatingJoinsOuterLog(t *testing.T) {
	undone := 0
	err := Compensating(context.Background(), func(ctx context.Context) error {
		require.NoError(t, Compensating(ctx, func(ctx context.Context) error {
			OnRollback(ctx, func(context.Context) error { undone++; return nil })
			return nil
		}))
		return errors.New("outer failure")
	})
	require.Error(t, err)
	assert.Equal(t, 1, undone)
}

func TestOnRollbackOutsideUnitIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		OnRollback(context.Background(), func(context.Context) error { return nil })
	})
}
