package gosync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoNamedRecoversPanic(t *testing.T) {
	panicked := make(chan *PanicError, 1)
	GoNamed(context.Background(), "read output", func(ctx context.Context) {
		panic("boom")
	}, func(err *PanicError) {
		panicked <- err
	})
	select {
	case err := <-panicked:
		assert.Equal(t, "read output", err.Task)
		assert.Equal(t, "boom", err.Value)
		assert.Equal(t, "read output panicked: boom", err.Error())
		assert.NotEmpty(t, err.Stack)
	case <-time.After(time.Second):
		t.Fatal("panic callback was not called")
	}
}

func TestGoPassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}

	// 没有回调时panic也不会影响调用方
	finished := make(chan struct{})
	Go(context.Background(), func(ctx context.Context) {
		defer close(finished)
		panic("ignored")
	})
	_, ok := <-finished
	require.False(t, ok)
}
