package utils

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusManagerTransfer(t *testing.T) {
	s := NewStatusManager()
	assert.Equal(t, Uninitialized, s.Get())
	assert.False(t, s.Transfer(Running, Stopped))
	s.Set(Stopped)
	assert.True(t, s.Transfer(Running, Launched, Stopped))
	assert.True(t, s.Is(Running))
}

func TestDebouncer(t *testing.T) {
	var count atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { count.Add(1) })
	d.Start(context.Background())
	defer d.Cancel()
	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(10 * time.Millisecond)
	}
	assert.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}

func TestSortedStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedStrings([]string{"c", "a", "b", "a"}))
	assert.Empty(t, SortedStrings(nil))
}
