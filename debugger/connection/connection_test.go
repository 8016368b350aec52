package connection

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/fansqz/mcfunction-debugger/error"
)

func TestParseLogLine(t *testing.T) {
	event, ok := ParseLogLine("[12:34:56] [Server thread/INFO]: [mcfd: Added tag 'mcfd_exit' to Area Effect Cloud]\r\n")
	require.True(t, ok)
	assert.Equal(t, LogEvent{Executor: "mcfd", Output: "Added tag 'mcfd_exit' to Area Effect Cloud"}, event)

	event, ok = ParseLogLine("[12:34:56.789] [Server thread/INFO]: [mcfd_stack: test:main:3:1 has 1 [mcfd_depth]]")
	require.True(t, ok)
	assert.Equal(t, "mcfd_stack", event.Executor)
	assert.Equal(t, "test:main:3:1 has 1 [mcfd_depth]", event.Output)

	for _, line := range []string{
		"[12:34:56] [Server thread/INFO]: Done (3.2s)! For help, type \"help\"",
		"[12:34:56] [Server thread/WARN]: [mcfd: Added tag 'x' to y]",
		"<Steve> [mcfd: hello]",
	} {
		_, ok = ParseLogLine(line)
		assert.False(t, ok, line)
	}
}

func TestInjectionCommands(t *testing.T) {
	lines := InjectionCommands([3]int{1, -64, 0}, []Command{
		NewCommand("mcfd", `say "hi"`),
		NewCommand("it's", "reload"),
	})
	assert.Equal(t, []string{
		"fill 1 -64 0 1 -63 0 air",
		`setblock 1 -63 0 chain_command_block[facing=up]{auto:1b,CustomName:'{"text":"it\'s"}',Command:"reload"}`,
		`setblock 1 -64 0 command_block[facing=up]{auto:1b,CustomName:'{"text":"mcfd"}',Command:"say \"hi\""}`,
	}, lines)
	assert.Nil(t, InjectionCommands([3]int{}, nil))
}

func TestListenersFanOut(t *testing.T) {
	l := newListeners()
	first, removeFirst := l.add()
	second, _ := l.add()
	l.broadcast(LogEvent{Executor: "a"})
	assert.Equal(t, "a", (<-first).Executor)
	assert.Equal(t, "a", (<-second).Executor)

	removeFirst()
	removeFirst()
	_, ok := <-first
	assert.False(t, ok)
	l.broadcast(LogEvent{Executor: "b"})
	assert.Equal(t, "b", (<-second).Executor)

	l.close()
	_, ok = <-second
	assert.False(t, ok)
	late, _ := l.add()
	_, ok = <-late
	assert.False(t, ok)
}

func TestConsoleWaitsBetweenInjections(t *testing.T) {
	var mutex sync.Mutex
	var written []string
	c := &console{position: DefaultInjectPosition, write: func(line string) error {
		mutex.Lock()
		defer mutex.Unlock()
		written = append(written, line)
		return nil
	}}
	require.NoError(t, c.setup())
	assert.Equal(t, "forceload add 1 0", written[2])

	start := time.Now()
	require.NoError(t, c.inject(context.Background(), []Command{NewCommand("a", "say 1")}))
	require.NoError(t, c.inject(context.Background(), []Command{NewCommand("a", "say 2")}))
	assert.GreaterOrEqual(t, time.Since(start), TickInterval*2)
	assert.Len(t, written, 3+2+2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.inject(ctx, []Command{NewCommand("a", "say 3")}), context.Canceled)
}

func TestConsoleWriteError(t *testing.T) {
	c := &console{write: func(string) error { return errors.New("broken pipe") }}
	assert.Error(t, c.setup())
}

type brokenConsole struct{}

func (brokenConsole) Write([]byte) (int, error) { return 0, syscall.EPIPE }
func (brokenConsole) Close() error              { return nil }

func TestLogFileWriteFailureClosesConnection(t *testing.T) {
	c := &LogFileConnection{output: brokenConsole{}, closed: make(chan struct{})}
	c.console = &console{write: c.writeLine}
	err := c.console.inject(context.Background(), []Command{NewCommand("mcfd", "say 1")})
	assert.ErrorIs(t, err, e.ErrConnectionClosed)
	assert.ErrorIs(t, err, syscall.EPIPE)
	assert.NoError(t, writeFailed(nil))
	assert.Equal(t, e.ErrConnectionClosed, writeFailed(e.ErrConnectionClosed))
}

func TestFake(t *testing.T) {
	f := NewFake()
	f.OnInject = func(commands []Command) []LogEvent {
		return []LogEvent{{Executor: commands[0].Name, Output: "ok"}}
	}
	ch, remove := f.AddListener()
	defer remove()
	require.NoError(t, f.Inject(context.Background(), []Command{NewCommand("mcfd", "say 1"), NewCommand("mcfd", "say 2")}))
	assert.Equal(t, []string{"say 1", "say 2"}, f.Injected())
	assert.Equal(t, LogEvent{Executor: "mcfd", Output: "ok"}, <-ch)

	f.Reset()
	assert.Empty(t, f.Injected())
	require.NoError(t, f.Close())
	assert.ErrorIs(t, f.Inject(context.Background(), nil), e.ErrConnectionClosed)
	_, ok := <-ch
	assert.False(t, ok)
}
