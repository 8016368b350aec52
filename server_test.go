package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fansqz/mcfunction-debugger/constants"
	"github.com/fansqz/mcfunction-debugger/debugger"
	"github.com/fansqz/mcfunction-debugger/debugger/connection"
	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/protocol"
)

// stubDebugger 记录调用的调试器
type stubDebugger struct {
	mutex    sync.Mutex
	calls    []string
	callback debugger.NotificationCallback
	events   chan connection.LogEvent
	// release 不为空时Continue等待它关闭
	release  chan struct{}
}

func newStubDebugger() *stubDebugger {
	return &stubDebugger{events: make(chan connection.LogEvent, 4)}
}

func (d *stubDebugger) record(call string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.calls = append(d.calls, call)
}

func (d *stubDebugger) Calls() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *stubDebugger) Launch(ctx context.Context, option *debugger.StartOption) error {
	d.record("launch " + option.Function)
	d.callback = option.Callback
	return nil
}

func (d *stubDebugger) ConfigurationDone(ctx context.Context) error {
	d.record("configurationDone")
	return nil
}

func (d *stubDebugger) SetBreakpoints(ctx context.Context, source string, lines []int) ([]*debugger.Breakpoint, error) {
	d.record("setBreakpoints " + filepath.Base(source))
	result := make([]*debugger.Breakpoint, len(lines))
	for i, line := range lines {
		result[i] = debugger.NewBreakpoint(line, line != 2, "")
	}
	return result, nil
}

func (d *stubDebugger) Continue(ctx context.Context) error {
	d.record("continue")
	if d.release == nil {
		return nil
	}
	select {
	case <-d.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *stubDebugger) StepOver(ctx context.Context) error {
	d.record("stepOver")
	return nil
}

func (d *stubDebugger) StepIn(ctx context.Context) error {
	d.record("stepIn")
	return nil
}

func (d *stubDebugger) StepOut(ctx context.Context) error {
	d.record("stepOut")
	return nil
}

func (d *stubDebugger) GetStackTrace(ctx context.Context) ([]*debugger.StackFrame, error) {
	return []*debugger.StackFrame{
		{ID: 2, Name: "test:inner", Path: "/pack/data/test/functions/inner.mcfunction", Line: 1, Column: 1},
		{ID: 1, Name: "test:main", Path: "/pack/data/test/functions/main.mcfunction", Line: 3, Column: 1},
	}, nil
}

func (d *stubDebugger) GetScopes(ctx context.Context, frameID int) ([]*debugger.Scope, error) {
	return []*debugger.Scope{{Name: constants.ScopeScores, Reference: 1002}}, nil
}

func (d *stubDebugger) GetVariables(ctx context.Context, reference int) ([]*debugger.Variable, error) {
	if reference != 1002 {
		return nil, e.ErrUnknownReference
	}
	value := "7"
	return []*debugger.Variable{{Name: "points", Type: "int", Value: &value}}, nil
}

func (d *stubDebugger) Terminate(ctx context.Context) error {
	d.record("terminate")
	if d.callback != nil {
		d.callback(debugger.NewTerminatedEvent())
		d.callback = nil
	}
	return nil
}

func (d *stubDebugger) Events() <-chan connection.LogEvent {
	return d.events
}

func (d *stubDebugger) HandleEvent(ctx context.Context, event connection.LogEvent) error {
	d.record("event " + event.Output)
	d.callback(debugger.NewStoppedEvent(constants.BreakpointStopped, "", 1))
	return nil
}

func (d *stubDebugger) NotifySourceModified() {
	d.record("sourceModified")
}

type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
	seq    int
	done   chan struct{}
}

// startSession 用stubDebugger启动一个会话
func startSession(t *testing.T, stub *stubDebugger) *client {
	oldDebugger, oldConnection := newDebugger, openConnection
	newDebugger = func(*command.Parser) debugger.Debugger { return stub }
	openConnection = func(context.Context, *Config, *protocol.LaunchArguments) (connection.Connection, error) {
		return connection.NewFake(), nil
	}
	t.Cleanup(func() {
		newDebugger, openConnection = oldDebugger, oldConnection
	})

	server, conn := net.Pipe()
	c := &client{t: t, conn: conn, reader: bufio.NewReader(conn), done: make(chan struct{})}
	go func() {
		defer close(c.done)
		handleConnection(context.Background(), server, DefaultConfig())
	}()
	t.Cleanup(func() {
		_ = conn.Close()
		select {
		case <-c.done:
		case <-time.After(5 * time.Second):
			t.Error("session did not stop")
		}
	})
	return c
}

func (c *client) request(command string) dap.Request {
	c.seq++
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: c.seq, Type: "request"},
		Command:         command,
	}
}

func (c *client) send(message dap.Message) {
	require.NoError(c.t, dap.WriteProtocolMessage(c.conn, message))
}

func (c *client) read() dap.Message {
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	message, err := dap.ReadProtocolMessage(c.reader)
	require.NoError(c.t, err)
	return message
}

func (c *client) launch() {
	dir := c.t.TempDir()
	require.NoError(c.t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	args, err := json.Marshal(map[string]interface{}{
		"datapack":      dir,
		"function":      "test:main",
		"serverDir":     dir,
		"serverCommand": []string{"java", "-jar", "server.jar"},
	})
	require.NoError(c.t, err)
	c.send(&dap.LaunchRequest{Request: c.request("launch"), Arguments: args})
	output, ok := c.read().(*dap.OutputEvent)
	require.True(c.t, ok)
	assert.Equal(c.t, "console", output.Body.Category)
	require.IsType(c.t, &dap.LaunchResponse{}, c.read())
	require.IsType(c.t, &dap.InitializedEvent{}, c.read())
}

func TestSessionFlow(t *testing.T) {
	stub := newStubDebugger()
	c := startSession(t, stub)

	c.send(&dap.InitializeRequest{Request: c.request("initialize"), Arguments: dap.InitializeRequestArguments{AdapterID: constants.DebugType}})
	initialize, ok := c.read().(*dap.InitializeResponse)
	require.True(t, ok)
	assert.True(t, initialize.Body.SupportsConfigurationDoneRequest)
	assert.True(t, initialize.Body.SupportsCancelRequest)
	assert.True(t, initialize.Body.SupportsTerminateRequest)

	c.launch()

	c.send(&dap.SetBreakpointsRequest{Request: c.request("setBreakpoints"), Arguments: dap.SetBreakpointsArguments{
		Source:         dap.Source{Path: "/pack/data/test/functions/main.mcfunction"},
		Breakpoints:    []dap.SourceBreakpoint{{Line: 1}, {Line: 2}},
		SourceModified: true,
	}})
	breakpoints, ok := c.read().(*dap.SetBreakpointsResponse)
	require.True(t, ok)
	require.Len(t, breakpoints.Body.Breakpoints, 2)
	assert.True(t, breakpoints.Body.Breakpoints[0].Verified)
	assert.False(t, breakpoints.Body.Breakpoints[1].Verified)
	assert.Equal(t, 2, breakpoints.Body.Breakpoints[1].Line)

	c.send(&dap.ConfigurationDoneRequest{Request: c.request("configurationDone")})
	require.IsType(t, &dap.ConfigurationDoneResponse{}, c.read())

	stub.events <- connection.LogEvent{Executor: "mcfd", Output: "stop"}
	stopped, ok := c.read().(*dap.StoppedEvent)
	require.True(t, ok)
	assert.Equal(t, "breakpoint", stopped.Body.Reason)
	assert.Equal(t, constants.ThreadID, stopped.Body.ThreadId)

	c.send(&dap.ThreadsRequest{Request: c.request("threads")})
	threads, ok := c.read().(*dap.ThreadsResponse)
	require.True(t, ok)
	assert.Equal(t, []dap.Thread{{Id: 1, Name: "Server"}}, threads.Body.Threads)

	c.send(&dap.StackTraceRequest{Request: c.request("stackTrace"), Arguments: dap.StackTraceArguments{ThreadId: 1, Levels: 1}})
	stack, ok := c.read().(*dap.StackTraceResponse)
	require.True(t, ok)
	require.Len(t, stack.Body.StackFrames, 1)
	assert.Equal(t, 2, stack.Body.TotalFrames)
	assert.Equal(t, "test:inner", stack.Body.StackFrames[0].Name)
	assert.Equal(t, "inner.mcfunction", stack.Body.StackFrames[0].Source.Name)

	c.send(&dap.ScopesRequest{Request: c.request("scopes"), Arguments: dap.ScopesArguments{FrameId: 2}})
	scopes, ok := c.read().(*dap.ScopesResponse)
	require.True(t, ok)
	require.Len(t, scopes.Body.Scopes, 1)
	assert.Equal(t, "Scores", scopes.Body.Scopes[0].Name)

	c.send(&dap.VariablesRequest{Request: c.request("variables"), Arguments: dap.VariablesArguments{VariablesReference: 1002}})
	variables, ok := c.read().(*dap.VariablesResponse)
	require.True(t, ok)
	assert.Equal(t, []dap.Variable{{Name: "points", Value: "7", Type: "int"}}, variables.Body.Variables)

	c.send(&dap.NextRequest{Request: c.request("next")})
	require.IsType(t, &dap.NextResponse{}, c.read())
	c.send(&dap.StepInRequest{Request: c.request("stepIn")})
	require.IsType(t, &dap.StepInResponse{}, c.read())
	c.send(&dap.StepOutRequest{Request: c.request("stepOut")})
	require.IsType(t, &dap.StepOutResponse{}, c.read())
	c.send(&dap.ContinueRequest{Request: c.request("continue")})
	require.IsType(t, &dap.ContinueResponse{}, c.read())

	c.send(&dap.DisconnectRequest{Request: c.request("disconnect")})
	require.IsType(t, &dap.TerminatedEvent{}, c.read())
	require.IsType(t, &dap.DisconnectResponse{}, c.read())

	assert.Equal(t, []string{
		"launch test:main",
		"sourceModified",
		"setBreakpoints main.mcfunction",
		"configurationDone",
		"event stop",
		"stepOver",
		"stepIn",
		"stepOut",
		"continue",
		"terminate",
	}, stub.Calls())
}

func TestRequestBeforeLaunch(t *testing.T) {
	c := startSession(t, newStubDebugger())
	c.send(&dap.StackTraceRequest{Request: c.request("stackTrace")})
	response, ok := c.read().(*dap.ErrorResponse)
	require.True(t, ok)
	assert.False(t, response.Success)
	assert.Equal(t, "stackTrace", response.Command)
	assert.Equal(t, e.ErrNotLaunched.Error(), response.Message)
}

func TestUnsupportedRequest(t *testing.T) {
	c := startSession(t, newStubDebugger())
	c.send(&dap.EvaluateRequest{Request: c.request("evaluate"), Arguments: dap.EvaluateArguments{Expression: "x"}})
	response, ok := c.read().(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "evaluate", response.Command)
	assert.Equal(t, 1, response.RequestSeq)
}

func TestCancelRunningRequest(t *testing.T) {
	stub := newStubDebugger()
	stub.release = make(chan struct{})
	c := startSession(t, stub)
	c.launch()

	c.send(&dap.ContinueRequest{Request: c.request("continue")})
	target := c.seq
	c.send(&dap.CancelRequest{Request: c.request("cancel"), Arguments: &dap.CancelArguments{RequestId: target}})

	var cancelled *dap.ErrorResponse
	for i := 0; i < 2; i++ {
		switch message := c.read().(type) {
		case *dap.CancelResponse:
			assert.True(t, message.Success)
		case *dap.ErrorResponse:
			cancelled = message
		default:
			t.Fatalf("unexpected message %#v", message)
		}
	}
	require.NotNil(t, cancelled)
	assert.Equal(t, target, cancelled.RequestSeq)
	assert.Equal(t, "cancelled", cancelled.Message)
}

func TestCancelQueuedRequest(t *testing.T) {
	stub := newStubDebugger()
	stub.release = make(chan struct{})
	c := startSession(t, stub)
	c.launch()

	c.send(&dap.ContinueRequest{Request: c.request("continue")})
	running := c.seq
	c.send(&dap.NextRequest{Request: c.request("next")})
	queued := c.seq
	c.send(&dap.CancelRequest{Request: c.request("cancel"), Arguments: &dap.CancelArguments{RequestId: queued}})
	require.IsType(t, &dap.CancelResponse{}, c.read())
	close(stub.release)

	continued, ok := c.read().(*dap.ContinueResponse)
	require.True(t, ok)
	assert.Equal(t, running, continued.RequestSeq)
	next, ok := c.read().(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, queued, next.RequestSeq)
	assert.Equal(t, "cancelled", next.Message)
	assert.NotContains(t, stub.Calls(), "stepOver")
}

func TestConnectionLost(t *testing.T) {
	stub := newStubDebugger()
	c := startSession(t, stub)
	c.launch()
	close(stub.events)
	require.IsType(t, &dap.TerminatedEvent{}, c.read())
	assert.Contains(t, stub.Calls(), "terminate")
}

func TestUnboundedQueueKeepsOrder(t *testing.T) {
	in := make(chan dap.Message)
	out := newUnboundedQueue(in)
	for i := 1; i <= 100; i++ {
		in <- &dap.ThreadsRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: i}}}
	}
	close(in)
	seq := 0
	for message := range out {
		seq++
		assert.Equal(t, seq, message.(*dap.ThreadsRequest).Seq)
	}
	assert.Equal(t, 100, seq)
}
