package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"

	"github.com/fansqz/mcfunction-debugger/constants"
	"github.com/fansqz/mcfunction-debugger/debugger"
	"github.com/fansqz/mcfunction-debugger/debugger/connection"
	"github.com/fansqz/mcfunction-debugger/debugger/mc_debugger"
	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/protocol"
	"github.com/fansqz/mcfunction-debugger/utils"
)

// newDebugger 创建调试器，测试中替换
var newDebugger = func(p *command.Parser) debugger.Debugger {
	return mc_debugger.NewMCDebugger(p)
}

// openConnection 根据launch参数连接服务器，测试中替换
var openConnection = func(ctx context.Context, cfg *Config, args *protocol.LaunchArguments) (connection.Connection, error) {
	if len(args.ServerCommand) != 0 {
		return connection.NewProcessConnection(ctx, connection.ProcessOptions{
			Command:        args.ServerCommand,
			Dir:            args.ServerDir,
			InjectPosition: cfg.Runtime.InjectPosition,
			StartTimeout:   cfg.Runtime.StartTimeout.Duration,
		})
	}
	// 打开命名管道会阻塞到服务器一端打开
	console, err := os.OpenFile(args.Console, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open console %s: %w", args.Console, err)
	}
	conn, err := connection.NewLogFileConnection(ctx, connection.LogFileOptions{
		LogFile:        args.LogFile,
		Console:        console,
		InjectPosition: cfg.Runtime.InjectPosition,
	})
	if err != nil {
		_ = console.Close()
		return nil, err
	}
	return conn, nil
}

func (s *DebugSession) onInitializeRequest(ctx context.Context, request *dap.InitializeRequest) {
	s.supportsProgress = request.Arguments.SupportsProgressReporting
	if request.Arguments.AdapterID != "" && request.Arguments.AdapterID != constants.DebugType {
		logrus.Warnf("[Server] unexpected adapter id %s", request.Arguments.AdapterID)
	}
	response := &dap.InitializeResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.SupportsConfigurationDoneRequest = true
	response.Body.SupportsCancelRequest = true
	response.Body.SupportsTerminateRequest = true
	s.send(response)
}

func (s *DebugSession) onLaunchRequest(ctx context.Context, request *dap.LaunchRequest) {
	if s.debugger != nil {
		s.sendError(&request.Request, e.ErrAlreadyLaunched)
		return
	}
	args, err := protocol.ParseLaunchArguments(request.Arguments)
	if err != nil {
		s.sendError(&request.Request, err)
		return
	}
	if s.parser == nil {
		grammar, err := s.cfg.Generator.LoadGrammar()
		if err != nil {
			s.sendError(&request.Request, err)
			return
		}
		s.parser = command.NewParser(grammar)
	}

	world := args.World
	if world == "" {
		world = filepath.Join(args.ServerDir, "world")
	}
	genCfg := s.cfg.Generator.Config
	if args.Namespace != "" {
		genCfg.Namespace = args.Namespace
	}

	progressID := s.startProgress(request.Seq, "Generating debug datapack")
	defer s.endProgress(progressID)

	conn, err := openConnection(ctx, s.cfg, args)
	if err != nil {
		s.sendError(&request.Request, err)
		return
	}
	d := newDebugger(s.parser)
	output := filepath.Join(world, "datapacks", "mcfd-"+utils.GetUUID()[:8])
	err = d.Launch(ctx, &debugger.StartOption{
		Datapack:   args.Datapack,
		Output:     output,
		Function:   args.Function,
		Generator:  genCfg,
		Connection: conn,
		Callback:   s.onDebuggerEvent,
	})
	if err != nil {
		_ = d.Terminate(context.Background())
		_ = conn.Close()
		s.sendError(&request.Request, err)
		return
	}
	s.debugger = d

	watcher, err := newSourceWatcher(s.ctx, filepath.Join(args.Datapack, "data"), d.NotifySourceModified)
	if err != nil {
		logrus.Warnf("[Server] watch %s fail, err = %v", args.Datapack, err)
	} else {
		s.watcher = watcher
	}

	s.onDebuggerEvent(debugger.NewOutputEvent(constants.OutputConsole,
		fmt.Sprintf("Installed debug datapack %s for %s\n", filepath.Base(output), args.Function)))
	response := &dap.LaunchResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
	// 数据包已经加载，客户端现在可以设置断点
	s.send(&dap.InitializedEvent{Event: *newEvent("initialized")})
}

// startProgress 客户端支持时发送progressStart，返回的id可以用于取消当前请求
func (s *DebugSession) startProgress(seq int, title string) string {
	if !s.supportsProgress {
		return ""
	}
	id := utils.GetUUID()
	s.mutex.Lock()
	s.progress[id] = seq
	s.mutex.Unlock()
	event := &dap.ProgressStartEvent{Event: *newEvent("progressStart")}
	event.Body.ProgressId = id
	event.Body.Title = title
	event.Body.RequestId = seq
	event.Body.Cancellable = true
	s.send(event)
	return id
}

func (s *DebugSession) endProgress(id string) {
	if id == "" {
		return
	}
	event := &dap.ProgressEndEvent{Event: *newEvent("progressEnd")}
	event.Body.ProgressId = id
	s.send(event)
}

func (s *DebugSession) onSetBreakpointsRequest(ctx context.Context, request *dap.SetBreakpointsRequest) {
	if !s.launched(&request.Request) {
		return
	}
	if request.Arguments.SourceModified {
		s.debugger.NotifySourceModified()
	}
	lines := make([]int, len(request.Arguments.Breakpoints))
	for i, bp := range request.Arguments.Breakpoints {
		lines[i] = bp.Line
	}
	path := request.Arguments.Source.Path

	progressID := s.startProgress(request.Seq, "Updating breakpoints")
	breakpoints, err := s.debugger.SetBreakpoints(ctx, path, lines)
	s.endProgress(progressID)
	if err != nil {
		s.sendError(&request.Request, err)
		return
	}

	response := &dap.SetBreakpointsResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Breakpoints = make([]dap.Breakpoint, len(breakpoints))
	for i, bp := range breakpoints {
		response.Body.Breakpoints[i] = dap.Breakpoint{
			Verified: bp.Verified,
			Message:  bp.Message,
			Line:     bp.Line,
			Source:   &dap.Source{Path: path},
		}
	}
	s.send(response)
}

func (s *DebugSession) onConfigurationDoneRequest(ctx context.Context, request *dap.ConfigurationDoneRequest) {
	if !s.launched(&request.Request) {
		return
	}
	if err := s.debugger.ConfigurationDone(ctx); err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.ConfigurationDoneResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

func (s *DebugSession) onThreadsRequest(ctx context.Context, request *dap.ThreadsRequest) {
	response := &dap.ThreadsResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Threads = []dap.Thread{{Id: constants.ThreadID, Name: constants.ThreadName}}
	s.send(response)
}

func (s *DebugSession) onContinueRequest(ctx context.Context, request *dap.ContinueRequest) {
	if !s.launched(&request.Request) {
		return
	}
	if err := s.debugger.Continue(ctx); err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.ContinueResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.AllThreadsContinued = true
	s.send(response)
}

func (s *DebugSession) onNextRequest(ctx context.Context, request *dap.NextRequest) {
	if !s.launched(&request.Request) {
		return
	}
	if err := s.debugger.StepOver(ctx); err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.NextResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

func (s *DebugSession) onStepInRequest(ctx context.Context, request *dap.StepInRequest) {
	if !s.launched(&request.Request) {
		return
	}
	if err := s.debugger.StepIn(ctx); err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.StepInResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

func (s *DebugSession) onStepOutRequest(ctx context.Context, request *dap.StepOutRequest) {
	if !s.launched(&request.Request) {
		return
	}
	if err := s.debugger.StepOut(ctx); err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.StepOutResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

// launched 未launch时直接返回错误响应
func (s *DebugSession) launched(request *dap.Request) bool {
	if s.debugger == nil {
		s.sendError(request, e.ErrNotLaunched)
		return false
	}
	return true
}

func (s *DebugSession) onStackTraceRequest(ctx context.Context, request *dap.StackTraceRequest) {
	if !s.launched(&request.Request) {
		return
	}
	frames, err := s.debugger.GetStackTrace(ctx)
	if err != nil {
		s.sendError(&request.Request, err)
		return
	}
	start := request.Arguments.StartFrame
	if start > len(frames) {
		start = len(frames)
	}
	end := len(frames)
	if levels := request.Arguments.Levels; levels > 0 && start+levels < end {
		end = start + levels
	}
	response := &dap.StackTraceResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.StackFrames = make([]dap.StackFrame, 0, end-start)
	for _, frame := range frames[start:end] {
		response.Body.StackFrames = append(response.Body.StackFrames, dap.StackFrame{
			Id:     frame.ID,
			Name:   frame.Name,
			Source: &dap.Source{Name: filepath.Base(frame.Path), Path: frame.Path},
			Line:   frame.Line,
			Column: frame.Column,
		})
	}
	response.Body.TotalFrames = len(frames)
	s.send(response)
}

func (s *DebugSession) onScopesRequest(ctx context.Context, request *dap.ScopesRequest) {
	if !s.launched(&request.Request) {
		return
	}
	scopes, err := s.debugger.GetScopes(ctx, request.Arguments.FrameId)
	if err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.ScopesResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Scopes = make([]dap.Scope, len(scopes))
	for i, scope := range scopes {
		response.Body.Scopes[i] = dap.Scope{
			Name:               string(scope.Name),
			VariablesReference: scope.Reference,
			// 分数需要向服务器查询
			Expensive: true,
		}
	}
	s.send(response)
}

func (s *DebugSession) onVariablesRequest(ctx context.Context, request *dap.VariablesRequest) {
	if !s.launched(&request.Request) {
		return
	}
	variables, err := s.debugger.GetVariables(ctx, request.Arguments.VariablesReference)
	if err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.VariablesResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Variables = make([]dap.Variable, len(variables))
	for i, variable := range variables {
		value := ""
		if variable.Value != nil {
			value = *variable.Value
		}
		response.Body.Variables[i] = dap.Variable{
			Name:  variable.Name,
			Value: value,
			Type:  variable.Type,
		}
	}
	s.send(response)
}

func (s *DebugSession) onTerminateRequest(ctx context.Context, request *dap.TerminateRequest) {
	if err := s.terminate(ctx); err != nil {
		s.sendError(&request.Request, err)
		return
	}
	response := &dap.TerminateResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

func (s *DebugSession) onDisconnectRequest(ctx context.Context, request *dap.DisconnectRequest) {
	if err := s.terminate(ctx); err != nil {
		logrus.Warnf("[Server] terminate on disconnect fail, err = %v", err)
	}
	response := &dap.DisconnectResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

// terminate 结束调试会话，不需要等待请求的上下文
func (s *DebugSession) terminate(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.debugger == nil {
		return nil
	}
	return s.debugger.Terminate(context.WithoutCancel(ctx))
}

// onDebuggerEvent 把调试器的事件转换为dap事件
func (s *DebugSession) onDebuggerEvent(event interface{}) {
	switch event := event.(type) {
	case *debugger.StoppedEvent:
		ev := &dap.StoppedEvent{Event: *newEvent("stopped")}
		ev.Body.Reason = string(event.Reason)
		ev.Body.ThreadId = constants.ThreadID
		ev.Body.AllThreadsStopped = true
		s.send(ev)
	case *debugger.ContinuedEvent:
		ev := &dap.ContinuedEvent{Event: *newEvent("continued")}
		ev.Body.ThreadId = constants.ThreadID
		ev.Body.AllThreadsContinued = true
		s.send(ev)
	case *debugger.ExitedEvent:
		ev := &dap.ExitedEvent{Event: *newEvent("exited")}
		ev.Body.ExitCode = event.ExitCode
		s.send(ev)
	case *debugger.TerminatedEvent:
		s.send(&dap.TerminatedEvent{Event: *newEvent("terminated")})
	case *debugger.OutputEvent:
		ev := &dap.OutputEvent{Event: *newEvent("output")}
		ev.Body.Category = event.Category
		ev.Body.Output = event.Output
		s.send(ev)
	default:
		logrus.Warnf("[Server] unknown debugger event %#v", event)
	}
}
