package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"

	"github.com/fansqz/mcfunction-debugger/constants"
	"github.com/fansqz/mcfunction-debugger/debugger"
	"github.com/fansqz/mcfunction-debugger/debugger/connection"
	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/utils"
	"github.com/fansqz/mcfunction-debugger/utils/gosync"
)

// DebugSession 调试会话
// 读协程解码请求放进队列，cancel请求直接在读协程处理；
// 调度协程每次只执行一个请求，空闲时处理服务器产生的事件。
type DebugSession struct {
	id     string
	cfg    *Config
	ctx    context.Context
	reader *bufio.Reader
	writer *bufio.Writer
	// sendMutex 保证请求处理和事件回调写入的消息不会交错
	sendMutex sync.Mutex

	parser   *command.Parser
	debugger debugger.Debugger
	watcher  *sourceWatcher
	// supportsProgress 客户端支持progressStart/progressEnd
	supportsProgress bool
	eventsClosed     bool

	// 以下字段在读协程和调度协程之间共享，由mutex保护
	mutex         sync.Mutex
	current       int
	currentCancel context.CancelFunc
	cancelled     map[int]bool
	progress      map[string]int
}

// handleConnection 处理一个客户端连接，直到连接关闭
func handleConnection(ctx context.Context, conn io.ReadWriteCloser, cfg *Config) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := &DebugSession{
		id:        utils.GetUUID(),
		cfg:       cfg,
		ctx:       ctx,
		reader:    bufio.NewReader(conn),
		writer:    bufio.NewWriter(conn),
		cancelled: map[int]bool{},
		progress:  map[string]int{},
	}
	logrus.Infof("[Server] session %s started", s.id)

	incoming := make(chan dap.Message)
	gosync.GoNamed(ctx, "read requests "+s.id, func(ctx context.Context) {
		defer close(incoming)
		s.readRequests(ctx, incoming)
	}, func(err *gosync.PanicError) {
		s.sendOutput(err.Error())
	})
	s.dispatch(ctx, newUnboundedQueue(incoming))

	if s.debugger != nil {
		_ = s.debugger.Terminate(context.Background())
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	_ = conn.Close()
	logrus.Infof("[Server] session %s closed", s.id)
}

// readRequests 读取客户端消息，直到连接关闭
func (s *DebugSession) readRequests(ctx context.Context, incoming chan<- dap.Message) {
	for {
		message, err := dap.ReadProtocolMessage(s.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logrus.Infof("[Server] no more data to read")
				return
			}
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(err, &fieldErr) {
				// 不支持的请求
				s.send(newErrorResponse(fieldErr.Seq, fieldErr.SubType, e.ErrUnsupportedRequest.Error()))
				continue
			}
			logrus.Errorf("[Server] read message fail, err = %v", err)
			return
		}
		if request, ok := message.(*dap.CancelRequest); ok {
			s.onCancelRequest(request)
			continue
		}
		select {
		case incoming <- message:
		case <-ctx.Done():
			return
		}
	}
}

// newUnboundedQueue 把in中的消息转发到返回的channel，不会阻塞写入方
func newUnboundedQueue(in <-chan dap.Message) <-chan dap.Message {
	out := make(chan dap.Message)
	go func() {
		defer close(out)
		var pending []dap.Message
		for {
			if len(pending) == 0 {
				message, ok := <-in
				if !ok {
					return
				}
				pending = append(pending, message)
				continue
			}
			select {
			case message, ok := <-in:
				if !ok {
					for _, m := range pending {
						out <- m
					}
					return
				}
				pending = append(pending, message)
			case out <- pending[0]:
				pending = pending[1:]
			}
		}
	}()
	return out
}

// dispatch 调度协程，请求之间处理服务器事件
func (s *DebugSession) dispatch(ctx context.Context, requests <-chan dap.Message) {
	for {
		select {
		case message, ok := <-requests:
			if !ok {
				return
			}
			s.handleRequest(ctx, message)
		case event, ok := <-s.runtimeEvents():
			if !ok {
				s.eventsClosed = true
				s.onConnectionLost()
				continue
			}
			if err := s.debugger.HandleEvent(ctx, event); err != nil {
				logrus.Errorf("[Server] handle event fail, err = %v", err)
				s.sendOutput(err.Error())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *DebugSession) runtimeEvents() <-chan connection.LogEvent {
	if s.debugger == nil || s.eventsClosed {
		return nil
	}
	return s.debugger.Events()
}

// onConnectionLost 服务器连接断开，会话结束
func (s *DebugSession) onConnectionLost() {
	logrus.Warnf("[Server] connection to the server lost")
	_ = s.debugger.Terminate(s.ctx)
}

// handleRequest 执行一个请求，已经取消的请求直接返回cancelled
func (s *DebugSession) handleRequest(ctx context.Context, message dap.Message) {
	request, ok := message.(dap.RequestMessage)
	if !ok {
		logrus.Warnf("[Server] unexpected message %#v", message)
		return
	}
	seq := request.GetRequest().Seq
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mutex.Lock()
	if s.cancelled[seq] {
		delete(s.cancelled, seq)
		s.mutex.Unlock()
		s.send(newErrorResponse(seq, request.GetRequest().Command, e.ErrCancelled.Error()))
		return
	}
	s.current = seq
	s.currentCancel = cancel
	s.mutex.Unlock()

	s.dispatchRequest(ctx, message)

	s.mutex.Lock()
	s.current = 0
	s.currentCancel = nil
	for id, owner := range s.progress {
		if owner == seq {
			delete(s.progress, id)
		}
	}
	s.mutex.Unlock()
}

// onCancelRequest 在读协程中执行
func (s *DebugSession) onCancelRequest(request *dap.CancelRequest) {
	s.mutex.Lock()
	if args := request.Arguments; args != nil {
		target := args.RequestId
		if args.ProgressId != "" {
			target = s.progress[args.ProgressId]
		}
		switch {
		case target == 0:
		case target == s.current && s.currentCancel != nil:
			s.currentCancel()
		default:
			s.cancelled[target] = true
		}
	}
	s.mutex.Unlock()
	response := &dap.CancelResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	s.send(response)
}

func (s *DebugSession) dispatchRequest(ctx context.Context, request dap.Message) {
	switch request := request.(type) {
	case *dap.InitializeRequest:
		s.onInitializeRequest(ctx, request)
	case *dap.LaunchRequest:
		s.onLaunchRequest(ctx, request)
	case *dap.SetBreakpointsRequest:
		s.onSetBreakpointsRequest(ctx, request)
	case *dap.ConfigurationDoneRequest:
		s.onConfigurationDoneRequest(ctx, request)
	case *dap.ThreadsRequest:
		s.onThreadsRequest(ctx, request)
	case *dap.ContinueRequest:
		s.onContinueRequest(ctx, request)
	case *dap.NextRequest:
		s.onNextRequest(ctx, request)
	case *dap.StepInRequest:
		s.onStepInRequest(ctx, request)
	case *dap.StepOutRequest:
		s.onStepOutRequest(ctx, request)
	case *dap.StackTraceRequest:
		s.onStackTraceRequest(ctx, request)
	case *dap.ScopesRequest:
		s.onScopesRequest(ctx, request)
	case *dap.VariablesRequest:
		s.onVariablesRequest(ctx, request)
	case *dap.TerminateRequest:
		s.onTerminateRequest(ctx, request)
	case *dap.DisconnectRequest:
		s.onDisconnectRequest(ctx, request)
	default:
		if r, ok := request.(dap.RequestMessage); ok {
			base := r.GetRequest()
			s.send(newErrorResponse(base.Seq, base.Command, base.Command+" is not yet supported"))
		}
	}
}

// send Message响应给客户端
func (s *DebugSession) send(message dap.Message) {
	s.sendMutex.Lock()
	defer s.sendMutex.Unlock()
	if err := dap.WriteProtocolMessage(s.writer, message); err != nil {
		logrus.Errorf("[Server] write message fail, err = %v", err)
		return
	}
	_ = s.writer.Flush()
}

// sendError 把错误转换为错误响应，取消的请求统一返回cancelled
func (s *DebugSession) sendError(request *dap.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, e.ErrCancelled) {
		err = e.ErrCancelled
	}
	logrus.Warnf("[Server] %s fail, err = %v", request.Command, err)
	s.send(newErrorResponse(request.Seq, request.Command, err.Error()))
}

func (s *DebugSession) sendOutput(output string) {
	event := &dap.OutputEvent{Event: *newEvent("output")}
	event.Body.Category = constants.OutputStderr
	event.Body.Output = output + "\n"
	s.send(event)
}

func newEvent(event string) *dap.Event {
	return &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "event",
		},
		Event: event,
	}
}

func newResponse(requestSeq int, command string) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "response",
		},
		Command:    command,
		RequestSeq: requestSeq,
		Success:    true,
	}
}

func newErrorResponse(requestSeq int, command string, message string) *dap.ErrorResponse {
	er := &dap.ErrorResponse{}
	er.Response = *newResponse(requestSeq, command)
	er.Success = false
	er.Message = message
	er.Body.Error = &dap.ErrorMessage{}
	er.Body.Error.Format = message
	er.Body.Error.Id = 12345
	return er
}
