package debugger

import (
	"github.com/fansqz/mcfunction-debugger/constants"
	"github.com/fansqz/mcfunction-debugger/debugger/connection"
	"github.com/fansqz/mcfunction-debugger/generator"
)

// StartOption 启动调试的参数
type StartOption struct {
	// Datapack 被调试的数据包目录，包含pack.mcmeta
	Datapack string
	// Output 调试数据包的输出目录，一般在存档的datapacks目录下
	Output string
	// Function 入口函数，例如test:main
	Function string
	// Generator 生成器配置
	Generator generator.Config
	// Connection 与服务器的连接
	Connection connection.Connection
	// Callback 事件回调
	Callback NotificationCallback
}

// Breakpoint 表示断点
type Breakpoint struct {
	Line     int
	Verified bool
	// Message 未验证时的原因
	Message string
}

func NewBreakpoint(line int, verified bool, message string) *Breakpoint {
	return &Breakpoint{Line: line, Verified: verified, Message: message}
}

// StackFrame 栈帧，ID是调用深度
type StackFrame struct {
	ID     int    `json:"id"`
	Name   string `json:"name"` // 函数名称
	Path   string `json:"path"` // 源文件路径
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Scope 作用域
type Scope struct {
	Name      constants.ScopeName
	Reference int // 作用域的引用
}

// Variable 变量，这里是记分板的分数
type Variable struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Value *string `json:"value"`
}

// StoppedEvent
// 该event表明，由于某些原因，被调试进程的执行已经停止。
// 这可能是由先前设置的断点、完成的步进请求、执行调试器语句等引起的。
type StoppedEvent struct {
	Reason constants.StoppedReasonType // 停止执行的原因
	File   string                      // 当前停止在哪个文件
	Line   int                         // 停止在某行
}

func NewStoppedEvent(reason constants.StoppedReasonType, file string, line int) *StoppedEvent {
	return &StoppedEvent{
		Reason: reason,
		File:   file,
		Line:   line,
	}
}

// ContinuedEvent
// 只有在没有先前的request暗示继续执行时，才需要发送
type ContinuedEvent struct {
}

func NewContinuedEvent() *ContinuedEvent {
	return &ContinuedEvent{}
}

// ExitedEvent
// 该event表明被调试对象已经退出并返回exit code。但是并不意味着调试会话结束
type ExitedEvent struct {
	ExitCode int
	Message  string
}

func NewExitedEvent(code int, message string) *ExitedEvent {
	return &ExitedEvent{
		ExitCode: code,
		Message:  message,
	}
}

// TerminatedEvent 调试会话结束
type TerminatedEvent struct {
}

func NewTerminatedEvent() *TerminatedEvent {
	return &TerminatedEvent{}
}

// OutputEvent
// 调试器输出给用户的信息
type OutputEvent struct {
	Category string
	Output   string // 输出内容
}

func NewOutputEvent(category string, output string) *OutputEvent {
	return &OutputEvent{
		Category: category,
		Output:   output,
	}
}
