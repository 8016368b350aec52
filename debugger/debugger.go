package debugger

import (
	"context"

	"github.com/fansqz/mcfunction-debugger/debugger/connection"
)

// NotificationCallback 调试器产生事件时回调，参数是本包中的各种Event
type NotificationCallback func(event interface{})

// Debugger
// 用户的一次调试过程处理
// 所有方法都应该在同一个协程中调用，运行时事件通过Events获取，再交给HandleEvent处理
type Debugger interface {
	// Launch 生成调试数据包并安装到服务器，callback用来异步通知暂停、退出等事件
	Launch(ctx context.Context, option *StartOption) error
	// ConfigurationDone 客户端完成断点等配置，开始执行入口函数
	ConfigurationDone(ctx context.Context) error
	// SetBreakpoints 设置一个函数文件中的全部断点，返回每个断点的验证结果
	SetBreakpoints(ctx context.Context, source string, lines []int) ([]*Breakpoint, error)
	// Continue 忽略继续执行
	Continue(ctx context.Context) error
	// StepOver 下一步，不会进入函数内部
	StepOver(ctx context.Context) error
	// StepIn 下一步，会进入函数内部
	StepIn(ctx context.Context) error
	// StepOut 单步退出
	StepOut(ctx context.Context) error
	// GetStackTrace 获取栈帧，同一次暂停只会查询一次
	GetStackTrace(ctx context.Context) ([]*StackFrame, error)
	// GetScopes 获取某个栈帧中的作用域
	GetScopes(ctx context.Context, frameID int) ([]*Scope, error)
	// GetVariables 查看引用的值
	GetVariables(ctx context.Context, reference int) ([]*Variable, error)
	// Terminate 终止调试，卸载数据包并关闭连接
	Terminate(ctx context.Context) error
	// Events 运行时产生的事件，连接断开时关闭
	Events() <-chan connection.LogEvent
	// HandleEvent 处理一个运行时事件
	HandleEvent(ctx context.Context, event connection.LogEvent) error
	// NotifySourceModified 源文件被修改，下一次恢复执行前重新解析
	NotifySourceModified()
}
