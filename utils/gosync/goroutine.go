package gosync

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// PanicError 协程中recover到的panic
type PanicError struct {
	Task  string
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", p.Task, p.Value)
}

// Go 启动协程，会兜住panic并记录日志
func Go(ctx context.Context, task func(ctx context.Context)) {
	GoNamed(ctx, "goroutine", task, nil)
}

// GoNamed 启动命名的协程，panic时先记录日志再调用onPanic，
// 调用方可以借此关闭依赖这个协程的连接或会话
func GoNamed(ctx context.Context, name string, task func(ctx context.Context), onPanic func(err *PanicError)) {
	go func() {
		defer func() {
			// 在每个协程内部接收该协程自身抛出来的 panic
			if r := recover(); r != nil {
				err := &PanicError{Task: name, Value: r, Stack: debug.Stack()}
				logrus.Errorf("[gosync] %v\n%s", err, err.Stack)
				if onPanic != nil {
					onPanic(err)
				}
			}
		}()
		task(ctx)
	}()
}
