package connection

import (
	"context"
	"sync"

	e "github.com/fansqz/mcfunction-debugger/error"
)

// Fake 不连接服务器的实现，记录所有注入的命令，OnInject返回的事件会广播给监听者
type Fake struct {
	mutex     sync.Mutex
	injected  [][]Command
	listeners *listeners
	closed    bool
	// OnInject 模拟服务器对注入命令的响应
	OnInject func(commands []Command) []LogEvent
	// InjectErr 不为nil时注入直接返回该错误，模拟写控制台失败
	InjectErr error
}

// NewFake 创建Fake
func NewFake() *Fake {
	return &Fake{listeners: newListeners()}
}

func (f *Fake) Inject(ctx context.Context, commands []Command) error {
	f.mutex.Lock()
	if f.closed {
		f.mutex.Unlock()
		return e.ErrConnectionClosed
	}
	if f.InjectErr != nil {
		err := f.InjectErr
		f.mutex.Unlock()
		return err
	}
	f.injected = append(f.injected, append([]Command(nil), commands...))
	onInject := f.OnInject
	f.mutex.Unlock()
	if onInject != nil {
		for _, event := range onInject(commands) {
			f.listeners.broadcast(event)
		}
	}
	return nil
}

// Emit 模拟一条日志输出
func (f *Fake) Emit(event LogEvent) {
	f.listeners.broadcast(event)
}

// Injected 所有注入过的命令，按注入顺序展开
func (f *Fake) Injected() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var result []string
	for _, commands := range f.injected {
		for _, c := range commands {
			result = append(result, c.Command)
		}
	}
	return result
}

// Reset 清空记录
func (f *Fake) Reset() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.injected = nil
}

func (f *Fake) AddListener() (<-chan LogEvent, func()) {
	return f.listeners.add()
}

func (f *Fake) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if !f.closed {
		f.closed = true
		f.listeners.close()
	}
	return nil
}
