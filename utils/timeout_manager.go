package utils

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fansqz/mcfunction-debugger/utils/gosync"
)

// Debouncer 一个可以重置的计时器
// 如果在delay时间内没有再次调用Trigger，就会执行fun函数
type Debouncer struct {
	delay   time.Duration
	fun     func()
	trigger chan struct{}
	once    sync.Once
	cancel  context.CancelFunc
}

// NewDebouncer 创建一个计时器实例
func NewDebouncer(delay time.Duration, fun func()) *Debouncer {
	return &Debouncer{
		delay:   delay,
		fun:     fun,
		trigger: make(chan struct{}, 1),
	}
}

// Start 开始监听触发
func (d *Debouncer) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	gosync.Go(ctx, func(ctx context.Context) {
		timer := time.NewTimer(d.delay)
		if !timer.Stop() {
			<-timer.C
		}
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-d.trigger:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.delay)
			case <-timer.C:
				logrus.Debugf("[Debouncer] timer expired, performing action")
				d.fun()
			}
		}
	})
}

// Trigger 重置计时器，不会阻塞
func (d *Debouncer) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Cancel 停止计时器
func (d *Debouncer) Cancel() {
	d.once.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
	})
}
