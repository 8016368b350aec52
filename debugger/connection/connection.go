// Package connection 与运行数据包的Minecraft服务器通信：注入命令，并从服务器日志中读取命令方块的输出。
package connection

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	e "github.com/fansqz/mcfunction-debugger/error"
)

// Command 注入的命令，Name是执行命令的命令方块的名称，会出现在日志中
type Command struct {
	Name    string
	Command string
}

// NewCommand 创建命令
func NewCommand(name string, command string) Command {
	return Command{Name: name, Command: command}
}

// LogEvent 日志中一条命令方块的输出
type LogEvent struct {
	Executor string
	Output   string
}

// Connection 与服务器的连接，需要保证并发安全
type Connection interface {
	// Inject 注入一组命令，命令会在同一个tick中按顺序执行
	Inject(ctx context.Context, commands []Command) error
	// AddListener 添加一个日志监听，返回的函数用于移除监听
	AddListener() (<-chan LogEvent, func())
	// Close 关闭连接
	Close() error
}

// TickInterval 一个游戏刻的时长
const TickInterval = 50 * time.Millisecond

// DefaultInjectPosition 注入命令时放置命令方块的位置
var DefaultInjectPosition = [3]int{1, -64, 0}

// [12:34:56] [Server thread/INFO]: [mcfd: Added tag 'x' to y]
var logLinePattern = regexp.MustCompile(`^\[[0-9:. ]+\] \[[^\]]+/INFO\]: \[([^:\]]+): (.*)\]$`)

// ParseLogLine 解析一行服务器日志，只有命令方块的输出才会返回true
func ParseLogLine(line string) (LogEvent, bool) {
	line = strings.TrimRight(line, "\r\n")
	match := logLinePattern.FindStringSubmatch(line)
	if match == nil {
		return LogEvent{}, false
	}
	return LogEvent{Executor: match[1], Output: match[2]}, true
}

// InjectionCommands 把命令放进一列向上的命令方块中，第一个是脉冲命令方块，其余是连锁命令方块
func InjectionCommands(position [3]int, commands []Command) []string {
	if len(commands) == 0 {
		return nil
	}
	x, y, z := position[0], position[1], position[2]
	lines := []string{
		fmt.Sprintf("fill %d %d %d %d %d %d air", x, y, z, x, y+len(commands)-1, z),
	}
	// 先放连锁命令方块，最后放脉冲命令方块，保证整条链在同一个tick触发
	for i := len(commands) - 1; i >= 0; i-- {
		block := "chain_command_block"
		if i == 0 {
			block = "command_block"
		}
		lines = append(lines, fmt.Sprintf(`setblock %d %d %d %s[facing=up]{auto:1b,CustomName:'{"text":"%s"}',Command:"%s"}`,
			x, y+i, z, block, escapeName(commands[i].Name), escapeCommand(commands[i].Command)))
	}
	return lines
}

func escapeCommand(command string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(command)
}

func escapeName(name string) string {
	return strings.NewReplacer(`\`, `\\\\`, `"`, `\\"`, `'`, `\'`).Replace(name)
}

// listeners 日志事件的广播，每个监听者有自己的channel
type listeners struct {
	mutex  sync.RWMutex
	nextID int
	chans  map[int]chan LogEvent
	closed bool
}

func newListeners() *listeners {
	return &listeners{chans: map[int]chan LogEvent{}}
}

func (l *listeners) add() (<-chan LogEvent, func()) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	ch := make(chan LogEvent, 256)
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	id := l.nextID
	l.nextID++
	l.chans[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mutex.Lock()
			defer l.mutex.Unlock()
			if c, ok := l.chans[id]; ok {
				delete(l.chans, id)
				close(c)
			}
		})
	}
}

func (l *listeners) broadcast(event LogEvent) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	for _, ch := range l.chans {
		ch <- event
	}
}

func (l *listeners) close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.chans {
		delete(l.chans, id)
		close(ch)
	}
}

// writeFailed 控制台写入失败时服务器已经不可用，统一按连接断开处理
func writeFailed(err error) error {
	if err == nil || errors.Is(err, e.ErrConnectionClosed) {
		return err
	}
	return fmt.Errorf("%w: %w", e.ErrConnectionClosed, err)
}

// console 把命令写入服务器控制台，两次注入之间至少间隔一个tick，否则命令方块会被覆盖
type console struct {
	mutex    sync.Mutex
	position [3]int
	write    func(line string) error
	last     time.Time
}

func (c *console) setup() error {
	for _, line := range []string{
		"gamerule commandBlockOutput true",
		"gamerule logAdminCommands true",
		fmt.Sprintf("forceload add %d %d", c.position[0], c.position[2]),
	} {
		if err := c.write(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *console) inject(ctx context.Context, commands []Command) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if wait := TickInterval*2 - time.Since(c.last); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	for _, line := range InjectionCommands(c.position, commands) {
		if err := c.write(line); err != nil {
			return err
		}
	}
	c.last = time.Now()
	logrus.Debugf("[Connection] injected %d commands", len(commands))
	return nil
}
