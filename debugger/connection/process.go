package connection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/utils/gosync"
)

// ProcessOptions 启动服务器进程的参数
type ProcessOptions struct {
	// Command 启动服务器的命令，例如java -jar server.jar nogui
	Command []string
	// Dir 服务器目录
	Dir string
	// InjectPosition 注入命令时放置命令方块的位置
	InjectPosition [3]int
	// StartTimeout 等待服务器启动完成的时间
	StartTimeout time.Duration
}

// ProcessConnection 在虚拟终端中启动服务器，通过控制台注入命令并读取控制台输出
type ProcessConnection struct {
	cmd       *exec.Cmd
	ptm       *os.File
	listeners *listeners
	console   *console
	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewProcessConnection 启动服务器并等待启动完成
func NewProcessConnection(ctx context.Context, options ProcessOptions) (*ProcessConnection, error) {
	if len(options.Command) == 0 {
		return nil, errors.New("server command must not be empty")
	}
	cmd := exec.Command(options.Command[0], options.Command[1:]...)
	cmd.Dir = options.Dir
	ptm, err := pty.Start(cmd)
	if err != nil {
		logrus.Errorf("[Connection] pty start fail, err = %v", err)
		return nil, err
	}
	// 关闭回显，否则注入的命令会出现在输出中
	if _, err = term.MakeRaw(int(ptm.Fd())); err != nil {
		logrus.Warnf("[Connection] make raw fail, err = %v", err)
	}
	c := &ProcessConnection{
		cmd:       cmd,
		ptm:       ptm,
		listeners: newListeners(),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.console = &console{position: options.InjectPosition, write: c.writeLine}
	// 没有人读取输出时服务器会阻塞，读协程异常退出后按连接断开处理
	gosync.GoNamed(ctx, "read server output", c.readOutput, func(*gosync.PanicError) {
		c.listeners.close()
	})
	gosync.Go(ctx, func(ctx context.Context) {
		_ = cmd.Wait()
		close(c.done)
		c.listeners.close()
	})

	timeout := options.StartTimeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	select {
	case <-c.ready:
	case <-c.done:
		return nil, fmt.Errorf("server exited during startup: %w", e.ErrConnectionClosed)
	case <-ctx.Done():
		_ = c.Close()
		return nil, ctx.Err()
	case <-time.After(timeout):
		_ = c.Close()
		return nil, errors.New("server start timeout")
	}
	if err = c.console.setup(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *ProcessConnection) readOutput(ctx context.Context) {
	scanner := bufio.NewScanner(c.ptm)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "]: Done (") {
			c.readyOnce.Do(func() { close(c.ready) })
		}
		if event, ok := ParseLogLine(line); ok {
			c.listeners.broadcast(event)
		}
	}
	if err := scanner.Err(); err != nil {
		logrus.Debugf("[Connection] read output end, err = %v", err)
	}
}

func (c *ProcessConnection) writeLine(line string) error {
	select {
	case <-c.done:
		return e.ErrConnectionClosed
	default:
	}
	_, err := c.ptm.Write([]byte(line + "\n"))
	return writeFailed(err)
}

func (c *ProcessConnection) Inject(ctx context.Context, commands []Command) error {
	return c.console.inject(ctx, commands)
}

func (c *ProcessConnection) AddListener() (<-chan LogEvent, func()) {
	return c.listeners.add()
}

// Close 停止服务器，超时后强制结束进程
func (c *ProcessConnection) Close() error {
	c.closeOnce.Do(func() {
		_ = c.writeLine("stop")
		select {
		case <-c.done:
		case <-time.After(30 * time.Second):
			logrus.Warnf("[Connection] server did not stop, killing")
			_ = c.cmd.Process.Kill()
			<-c.done
		}
		_ = c.ptm.Close()
	})
	return nil
}
