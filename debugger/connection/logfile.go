package connection

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/utils/gosync"
)

// LogFileOptions 连接已经在运行的服务器的参数
type LogFileOptions struct {
	// LogFile 服务器的日志文件，一般是logs/latest.log
	LogFile string
	// Console 服务器控制台的输入，例如一个命名管道
	Console io.WriteCloser
	// InjectPosition 注入命令时放置命令方块的位置
	InjectPosition [3]int
}

// LogFileConnection 跟踪服务器日志文件，通过外部提供的控制台输入注入命令
type LogFileConnection struct {
	path      string
	file      *os.File
	reader    *bufio.Reader
	partial   string
	watcher   *fsnotify.Watcher
	listeners *listeners
	console   *console
	output    io.WriteCloser
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    chan struct{}
}

// NewLogFileConnection 从日志文件当前的末尾开始跟踪
func NewLogFileConnection(ctx context.Context, options LogFileOptions) (*LogFileConnection, error) {
	if options.Console == nil {
		return nil, errors.New("console must not be nil")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// 监听目录，日志轮转时文件会被重新创建
	if err = watcher.Add(filepath.Dir(options.LogFile)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c := &LogFileConnection{
		path:      options.LogFile,
		watcher:   watcher,
		listeners: newListeners(),
		output:    options.Console,
		closed:    make(chan struct{}),
	}
	if err = c.open(true); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.console = &console{position: options.InjectPosition, write: c.writeLine}
	ctx, c.cancel = context.WithCancel(ctx)
	gosync.GoNamed(ctx, "watch log file", c.watch, func(*gosync.PanicError) {
		c.listeners.close()
	})
	if err = c.console.setup(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// open 打开日志文件，seekEnd为true时跳过已有的内容
func (c *LogFileConnection) open(seekEnd bool) error {
	file, err := os.Open(c.path)
	if err != nil {
		return err
	}
	if seekEnd {
		if _, err = file.Seek(0, io.SeekEnd); err != nil {
			_ = file.Close()
			return err
		}
	}
	if c.file != nil {
		_ = c.file.Close()
	}
	c.file = file
	c.reader = bufio.NewReader(file)
	c.partial = ""
	return nil
}

func (c *LogFileConnection) watch(ctx context.Context) {
	defer c.listeners.close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.path) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				if err := c.open(false); err != nil {
					logrus.Warnf("[Connection] reopen log file fail, err = %v", err)
					continue
				}
				c.readLines()
			case event.Has(fsnotify.Write):
				c.readLines()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logrus.Warnf("[Connection] watcher error, err = %v", err)
		}
	}
}

// readLines 读取新追加的完整行，最后不完整的一行留到下次
func (c *LogFileConnection) readLines() {
	if c.reader == nil {
		return
	}
	for {
		text, err := c.reader.ReadString('\n')
		if err != nil {
			c.partial += text
			return
		}
		line := c.partial + text
		c.partial = ""
		if event, ok := ParseLogLine(strings.TrimRight(line, "\r\n")); ok {
			c.listeners.broadcast(event)
		}
	}
}

func (c *LogFileConnection) writeLine(line string) error {
	select {
	case <-c.closed:
		return e.ErrConnectionClosed
	default:
	}
	_, err := io.WriteString(c.output, line+"\n")
	return writeFailed(err)
}

func (c *LogFileConnection) Inject(ctx context.Context, commands []Command) error {
	return c.console.inject(ctx, commands)
}

func (c *LogFileConnection) AddListener() (<-chan LogEvent, func()) {
	return c.listeners.add()
}

func (c *LogFileConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.cancel != nil {
			c.cancel()
		}
		_ = c.watcher.Close()
		_ = c.output.Close()
		if c.file != nil {
			_ = c.file.Close()
		}
		c.listeners.close()
	})
	return nil
}
