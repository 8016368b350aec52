package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/fansqz/mcfunction-debugger/parser"
	"github.com/fansqz/mcfunction-debugger/utils"
	"github.com/fansqz/mcfunction-debugger/utils/gosync"
)

// SourceChangeDelay 保存多个文件时只通知一次
const SourceChangeDelay = 200 * time.Millisecond

// sourceWatcher 监听数据包data目录下的函数文件
// 文件变化后通知调试器，下一次设置断点或恢复执行时重新解析
type sourceWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *utils.Debouncer
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newSourceWatcher(ctx context.Context, root string, onChange func()) (*sourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// fsnotify不支持递归监听，每个目录单独添加
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &sourceWatcher{
		watcher:   watcher,
		debouncer: utils.NewDebouncer(SourceChangeDelay, onChange),
		cancel:    cancel,
	}
	w.debouncer.Start(ctx)
	gosync.Go(ctx, w.watch)
	return w, nil
}

func (w *sourceWatcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// 新建的目录也需要监听
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err = w.watcher.Add(event.Name); err != nil {
						logrus.Warnf("[Watcher] watch %s fail, err = %v", event.Name, err)
					}
					w.debouncer.Trigger()
					continue
				}
			}
			if !strings.HasSuffix(event.Name, parser.FunctionExtension) {
				continue
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			logrus.Debugf("[Watcher] %s %s", event.Op, event.Name)
			w.debouncer.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.Warnf("[Watcher] watcher error, err = %v", err)
		}
	}
}

func (w *sourceWatcher) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		w.debouncer.Cancel()
		_ = w.watcher.Close()
	})
}
