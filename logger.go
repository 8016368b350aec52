package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var logFile *os.File

// SetupLogger 日志写入文件，标准输出留给调试协议使用
func SetupLogger(path string, level string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var err error
	logFile, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logrus.SetOutput(logFile)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("[Logger] unknown level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	return nil
}

func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
	}
}
