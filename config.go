package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fansqz/mcfunction-debugger/debugger/connection"
	"github.com/fansqz/mcfunction-debugger/generator"
	"github.com/fansqz/mcfunction-debugger/parser/command"
)

// DefaultConfigFile 当前目录下的默认配置文件
const DefaultConfigFile = "mcfd.toml"

// Config 配置文件，命令行参数和launch参数会覆盖其中的值
type Config struct {
	Log       LogConfig       `toml:"log"`
	Generator GeneratorConfig `toml:"generator"`
	Server    ServerConfig    `toml:"server"`
	Runtime   RuntimeConfig   `toml:"runtime"`
}

// LogConfig 日志配置
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// GeneratorConfig 生成器配置，Grammar为空时使用内置的命令语法
type GeneratorConfig struct {
	generator.Config
	Grammar string `toml:"grammar"`
}

// ServerConfig 调试适配器监听的端口，0表示使用标准输入输出
type ServerConfig struct {
	Port int `toml:"port"`
}

// RuntimeConfig 连接Minecraft服务器的默认配置
type RuntimeConfig struct {
	Command        []string `toml:"command"`
	Dir            string   `toml:"dir"`
	LogFile        string   `toml:"log_file"`
	Console        string   `toml:"console"`
	InjectPosition [3]int   `toml:"inject_position"`
	StartTimeout   Duration `toml:"start_timeout"`
}

// Duration 可以从"5m"这样的字符串解析的时长
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			File:  filepath.Join(os.TempDir(), "mcfunction-debugger.log"),
			Level: "info",
		},
		Generator: GeneratorConfig{Config: generator.DefaultConfig()},
		Runtime: RuntimeConfig{
			InjectPosition: connection.DefaultInjectPosition,
			StartTimeout:   Duration{5 * time.Minute},
		},
	}
}

// LoadConfig 读取配置文件，path为空时尝试当前目录下的mcfd.toml，不存在则使用默认配置
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		path = DefaultConfigFile
	}
	path = os.ExpandEnv(path)
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Generator.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadGrammar 加载配置的命令语法
func (c *GeneratorConfig) LoadGrammar() (*command.Grammar, error) {
	if c.Grammar == "" {
		return command.DefaultGrammar()
	}
	return command.LoadGrammarFile(c.Grammar)
}
