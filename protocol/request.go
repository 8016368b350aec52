package protocol

import (
	"encoding/json"
	"fmt"

	e "github.com/fansqz/mcfunction-debugger/error"
)

// LaunchArguments launch请求的参数，对应launch.json中的配置
type LaunchArguments struct {
	// Datapack 被调试的数据包目录
	Datapack string `json:"datapack"`
	// Function 入口函数，例如test:main
	Function string `json:"function"`
	// ServerDir 服务器目录
	ServerDir string `json:"serverDir"`
	// World 存档目录，默认是<serverDir>/world
	World string `json:"world,omitempty"`
	// ServerCommand 启动服务器的命令，为空时连接已经在运行的服务器
	ServerCommand []string `json:"serverCommand,omitempty"`
	// LogFile 已经在运行的服务器的日志文件
	LogFile string `json:"logFile,omitempty"`
	// Console 已经在运行的服务器的控制台输入，一般是命名管道
	Console string `json:"console,omitempty"`
	// Namespace 覆盖配置文件中的命名空间
	Namespace string `json:"namespace,omitempty"`
	NoDebug   bool   `json:"noDebug,omitempty"`
}

// ParseLaunchArguments 解析并检查launch参数
func ParseLaunchArguments(raw json.RawMessage) (*LaunchArguments, error) {
	args := &LaunchArguments{}
	if err := json.Unmarshal(raw, args); err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidLaunchArguments, err)
	}
	switch {
	case args.Datapack == "":
		return nil, fmt.Errorf("%w: datapack is required", e.ErrInvalidLaunchArguments)
	case args.Function == "":
		return nil, fmt.Errorf("%w: function is required", e.ErrInvalidLaunchArguments)
	case args.ServerDir == "" && args.World == "":
		return nil, fmt.Errorf("%w: serverDir or world is required", e.ErrInvalidLaunchArguments)
	case len(args.ServerCommand) == 0 && (args.LogFile == "" || args.Console == ""):
		return nil, fmt.Errorf("%w: serverCommand or logFile and console are required", e.ErrInvalidLaunchArguments)
	}
	return args, nil
}
