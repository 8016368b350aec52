package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fansqz/mcfunction-debugger/generator"
	"github.com/fansqz/mcfunction-debugger/generator/partition"
	"github.com/fansqz/mcfunction-debugger/parser"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

// 定义版本号
const Version = "0.3.0"

var (
	cfgFile  string
	logPath  string
	logLevel string
	cfg      *Config
)

var rootCmd = &cobra.Command{
	Use:   "mcfd",
	Short: "mcfunction debugger",
	Long: `mcfd 把数据包编译成可以暂停和单步执行的调试数据包，
并通过调试适配器协议（DAP）与编辑器通信。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if logPath != "" {
			cfg.Log.File = logPath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return SetupLogger(cfg.Log.File, cfg.Log.Level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		CloseLogger()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", Version)
	},
}

var dapCmd = &cobra.Command{
	Use:   "dap",
	Short: "Start the debug adapter",
	Long:  "Start the debug adapter. Without --port it speaks DAP over stdin/stdout.",
	RunE:  runDAP,
}

var (
	generateOutput      string
	generateBreakpoints []string
)

var generateCmd = &cobra.Command{
	Use:   "generate <datapack>",
	Short: "Compile a datapack into a debug datapack",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+DefaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "log file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level")

	dapCmd.Flags().Int("port", 0, "TCP port to listen on")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "output directory")
	generateCmd.Flags().StringArrayVarP(&generateBreakpoints, "breakpoint", "b", nil, "breakpoint as <namespace>:<path>:<line>")
	generateCmd.Flags().String("namespace", "", "namespace of the generated datapack")
	_ = generateCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(versionCmd, dapCmd, generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDAP(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	if !cmd.Flags().Changed("port") {
		port = cfg.Server.Port
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if port == 0 {
		logrus.Infof("[Server] serving on stdio")
		handleConnection(ctx, stdio{}, cfg)
		return nil
	}

	// 监听端口
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "started listening at: %s\n", listener.Addr().String())
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logrus.Errorf("[Server] accept fail, err = %v", err)
			continue
		}
		// 每个连接是一个独立的调试会话
		go handleConnection(ctx, conn, cfg)
	}
}

// stdio 标准输入输出组成的连接
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

var _ io.ReadWriteCloser = stdio{}

func runGenerate(cmd *cobra.Command, args []string) error {
	genCfg := cfg.Generator.Config
	if ns, _ := cmd.Flags().GetString("namespace"); ns != "" {
		genCfg.Namespace = ns
	}
	grammar, err := cfg.Generator.LoadGrammar()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	functions, err := parser.LoadDatapack(ctx, command.NewParser(grammar), args[0])
	if err != nil {
		return err
	}
	breakpoints, err := parseBreakpointFlags(generateBreakpoints)
	if err != nil {
		return err
	}
	out, err := generator.Generate(ctx, genCfg, functions, breakpoints)
	if err != nil {
		return err
	}
	if err = out.Write(generateOutput); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d files for %d functions into %s\n", len(out.Files), len(functions), generateOutput)
	return nil
}

// parseBreakpointFlags 解析<namespace>:<path>:<line>
func parseBreakpointFlags(flags []string) (map[argument.ResourceLocation]partition.Breakpoints, error) {
	result := map[argument.ResourceLocation]partition.Breakpoints{}
	for _, flag := range flags {
		i := strings.LastIndex(flag, ":")
		if i < 0 {
			return nil, fmt.Errorf("invalid breakpoint %q", flag)
		}
		line, err := strconv.Atoi(flag[i+1:])
		if err != nil || line < 1 {
			return nil, fmt.Errorf("invalid breakpoint %q", flag)
		}
		name, err := argument.ParseResourceLocation(flag[:i])
		if err != nil {
			return nil, fmt.Errorf("invalid breakpoint %q: %w", flag, err)
		}
		if result[name] == nil {
			result[name] = partition.Breakpoints{}
		}
		result[name][partition.Position{Line: line, InLine: partition.Breakpoint}] = partition.BreakpointKind{Type: partition.Normal}
	}
	return result, nil
}
