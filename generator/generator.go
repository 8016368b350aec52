// Package generator 把数据包编译成可以调试的数据包。
//
// 每个函数按断点切分成片段，每个片段生成一个函数，片段之间通过记分板和实体标签衔接，
// 暂停时所有调用帧保存在area_effect_cloud实体上，恢复时从断点标记所在的位置继续执行。
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/generator/partition"
	"github.com/fansqz/mcfunction-debugger/parser"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
	"github.com/fansqz/mcfunction-debugger/utils"
)

// MaxScoreHolderLength 记分板持有者名称的最大长度
const MaxScoreHolderLength = 40

// MaxNamespaceLength 命名空间的最大长度，留出_fn_和十位数的函数编号
const MaxNamespaceLength = MaxScoreHolderLength - len("_fn_") - 10

// Config 生成器配置
type Config struct {
	// Namespace 生成的数据包使用的命名空间，同时也是所有实体标签和记分板目标的前缀
	Namespace string `toml:"namespace"`
	// PackFormat pack.mcmeta中的pack_format
	PackFormat int `toml:"pack_format"`
	// Description pack.mcmeta中的描述
	Description string `toml:"description"`
	// LogPosition 输出日志的命令方块的位置，所在区块会被强加载
	LogPosition [3]int `toml:"log_position"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Namespace:   "mcfd",
		PackFormat:  15,
		Description: "mcfunction-debugger",
		LogPosition: [3]int{0, -64, 0},
	}
}

// Validate 检查命名空间是否合法，命名空间的长度要保证<ns>_fn_<id>不超过记分板持有者的长度限制
func (c Config) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace must not be empty")
	}
	if len(c.Namespace) > MaxNamespaceLength {
		return fmt.Errorf("namespace %q is longer than %d characters", c.Namespace, MaxNamespaceLength)
	}
	for i := 0; i < len(c.Namespace); i++ {
		ch := c.Namespace[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9' || ch == '_' || ch == '-' || ch == '.') {
			return fmt.Errorf("invalid namespace %q", c.Namespace)
		}
	}
	return nil
}

// FunctionDir 数据包中函数目录的名称，1.21开始改为function
func (c Config) FunctionDir() string {
	if c.PackFormat >= 45 {
		return "function"
	}
	return "functions"
}

// Output 生成结果，Files的key是相对于数据包根目录的路径
type Output struct {
	Namespace  string
	Files      map[string]string
	Objectives []string
	functionDir string
}

// Paths 排序后的所有文件路径
func (o *Output) Paths() []string {
	paths := make([]string, 0, len(o.Files))
	for p := range o.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Function 按函数名查找生成的函数，例如test/main/start
func (o *Output) Function(unit string) (string, bool) {
	content, ok := o.Files[o.functionPath(unit)]
	return content, ok
}

func (o *Output) functionPath(unit string) string {
	return "data/" + o.Namespace + "/" + o.functionDir + "/" + unit + parser.FunctionExtension
}

// Write 清空dir并写入所有文件
func (o *Output) Write(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	for _, p := range o.Paths() {
		if err := utils.WriteFile(filepath.Join(dir, filepath.FromSlash(p)), []byte(o.Files[p])); err != nil {
			return err
		}
	}
	logrus.Infof("[Generator] wrote %d files to %s", len(o.Files), dir)
	return nil
}

type unit struct {
	name  string
	lines []string
}

type generator struct {
	cfg       Config
	functions map[argument.ResourceLocation]*parser.Function
	names     []argument.ResourceLocation
	ids       map[argument.ResourceLocation]int
	holders   map[argument.ResourceLocation]string
	// callers 反向调用图，调用者按名称排序
	callers map[argument.ResourceLocation][]argument.ResourceLocation
	base    placeholders
}

// Generate 根据断点生成调试用的数据包，不会访问文件系统
func Generate(ctx context.Context, cfg Config, functions map[argument.ResourceLocation]*parser.Function,
	breakpoints map[argument.ResourceLocation]partition.Breakpoints) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := newGenerator(cfg, functions)

	units := make([][]unit, len(g.names))
	group, ctx := errgroup.WithContext(ctx)
	for i, name := range g.names {
		i, name := i, name
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			units[i] = g.functionUnits(functions[name], breakpoints[name])
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, e.ErrCancelled
		}
		return nil, err
	}

	out := &Output{
		Namespace:   cfg.Namespace,
		Files:       map[string]string{},
		Objectives:  g.objectives(),
		functionDir: cfg.FunctionDir(),
	}
	for _, us := range units {
		for _, u := range us {
			out.Files[out.functionPath(u.name)] = strings.Join(u.lines, "\n") + "\n"
		}
	}
	for _, u := range g.globalUnits(out.Objectives) {
		out.Files[out.functionPath(u.name)] = strings.Join(u.lines, "\n") + "\n"
	}

	meta, err := packMeta(cfg)
	if err != nil {
		return nil, err
	}
	out.Files["pack.mcmeta"] = meta
	var manifest strings.Builder
	for _, name := range g.names {
		manifest.WriteString(name.String())
		manifest.WriteString("\n")
	}
	out.Files["functions.txt"] = manifest.String()
	return out, nil
}

func packMeta(cfg Config) (string, error) {
	type pack struct {
		PackFormat  int    `json:"pack_format"`
		Description string `json:"description"`
	}
	content, err := json.MarshalIndent(map[string]pack{
		"pack": {PackFormat: cfg.PackFormat, Description: cfg.Description},
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(content) + "\n", nil
}

func newGenerator(cfg Config, functions map[argument.ResourceLocation]*parser.Function) *generator {
	g := &generator{
		cfg:       cfg,
		functions: functions,
		names:     parser.SortedNames(functions),
		ids:       FunctionIDs(functions),
		holders:   map[argument.ResourceLocation]string{},
		callers:   map[argument.ResourceLocation][]argument.ResourceLocation{},
	}
	for _, name := range g.names {
		g.holders[name] = ScoreHolder(cfg.Namespace, name, g.ids[name])
	}
	for _, name := range g.names {
		seen := map[argument.ResourceLocation]bool{}
		for _, site := range functions[name].Calls() {
			callee := site.Call.Name
			if _, ok := functions[callee]; !ok || seen[callee] {
				continue
			}
			seen[callee] = true
			// names是有序的，追加之后调用者也是有序的
			g.callers[callee] = append(g.callers[callee], name)
		}
	}
	x, y, z := cfg.LogPosition[0], cfg.LogPosition[1], cfg.LogPosition[2]
	g.base = placeholders{
		"-ns-", cfg.Namespace,
		"-log_pos-", fmt.Sprintf("%d %d %d", x, y, z),
		"-log_xz-", fmt.Sprintf("%d %d", x, z),
	}
	return g
}

// FunctionIDs 函数的编号，按函数名排序，从1开始
func FunctionIDs(functions map[argument.ResourceLocation]*parser.Function) map[argument.ResourceLocation]int {
	ids := make(map[argument.ResourceLocation]int, len(functions))
	for i, name := range parser.SortedNames(functions) {
		ids[name] = i + 1
	}
	return ids
}

// ScoreHolder 函数对应的记分板持有者，超过长度限制时使用<ns>_fn_<id>
func ScoreHolder(namespace string, name argument.ResourceLocation, id int) string {
	holder := name.String()
	if len(holder) > MaxScoreHolderLength {
		return namespace + "_fn_" + strconv.Itoa(id)
	}
	return holder
}

// FunctionTag 调用帧和断点标记上标识函数的标签
func FunctionTag(namespace string, name argument.ResourceLocation) string {
	return namespace + "+" + name.Mangled()
}

// PositionTag 断点标记上标识暂停位置的标签，暂停时会输出到日志
func PositionTag(namespace string, name argument.ResourceLocation, position partition.Position) string {
	return FunctionTag(namespace, name) + "+" + position.String()
}

// ParsePositionTag 解析PositionTag，命名空间和函数路径中不会出现+
func ParsePositionTag(namespace string, tag string) (argument.ResourceLocation, partition.Position, bool) {
	rest, ok := strings.CutPrefix(tag, namespace+"+")
	if !ok {
		return argument.ResourceLocation{}, partition.Position{}, false
	}
	parts := strings.Split(rest, "+")
	if len(parts) < 3 {
		return argument.ResourceLocation{}, partition.Position{}, false
	}
	position, err := partition.ParsePosition(parts[len(parts)-1])
	if err != nil {
		return argument.ResourceLocation{}, partition.Position{}, false
	}
	name := argument.ResourceLocation{
		Namespace: parts[0],
		Path:      strings.Join(parts[1:len(parts)-1], "/"),
	}
	return name, position, true
}

func callSiteTag(namespace string, name argument.ResourceLocation, line int) string {
	return PositionTag(namespace, name, partition.Position{Line: line, InLine: partition.Function})
}

// unitName 函数在生成的命名空间下的路径，例如test/main/start
func unitName(name argument.ResourceLocation, suffix string) string {
	return name.Namespace + "/" + name.Path + "/" + suffix
}

// functionID 生成的函数的完整名称
func (g *generator) functionID(name argument.ResourceLocation, suffix string) string {
	return g.cfg.Namespace + ":" + unitName(name, suffix)
}

// UnitFunction 供调试器注入命令时使用，例如mcfd:test/main/resume
func UnitFunction(namespace string, name argument.ResourceLocation, suffix string) string {
	return namespace + ":" + unitName(name, suffix)
}

// objectives 数据包中引用的所有记分板目标，排序并去重
func (g *generator) objectives() []string {
	var all []string
	for _, name := range g.names {
		for _, line := range g.functions[name].Lines {
			switch l := line.Line.(type) {
			case parser.FunctionCall:
				all = append(all, l.Objectives...)
			case parser.Schedule:
				all = append(all, l.Objectives...)
			case parser.OtherCommand:
				all = append(all, l.Objectives...)
			}
		}
	}
	return utils.SortedStrings(all)
}
