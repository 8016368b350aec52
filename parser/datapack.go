package parser

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
	"github.com/fansqz/mcfunction-debugger/utils"
)

// FunctionExtension 函数文件的扩展名
const FunctionExtension = ".mcfunction"

// SourceLine 源文件中的一行，Number从1开始，Text已经去掉首尾空白
type SourceLine struct {
	Number int
	Text   string
	Line   Line
}

// Function 一个函数文件
type Function struct {
	Name  argument.ResourceLocation
	Path  string
	Lines []SourceLine
}

// Calls 函数中直接调用的其他函数，按行号排序
func (f *Function) Calls() []FunctionCallSite {
	var calls []FunctionCallSite
	for _, l := range f.Lines {
		if call, ok := l.Line.(FunctionCall); ok {
			calls = append(calls, FunctionCallSite{Line: l.Number, Call: call})
		}
	}
	return calls
}

// FunctionCallSite 函数调用所在的行
type FunctionCallSite struct {
	Line int
	Call FunctionCall
}

// ParseFunction 解析一个函数的全部内容
func ParseFunction(p *command.Parser, name argument.ResourceLocation, path string, content string) *Function {
	fn := &Function{Name: name, Path: path}
	content = strings.TrimSuffix(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if content == "" {
		return fn
	}
	for i, text := range strings.Split(content, "\n") {
		text = strings.TrimSpace(text)
		fn.Lines = append(fn.Lines, SourceLine{Number: i + 1, Text: text, Line: ParseLine(p, text)})
	}
	return fn
}

// ReadFunction 从文件中读取并解析一个函数
func ReadFunction(p *command.Parser, name argument.ResourceLocation, path string) (*Function, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseFunction(p, name, path, sb.String()), nil
}

// FunctionName 根据data/<ns>/function(s)/下的相对路径计算函数名
func FunctionName(dataDir string, path string) (argument.ResourceLocation, bool) {
	rel, err := filepath.Rel(dataDir, path)
	if err != nil {
		return argument.ResourceLocation{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 3 || (parts[1] != "functions" && parts[1] != "function") {
		return argument.ResourceLocation{}, false
	}
	fnPath := strings.TrimSuffix(strings.Join(parts[2:], "/"), FunctionExtension)
	return argument.ResourceLocation{Namespace: parts[0], Path: fnPath}, true
}

// LoadDatapack 读取数据包中的全部函数，并发解析
func LoadDatapack(ctx context.Context, p *command.Parser, dir string) (map[argument.ResourceLocation]*Function, error) {
	if _, err := os.Stat(filepath.Join(dir, "pack.mcmeta")); err != nil {
		return nil, fmt.Errorf("%w: %s has no pack.mcmeta", e.ErrInvalidDatapack, dir)
	}
	dataDir := filepath.Join(dir, "data")
	paths, err := utils.FindFilesByExtension(dataDir, FunctionExtension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrInvalidDatapack, err)
	}
	sort.Strings(paths)

	results := make([]*Function, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, path := range paths {
		name, ok := FunctionName(dataDir, path)
		if !ok {
			logrus.Debugf("[parser] skip %s, not a function file", path)
			continue
		}
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn, err := ReadFunction(p, name, path)
			if err != nil {
				return err
			}
			results[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	functions := make(map[argument.ResourceLocation]*Function, len(paths))
	for _, fn := range results {
		if fn == nil {
			continue
		}
		if _, exists := functions[fn.Name]; exists {
			logrus.Warnf("[parser] function %s is defined more than once, using %s", fn.Name, fn.Path)
		}
		functions[fn.Name] = fn
	}
	logrus.Infof("[parser] loaded %d functions from %s", len(functions), dir)
	return functions, nil
}

// SortedNames 返回排序后的函数名
func SortedNames(functions map[argument.ResourceLocation]*Function) []argument.ResourceLocation {
	names := make([]argument.ResourceLocation, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i].Less(names[j])
	})
	return names
}
