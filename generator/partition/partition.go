package partition

import (
	"github.com/fansqz/mcfunction-debugger/parser"
)

// BreakpointType 断点的类型
type BreakpointType int

const (
	// Normal 用户设置的断点
	Normal BreakpointType = iota
	// Invalid 无法验证的断点，不会生成代码
	Invalid
	// Continue 恢复执行时在暂停位置插入的一次性断点
	Continue
	// Step 单步执行时插入的一次性断点，带有深度条件
	Step
)

func (t BreakpointType) String() string {
	switch t {
	case Normal:
		return "normal"
	case Invalid:
		return "invalid"
	case Continue:
		return "continue"
	case Step:
		return "step"
	}
	return "unknown"
}

// BreakpointKind 断点类型，Condition只对Step有效，例如if score current -ns-_depth matches ..1
type BreakpointKind struct {
	Type      BreakpointType
	Condition string
}

// Breakpoints 一个函数中的断点
type Breakpoints map[Position]BreakpointKind

// Terminator 片段的结束方式
type Terminator interface {
	terminator()
}

// StaticBreakpoint 源文件中的 # breakpoint
type StaticBreakpoint struct{}

// ConfigurableBreakpoint 用户设置的断点
type ConfigurableBreakpoint struct {
	InLine PositionInLine
}

// StepBreakpoint 单步执行的断点
type StepBreakpoint struct {
	Condition string
	InLine    PositionInLine
}

// ContinueBreakpoint 恢复执行的断点，不会暂停
type ContinueBreakpoint struct {
	InLine PositionInLine
}

// Call 函数调用，Text是这一行的原始命令
type Call struct {
	Line int
	Text string
	Call parser.FunctionCall
}

// FunctionReturn 函数返回
type FunctionReturn struct{}

func (StaticBreakpoint) terminator()       {}
func (ConfigurableBreakpoint) terminator() {}
func (StepBreakpoint) terminator()         {}
func (ContinueBreakpoint) terminator()     {}
func (Call) terminator()                   {}
func (FunctionReturn) terminator()         {}

// Partition 函数中[Start, End)之间的片段，Lines不包含触发Terminator的那一行
type Partition struct {
	Start      Position
	End        Position
	Lines      []parser.SourceLine
	Terminator Terminator
}

type partitioner struct {
	partitions []Partition
	start      Position
	pending    []parser.SourceLine
}

func (p *partitioner) close(end Position, terminator Terminator) {
	p.partitions = append(p.partitions, Partition{
		Start:      p.start,
		End:        end,
		Lines:      p.pending,
		Terminator: terminator,
	})
	p.start = end
	p.pending = nil
}

// suspendTerminator 断点类型对应的结束方式，Invalid返回nil
func suspendTerminator(kind BreakpointKind, inLine PositionInLine) Terminator {
	switch kind.Type {
	case Normal:
		return ConfigurableBreakpoint{InLine: inLine}
	case Continue:
		return ContinueBreakpoint{InLine: inLine}
	case Step:
		return StepBreakpoint{Condition: kind.Condition, InLine: inLine}
	}
	return nil
}

// Split 把函数切分为连续的片段，第一个片段从Entry开始，最后一个以FunctionReturn结束
func Split(lines []parser.SourceLine, breakpoints Breakpoints) []Partition {
	p := &partitioner{start: Position{Line: 1, InLine: Entry}}
	for _, line := range lines {
		atBreakpoint := Position{Line: line.Number, InLine: Breakpoint}
		// 静态断点总是生效，同一位置配置的断点合并到静态断点
		if _, ok := line.Line.(parser.Breakpoint); ok {
			p.close(atBreakpoint, StaticBreakpoint{})
			continue
		}
		if kind, ok := breakpoints[atBreakpoint]; ok {
			if terminator := suspendTerminator(kind, Breakpoint); terminator != nil {
				p.close(atBreakpoint, terminator)
			}
		}
		call, ok := line.Line.(parser.FunctionCall)
		if !ok {
			p.pending = append(p.pending, line)
			continue
		}
		p.close(Position{Line: line.Number, InLine: Function}, Call{Line: line.Number, Text: line.Text, Call: call})
		afterFunction := Position{Line: line.Number, InLine: AfterFunction}
		if kind, ok := breakpoints[afterFunction]; ok {
			if terminator := suspendTerminator(kind, AfterFunction); terminator != nil {
				p.close(afterFunction, terminator)
			}
		}
	}
	last := len(lines)
	if last < 1 {
		last = 1
	}
	p.close(Position{Line: last, InLine: Return}, FunctionReturn{})
	return p.partitions
}

// ForFunction 切分一个函数
func ForFunction(fn *parser.Function, breakpoints Breakpoints) []Partition {
	return Split(fn.Lines, breakpoints)
}
