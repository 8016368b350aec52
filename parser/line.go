// Package parser 把mcfunction源文件的每一行分类，供生成器插入断点和函数调用的处理。
package parser

import (
	"strings"

	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

// BreakpointComment 静态断点的注释
const BreakpointComment = "# breakpoint"

// Line 分类之后的一行，取值为Empty、Comment、Breakpoint、FunctionCall、Schedule或OtherCommand
type Line interface {
	line()
}

// Empty 空行
type Empty struct{}

// Comment 注释
type Comment struct{}

// Breakpoint 静态断点
type Breakpoint struct{}

// FunctionCall 函数调用，ColumnIndex是function字面量的偏移
type FunctionCall struct {
	Name        argument.ResourceLocation
	Anchor      *argument.EntityAnchor
	ColumnIndex int
	Selectors   []int
	Objectives  []string
}

// ScheduleKind schedule的操作类型
type ScheduleKind int

const (
	ScheduleReplace ScheduleKind = iota
	ScheduleAppend
	ScheduleClear
)

// ScheduleOperation schedule的操作，Clear时没有Time
type ScheduleOperation struct {
	Kind ScheduleKind
	Time *argument.Time
}

// Schedule schedule function或者schedule clear，TargetIndex和TargetLen是函数名的位置
type Schedule struct {
	Operation   ScheduleOperation
	Function    argument.ResourceLocation
	TargetIndex int
	TargetLen   int
	Selectors   []int
	Objectives  []string
}

// OtherCommand 其他命令，解析失败时Err不为nil
type OtherCommand struct {
	Selectors  []int
	Objectives []string
	Err        *command.ParseError
}

func (Empty) line()        {}
func (Comment) line()      {}
func (Breakpoint) line()   {}
func (FunctionCall) line() {}
func (Schedule) line()     {}
func (OtherCommand) line() {}

// ParseLine 解析并分类一行，text应该已经去掉了首尾空白
func ParseLine(p *command.Parser, text string) Line {
	if text == "" {
		return Empty{}
	}
	if text == BreakpointComment {
		return Breakpoint{}
	}
	if strings.HasPrefix(text, "#") {
		return Comment{}
	}
	result := p.Parse(text)
	if result.Err != nil {
		// 语法文件中没有的命令无法检查，按普通命令处理；宏命令仍然报错
		root, _, _ := strings.Cut(text, " ")
		if _, ok := p.Grammar().Find(root); !ok && !strings.HasPrefix(root, "$") {
			return OtherCommand{}
		}
		return OtherCommand{Err: result.Err}
	}
	return Classify(result)
}

// Classify 遍历一次解析结果，收集选择器和记分板目标，并识别函数调用和schedule
func Classify(result command.ParsedCommand) Line {
	var (
		anchor     *argument.EntityAnchor
		selectors  []int
		objectives []string
		call       *FunctionCall
		schedule   *Schedule
	)
	commandStart := true
	// previous 上一个字面量，只有anchored后面的锚点会改变执行锚点
	previous := ""
	nodes := result.Nodes
	for i, node := range nodes {
		atStart := commandStart
		commandStart = false
		switch n := node.(type) {
		case command.Literal:
			previous = n.Text
			if n.Text == "run" {
				commandStart = true
			}
			if !atStart {
				continue
			}
			switch n.Text {
			case "function":
				// function <name>，带参数的宏调用不能插桩
				if i+2 == len(nodes) {
					if ref, ok := argumentValue(nodes[i+1]).(argument.FunctionRef); ok && !ref.Tag {
						call = &FunctionCall{Name: ref.Location, ColumnIndex: n.Offset}
					}
				}
			case "schedule":
				schedule = classifySchedule(nodes[i+1:])
			}
		case command.Argument:
			switch v := n.Value.(type) {
			case argument.EntityAnchor:
				if previous == "anchored" {
					a := v
					anchor = &a
				}
			case argument.Selector:
				selectors = append(selectors, n.Offset)
				objectives = append(objectives, v.Objectives()...)
			case argument.ScoreHolder:
				if v.Selector != nil {
					selectors = append(selectors, n.Offset)
					objectives = append(objectives, v.Selector.Objectives()...)
				}
			case argument.Objective:
				objectives = append(objectives, string(v))
			}
		}
	}
	switch {
	case call != nil:
		call.Anchor = anchor
		call.Selectors = selectors
		call.Objectives = objectives
		return *call
	case schedule != nil:
		schedule.Selectors = selectors
		schedule.Objectives = objectives
		return *schedule
	}
	return OtherCommand{Selectors: selectors, Objectives: objectives}
}

func argumentValue(node command.ParsedNode) interface{} {
	if a, ok := node.(command.Argument); ok {
		return a.Value
	}
	return nil
}

// classifySchedule nodes从schedule之后开始
func classifySchedule(nodes []command.ParsedNode) *Schedule {
	if len(nodes) < 2 {
		return nil
	}
	op, ok := nodes[0].(command.Literal)
	if !ok {
		return nil
	}
	target, ok := nodes[1].(command.Argument)
	if !ok {
		return nil
	}
	s := &Schedule{TargetIndex: target.Offset, TargetLen: target.Length}
	switch op.Text {
	case "function":
		ref, ok := target.Value.(argument.FunctionRef)
		if !ok || ref.Tag || len(nodes) < 3 {
			return nil
		}
		s.Function = ref.Location
		t, ok := argumentValue(nodes[2]).(argument.Time)
		if !ok {
			return nil
		}
		s.Operation = ScheduleOperation{Kind: ScheduleReplace, Time: &t}
		if len(nodes) > 3 {
			if mode, ok := nodes[3].(command.Literal); ok && mode.Text == "append" {
				s.Operation.Kind = ScheduleAppend
			}
		}
	case "clear":
		raw, ok := target.Value.(argument.RawValue)
		if !ok {
			return nil
		}
		l, err := argument.ParseResourceLocation(string(raw))
		if err != nil {
			return nil
		}
		s.Function = l
		s.Operation = ScheduleOperation{Kind: ScheduleClear}
	default:
		return nil
	}
	return s
}
