// Package partition 根据断点和函数调用把函数切分成可以暂停和恢复的片段。
package partition

import (
	"fmt"
	"strconv"
	"strings"
)

// PositionInLine 一行中的位置，按执行顺序排列
type PositionInLine int

const (
	// Entry 函数入口，只出现在第一行
	Entry PositionInLine = iota
	// Breakpoint 执行这一行之前
	Breakpoint
	// Function 这一行的函数调用返回之后
	Function
	// AfterFunction 函数调用返回之后的断点
	AfterFunction
	// Return 函数返回
	Return
)

var positionInLineNames = []string{"entry", "breakpoint", "function", "after_function", "return"}

func (p PositionInLine) String() string {
	if p < Entry || p > Return {
		return "unknown"
	}
	return positionInLineNames[p]
}

// ParsePositionInLine 解析位置名称
func ParsePositionInLine(s string) (PositionInLine, error) {
	for i, name := range positionInLineNames {
		if name == s {
			return PositionInLine(i), nil
		}
	}
	return 0, fmt.Errorf("unknown position in line %q", s)
}

// Position 行号和行内位置，既是片段的边界也是生成的函数名
type Position struct {
	Line   int
	InLine PositionInLine
}

// String {line}_{position_in_line}
func (p Position) String() string {
	return strconv.Itoa(p.Line) + "_" + p.InLine.String()
}

// ParsePosition 解析{line}_{position_in_line}
func ParsePosition(s string) (Position, error) {
	line, inLine, found := strings.Cut(s, "_")
	if !found {
		return Position{}, fmt.Errorf("invalid position %q", s)
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 0 {
		return Position{}, fmt.Errorf("invalid position %q", s)
	}
	p, err := ParsePositionInLine(inLine)
	if err != nil {
		return Position{}, err
	}
	return Position{Line: n, InLine: p}, nil
}

// Compare 先比较行号再比较行内位置
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.InLine < other.InLine:
		return -1
	case p.InLine > other.InLine:
		return 1
	}
	return 0
}

// Less 用于排序
func (p Position) Less(other Position) bool {
	return p.Compare(other) < 0
}

// PositionComparator gods使用的比较器
func PositionComparator(a, b interface{}) int {
	return a.(Position).Compare(b.(Position))
}
