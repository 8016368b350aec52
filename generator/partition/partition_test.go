package partition

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fansqz/mcfunction-debugger/parser"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

func parseLines(t *testing.T, content string) []parser.SourceLine {
	g, err := command.DefaultGrammar()
	require.Nil(t, err)
	fn := parser.ParseFunction(command.NewParser(g), argument.ResourceLocation{Namespace: "test", Path: "f"}, "", content)
	return fn.Lines
}

func pos(line int, inLine PositionInLine) Position {
	return Position{Line: line, InLine: inLine}
}

// bounds 只比较片段的边界和结束方式
type bounds struct {
	Start, End Position
	Lines      []int
	Terminator string
}

func summarize(partitions []Partition) []bounds {
	var result []bounds
	for _, p := range partitions {
		b := bounds{Start: p.Start, End: p.End}
		for _, l := range p.Lines {
			b.Lines = append(b.Lines, l.Number)
		}
		switch term := p.Terminator.(type) {
		case StaticBreakpoint:
			b.Terminator = "static"
		case ConfigurableBreakpoint:
			b.Terminator = "breakpoint@" + term.InLine.String()
		case StepBreakpoint:
			b.Terminator = "step@" + term.InLine.String()
		case ContinueBreakpoint:
			b.Terminator = "continue@" + term.InLine.String()
		case Call:
			b.Terminator = "call:" + term.Call.Name.String()
		case FunctionReturn:
			b.Terminator = "return"
		}
		result = append(result, b)
	}
	return result
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "3_breakpoint", pos(3, Breakpoint).String())
	assert.Equal(t, "12_after_function", pos(12, AfterFunction).String())
	p, err := ParsePosition("12_after_function")
	assert.Nil(t, err)
	assert.Equal(t, pos(12, AfterFunction), p)
	_, err = ParsePosition("x_entry")
	assert.NotNil(t, err)
	_, err = ParsePosition("1_middle")
	assert.NotNil(t, err)

	assert.True(t, pos(1, Return).Less(pos(2, Entry)))
	assert.True(t, pos(2, Function).Less(pos(2, AfterFunction)))
	assert.Equal(t, 0, PositionComparator(pos(2, Function), pos(2, Function)))
}

func TestSplitBreakpoint(t *testing.T) {
	lines := parseLines(t, "say 1\nsay 2\nsay 3\nsay 4")
	partitions := Split(lines, Breakpoints{pos(3, Breakpoint): {Type: Normal}})
	want := []bounds{
		{Start: pos(1, Entry), End: pos(3, Breakpoint), Lines: []int{1, 2}, Terminator: "breakpoint@breakpoint"},
		{Start: pos(3, Breakpoint), End: pos(4, Return), Lines: []int{3, 4}, Terminator: "return"},
	}
	if diff := cmp.Diff(want, summarize(partitions)); diff != "" {
		t.Errorf("partitions mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitFunctionCall(t *testing.T) {
	lines := parseLines(t, "say 1\nfunction test:a\nsay 3")
	partitions := Split(lines, Breakpoints{
		pos(2, Breakpoint):    {Type: Step, Condition: "if score current -ns-_depth matches ..1"},
		pos(2, AfterFunction): {Type: Continue},
	})
	want := []bounds{
		{Start: pos(1, Entry), End: pos(2, Breakpoint), Lines: []int{1}, Terminator: "step@breakpoint"},
		{Start: pos(2, Breakpoint), End: pos(2, Function), Terminator: "call:test:a"},
		{Start: pos(2, Function), End: pos(2, AfterFunction), Terminator: "continue@after_function"},
		{Start: pos(2, AfterFunction), End: pos(3, Return), Lines: []int{3}, Terminator: "return"},
	}
	if diff := cmp.Diff(want, summarize(partitions)); diff != "" {
		t.Errorf("partitions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "if score current -ns-_depth matches ..1", partitions[0].Terminator.(StepBreakpoint).Condition)
	assert.Equal(t, "function test:a", partitions[1].Terminator.(Call).Text)
}

func TestSplitCallOnLastLine(t *testing.T) {
	lines := parseLines(t, "say 1\nfunction test:a")
	partitions := Split(lines, Breakpoints{pos(2, AfterFunction): {Type: Step, Condition: "if score current -ns-_depth matches ..0"}})
	want := []bounds{
		{Start: pos(1, Entry), End: pos(2, Function), Lines: []int{1}, Terminator: "call:test:a"},
		{Start: pos(2, Function), End: pos(2, AfterFunction), Terminator: "step@after_function"},
		// 调用所在的行就是恢复的位置
		{Start: pos(2, AfterFunction), End: pos(2, Return), Terminator: "return"},
	}
	if diff := cmp.Diff(want, summarize(partitions)); diff != "" {
		t.Errorf("partitions mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitStaticBreakpoint(t *testing.T) {
	lines := parseLines(t, "say 1\n# breakpoint\nsay 3")
	partitions := Split(lines, Breakpoints{
		pos(2, Breakpoint): {Type: Normal},
		pos(3, Breakpoint): {Type: Invalid},
	})
	want := []bounds{
		{Start: pos(1, Entry), End: pos(2, Breakpoint), Lines: []int{1}, Terminator: "static"},
		{Start: pos(2, Breakpoint), End: pos(3, Return), Lines: []int{3}, Terminator: "return"},
	}
	if diff := cmp.Diff(want, summarize(partitions)); diff != "" {
		t.Errorf("partitions mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitEmptyFunction(t *testing.T) {
	partitions := Split(nil, Breakpoints{pos(1, Breakpoint): {Type: Normal}})
	require.Len(t, partitions, 1)
	assert.Equal(t, pos(1, Entry), partitions[0].Start)
	assert.Equal(t, pos(1, Return), partitions[0].End)
}

// TestSplitInvariants 随机断点配置下片段连续并且每一行恰好出现一次
func TestSplitInvariants(t *testing.T) {
	lines := parseLines(t, "say 1\nfunction test:a\n# breakpoint\nsay 4\nexecute as @a run function test:b\n\nsay 7\nfunction test:c")
	kinds := []BreakpointKind{{Type: Normal}, {Type: Invalid}, {Type: Continue}, {Type: Step, Condition: "if score current -ns-_depth matches ..2"}}
	r := rand.New(rand.NewSource(1))
	for round := 0; round < 200; round++ {
		breakpoints := Breakpoints{}
		for _, l := range lines {
			if r.Intn(3) == 0 {
				breakpoints[pos(l.Number, Breakpoint)] = kinds[r.Intn(len(kinds))]
			}
			if r.Intn(3) == 0 {
				breakpoints[pos(l.Number, AfterFunction)] = kinds[r.Intn(len(kinds))]
			}
		}
		partitions := Split(lines, breakpoints)
		require.NotEmpty(t, partitions)
		assert.Equal(t, pos(1, Entry), partitions[0].Start)
		last := partitions[len(partitions)-1]
		assert.Equal(t, Return, last.End.InLine)
		assert.IsType(t, FunctionReturn{}, last.Terminator)

		seen := map[int]int{}
		for i, p := range partitions {
			assert.True(t, p.Start.Less(p.End) || p.Start == p.End, "round %d partition %d", round, i)
			if i+1 < len(partitions) {
				assert.Equal(t, p.End, partitions[i+1].Start, "round %d partition %d", round, i)
				assert.NotEqual(t, FunctionReturn{}, p.Terminator)
			}
			for _, l := range p.Lines {
				seen[l.Number]++
			}
			switch term := p.Terminator.(type) {
			case Call:
				seen[term.Line]++
			case StaticBreakpoint:
				seen[p.End.Line]++
			}
		}
		for _, l := range lines {
			assert.Equal(t, 1, seen[l.Number], "round %d line %d", round, l.Number)
		}
	}
}
