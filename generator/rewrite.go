package generator

import (
	"sort"
	"strings"

	"github.com/fansqz/mcfunction-debugger/parser"
)

// edit 对一行文本的一次修改，在Offset处删除Remove个字符并插入Insert
type edit struct {
	Offset int
	Remove int
	Insert string
}

func applyEdits(text string, edits []edit) string {
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].Offset > edits[j].Offset
	})
	for _, ed := range edits {
		if ed.Offset < 0 || ed.Offset+ed.Remove > len(text) {
			continue
		}
		text = text[:ed.Offset] + ed.Insert + text[ed.Offset+ed.Remove:]
	}
	return text
}

// hideDebuggerEntities 让@e选择器跳过调试器自己的实体
func (g *generator) hideDebuggerEntities(text string, selectors []int) []edit {
	var edits []edit
	exclude := "tag=!" + g.cfg.Namespace
	for _, offset := range selectors {
		if offset < 0 || offset > len(text) || !strings.HasPrefix(text[offset:], "@e") {
			continue
		}
		at := offset + 2
		switch {
		case strings.HasPrefix(text[at:], "[]"):
			edits = append(edits, edit{Offset: at + 1, Insert: exclude})
		case strings.HasPrefix(text[at:], "["):
			edits = append(edits, edit{Offset: at + 1, Insert: exclude + ","})
		default:
			edits = append(edits, edit{Offset: at, Insert: "[" + exclude + "]"})
		}
	}
	return edits
}

// rewriteLine 改写普通命令，schedule的目标改为对应的scheduled函数
func (g *generator) rewriteLine(line parser.SourceLine) string {
	switch l := line.Line.(type) {
	case parser.OtherCommand:
		return applyEdits(line.Text, g.hideDebuggerEntities(line.Text, l.Selectors))
	case parser.Schedule:
		edits := g.hideDebuggerEntities(line.Text, l.Selectors)
		if _, ok := g.functions[l.Function]; ok {
			edits = append(edits, edit{
				Offset: l.TargetIndex,
				Remove: l.TargetLen,
				Insert: g.functionID(l.Function, "scheduled"),
			})
		}
		return applyEdits(line.Text, edits)
	case parser.FunctionCall:
		return applyEdits(line.Text, g.hideDebuggerEntities(line.Text, l.Selectors))
	}
	return line.Text
}

// rewriteCallPrefix 改写函数调用前面的execute部分
func (g *generator) rewriteCallPrefix(text string, call parser.FunctionCall) string {
	prefix := text[:call.ColumnIndex]
	var selectors []int
	for _, offset := range call.Selectors {
		if offset < call.ColumnIndex {
			selectors = append(selectors, offset)
		}
	}
	return applyEdits(prefix, g.hideDebuggerEntities(prefix, selectors))
}

// isCommand 是否是会被执行的命令
func isCommand(line parser.Line) bool {
	switch line.(type) {
	case parser.FunctionCall, parser.Schedule, parser.OtherCommand:
		return true
	}
	return false
}
