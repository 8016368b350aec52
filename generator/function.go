package generator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fansqz/mcfunction-debugger/generator/partition"
	"github.com/fansqz/mcfunction-debugger/parser"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

const (
	validateLine    = "execute if score -fn_score_holder- -ns-_valid matches 2 run "
	validatedLine   = "scoreboard players set -fn_score_holder- -ns-_valid 1"
	validGuard      = "execute if score -fn_score_holder- -ns-_valid matches 1 "
	invalidTellLine = "execute unless score -fn_score_holder- -ns-_valid matches 1 run tellraw @a [{\"text\":\"[-ns-] \",\"color\":\"red\"},{\"text\":\"Function -orig_ns-:-orig/fn- could not be loaded, see the server log for the invalid command\"}]"
	invalidExitLine = "execute unless score -fn_score_holder- -ns-_valid matches 1 run function -ns-:on_exit"
	returnSelfLine  = "execute if entity @e[type=area_effect_cloud,tag=-ns-_return_target,tag=-call_site_tag-] run function -ns-:-orig_ns-/-orig/fn-/-line_number-_function"
	resumeResetLine = "scoreboard players set resume_position -ns-_global -1"
	resumeFindLine  = "execute if entity @e[type=area_effect_cloud,tag=-ns-_breakpoint,tag=-position_tag-] run scoreboard players set resume_position -ns-_global -index-"
	resumeKillLine  = "kill @e[type=area_effect_cloud,tag=-ns-_breakpoint]"
	resumeRunLine   = "execute if score resume_position -ns-_global matches -index- run function -ns-:-orig_ns-/-orig/fn-/-position-"
	anchorSetLine   = "scoreboard players set anchor -ns-_global -anchor_value-"
	anchorCopyLine  = "execute as @e[type=area_effect_cloud,tag=-ns-_function_call] if score @s -ns-_depth = current -ns-_depth run scoreboard players operation anchor -ns-_global = @s -ns-_anchor"
	directCallLine  = "function -ns-:-orig_ns-/-orig/fn-/-line_number-_function"
)

// functionPlaceholders 一个函数的所有生成单元共用的占位符
func (g *generator) functionPlaceholders(name argument.ResourceLocation) placeholders {
	return g.base.with(
		"-orig_ns-", name.Namespace,
		"-orig/fn-", name.Path,
		"-orig_fn_tag-", FunctionTag(g.cfg.Namespace, name),
		"-fn_score_holder-", g.holders[name],
	)
}

// functionUnits 一个函数的全部生成单元
func (g *generator) functionUnits(fn *parser.Function, breakpoints partition.Breakpoints) []unit {
	p := g.functionPlaceholders(fn.Name)
	partitions := partition.ForFunction(fn, breakpoints)

	units := []unit{
		{name: unitName(fn.Name, "start"), lines: guardValid(p, p.lines("function/start"))},
		{name: unitName(fn.Name, "scheduled"), lines: guardValid(p, p.lines("function/scheduled"))},
		{name: unitName(fn.Name, "validate"), lines: g.validate(fn, p)},
		{name: unitName(fn.Name, "return"), lines: g.returnUnit(fn, p)},
		{name: unitName(fn.Name, "return_self"), lines: g.returnSelf(fn, p)},
		{name: unitName(fn.Name, "resume"), lines: g.resume(fn, partitions, p)},
	}
	for _, part := range partitions {
		units = append(units, unit{
			name:  unitName(fn.Name, part.Start.String()),
			lines: g.partitionLines(fn, part, p),
		})
	}
	return units
}

// guardValid 函数没有通过validate时输出诊断并结束调试，其余命令都不执行
func guardValid(p placeholders, lines []string) []string {
	guard := p.expand(validGuard)
	guarded := []string{p.expand(invalidTellLine), p.expand(invalidExitLine)}
	for _, line := range lines {
		if rest, ok := strings.CutPrefix(line, "execute "); ok {
			guarded = append(guarded, guard+rest)
		} else {
			guarded = append(guarded, guard+"run "+line)
		}
	}
	return guarded
}

// validate 包含函数的每一条命令但永远不会执行，函数加载失败时valid保持为0
func (g *generator) validate(fn *parser.Function, p placeholders) []string {
	var lines []string
	prefix := p.expand(validateLine)
	for _, line := range fn.Lines {
		if isCommand(line.Line) {
			lines = append(lines, prefix+line.Text)
		}
	}
	return append(lines, p.expand(validatedLine))
}

// returnUnit 弹出调用帧，如果调用帧暂停过则调用者已经不在执行，需要分派到调用者的return_self
func (g *generator) returnUnit(fn *parser.Function, p placeholders) []string {
	lines := p.lines("function/return")
	for _, caller := range g.callers[fn.Name] {
		lines = append(lines, p.with(
			"-call_ns-", caller.Namespace,
			"-call/fn-", caller.Path,
			"-call_fn_tag-", FunctionTag(g.cfg.Namespace, caller),
		).lines("function/return_case")...)
	}
	return lines
}

// returnSelf 根据调用帧上的调用位置标签，从调用之后的位置继续执行
func (g *generator) returnSelf(fn *parser.Function, p placeholders) []string {
	var lines []string
	seen := map[int]bool{}
	for _, site := range fn.Calls() {
		if seen[site.Line] {
			continue
		}
		seen[site.Line] = true
		lines = append(lines, p.with(
			"-call_site_tag-", callSiteTag(g.cfg.Namespace, fn.Name, site.Line),
			"-line_number-", strconv.Itoa(site.Line),
		).expand(returnSelfLine))
	}
	return lines
}

// ResumeTargets 可以从暂停中恢复的位置，也就是所有断点片段的结束位置
func ResumeTargets(partitions []partition.Partition) []partition.Position {
	var targets []partition.Position
	for _, part := range partitions {
		switch part.Terminator.(type) {
		case partition.StaticBreakpoint, partition.ConfigurableBreakpoint,
			partition.StepBreakpoint, partition.ContinueBreakpoint:
			targets = append(targets, part.End)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Less(targets[j])
	})
	return targets
}

// resume 找到断点标记对应的位置，删除标记后从这个位置继续执行
func (g *generator) resume(fn *parser.Function, partitions []partition.Partition, p placeholders) []string {
	targets := ResumeTargets(partitions)
	lines := []string{p.expand(resumeResetLine)}
	for i, target := range targets {
		lines = append(lines, p.with(
			"-position_tag-", PositionTag(g.cfg.Namespace, fn.Name, target),
			"-index-", strconv.Itoa(i),
		).expand(resumeFindLine))
	}
	lines = append(lines, p.expand(resumeKillLine))
	for i, target := range targets {
		lines = append(lines, p.with(
			"-index-", strconv.Itoa(i),
			"-position-", target.String(),
		).expand(resumeRunLine))
	}
	return lines
}

// column 位置对应的列，从1开始
func column(fn *parser.Function, position partition.Position) int {
	if position.InLine != partition.Function && position.InLine != partition.AfterFunction {
		return 1
	}
	if position.Line < 1 || position.Line > len(fn.Lines) {
		return 1
	}
	if call, ok := fn.Lines[position.Line-1].Line.(parser.FunctionCall); ok {
		return call.ColumnIndex + 1
	}
	return 1
}

// partitionLines 一个片段生成的函数
func (g *generator) partitionLines(fn *parser.Function, part partition.Partition, p placeholders) []string {
	var lines []string
	if part.Start.InLine == partition.Function {
		lines = append(lines, p.with(
			"-call_site_tag-", callSiteTag(g.cfg.Namespace, fn.Name, part.Start.Line),
		).lines("function/after_call")...)
	}
	for _, line := range part.Lines {
		if isCommand(line.Line) {
			lines = append(lines, g.rewriteLine(line))
		}
	}

	end := p.with(
		"-position-", part.End.String(),
		"-position_tag-", PositionTag(g.cfg.Namespace, fn.Name, part.End),
		"-line_number-", strconv.Itoa(part.End.Line),
		"-column-", strconv.Itoa(column(fn, part.End)),
		"-next_position-", part.End.String(),
	)
	switch term := part.Terminator.(type) {
	case partition.StaticBreakpoint, partition.ConfigurableBreakpoint:
		lines = append(lines, end.lines("terminator/breakpoint")...)
	case partition.StepBreakpoint:
		condition := g.base.expand(term.Condition)
		for _, line := range end.lines("terminator/breakpoint") {
			lines = append(lines, "execute "+condition+" run "+line)
		}
		lines = append(lines, end.lines("terminator/step_continue")...)
	case partition.ContinueBreakpoint:
		lines = append(lines, end.lines("terminator/continue")...)
	case partition.Call:
		lines = append(lines, g.callLines(fn, term, end)...)
	case partition.FunctionReturn:
		lines = append(lines, end.lines("terminator/return")...)
	}
	return lines
}

// callLines 调用数据包中的函数时进入它的start，否则直接执行原命令
func (g *generator) callLines(fn *parser.Function, call partition.Call, p placeholders) []string {
	p = p.with("-line_number-", strconv.Itoa(call.Line))
	if _, ok := g.functions[call.Call.Name]; !ok {
		text := applyEdits(call.Text, g.hideDebuggerEntities(call.Text, call.Call.Selectors))
		return []string{text, p.expand(directCallLine)}
	}
	var anchor string
	if call.Call.Anchor != nil {
		value := "0"
		if *call.Call.Anchor == argument.AnchorEyes {
			value = "1"
		}
		anchor = p.with("-anchor_value-", value).expand(anchorSetLine)
	} else {
		anchor = p.expand(anchorCopyLine)
	}
	return p.with(
		"-call_site_tag-", callSiteTag(g.cfg.Namespace, fn.Name, call.Line),
		"-column-", strconv.Itoa(call.Call.ColumnIndex+1),
		"-anchor-", anchor,
		"-execute-", g.rewriteCallPrefix(call.Text, call.Call),
		"-call_ns-", call.Call.Name.Namespace,
		"-call/fn-", call.Call.Name.Path,
	).lines("terminator/call_function")
}
