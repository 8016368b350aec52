package mc_debugger

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

// 命令方块输出的格式
var (
	addedTagPattern = regexp.MustCompile(`^Added tag '([^']+)' to (.+)$`)
	scorePattern    = regexp.MustCompile(`^(.+) has (-?[0-9]+) \[(.+)\]$`)
)

// Score scoreboard players get的输出
type Score struct {
	Holder    string
	Value     int
	Objective string
}

// ParseAddedTag 解析 Added tag '<tag>' to <entity>
func ParseAddedTag(output string) (string, bool) {
	match := addedTagPattern.FindStringSubmatch(output)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseScore 解析 <holder> has <value> [<objective>]，分数不存在时返回false
func ParseScore(output string) (Score, bool) {
	match := scorePattern.FindStringSubmatch(output)
	if match == nil {
		return Score{}, false
	}
	value, err := strconv.Atoi(match[2])
	if err != nil {
		return Score{}, false
	}
	return Score{Holder: match[1], Value: value, Objective: match[3]}, true
}

// ParseFrameName 解析调用帧实体的名称 <namespace>:<path>:<line>:<column>
func ParseFrameName(name string) (argument.ResourceLocation, int, int, bool) {
	rest, columnText, ok := cutLast(name, ":")
	if !ok {
		return argument.ResourceLocation{}, 0, 0, false
	}
	rest, lineText, ok := cutLast(rest, ":")
	if !ok {
		return argument.ResourceLocation{}, 0, 0, false
	}
	line, err := strconv.Atoi(lineText)
	if err != nil {
		return argument.ResourceLocation{}, 0, 0, false
	}
	column, err := strconv.Atoi(columnText)
	if err != nil {
		return argument.ResourceLocation{}, 0, 0, false
	}
	fn, err := argument.ParseResourceLocation(rest)
	if err != nil {
		return argument.ResourceLocation{}, 0, 0, false
	}
	return fn, line, column, true
}

func cutLast(s string, sep string) (string, string, bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}
