// Package argument 实现命令树中参数节点使用的各种参数解析器。
//
// 每个解析器只消费输入的一个前缀，返回解析出的值和消费的字节数；
// 解析失败时返回 *ArgumentError，解析器本身不持有任何可变状态。
package argument

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrorKind 参数解析错误的类别
type ErrorKind int

const (
	// KindEmpty 需要一个值但是没有读取到任何内容
	KindEmpty ErrorKind = iota
	// KindInvalid 读取到了内容但是格式不合法
	KindInvalid
	// KindExpected 缺少某个必须的字符
	KindExpected
	// KindUnclosed 括号或引号没有闭合
	KindUnclosed
	// KindOutOfRange 数值超出范围
	KindOutOfRange
)

// ArgumentError 参数解析错误，Offset是相对于参数起始位置的偏移
type ArgumentError struct {
	Kind    ErrorKind
	Message string
	Offset  int
}

func (a *ArgumentError) Error() string {
	return a.Message
}

func newError(kind ErrorKind, offset int, format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: offset}
}

// shift 把错误位置向后移动，用于嵌套解析
func (a *ArgumentError) shift(offset int) *ArgumentError {
	return &ArgumentError{Kind: a.Kind, Message: a.Message, Offset: a.Offset + offset}
}

// Parser 参数解析器
type Parser interface {
	// Parse 解析input的前缀，返回值和消费的长度
	Parse(input string) (interface{}, int, *ArgumentError)
}

// ParserFunc 函数形式的解析器
type ParserFunc func(input string) (interface{}, int, *ArgumentError)

func (f ParserFunc) Parse(input string) (interface{}, int, *ArgumentError) {
	return f(input)
}

// Properties 命令树中参数节点的properties字段
type Properties map[string]json.RawMessage

func (p Properties) str(key string) string {
	raw, ok := p[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (p Properties) float(key string) (float64, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

var warnedParsers sync.Map

// New 根据命令树中的parser id创建解析器，未知的id返回Unknown解析器，known为false
func New(id string, properties Properties) (parser Parser, known bool) {
	switch id {
	case "brigadier:bool":
		return ParserFunc(parseBool), true
	case "brigadier:double":
		return newDoubleParser(properties), true
	case "brigadier:float":
		return newFloatParser(properties), true
	case "brigadier:integer":
		return newIntegerParser(properties), true
	case "brigadier:long":
		return newLongParser(properties), true
	case "brigadier:string":
		return StringParser{Type: StringType(properties.str("type"))}, true
	case "minecraft:angle":
		return ParserFunc(parseAngle), true
	case "minecraft:block_pos":
		return CoordinatesParser{Count: 3, Integer: true}, true
	case "minecraft:block_predicate":
		return BlockParser{AllowTag: true}, true
	case "minecraft:block_state":
		return BlockParser{}, true
	case "minecraft:color", "minecraft:team", "minecraft:scoreboard_slot", "minecraft:item_slot",
		"minecraft:item_slots", "minecraft:heightmap", "minecraft:template_mirror",
		"minecraft:template_rotation", "minecraft:gamemode":
		return ParserFunc(parseWord), true
	case "minecraft:column_pos":
		return CoordinatesParser{Count: 2, Integer: true}, true
	case "minecraft:component", "minecraft:style":
		return ParserFunc(parseComponent), true
	case "minecraft:dimension", "minecraft:entity_summon", "minecraft:item_enchantment",
		"minecraft:mob_effect", "minecraft:resource", "minecraft:resource_key",
		"minecraft:resource_location", "minecraft:loot_table", "minecraft:loot_predicate",
		"minecraft:loot_modifier":
		return ParserFunc(parseResourceLocationValue), true
	case "minecraft:resource_or_tag", "minecraft:resource_or_tag_key":
		return ParserFunc(parseResourceOrTag), true
	case "minecraft:entity":
		return EntityParser{
			Single:      properties.str("amount") == "single",
			PlayersOnly: properties.str("type") == "players",
		}, true
	case "minecraft:game_profile":
		return EntityParser{PlayersOnly: true}, true
	case "minecraft:entity_anchor":
		return ParserFunc(parseEntityAnchor), true
	case "minecraft:float_range":
		return RangeParser{Decimals: true}, true
	case "minecraft:int_range":
		return RangeParser{}, true
	case "minecraft:function":
		return ParserFunc(parseFunction), true
	case "minecraft:item_predicate":
		return ItemParser{AllowTag: true}, true
	case "minecraft:item_stack":
		return ItemParser{}, true
	case "minecraft:message":
		return ParserFunc(parseGreedy), true
	case "minecraft:nbt_compound_tag":
		return ParserFunc(parseCompoundValue), true
	case "minecraft:nbt_tag":
		return ParserFunc(parseNbtTagValue), true
	case "minecraft:nbt_path":
		return ParserFunc(parseNbtPath), true
	case "minecraft:objective":
		return ParserFunc(parseObjective), true
	case "minecraft:objective_criteria":
		return ParserFunc(parseUntilSpace), true
	case "minecraft:operation":
		return ParserFunc(parseOperation), true
	case "minecraft:particle":
		return ParserFunc(parseParticle), true
	case "minecraft:rotation":
		return CoordinatesParser{Count: 2, Rotation: true}, true
	case "minecraft:score_holder":
		return ScoreHolderParser{Single: properties.str("amount") == "single"}, true
	case "minecraft:swizzle":
		return ParserFunc(parseSwizzle), true
	case "minecraft:time":
		return newTimeParser(properties), true
	case "minecraft:uuid":
		return ParserFunc(parseUUID), true
	case "minecraft:vec2":
		return CoordinatesParser{Count: 2}, true
	case "minecraft:vec3":
		return CoordinatesParser{Count: 3}, true
	}
	if _, loaded := warnedParsers.LoadOrStore(id, true); !loaded {
		logrus.Warnf("[argument] unknown parser %s, arguments will be read up to the next space", id)
	}
	return Unknown{ID: id}, false
}

// Unknown 未知类型的参数，读取到下一个空格
type Unknown struct {
	ID string
}

func (u Unknown) Parse(input string) (interface{}, int, *ArgumentError) {
	return parseUntilSpace(input)
}

// RawValue 不需要进一步解释的参数值，保存原始文本
type RawValue string

func parseUntilSpace(input string) (interface{}, int, *ArgumentError) {
	n := indexOfSpace(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected value")
	}
	return RawValue(input[:n]), n, nil
}

func parseGreedy(input string) (interface{}, int, *ArgumentError) {
	return RawValue(input), len(input), nil
}

func indexOfSpace(input string) int {
	if i := strings.IndexByte(input, ' '); i >= 0 {
		return i
	}
	return len(input)
}

// IsAllowedInUnquotedString 与brigadier保持一致的未加引号字符串字符集
func IsAllowedInUnquotedString(c byte) bool {
	return c >= '0' && c <= '9' ||
		c >= 'A' && c <= 'Z' ||
		c >= 'a' && c <= 'z' ||
		c == '_' || c == '-' || c == '.' || c == '+'
}

func readUnquoted(input string) int {
	i := 0
	for i < len(input) && IsAllowedInUnquotedString(input[i]) {
		i++
	}
	return i
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

// readQuoted 读取一个带引号的字符串，返回反转义后的内容和消费长度
func readQuoted(input string) (string, int, *ArgumentError) {
	if input == "" || !isQuote(input[0]) {
		return "", 0, newError(KindExpected, 0, "Expected quote to start a string")
	}
	quote := input[0]
	var sb strings.Builder
	escaped := false
	for i := 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			if c != quote && c != '\\' {
				return "", 0, newError(KindInvalid, i, "Invalid escape sequence '%c' in quoted string", c)
			}
			sb.WriteByte(c)
			escaped = false
		} else if c == '\\' {
			escaped = true
		} else if c == quote {
			return sb.String(), i + 1, nil
		} else {
			sb.WriteByte(c)
		}
	}
	return "", 0, newError(KindUnclosed, len(input), "Unclosed quoted string")
}

// readString 读取带引号或者不带引号的字符串
func readString(input string) (string, int, *ArgumentError) {
	if input != "" && isQuote(input[0]) {
		return readQuoted(input)
	}
	n := readUnquoted(input)
	return input[:n], n, nil
}

func skipWhitespace(input string, i int) int {
	for i < len(input) && input[i] == ' ' {
		i++
	}
	return i
}

// scanBalanced 从input[0]的左括号开始扫描到匹配的右括号，引号内的括号会被忽略
func scanBalanced(input string) (int, *ArgumentError) {
	depth := 0
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case isQuote(c):
			_, n, err := readQuoted(input[i:])
			if err != nil {
				return 0, err.shift(i)
			}
			i += n - 1
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, newError(KindUnclosed, len(input), "Unclosed '%c'", input[0])
}
