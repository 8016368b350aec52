package argument

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SelectorType 选择器变量，p、a、r、s、e
type SelectorType byte

// Selector 实体选择器，例如@e[type=pig,limit=1]
type Selector struct {
	Type    SelectorType
	Options []SelectorOption
}

// SelectorOption 选择器中的一个选项
type SelectorOption struct {
	Key     string
	Negated bool
	Value   interface{}
	// Offset 选项key相对于@的偏移
	Offset int
}

// Option 返回第一个key匹配的选项
func (s Selector) Option(key string) (SelectorOption, bool) {
	for _, o := range s.Options {
		if o.Key == key {
			return o, true
		}
	}
	return SelectorOption{}, false
}

// IsSingle 选择器是否最多选中一个实体
func (s Selector) IsSingle() bool {
	switch s.Type {
	case 'p', 'r', 's':
		return true
	}
	if o, ok := s.Option("limit"); ok {
		if limit, ok := o.Value.(int32); ok && limit <= 1 {
			return true
		}
	}
	return false
}

// IsPlayersOnly 选择器是否只会选中玩家
func (s Selector) IsPlayersOnly() bool {
	switch s.Type {
	case 'p', 'a', 'r':
		return true
	}
	if o, ok := s.Option("type"); ok && !o.Negated {
		if r, ok := o.Value.(ResourceRef); ok && !r.Tag {
			return r.Location == ResourceLocation{Namespace: "minecraft", Path: "player"}
		}
	}
	return false
}

// Objectives scores选项中引用的记分板目标
func (s Selector) Objectives() []string {
	var objectives []string
	for _, o := range s.Options {
		if scores, ok := o.Value.(ScoresOption); ok {
			for _, score := range scores {
				objectives = append(objectives, score.Objective)
			}
		}
	}
	return objectives
}

// ScoresOption scores={a=1..,b=..5}
type ScoresOption []ScoreRange

// ScoreRange scores选项中的一项
type ScoreRange struct {
	Objective string
	Range     Range
}

// AdvancementsOption advancements={minecraft:story/root=true}
type AdvancementsOption map[string]interface{}

// EntityName 玩家名称
type EntityName string

type selectorValueParser func(input string) (interface{}, int, *ArgumentError)

type selectorOptionSpec struct {
	parse     selectorValueParser
	negatable bool
}

var selectorOptions map[string]selectorOptionSpec

func init() {
	doubleValue := func(input string) (interface{}, int, *ArgumentError) {
		return parseFloat(input, 64, "double", nil, nil)
	}
	floatRange := RangeParser{Decimals: true}.Parse
	intRange := RangeParser{}.Parse
	limit := IntegerParser{Min: 1, Max: 2147483647}.Parse
	selectorOptions = map[string]selectorOptionSpec{
		"advancements": {parse: parseAdvancements},
		"distance":     {parse: floatRange},
		"dx":           {parse: doubleValue},
		"dy":           {parse: doubleValue},
		"dz":           {parse: doubleValue},
		"gamemode":     {parse: parseOptionalWord, negatable: true},
		"level":        {parse: intRange},
		"limit":        {parse: limit},
		"name":         {parse: parseOptionString, negatable: true},
		"nbt":          {parse: parseCompoundValue, negatable: true},
		"predicate":    {parse: parseResourceLocationValue, negatable: true},
		"scores":       {parse: parseScores},
		"sort":         {parse: parseSort},
		"tag":          {parse: parseOptionalWord, negatable: true},
		"team":         {parse: parseOptionalWord, negatable: true},
		"type":         {parse: parseResourceOrTag, negatable: true},
		"x":            {parse: doubleValue},
		"x_rotation":   {parse: floatRange},
		"y":            {parse: doubleValue},
		"y_rotation":   {parse: floatRange},
		"z":            {parse: doubleValue},
	}
}

func parseOptionalWord(input string) (interface{}, int, *ArgumentError) {
	n := readUnquoted(input)
	return input[:n], n, nil
}

func parseOptionString(input string) (interface{}, int, *ArgumentError) {
	s, n, err := readString(input)
	if err != nil {
		return nil, 0, err
	}
	return s, n, nil
}

func parseSort(input string) (interface{}, int, *ArgumentError) {
	n := readUnquoted(input)
	switch input[:n] {
	case "nearest", "furthest", "random", "arbitrary":
		return input[:n], n, nil
	}
	return nil, 0, newError(KindInvalid, 0, "Invalid or unknown sort type '%s'", input[:n])
}

func parseScores(input string) (interface{}, int, *ArgumentError) {
	scores := ScoresOption{}
	n, err := parseBracedMap(input, func(key string, rest string) (int, *ArgumentError) {
		r, n, err := RangeParser{}.parseRange(rest)
		if err != nil {
			return 0, err
		}
		scores = append(scores, ScoreRange{Objective: key, Range: r})
		return n, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return scores, n, nil
}

func parseAdvancements(input string) (interface{}, int, *ArgumentError) {
	advancements := AdvancementsOption{}
	n, err := parseBracedMap(input, func(key string, rest string) (int, *ArgumentError) {
		if strings.HasPrefix(rest, "{") {
			criteria := map[string]bool{}
			n, err := parseBracedMap(rest, func(key string, rest string) (int, *ArgumentError) {
				v, n, err := parseBool(rest)
				if err != nil {
					return 0, err
				}
				criteria[key] = v.(bool)
				return n, nil
			})
			if err != nil {
				return 0, err
			}
			advancements[key] = criteria
			return n, nil
		}
		v, n, err := parseBool(rest)
		if err != nil {
			return 0, err
		}
		advancements[key] = v
		return n, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return advancements, n, nil
}

// parseBracedMap 解析{key=value,...}，value由parseValue解析
func parseBracedMap(input string, parseValue func(key string, rest string) (int, *ArgumentError)) (int, *ArgumentError) {
	if !strings.HasPrefix(input, "{") {
		return 0, newError(KindExpected, 0, "Expected '{'")
	}
	i := skipWhitespace(input, 1)
	if strings.HasPrefix(input[i:], "}") {
		return i + 1, nil
	}
	for {
		i = skipWhitespace(input, i)
		keyLen := 0
		for i+keyLen < len(input) && (isAllowedInResourceLocation(input[i+keyLen]) || IsAllowedInUnquotedString(input[i+keyLen])) {
			keyLen++
		}
		if keyLen == 0 {
			return 0, newError(KindExpected, i, "Expected key")
		}
		key := input[i : i+keyLen]
		i = skipWhitespace(input, i+keyLen)
		if !strings.HasPrefix(input[i:], "=") {
			return 0, newError(KindExpected, i, "Expected '='")
		}
		i = skipWhitespace(input, i+1)
		n, err := parseValue(key, input[i:])
		if err != nil {
			return 0, err.shift(i)
		}
		i = skipWhitespace(input, i+n)
		if i >= len(input) {
			return 0, newError(KindUnclosed, i, "Expected '}'")
		}
		switch input[i] {
		case ',':
			i++
		case '}':
			return i + 1, nil
		default:
			return 0, newError(KindExpected, i, "Expected '}'")
		}
	}
}

// skipUnknownOption 跳过未知选项的值，直到深度为0且不在引号内的第一个,或者]
func skipUnknownOption(input string) (int, *ArgumentError) {
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
		case c == '}':
			depth--
		case c == ']':
			if depth == 0 {
				return i, nil
			}
			depth--
		case c == ',':
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, newError(KindUnclosed, len(input), "Expected end of options")
}

// ParseSelector 解析以@开头的选择器
func ParseSelector(input string) (Selector, int, *ArgumentError) {
	if len(input) < 2 || input[0] != '@' {
		return Selector{}, 0, newError(KindExpected, 0, "Expected selector")
	}
	s := Selector{Type: SelectorType(input[1])}
	switch s.Type {
	case 'p', 'a', 'r', 's', 'e':
	default:
		return Selector{}, 0, newError(KindInvalid, 1, "Unknown selector type '@%c'", input[1])
	}
	i := 2
	if i >= len(input) || input[i] != '[' {
		return s, i, nil
	}
	i = skipWhitespace(input, i+1)
	if strings.HasPrefix(input[i:], "]") {
		return s, i + 1, nil
	}
	for {
		i = skipWhitespace(input, i)
		keyStart := i
		key, n, err := readString(input[i:])
		if err != nil {
			return Selector{}, 0, err.shift(i)
		}
		if n == 0 {
			if i >= len(input) {
				return Selector{}, 0, newError(KindUnclosed, i, "Expected end of options")
			}
			return Selector{}, 0, newError(KindExpected, i, "Expected option")
		}
		i = skipWhitespace(input, i+n)
		if !strings.HasPrefix(input[i:], "=") {
			return Selector{}, 0, newError(KindExpected, i, "Expected value for option '%s'", key)
		}
		i = skipWhitespace(input, i+1)
		option := SelectorOption{Key: key, Offset: keyStart}
		spec, known := selectorOptions[key]
		if known {
			if spec.negatable && strings.HasPrefix(input[i:], "!") {
				option.Negated = true
				i = skipWhitespace(input, i+1)
			}
			v, n, err := spec.parse(input[i:])
			if err != nil {
				return Selector{}, 0, err.shift(i)
			}
			option.Value = v
			i += n
		} else {
			n, err := skipUnknownOption(input[i:])
			if err != nil {
				return Selector{}, 0, err.shift(i)
			}
			logrus.Warnf("[argument] unknown selector option '%s' skipped", key)
			option.Value = RawValue(strings.TrimSpace(input[i : i+n]))
			i += n
		}
		s.Options = append(s.Options, option)
		i = skipWhitespace(input, i)
		if i >= len(input) {
			return Selector{}, 0, newError(KindUnclosed, i, "Expected end of options")
		}
		switch input[i] {
		case ',':
			i++
		case ']':
			return s, i + 1, nil
		default:
			return Selector{}, 0, newError(KindExpected, i, "Expected end of options")
		}
	}
}

// EntityParser minecraft:entity和minecraft:game_profile
type EntityParser struct {
	Single      bool
	PlayersOnly bool
}

func (p EntityParser) Parse(input string) (interface{}, int, *ArgumentError) {
	if strings.HasPrefix(input, "@") {
		s, n, err := ParseSelector(input)
		if err != nil {
			return nil, 0, err
		}
		if p.Single && !s.IsSingle() {
			if p.PlayersOnly {
				return nil, 0, newError(KindInvalid, 0, "Only one player is allowed, but the provided selector allows more than one")
			}
			return nil, 0, newError(KindInvalid, 0, "Only one entity is allowed, but the provided selector allows more than one")
		}
		if p.PlayersOnly && !s.IsPlayersOnly() {
			return nil, 0, newError(KindInvalid, 0, "Only players may be affected by this command, but the provided selector includes entities")
		}
		return s, n, nil
	}
	n := indexOfSpace(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected entity")
	}
	if id, ok := toUUID(input[:n]); ok {
		return id, n, nil
	}
	return EntityName(input[:n]), n, nil
}

// ScoreHolder 记分板持有者，*表示所有持有者
type ScoreHolder struct {
	Wildcard bool
	Selector *Selector
	Name     string
}

// ScoreHolderParser minecraft:score_holder
type ScoreHolderParser struct {
	Single bool
}

func (p ScoreHolderParser) Parse(input string) (interface{}, int, *ArgumentError) {
	if strings.HasPrefix(input, "@") {
		s, n, err := ParseSelector(input)
		if err != nil {
			return nil, 0, err
		}
		if p.Single && !s.IsSingle() {
			return nil, 0, newError(KindInvalid, 0, "Only one entity is allowed, but the provided selector allows more than one")
		}
		return ScoreHolder{Selector: &s}, n, nil
	}
	n := indexOfSpace(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected score holder")
	}
	if input[:n] == "*" {
		return ScoreHolder{Wildcard: true}, n, nil
	}
	return ScoreHolder{Name: input[:n]}, n, nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

var uuidGroupLengths = [5]int{8, 4, 4, 4, 12}

// toUUID 解析五段十六进制表示的uuid，每段可以省略前导0
func toUUID(text string) (uuid.UUID, bool) {
	groups := strings.Split(text, "-")
	if len(groups) != 5 {
		return uuid.UUID{}, false
	}
	for i, g := range groups {
		if g == "" || len(g) > uuidGroupLengths[i] {
			return uuid.UUID{}, false
		}
		for j := 0; j < len(g); j++ {
			if !isHex(g[j]) {
				return uuid.UUID{}, false
			}
		}
		groups[i] = strings.Repeat("0", uuidGroupLengths[i]-len(g)) + g
	}
	id, err := uuid.Parse(strings.Join(groups, "-"))
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

func parseUUID(input string) (interface{}, int, *ArgumentError) {
	n := 0
	for n < len(input) && (isHex(input[n]) || input[n] == '-') {
		n++
	}
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected UUID")
	}
	id, ok := toUUID(input[:n])
	if !ok {
		return nil, 0, newError(KindInvalid, 0, "Invalid UUID")
	}
	return id, n, nil
}
