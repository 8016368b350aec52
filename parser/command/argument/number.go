package argument

import (
	"strconv"
	"strings"
)

func isAllowedInNumber(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-'
}

// readNumber 读取数字字符，返回数字文本
func readNumber(input string) string {
	i := 0
	for i < len(input) && isAllowedInNumber(input[i]) {
		i++
	}
	return input[:i]
}

// checkNumberText 区分空数字（只有符号或者什么都没有）和非法数字
func checkNumberText(text string, name string) *ArgumentError {
	if text == "" || text == "-" {
		return newError(KindEmpty, len(text), "Expected %s", name)
	}
	return nil
}

// IntegerParser brigadier:integer
type IntegerParser struct {
	Min, Max int64
}

func newIntegerParser(properties Properties) IntegerParser {
	p := IntegerParser{Min: -2147483648, Max: 2147483647}
	if min, ok := properties.float("min"); ok {
		p.Min = int64(min)
	}
	if max, ok := properties.float("max"); ok {
		p.Max = int64(max)
	}
	return p
}

func (p IntegerParser) Parse(input string) (interface{}, int, *ArgumentError) {
	v, n, err := parseInt(input, 32, "integer", p.Min, p.Max)
	if err != nil {
		return nil, 0, err
	}
	return int32(v), n, nil
}

// LongParser brigadier:long
type LongParser struct {
	Min, Max int64
}

func newLongParser(properties Properties) LongParser {
	p := LongParser{Min: -9223372036854775808, Max: 9223372036854775807}
	if min, ok := properties.float("min"); ok {
		p.Min = int64(min)
	}
	if max, ok := properties.float("max"); ok {
		p.Max = int64(max)
	}
	return p
}

func (p LongParser) Parse(input string) (interface{}, int, *ArgumentError) {
	return parseInt(input, 64, "long", p.Min, p.Max)
}

func parseInt(input string, bits int, name string, min, max int64) (int64, int, *ArgumentError) {
	text := readNumber(input)
	if err := checkNumberText(text, name); err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseInt(text, 10, bits)
	if err != nil {
		return 0, 0, newError(KindInvalid, 0, "Invalid %s '%s'", name, text)
	}
	if v < min {
		return 0, 0, newError(KindOutOfRange, 0, "%s must not be less than %d, found %d", capitalize(name), min, v)
	}
	if v > max {
		return 0, 0, newError(KindOutOfRange, 0, "%s must not be more than %d, found %d", capitalize(name), max, v)
	}
	return v, len(text), nil
}

// DoubleParser brigadier:double
type DoubleParser struct {
	Min, Max *float64
}

func newDoubleParser(properties Properties) DoubleParser {
	p := DoubleParser{}
	if min, ok := properties.float("min"); ok {
		p.Min = &min
	}
	if max, ok := properties.float("max"); ok {
		p.Max = &max
	}
	return p
}

func (p DoubleParser) Parse(input string) (interface{}, int, *ArgumentError) {
	return parseFloat(input, 64, "double", p.Min, p.Max)
}

// FloatParser brigadier:float
type FloatParser struct {
	Min, Max *float64
}

func newFloatParser(properties Properties) FloatParser {
	p := FloatParser{}
	if min, ok := properties.float("min"); ok {
		p.Min = &min
	}
	if max, ok := properties.float("max"); ok {
		p.Max = &max
	}
	return p
}

func (p FloatParser) Parse(input string) (interface{}, int, *ArgumentError) {
	v, n, err := parseFloat(input, 32, "float", p.Min, p.Max)
	if err != nil {
		return nil, 0, err
	}
	return float32(v), n, nil
}

func parseFloat(input string, bits int, name string, min, max *float64) (float64, int, *ArgumentError) {
	text := readNumber(input)
	if err := checkNumberText(text, name); err != nil {
		return 0, 0, err
	}
	v, err := strconv.ParseFloat(text, bits)
	if err != nil || text == "." || text == "-." {
		return 0, 0, newError(KindInvalid, 0, "Invalid %s '%s'", name, text)
	}
	if min != nil && v < *min {
		return 0, 0, newError(KindOutOfRange, 0, "%s must not be less than %v, found %v", capitalize(name), *min, v)
	}
	if max != nil && v > *max {
		return 0, 0, newError(KindOutOfRange, 0, "%s must not be more than %v, found %v", capitalize(name), *max, v)
	}
	return v, len(text), nil
}

func parseBool(input string) (interface{}, int, *ArgumentError) {
	n := readUnquoted(input)
	switch input[:n] {
	case "":
		return nil, 0, newError(KindEmpty, 0, "Expected bool")
	case "true":
		return true, n, nil
	case "false":
		return false, n, nil
	}
	return nil, 0, newError(KindInvalid, 0, "Invalid bool, expected true or false but found '%s'", input[:n])
}

// Angle minecraft:angle，Relative表示以~开头
type Angle struct {
	Relative bool
	Value    float64
}

func parseAngle(input string) (interface{}, int, *ArgumentError) {
	if input == "" || input[0] == ' ' {
		return nil, 0, newError(KindEmpty, 0, "Incomplete (expected 1 angle)")
	}
	angle := Angle{}
	i := 0
	if input[0] == '~' {
		angle.Relative = true
		i++
	}
	text := readNumber(input[i:])
	if text == "" && angle.Relative {
		return angle, i, nil
	}
	v, n, err := parseFloat(input[i:], 32, "float", nil, nil)
	if err != nil {
		return nil, 0, err.shift(i)
	}
	angle.Value = v
	return angle, i + n, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
