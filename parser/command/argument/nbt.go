package argument

import (
	"strconv"
	"strings"
)

// NbtCompound 复合标签，保留键的顺序
type NbtCompound []NbtEntry

// NbtEntry 复合标签中的一个键值对
type NbtEntry struct {
	Key   string
	Value interface{}
}

// Get 查找key对应的值
func (c NbtCompound) Get(key string) (interface{}, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// NbtList 列表标签
type NbtList []interface{}

// NbtArray [B;...]、[I;...]、[L;...]形式的数组
type NbtArray struct {
	Type   byte
	Values []interface{}
}

// NbtNumber 数字标签，Suffix是类型后缀（b、s、l、f、d），没有后缀时为0
type NbtNumber struct {
	Text   string
	Suffix byte
	Value  float64
}

func parseCompoundValue(input string) (interface{}, int, *ArgumentError) {
	c, n, err := parseCompound(input)
	if err != nil {
		return nil, 0, err
	}
	return c, n, nil
}

func parseNbtTagValue(input string) (interface{}, int, *ArgumentError) {
	return parseNbtTag(input)
}

func parseCompound(input string) (NbtCompound, int, *ArgumentError) {
	if !strings.HasPrefix(input, "{") {
		return nil, 0, newError(KindExpected, 0, "Expected '{'")
	}
	compound := NbtCompound{}
	i := skipWhitespace(input, 1)
	if strings.HasPrefix(input[i:], "}") {
		return compound, i + 1, nil
	}
	for {
		i = skipWhitespace(input, i)
		key, n, err := readString(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		if n == 0 {
			return nil, 0, newError(KindExpected, i, "Expected key")
		}
		i = skipWhitespace(input, i+n)
		if !strings.HasPrefix(input[i:], ":") {
			return nil, 0, newError(KindExpected, i, "Expected ':'")
		}
		i = skipWhitespace(input, i+1)
		v, n, err := parseNbtTag(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		compound = append(compound, NbtEntry{Key: key, Value: v})
		i = skipWhitespace(input, i+n)
		if i >= len(input) {
			return nil, 0, newError(KindUnclosed, i, "Unclosed compound tag")
		}
		switch input[i] {
		case ',':
			i++
		case '}':
			return compound, i + 1, nil
		default:
			return nil, 0, newError(KindExpected, i, "Expected '}'")
		}
	}
}

func parseNbtTag(input string) (interface{}, int, *ArgumentError) {
	if input == "" {
		return nil, 0, newError(KindExpected, 0, "Expected value")
	}
	switch {
	case input[0] == '{':
		return parseCompoundValue(input)
	case input[0] == '[':
		if len(input) >= 3 && input[2] == ';' && strings.IndexByte("BIL", input[1]) >= 0 {
			return parseNbtArray(input)
		}
		return parseNbtList(input)
	case isQuote(input[0]):
		return readQuotedValue(input)
	}
	n := readUnquoted(input)
	if n == 0 {
		return nil, 0, newError(KindExpected, 0, "Expected value")
	}
	return toNbtPrimitive(input[:n]), n, nil
}

func readQuotedValue(input string) (interface{}, int, *ArgumentError) {
	s, n, err := readQuoted(input)
	if err != nil {
		return nil, 0, err
	}
	return s, n, nil
}

// toNbtPrimitive 未加引号的值，能解析为数字时返回NbtNumber，否则作为字符串
func toNbtPrimitive(text string) interface{} {
	switch text {
	case "true":
		return NbtNumber{Text: text, Suffix: 'b', Value: 1}
	case "false":
		return NbtNumber{Text: text, Suffix: 'b', Value: 0}
	}
	body := text
	var suffix byte
	if last := text[len(text)-1]; strings.IndexByte("bBsSlLfFdD", last) >= 0 {
		suffix = last | 0x20
		body = text[:len(text)-1]
	}
	if v, err := strconv.ParseFloat(body, 64); err == nil && body != "" && !strings.ContainsAny(body, "eEnN+") {
		return NbtNumber{Text: text, Suffix: suffix, Value: v}
	}
	return text
}

func parseNbtList(input string) (interface{}, int, *ArgumentError) {
	values, n, err := parseNbtElements(input, 1)
	if err != nil {
		return nil, 0, err
	}
	return NbtList(values), n, nil
}

func parseNbtArray(input string) (interface{}, int, *ArgumentError) {
	values, n, err := parseNbtElements(input, 3)
	if err != nil {
		return nil, 0, err
	}
	for _, v := range values {
		if _, ok := v.(NbtNumber); !ok {
			return nil, 0, newError(KindInvalid, 0, "Invalid array element, expected number")
		}
	}
	return NbtArray{Type: input[1], Values: values}, n, nil
}

// parseNbtElements 从start开始解析逗号分隔的元素直到]
func parseNbtElements(input string, start int) ([]interface{}, int, *ArgumentError) {
	values := []interface{}{}
	i := skipWhitespace(input, start)
	if strings.HasPrefix(input[i:], "]") {
		return values, i + 1, nil
	}
	for {
		i = skipWhitespace(input, i)
		v, n, err := parseNbtTag(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		values = append(values, v)
		i = skipWhitespace(input, i+n)
		if i >= len(input) {
			return nil, 0, newError(KindUnclosed, i, "Unclosed list")
		}
		switch input[i] {
		case ',':
			i++
		case ']':
			return values, i + 1, nil
		default:
			return nil, 0, newError(KindExpected, i, "Expected ']'")
		}
	}
}

// NbtPathNode nbt路径中的一个节点
type NbtPathNode struct {
	// Key 为空表示根复合标签过滤或者下标
	Key    string
	Filter NbtCompound
	// Index 为nil且AllElements为false时表示没有下标
	Index       *int
	AllElements bool
}

// NbtPath minecraft:nbt_path
type NbtPath []NbtPathNode

func isAllowedInNbtPathKey(c byte) bool {
	return c != ' ' && c != '.' && c != '[' && c != ']' && c != '{' && c != '}' && !isQuote(c)
}

func parseNbtPath(input string) (interface{}, int, *ArgumentError) {
	path := NbtPath{}
	i := 0
	expectKey := true
	for {
		if i >= len(input) || input[i] == ' ' {
			if expectKey {
				if i == 0 {
					return nil, 0, newError(KindEmpty, 0, "Expected nbt path")
				}
				return nil, 0, newError(KindExpected, i, "Expected nbt path element")
			}
			return path, i, nil
		}
		switch c := input[i]; {
		case c == '{' && len(path) == 0:
			compound, n, err := parseCompound(input[i:])
			if err != nil {
				return nil, 0, err.shift(i)
			}
			path = append(path, NbtPathNode{Filter: compound})
			i += n
		case c == '[' && !expectKey:
			node, n, err := parseNbtIndex(input[i:])
			if err != nil {
				return nil, 0, err.shift(i)
			}
			path = append(path, node)
			i += n
		case c == '.' && !expectKey:
			i++
			expectKey = true
			continue
		case expectKey:
			var key string
			var n int
			if isQuote(c) {
				var err *ArgumentError
				key, n, err = readQuoted(input[i:])
				if err != nil {
					return nil, 0, err.shift(i)
				}
			} else {
				for i+n < len(input) && isAllowedInNbtPathKey(input[i+n]) {
					n++
				}
				if n == 0 {
					return nil, 0, newError(KindInvalid, i, "Invalid nbt path element")
				}
				key = input[i : i+n]
			}
			i += n
			node := NbtPathNode{Key: key}
			if strings.HasPrefix(input[i:], "{") {
				compound, n, err := parseCompound(input[i:])
				if err != nil {
					return nil, 0, err.shift(i)
				}
				node.Filter = compound
				i += n
			}
			path = append(path, node)
		default:
			return nil, 0, newError(KindInvalid, i, "Invalid nbt path element")
		}
		expectKey = false
	}
}

func parseNbtIndex(input string) (NbtPathNode, int, *ArgumentError) {
	i := skipWhitespace(input, 1)
	node := NbtPathNode{}
	switch {
	case strings.HasPrefix(input[i:], "]"):
		node.AllElements = true
		return node, i + 1, nil
	case strings.HasPrefix(input[i:], "{"):
		compound, n, err := parseCompound(input[i:])
		if err != nil {
			return NbtPathNode{}, 0, err.shift(i)
		}
		node.Filter = compound
		node.AllElements = true
		i += n
	default:
		v, n, err := parseInt(input[i:], 32, "integer", -2147483648, 2147483647)
		if err != nil {
			return NbtPathNode{}, 0, err.shift(i)
		}
		index := int(v)
		node.Index = &index
		i += n
	}
	i = skipWhitespace(input, i)
	if !strings.HasPrefix(input[i:], "]") {
		if i >= len(input) {
			return NbtPathNode{}, 0, newError(KindUnclosed, i, "Unclosed index")
		}
		return NbtPathNode{}, 0, newError(KindExpected, i, "Expected ']'")
	}
	return node, i + 1, nil
}
