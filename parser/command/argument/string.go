package argument

import "strings"

// StringType brigadier:string的type属性
type StringType string

const (
	StringWord   StringType = "word"
	StringPhrase StringType = "phrase"
	StringGreedy StringType = "greedy"
)

// StringParser brigadier:string
type StringParser struct {
	Type StringType
}

func (p StringParser) Parse(input string) (interface{}, int, *ArgumentError) {
	switch p.Type {
	case StringGreedy:
		return parseGreedy(input)
	case StringPhrase:
		s, n, err := readString(input)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			return nil, 0, newError(KindEmpty, 0, "Expected string")
		}
		return s, n, nil
	default:
		return parseWord(input)
	}
}

// parseWord 读取一个未加引号的单词
func parseWord(input string) (interface{}, int, *ArgumentError) {
	n := readUnquoted(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected word")
	}
	return input[:n], n, nil
}

// Objective 记分板目标名称
type Objective string

func parseObjective(input string) (interface{}, int, *ArgumentError) {
	n := readUnquoted(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected objective")
	}
	return Objective(input[:n]), n, nil
}

var operations = []string{"%=", "*=", "+=", "-=", "/=", "<", "=", ">", "><", "<<", ">>"}

// Operation scoreboard players operation使用的运算符
type Operation string

func parseOperation(input string) (interface{}, int, *ArgumentError) {
	n := indexOfSpace(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected operation")
	}
	op := input[:n]
	for _, o := range operations {
		if o == op {
			return Operation(op), n, nil
		}
	}
	return nil, 0, newError(KindInvalid, 0, "Invalid operation '%s'", op)
}

// Swizzle 坐标轴组合，例如xz
type Swizzle string

func parseSwizzle(input string) (interface{}, int, *ArgumentError) {
	n := indexOfSpace(input)
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected swizzle")
	}
	text := input[:n]
	if len(text) > 3 {
		return nil, 0, newError(KindInvalid, 0, "Invalid swizzle, expected combination of 'x', 'y' and 'z'")
	}
	for i := 0; i < len(text); i++ {
		if !strings.ContainsRune("xyz", rune(text[i])) || strings.IndexByte(text[i+1:], text[i]) >= 0 {
			return nil, 0, newError(KindInvalid, 0, "Invalid swizzle, expected combination of 'x', 'y' and 'z'")
		}
	}
	return Swizzle(text), n, nil
}

// EntityAnchor execute anchored使用的锚点
type EntityAnchor string

const (
	AnchorEyes EntityAnchor = "eyes"
	AnchorFeet EntityAnchor = "feet"
)

func parseEntityAnchor(input string) (interface{}, int, *ArgumentError) {
	n := readUnquoted(input)
	switch EntityAnchor(input[:n]) {
	case AnchorEyes, AnchorFeet:
		return EntityAnchor(input[:n]), n, nil
	}
	if n == 0 {
		return nil, 0, newError(KindEmpty, 0, "Expected entity anchor")
	}
	return nil, 0, newError(KindInvalid, 0, "Invalid entity anchor position %s", input[:n])
}
