package argument

import (
	"encoding/json"
	"strings"
)

// Component 文本组件，Raw保存原始文本
type Component struct {
	Raw   string
	Value interface{}
}

// parseComponent 文本组件可以是json（旧版本）或者snbt（1.21.5之后）
func parseComponent(input string) (interface{}, int, *ArgumentError) {
	if input == "" || input[0] == ' ' {
		return nil, 0, newError(KindEmpty, 0, "Expected component")
	}
	decoder := json.NewDecoder(strings.NewReader(input))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err == nil {
		n := int(decoder.InputOffset())
		// 数字后面紧跟着的字符不是json的一部分
		if n == len(input) || input[n] == ' ' {
			return Component{Raw: input[:n], Value: value}, n, nil
		}
	}
	v, n, err := parseNbtTag(input)
	if err != nil {
		if strings.IndexByte("{[\"", input[0]) >= 0 {
			return nil, 0, newError(KindInvalid, err.Offset, "Invalid chat component: %s", err.Message)
		}
		return nil, 0, err
	}
	return Component{Raw: input[:n], Value: v}, n, nil
}
