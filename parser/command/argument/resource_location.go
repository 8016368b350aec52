package argument

import (
	"fmt"
	"strings"
)

// ResourceLocation 命名空间+路径，唯一标识一个函数
type ResourceLocation struct {
	Namespace string
	Path      string
}

// ParseResourceLocation 解析ns:path形式的字符串，没有命名空间时使用minecraft
func ParseResourceLocation(s string) (ResourceLocation, error) {
	l, n, err := parseResourceLocation(s)
	if err != nil {
		return ResourceLocation{}, err
	}
	if n != len(s) {
		return ResourceLocation{}, fmt.Errorf("invalid resource location '%s'", s)
	}
	return l, nil
}

func (r ResourceLocation) String() string {
	return r.Namespace + ":" + r.Path
}

// Compare 先比较命名空间再比较路径
func (r ResourceLocation) Compare(other ResourceLocation) int {
	if c := strings.Compare(r.Namespace, other.Namespace); c != 0 {
		return c
	}
	return strings.Compare(r.Path, other.Path)
}

// Less 用于排序
func (r ResourceLocation) Less(other ResourceLocation) bool {
	return r.Compare(other) < 0
}

// PlusPath 把路径中的/替换为+，用于tag编码
func (r ResourceLocation) PlusPath() string {
	return strings.ReplaceAll(r.Path, "/", "+")
}

// Mangled ns+path形式，路径中的/替换为+
func (r ResourceLocation) Mangled() string {
	return r.Namespace + "+" + r.PlusPath()
}

func isAllowedInResourceLocation(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' ||
		c == '_' || c == '-' || c == '.' || c == '/' || c == ':'
}

func parseResourceLocation(input string) (ResourceLocation, int, *ArgumentError) {
	n := 0
	for n < len(input) && isAllowedInResourceLocation(input[n]) {
		n++
	}
	if n == 0 {
		return ResourceLocation{}, 0, newError(KindEmpty, 0, "Expected resource location")
	}
	text := input[:n]
	ns, path, found := strings.Cut(text, ":")
	if !found {
		ns, path = "minecraft", text
	}
	if strings.Contains(path, ":") || strings.Contains(ns, "/") {
		return ResourceLocation{}, 0, newError(KindInvalid, 0, "Invalid resource location '%s'", text)
	}
	if ns == "" {
		ns = "minecraft"
	}
	if path == "" {
		return ResourceLocation{}, 0, newError(KindInvalid, 0, "Invalid resource location '%s'", text)
	}
	return ResourceLocation{Namespace: ns, Path: path}, n, nil
}

func parseResourceLocationValue(input string) (interface{}, int, *ArgumentError) {
	l, n, err := parseResourceLocation(input)
	if err != nil {
		return nil, 0, err
	}
	return l, n, nil
}

// ResourceRef 资源或者标签（以#开头）的引用
type ResourceRef struct {
	Tag      bool
	Location ResourceLocation
}

func (r ResourceRef) String() string {
	if r.Tag {
		return "#" + r.Location.String()
	}
	return r.Location.String()
}

func parseResourceRef(input string) (ResourceRef, int, *ArgumentError) {
	if strings.HasPrefix(input, "#") {
		l, n, err := parseResourceLocation(input[1:])
		if err != nil {
			return ResourceRef{}, 0, err.shift(1)
		}
		return ResourceRef{Tag: true, Location: l}, n + 1, nil
	}
	l, n, err := parseResourceLocation(input)
	if err != nil {
		return ResourceRef{}, 0, err
	}
	return ResourceRef{Location: l}, n, nil
}

func parseResourceOrTag(input string) (interface{}, int, *ArgumentError) {
	r, n, err := parseResourceRef(input)
	if err != nil {
		return nil, 0, err
	}
	return r, n, nil
}

// FunctionRef minecraft:function参数的值，Tag为true时表示函数标签
type FunctionRef ResourceRef

func (f FunctionRef) String() string {
	return ResourceRef(f).String()
}

func parseFunction(input string) (interface{}, int, *ArgumentError) {
	r, n, err := parseResourceRef(input)
	if err != nil {
		return nil, 0, err
	}
	return FunctionRef(r), n, nil
}
