package argument

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float(v float64) *float64 {
	return &v
}

func TestIntegerParser(t *testing.T) {
	p, known := New("brigadier:integer", Properties{"min": json.RawMessage("0"), "max": json.RawMessage("10")})
	assert.True(t, known)

	v, n, err := p.Parse("5 rest")
	assert.Nil(t, err)
	assert.Equal(t, int32(5), v)
	assert.Equal(t, 1, n)

	// 只有符号是Empty，不是Invalid
	_, _, err = p.Parse("- 1")
	require.NotNil(t, err)
	assert.Equal(t, KindEmpty, err.Kind)

	_, _, err = p.Parse("")
	require.NotNil(t, err)
	assert.Equal(t, KindEmpty, err.Kind)

	_, _, err = p.Parse("1-2")
	require.NotNil(t, err)
	assert.Equal(t, KindInvalid, err.Kind)

	_, _, err = p.Parse("11")
	require.NotNil(t, err)
	assert.Equal(t, KindOutOfRange, err.Kind)
	assert.Equal(t, "Integer must not be more than 10, found 11", err.Message)
}

func TestDoubleParser(t *testing.T) {
	p := DoubleParser{}
	v, n, err := p.Parse("-1.5")
	assert.Nil(t, err)
	assert.Equal(t, -1.5, v)
	assert.Equal(t, 4, n)

	_, _, err = p.Parse("1.2.3")
	require.NotNil(t, err)
	assert.Equal(t, KindInvalid, err.Kind)

	_, _, err = p.Parse("-")
	require.NotNil(t, err)
	assert.Equal(t, KindEmpty, err.Kind)
}

func TestBoolParser(t *testing.T) {
	v, n, err := parseBool("true ")
	assert.Nil(t, err)
	assert.Equal(t, true, v)
	assert.Equal(t, 4, n)
	_, _, err = parseBool("yes")
	require.NotNil(t, err)
	assert.Equal(t, KindInvalid, err.Kind)
}

func TestRangeParser(t *testing.T) {
	tests := []struct {
		input string
		want  Range
		n     int
	}{
		{"5", Range{Min: float(5), Max: float(5)}, 1},
		{"5..", Range{Min: float(5)}, 3},
		{"..5", Range{Max: float(5)}, 3},
		{"-3..7 run", Range{Min: float(-3), Max: float(7)}, 5},
	}
	for _, test := range tests {
		v, n, err := RangeParser{}.Parse(test.input)
		assert.Nil(t, err, test.input)
		assert.Equal(t, test.want, v, test.input)
		assert.Equal(t, test.n, n, test.input)
	}

	v, n, err := RangeParser{Decimals: true}.Parse("0.5..1.5")
	assert.Nil(t, err)
	assert.Equal(t, Range{Min: float(0.5), Max: float(1.5)}, v)
	assert.Equal(t, 8, n)

	// 两端都省略
	_, _, err = RangeParser{}.Parse("..")
	require.NotNil(t, err)
	assert.Equal(t, KindEmpty, err.Kind)

	_, _, err = RangeParser{}.Parse("5..1")
	require.NotNil(t, err)
	assert.Equal(t, "Min cannot be bigger than max", err.Message)
}

func TestRangeString(t *testing.T) {
	assert.Equal(t, "5", Range{Min: float(5), Max: float(5)}.String())
	assert.Equal(t, "..5", Range{Max: float(5)}.String())
	assert.Equal(t, "1..2", Range{Min: float(1), Max: float(2)}.String())
}

func TestStringParser(t *testing.T) {
	v, n, err := StringParser{Type: StringWord}.Parse("hello world")
	assert.Nil(t, err)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 5, n)

	v, n, err = StringParser{Type: StringPhrase}.Parse(`"a \"b\" c" d`)
	assert.Nil(t, err)
	assert.Equal(t, `a "b" c`, v)
	assert.Equal(t, 11, n)

	_, _, err = StringParser{Type: StringPhrase}.Parse(`"abc`)
	require.NotNil(t, err)
	assert.Equal(t, KindUnclosed, err.Kind)

	_, _, err = StringParser{Type: StringPhrase}.Parse(`"a\nb"`)
	require.NotNil(t, err)
	assert.Equal(t, KindInvalid, err.Kind)

	// greedy总是成功
	v, n, err = StringParser{Type: StringGreedy}.Parse("")
	assert.Nil(t, err)
	assert.Equal(t, RawValue(""), v)
	assert.Equal(t, 0, n)
	v, n, err = StringParser{Type: StringGreedy}.Parse("anything [ at all")
	assert.Nil(t, err)
	assert.Equal(t, RawValue("anything [ at all"), v)
	assert.Equal(t, 17, n)
}

func TestResourceLocation(t *testing.T) {
	l, err := ParseResourceLocation("test:foo/bar")
	assert.Nil(t, err)
	assert.Equal(t, ResourceLocation{Namespace: "test", Path: "foo/bar"}, l)
	assert.Equal(t, "test+foo+bar", l.Mangled())

	l, err = ParseResourceLocation("stone")
	assert.Nil(t, err)
	assert.Equal(t, "minecraft:stone", l.String())

	_, err = ParseResourceLocation("a:b:c")
	assert.NotNil(t, err)
	_, err = ParseResourceLocation("Test:x")
	assert.NotNil(t, err)

	a := ResourceLocation{Namespace: "a", Path: "z"}
	b := ResourceLocation{Namespace: "b", Path: "a"}
	assert.True(t, a.Less(b))
	assert.Equal(t, 0, a.Compare(a))

	v, n, err2 := parseFunction("#test:tag run")
	assert.Nil(t, err2)
	assert.Equal(t, FunctionRef{Tag: true, Location: ResourceLocation{Namespace: "test", Path: "tag"}}, v)
	assert.Equal(t, 9, n)
}

func TestSelector(t *testing.T) {
	s, n, err := ParseSelector("@e[type=area_effect_cloud] run")
	assert.Nil(t, err)
	assert.Equal(t, 26, n)
	assert.Equal(t, SelectorType('e'), s.Type)
	require.Len(t, s.Options, 1)
	assert.Equal(t, "type", s.Options[0].Key)
	assert.Equal(t, 3, s.Options[0].Offset)
	assert.Equal(t, ResourceRef{Location: ResourceLocation{Namespace: "minecraft", Path: "area_effect_cloud"}}, s.Options[0].Value)

	s, n, err = ParseSelector("@a[tag=!x,limit=1,scores={a=1..,b=..2}]")
	assert.Nil(t, err)
	assert.Equal(t, 39, n)
	assert.True(t, s.Options[0].Negated)
	assert.True(t, s.IsSingle())
	assert.Equal(t, []string{"a", "b"}, s.Objectives())

	s, n, err = ParseSelector("@s")
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, s.IsSingle())

	_, _, err = ParseSelector("@x")
	require.NotNil(t, err)
	assert.Equal(t, KindInvalid, err.Kind)

	_, _, err = ParseSelector("@e[type=pig")
	require.NotNil(t, err)
	assert.Equal(t, KindUnclosed, err.Kind)
}

func TestSelectorUnknownOption(t *testing.T) {
	// 未知选项跳过到深度为0的,或者]
	s, n, err := ParseSelector("@e[foo=[1,2],tag=a]")
	assert.Nil(t, err)
	assert.Equal(t, 19, n)
	require.Len(t, s.Options, 2)
	assert.Equal(t, RawValue("[1,2]"), s.Options[0].Value)
	assert.Equal(t, "a", s.Options[1].Value)

	s, n, err = ParseSelector("@e[foo={a:[1]}]")
	assert.Nil(t, err)
	assert.Equal(t, 15, n)
	assert.Equal(t, RawValue("{a:[1]}"), s.Options[0].Value)

	// 引号中的,和]不会结束选项
	s, n, err = ParseSelector(`@e[foo="a,]b",limit=2]`)
	assert.Nil(t, err)
	assert.Equal(t, 22, n)
	assert.Equal(t, RawValue(`"a,]b"`), s.Options[0].Value)
	assert.Equal(t, int32(2), s.Options[1].Value)

	_, _, err = ParseSelector("@e[foo=[1,2]")
	require.NotNil(t, err)
	assert.Equal(t, KindUnclosed, err.Kind)
}

func TestEntityParser(t *testing.T) {
	p := EntityParser{Single: true}
	_, _, err := p.Parse("@e")
	require.NotNil(t, err)
	assert.Equal(t, "Only one entity is allowed, but the provided selector allows more than one", err.Message)

	v, n, err := p.Parse("@e[limit=1]")
	assert.Nil(t, err)
	assert.Equal(t, 11, n)
	assert.IsType(t, Selector{}, v)

	v, n, err = p.Parse("Steve run")
	assert.Nil(t, err)
	assert.Equal(t, EntityName("Steve"), v)
	assert.Equal(t, 5, n)

	v, _, err = p.Parse("0-0-0-0-1")
	assert.Nil(t, err)
	assert.Equal(t, uuid.MustParse("00000000-0000-0000-0000-000000000001"), v)

	_, _, err = EntityParser{PlayersOnly: true}.Parse("@e[type=pig]")
	require.NotNil(t, err)
	_, _, err = EntityParser{PlayersOnly: true}.Parse("@e[type=player]")
	assert.Nil(t, err)
}

func TestScoreHolderParser(t *testing.T) {
	v, n, err := ScoreHolderParser{}.Parse("* obj")
	assert.Nil(t, err)
	assert.Equal(t, ScoreHolder{Wildcard: true}, v)
	assert.Equal(t, 1, n)

	v, n, err = ScoreHolderParser{}.Parse("#fake obj")
	assert.Nil(t, err)
	assert.Equal(t, ScoreHolder{Name: "#fake"}, v)
	assert.Equal(t, 5, n)
}

func TestNbt(t *testing.T) {
	v, n, err := parseCompoundValue(`{a:1b,b:"x",c:[1,2],d:[I;1,2],e:{}} rest`)
	assert.Nil(t, err)
	assert.Equal(t, 35, n)
	c := v.(NbtCompound)
	require.Len(t, c, 5)
	a, _ := c.Get("a")
	assert.Equal(t, NbtNumber{Text: "1b", Suffix: 'b', Value: 1}, a)
	b, _ := c.Get("b")
	assert.Equal(t, "x", b)
	d, _ := c.Get("d")
	assert.Equal(t, byte('I'), d.(NbtArray).Type)

	// {后直接结束是Expected key
	_, _, err = parseCompoundValue("{")
	require.NotNil(t, err)
	assert.Equal(t, KindExpected, err.Kind)
	assert.Equal(t, "Expected key", err.Message)

	// 值之后结束是Unclosed
	_, _, err = parseCompoundValue("{a:1")
	require.NotNil(t, err)
	assert.Equal(t, KindUnclosed, err.Kind)

	_, _, err = parseCompoundValue("{a:[1,2}")
	require.NotNil(t, err)
	assert.Equal(t, KindExpected, err.Kind)
}

func TestNbtPath(t *testing.T) {
	v, n, err := parseNbtPath(`Inventory[0].tag{x:1}.display."Name" value`)
	assert.Nil(t, err)
	assert.Equal(t, 36, n)
	path := v.(NbtPath)
	require.Len(t, path, 5)
	assert.Equal(t, "Inventory", path[0].Key)
	assert.Equal(t, 0, *path[1].Index)
	assert.Equal(t, "tag", path[2].Key)
	assert.NotNil(t, path[2].Filter)
	assert.Equal(t, "Name", path[4].Key)

	v, n, err = parseNbtPath("Items[]")
	assert.Nil(t, err)
	assert.Equal(t, 7, n)
	assert.True(t, v.(NbtPath)[1].AllElements)

	_, _, err = parseNbtPath("a.")
	require.NotNil(t, err)
	_, _, err = parseNbtPath("a[0")
	require.NotNil(t, err)
	assert.Equal(t, KindUnclosed, err.Kind)
}

func TestCoordinates(t *testing.T) {
	v, n, err := CoordinatesParser{Count: 3}.Parse("~ ~1 ~-0.5 run")
	assert.Nil(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, Coordinates{
		{Kind: CoordinateRelative},
		{Kind: CoordinateRelative, Value: 1},
		{Kind: CoordinateRelative, Value: -0.5},
	}, v)

	_, n, err = CoordinatesParser{Count: 3}.Parse("^ ^ ^1")
	assert.Nil(t, err)
	assert.Equal(t, 6, n)

	_, _, err = CoordinatesParser{Count: 3}.Parse("^ ~ ^")
	require.NotNil(t, err)
	assert.Equal(t, KindInvalid, err.Kind)

	_, _, err = CoordinatesParser{Count: 3}.Parse("1 2")
	require.NotNil(t, err)
	assert.Equal(t, "Incomplete (expected 3 coordinates)", err.Message)

	_, _, err = CoordinatesParser{Count: 3, Integer: true}.Parse("1.5 2 3")
	require.NotNil(t, err)

	_, _, err = CoordinatesParser{Count: 2, Rotation: true}.Parse("^ ^")
	require.NotNil(t, err)
}

func TestTimeParser(t *testing.T) {
	v, n, err := TimeParser{}.Parse("1d")
	assert.Nil(t, err)
	assert.Equal(t, Time{Ticks: 24000, Unit: 'd'}, v)
	assert.Equal(t, 2, n)

	v, n, err = TimeParser{}.Parse("0.5s append")
	assert.Nil(t, err)
	assert.Equal(t, Time{Ticks: 10, Unit: 's'}, v)
	assert.Equal(t, 4, n)

	v, _, err = TimeParser{}.Parse("3")
	assert.Nil(t, err)
	assert.Equal(t, Time{Ticks: 3, Unit: 't'}, v)

	_, _, err = TimeParser{}.Parse("-1t")
	require.NotNil(t, err)
	assert.Equal(t, KindOutOfRange, err.Kind)
}

func TestComponent(t *testing.T) {
	v, n, err := parseComponent(`{"text":"a b"} tail`)
	assert.Nil(t, err)
	assert.Equal(t, 14, n)
	assert.Equal(t, `{"text":"a b"}`, v.(Component).Raw)

	v, n, err = parseComponent(`{text:'a'}`)
	assert.Nil(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, `{text:'a'}`, v.(Component).Raw)

	_, _, err = parseComponent(`{"text":`)
	require.NotNil(t, err)
}

func TestBlockAndItem(t *testing.T) {
	v, n, err := BlockParser{}.Parse(`minecraft:chest[facing=north]{Items:[]} replace`)
	assert.Nil(t, err)
	assert.Equal(t, 39, n)
	block := v.(BlockState)
	assert.Equal(t, []BlockProperty{{Key: "facing", Value: "north"}}, block.Properties)

	_, _, err = BlockParser{}.Parse("#minecraft:logs")
	require.NotNil(t, err)
	_, n, err = BlockParser{AllowTag: true}.Parse("#minecraft:logs")
	assert.Nil(t, err)
	assert.Equal(t, 15, n)

	v, n, err = ItemParser{}.Parse(`diamond_sword[damage=5]{x:1} 1`)
	assert.Nil(t, err)
	assert.Equal(t, 28, n)
	assert.Equal(t, "[damage=5]", v.(ItemStack).Components)
}

func TestMiscParsers(t *testing.T) {
	v, n, err := parseSwizzle("xz ~")
	assert.Nil(t, err)
	assert.Equal(t, Swizzle("xz"), v)
	assert.Equal(t, 2, n)
	_, _, err = parseSwizzle("xx")
	require.NotNil(t, err)

	v, _, err = parseOperation("+= @s")
	assert.Nil(t, err)
	assert.Equal(t, Operation("+="), v)
	_, _, err = parseOperation("** @s")
	require.NotNil(t, err)

	v, _, err = parseEntityAnchor("eyes run")
	assert.Nil(t, err)
	assert.Equal(t, AnchorEyes, v)

	v, n, err = parseAngle("~10 ~")
	assert.Nil(t, err)
	assert.Equal(t, Angle{Relative: true, Value: 10}, v)
	assert.Equal(t, 3, n)
}

func TestUnknownParser(t *testing.T) {
	p, known := New("minecraft:something_new", nil)
	assert.False(t, known)
	v, n, err := p.Parse("abc def")
	assert.Nil(t, err)
	assert.Equal(t, RawValue("abc"), v)
	assert.Equal(t, 3, n)
}
