package argument

import "strings"

// BlockState 方块，可以带有方块状态和nbt
type BlockState struct {
	Block      ResourceRef
	Properties []BlockProperty
	Nbt        NbtCompound
}

// BlockProperty 方块状态中的一项
type BlockProperty struct {
	Key   string
	Value string
}

// BlockParser minecraft:block_state和minecraft:block_predicate
type BlockParser struct {
	AllowTag bool
}

func (p BlockParser) Parse(input string) (interface{}, int, *ArgumentError) {
	if strings.HasPrefix(input, "#") && !p.AllowTag {
		return nil, 0, newError(KindInvalid, 0, "Tags aren't allowed here, only actual blocks")
	}
	ref, i, err := parseResourceRef(input)
	if err != nil {
		return nil, 0, err
	}
	block := BlockState{Block: ref}
	if strings.HasPrefix(input[i:], "[") {
		properties, n, err := parseBlockProperties(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		block.Properties = properties
		i += n
	}
	if strings.HasPrefix(input[i:], "{") {
		nbt, n, err := parseCompound(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		block.Nbt = nbt
		i += n
	}
	return block, i, nil
}

func parseBlockProperties(input string) ([]BlockProperty, int, *ArgumentError) {
	properties := []BlockProperty{}
	i := skipWhitespace(input, 1)
	if strings.HasPrefix(input[i:], "]") {
		return properties, i + 1, nil
	}
	for {
		i = skipWhitespace(input, i)
		key, n, err := readString(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		if n == 0 {
			if i >= len(input) {
				return nil, 0, newError(KindUnclosed, i, "Expected closing ] for block state properties")
			}
			return nil, 0, newError(KindExpected, i, "Expected property")
		}
		i = skipWhitespace(input, i+n)
		if !strings.HasPrefix(input[i:], "=") {
			return nil, 0, newError(KindExpected, i, "Expected value for property '%s'", key)
		}
		i = skipWhitespace(input, i+1)
		value, n, err := readString(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		if n == 0 {
			return nil, 0, newError(KindExpected, i, "Expected value for property '%s'", key)
		}
		properties = append(properties, BlockProperty{Key: key, Value: value})
		i = skipWhitespace(input, i+n)
		if i >= len(input) {
			return nil, 0, newError(KindUnclosed, i, "Expected closing ] for block state properties")
		}
		switch input[i] {
		case ',':
			i++
		case ']':
			return properties, i + 1, nil
		default:
			return nil, 0, newError(KindExpected, i, "Expected closing ] for block state properties")
		}
	}
}

// ItemStack 物品，Components保存[...]组件的原始文本
type ItemStack struct {
	Item       ResourceRef
	Components string
	Nbt        NbtCompound
}

// ItemParser minecraft:item_stack和minecraft:item_predicate
type ItemParser struct {
	AllowTag bool
}

func (p ItemParser) Parse(input string) (interface{}, int, *ArgumentError) {
	if strings.HasPrefix(input, "#") && !p.AllowTag {
		return nil, 0, newError(KindInvalid, 0, "Tags aren't allowed here, only actual items")
	}
	var item ItemStack
	i := 0
	if strings.HasPrefix(input, "*") && p.AllowTag {
		item.Item = ResourceRef{Tag: true}
		i = 1
	} else {
		ref, n, err := parseResourceRef(input)
		if err != nil {
			return nil, 0, err
		}
		item.Item = ref
		i = n
	}
	if strings.HasPrefix(input[i:], "[") {
		n, err := scanBalanced(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		item.Components = input[i : i+n]
		i += n
	}
	if strings.HasPrefix(input[i:], "{") {
		nbt, n, err := parseCompound(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		item.Nbt = nbt
		i += n
	}
	return item, i, nil
}

// Particle 粒子类型和可选的参数
type Particle struct {
	Type    ResourceLocation
	Options NbtCompound
}

func parseParticle(input string) (interface{}, int, *ArgumentError) {
	l, i, err := parseResourceLocation(input)
	if err != nil {
		return nil, 0, err
	}
	particle := Particle{Type: l}
	if strings.HasPrefix(input[i:], "{") {
		options, n, err := parseCompound(input[i:])
		if err != nil {
			return nil, 0, err.shift(i)
		}
		particle.Options = options
		i += n
	}
	return particle, i, nil
}
