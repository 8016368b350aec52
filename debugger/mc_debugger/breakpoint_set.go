package mc_debugger

import (
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"

	"github.com/fansqz/mcfunction-debugger/generator/partition"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

func resourceLocationComparator(a, b interface{}) int {
	return a.(argument.ResourceLocation).Compare(b.(argument.ResourceLocation))
}

// BreakpointSet 所有函数的断点，按函数名排序
type BreakpointSet struct {
	functions *treemap.Map
}

func NewBreakpointSet() *BreakpointSet {
	return &BreakpointSet{functions: treemap.NewWith(resourceLocationComparator)}
}

// Set 替换一个函数的全部断点，breakpoints为空时移除这个函数
func (s *BreakpointSet) Set(name argument.ResourceLocation, breakpoints partition.Breakpoints) {
	if len(breakpoints) == 0 {
		s.functions.Remove(name)
		return
	}
	copied := make(partition.Breakpoints, len(breakpoints))
	for position, kind := range breakpoints {
		copied[position] = kind
	}
	s.functions.Put(name, copied)
}

// Get 一个函数的断点，返回的map不能修改
func (s *BreakpointSet) Get(name argument.ResourceLocation) partition.Breakpoints {
	if value, ok := s.functions.Get(name); ok {
		return value.(partition.Breakpoints)
	}
	return nil
}

// Add 添加一个断点，同一个位置后添加的覆盖先添加的
func (s *BreakpointSet) Add(name argument.ResourceLocation, position partition.Position, kind partition.BreakpointKind) {
	breakpoints := s.Get(name)
	if breakpoints == nil {
		breakpoints = partition.Breakpoints{}
		s.functions.Put(name, breakpoints)
	}
	breakpoints[position] = kind
}

// Has 位置上是否有有效的断点
func (s *BreakpointSet) Has(name argument.ResourceLocation, position partition.Position) bool {
	kind, ok := s.Get(name)[position]
	return ok && kind.Type != partition.Invalid
}

// Clone 深拷贝
func (s *BreakpointSet) Clone() *BreakpointSet {
	clone := NewBreakpointSet()
	s.functions.Each(func(key interface{}, value interface{}) {
		clone.Set(key.(argument.ResourceLocation), value.(partition.Breakpoints))
	})
	return clone
}

// Map 生成器使用的形式
func (s *BreakpointSet) Map() map[argument.ResourceLocation]partition.Breakpoints {
	result := make(map[argument.ResourceLocation]partition.Breakpoints, s.functions.Size())
	s.functions.Each(func(key interface{}, value interface{}) {
		result[key.(argument.ResourceLocation)] = value.(partition.Breakpoints)
	})
	return result
}

// Key 有效断点的规范表示，两个集合生成的数据包相同当且仅当Key相同
func (s *BreakpointSet) Key() string {
	var sb strings.Builder
	s.functions.Each(func(key interface{}, value interface{}) {
		breakpoints := value.(partition.Breakpoints)
		for _, position := range SortedPositions(breakpoints) {
			kind := breakpoints[position]
			if kind.Type == partition.Invalid {
				continue
			}
			sb.WriteString(key.(argument.ResourceLocation).String())
			sb.WriteString("@")
			sb.WriteString(position.String())
			sb.WriteString("=")
			sb.WriteString(kind.Type.String())
			if kind.Condition != "" {
				sb.WriteString("/")
				sb.WriteString(kind.Condition)
			}
			sb.WriteString(";")
		}
	})
	return sb.String()
}

// SortedPositions 断点位置排序
func SortedPositions(breakpoints partition.Breakpoints) []partition.Position {
	positions := make([]partition.Position, 0, len(breakpoints))
	for position := range breakpoints {
		positions = append(positions, position)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Less(positions[j])
	})
	return positions
}
