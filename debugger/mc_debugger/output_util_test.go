package mc_debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

func TestParseAddedTag(t *testing.T) {
	tag, ok := ParseAddedTag("Added tag 'mcfd+test+main+3_breakpoint' to Area Effect Cloud")
	assert.True(t, ok)
	assert.Equal(t, "mcfd+test+main+3_breakpoint", tag)

	_, ok = ParseAddedTag("Removed tag 'x' from y")
	assert.False(t, ok)
}

func TestParseScore(t *testing.T) {
	score, ok := ParseScore("test:main:3:1 has -2 [mcfd_depth]")
	assert.True(t, ok)
	assert.Equal(t, Score{Holder: "test:main:3:1", Value: -2, Objective: "mcfd_depth"}, score)

	_, ok = ParseScore("Can't get value of x for Steve; none is set")
	assert.False(t, ok)
}

func TestParseFrameName(t *testing.T) {
	name, line, column, ok := ParseFrameName("test:dir/fn:12:30")
	assert.True(t, ok)
	assert.Equal(t, argument.ResourceLocation{Namespace: "test", Path: "dir/fn"}, name)
	assert.Equal(t, 12, line)
	assert.Equal(t, 30, column)

	for _, invalid := range []string{"", "test:main", "test:main:x:1", "Area Effect Cloud"} {
		_, _, _, ok = ParseFrameName(invalid)
		assert.False(t, ok, invalid)
	}
}
