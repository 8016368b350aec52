package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fansqz/mcfunction-debugger/generator/partition"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
)

func TestParseBreakpointFlags(t *testing.T) {
	breakpoints, err := parseBreakpointFlags([]string{"test:main:3", "test:sub/inner:1", "test:main:5"})
	require.NoError(t, err)
	entry := breakpoints[argument.ResourceLocation{Namespace: "test", Path: "main"}]
	assert.Len(t, entry, 2)
	assert.Equal(t, partition.Normal, entry[partition.Position{Line: 3, InLine: partition.Breakpoint}].Type)
	assert.Contains(t, breakpoints, argument.ResourceLocation{Namespace: "test", Path: "sub/inner"})

	for _, flag := range []string{"main", "test:main:x", "test:main:0", "Test:main:1"} {
		_, err = parseBreakpointFlags([]string{flag})
		assert.Error(t, err, flag)
	}
}
