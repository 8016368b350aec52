package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/fansqz/mcfunction-debugger/error"
)

func writeTestFile(t *testing.T, path string, content string) {
	require.Nil(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDatapack(t *testing.T) {
	p := newTestParser(t)
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "pack.mcmeta"), `{"pack":{"pack_format":15,"description":""}}`)
	writeTestFile(t, filepath.Join(dir, "data", "test", "functions", "main.mcfunction"),
		"say start\r\n  function test:sub/inner  \n# breakpoint\n\nsay end\n")
	writeTestFile(t, filepath.Join(dir, "data", "test", "functions", "sub", "inner.mcfunction"), "say inner")
	writeTestFile(t, filepath.Join(dir, "data", "other", "function", "a.mcfunction"), "")
	writeTestFile(t, filepath.Join(dir, "data", "test", "functions", "readme.txt"), "not a function")

	functions, err := LoadDatapack(context.Background(), p, dir)
	require.Nil(t, err)
	assert.Equal(t, []string{"other:a", "test:main", "test:sub/inner"}, func() []string {
		var names []string
		for _, name := range SortedNames(functions) {
			names = append(names, name.String())
		}
		return names
	}())

	main := functions[location("test", "main")]
	require.Len(t, main.Lines, 5)
	assert.Equal(t, "function test:sub/inner", main.Lines[1].Text)
	assert.Equal(t, FunctionCall{Name: location("test", "sub/inner")}, main.Lines[1].Line)
	assert.Equal(t, Breakpoint{}, main.Lines[2].Line)
	assert.Equal(t, Empty{}, main.Lines[3].Line)
	assert.Equal(t, 5, main.Lines[4].Number)
	assert.Equal(t, []FunctionCallSite{{Line: 2, Call: FunctionCall{Name: location("test", "sub/inner")}}}, main.Calls())

	assert.Empty(t, functions[location("other", "a")].Lines)
}

func TestLoadDatapackWithoutMcmeta(t *testing.T) {
	p := newTestParser(t)
	_, err := LoadDatapack(context.Background(), p, t.TempDir())
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, e.ErrInvalidDatapack))
}

func TestFunctionName(t *testing.T) {
	name, ok := FunctionName("/pack/data", "/pack/data/ns/functions/a/b.mcfunction")
	assert.True(t, ok)
	assert.Equal(t, location("ns", "a/b"), name)

	_, ok = FunctionName("/pack/data", "/pack/data/ns/loot_tables/a.mcfunction")
	assert.False(t, ok)
}
