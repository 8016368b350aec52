package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	e "github.com/fansqz/mcfunction-debugger/error"
)

func TestParseLaunchArguments(t *testing.T) {
	args, err := ParseLaunchArguments([]byte(`{"datapack":"dp","function":"test:main","serverDir":"server","serverCommand":["java","-jar","server.jar","nogui"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "-jar", "server.jar", "nogui"}, args.ServerCommand)
	assert.Equal(t, "test:main", args.Function)

	for _, raw := range []string{
		`{`,
		`{"function":"test:main","serverDir":"s","serverCommand":["x"]}`,
		`{"datapack":"dp","serverDir":"s","serverCommand":["x"]}`,
		`{"datapack":"dp","function":"test:main","serverCommand":["x"]}`,
		`{"datapack":"dp","function":"test:main","serverDir":"s","logFile":"latest.log"}`,
	} {
		_, err = ParseLaunchArguments([]byte(raw))
		assert.ErrorIs(t, err, e.ErrInvalidLaunchArguments, raw)
	}
}
