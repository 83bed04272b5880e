package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equal1/eq1-pulse/internal/ir"
)

const sequenceJSON = `{
	"type": "Sequence",
	"items": [
		{"op_type": "play", "channel": "q0", "pulse": {
			"type": "SquarePulse",
			"duration": {"ns": 100},
			"amplitude": {"mV": 50}
		}},
		{"op_type": "wait", "channels": ["q0"], "duration": {"ns": 50}}
	]
}`

const sequenceYAML = `type: Sequence
items:
  - op_type: play
    channel: q0
    pulse:
      type: SquarePulse
      duration: {ns: 100}
      amplitude: {mV: 50}
  - op_type: wait
    channels: [q0]
    duration: {ns: 50}
`

func writeTempProgram(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProgramJSON(t *testing.T) {
	path := writeTempProgram(t, "seq.json", sequenceJSON)
	prog, raw, err := LoadProgram(path)
	require.NoError(t, err)
	require.NotNil(t, prog.Sequence)
	assert.Len(t, prog.Sequence.Items, 2)
	assert.JSONEq(t, sequenceJSON, string(raw))
}

func TestLoadProgramYAML(t *testing.T) {
	jsonPath := writeTempProgram(t, "seq.json", sequenceJSON)
	yamlPath := writeTempProgram(t, "seq.yaml", sequenceYAML)

	fromJSON, _, err := LoadProgram(jsonPath)
	require.NoError(t, err)
	fromYAML, _, err := LoadProgram(yamlPath)
	require.NoError(t, err)

	// Same program, same content id, regardless of the input syntax.
	assert.Equal(t, ir.MustProgramID(fromJSON), ir.MustProgramID(fromYAML))
}

func TestLoadProgramMissingFile(t *testing.T) {
	_, _, err := LoadProgram(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadProgramBadDocument(t *testing.T) {
	path := writeTempProgram(t, "bad.json", `{"type": "Graph", "items": []}`)
	_, _, err := LoadProgram(path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLoadProgramBadYAML(t *testing.T) {
	path := writeTempProgram(t, "bad.yaml", "type: [unclosed")
	_, _, err := LoadProgram(path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
