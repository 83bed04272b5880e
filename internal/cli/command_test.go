package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommandAcceptsProgram(t *testing.T) {
	path := writeTempProgram(t, "seq.json", sequenceJSON)
	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "program is valid")
}

func TestValidateCommandJSONOutput(t *testing.T) {
	path := writeTempProgram(t, "seq.json", sequenceJSON)
	out, err := execute(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateCommandRejectsScopeError(t *testing.T) {
	path := writeTempProgram(t, "bad.json", `{
		"type": "Sequence",
		"items": [
			{"op_type": "wait", "channels": ["q0"], "duration": "undeclared_var"}
		]
	}`)
	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error")
}

func TestValidateCommandRejectsSchemaError(t *testing.T) {
	path := writeTempProgram(t, "bad.json", `{
		"type": "Sequence",
		"items": [{"op_type": "jump"}]
	}`)
	_, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestResolveCommandOutputsStarts(t *testing.T) {
	path := writeTempProgram(t, "seq.json", sequenceJSON)
	out, err := execute(t, "resolve", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"start":{"ns":0}`)
	assert.Contains(t, out, `"start":{"ns":100}`)
}

func TestResolveCommandWritesFile(t *testing.T) {
	path := writeTempProgram(t, "seq.json", sequenceJSON)
	outPath := filepath.Join(t.TempDir(), "resolved.json")
	_, err := execute(t, "resolve", path, "-o", outPath)
	require.NoError(t, err)
	assert.FileExists(t, outPath)
}

func TestFmtCommandIsIdempotent(t *testing.T) {
	path := writeTempProgram(t, "seq.json", sequenceJSON)
	first, err := execute(t, "fmt", path)
	require.NoError(t, err)

	// Canonical output re-formats to itself.
	again := writeTempProgram(t, "canon.json", strings.TrimSuffix(first, "\n"))
	second, err := execute(t, "fmt", again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestArchiveRoundTrip(t *testing.T) {
	progPath := writeTempProgram(t, "seq.json", sequenceJSON)
	dbPath := filepath.Join(t.TempDir(), "archive.db")

	putOut, err := execute(t, "archive", "--db", dbPath, "put", progPath, "--resolved")
	require.NoError(t, err)
	require.Contains(t, putOut, "archived ")

	fields := strings.Fields(putOut)
	require.GreaterOrEqual(t, len(fields), 2)
	contentID := fields[1]
	require.Len(t, contentID, 64)

	getOut, err := execute(t, "archive", "--db", dbPath, "get", contentID)
	require.NoError(t, err)
	assert.Contains(t, getOut, `"type":"Sequence"`)

	resolvedOut, err := execute(t, "archive", "--db", dbPath, "get", contentID, "--resolved")
	require.NoError(t, err)
	assert.Contains(t, resolvedOut, `"start":{"ns":0}`)

	listOut, err := execute(t, "archive", "--db", dbPath, "list")
	require.NoError(t, err)
	assert.Contains(t, listOut, contentID)
}

func TestArchiveGetUnknownIDFails(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "archive.db")
	_, err := execute(t, "archive", "--db", dbPath, "get", "deadbeef")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
