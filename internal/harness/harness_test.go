package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioGoldens(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestRunReportsContentIDs(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/square_play_sequence.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Len(t, result.ProgramID, 64)
	assert.Len(t, result.ResolvedID, 64)
	assert.NotEqual(t, result.ProgramID, result.ResolvedID)
	assert.Len(t, result.Document.Items, 3)
}

func TestRunIsDeterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/anchored_readout_schedule.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.ResolvedID, second.ResolvedID)
}

func TestLoadScenarioRequiresName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("description: no name\nprogram: {type: Sequence, items: []}\n"), 0o644))
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenarioRequiresProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o644))
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program is required")
}

func TestRunRejectsInvalidProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.yaml")
	scenario := `name: invalid
program:
  type: Sequence
  items:
    - op_type: wait
      channels: [q0]
      duration: ghost
`
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))
	s, err := LoadScenario(path)
	require.NoError(t, err)

	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}
