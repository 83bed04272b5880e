package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/resolve"
	"github.com/equal1/eq1-pulse/internal/validate"
)

func TestBuiltProgramsAreValid(t *testing.T) {
	programs := map[string]ir.Program{
		"play_wait":     PlayWaitProgram("q0", 50),
		"drive_readout": DriveReadoutSchedule(40),
	}
	for name, prog := range programs {
		t.Run(name, func(t *testing.T) {
			_, err := validate.Program(prog)
			require.NoError(t, err)
			_, err = resolve.Program(prog)
			require.NoError(t, err)
		})
	}
}

func TestDistinctAmplitudesDistinctIDs(t *testing.T) {
	a := ir.MustProgramID(PlayWaitProgram("q0", 10))
	b := ir.MustProgramID(PlayWaitProgram("q0", 20))
	assert.NotEqual(t, a, b)
}
