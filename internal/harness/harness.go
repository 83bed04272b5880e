package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/resolve"
	"github.com/equal1/eq1-pulse/internal/validate"
)

// Result holds a resolved scenario's outputs.
type Result struct {
	Document   *resolve.Document
	ProgramID  string
	ResolvedID string
}

// Run decodes, validates, and resolves a scenario's program.
func Run(s *Scenario) (*Result, error) {
	prog, err := s.DecodeProgram()
	if err != nil {
		return nil, err
	}

	if _, err := validate.Program(prog); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	doc, err := resolve.Program(prog)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	programID, err := ir.ProgramID(prog)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	resolvedID, err := doc.ContentID()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	return &Result{Document: doc, ProgramID: programID, ResolvedID: resolvedID}, nil
}

// RunWithGolden resolves a scenario and compares the resolved document's
// canonical serialization against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return err
	}

	canonical, err := ir.MarshalCanonical(result.Document)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, canonical)

	return nil
}
