package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

func play(ch string, dur unit.Time) *ir.Play {
	return &ir.Play{
		Channel: ir.ChannelRef(ch),
		Pulse: ir.PulseInline(&ir.SquarePulse{
			Duration:  ir.TimeOf(dur),
			Amplitude: ir.AmpOf(unit.ComplexMillivolts(50)),
		}),
	}
}

func seqProgram(items ...ir.Op) ir.Program {
	return ir.Program{Sequence: &ir.Sequence{Items: items}}
}

func TestValidSequenceBindsReferences(t *testing.T) {
	prog := seqProgram(
		&ir.VarDecl{Name: "dur", DType: ir.DTypeFloat, Unit: "time"},
		&ir.VarDecl{Name: "m", DType: ir.DTypeComplex},
		&ir.Wait{Channels: []ir.ChannelRef{"q"}, Duration: ir.TimeVar("dur")},
		&ir.Record{Channel: "ro", Var: "m", Duration: ir.TimeOf(unit.Microseconds(1)),
			Integration: ir.FullIntegration()},
	)

	res, err := Program(prog)
	require.NoError(t, err)

	require.Contains(t, res.Bindings, "items[2].duration")
	assert.Equal(t, "items[0]", res.Bindings["items[2].duration"].Path)
	require.Contains(t, res.Bindings, "items[3].var")
	assert.Equal(t, "items[1]", res.Bindings["items[3].var"].Path)
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		prog     ir.Program
		wantKind Kind
		wantPath string
	}{
		{
			"undeclared variable",
			seqProgram(&ir.Wait{Channels: []ir.ChannelRef{"q"}, Duration: ir.TimeVar("x")}),
			KindUndeclaredVariable,
			"items[0].duration",
		},
		{
			"forward reference",
			seqProgram(
				&ir.Wait{Channels: []ir.ChannelRef{"q"}, Duration: ir.TimeVar("dur")},
				&ir.VarDecl{Name: "dur", DType: ir.DTypeFloat, Unit: "time"},
			),
			KindForwardReference,
			"items[0].duration",
		},
		{
			"duplicate declaration same frame",
			seqProgram(
				&ir.VarDecl{Name: "m", DType: ir.DTypeFloat},
				&ir.VarDecl{Name: "m", DType: ir.DTypeComplex},
			),
			KindDuplicateDeclaration,
			"items[1]",
		},
		{
			"nested scope may not shadow",
			seqProgram(
				&ir.VarDecl{Name: "m", DType: ir.DTypeFloat},
				&ir.Repeat{Count: 2, Body: (&ir.Sequence{}).Append(
					&ir.VarDecl{Name: "m", DType: ir.DTypeFloat},
				)},
			),
			KindDuplicateDeclaration,
			"items[1].body.items[0]",
		},
		{
			"empty channel",
			seqProgram(play("", unit.Nanoseconds(10))),
			KindInvalidChannel,
			"items[0]",
		},
		{
			"malformed channel",
			seqProgram(play("q 0", unit.Nanoseconds(10))),
			KindInvalidChannel,
			"items[0]",
		},
		{
			"negative duration",
			seqProgram(&ir.Wait{Channels: []ir.ChannelRef{"q"},
				Duration: ir.TimeOf(unit.Nanoseconds(-5))}),
			KindNegativeDuration,
			"items[0].duration",
		},
		{
			"square ramps exceed duration",
			seqProgram(&ir.Play{Channel: "q", Pulse: ir.PulseInline(&ir.SquarePulse{
				Duration:  ir.TimeOf(unit.Nanoseconds(10)),
				Amplitude: ir.AmpOf(unit.ComplexMillivolts(1)),
				RiseTime:  timeArgPtr(ir.TimeOf(unit.Nanoseconds(8))),
				FallTime:  timeArgPtr(ir.TimeOf(unit.Nanoseconds(8))),
			})}),
			KindNegativeDuration,
			"items[0].pulse",
		},
		{
			"non-positive repeat count",
			seqProgram(&ir.Repeat{Count: 0, Body: &ir.Sequence{}}),
			KindInvalidRepeatCount,
			"items[0]",
		},
		{
			"empty iteration domain",
			seqProgram(&ir.For{Var: "i",
				Domain: ir.IterDomain{Range: &ir.RangeDomain{Start: 2, Stop: 2}},
				Body:   &ir.Sequence{}}),
			KindEmptyIterationDomain,
			"items[0].domain",
		},
		{
			"linspace unit mismatch",
			seqProgram(&ir.For{Var: "d",
				Domain: ir.IterDomain{Linspace: &ir.LinspaceDomain{
					Start: ir.Literal{Value: 0, Unit: "ns"},
					Stop:  ir.Literal{Value: 1, Unit: "GHz"},
					Num:   3,
				}},
				Body: &ir.Sequence{}}),
			KindUnitMismatch,
			"items[0].domain",
		},
		{
			"condition must be bool",
			seqProgram(
				&ir.VarDecl{Name: "m", DType: ir.DTypeFloat},
				&ir.If{Var: "m", Body: &ir.Sequence{}},
			),
			KindUnitMismatch,
			"items[1].var",
		},
		{
			"variable kind mismatch",
			seqProgram(
				&ir.VarDecl{Name: "f", DType: ir.DTypeFloat, Unit: "frequency"},
				&ir.Wait{Channels: []ir.ChannelRef{"q"}, Duration: ir.TimeVar("f")},
			),
			KindUnitMismatch,
			"items[1].duration",
		},
		{
			"undeclared pulse",
			seqProgram(&ir.Play{Channel: "q", Pulse: ir.PulseNamed("pi_pulse")}),
			KindUndeclaredVariable,
			"items[0].pulse",
		},
		{
			"sample and time point length mismatch",
			seqProgram(&ir.Play{Channel: "q", Pulse: ir.PulseInline(&ir.ArbitraryPulse{
				Samples:    []ir.Sample{{0, 0}, {1, 0}},
				Duration:   ir.TimeOf(unit.Nanoseconds(20)),
				Amplitude:  ir.AmpOf(unit.ComplexMillivolts(1)),
				TimePoints: []float64{0, 0.5, 1},
			})}),
			KindInvalidSamplePoints,
			"items[0].pulse.time_points",
		},
		{
			"non-monotonic time points",
			seqProgram(&ir.Play{Channel: "q", Pulse: ir.PulseInline(&ir.ArbitraryPulse{
				Samples:    []ir.Sample{{0, 0}, {0.5, 0}, {1, 0}},
				Duration:   ir.TimeOf(unit.Nanoseconds(20)),
				Amplitude:  ir.AmpOf(unit.ComplexMillivolts(1)),
				TimePoints: []float64{0, 0.7, 0.5},
			})}),
			KindInvalidSamplePoints,
			"items[0].pulse.time_points",
		},
		{
			"sample out of range",
			seqProgram(&ir.Play{Channel: "q", Pulse: ir.PulseInline(&ir.ArbitraryPulse{
				Samples:   []ir.Sample{{0, 0}, {1.5, 0}},
				Duration:  ir.TimeOf(unit.Nanoseconds(20)),
				Amplitude: ir.AmpOf(unit.ComplexMillivolts(1)),
			})}),
			KindInvalidSamplePoints,
			"items[0].pulse.samples[1]",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Program(tc.prog)
			require.Error(t, err)
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantKind, verr.Kind)
			assert.Equal(t, tc.wantPath, verr.Path)
		})
	}
}

func TestLoopVariableScoping(t *testing.T) {
	t.Run("loop variable usable in body", func(t *testing.T) {
		prog := seqProgram(&ir.For{
			Var:    "d",
			Domain: ir.IterDomain{Values: []ir.Literal{{Value: 10, Unit: "ns"}, {Value: 20, Unit: "ns"}}},
			Body: (&ir.Sequence{}).Append(
				&ir.Wait{Channels: []ir.ChannelRef{"q"}, Duration: ir.TimeVar("d")},
			),
		})
		_, err := Program(prog)
		assert.NoError(t, err)
	})

	t.Run("loop variable out of scope after loop", func(t *testing.T) {
		prog := seqProgram(
			&ir.For{
				Var:    "d",
				Domain: ir.IterDomain{Values: []ir.Literal{{Value: 10, Unit: "ns"}}},
				Body:   &ir.Sequence{},
			},
			&ir.Wait{Channels: []ir.ChannelRef{"q"}, Duration: ir.TimeVar("d")},
		)
		_, err := Program(prog)
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, KindUndeclaredVariable, verr.Kind)
	})

	t.Run("loop variable may not shadow", func(t *testing.T) {
		prog := seqProgram(
			&ir.VarDecl{Name: "d", DType: ir.DTypeFloat},
			&ir.For{
				Var:    "d",
				Domain: ir.IterDomain{Values: []ir.Literal{{Value: 1}}},
				Body:   &ir.Sequence{},
			},
		)
		_, err := Program(prog)
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, KindDuplicateDeclaration, verr.Kind)
	})
}

func TestScheduleValidation(t *testing.T) {
	t.Run("valid schedule with block def", func(t *testing.T) {
		prog := ir.Program{Schedule: &ir.Schedule{
			Defs: []ir.BlockDef{{
				Name: "readout",
				Block: (&ir.Schedule{}).Add(ir.ScheduledOp{
					Op: play("ro", unit.Nanoseconds(400)),
				}),
			}},
			Items: []ir.ScheduledOp{
				{Name: "op1", Op: play("q", unit.Nanoseconds(100))},
				{RefOp: "op1", Op: &ir.InsertBlock{Block: "readout"}},
			},
		}}
		_, err := Program(prog)
		assert.NoError(t, err)
	})

	t.Run("declarations cross scheduled items", func(t *testing.T) {
		prog := ir.Program{Schedule: (&ir.Schedule{}).Add(
			ir.ScheduledOp{Op: &ir.VarDecl{Name: "flag", DType: ir.DTypeBool}},
			ir.ScheduledOp{Op: &ir.ScheduleIf{
				Var:  "flag",
				Body: (&ir.Schedule{}).Add(ir.ScheduledOp{Op: play("q", unit.Nanoseconds(10))}),
			}},
		)}
		_, err := Program(prog)
		assert.NoError(t, err)
	})

	t.Run("schedule repeat count", func(t *testing.T) {
		prog := ir.Program{Schedule: (&ir.Schedule{}).Add(
			ir.ScheduledOp{Op: &ir.ScheduleRepeat{Count: -1, Body: &ir.Schedule{}}},
		)}
		_, err := Program(prog)
		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, KindInvalidRepeatCount, verr.Kind)
		assert.Equal(t, "items[0].op", verr.Path)
	})
}

func timeArgPtr(a ir.TimeArg) *ir.TimeArg { return &a }
