package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

func relNs(v float64) *unit.Time {
	t := unit.Nanoseconds(v)
	return &t
}

func TestScheduleEndToStartAnchor(t *testing.T) {
	doc, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{Name: "op1", Op: play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(50))},
		ir.ScheduledOp{
			Name:    "op2",
			RefOp:   "op1",
			RefPt:   ir.RefEnd,
			RelTime: relNs(200),
			Op:      play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(30)),
		},
	))
	require.NoError(t, err)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, 0.0, doc.Items[0].(TimedOp).Start.Ns())
	assert.Equal(t, 300.0, doc.Items[1].(TimedOp).Start.Ns())
}

func TestSchedulePointArithmetic(t *testing.T) {
	base := ir.ScheduledOp{Name: "a", Op: play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(10))}
	newOp := func(refPt, refPtNew ir.RefPt, rel *unit.Time) ir.Program {
		return ir.Program{Schedule: (&ir.Schedule{}).Add(base, ir.ScheduledOp{
			RefOp:    "a",
			RefPt:    refPt,
			RefPtNew: refPtNew,
			RelTime:  rel,
			Op:       play("q", unit.Nanoseconds(40), unit.ComplexMillivolts(10)),
		})}
	}

	tests := []struct {
		name      string
		prog      ir.Program
		wantStart float64
	}{
		{"end to start, zero offset", newOp(ir.RefEnd, ir.RefStart, nil), 100},
		{"start to start, negative offset", newOp(ir.RefStart, ir.RefStart, relNs(-50)), -50},
		{"center to center", newOp(ir.RefCenter, ir.RefCenter, nil), 30},
		{"end to end", newOp(ir.RefEnd, ir.RefEnd, nil), 60},
		{"defaults are end to start", newOp("", "", nil), 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Program(tc.prog)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, doc.Items[1].(TimedOp).Start.Ns())
		})
	}
}

func TestScheduleRepeatCountMustBePositive(t *testing.T) {
	_, err := Schedule((&ir.Schedule{}).Add(ir.ScheduledOp{
		Op: &ir.ScheduleRepeat{Count: 0, Body: (&ir.Schedule{}).Add(
			ir.ScheduledOp{Op: play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1))},
		)},
	}))
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindInvalidRepeatCount, rerr.Kind)
}

func TestScheduleForwardReferenceFails(t *testing.T) {
	_, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{
			RefOp: "later",
			Op:    play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1)),
		},
		ir.ScheduledOp{Name: "later", Op: play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1))},
	))
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUnresolvedReference, rerr.Kind)
	assert.Equal(t, "items[0].ref_op", rerr.Path)
}

func TestScheduleBlockInsertion(t *testing.T) {
	doc, err := Schedule(&ir.Schedule{
		Defs: []ir.BlockDef{{
			Name: "readout",
			Block: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Name: "pulse", Op: play("ro", unit.Nanoseconds(400), unit.ComplexMillivolts(10))},
				ir.ScheduledOp{
					RefOp: "pulse",
					RefPt: ir.RefStart,
					Op:    play("ro2", unit.Nanoseconds(400), unit.ComplexMillivolts(10)),
				},
			),
		}},
		Items: []ir.ScheduledOp{
			{Name: "drive", Op: play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(50))},
			{
				Name:    "measure",
				RefOp:   "drive",
				RelTime: relNs(50),
				Op:      &ir.InsertBlock{Block: "readout"},
			},
			{
				RefOp: "measure",
				RefPt: ir.RefEnd,
				Op:    play("q", unit.Nanoseconds(20), unit.ComplexMillivolts(5)),
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, doc.Items, 4)

	// Block resolved at a local origin, then re-based to 150ns.
	assert.Equal(t, 150.0, doc.Items[1].(TimedOp).Start.Ns())
	assert.Equal(t, 150.0, doc.Items[2].(TimedOp).Start.Ns())

	// The insert's token spans the block envelope (400ns).
	assert.Equal(t, 550.0, doc.Items[3].(TimedOp).Start.Ns())
}

func TestScheduleUnconsumedBlockFails(t *testing.T) {
	_, err := Schedule(&ir.Schedule{
		Defs: []ir.BlockDef{{
			Name: "orphan",
			Block: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Op: play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1))},
			),
		}},
		Items: []ir.ScheduledOp{
			{Op: play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1))},
		},
	})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUnconsumedBlock, rerr.Kind)
	assert.Equal(t, "defs[0]", rerr.Path)
}

func TestScheduleDoubleInsertFails(t *testing.T) {
	block := (&ir.Schedule{}).Add(
		ir.ScheduledOp{Op: play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1))},
	)
	_, err := Schedule(&ir.Schedule{
		Defs: []ir.BlockDef{{Name: "b", Block: block}},
		Items: []ir.ScheduledOp{
			{Op: &ir.InsertBlock{Block: "b"}},
			{Op: &ir.InsertBlock{Block: "b"}},
		},
	})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUnconsumedBlock, rerr.Kind)
	assert.Contains(t, rerr.Message, "more than once")
}

func TestScheduleUnknownBlockFails(t *testing.T) {
	_, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{Op: &ir.InsertBlock{Block: "ghost"}},
	))
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindUnresolvedReference, rerr.Kind)
}

func TestScheduleCyclicBlockFails(t *testing.T) {
	// A block that re-inserts itself through the enclosing def chain.
	_, err := Schedule(&ir.Schedule{
		Defs: []ir.BlockDef{{
			Name: "loop",
			Block: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Op: &ir.InsertBlock{Block: "loop"}},
			),
		}},
		Items: []ir.ScheduledOp{
			{Op: &ir.InsertBlock{Block: "loop"}},
		},
	})
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindCyclicReference, rerr.Kind)
}

func TestScheduleRepeatTiles(t *testing.T) {
	doc, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{Name: "burst", Op: &ir.ScheduleRepeat{
			Count: 3,
			Body: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Op: play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(10))},
			),
		}},
		ir.ScheduledOp{
			RefOp: "burst",
			RefPt: ir.RefEnd,
			Op:    play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1)),
		},
	))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100, 200, 300}, startsOf(doc.Items, "q"))
}

func TestScheduleForTiles(t *testing.T) {
	doc, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{Op: &ir.ScheduleFor{
			Var: "d",
			Domain: ir.IterDomain{Values: []ir.Literal{
				{Value: 100, Unit: "ns"},
				{Value: 50, Unit: "ns"},
			}},
			Body: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Op: &ir.Play{Channel: "q", Pulse: ir.PulseInline(&ir.SquarePulse{
					Duration:  ir.TimeVar("d"),
					Amplitude: ir.AmpOf(unit.ComplexMillivolts(10)),
				})}},
			),
		}},
	))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100}, startsOf(doc.Items, "q"))
}

func TestScheduleConditionalEnvelope(t *testing.T) {
	doc, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{Op: &ir.VarDecl{Name: "flag", DType: ir.DTypeBool}},
		ir.ScheduledOp{Name: "branch", Op: &ir.ScheduleIf{
			Var: "flag",
			Body: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Op: play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(10))},
			),
			Else: (&ir.Schedule{}).Add(
				ir.ScheduledOp{Op: play("q", unit.Nanoseconds(30), unit.ComplexMillivolts(10))},
			),
		}},
		ir.ScheduledOp{
			RefOp: "branch",
			RefPt: ir.RefEnd,
			Op:    play("q", unit.Nanoseconds(10), unit.ComplexMillivolts(1)),
		},
	))
	require.NoError(t, err)

	branch, ok := doc.Items[1].(*Branch)
	require.True(t, ok)
	assert.Equal(t, []float64{0}, startsOf(branch.Body, "q"))

	// The follow-up anchors to the longer branch's end.
	assert.Equal(t, 100.0, doc.Items[2].(TimedOp).Start.Ns())
}

func TestResolvedScheduleRoundTrip(t *testing.T) {
	doc, err := Schedule((&ir.Schedule{}).Add(
		ir.ScheduledOp{Name: "op1", Op: play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(50))},
		ir.ScheduledOp{
			RefOp:   "op1",
			RelTime: relNs(200),
			Op:      play("q", unit.Nanoseconds(100), unit.ComplexMillivolts(30)),
		},
	))
	require.NoError(t, err)

	first, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(first), `"type":"Schedule"`)

	var parsed Document
	require.NoError(t, parsed.UnmarshalJSON(first))
	second, err := parsed.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
