package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equal1/eq1-pulse/internal/unit"
)

func squarePlay(ch string, dur unit.Time, amp unit.Amplitude) *Play {
	return &Play{
		Channel: ChannelRef(ch),
		Pulse: PulseInline(&SquarePulse{
			Duration:  TimeOf(dur),
			Amplitude: AmpOf(amp),
		}),
	}
}

func TestPlayMarshalShape(t *testing.T) {
	op := squarePlay("q", unit.Nanoseconds(100), unit.ComplexMillivolts(50))

	data, err := json.Marshal(op)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"op_type": "play",
		"channel": "q",
		"pulse": {
			"type": "SquarePulse",
			"duration": {"ns": 100},
			"amplitude": {"mV": 50}
		}
	}`, string(data))

	// Discriminators come first.
	assert.Equal(t, `{"op_type":"play"`, string(data[:17]))
}

func TestSequenceProgramRoundTrip(t *testing.T) {
	prog := Program{Sequence: &Sequence{Items: []Op{
		&VarDecl{Name: "flag", DType: DTypeBool},
		squarePlay("q", unit.Nanoseconds(100), unit.ComplexMillivolts(50)),
		&Wait{Channels: []ChannelRef{"q"}, Duration: TimeOf(unit.Nanoseconds(50))},
		&Barrier{Channels: []ChannelRef{"q", "r"}},
		&SetFrequency{Channel: "r", Frequency: FreqOf(unit.Gigahertz(5))},
		&ShiftPhase{Channel: "r", Phase: PhaseOf(unit.Degrees(90))},
		&Record{
			Channel:      "ro",
			Var:          "m",
			Duration:     TimeOf(unit.Microseconds(1)),
			Integration:  DemodIntegration(),
			TimeOfFlight: timePtr(unit.Nanoseconds(200)),
		},
		&Discriminate{Target: "flag", Source: "m", Threshold: unit.Millivolts(10)},
		&If{
			Var:  "flag",
			Body: (&Sequence{}).Append(squarePlay("q", unit.Nanoseconds(20), unit.ComplexMillivolts(5))),
		},
		&Repeat{
			Count: 3,
			Body: (&Sequence{}).Append(
				squarePlay("q", unit.Nanoseconds(50), unit.ComplexMillivolts(100)),
				&Wait{Channels: []ChannelRef{"q"}, Duration: TimeOf(unit.Nanoseconds(50))},
			),
		},
		&Store{Key: "readout", Source: "m", Mode: StoreAverage},
	}}}

	first, err := json.Marshal(prog)
	require.NoError(t, err)

	var parsed Program
	require.NoError(t, json.Unmarshal(first, &parsed))
	require.NotNil(t, parsed.Sequence)
	require.Len(t, parsed.Sequence.Items, len(prog.Sequence.Items))

	second, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "round-trip must be byte-identical")
}

func TestNestedSequenceSerializesAsArray(t *testing.T) {
	inner := (&Sequence{}).Append(
		&Wait{Channels: []ChannelRef{"q"}, Duration: TimeOf(unit.Nanoseconds(10))},
	)
	prog := Program{Sequence: (&Sequence{}).Append(inner)}

	data, err := json.Marshal(prog)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "Sequence",
		"items": [[{"op_type": "wait", "channels": ["q"], "duration": {"ns": 10}}]]
	}`, string(data))

	var parsed Program
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Len(t, parsed.Sequence.Items, 1)
	nested, ok := parsed.Sequence.Items[0].(*Sequence)
	require.True(t, ok, "bare array decodes to a nested sequence")
	assert.Len(t, nested.Items, 1)
}

func TestArgUnions(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		data, err := json.Marshal(TimeOf(unit.Nanoseconds(100)))
		require.NoError(t, err)
		assert.JSONEq(t, `{"ns": 100}`, string(data))
	})

	t.Run("variable", func(t *testing.T) {
		data, err := json.Marshal(TimeVar("dur"))
		require.NoError(t, err)
		assert.Equal(t, `"dur"`, string(data))

		var arg TimeArg
		require.NoError(t, json.Unmarshal(data, &arg))
		assert.True(t, arg.IsVar())
		assert.Equal(t, VarRef("dur"), arg.Var)
	})

	t.Run("pulse reference", func(t *testing.T) {
		op := &Play{Channel: "q", Pulse: PulseNamed("pi_pulse")}
		data, err := json.Marshal(op)
		require.NoError(t, err)
		assert.JSONEq(t, `{"op_type": "play", "channel": "q", "pulse": "pi_pulse"}`, string(data))

		item, err := UnmarshalSequenceItem(data)
		require.NoError(t, err)
		play, ok := item.(*Play)
		require.True(t, ok)
		assert.Equal(t, PulseRef("pi_pulse"), play.Pulse.Ref)
	})
}

func TestPulseVariants(t *testing.T) {
	phase := PhaseOf(unit.Radians(0.5))
	toFreq := FreqOf(unit.Megahertz(250))
	tests := []struct {
		name  string
		pulse Pulse
	}{
		{"square with ramps", &SquarePulse{
			Duration:  TimeOf(unit.Nanoseconds(100)),
			Amplitude: AmpOf(unit.ComplexMillivolts(50)),
			RiseTime:  timeArgPtr(TimeOf(unit.Nanoseconds(10))),
			FallTime:  timeArgPtr(TimeOf(unit.Nanoseconds(10))),
		}},
		{"sine sweep", &SinePulse{
			Duration:    TimeOf(unit.Microseconds(2)),
			Amplitude:   AmpOf(unit.ComplexVolts(complex(0.1, 0.05))),
			Frequency:   FreqOf(unit.Megahertz(100)),
			Phase:       &phase,
			ToFrequency: &toFreq,
		}},
		{"external", &ExternalPulse{
			Function:  "lib.gauss",
			Duration:  TimeOf(unit.Nanoseconds(80)),
			Amplitude: AmpOf(unit.ComplexMillivolts(30)),
			Params:    map[string]float64{"sigma": 2.5},
		}},
		{"arbitrary", &ArbitraryPulse{
			Samples:       []Sample{{0, 0}, {0.5, 0.1}, {1, 0}},
			Duration:      TimeOf(unit.Nanoseconds(30)),
			Amplitude:     AmpOf(unit.ComplexMillivolts(20)),
			Interpolation: "linear",
			TimePoints:    []float64{0, 0.3, 1},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.pulse)
			require.NoError(t, err)

			parsed, err := UnmarshalPulse(data)
			require.NoError(t, err)
			assert.Equal(t, tc.pulse.PulseType(), parsed.PulseType())

			again, err := json.Marshal(parsed)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again))
		})
	}
}

func TestUnknownDiscriminators(t *testing.T) {
	_, err := UnmarshalPulse([]byte(`{"type": "TrianglePulse"}`))
	assert.ErrorContains(t, err, "unknown pulse type")

	_, err = UnmarshalSequenceItem([]byte(`{"op_type": "teleport"}`))
	assert.ErrorContains(t, err, "unknown op_type")

	_, err = UnmarshalSequenceItem([]byte(`{"channel": "q"}`))
	assert.ErrorContains(t, err, "lacks op_type")
}

func TestScheduleProgramRoundTrip(t *testing.T) {
	relTime := unit.Nanoseconds(200)
	prog := Program{Schedule: &Schedule{
		Defs: []BlockDef{{
			Name: "readout",
			Block: (&Schedule{}).Add(ScheduledOp{
				Op: squarePlay("ro", unit.Nanoseconds(400), unit.ComplexMillivolts(10)),
			}),
		}},
		Items: []ScheduledOp{
			{Name: "op1", Op: squarePlay("q", unit.Nanoseconds(100), unit.ComplexMillivolts(50))},
			{
				Name:    "op2",
				RefOp:   "op1",
				RefPt:   RefEnd,
				RelTime: &relTime,
				Op:      squarePlay("q", unit.Nanoseconds(100), unit.ComplexMillivolts(30)),
			},
			{RefOp: "op2", Op: &InsertBlock{Block: "readout"}},
		},
	}}

	first, err := json.Marshal(prog)
	require.NoError(t, err)

	var parsed Program
	require.NoError(t, json.Unmarshal(first, &parsed))
	require.NotNil(t, parsed.Schedule)
	require.Len(t, parsed.Schedule.Items, 3)
	require.Len(t, parsed.Schedule.Defs, 1)

	insert, ok := parsed.Schedule.Items[2].Op.(*InsertBlock)
	require.True(t, ok)
	assert.Equal(t, "readout", insert.Block)

	second, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestScheduledOpAnchorDefaults(t *testing.T) {
	item := ScheduledOp{RefOp: "op1", Op: &Barrier{}}
	assert.Equal(t, RefEnd, item.EffectiveRefPt())
	assert.Equal(t, RefStart, item.EffectiveRefPtNew())

	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ref_op": "op1", "op": {"op_type": "barrier"}}`, string(data))
}

func TestScheduleControlFlowDecode(t *testing.T) {
	raw := `{
		"op_type": "repeat",
		"count": 4,
		"body": {"op_type": "schedule", "items": [
			{"op": {"op_type": "wait", "channels": ["q"], "duration": {"ns": 10}}}
		]}
	}`
	op, err := UnmarshalScheduleOp([]byte(raw))
	require.NoError(t, err)

	rep, ok := op.(*ScheduleRepeat)
	require.True(t, ok, "repeat inside a schedule decodes to the schedule flavor")
	assert.Equal(t, 4, rep.Count)
	require.Len(t, rep.Body.Items, 1)
}

func TestIterDomainExpand(t *testing.T) {
	tests := []struct {
		name   string
		domain IterDomain
		want   []Literal
	}{
		{
			"explicit values",
			IterDomain{Values: []Literal{{Value: 10, Unit: "ns"}, {Value: 20, Unit: "ns"}}},
			[]Literal{{Value: 10, Unit: "ns"}, {Value: 20, Unit: "ns"}},
		},
		{
			"range default step",
			IterDomain{Range: &RangeDomain{Start: 0, Stop: 3}},
			[]Literal{{Value: 0}, {Value: 1}, {Value: 2}},
		},
		{
			"range descending",
			IterDomain{Range: &RangeDomain{Start: 3, Stop: 0, Step: -1}},
			[]Literal{{Value: 3}, {Value: 2}, {Value: 1}},
		},
		{
			"linspace inclusive",
			IterDomain{Linspace: &LinspaceDomain{
				Start: Literal{Value: 0, Unit: "ns"},
				Stop:  Literal{Value: 100, Unit: "ns"},
				Num:   5,
			}},
			[]Literal{
				{Value: 0, Unit: "ns"}, {Value: 25, Unit: "ns"}, {Value: 50, Unit: "ns"},
				{Value: 75, Unit: "ns"}, {Value: 100, Unit: "ns"},
			},
		},
		{
			"empty range",
			IterDomain{Range: &RangeDomain{Start: 5, Stop: 5}},
			nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.domain.Expand()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("linspace unit mismatch", func(t *testing.T) {
		_, err := IterDomain{Linspace: &LinspaceDomain{
			Start: Literal{Value: 0, Unit: "ns"},
			Stop:  Literal{Value: 1, Unit: "us"},
			Num:   3,
		}}.Expand()
		assert.Error(t, err)
	})
}

func TestProgramRequiresExactlyOneContainer(t *testing.T) {
	_, err := json.Marshal(Program{})
	assert.Error(t, err)

	_, err = json.Marshal(Program{Sequence: &Sequence{}, Schedule: &Schedule{}})
	assert.Error(t, err)

	var p Program
	err = json.Unmarshal([]byte(`{"type": "Graph", "items": []}`), &p)
	assert.ErrorContains(t, err, "unknown program type")
}

func timePtr(t unit.Time) *unit.Time { return &t }

func timeArgPtr(a TimeArg) *TimeArg { return &a }
