// Package testutil provides shared program builders for tests.
package testutil

import (
	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

// SquarePlay builds a play of a square pulse with the given duration and
// real amplitude.
func SquarePlay(channel string, durationNs, amplitudeMV float64) *ir.Play {
	return &ir.Play{
		Channel: ir.ChannelRef(channel),
		Pulse: ir.PulseInline(&ir.SquarePulse{
			Duration:  ir.TimeOf(unit.Nanoseconds(durationNs)),
			Amplitude: ir.AmpOf(unit.ComplexMillivolts(complex(amplitudeMV, 0))),
		}),
	}
}

// Wait builds a wait on the given channels.
func Wait(durationNs float64, channels ...string) *ir.Wait {
	refs := make([]ir.ChannelRef, len(channels))
	for i, ch := range channels {
		refs[i] = ir.ChannelRef(ch)
	}
	return &ir.Wait{Channels: refs, Duration: ir.TimeOf(unit.Nanoseconds(durationNs))}
}

// PlayWaitProgram builds a single-channel sequence program: a square play
// followed by a wait. Distinct amplitudes produce distinct content ids.
func PlayWaitProgram(channel string, amplitudeMV float64) ir.Program {
	return ir.Program{Sequence: (&ir.Sequence{}).Append(
		SquarePlay(channel, 100, amplitudeMV),
		Wait(50, channel),
	)}
}

// DriveReadoutSchedule builds a schedule program: a drive pulse with a
// record anchored a fixed gap after its end.
func DriveReadoutSchedule(gapNs float64) ir.Program {
	rel := unit.Nanoseconds(gapNs)
	return ir.Program{Schedule: (&ir.Schedule{}).Add(
		ir.ScheduledOp{Op: &ir.VarDecl{Name: "m", DType: ir.DTypeComplex}},
		ir.ScheduledOp{Name: "drive", Op: SquarePlay("q0", 200, 30)},
		ir.ScheduledOp{
			RefOp:   "drive",
			RefPt:   ir.RefEnd,
			RelTime: &rel,
			Op: &ir.Record{
				Channel:     "ro0",
				Var:         "m",
				Duration:    ir.TimeOf(unit.Microseconds(1)),
				Integration: ir.DemodIntegration(),
			},
		},
	)}
}
