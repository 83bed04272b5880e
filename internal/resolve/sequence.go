package resolve

import (
	"fmt"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

// Program resolves either container flavor into a flat timed document.
func Program(p ir.Program) (*Document, error) {
	switch {
	case p.Sequence != nil:
		return Sequence(p.Sequence)
	case p.Schedule != nil:
		return Schedule(p.Schedule)
	default:
		return nil, errorf(KindUnresolvedReference, "", "program holds no container")
	}
}

// Sequence assigns absolute start times by walking items in order with one
// cursor per channel. Identical input always yields identical output; the
// pass owns all of its state.
func Sequence(seq *ir.Sequence) (*Document, error) {
	r := newSeqResolver()
	nodes, err := r.resolveSeq(seq, "")
	if err != nil {
		return nil, err
	}
	return &Document{Type: ir.ProgramSequence, Items: nodes}, nil
}

type seqResolver struct {
	cursors map[ir.ChannelRef]unit.Time
	pulses  map[ir.PulseRef]ir.Pulse
}

func newSeqResolver() *seqResolver {
	return &seqResolver{
		cursors: make(map[ir.ChannelRef]unit.Time),
		pulses:  make(map[ir.PulseRef]ir.Pulse),
	}
}

// branchChild shares pulse declarations but works on a cursor copy, so a
// conditional branch can be resolved without committing its advances.
func (r *seqResolver) branchChild() *seqResolver {
	child := &seqResolver{
		cursors: make(map[ir.ChannelRef]unit.Time, len(r.cursors)),
		pulses:  r.pulses,
	}
	for ch, t := range r.cursors {
		child.cursors[ch] = t
	}
	return child
}

func (r *seqResolver) cursor(ch ir.ChannelRef) unit.Time {
	if t, ok := r.cursors[ch]; ok {
		return t
	}
	t := unit.Nanoseconds(0)
	r.cursors[ch] = t
	return t
}

func (r *seqResolver) resolveSeq(seq *ir.Sequence, path string) ([]Node, *Error) {
	var out []Node
	for i, item := range seq.Items {
		nodes, err := r.resolveItem(item, joinPath(path, fmt.Sprintf("items[%d]", i)))
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (r *seqResolver) resolveItem(item ir.Op, path string) ([]Node, *Error) {
	switch op := item.(type) {
	case *ir.Sequence:
		// Splices onto the current cursors.
		return r.resolveSeq(op, path)
	case *ir.Repeat:
		if op.Count <= 0 {
			return nil, errorf(KindInvalidRepeatCount, path,
				"repeat count must be positive, got %d", op.Count)
		}
		// Each instance is materialized with its own absolute times, so
		// re-walking the body per iteration costs the same as emitting the
		// closed form and stays exact when channel advances differ.
		var out []Node
		for k := 0; k < op.Count; k++ {
			nodes, err := r.resolveSeq(op.Body, joinPath(path, "body"))
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case *ir.For:
		values, err := op.Domain.Expand()
		if err != nil {
			return nil, errorf(KindUnitMismatch, joinPath(path, "domain"), "%v", err)
		}
		var out []Node
		for _, value := range values {
			b := binding{name: op.Var, value: value}
			body, serr := b.sequence(op.Body, joinPath(path, "body"))
			if serr != nil {
				return nil, serr
			}
			nodes, rerr := r.resolveSeq(body, joinPath(path, "body"))
			if rerr != nil {
				return nil, rerr
			}
			out = append(out, nodes...)
		}
		return out, nil
	case *ir.If:
		return r.resolveIf(op, path)
	default:
		return r.resolveLeaf(item, path)
	}
}

// resolveIf resolves both branches from the current cursors, then advances
// every known channel by the longer branch. Branch selection happens on
// hardware, so anything after the conditional must be safe under either
// outcome.
func (r *seqResolver) resolveIf(op *ir.If, path string) ([]Node, *Error) {
	bodyChild := r.branchChild()
	bodyNodes, err := bodyChild.resolveSeq(op.Body, joinPath(path, "body"))
	if err != nil {
		return nil, err
	}
	advance := r.maxAdvance(bodyChild)
	children := []*seqResolver{bodyChild}

	var elseNodes []Node
	if op.Else != nil {
		elseChild := r.branchChild()
		if elseNodes, err = elseChild.resolveSeq(op.Else, joinPath(path, "else")); err != nil {
			return nil, err
		}
		if elseAdv := r.maxAdvance(elseChild); elseAdv.Cmp(advance) > 0 {
			advance = elseAdv
		}
		children = append(children, elseChild)
	}

	// Channels first touched inside a branch join the table before the
	// shared advance.
	for _, child := range children {
		for ch := range child.cursors {
			r.cursor(ch)
		}
	}
	for ch, t := range r.cursors {
		r.cursors[ch] = t.Add(advance)
	}
	return []Node{&Branch{Var: op.Var, Body: bodyNodes, Else: elseNodes}}, nil
}

// maxAdvance is the largest per-channel cursor movement a branch made
// relative to this resolver's cursors.
func (r *seqResolver) maxAdvance(child *seqResolver) unit.Time {
	advance := unit.Nanoseconds(0)
	for ch, after := range child.cursors {
		before := unit.Nanoseconds(0)
		if t, ok := r.cursors[ch]; ok {
			before = t
		}
		if d := after.Sub(before); d.Cmp(advance) > 0 {
			advance = d
		}
	}
	return advance
}

func (r *seqResolver) resolveLeaf(item ir.Op, path string) ([]Node, *Error) {
	switch op := item.(type) {
	case *ir.Play:
		dur, err := r.pulseDuration(op.Pulse, joinPath(path, "pulse"))
		if err != nil {
			return nil, err
		}
		start := r.cursor(op.Channel)
		r.cursors[op.Channel] = start.Add(dur)
		return []Node{TimedOp{Start: start, Op: op}}, nil
	case *ir.Wait:
		dur, err := r.timeOf(op.Duration, joinPath(path, "duration"))
		if err != nil {
			return nil, err
		}
		start := r.earliestCursor(op.Channels)
		for _, ch := range op.Channels {
			r.cursors[ch] = r.cursor(ch).Add(dur)
		}
		return []Node{TimedOp{Start: start, Op: op}}, nil
	case *ir.Barrier:
		channels := op.Channels
		if len(channels) == 0 {
			channels = r.knownChannels()
		}
		joined := unit.Nanoseconds(0)
		for _, ch := range channels {
			if t := r.cursor(ch); t.Cmp(joined) > 0 {
				joined = t
			}
		}
		for _, ch := range channels {
			r.cursors[ch] = joined
		}
		return []Node{TimedOp{Start: joined, Op: op}}, nil
	case *ir.SetFrequency:
		return r.instantaneous(item, op.Channel), nil
	case *ir.ShiftFrequency:
		return r.instantaneous(item, op.Channel), nil
	case *ir.SetPhase:
		return r.instantaneous(item, op.Channel), nil
	case *ir.ShiftPhase:
		return r.instantaneous(item, op.Channel), nil
	case *ir.Record:
		dur, err := r.acquisitionSpan(op.Duration, op.TimeOfFlight, path)
		if err != nil {
			return nil, err
		}
		start := r.cursor(op.Channel)
		r.cursors[op.Channel] = start.Add(dur)
		return []Node{TimedOp{Start: start, Op: op}}, nil
	case *ir.Trace:
		dur, err := r.acquisitionSpan(op.Duration, op.TimeOfFlight, path)
		if err != nil {
			return nil, err
		}
		start := r.cursor(op.Channel)
		r.cursors[op.Channel] = start.Add(dur)
		return []Node{TimedOp{Start: start, Op: op}}, nil
	case *ir.CompensateDC:
		dur := unit.Nanoseconds(0)
		if op.Duration != nil {
			var err *Error
			if dur, err = r.timeOf(*op.Duration, joinPath(path, "duration")); err != nil {
				return nil, err
			}
		}
		start := r.cursor(op.Channel)
		r.cursors[op.Channel] = start.Add(dur)
		return []Node{TimedOp{Start: start, Op: op}}, nil
	case *ir.PulseDecl:
		r.pulses[op.Name] = op.Pulse
		return []Node{TimedOp{Start: r.latestCursor(), Op: op}}, nil
	case *ir.VarDecl, *ir.Discriminate, *ir.Store:
		// Data operations take no channel time; they sit at the latest
		// point reached so far.
		return []Node{TimedOp{Start: r.latestCursor(), Op: item}}, nil
	default:
		return nil, errorf(KindUnresolvedReference, path, "unexpected node %T", item)
	}
}

func (r *seqResolver) instantaneous(op ir.Op, ch ir.ChannelRef) []Node {
	return []Node{TimedOp{Start: r.cursor(ch), Op: op}}
}

func (r *seqResolver) earliestCursor(channels []ir.ChannelRef) unit.Time {
	if len(channels) == 0 {
		return unit.Nanoseconds(0)
	}
	earliest := r.cursor(channels[0])
	for _, ch := range channels[1:] {
		if t := r.cursor(ch); t.Cmp(earliest) < 0 {
			earliest = t
		}
	}
	return earliest
}

func (r *seqResolver) latestCursor() unit.Time {
	latest := unit.Nanoseconds(0)
	for _, t := range r.cursors {
		if t.Cmp(latest) > 0 {
			latest = t
		}
	}
	return latest
}

func (r *seqResolver) knownChannels() []ir.ChannelRef {
	channels := make([]ir.ChannelRef, 0, len(r.cursors))
	for ch := range r.cursors {
		channels = append(channels, ch)
	}
	return channels
}

// timeOf requires a literal duration. Loop substitution has already run, so
// a still-symbolic argument cannot be resolved.
func (r *seqResolver) timeOf(a ir.TimeArg, path string) (unit.Time, *Error) {
	if a.IsVar() {
		return unit.Time{}, errorf(KindUnresolvedReference, path,
			"duration %q is still symbolic at resolution time", string(a.Var))
	}
	if a.Value == nil {
		return unit.Time{}, errorf(KindUnresolvedReference, path, "duration has no value")
	}
	if a.Value.IsNegative() {
		return unit.Time{}, errorf(KindNegativeDuration, path, "duration %s is negative", a.Value)
	}
	return *a.Value, nil
}

func (r *seqResolver) pulseDuration(a ir.PulseArg, path string) (unit.Time, *Error) {
	pulse := a.Pulse
	if a.IsRef() {
		declared, ok := r.pulses[a.Ref]
		if !ok {
			return unit.Time{}, errorf(KindUnresolvedReference, path,
				"pulse %q is not declared at this point", string(a.Ref))
		}
		pulse = declared
	}
	dur, err := r.timeOf(pulse.BaseDuration(), path)
	if err != nil {
		return unit.Time{}, err
	}
	if sq, ok := pulse.(*ir.SquarePulse); ok {
		if err := r.squareRamps(sq, dur, path); err != nil {
			return unit.Time{}, err
		}
	}
	return dur, nil
}

// squareRamps rejects ramps that leave the flat section with negative
// length. The validator already checks fully literal pulses; by this point
// loop substitution has run, so the check also covers durations that were
// still symbolic at validation time.
func (r *seqResolver) squareRamps(p *ir.SquarePulse, dur unit.Time, path string) *Error {
	ramps := unit.Nanoseconds(0)
	for _, ramp := range []struct {
		arg   *ir.TimeArg
		field string
	}{
		{p.RiseTime, "rise_time"},
		{p.FallTime, "fall_time"},
	} {
		if ramp.arg == nil {
			continue
		}
		t, err := r.timeOf(*ramp.arg, joinPath(path, ramp.field))
		if err != nil {
			return err
		}
		ramps = ramps.Add(t)
	}
	if ramps.Cmp(dur) > 0 {
		return errorf(KindNegativeDuration, path,
			"rise and fall ramps (%s) exceed pulse duration %s", ramps, dur)
	}
	return nil
}

// acquisitionSpan is the channel-busy span of a Record or Trace: the time
// of flight, then the acquisition window.
func (r *seqResolver) acquisitionSpan(duration ir.TimeArg, tof *unit.Time, path string) (unit.Time, *Error) {
	dur, err := r.timeOf(duration, joinPath(path, "duration"))
	if err != nil {
		return unit.Time{}, err
	}
	if tof != nil {
		if tof.IsNegative() {
			return unit.Time{}, errorf(KindNegativeDuration, joinPath(path, "time_of_flight"),
				"time of flight %s is negative", tof)
		}
		dur = dur.Add(*tof)
	}
	return dur, nil
}

func joinPath(base, elem string) string {
	if base == "" {
		return elem
	}
	return base + "." + elem
}
