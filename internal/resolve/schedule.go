package resolve

import (
	"fmt"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

// Schedule resolves the explicit reference graph in a single left-to-right
// pass: anchors may only name items already placed, so each item's start
// follows directly from the token table.
func Schedule(sched *ir.Schedule) (*Document, error) {
	r := &schedResolver{
		pulses: make(map[ir.PulseRef]ir.Pulse),
		active: make(map[string]struct{}),
	}
	nodes, _, err := r.run(sched, "", nil)
	if err != nil {
		return nil, err
	}
	return &Document{Type: ir.ProgramSchedule, Items: nodes}, nil
}

type schedResolver struct {
	pulses map[ir.PulseRef]ir.Pulse

	// active tracks block expansions currently on the resolution stack.
	// Structurally a def cannot contain itself, but inserts resolve
	// against the enclosing def chain, so the check stays.
	active map[string]struct{}
}

// token is one placed item's handle: valid only for the duration of the
// resolution pass that created it.
type token struct {
	start    unit.Time
	duration unit.Time
}

func (t *token) point(pt ir.RefPt) unit.Time {
	switch pt {
	case ir.RefCenter:
		return t.start.Add(t.duration.Scale(0.5))
	case ir.RefEnd:
		return t.start.Add(t.duration)
	default:
		return t.start
	}
}

// anchorOffset is the displacement from an operation's start to its named
// reference point.
func anchorOffset(pt ir.RefPt, duration unit.Time) unit.Time {
	switch pt {
	case ir.RefCenter:
		return duration.Scale(0.5)
	case ir.RefEnd:
		return duration
	default:
		return unit.Nanoseconds(0)
	}
}

// defScope chains block definitions lexically: a block's inserts see its
// own defs first, then the enclosing schedule's.
type defScope struct {
	parent *defScope
	blocks map[string]*ir.Schedule
	used   map[string]bool
	paths  map[string]string
}

func newDefScope(parent *defScope, defs []ir.BlockDef, path string) (*defScope, *Error) {
	scope := &defScope{
		parent: parent,
		blocks: make(map[string]*ir.Schedule, len(defs)),
		used:   make(map[string]bool, len(defs)),
		paths:  make(map[string]string, len(defs)),
	}
	for i, def := range defs {
		if _, ok := scope.blocks[def.Name]; ok {
			return nil, errorf(KindUnconsumedBlock, joinPath(path, fmt.Sprintf("defs[%d]", i)),
				"block %q defined twice", def.Name)
		}
		scope.blocks[def.Name] = def.Block
		scope.paths[def.Name] = joinPath(path, fmt.Sprintf("defs[%d]", i))
	}
	return scope, nil
}

// consume marks a block inserted and returns it. A block may be inserted
// exactly once.
func (s *defScope) consume(name, path string) (*ir.Schedule, *Error) {
	for scope := s; scope != nil; scope = scope.parent {
		block, ok := scope.blocks[name]
		if !ok {
			continue
		}
		if scope.used[name] {
			return nil, errorf(KindUnconsumedBlock, path,
				"block %q inserted more than once", name)
		}
		scope.used[name] = true
		return block, nil
	}
	return nil, errorf(KindUnresolvedReference, path, "block %q is not defined", name)
}

// checkConsumed fails if any def of this scope was never inserted.
func (s *defScope) checkConsumed() *Error {
	for name := range s.blocks {
		if !s.used[name] {
			return errorf(KindUnconsumedBlock, s.paths[name],
				"block %q was never inserted", name)
		}
	}
	return nil
}

// run resolves one schedule in its own local time origin and reports the
// envelope: the furthest end any item reaches past the origin.
func (r *schedResolver) run(sched *ir.Schedule, path string, parent *defScope) ([]Node, unit.Time, *Error) {
	scope, err := newDefScope(parent, sched.Defs, path)
	if err != nil {
		return nil, unit.Time{}, err
	}

	table := make(map[string]*token)
	envelope := unit.Nanoseconds(0)
	var out []Node

	for i, item := range sched.Items {
		itemPath := joinPath(path, fmt.Sprintf("items[%d]", i))

		local, dur, err := r.resolveOp(item.Op, joinPath(itemPath, "op"), scope)
		if err != nil {
			return nil, unit.Time{}, err
		}

		start, err := r.anchor(item, dur, table, itemPath)
		if err != nil {
			return nil, unit.Time{}, err
		}

		out = append(out, shiftNodes(local, start)...)
		if end := start.Add(dur); end.Cmp(envelope) > 0 {
			envelope = end
		}
		if item.Name != "" {
			table[item.Name] = &token{start: start, duration: dur}
		}
	}

	if err := scope.checkConsumed(); err != nil {
		return nil, unit.Time{}, err
	}
	return out, envelope, nil
}

// anchor computes an item's absolute start from its reference: the instant
// ref_pt of the referenced token, plus rel_time, lands on the instant
// ref_pt_new of the new item.
func (r *schedResolver) anchor(item ir.ScheduledOp, dur unit.Time, table map[string]*token, path string) (unit.Time, *Error) {
	refPt := item.EffectiveRefPt()
	refPtNew := item.EffectiveRefPtNew()
	if !refPt.Valid() {
		return unit.Time{}, errorf(KindUnresolvedReference, joinPath(path, "ref_pt"),
			"unknown reference point %q", string(item.RefPt))
	}
	if !refPtNew.Valid() {
		return unit.Time{}, errorf(KindUnresolvedReference, joinPath(path, "ref_pt_new"),
			"unknown reference point %q", string(item.RefPtNew))
	}

	refTime := unit.Nanoseconds(0)
	if item.RefOp != "" {
		entry, ok := table[item.RefOp]
		if !ok {
			return unit.Time{}, errorf(KindUnresolvedReference, joinPath(path, "ref_op"),
				"%q is not defined before this item", item.RefOp)
		}
		refTime = entry.point(refPt)
	}
	aligned := refTime
	if item.RelTime != nil {
		aligned = aligned.Add(*item.RelTime)
	}
	return aligned.Sub(anchorOffset(refPtNew, dur)), nil
}

// resolveOp resolves one scheduled op in a local origin at t=0, returning
// its nodes and its duration for anchoring.
func (r *schedResolver) resolveOp(op ir.Op, path string, scope *defScope) ([]Node, unit.Time, *Error) {
	switch node := op.(type) {
	case *ir.InsertBlock:
		return r.expandBlock(node.Block, path, scope)
	case *ir.Schedule:
		return r.run(node, path, scope)
	case *ir.ScheduleRepeat:
		if node.Count <= 0 {
			return nil, unit.Time{}, errorf(KindInvalidRepeatCount, path,
				"repeat count must be positive, got %d", node.Count)
		}
		body, delta, err := r.run(node.Body, joinPath(path, "body"), scope)
		if err != nil {
			return nil, unit.Time{}, err
		}
		var out []Node
		for k := 0; k < node.Count; k++ {
			out = append(out, shiftNodes(body, delta.Scale(float64(k)))...)
		}
		return out, delta.Scale(float64(node.Count)), nil
	case *ir.ScheduleFor:
		values, err := node.Domain.Expand()
		if err != nil {
			return nil, unit.Time{}, errorf(KindUnitMismatch, joinPath(path, "domain"), "%v", err)
		}
		offset := unit.Nanoseconds(0)
		var out []Node
		for _, value := range values {
			b := binding{name: node.Var, value: value}
			body, serr := b.schedule(node.Body, joinPath(path, "body"))
			if serr != nil {
				return nil, unit.Time{}, serr
			}
			nodes, delta, rerr := r.run(body, joinPath(path, "body"), scope)
			if rerr != nil {
				return nil, unit.Time{}, rerr
			}
			out = append(out, shiftNodes(nodes, offset)...)
			offset = offset.Add(delta)
		}
		return out, offset, nil
	case *ir.ScheduleIf:
		body, bodyDur, err := r.run(node.Body, joinPath(path, "body"), scope)
		if err != nil {
			return nil, unit.Time{}, err
		}
		dur := bodyDur
		var elseNodes []Node
		if node.Else != nil {
			var elseDur unit.Time
			if elseNodes, elseDur, err = r.run(node.Else, joinPath(path, "else"), scope); err != nil {
				return nil, unit.Time{}, err
			}
			if elseDur.Cmp(dur) > 0 {
				dur = elseDur
			}
		}
		return []Node{&Branch{Var: node.Var, Body: body, Else: elseNodes}}, dur, nil
	case *ir.PulseDecl:
		r.pulses[node.Name] = node.Pulse
		return []Node{TimedOp{Start: unit.Nanoseconds(0), Op: op}}, unit.Nanoseconds(0), nil
	default:
		return r.resolveLeaf(op, path)
	}
}

// expandBlock consumes a named def and resolves it, guarding against
// re-entrant expansion through the active-token set.
func (r *schedResolver) expandBlock(name, path string, scope *defScope) ([]Node, unit.Time, *Error) {
	if _, ok := r.active[name]; ok {
		return nil, unit.Time{}, errorf(KindCyclicReference, path,
			"block %q is already being expanded", name)
	}
	block, err := scope.consume(name, path)
	if err != nil {
		return nil, unit.Time{}, err
	}
	r.active[name] = struct{}{}
	defer delete(r.active, name)
	return r.run(block, path, scope)
}

// resolveLeaf handles channel and data operations: local start 0, duration
// per the operation's timing rule.
func (r *schedResolver) resolveLeaf(op ir.Op, path string) ([]Node, unit.Time, *Error) {
	dur, err := r.leafDuration(op, path)
	if err != nil {
		return nil, unit.Time{}, err
	}
	return []Node{TimedOp{Start: unit.Nanoseconds(0), Op: op}}, dur, nil
}

func (r *schedResolver) leafDuration(op ir.Op, path string) (unit.Time, *Error) {
	seq := &seqResolver{pulses: r.pulses}
	switch node := op.(type) {
	case *ir.Play:
		return seq.pulseDuration(node.Pulse, joinPath(path, "pulse"))
	case *ir.Wait:
		return seq.timeOf(node.Duration, joinPath(path, "duration"))
	case *ir.Record:
		return seq.acquisitionSpan(node.Duration, node.TimeOfFlight, path)
	case *ir.Trace:
		return seq.acquisitionSpan(node.Duration, node.TimeOfFlight, path)
	case *ir.CompensateDC:
		if node.Duration == nil {
			return unit.Nanoseconds(0), nil
		}
		return seq.timeOf(*node.Duration, joinPath(path, "duration"))
	case *ir.Barrier, *ir.SetFrequency, *ir.ShiftFrequency, *ir.SetPhase, *ir.ShiftPhase,
		*ir.VarDecl, *ir.Discriminate, *ir.Store:
		return unit.Nanoseconds(0), nil
	default:
		return unit.Time{}, errorf(KindUnresolvedReference, path, "unexpected node %T", op)
	}
}
