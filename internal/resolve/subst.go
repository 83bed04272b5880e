package resolve

import (
	"github.com/equal1/eq1-pulse/internal/ir"
)

// Substitution of loop literals. Each For iteration rewrites its body with
// the iteration value bound to the loop variable; only quantity-or-variable
// arguments substitute. Runtime variables (conditions, acquisition targets)
// stay symbolic.

type binding struct {
	name  ir.VarRef
	value ir.Literal
}

func (b binding) timeArg(a ir.TimeArg, path string) (ir.TimeArg, *Error) {
	if !a.IsVar() || a.Var != b.name {
		return a, nil
	}
	t, err := b.value.Time()
	if err != nil {
		return ir.TimeArg{}, errorf(KindUnitMismatch, path, "%v", err)
	}
	return ir.TimeOf(t), nil
}

func (b binding) freqArg(a ir.FreqArg, path string) (ir.FreqArg, *Error) {
	if !a.IsVar() || a.Var != b.name {
		return a, nil
	}
	f, err := b.value.Frequency()
	if err != nil {
		return ir.FreqArg{}, errorf(KindUnitMismatch, path, "%v", err)
	}
	return ir.FreqOf(f), nil
}

func (b binding) phaseArg(a ir.PhaseArg, path string) (ir.PhaseArg, *Error) {
	if !a.IsVar() || a.Var != b.name {
		return a, nil
	}
	p, err := b.value.Angle()
	if err != nil {
		return ir.PhaseArg{}, errorf(KindUnitMismatch, path, "%v", err)
	}
	return ir.PhaseOf(p), nil
}

func (b binding) ampArg(a ir.AmpArg, path string) (ir.AmpArg, *Error) {
	if !a.IsVar() || a.Var != b.name {
		return a, nil
	}
	amp, err := b.value.Amplitude()
	if err != nil {
		return ir.AmpArg{}, errorf(KindUnitMismatch, path, "%v", err)
	}
	return ir.AmpOf(amp), nil
}

func (b binding) scaleArg(a ir.ScaleArg, path string) (ir.ScaleArg, *Error) {
	if !a.IsVar() || a.Var != b.name {
		return a, nil
	}
	if b.value.Unit != "" {
		return ir.ScaleArg{}, errorf(KindUnitMismatch, path,
			"scale factor must be dimensionless, got unit %q", b.value.Unit)
	}
	return ir.ScaleOf(b.value.Value), nil
}

func (b binding) timeArgPtr(a *ir.TimeArg, path string) (*ir.TimeArg, *Error) {
	if a == nil {
		return nil, nil
	}
	out, err := b.timeArg(*a, path)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b binding) phaseArgPtr(a *ir.PhaseArg, path string) (*ir.PhaseArg, *Error) {
	if a == nil {
		return nil, nil
	}
	out, err := b.phaseArg(*a, path)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b binding) freqArgPtr(a *ir.FreqArg, path string) (*ir.FreqArg, *Error) {
	if a == nil {
		return nil, nil
	}
	out, err := b.freqArg(*a, path)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b binding) pulse(p ir.Pulse, path string) (ir.Pulse, *Error) {
	switch pulse := p.(type) {
	case *ir.SquarePulse:
		out := *pulse
		var err *Error
		if out.Duration, err = b.timeArg(pulse.Duration, path); err != nil {
			return nil, err
		}
		if out.Amplitude, err = b.ampArg(pulse.Amplitude, path); err != nil {
			return nil, err
		}
		if out.Phase, err = b.phaseArgPtr(pulse.Phase, path); err != nil {
			return nil, err
		}
		if out.RiseTime, err = b.timeArgPtr(pulse.RiseTime, path); err != nil {
			return nil, err
		}
		if out.FallTime, err = b.timeArgPtr(pulse.FallTime, path); err != nil {
			return nil, err
		}
		return &out, nil
	case *ir.SinePulse:
		out := *pulse
		var err *Error
		if out.Duration, err = b.timeArg(pulse.Duration, path); err != nil {
			return nil, err
		}
		if out.Amplitude, err = b.ampArg(pulse.Amplitude, path); err != nil {
			return nil, err
		}
		if out.Frequency, err = b.freqArg(pulse.Frequency, path); err != nil {
			return nil, err
		}
		if out.Phase, err = b.phaseArgPtr(pulse.Phase, path); err != nil {
			return nil, err
		}
		if out.ToFrequency, err = b.freqArgPtr(pulse.ToFrequency, path); err != nil {
			return nil, err
		}
		return &out, nil
	case *ir.ExternalPulse:
		out := *pulse
		var err *Error
		if out.Duration, err = b.timeArg(pulse.Duration, path); err != nil {
			return nil, err
		}
		if out.Amplitude, err = b.ampArg(pulse.Amplitude, path); err != nil {
			return nil, err
		}
		return &out, nil
	case *ir.ArbitraryPulse:
		out := *pulse
		var err *Error
		if out.Duration, err = b.timeArg(pulse.Duration, path); err != nil {
			return nil, err
		}
		if out.Amplitude, err = b.ampArg(pulse.Amplitude, path); err != nil {
			return nil, err
		}
		return &out, nil
	default:
		return p, nil
	}
}

// op returns a copy of the operation with the binding applied. Container
// nodes substitute recursively so nested bodies see outer loop values.
func (b binding) op(item ir.Op, path string) (ir.Op, *Error) {
	switch op := item.(type) {
	case *ir.Play:
		out := *op
		if !op.Pulse.IsRef() {
			p, err := b.pulse(op.Pulse.Pulse, path)
			if err != nil {
				return nil, err
			}
			out.Pulse = ir.PulseInline(p)
		}
		if op.ScaleAmp != nil {
			s, err := b.scaleArg(*op.ScaleAmp, path)
			if err != nil {
				return nil, err
			}
			out.ScaleAmp = &s
		}
		return &out, nil
	case *ir.Wait:
		out := *op
		d, err := b.timeArg(op.Duration, path)
		if err != nil {
			return nil, err
		}
		out.Duration = d
		return &out, nil
	case *ir.SetFrequency:
		out := *op
		f, err := b.freqArg(op.Frequency, path)
		if err != nil {
			return nil, err
		}
		out.Frequency = f
		return &out, nil
	case *ir.ShiftFrequency:
		out := *op
		f, err := b.freqArg(op.Frequency, path)
		if err != nil {
			return nil, err
		}
		out.Frequency = f
		return &out, nil
	case *ir.SetPhase:
		out := *op
		p, err := b.phaseArg(op.Phase, path)
		if err != nil {
			return nil, err
		}
		out.Phase = p
		return &out, nil
	case *ir.ShiftPhase:
		out := *op
		p, err := b.phaseArg(op.Phase, path)
		if err != nil {
			return nil, err
		}
		out.Phase = p
		return &out, nil
	case *ir.Record:
		out := *op
		d, err := b.timeArg(op.Duration, path)
		if err != nil {
			return nil, err
		}
		out.Duration = d
		return &out, nil
	case *ir.Trace:
		out := *op
		d, err := b.timeArg(op.Duration, path)
		if err != nil {
			return nil, err
		}
		out.Duration = d
		return &out, nil
	case *ir.CompensateDC:
		out := *op
		var err *Error
		if out.Duration, err = b.timeArgPtr(op.Duration, path); err != nil {
			return nil, err
		}
		if out.RiseTime, err = b.timeArgPtr(op.RiseTime, path); err != nil {
			return nil, err
		}
		if out.FallTime, err = b.timeArgPtr(op.FallTime, path); err != nil {
			return nil, err
		}
		return &out, nil
	case *ir.PulseDecl:
		out := *op
		p, err := b.pulse(op.Pulse, path)
		if err != nil {
			return nil, err
		}
		out.Pulse = p
		return &out, nil
	case *ir.Sequence:
		return b.sequence(op, path)
	case *ir.Repeat:
		body, err := b.sequence(op.Body, path)
		if err != nil {
			return nil, err
		}
		return &ir.Repeat{Count: op.Count, Body: body}, nil
	case *ir.For:
		if op.Var == b.name {
			// Inner loop shadows; the validator rejects this, but keep
			// substitution from reaching past it anyway.
			return op, nil
		}
		body, err := b.sequence(op.Body, path)
		if err != nil {
			return nil, err
		}
		return &ir.For{Var: op.Var, Domain: op.Domain, Body: body}, nil
	case *ir.If:
		body, err := b.sequence(op.Body, path)
		if err != nil {
			return nil, err
		}
		var elseBody *ir.Sequence
		if op.Else != nil {
			if elseBody, err = b.sequence(op.Else, path); err != nil {
				return nil, err
			}
		}
		return &ir.If{Var: op.Var, Body: body, Else: elseBody}, nil
	default:
		// Barrier, VarDecl, Discriminate, Store carry no substitutable args.
		return item, nil
	}
}

func (b binding) sequence(seq *ir.Sequence, path string) (*ir.Sequence, *Error) {
	out := &ir.Sequence{Items: make([]ir.Op, len(seq.Items))}
	for i, item := range seq.Items {
		sub, err := b.op(item, path)
		if err != nil {
			return nil, err
		}
		out.Items[i] = sub
	}
	return out, nil
}

func (b binding) schedule(sched *ir.Schedule, path string) (*ir.Schedule, *Error) {
	out := &ir.Schedule{
		Defs:  make([]ir.BlockDef, len(sched.Defs)),
		Items: make([]ir.ScheduledOp, len(sched.Items)),
	}
	for i, def := range sched.Defs {
		block, err := b.schedule(def.Block, path)
		if err != nil {
			return nil, err
		}
		out.Defs[i] = ir.BlockDef{Name: def.Name, Block: block}
	}
	for i, item := range sched.Items {
		sub := item
		var err *Error
		switch op := item.Op.(type) {
		case *ir.Schedule:
			sub.Op, err = b.schedule(op, path)
		case *ir.ScheduleRepeat:
			var body *ir.Schedule
			if body, err = b.schedule(op.Body, path); err == nil {
				sub.Op = &ir.ScheduleRepeat{Count: op.Count, Body: body}
			}
		case *ir.ScheduleFor:
			if op.Var != b.name {
				var body *ir.Schedule
				if body, err = b.schedule(op.Body, path); err == nil {
					sub.Op = &ir.ScheduleFor{Var: op.Var, Domain: op.Domain, Body: body}
				}
			}
		case *ir.ScheduleIf:
			var body, elseBody *ir.Schedule
			if body, err = b.schedule(op.Body, path); err == nil {
				if op.Else != nil {
					elseBody, err = b.schedule(op.Else, path)
				}
				if err == nil {
					sub.Op = &ir.ScheduleIf{Var: op.Var, Body: body, Else: elseBody}
				}
			}
		default:
			sub.Op, err = b.op(item.Op, path)
		}
		if err != nil {
			return nil, err
		}
		out.Items[i] = sub
	}
	return out, nil
}
