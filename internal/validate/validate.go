package validate

import (
	"fmt"

	"github.com/equal1/eq1-pulse/internal/ir"
	"github.com/equal1/eq1-pulse/internal/unit"
)

// Result is the outcome of a successful validation: every variable and
// pulse reference bound to its declaration, keyed by the reference site's
// node path.
type Result struct {
	Bindings map[string]Decl
}

// Program walks a program in program order and returns the first rule
// violation found, or the reference bindings on success. Validation is
// fail-fast: error reporting stays unambiguous because nothing after the
// offending node is inspected.
func Program(p ir.Program) (*Result, error) {
	w := &walker{bindings: make(map[string]Decl)}
	var err *Error
	switch {
	case p.Sequence != nil:
		err = w.sequence(p.Sequence, "")
	case p.Schedule != nil:
		err = w.schedule(p.Schedule, "")
	default:
		return nil, errorf(KindUndeclaredVariable, "", "program holds no container")
	}
	if err != nil {
		return nil, err
	}
	return &Result{Bindings: w.bindings}, nil
}

type walker struct {
	scopes   scopes
	bindings map[string]Decl
}

func joinPath(base, elem string) string {
	if base == "" {
		return elem
	}
	return base + "." + elem
}

func (w *walker) bind(path string, d Decl) {
	w.bindings[path] = d
}

func (w *walker) sequence(seq *ir.Sequence, path string) *Error {
	w.scopes.push(prescanSequence(seq))
	defer w.scopes.pop()
	for i, item := range seq.Items {
		if err := w.sequenceItem(item, joinPath(path, fmt.Sprintf("items[%d]", i))); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) sequenceItem(item ir.Op, path string) *Error {
	switch op := item.(type) {
	case *ir.Sequence:
		return w.sequence(op, path)
	case *ir.Repeat:
		if op.Count <= 0 {
			return errorf(KindInvalidRepeatCount, path, "repeat count must be positive, got %d", op.Count)
		}
		return w.sequence(op.Body, joinPath(path, "body"))
	case *ir.For:
		return w.forLoop(op.Var, op.Domain, path, func() *Error {
			return w.sequence(op.Body, joinPath(path, "body"))
		})
	case *ir.If:
		if err := w.boolVar(op.Var, joinPath(path, "var")); err != nil {
			return err
		}
		if err := w.sequence(op.Body, joinPath(path, "body")); err != nil {
			return err
		}
		if op.Else != nil {
			return w.sequence(op.Else, joinPath(path, "else"))
		}
		return nil
	default:
		return w.leafOp(item, path)
	}
}

func (w *walker) schedule(sched *ir.Schedule, path string) *Error {
	w.scopes.push(prescanSchedule(sched))
	defer w.scopes.pop()
	for i, def := range sched.Defs {
		defPath := joinPath(path, fmt.Sprintf("defs[%d]", i))
		if def.Name == "" {
			return errorf(KindUndeclaredVariable, defPath, "block def has no name")
		}
		if err := w.schedule(def.Block, joinPath(defPath, "block")); err != nil {
			return err
		}
	}
	names := make(map[string]string)
	for i, item := range sched.Items {
		itemPath := joinPath(path, fmt.Sprintf("items[%d]", i))
		if item.Name != "" {
			if prev, ok := names[item.Name]; ok {
				return errorf(KindDuplicateDeclaration, itemPath,
					"item name %q already used at %s", item.Name, prev)
			}
			names[item.Name] = itemPath
		}
		if err := w.scheduledItem(item, itemPath); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) scheduledItem(item ir.ScheduledOp, path string) *Error {
	opPath := joinPath(path, "op")
	switch op := item.Op.(type) {
	case *ir.Schedule:
		return w.schedule(op, opPath)
	case *ir.InsertBlock:
		if op.Block == "" {
			return errorf(KindUndeclaredVariable, opPath, "insert names no block")
		}
		return nil
	case *ir.ScheduleRepeat:
		if op.Count <= 0 {
			return errorf(KindInvalidRepeatCount, opPath, "repeat count must be positive, got %d", op.Count)
		}
		return w.schedule(op.Body, joinPath(opPath, "body"))
	case *ir.ScheduleFor:
		return w.forLoop(op.Var, op.Domain, opPath, func() *Error {
			return w.schedule(op.Body, joinPath(opPath, "body"))
		})
	case *ir.ScheduleIf:
		if err := w.boolVar(op.Var, joinPath(opPath, "var")); err != nil {
			return err
		}
		if err := w.schedule(op.Body, joinPath(opPath, "body")); err != nil {
			return err
		}
		if op.Else != nil {
			return w.schedule(op.Else, joinPath(opPath, "else"))
		}
		return nil
	default:
		return w.leafOp(item.Op, opPath)
	}
}

// forLoop validates the domain, then runs the body check inside a fresh
// frame holding the loop variable. The loop variable counts as a
// declaration: it may not shadow an enclosing name.
func (w *walker) forLoop(loopVar ir.VarRef, domain ir.IterDomain, path string, body func() *Error) *Error {
	values, err := domain.Expand()
	if err != nil {
		return errorf(KindUnitMismatch, joinPath(path, "domain"), "%v", err)
	}
	if len(values) == 0 {
		return errorf(KindEmptyIterationDomain, joinPath(path, "domain"), "loop has no values")
	}
	unitKind := ""
	if u := values[0].Unit; u != "" {
		kind, ok := unit.KindOf(u)
		if !ok {
			return errorf(KindUnitMismatch, joinPath(path, "domain"), "unknown unit %q", u)
		}
		unitKind = string(kind)
	}
	w.scopes.push(nil)
	defer w.scopes.pop()
	if derr := w.scopes.declare(Decl{
		Kind:  declVar,
		Name:  string(loopVar),
		Path:  joinPath(path, "var"),
		DType: ir.DTypeFloat,
		Unit:  unitKind,
	}); derr != nil {
		return derr
	}
	return body()
}

func (w *walker) leafOp(item ir.Op, path string) *Error {
	switch op := item.(type) {
	case *ir.VarDecl:
		return w.varDecl(op, path)
	case *ir.PulseDecl:
		if err := w.pulse(op.Pulse, joinPath(path, "pulse")); err != nil {
			return err
		}
		return w.scopes.declare(Decl{
			Kind: declPulse,
			Name: string(op.Name),
			Path: path,
		})
	case *ir.Play:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		if err := w.pulseArg(op.Pulse, joinPath(path, "pulse")); err != nil {
			return err
		}
		if op.ScaleAmp != nil && op.ScaleAmp.IsVar() {
			if err := w.numericVar(op.ScaleAmp.Var, "", joinPath(path, "scale_amp")); err != nil {
				return err
			}
		}
		if op.Cond != "" {
			return w.boolVar(op.Cond, joinPath(path, "cond"))
		}
		return nil
	case *ir.Wait:
		for i, ch := range op.Channels {
			if err := w.channel(ch, joinPath(path, fmt.Sprintf("channels[%d]", i))); err != nil {
				return err
			}
		}
		return w.timeArg(op.Duration, joinPath(path, "duration"))
	case *ir.Barrier:
		for i, ch := range op.Channels {
			if err := w.channel(ch, joinPath(path, fmt.Sprintf("channels[%d]", i))); err != nil {
				return err
			}
		}
		return nil
	case *ir.SetFrequency:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		return w.freqArg(op.Frequency, joinPath(path, "frequency"))
	case *ir.ShiftFrequency:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		return w.freqArg(op.Frequency, joinPath(path, "frequency"))
	case *ir.SetPhase:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		return w.phaseArg(op.Phase, joinPath(path, "phase"))
	case *ir.ShiftPhase:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		return w.phaseArg(op.Phase, joinPath(path, "phase"))
	case *ir.Record:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		if err := w.recordTarget(op.Var, joinPath(path, "var")); err != nil {
			return err
		}
		if err := w.timeArg(op.Duration, joinPath(path, "duration")); err != nil {
			return err
		}
		if op.TimeOfFlight != nil && op.TimeOfFlight.IsNegative() {
			return errorf(KindNegativeDuration, joinPath(path, "time_of_flight"),
				"time of flight %s is negative", op.TimeOfFlight)
		}
		return nil
	case *ir.Trace:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		if err := w.recordTarget(op.Var, joinPath(path, "var")); err != nil {
			return err
		}
		if err := w.timeArg(op.Duration, joinPath(path, "duration")); err != nil {
			return err
		}
		if op.TimeOfFlight != nil && op.TimeOfFlight.IsNegative() {
			return errorf(KindNegativeDuration, joinPath(path, "time_of_flight"),
				"time of flight %s is negative", op.TimeOfFlight)
		}
		return nil
	case *ir.CompensateDC:
		if err := w.channel(op.Channel, path); err != nil {
			return err
		}
		if op.Duration != nil {
			if err := w.timeArg(*op.Duration, joinPath(path, "duration")); err != nil {
				return err
			}
		}
		if op.RiseTime != nil {
			if err := w.timeArg(*op.RiseTime, joinPath(path, "rise_time")); err != nil {
				return err
			}
		}
		if op.FallTime != nil {
			if err := w.timeArg(*op.FallTime, joinPath(path, "fall_time")); err != nil {
				return err
			}
		}
		return nil
	case *ir.Discriminate:
		if err := w.boolVar(op.Target, joinPath(path, "target")); err != nil {
			return err
		}
		_, err := w.varRef(op.Source, joinPath(path, "source"))
		return err
	case *ir.Store:
		_, err := w.varRef(op.Source, joinPath(path, "source"))
		return err
	default:
		return errorf(KindUndeclaredVariable, path, "unexpected node %T", item)
	}
}

func (w *walker) varDecl(op *ir.VarDecl, path string) *Error {
	switch op.DType {
	case ir.DTypeBool, ir.DTypeInt, ir.DTypeFloat, ir.DTypeComplex:
	default:
		return errorf(KindUnitMismatch, path, "unknown dtype %q", op.DType)
	}
	if op.Unit != "" && !unit.KnownKind(op.Unit) {
		return errorf(KindUnitMismatch, path, "unknown quantity kind %q", op.Unit)
	}
	for i, n := range op.Shape {
		if n <= 0 {
			return errorf(KindUnitMismatch, joinPath(path, fmt.Sprintf("shape[%d]", i)),
				"shape extents must be positive, got %d", n)
		}
	}
	return w.scopes.declare(Decl{
		Kind:  declVar,
		Name:  string(op.Name),
		Path:  path,
		DType: op.DType,
		Unit:  op.Unit,
	})
}

func (w *walker) channel(ch ir.ChannelRef, path string) *Error {
	if !ch.Valid() {
		return errorf(KindInvalidChannel, path, "invalid channel name %q", string(ch))
	}
	return nil
}

// varRef resolves a variable reference and records the binding.
func (w *walker) varRef(name ir.VarRef, path string) (Decl, *Error) {
	d, err := w.scopes.lookup(declVar, string(name), path)
	if err != nil {
		return Decl{}, err
	}
	w.bind(path, d)
	return d, nil
}

func (w *walker) boolVar(name ir.VarRef, path string) *Error {
	d, err := w.varRef(name, path)
	if err != nil {
		return err
	}
	if d.DType != ir.DTypeBool {
		return errorf(KindUnitMismatch, path, "%q must be bool, declared %s", string(name), d.DType)
	}
	return nil
}

// recordTarget accepts float or complex scalars as acquisition targets.
func (w *walker) recordTarget(name ir.VarRef, path string) *Error {
	d, err := w.varRef(name, path)
	if err != nil {
		return err
	}
	if d.DType != ir.DTypeFloat && d.DType != ir.DTypeComplex {
		return errorf(KindUnitMismatch, path,
			"%q must be float or complex to hold acquired data, declared %s", string(name), d.DType)
	}
	return nil
}

// numericVar resolves a variable used where a number of the given quantity
// kind is expected. An empty kind accepts any non-bool variable.
func (w *walker) numericVar(name ir.VarRef, kind, path string) *Error {
	d, err := w.varRef(name, path)
	if err != nil {
		return err
	}
	if d.DType == ir.DTypeBool {
		return errorf(KindUnitMismatch, path, "%q is bool, expected a numeric variable", string(name))
	}
	if kind != "" && d.Unit != "" && d.Unit != kind {
		return errorf(KindUnitMismatch, path,
			"%q carries %s, expected %s", string(name), d.Unit, kind)
	}
	return nil
}

func (w *walker) timeArg(a ir.TimeArg, path string) *Error {
	if a.IsVar() {
		return w.numericVar(a.Var, string(unit.KindTime), path)
	}
	if a.Value != nil && a.Value.IsNegative() {
		return errorf(KindNegativeDuration, path, "duration %s is negative", a.Value)
	}
	return nil
}

func (w *walker) freqArg(a ir.FreqArg, path string) *Error {
	if a.IsVar() {
		return w.numericVar(a.Var, string(unit.KindFrequency), path)
	}
	return nil
}

func (w *walker) phaseArg(a ir.PhaseArg, path string) *Error {
	if a.IsVar() {
		return w.numericVar(a.Var, string(unit.KindAngle), path)
	}
	return nil
}

func (w *walker) ampArg(a ir.AmpArg, path string) *Error {
	if a.IsVar() {
		return w.numericVar(a.Var, string(unit.KindVoltage), path)
	}
	return nil
}

func (w *walker) pulseArg(a ir.PulseArg, path string) *Error {
	if a.IsRef() {
		d, err := w.scopes.lookup(declPulse, string(a.Ref), path)
		if err != nil {
			return err
		}
		w.bind(path, d)
		return nil
	}
	return w.pulse(a.Pulse, path)
}

func (w *walker) pulse(p ir.Pulse, path string) *Error {
	switch pulse := p.(type) {
	case *ir.SquarePulse:
		if err := w.timeArg(pulse.Duration, joinPath(path, "duration")); err != nil {
			return err
		}
		if err := w.ampArg(pulse.Amplitude, joinPath(path, "amplitude")); err != nil {
			return err
		}
		if pulse.Phase != nil {
			if err := w.phaseArg(*pulse.Phase, joinPath(path, "phase")); err != nil {
				return err
			}
		}
		if pulse.RiseTime != nil {
			if err := w.timeArg(*pulse.RiseTime, joinPath(path, "rise_time")); err != nil {
				return err
			}
		}
		if pulse.FallTime != nil {
			if err := w.timeArg(*pulse.FallTime, joinPath(path, "fall_time")); err != nil {
				return err
			}
		}
		return w.squareRamps(pulse, path)
	case *ir.SinePulse:
		if err := w.timeArg(pulse.Duration, joinPath(path, "duration")); err != nil {
			return err
		}
		if err := w.ampArg(pulse.Amplitude, joinPath(path, "amplitude")); err != nil {
			return err
		}
		if err := w.freqArg(pulse.Frequency, joinPath(path, "frequency")); err != nil {
			return err
		}
		if pulse.Phase != nil {
			if err := w.phaseArg(*pulse.Phase, joinPath(path, "phase")); err != nil {
				return err
			}
		}
		if pulse.ToFrequency != nil {
			return w.freqArg(*pulse.ToFrequency, joinPath(path, "to_frequency"))
		}
		return nil
	case *ir.ExternalPulse:
		if err := w.timeArg(pulse.Duration, joinPath(path, "duration")); err != nil {
			return err
		}
		return w.ampArg(pulse.Amplitude, joinPath(path, "amplitude"))
	case *ir.ArbitraryPulse:
		if err := w.timeArg(pulse.Duration, joinPath(path, "duration")); err != nil {
			return err
		}
		if err := w.ampArg(pulse.Amplitude, joinPath(path, "amplitude")); err != nil {
			return err
		}
		return w.samplePoints(pulse, path)
	default:
		return errorf(KindInvalidSamplePoints, path, "unexpected pulse %T", p)
	}
}

// squareRamps rejects ramps that leave the flat section with negative
// length. Symbolic durations are checked again after loop substitution.
func (w *walker) squareRamps(p *ir.SquarePulse, path string) *Error {
	if p.Duration.IsVar() || p.Duration.Value == nil {
		return nil
	}
	ramps := unit.Nanoseconds(0)
	for _, ramp := range []*ir.TimeArg{p.RiseTime, p.FallTime} {
		if ramp == nil || ramp.IsVar() || ramp.Value == nil {
			continue
		}
		ramps = ramps.Add(*ramp.Value)
	}
	if ramps.Cmp(*p.Duration.Value) > 0 {
		return errorf(KindNegativeDuration, path,
			"rise and fall ramps (%s) exceed pulse duration %s", ramps, p.Duration.Value)
	}
	return nil
}

func (w *walker) samplePoints(p *ir.ArbitraryPulse, path string) *Error {
	if len(p.Samples) == 0 {
		return errorf(KindInvalidSamplePoints, joinPath(path, "samples"), "pulse has no samples")
	}
	for i, s := range p.Samples {
		if s[0] < -1 || s[0] > 1 || s[1] < -1 || s[1] > 1 {
			return errorf(KindInvalidSamplePoints, joinPath(path, fmt.Sprintf("samples[%d]", i)),
				"sample components must lie in [-1, 1], got [%g, %g]", s[0], s[1])
		}
	}
	if p.TimePoints == nil {
		return nil
	}
	tp := p.TimePoints
	tpPath := joinPath(path, "time_points")
	if len(tp) != len(p.Samples) {
		return errorf(KindInvalidSamplePoints, tpPath,
			"%d time points for %d samples", len(tp), len(p.Samples))
	}
	if tp[0] != 0 {
		return errorf(KindInvalidSamplePoints, tpPath, "time points must start at 0, got %g", tp[0])
	}
	if tp[len(tp)-1] != 1 {
		return errorf(KindInvalidSamplePoints, tpPath,
			"time points must end at 1, got %g", tp[len(tp)-1])
	}
	for i := 1; i < len(tp); i++ {
		if tp[i] <= tp[i-1] {
			return errorf(KindInvalidSamplePoints, tpPath,
				"time points must increase strictly: [%d]=%g follows [%d]=%g",
				i, tp[i], i-1, tp[i-1])
		}
	}
	return nil
}
