package ir

import (
	"encoding/json"
	"fmt"
)

// Wire codec for operations and whole programs. Every leaf and control node
// marshals through taggedMarshal so the op_type discriminator always comes
// first; decoding probes the discriminator and dispatches to the concrete
// type. Sequence and schedule contexts share tags for control flow, so each
// context has its own entry point.

func (o *Play) MarshalJSON() ([]byte, error) {
	type alias Play
	return taggedMarshal("op_type", OpPlay, (*alias)(o))
}

func (o *Wait) MarshalJSON() ([]byte, error) {
	type alias Wait
	return taggedMarshal("op_type", OpWait, (*alias)(o))
}

func (o *Barrier) MarshalJSON() ([]byte, error) {
	type alias Barrier
	return taggedMarshal("op_type", OpBarrier, (*alias)(o))
}

func (o *SetFrequency) MarshalJSON() ([]byte, error) {
	type alias SetFrequency
	return taggedMarshal("op_type", OpSetFrequency, (*alias)(o))
}

func (o *ShiftFrequency) MarshalJSON() ([]byte, error) {
	type alias ShiftFrequency
	return taggedMarshal("op_type", OpShiftFrequency, (*alias)(o))
}

func (o *SetPhase) MarshalJSON() ([]byte, error) {
	type alias SetPhase
	return taggedMarshal("op_type", OpSetPhase, (*alias)(o))
}

func (o *ShiftPhase) MarshalJSON() ([]byte, error) {
	type alias ShiftPhase
	return taggedMarshal("op_type", OpShiftPhase, (*alias)(o))
}

func (o *Record) MarshalJSON() ([]byte, error) {
	type alias Record
	return taggedMarshal("op_type", OpRecord, (*alias)(o))
}

func (o *Trace) MarshalJSON() ([]byte, error) {
	type alias Trace
	return taggedMarshal("op_type", OpTrace, (*alias)(o))
}

func (o *CompensateDC) MarshalJSON() ([]byte, error) {
	type alias CompensateDC
	return taggedMarshal("op_type", OpCompensateDC, (*alias)(o))
}

func (o *VarDecl) MarshalJSON() ([]byte, error) {
	type alias VarDecl
	return taggedMarshal("op_type", OpVarDecl, (*alias)(o))
}

func (o *PulseDecl) MarshalJSON() ([]byte, error) {
	type alias PulseDecl
	return taggedMarshal("op_type", OpPulseDecl, (*alias)(o))
}

func (o *PulseDecl) UnmarshalJSON(data []byte) error {
	var w struct {
		Name  PulseRef        `json:"name"`
		Pulse json.RawMessage `json:"pulse"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	pulse, err := UnmarshalPulse(w.Pulse)
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}
	*o = PulseDecl{Name: w.Name, Pulse: pulse}
	return nil
}

func (o *Discriminate) MarshalJSON() ([]byte, error) {
	type alias Discriminate
	return taggedMarshal("op_type", OpDiscriminate, (*alias)(o))
}

func (o *Store) MarshalJSON() ([]byte, error) {
	type alias Store
	return taggedMarshal("op_type", OpStore, (*alias)(o))
}

func (o *Repeat) MarshalJSON() ([]byte, error) {
	type alias Repeat
	return taggedMarshal("op_type", OpRepeat, (*alias)(o))
}

func (o *For) MarshalJSON() ([]byte, error) {
	type alias For
	return taggedMarshal("op_type", OpFor, (*alias)(o))
}

func (o *If) MarshalJSON() ([]byte, error) {
	type alias If
	return taggedMarshal("op_type", OpIf, (*alias)(o))
}

func (o *InsertBlock) MarshalJSON() ([]byte, error) {
	type alias InsertBlock
	return taggedMarshal("op_type", OpInsert, (*alias)(o))
}

func (o *ScheduleRepeat) MarshalJSON() ([]byte, error) {
	type alias ScheduleRepeat
	return taggedMarshal("op_type", OpRepeat, (*alias)(o))
}

func (o *ScheduleFor) MarshalJSON() ([]byte, error) {
	type alias ScheduleFor
	return taggedMarshal("op_type", OpFor, (*alias)(o))
}

func (o *ScheduleIf) MarshalJSON() ([]byte, error) {
	type alias ScheduleIf
	return taggedMarshal("op_type", OpIf, (*alias)(o))
}

// probeOpType reads the op_type discriminator without decoding the node.
func probeOpType(data []byte) (string, error) {
	var probe struct {
		OpType string `json:"op_type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	if probe.OpType == "" {
		return "", fmt.Errorf("operation object lacks op_type")
	}
	return probe.OpType, nil
}

// unmarshalLeafOp decodes the operations whose shape does not depend on the
// container context.
func unmarshalLeafOp(opType string, data []byte) (Op, error) {
	var op Op
	switch opType {
	case OpPlay:
		op = &Play{}
	case OpWait:
		op = &Wait{}
	case OpBarrier:
		op = &Barrier{}
	case OpSetFrequency:
		op = &SetFrequency{}
	case OpShiftFrequency:
		op = &ShiftFrequency{}
	case OpSetPhase:
		op = &SetPhase{}
	case OpShiftPhase:
		op = &ShiftPhase{}
	case OpRecord:
		op = &Record{}
	case OpTrace:
		op = &Trace{}
	case OpCompensateDC:
		op = &CompensateDC{}
	case OpVarDecl:
		op = &VarDecl{}
	case OpPulseDecl:
		op = &PulseDecl{}
	case OpDiscriminate:
		op = &Discriminate{}
	case OpStore:
		op = &Store{}
	default:
		return nil, fmt.Errorf("unknown op_type %q", opType)
	}
	if err := json.Unmarshal(data, op); err != nil {
		return nil, err
	}
	return op, nil
}

// UnmarshalSequenceItem decodes one sequence item: an operation object, a
// sequence-flavored control node, or a nested sequence (bare array).
func UnmarshalSequenceItem(data []byte) (Op, error) {
	if len(data) > 0 && data[0] == '[' {
		var nested Sequence
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, err
		}
		return &nested, nil
	}
	opType, err := probeOpType(data)
	if err != nil {
		return nil, err
	}
	switch opType {
	case OpRepeat:
		var op Repeat
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	case OpFor:
		var op For
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	case OpIf:
		var op If
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	default:
		return unmarshalLeafOp(opType, data)
	}
}

// UnmarshalScheduleOp decodes the op of one scheduled item: an operation
// object, a schedule-flavored control node, a nested schedule, or a block
// insertion.
func UnmarshalScheduleOp(data []byte) (Op, error) {
	opType, err := probeOpType(data)
	if err != nil {
		return nil, err
	}
	switch opType {
	case OpRepeat:
		var op ScheduleRepeat
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	case OpFor:
		var op ScheduleFor
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	case OpIf:
		var op ScheduleIf
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	case OpInsert:
		var op InsertBlock
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	case OpSchedule:
		var op Schedule
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return &op, nil
	default:
		return unmarshalLeafOp(opType, data)
	}
}

// Program type discriminators (the top-level wire "type" field).
const (
	ProgramSequence = "Sequence"
	ProgramSchedule = "Schedule"
)

// Program is the top-level document: exactly one of the two container
// flavors.
type Program struct {
	Sequence *Sequence
	Schedule *Schedule
}

func (p Program) MarshalJSON() ([]byte, error) {
	switch {
	case p.Sequence != nil && p.Schedule == nil:
		items := p.Sequence.Items
		if items == nil {
			items = []Op{}
		}
		return taggedMarshal("type", ProgramSequence, struct {
			Items []Op `json:"items"`
		}{Items: items})
	case p.Schedule != nil && p.Sequence == nil:
		return taggedMarshal("type", ProgramSchedule, p.Schedule.scheduleFields())
	default:
		return nil, fmt.Errorf("program must hold exactly one of sequence or schedule")
	}
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Type {
	case ProgramSequence:
		var w struct {
			Items json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		var seq Sequence
		if err := seq.UnmarshalJSON(w.Items); err != nil {
			return err
		}
		*p = Program{Sequence: &seq}
		return nil
	case ProgramSchedule:
		var sched Schedule
		if err := json.Unmarshal(data, &sched); err != nil {
			return err
		}
		*p = Program{Schedule: &sched}
		return nil
	default:
		return fmt.Errorf("unknown program type %q", probe.Type)
	}
}
