package ir

import (
	"encoding/json"
	"fmt"

	"github.com/equal1/eq1-pulse/internal/unit"
)

// RefPt names an instant within an operation's extent.
type RefPt string

const (
	RefStart  RefPt = "start"
	RefCenter RefPt = "center"
	RefEnd    RefPt = "end"
)

// Valid reports whether r is one of the three reference points.
func (r RefPt) Valid() bool {
	return r == RefStart || r == RefCenter || r == RefEnd
}

// ScheduledOp places one operation in a schedule. The anchor fields position
// it relative to an earlier named item: the instant ref_pt of ref_op, plus
// rel_time, becomes the instant ref_pt_new of this operation. An absent
// ref_op anchors at the schedule origin, t=0.
type ScheduledOp struct {
	Name     string
	RefOp    string
	RefPt    RefPt // default: end
	RefPtNew RefPt // default: start
	RelTime  *unit.Time
	Op       Op
}

// EffectiveRefPt returns the anchor point on the referenced operation,
// applying the default.
func (s ScheduledOp) EffectiveRefPt() RefPt {
	if s.RefPt == "" {
		return RefEnd
	}
	return s.RefPt
}

// EffectiveRefPtNew returns the anchor point on the new operation, applying
// the default.
func (s ScheduledOp) EffectiveRefPtNew() RefPt {
	if s.RefPtNew == "" {
		return RefStart
	}
	return s.RefPtNew
}

type scheduledOpWire struct {
	Name     string          `json:"name,omitempty"`
	RefOp    string          `json:"ref_op,omitempty"`
	RefPt    RefPt           `json:"ref_pt,omitempty"`
	RefPtNew RefPt           `json:"ref_pt_new,omitempty"`
	RelTime  *unit.Time      `json:"rel_time,omitempty"`
	Op       json.RawMessage `json:"op"`
}

func (s ScheduledOp) MarshalJSON() ([]byte, error) {
	op, err := json.Marshal(s.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(scheduledOpWire{
		Name:     s.Name,
		RefOp:    s.RefOp,
		RefPt:    s.RefPt,
		RefPtNew: s.RefPtNew,
		RelTime:  s.RelTime,
		Op:       op,
	})
}

func (s *ScheduledOp) UnmarshalJSON(data []byte) error {
	var w scheduledOpWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op, err := UnmarshalScheduleOp(w.Op)
	if err != nil {
		return fmt.Errorf("op: %w", err)
	}
	*s = ScheduledOp{
		Name:     w.Name,
		RefOp:    w.RefOp,
		RefPt:    w.RefPt,
		RefPtNew: w.RefPtNew,
		RelTime:  w.RelTime,
		Op:       op,
	}
	return nil
}

// BlockDef declares a reusable sub-schedule. Every def must be inserted
// exactly once before the enclosing schedule closes.
type BlockDef struct {
	Name  string    `json:"name"`
	Block *Schedule `json:"block"`
}

// InsertBlock inserts a named block def at the enclosing item's anchor.
type InsertBlock struct {
	Block string `json:"block"`
}

func (*InsertBlock) OpType() string { return OpInsert }
func (*InsertBlock) isOp()          {}

// Schedule positions its items explicitly through anchors into a reference
// graph. Items may only reference earlier items.
type Schedule struct {
	Defs  []BlockDef
	Items []ScheduledOp
}

func (*Schedule) OpType() string { return OpSchedule }
func (*Schedule) isOp()          {}

// Add appends a scheduled item and returns the schedule for chaining.
func (s *Schedule) Add(items ...ScheduledOp) *Schedule {
	s.Items = append(s.Items, items...)
	return s
}

// scheduleFields returns the schedule body for splicing under either the
// top-level "type" tag or the nested "op_type" tag.
func (s *Schedule) scheduleFields() any {
	items := s.Items
	if items == nil {
		items = []ScheduledOp{}
	}
	return struct {
		Defs  []BlockDef    `json:"defs,omitempty"`
		Items []ScheduledOp `json:"items"`
	}{Defs: s.Defs, Items: items}
}

func (s *Schedule) MarshalJSON() ([]byte, error) {
	return taggedMarshal("op_type", OpSchedule, s.scheduleFields())
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var w struct {
		Defs  []BlockDef    `json:"defs"`
		Items []ScheduledOp `json:"items"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Schedule{Defs: w.Defs, Items: w.Items}
	return nil
}

// ScheduleRepeat tiles its body a fixed number of times. Each instance is
// placed end-to-start after the previous one, offset from the item's anchor.
type ScheduleRepeat struct {
	Count int       `json:"count"`
	Body  *Schedule `json:"body"`
}

func (*ScheduleRepeat) OpType() string { return OpRepeat }
func (*ScheduleRepeat) isOp()          {}

// ScheduleFor places one body instance per domain value, substituting the
// value for the loop variable, tiled like ScheduleRepeat.
type ScheduleFor struct {
	Var    VarRef     `json:"var"`
	Domain IterDomain `json:"domain"`
	Body   *Schedule  `json:"body"`
}

func (*ScheduleFor) OpType() string { return OpFor }
func (*ScheduleFor) isOp()          {}

// ScheduleIf gates a sub-schedule on a runtime boolean. The block occupies
// the longer of the two branches.
type ScheduleIf struct {
	Var  VarRef    `json:"var"`
	Body *Schedule `json:"body"`
	Else *Schedule `json:"else,omitempty"`
}

func (*ScheduleIf) OpType() string { return OpIf }
func (*ScheduleIf) isOp()          {}
