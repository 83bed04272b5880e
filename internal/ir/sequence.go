package ir

import (
	"encoding/json"
	"fmt"

	"github.com/equal1/eq1-pulse/internal/unit"
)

// Sequence orders its items with implicit per-channel timing. A nested
// Sequence serializes as a bare item array and splices into its parent's
// cursors during resolution.
type Sequence struct {
	Items []Op
}

func (*Sequence) OpType() string { return opSequence }
func (*Sequence) isOp()          {}

// Append adds items and returns the sequence for chaining in builders.
func (s *Sequence) Append(items ...Op) *Sequence {
	s.Items = append(s.Items, items...)
	return s
}

func (s *Sequence) MarshalJSON() ([]byte, error) {
	if s.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Items)
}

func (s *Sequence) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	items := make([]Op, len(raws))
	for i, raw := range raws {
		item, err := UnmarshalSequenceItem(raw)
		if err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
		items[i] = item
	}
	s.Items = items
	return nil
}

// Repeat runs its body a fixed number of times. Iterations are identical;
// the resolver computes per-channel advances once and tiles them.
type Repeat struct {
	Count int       `json:"count"`
	Body  *Sequence `json:"body"`
}

func (*Repeat) OpType() string { return OpRepeat }
func (*Repeat) isOp()          {}

// Literal is a loop value: a bare number, or a quantity in a named unit.
type Literal struct {
	Value float64
	Unit  string // empty for dimensionless
}

func (l Literal) MarshalJSON() ([]byte, error) {
	if l.Unit == "" {
		return json.Marshal(l.Value)
	}
	return json.Marshal(map[string]float64{l.Unit: l.Value})
}

func (l *Literal) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var m map[string]float64
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if len(m) != 1 {
			return fmt.Errorf("quantity literal must have exactly one unit key, got %d", len(m))
		}
		for u, v := range m {
			*l = Literal{Value: v, Unit: u}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = Literal{Value: v}
	return nil
}

// Time converts the literal to a time quantity.
func (l Literal) Time() (unit.Time, error) {
	if l.Unit == "" {
		return unit.Seconds(l.Value), nil
	}
	return unit.TimeIn(l.Value, l.Unit)
}

// Frequency converts the literal to a frequency quantity.
func (l Literal) Frequency() (unit.Frequency, error) {
	if l.Unit == "" {
		return unit.Hertz(l.Value), nil
	}
	return unit.FrequencyIn(l.Value, l.Unit)
}

// Angle converts the literal to an angle quantity.
func (l Literal) Angle() (unit.Angle, error) {
	if l.Unit == "" {
		return unit.Radians(l.Value), nil
	}
	return unit.AngleIn(l.Value, l.Unit)
}

// Amplitude converts the literal to a real-valued amplitude quantity.
func (l Literal) Amplitude() (unit.Amplitude, error) {
	if l.Unit == "" {
		return unit.ComplexVolts(complex(l.Value, 0)), nil
	}
	return unit.AmplitudeIn(complex(l.Value, 0), l.Unit)
}

// RangeDomain is an integer range [start, stop) advancing by step.
// Step may be negative; it must not be zero.
type RangeDomain struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
	Step  int `json:"step,omitempty"`
}

// LinspaceDomain is num evenly spaced values from start to stop inclusive.
// Start and stop must share a unit (or both be dimensionless).
type LinspaceDomain struct {
	Start Literal `json:"start"`
	Stop  Literal `json:"stop"`
	Num   int     `json:"num"`
}

// IterDomain is the closed set of loop domains: an explicit value list, an
// integer range, or a linear space. Exactly one form is set.
type IterDomain struct {
	Values   []Literal       `json:"values,omitempty"`
	Range    *RangeDomain    `json:"range,omitempty"`
	Linspace *LinspaceDomain `json:"linspace,omitempty"`
}

// Expand materializes the domain's values in iteration order. An empty
// result is legal here; the validator rejects it.
func (d IterDomain) Expand() ([]Literal, error) {
	switch {
	case d.Values != nil:
		return d.Values, nil
	case d.Range != nil:
		r := *d.Range
		step := r.Step
		if step == 0 {
			step = 1
		}
		var out []Literal
		if step > 0 {
			for v := r.Start; v < r.Stop; v += step {
				out = append(out, Literal{Value: float64(v)})
			}
		} else {
			for v := r.Start; v > r.Stop; v += step {
				out = append(out, Literal{Value: float64(v)})
			}
		}
		return out, nil
	case d.Linspace != nil:
		l := *d.Linspace
		if l.Start.Unit != l.Stop.Unit {
			return nil, &unit.MismatchError{Unit: l.Stop.Unit}
		}
		if l.Num <= 0 {
			return nil, nil
		}
		out := make([]Literal, l.Num)
		if l.Num == 1 {
			out[0] = l.Start
			return out, nil
		}
		span := l.Stop.Value - l.Start.Value
		for i := range out {
			frac := float64(i) / float64(l.Num-1)
			out[i] = Literal{Value: l.Start.Value + span*frac, Unit: l.Start.Unit}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("iteration domain has no values, range, or linspace")
	}
}

// For runs its body once per domain value in order, binding the value to
// the loop variable. The variable shadows nothing: it counts as a
// declaration in the body scope.
type For struct {
	Var    VarRef     `json:"var"`
	Domain IterDomain `json:"domain"`
	Body   *Sequence  `json:"body"`
}

func (*For) OpType() string { return OpFor }
func (*For) isOp()          {}

// If gates its body on a runtime boolean variable. Because branch selection
// happens on hardware, the resolver advances every channel by the longer
// branch so following operations are safe under either outcome.
type If struct {
	Var  VarRef    `json:"var"`
	Body *Sequence `json:"body"`
	Else *Sequence `json:"else,omitempty"`
}

func (*If) OpType() string { return OpIf }
func (*If) isOp()          {}
