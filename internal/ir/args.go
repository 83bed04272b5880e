package ir

import (
	"encoding/json"
	"fmt"

	"github.com/equal1/eq1-pulse/internal/unit"
)

// The *Arg types are quantity-or-variable unions. A literal serializes as
// the quantity's unit mapping; a reference serializes as the bare variable
// name. Loop iteration substitutes literals for references before timing
// resolution.

// TimeArg is a time quantity or a variable reference.
type TimeArg struct {
	Value *unit.Time
	Var   VarRef
}

// TimeOf wraps a literal time.
func TimeOf(t unit.Time) TimeArg { return TimeArg{Value: &t} }

// TimeVar wraps a variable reference.
func TimeVar(name VarRef) TimeArg { return TimeArg{Var: name} }

// IsVar reports whether the argument is still symbolic.
func (a TimeArg) IsVar() bool { return a.Var != "" }

func (a TimeArg) MarshalJSON() ([]byte, error) {
	if a.IsVar() {
		return json.Marshal(string(a.Var))
	}
	if a.Value == nil {
		return nil, fmt.Errorf("time argument has neither value nor variable")
	}
	return json.Marshal(*a.Value)
}

func (a *TimeArg) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = TimeArg{Var: VarRef(name)}
		return nil
	}
	var value unit.Time
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*a = TimeArg{Value: &value}
	return nil
}

// FreqArg is a frequency quantity or a variable reference.
type FreqArg struct {
	Value *unit.Frequency
	Var   VarRef
}

func FreqOf(f unit.Frequency) FreqArg { return FreqArg{Value: &f} }
func FreqVar(name VarRef) FreqArg     { return FreqArg{Var: name} }

func (a FreqArg) IsVar() bool { return a.Var != "" }

func (a FreqArg) MarshalJSON() ([]byte, error) {
	if a.IsVar() {
		return json.Marshal(string(a.Var))
	}
	if a.Value == nil {
		return nil, fmt.Errorf("frequency argument has neither value nor variable")
	}
	return json.Marshal(*a.Value)
}

func (a *FreqArg) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = FreqArg{Var: VarRef(name)}
		return nil
	}
	var value unit.Frequency
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*a = FreqArg{Value: &value}
	return nil
}

// PhaseArg is an angle quantity or a variable reference.
type PhaseArg struct {
	Value *unit.Phase
	Var   VarRef
}

func PhaseOf(p unit.Phase) PhaseArg { return PhaseArg{Value: &p} }
func PhaseVar(name VarRef) PhaseArg { return PhaseArg{Var: name} }

func (a PhaseArg) IsVar() bool { return a.Var != "" }

func (a PhaseArg) MarshalJSON() ([]byte, error) {
	if a.IsVar() {
		return json.Marshal(string(a.Var))
	}
	if a.Value == nil {
		return nil, fmt.Errorf("phase argument has neither value nor variable")
	}
	return json.Marshal(*a.Value)
}

func (a *PhaseArg) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = PhaseArg{Var: VarRef(name)}
		return nil
	}
	var value unit.Phase
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*a = PhaseArg{Value: &value}
	return nil
}

// AmpArg is a complex amplitude or a variable reference.
type AmpArg struct {
	Value *unit.Amplitude
	Var   VarRef
}

func AmpOf(a unit.Amplitude) AmpArg { return AmpArg{Value: &a} }
func AmpVar(name VarRef) AmpArg     { return AmpArg{Var: name} }

func (a AmpArg) IsVar() bool { return a.Var != "" }

func (a AmpArg) MarshalJSON() ([]byte, error) {
	if a.IsVar() {
		return json.Marshal(string(a.Var))
	}
	if a.Value == nil {
		return nil, fmt.Errorf("amplitude argument has neither value nor variable")
	}
	return json.Marshal(*a.Value)
}

func (a *AmpArg) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = AmpArg{Var: VarRef(name)}
		return nil
	}
	var value unit.Amplitude
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*a = AmpArg{Value: &value}
	return nil
}

// ScaleArg is a dimensionless scale factor or a variable reference.
type ScaleArg struct {
	Value *float64
	Var   VarRef
}

func ScaleOf(v float64) ScaleArg    { return ScaleArg{Value: &v} }
func ScaleVar(name VarRef) ScaleArg { return ScaleArg{Var: name} }

func (a ScaleArg) IsVar() bool { return a.Var != "" }

func (a ScaleArg) MarshalJSON() ([]byte, error) {
	if a.IsVar() {
		return json.Marshal(string(a.Var))
	}
	if a.Value == nil {
		return nil, fmt.Errorf("scale argument has neither value nor variable")
	}
	return json.Marshal(*a.Value)
}

func (a *ScaleArg) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = ScaleArg{Var: VarRef(name)}
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*a = ScaleArg{Value: &value}
	return nil
}

// PulseArg is an inline pulse definition or a reference to a declared pulse.
type PulseArg struct {
	Pulse Pulse
	Ref   PulseRef
}

func PulseInline(p Pulse) PulseArg     { return PulseArg{Pulse: p} }
func PulseNamed(name PulseRef) PulseArg { return PulseArg{Ref: name} }

func (a PulseArg) IsRef() bool { return a.Ref != "" }

func (a PulseArg) MarshalJSON() ([]byte, error) {
	if a.IsRef() {
		return json.Marshal(string(a.Ref))
	}
	if a.Pulse == nil {
		return nil, fmt.Errorf("pulse argument has neither pulse nor reference")
	}
	return json.Marshal(a.Pulse)
}

func (a *PulseArg) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = PulseArg{Ref: PulseRef(name)}
		return nil
	}
	pulse, err := UnmarshalPulse(data)
	if err != nil {
		return err
	}
	*a = PulseArg{Pulse: pulse}
	return nil
}
