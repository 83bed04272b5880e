package ir

import (
	"encoding/json"
	"fmt"
)

// Pulse type discriminators (the wire "type" field).
const (
	PulseSquare    = "SquarePulse"
	PulseSine      = "SinePulse"
	PulseExternal  = "ExternalPulse"
	PulseArbitrary = "ArbitraryPulse"
)

// Pulse is the closed set of pulse shapes. Only SquarePulse, SinePulse,
// ExternalPulse, and ArbitraryPulse implement it.
type Pulse interface {
	PulseType() string
	// BaseDuration returns the pulse length argument; the resolvers time
	// pulses solely through it.
	BaseDuration() TimeArg
	isPulse()
}

// SquarePulse is a flat pulse with optional linear rise/fall ramps. The
// ramps are part of the duration: rise_time + fall_time must not exceed it.
type SquarePulse struct {
	Duration  TimeArg   `json:"duration"`
	Amplitude AmpArg    `json:"amplitude"`
	Phase     *PhaseArg `json:"phase,omitempty"`
	RiseTime  *TimeArg  `json:"rise_time,omitempty"`
	FallTime  *TimeArg  `json:"fall_time,omitempty"`
}

func (*SquarePulse) PulseType() string       { return PulseSquare }
func (p *SquarePulse) BaseDuration() TimeArg { return p.Duration }
func (*SquarePulse) isPulse()                {}

// SinePulse is a sinusoidal pulse. A present to_frequency makes it a linear
// frequency sweep from frequency to to_frequency over the duration.
type SinePulse struct {
	Duration    TimeArg   `json:"duration"`
	Amplitude   AmpArg    `json:"amplitude"`
	Frequency   FreqArg   `json:"frequency"`
	Phase       *PhaseArg `json:"phase,omitempty"`
	ToFrequency *FreqArg  `json:"to_frequency,omitempty"`
}

func (*SinePulse) PulseType() string       { return PulseSine }
func (p *SinePulse) BaseDuration() TimeArg { return p.Duration }
func (*SinePulse) isPulse()                {}

// ExternalPulse names an externally defined waveform function. The resolver
// never evaluates it; only its duration participates in timing.
type ExternalPulse struct {
	Function  string             `json:"function"`
	Duration  TimeArg            `json:"duration"`
	Amplitude AmpArg             `json:"amplitude"`
	Params    map[string]float64 `json:"params,omitempty"`
}

func (*ExternalPulse) PulseType() string       { return PulseExternal }
func (p *ExternalPulse) BaseDuration() TimeArg { return p.Duration }
func (*ExternalPulse) isPulse()                {}

// Sample is one complex waveform sample as a [real, imag] pair; both parts
// lie in [-1, 1] and scale by the pulse amplitude.
type Sample [2]float64

// ArbitraryPulse is a sampled waveform. If time_points is present it must
// pair one-to-one with samples, start at 0, end at 1, and increase strictly.
type ArbitraryPulse struct {
	Samples       []Sample  `json:"samples"`
	Duration      TimeArg   `json:"duration"`
	Amplitude     AmpArg    `json:"amplitude"`
	Interpolation string    `json:"interpolation,omitempty"`
	TimePoints    []float64 `json:"time_points,omitempty"`
}

func (*ArbitraryPulse) PulseType() string       { return PulseArbitrary }
func (p *ArbitraryPulse) BaseDuration() TimeArg { return p.Duration }
func (*ArbitraryPulse) isPulse()                {}

// taggedMarshal wraps a node's fields with a leading discriminator field.
func taggedMarshal(key, tag string, fields any) ([]byte, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	head, _ := json.Marshal(map[string]string{key: tag})
	if string(body) == "{}" {
		return head, nil
	}
	// Splice: {"<key>":"<tag>", <fields...>}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func (p *SquarePulse) MarshalJSON() ([]byte, error) {
	type alias SquarePulse
	return taggedMarshal("type", PulseSquare, (*alias)(p))
}

func (p *SinePulse) MarshalJSON() ([]byte, error) {
	type alias SinePulse
	return taggedMarshal("type", PulseSine, (*alias)(p))
}

func (p *ExternalPulse) MarshalJSON() ([]byte, error) {
	type alias ExternalPulse
	return taggedMarshal("type", PulseExternal, (*alias)(p))
}

func (p *ArbitraryPulse) MarshalJSON() ([]byte, error) {
	type alias ArbitraryPulse
	return taggedMarshal("type", PulseArbitrary, (*alias)(p))
}

// UnmarshalPulse decodes a pulse object by its "type" discriminator.
func UnmarshalPulse(data []byte) (Pulse, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case PulseSquare:
		var p SquarePulse
		if err := unmarshalPlain(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PulseSine:
		var p SinePulse
		if err := unmarshalPlain(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PulseExternal:
		var p ExternalPulse
		if err := unmarshalPlain(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PulseArbitrary:
		var p ArbitraryPulse
		if err := unmarshalPlain(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown pulse type %q", probe.Type)
	}
}

// unmarshalPlain decodes into v without invoking v's own UnmarshalJSON.
// The pulse structs define MarshalJSON only, so plain decoding suffices;
// this helper keeps the call sites uniform.
func unmarshalPlain(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
