package unit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/cmplx"
)

// marshalScalar emits {"<unit>": <number>} with encoding/json's number
// formatting, which is stable under round-trips.
func marshalScalar(unitName string, value float64) ([]byte, error) {
	num, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	key, _ := json.Marshal(unitName)
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(num)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// unmarshalSingleKey decodes a {"<unit>": <raw>} mapping and rejects
// anything with more or fewer than one key.
func unmarshalSingleKey(data []byte) (string, json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, err
	}
	if len(raw) != 1 {
		return "", nil, fmt.Errorf("quantity must be a single-key mapping, got %d keys", len(raw))
	}
	for key, value := range raw {
		return key, value, nil
	}
	return "", nil, nil // unreachable
}

//
// Time
//

// Time is a signed time quantity. The zero value is 0 s.
type Time struct {
	value float64
	unit  string
}

// Duration is a Time that is required to be non-negative wherever the IR
// uses it; the validator enforces the sign.
type Duration = Time

func Seconds(v float64) Time      { return Time{value: v, unit: "s"} }
func Milliseconds(v float64) Time { return Time{value: v, unit: "ms"} }
func Microseconds(v float64) Time { return Time{value: v, unit: "us"} }
func Nanoseconds(v float64) Time  { return Time{value: v, unit: "ns"} }

// TimeIn constructs a Time from a magnitude and unit name.
func TimeIn(value float64, unitName string) (Time, error) {
	if _, err := scaleFor(KindTime, unitName); err != nil {
		return Time{}, err
	}
	return Time{value: value, unit: unitName}, nil
}

// ParseTime parses a unit-suffixed literal such as "100ns".
func ParseTime(literal string) (Time, error) {
	value, unitName, err := splitLiteral(KindTime, literal)
	if err != nil {
		return Time{}, err
	}
	return Time{value: value, unit: unitName}, nil
}

func (t Time) unitOrDefault() string {
	if t.unit == "" {
		return "s"
	}
	return t.unit
}

func (t Time) exp() int {
	exp, _ := expFor(KindTime, t.unitOrDefault())
	return exp
}

// S returns the value in seconds, the base unit.
func (t Time) S() float64 { return convertPow10(t.value, t.exp(), 0) }

func (t Time) Ms() float64 { return convertPow10(t.value, t.exp(), -3) }
func (t Time) Us() float64 { return convertPow10(t.value, t.exp(), -6) }
func (t Time) Ns() float64 { return convertPow10(t.value, t.exp(), -9) }

// Unit returns the construction unit, which serialization preserves.
func (t Time) Unit() string { return t.unitOrDefault() }

// In converts to another time unit. Unit ratios are exact powers of ten,
// so a same-unit conversion is the identity.
func (t Time) In(unitName string) (Time, error) {
	to, err := expFor(KindTime, unitName)
	if err != nil {
		return Time{}, err
	}
	return Time{value: convertPow10(t.value, t.exp(), to), unit: unitName}, nil
}

// Add returns t+other expressed in t's unit. The addend is rescaled into
// t's unit before the sum, so chained same-unit additions accumulate no
// conversion error.
func (t Time) Add(other Time) Time {
	return Time{
		value: t.value + convertPow10(other.value, other.exp(), t.exp()),
		unit:  t.unitOrDefault(),
	}
}

// Sub returns t-other expressed in t's unit.
func (t Time) Sub(other Time) Time {
	return Time{
		value: t.value - convertPow10(other.value, other.exp(), t.exp()),
		unit:  t.unitOrDefault(),
	}
}

// Scale returns t multiplied by a dimensionless factor.
func (t Time) Scale(k float64) Time {
	return Time{value: t.value * k, unit: t.unitOrDefault()}
}

// Cmp compares magnitudes in the finer of the two units, where both
// rescalings are exact: -1 if t < other, 0 if equal, 1 if greater.
func (t Time) Cmp(other Time) int {
	exp := t.exp()
	if e := other.exp(); e < exp {
		exp = e
	}
	a := convertPow10(t.value, t.exp(), exp)
	b := convertPow10(other.value, other.exp(), exp)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t Time) Equal(other Time) bool { return t.Cmp(other) == 0 }
func (t Time) IsZero() bool          { return t.value == 0 }
func (t Time) IsNegative() bool      { return t.value < 0 }

func (t Time) String() string {
	num, _ := json.Marshal(t.value)
	return string(num) + t.unitOrDefault()
}

func (t Time) MarshalJSON() ([]byte, error) {
	return marshalScalar(t.unitOrDefault(), t.value)
}

func (t *Time) UnmarshalJSON(data []byte) error {
	unitName, raw, err := unmarshalSingleKey(data)
	if err != nil {
		return err
	}
	if _, err := scaleFor(KindTime, unitName); err != nil {
		return err
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	t.value, t.unit = value, unitName
	return nil
}

//
// Frequency
//

// Frequency is a frequency quantity. The zero value is 0 Hz.
type Frequency struct {
	value float64
	unit  string
}

func Hertz(v float64) Frequency     { return Frequency{value: v, unit: "Hz"} }
func Kilohertz(v float64) Frequency { return Frequency{value: v, unit: "kHz"} }
func Megahertz(v float64) Frequency { return Frequency{value: v, unit: "MHz"} }
func Gigahertz(v float64) Frequency { return Frequency{value: v, unit: "GHz"} }

// FrequencyIn constructs a Frequency from a magnitude and unit name.
func FrequencyIn(value float64, unitName string) (Frequency, error) {
	if _, err := scaleFor(KindFrequency, unitName); err != nil {
		return Frequency{}, err
	}
	return Frequency{value: value, unit: unitName}, nil
}

// ParseFrequency parses a unit-suffixed literal such as "5GHz".
func ParseFrequency(literal string) (Frequency, error) {
	value, unitName, err := splitLiteral(KindFrequency, literal)
	if err != nil {
		return Frequency{}, err
	}
	return Frequency{value: value, unit: unitName}, nil
}

func (f Frequency) unitOrDefault() string {
	if f.unit == "" {
		return "Hz"
	}
	return f.unit
}

func (f Frequency) exp() int {
	exp, _ := expFor(KindFrequency, f.unitOrDefault())
	return exp
}

// Hz returns the value in hertz, the base unit.
func (f Frequency) Hz() float64 { return convertPow10(f.value, f.exp(), 0) }

func (f Frequency) KHz() float64 { return convertPow10(f.value, f.exp(), 3) }
func (f Frequency) MHz() float64 { return convertPow10(f.value, f.exp(), 6) }
func (f Frequency) GHz() float64 { return convertPow10(f.value, f.exp(), 9) }

func (f Frequency) Unit() string { return f.unitOrDefault() }

// Add returns f+other expressed in f's unit.
func (f Frequency) Add(other Frequency) Frequency {
	return Frequency{
		value: f.value + convertPow10(other.value, other.exp(), f.exp()),
		unit:  f.unitOrDefault(),
	}
}

// Equal compares magnitudes in the finer of the two units, where both
// rescalings are exact.
func (f Frequency) Equal(other Frequency) bool {
	exp := f.exp()
	if e := other.exp(); e < exp {
		exp = e
	}
	return convertPow10(f.value, f.exp(), exp) == convertPow10(other.value, other.exp(), exp)
}

func (f Frequency) IsZero() bool { return f.value == 0 }

func (f Frequency) String() string {
	num, _ := json.Marshal(f.value)
	return string(num) + f.unitOrDefault()
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	return marshalScalar(f.unitOrDefault(), f.value)
}

func (f *Frequency) UnmarshalJSON(data []byte) error {
	unitName, raw, err := unmarshalSingleKey(data)
	if err != nil {
		return err
	}
	if _, err := scaleFor(KindFrequency, unitName); err != nil {
		return err
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	f.value, f.unit = value, unitName
	return nil
}

//
// Voltage
//

// Voltage is a real voltage quantity. The zero value is 0 V.
type Voltage struct {
	value float64
	unit  string
}

// Threshold is a real voltage level used by discrimination.
type Threshold = Voltage

func Volts(v float64) Voltage      { return Voltage{value: v, unit: "V"} }
func Millivolts(v float64) Voltage { return Voltage{value: v, unit: "mV"} }

// VoltageIn constructs a Voltage from a magnitude and unit name.
func VoltageIn(value float64, unitName string) (Voltage, error) {
	if _, err := scaleFor(KindVoltage, unitName); err != nil {
		return Voltage{}, err
	}
	return Voltage{value: value, unit: unitName}, nil
}

// ParseVoltage parses a unit-suffixed literal such as "50mV".
func ParseVoltage(literal string) (Voltage, error) {
	value, unitName, err := splitLiteral(KindVoltage, literal)
	if err != nil {
		return Voltage{}, err
	}
	return Voltage{value: value, unit: unitName}, nil
}

func (v Voltage) unitOrDefault() string {
	if v.unit == "" {
		return "V"
	}
	return v.unit
}

func (v Voltage) exp() int {
	exp, _ := expFor(KindVoltage, v.unitOrDefault())
	return exp
}

// V returns the value in volts, the base unit.
func (v Voltage) V() float64 { return convertPow10(v.value, v.exp(), 0) }

func (v Voltage) MV() float64 { return convertPow10(v.value, v.exp(), -3) }

func (v Voltage) Unit() string { return v.unitOrDefault() }

// Equal compares magnitudes in the finer of the two units, where both
// rescalings are exact.
func (v Voltage) Equal(other Voltage) bool {
	exp := v.exp()
	if e := other.exp(); e < exp {
		exp = e
	}
	return convertPow10(v.value, v.exp(), exp) == convertPow10(other.value, other.exp(), exp)
}

func (v Voltage) IsZero() bool     { return v.value == 0 }
func (v Voltage) IsNegative() bool { return v.value < 0 }

func (v Voltage) String() string {
	num, _ := json.Marshal(v.value)
	return string(num) + v.unitOrDefault()
}

func (v Voltage) MarshalJSON() ([]byte, error) {
	return marshalScalar(v.unitOrDefault(), v.value)
}

func (v *Voltage) UnmarshalJSON(data []byte) error {
	unitName, raw, err := unmarshalSingleKey(data)
	if err != nil {
		return err
	}
	if _, err := scaleFor(KindVoltage, unitName); err != nil {
		return err
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	v.value, v.unit = value, unitName
	return nil
}

//
// Amplitude
//

// Amplitude is a complex voltage carrying both magnitude and phase
// information. A purely real amplitude serializes as a scalar; otherwise
// the magnitude is a [real, imag] pair.
type Amplitude struct {
	value complex128
	unit  string
}

func ComplexVolts(v complex128) Amplitude      { return Amplitude{value: v, unit: "V"} }
func ComplexMillivolts(v complex128) Amplitude { return Amplitude{value: v, unit: "mV"} }

// AmplitudeIn constructs an Amplitude from a magnitude and unit name.
func AmplitudeIn(value complex128, unitName string) (Amplitude, error) {
	if _, err := scaleFor(KindVoltage, unitName); err != nil {
		return Amplitude{}, err
	}
	return Amplitude{value: value, unit: unitName}, nil
}

// ParseAmplitude parses a real-valued literal such as "50mV".
func ParseAmplitude(literal string) (Amplitude, error) {
	value, unitName, err := splitLiteral(KindVoltage, literal)
	if err != nil {
		return Amplitude{}, err
	}
	return Amplitude{value: complex(value, 0), unit: unitName}, nil
}

func (a Amplitude) unitOrDefault() string {
	if a.unit == "" {
		return "V"
	}
	return a.unit
}

func (a Amplitude) exp() int {
	exp, _ := expFor(KindVoltage, a.unitOrDefault())
	return exp
}

// in rescales both components to the unit with the given exponent.
func (a Amplitude) in(exp int) complex128 {
	return complex(
		convertPow10(real(a.value), a.exp(), exp),
		convertPow10(imag(a.value), a.exp(), exp),
	)
}

// V returns the value in volts, the base unit.
func (a Amplitude) V() complex128 { return a.in(0) }

func (a Amplitude) MV() complex128 { return a.in(-3) }

func (a Amplitude) Unit() string { return a.unitOrDefault() }

// Abs returns the magnitude of the amplitude as a real Voltage.
func (a Amplitude) Abs() Voltage {
	return Voltage{value: cmplx.Abs(a.value), unit: a.unitOrDefault()}
}

// Phase returns the argument of the amplitude.
func (a Amplitude) Phase() Angle { return Radians(cmplx.Phase(a.value)) }

// Scale returns the amplitude multiplied by a dimensionless factor.
func (a Amplitude) Scale(k complex128) Amplitude {
	return Amplitude{value: a.value * k, unit: a.unitOrDefault()}
}

// Equal compares magnitudes in the finer of the two units, where both
// rescalings are exact.
func (a Amplitude) Equal(other Amplitude) bool {
	exp := a.exp()
	if e := other.exp(); e < exp {
		exp = e
	}
	return a.in(exp) == other.in(exp)
}

func (a Amplitude) IsZero() bool { return a.value == 0 }

func (a Amplitude) MarshalJSON() ([]byte, error) {
	if imag(a.value) == 0 {
		return marshalScalar(a.unitOrDefault(), real(a.value))
	}
	pair, err := json.Marshal([2]float64{real(a.value), imag(a.value)})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	key, _ := json.Marshal(a.unitOrDefault())
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(pair)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a *Amplitude) UnmarshalJSON(data []byte) error {
	unitName, raw, err := unmarshalSingleKey(data)
	if err != nil {
		return err
	}
	if _, err := scaleFor(KindVoltage, unitName); err != nil {
		return err
	}
	if len(raw) > 0 && raw[0] == '[' {
		var pair [2]float64
		if err := json.Unmarshal(raw, &pair); err != nil {
			return err
		}
		a.value, a.unit = complex(pair[0], pair[1]), unitName
		return nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	a.value, a.unit = complex(value, 0), unitName
	return nil
}

//
// Angle
//

// Angle is an angle quantity. The zero value is 0 rad.
type Angle struct {
	value float64
	unit  string
}

// Phase is an Angle used as a signal phase.
type Phase = Angle

func Radians(v float64) Angle   { return Angle{value: v, unit: "rad"} }
func Degrees(v float64) Angle   { return Angle{value: v, unit: "deg"} }
func Turns(v float64) Angle     { return Angle{value: v, unit: "turns"} }
func HalfTurns(v float64) Angle { return Angle{value: v, unit: "half_turns"} }

// AngleIn constructs an Angle from a magnitude and unit name.
func AngleIn(value float64, unitName string) (Angle, error) {
	if _, err := scaleFor(KindAngle, unitName); err != nil {
		return Angle{}, err
	}
	return Angle{value: value, unit: unitName}, nil
}

// ParseAngle parses a unit-suffixed literal such as "0.5turns".
func ParseAngle(literal string) (Angle, error) {
	value, unitName, err := splitLiteral(KindAngle, literal)
	if err != nil {
		return Angle{}, err
	}
	return Angle{value: value, unit: unitName}, nil
}

func (a Angle) unitOrDefault() string {
	if a.unit == "" {
		return "rad"
	}
	return a.unit
}

// Rad returns the value in radians, the base unit.
func (a Angle) Rad() float64 {
	scale, _ := scaleFor(KindAngle, a.unitOrDefault())
	return a.value * scale
}

func (a Angle) Deg() float64       { return a.Rad() * 180 / math.Pi }
func (a Angle) InTurns() float64   { return a.Rad() / (2 * math.Pi) }
func (a Angle) HalfTurns() float64 { return a.Rad() / math.Pi }

func (a Angle) Unit() string { return a.unitOrDefault() }

// ShiftBy returns a+delta normalized to (-pi, pi], in radians. Phase
// accumulation on a channel always stays in the principal branch.
func (a Angle) ShiftBy(delta Angle) Angle {
	sum := a.Rad() + delta.Rad()
	sum = math.Mod(sum, 2*math.Pi)
	if sum <= -math.Pi {
		sum += 2 * math.Pi
	} else if sum > math.Pi {
		sum -= 2 * math.Pi
	}
	return Radians(sum)
}

func (a Angle) Equal(other Angle) bool { return a.Rad() == other.Rad() }
func (a Angle) IsZero() bool           { return a.Rad() == 0 }

func (a Angle) String() string {
	num, _ := json.Marshal(a.value)
	return string(num) + a.unitOrDefault()
}

func (a Angle) MarshalJSON() ([]byte, error) {
	return marshalScalar(a.unitOrDefault(), a.value)
}

func (a *Angle) UnmarshalJSON(data []byte) error {
	unitName, raw, err := unmarshalSingleKey(data)
	if err != nil {
		return err
	}
	if _, err := scaleFor(KindAngle, unitName); err != nil {
		return err
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	a.value, a.unit = value, unitName
	return nil
}
