package unit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies a quantity kind. Quantities of different kinds never
// compare, convert, or mix in arithmetic.
type Kind string

const (
	KindTime      Kind = "time"
	KindFrequency Kind = "frequency"
	KindVoltage   Kind = "voltage"
	KindAngle     Kind = "angle"
)

// MismatchError reports an attempt to combine or convert quantities of
// incompatible kinds, or to decode a quantity under an unknown unit name.
type MismatchError struct {
	Kind Kind   // the kind that was expected
	Unit string // the offending unit name
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("unit mismatch: %q is not a %s unit", e.Unit, e.Kind)
}

// Time, frequency, and voltage units are decimal multiples of their base
// unit (s, Hz, V), held as powers of ten so rescaling stays exact. Angle
// units are multiples of pi and keep plain scale factors.
var (
	timeExp = map[string]int{
		"s":  0,
		"ms": -3,
		"us": -6,
		"ns": -9,
	}
	freqExp = map[string]int{
		"Hz":  0,
		"kHz": 3,
		"MHz": 6,
		"GHz": 9,
	}
	voltExp = map[string]int{
		"V":  0,
		"mV": -3,
	}
	angleScale = map[string]float64{
		"rad":        1,
		"deg":        math.Pi / 180,
		"turns":      2 * math.Pi,
		"half_turns": math.Pi,
	}
)

// expFor returns the power-of-ten exponent of a unit relative to its
// kind's base unit. Angle units carry no exponent; callers reach them
// through scaleFor.
func expFor(kind Kind, unitName string) (int, error) {
	var table map[string]int
	switch kind {
	case KindTime:
		table = timeExp
	case KindFrequency:
		table = freqExp
	case KindVoltage:
		table = voltExp
	default:
		return 0, &MismatchError{Kind: kind, Unit: unitName}
	}
	exp, ok := table[unitName]
	if !ok {
		return 0, &MismatchError{Kind: kind, Unit: unitName}
	}
	return exp, nil
}

// convertPow10 rescales a magnitude between two units given their
// base-unit exponents. A same-unit conversion is the identity, and every
// other conversion applies a single exact power of ten: scaling down
// divides by the positive power instead of multiplying by its inexact
// reciprocal, so 100 ns is 0.1 us and back again without drift.
func convertPow10(value float64, fromExp, toExp int) float64 {
	switch {
	case fromExp == toExp:
		return value
	case fromExp > toExp:
		return value * math.Pow10(fromExp-toExp)
	default:
		return value / math.Pow10(toExp-fromExp)
	}
}

// scaleFor returns the base-unit scale factor for a unit name of the given
// kind, or a MismatchError if the name does not belong to the kind.
func scaleFor(kind Kind, unitName string) (float64, error) {
	if kind == KindAngle {
		scale, ok := angleScale[unitName]
		if !ok {
			return 0, &MismatchError{Kind: kind, Unit: unitName}
		}
		return scale, nil
	}
	exp, err := expFor(kind, unitName)
	if err != nil {
		return 0, err
	}
	return math.Pow10(exp), nil
}

// KnownUnit reports whether name is a unit of the given kind.
func KnownUnit(kind Kind, name string) bool {
	_, err := scaleFor(kind, name)
	return err == nil
}

// KindOf returns the kind a unit name belongs to. Unit names are disjoint
// across kinds.
func KindOf(name string) (Kind, bool) {
	for _, kind := range []Kind{KindTime, KindFrequency, KindVoltage, KindAngle} {
		if KnownUnit(kind, name) {
			return kind, true
		}
	}
	return "", false
}

// KnownKind reports whether name is one of the quantity kind names.
func KnownKind(name string) bool {
	switch Kind(name) {
	case KindTime, KindFrequency, KindVoltage, KindAngle:
		return true
	}
	return false
}

// UnitsOf returns the unit names of a kind, longest first, for suffix
// matching in literal parsing ("half_turns" must win over "s").
func unitsOf(kind Kind) []string {
	var names []string
	switch kind {
	case KindTime:
		for name := range timeExp {
			names = append(names, name)
		}
	case KindFrequency:
		for name := range freqExp {
			names = append(names, name)
		}
	case KindVoltage:
		for name := range voltExp {
			names = append(names, name)
		}
	case KindAngle:
		for name := range angleScale {
			names = append(names, name)
		}
	}
	// Insertion sort by descending length, stable enough for four entries.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && len(names[j]) > len(names[j-1]); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

// splitLiteral splits a unit-suffixed literal like "100ns" or "-2.5 GHz"
// into its magnitude and unit name. The unit must belong to kind.
func splitLiteral(kind Kind, literal string) (float64, string, error) {
	s := strings.TrimSpace(literal)
	for _, name := range unitsOf(kind) {
		if !strings.HasSuffix(s, name) {
			continue
		}
		numPart := strings.TrimSpace(strings.TrimSuffix(s, name))
		value, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, "", fmt.Errorf("invalid magnitude %q in literal %q", numPart, literal)
		}
		return value, name, nil
	}
	return 0, "", &MismatchError{Kind: kind, Unit: literal}
}
