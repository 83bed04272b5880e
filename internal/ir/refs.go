package ir

import "regexp"

// identPattern matches the identifiers accepted for variable, pulse, and
// channel names. Names are case-sensitive.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is a non-empty, case-sensitive
// identifier.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// VarRef is a symbolic reference to a declared variable. It serializes as
// the bare variable name.
type VarRef string

// ChannelRef names a control or readout line. Channels are defined by the
// target hardware configuration; the IR only checks the name shape.
type ChannelRef string

// PulseRef is a symbolic reference to a declared pulse. It serializes as
// the bare pulse name.
type PulseRef string

func (r VarRef) Valid() bool     { return ValidIdentifier(string(r)) }
func (r ChannelRef) Valid() bool { return ValidIdentifier(string(r)) }
func (r PulseRef) Valid() bool   { return ValidIdentifier(string(r)) }
