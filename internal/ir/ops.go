package ir

import (
	"github.com/equal1/eq1-pulse/internal/unit"
)

// Operation type discriminators (the wire "op_type" field).
const (
	OpPlay           = "play"
	OpWait           = "wait"
	OpBarrier        = "barrier"
	OpSetFrequency   = "set_frequency"
	OpShiftFrequency = "shift_frequency"
	OpSetPhase       = "set_phase"
	OpShiftPhase     = "shift_phase"
	OpRecord         = "record"
	OpTrace          = "trace"
	OpCompensateDC   = "dc_comp"
	OpVarDecl        = "var_decl"
	OpPulseDecl      = "pulse_decl"
	OpDiscriminate   = "discriminate"
	OpStore          = "store"
	OpRepeat         = "repeat"
	OpFor            = "for"
	OpIf             = "if"
	OpInsert         = "insert"
	OpSchedule       = "schedule"

	// opSequence tags nested sequences internally only; on the wire a
	// nested sequence is a bare item array.
	opSequence = "sequence"
)

// Op is the closed set of tree nodes that can appear as container items:
// channel and data operations, control flow, and nested containers. The
// sequence and schedule flavors of control flow share op_type tags; the
// container context picks the concrete type during decoding.
type Op interface {
	OpType() string
	isOp()
}

//
// Channel operations
//

// Play plays a pulse on a channel. An optional condition variable gates the
// pulse at run time; timing is unaffected by the condition.
type Play struct {
	Channel  ChannelRef `json:"channel"`
	Pulse    PulseArg   `json:"pulse"`
	ScaleAmp *ScaleArg  `json:"scale_amp,omitempty"`
	Cond     VarRef     `json:"cond,omitempty"`
}

func (*Play) OpType() string { return OpPlay }
func (*Play) isOp()          {}

// Wait idles the listed channels for a duration. Each channel waits
// independently; no cross-channel alignment is implied.
type Wait struct {
	Channels []ChannelRef `json:"channels"`
	Duration TimeArg      `json:"duration"`
}

func (*Wait) OpType() string { return OpWait }
func (*Wait) isOp()          {}

// Barrier aligns the listed channels to their common latest cursor. An
// empty channel list means every channel seen so far.
type Barrier struct {
	Channels []ChannelRef `json:"channels,omitempty"`
}

func (*Barrier) OpType() string { return OpBarrier }
func (*Barrier) isOp()          {}

// SetFrequency sets a channel's carrier frequency. Instantaneous.
type SetFrequency struct {
	Channel   ChannelRef `json:"channel"`
	Frequency FreqArg    `json:"frequency"`
}

func (*SetFrequency) OpType() string { return OpSetFrequency }
func (*SetFrequency) isOp()          {}

// ShiftFrequency adds a delta to a channel's carrier frequency. Instantaneous.
type ShiftFrequency struct {
	Channel   ChannelRef `json:"channel"`
	Frequency FreqArg    `json:"frequency"`
}

func (*ShiftFrequency) OpType() string { return OpShiftFrequency }
func (*ShiftFrequency) isOp()          {}

// SetPhase sets a channel's phase. Instantaneous.
type SetPhase struct {
	Channel ChannelRef `json:"channel"`
	Phase   PhaseArg   `json:"phase"`
}

func (*SetPhase) OpType() string { return OpSetPhase }
func (*SetPhase) isOp()          {}

// ShiftPhase adds a delta to a channel's phase, normalized to (-pi, pi].
// Instantaneous.
type ShiftPhase struct {
	Channel ChannelRef `json:"channel"`
	Phase   PhaseArg   `json:"phase"`
}

func (*ShiftPhase) OpType() string { return OpShiftPhase }
func (*ShiftPhase) isOp()          {}

// Integration selects how a Record/Trace accumulates the measured signal.
// "full" is plain accumulation; "demod" mixes with the channel carrier
// first, with optional result rotation and per-quadrature scaling.
type Integration struct {
	Type     string      `json:"integration_type"`
	Phase    *unit.Phase `json:"phase,omitempty"`
	ScaleCos float64     `json:"scale_cos,omitempty"`
	ScaleSin float64     `json:"scale_sin,omitempty"`
}

// Integration types.
const (
	IntegrationFull  = "full"
	IntegrationDemod = "demod"
)

// FullIntegration returns the plain accumulation integration.
func FullIntegration() Integration { return Integration{Type: IntegrationFull} }

// DemodIntegration returns a demodulating integration with unit scaling.
func DemodIntegration() Integration {
	return Integration{Type: IntegrationDemod, ScaleCos: 1, ScaleSin: 1}
}

// Record acquires scalar data from a channel into a variable. An optional
// time_of_flight delays acquisition start; the channel is busy for
// time_of_flight + duration.
type Record struct {
	Channel      ChannelRef  `json:"channel"`
	Var          VarRef      `json:"var"`
	Duration     TimeArg     `json:"duration"`
	Integration  Integration `json:"integration"`
	TimeOfFlight *unit.Time  `json:"time_of_flight,omitempty"`
}

func (*Record) OpType() string { return OpRecord }
func (*Record) isOp()          {}

// Trace acquires continuous trace data into an array variable. Timing is
// identical to Record.
type Trace struct {
	Channel      ChannelRef   `json:"channel"`
	Var          VarRef       `json:"var"`
	Duration     TimeArg      `json:"duration"`
	Integration  *Integration `json:"integration,omitempty"`
	TimeOfFlight *unit.Time   `json:"time_of_flight,omitempty"`
}

func (*Trace) OpType() string { return OpTrace }
func (*Trace) isOp()          {}

// CompensateDC plays a DC-compensation pulse of the given duration, or
// resets the channel's accumulated value when duration is null.
type CompensateDC struct {
	Channel  ChannelRef    `json:"channel"`
	Duration *TimeArg      `json:"duration"`
	MaxAmp   *unit.Voltage `json:"max_amp,omitempty"`
	RiseTime *TimeArg      `json:"rise_time,omitempty"`
	FallTime *TimeArg      `json:"fall_time,omitempty"`
}

func (*CompensateDC) OpType() string { return OpCompensateDC }
func (*CompensateDC) isOp()          {}

//
// Data operations
//

// Variable data types.
const (
	DTypeBool    = "bool"
	DTypeInt     = "int"
	DTypeFloat   = "float"
	DTypeComplex = "complex"
)

// VarDecl declares a variable. The declaration is scoped to the enclosing
// container body and all nested scopes; a nested scope may not redeclare
// the name.
type VarDecl struct {
	Name  VarRef `json:"name"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

func (*VarDecl) OpType() string { return OpVarDecl }
func (*VarDecl) isOp()          {}

// PulseDecl declares a named, reusable pulse with the same scoping rules
// as VarDecl.
type PulseDecl struct {
	Name  PulseRef `json:"name"`
	Pulse Pulse    `json:"pulse"`
}

func (*PulseDecl) OpType() string { return OpPulseDecl }
func (*PulseDecl) isOp()          {}

// Comparison modes for Discriminate.
const (
	CompareGreaterEqual = ">="
	CompareGreater      = ">"
	CompareLessEqual    = "<="
	CompareLess         = "<"
)

// Complex-to-real projection modes for Discriminate.
const (
	ProjectReal  = "real"
	ProjectImag  = "imag"
	ProjectAbs   = "abs"
	ProjectPhase = "phase"
)

// Discriminate projects a recorded complex value to a real number, rotates
// it by an optional phase, and compares it against a threshold into a bool
// target variable. Instantaneous.
type Discriminate struct {
	Target    VarRef         `json:"target"`
	Source    VarRef         `json:"source"`
	Threshold unit.Threshold `json:"threshold"`
	Rotation  *unit.Phase    `json:"rotation,omitempty"`
	Compare   string         `json:"compare,omitempty"`
	Project   string         `json:"project,omitempty"`
}

func (*Discriminate) OpType() string { return OpDiscriminate }
func (*Discriminate) isOp()          {}

// Store modes.
const (
	StoreLast    = "last"
	StoreAverage = "average"
	StoreCount   = "count"
	StoreTrace   = "trace"
)

// Store forwards a variable's value to a named result stream. Instantaneous.
type Store struct {
	Key    string `json:"key"`
	Source VarRef `json:"source"`
	Mode   string `json:"mode"`
}

func (*Store) OpType() string { return OpStore }
func (*Store) isOp()          {}
