package resolve

import "fmt"

// Kind categorizes resolution failures.
type Kind string

const (
	// KindUnitMismatch indicates a loop literal that cannot convert to the
	// quantity kind its substitution site expects.
	KindUnitMismatch Kind = "UnitMismatch"

	// KindUnresolvedReference indicates an anchor naming an item not yet
	// defined, an unknown block, or a duration still symbolic at
	// resolution time.
	KindUnresolvedReference Kind = "UnresolvedReference"

	// KindCyclicReference indicates a block expansion that revisits a
	// block already on the resolution stack.
	KindCyclicReference Kind = "CyclicReference"

	// KindUnconsumedBlock indicates a schedule that closed with a block
	// def inserted zero times, or an insert hit more than once.
	KindUnconsumedBlock Kind = "UnconsumedBlock"

	// KindNegativeDuration indicates a duration that became negative after
	// substitution.
	KindNegativeDuration Kind = "NegativeDuration"

	// KindInvalidRepeatCount indicates a repeat whose count is not a
	// positive integer.
	KindInvalidRepeatCount Kind = "InvalidRepeatCount"
)

// Error reports the first resolution failure. Path is the offending node's
// position in the input tree.
type Error struct {
	Kind    Kind
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

func errorf(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}
