package validate

import "fmt"

// Kind categorizes validation failures.
type Kind string

const (
	// KindUnitMismatch indicates a quantity or variable used with the wrong
	// kind, unit, or dtype.
	KindUnitMismatch Kind = "UnitMismatch"

	// KindDuplicateDeclaration indicates a name redeclared in the same
	// scope chain.
	KindDuplicateDeclaration Kind = "DuplicateDeclaration"

	// KindUndeclaredVariable indicates a reference to a name with no
	// visible declaration.
	KindUndeclaredVariable Kind = "UndeclaredVariable"

	// KindForwardReference indicates a reference to a declaration that
	// occurs later in program order.
	KindForwardReference Kind = "ForwardReference"

	// KindInvalidChannel indicates an empty or malformed channel name.
	KindInvalidChannel Kind = "InvalidChannel"

	// KindInvalidSamplePoints indicates malformed arbitrary-pulse samples
	// or time points.
	KindInvalidSamplePoints Kind = "InvalidSamplePoints"

	// KindNegativeDuration indicates a negative duration, including square
	// ramps exceeding the pulse length.
	KindNegativeDuration Kind = "NegativeDuration"

	// KindInvalidRepeatCount indicates a non-positive repeat count.
	KindInvalidRepeatCount Kind = "InvalidRepeatCount"

	// KindEmptyIterationDomain indicates a for loop over zero values.
	KindEmptyIterationDomain Kind = "EmptyIterationDomain"
)

// Error reports the first validation failure found in a program. Path is
// the offending node's position in the tree, e.g. items[2].body.items[0].
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
