package validate

import "github.com/equal1/eq1-pulse/internal/ir"

// Declaration kinds tracked by the scope stack.
const (
	declVar   = "var"
	declPulse = "pulse"
)

// Decl records one visible declaration: a VarDecl, a PulseDecl, or a loop
// variable.
type Decl struct {
	Kind  string // declVar or declPulse
	Name  string
	Path  string // node path of the declaration
	DType string // variable dtype; loop variables carry the domain's dtype
	Unit  string // quantity kind of the variable, if any
}

// frame is one scope: declarations seen so far in program order, plus the
// names a prescan found later in the same frame. A reference that only
// matches a pending name is a forward reference rather than an undeclared
// one.
type frame struct {
	declared map[string]Decl
	pending  map[string]bool
}

type scopes struct {
	stack []*frame
}

func (s *scopes) push(pending map[string]bool) {
	s.stack = append(s.stack, &frame{
		declared: make(map[string]Decl),
		pending:  pending,
	})
}

func (s *scopes) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// declare adds a declaration to the innermost frame. Redeclaring a name
// visible anywhere in the scope chain is an error: nested scopes may not
// shadow.
func (s *scopes) declare(d Decl) *Error {
	for _, f := range s.stack {
		if prev, ok := f.declared[d.Name]; ok {
			return errorf(KindDuplicateDeclaration, d.Path,
				"%s %q already declared at %s", prev.Kind, d.Name, prev.Path)
		}
	}
	top := s.stack[len(s.stack)-1]
	delete(top.pending, d.Name)
	top.declared[d.Name] = d
	return nil
}

// lookup resolves a name innermost-to-outermost. A name that only exists as
// a pending (later) declaration yields a forward-reference error; a name
// found nowhere yields an undeclared error.
func (s *scopes) lookup(kind, name, path string) (Decl, *Error) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if d, ok := s.stack[i].declared[name]; ok {
			if d.Kind != kind {
				return Decl{}, errorf(KindUndeclaredVariable, path,
					"%q is a %s, not a %s", name, d.Kind, kind)
			}
			return d, nil
		}
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].pending[name] {
			return Decl{}, errorf(KindForwardReference, path,
				"%s %q is declared later in this scope", kind, name)
		}
	}
	return Decl{}, errorf(KindUndeclaredVariable, path, "%s %q is not declared", kind, name)
}

// prescanSequence collects the declaration names of a sequence body so
// forward references inside it can be told apart from undeclared names.
// Nested bodies open their own frames and are not scanned here.
func prescanSequence(seq *ir.Sequence) map[string]bool {
	pending := make(map[string]bool)
	for _, item := range seq.Items {
		switch op := item.(type) {
		case *ir.VarDecl:
			pending[string(op.Name)] = true
		case *ir.PulseDecl:
			pending[string(op.Name)] = true
		}
	}
	return pending
}

// prescanSchedule is prescanSequence for scheduled items.
func prescanSchedule(sched *ir.Schedule) map[string]bool {
	pending := make(map[string]bool)
	for _, item := range sched.Items {
		switch op := item.Op.(type) {
		case *ir.VarDecl:
			pending[string(op.Name)] = true
		case *ir.PulseDecl:
			pending[string(op.Name)] = true
		}
	}
	return pending
}
