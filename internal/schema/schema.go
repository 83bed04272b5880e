package schema

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// Issue is one schema violation found in a document.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

var (
	loadOnce sync.Once
	loadErr  error

	cuectx      *cue.Context
	programDef  cue.Value
	resolvedDef cue.Value
)

// load compiles the embedded schema once. A compile failure here is a
// build defect, not an input problem.
func load() error {
	loadOnce.Do(func() {
		cuectx = cuecontext.New()
		v := cuectx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			loadErr = err
			return
		}
		programDef = v.LookupPath(cue.ParsePath("#Program"))
		resolvedDef = v.LookupPath(cue.ParsePath("#Resolved"))
	})
	return loadErr
}

// Program checks a serialized program document against the wire schema.
// A nil result means the document conforms.
func Program(data []byte) ([]Issue, error) {
	return check("#Program", data)
}

// Resolved checks a resolved document against the wire schema.
func Resolved(data []byte) ([]Issue, error) {
	return check("#Resolved", data)
}

func check(defName string, data []byte) ([]Issue, error) {
	if err := load(); err != nil {
		return nil, err
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return []Issue{{Message: err.Error()}}, nil
	}

	def := programDef
	if defName == "#Resolved" {
		def = resolvedDef
	}

	doc := cuectx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return []Issue{{Message: err.Error()}}, nil
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return toIssues(err), nil
	}
	return nil, nil
}

// toIssues flattens a CUE error list into issues with dotted paths.
func toIssues(err error) []Issue {
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issues = append(issues, Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return issues
}
