package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/equal1/eq1-pulse/internal/ir"
)

// ReadProgramBytes reads a program document as JSON bytes. The format
// follows the extension: .yaml/.yml decode through YAML and re-encode as
// JSON, everything else is passed through as JSON. The result can be
// schema-checked before any typed decoding happens.
func ReadProgramBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot read program file", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, WrapExitError(ExitCommandError,
				fmt.Sprintf("cannot parse %s as YAML", path), err)
		}
	}
	return data, nil
}

// LoadProgram reads a program document from a JSON or YAML file and decodes
// it into the typed tree. The returned bytes are the document as JSON,
// after YAML conversion if any.
func LoadProgram(path string) (ir.Program, []byte, error) {
	data, err := ReadProgramBytes(path)
	if err != nil {
		return ir.Program{}, nil, err
	}

	var p ir.Program
	if err := p.UnmarshalJSON(data); err != nil {
		return ir.Program{}, nil, WrapExitError(ExitFailure,
			fmt.Sprintf("cannot decode program %s", path), err)
	}
	return p, data, nil
}

// yamlToJSON converts a YAML document to JSON bytes. YAML mappings with
// string keys decode to map[string]any under yaml.v3, so the round-trip
// through encoding/json is direct.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
