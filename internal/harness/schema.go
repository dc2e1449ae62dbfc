package harness

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed scenario.cue
var scenarioSchema string

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateFile checks a scenario file against the CUE schema and then
// against the structural rules LoadScenario enforces. A nil result means the
// file is valid.
func ValidateFile(path string) []ValidationError {
	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationError{{Field: "file", Message: err.Error()}}
	}
	return Validate(path, data)
}

// Validate is ValidateFile for in-memory YAML; name is used in positions.
func Validate(name string, data []byte) []ValidationError {
	if errs := validateSchema(name, data); len(errs) > 0 {
		return errs
	}
	if _, err := ParseScenario(data); err != nil {
		return []ValidationError{{Field: "scenario", Message: err.Error()}}
	}
	return nil
}

func validateSchema(name string, data []byte) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema, cue.Filename("scenario.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a build defect.
		panic(fmt.Sprintf("harness: scenario schema: %v", err))
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fromCUE("yaml", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fromCUE("yaml", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fromCUE("schema", err)
	}
	return nil
}

// fromCUE flattens a CUE error list, keeping the first position of each.
func fromCUE(field string, err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{Field: field}
		if path := e.Path(); len(path) > 0 {
			ve.Field = strings.Join(path, ".")
		}
		format, args := e.Msg()
		ve.Message = fmt.Sprintf(format, args...)
		if pos := cueerrors.Positions(e); len(pos) > 0 && pos[0].IsValid() {
			ve.Line = pos[0].Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: field, Message: err.Error()})
	}
	return out
}
