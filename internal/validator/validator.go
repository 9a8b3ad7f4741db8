package validator

// =============================================================================
// CRASH EARLY, CRASH LOUD
// =============================================================================
//
// The CUE schemas are the contract between hand written request files, the
// generator and everything that consumes its output (cache, fact tables,
// policy engine).
//
// Without validation a misspelled key in a request file is silently ignored
// and the experiment runs on the wrong resources. With validation the run
// stops with "field not allowed" and the offending path.
//
// When validation fails, fix the data or the producer. Widen a schema only
// when the data model itself changed.
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed request.cue
var requestSchemaFS embed.FS

//go:embed summary.cue
var summarySchemaFS embed.FS

//go:embed facts.cue
var factsSchemaFS embed.FS

// schema is one compiled CUE file and the definition data is checked against.
type schema struct {
	ctx  *cue.Context
	def  cue.Value
	path string
}

func compile(fs embed.FS, file, path string) (*schema, error) {
	ctx := cuecontext.New()

	schemaBytes, err := fs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	compiled := ctx.CompileBytes(schemaBytes)
	if compiled.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, compiled.Err())
	}

	def := compiled.LookupPath(cue.ParsePath(path))
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", path, def.Err())
	}

	return &schema{ctx: ctx, def: def, path: path}, nil
}

func (s *schema) validateJSON(jsonBytes []byte) error {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}

	unified := s.def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s validation failed: %w", s.path, err)
	}

	return nil
}

func (s *schema) validate(data any) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return s.validateJSON(jsonBytes)
}

// validationErrors lists every failure instead of the first one. CUE drops
// "field not allowed" when other errors are present, so each top level field
// of an object is also checked on its own.
func (s *schema) validationErrors(data any) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	errs := s.collectErrors(jsonBytes)
	if len(errs) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(jsonBytes, &fields); err != nil || len(fields) < 2 {
		return errs
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{k: fields[k]})
		if err != nil {
			continue
		}
		for _, e := range s.collectErrors(single) {
			if !slices.Contains(errs, e) {
				errs = append(errs, e)
			}
		}
	}
	return errs
}

func (s *schema) collectErrors(jsonBytes []byte) []string {
	dataValue := s.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	err := s.def.Unify(dataValue).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// RequestValidator validates request documents before they are converted.
type RequestValidator struct {
	s *schema
}

// NewRequestValidator creates a validator with the embedded request schema
func NewRequestValidator() (*RequestValidator, error) {
	s, err := compile(requestSchemaFS, "request.cue", "#Request")
	if err != nil {
		return nil, err
	}
	return &RequestValidator{s: s}, nil
}

// Validate checks a decoded request document (maps, lists and scalars).
func (v *RequestValidator) Validate(data any) error {
	return v.s.validate(data)
}

// ValidateJSON validates JSON bytes directly against the schema
func (v *RequestValidator) ValidateJSON(jsonBytes []byte) error {
	return v.s.validateJSON(jsonBytes)
}

// ValidationErrors returns detailed information about all validation errors
func (v *RequestValidator) ValidationErrors(data any) []string {
	return v.s.validationErrors(data)
}

// SummaryValidator validates serialised representations
type SummaryValidator struct {
	s *schema
}

// NewSummaryValidator creates a validator for representation summaries
func NewSummaryValidator() (*SummaryValidator, error) {
	s, err := compile(summarySchemaFS, "summary.cue", "#Summary")
	if err != nil {
		return nil, err
	}
	return &SummaryValidator{s: s}, nil
}

// Validate checks that a summary conforms to the schema
func (v *SummaryValidator) Validate(data any) error {
	return v.s.validate(data)
}

// ValidateJSON validates a summary read from disk
func (v *SummaryValidator) ValidateJSON(jsonBytes []byte) error {
	return v.s.validateJSON(jsonBytes)
}

// FactsValidator validates relational fact tables against the facts schema.
type FactsValidator struct {
	s *schema
}

// NewFactsValidator creates a validator for relational fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	s, err := compile(factsSchemaFS, "facts.cue", "#FactTables")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{s: s}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(data any) error {
	return v.s.validate(data)
}
