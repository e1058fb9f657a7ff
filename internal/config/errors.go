package config

import "fmt"

// ParseError indicates the configuration document could not be read or is
// not well-formed YAML. It wraps the underlying reader or parser
// diagnostic unchanged.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError indicates a well-formed document that does not conform to the
// test-matrix schema: a missing required field, or a field of the wrong
// shape. FieldPath names the offending location in dotted form, e.g.
// "intel.codecs[0].vp9.test-suites".
type SchemaError struct {
	FieldPath string
	Message   string
	Line      int // 1-based document line, 0 when unknown
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("config schema: %s: %s (line %d)", e.FieldPath, e.Message, e.Line)
	}
	return fmt.Sprintf("config schema: %s: %s", e.FieldPath, e.Message)
}
