package config

import (
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

// schemaSrc is the CUE schema one architecture entry is unified with before
// the typed decode. The structs are open: required keys must be present
// with the right shape, but harmless annotation keys next to them are
// ignored rather than failing a CI run.
const schemaSrc = `
#TestSuite: {
	"skip-vectors": [...string]
	...
}

#Codec: {
	"test-suites": [...{[string]: #TestSuite}]
	...
}

#Arch: {
	device_type: string
	codecs: [...{[string]: #Codec}]
	...
}

#Arch
`

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
)

func schema() cue.Value {
	schemaOnce.Do(func() {
		schemaValue = cuecontext.New().CompileString(schemaSrc)
	})
	return schemaValue
}

// validateArchSchema unifies a single architecture entry with the schema
// and converts the first CUE error into a SchemaError. Only the entry
// selected for the run is ever validated; entries for other architectures
// are skipped entirely, malformed or not.
func validateArchSchema(arch string, node *yaml.Node) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return &SchemaError{FieldPath: arch, Message: err.Error(), Line: node.Line}
	}

	vErr := cueyaml.Validate(data, schema())
	if vErr == nil {
		return nil
	}

	errs := errors.Errors(vErr)
	if len(errs) == 0 {
		return &SchemaError{FieldPath: arch, Message: vErr.Error(), Line: node.Line}
	}

	first := errs[0]
	fieldPath := arch
	if p := strings.Join(first.Path(), "."); p != "" {
		fieldPath = arch + "." + p
	}
	// CUE positions point into the re-marshaled entry, so report the
	// entry's own document line instead.
	return &SchemaError{
		FieldPath: fieldPath,
		Message:   first.Error(),
		Line:      node.Line,
	}
}
