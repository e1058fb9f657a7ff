// Package config loads the test-matrix configuration document.
//
// The document maps architecture identifiers to a device type and a nested
// codec / test-suite / skip-vector structure:
//
//	intel:
//	  device_type: volteer
//	  codecs:
//	    - vp9:
//	        test-suites:
//	          - VP9-TEST-VECTORS:
//	              skip-vectors: []
//
// Codec and test-suite lists are sequences of single-key maps; the decoder
// walks the yaml.v3 node tree instead of decoding into Go maps, so
// declaration order is preserved (downstream logs and retries rely on
// stable run ordering).
//
// Schema enforcement is scoped to the architecture entry actually selected
// for a run: Load only requires a well-formed document, and an entry is
// decoded and validated against the CUE schema when Arch picks it. A shared
// config file whose entry for some other architecture is malformed must not
// block this architecture's run; unmatched entries are skipped entirely,
// broken or not.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the parsed test-matrix document. Architecture entries keep
// document order and stay raw until selected via Arch.
type Config struct {
	entries []rawEntry
}

type rawEntry struct {
	name string
	node *yaml.Node
}

// ArchEntry is one decoded top-level architecture entry.
type ArchEntry struct {
	Name       string
	DeviceType string
	Codecs     []Codec
}

// Codec is one codec declaration with its test suites in declaration order.
type Codec struct {
	Name       string
	TestSuites []TestSuite
}

// TestSuite is one test-suite declaration. SkipVectors enumerates the test
// vectors excluded from execution; an empty list is valid and distinct from
// a missing skip-vectors key, which is a schema error (config authors who
// intend no skips must write an explicit empty list).
type TestSuite struct {
	Name        string
	SkipVectors []string
}

// Arch selects, decodes, and validates the first entry matching arch
// exactly (case-sensitive).
//
// An architecture absent from the document returns (nil, nil); that is a
// valid no-op, not an error, since shared config files legitimately omit
// architectures. A matched entry that does not conform to the schema
// returns a *SchemaError. Duplicate entries for the same identifier are
// unusual but tolerated: first match wins, later duplicates are ignored.
func (c *Config) Arch(arch string) (*ArchEntry, error) {
	for _, e := range c.entries {
		if e.name == arch {
			return decodeArch(e.name, e.node)
		}
	}
	return nil, nil
}

// Load reads and parses the configuration document at path.
//
// It returns a *ParseError when the file cannot be read or is not
// well-formed YAML, and a *SchemaError when the document as a whole has no
// usable shape (empty, or not a mapping of architecture entries). Both are
// fatal to an orchestration run. Per-entry schema errors surface from Arch
// instead, so only the entry that will be processed is held to the schema.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return Parse(path, data)
}

// Parse parses a configuration document held in memory. The path is used
// only for error reporting.
func Parse(path string, data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &SchemaError{FieldPath: "(document)", Message: "document is empty"}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &SchemaError{FieldPath: "(document)", Message: "top level must be a mapping of architecture entries", Line: root.Line}
	}

	cfg := &Config{}
	for i := 0; i < len(root.Content); i += 2 {
		cfg.entries = append(cfg.entries, rawEntry{
			name: root.Content[i].Value,
			node: root.Content[i+1],
		})
	}
	return cfg, nil
}

func decodeArch(name string, node *yaml.Node) (*ArchEntry, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &SchemaError{FieldPath: name, Message: "architecture entry must be a mapping", Line: node.Line}
	}
	if err := validateArchSchema(name, node); err != nil {
		return nil, err
	}

	entry := &ArchEntry{Name: name}
	var haveDevice, haveCodecs bool
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "device_type":
			if err := val.Decode(&entry.DeviceType); err != nil {
				return nil, &SchemaError{FieldPath: name + ".device_type", Message: "must be a string", Line: val.Line}
			}
			haveDevice = true
		case "codecs":
			codecs, err := decodeCodecs(name, val)
			if err != nil {
				return nil, err
			}
			entry.Codecs = codecs
			haveCodecs = true
		}
	}
	if !haveDevice {
		return nil, &SchemaError{FieldPath: name + ".device_type", Message: "required field is missing", Line: node.Line}
	}
	if !haveCodecs {
		return nil, &SchemaError{FieldPath: name + ".codecs", Message: "required field is missing", Line: node.Line}
	}
	return entry, nil
}

func decodeCodecs(arch string, node *yaml.Node) ([]Codec, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &SchemaError{FieldPath: arch + ".codecs", Message: "must be a list of codec entries", Line: node.Line}
	}

	var codecs []Codec
	for idx, item := range node.Content {
		path := fmt.Sprintf("%s.codecs[%d]", arch, idx)
		if item.Kind != yaml.MappingNode || len(item.Content) == 0 {
			return nil, &SchemaError{FieldPath: path, Message: "codec entry must be a single-key mapping", Line: item.Line}
		}
		for i := 0; i < len(item.Content); i += 2 {
			name := item.Content[i].Value
			suites, err := decodeSuites(path+"."+name, item.Content[i+1])
			if err != nil {
				return nil, err
			}
			codecs = append(codecs, Codec{Name: name, TestSuites: suites})
		}
	}
	return codecs, nil
}

func decodeSuites(path string, node *yaml.Node) ([]TestSuite, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &SchemaError{FieldPath: path, Message: "codec body must be a mapping", Line: node.Line}
	}

	var listNode *yaml.Node
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value == "test-suites" {
			listNode = node.Content[i+1]
		}
	}
	if listNode == nil {
		return nil, &SchemaError{FieldPath: path + ".test-suites", Message: "required field is missing", Line: node.Line}
	}
	if listNode.Kind != yaml.SequenceNode {
		return nil, &SchemaError{FieldPath: path + ".test-suites", Message: "must be a list of test-suite entries", Line: listNode.Line}
	}

	var suites []TestSuite
	for idx, item := range listNode.Content {
		suitePath := fmt.Sprintf("%s.test-suites[%d]", path, idx)
		if item.Kind != yaml.MappingNode || len(item.Content) == 0 {
			return nil, &SchemaError{FieldPath: suitePath, Message: "test-suite entry must be a single-key mapping", Line: item.Line}
		}
		for i := 0; i < len(item.Content); i += 2 {
			name := item.Content[i].Value
			suite, err := decodeSuite(suitePath+"."+name, name, item.Content[i+1])
			if err != nil {
				return nil, err
			}
			suites = append(suites, *suite)
		}
	}
	return suites, nil
}

func decodeSuite(path, name string, node *yaml.Node) (*TestSuite, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &SchemaError{FieldPath: path, Message: "test-suite body must be a mapping", Line: node.Line}
	}

	suite := &TestSuite{Name: name}
	found := false
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "skip-vectors" {
			continue
		}
		val := node.Content[i+1]
		// An explicit empty list decodes to a nil slice, which is fine;
		// only the key itself is mandatory.
		if err := val.Decode(&suite.SkipVectors); err != nil {
			return nil, &SchemaError{FieldPath: path + ".skip-vectors", Message: "must be a list of vector identifiers", Line: val.Line}
		}
		found = true
	}
	if !found {
		return nil, &SchemaError{FieldPath: path + ".skip-vectors", Message: "required field is missing (write an explicit empty list for no skips)", Line: node.Line}
	}
	return suite, nil
}
