package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// OptionSchema validates an adapter's OptionMap against a JSON Schema
// allowlist before BuildCommand ever sees the options, grounded on the
// teacher's jsonschema/v6-based contract validation, re-purposed from
// validating markdown-spec documents to validating adapter option bags.
type OptionSchema struct {
	compiled *jsonschema.Schema
	raw      map[string]any
}

// NewOptionSchema compiles a JSON Schema document (already unmarshalled
// into a map, typically from an embedded literal in the adapter's own
// package) describing the allowed option keys, types and enum values.
func NewOptionSchema(name string, doc map[string]any) (*OptionSchema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	resource, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema %s: %w", name, err)
	}
	url := "mem://" + name + ".json"
	if err := compiler.AddResource(url, resource); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}

	return &OptionSchema{compiled: compiled, raw: doc}, nil
}

// Validate converts opts to a plain map and validates it against the
// compiled schema, rejecting any key not present in the schema's
// properties (achieved via additionalProperties: false in the schema
// document) and any value outside the declared type/enum.
func (s *OptionSchema) Validate(opts OptionMap) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	plain := make(map[string]any, len(opts))
	for k, v := range opts {
		switch v.Kind {
		case KindString:
			plain[k] = v.Str
		case KindInt:
			plain[k] = v.Int
		case KindBool:
			plain[k] = v.Bool
		case KindList:
			items := make([]any, len(v.List))
			for i, s := range v.List {
				items[i] = s
			}
			plain[k] = items
		}
	}
	if err := s.compiled.Validate(plain); err != nil {
		return fmt.Errorf("option validation failed: %w", err)
	}
	return nil
}
