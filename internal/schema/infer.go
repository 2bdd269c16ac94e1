// Package schema implements C7's schema-inference half: turning a sampled
// request/response JSON body into a model.JSONSchema fragment and merging
// successive fragments into one converging AggregatedSchema, the way a
// type checker widens a union type as it sees more call sites.
package schema

import (
	"encoding/json"

	"github.com/flowmesh/controlplane/internal/model"
)

// Infer derives a JSONSchema fragment from one JSON-encoded body sample.
// Non-object top-level values (arrays, scalars, null) produce a schema
// with no properties — this system only tracks the shape of object
// payloads, matching spec.md 4.7's "endpoint request/response schema"
// framing (REST JSON bodies).
func Infer(body []byte) (model.JSONSchema, error) {
	if len(body) == 0 {
		return model.JSONSchema{Type: "object"}, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return model.JSONSchema{}, err
	}
	return inferValue(v), nil
}

func inferValue(v any) model.JSONSchema {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.JSONSchema{Type: jsonType(v)}
	}
	props := make(map[string]model.FieldSchema, len(obj))
	required := make([]string, 0, len(obj))
	for k, val := range obj {
		props[k] = model.FieldSchema{Types: []string{jsonType(val)}}
		required = append(required, k)
	}
	return model.JSONSchema{Type: "object", Properties: props, Required: sortedStrings(required)}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func sortedStrings(ss []string) []string {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
	return ss
}

// Merge widens base with the shape observed in fragment: fields present
// in both keep their required status; a field in only one of the two
// becomes optional (removed from Required); a field's Types set is the
// union of both sides' observed primitive types.
func Merge(base, fragment model.JSONSchema) model.JSONSchema {
	if base.Properties == nil {
		return fragment
	}
	if fragment.Properties == nil {
		return base
	}

	merged := model.JSONSchema{Type: base.Type, Properties: make(map[string]model.FieldSchema, len(base.Properties))}
	seen := make(map[string]bool, len(base.Properties)+len(fragment.Properties))
	requiredBase := toSet(base.Required)
	requiredFrag := toSet(fragment.Required)

	for name, bf := range base.Properties {
		seen[name] = true
		ff, inFragment := fragment.Properties[name]
		if !inFragment {
			merged.Properties[name] = bf
			continue
		}
		merged.Properties[name] = model.FieldSchema{Types: unionTypes(bf.Types, ff.Types)}
	}
	for name, ff := range fragment.Properties {
		if seen[name] {
			continue
		}
		merged.Properties[name] = ff
	}

	for name := range merged.Properties {
		if requiredBase[name] && requiredFrag[name] {
			merged.Required = append(merged.Required, name)
		}
	}
	merged.Required = sortedStrings(merged.Required)
	return merged
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func unionTypes(a, b []string) []string {
	set := toSet(a)
	for _, t := range b {
		set[t] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	return sortedStrings(out)
}
