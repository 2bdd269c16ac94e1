package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/model"
)

func TestInfer_EmptyBodyYieldsBareObject(t *testing.T) {
	s, err := Infer(nil)
	require.NoError(t, err)
	require.Equal(t, "object", s.Type)
	require.Nil(t, s.Properties)
}

func TestInfer_ObjectBody(t *testing.T) {
	s, err := Infer([]byte(`{"id": 1, "name": "acme", "active": true}`))
	require.NoError(t, err)
	require.Equal(t, "object", s.Type)
	require.ElementsMatch(t, []string{"active", "id", "name"}, s.Required)
	require.Equal(t, []string{"number"}, s.Properties["id"].Types)
	require.Equal(t, []string{"string"}, s.Properties["name"].Types)
	require.Equal(t, []string{"boolean"}, s.Properties["active"].Types)
}

func TestInfer_NonObjectTopLevelHasNoProperties(t *testing.T) {
	s, err := Infer([]byte(`[1, 2, 3]`))
	require.NoError(t, err)
	require.Equal(t, "array", s.Type)
	require.Nil(t, s.Properties)
}

func TestInfer_InvalidJSONErrors(t *testing.T) {
	_, err := Infer([]byte(`{not json`))
	require.Error(t, err)
}

func TestMerge_FieldInBothKeepsRequired(t *testing.T) {
	base := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	fragment := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	merged := Merge(base, fragment)
	require.Equal(t, []string{"id"}, merged.Required)
}

func TestMerge_FieldInOnlyOneBecomesOptional(t *testing.T) {
	base := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}, "nickname": {Types: []string{"string"}}},
		Required:   []string{"id", "nickname"},
	}
	fragment := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	merged := Merge(base, fragment)
	require.Equal(t, []string{"id"}, merged.Required, "nickname absent from fragment must drop out of required")
	require.Contains(t, merged.Properties, "nickname", "but the field itself must still be tracked as optional")
}

func TestMerge_TypesUnion(t *testing.T) {
	base := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"value": {Types: []string{"string"}}},
		Required:   []string{"value"},
	}
	fragment := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"value": {Types: []string{"number"}}},
		Required:   []string{"value"},
	}
	merged := Merge(base, fragment)
	require.ElementsMatch(t, []string{"number", "string"}, merged.Properties["value"].Types)
}

func TestMerge_NilPropertiesSideIsIdentity(t *testing.T) {
	base := model.JSONSchema{Type: "object"}
	fragment := model.JSONSchema{
		Type:       "object",
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	require.Equal(t, fragment, Merge(base, fragment))
	require.Equal(t, base, Merge(fragment, base))
}

func TestDiff_RequiredFieldRemovedIsBreaking(t *testing.T) {
	prev := model.JSONSchema{
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	next := model.JSONSchema{Properties: map[string]model.FieldSchema{}}
	changes := Diff(prev, next)
	require.Len(t, changes, 1)
	require.Contains(t, changes[0], "id")
}

func TestDiff_TypeChangeIsBreaking(t *testing.T) {
	prev := model.JSONSchema{
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	next := model.JSONSchema{
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"string"}}},
		Required:   []string{"id"},
	}
	require.NotEmpty(t, Diff(prev, next))
}

func TestDiff_WideningIsNotBreaking(t *testing.T) {
	prev := model.JSONSchema{
		Properties: map[string]model.FieldSchema{"id": {Types: []string{"number"}}},
		Required:   []string{"id"},
	}
	next := model.JSONSchema{
		Properties: map[string]model.FieldSchema{
			"id":      {Types: []string{"number"}},
			"nick": {Types: []string{"string"}},
		},
		Required: []string{"id"},
	}
	require.Empty(t, Diff(prev, next))
}
