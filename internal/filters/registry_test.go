package filters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaRegistry_ValidateUnregisteredNameIsPermissive(t *testing.T) {
	r := NewSchemaRegistry()
	require.False(t, r.Has("custom_waf"))
	require.NoError(t, r.Validate("custom_waf", map[string]any{"anything": "goes"}))
}

func TestSchemaRegistry_RegisterAndValidate(t *testing.T) {
	r := NewSchemaRegistry()
	schema := map[string]any{
		"type":     "object",
		"required": []any{"block_mode"},
		"properties": map[string]any{
			"block_mode": map[string]any{"type": "boolean"},
		},
	}
	require.NoError(t, r.Register("custom_waf", schema))
	require.True(t, r.Has("custom_waf"))

	require.NoError(t, r.Validate("custom_waf", map[string]any{"block_mode": true}))
	require.Error(t, r.Validate("custom_waf", map[string]any{}), "missing required property must fail validation")
}

func TestSchemaRegistry_ReRegisterReplaces(t *testing.T) {
	r := NewSchemaRegistry()
	loose := map[string]any{"type": "object"}
	strict := map[string]any{
		"type":     "object",
		"required": []any{"must_have"},
	}
	require.NoError(t, r.Register("dyn", loose))
	require.NoError(t, r.Validate("dyn", map[string]any{}))

	require.NoError(t, r.Register("dyn", strict))
	require.Error(t, r.Validate("dyn", map[string]any{}))
}

func TestLoadSchemaDir_RegistersEachJSONFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom_waf.json"), []byte(`{"type":"object"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rate_shaper.json"), []byte(`{"type":"object"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("not json"), 0o644))

	r := NewSchemaRegistry()
	require.NoError(t, LoadSchemaDir(r, dir))
	require.True(t, r.Has("custom_waf"))
	require.True(t, r.Has("rate_shaper"))
	require.False(t, r.Has("README"))
}

func TestLoadSchemaDir_MissingDirIsError(t *testing.T) {
	r := NewSchemaRegistry()
	err := LoadSchemaDir(r, filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestLoadSchemaDir_InvalidJSONIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{not valid json`), 0o644))
	r := NewSchemaRegistry()
	err := LoadSchemaDir(r, dir)
	require.Error(t, err)
}
