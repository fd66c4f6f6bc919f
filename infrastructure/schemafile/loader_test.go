package schemafile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/schemafile"
)

const yamlSchemas = `
schemas:
  - type: Document
    name: summary
    fields:
      - name: title
        type: string
        required: true
        rule: max=80
      - name: description
        type: text
        missing: ""
`

const jsonSchemas = `{
  "schemas": [
    {"type": "Document", "name": "tagged", "extends": "default",
     "fields": [{"name": "tags", "type": "tags", "missing": ["news"]}]}
  ]
}`

const hclSchemas = `
schema "Document" "teaser" {
  extends = "summary"

  field "title" {
    type     = "string"
    required = true
    rule     = "max=40"
  }

  field "body" {
    type    = "richtext"
    missing = ""
  }
}
`

func writeSchemas(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoader_LoadDir(t *testing.T) {
	dir := writeSchemas(t, map[string]string{
		"01-summary.yaml": yamlSchemas,
		"02-tagged.json":  jsonSchemas,
		"03-teaser.hcl":   hclSchemas,
		"README.md":       "ignored",
	})

	defs, err := schemafile.NewLoader(zap.NewNop()).LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, "summary", defs[0].Name)
	assert.Equal(t, "tagged", defs[1].Name)
	assert.Equal(t, "teaser", defs[2].Name)
	assert.Equal(t, "summary", defs[2].Extends)
	assert.Equal(t, filepath.Join(dir, "03-teaser.hcl"), defs[2].Source)

	t.Run("Should register every variant", func(t *testing.T) {
		ctx := context.Background()
		reg := registry.New()
		require.NoError(t, registry.RegisterBuiltins(reg))
		require.NoError(t, schemafile.Register(ctx, reg, defs))
		reg.Seal()

		summary, err := reg.LookupType(ctx, content.TypeDocument, "summary")
		require.NoError(t, err)
		assert.Equal(t, []string{"title", "description"}, summary.Names())

		tagged, err := reg.LookupType(ctx, content.TypeDocument, "tagged")
		require.NoError(t, err)
		tags, ok := tagged.Field("tags")
		require.True(t, ok)
		assert.Equal(t, []string{"news"}, tags.Missing)

		teaser, err := reg.LookupType(ctx, content.TypeDocument, "teaser")
		require.NoError(t, err)
		assert.Equal(t, []string{"title", "description", "body"}, teaser.Names())
		title, _ := teaser.Field("title")
		assert.Equal(t, "max=40", title.Rule)
	})
}

func TestLoader_Errors(t *testing.T) {
	loader := schemafile.NewLoader(zap.NewNop())

	t.Run("Should reject unknown keys", func(t *testing.T) {
		dir := writeSchemas(t, map[string]string{"bad.yaml": "schemas:\n  - type: Document\n    nme: x\n"})
		_, err := loader.LoadDir(dir)
		assert.Error(t, err)
	})

	t.Run("Should report HCL syntax errors", func(t *testing.T) {
		dir := writeSchemas(t, map[string]string{"bad.hcl": "schema \"Document\" {"})
		_, err := loader.LoadDir(dir)
		assert.Error(t, err)
	})

	t.Run("Should return nothing without a directory", func(t *testing.T) {
		defs, err := loader.LoadDir("")
		require.NoError(t, err)
		assert.Empty(t, defs)
	})
}

func TestRegister_Errors(t *testing.T) {
	ctx := context.Background()
	newReg := func(t *testing.T) *registry.Registry {
		reg := registry.New()
		require.NoError(t, registry.RegisterBuiltins(reg))
		return reg
	}

	tests := []struct {
		name string
		def  schemafile.Definition
	}{
		{
			name: "unknown content type",
			def:  schemafile.Definition{Type: "Event", Name: "x", Fields: []schemafile.FieldDef{{Name: "title", Type: "string"}}},
		},
		{
			name: "unknown base variant",
			def:  schemafile.Definition{Type: content.TypeDocument, Name: "x", Extends: "missing"},
		},
		{
			name: "unknown field type",
			def:  schemafile.Definition{Type: content.TypeDocument, Name: "x", Fields: []schemafile.FieldDef{{Name: "n", Type: "decimal"}}},
		},
		{
			name: "unknown validation rule",
			def:  schemafile.Definition{Type: content.TypeDocument, Name: "x", Fields: []schemafile.FieldDef{{Name: "n", Type: "string", Rule: "shiny"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schemafile.Register(ctx, newReg(t), []schemafile.Definition{tt.def})
			assert.Error(t, err)
		})
	}

	t.Run("Should fail once the registry is sealed", func(t *testing.T) {
		reg := newReg(t)
		reg.Seal()
		err := schemafile.Register(ctx, reg, []schemafile.Definition{{
			Type: content.TypeDocument, Name: "late",
			Fields: []schemafile.FieldDef{{Name: "title", Type: "string"}},
		}})
		assert.ErrorIs(t, err, registry.ErrSealed)
	})
}
