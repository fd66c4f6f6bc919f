package schema_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

type values map[string]interface{}

func (v values) Value(name string) (interface{}, bool) {
	val, ok := v[name]
	return val, ok
}

func TestNew_RejectsDuplicateFields(t *testing.T) {
	_, err := schema.New("x",
		schema.Field{Name: "title", Type: schema.TypeString},
		schema.Field{Name: "title", Type: schema.TypeText},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = schema.New("x", schema.Field{Name: "a", Type: "blob"})
	require.Error(t, err)
}

func TestSerialize(t *testing.T) {
	s := schema.Document()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Should drop unknown fields and null absent ones", func(t *testing.T) {
		out, err := s.Serialize(values{
			"title":    "Hello",
			"tags":     []string{"a"},
			"internal": "secret",
		})
		require.NoError(t, err)

		assert.Equal(t, "Hello", out["title"])
		assert.Equal(t, []string{"a"}, out["tags"])
		assert.Contains(t, out, "description")
		assert.Nil(t, out["description"])
		assert.NotContains(t, out, "internal")
	})

	t.Run("Should format dates", func(t *testing.T) {
		meta := schema.Metadata()
		out, err := meta.Serialize(values{"creation_date": created, "modification_date": time.Time{}})
		require.NoError(t, err)
		assert.Equal(t, "2024-03-01T10:00:00Z", out["creation_date"])
		assert.Nil(t, out["modification_date"])
	})

	t.Run("Should fail on a wrongly typed stored value", func(t *testing.T) {
		_, err := s.Serialize(values{"title": 42})
		require.Error(t, err)
	})
}

func TestDeserialize(t *testing.T) {
	s := schema.Document()

	t.Run("Should fill missing values", func(t *testing.T) {
		out, err := s.Deserialize(map[string]interface{}{"title": "Doc"})
		require.NoError(t, err)
		assert.Equal(t, "Doc", out["title"])
		assert.Equal(t, "", out["description"])
		assert.Equal(t, "", out["body"])
		assert.Equal(t, []string{}, out["tags"])
	})

	t.Run("Should report every invalid field", func(t *testing.T) {
		_, err := s.Deserialize(map[string]interface{}{
			"description": 5,
		})
		require.Error(t, err)

		appErr := pkgerrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.ErrorTypeValidation, appErr.Type)
		assert.Equal(t, "Required", appErr.Fields["title"])
		assert.Contains(t, appErr.Fields, "description")
	})

	t.Run("Should apply validator rules", func(t *testing.T) {
		_, err := s.Deserialize(map[string]interface{}{"title": strings.Repeat("x", 251)})
		require.Error(t, err)
		assert.Equal(t, "Longer than maximum length 250", pkgerrors.GetAppError(err).Fields["title"])
	})

	t.Run("Should reject blank required strings", func(t *testing.T) {
		_, err := s.Deserialize(map[string]interface{}{"title": "   "})
		require.Error(t, err)
	})

	t.Run("Should split and dedupe tags", func(t *testing.T) {
		out, err := s.Deserialize(map[string]interface{}{
			"title": "T",
			"tags":  []interface{}{"a", " b ", "a", ""},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, out["tags"])
	})
}

func TestDeserializePartial(t *testing.T) {
	s := schema.Document()

	t.Run("Should only return supplied keys", func(t *testing.T) {
		out, err := s.DeserializePartial(map[string]interface{}{"title": "New"})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"title": "New"}, out)
	})

	t.Run("Should ignore keys outside the schema", func(t *testing.T) {
		out, err := s.DeserializePartial(map[string]interface{}{
			"title": "Changed",
			"owner": "mallory",
			"oid":   float64(2),
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"title": "Changed"}, out)
	})

	t.Run("Should still validate declared keys", func(t *testing.T) {
		_, err := s.DeserializePartial(map[string]interface{}{"title": "   ", "oid": float64(2)})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestFileField(t *testing.T) {
	s := schema.File()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	out, err := s.Deserialize(map[string]interface{}{
		"title": "Logo",
		"file": map[string]interface{}{
			"filename": "logo.png",
			"data":     base64.StdEncoding.EncodeToString(png),
		},
	})
	require.NoError(t, err)

	fv, ok := out["file"].(*schema.FileValue)
	require.True(t, ok)
	assert.Equal(t, "image/png", fv.MimeType)
	assert.Equal(t, len(png), fv.Size)

	rendered, err := s.Serialize(values{"title": "Logo", "file": fv})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"filename": "logo.png",
		"mimetype": "image/png",
		"size":     len(png),
	}, rendered["file"])
}
