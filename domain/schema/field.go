package schema

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// FieldType tags the wire and storage representation of a field.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeText     FieldType = "text"
	TypeRichText FieldType = "richtext"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeBoolean  FieldType = "boolean"
	TypeInteger  FieldType = "integer"
	TypeTags     FieldType = "tags"
	TypeFile     FieldType = "file"
)

const dateLayout = "2006-01-02"

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeText, TypeRichText, TypeDate, TypeDateTime,
		TypeBoolean, TypeInteger, TypeTags, TypeFile:
		return true
	}
	return false
}

// Field describes one attribute of a schema.
type Field struct {
	Name     string
	Type     FieldType
	Title    string
	Required bool
	// Rule is a go-playground/validator tag applied to the decoded value.
	Rule string
	// Missing is used when a non-required field is absent from a full document.
	Missing interface{}
}

// FileValue is the stored form of an uploaded blob.
type FileValue struct {
	Filename string `json:"filename" dynamodbav:"filename"`
	MimeType string `json:"mimetype" dynamodbav:"mimetype"`
	Size     int    `json:"size" dynamodbav:"size"`
	Data     []byte `json:"-" dynamodbav:"data"`
}

// serialize converts a stored value into its JSON form. Zero times and nil
// pointers come out as nil.
func (f Field) serialize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case TypeString, TypeText, TypeRichText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: expected string, got %T", f.Name, v)
		}
		return s, nil
	case TypeDate, TypeDateTime:
		var t time.Time
		switch tv := v.(type) {
		case time.Time:
			t = tv
		case string:
			// stores without a native time type hand back the formatted string
			parsed, err := parseStoredTime(tv)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			t = parsed
		default:
			return nil, fmt.Errorf("field %s: expected time, got %T", f.Name, v)
		}
		if t.IsZero() {
			return nil, nil
		}
		if f.Type == TypeDate {
			return t.Format(dateLayout), nil
		}
		return t.Format(time.RFC3339), nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s: expected bool, got %T", f.Name, v)
		}
		return b, nil
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			return int(n), nil
		}
		return nil, fmt.Errorf("field %s: expected integer, got %T", f.Name, v)
	case TypeTags:
		tags, ok := v.([]string)
		if !ok {
			decoded, err := decodeTags(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: expected tag list, got %T", f.Name, v)
			}
			tags = decoded
		}
		if tags == nil {
			return nil, nil
		}
		return append([]string{}, tags...), nil
	case TypeFile:
		fv, ok := v.(*FileValue)
		if !ok {
			return nil, fmt.Errorf("field %s: expected file, got %T", f.Name, v)
		}
		if fv == nil {
			return nil, nil
		}
		return map[string]interface{}{
			"filename": fv.Filename,
			"mimetype": fv.MimeType,
			"size":     fv.Size,
		}, nil
	}
	return nil, fmt.Errorf("field %s: unknown type %q", f.Name, f.Type)
}

// parseStoredTime reads a time written as RFC 3339 or as a plain date.
// The empty string is the zero time.
func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unreadable stored time %q", s)
	}
	return t, nil
}

// decode converts a JSON-decoded value into the stored form.
func (f Field) decode(raw interface{}) (interface{}, error) {
	switch f.Type {
	case TypeString, TypeText, TypeRichText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("not a string")
		}
		return s, nil
	case TypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("not a date")
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", s)
		}
		return t, nil
	case TypeDateTime:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("not a datetime")
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime %q", s)
		}
		return t, nil
	case TypeBoolean:
		switch b := raw.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", b)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("not a boolean")
	case TypeInteger:
		switch n := raw.(type) {
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int(n), nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, fmt.Errorf("%s is not an integer", n)
			}
			return int(i), nil
		case int:
			return n, nil
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", n)
			}
			return i, nil
		}
		return nil, fmt.Errorf("not an integer")
	case TypeTags:
		return decodeTags(raw)
	case TypeFile:
		return decodeFile(raw)
	}
	return nil, fmt.Errorf("unknown type %q", f.Type)
}

func decodeTags(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return cleanTags(v), nil
	case []interface{}:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tags must be strings")
			}
			tags = append(tags, s)
		}
		return cleanTags(tags), nil
	case string:
		return cleanTags(strings.Split(v, ",")), nil
	}
	return nil, fmt.Errorf("not a tag list")
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func decodeFile(raw interface{}) (*FileValue, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("not a file object")
	}
	encoded, _ := m["data"].(string)
	if encoded == "" {
		return nil, fmt.Errorf("file data is required")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("file data must be base64")
	}
	fv := &FileValue{Data: data, Size: len(data)}
	fv.Filename, _ = m["filename"].(string)
	fv.MimeType, _ = m["mimetype"].(string)
	if fv.MimeType == "" {
		fv.MimeType = mimetype.Detect(data).String()
	}
	return fv, nil
}
