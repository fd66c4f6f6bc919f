// Package schemafile reads named schema variants from files and registers
// them before the registry is sealed.
package schemafile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/domain/schema"
)

// Definition declares one schema variant of a content type.
type Definition struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
	// Extends names a registered variant of the same type whose fields come
	// first. Fields with the same name replace the inherited ones.
	Extends string     `json:"extends,omitempty" yaml:"extends,omitempty"`
	Fields  []FieldDef `json:"fields" yaml:"fields"`

	// Source is the file the definition was read from.
	Source string `json:"-" yaml:"-"`
}

// FieldDef is the file form of schema.Field.
type FieldDef struct {
	Name     string      `json:"name" yaml:"name"`
	Type     string      `json:"type" yaml:"type"`
	Title    string      `json:"title,omitempty" yaml:"title,omitempty"`
	Required bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Rule     string      `json:"rule,omitempty" yaml:"rule,omitempty"`
	Missing  interface{} `json:"missing,omitempty" yaml:"missing,omitempty"`
}

type document struct {
	Schemas []Definition `json:"schemas" yaml:"schemas"`
}

// Decoder parses one file format.
type Decoder interface {
	Decode(filename string, data []byte) ([]Definition, error)
}

type yamlDecoder struct{}

func (yamlDecoder) Decode(_ string, data []byte) ([]Definition, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Schemas, nil
}

type jsonDecoder struct{}

func (jsonDecoder) Decode(_ string, data []byte) ([]Definition, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Schemas, nil
}

// Loader maps file extensions to decoders.
type Loader struct {
	decoders map[string]Decoder
	logger   *zap.Logger
}

// NewLoader returns a loader for .yaml, .yml, .json and .hcl files.
func NewLoader(logger *zap.Logger) *Loader {
	l := &Loader{decoders: make(map[string]Decoder), logger: logger}
	l.RegisterDecoder(".yaml", yamlDecoder{})
	l.RegisterDecoder(".yml", yamlDecoder{})
	l.RegisterDecoder(".json", jsonDecoder{})
	l.RegisterDecoder(".hcl", hclDecoder{})
	return l
}

// RegisterDecoder adds or replaces the decoder for an extension.
func (l *Loader) RegisterDecoder(ext string, d Decoder) {
	l.decoders[strings.ToLower(ext)] = d
}

// LoadDir reads every supported file below dir in lexical order. An empty
// dir yields no definitions.
func (l *Loader) LoadDir(dir string) ([]Definition, error) {
	if dir == "" {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := l.decoders[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find schema files in %s: %w", dir, err)
	}
	sort.Strings(files)

	var defs []Definition
	for _, file := range files {
		found, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		defs = append(defs, found...)
	}
	l.logger.Info("Loaded schema files", zap.String("dir", dir), zap.Int("files", len(files)), zap.Int("schemas", len(defs)))
	return defs, nil
}

// LoadFile reads a single file.
func (l *Loader) LoadFile(path string) ([]Definition, error) {
	dec, ok := l.decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("no schema decoder for %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	defs, err := dec.Decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema file %s: %w", path, err)
	}
	for i := range defs {
		defs[i].Source = path
	}
	return defs, nil
}

// Register adds every definition to reg. It must run before reg is sealed.
func Register(ctx context.Context, reg *registry.Registry, defs []Definition) error {
	for _, def := range defs {
		s, err := build(ctx, reg, def)
		if err != nil {
			return fmt.Errorf("%s: schema %s: %w", def.Source, registry.Key(def.Type, def.Name), err)
		}
		ti, err := reg.ContentFactory(def.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", def.Source, err)
		}
		if err := reg.Register(ti, registry.Static(s), def.Name); err != nil {
			return fmt.Errorf("%s: %w", def.Source, err)
		}
	}
	return nil
}

func build(ctx context.Context, reg *registry.Registry, def Definition) (*schema.Schema, error) {
	if def.Type == "" || def.Name == "" {
		return nil, fmt.Errorf("type and name are required")
	}
	var fields []schema.Field
	if def.Extends != "" {
		base, err := reg.LookupType(ctx, def.Type, def.Extends)
		if err != nil {
			return nil, err
		}
		fields = append(fields, base.Fields...)
	}
	for _, fd := range def.Fields {
		f, err := fd.field()
		if err != nil {
			return nil, err
		}
		fields = replaceOrAppend(fields, f)
	}
	return schema.New(def.Name, fields...)
}

func replaceOrAppend(fields []schema.Field, f schema.Field) []schema.Field {
	for i := range fields {
		if fields[i].Name == f.Name {
			fields[i] = f
			return fields
		}
	}
	return append(fields, f)
}

func (fd FieldDef) field() (schema.Field, error) {
	if err := checkRule(fd.Rule); err != nil {
		return schema.Field{}, fmt.Errorf("field %s: %w", fd.Name, err)
	}
	f := schema.Field{
		Name:     fd.Name,
		Type:     schema.FieldType(fd.Type),
		Title:    fd.Title,
		Required: fd.Required,
		Rule:     fd.Rule,
		Missing:  fd.Missing,
	}
	if list, ok := fd.Missing.([]interface{}); ok {
		tags := make([]string, 0, len(list))
		for _, v := range list {
			tags = append(tags, fmt.Sprint(v))
		}
		f.Missing = tags
	}
	return f, nil
}

var ruleChecker = validator.New()

// checkRule rejects validator tags that would panic at request time.
func checkRule(rule string) (err error) {
	if rule == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid rule %q: %v", rule, r)
		}
	}()
	_ = ruleChecker.Var("", rule)
	return nil
}
