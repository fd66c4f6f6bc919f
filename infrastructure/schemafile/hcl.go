package schemafile

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// hclFile is the top-level structure of an HCL schema file:
//
//	schema "Document" "summary" {
//	  extends = "default"
//	  field "title" {
//	    type = "string"
//	    rule = "max=80"
//	  }
//	}
type hclFile struct {
	Schemas []*hclSchema `hcl:"schema,block"`
}

type hclSchema struct {
	Type    string      `hcl:"type,label"`
	Name    string      `hcl:"name,label"`
	Extends string      `hcl:"extends,optional"`
	Fields  []*hclField `hcl:"field,block"`
}

type hclField struct {
	Name     string  `hcl:"name,label"`
	Type     string  `hcl:"type"`
	Title    string  `hcl:"title,optional"`
	Required bool    `hcl:"required,optional"`
	Rule     string  `hcl:"rule,optional"`
	Missing  *string `hcl:"missing,optional"`
}

type hclDecoder struct{}

func (hclDecoder) Decode(filename string, data []byte) ([]Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	defs := make([]Definition, 0, len(parsed.Schemas))
	for _, s := range parsed.Schemas {
		def := Definition{Type: s.Type, Name: s.Name, Extends: s.Extends}
		for _, f := range s.Fields {
			fd := FieldDef{
				Name:     f.Name,
				Type:     f.Type,
				Title:    f.Title,
				Required: f.Required,
				Rule:     f.Rule,
			}
			if f.Missing != nil {
				fd.Missing = *f.Missing
			}
			def.Fields = append(def.Fields, fd)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
