package schema

// Field sets shared by the built-in content types.

func contentFields() []Field {
	return []Field{
		{Name: "title", Type: TypeString, Title: "Title", Required: true, Rule: "max=250"},
		{Name: "description", Type: TypeText, Title: "Description", Missing: ""},
		{Name: "tags", Type: TypeTags, Title: "Tags", Missing: []string{}},
	}
}

// Content is the schema for plain content and folders.
func Content() *Schema {
	return MustNew(DefaultName, contentFields()...)
}

// Document adds a rich text body.
func Document() *Schema {
	return MustNew(DefaultName, append(contentFields(),
		Field{Name: "body", Type: TypeRichText, Title: "Body", Missing: ""},
	)...)
}

// File adds an uploaded blob. Image uses the same fields.
func File() *Schema {
	return MustNew(DefaultName, append(contentFields(),
		Field{Name: "file", Type: TypeFile, Title: "File"},
	)...)
}

// Metadata renders the envelope's top-level meta object. in_navigation is
// declared as a string and coerced back to a boolean by the serializer.
func Metadata() *Schema {
	return MustNew("metadata",
		Field{Name: "modification_date", Type: TypeDateTime},
		Field{Name: "creation_date", Type: TypeDateTime},
		Field{Name: "state", Type: TypeString},
		Field{Name: "default_view", Type: TypeString},
		Field{Name: "in_navigation", Type: TypeString},
		Field{Name: "path", Type: TypeString},
		Field{Name: "tags", Type: TypeTags},
	)
}
