package content

// Built-in type names.
const (
	TypeContent  = "Content"
	TypeDocument = "Document"
	TypeFile     = "File"
	TypeImage    = "Image"
)

// ViewOption is one entry of a type's default view selector.
type ViewOption struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// TypeInfo describes a content type and how it may be added.
type TypeInfo struct {
	Name                   string
	Title                  string
	AddView                string
	AddPermission          string
	AddableTo              []string
	SelectableDefaultViews []ViewOption
}

// Addable reports whether a node of this type may be created inside parent.
func (ti TypeInfo) Addable(parent *Node) bool {
	if parent == nil {
		return false
	}
	for _, name := range ti.AddableTo {
		if name == parent.TypeName {
			return true
		}
	}
	return false
}

// New returns a detached node of this type.
func (ti TypeInfo) New(name, title string) *Node {
	return NewNode(ti.Name, name, title)
}

var folderView = ViewOption{Name: "folder_view", Title: "Folder view"}

// BuiltinTypes returns descriptors for the standard content types.
func BuiltinTypes() []TypeInfo {
	return []TypeInfo{
		{
			Name:                   TypeContent,
			Title:                  "Content",
			AddPermission:          "add",
			SelectableDefaultViews: []ViewOption{folderView},
		},
		{
			Name:                   TypeDocument,
			Title:                  "Document",
			AddView:                "add_document",
			AddPermission:          "add",
			AddableTo:              []string{TypeDocument},
			SelectableDefaultViews: []ViewOption{folderView},
		},
		{
			Name:          TypeFile,
			Title:         "File",
			AddView:       "add_file",
			AddPermission: "add",
			AddableTo:     []string{TypeDocument},
		},
		{
			Name:          TypeImage,
			Title:         "Image",
			AddView:       "add_image",
			AddPermission: "add",
			AddableTo:     []string{TypeDocument},
		},
	}
}
