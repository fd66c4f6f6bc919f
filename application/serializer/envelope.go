package serializer

// MediaType is the JSON:API media type.
const MediaType = "application/vnd.api+json"

// Document is the top level JSON:API document for one node.
type Document struct {
	Data Resource               `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

// Resource is the "data" member.
type Resource struct {
	Type          string                 `json:"type"`
	ID            string                 `json:"id"`
	Attributes    map[string]interface{} `json:"attributes"`
	Links         Links                  `json:"links"`
	Relationships *Relationships         `json:"relationships,omitempty"`
}

// Links are the node's own URL and the URLs of its visible children.
type Links struct {
	Self     string   `json:"self"`
	Children []string `json:"children"`
}

// Relationships carries the gathered relational metadata.
type Relationships struct {
	Meta map[string]interface{} `json:"meta"`
}

// Request is what the serializer needs to know about the HTTP request.
type Request struct {
	// BaseURL is the application URL without a trailing slash.
	BaseURL   string
	URL       string
	ViewName  string
	SessionID string
}

// NodeURL is the canonical, slash terminated URL of a path.
func (r *Request) NodeURL(path string) string {
	return r.BaseURL + path
}

// RootURL is the site root URL.
func (r *Request) RootURL() string {
	return r.BaseURL + "/"
}
