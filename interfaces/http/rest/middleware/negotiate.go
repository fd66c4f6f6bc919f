package middleware

import (
	"mime"
	"net/http"
	"strings"
)

// Accepts reports whether the request's Accept header admits mediaType.
// Wildcards count; a missing header does not.
func Accepts(r *http.Request, mediaType string) bool {
	typ, _, _ := strings.Cut(mediaType, "/")
	for _, header := range r.Header.Values("Accept") {
		for _, part := range strings.Split(header, ",") {
			mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			if q, ok := params["q"]; ok && strings.TrimLeft(q, "0.") == "" {
				continue
			}
			if mt == mediaType || mt == "*/*" || mt == typ+"/*" {
				return true
			}
		}
	}
	return false
}
