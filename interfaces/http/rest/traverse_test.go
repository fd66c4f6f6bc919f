package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitView(t *testing.T) {
	tests := []struct {
		url, path, view string
	}{
		{"/", "/", "json"},
		{"/@@json", "/", "json"},
		{"/a/b/@@contents-json", "/a/b/", "contents-json"},
		{"/a/b/@@up-json/", "/a/b/", "up-json"},
		{"/a/b", "/a/b", "json"},
		{"/mail@@example/", "/mail@@example/", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			path, view := splitView(tt.url)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.view, view)
		})
	}
}
