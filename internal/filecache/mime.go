package filecache

import (
	"path/filepath"
	"strings"
)

// defaultMimeType is served for any extension not in the table below,
// matching the reference's fallback of "application/octet-stream".
const defaultMimeType = "application/octet-stream"

var mimeTypes = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"js":   "text/javascript",
	"css":  "text/css",
	"json": "application/json",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"avif": "image/avif",
}

func mimeType(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	return defaultMimeType
}
