package filecache

import "errors"

// Sentinel errors mirror the reference's FileReadError::Type enum.
var (
	ErrInvalidURI = errors.New("filecache: invalid uri")
	ErrNotFound   = errors.New("filecache: not found")
	ErrIOError    = errors.New("filecache: io error")
)

// StatusFor maps a cache error to the HTTP status code it should
// produce. Unrecognised errors (including nil) map to 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidURI):
		return 400
	case errors.Is(err, ErrNotFound):
		return 404
	default:
		return 500
	}
}
