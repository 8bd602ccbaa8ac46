package httpparse

import "errors"

// Sentinel errors mirror the reference implementation's ReceiveError
// enum. Use errors.Is against these, or StatusFor to map directly to an
// HTTP status code.
var (
	ErrServerError            = errors.New("httpparse: server error")
	ErrUnknownMethod          = errors.New("httpparse: unknown method")
	ErrUnsupportedHTTPVersion = errors.New("httpparse: unsupported http version")
	ErrBadRequest             = errors.New("httpparse: bad request")
	ErrPayloadTooLarge        = errors.New("httpparse: payload too large")
)

// StatusFor maps a parse error to the HTTP status code it should produce.
// Unrecognised errors (including nil) map to 500, matching the
// reference's catch-all ServerError.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMethod):
		return 501
	case errors.Is(err, ErrUnsupportedHTTPVersion):
		return 505
	case errors.Is(err, ErrBadRequest):
		return 400
	case errors.Is(err, ErrPayloadTooLarge):
		return 413
	default:
		return 500
	}
}
