// Package obslog wraps log/slog with the handful of conventions this
// server's logs share: JSON output, a per-connection trace id, and a
// fixed set of attribute names for the request fields that matter
// during dispatch. Nothing here replaces slog; it just keeps call
// sites from restating the same attribute keys.
package obslog

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// New builds the process-wide JSON logger, writing to w at the given
// level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// ParseLevel maps a CLI-friendly level name to its slog.Level,
// defaulting to Info for anything unrecognized.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForConnection returns a logger scoped to one accepted connection,
// tagging every record it emits with a fresh trace id so a single
// connection's log lines can be grepped out of a busy server's output.
func ForConnection(base *slog.Logger, remote string) (*slog.Logger, uuid.UUID) {
	id := uuid.New()
	return base.With(
		slog.String("conn_id", id.String()),
		slog.String("remote_addr", remote),
	), id
}

// ForRequest adds the method/path/status attributes logged once a
// request has been parsed and dispatched.
func ForRequest(connLogger *slog.Logger, method, path string, status int) *slog.Logger {
	return connLogger.With(
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
	)
}
