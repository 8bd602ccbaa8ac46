// Package dispatch turns a parsed request into bytes on the wire.
package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kfcemployee/staticd/internal/filecache"
	"github.com/kfcemployee/staticd/internal/httpparse"
)

// httpDateLayout is RFC 7231's IMF-fixdate.
const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Dispatcher resolves a request against a file cache and writes the
// response.
type Dispatcher struct {
	cache *filecache.Cache
}

// New builds a dispatcher backed by cache.
func New(cache *filecache.Cache) *Dispatcher {
	return &Dispatcher{cache: cache}
}

// Dispatch writes one response to w for req. A non-nil error means the
// write itself failed; the caller should tear down the connection
// without retrying.
func (d *Dispatcher) Dispatch(w io.Writer, req *httpparse.Request) (status int, bodyLen int, err error) {
	if isWelcomePath(req.Path) {
		return d.writeBody(w, 200, "text/html", []byte(welcomeDocument), time.Time{})
	}

	file, ferr := d.cache.GetOrRead(req.Path)
	if ferr != nil {
		return d.writeError(w, filecache.StatusFor(ferr))
	}

	return d.writeBody(w, 200, file.MimeType, file.Contents, file.LastModified)
}

// DispatchParseError writes the canned error response for a request
// that never finished parsing.
func (d *Dispatcher) DispatchParseError(w io.Writer, err error) (status int, bodyLen int, werr error) {
	return d.writeError(w, httpparse.StatusFor(err))
}

func (d *Dispatcher) writeError(w io.Writer, status int) (int, int, error) {
	body := []byte(reasonPhrase(status))
	return d.writeBody(w, status, "text/html", body, time.Time{})
}

func (d *Dispatcher) writeBody(w io.Writer, status int, mimeType string, body []byte, lastModified time.Time) (int, int, error) {
	header := fmt.Sprintf(
		"HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Type: %s\r\nContent-Length: %d\r\n%s\r\n",
		status, reasonPhrase(status), mimeType, len(body), lastModifiedHeader(lastModified),
	)

	if _, err := io.WriteString(w, header); err != nil {
		return status, 0, fmt.Errorf("dispatch: write header: %w", err)
	}
	if len(body) == 0 {
		return status, 0, nil
	}
	if _, err := w.Write(body); err != nil {
		return status, 0, fmt.Errorf("dispatch: write body: %w", err)
	}
	return status, len(body), nil
}

func lastModifiedHeader(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return "Last-Modified: " + t.UTC().Format(httpDateLayout) + "\r\n"
}

// LogOutcome records one dispatch result through log.
func LogOutcome(log *slog.Logger, method, path string, status, bodyLen int, err error) {
	if err != nil {
		log.Error("response write failed", "method", method, "path", path, "status", status, "error", err)
		return
	}
	log.Info("dispatched", "method", method, "path", path, "status", status, "bytes", bodyLen)
}
