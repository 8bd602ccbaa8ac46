// Package httpparse implements a streaming HTTP/1.1 request-line and
// header parser. It is not a buffered line reader: it is a cursor over a
// ring.Buffer paired with a data-demand operation that pulls bytes from
// a connection on demand, producing borrowed slices into that buffer
// which are copied into owned strings only when stored on the Request.
package httpparse

import (
	"io"

	"github.com/kfcemployee/staticd/internal/ring"
)

var httpVersion11 = []byte("HTTP/1.1")

// Request is the result of a successful parse: a method, a decoded path,
// and a header map with case-preserved names and whitespace-trimmed
// values. It is built once and never mutated afterwards.
type Request struct {
	Method  Method
	Path    string
	Headers map[string]string
}

// Parser consumes exactly one request from conn, using buf as its
// receive ring. A Parser is single-use: the protocol this server speaks
// never pipelines a second request onto the same connection.
type Parser struct {
	s *state
}

// NewParser builds a parser bound to conn and buf. buf must be at least
// MinBufferLength bytes (ring.Create(MinBufferLength) or larger).
func NewParser(conn io.Reader, buf *ring.Buffer) *Parser {
	return &Parser{s: newState(conn, buf)}
}

// ReceiveRequest runs the request-line/header state machine to
// completion: RequestLine -> Headers -> Done, or a terminal ReceiveError
// at any step.
func (pr *Parser) ReceiveRequest() (*Request, error) {
	s := pr.s
	req := &Request{Headers: make(map[string]string)}

	// Step 1: tolerate a leading blank line left over by clients that
	// start a new request with a spurious CRLF.
	if _, err := s.maybeReadNewline(); err != nil {
		return nil, err
	}

	// Step 2: method.
	methodToken, err := s.readUntilWhitespace()
	if err != nil {
		return nil, err
	}
	method, ok := lookupMethod(methodToken)
	if !ok {
		return nil, ErrUnknownMethod
	}
	req.Method = method

	// Step 3: request target / path.
	if err := s.eatWhitespace(); err != nil {
		return nil, err
	}
	targetToken, err := s.readUntilWhitespace()
	if err != nil {
		return nil, err
	}
	req.Path = decodePath(targetToken)

	// Step 4: HTTP version.
	if err := s.eatWhitespace(); err != nil {
		return nil, err
	}
	versionToken, err := s.readUntilWhitespace()
	if err != nil {
		return nil, err
	}
	if !equalBytes(versionToken, httpVersion11) {
		return nil, ErrUnsupportedHTTPVersion
	}

	// Step 5: end of request line.
	if ok, err := s.maybeReadNewline(); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrBadRequest
	}

	// Step 6: headers, terminated by an empty line.
	for {
		if done, err := s.maybeReadNewline(); err != nil {
			return nil, err
		} else if done {
			break
		}

		name, err := s.readHeaderName()
		if err != nil {
			return nil, err
		}
		if err := s.eatWhitespace(); err != nil {
			return nil, err
		}
		field, err := s.readHeaderField()
		if err != nil {
			return nil, err
		}

		req.Headers[string(name)] = string(field)
	}

	return req, nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
