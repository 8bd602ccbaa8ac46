package httpparse

import (
	"errors"
	"io"

	"github.com/kfcemployee/staticd/internal/ring"
)

const (
	// MaxTokenLength bounds any single token (method, path, header name
	// or value, ...) the parser will accept.
	MaxTokenLength = 8 * 1024
	// MinBufferLength is the smallest ring buffer a parser may be built
	// on; it must hold at least two tokens so a token that starts near
	// the end of one mirror window can still grow across the boundary.
	MinBufferLength = 2 * MaxTokenLength
	// ReceiveChunkSize is how much is requested from the connection on
	// each call that needs more bytes.
	ReceiveChunkSize = MaxTokenLength
)

// state is the parser's cursor over a ring.Buffer, paired with the
// connection it pulls more bytes from on demand. It is not safe for
// concurrent use; exactly one request is ever parsed per state value,
// matching the "no pipelining" non-goal.
type state struct {
	buf  *ring.Buffer
	conn io.Reader

	p, end     int
	tokenStart int // -1 when no token is in progress
}

func newState(conn io.Reader, buf *ring.Buffer) *state {
	return &state{buf: buf, conn: conn, tokenStart: -1}
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func isWhitespaceOrLineBreak(c byte) bool {
	return isWhitespace(c) || c == '\r' || c == '\n'
}

// ensureData guarantees at least n more bytes are available at p, pulling
// ReceiveChunkSize-sized reads from the connection as needed. Every call
// that can reach the network is a suspension point: conn.Read blocks the
// calling goroutine until bytes arrive, which is this rewrite's
// equivalent of the reference's co_await on an async receive.
func (s *state) ensureData(n int) error {
	if s.p+n <= s.end {
		return nil
	}

	total := 0
	for total < n {
		writeStart := s.end + total
		writeEnd := writeStart + ReceiveChunkSize
		if !s.buf.InRange(writeEnd - 1) {
			return ErrPayloadTooLarge
		}

		dst := s.buf.Slice(writeStart, writeEnd)
		read, err := s.conn.Read(dst)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrBadRequest
			}
			return ErrServerError
		}
		if read == 0 {
			return ErrBadRequest
		}
		total += read
	}

	if s.tokenStart >= 0 && s.end > s.tokenStart {
		if s.overwritesToken(total) {
			return ErrPayloadTooLarge
		}
	}

	s.end += total
	if s.tokenStart < 0 {
		s.normalize()
	}
	return nil
}

// overwritesToken reports whether appending received bytes at the
// current end would clobber the live token's backing bytes, by reducing
// the relevant offsets modulo the ring length and testing whether the
// newly written range crosses the token's start. This is the mechanism
// that bounds any single token to at most N bytes.
func (s *state) overwritesToken(received int) bool {
	n := s.buf.Len()
	if s.end-s.tokenStart >= n {
		return true // the token already fills the whole ring
	}
	nStart := s.tokenStart % n
	nEnd := s.end % n
	nNewEnd := (s.end + received) % n
	endWrapped := nNewEnd <= nEnd

	if nStart <= nEnd {
		return endWrapped && nStart < nNewEnd
	}
	return endWrapped || nStart < nNewEnd
}

// normalize reduces p and end modulo the ring length. It is only safe to
// call when no token is in progress, since it changes the absolute
// offsets that a live token's start/end would otherwise be compared
// against.
func (s *state) normalize() {
	n := s.buf.Len()
	wasEmpty := s.p == s.end

	s.p = s.p % n
	s.end = s.end % n

	if !wasEmpty && s.end == 0 {
		s.end = n
	}
	if s.end < s.p {
		s.end += n
	}
}

// getCurrentToken clears the in-progress token and returns its bytes.
// The returned slice is taken at the token's pre-normalization offsets,
// which remain valid indices into the mirrored buffer after normalize
// runs: normalize only changes the offsets' representation, never the
// bytes a given offset (mod N) refers to.
func (s *state) getCurrentToken() []byte {
	if s.tokenStart < 0 {
		return nil
	}

	start := s.tokenStart
	length := s.p - start

	s.tokenStart = -1
	s.normalize()

	return s.buf.Slice(start, start+length)
}

func (s *state) eatWhitespace() error {
	for {
		if err := s.ensureData(1); err != nil {
			return err
		}
		if !isWhitespace(s.buf.At(s.p)) {
			return nil
		}
		s.p++
	}
}

func (s *state) maybeReadNewline() (bool, error) {
	if err := s.ensureData(2); err != nil {
		return false, err
	}
	if s.buf.At(s.p) == '\r' && s.buf.At(s.p+1) == '\n' {
		s.p += 2
		return true, nil
	}
	return false, nil
}

func (s *state) readUntilWhitespace() ([]byte, error) {
	s.tokenStart = s.p
	for {
		if err := s.ensureData(1); err != nil {
			return nil, err
		}
		if isWhitespaceOrLineBreak(s.buf.At(s.p)) {
			break
		}
		s.p++
	}
	return s.getCurrentToken(), nil
}

func (s *state) readLine() ([]byte, error) {
	s.tokenStart = s.p
	for {
		if err := s.ensureData(2); err != nil {
			return nil, err
		}
		if s.buf.At(s.p) == '\r' && s.buf.At(s.p+1) == '\n' {
			break
		}
		s.p++
	}
	token := s.getCurrentToken()
	s.p += 2
	return token, nil
}

func (s *state) readHeaderName() ([]byte, error) {
	s.tokenStart = s.p
	for {
		if err := s.ensureData(1); err != nil {
			return nil, err
		}
		if s.buf.At(s.p) == ':' {
			break
		}
		s.p++
	}
	token := s.getCurrentToken()
	s.p++ // consume the colon

	if len(token) == 0 || isWhitespaceOrLineBreak(token[len(token)-1]) {
		return nil, ErrBadRequest
	}
	return token, nil
}

func (s *state) readHeaderField() ([]byte, error) {
	field, err := s.readLine()
	if err != nil {
		return nil, err
	}
	for len(field) > 0 && isWhitespace(field[len(field)-1]) {
		field = field[:len(field)-1]
	}
	if len(field) == 0 {
		return nil, ErrBadRequest
	}
	return field, nil
}
