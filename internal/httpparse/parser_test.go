package httpparse

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kfcemployee/staticd/internal/ring"
)

func newTestBuffer(t *testing.T) *ring.Buffer {
	t.Helper()
	buf, err := ring.Create(MinBufferLength)
	require.NoError(t, err)
	t.Cleanup(func() { buf.Close() })
	return buf
}

func parseRaw(t *testing.T, raw string) (*Request, error) {
	t.Helper()
	buf := newTestBuffer(t)
	p := NewParser(bytes.NewBufferString(raw), buf)
	return p.ReceiveRequest()
}

func TestReceiveSimpleGet(t *testing.T) {
	req, err := parseRaw(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, MethodGET, req.Method)
	require.Equal(t, "/", req.Path)
	require.Equal(t, "x", req.Headers["Host"])
}

func TestReceiveUnknownMethod(t *testing.T) {
	_, err := parseRaw(t, "FROB / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.ErrorIs(t, err, ErrUnknownMethod)
	require.Equal(t, 501, StatusFor(err))
}

func TestReceiveUnsupportedVersion(t *testing.T) {
	_, err := parseRaw(t, "GET / HTTP/1.0\r\nHost: x\r\n\r\n")
	require.ErrorIs(t, err, ErrUnsupportedHTTPVersion)
	require.Equal(t, 505, StatusFor(err))
}

func TestReceiveIdempotentHeaderOverwrite(t *testing.T) {
	req, err := parseRaw(t, "GET / HTTP/1.1\r\nX-Test: first\r\nX-Test: second\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, "second", req.Headers["X-Test"])
}

func TestReceivePercentDecodedPath(t *testing.T) {
	req, err := parseRaw(t, "GET /a%2Fb HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, "/a/b", req.Path)
}

func TestReceiveLeadingBlankLineTolerated(t *testing.T) {
	req, err := parseRaw(t, "\r\nGET / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, "/", req.Path)
}

func TestReceiveMissingCRLFAfterVersion(t *testing.T) {
	_, err := parseRaw(t, "GET / HTTP/1.1\nHost: x\r\n\r\n")
	require.ErrorIs(t, err, ErrBadRequest)
	require.Equal(t, 400, StatusFor(err))
}

func TestReceiveEmptyHeaderNameRejected(t *testing.T) {
	_, err := parseRaw(t, "GET / HTTP/1.1\r\n: value\r\n\r\n")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestReceiveEmptyHeaderFieldRejected(t *testing.T) {
	_, err := parseRaw(t, "GET / HTTP/1.1\r\nX-Empty: \r\n\r\n")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestTokenLongerThanBufferIsPayloadTooLarge(t *testing.T) {
	longPath := "/" + strings.Repeat("A", MinBufferLength+1)
	raw := "GET " + longPath + " HTTP/1.1\r\nHost: x\r\n\r\n"

	_, err := parseRaw(t, raw)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	require.Equal(t, 413, StatusFor(err))
}

func TestReceivePeerCloseMidRequestIsBadRequest(t *testing.T) {
	_, err := parseRaw(t, "GET / HTTP/1.1\r\nHost: x")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestDecodePathMalformedEscapeFallsBackToRoot(t *testing.T) {
	req, err := parseRaw(t, "GET /a%2 HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, "/", req.Path)
}

func TestDecodePathEncodedPercent(t *testing.T) {
	req, err := parseRaw(t, "GET /100%25done HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)
	require.Equal(t, "/100%done", req.Path)
}

func TestStatusForUnknownErrorDefaultsTo500(t *testing.T) {
	require.Equal(t, 500, StatusFor(errors.New("boom")))
	require.Equal(t, 500, StatusFor(nil))
}
