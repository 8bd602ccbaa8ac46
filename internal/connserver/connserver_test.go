package connserver

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kfcemployee/staticd/internal/filecache"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	cache, err := filecache.New(root, filecache.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv, err := Listen("127.0.0.1:0", cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	go srv.Serve()
	return srv, root
}

func TestServeWelcomeDocumentOverRealSocket(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "200 OK")
}

func TestServeStaticFileOverRealSocket(t *testing.T) {
	srv, root := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi there"), 0o644))

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "GET /hello.txt HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)

	body, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Contains(t, string(body), "200 OK")
	require.Contains(t, string(body), "hi there")
}

func TestServeUnknownMethodOverRealSocket(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, "FROB / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "501")
}
