// Package connserver accepts connections and runs parse -> resolve ->
// dispatch on each one in its own goroutine.
package connserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/kfcemployee/staticd/internal/dispatch"
	"github.com/kfcemployee/staticd/internal/filecache"
	"github.com/kfcemployee/staticd/internal/httpparse"
	"github.com/kfcemployee/staticd/internal/obslog"
	"github.com/kfcemployee/staticd/internal/ring"
)

// Server owns the listener, the dispatcher, and the logger every
// connection goroutine needs.
type Server struct {
	listener net.Listener
	dispatch *dispatch.Dispatcher
	log      *slog.Logger
}

// Listen binds addr with SO_REUSEADDR set before bind.
func Listen(addr string, cache *filecache.Cache, log *slog.Logger) (*Server, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	ln, err := lc.Listen(context.Background(), "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("connserver: listen: %w", err)
	}

	return &Server{listener: ln, dispatch: dispatch.New(cache), log: log}, nil
}

// Addr returns the bound address, useful when addr is ":0" in tests.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

// Serve accepts until the listener closes, handling each connection on
// its own goroutine.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

// handle runs one connection to completion. A corrupted parser
// invariant is fatal to this goroutine alone, never the process.
func (s *Server) handle(conn net.Conn) {
	connLog, _ := obslog.ForConnection(s.log, conn.RemoteAddr().String())
	connLog.Info("connection accepted")

	defer func() {
		if r := recover(); r != nil {
			connLog.Error("parser invariant violated, closing connection", "panic", r)
		}
		conn.Close()
		connLog.Info("connection closed")
	}()

	buf, err := ring.Create(httpparse.MinBufferLength)
	if err != nil {
		connLog.Error("failed to allocate ring buffer", "error", err)
		return
	}
	defer buf.Close()

	parser := httpparse.NewParser(conn, buf)
	req, perr := parser.ReceiveRequest()
	if perr != nil {
		status, n, werr := s.dispatch.DispatchParseError(conn, perr)
		dispatch.LogOutcome(connLog, "", "", status, n, werr)
		return
	}

	status, n, werr := s.dispatch.Dispatch(conn, req)
	reqLog := obslog.ForRequest(connLog, req.Method.String(), req.Path, status)
	dispatch.LogOutcome(reqLog, req.Method.String(), req.Path, status, n, werr)
}
