package adapter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-logr/logr"

	"github.com/tiffon/gdbdap/internal/transport"
)

// Server accepts DAP client connections and runs one independent Session
// per connection, generalizing tiffon-nvlv/svr/start.go's net.Listen +
// http.Handle(HandlerPath, websocket.Handler(connHandler)) bootstrap onto
// a configurable WebSocket path, and ws.go's connHandler from one nvlvSsn
// per socket to one Session per socket. It accepts WebSocket connections
// only; the stdio and TCP transports are not served by it. A crash or disconnect in one session's Run call
// does not affect any other session: each runs in its own goroutine with
// its own GDB child process.
type Server struct {
	Log            logr.Logger
	GdbPath        string
	ListenAddr     string
	WSPath         string
	SessionBaseDir string

	listener net.Listener
	wg       sync.WaitGroup
}

// ListenAndServe starts an HTTP server exposing WSPath for WebSocket
// upgrades and blocks until ctx is cancelled or a fatal listener error
// occurs. Mirrors start.go's Start(ssnDir, port): net.Listen up front,
// http.Serve driving the accept loop, a signal trap that closes the
// listener to unblock Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.WSPath, s.handleConn)

	var err error
	s.listener, err = net.Listen("tcp", s.ListenAddr)
	if err != nil {
		return fmt.Errorf("adapter: listen %s: %w", s.ListenAddr, err)
	}
	s.Log.Info("adapter: listening", "addr", s.ListenAddr, "path", s.WSPath)

	go s.trapSignals()
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	err = http.Serve(s.listener, mux)
	s.wg.Wait()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("adapter: serve: %w", err)
	}
	return nil
}

func (s *Server) trapSignals() {
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, syscall.SIGINT, syscall.SIGTERM)
	<-interrupted
	s.Log.Info("adapter: signal received, shutting down")
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	tr, err := transport.Upgrade(w, r)
	if err != nil {
		s.Log.Error(err, "adapter: websocket upgrade failed")
		return
	}

	session := NewSession(s.Log, tr, s.GdbPath)
	session.SessionBaseDir = s.SessionBaseDir
	s.Log.Info("adapter: session accepted", "sessionId", session.ID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := session.Run(context.Background()); err != nil {
			s.Log.Error(err, "adapter: session ended with error", "sessionId", session.ID)
		}
		session.Close()
	}()
}
