// Package transport supplies the byte-stream Transport implementations
// internal/adapter.Session speaks DAP framing over: stdio, TCP, and
// WebSocket. Shape grounded on microsoft-dcp's internal/dap/transport.go
// (the Transport interface and its tcp/stdio implementations); the
// WebSocket variant generalizes the teacher's one-session-per-connection
// model (tiffon-nvlv/svr/ws.go, svr/start.go) from a hand-rolled JSON
// envelope over the abandoned code.google.com/p/go.net/websocket package
// to framed github.com/google/go-dap messages over
// github.com/gorilla/websocket.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
)

// Transport abstracts DAP message I/O over a concrete byte stream.
// Implementations must be safe for concurrent ReadMessage/WriteMessage
// calls from different goroutines, but need not support concurrent
// writes with each other (internal/adapter.Session only ever writes from
// its single dispatch goroutine).
type Transport interface {
	ReadMessage() (dap.Message, error)
	WriteMessage(msg dap.Message) error
	Close() error
}

type streamTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	closer io.Closer

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

func newStreamTransport(r io.Reader, w io.Writer, c io.Closer) *streamTransport {
	return &streamTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		closer: c,
	}
}

func (t *streamTransport) ReadMessage() (dap.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport: closed")
	}
	t.mu.Unlock()

	msg, err := dap.ReadProtocolMessage(t.reader)
	if err != nil {
		return nil, fmt.Errorf("transport: read message: %w", err)
	}
	return msg, nil
}

func (t *streamTransport) WriteMessage(msg dap.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport: closed")
	}
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := dap.WriteProtocolMessage(t.writer, msg); err != nil {
		return fmt.Errorf("transport: write message: %w", err)
	}
	return t.writer.Flush()
}

func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// NewStdio returns a Transport framed over the given reader/writer pair,
// typically os.Stdin/os.Stdout for the `gdbdap stdio` subcommand.
func NewStdio(r io.ReadCloser, w io.WriteCloser) Transport {
	return newStreamTransport(r, w, rwCloser{r, w})
}

type rwCloser struct {
	r io.Closer
	w io.Closer
}

func (c rwCloser) Close() error {
	rErr := c.r.Close()
	wErr := c.w.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}

// NewTCP wraps an already-accepted TCP connection.
func NewTCP(conn net.Conn) Transport {
	return newStreamTransport(conn, conn, conn)
}
