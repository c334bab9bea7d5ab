package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/go-dap"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsTransport frames DAP messages as individual WebSocket text messages
// (one JSON body per message, no Content-Length header needed since the
// WebSocket frame itself carries the length) rather than the
// Content-Length-prefixed framing streamTransport uses, generalizing the
// teacher's one-connection-per-session model (tiffon-nvlv/svr/ws.go) from
// a hand-rolled envelope to raw go-dap message bodies.
type wsTransport struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// Upgrade upgrades an HTTP request to a WebSocket connection and returns
// a Transport speaking DAP over it. Callers are expected to run this
// inside an http.Handler, one upgrade per accepted connection, then hand
// the result to a new internal/adapter.Session.
func Upgrade(w http.ResponseWriter, r *http.Request) (Transport, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket upgrade: %w", err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadMessage() (dap.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport: closed")
	}
	t.mu.Unlock()

	_, body, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: websocket read: %w", err)
	}

	// Each WebSocket frame carries one complete DAP message body with no
	// Content-Length header (the frame boundary supplies the length).
	// dap.ReadProtocolMessage expects that header on its stream, so we
	// synthesize one rather than reimplementing its body-parsing logic.
	framed := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
	msg, err := dap.ReadProtocolMessage(bufio.NewReader(bytes.NewReader([]byte(framed))))
	if err != nil {
		return nil, fmt.Errorf("transport: decode dap message: %w", err)
	}
	return msg, nil
}

func (t *wsTransport) WriteMessage(msg dap.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport: closed")
	}
	t.mu.Unlock()

	var buf bytes.Buffer
	if err := dap.WriteProtocolMessage(&buf, msg); err != nil {
		return fmt.Errorf("transport: encode dap message: %w", err)
	}

	// Strip the "Content-Length: N\r\n\r\n" header WriteProtocolMessage
	// prepends; the WebSocket frame boundary already carries the length.
	framed := buf.Bytes()
	sep := []byte("\r\n\r\n")
	if idx := bytes.Index(framed, sep); idx >= 0 {
		framed = framed[idx+len(sep):]
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, framed); err != nil {
		return fmt.Errorf("transport: websocket write: %w", err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
