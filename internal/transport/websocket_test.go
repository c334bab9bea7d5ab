package transport

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-dap"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestWebSocketTransportRoundTrip exercises Upgrade end to end: a real
// HTTP server accepts a WebSocket client, and a dap.Message round-trips
// through the Content-Length header synthesize/strip dance without the
// header ever reaching the wire.
func TestWebSocketTransportRoundTrip(t *testing.T) {
	serverMsgs := make(chan Transport, 1)
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tr, err := Upgrade(w, r)
		require.NoError(t, err)
		serverMsgs <- tr
	}))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer clientConn.Close()

	server := <-serverMsgs
	defer server.Close()

	req := &dap.InitializeRequest{
		Request: dap.Request{
			ProtocolMessage: dap.ProtocolMessage{Seq: 7, Type: "request"},
			Command:         "initialize",
		},
		Arguments: dap.InitializeRequestArguments{AdapterID: "gdbdap"},
	}

	var buf bytes.Buffer
	require.NoError(t, dap.WriteProtocolMessage(&buf, req))
	body := buf.Bytes()
	if idx := bytes.Index(body, []byte("\r\n\r\n")); idx >= 0 {
		body = body[idx+4:]
	}
	require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, body))

	got, err := server.ReadMessage()
	require.NoError(t, err)
	gotReq, ok := got.(*dap.InitializeRequest)
	require.True(t, ok)
	require.Equal(t, "gdbdap", gotReq.Arguments.AdapterID)

	resp := &dap.InitializeResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Seq: 1, Type: "response"},
			Command:         "initialize",
			RequestSeq:      7,
			Success:         true,
		},
	}
	require.NoError(t, server.WriteMessage(resp))

	_, respBody, err := clientConn.ReadMessage()
	require.NoError(t, err)
	require.NotContains(t, string(respBody), "Content-Length")
}
