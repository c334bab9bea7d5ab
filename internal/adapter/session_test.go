package adapter

import (
	"context"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/tiffon/gdbdap/internal/mi"
)

// fakeMI is a miClient test double: Send looks up a canned response by
// exact command string and records every command sent, in order, so
// tests can assert on the resulting wire sequence without spawning a
// real GDB process (the same seam internal/micmd's tests use one layer
// down via a fake Sender).
type fakeMI struct {
	mu       sync.Mutex
	handlers map[string]func() (mi.Result, error)
	sent     []string
	doneCh   chan struct{}
}

func newFakeMI() *fakeMI {
	return &fakeMI{handlers: map[string]func() (mi.Result, error){}, doneCh: make(chan struct{})}
}

func (f *fakeMI) on(cmd string, res mi.Result, err error) {
	f.handlers[cmd] = func() (mi.Result, error) { return res, err }
}

func (f *fakeMI) Send(ctx context.Context, command string) (mi.Result, error) {
	f.mu.Lock()
	f.sent = append(f.sent, command)
	h, ok := f.handlers[command]
	f.mu.Unlock()
	if !ok {
		return mi.Result{Class: "done"}, nil
	}
	return h()
}

func (f *fakeMI) OnAsync(l mi.AsyncListener)     {}
func (f *fakeMI) OnConsole(l mi.ConsoleListener) {}
func (f *fakeMI) Close()                         {}
func (f *fakeMI) Done() <-chan struct{}          { return f.doneCh }

// fakeTransport records every outgoing DAP message; ReadMessage is unused
// by tests that invoke handlers directly rather than running Session.Run.
type fakeTransport struct {
	mu  sync.Mutex
	out []dap.Message
	in  chan clientMsg
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan clientMsg, 8)}
}

func (f *fakeTransport) ReadMessage() (dap.Message, error) {
	m := <-f.in
	return m.msg, m.err
}

func (f *fakeTransport) WriteMessage(msg dap.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, msg)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) messages() []dap.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dap.Message, len(f.out))
	copy(out, f.out)
	return out
}

func newTestSession(m *fakeMI) (*Session, *fakeTransport) {
	tr := newFakeTransport()
	s := NewSession(logr.Discard(), tr, "gdb")
	s.mi = m
	return s, tr
}

func TestHandleInitializeSendsCapabilitiesThenInitializedEvent(t *testing.T) {
	s, tr := newTestSession(newFakeMI())

	s.handleInitialize(&dap.InitializeRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}})

	msgs := tr.messages()
	require.Len(t, msgs, 2)

	resp, ok := msgs[0].(*dap.InitializeResponse)
	require.True(t, ok)
	require.True(t, resp.Success)
	require.True(t, resp.Body.SupportsConfigurationDoneRequest)
	require.True(t, resp.Body.SupportsSetVariable)
	require.True(t, resp.Body.SupportsTerminateRequest)

	_, ok = msgs[1].(*dap.InitializedEvent)
	require.True(t, ok)
}

func TestConfigurationDoneLaunchIssuesExecRun(t *testing.T) {
	m := newFakeMI()
	s, tr := newTestSession(m)
	s.launchKind = "launch"

	s.handleConfigurationDone(context.Background(), &dap.ConfigurationDoneRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 5}}})

	require.Contains(t, m.sent, "-exec-run")
	require.True(t, s.running)

	msgs := tr.messages()
	require.Len(t, msgs, 1)
	resp, ok := msgs[0].(*dap.ConfigurationDoneResponse)
	require.True(t, ok)
	require.True(t, resp.Success)
}

func TestConfigurationDoneAttachIssuesExecContinue(t *testing.T) {
	m := newFakeMI()
	s, _ := newTestSession(m)
	s.launchKind = "attach"

	s.handleConfigurationDone(context.Background(), &dap.ConfigurationDoneRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 5}}})

	require.Contains(t, m.sent, "-exec-continue")
}

func TestDispatchUnknownMessageIsIgnored(t *testing.T) {
	s, tr := newTestSession(newFakeMI())
	s.dispatch(context.Background(), &dap.RestartRequest{})
	require.Empty(t, tr.messages())
}
