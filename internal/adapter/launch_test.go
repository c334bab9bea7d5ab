package adapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/tiffon/gdbdap/internal/mi"
)

func TestHandleLaunchSequence(t *testing.T) {
	m := newFakeMI()
	m.on("-file-exec-and-symbols vars", mi.Result{}, nil)

	s, tr := newTestSession(m)
	raw, err := json.Marshal(launchArgs{Program: "vars", Arguments: []string{"--flag"}})
	require.NoError(t, err)

	req := &dap.LaunchRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}, Arguments: raw}
	s.handleLaunch(context.Background(), req)

	require.Equal(t, "launch", s.launchKind)
	require.Contains(t, m.sent, "-file-exec-and-symbols vars")
	require.Contains(t, m.sent, "-enable-pretty-printing")
	require.Contains(t, m.sent, "-exec-arguments --flag")

	msgs := tr.messages()
	require.Len(t, msgs, 2)
	_, ok := msgs[1].(*dap.InitializedEvent)
	require.True(t, ok)
}

func TestHandleLaunchRejectsEmptyProgram(t *testing.T) {
	s, tr := newTestSession(newFakeMI())
	req := &dap.LaunchRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}, Arguments: json.RawMessage(`{}`)}

	s.handleLaunch(context.Background(), req)

	msgs := tr.messages()
	require.Len(t, msgs, 1)
	_, ok := msgs[0].(*dap.ErrorResponse)
	require.True(t, ok)
}

func TestHandleAttachSequence(t *testing.T) {
	m := newFakeMI()
	s, tr := newTestSession(m)
	raw, err := json.Marshal(attachArgs{ProcessID: 4242})
	require.NoError(t, err)

	req := &dap.AttachRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}, Arguments: raw}
	s.handleAttach(context.Background(), req)

	require.Equal(t, "attach", s.launchKind)
	require.Equal(t, 4242, s.targetPID)
	require.Contains(t, m.sent, "-target-attach 4242")

	msgs := tr.messages()
	require.Len(t, msgs, 2)
	_, ok := msgs[1].(*dap.InitializedEvent)
	require.True(t, ok)
}
