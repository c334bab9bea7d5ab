package adapter

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/tiffon/gdbdap/internal/mi"
)

func TestThreadsBeforeRunningReturnsEmptyList(t *testing.T) {
	m := newFakeMI()
	s, tr := newTestSession(m)
	// s.running defaults to false until configurationDone.

	s.handleThreads(context.Background(), &dap.ThreadsRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}})

	require.Empty(t, m.sent, "must not call the debugger before configurationDone")
	resp := tr.messages()[0].(*dap.ThreadsResponse)
	require.NotNil(t, resp.Body.Threads)
	require.Empty(t, resp.Body.Threads)
}

func TestThreadsAfterRunningCallsThreadInfo(t *testing.T) {
	m := newFakeMI()
	m.on("-thread-info", mi.Result{Fields: map[string]mi.Value{
		"threads": {Kind: mi.KindList, List: []mi.Value{
			{Kind: mi.KindTuple, Tuple: map[string]mi.Value{
				"id": {Kind: mi.KindString, Str: "1"}, "target-id": {Kind: mi.KindString, Str: "Thread 0x1"},
			}},
		}},
	}}, nil)
	s, tr := newTestSession(m)
	s.running = true

	s.handleThreads(context.Background(), &dap.ThreadsRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}})

	resp := tr.messages()[0].(*dap.ThreadsResponse)
	require.Len(t, resp.Body.Threads, 1)
	require.Equal(t, 1, resp.Body.Threads[0].Id)
}

func TestStackTraceAllocatesFrameHandlesAndCachesDepth(t *testing.T) {
	m := newFakeMI()
	m.on("-stack-info-depth --thread 1", mi.Result{Fields: map[string]mi.Value{
		"depth": {Kind: mi.KindString, Str: "2"},
	}}, nil)
	m.on("-stack-list-frames --thread 1", mi.Result{Fields: map[string]mi.Value{
		"stack": {Kind: mi.KindList, List: []mi.Value{
			{Kind: mi.KindTuple, Tuple: map[string]mi.Value{
				"level": {Kind: mi.KindString, Str: "0"}, "func": {Kind: mi.KindString, Str: "main"},
				"file": {Kind: mi.KindString, Str: "vars.c"}, "fullname": {Kind: mi.KindString, Str: "vars.c"},
				"line": {Kind: mi.KindString, Str: "19"},
			}},
		}},
	}}, nil)

	s, tr := newTestSession(m)
	req := &dap.StackTraceRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}}
	req.Arguments.ThreadId = 1

	s.handleStackTrace(context.Background(), req)

	require.Equal(t, 2, s.depthCache[1])
	resp := tr.messages()[0].(*dap.StackTraceResponse)
	require.Len(t, resp.Body.StackFrames, 1)
	require.Equal(t, "main", resp.Body.StackFrames[0].Name)
	require.Equal(t, 19, resp.Body.StackFrames[0].Line)

	frame, ok := s.handles.Frames.Get(resp.Body.StackFrames[0].Id)
	require.True(t, ok)
	require.Equal(t, 1, frame.ThreadID)
	require.Equal(t, 0, frame.FrameID)
}

func TestScopesStaleHandleReturnsEmptyScopes(t *testing.T) {
	s, tr := newTestSession(newFakeMI())
	req := &dap.ScopesRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}}}
	req.Arguments.FrameId = 999 // never allocated

	s.handleScopes(context.Background(), req)

	resp := tr.messages()[0].(*dap.ScopesResponse)
	require.Empty(t, resp.Body.Scopes)
}
