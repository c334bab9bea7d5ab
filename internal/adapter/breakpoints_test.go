package adapter

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/require"

	"github.com/tiffon/gdbdap/internal/mi"
)

func breakpointTuple(number, line string) mi.Value {
	return mi.Value{Kind: mi.KindTuple, Tuple: map[string]mi.Value{
		"number": {Kind: mi.KindString, Str: number},
		"type":   {Kind: mi.KindString, Str: "breakpoint"},
		"disp":   {Kind: mi.KindString, Str: "keep"},
		"enabled": {Kind: mi.KindString, Str: "y"},
		"file":    {Kind: mi.KindString, Str: "vars.c"},
		"fullname": {Kind: mi.KindString, Str: "vars.c"},
		"line":    {Kind: mi.KindString, Str: line},
	}}
}

func setBreakpointsRequest(seq int, lines ...int) *dap.SetBreakpointsRequest {
	req := &dap.SetBreakpointsRequest{Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: seq}}}
	req.Arguments.Source = dap.Source{Path: "vars.c"}
	for _, l := range lines {
		req.Arguments.Breakpoints = append(req.Arguments.Breakpoints, dap.SourceBreakpoint{Line: l})
	}
	return req
}

func TestSetBreakpointsInsertsRequestedLines(t *testing.T) {
	m := newFakeMI()
	m.on("-break-list", mi.Result{Fields: map[string]mi.Value{
		"BreakpointTable": {Kind: mi.KindTuple, Tuple: map[string]mi.Value{
			"body": {Kind: mi.KindList},
		}},
	}}, nil)
	m.on("-break-insert vars.c:19", mi.Result{Fields: map[string]mi.Value{
		"bkpt": breakpointTuple("1", "19"),
	}}, nil)

	s, tr := newTestSession(m)
	s.handleSetBreakpoints(context.Background(), setBreakpointsRequest(1, 19))

	msgs := tr.messages()
	require.Len(t, msgs, 1)
	resp := msgs[0].(*dap.SetBreakpointsResponse)
	require.Len(t, resp.Body.Breakpoints, 1)
	require.True(t, resp.Body.Breakpoints[0].Verified)
	require.Equal(t, 19, resp.Body.Breakpoints[0].Line)
}

// TestSetBreakpointsIdempotent asserts spec's explicit idempotence
// property: calling setBreakpoints(file, L) twice with the same L
// results in zero new insertions on the second call.
func TestSetBreakpointsIdempotent(t *testing.T) {
	m := newFakeMI()
	m.on("-break-insert vars.c:19", mi.Result{Fields: map[string]mi.Value{
		"bkpt": breakpointTuple("1", "19"),
	}}, nil)

	// First call: -break-list reports nothing yet.
	firstList := true
	m.handlers["-break-list"] = func() (mi.Result, error) {
		if firstList {
			firstList = false
			return mi.Result{Fields: map[string]mi.Value{
				"BreakpointTable": {Kind: mi.KindTuple, Tuple: map[string]mi.Value{
					"body": {Kind: mi.KindList},
				}},
			}}, nil
		}
		// Second call: GDB now reports the breakpoint created above.
		return mi.Result{Fields: map[string]mi.Value{
			"BreakpointTable": {Kind: mi.KindTuple, Tuple: map[string]mi.Value{
				"body": {Kind: mi.KindList, List: []mi.Value{breakpointTuple("1", "19")}},
			}},
		}}, nil
	}

	s, _ := newTestSession(m)
	s.handleSetBreakpoints(context.Background(), setBreakpointsRequest(1, 19))

	insertsBefore := countOccurrences(m.sent, "-break-insert vars.c:19")
	require.Equal(t, 1, insertsBefore)

	s.handleSetBreakpoints(context.Background(), setBreakpointsRequest(2, 19))

	insertsAfter := countOccurrences(m.sent, "-break-insert vars.c:19")
	require.Equal(t, insertsBefore, insertsAfter, "second call must not insert any new breakpoint")
}

func TestSetBreakpointsDeletesLinesNoLongerRequested(t *testing.T) {
	m := newFakeMI()
	m.on("-break-list", mi.Result{Fields: map[string]mi.Value{
		"BreakpointTable": {Kind: mi.KindTuple, Tuple: map[string]mi.Value{
			"body": {Kind: mi.KindList, List: []mi.Value{breakpointTuple("1", "19")}},
		}},
	}}, nil)
	m.on("-break-delete 1", mi.Result{}, nil)

	s, tr := newTestSession(m)
	s.handleSetBreakpoints(context.Background(), setBreakpointsRequest(1))

	require.Contains(t, m.sent, "-break-delete 1")
	resp := tr.messages()[0].(*dap.SetBreakpointsResponse)
	require.Empty(t, resp.Body.Breakpoints)
}

func countOccurrences(haystack []string, needle string) int {
	n := 0
	for _, s := range haystack {
		if s == needle {
			n++
		}
	}
	return n
}
