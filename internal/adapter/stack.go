package adapter

import (
	"context"
	"strconv"

	"github.com/google/go-dap"

	"github.com/tiffon/gdbdap/internal/handles"
	"github.com/tiffon/gdbdap/internal/micmd"
)

// handleThreads lists GDB's threads. Per spec.md §6, if configurationDone
// has not yet transitioned the session to running, DAP clients poll this
// early and the adapter answers with an empty list rather than calling
// the (not-yet-running) debugger.
func (s *Session) handleThreads(ctx context.Context, req *dap.ThreadsRequest) {
	if !s.running {
		s.sendThreadsResponse(req.Seq, nil)
		return
	}

	threads, err := micmd.ThreadInfo(ctx, s.sender())
	if err != nil {
		s.respondError("threads", req.Seq, err)
		return
	}

	out := make([]dap.Thread, 0, len(threads))
	for _, th := range threads {
		id, _ := strconv.Atoi(th.ID)
		name := th.Name
		if name == "" {
			name = th.TargetID
		}
		out = append(out, dap.Thread{Id: id, Name: name})
	}
	s.sendThreadsResponse(req.Seq, out)
}

func (s *Session) sendThreadsResponse(requestSeq int, threads []dap.Thread) {
	if threads == nil {
		threads = []dap.Thread{}
	}
	resp := &dap.ThreadsResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "threads",
			RequestSeq:      requestSeq,
			Success:         true,
		},
		Body: dap.ThreadsResponseBody{Threads: threads},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

func (s *Session) handleStackTrace(ctx context.Context, req *dap.StackTraceRequest) {
	threadID := req.Arguments.ThreadId

	depth, err := micmd.StackInfoDepth(ctx, s.sender(), threadID)
	if err != nil {
		s.respondError("stackTrace", req.Seq, err)
		return
	}
	s.depthCache[threadID] = depth

	frames, err := micmd.StackListFrames(ctx, s.sender(), threadID)
	if err != nil {
		s.respondError("stackTrace", req.Seq, err)
		return
	}

	out := make([]dap.StackFrame, 0, len(frames))
	for _, fr := range frames {
		handle := s.handles.Frames.Alloc(handles.FrameRef{ThreadID: threadID, FrameID: fr.Level})
		sf := dap.StackFrame{
			Id:   handle,
			Name: fr.Func,
			Line: fr.Line,
		}
		if fr.Fullname != "" {
			sf.Source = &dap.Source{Path: fr.Fullname, Name: fr.File}
		}
		out = append(out, sf)
	}

	resp := &dap.StackTraceResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "stackTrace",
			RequestSeq:      req.Seq,
			Success:         true,
		},
		Body: dap.StackTraceResponseBody{StackFrames: out, TotalFrames: depth},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

// handleScopes allocates one "Locals" variable handle per frame, lazily,
// per spec.md §4.5. A frameId from a prior generation (the session reset
// handles after the last stop) is a StaleHandle: answer with no scopes
// rather than an error, matching what DAP clients already expect.
func (s *Session) handleScopes(ctx context.Context, req *dap.ScopesRequest) {
	frame, ok := s.handles.Frames.Get(req.Arguments.FrameId)
	if !ok {
		s.sendScopesResponse(req.Seq, nil)
		return
	}

	varHandle := s.handles.Vars.Alloc(handles.VarRef{Kind: handles.KindFrame, Frame: frame})
	scopes := []dap.Scope{{
		Name:               "Locals",
		VariablesReference: varHandle,
		Expensive:          false,
	}}
	s.sendScopesResponse(req.Seq, scopes)
}

func (s *Session) sendScopesResponse(requestSeq int, scopes []dap.Scope) {
	if scopes == nil {
		scopes = []dap.Scope{}
	}
	resp := &dap.ScopesResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "scopes",
			RequestSeq:      requestSeq,
			Success:         true,
		},
		Body: dap.ScopesResponseBody{Scopes: scopes},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}
