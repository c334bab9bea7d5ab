package adapter

import (
	"context"
	"strconv"

	"github.com/google/go-dap"

	"github.com/tiffon/gdbdap/internal/handles"
	"github.com/tiffon/gdbdap/internal/micmd"
	"github.com/tiffon/gdbdap/internal/varobj"
)

// handleVariables dispatches on what kind of handle VariablesReference
// addresses: a frame's locals (scope), or a composite object's children.
// A handle absent from the current generation is a StaleHandle: answer
// with an empty list rather than an error.
func (s *Session) handleVariables(ctx context.Context, req *dap.VariablesRequest) {
	ref, ok := s.handles.Vars.Get(req.Arguments.VariablesReference)
	if !ok {
		s.sendVariablesResponse(req.Seq, nil)
		return
	}

	var vars []dap.Variable
	var err error
	switch ref.Kind {
	case handles.KindFrame:
		vars, err = s.frameScopeVariables(ctx, ref.Frame)
	case handles.KindObject:
		vars, err = s.objectScopeVariables(ctx, ref)
	}
	if err != nil {
		s.respondError("variables", req.Seq, err)
		return
	}
	s.sendVariablesResponse(req.Seq, vars)
}

func (s *Session) sendVariablesResponse(requestSeq int, vars []dap.Variable) {
	if vars == nil {
		vars = []dap.Variable{}
	}
	resp := &dap.VariablesResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "variables",
			RequestSeq:      requestSeq,
			Success:         true,
		},
		Body: dap.VariablesResponseBody{Variables: vars},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

// frameScopeVariables implements spec.md §4.5's variables(frame scope)
// procedure: refresh cached top-level varobjs; if any went out of scope
// (or none existed), re-enumerate via -stack-list-variables.
func (s *Session) frameScopeVariables(ctx context.Context, frame handles.FrameRef) ([]dap.Variable, error) {
	depth := s.depthCache[frame.ThreadID]

	cached := s.vars.TopLevel(frame.ThreadID, frame.FrameID, depth)
	callStackChanged := len(cached) == 0

	var out []dap.Variable
	for _, entry := range cached {
		key := varobj.Key{ThreadID: frame.ThreadID, FrameID: frame.FrameID, Depth: depth, Expression: entry.Expression}
		res, err := s.vars.Update(ctx, s.sender(), key)
		if err != nil {
			return nil, err
		}
		if res.Deleted {
			callStackChanged = true
			continue
		}
		out = append(out, s.variableFromEntry(frame, depth, res.Entry))
	}

	if !callStackChanged {
		return out, nil
	}

	locals, err := micmd.StackListVariables(ctx, s.sender(), frame.ThreadID, frame.FrameID)
	if err != nil {
		return nil, err
	}

	out = out[:0]
	for _, v := range locals {
		key := varobj.Key{ThreadID: frame.ThreadID, FrameID: frame.FrameID, Depth: depth, Expression: v.Name}
		if _, ok := s.vars.Get(key); ok {
			res, err := s.vars.Update(ctx, s.sender(), key)
			if err != nil {
				return nil, err
			}
			if !res.Deleted {
				out = append(out, s.variableFromEntry(frame, depth, res.Entry))
				continue
			}
		}
		created, err := micmd.VarCreate(ctx, s.sender(), varobjName(frame, v.Name), frame.ThreadID, frame.FrameID, v.Name)
		if err != nil {
			return nil, err
		}
		entry := s.vars.Add(key, true, false, created)
		out = append(out, s.variableFromEntry(frame, depth, entry))
	}
	return out, nil
}

// objectScopeVariables implements spec.md §4.5's variables(object scope)
// procedure: list ref's children, synthesizing array-aware names.
func (s *Session) objectScopeVariables(ctx context.Context, ref handles.VarRef) ([]dap.Variable, error) {
	parentKey := varobj.Key{ThreadID: ref.Frame.ThreadID, FrameID: ref.Frame.FrameID, Depth: ref.Depth, Expression: ref.Expression}
	parent, ok := s.vars.Get(parentKey)
	if !ok {
		return nil, nil
	}

	children, err := micmd.VarListChildren(ctx, s.sender(), parent.VarName)
	if err != nil {
		return nil, err
	}

	out := make([]dap.Variable, 0, len(children))
	for _, child := range children {
		childExpr := parent.ChildExpression(child.Exp)
		key := varobj.Key{ThreadID: ref.Frame.ThreadID, FrameID: ref.Frame.FrameID, Depth: ref.Depth, Expression: childExpr}
		entry := s.vars.Add(key, false, true, micmd.VarObject{
			Name:     child.Name,
			NumChild: child.NumChild,
			Value:    child.Value,
			Type:     child.Type,
		})
		out = append(out, s.variableFromEntry(ref.Frame, ref.Depth, entry))
	}
	return out, nil
}

func (s *Session) variableFromEntry(frame handles.FrameRef, depth int, entry varobj.Entry) dap.Variable {
	v := dap.Variable{
		Name:  entry.Expression,
		Value: entry.Value,
		Type:  entry.Type,
	}
	if entry.NumChild > 0 {
		v.VariablesReference = s.handles.Vars.Alloc(handles.VarRef{
			Kind:       handles.KindObject,
			Frame:      frame,
			Depth:      depth,
			Expression: entry.Expression,
		})
	}
	return v
}

func varobjName(frame handles.FrameRef, expr string) string {
	return "v" + strconv.Itoa(frame.ThreadID) + "_" + strconv.Itoa(frame.FrameID) + "_" + expr
}

// handleSetVariable looks up the varobj addressed by args.Name within
// the scope args.VariablesReference, reassigns it, and refreshes the
// cached value.
func (s *Session) handleSetVariable(ctx context.Context, req *dap.SetVariableRequest) {
	ref, ok := s.handles.Vars.Get(req.Arguments.VariablesReference)
	if !ok {
		// StaleHandle: answer with an empty body rather than an error.
		resp := &dap.SetVariableResponse{Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "setVariable",
			RequestSeq:      req.Seq,
			Success:         true,
		}}
		resp.Seq = s.nextSeq()
		s.sendResponse(resp)
		return
	}

	var frame handles.FrameRef
	var depth int
	var parentExpr string
	switch ref.Kind {
	case handles.KindFrame:
		frame = ref.Frame
		depth = s.depthCache[frame.ThreadID]
	case handles.KindObject:
		frame = ref.Frame
		depth = ref.Depth
		parentExpr = ref.Expression
	}

	expr := req.Arguments.Name
	if parentExpr != "" {
		if parent, ok := s.vars.Get(varobj.Key{ThreadID: frame.ThreadID, FrameID: frame.FrameID, Depth: depth, Expression: parentExpr}); ok {
			expr = parent.ChildExpression(req.Arguments.Name)
		}
	}

	key := varobj.Key{ThreadID: frame.ThreadID, FrameID: frame.FrameID, Depth: depth, Expression: expr}
	entry, ok := s.vars.Get(key)
	if !ok {
		s.respondError("setVariable", req.Seq, invalidArgsf("no variable %q in this scope", req.Arguments.Name))
		return
	}

	if _, err := micmd.VarAssign(ctx, s.sender(), entry.VarName, req.Arguments.Value); err != nil {
		s.respondError("setVariable", req.Seq, err)
		return
	}
	res, err := s.vars.Update(ctx, s.sender(), key)
	if err != nil {
		s.respondError("setVariable", req.Seq, err)
		return
	}

	resp := &dap.SetVariableResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "setVariable",
			RequestSeq:      req.Seq,
			Success:         true,
		},
		Body: dap.SetVariableResponseBody{Value: res.Entry.Value, Type: res.Entry.Type},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

// handleEvaluate discriminates by context: "repl" passes the expression
// straight through to the debugger as a raw MI interpreter command;
// "watch" locates or creates a non-isVar varobj, refreshing it as in the
// frame-scope path, recreating it from scratch if it has gone out of
// scope so the user keeps seeing a fresh value after frame changes.
func (s *Session) handleEvaluate(ctx context.Context, req *dap.EvaluateRequest) {
	switch req.Arguments.Context {
	case "repl":
		s.evaluateRepl(ctx, req)
	case "watch":
		s.evaluateWatch(ctx, req)
	default:
		s.respondError("evaluate", req.Seq, invalidArgsf("unsupported evaluate context %q", req.Arguments.Context))
	}
}

func (s *Session) evaluateRepl(ctx context.Context, req *dap.EvaluateRequest) {
	res, err := s.mi.Send(ctx, req.Arguments.Expression)
	if err != nil {
		s.respondError("evaluate", req.Seq, err)
		return
	}
	value, ok := res.FieldString("value")
	if !ok {
		value = res.Class
	}
	s.sendEvaluateResponse(req.Seq, value, 0)
}

func (s *Session) evaluateWatch(ctx context.Context, req *dap.EvaluateRequest) {
	frame, ok := s.handles.Frames.Get(req.Arguments.FrameId)
	if !ok {
		// StaleHandle: answer with an empty result rather than an error.
		s.sendEvaluateResponse(req.Seq, "", 0)
		return
	}
	depth := s.depthCache[frame.ThreadID]
	key := varobj.Key{ThreadID: frame.ThreadID, FrameID: frame.FrameID, Depth: depth, Expression: req.Arguments.Expression}

	entry, exists := s.vars.Get(key)
	if exists {
		res, err := s.vars.Update(ctx, s.sender(), key)
		if err != nil {
			s.respondError("evaluate", req.Seq, err)
			return
		}
		if !res.Deleted {
			s.sendEvaluateResponseFromEntry(req.Seq, frame, depth, res.Entry)
			return
		}
	}

	created, err := micmd.VarCreate(ctx, s.sender(), varobjName(frame, req.Arguments.Expression), frame.ThreadID, frame.FrameID, req.Arguments.Expression)
	if err != nil {
		s.respondError("evaluate", req.Seq, err)
		return
	}
	entry = s.vars.Add(key, false, false, created)
	s.sendEvaluateResponseFromEntry(req.Seq, frame, depth, entry)
}

func (s *Session) sendEvaluateResponseFromEntry(requestSeq int, frame handles.FrameRef, depth int, entry varobj.Entry) {
	ref := 0
	if entry.NumChild > 0 {
		ref = s.handles.Vars.Alloc(handles.VarRef{Kind: handles.KindObject, Frame: frame, Depth: depth, Expression: entry.Expression})
	}
	s.sendEvaluateResponse(requestSeq, entry.Value, ref)
}

func (s *Session) sendEvaluateResponse(requestSeq int, result string, variablesRef int) {
	resp := &dap.EvaluateResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "evaluate",
			RequestSeq:      requestSeq,
			Success:         true,
		},
		Body: dap.EvaluateResponseBody{Result: result, VariablesReference: variablesRef},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}
