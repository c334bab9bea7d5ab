package micmd

import (
	"context"
	"fmt"

	"github.com/tiffon/gdbdap/internal/mi"
)

// ExecArguments sets the inferior's argv via -exec-arguments, per spec.md
// §4.3/§6's launch sequence.
func ExecArguments(ctx context.Context, s Sender, args string) error {
	_, err := s.Send(ctx, fmt.Sprintf("-exec-arguments %s", args))
	return err
}

// FileExecAndSymbols loads the executable and its debug symbols.
func FileExecAndSymbols(ctx context.Context, s Sender, path string) error {
	_, err := s.Send(ctx, fmt.Sprintf("-file-exec-and-symbols %s", mi.QuoteIfNeeded(path)))
	return err
}

// TargetAttach attaches GDB to a running process by pid.
func TargetAttach(ctx context.Context, s Sender, pid int) error {
	_, err := s.Send(ctx, fmt.Sprintf("-target-attach %d", pid))
	return err
}

// EnablePrettyPrinting turns on GDB's pretty printers for structured
// values, sent once at session start per SPEC_FULL.md §4.3/§6.
func EnablePrettyPrinting(ctx context.Context, s Sender) error {
	_, err := s.Send(ctx, "-enable-pretty-printing")
	return err
}

// GdbExit requests a clean shutdown of the GDB process, used by the
// disconnect/terminate request handlers.
func GdbExit(ctx context.Context, s Sender) error {
	_, err := s.Send(ctx, "-gdb-exit")
	return err
}

// ExecRun starts (or restarts) execution of the inferior.
func ExecRun(ctx context.Context, s Sender) error {
	_, err := s.Send(ctx, "-exec-run")
	return err
}

// ExecContinue resumes a stopped thread, or all threads if threadID <= 0.
func ExecContinue(ctx context.Context, s Sender, threadID int) error {
	cmd := "-exec-continue"
	if threadID > 0 {
		cmd = fmt.Sprintf("%s --thread %d", cmd, threadID)
	}
	_, err := s.Send(ctx, cmd)
	return err
}

// ExecNext steps over one source line in the given thread.
func ExecNext(ctx context.Context, s Sender, threadID int) error {
	_, err := s.Send(ctx, fmt.Sprintf("-exec-next --thread %d", threadID))
	return err
}

// ExecStep steps into one source line in the given thread.
func ExecStep(ctx context.Context, s Sender, threadID int) error {
	_, err := s.Send(ctx, fmt.Sprintf("-exec-step --thread %d", threadID))
	return err
}

// ExecFinish runs the given thread until its current frame returns.
func ExecFinish(ctx context.Context, s Sender, threadID int) error {
	_, err := s.Send(ctx, fmt.Sprintf("-exec-finish --thread %d", threadID))
	return err
}

// ExecInterrupt stops a running inferior, backing the DAP pause request.
func ExecInterrupt(ctx context.Context, s Sender, threadID int) error {
	cmd := "-exec-interrupt"
	if threadID > 0 {
		cmd = fmt.Sprintf("%s --thread %d", cmd, threadID)
	}
	_, err := s.Send(ctx, cmd)
	return err
}

// BreakInsert sets a breakpoint at location ("file:line" or a function
// name) and returns the bkpt GDB created.
func BreakInsert(ctx context.Context, s Sender, location string) (Breakpoint, error) {
	res, err := s.Send(ctx, fmt.Sprintf("-break-insert %s", mi.QuoteIfNeeded(location)))
	if err != nil {
		return Breakpoint{}, err
	}
	bkpt, ok := res.Fields["bkpt"]
	if !ok || bkpt.Kind != mi.KindTuple {
		return Breakpoint{}, fmt.Errorf("micmd: break-insert: missing bkpt tuple in result")
	}
	return breakpointFromTuple(bkpt.Tuple), nil
}

// BreakDelete removes a breakpoint by number.
func BreakDelete(ctx context.Context, s Sender, number string) error {
	_, err := s.Send(ctx, fmt.Sprintf("-break-delete %s", number))
	return err
}

// BreakList returns every breakpoint GDB currently knows about.
func BreakList(ctx context.Context, s Sender) ([]Breakpoint, error) {
	res, err := s.Send(ctx, "-break-list")
	if err != nil {
		return nil, err
	}
	table, ok := res.Fields["BreakpointTable"]
	if !ok || table.Kind != mi.KindTuple {
		return nil, nil
	}
	body, ok := table.Tuple["body"]
	if !ok {
		return nil, nil
	}
	return breakpointsFromListValue(body), nil
}

func breakpointsFromListValue(v mi.Value) []Breakpoint {
	var out []Breakpoint
	switch v.Kind {
	case mi.KindResultList:
		for _, nv := range v.Result {
			if nv.Value.Kind == mi.KindTuple {
				out = append(out, breakpointFromTuple(nv.Value.Tuple))
			}
		}
	case mi.KindList:
		for _, item := range v.List {
			if item.Kind == mi.KindTuple {
				out = append(out, breakpointFromTuple(item.Tuple))
			}
		}
	}
	return out
}

// ThreadInfo lists every thread GDB is tracking, per -thread-info.
func ThreadInfo(ctx context.Context, s Sender) ([]Thread, error) {
	res, err := s.Send(ctx, "-thread-info")
	if err != nil {
		return nil, err
	}
	list, ok := res.Fields["threads"]
	if !ok {
		return nil, nil
	}
	var threads []Thread
	appendTuple := func(t map[string]mi.Value) {
		th := Thread{
			ID:       tupleString(t, "id"),
			TargetID: tupleString(t, "target-id"),
			Name:     tupleString(t, "name"),
			State:    tupleString(t, "state"),
		}
		if fr, ok := t["frame"]; ok && fr.Kind == mi.KindTuple {
			th.Frame = frameFromTuple(fr.Tuple)
			th.HasFrame = true
		}
		threads = append(threads, th)
	}
	switch list.Kind {
	case mi.KindList:
		for _, item := range list.List {
			if item.Kind == mi.KindTuple {
				appendTuple(item.Tuple)
			}
		}
	case mi.KindResultList:
		for _, nv := range list.Result {
			if nv.Value.Kind == mi.KindTuple {
				appendTuple(nv.Value.Tuple)
			}
		}
	}
	return threads, nil
}

// StackInfoDepth returns the number of frames on threadID's call stack.
func StackInfoDepth(ctx context.Context, s Sender, threadID int) (int, error) {
	res, err := s.Send(ctx, fmt.Sprintf("-stack-info-depth --thread %d", threadID))
	if err != nil {
		return 0, err
	}
	return fieldInt(res, "depth"), nil
}

// StackListFrames returns threadID's call stack, outermost frame last.
func StackListFrames(ctx context.Context, s Sender, threadID int) ([]Frame, error) {
	res, err := s.Send(ctx, fmt.Sprintf("-stack-list-frames --thread %d", threadID))
	if err != nil {
		return nil, err
	}
	stack, ok := res.Fields["stack"]
	if !ok {
		return nil, nil
	}
	var frames []Frame
	switch stack.Kind {
	case mi.KindResultList:
		for _, nv := range stack.Result {
			if nv.Value.Kind == mi.KindTuple {
				frames = append(frames, frameFromTuple(nv.Value.Tuple))
			}
		}
	case mi.KindList:
		for _, item := range stack.List {
			if item.Kind == mi.KindTuple {
				frames = append(frames, frameFromTuple(item.Tuple))
			}
		}
	}
	return frames, nil
}

// StackListVariables returns the name/value/type of every variable
// visible in the given thread/frame.
func StackListVariables(ctx context.Context, s Sender, threadID, frameID int) ([]Variable, error) {
	cmd := fmt.Sprintf("-stack-list-variables --thread %d --frame %d --all-values", threadID, frameID)
	res, err := s.Send(ctx, cmd)
	if err != nil {
		return nil, err
	}
	list, ok := res.Fields["variables"]
	if !ok {
		return nil, nil
	}
	var vars []Variable
	switch list.Kind {
	case mi.KindResultList:
		for _, nv := range list.Result {
			if nv.Value.Kind == mi.KindTuple {
				vars = append(vars, variableFromTuple(nv.Value.Tuple))
			}
		}
	case mi.KindList:
		for _, item := range list.List {
			if item.Kind == mi.KindTuple {
				vars = append(vars, variableFromTuple(item.Tuple))
			}
		}
	}
	return vars, nil
}

// VarCreate creates a GDB variable object for expr, evaluated in the
// given thread/frame. -var-create's FRAME-ADDR argument only accepts "*"
// (the currently selected frame) or "@" (floating, re-evaluated against
// whatever frame is selected later); to pin the varobj to a specific
// frame we select it first with -stack-select-frame and then create with
// "*", matching the sequence GDB's own MI documentation shows.
func VarCreate(ctx context.Context, s Sender, name string, threadID, frameID int, expr string) (VarObject, error) {
	if _, err := s.Send(ctx, fmt.Sprintf("-stack-select-frame --thread %d --frame %d", threadID, frameID)); err != nil {
		return VarObject{}, err
	}
	cmd := fmt.Sprintf("-var-create %s * %s", name, mi.QuoteIfNeeded(expr))
	res, err := s.Send(ctx, cmd)
	if err != nil {
		return VarObject{}, err
	}
	return VarObject{
		Name:     name,
		NumChild: fieldInt(res, "numchild"),
		Value:    fieldString(res, "value"),
		Type:     fieldString(res, "type"),
		ThreadID: fieldString(res, "thread-id"),
		HasMore:  fieldBool(res, "has_more"),
		InScope:  true,
	}, nil
}

// VarUpdate refreshes every varobj reachable from name ("*" updates all
// root varobjs) and reports which changed.
func VarUpdate(ctx context.Context, s Sender, name string) ([]VarUpdateResult, error) {
	res, err := s.Send(ctx, fmt.Sprintf("-var-update --all-values %s", name))
	if err != nil {
		return nil, err
	}
	list, ok := res.Fields["changelist"]
	if !ok {
		return nil, nil
	}
	var out []VarUpdateResult
	toResult := func(t map[string]mi.Value) VarUpdateResult {
		return VarUpdateResult{
			Name:        tupleString(t, "name"),
			Value:       tupleString(t, "value"),
			InScope:     tupleString(t, "in_scope") != "false",
			TypeChanged: tupleBool(t, "type_changed"),
		}
	}
	switch list.Kind {
	case mi.KindList:
		for _, item := range list.List {
			if item.Kind == mi.KindTuple {
				out = append(out, toResult(item.Tuple))
			}
		}
	case mi.KindResultList:
		for _, nv := range list.Result {
			if nv.Value.Kind == mi.KindTuple {
				out = append(out, toResult(nv.Value.Tuple))
			}
		}
	}
	return out, nil
}

// VarListChildren lists the immediate children of a varobj, creating
// child varobjs on GDB's side as a side effect (per -var-list-children's
// own semantics).
func VarListChildren(ctx context.Context, s Sender, name string) ([]VarObject, error) {
	res, err := s.Send(ctx, fmt.Sprintf("-var-list-children --all-values %s", name))
	if err != nil {
		return nil, err
	}
	list, ok := res.Fields["children"]
	if !ok {
		return nil, nil
	}
	var out []VarObject
	toVar := func(t map[string]mi.Value) VarObject {
		return VarObject{
			Name:     tupleString(t, "name"),
			Exp:      tupleString(t, "exp"),
			NumChild: tupleInt(t, "numchild"),
			Value:    tupleString(t, "value"),
			Type:     tupleString(t, "type"),
			InScope:  true,
		}
	}
	switch list.Kind {
	case mi.KindResultList:
		for _, nv := range list.Result {
			if nv.Value.Kind == mi.KindTuple {
				out = append(out, toVar(nv.Value.Tuple))
			}
		}
	case mi.KindList:
		for _, item := range list.List {
			if item.Kind == mi.KindTuple {
				out = append(out, toVar(item.Tuple))
			}
		}
	}
	return out, nil
}

// VarAssign sets a varobj's value by expression, returning the new value
// as GDB reports it back (post-assignment, reformatted).
func VarAssign(ctx context.Context, s Sender, name, value string) (string, error) {
	res, err := s.Send(ctx, fmt.Sprintf("-var-assign %s %s", name, mi.QuoteIfNeeded(value)))
	if err != nil {
		return "", err
	}
	return fieldString(res, "value"), nil
}

// VarDelete deletes a varobj and its children.
func VarDelete(ctx context.Context, s Sender, name string) error {
	_, err := s.Send(ctx, fmt.Sprintf("-var-delete %s", name))
	return err
}
