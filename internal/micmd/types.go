// Package micmd is the typed command layer over internal/mi: one function
// per GDB/MI command, each building the wire string, sending it through a
// Sender, and decoding the result's fields into a Go struct. It plays the
// role the teacher's getThreadsWithBt and gdb.Ssn.GetFrameVars played
// inline in svr/ssn.go, pulled out into its own package and generalized
// to every command the adapter needs rather than just the two the
// original prototype used.
package micmd

import (
	"context"
	"strconv"

	"github.com/tiffon/gdbdap/internal/mi"
)

// Sender is the subset of *mi.Transport the command layer depends on.
// Accepting the interface rather than the concrete type lets tests supply
// a fake without spawning a real GDB process.
type Sender interface {
	Send(ctx context.Context, command string) (mi.Result, error)
}

// Breakpoint mirrors the fields GDB's "bkpt" tuple carries back from
// -break-insert/-break-list.
type Breakpoint struct {
	Number   string
	Type     string
	Disp     string
	Enabled  bool
	Addr     string
	Func     string
	File     string
	Fullname string
	Line     int
	Pending  string // set instead of File/Line when the location isn't resolved yet
}

// Thread mirrors one element of -thread-info's "threads" list.
type Thread struct {
	ID        string
	TargetID  string
	Name      string
	State     string
	Frame     Frame
	HasFrame  bool
}

// Frame mirrors one "frame" tuple from -stack-list-frames or a thread's
// current frame in -thread-info.
type Frame struct {
	Level    int
	Addr     string
	Func     string
	File     string
	Fullname string
	Line     int
}

// Variable mirrors one element of -stack-list-variables' "variables" list.
type Variable struct {
	Name  string
	Value string
	Type  string
}

// VarObject mirrors the fields -var-create/-var-update/-var-list-children
// return for a GDB variable object.
type VarObject struct {
	Name        string
	Exp         string // the display expression GDB reports for a child (e.g. "x", "0")
	NumChild    int
	Value       string
	Type        string
	ThreadID    string
	HasMore     bool
	InScope     bool // always true from VarCreate/VarListChildren; -var-update's scope report is VarUpdateResult.InScope
	TypeChanged bool
}

// VarUpdateResult is one element of -var-update's "changelist".
type VarUpdateResult struct {
	Name        string
	Value       string
	InScope     bool
	TypeChanged bool
}

func fieldString(r mi.Result, name string) string {
	s, _ := r.FieldString(name)
	return s
}

func fieldBool(r mi.Result, name string) bool {
	switch fieldString(r, name) {
	case "y", "1", "true":
		return true
	default:
		return false
	}
}

func fieldInt(r mi.Result, name string) int {
	n, _ := strconv.Atoi(fieldString(r, name))
	return n
}

func tupleString(t map[string]mi.Value, name string) string {
	v, ok := t[name]
	if !ok || v.Kind != mi.KindString {
		return ""
	}
	return v.Str
}

func tupleInt(t map[string]mi.Value, name string) int {
	n, _ := strconv.Atoi(tupleString(t, name))
	return n
}

func tupleBool(t map[string]mi.Value, name string) bool {
	switch tupleString(t, name) {
	case "y", "1", "true":
		return true
	default:
		return false
	}
}

func breakpointFromTuple(t map[string]mi.Value) Breakpoint {
	return Breakpoint{
		Number:   tupleString(t, "number"),
		Type:     tupleString(t, "type"),
		Disp:     tupleString(t, "disp"),
		Enabled:  tupleBool(t, "enabled"),
		Addr:     tupleString(t, "addr"),
		Func:     tupleString(t, "func"),
		File:     tupleString(t, "file"),
		Fullname: tupleString(t, "fullname"),
		Line:     tupleInt(t, "line"),
		Pending:  tupleString(t, "pending"),
	}
}

func frameFromTuple(t map[string]mi.Value) Frame {
	return Frame{
		Level:    tupleInt(t, "level"),
		Addr:     tupleString(t, "addr"),
		Func:     tupleString(t, "func"),
		File:     tupleString(t, "file"),
		Fullname: tupleString(t, "fullname"),
		Line:     tupleInt(t, "line"),
	}
}

func variableFromTuple(t map[string]mi.Value) Variable {
	return Variable{
		Name:  tupleString(t, "name"),
		Value: tupleString(t, "value"),
		Type:  tupleString(t, "type"),
	}
}
