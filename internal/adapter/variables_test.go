package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tiffon/gdbdap/internal/handles"
	"github.com/tiffon/gdbdap/internal/mi"
	"github.com/tiffon/gdbdap/internal/micmd"
	"github.com/tiffon/gdbdap/internal/varobj"
)

func varResultTuple(name, value, typ string) mi.Value {
	return mi.Value{Kind: mi.KindTuple, Tuple: map[string]mi.Value{
		"name":  {Kind: mi.KindString, Str: name},
		"value": {Kind: mi.KindString, Str: value},
		"type":  {Kind: mi.KindString, Str: typ},
	}}
}

// TestFrameScopeVariablesListsLocals exercises the first end-to-end
// scenario against vars.c: locals a, b at frame scope with no cache yet,
// which forces the -stack-list-variables re-enumeration path.
func TestFrameScopeVariablesListsLocals(t *testing.T) {
	m := newFakeMI()
	m.on("-stack-list-variables --thread 1 --frame 0 --all-values", mi.Result{Fields: map[string]mi.Value{
		"variables": {Kind: mi.KindList, List: []mi.Value{
			varResultTuple("a", "1", "int"),
			varResultTuple("b", "2", "int"),
		}},
	}}, nil)
	m.on("-stack-select-frame --thread 1 --frame 0", mi.Result{}, nil)
	m.on("-var-create v1_0_a * a", mi.Result{Fields: map[string]mi.Value{
		"value": {Kind: mi.KindString, Str: "1"}, "type": {Kind: mi.KindString, Str: "int"},
		"numchild": {Kind: mi.KindString, Str: "0"},
	}}, nil)
	m.on("-var-create v1_0_b * b", mi.Result{Fields: map[string]mi.Value{
		"value": {Kind: mi.KindString, Str: "2"}, "type": {Kind: mi.KindString, Str: "int"},
		"numchild": {Kind: mi.KindString, Str: "0"},
	}}, nil)

	s, _ := newTestSession(m)
	frame := handles.FrameRef{ThreadID: 1, FrameID: 0}

	vars, err := s.frameScopeVariables(context.Background(), frame)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	require.Equal(t, "a", vars[0].Name)
	require.Equal(t, "1", vars[0].Value)
	require.Equal(t, "int", vars[0].Type)
	require.Equal(t, "b", vars[1].Name)
	require.Equal(t, "2", vars[1].Value)
}

// TestObjectScopeVariablesArrayChildNaming exercises scenario 5: array
// local f has type "int [3]" and its children are synthesized as
// f[0], f[1], f[2], not f.0 etc.
func TestObjectScopeVariablesArrayChildNaming(t *testing.T) {
	m := newFakeMI()
	m.on("-var-list-children --all-values varf", mi.Result{Fields: map[string]mi.Value{
		"children": {Kind: mi.KindList, List: []mi.Value{
			{Kind: mi.KindTuple, Tuple: map[string]mi.Value{
				"name": {Kind: mi.KindString, Str: "varf.0"}, "exp": {Kind: mi.KindString, Str: "0"},
				"value": {Kind: mi.KindString, Str: "1"}, "type": {Kind: mi.KindString, Str: "int"},
				"numchild": {Kind: mi.KindString, Str: "0"},
			}},
			{Kind: mi.KindTuple, Tuple: map[string]mi.Value{
				"name": {Kind: mi.KindString, Str: "varf.1"}, "exp": {Kind: mi.KindString, Str: "1"},
				"value": {Kind: mi.KindString, Str: "2"}, "type": {Kind: mi.KindString, Str: "int"},
				"numchild": {Kind: mi.KindString, Str: "0"},
			}},
		}},
	}}, nil)

	s, _ := newTestSession(m)
	frame := handles.FrameRef{ThreadID: 1, FrameID: 0}
	key := varobj.Key{ThreadID: 1, FrameID: 0, Depth: 0, Expression: "f"}
	s.vars.Add(key, true, false, micmd.VarObject{Name: "varf", Type: "int [3]", NumChild: 3})

	ref := handles.VarRef{Kind: handles.KindObject, Frame: frame, Depth: 0, Expression: "f"}
	vars, err := s.objectScopeVariables(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	require.Equal(t, "f[0]", vars[0].Name)
	require.Equal(t, "f[1]", vars[1].Name)
}
