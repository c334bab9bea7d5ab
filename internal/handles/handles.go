// Package handles implements the generational frame/variable handle
// tables spec.md's Design Notes describe: two monotonically allocated
// integer maps, reset on every debugger stop so a handle minted before
// the reset is rejected by absence rather than by an explicit check.
package handles

import "sync"

// FrameRef identifies a stack frame within a thread, as exposed to DAP
// behind an opaque integer handle.
type FrameRef struct {
	ThreadID int
	FrameID  int
}

// VarRefKind discriminates the two shapes a variable handle can address.
type VarRefKind int

const (
	// KindFrame addresses a frame's local-variables scope.
	KindFrame VarRefKind = iota
	// KindObject addresses the children of a specific varobj.
	KindObject
)

// VarRef is the value stored behind a variablesReference handle: either
// a frame's scope, or a specific object's children. For KindObject,
// Frame/Depth/Expression together reconstruct the parent's varobj.Key so
// internal/adapter can look the parent entry back up in the cache
// (rather than duplicating its varname/array-ness here).
type VarRef struct {
	Kind       VarRefKind
	Frame      FrameRef
	Depth      int
	Expression string
}

// Table is a generational integer -> T map. Reset clears every handle
// and bumps the generation; handles from a prior generation are simply
// gone, never explicitly invalidated.
type Table[T any] struct {
	mu         sync.Mutex
	next       int
	generation int
	values     map[int]T
}

// NewTable returns an empty Table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{values: make(map[int]T), next: 1}
}

// Alloc mints a fresh handle for v and returns it. Handles start at 1;
// 0 is reserved by DAP to mean "no variablesReference".
func (t *Table[T]) Alloc(v T) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.next
	t.next++
	t.values[h] = v
	return h
}

// Get looks up a handle. ok is false for handle 0, an unknown handle, or
// a handle minted before the last Reset.
func (t *Table[T]) Get(handle int) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[handle]
	return v, ok
}

// Reset discards every handle and starts a fresh generation. Called on
// every "stopped" async event, before the DAP stopped event is emitted,
// per spec.md §4.5.
func (t *Table[T]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.next = 1
	t.values = make(map[int]T)
}

// Generation reports the current generation counter, mainly useful for
// tests asserting that a Reset actually happened.
func (t *Table[T]) Generation() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Handles bundles the two tables a Session owns: frames (stackTrace
// allocates one handle per frame) and variable references (scopes and
// variables allocate one each). Both reset together on every stop.
type Handles struct {
	Frames *Table[FrameRef]
	Vars   *Table[VarRef]
}

// New returns a fresh, empty Handles.
func New() *Handles {
	return &Handles{
		Frames: NewTable[FrameRef](),
		Vars:   NewTable[VarRef](),
	}
}

// Reset resets both tables, minting a new generation for the session.
func (h *Handles) Reset() {
	h.Frames.Reset()
	h.Vars.Reset()
}
