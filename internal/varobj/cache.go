// Package varobj implements the variable-object cache that coalesces
// DAP's repeated "variables" requests onto a stable set of GDB varobjs,
// per spec.md §4.4. It has no direct teacher analog (the teacher relayed
// raw MI to the browser and left the client to manage varobjs); its
// bookkeeping shape — a mutex-guarded map with explicit eviction — is
// grounded on microsoft-dcp's internal/dap/dedup.go eventDeduplicator.
package varobj

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/tiffon/gdbdap/internal/micmd"
)

// arrayType matches a GDB type string that denotes an array, e.g.
// "int [4]" or "struct point [2][3]".
var arrayType = regexp.MustCompile(`.*\[\d+\].*`)

// Key identifies a cache entry: the thread/frame a variable was
// evaluated in, the stack depth at that time (so a return from a deeper
// call makes the entry miss naturally), and its source-visible
// expression.
type Key struct {
	ThreadID   int
	FrameID    int
	Depth      int
	Expression string
}

// Entry is one cached GDB variable object.
type Entry struct {
	VarName    string
	Expression string
	Type       string
	Value      string
	NumChild   int
	IsVar      bool
	IsChild    bool
}

// IsArray reports whether this entry's type marks it as an array, per
// spec.md §4.4's array-detection rule.
func (e Entry) IsArray() bool { return arrayType.MatchString(e.Type) }

// ChildExpression synthesizes the user-visible expression for a child of
// this entry: array-typed parents wrap the child's bare index exp
// ("0", "1", ...) as "parent[child]"; anything else (struct fields,
// pointers) is joined as "parent.child".
func (e Entry) ChildExpression(childExp string) string {
	if e.IsArray() {
		return fmt.Sprintf("%s[%s]", e.Expression, childExp)
	}
	return fmt.Sprintf("%s.%s", e.Expression, childExp)
}

// Cache is the session-owned varobj cache. Per spec.md §5's shared
// resource policy, a Cache is normally driven from a single dispatch
// goroutine and needs no locking; the mutex here exists only so a
// misbehaving caller (or a future multi-goroutine session) fails safe
// rather than racing silently.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]Entry)}
}

// Get is a pure lookup; ok is false if no entry exists for key.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Add constructs an Entry from a micmd.VarObject (the result of
// -var-create) and stores it under key, overwriting any prior entry with
// an identical key.
func (c *Cache) Add(key Key, isVar, isChild bool, created micmd.VarObject) Entry {
	e := Entry{
		VarName:    created.Name,
		Expression: key.Expression,
		Type:       created.Type,
		Value:      created.Value,
		NumChild:   created.NumChild,
		IsVar:      isVar,
		IsChild:    isChild,
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e
}

// UpdateResult reports what happened to a cached entry after Update.
type UpdateResult struct {
	Entry     Entry
	InScope   bool
	Deleted   bool // true if the entry went out of scope and was evicted
}

// Update issues -var-update for the cached entry at key and applies the
// result: an in-scope changelist entry refreshes the cached value; an
// out-of-scope one deletes the varobj (both in GDB, via -var-delete, and
// locally) and the caller is expected to recreate it.
func (c *Cache) Update(ctx context.Context, s micmd.Sender, key Key) (UpdateResult, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return UpdateResult{}, fmt.Errorf("varobj: no cached entry for key %+v", key)
	}

	changes, err := micmd.VarUpdate(ctx, s, entry.VarName)
	if err != nil {
		return UpdateResult{}, err
	}

	for _, ch := range changes {
		if ch.Name != entry.VarName {
			continue
		}
		if !ch.InScope {
			c.removeLocked(key)
			if delErr := micmd.VarDelete(ctx, s, entry.VarName); delErr != nil {
				return UpdateResult{Entry: entry, Deleted: true}, delErr
			}
			return UpdateResult{Entry: entry, Deleted: true}, nil
		}
		entry.Value = ch.Value
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()
		return UpdateResult{Entry: entry, InScope: true}, nil
	}

	// No changelist entry at all means GDB considers nothing changed;
	// the cached value is still current.
	return UpdateResult{Entry: entry, InScope: true}, nil
}

// Remove evicts the entry at key and issues -var-delete for it. A no-op
// if no entry exists for key.
func (c *Cache) Remove(ctx context.Context, s micmd.Sender, key Key) error {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return micmd.VarDelete(ctx, s, entry.VarName)
}

func (c *Cache) removeLocked(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// TopLevel returns every cached entry scoped to (thread, frame, depth)
// with IsVar true, the set iterated when rendering a frame's locals.
func (c *Cache) TopLevel(threadID, frameID, depth int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Entry
	for k, e := range c.entries {
		if k.ThreadID == threadID && k.FrameID == frameID && k.Depth == depth && e.IsVar {
			out = append(out, e)
		}
	}
	return out
}
