package mi

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/tiffon/gdbdap/internal/process"
)

// Result is the outcome of a completed command: the result-class GDB
// reported ("done", "running", "connected") and its fields.
type Result struct {
	Class  string
	Fields map[string]Value
}

// FieldString is a convenience accessor mirroring Record.FieldString.
func (r Result) FieldString(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsyncListener receives async exec/notify/status records as they arrive,
// in dispatch order.
type AsyncListener func(nature Nature, class string, fields map[string]Value)

// ConsoleCategory distinguishes which DAP output category a console/
// target/log stream record should be relayed as.
type ConsoleCategory string

const (
	CategoryStdout ConsoleCategory = "stdout"
	CategoryStderr ConsoleCategory = "stderr"
)

// ConsoleListener receives stream (console/target/log) text.
type ConsoleListener func(category ConsoleCategory, text string)

type pendingSlot struct {
	outcome chan sendOutcome
}

type sendOutcome struct {
	result Result
	err    error
}

// Transport owns a spawned GDB process, feeds its stdout through a
// Parser, and correlates result records with the commands that
// requested them by integer token. Exactly one goroutine (started by
// Start) reads from the process and dispatches records; Send may be
// called concurrently by any number of callers, per spec.md §5.
type Transport struct {
	proc   *process.Process
	parser *Parser
	log    logr.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	nextToken int
	pending   map[int]pendingSlot
	closed    bool
	closeErr  error

	asyncMu   sync.Mutex
	asyncSubs []AsyncListener

	consoleMu   sync.Mutex
	consoleSubs []ConsoleListener

	readDone chan struct{}
}

// NewTransport wraps an already-constructed (but not yet started)
// process.Process. Callers typically build the Process with
// process.New(log, "gdb", "--interpreter=mi2") per spec.md §6.
func NewTransport(log logr.Logger, proc *process.Process) *Transport {
	return &Transport{
		proc:     proc,
		parser:   NewParser(),
		log:      log,
		pending:  make(map[int]pendingSlot),
		readDone: make(chan struct{}),
	}
}

// Start launches the underlying process and begins the single
// read-dispatch loop. Start returns once the process is spawned; the
// dispatch loop runs until the process exits or Close is called.
func (t *Transport) Start(ctx context.Context) error {
	if err := t.proc.Start(ctx); err != nil {
		return fmt.Errorf("mi: start gdb: %w", err)
	}
	go t.readLoop()
	go t.stderrLoop()
	return nil
}

// OnAsync registers a listener for async exec/notify/status records.
// Listeners are invoked synchronously from the read-dispatch goroutine,
// in arrival order; they must not block.
func (t *Transport) OnAsync(l AsyncListener) {
	t.asyncMu.Lock()
	defer t.asyncMu.Unlock()
	t.asyncSubs = append(t.asyncSubs, l)
}

// OnConsole registers a listener for console/target/log stream records.
func (t *Transport) OnConsole(l ConsoleListener) {
	t.consoleMu.Lock()
	defer t.consoleMu.Unlock()
	t.consoleSubs = append(t.consoleSubs, l)
}

// Send writes "{token}{command}\n" to GDB's stdin and waits for the
// matching result record. Concurrent callers are serialized on the wire
// but may complete in any order relative to each other; MI itself
// executes one command at a time, so in practice results return in
// send order (spec.md §5).
func (t *Transport) Send(ctx context.Context, command string) (Result, error) {
	t.mu.Lock()
	if t.closed {
		err := t.closeErr
		t.mu.Unlock()
		if err == nil {
			err = transportClosedError(nil)
		}
		return Result{}, err
	}
	t.nextToken++
	token := t.nextToken
	slot := pendingSlot{outcome: make(chan sendOutcome, 1)}
	t.pending[token] = slot
	t.mu.Unlock()

	line := fmt.Sprintf("%d%s\n", token, command)

	t.writeMu.Lock()
	_, writeErr := t.proc.Stdin().Write([]byte(line))
	t.writeMu.Unlock()

	if writeErr != nil {
		t.mu.Lock()
		delete(t.pending, token)
		t.mu.Unlock()
		return Result{}, transportClosedError(writeErr)
	}

	select {
	case out := <-slot.outcome:
		return out.result, out.err
	case <-ctx.Done():
		// The command is already on the wire and GDB will process it
		// regardless; we simply stop waiting. The slot stays registered
		// so the eventual result record is still consumed into the
		// buffered slot rather than logged as a result for an unknown token.
		return Result{}, ctx.Err()
	}
}

func (t *Transport) readLoop() {
	defer close(t.readDone)
	out := t.proc.Stdout()
	for {
		line, ok := <-out
		if !ok {
			t.shutdown(transportClosedError(nil))
			return
		}
		if line.Text != "" {
			for _, rec := range t.parser.Feed([]byte(line.Text)) {
				t.dispatch(rec)
			}
		}
		if line.Err != nil {
			t.shutdown(transportClosedError(line.Err))
			return
		}
	}
}

func (t *Transport) stderrLoop() {
	for line := range t.proc.Stderr() {
		if line.Text != "" {
			t.emitConsole(CategoryStderr, line.Text)
		}
		if line.Err != nil {
			return
		}
	}
}

func (t *Transport) dispatch(rec Record) {
	if rec.ParseError != nil {
		t.log.V(1).Info("mi: parse error, resyncing", "error", rec.ParseError)
	}

	switch rec.Nature {
	case NaturePrompt:
		return

	case NatureResult:
		t.completeResult(rec)

	case NatureExec, NatureNotify, NatureStatus:
		t.asyncMu.Lock()
		subs := append([]AsyncListener(nil), t.asyncSubs...)
		t.asyncMu.Unlock()
		for _, l := range subs {
			l(rec.Nature, rec.Class, rec.Fields)
		}

	case NatureConsole:
		t.emitConsole(CategoryStdout, rec.Stream)
	case NatureTarget:
		t.emitConsole(CategoryStdout, rec.Stream)
	case NatureLog:
		t.emitConsole(CategoryStderr, rec.Stream)
	}
}

func (t *Transport) emitConsole(cat ConsoleCategory, text string) {
	t.consoleMu.Lock()
	subs := append([]ConsoleListener(nil), t.consoleSubs...)
	t.consoleMu.Unlock()
	for _, l := range subs {
		l(cat, text)
	}
}

func (t *Transport) completeResult(rec Record) {
	if !rec.HasToken {
		t.log.V(1).Info("mi: dropping unsolicited result record", "class", rec.Class)
		return
	}

	t.mu.Lock()
	slot, ok := t.pending[rec.Token]
	if ok {
		delete(t.pending, rec.Token)
	}
	t.mu.Unlock()

	if !ok {
		t.log.V(1).Info("mi: result for unknown token", "token", rec.Token)
		return
	}

	var out sendOutcome
	switch ResultClass(rec.Class) {
	case ClassDone, ClassRunning, ClassConnected:
		out = sendOutcome{result: Result{Class: rec.Class, Fields: rec.Fields}}
	case ClassError:
		msg, _ := (&rec).FieldString("msg")
		out = sendOutcome{err: gdbError(msg)}
	default:
		out = sendOutcome{err: protocolErrorf("unknown result class %q", rec.Class)}
	}

	slot.outcome <- out
}

// shutdown fails every pending command and marks the transport closed.
// Idempotent: the first caller wins, later callers are no-ops.
func (t *Transport) shutdown(cause *Error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.closeErr = cause
	pending := t.pending
	t.pending = make(map[int]pendingSlot)
	t.mu.Unlock()

	for _, slot := range pending {
		slot.outcome <- sendOutcome{err: cause}
	}
}

// Close terminates the underlying GDB process and fails any outstanding
// commands with TransportClosed, per spec.md §7. Close is idempotent.
func (t *Transport) Close() {
	t.proc.Kill()
	t.shutdown(transportClosedError(nil))
}

// Done is closed once the read-dispatch loop has exited (the process
// has exited or Close was called).
func (t *Transport) Done() <-chan struct{} { return t.readDone }
