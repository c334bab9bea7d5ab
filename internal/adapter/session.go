// Package adapter is the DAP Session Core: it owns one GDB child process,
// dispatches DAP requests from a single client connection onto typed MI
// commands, and translates MI async events back into DAP events. Its
// dispatch loop generalizes the teacher's nvlvSsn.Run select loop
// (tiffon-nvlv/svr/ssn.go) from a hand-rolled WebSocket JSON envelope to
// typed github.com/google/go-dap messages and from "sh + gdb + client"
// fan-in to "client requests + gdb async + gdb console" fan-in.
package adapter

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/tiffon/gdbdap/internal/handles"
	"github.com/tiffon/gdbdap/internal/mi"
	"github.com/tiffon/gdbdap/internal/micmd"
	"github.com/tiffon/gdbdap/internal/process"
	"github.com/tiffon/gdbdap/internal/varobj"
)

// Transport is the subset of internal/transport.Transport the session
// depends on; declared locally so this package doesn't need to import
// internal/transport, the way internal/micmd.Sender decouples from
// internal/mi.Transport's concrete type.
type Transport interface {
	ReadMessage() (dap.Message, error)
	WriteMessage(dap.Message) error
	Close() error
}

type clientMsg struct {
	msg dap.Message
	err error
}

type asyncMsg struct {
	nature mi.Nature
	class  string
	fields map[string]mi.Value
}

type consoleMsg struct {
	category mi.ConsoleCategory
	text     string
}

// miClient is the subset of *mi.Transport Session depends on, declared
// locally so tests can substitute a fake that never spawns a real GDB
// process — the same seam internal/micmd.Sender provides one layer down.
type miClient interface {
	Send(ctx context.Context, command string) (mi.Result, error)
	OnAsync(l mi.AsyncListener)
	OnConsole(l mi.ConsoleListener)
	Close()
	Done() <-chan struct{}
}

// Session is one DAP client connection bridged to one spawned GDB
// process. Per spec.md §5, the varobj cache, handle tables, and launch
// state are touched only from the single dispatch goroutine Run.
type Session struct {
	ID string

	log       logr.Logger
	transport Transport
	gdbPath   string

	// SessionBaseDir, if set, is the directory under which a per-session
	// output log is created when a launch/attach request doesn't supply
	// its own logFile. Generalizes tiffon-nvlv/svr/fs.go's getSsnSpace via
	// internal/config.NewSessionDir.
	SessionBaseDir string
	logWriter      io.WriteCloser

	proc *process.Process
	mi   miClient

	vars    *varobj.Cache
	handles *handles.Handles

	outSeq int64 // atomic: next Seq stamped on an outgoing message

	launchKind  string // "launch" or "attach"
	running     bool   // true once configurationDone has issued -exec-run/-exec-continue
	targetPID   int
	depthCache  map[int]int // threadID -> last known -stack-info-depth

	clientCh  chan clientMsg
	asyncCh   chan asyncMsg
	consoleCh chan consoleMsg
	done      chan struct{}
	doneOnce  sync.Once
}

// NewSession constructs a Session bound to transport. gdbPath names the
// GDB binary to spawn ("gdb" by default; overridable per
// internal/config).
func NewSession(log logr.Logger, transport Transport, gdbPath string) *Session {
	if gdbPath == "" {
		gdbPath = "gdb"
	}
	return &Session{
		ID:         uuid.NewString(),
		log:        log,
		transport:  transport,
		gdbPath:    gdbPath,
		vars:       varobj.New(),
		handles:    handles.New(),
		depthCache: make(map[int]int),
		clientCh:   make(chan clientMsg, 8),
		asyncCh:    make(chan asyncMsg, 64),
		consoleCh:  make(chan consoleMsg, 64),
		done:       make(chan struct{}),
	}
}

// Run spawns GDB, starts the reader goroutines, and runs the dispatch
// loop until the transport or the debugger closes, or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	if s.mi == nil {
		s.proc = process.New(s.log, s.gdbPath, "--interpreter=mi2")
		m := mi.NewTransport(s.log, s.proc)
		if err := m.Start(ctx); err != nil {
			return fmt.Errorf("adapter: start gdb: %w", err)
		}
		s.mi = m
	}
	defer s.mi.Close()

	s.mi.OnAsync(func(nature mi.Nature, class string, fields map[string]mi.Value) {
		select {
		case s.asyncCh <- asyncMsg{nature: nature, class: class, fields: fields}:
		case <-s.done:
		}
	})
	s.mi.OnConsole(func(cat mi.ConsoleCategory, text string) {
		select {
		case s.consoleCh <- consoleMsg{category: cat, text: text}:
		case <-s.done:
		}
	})

	go s.readClientLoop()

	for {
		select {
		case cm := <-s.clientCh:
			if cm.err != nil {
				s.log.V(1).Info("adapter: client transport closed", "error", cm.err)
				return nil
			}
			s.dispatch(ctx, cm.msg)

		case am := <-s.asyncCh:
			s.handleAsync(am)

		case cm := <-s.consoleCh:
			s.handleConsole(cm)

		case <-s.mi.Done():
			s.sendEvent(&dap.TerminatedEvent{Event: s.newEvent("terminated")})
			return nil

		case <-ctx.Done():
			return ctx.Err()

		case <-s.done:
			return nil
		}
	}
}

// Close tears down the session: closes the GDB transport (which fails
// any pending command) and unblocks Run.
func (s *Session) Close() {
	s.doneOnce.Do(func() { close(s.done) })
	if s.mi != nil {
		s.mi.Close()
	}
	if s.logWriter != nil {
		_ = s.logWriter.Close()
	}
	_ = s.transport.Close()
}

func (s *Session) readClientLoop() {
	for {
		msg, err := s.transport.ReadMessage()
		select {
		case s.clientCh <- clientMsg{msg: msg, err: err}:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) nextSeq() int {
	return int(atomic.AddInt64(&s.outSeq, 1))
}

func (s *Session) newEvent(event string) dap.Event {
	return dap.Event{
		ProtocolMessage: dap.ProtocolMessage{Seq: s.nextSeq(), Type: "event"},
		Event:           event,
	}
}

func (s *Session) sendEvent(e dap.Message) {
	if err := s.transport.WriteMessage(e); err != nil {
		s.log.V(1).Info("adapter: write event failed", "error", err)
	}
}

func (s *Session) sendResponse(r dap.Message) {
	if err := s.transport.WriteMessage(r); err != nil {
		s.log.V(1).Info("adapter: write response failed", "error", err)
	}
}

func (s *Session) respondError(command string, requestSeq int, err error) {
	er := newErrorResponse(command, requestSeq, err)
	er.Seq = s.nextSeq()
	s.sendResponse(er)
}

// sender exposes the *mi.Transport as a micmd.Sender without importing
// internal/micmd from internal/mi (micmd already depends on mi, not the
// reverse); convenience for handlers in the other adapter files.
func (s *Session) sender() micmd.Sender { return s.mi }

func (s *Session) dispatch(ctx context.Context, msg dap.Message) {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		s.handleInitialize(req)
	case *dap.LaunchRequest:
		s.handleLaunch(ctx, req)
	case *dap.AttachRequest:
		s.handleAttach(ctx, req)
	case *dap.SetBreakpointsRequest:
		s.handleSetBreakpoints(ctx, req)
	case *dap.ConfigurationDoneRequest:
		s.handleConfigurationDone(ctx, req)
	case *dap.ThreadsRequest:
		s.handleThreads(ctx, req)
	case *dap.StackTraceRequest:
		s.handleStackTrace(ctx, req)
	case *dap.ScopesRequest:
		s.handleScopes(ctx, req)
	case *dap.VariablesRequest:
		s.handleVariables(ctx, req)
	case *dap.SetVariableRequest:
		s.handleSetVariable(ctx, req)
	case *dap.EvaluateRequest:
		s.handleEvaluate(ctx, req)
	case *dap.NextRequest:
		s.handleNext(ctx, req)
	case *dap.StepInRequest:
		s.handleStepIn(ctx, req)
	case *dap.StepOutRequest:
		s.handleStepOut(ctx, req)
	case *dap.ContinueRequest:
		s.handleContinue(ctx, req)
	case *dap.PauseRequest:
		s.handlePause(ctx, req)
	case *dap.DisconnectRequest:
		s.handleDisconnect(ctx, req)
	case *dap.TerminateRequest:
		s.handleTerminate(ctx, req)
	default:
		s.log.V(1).Info("adapter: unhandled DAP message", "type", fmt.Sprintf("%T", msg))
	}
}

func (s *Session) handleInitialize(req *dap.InitializeRequest) {
	resp := &dap.InitializeResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "initialize",
			RequestSeq:      req.Seq,
			Success:         true,
		},
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsSetVariable:              true,
			SupportsTerminateRequest:         true,
		},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
	s.sendEvent(&dap.InitializedEvent{Event: s.newEvent("initialized")})
}

func (s *Session) handleConfigurationDone(ctx context.Context, req *dap.ConfigurationDoneRequest) {
	var err error
	if s.launchKind == "attach" {
		err = micmd.ExecContinue(ctx, s.sender(), 0)
	} else {
		err = micmd.ExecRun(ctx, s.sender())
	}
	if err != nil {
		s.respondError("configurationDone", req.Seq, err)
		return
	}
	s.running = true
	resp := &dap.ConfigurationDoneResponse{Response: dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		Command:         "configurationDone",
		RequestSeq:      req.Seq,
		Success:         true,
	}}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

func (s *Session) handleDisconnect(ctx context.Context, req *dap.DisconnectRequest) {
	_ = micmd.GdbExit(ctx, s.sender())
	resp := &dap.DisconnectResponse{Response: dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		Command:         "disconnect",
		RequestSeq:      req.Seq,
		Success:         true,
	}}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
	s.Close()
}

// handleTerminate is treated identically to disconnect: this adapter
// always owns the GDB child process it spawned, so "detach and leave it
// running" is not a meaningful distinction here.
func (s *Session) handleTerminate(ctx context.Context, req *dap.TerminateRequest) {
	_ = micmd.GdbExit(ctx, s.sender())
	resp := &dap.TerminateResponse{Response: dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		Command:         "terminate",
		RequestSeq:      req.Seq,
		Success:         true,
	}}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
	s.Close()
}

func (s *Session) handleNext(ctx context.Context, req *dap.NextRequest) {
	err := micmd.ExecNext(ctx, s.sender(), req.Arguments.ThreadId)
	s.respondSimple("next", req.Seq, err)
}

func (s *Session) handleStepIn(ctx context.Context, req *dap.StepInRequest) {
	err := micmd.ExecStep(ctx, s.sender(), req.Arguments.ThreadId)
	s.respondSimple("stepIn", req.Seq, err)
}

func (s *Session) handleStepOut(ctx context.Context, req *dap.StepOutRequest) {
	err := micmd.ExecFinish(ctx, s.sender(), req.Arguments.ThreadId)
	s.respondSimple("stepOut", req.Seq, err)
}

func (s *Session) handleContinue(ctx context.Context, req *dap.ContinueRequest) {
	err := micmd.ExecContinue(ctx, s.sender(), req.Arguments.ThreadId)
	if err != nil {
		s.respondError("continue", req.Seq, err)
		return
	}
	resp := &dap.ContinueResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "continue",
			RequestSeq:      req.Seq,
			Success:         true,
		},
		Body: dap.ContinueResponseBody{AllThreadsContinued: true},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

// handlePause backs the standard DAP pause capability via -exec-interrupt,
// a command spec.md's inbound list omits by oversight rather than by
// Non-goal (SPEC_FULL.md §4.3).
func (s *Session) handlePause(ctx context.Context, req *dap.PauseRequest) {
	err := micmd.ExecInterrupt(ctx, s.sender(), req.Arguments.ThreadId)
	s.respondSimple("pause", req.Seq, err)
}

func (s *Session) respondSimple(command string, requestSeq int, err error) {
	if err != nil {
		s.respondError(command, requestSeq, err)
		return
	}
	resp := &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		Command:         command,
		RequestSeq:      requestSeq,
		Success:         true,
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}
