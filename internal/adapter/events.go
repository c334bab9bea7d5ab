package adapter

import (
	"io"
	"strconv"

	"github.com/google/go-dap"

	"github.com/tiffon/gdbdap/internal/mi"
)

// handleAsync translates one MI async record into the matching DAP
// event, per spec.md §4.5's async event translation table. Every
// "stopped" record mints a fresh handle generation before the DAP
// stopped event is emitted, so any handle a client holds from before
// this stop is rejected by absence rather than by an explicit check.
func (s *Session) handleAsync(am asyncMsg) {
	if am.nature != mi.NatureExec {
		return
	}

	switch am.class {
	case "stopped":
		s.handles.Reset()

		reason, _ := fieldString(am.fields, "reason")
		threadID := fieldInt(am.fields, "thread-id")

		switch reason {
		case "exited-normally":
			s.sendEvent(&dap.TerminatedEvent{Event: s.newEvent("terminated")})
		case "breakpoint-hit":
			s.sendEvent(&dap.StoppedEvent{
				Event: s.newEvent("stopped"),
				Body:  dap.StoppedEventBody{Reason: "breakpoint", ThreadId: threadID},
			})
		case "end-stepping-range":
			s.sendEvent(&dap.StoppedEvent{
				Event: s.newEvent("stopped"),
				Body:  dap.StoppedEventBody{Reason: "step", ThreadId: threadID},
			})
		default:
			s.log.V(1).Info("adapter: dropping unhandled stop reason", "reason", reason)
		}

	case "running":
		// DAP does not require a corresponding event here.

	default:
		s.log.V(1).Info("adapter: dropping unhandled async class", "class", am.class)
	}
}

// handleConsole relays a console/target/log stream record as a DAP
// output event, per spec.md §4.5: console/target map to "stdout", log to
// "stderr".
func (s *Session) handleConsole(cm consoleMsg) {
	category := "stdout"
	if cm.category == mi.CategoryStderr {
		category = "stderr"
	}
	if s.logWriter != nil {
		_, _ = io.WriteString(s.logWriter, cm.text+"\n")
	}
	s.sendEvent(&dap.OutputEvent{
		Event: s.newEvent("output"),
		Body:  dap.OutputEventBody{Category: category, Output: cm.text},
	})
}

func fieldString(fields map[string]mi.Value, name string) (string, bool) {
	v, ok := fields[name]
	if !ok || v.Kind != mi.KindString {
		return "", false
	}
	return v.Str, true
}

func fieldInt(fields map[string]mi.Value, name string) int {
	s, _ := fieldString(fields, name)
	n, _ := strconv.Atoi(s)
	return n
}
