package adapter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/go-dap"

	"github.com/tiffon/gdbdap/internal/micmd"
)

// handleSetBreakpoints makes the debugger's breakpoint set for
// args.Source.Path exactly args.Breakpoints, per spec.md §4.5:
//  1. -break-list to enumerate current breakpoints.
//  2. For each existing breakpoint on this file: keep it (report
//     verified with its existing id) if its line is requested, else
//     schedule it for deletion.
//  3. For each requested line with no existing breakpoint, -break-insert.
//  4. Batch-delete the scheduled removals with a single -break-delete.
//
// Matching is by line only: two requested breakpoints on the same line
// collapse, and conditions/hit counts are not modeled.
func (s *Session) handleSetBreakpoints(ctx context.Context, req *dap.SetBreakpointsRequest) {
	args := req.Arguments
	path := args.Source.Path

	existing, err := micmd.BreakList(ctx, s.sender())
	if err != nil {
		s.respondError("setBreakpoints", req.Seq, err)
		return
	}

	requestedLines := make(map[int]bool, len(args.Breakpoints))
	for _, b := range args.Breakpoints {
		requestedLines[b.Line] = true
	}

	keptByLine := make(map[int]micmd.Breakpoint)
	var toDelete []string
	for _, bp := range existing {
		if bp.Fullname != path && bp.File != path {
			continue
		}
		if requestedLines[bp.Line] {
			if _, already := keptByLine[bp.Line]; !already {
				keptByLine[bp.Line] = bp
			} else {
				// A second existing breakpoint collapsed onto an
				// already-kept line is redundant.
				toDelete = append(toDelete, bp.Number)
			}
		} else {
			toDelete = append(toDelete, bp.Number)
		}
	}

	result := make([]dap.Breakpoint, 0, len(args.Breakpoints))
	for _, reqBp := range args.Breakpoints {
		if kept, ok := keptByLine[reqBp.Line]; ok {
			result = append(result, breakpointToDAP(kept, path))
			continue
		}
		created, insErr := micmd.BreakInsert(ctx, s.sender(), fmt.Sprintf("%s:%d", path, reqBp.Line))
		if insErr != nil {
			result = append(result, dap.Breakpoint{Verified: false, Message: insErr.Error(), Line: reqBp.Line})
			continue
		}
		result = append(result, breakpointToDAP(created, path))
		keptByLine[reqBp.Line] = created
	}

	if len(toDelete) > 0 {
		joined := toDelete[0]
		for _, n := range toDelete[1:] {
			joined += " " + n
		}
		if delErr := micmd.BreakDelete(ctx, s.sender(), joined); delErr != nil {
			s.log.V(1).Info("adapter: break-delete failed", "error", delErr)
		}
	}

	resp := &dap.SetBreakpointsResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         "setBreakpoints",
			RequestSeq:      req.Seq,
			Success:         true,
		},
		Body: dap.SetBreakpointsResponseBody{Breakpoints: result},
	}
	resp.Seq = s.nextSeq()
	s.sendResponse(resp)
}

func breakpointToDAP(bp micmd.Breakpoint, path string) dap.Breakpoint {
	id, _ := strconv.Atoi(bp.Number)
	return dap.Breakpoint{
		Id:       id,
		Verified: true,
		Line:     bp.Line,
		Source:   &dap.Source{Path: path},
	}
}
