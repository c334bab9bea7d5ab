package adapter

import (
	"errors"
	"fmt"

	"github.com/google/go-dap"

	"github.com/tiffon/gdbdap/internal/mi"
)

// Kind discriminates the DAP-facing error categories spec.md §7 assigns
// above the MI layer. StaleHandle is deliberately not surfaced as a DAP
// error response: a request citing a handle from a previous generation
// gets an empty/default response instead, matching what DAP clients
// already expect when they race a stop event.
type Kind int

const (
	KindInvalidArgs Kind = iota
	KindStaleHandle
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgs:
		return "invalid-args"
	case KindStaleHandle:
		return "stale-handle"
	default:
		return "unknown"
	}
}

// Error is the adapter layer's error type, paralleling internal/mi.Error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("adapter: %s: %s", e.Kind, e.Message) }

func invalidArgsf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidArgs, Message: fmt.Sprintf(format, args...)}
}

// IsStale reports whether err (or something it wraps) is a StaleHandle
// error, per spec.md §7: handlers that see this should return an
// empty/default body rather than an error response.
func IsStale(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindStaleHandle
}

var errStaleHandle = &Error{Kind: KindStaleHandle, Message: "handle not present in current generation"}

// errorMessage extracts a DAP-appropriate error string from err, per
// spec.md §7's propagation rule: GdbError and Protocol surface as DAP
// error responses carrying the underlying message.
func errorMessage(err error) string {
	var miErr *mi.Error
	if errors.As(err, &miErr) {
		return miErr.Message
	}
	var adErr *Error
	if errors.As(err, &adErr) {
		return adErr.Message
	}
	return err.Error()
}

// newErrorResponse builds a DAP error response for the given request,
// per spec.md §6's "adapter responds to failed DAP requests with a DAP
// error response carrying the exception message; it does not terminate
// the process on request failure."
func newErrorResponse(command string, requestSeq int, err error) *dap.ErrorResponse {
	msg := errorMessage(err)
	return &dap.ErrorResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Type: "response"},
			Command:         command,
			RequestSeq:      requestSeq,
			Success:         false,
			Message:         msg,
		},
		Body: dap.ErrorResponseBody{
			Error: &dap.ErrorMessage{
				Id:       0,
				Format:   msg,
				ShowUser: true,
			},
		},
	}
}
