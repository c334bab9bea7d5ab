package mi

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/tiffon/gdbdap/internal/process"
)

// fakeGdb is a tiny shell "debugger" that echoes back the numeric token
// prefix of each command it reads, followed by a fixed result class, then
// the "(gdb)" prompt -- enough to exercise Transport's token correlation
// without a real GDB binary.
const fakeGdbScript = `
while IFS= read -r line; do
  tok=$(printf '%s' "$line" | grep -o '^[0-9]*')
  case "$line" in
    *break-insert*) echo "${tok}^done,bkpt={number=\"1\",line=\"33\"}" ;;
    *bad-command*) echo "${tok}^error,msg=\"unknown command\"" ;;
    *) echo "${tok}^done" ;;
  esac
  echo "(gdb) "
done
`

func newFakeTransport(t *testing.T) *Transport {
	t.Helper()
	proc := process.New(logr.Discard(), "sh", "-c", fakeGdbScript)
	tr := NewTransport(logr.Discard(), proc)
	require.NoError(t, tr.Start(context.Background()))
	return tr
}

func TestTransportSendCorrelatesByToken(t *testing.T) {
	tr := newFakeTransport(t)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := tr.Send(ctx, "-break-insert vars.c:33")
	require.NoError(t, err)
	require.Equal(t, "done", res.Class)
	bkpt, ok := res.Fields["bkpt"]
	require.True(t, ok)
	require.Equal(t, "1", bkpt.Tuple["number"].Str)
}

func TestTransportConcurrentSendsDoNotCrossComplete(t *testing.T) {
	tr := newFakeTransport(t)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type out struct {
		res Result
		err error
	}
	n := 10
	results := make(chan out, n)
	for i := 0; i < n; i++ {
		go func() {
			res, err := tr.Send(ctx, "-exec-next")
			results <- out{res, err}
		}()
	}
	for i := 0; i < n; i++ {
		o := <-results
		require.NoError(t, o.err)
		require.Equal(t, "done", o.res.Class)
	}
}

func TestTransportGdbErrorResult(t *testing.T) {
	tr := newFakeTransport(t)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := tr.Send(ctx, "-bad-command")
	require.Error(t, err)
	var miErr *Error
	require.ErrorAs(t, err, &miErr)
	require.Equal(t, KindGdbError, miErr.Kind)
}

func TestTransportSendAfterCloseFails(t *testing.T) {
	tr := newFakeTransport(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Prime the transport with one round trip, then close it and confirm
	// a subsequent Send fails immediately with TransportClosed.
	_, err := tr.Send(ctx, "-exec-next")
	require.NoError(t, err)

	tr.Close()

	_, err = tr.Send(context.Background(), "-exec-next")
	require.Error(t, err)
	var miErr *Error
	require.ErrorAs(t, err, &miErr)
	require.Equal(t, KindTransportClosed, miErr.Kind)
}
