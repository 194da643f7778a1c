package stdio

import (
	"bytes"
	"math/rand"
	"os"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spawnShell starts `sh -c script` with the remote stream set installed
// into its conventional slots, then closes the remote ends in the parent so
// the readers can observe end-of-stream.
func spawnShell(t *testing.T, remote *Streams, script string) *os.Process {
	t.Helper()

	sh, err := exec.LookPath("sh")
	require.NoError(t, err)

	slots := remote.Slots()
	files := make([]uintptr, 3)
	for i, fd := range slots {
		if fd < 0 {
			fd = i // inherit the parent's own descriptor
		}
		files[i] = uintptr(fd)
	}

	pid, _, err := syscall.StartProcess(sh, []string{"sh", "-c", script}, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: files,
	})
	remote.Close()
	require.NoError(t, err)

	proc, err := os.FindProcess(pid)
	require.NoError(t, err)
	return proc
}

func wait(t *testing.T, proc *os.Process) {
	t.Helper()
	_, err := proc.Wait()
	require.NoError(t, err)
}

func TestTransactEcho(t *testing.T) {
	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.NoError(t, err)

	proc := spawnShell(t, &remote, "cat")
	res := p.Transact([]byte("hello"))
	wait(t, proc)

	assert.Equal(t, "hello", string(res.Output))
	assert.Empty(t, res.Errout)
}

func TestTransactLargePayload(t *testing.T) {
	// Larger than any OS pipe buffer: forces interleaved chunked writes
	// and reads, the case that deadlocks a naive write-then-read design.
	payload := make([]byte, 1<<20)
	rng := rand.New(rand.NewSource(1))
	for i := range payload {
		payload[i] = byte('a' + rng.Intn(26))
	}

	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.NoError(t, err)

	proc := spawnShell(t, &remote, "cat")
	res := p.Transact(payload)
	wait(t, proc)

	require.Len(t, res.Output, len(payload))
	assert.True(t, bytes.Equal(payload, res.Output))
	assert.Empty(t, res.Errout)
}

func TestTransactSplitStreams(t *testing.T) {
	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.NoError(t, err)

	proc := spawnShell(t, &remote, "cat; echo oops >&2")
	res := p.Transact([]byte("payload"))
	wait(t, proc)

	assert.Equal(t, "payload", string(res.Output))
	assert.Equal(t, "oops\n", string(res.Errout))
}

func TestTransactCombined(t *testing.T) {
	var remote Streams
	p, err := NewPipe(&remote, true, true)
	require.NoError(t, err)

	proc := spawnShell(t, &remote, "echo out; echo err >&2")
	res := p.Transact(nil)
	wait(t, proc)

	assert.Contains(t, string(res.Output), "out\n")
	assert.Contains(t, string(res.Output), "err\n")
	assert.Empty(t, res.Errout, "error accumulator stays empty in combined mode")
}

func TestTransactStdinDisabled(t *testing.T) {
	var remote Streams
	p, err := NewPipe(&remote, true, false)
	require.NoError(t, err)

	proc := spawnShell(t, &remote, "echo ready")
	res := p.Transact(nil)
	wait(t, proc)

	assert.Equal(t, "ready\n", string(res.Output))
}

func TestTransactNullStdinYieldsEOF(t *testing.T) {
	var remote Streams
	p, err := NewPipe(&remote, true, false)
	require.NoError(t, err)

	// cat sees immediate end-of-stream from the null device.
	proc := spawnShell(t, &remote, "cat; echo done")
	res := p.Transact(nil)
	wait(t, proc)

	assert.Equal(t, "done\n", string(res.Output))
}

func TestTransactChildExitsWithoutReading(t *testing.T) {
	payload := make([]byte, 1<<20)

	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.NoError(t, err)

	// The child closes its pipes immediately; the resulting broken pipe is
	// normal stream termination, not a failure.
	proc := spawnShell(t, &remote, "exit 0")
	res := p.Transact(payload)
	wait(t, proc)

	assert.Empty(t, res.Output)
	assert.Empty(t, res.Errout)
}

func TestTransactConsumesParentHandles(t *testing.T) {
	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.NoError(t, err)

	proc := spawnShell(t, &remote, "cat")
	p.Transact([]byte("x"))
	wait(t, proc)

	// The loop owns and tears down every registered descriptor; the
	// redirect is not reusable afterwards.
	assert.False(t, p.In.Defined())
	assert.False(t, p.Out.Defined())
	assert.False(t, p.Err.Defined())
}
