package stdio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// countingPipe wraps the real pipe call, recording every descriptor it
// hands out and optionally failing the nth allocation.
type countingPipe struct {
	calls   int
	failOn  int
	created []int
}

func (c *countingPipe) pipe(p []int) error {
	c.calls++
	if c.failOn != 0 && c.calls == c.failOn {
		return unix.EMFILE
	}
	if err := unix.Pipe(p); err != nil {
		return err
	}
	c.created = append(c.created, p[0], p[1])
	return nil
}

func (c *countingPipe) install(t *testing.T) {
	t.Helper()
	pipeFn = c.pipe
	t.Cleanup(func() { pipeFn = unix.Pipe })
}

func hasCloexec(t *testing.T, fd int) bool {
	t.Helper()
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	require.NoError(t, err)
	return flags&unix.FD_CLOEXEC != 0
}

func TestNewPipeSplit(t *testing.T) {
	cp := &countingPipe{}
	cp.install(t)

	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.NoError(t, err)
	defer p.Close()
	defer remote.Close()

	assert.Equal(t, 3, cp.calls, "split mode with stdin needs three pipes")

	require.True(t, p.Out.Defined())
	require.True(t, p.Err.Defined())
	require.True(t, p.In.Defined())
	require.True(t, remote.Out.Defined())
	require.True(t, remote.Err.Defined())
	require.True(t, remote.In.Defined())

	// Parent-retained ends must not leak across unrelated execs.
	assert.True(t, hasCloexec(t, p.Out.Raw()))
	assert.True(t, hasCloexec(t, p.Err.Raw()))
	assert.True(t, hasCloexec(t, p.In.Raw()))

	assert.False(t, p.CombineOutErr)
	assert.False(t, remote.CombineOutErr)
}

func TestNewPipeCombined(t *testing.T) {
	cp := &countingPipe{}
	cp.install(t)

	var remote Streams
	p, err := NewPipe(&remote, true, true)
	require.NoError(t, err)
	defer p.Close()
	defer remote.Close()

	assert.Equal(t, 2, cp.calls, "combined mode creates only stdout and stdin pipes")
	assert.False(t, p.Err.Defined(), "parent error handle stays undefined")
	assert.False(t, remote.Err.Defined(), "remote error resolves to output at install time")
	assert.True(t, p.CombineOutErr)
	assert.True(t, remote.CombineOutErr)
}

func TestNewPipeStdinDisabled(t *testing.T) {
	cp := &countingPipe{}
	cp.install(t)

	var remote Streams
	p, err := NewPipe(&remote, true, false)
	require.NoError(t, err)
	defer p.Close()
	defer remote.Close()

	assert.Equal(t, 1, cp.calls, "no input pipe when stdin is disabled")
	assert.False(t, p.In.Defined())
	require.True(t, remote.In.Defined())

	// The null device yields end-of-stream immediately.
	var buf [8]byte
	n, err := unix.Read(remote.In.Raw(), buf[:])
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewPipeDisjointSessions(t *testing.T) {
	var remoteA, remoteB Streams
	a, err := NewPipe(&remoteA, false, true)
	require.NoError(t, err)
	defer a.Close()
	defer remoteA.Close()

	b, err := NewPipe(&remoteB, false, true)
	require.NoError(t, err)
	defer b.Close()
	defer remoteB.Close()

	seen := make(map[int]bool)
	for _, s := range []*Streams{&a.Streams, &remoteA, &b.Streams, &remoteB} {
		for _, h := range []*FD{&s.In, &s.Out, &s.Err} {
			if !h.Defined() {
				continue
			}
			assert.False(t, seen[h.Raw()], "descriptor %d shared across sessions", h.Raw())
			seen[h.Raw()] = true
		}
	}
	assert.Len(t, seen, 12)
}

func TestNewPipeSecondPipeFailure(t *testing.T) {
	cp := &countingPipe{failOn: 2}
	cp.install(t)

	var remote Streams
	p, err := NewPipe(&remote, false, true)
	require.ErrorIs(t, err, ErrCreatePipe)
	assert.Nil(t, p)

	// The first pipe's descriptors must both be closed before the error
	// surfaces.
	require.Len(t, cp.created, 2)
	for _, fd := range cp.created {
		assert.False(t, fdOpen(fd), "descriptor %d leaked", fd)
	}
	assert.False(t, remote.Out.Defined())
	assert.False(t, remote.In.Defined())
}

func TestNewPipeCloexecFailure(t *testing.T) {
	cp := &countingPipe{}
	cp.install(t)
	cloexecSaved := cloexecFn
	cloexecFn = func(int) error { return unix.EBADF }
	t.Cleanup(func() { cloexecFn = cloexecSaved })

	var remote Streams
	_, err := NewPipe(&remote, false, true)
	require.ErrorIs(t, err, ErrCloexec)

	for _, fd := range cp.created {
		assert.False(t, fdOpen(fd), "descriptor %d leaked", fd)
	}
}

func TestNewPipeNullDeviceFailure(t *testing.T) {
	cp := &countingPipe{}
	cp.install(t)
	openSaved := openFn
	openFn = func(string, int, uint32) (int, error) { return -1, unix.EACCES }
	t.Cleanup(func() { openFn = openSaved })

	var remote Streams
	_, err := NewPipe(&remote, true, false)
	require.ErrorIs(t, err, ErrOpen)

	for _, fd := range cp.created {
		assert.False(t, fdOpen(fd), "descriptor %d leaked", fd)
	}
}
