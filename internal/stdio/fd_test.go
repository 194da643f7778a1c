package stdio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newRawPipe allocates a real descriptor pair for ownership tests.
func newRawPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	return p[0], p[1]
}

// fdOpen reports whether fd is still a valid open descriptor.
func fdOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

func TestFDZeroValue(t *testing.T) {
	var f FD
	assert.False(t, f.Defined())
	assert.Equal(t, -1, f.Raw())
	assert.Equal(t, -1, f.Release())
	f.Close() // no-op on an undefined handle
}

func TestFDResetTakesOwnership(t *testing.T) {
	r, w := newRawPipe(t)
	defer unix.Close(w)

	var f FD
	f.Reset(r)
	require.True(t, f.Defined())
	assert.Equal(t, r, f.Raw())

	f.Close()
	assert.False(t, f.Defined())
	assert.False(t, fdOpen(r), "descriptor should be closed")
}

func TestFDResetClosesPrevious(t *testing.T) {
	r1, w1 := newRawPipe(t)
	r2, w2 := newRawPipe(t)
	defer unix.Close(w1)
	defer unix.Close(w2)

	var f FD
	f.Reset(r1)
	f.Reset(r2)

	assert.False(t, fdOpen(r1), "previous descriptor should be closed on reset")
	assert.True(t, fdOpen(r2))
	f.Close()
}

func TestFDReleaseTransfersOwnership(t *testing.T) {
	r, w := newRawPipe(t)
	defer unix.Close(w)

	var f FD
	f.Reset(r)

	got := f.Release()
	assert.Equal(t, r, got)
	assert.False(t, f.Defined())

	// Neither Close nor a later reset may touch the released descriptor.
	f.Close()
	assert.True(t, fdOpen(r), "released descriptor must stay open")
	require.NoError(t, unix.Close(r))
}

func TestFDCloseIdempotent(t *testing.T) {
	r, w := newRawPipe(t)
	defer unix.Close(w)

	var f FD
	f.Reset(r)
	f.Close()
	f.Close()
	f.Close()
	assert.False(t, f.Defined())
}

func TestNewFD(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		r, w := newRawPipe(t)
		defer unix.Close(w)

		f := NewFD(r)
		assert.True(t, f.Defined())
		f.Close()
	})

	t.Run("negative descriptor", func(t *testing.T) {
		f := NewFD(-1)
		assert.False(t, f.Defined())
	})
}
