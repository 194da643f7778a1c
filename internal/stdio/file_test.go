package stdio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNewFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("opens input and output", func(t *testing.T) {
		inPath := filepath.Join(dir, "in")
		outPath := filepath.Join(dir, "out")
		require.NoError(t, os.WriteFile(inPath, []byte("abc"), 0o600))

		f, err := NewFile(inPath, outPath, FlagsOverwrite, ModeUser, false)
		require.NoError(t, err)
		defer f.Close()

		assert.True(t, f.In.Defined())
		assert.True(t, f.Out.Defined())
		assert.False(t, f.Err.Defined())
		assert.False(t, f.CombineOutErr)

		var buf [8]byte
		n, err := unix.Read(f.In.Raw(), buf[:])
		require.NoError(t, err)
		assert.Equal(t, "abc", string(buf[:n]))
	})

	t.Run("empty input path skips stdin", func(t *testing.T) {
		f, err := NewFile("", filepath.Join(dir, "out2"), FlagsOverwrite, ModeUser, true)
		require.NoError(t, err)
		defer f.Close()

		assert.False(t, f.In.Defined())
		assert.True(t, f.CombineOutErr)
	})

	t.Run("missing input fails with ErrOpen", func(t *testing.T) {
		_, err := NewFile(filepath.Join(dir, "nope"), filepath.Join(dir, "out3"), FlagsOverwrite, ModeUser, false)
		require.ErrorIs(t, err, ErrOpen)
	})

	t.Run("must-not-exist refuses existing output", func(t *testing.T) {
		outPath := filepath.Join(dir, "exists")
		require.NoError(t, os.WriteFile(outPath, []byte("x"), 0o600))

		_, err := NewFile("", outPath, FlagsMustNotExist, ModeUser, false)
		require.ErrorIs(t, err, ErrOpen)
	})

	t.Run("append preserves prior content", func(t *testing.T) {
		outPath := filepath.Join(dir, "log")
		require.NoError(t, os.WriteFile(outPath, []byte("old\n"), 0o600))

		f, err := NewFile("", outPath, FlagsAppend, ModeUser, false)
		require.NoError(t, err)

		_, err = unix.Write(f.Out.Raw(), []byte("new\n"))
		require.NoError(t, err)
		f.Close()

		got, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.Equal(t, "old\nnew\n", string(got))
	})
}

func TestNewTemp(t *testing.T) {
	f, err := NewTemp("", true)
	require.NoError(t, err)
	defer f.Remove()

	require.True(t, f.Out.Defined())
	assert.False(t, f.Err.Defined())
	assert.True(t, f.CombineOutErr)

	_, err = unix.Write(f.Out.Raw(), []byte("captured"))
	require.NoError(t, err)
	f.Close()

	got, err := f.Output()
	require.NoError(t, err)
	assert.Equal(t, "captured", string(got))

	errOut, err := f.Errout()
	require.NoError(t, err)
	assert.Nil(t, errOut)
}

func TestNewTempSplit(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, []byte("stdin"), 0o600))

	f, err := NewTempSplit(inPath)
	require.NoError(t, err)
	defer f.Remove()

	require.True(t, f.In.Defined())
	require.True(t, f.Out.Defined())
	require.True(t, f.Err.Defined())

	_, err = unix.Write(f.Out.Raw(), []byte("out"))
	require.NoError(t, err)
	_, err = unix.Write(f.Err.Raw(), []byte("err"))
	require.NoError(t, err)
	f.Close()

	got, err := f.Output()
	require.NoError(t, err)
	assert.Equal(t, "out", string(got))

	errOut, err := f.Errout()
	require.NoError(t, err)
	assert.Equal(t, "err", string(errOut))
}

func TestTempRemove(t *testing.T) {
	f, err := NewTempSplit("")
	require.NoError(t, err)
	f.Close()

	require.NoError(t, f.Remove())
	_, err = f.Output()
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	require.NoError(t, f.Remove())
}
