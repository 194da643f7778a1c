package stdio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// TempRedirect captures the child's stdout (and optionally stderr) into
// freshly created temp files, readable back after the child exits.
type TempRedirect struct {
	Streams
	outPath string
	errPath string
}

// NewTemp redirects stdout to a new temp file, with stdin read from inPath
// (skipped when empty). When combineOutErr is set, stderr shares the stdout
// file at install time.
func NewTemp(inPath string, combineOutErr bool) (*TempRedirect, error) {
	t := &TempRedirect{}
	if err := t.init(inPath); err != nil {
		return nil, err
	}

	fd, path, err := createTemp("out")
	if err != nil {
		t.Close()
		return nil, err
	}
	t.Out.Reset(fd)
	t.outPath = path
	t.CombineOutErr = combineOutErr

	return t, nil
}

// NewTempSplit redirects stdout and stderr to separate temp files, with
// stdin read from inPath (skipped when empty).
func NewTempSplit(inPath string) (*TempRedirect, error) {
	t := &TempRedirect{}
	if err := t.init(inPath); err != nil {
		return nil, err
	}

	fd, path, err := createTemp("out")
	if err != nil {
		t.Close()
		return nil, err
	}
	t.Out.Reset(fd)
	t.outPath = path

	fd, path, err = createTemp("err")
	if err != nil {
		t.Close()
		_ = os.Remove(t.outPath)
		return nil, err
	}
	t.Err.Reset(fd)
	t.errPath = path

	return t, nil
}

func (t *TempRedirect) init(inPath string) error {
	if inPath == "" {
		return nil
	}
	fd, err := openInput(inPath)
	if err != nil {
		return err
	}
	t.In.Reset(fd)
	return nil
}

// Output reads back the bytes captured on the stdout temp file.
func (t *TempRedirect) Output() ([]byte, error) {
	return os.ReadFile(t.outPath)
}

// Errout reads back the bytes captured on the stderr temp file. Returns nil
// when stderr was not separately captured.
func (t *TempRedirect) Errout() ([]byte, error) {
	if t.errPath == "" {
		return nil, nil
	}
	return os.ReadFile(t.errPath)
}

// Remove unlinks the temp files. Missing files are not an error.
func (t *TempRedirect) Remove() error {
	for _, path := range []string{t.outPath, t.errPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove temp file: %w", err)
		}
	}
	return nil
}

// createTemp creates a temp file and hands its descriptor over, duplicating
// it so the handle outlives the *os.File and its finalizer.
func createTemp(kind string) (int, string, error) {
	f, err := os.CreateTemp("", "ovpn-"+kind+"-*")
	if err != nil {
		return -1, "", fmt.Errorf("%w temp %s file: %v", ErrOpen, kind, err)
	}
	fd, err := unix.Dup(int(f.Fd()))
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(f.Name())
		return -1, "", fmt.Errorf("%w temp %s file: %v", ErrOpen, kind, err)
	}
	if closeErr != nil {
		_ = unix.Close(fd)
		_ = os.Remove(f.Name())
		return -1, "", fmt.Errorf("%w temp %s file: %v", ErrOpen, kind, closeErr)
	}
	return fd, f.Name(), nil
}
