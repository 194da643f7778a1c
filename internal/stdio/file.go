package stdio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Flag shortcuts for opening the output file.
const (
	FlagsOverwrite    = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	FlagsAppend       = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	FlagsMustNotExist = os.O_CREATE | os.O_WRONLY | os.O_EXCL
)

// Mode shortcuts for creating the output file.
const (
	ModeAll       os.FileMode = 0o777
	ModeUserGroup os.FileMode = 0o660
	ModeUser      os.FileMode = 0o600
)

// FileRedirect redirects the standard streams to regular files: stdin from
// an input path, stdout (and optionally stderr) to an output path.
type FileRedirect struct {
	Streams
}

// NewFile opens inPath read-only for stdin (skipped when empty) and outPath
// for stdout with the given flags and mode. When combineOutErr is set,
// stderr resolves to the output file at install time. Open failures return
// ErrOpen; on failure no descriptors are left allocated.
func NewFile(inPath, outPath string, flags int, mode os.FileMode, combineOutErr bool) (*FileRedirect, error) {
	f := &FileRedirect{}
	if inPath != "" {
		fd, err := openInput(inPath)
		if err != nil {
			return nil, err
		}
		f.In.Reset(fd)
	}

	fd, err := openOutput(outPath, flags, mode)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.Out.Reset(fd)
	f.CombineOutErr = combineOutErr

	return f, nil
}

// openInput opens a file read-only for the input stream.
func openInput(path string) (int, error) {
	fd, err := openFn(path, unix.O_RDONLY, 0)
	if err != nil {
		return -1, fmt.Errorf("%w input file %s: %v", ErrOpen, path, err)
	}
	return fd, nil
}

// openOutput opens a file for the output/error streams.
func openOutput(path string, flags int, mode os.FileMode) (int, error) {
	fd, err := openFn(path, flags, uint32(mode.Perm()))
	if err != nil {
		return -1, fmt.Errorf("%w output file %s: %v", ErrOpen, path, err)
	}
	return fd, nil
}
