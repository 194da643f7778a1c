package stdio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Error kinds raised while constructing a redirection. All are fatal to the
// construction attempt; callers must build a fresh redirection to retry.
var (
	// ErrCreatePipe indicates pipe allocation failed.
	ErrCreatePipe = errors.New("create pipe")

	// ErrOpen indicates opening a file or the null device failed.
	ErrOpen = errors.New("open")

	// ErrCloexec indicates marking a descriptor close-on-exec failed.
	ErrCloexec = errors.New("set close-on-exec")
)

const devNull = "/dev/null"

// OS entry points, replaceable in tests to simulate allocation failures.
var (
	pipeFn    = unix.Pipe
	openFn    = unix.Open
	cloexecFn = func(fd int) error {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
		return err
	}
)

// makePipe returns a connected read/write descriptor pair. On failure no
// descriptors are left allocated.
func makePipe() (r, w int, err error) {
	var p [2]int
	if err := pipeFn(p[:]); err != nil {
		return -1, -1, fmt.Errorf("%w: %v", ErrCreatePipe, err)
	}
	return p[0], p[1], nil
}

// markCloseOnExec keeps fd from being inherited across an exec. Every
// descriptor the parent retains across a transaction must be marked, so it
// does not leak into subsequent, unrelated child processes.
func markCloseOnExec(fd int) error {
	if err := cloexecFn(fd); err != nil {
		return fmt.Errorf("%w: %v", ErrCloexec, err)
	}
	return nil
}

// PipeRedirect holds the parent side of a pipe-backed redirection session.
// The embedded Streams carry the parent ends: In is the write end of the
// child's stdin pipe, Out and Err are the read ends of the child's output
// pipes. The parent ends are consumed by a single Transact call; a redirect
// is not reusable once its streams have closed.
type PipeRedirect struct {
	Streams
}

// NewPipe builds a connected pair of stream sets: the returned parent side
// and the remote side for the child image. remote is reset in place.
//
// A pipe is created for stdout (parent keeps the read end) and, unless
// combineOutErr is set, a second one for stderr. When combineOutErr is set
// the remote error handle stays undefined and resolves to the output
// destination at install time. When enableIn is set a third pipe feeds the
// child's stdin (parent keeps the write end); otherwise the remote stdin is
// opened on the null device and no input pipe exists. All parent-retained
// ends are marked close-on-exec.
//
// On failure every descriptor allocated by earlier steps, on both sides, is
// closed before the error (ErrCreatePipe, ErrOpen or ErrCloexec) is
// returned.
func NewPipe(remote *Streams, combineOutErr, enableIn bool) (*PipeRedirect, error) {
	p := &PipeRedirect{}
	fail := func(err error) (*PipeRedirect, error) {
		p.Close()
		remote.Close()
		return nil, err
	}

	// stdout: parent reads, remote writes
	r, w, err := makePipe()
	if err != nil {
		return fail(err)
	}
	p.Out.Reset(r)
	remote.Out.Reset(w)
	if err := markCloseOnExec(r); err != nil {
		return fail(err)
	}

	// stderr
	p.CombineOutErr = combineOutErr
	remote.CombineOutErr = combineOutErr
	if !combineOutErr {
		r, w, err = makePipe()
		if err != nil {
			return fail(err)
		}
		p.Err.Reset(r)
		remote.Err.Reset(w)
		if err := markCloseOnExec(r); err != nil {
			return fail(err)
		}
	}

	// stdin: pipe when enabled, null device otherwise
	if enableIn {
		r, w, err = makePipe()
		if err != nil {
			return fail(err)
		}
		p.In.Reset(w)
		remote.In.Reset(r)
		if err := markCloseOnExec(w); err != nil {
			return fail(err)
		}
	} else {
		fd, err := openFn(devNull, unix.O_RDONLY, 0)
		if err != nil {
			return fail(fmt.Errorf("%w %s: %v", ErrOpen, devNull, err))
		}
		remote.In.Reset(fd)
	}

	return p, nil
}
