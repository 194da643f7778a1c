// Package launcher starts child processes with a prepared stream set
// installed into the conventional stdin/stdout/stderr slots of the child
// image.
package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/JobsSteve/openvpn-adapter/internal/stdio"
)

// Spec describes a child process to start.
type Spec struct {
	Path string   // Executable name or path (bare names resolve via PATH)
	Args []string // Arguments, not including argv[0]
	Dir  string   // Working directory (empty = current)
	Env  []string // Environment (nil = inherit)

	// Streams is the remote side of a redirection session. Ownership
	// transfers to the launcher on Start: the descriptors are installed
	// into the child image and the parent copies are closed. Nil slots
	// inherit the launcher's own standard streams.
	Streams *stdio.Streams
}

// Status describes a finished child.
type Status struct {
	ExitCode int
	Success  bool
}

// Launcher starts child processes.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/launcher.go . Launcher
type Launcher interface {
	// Start spawns the child described by spec and returns a handle to it.
	// The remote stream set, when present, is consumed regardless of the
	// outcome.
	Start(ctx context.Context, spec Spec) (*Process, error)

	// LookPath searches for an executable in PATH.
	LookPath(name string) (string, error)
}

type launcher struct{}

// New returns a Launcher backed by fork/exec.
func New() Launcher {
	return &launcher{}
}

func (l *launcher) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (l *launcher) Start(ctx context.Context, spec Spec) (*Process, error) {
	if err := ctx.Err(); err != nil {
		closeRemote(spec.Streams)
		return nil, err
	}

	path := spec.Path
	if !strings.ContainsRune(path, os.PathSeparator) {
		resolved, err := exec.LookPath(path)
		if err != nil {
			closeRemote(spec.Streams)
			return nil, fmt.Errorf("look up %s: %w", path, err)
		}
		path = resolved
	}

	env := spec.Env
	if env == nil {
		env = os.Environ()
	}

	files := childFiles(spec.Streams)
	argv := append([]string{path}, spec.Args...)

	pid, _, err := syscall.StartProcess(path, argv, &syscall.ProcAttr{
		Dir:   spec.Dir,
		Env:   env,
		Files: files,
	})
	// The child image holds working duplicates of the remote descriptors
	// now; the parent copies must close so pipe readers can see EOF.
	closeRemote(spec.Streams)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("find process %d: %w", pid, err)
	}
	return &Process{proc: proc}, nil
}

// childFiles maps the remote stream set onto the child's slots 0..2,
// falling back to the launcher's own streams for undefined slots.
func childFiles(s *stdio.Streams) []uintptr {
	files := []uintptr{0, 1, 2}
	if s == nil {
		return files
	}
	for i, fd := range s.Slots() {
		if fd >= 0 {
			files[i] = uintptr(fd)
		}
	}
	return files
}

func closeRemote(s *stdio.Streams) {
	if s != nil {
		s.Close()
	}
}

// Process is a handle to a started child.
type Process struct {
	proc *os.Process
}

// PID returns the child's process ID.
func (p *Process) PID() int {
	return p.proc.Pid
}

// Wait blocks until the child exits.
func (p *Process) Wait() (Status, error) {
	state, err := p.proc.Wait()
	if err != nil {
		return Status{ExitCode: -1}, fmt.Errorf("wait: %w", err)
	}
	return Status{ExitCode: state.ExitCode(), Success: state.Success()}, nil
}

// Signal sends sig to the child.
func (p *Process) Signal(sig os.Signal) error {
	return p.proc.Signal(sig)
}

// Kill forcibly terminates the child.
func (p *Process) Kill() error {
	return p.proc.Kill()
}
