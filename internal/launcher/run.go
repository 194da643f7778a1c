package launcher

import (
	"context"

	"github.com/JobsSteve/openvpn-adapter/internal/stdio"
)

// RunOptions configures a run-to-completion exchange with a child process.
type RunOptions struct {
	Path string
	Args []string
	Dir  string
	Env  []string

	// Input is written to the child's stdin; closing the pipe after the
	// last byte signals end-of-input.
	Input []byte

	// CombineOutErr sends the child's stderr to the stdout capture.
	CombineOutErr bool

	// DisableStdin connects the child's stdin to the null device instead
	// of a pipe; Input is ignored.
	DisableStdin bool
}

// RunResult carries the captured streams and exit status of a finished run.
type RunResult struct {
	Output []byte
	Errout []byte
	Status Status
}

// Run starts the child connected through a pipe redirect, performs one
// transaction (feed Input, drain stdout/stderr to completion), waits for
// the child to exit, and returns the captured bytes with the exit status.
//
// The transaction itself has no timeout and is not cancelable; ctx only
// gates the start of the child.
func Run(ctx context.Context, l Launcher, opts RunOptions) (*RunResult, error) {
	var remote stdio.Streams
	pipe, err := stdio.NewPipe(&remote, opts.CombineOutErr, !opts.DisableStdin)
	if err != nil {
		return nil, err
	}

	proc, err := l.Start(ctx, Spec{
		Path:    opts.Path,
		Args:    opts.Args,
		Dir:     opts.Dir,
		Env:     opts.Env,
		Streams: &remote,
	})
	if err != nil {
		pipe.Close()
		return nil, err
	}

	var input []byte
	if !opts.DisableStdin {
		input = opts.Input
	}
	res := pipe.Transact(input)

	status, err := proc.Wait()
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Output: res.Output,
		Errout: res.Errout,
		Status: status,
	}, nil
}
