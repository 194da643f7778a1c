// Package stdio manages OS-level standard-stream redirection for child
// processes.
//
// A redirection session is described by a Streams triple (stdin, stdout,
// stderr) of exclusively-owned file descriptors. The package provides three
// ways to build one:
//
//   - NewFile: redirect to regular files (input path, output path with
//     open flags and mode)
//   - NewTemp: capture stdout (and optionally stderr) into temp files
//   - NewPipe: connect the child to the parent through pipes, with the
//     parent-retained ends marked close-on-exec
//
// A pipe-backed session additionally supports Transact: a bounded,
// synchronous exchange that feeds an input payload into the child's stdin
// and drains stdout/stderr to completion without deadlocking on OS pipe
// buffer limits. The exchange runs on a single-threaded poll(2) loop scoped
// to the call; there is no timeout, so a child that never closes its output
// pipes stalls the caller indefinitely.
//
// The package is Unix-only.
package stdio
