package stdio

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// chunkSize bounds each read and write issued by a stream driver.
const chunkSize = 2048

// Result carries the bytes captured from one transaction.
type Result struct {
	// Output is everything the child wrote to stdout (and to stderr, when
	// the session combines the two).
	Output []byte

	// Errout is everything the child wrote to stderr. Always empty when
	// the session combines output and error.
	Errout []byte
}

// driverState tracks a stream driver's position in its lifecycle.
type driverState uint8

const (
	// stateIdle: no descriptor, the driver is inert and contributes nothing.
	stateIdle driverState = iota

	// stateActive: descriptor valid, I/O in flight.
	stateActive

	// stateClosed: terminal, descriptor released.
	stateClosed
)

// driver is one per-descriptor chunked-I/O state machine inside the
// transaction loop. It owns its descriptor for the lifetime of the call.
type driver struct {
	fd    int
	state driverState
}

func newDriver(h *FD) driver {
	if !h.Defined() {
		return driver{fd: -1, state: stateIdle}
	}
	d := driver{fd: h.Release(), state: stateActive}
	_ = unix.SetNonblock(d.fd, true)
	return d
}

func (d *driver) terminal() bool {
	return d.state != stateActive
}

// finish closes the descriptor, if any, and makes the driver terminal.
func (d *driver) finish() {
	if d.state == stateActive {
		_ = unix.Close(d.fd)
	}
	d.fd = -1
	d.state = stateClosed
}

// writer feeds the input payload into the child's stdin pipe.
type writer struct {
	driver
	payload []byte
	off     int
}

// pump writes bounded chunks of the remaining unsent suffix until the pipe
// would block. Reaching the end of the payload, or any write error, closes
// the descriptor; the close is what signals end-of-input to the child.
func (w *writer) pump() {
	for w.state == stateActive {
		if w.off >= len(w.payload) {
			w.finish()
			return
		}
		n := len(w.payload) - w.off
		if n > chunkSize {
			n = chunkSize
		}
		sent, err := unix.Write(w.fd, w.payload[w.off:w.off+n])
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return
		case err != nil || sent < 0:
			w.finish()
			return
		}
		w.off += sent
	}
}

// reader drains one of the child's output pipes into an accumulator.
type reader struct {
	driver
	acc bytes.Buffer
}

// pump reads bounded chunks until the pipe would block. A zero-length read
// is the end-of-stream signal; it and any read error finalize the driver
// with whatever has been accumulated.
func (r *reader) pump() {
	var buf [chunkSize]byte
	for r.state == stateActive {
		n, err := unix.Read(r.fd, buf[:])
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return
		case err != nil || n <= 0:
			r.finish()
			return
		}
		r.acc.Write(buf[:n])
	}
}

// Transact writes input into the child's stdin pipe and reads the child's
// stdout/stderr pipes until each closes, returning the captured bytes.
//
// The exchange runs on a fresh single-threaded poll loop scoped to this
// call. Up to three drivers register: a writer bound to the parent's input
// write-handle and readers bound to the output and error read-handles;
// undefined handles contribute nothing. The drivers share no mutable state
// and own disjoint descriptors, so arbitrary interleaving between them is
// safe and the exchange cannot deadlock on a child that fills one pipe
// before draining another.
//
// I/O errors (broken pipe included) are normal stream termination, not
// failures: the affected driver finalizes with what it has and Transact
// returns the assembled result. There is no timeout; a child that never
// closes its output pipes stalls the call indefinitely. The parent
// descriptors are consumed by the loop and all closed on return.
func (p *PipeRedirect) Transact(input []byte) Result {
	w := &writer{driver: newDriver(&p.In), payload: input}
	out := &reader{driver: newDriver(&p.Out)}
	errOut := &reader{driver: newDriver(&p.Err)}

	// First pass without waiting; small exchanges often complete here.
	w.pump()
	out.pump()
	errOut.pump()

	fds := make([]unix.PollFd, 0, 3)
	for !(w.terminal() && out.terminal() && errOut.terminal()) {
		fds = fds[:0]
		if !w.terminal() {
			fds = append(fds, unix.PollFd{Fd: int32(w.fd), Events: unix.POLLOUT})
		}
		if !out.terminal() {
			fds = append(fds, unix.PollFd{Fd: int32(out.fd), Events: unix.POLLIN})
		}
		if !errOut.terminal() {
			fds = append(fds, unix.PollFd{Fd: int32(errOut.fd), Events: unix.POLLIN})
		}

		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Unrecoverable loop failure: finalize with what was captured.
			w.finish()
			out.finish()
			errOut.finish()
			break
		}

		for _, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			// POLLERR/POLLHUP are dispatched too: the pump observes the
			// condition as an error or end-of-stream and finalizes.
			switch int(pfd.Fd) {
			case w.fd:
				w.pump()
			case out.fd:
				out.pump()
			case errOut.fd:
				errOut.pump()
			}
		}
	}

	return Result{Output: out.acc.Bytes(), Errout: errOut.acc.Bytes()}
}
