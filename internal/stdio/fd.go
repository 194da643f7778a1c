package stdio

import "golang.org/x/sys/unix"

// FD is an exclusive-ownership wrapper around one OS file descriptor.
// At most one live FD owns a given descriptor value. The zero value is
// undefined and owns nothing.
type FD struct {
	fd    int
	owned bool
}

// NewFD returns a handle owning fd. A negative fd yields an undefined handle.
func NewFD(fd int) FD {
	if fd < 0 {
		return FD{fd: -1}
	}
	return FD{fd: fd, owned: true}
}

// Reset closes any currently owned descriptor and takes ownership of fd.
func (f *FD) Reset(fd int) {
	f.Close()
	if fd >= 0 {
		f.fd = fd
		f.owned = true
	}
}

// Release transfers ownership of the descriptor to the caller and returns
// its raw value. The handle becomes undefined; a later Close is a no-op.
// Returns -1 when the handle is undefined.
func (f *FD) Release() int {
	if !f.owned {
		return -1
	}
	fd := f.fd
	f.fd = -1
	f.owned = false
	return fd
}

// Close closes the owned descriptor, if any. Safe to call repeatedly and on
// an undefined handle.
func (f *FD) Close() {
	if f.owned {
		_ = unix.Close(f.fd)
	}
	f.fd = -1
	f.owned = false
}

// Defined reports whether the handle currently owns a valid descriptor.
func (f *FD) Defined() bool {
	return f.owned
}

// Raw returns the raw descriptor value without transferring ownership.
// Returns -1 when the handle is undefined.
func (f *FD) Raw() int {
	if !f.owned {
		return -1
	}
	return f.fd
}
