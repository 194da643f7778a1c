package stdio

// Conventional slot numbers for the three standard streams.
const (
	slotStdin  = 0
	slotStdout = 1
	slotStderr = 2
)

// Redirect is the capability shared by all redirection variants
// (FileRedirect, TempRedirect, PipeRedirect).
type Redirect interface {
	// Install maps the streams onto the conventional stdin/stdout/stderr
	// slots of the calling process image.
	Install()

	// Close releases all descriptors held by the redirection.
	Close()
}

// Streams is a triple of descriptor handles destined for the conventional
// stdin/stdout/stderr slots, plus a flag that sends stderr to the same
// destination as stdout.
type Streams struct {
	In  FD
	Out FD
	Err FD

	// CombineOutErr routes the error stream to the output destination.
	// When set, Err is never installed as a separate target.
	CombineOutErr bool
}

// Install maps In onto slot 0, Out onto slot 1, and Err onto slot 2. When
// CombineOutErr is set and no explicit error target exists, the output
// target is duplicated onto slot 2 as well. Source descriptors that collide
// with a conventional slot are released rather than closed, so the slot they
// were just duplicated into stays open; all remaining handles are then
// closed since the slots now hold working copies.
//
// Install never reports errors. It runs after the caller has committed to
// building a replacement process image, where no reporting channel exists;
// failures are best-effort and swallowed.
func (s *Streams) Install() {
	if s.In.Defined() {
		dupToSlot(s.In.Raw(), slotStdin)
		if s.In.Raw() <= slotStderr {
			s.In.Release()
		}
	}

	if s.Out.Defined() {
		dupToSlot(s.Out.Raw(), slotStdout)
		if !s.Err.Defined() && s.CombineOutErr {
			dupToSlot(s.Out.Raw(), slotStderr)
		}
		if s.Out.Raw() <= slotStderr {
			s.Out.Release()
		}
	}

	if s.Err.Defined() {
		dupToSlot(s.Err.Raw(), slotStderr)
		if s.Err.Raw() <= slotStderr {
			s.Err.Release()
		}
	}

	s.Close()
}

// Close closes all three handles unconditionally.
func (s *Streams) Close() {
	s.In.Close()
	s.Out.Close()
	s.Err.Close()
}

// Slots returns the raw descriptors to install into child slots 0..2,
// honoring CombineOutErr by aliasing the error slot to the output
// descriptor. A -1 entry means the child should inherit the parent's own
// descriptor for that slot. Ownership is not transferred.
func (s *Streams) Slots() [3]int {
	slots := [3]int{-1, -1, -1}
	if s.In.Defined() {
		slots[slotStdin] = s.In.Raw()
	}
	if s.Out.Defined() {
		slots[slotStdout] = s.Out.Raw()
		if s.CombineOutErr && !s.Err.Defined() {
			slots[slotStderr] = s.Out.Raw()
		}
	}
	if s.Err.Defined() {
		slots[slotStderr] = s.Err.Raw()
	}
	return slots
}
