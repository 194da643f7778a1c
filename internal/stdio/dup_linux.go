//go:build linux

package stdio

import "golang.org/x/sys/unix"

// dupToSlot duplicates fd onto a conventional stream slot. Linux dropped
// dup2 on newer architectures, so this uses dup3. dup3 rejects oldfd ==
// newfd, but in that case the slot already holds the descriptor.
func dupToSlot(fd, slot int) {
	if fd == slot {
		return
	}
	_ = unix.Dup3(fd, slot, 0)
}
