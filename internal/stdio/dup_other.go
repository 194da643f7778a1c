//go:build darwin || dragonfly || freebsd || netbsd || openbsd || solaris

package stdio

import "golang.org/x/sys/unix"

// dupToSlot duplicates fd onto a conventional stream slot.
func dupToSlot(fd, slot int) {
	_ = unix.Dup2(fd, slot)
}
