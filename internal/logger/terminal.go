//go:build !windows && !linux

package logger

import (
	"syscall"
	"unsafe"
)

// isTerminal reports whether fd is an interactive terminal, on the Unix
// targets this server runs on. logger uses it to decide whether the text
// handler should emit ANSI color codes.
func isTerminal(fd uintptr) bool {
	var termios syscall.Termios
	_, _, err := syscall.Syscall6(
		syscall.SYS_IOCTL,
		fd,
		syscall.TIOCGETA, // macOS uses TIOCGETA, Linux uses TCGETS
		uintptr(unsafe.Pointer(&termios)),
		0, 0, 0,
	)
	return err == 0
}
