//go:build unix

package unix

import (
	"os"
	"syscall"
)

// flock blocks until the exclusive lock is held
func flock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func unflock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
