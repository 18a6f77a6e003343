//go:build unix

package util

import "syscall"

// detachedProcAttr puts the child in its own session so it survives the parent's terminal
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
