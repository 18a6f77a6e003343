//go:build !unix

package util

import "syscall"

func detachedProcAttr() *syscall.SysProcAttr {
	return nil
}
