//go:build freebsd || dragonfly

package secretmem

import "golang.org/x/sys/unix"

func excludeFromDump(b []byte) error {
	return unix.Madvise(b, unix.MADV_NOCORE)
}

func includeInDump(b []byte) error {
	return unix.Madvise(b, unix.MADV_CORE)
}
