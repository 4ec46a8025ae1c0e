package secretmem

import "golang.org/x/sys/unix"

func excludeFromDump(b []byte) error {
	return unix.Madvise(b, unix.MADV_DONTDUMP)
}

func includeInDump(b []byte) error {
	return unix.Madvise(b, unix.MADV_DODUMP)
}
