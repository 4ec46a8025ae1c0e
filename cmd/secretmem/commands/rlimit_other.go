//go:build !linux

package commands

// memlockLimit is only reported on Linux, where memfd_secret and mlock
// both draw from RLIMIT_MEMLOCK.
func memlockLimit() (soft, hard uint64, ok bool) {
	return 0, 0, false
}
