package commands

import "golang.org/x/sys/unix"

// memlockLimit returns the soft and hard RLIMIT_MEMLOCK in bytes.
// RLIM_INFINITY is reported as math.MaxUint64.
func memlockLimit() (soft, hard uint64, ok bool) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rl); err != nil {
		return 0, 0, false
	}
	return rl.Cur, rl.Max, true
}
