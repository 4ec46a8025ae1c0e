//go:build unix && !aix && !hurd && !zos && !linux && !freebsd && !dragonfly

package secretmem

// No core-dump advice exists on these systems. Pages are still pinned.

func excludeFromDump([]byte) error { return nil }

func includeInDump([]byte) error { return nil }
