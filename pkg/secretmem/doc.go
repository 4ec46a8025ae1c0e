// Package secretmem allocates page-granular memory regions for secret
// material such as keys, passwords, and access tokens.
//
// Regions live outside the Go heap, so the garbage collector never copies
// or relocates them. Every backend keeps the pages out of swap and out of
// core dumps, and every release path wipes the bytes before the pages go
// back to the operating system.
//
// # Backends
//
//   - memfd_secret (Linux 5.14+ with secretmem enabled): memory removed
//     from the kernel direct map, invisible to other processes, never
//     swapped and never dumped.
//   - posix (all supported unix systems): anonymous private mapping pinned
//     with mlock and excluded from core dumps via madvise.
//   - windows: committed PAGE_NOCACHE memory pinned with VirtualLock.
//
// [Platform] picks the most isolating backend the running system supports,
// once per process. Callers never branch on the platform.
//
// Regions are allocated at page granularity. This package is not a general
// purpose allocator and is a poor fit for many small, short-lived values.
//
// Depends on golang.org/x/sys for the system calls and on memguard for
// wiping. Imported by pkg/secretbox.
package secretmem
