// Package sync orchestrates the rule package lifecycle over a version cache.
//
// A Sync call runs strictly in order:
//
//	parse source -> fetch -> digest -> verify -> publish -> activate
//
// Verification happens before any cache mutation, so a checksum failure never creates a
// version directory, and activation is the last step, so a failed extraction leaves the
// previously active version in place. With Options.Offline only the cache is consulted.
//
// Errors carry a syncerr.Kind. Only verification failures report KindChecksumMismatch;
// callers use that to tell integrity failures apart from everything else. The manager
// never retries: bounded retry belongs to the caller (see the coordinator subpackage and
// the CLI).
//
// Rollback without an explicit target activates the predecessor of the current version
// under the store's version ordering.
package sync
