// Package coordinator syncs rule packages for several regulations at once.
//
// Every regulation owns an independent cache directory, <cacheRoot>/<regulation>, managed
// through a sync.Manager. The coordinator walks the requested regulations in order; for each it
//
//   - activates the cached copy when offline, falling back to whatever version is already active,
//   - or calls the Downloader, retrying up to Retries extra times with no delay between attempts,
//   - then prunes old versions when CleanupKeep is positive.
//
// The first failure stops the walk. Regulations already processed keep their new state, and
// the failing regulation keeps whatever was cached before, because a version is only written
// to the cache after its own fetch and verification succeed.
//
// Outcomes are persisted per regulation under <cacheRoot>/.status so that "minos rules status"
// can report the last phase, attempt count, version and digest. Status writes never fail a sync.
package coordinator
