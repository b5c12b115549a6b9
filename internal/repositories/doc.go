// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [StateRepository] : Key/value slots (the session slot and one playback offset per audiobook)
//   - [DownloadRepository] : History of files written by library downloads
//
// Each key in local_state is owned by exactly one component; writes are single-statement upserts,
// so no locking beyond SQLite's own is needed.
package repositories
