// Package state provides the client-local caches shared between the
// foreground save path and background work.
//
// # Overview
//
// Two caches live here:
//
//   - SessionCache: the current Shiori session id and when it was issued
//   - TagCache: tag suggestions, most recently used first
//
// Both keep their value in memory behind a sync.RWMutex and mirror it to a
// small TOML file under the state directory (session.toml, tags.toml), so a
// session obtained by one invocation is reused by the next.
//
// # Update Semantics
//
// Writes replace the whole value under the write lock and then persist it
// with write-temp-then-rename:
//
//	cache.SetSession(shiori.Session{Token: "abc", IssuedAt: now})
//	→ readers see either the old session or the new one, never a mix
//	→ session.toml is replaced atomically
//
// A persistence failure is returned to the caller but the in-memory value
// is still updated; the client logs it and carries on.
//
// # Tag Ordering
//
// AddRecentTags merges tags used by a successful save:
//
//	[swift, ios, macos] + AddRecentTags([ios])  → [ios, swift, macos]
//	[swift]             + AddRecentTags([a, b]) → [a, b, swift]
//
// SetRecentTags replaces the list wholesale (popular tags refresh). Both
// normalise names and cap the list at shiori.MaxRecentTags. The background
// refresh and a foreground merge may race; the last writer wins.
//
// # Graceful Degradation
//
// Missing, unreadable or corrupt files load as empty caches. An empty
// path keeps a cache in memory only, which is what tests use:
//
//	sessions := state.NewSessionCache("")
//	tags := state.NewTagCache("")
package state
