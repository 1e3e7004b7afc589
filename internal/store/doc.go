// Package store provides persistent storage for raid signups using SQLite.
//
// # Data Models
//
//   - Raid: one signup event with a title, loot reference, priority slot
//     count, open/closed mode and two capability keys
//   - Registration: one participant's class/role submission plus ranked
//     softlock priorities, scoped to a raid
//   - RosterEntry: restricted roster projection without priorities
//
// # Capability Keys
//
// A raid is resolved by presenting either of its keys. GetRaidByKey reports
// which key matched so callers can decide what the presenter may do: the
// 6-character user key permits reading and writing one's own registration,
// the 20-character admin key permits managing the raid and reading the full
// roster. Keys are globally unique; CreateRaid retries with fresh keys on a
// collision.
//
// # Invariants
//
//   - At most 80 registrations per raid (checked inside the registration
//     transaction)
//   - No two registrations in a raid share a user name or a user id
//   - Multi-row writes (registration + softlocks, both delete paths) are
//     all-or-nothing
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// All methods accept context.Context for cancellation support.
package store
