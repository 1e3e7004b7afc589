// ABOUTME: Store types and errors for raid signup persistence
// ABOUTME: Defines Raid, Registration structs and the domain error taxonomy

package store

import (
	"errors"
	"time"

	"github.com/raidworks/sleeplocker/internal/keygen"
)

// MaxRegistrations is the hard per-raid capacity cap.
const MaxRegistrations = 80

// Raid modes. The transition is monotonic: a closed raid never reopens.
const (
	ModeOpen   = 0
	ModeClosed = 1
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityReached is returned when a raid already holds the maximum
// number of registrations.
var ErrCapacityReached = errors.New("raid capacity reached")

// ErrDuplicateRegistration is returned when a registration would conflict
// with an existing one in the same raid: same name under a different user
// ID, or same user ID under a different name.
var ErrDuplicateRegistration = errors.New("conflicting registration exists")

// ErrInvalidPriorities is returned when the supplied priority list does not
// match the raid's fixed slot count.
var ErrInvalidPriorities = errors.New("priority slot count mismatch")

// ErrReopenClosed is returned when SetMode would move a closed raid back to
// open. The mode transition is monotonic.
var ErrReopenClosed = errors.New("closed raid cannot reopen")

// Raid is one signup event. UserKey and AdminKey are the two capability
// tokens; either resolves the raid, but they confer different privilege.
type Raid struct {
	ID            string
	Title         string
	UserKey       string
	AdminKey      string
	DungeonKey    string // optional reference into the static loot config
	NumPriorities int    // ranked item slots per registrant, 1-5
	Mode          int
	CreatedOn     time.Time
	Comments      string
}

// NewRaid holds the caller-supplied fields for raid creation. Keys and
// timestamps are store-owned.
type NewRaid struct {
	Title         string
	NumPriorities int
	DungeonKey    string
	Comments      string
}

// Registration is one participant's submission within a raid. Priorities
// always has exactly the raid's NumPriorities entries; unfilled slots are
// nil.
type Registration struct {
	RaidID       string
	UserID       string // client-generated 50-char opaque identifier
	UserName     string
	Class        string
	Role         string
	Priorities   []*string
	RegisteredOn time.Time
}

// NewRegistration holds the caller-supplied fields for a registration.
// Priorities must have exactly the raid's NumPriorities entries.
type NewRegistration struct {
	UserID     string
	UserName   string
	Class      string
	Role       string
	Priorities []*string
}

// RosterEntry is the restricted roster view. It deliberately excludes
// priority choices so pre-close previews cannot leak item picks.
type RosterEntry struct {
	UserName     string
	Class        string
	Role         string
	RegisteredOn time.Time
}

// KeyKind reports which capability a resolved key conferred.
type KeyKind = keygen.Kind

// Key kind values.
const (
	KeyKindUnknown = keygen.KindUnknown
	KeyKindUser    = keygen.KindUser
	KeyKindAdmin   = keygen.KindAdmin
)
