// ABOUTME: Tests for registration and softlock persistence
// ABOUTME: Covers capacity, identity conflicts, priority round-trips and delete asymmetry

package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func testUserID(n int) string {
	return fmt.Sprintf("%050d", n)
}

func createTestRaid(t *testing.T, s *SQLiteStore, numPriorities int) *Raid {
	t.Helper()

	raid, err := s.CreateRaid(context.Background(), NewRaid{
		Title:         "Test Raid",
		NumPriorities: numPriorities,
	})
	if err != nil {
		t.Fatalf("CreateRaid failed: %v", err)
	}
	return raid
}

func str(s string) *string {
	return &s
}

func TestRegister(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 2)

	reg, err := store.Register(ctx, raid, NewRegistration{
		UserID:     testUserID(1),
		UserName:   "Mira",
		Class:      "Mage",
		Role:       "DPS",
		Priorities: []*string{str("Staff"), str("Robe")},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.RegisteredOn.IsZero() {
		t.Error("RegisteredOn was not set")
	}

	got, err := store.GetRegistration(ctx, raid, testUserID(1))
	if err != nil {
		t.Fatalf("GetRegistration failed: %v", err)
	}
	if got.UserName != "Mira" {
		t.Errorf("UserName: got %q, want %q", got.UserName, "Mira")
	}
	if got.Class != "Mage" {
		t.Errorf("Class: got %q, want %q", got.Class, "Mage")
	}
	if got.Role != "DPS" {
		t.Errorf("Role: got %q, want %q", got.Role, "DPS")
	}
	if len(got.Priorities) != 2 {
		t.Fatalf("priorities length: got %d, want 2", len(got.Priorities))
	}
	if got.Priorities[0] == nil || *got.Priorities[0] != "Staff" {
		t.Errorf("priority 1: got %v, want Staff", got.Priorities[0])
	}
	if got.Priorities[1] == nil || *got.Priorities[1] != "Robe" {
		t.Errorf("priority 2: got %v, want Robe", got.Priorities[1])
	}
}

func TestRegister_SparsePrioritiesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 3)

	_, err := store.Register(ctx, raid, NewRegistration{
		UserID:     testUserID(1),
		UserName:   "Thorin",
		Class:      "Warrior",
		Role:       "Tank",
		Priorities: []*string{str("Sword"), nil, str("Shield")},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := store.GetRegistration(ctx, raid, testUserID(1))
	if err != nil {
		t.Fatalf("GetRegistration failed: %v", err)
	}
	if len(got.Priorities) != 3 {
		t.Fatalf("priorities length: got %d, want 3", len(got.Priorities))
	}
	if got.Priorities[0] == nil || *got.Priorities[0] != "Sword" {
		t.Errorf("priority 1: got %v, want Sword", got.Priorities[0])
	}
	if got.Priorities[1] != nil {
		t.Errorf("priority 2: got %v, want nil", *got.Priorities[1])
	}
	if got.Priorities[2] == nil || *got.Priorities[2] != "Shield" {
		t.Errorf("priority 3: got %v, want Shield", got.Priorities[2])
	}
}

func TestRegister_PrioritySlotCountMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 2)

	_, err := store.Register(ctx, raid, NewRegistration{
		UserID:     testUserID(1),
		UserName:   "Mira",
		Class:      "Mage",
		Role:       "DPS",
		Priorities: []*string{str("Staff")},
	})
	if err != ErrInvalidPriorities {
		t.Errorf("expected ErrInvalidPriorities, got %v", err)
	}
}

func TestRegister_SameNameDifferentID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{nil},
	}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(2), UserName: "Mira", Class: "Priest", Role: "Healer",
		Priorities: []*string{nil},
	})
	if err != ErrDuplicateRegistration {
		t.Errorf("expected ErrDuplicateRegistration, got %v", err)
	}
}

func TestRegister_SameIDDifferentName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{nil},
	}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "NotMira", Class: "Mage", Role: "DPS",
		Priorities: []*string{nil},
	})
	if err != ErrDuplicateRegistration {
		t.Errorf("expected ErrDuplicateRegistration, got %v", err)
	}
}

func TestRegister_SameRegistrationTwice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	nr := NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{nil},
	}
	if _, err := store.Register(ctx, raid, nr); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	// Re-registration is delete+recreate at the handler level; a plain
	// duplicate insert is rejected.
	if _, err := store.Register(ctx, raid, nr); err != ErrDuplicateRegistration {
		t.Errorf("expected ErrDuplicateRegistration, got %v", err)
	}
}

func TestRegister_SameNameInDifferentRaids(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raidA := createTestRaid(t, store, 1)
	raidB := createTestRaid(t, store, 1)

	nr := NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{nil},
	}
	if _, err := store.Register(ctx, raidA, nr); err != nil {
		t.Fatalf("Register in raid A failed: %v", err)
	}
	if _, err := store.Register(ctx, raidB, nr); err != nil {
		t.Errorf("Register in raid B failed: %v", err)
	}
}

func TestRegister_CapacityCap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	for i := 1; i <= MaxRegistrations; i++ {
		_, err := store.Register(ctx, raid, NewRegistration{
			UserID:     testUserID(i),
			UserName:   fmt.Sprintf("Raider%d", i),
			Class:      "Warrior",
			Role:       "DPS",
			Priorities: []*string{nil},
		})
		if err != nil {
			t.Fatalf("Register %d failed: %v", i, err)
		}
	}

	// The 81st must hit the cap.
	_, err := store.Register(ctx, raid, NewRegistration{
		UserID:     testUserID(MaxRegistrations + 1),
		UserName:   "OneTooMany",
		Class:      "Rogue",
		Role:       "DPS",
		Priorities: []*string{nil},
	})
	if err != ErrCapacityReached {
		t.Errorf("expected ErrCapacityReached, got %v", err)
	}

	count, err := store.CountRegistrations(ctx, raid.ID)
	if err != nil {
		t.Fatalf("CountRegistrations failed: %v", err)
	}
	if count != MaxRegistrations {
		t.Errorf("count: got %d, want %d", count, MaxRegistrations)
	}
}

func TestRegister_CapacityErrorLeavesNoPartialRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	for i := 1; i <= MaxRegistrations; i++ {
		if _, err := store.Register(ctx, raid, NewRegistration{
			UserID:     testUserID(i),
			UserName:   fmt.Sprintf("Raider%d", i),
			Class:      "Warrior",
			Role:       "DPS",
			Priorities: []*string{str("Axe")},
		}); err != nil {
			t.Fatalf("Register %d failed: %v", i, err)
		}
	}

	_, err := store.Register(ctx, raid, NewRegistration{
		UserID:     testUserID(MaxRegistrations + 1),
		UserName:   "OneTooMany",
		Class:      "Rogue",
		Role:       "DPS",
		Priorities: []*string{str("Dagger")},
	})
	if err != ErrCapacityReached {
		t.Fatalf("expected ErrCapacityReached, got %v", err)
	}

	// The rejected registration must not appear in any table.
	if _, err := store.GetRegistration(ctx, raid, testUserID(MaxRegistrations+1)); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for rejected registration, got %v", err)
	}
}

func TestGetRegistration_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	_, err := store.GetRegistration(ctx, raid, testUserID(99))
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListRoster_ExcludesPriorities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 2)

	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{str("Staff"), str("Robe")},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	roster, err := store.ListRoster(ctx, raid.ID)
	if err != nil {
		t.Fatalf("ListRoster failed: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("roster length: got %d, want 1", len(roster))
	}

	entry := roster[0]
	if entry.UserName != "Mira" || entry.Class != "Mage" || entry.Role != "DPS" {
		t.Errorf("unexpected roster entry: %+v", entry)
	}
	if entry.RegisteredOn.IsZero() {
		t.Error("RegisteredOn was not set")
	}
	// RosterEntry has no priority fields at all; make sure the item names
	// cannot leak through any string field either.
	for _, field := range []string{entry.UserName, entry.Class, entry.Role} {
		if strings.Contains(field, "Staff") || strings.Contains(field, "Robe") {
			t.Errorf("roster leaked an item name in %q", field)
		}
	}
}

func TestListRoster_OrderedByRegistration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	names := []string{"Alpha", "Bravo", "Charlie"}
	for i, name := range names {
		if _, err := store.Register(ctx, raid, NewRegistration{
			UserID: testUserID(i + 1), UserName: name, Class: "Mage", Role: "DPS",
			Priorities: []*string{nil},
		}); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}

	roster, err := store.ListRoster(ctx, raid.ID)
	if err != nil {
		t.Fatalf("ListRoster failed: %v", err)
	}
	if len(roster) != len(names) {
		t.Fatalf("roster length: got %d, want %d", len(roster), len(names))
	}
	for i, name := range names {
		if roster[i].UserName != name {
			t.Errorf("roster[%d]: got %q, want %q", i, roster[i].UserName, name)
		}
	}
}

func TestListRegistrations_IncludesPriorities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 2)

	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{str("Staff"), nil},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(2), UserName: "Thorin", Class: "Warrior", Role: "Tank",
		Priorities: []*string{nil, str("Shield")},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	regs, err := store.ListRegistrations(ctx, raid)
	if err != nil {
		t.Fatalf("ListRegistrations failed: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("registrations length: got %d, want 2", len(regs))
	}

	for _, reg := range regs {
		if len(reg.Priorities) != 2 {
			t.Errorf("%s priorities length: got %d, want 2", reg.UserName, len(reg.Priorities))
		}
	}
}

func TestDeleteRegistration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{str("Staff")},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := store.DeleteRegistration(ctx, raid.ID, testUserID(1)); err != nil {
		t.Fatalf("DeleteRegistration failed: %v", err)
	}

	if _, err := store.GetRegistration(ctx, raid, testUserID(1)); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// The name and id are free again after deletion.
	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Priest", Role: "Healer",
		Priorities: []*string{nil},
	}); err != nil {
		t.Errorf("re-register after delete failed: %v", err)
	}
}

func TestDeleteRegistration_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	err := store.DeleteRegistration(ctx, raid.ID, testUserID(1))
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRegistrationByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	if _, err := store.Register(ctx, raid, NewRegistration{
		UserID: testUserID(1), UserName: "Mira", Class: "Mage", Role: "DPS",
		Priorities: []*string{str("Staff")},
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := store.DeleteRegistrationByName(ctx, raid.ID, "Mira"); err != nil {
		t.Fatalf("DeleteRegistrationByName failed: %v", err)
	}

	if _, err := store.GetRegistration(ctx, raid, testUserID(1)); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after admin delete, got %v", err)
	}
}

func TestDeleteRegistrationByName_MissingIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	// Admin removal of an unknown name succeeds silently, unlike the
	// self-service path.
	if err := store.DeleteRegistrationByName(ctx, raid.ID, "Nobody"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCountRegistrations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	raid := createTestRaid(t, store, 1)

	count, err := store.CountRegistrations(ctx, raid.ID)
	if err != nil {
		t.Fatalf("CountRegistrations failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count: got %d, want 0", count)
	}

	for i := 1; i <= 3; i++ {
		if _, err := store.Register(ctx, raid, NewRegistration{
			UserID: testUserID(i), UserName: fmt.Sprintf("Raider%d", i), Class: "Mage", Role: "DPS",
			Priorities: []*string{nil},
		}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	count, err = store.CountRegistrations(ctx, raid.ID)
	if err != nil {
		t.Fatalf("CountRegistrations failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count: got %d, want 3", count)
	}
}
