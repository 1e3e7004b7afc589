// ABOUTME: Endpoint handlers for raid and registration operations
// ABOUTME: Validates field shapes, resolves raids by capability key, and delegates to the store

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/raidworks/sleeplocker/internal/keygen"
	"github.com/raidworks/sleeplocker/internal/store"
)

// userKeyRequest is the body for endpoints keyed by the 6-char user key
// plus the caller's own 50-char user id.
type userKeyRequest struct {
	RaidUserKey string `json:"raidUserKey"`
	UserID      string `json:"userID"`
}

// raidKeyRequest is the body for /getRaid; either capability key is accepted.
type raidKeyRequest struct {
	RaidUserKey string `json:"raidUserKey"`
}

// adminKeyRequest is the body for admin-only endpoints.
type adminKeyRequest struct {
	RaidAdminKey string `json:"raidAdminKey"`
}

// prioritySlot is one ranked item choice; a missing or empty itemName means
// the slot is intentionally unfilled.
type prioritySlot struct {
	ItemName *string `json:"itemName"`
}

type registerRequest struct {
	RaidUserKey string         `json:"raidUserKey"`
	UserID      string         `json:"userID"`
	UserName    string         `json:"userName"`
	Class       string         `json:"class"`
	Role        string         `json:"role"`
	Priorities  []prioritySlot `json:"priorities"`
}

type setModeRequest struct {
	RaidAdminKey string `json:"raidAdminKey"`
	Mode         *int   `json:"mode"`
}

type createRaidRequest struct {
	Title         string `json:"title"`
	NumPriorities int    `json:"numPriorities"`
	DungeonKey    string `json:"dungeonKey"`
	Comments      string `json:"comments"`
}

type adminRemoveUserRequest struct {
	RaidAdminKey string `json:"raidAdminKey"`
	UserName     string `json:"userName"`
}

// raidView is the raid projection returned to clients. The admin key is
// never echoed; the user key appears only when the presenter held the
// admin key.
type raidView struct {
	Title         string `json:"title"`
	UserKey       string `json:"userKey,omitempty"`
	DungeonKey    string `json:"dungeonKey,omitempty"`
	NumPriorities int    `json:"numPriorities"`
	Mode          int    `json:"mode"`
	CreatedOn     string `json:"createdOn"`
	Comments      string `json:"comments,omitempty"`
}

// registrationView is the full registration projection including the
// fixed-length priority array (null for unfilled slots).
type registrationView struct {
	UserName     string    `json:"userName"`
	Class        string    `json:"class"`
	Role         string    `json:"role"`
	Priorities   []*string `json:"priorities"`
	RegisteredOn string    `json:"registeredOn"`
}

// rosterView is the restricted roster projection without priorities.
type rosterView struct {
	UserName     string `json:"userName"`
	Class        string `json:"class"`
	Role         string `json:"role"`
	RegisteredOn string `json:"registeredOn"`
}

type raidStatusView struct {
	Raid          raidView           `json:"raid"`
	Registrations []registrationView `json:"registrations"`
}

func newRaidView(raid *store.Raid, kind store.KeyKind) raidView {
	view := raidView{
		Title:         raid.Title,
		DungeonKey:    raid.DungeonKey,
		NumPriorities: raid.NumPriorities,
		Mode:          raid.Mode,
		CreatedOn:     raid.CreatedOn.Format(time.RFC3339),
		Comments:      raid.Comments,
	}
	if kind == store.KeyKindAdmin {
		view.UserKey = raid.UserKey
	}
	return view
}

func newRegistrationView(reg *store.Registration) registrationView {
	return registrationView{
		UserName:     reg.UserName,
		Class:        reg.Class,
		Role:         reg.Role,
		Priorities:   reg.Priorities,
		RegisteredOn: reg.RegisteredOn.Format(time.RFC3339),
	}
}

// resolveRaid looks up a raid by key and writes the failure envelope when
// it cannot be found. notFoundMsg varies per endpoint to match the
// original wording.
func (s *Server) resolveRaid(w http.ResponseWriter, r *http.Request, key, notFoundMsg string) (*store.Raid, store.KeyKind, bool) {
	raid, kind, err := s.store.GetRaidByKey(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, notFoundMsg)
		return nil, store.KeyKindUnknown, false
	}
	if err != nil {
		s.internalError(w, "getRaidByKey", err)
		return nil, store.KeyKindUnknown, false
	}
	return raid, kind, true
}

// handleMyData returns the caller's own registration, only while the raid
// is still open.
func (s *Server) handleMyData(w http.ResponseWriter, r *http.Request) {
	var req userKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.RaidUserKey) != keygen.UserKeyLen || len(req.UserID) != userIDLen {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, _, ok := s.resolveRaid(w, r, req.RaidUserKey, msgNothingFound)
	if !ok {
		return
	}
	if raid.Mode != store.ModeOpen {
		s.fail(w, msgRegistrationOver)
		return
	}

	reg, err := s.store.GetRegistration(r.Context(), raid, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, msgNothingFound)
		return
	}
	if err != nil {
		s.internalError(w, "getRegistration", err)
		return
	}

	s.succeed(w, newRegistrationView(reg))
}

// handleGetRaid resolves a raid by either capability key.
func (s *Server) handleGetRaid(w http.ResponseWriter, r *http.Request) {
	var req raidKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if keygen.KindOf(req.RaidUserKey) == keygen.KindUnknown {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, kind, ok := s.resolveRaid(w, r, req.RaidUserKey, msgRaidNotFound)
	if !ok {
		return
	}

	s.succeed(w, newRaidView(raid, kind))
}

// handleClearMyData removes the caller's own registration while the raid
// is still open. Removing a registration that does not exist is a failure
// on this path, unlike admin removal.
func (s *Server) handleClearMyData(w http.ResponseWriter, r *http.Request) {
	var req userKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.RaidUserKey) != keygen.UserKeyLen || len(req.UserID) != userIDLen {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, _, ok := s.resolveRaid(w, r, req.RaidUserKey, msgNothingFound)
	if !ok {
		return
	}
	if raid.Mode != store.ModeOpen {
		s.fail(w, msgRegistrationOver)
		return
	}

	err := s.store.DeleteRegistration(r.Context(), raid.ID, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, msgCancellationFail)
		return
	}
	if err != nil {
		s.internalError(w, "deleteRegistration", err)
		return
	}

	s.succeed(w, nil)
}

// handleRegister creates a registration with its ranked priorities.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.validRegisterShape(req) {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, _, ok := s.resolveRaid(w, r, req.RaidUserKey, msgRaidNotFound)
	if !ok {
		return
	}
	if raid.Mode != store.ModeOpen {
		s.fail(w, msgRegistrationOver)
		return
	}

	priorities := make([]*string, len(req.Priorities))
	for i, slot := range req.Priorities {
		if slot.ItemName != nil && *slot.ItemName != "" {
			priorities[i] = slot.ItemName
		}
	}

	_, err := s.store.Register(r.Context(), raid, store.NewRegistration{
		UserID:     req.UserID,
		UserName:   req.UserName,
		Class:      req.Class,
		Role:       req.Role,
		Priorities: priorities,
	})
	switch {
	case errors.Is(err, store.ErrInvalidPriorities):
		// Slot-count mismatch is a malformed request for this raid.
		s.fail(w, msgInvalidInput)
	case errors.Is(err, store.ErrCapacityReached):
		s.fail(w, msgCapacityReached)
	case errors.Is(err, store.ErrDuplicateRegistration):
		s.fail(w, msgRegistrationFail)
	case err != nil:
		s.internalError(w, "register", err)
	default:
		s.succeed(w, nil)
	}
}

// userIDLen is the exact length of the client-generated opaque user id.
const userIDLen = 50

func (s *Server) validRegisterShape(req registerRequest) bool {
	if len(req.RaidUserKey) != keygen.UserKeyLen {
		return false
	}
	if len(req.UserID) != userIDLen {
		return false
	}
	if !lenBetween(req.UserName, 1, 50) {
		return false
	}
	if !lenBetween(req.Class, 1, 50) {
		return false
	}
	if !lenBetween(req.Role, 1, 50) {
		return false
	}
	for _, slot := range req.Priorities {
		if slot.ItemName != nil && *slot.ItemName != "" && !lenBetween(*slot.ItemName, 1, 50) {
			return false
		}
	}
	return true
}

// handleSetMode flips a raid's mode through the admin key.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.RaidAdminKey) != keygen.AdminKeyLen || req.Mode == nil ||
		(*req.Mode != store.ModeOpen && *req.Mode != store.ModeClosed) {
		s.fail(w, msgInvalidInput)
		return
	}

	err := s.store.SetMode(r.Context(), req.RaidAdminKey, *req.Mode)
	if errors.Is(err, store.ErrNotFound) {
		s.fail(w, msgRaidNotFound)
		return
	}
	if errors.Is(err, store.ErrReopenClosed) {
		s.fail(w, msgRaidClosed)
		return
	}
	if err != nil {
		s.internalError(w, "setMode", err)
		return
	}

	s.succeed(w, nil)
}

// handleGetRegistrations returns the restricted roster without priorities.
func (s *Server) handleGetRegistrations(w http.ResponseWriter, r *http.Request) {
	var req adminKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.RaidAdminKey) != keygen.AdminKeyLen {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, _, ok := s.resolveRaid(w, r, req.RaidAdminKey, msgRaidNotFound)
	if !ok {
		return
	}

	roster, err := s.store.ListRoster(r.Context(), raid.ID)
	if err != nil {
		s.internalError(w, "listRoster", err)
		return
	}

	views := make([]rosterView, len(roster))
	for i, entry := range roster {
		views[i] = rosterView{
			UserName:     entry.UserName,
			Class:        entry.Class,
			Role:         entry.Role,
			RegisteredOn: entry.RegisteredOn.Format(time.RFC3339),
		}
	}

	s.succeed(w, views)
}

// handleGetRaidStatus returns the raid plus the complete registration list
// including priorities. Admin key only.
func (s *Server) handleGetRaidStatus(w http.ResponseWriter, r *http.Request) {
	var req adminKeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.RaidAdminKey) != keygen.AdminKeyLen {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, kind, ok := s.resolveRaid(w, r, req.RaidAdminKey, msgRaidNotFound)
	if !ok {
		return
	}

	regs, err := s.store.ListRegistrations(r.Context(), raid)
	if err != nil {
		s.internalError(w, "listRegistrations", err)
		return
	}

	status := raidStatusView{
		Raid:          newRaidView(raid, kind),
		Registrations: make([]registrationView, len(regs)),
	}
	for i, reg := range regs {
		status.Registrations[i] = newRegistrationView(reg)
	}

	s.succeed(w, status)
}

// handleCreateRaid creates a raid and returns its admin key. The user key
// is recovered via /getRaid with the admin key.
func (s *Server) handleCreateRaid(w http.ResponseWriter, r *http.Request) {
	var req createRaidRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !lenBetween(req.Title, 1, 50) ||
		req.NumPriorities < 1 || req.NumPriorities > 5 ||
		(req.DungeonKey != "" && !lenBetween(req.DungeonKey, 1, 50)) ||
		len(req.Comments) > 1000 {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, err := s.store.CreateRaid(r.Context(), store.NewRaid{
		Title:         req.Title,
		NumPriorities: req.NumPriorities,
		DungeonKey:    req.DungeonKey,
		Comments:      req.Comments,
	})
	if err != nil {
		s.internalError(w, "createRaid", err)
		return
	}

	s.succeed(w, raid.AdminKey)
}

// handleAdminRemoveUser removes a registration by name on behalf of the
// admin. An unknown name is a silent success.
func (s *Server) handleAdminRemoveUser(w http.ResponseWriter, r *http.Request) {
	var req adminRemoveUserRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.RaidAdminKey) != keygen.AdminKeyLen || !lenBetween(req.UserName, 1, 50) {
		s.fail(w, msgInvalidInput)
		return
	}

	raid, _, ok := s.resolveRaid(w, r, req.RaidAdminKey, msgRaidNotFound)
	if !ok {
		return
	}

	if err := s.store.DeleteRegistrationByName(r.Context(), raid.ID, req.UserName); err != nil {
		s.internalError(w, "adminRemoveUser", err)
		return
	}

	s.succeed(w, nil)
}

// handleClasses serves the static class/role configuration.
func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	if s.loot == nil {
		s.succeed(w, []any{})
		return
	}
	s.succeed(w, s.loot.Classes())
}

// handleLootTable serves the grouped loot locations for one dungeon.
func (s *Server) handleLootTable(w http.ResponseWriter, r *http.Request) {
	dungeonKey := r.URL.Query().Get("dungeonKey")
	if dungeonKey == "" {
		s.fail(w, msgInvalidInput)
		return
	}

	if s.loot == nil {
		s.fail(w, msgUnknownDungeon)
		return
	}
	locations := s.loot.Locations(dungeonKey)
	if locations == nil {
		s.fail(w, msgUnknownDungeon)
		return
	}

	s.succeed(w, map[string]any{
		"dungeonKey": dungeonKey,
		"locations":  locations,
	})
}
