// ABOUTME: HTTP JSON API for raid signups using the {success, errorMsg, result} envelope
// ABOUTME: Owns request decoding, field validation, and the single error-to-message mapping

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/raidworks/sleeplocker/internal/loot"
	"github.com/raidworks/sleeplocker/internal/store"
)

// User-facing messages. Input-shape problems always collapse to msgInvalidInput
// and unexpected faults to msgInternalError; field-level detail never reaches
// the client.
const (
	msgInvalidInput     = "Invalid input."
	msgInternalError    = "Internal server error."
	msgNothingFound     = "Nothing found."
	msgRaidNotFound     = "Raid not found."
	msgRegistrationOver = "Registration is no longer possible."
	msgCapacityReached  = "The maximum number of softlocks has been reached."
	msgRegistrationFail = "Softlocks could not be accepted. Please contact the raid leadership."
	msgCancellationFail = "Cancellation failed."
	msgRaidClosed       = "The raid is already closed."
	msgUnknownDungeon   = "Unknown dungeon."
)

// Store is the persistence surface the API depends on. The concrete store
// is injected explicitly; handlers never reach for a global.
type Store interface {
	CreateRaid(ctx context.Context, nr store.NewRaid) (*store.Raid, error)
	GetRaidByKey(ctx context.Context, key string) (*store.Raid, store.KeyKind, error)
	SetMode(ctx context.Context, adminKey string, mode int) error

	Register(ctx context.Context, raid *store.Raid, nr store.NewRegistration) (*store.Registration, error)
	GetRegistration(ctx context.Context, raid *store.Raid, userID string) (*store.Registration, error)
	ListRoster(ctx context.Context, raidID string) ([]store.RosterEntry, error)
	ListRegistrations(ctx context.Context, raid *store.Raid) ([]*store.Registration, error)
	DeleteRegistration(ctx context.Context, raidID, userID string) error
	DeleteRegistrationByName(ctx context.Context, raidID, userName string) error
}

// Server serves the raid signup endpoints.
type Server struct {
	store  Store
	loot   *loot.Config // nil when no loot configuration is installed
	logger *slog.Logger
}

// New creates an API server. lootCfg may be nil; the loot endpoints then
// serve empty data.
func New(st Store, lootCfg *loot.Config) *Server {
	return &Server{
		store:  st,
		loot:   lootCfg,
		logger: slog.Default().With("component", "api"),
	}
}

// RegisterRoutes registers all signup endpoints on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /myData", s.handleMyData)
	mux.HandleFunc("POST /getRaid", s.handleGetRaid)
	mux.HandleFunc("POST /clearMyData", s.handleClearMyData)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /setMode", s.handleSetMode)
	mux.HandleFunc("POST /getRegistrations", s.handleGetRegistrations)
	mux.HandleFunc("POST /getRaidStatus", s.handleGetRaidStatus)
	mux.HandleFunc("POST /createRaid", s.handleCreateRaid)
	mux.HandleFunc("POST /adminRemoveUser", s.handleAdminRemoveUser)
	mux.HandleFunc("GET /classes", s.handleClasses)
	mux.HandleFunc("GET /lootTable", s.handleLootTable)
}

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success  bool    `json:"success"`
	ErrorMsg *string `json:"errorMsg"`
	Result   any     `json:"result"`
}

// succeed writes a success envelope. result may be nil.
func (s *Server) succeed(w http.ResponseWriter, result any) {
	s.writeEnvelope(w, envelope{Success: true, Result: result})
}

// fail writes a failure envelope with a user-facing message.
func (s *Server) fail(w http.ResponseWriter, msg string) {
	s.writeEnvelope(w, envelope{Success: false, ErrorMsg: &msg})
}

// internalError logs the underlying fault and reports only the generic
// message to the client.
func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("internal error", "op", op, "error", err)
	s.fail(w, msgInternalError)
}

func (s *Server) writeEnvelope(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// decode parses a JSON request body into dst. A false return means the
// invalid-input failure has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.fail(w, msgInvalidInput)
		return false
	}
	return true
}

// lenBetween reports whether the string length is within [min, max].
func lenBetween(s string, min, max int) bool {
	return len(s) >= min && len(s) <= max
}
