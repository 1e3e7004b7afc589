// ABOUTME: SQLite implementation of raid persistence using modernc.org/sqlite
// ABOUTME: Owns the raids table with automatic schema creation and key-collision retry

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/raidworks/sleeplocker/internal/keygen"
)

// createRaidMaxAttempts bounds the key-collision retry loop in CreateRaid.
// With a 56-character alphabet a collision on a fresh 20-char admin key is
// effectively impossible; the bound exists so a broken database cannot spin
// the loop forever.
const createRaidMaxAttempts = 10

// SQLiteStore persists raids and registrations in a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS raids (
			raid_id        TEXT PRIMARY KEY,
			raid_user_key  TEXT NOT NULL UNIQUE,
			raid_admin_key TEXT NOT NULL UNIQUE,
			title          TEXT NOT NULL,
			dungeon_key    TEXT,
			num_priorities INTEGER NOT NULL,
			mode           INTEGER NOT NULL DEFAULT 0,
			created_on     TEXT NOT NULL,
			comments       TEXT,

			CHECK (mode IN (0, 1)),
			CHECK (num_priorities BETWEEN 1 AND 5)
		);

		CREATE INDEX IF NOT EXISTS idx_raids_user_key ON raids(raid_user_key);
		CREATE INDEX IF NOT EXISTS idx_raids_admin_key ON raids(raid_admin_key);

		CREATE TABLE IF NOT EXISTS users (
			raid_id       TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			user_name     TEXT NOT NULL,
			class         TEXT NOT NULL,
			role          TEXT NOT NULL,
			registered_on TEXT NOT NULL,

			PRIMARY KEY (raid_id, user_id),
			UNIQUE (raid_id, user_name),
			FOREIGN KEY (raid_id) REFERENCES raids(raid_id)
		);

		CREATE INDEX IF NOT EXISTS idx_users_raid ON users(raid_id);

		CREATE TABLE IF NOT EXISTS softlocks (
			raid_id   TEXT NOT NULL,
			user_id   TEXT NOT NULL,
			priority  INTEGER NOT NULL,
			item_name TEXT NOT NULL,

			PRIMARY KEY (raid_id, user_id, priority),
			FOREIGN KEY (raid_id, user_id) REFERENCES users(raid_id, user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_softlocks_user ON softlocks(raid_id, user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// CreateRaid inserts a new open raid with a freshly generated key pair.
// On a key collision it retries with new keys; the caller should publish
// only the admin key and let organizers recover the user key via GetRaidByKey.
func (s *SQLiteStore) CreateRaid(ctx context.Context, nr NewRaid) (*Raid, error) {
	raid := &Raid{
		ID:            uuid.New().String(),
		Title:         nr.Title,
		DungeonKey:    nr.DungeonKey,
		NumPriorities: nr.NumPriorities,
		Mode:          ModeOpen,
		CreatedOn:     time.Now().UTC().Truncate(time.Second),
		Comments:      nr.Comments,
	}

	query := `
		INSERT INTO raids (raid_id, raid_user_key, raid_admin_key, title, dungeon_key, num_priorities, mode, created_on, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for attempt := 0; attempt < createRaidMaxAttempts; attempt++ {
		userKey, err := keygen.NewUserKey()
		if err != nil {
			return nil, fmt.Errorf("generating user key: %w", err)
		}
		adminKey, err := keygen.NewAdminKey()
		if err != nil {
			return nil, fmt.Errorf("generating admin key: %w", err)
		}

		_, err = s.db.ExecContext(ctx, query,
			raid.ID,
			userKey,
			adminKey,
			raid.Title,
			nullString(raid.DungeonKey),
			raid.NumPriorities,
			raid.Mode,
			raid.CreatedOn.Format(time.RFC3339),
			nullString(raid.Comments),
		)
		if err != nil {
			if isConstraintViolation(err) {
				s.logger.Warn("raid key collision, retrying", "attempt", attempt+1)
				continue
			}
			return nil, fmt.Errorf("inserting raid: %w", err)
		}

		raid.UserKey = userKey
		raid.AdminKey = adminKey
		s.logger.Debug("created raid", "id", raid.ID, "title", raid.Title)
		return raid, nil
	}

	return nil, fmt.Errorf("could not generate a unique key pair after %d attempts", createRaidMaxAttempts)
}

// GetRaidByKey resolves a raid by either of its capability keys and reports
// which key matched. Returns ErrNotFound if neither column matches.
func (s *SQLiteStore) GetRaidByKey(ctx context.Context, key string) (*Raid, KeyKind, error) {
	query := `
		SELECT raid_id, raid_user_key, raid_admin_key, title, dungeon_key, num_priorities, mode, created_on, comments
		FROM raids
		WHERE raid_user_key = ? OR raid_admin_key = ?
	`

	raid, err := s.scanRaid(s.db.QueryRowContext(ctx, query, key, key))
	if err != nil {
		return nil, KeyKindUnknown, err
	}

	switch key {
	case raid.AdminKey:
		return raid, KeyKindAdmin, nil
	case raid.UserKey:
		return raid, KeyKindUser, nil
	default:
		// Cannot happen given the WHERE clause.
		return nil, KeyKindUnknown, fmt.Errorf("raid %s matched neither key", raid.ID)
	}
}

func (s *SQLiteStore) scanRaid(row *sql.Row) (*Raid, error) {
	var raid Raid
	var createdOnStr string
	var dungeonKey, comments sql.NullString

	err := row.Scan(
		&raid.ID,
		&raid.UserKey,
		&raid.AdminKey,
		&raid.Title,
		&dungeonKey,
		&raid.NumPriorities,
		&raid.Mode,
		&createdOnStr,
		&comments,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning raid: %w", err)
	}

	raid.CreatedOn, err = time.Parse(time.RFC3339, createdOnStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_on: %w", err)
	}

	if dungeonKey.Valid {
		raid.DungeonKey = dungeonKey.String
	}
	if comments.Valid {
		raid.Comments = comments.String
	}

	return &raid, nil
}

// SetMode updates a raid's mode through its admin key. The transition is
// monotonic: a closed raid never reopens (ErrReopenClosed). Returns
// ErrNotFound if the admin key matches no raid.
func (s *SQLiteStore) SetMode(ctx context.Context, adminKey string, mode int) error {
	if mode != ModeOpen && mode != ModeClosed {
		return fmt.Errorf("invalid mode %d", mode)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE raids SET mode = ? WHERE raid_admin_key = ? AND mode <= ?`,
		mode, adminKey, mode,
	)
	if err != nil {
		return fmt.Errorf("updating raid mode: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish an unknown admin key from a blocked reopen.
		var current int
		err := s.db.QueryRowContext(ctx,
			`SELECT mode FROM raids WHERE raid_admin_key = ?`, adminKey,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying raid mode: %w", err)
		}
		return ErrReopenClosed
	}

	s.logger.Debug("set raid mode", "mode", mode)
	return nil
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
