// ABOUTME: Registration and softlock persistence scoped to a raid
// ABOUTME: Enforces capacity, identity uniqueness and transactional multi-row writes

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Register inserts a registration with its softlock rows in one transaction.
// It enforces the raid's priority slot count, the per-raid name/id identity
// invariant, and the capacity cap. The capacity count runs inside the same
// transaction as the insert, so concurrent bursts cannot overshoot the cap.
func (s *SQLiteStore) Register(ctx context.Context, raid *Raid, nr NewRegistration) (*Registration, error) {
	if len(nr.Priorities) != raid.NumPriorities {
		return nil, ErrInvalidPriorities
	}

	reg := &Registration{
		RaidID:       raid.ID,
		UserID:       nr.UserID,
		UserName:     nr.UserName,
		Class:        nr.Class,
		Role:         nr.Role,
		Priorities:   nr.Priorities,
		RegisteredOn: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Same name under another id, or same id under another name, means a
	// hijacked or confused identity; both are rejected outright.
	var conflicts int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE raid_id = ? AND (user_name = ? OR user_id = ?)
	`, raid.ID, nr.UserName, nr.UserID).Scan(&conflicts)
	if err != nil {
		return nil, fmt.Errorf("checking identity conflicts: %w", err)
	}
	if conflicts > 0 {
		return nil, ErrDuplicateRegistration
	}

	var count int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE raid_id = ?`, raid.ID).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("counting registrations: %w", err)
	}
	if count >= MaxRegistrations {
		return nil, ErrCapacityReached
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (raid_id, user_id, user_name, class, role, registered_on)
		VALUES (?, ?, ?, ?, ?, ?)
	`, reg.RaidID, reg.UserID, reg.UserName, reg.Class, reg.Role,
		reg.RegisteredOn.Format(time.RFC3339))
	if err != nil {
		if isConstraintViolation(err) {
			return nil, ErrDuplicateRegistration
		}
		return nil, fmt.Errorf("inserting registration: %w", err)
	}

	// Slots left empty store nothing; rank is 1-based.
	for i, item := range reg.Priorities {
		if item == nil || *item == "" {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO softlocks (raid_id, user_id, priority, item_name)
			VALUES (?, ?, ?, ?)
		`, reg.RaidID, reg.UserID, i+1, *item)
		if err != nil {
			return nil, fmt.Errorf("inserting softlock rank %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing registration: %w", err)
	}

	s.logger.Debug("registered user", "raid_id", reg.RaidID, "user_name", reg.UserName)
	return reg, nil
}

// GetRegistration retrieves one registration with its priorities
// reconstructed to the raid's fixed-length array.
// Returns ErrNotFound if no registration exists for the user.
func (s *SQLiteStore) GetRegistration(ctx context.Context, raid *Raid, userID string) (*Registration, error) {
	query := `
		SELECT raid_id, user_id, user_name, class, role, registered_on
		FROM users
		WHERE raid_id = ? AND user_id = ?
	`

	var reg Registration
	var registeredOnStr string

	err := s.db.QueryRowContext(ctx, query, raid.ID, userID).Scan(
		&reg.RaidID,
		&reg.UserID,
		&reg.UserName,
		&reg.Class,
		&reg.Role,
		&registeredOnStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying registration: %w", err)
	}

	reg.RegisteredOn, err = time.Parse(time.RFC3339, registeredOnStr)
	if err != nil {
		return nil, fmt.Errorf("parsing registered_on: %w", err)
	}

	reg.Priorities, err = s.loadPriorities(ctx, raid, userID)
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

// loadPriorities reads the sparse softlock rows for one user and fills a
// fixed-size array. A stored rank outside [1, numPriorities] means the
// database no longer matches the raid's configuration and is fatal.
func (s *SQLiteStore) loadPriorities(ctx context.Context, raid *Raid, userID string) ([]*string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT priority, item_name FROM softlocks
		WHERE raid_id = ? AND user_id = ?
	`, raid.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying softlocks: %w", err)
	}
	defer rows.Close()

	priorities := make([]*string, raid.NumPriorities)
	for rows.Next() {
		var rank int
		var item string
		if err := rows.Scan(&rank, &item); err != nil {
			return nil, fmt.Errorf("scanning softlock row: %w", err)
		}
		if rank < 1 || rank > raid.NumPriorities {
			return nil, fmt.Errorf("softlock rank %d out of range for raid %s (max %d)", rank, raid.ID, raid.NumPriorities)
		}
		itemCopy := item
		priorities[rank-1] = &itemCopy
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating softlock rows: %w", err)
	}

	return priorities, nil
}

// ListRoster returns the restricted roster view for a raid, ordered by
// registration time ascending. Priority choices are never included.
func (s *SQLiteStore) ListRoster(ctx context.Context, raidID string) ([]RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_name, class, role, registered_on
		FROM users
		WHERE raid_id = ?
		ORDER BY registered_on ASC, user_name ASC
	`, raidID)
	if err != nil {
		return nil, fmt.Errorf("querying roster: %w", err)
	}
	defer rows.Close()

	var roster []RosterEntry
	for rows.Next() {
		var entry RosterEntry
		var registeredOnStr string

		if err := rows.Scan(&entry.UserName, &entry.Class, &entry.Role, &registeredOnStr); err != nil {
			return nil, fmt.Errorf("scanning roster row: %w", err)
		}

		entry.RegisteredOn, err = time.Parse(time.RFC3339, registeredOnStr)
		if err != nil {
			return nil, fmt.Errorf("parsing registered_on: %w", err)
		}

		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roster rows: %w", err)
	}

	return roster, nil
}

// ListRegistrations returns the full registration records for a raid,
// including reconstructed priority arrays, ordered by registration time.
func (s *SQLiteStore) ListRegistrations(ctx context.Context, raid *Raid) ([]*Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT raid_id, user_id, user_name, class, role, registered_on
		FROM users
		WHERE raid_id = ?
		ORDER BY registered_on ASC, user_name ASC
	`, raid.ID)
	if err != nil {
		return nil, fmt.Errorf("querying registrations: %w", err)
	}
	defer rows.Close()

	var regs []*Registration
	for rows.Next() {
		var reg Registration
		var registeredOnStr string

		if err := rows.Scan(&reg.RaidID, &reg.UserID, &reg.UserName, &reg.Class, &reg.Role, &registeredOnStr); err != nil {
			return nil, fmt.Errorf("scanning registration row: %w", err)
		}

		reg.RegisteredOn, err = time.Parse(time.RFC3339, registeredOnStr)
		if err != nil {
			return nil, fmt.Errorf("parsing registered_on: %w", err)
		}

		regs = append(regs, &reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating registration rows: %w", err)
	}

	for _, reg := range regs {
		reg.Priorities, err = s.loadPriorities(ctx, raid, reg.UserID)
		if err != nil {
			return nil, err
		}
	}

	return regs, nil
}

// CountRegistrations returns the number of registrations in a raid.
func (s *SQLiteStore) CountRegistrations(ctx context.Context, raidID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE raid_id = ?`, raidID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting registrations: %w", err)
	}
	return count, nil
}

// DeleteRegistration removes a user's own registration and its softlock
// rows transactionally. Returns ErrNotFound when no registration matched;
// self-service cancellation of nothing is an error, unlike the admin path.
func (s *SQLiteStore) DeleteRegistration(ctx context.Context, raidID, userID string) error {
	deleted, err := s.deleteWhere(ctx, raidID, "user_id", userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Debug("deleted registration", "raid_id", raidID)
	return nil
}

// DeleteRegistrationByName removes a registration by name on behalf of the
// raid admin. Deleting a name that isn't registered is a silent no-op.
func (s *SQLiteStore) DeleteRegistrationByName(ctx context.Context, raidID, userName string) error {
	deleted, err := s.deleteWhere(ctx, raidID, "user_name", userName)
	if err != nil {
		return err
	}
	if deleted {
		s.logger.Debug("admin deleted registration", "raid_id", raidID, "user_name", userName)
	}
	return nil
}

// deleteWhere removes one registration matched on the given column along
// with its softlock rows, all-or-nothing. Reports whether a row was removed.
func (s *SQLiteStore) deleteWhere(ctx context.Context, raidID, column, value string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Resolve the user id first so softlock rows can be removed when the
	// match is by name.
	var userID string
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT user_id FROM users WHERE raid_id = ? AND %s = ?`, column),
		raidID, value,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolving registration: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM softlocks WHERE raid_id = ? AND user_id = ?`,
		raidID, userID,
	); err != nil {
		return false, fmt.Errorf("deleting softlocks: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE raid_id = ? AND user_id = ?`,
		raidID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting registration: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}

	return rowsAffected > 0, nil
}
