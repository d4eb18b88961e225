package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/database"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, token_hash, device_info, created_at, expires_at, last_used_at`

// SessionRepository is the server-side session table: one row per active
// refresh token.
type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var s models.Session
	var lastUsedAt *time.Time

	err := scanner.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.DeviceInfo,
		&s.CreatedAt, &s.ExpiresAt, &lastUsedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	s.LastUsedAt = lastUsedAt
	return &s, nil
}

// Add appends a session record and evicts the oldest rows beyond maxSessions
// so a device that never logs out cannot grow the table without bound.
func (r *SessionRepository) Add(ctx context.Context, session *models.Session, maxSessions int) (*models.Session, error) {
	session.ID = uuid.New().String()
	session.CreatedAt = time.Now()

	insert := `
		INSERT INTO user_sessions (id, user_id, token_hash, device_info, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns

	evict := `
		DELETE FROM user_sessions
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM user_sessions
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`

	var created *models.Session
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = scanSessionRow(tx.QueryRow(ctx, insert,
			session.ID, session.UserID, session.TokenHash,
			session.DeviceInfo, session.CreatedAt, session.ExpiresAt,
		))
		if err != nil {
			return err
		}

		if maxSessions > 0 {
			if _, err := tx.Exec(ctx, evict, session.UserID, maxSessions); err != nil {
				return database.MapPostgresError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// FindValid returns the session for a token hash only when the row exists and
// has not expired. Expired-but-present rows are invalid without being purged
// here; the background sweep removes them.
func (r *SessionRepository) FindValid(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE token_hash = $1 AND expires_at > NOW()`
	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, tokenHash))
}

// TouchLastUsed stamps a successful refresh on the session record.
func (r *SessionRepository) TouchLastUsed(ctx context.Context, id string) error {
	query := `UPDATE user_sessions SET last_used_at = $1 WHERE id = $2`

	_, err := r.db.Pool.Exec(ctx, query, time.Now(), id)
	return database.MapPostgresError(err)
}

// Remove deletes the single session matching a token hash. Logout is
// idempotent at the store level; the caller decides whether a missing row is
// an error.
func (r *SessionRepository) Remove(ctx context.Context, tokenHash string) (bool, error) {
	query := `DELETE FROM user_sessions WHERE token_hash = $1`

	result, err := r.db.Pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() > 0, nil
}

// ClearForUser empties the account's session list (logout-all, password
// change/reset).
func (r *SessionRepository) ClearForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM user_sessions WHERE user_id = $1`

	_, err := r.db.Pool.Exec(ctx, query, userID)
	return database.MapPostgresError(err)
}

// ClearForUserTx is ClearForUser inside a caller-owned transaction, used by
// the password-change path so the hash swap and the session cascade land
// atomically.
func (r *SessionRepository) ClearForUserTx(ctx context.Context, tx pgx.Tx, userID string) error {
	query := `DELETE FROM user_sessions WHERE user_id = $1`

	_, err := tx.Exec(ctx, query, userID)
	return database.MapPostgresError(err)
}

// ListForUser returns the account's session records, newest first, for the
// sessions view.
func (r *SessionRepository) ListForUser(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return sessions, nil
}

// CleanupExpired removes sessions past their expiry. Called by the background
// sweep.
func (r *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM user_sessions WHERE expires_at <= NOW()`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
