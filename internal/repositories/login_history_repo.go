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

// LoginHistoryRepository keeps the capped per-account login audit trail.
type LoginHistoryRepository struct {
	db *database.DB
}

func NewLoginHistoryRepository(db *database.DB) *LoginHistoryRepository {
	return &LoginHistoryRepository{db: db}
}

// Record appends an entry and trims the account's history to the cap, oldest
// entries first.
func (r *LoginHistoryRepository) Record(ctx context.Context, entry *models.LoginHistoryEntry) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	insert := `
		INSERT INTO login_history (id, user_id, ip_address, user_agent, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	trim := `
		DELETE FROM login_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM login_history
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insert,
			entry.ID, entry.UserID, entry.IPAddress, entry.UserAgent,
			entry.Success, entry.CreatedAt,
		); err != nil {
			return database.MapPostgresError(err)
		}

		if _, err := tx.Exec(ctx, trim, entry.UserID, models.LoginHistoryCap); err != nil {
			return database.MapPostgresError(err)
		}
		return nil
	})
}

// ListForUser returns the account's history, newest first.
func (r *LoginHistoryRepository) ListForUser(ctx context.Context, userID string) ([]*models.LoginHistoryEntry, error) {
	query := `
		SELECT id, user_id, ip_address, user_agent, success, created_at
		FROM login_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, models.LoginHistoryCap)
	if err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LoginHistoryEntry, 0)
	for rows.Next() {
		var e models.LoginHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.IPAddress, &e.UserAgent, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan login history entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}
