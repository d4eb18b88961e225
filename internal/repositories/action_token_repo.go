package repositories

import (
	"context"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/database"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/google/uuid"
)

const actionTokenColumns = `id, user_id, purpose, token_hash, expires_at, used_at, created_at`

// ActionTokenRepository stores hashed one-time tokens for password reset and
// email verification.
type ActionTokenRepository struct {
	db *database.DB
}

func NewActionTokenRepository(db *database.DB) *ActionTokenRepository {
	return &ActionTokenRepository{db: db}
}

func scanActionTokenRow(scanner rowScanner) (*models.ActionToken, error) {
	var t models.ActionToken
	var purpose string
	var usedAt *time.Time

	err := scanner.Scan(
		&t.ID, &t.UserID, &purpose, &t.TokenHash,
		&t.ExpiresAt, &usedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	t.Purpose = models.ActionTokenPurpose(purpose)
	t.UsedAt = usedAt
	return &t, nil
}

// Create stores a new token, replacing any outstanding token for the same
// user and purpose so only the most recent mail is honored.
func (r *ActionTokenRepository) Create(ctx context.Context, userID string, purpose models.ActionTokenPurpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error) {
	del := `DELETE FROM auth_action_tokens WHERE user_id = $1 AND purpose = $2`
	if _, err := r.db.Pool.Exec(ctx, del, userID, string(purpose)); err != nil {
		return nil, database.MapPostgresError(err)
	}

	insert := `
		INSERT INTO auth_action_tokens (id, user_id, purpose, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + actionTokenColumns

	return scanActionTokenRow(r.db.Pool.QueryRow(ctx, insert,
		uuid.New().String(), userID, string(purpose), tokenHash, expiresAt, time.Now(),
	))
}

// GetByTokenHash returns the token row for a hash and purpose, used or not;
// validity checks are the model's.
func (r *ActionTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
	query := `SELECT ` + actionTokenColumns + ` FROM auth_action_tokens WHERE token_hash = $1 AND purpose = $2`
	return scanActionTokenRow(r.db.Pool.QueryRow(ctx, query, tokenHash, string(purpose)))
}

// MarkAsUsed consumes a token. A consumed token never validates again.
func (r *ActionTokenRepository) MarkAsUsed(ctx context.Context, id string) error {
	query := `UPDATE auth_action_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`

	result, err := r.db.Pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrActionTokenInvalid
	}
	return nil
}

// CleanupExpired removes expired and consumed tokens.
func (r *ActionTokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM auth_action_tokens WHERE expires_at <= NOW() OR used_at IS NOT NULL`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
