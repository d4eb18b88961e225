package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/database"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, username, password_hash, role, is_active, email_verified, password_changed_at, failed_login_attempts, locked_until, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// rowScanner interface for scanning user rows (single row or result set)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var role string
	var passwordChangedAt, lockedUntil *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&role, &user.IsActive, &user.EmailVerified,
		&passwordChangedAt, &user.FailedLoginAttempts, &lockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Role = models.Role(role)
	user.PasswordChangedAt = passwordChangedAt
	user.LockedUntil = lockedUntil

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByEmail looks an account up by email. Emails are stored lowercase and the
// lookup normalizes, so matching is case-insensitive.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.db.Pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.Email = strings.ToLower(user.Email)

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (id, email, username, password_hash, role, is_active, email_verified, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash,
		string(user.Role), user.IsActive, user.EmailVerified,
		user.PasswordChangedAt, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateProfile mutates the caller-editable fields. An email change comes back
// unverified; the service layer is responsible for kicking off re-verification.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, username, email string, emailVerified bool) (*models.User, error) {
	query := `
		UPDATE users SET username = $1, email = $2, email_verified = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + userColumns

	return scanUserRow(r.db.Pool.QueryRow(ctx, query,
		username, strings.ToLower(email), emailVerified, time.Now(), id,
	))
}

// SetPassword replaces the password hash and stamps password_changed_at. The
// session cascade (every active session dies on password change) is enforced
// by the service inside one transaction with SessionRepository.ClearForUser.
func (r *UserRepository) SetPassword(ctx context.Context, tx pgx.Tx, id, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $1, password_changed_at = $2, updated_at = $2
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, passwordHash, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkEmailVerified flips the verification flag.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := `UPDATE users SET email_verified = TRUE, updated_at = $1 WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetActive toggles the login gate on an account.
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, active, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordFailedAttempt bumps the failed-login counter and applies a temporary
// lock once the threshold is crossed.
func (r *UserRepository) RecordFailedAttempt(ctx context.Context, id string, maxFailed int, lockFor time.Duration) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= $1 THEN $2 ELSE locked_until END,
		    updated_at = $3
		WHERE id = $4
	`

	now := time.Now()
	_, err := r.db.Pool.Exec(ctx, query, maxFailed, now.Add(lockFor), now, id)
	return database.MapPostgresError(err)
}

// ClearFailedAttempts resets the lockout state after a successful login.
func (r *UserRepository) ClearFailedAttempts(ctx context.Context, id string) error {
	query := `
		UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = $1
		WHERE id = $2
	`

	_, err := r.db.Pool.Exec(ctx, query, time.Now(), id)
	return database.MapPostgresError(err)
}

// Delete removes an account. Sessions, action tokens and login history go with
// it through ON DELETE CASCADE, which is the implicit cascade-invalidation of
// every refresh token the account held.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
