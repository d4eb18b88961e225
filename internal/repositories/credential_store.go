package repositories

import (
	"context"

	"github.com/code-sharad/inventory-management-sub000/internal/database"
	"github.com/jackc/pgx/v5"
)

// CredentialStore couples the password mutation to the session cascade: the
// moment a password changes, every existing session for the account is
// invalidated. The two writes land in one transaction so there is no window
// where the new password coexists with old sessions.
type CredentialStore struct {
	db       *database.DB
	users    *UserRepository
	sessions *SessionRepository
}

func NewCredentialStore(db *database.DB, users *UserRepository, sessions *SessionRepository) *CredentialStore {
	return &CredentialStore{db: db, users: users, sessions: sessions}
}

// SetPassword replaces the password hash, stamps password_changed_at and
// clears the account's refresh-token records.
func (s *CredentialStore) SetPassword(ctx context.Context, userID, passwordHash string) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.users.SetPassword(ctx, tx, userID, passwordHash); err != nil {
			return err
		}
		return s.sessions.ClearForUserTx(ctx, tx, userID)
	})
}
