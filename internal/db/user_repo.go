package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"taskpulse/internal/types"
)

// UserRepository resolves task owners to delivery addresses. The users table
// belongs to the account service; this repository only reads it.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetRecipient returns the email address and display name of ownerID.
func (r *UserRepository) GetRecipient(ctx context.Context, ownerID string) (*types.Recipient, error) {
	rec := types.Recipient{OwnerID: ownerID}
	var name *string
	err := r.db.QueryRow(ctx,
		`SELECT email, name
		 FROM users
		 WHERE id = $1`,
		ownerID,
	).Scan(&rec.Email, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "task owner not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to resolve recipient", err)
	}
	if name != nil {
		rec.Name = *name
	}
	return &rec, nil
}
