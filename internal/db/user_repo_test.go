package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/types"
)

func TestUserRepository_GetRecipient_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"user-1"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "ada@example.com"
			name := "Ada"
			*dest[1].(**string) = &name
			return nil
		}})

	rec, err := repo.GetRecipient(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", rec.Email)
	assert.Equal(t, "Ada", rec.Name)
	assert.Equal(t, "user-1", rec.OwnerID)
	db.AssertExpectations(t)
}

func TestUserRepository_GetRecipient_ReadsOnlyIdentityColumns(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	onlyKnownColumns := mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "SELECT email, name") &&
			strings.Contains(sql, "WHERE id = $1") &&
			!strings.Contains(sql, "deleted_at")
	})
	db.On("QueryRow", mock.Anything, onlyKnownColumns, []any{"user-1"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*string) = "ada@example.com"
			return nil
		}})

	rec, err := repo.GetRecipient(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", rec.Email)
	assert.Empty(t, rec.Name)
	db.AssertExpectations(t)
}

func TestUserRepository_GetRecipient_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	rec, err := repo.GetRecipient(context.Background(), "ghost")
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, types.HasCode(err, types.ErrCodeNotFoundUser))
}

func TestUserRepository_GetRecipient_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewUserRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	_, err := repo.GetRecipient(context.Background(), "user-1")
	assert.True(t, types.HasCode(err, types.ErrCodeInternalDB))
}
