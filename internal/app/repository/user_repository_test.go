package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) UserRepository {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return NewUserRepository(testDB)
}

func newCustomer(email string) *model.User {
	return &model.User{
		Email:        email,
		PasswordHash: "$2a$12$hash",
		Name:         "Ananya Iyer",
		Phone:        "+91 98200 11111",
		Role:         model.RoleUser,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := setupUserTest(t)
	ctx := context.Background()

	user := newCustomer("ananya@example.com")
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	err := repo.Create(ctx, newCustomer("ananya@example.com"))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	tests := []struct {
		name    string
		find    func() (*model.User, error)
		wantErr error
	}{
		{"by id", func() (*model.User, error) { return repo.FindByID(ctx, user.ID) }, nil},
		{"by email", func() (*model.User, error) { return repo.FindByEmail(ctx, "ananya@example.com") }, nil},
		{"by email, other case", func() (*model.User, error) { return repo.FindByEmail(ctx, "Ananya@Example.COM") }, nil},
		{"unknown id", func() (*model.User, error) { return repo.FindByID(ctx, 9999) }, gorm.ErrRecordNotFound},
		{"unknown email", func() (*model.User, error) { return repo.FindByEmail(ctx, "nobody@example.com") }, gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := tt.find()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, found.ID)
			assert.Equal(t, model.RoleUser, found.Role)
			assert.Nil(t, found.LastLoginAt)
		})
	}
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	repo := setupUserTest(t)
	ctx := context.Background()

	user := newCustomer("meera@example.com")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.UpdateProfile(ctx, user.ID, "Meera Nair", "+91 99000 33333"))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meera Nair", found.Name)
	assert.Equal(t, "+91 99000 33333", found.Phone)
	assert.Equal(t, user.PasswordHash, found.PasswordHash)
	assert.Equal(t, model.RoleUser, found.Role)

	assert.ErrorIs(t, repo.UpdateProfile(ctx, 9999, "Ghost", ""), gorm.ErrRecordNotFound)
}

func TestUserRepository_RecordLogin(t *testing.T) {
	repo := setupUserTest(t)
	ctx := context.Background()

	user := newCustomer("kabir@example.com")
	require.NoError(t, repo.Create(ctx, user))

	at := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin(ctx, user.ID, at))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, at.Equal(*found.LastLoginAt))
}
