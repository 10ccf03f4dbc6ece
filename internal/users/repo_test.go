package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cythro/cythrodash-core/pkg/db/models"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL,
  coins INTEGER NOT NULL DEFAULT 0,
  role INTEGER NOT NULL DEFAULT 1,
  referred_by TEXT,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, coins int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Username: "tester",
		Coins:    coins,
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestAdjustCoinsCreditsAndDebits(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 100)

	balance, err := repo.AdjustCoins(ctx, user.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	balance, err = repo.AdjustCoins(ctx, user.ID, -150)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestAdjustCoinsRefusesOverdraw(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 10)

	_, err := repo.AdjustCoins(ctx, user.ID, -11)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds))

	balance, err := repo.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance, "refused debit must leave the balance untouched")
}

func TestAdjustCoinsMissingUser(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.AdjustCoins(context.Background(), uuid.New(), 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestFindByID(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 25)

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, int64(25), found.Coins)

	_, err = repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateLastLogin(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 0)
	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.WithinDuration(t, at, *found.LastLoginAt, time.Second)
}

func TestWithTxRebindsConnection(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, 0)

	tx := db.Begin()
	require.NoError(t, tx.Error)
	txRepo := repo.WithTx(tx)

	_, err := txRepo.AdjustCoins(ctx, user.ID, 40)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback().Error)

	balance, err := repo.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "rolled back credit must not persist")
}
