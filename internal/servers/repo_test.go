package servers

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
	"github.com/cythro/cythrodash-core/pkg/enums"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
)

func setupServersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS servers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  panel_server_id TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  billing_status TEXT NOT NULL DEFAULT 'active',
  monthly_cost INTEGER NOT NULL,
  next_due_at DATETIME,
  last_billed_at DATETIME,
  expiry_date DATETIME,
  auto_delete_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM servers")
	})
	return db
}

type serverSeed struct {
	status       enums.ServerStatus
	billing      enums.BillingStatus
	nextDueAt    *time.Time
	expiryDate   *time.Time
	autoDeleteAt *time.Time
}

func seedServer(t *testing.T, db *gorm.DB, seed serverSeed) *models.Server {
	t.Helper()
	server := &models.Server{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		PanelServerID: "panel-1",
		Name:          "mc-smp",
		Status:        seed.status,
		BillingStatus: seed.billing,
		MonthlyCost:   100,
		NextDueAt:     seed.nextDueAt,
		ExpiryDate:    seed.expiryDate,
		AutoDeleteAt:  seed.autoDeleteAt,
	}
	require.NoError(t, db.Create(server).Error)
	return server
}

func ptrTime(v time.Time) *time.Time { return &v }

func TestFindMissingExpirySkipsDeleted(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	missing := seedServer(t, db, serverSeed{status: enums.ServerStatusActive, billing: enums.BillingStatusActive})
	seedServer(t, db, serverSeed{status: enums.ServerStatusDeleted, billing: enums.BillingStatusTerminated})
	seedServer(t, db, serverSeed{
		status:     enums.ServerStatusActive,
		billing:    enums.BillingStatusActive,
		expiryDate: ptrTime(time.Now().Add(24 * time.Hour)),
	})

	found, err := repo.FindMissingExpiry(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, missing.ID, found[0].ID)
}

func TestFindDueForBillingIncludesOverdue(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	due := seedServer(t, db, serverSeed{
		status:    enums.ServerStatusActive,
		billing:   enums.BillingStatusActive,
		nextDueAt: ptrTime(now.Add(-time.Hour)),
	})
	overdue := seedServer(t, db, serverSeed{
		status:    enums.ServerStatusActive,
		billing:   enums.BillingStatusOverdue,
		nextDueAt: ptrTime(now.Add(-48 * time.Hour)),
	})
	// Not yet due.
	seedServer(t, db, serverSeed{
		status:    enums.ServerStatusActive,
		billing:   enums.BillingStatusActive,
		nextDueAt: ptrTime(now.Add(time.Hour)),
	})
	// Suspended servers are never billed.
	seedServer(t, db, serverSeed{
		status:    enums.ServerStatusSuspended,
		billing:   enums.BillingStatusSuspended,
		nextDueAt: ptrTime(now.Add(-time.Hour)),
	})

	found, err := repo.FindDueForBilling(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, overdue.ID, found[0].ID, "oldest due date first")
	assert.Equal(t, due.ID, found[1].ID)
}

func TestFindExpired(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	expired := seedServer(t, db, serverSeed{
		status:     enums.ServerStatusActive,
		billing:    enums.BillingStatusOverdue,
		expiryDate: ptrTime(now.Add(-time.Minute)),
	})
	seedServer(t, db, serverSeed{
		status:     enums.ServerStatusActive,
		billing:    enums.BillingStatusActive,
		expiryDate: ptrTime(now.Add(time.Hour)),
	})
	seedServer(t, db, serverSeed{
		status:     enums.ServerStatusSuspended,
		billing:    enums.BillingStatusSuspended,
		expiryDate: ptrTime(now.Add(-time.Hour)),
	})

	found, err := repo.FindExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, expired.ID, found[0].ID)
}

func TestFindSuspendedPastGrace(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	past := seedServer(t, db, serverSeed{
		status:       enums.ServerStatusSuspended,
		billing:      enums.BillingStatusSuspended,
		autoDeleteAt: ptrTime(now.Add(-time.Minute)),
	})
	seedServer(t, db, serverSeed{
		status:       enums.ServerStatusSuspended,
		billing:      enums.BillingStatusSuspended,
		autoDeleteAt: ptrTime(now.Add(time.Hour)),
	})

	found, err := repo.FindSuspendedPastGrace(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, past.ID, found[0].ID)
}

func TestFindAutoDeleteAnomalies(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	anomaly := seedServer(t, db, serverSeed{
		status:       enums.ServerStatusActive,
		billing:      enums.BillingStatusActive,
		autoDeleteAt: ptrTime(now.Add(time.Hour)),
	})
	seedServer(t, db, serverSeed{
		status:       enums.ServerStatusSuspended,
		billing:      enums.BillingStatusSuspended,
		autoDeleteAt: ptrTime(now.Add(time.Hour)),
	})

	found, err := repo.FindAutoDeleteAnomalies(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, anomaly.ID, found[0].ID)
}

func TestUpdateMissingServer(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)

	err := repo.Update(context.Background(), uuid.New(), map[string]any{"name": "renamed"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAndFindByID(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	server := seedServer(t, db, serverSeed{status: enums.ServerStatusActive, billing: enums.BillingStatusActive})

	err := repo.Update(ctx, server.ID, map[string]any{
		"status":         enums.ServerStatusSuspended,
		"billing_status": enums.BillingStatusSuspended,
		"auto_delete_at": now.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, server.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ServerStatusSuspended, found.Status)
	assert.Equal(t, enums.BillingStatusSuspended, found.BillingStatus)
	require.NotNil(t, found.AutoDeleteAt)
}

func TestCountByUserExcludesDeleted(t *testing.T) {
	db := setupServersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	for _, status := range []enums.ServerStatus{enums.ServerStatusActive, enums.ServerStatusSuspended, enums.ServerStatusDeleted} {
		server := &models.Server{
			ID:            uuid.New(),
			UserID:        userID,
			PanelServerID: "panel-1",
			Name:          "mc-smp",
			Status:        status,
			BillingStatus: enums.BillingStatusActive,
			MonthlyCost:   100,
		}
		require.NoError(t, db.Create(server).Error)
	}

	count, err := repo.CountByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
