package servers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cythro/cythrodash-core/pkg/db/models"
	"github.com/cythro/cythrodash-core/pkg/enums"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
)

// Repository manages persistence for servers. The Find* candidate
// queries feed the lifecycle passes; each takes the pass's reference
// time so runs are reproducible.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, server *models.Server) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Server, error)
	FindMissingExpiry(ctx context.Context) ([]models.Server, error)
	FindDueForBilling(ctx context.Context, now time.Time) ([]models.Server, error)
	FindExpired(ctx context.Context, now time.Time) ([]models.Server, error)
	FindSuspendedPastGrace(ctx context.Context, now time.Time) ([]models.Server, error)
	FindAutoDeleteAnomalies(ctx context.Context) ([]models.Server, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a server repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, server *models.Server) error {
	return r.db.WithContext(ctx).Create(server).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Server, error) {
	var server models.Server
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "server not found")
		}
		return nil, err
	}
	return &server, nil
}

// FindMissingExpiry returns non-deleted servers whose expiry_date was
// never set. Legacy rows only; the backfill pass repairs them.
func (r *repository) FindMissingExpiry(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).
		Where("expiry_date IS NULL AND status <> ?", enums.ServerStatusDeleted).
		Order("created_at ASC").
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

// FindDueForBilling returns active servers whose next due date has
// passed. Overdue servers stay in the result because their due date is
// not advanced until the debit succeeds.
func (r *repository) FindDueForBilling(ctx context.Context, now time.Time) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ServerStatusActive).
		Where("billing_status IN ?", []enums.BillingStatus{enums.BillingStatusActive, enums.BillingStatusOverdue}).
		Where("next_due_at IS NOT NULL AND next_due_at <= ?", now).
		Order("next_due_at ASC").
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

// FindExpired returns active servers whose expiry date has passed.
func (r *repository) FindExpired(ctx context.Context, now time.Time) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ServerStatusActive).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", now).
		Order("expiry_date ASC").
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

// FindSuspendedPastGrace returns suspended servers whose grace window
// has closed.
func (r *repository) FindSuspendedPastGrace(ctx context.Context, now time.Time) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ServerStatusSuspended).
		Where("auto_delete_at IS NOT NULL AND auto_delete_at <= ?", now).
		Order("auto_delete_at ASC").
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

// FindAutoDeleteAnomalies returns rows carrying a deletion deadline in
// a state that should not have one. The lifecycle pass logs these and
// leaves them alone.
func (r *repository) FindAutoDeleteAnomalies(ctx context.Context) ([]models.Server, error) {
	var servers []models.Server
	err := r.db.WithContext(ctx).
		Where("auto_delete_at IS NOT NULL").
		Where("status NOT IN ?", []enums.ServerStatus{enums.ServerStatusSuspended, enums.ServerStatusDeleted}).
		Find(&servers).Error
	if err != nil {
		return nil, err
	}
	return servers, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.Server{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "server not found")
	}
	return nil
}

func (r *repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Server{}).
		Where("user_id = ? AND status <> ?", userID, enums.ServerStatusDeleted).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
