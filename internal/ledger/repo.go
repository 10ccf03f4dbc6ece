package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cythro/cythrodash-core/pkg/db/models"
	"github.com/cythro/cythrodash-core/pkg/enums"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
	"github.com/cythro/cythrodash-core/pkg/pagination"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByUserAndReference(ctx context.Context, userID uuid.UUID, referenceID string) (*models.LedgerEntry, error)
	List(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, int64, error)
}

// ListFilter narrows a ledger listing. Category is optional.
type ListFilter struct {
	UserID   uuid.UUID
	Category enums.LedgerCategory
	Page     int
	Limit    int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByUserAndReference(ctx context.Context, userID uuid.UUID, referenceID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND reference_id = ?", userID, referenceID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.LedgerEntry, int64, error) {
	limit := pagination.NormalizeLimit(filter.Limit)
	page := pagination.NormalizePage(filter.Page)

	base := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", filter.UserID)
	if filter.Category != "" {
		base = base.Where("source_category = ?", filter.Category)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LedgerEntry
	err := base.
		Order("created_at DESC").
		Offset(pagination.Offset(page, limit)).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
