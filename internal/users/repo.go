package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cythro/cythrodash-core/pkg/db/models"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
)

// Repository exposes user-related persistence operations. Coin balances
// are only mutated through AdjustCoins so that billing debits and reward
// credits share one guarded update path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetBalance(ctx context.Context, id uuid.UUID) (int64, error)
	AdjustCoins(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetBalance(ctx context.Context, id uuid.UUID) (int64, error) {
	var coins int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("coins").
		Where("id = ?", id).
		Take(&coins).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return 0, err
	}
	return coins, nil
}

// AdjustCoins applies delta atomically in the database. The WHERE clause
// refuses any update that would drive the balance negative, so a debit
// racing another debit can never overdraw.
func (r *repository) AdjustCoins(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND coins + ? >= 0", id, delta).
		UpdateColumn("coins", gorm.Expr("coins + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing user from a refused debit.
		if _, err := r.GetBalance(ctx, id); err != nil {
			return 0, err
		}
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "coin balance too low")
	}
	return r.GetBalance(ctx, id)
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
