package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cythro/cythrodash-core/internal/users"
	"github.com/cythro/cythrodash-core/pkg/db"
	"github.com/cythro/cythrodash-core/pkg/db/models"
	"github.com/cythro/cythrodash-core/pkg/enums"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
)

const uniqueReferenceConstraint = "uniq_ledger_user_reference"

// txRunner abstracts the transactional boundary so tests can swap in a
// lighter database handle.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records balance changes alongside their ledger entries. Every
// mutation goes through a transaction that couples the coin adjustment
// to the entry insert; neither persists without the other.
type Service interface {
	GrantIfUnclaimed(ctx context.Context, input GrantInput) (*GrantResult, error)
	RecordDebit(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.LedgerEntry, error)
	Query(ctx context.Context, params QueryParams) ([]models.LedgerEntry, int64, error)
}

// QueryParams filters a ledger listing. Category is optional; page and
// limit are normalized by pkg/pagination.
type QueryParams struct {
	UserID   uuid.UUID
	Category enums.LedgerCategory
	Page     int
	Limit    int
}

type service struct {
	repo  Repository
	users users.Repository
	tx    txRunner
}

// GrantInput describes a reward credit keyed by a reference ID.
type GrantInput struct {
	UserID      uuid.UUID
	Amount      int64
	Category    enums.LedgerCategory
	Action      string
	ReferenceID string
	Message     string
}

// GrantResult reports whether the grant was applied or already claimed.
type GrantResult struct {
	Granted bool
	Entry   *models.LedgerEntry
	Balance int64
}

// DebitInput describes a charge against a user's balance.
type DebitInput struct {
	UserID      uuid.UUID
	Amount      int64
	Category    enums.LedgerCategory
	Action      string
	ReferenceID string
	Message     string
}

// NewService wires a ledger service with its repositories and the
// transactional runner.
func NewService(repo Repository, userRepo users.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, users: userRepo, tx: tx}, nil
}

// GrantIfUnclaimed credits the user once per reference ID. Concurrent
// claims race to insert the ledger entry; the loser hits the unique
// constraint, rolls back its credit, and returns Granted=false with no
// error.
func (s *service) GrantIfUnclaimed(ctx context.Context, input GrantInput) (*GrantResult, error) {
	if err := validateGrant(input); err != nil {
		return nil, err
	}

	// Fast path: skip the transaction entirely when the reward was
	// already claimed.
	if _, err := s.repo.FindByUserAndReference(ctx, input.UserID, input.ReferenceID); err == nil {
		return &GrantResult{Granted: false}, nil
	} else if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		after, err := s.users.WithTx(tx).AdjustCoins(ctx, input.UserID, input.Amount)
		if err != nil {
			return err
		}

		entry = &models.LedgerEntry{
			ID:             uuid.New(),
			UserID:         input.UserID,
			Delta:          input.Amount,
			BalanceBefore:  after - input.Amount,
			BalanceAfter:   after,
			SourceCategory: input.Category,
			SourceAction:   input.Action,
			ReferenceID:    input.ReferenceID,
			Message:        input.Message,
		}
		return s.repo.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		if db.IsUniqueViolation(err, uniqueReferenceConstraint) {
			return &GrantResult{Granted: false}, nil
		}
		return nil, err
	}

	return &GrantResult{Granted: true, Entry: entry, Balance: entry.BalanceAfter}, nil
}

// RecordDebit charges the user inside the caller's transaction. The
// caller owns the transaction so the debit commits or rolls back with
// whatever state change it pays for.
func (s *service) RecordDebit(ctx context.Context, tx *gorm.DB, input DebitInput) (*models.LedgerEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit requires a transaction")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger category %q", input.Category))
	}
	if input.ReferenceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}

	after, err := s.users.WithTx(tx).AdjustCoins(ctx, input.UserID, -input.Amount)
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		ID:             uuid.New(),
		UserID:         input.UserID,
		Delta:          -input.Amount,
		BalanceBefore:  after + input.Amount,
		BalanceAfter:   after,
		SourceCategory: input.Category,
		SourceAction:   input.Action,
		ReferenceID:    input.ReferenceID,
		Message:        input.Message,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, uniqueReferenceConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "billing period already settled")
		}
		return nil, err
	}
	return entry, nil
}

func (s *service) Query(ctx context.Context, params QueryParams) ([]models.LedgerEntry, int64, error) {
	if params.UserID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if params.Category != "" && !params.Category.IsValid() {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger category %q", params.Category))
	}
	return s.repo.List(ctx, ListFilter{
		UserID:   params.UserID,
		Category: params.Category,
		Page:     params.Page,
		Limit:    params.Limit,
	})
}

func validateGrant(input GrantInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "grant amount must be positive")
	}
	if !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger category %q", input.Category))
	}
	if input.ReferenceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}
	return nil
}
