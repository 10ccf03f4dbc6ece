package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cythro/cythrodash-core/internal/ledger"
	"github.com/cythro/cythrodash-core/pkg/config"
	"github.com/cythro/cythrodash-core/pkg/enums"
	pkgerrors "github.com/cythro/cythrodash-core/pkg/errors"
	"github.com/cythro/cythrodash-core/pkg/logger"
)

// granter is the slice of the ledger service the reward programs use.
type granter interface {
	GrantIfUnclaimed(ctx context.Context, input ledger.GrantInput) (*ledger.GrantResult, error)
}

// Service exposes the one-shot coin earning programs. Every grant is
// funneled through the ledger's claim-once primitive, so calling any of
// these twice is harmless.
type Service interface {
	DailyLogin(ctx context.Context, userID uuid.UUID, day time.Time) (*Outcome, error)
	FirstServer(ctx context.Context, userID uuid.UUID) (*Outcome, error)
	Referral(ctx context.Context, referrerID, referredID uuid.UUID) (*ReferralOutcome, error)
	SocialConnect(ctx context.Context, userID uuid.UUID, provider string) (*Outcome, error)
}

// Outcome reports whether a reward was granted and for how much.
// Already-claimed rewards come back with Granted=false and no error.
type Outcome struct {
	Granted bool
	Amount  int64
}

// ReferralOutcome reports both sides of a referral grant.
type ReferralOutcome struct {
	Referrer Outcome
	Referred Outcome
}

type service struct {
	logg    *logger.Logger
	ledger  granter
	amounts config.RewardsConfig
}

// Params configures the rewards service.
type Params struct {
	Logger  *logger.Logger
	Ledger  granter
	Amounts config.RewardsConfig
}

// NewService wires the rewards service.
func NewService(params Params) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		logg:    params.Logger,
		ledger:  params.Ledger,
		amounts: params.Amounts,
	}, nil
}

// DailyLogin credits the login reward for the given calendar day (UTC).
func (s *service) DailyLogin(ctx context.Context, userID uuid.UUID, day time.Time) (*Outcome, error) {
	return s.grant(ctx, ledger.GrantInput{
		UserID:      userID,
		Amount:      s.amounts.DailyLoginCoins,
		Category:    enums.LedgerCategoryPromotion,
		Action:      "daily_login",
		ReferenceID: ledger.DailyLoginReference(day),
		Message:     "daily login reward",
	})
}

// FirstServer credits the one-time bonus for creating a first server.
func (s *service) FirstServer(ctx context.Context, userID uuid.UUID) (*Outcome, error) {
	return s.grant(ctx, ledger.GrantInput{
		UserID:      userID,
		Amount:      s.amounts.FirstServerCoins,
		Category:    enums.LedgerCategoryPromotion,
		Action:      "first_server",
		ReferenceID: ledger.ReferenceFirstServer,
		Message:     "first server reward",
	})
}

// Referral credits both sides of a referral. Each side is its own
// claim; a failure on one side does not undo the other, and a re-run
// completes whichever side is still unclaimed.
func (s *service) Referral(ctx context.Context, referrerID, referredID uuid.UUID) (*ReferralOutcome, error) {
	if referrerID == uuid.Nil || referredID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referrer and referred user ids are required")
	}
	if referrerID == referredID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users cannot refer themselves")
	}

	outcome := &ReferralOutcome{}

	referrer, err := s.grant(ctx, ledger.GrantInput{
		UserID:      referrerID,
		Amount:      s.amounts.ReferrerCoins,
		Category:    enums.LedgerCategoryReferral,
		Action:      "referral_referrer",
		ReferenceID: fmt.Sprintf("%s_%s", ledger.ReferenceReferrer, referredID),
		Message:     "referral reward",
	})
	if err != nil {
		return nil, err
	}
	outcome.Referrer = *referrer

	referred, err := s.grant(ctx, ledger.GrantInput{
		UserID:      referredID,
		Amount:      s.amounts.ReferredCoins,
		Category:    enums.LedgerCategoryReferral,
		Action:      "referral_referred",
		ReferenceID: ledger.ReferenceReferred,
		Message:     "welcome referral reward",
	})
	if err != nil {
		return nil, err
	}
	outcome.Referred = *referred

	return outcome, nil
}

// SocialConnect credits the reward for linking a social account, once
// per provider.
func (s *service) SocialConnect(ctx context.Context, userID uuid.UUID, provider string) (*Outcome, error) {
	if provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider is required")
	}
	return s.grant(ctx, ledger.GrantInput{
		UserID:      userID,
		Amount:      s.amounts.SocialConnectCoins,
		Category:    enums.LedgerCategoryPromotion,
		Action:      "social_connect",
		ReferenceID: fmt.Sprintf("%s_%s", ledger.ReferenceSocialConnect, provider),
		Message:     fmt.Sprintf("connected %s account", provider),
	})
}

func (s *service) grant(ctx context.Context, input ledger.GrantInput) (*Outcome, error) {
	result, err := s.ledger.GrantIfUnclaimed(ctx, input)
	if err != nil {
		return nil, err
	}
	if !result.Granted {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_id":      input.UserID.String(),
			"reference_id": input.ReferenceID,
		})
		s.logg.Info(ctx, "reward already claimed")
		return &Outcome{Granted: false}, nil
	}
	return &Outcome{Granted: true, Amount: input.Amount}, nil
}
