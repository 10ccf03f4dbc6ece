package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reference IDs for one-shot rewards. Each pairs with the composite
// unique index on (user_id, reference_id), so a user can earn them at
// most once.
const (
	ReferenceFirstServer   = "first_server_reward"
	ReferenceSocialConnect = "social_connect_reward"
	ReferenceReferrer      = "referral_referrer_reward"
	ReferenceReferred      = "referral_referred_reward"
)

// DailyLoginReference returns the reference ID for the given day's
// login reward. The day component makes the reward claimable once per
// calendar day in UTC.
func DailyLoginReference(day time.Time) string {
	return fmt.Sprintf("daily_login_%s", day.UTC().Format("2006-01-02"))
}

// BillingReference returns the reference ID for one server billing
// period. The period timestamp is the due date being settled, so a
// retried billing pass cannot debit the same period twice.
func BillingReference(serverID uuid.UUID, period time.Time) string {
	return fmt.Sprintf("server_billing_%s_%s", serverID, period.UTC().Format(time.RFC3339))
}
