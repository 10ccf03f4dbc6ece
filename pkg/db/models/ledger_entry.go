package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cythro/cythrodash-core/pkg/enums"
)

// LedgerEntry records an immutable coin balance change. The composite
// unique index on (user_id, reference_id) is the idempotency guarantee:
// a reward can be granted at most once per reference, and a billing
// period can be debited at most once per server.
type LedgerEntry struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uniq_ledger_user_reference,priority:1"`
	Delta          int64                `gorm:"column:delta;not null"`
	BalanceBefore  int64                `gorm:"column:balance_before;not null"`
	BalanceAfter   int64                `gorm:"column:balance_after;not null"`
	SourceCategory enums.LedgerCategory `gorm:"column:source_category;type:ledger_category_enum;not null"`
	SourceAction   string               `gorm:"column:source_action;type:text;not null"`
	ReferenceID    string               `gorm:"column:reference_id;type:text;not null;uniqueIndex:uniq_ledger_user_reference,priority:2"`
	Message        string               `gorm:"column:message;type:text"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
