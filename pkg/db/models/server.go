package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cythro/cythrodash-core/pkg/enums"
)

// Server is one provisioned game server owned by a user. Billing fields
// drive the lifecycle passes: NextDueAt schedules the coin debit,
// ExpiryDate schedules suspension, AutoDeleteAt ends the grace window.
// ExpiryDate is nullable because legacy rows predate it; the backfill
// pass repairs them.
type Server struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PanelServerID string              `gorm:"column:panel_server_id;type:text;not null"`
	Name          string              `gorm:"type:text;not null"`
	Status        enums.ServerStatus  `gorm:"column:status;type:server_status_enum;not null;default:active"`
	BillingStatus enums.BillingStatus `gorm:"column:billing_status;type:billing_status_enum;not null;default:active"`
	MonthlyCost   int64               `gorm:"column:monthly_cost;not null"`
	NextDueAt     *time.Time          `gorm:"column:next_due_at"`
	LastBilledAt  *time.Time          `gorm:"column:last_billed_at"`
	ExpiryDate    *time.Time          `gorm:"column:expiry_date"`
	AutoDeleteAt  *time.Time          `gorm:"column:auto_delete_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
