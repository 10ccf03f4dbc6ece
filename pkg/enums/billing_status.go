package enums

import "fmt"

// BillingStatus maps to the billing_status_enum enum in Postgres.
type BillingStatus string

const (
	BillingStatusActive     BillingStatus = "active"
	BillingStatusOverdue    BillingStatus = "overdue"
	BillingStatusSuspended  BillingStatus = "suspended"
	BillingStatusCancelled  BillingStatus = "cancelled"
	BillingStatusTerminated BillingStatus = "terminated"
)

var validBillingStatuses = []BillingStatus{
	BillingStatusActive,
	BillingStatusOverdue,
	BillingStatusSuspended,
	BillingStatusCancelled,
	BillingStatusTerminated,
}

// IsValid reports whether the value matches the canonical billing status enum.
func (s BillingStatus) IsValid() bool {
	for _, candidate := range validBillingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBillingStatus converts raw input into BillingStatus.
func ParseBillingStatus(value string) (BillingStatus, error) {
	for _, candidate := range validBillingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing status %q", value)
}
