package enums

import "fmt"

// LedgerCategory maps to the ledger_category_enum enum in Postgres.
type LedgerCategory string

const (
	LedgerCategoryPromotion LedgerCategory = "promotion"
	LedgerCategoryBilling   LedgerCategory = "billing"
	LedgerCategoryReferral  LedgerCategory = "referral"
	LedgerCategoryTransfer  LedgerCategory = "transfer"
)

var validLedgerCategories = []LedgerCategory{
	LedgerCategoryPromotion,
	LedgerCategoryBilling,
	LedgerCategoryReferral,
	LedgerCategoryTransfer,
}

// IsValid reports whether the value matches the canonical ledger category enum.
func (c LedgerCategory) IsValid() bool {
	for _, candidate := range validLedgerCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseLedgerCategory converts raw input into LedgerCategory.
func ParseLedgerCategory(value string) (LedgerCategory, error) {
	for _, candidate := range validLedgerCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger category %q", value)
}
