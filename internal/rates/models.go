package rates

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rate is the admin-maintained price for one material type. The per-ton rate
// must stay within 1800x-2200x the per-kg rate: the 1000 kg/ton conversion
// plus markup tolerance.
type Rate struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	MaterialType string          `json:"material_type" gorm:"uniqueIndex;not null"`
	RatePerKg    decimal.Decimal `json:"rate_per_kg" gorm:"type:decimal(12,2);not null"`
	RatePerTon   decimal.Decimal `json:"rate_per_ton" gorm:"type:decimal(14,2);not null"`
	IsActive     bool            `json:"is_active" gorm:"default:true"`
	UpdatedBy    uuid.UUID       `json:"updated_by" gorm:"type:uuid"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// RateEdit is one row of the append-only rate change history. Edits are never
// updated or deleted; superseding edits are the only form of history.
type RateEdit struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	MaterialType string          `json:"material_type" gorm:"not null;index"`
	OldPerKg     decimal.Decimal `json:"old_per_kg" gorm:"type:decimal(12,2)"`
	NewPerKg     decimal.Decimal `json:"new_per_kg" gorm:"type:decimal(12,2);not null"`
	OldPerTon    decimal.Decimal `json:"old_per_ton" gorm:"type:decimal(14,2)"`
	NewPerTon    decimal.Decimal `json:"new_per_ton" gorm:"type:decimal(14,2);not null"`
	EditedBy     uuid.UUID       `json:"edited_by" gorm:"type:uuid;not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// RateChange is the before/after view returned by a successful edit.
type RateChange struct {
	MaterialType string          `json:"material_type"`
	OldPerKg     decimal.Decimal `json:"old_per_kg"`
	NewPerKg     decimal.Decimal `json:"new_per_kg"`
	OldPerTon    decimal.Decimal `json:"old_per_ton"`
	NewPerTon    decimal.Decimal `json:"new_per_ton"`
}
