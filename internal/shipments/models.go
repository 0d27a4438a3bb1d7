package shipments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus tracks how much of a shipment's total the factory has paid.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Shipment is the billing record created when a factory verifies a token:
// the amount the factory owes the platform for the drop. Exactly one exists
// per verified token; the unique index on token_id is the backstop behind
// the state-guarded verify transition.
type Shipment struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TokenID          uuid.UUID       `json:"token_id" gorm:"type:uuid;uniqueIndex;not null"`
	TokenCode        string          `json:"token_code" gorm:"not null;index"`
	FactoryID        uuid.UUID       `json:"factory_id" gorm:"type:uuid;not null;index"`
	VendorID         uuid.UUID       `json:"vendor_id" gorm:"type:uuid;not null"`
	CollectorID      uuid.UUID       `json:"collector_id" gorm:"type:uuid;not null"`
	MaterialType     string          `json:"material_type" gorm:"not null"`
	WeightKg         decimal.Decimal `json:"weight_kg" gorm:"type:decimal(12,2);not null"`
	WeightTons       decimal.Decimal `json:"weight_tons" gorm:"type:decimal(12,4);not null"`
	RatePerTon       decimal.Decimal `json:"rate_per_ton" gorm:"type:decimal(14,2);not null"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2);not null"`
	PaymentStatus    PaymentStatus   `json:"payment_status" gorm:"default:'unpaid';index"`
	PaidAmount       decimal.Decimal `json:"paid_amount" gorm:"type:decimal(14,2);not null;default:0"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	VerifiedBy       uuid.UUID       `json:"verified_by" gorm:"type:uuid;not null"`
	VerifiedAt       time.Time       `json:"verified_at" gorm:"not null"`
	CreatedAt        time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// applyPayment adds amount to the paid total and resolves the resulting
// payment status. Paid amounts only ever increase.
func (s *Shipment) applyPayment(amount decimal.Decimal, reference string, now time.Time) {
	s.PaidAmount = s.PaidAmount.Add(amount)
	s.PaymentReference = reference
	if s.PaidAmount.GreaterThanOrEqual(s.TotalAmount) {
		s.PaymentStatus = PaymentPaid
		s.PaidAt = &now
	} else {
		s.PaymentStatus = PaymentPartial
	}
}
