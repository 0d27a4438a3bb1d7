package settlements

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

// Bucket classifies a settlement row for treasury review.
type Bucket string

const (
	BucketSettled Bucket = "settled"
	BucketPending Bucket = "pending"
	BucketFlagged Bucket = "flagged"
)

// Query selects the settlement view: which payee role, over which window,
// optionally narrowed to a location.
type Query struct {
	Role     auth.Role
	Start    time.Time
	End      time.Time
	Location string
	Limit    int
}

// Row is one token/shipment joined with the payee's identity and banking
// metadata.
type Row struct {
	TokenID       uuid.UUID        `json:"token_id"`
	TokenCode     string           `json:"token_code"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	OwnerName     string           `json:"owner_name"`
	BankName      string           `json:"bank_name"`
	AccountNumber string           `json:"account_number"`
	Location      string           `json:"location"`
	MaterialType  string           `json:"material_type"`
	WeightKg      decimal.Decimal  `json:"weight_kg"`
	Amount        decimal.Decimal  `json:"amount"`
	Status        workflows.Status `json:"status"`
	IsValid       bool             `json:"is_valid"`
	FlaggedReason string           `json:"flagged_reason,omitempty"`
	Bucket        Bucket           `json:"bucket"`
	CreatedAt     time.Time        `json:"created_at"`
	PaidOutAt     *time.Time       `json:"paid_out_at,omitempty"`
}

// Summary aggregates a settlement window.
type Summary struct {
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PendingAmount        decimal.Decimal `json:"pending_amount"`
	SettledCount         int             `json:"settled_count"`
	PendingCount         int             `json:"pending_count"`
	FlaggedCount         int             `json:"flagged_count"`
	AvgSettlementSeconds float64         `json:"avg_settlement_seconds"`
}

// Result is the full response of a settlement listing.
type Result struct {
	Summary Summary `json:"summary"`
	Rows    []Row   `json:"rows"`
}

// AdminAuditLog records an administrative disbursement, distinct from the
// token's own audit trail and tagged with the acting admin. Append-only.
type AdminAuditLog struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AdminID   uuid.UUID       `json:"admin_id" gorm:"type:uuid;not null;index"`
	Action    string          `json:"action" gorm:"not null"`
	TargetID  uuid.UUID       `json:"target_id" gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
