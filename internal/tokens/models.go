package tokens

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

// Token is the record of one physical waste drop moving from vendor
// authentication through factory verification to payout. Tokens are never
// deleted; cancelled and disputed tokens are retained for audit.
type Token struct {
	ID                uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code              string           `json:"code" gorm:"uniqueIndex;not null"`
	CollectorID       uuid.UUID        `json:"collector_id" gorm:"type:uuid;not null;index"`
	VendorID          uuid.UUID        `json:"vendor_id" gorm:"type:uuid;not null;index"`
	FactoryID         *uuid.UUID       `json:"factory_id,omitempty" gorm:"type:uuid;index"`
	MaterialType      string           `json:"material_type" gorm:"not null;index"`
	WeightKg          decimal.Decimal  `json:"weight_kg" gorm:"type:decimal(12,2);not null"`
	Amount            decimal.Decimal  `json:"amount" gorm:"type:decimal(14,2);not null"`
	RatePerKgSnapshot decimal.Decimal  `json:"rate_per_kg_snapshot" gorm:"type:decimal(12,2);not null"`
	Status            workflows.Status `json:"status" gorm:"not null;index"`
	IsValid           bool             `json:"is_valid" gorm:"default:true"`
	FlaggedReason     string           `json:"flagged_reason,omitempty"`
	Notes             string           `json:"notes"`
	AuthenticatedAt   *time.Time       `json:"authenticated_at,omitempty"`
	TransferredAt     *time.Time       `json:"transferred_at,omitempty"`
	VerifiedAt        *time.Time       `json:"verified_at,omitempty"`
	PaidOutAt         *time.Time       `json:"paid_out_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt         time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// EventAction names a token audit event.
type EventAction string

const (
	ActionAuthenticated EventAction = "authenticated"
	ActionTransferred   EventAction = "transferred_to_factory"
	ActionVerified      EventAction = "verified"
	ActionApproved      EventAction = "payment_approved"
	ActionReleased      EventAction = "payment_released"
	ActionDisputed      EventAction = "disputed"
	ActionCancelled     EventAction = "cancelled"
	ActionFlagged       EventAction = "flagged"
)

// EventMetadata is the structured payload attached to an audit event. Every
// field is explicit; consumers never probe a free-form map for optional keys.
type EventMetadata struct {
	WeightKg   *decimal.Decimal `json:"weight_kg,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	RatePerKg  *decimal.Decimal `json:"rate_per_kg,omitempty"`
	RatePerTon *decimal.Decimal `json:"rate_per_ton,omitempty"`
	FactoryID  *uuid.UUID       `json:"factory_id,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Note       string           `json:"note,omitempty"`
}

// TokenEvent is one row of a token's append-only audit trail. The trail
// lives in its own table keyed by token id, with the token's status as a
// denormalized projection; events are never updated or deleted.
type TokenEvent struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TokenID   uuid.UUID      `json:"token_id" gorm:"type:uuid;not null;index"`
	Action    EventAction    `json:"action" gorm:"not null"`
	ActorID   uuid.UUID      `json:"actor_id" gorm:"type:uuid;not null"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

// NewFlagEvent builds the audit event recorded when a token is flagged for
// manual review outside a status transition. The nil actor id marks it as a
// system action.
func NewFlagEvent(tokenID uuid.UUID, reason string) *TokenEvent {
	return newEvent(tokenID, ActionFlagged, uuid.Nil, EventMetadata{Reason: reason})
}

func newEvent(tokenID uuid.UUID, action EventAction, actorID uuid.UUID, meta EventMetadata) *TokenEvent {
	raw, _ := json.Marshal(meta)
	return &TokenEvent{
		ID:       uuid.New(),
		TokenID:  tokenID,
		Action:   action,
		ActorID:  actorID,
		Metadata: datatypes.JSON(raw),
	}
}
