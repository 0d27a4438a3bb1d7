package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger movement.
type EntryKind string

const (
	KindEarn    EntryKind = "earn"
	KindRedeem  EntryKind = "redeem"
	KindBonus   EntryKind = "bonus"
	KindPenalty EntryKind = "penalty"
)

// Wallet holds the current balance for one actor. The balance is a
// denormalized projection: it always equals the sum of the owner's ledger
// entries and is only ever written inside the same transaction as an entry.
type Wallet struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID   uuid.UUID       `json:"owner_id" gorm:"type:uuid;uniqueIndex;not null"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// LedgerEntry is one immutable signed movement against a wallet. Entries are
// created by ledger operations only and never updated or deleted.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID     uuid.UUID       `json:"owner_id" gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(14,2);not null"`
	Kind        EntryKind       `json:"kind" gorm:"not null"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	TokenID     *uuid.UUID      `json:"token_id,omitempty" gorm:"type:uuid;index"`
	ShipmentID  *uuid.UUID      `json:"shipment_id,omitempty" gorm:"type:uuid"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// Refs carries the optional links a ledger entry can point at.
type Refs struct {
	Reference  string
	TokenID    *uuid.UUID
	ShipmentID *uuid.UUID
}
