// Package identity is the read-only boundary to the external identity
// subsystem. Actors are registered and KYC'd elsewhere; the settlement
// service only resolves barcodes, roles and banking metadata.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
)

var ErrActorNotFound = errors.New("actor not found")

// ActorRecord mirrors the identity subsystem's actor row. Never written by
// this service.
type ActorRecord struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Barcode       string    `json:"barcode" gorm:"uniqueIndex"`
	Role          auth.Role `json:"role" gorm:"not null;index"`
	FullName      string    `json:"full_name"`
	Location      string    `json:"location" gorm:"index"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ActorRecord) TableName() string { return "actors" }

// Directory resolves actors for the settlement subsystem.
type Directory interface {
	FindByBarcode(ctx context.Context, barcode string) (*ActorRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*ActorRecord, error)
}

type gormDirectory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) Directory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) FindByBarcode(ctx context.Context, barcode string) (*ActorRecord, error) {
	var rec ActorRecord
	err := d.db.WithContext(ctx).First(&rec, "barcode = ?", barcode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrActorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *gormDirectory) Get(ctx context.Context, id uuid.UUID) (*ActorRecord, error) {
	var rec ActorRecord
	err := d.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrActorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
