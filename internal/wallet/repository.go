package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientBalance is returned when a debit would push a wallet
// balance below zero. Nothing is written when it fires.
var ErrInsufficientBalance = errors.New("insufficient balance")

type Repository interface {
	GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*Wallet, error)
	// ApplyEntry appends the entry and moves the balance by entry.Amount in
	// one transaction, holding a row lock on the wallet. A negative amount
	// that exceeds the balance fails with ErrInsufficientBalance.
	ApplyEntry(ctx context.Context, entry *LedgerEntry) error
	// Transfer applies a debit and a credit atomically: if either half
	// fails, neither balance changes and no entries are created.
	Transfer(ctx context.Context, debit, credit *LedgerEntry) error
	Entries(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]LedgerEntry, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrCreate(ctx context.Context, ownerID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = Wallet{ID: uuid.New(), OwnerID: ownerID, Balance: decimal.Zero}
		if err := r.db.WithContext(ctx).Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// lockWallet loads the owner's wallet FOR UPDATE, creating it first if needed.
func lockWallet(tx *gorm.DB, ownerID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = Wallet{ID: uuid.New(), OwnerID: ownerID, Balance: decimal.Zero}
		if err := tx.Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func applyEntryTx(tx *gorm.DB, entry *LedgerEntry) error {
	w, err := lockWallet(tx, entry.OwnerID)
	if err != nil {
		return err
	}
	newBalance := w.Balance.Add(entry.Amount)
	if newBalance.IsNegative() {
		return ErrInsufficientBalance
	}
	if err := tx.Create(entry).Error; err != nil {
		return err
	}
	return tx.Model(&Wallet{}).Where("id = ?", w.ID).
		Update("balance", newBalance).Error
}

func (r *gormRepository) ApplyEntry(ctx context.Context, entry *LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyEntryTx(tx, entry)
	})
}

func (r *gormRepository) Transfer(ctx context.Context, debit, credit *LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock wallets in a deterministic order so two opposing transfers
		// cannot deadlock.
		first, second := debit, credit
		if credit.OwnerID.String() < debit.OwnerID.String() {
			first, second = credit, debit
		}
		if err := applyEntryTx(tx, first); err != nil {
			return err
		}
		return applyEntryTx(tx, second)
	})
}

func (r *gormRepository) Entries(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&entries).Error
	return entries, err
}
