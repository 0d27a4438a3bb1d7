package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	GetWallet(ctx context.Context, ownerID uuid.UUID) (*Wallet, error)
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind EntryKind, description string, refs Refs) (*LedgerEntry, error)
	Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind EntryKind, description string, refs Refs) (*LedgerEntry, error)
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (*LedgerEntry, *LedgerEntry, error)
	Entries(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]LedgerEntry, error)
}

type walletService struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &walletService{repo: repo, logger: logger}
}

func (s *walletService) GetWallet(ctx context.Context, ownerID uuid.UUID) (*Wallet, error) {
	return s.repo.GetOrCreate(ctx, ownerID)
}

func newEntry(ownerID uuid.UUID, amount decimal.Decimal, kind EntryKind, description string, refs Refs) *LedgerEntry {
	return &LedgerEntry{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Amount:      amount,
		Kind:        kind,
		Description: description,
		Reference:   refs.Reference,
		TokenID:     refs.TokenID,
		ShipmentID:  refs.ShipmentID,
	}
}

func (s *walletService) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind EntryKind, description string, refs Refs) (*LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive, got %s", amount)
	}
	entry := newEntry(ownerID, amount, kind, description, refs)
	if err := s.repo.ApplyEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("credit failed: %w", err)
	}
	s.logger.Info("wallet credited",
		zap.String("owner_id", ownerID.String()),
		zap.String("amount", amount.String()),
		zap.String("kind", string(kind)))
	return entry, nil
}

func (s *walletService) Debit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, kind EntryKind, description string, refs Refs) (*LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", amount)
	}
	entry := newEntry(ownerID, amount.Neg(), kind, description, refs)
	if err := s.repo.ApplyEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("debit failed: %w", err)
	}
	s.logger.Info("wallet debited",
		zap.String("owner_id", ownerID.String()),
		zap.String("amount", amount.String()),
		zap.String("kind", string(kind)))
	return entry, nil
}

func (s *walletService) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal, description string) (*LedgerEntry, *LedgerEntry, error) {
	if fromID == toID {
		return nil, nil, fmt.Errorf("cannot transfer to the same wallet")
	}
	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("transfer amount must be positive, got %s", amount)
	}
	debit := newEntry(fromID, amount.Neg(), KindRedeem, description, Refs{})
	credit := newEntry(toID, amount, KindEarn, description, Refs{})
	if err := s.repo.Transfer(ctx, debit, credit); err != nil {
		return nil, nil, fmt.Errorf("transfer failed: %w", err)
	}
	s.logger.Info("wallet transfer",
		zap.String("from", fromID.String()),
		zap.String("to", toID.String()),
		zap.String("amount", amount.String()))
	return debit, credit, nil
}

func (s *walletService) Entries(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	return s.repo.Entries(ctx, ownerID, limit, offset)
}
