package shipments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*Shipment, error)
	ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Shipment, error)
	// RecordPayment adds to the shipment's paid amount. Paid amounts only
	// ever increase; the status moves unpaid -> partial -> paid and a fully
	// paid shipment accepts no further payments.
	RecordPayment(ctx context.Context, shipmentID uuid.UUID, amount decimal.Decimal, reference string) (*Shipment, error)
}

type shipmentService struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &shipmentService{repo: repo, logger: logger}
}

func (s *shipmentService) Get(ctx context.Context, id uuid.UUID) (*Shipment, error) {
	shipment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, fmt.Errorf("shipment %s not found", id)
	}
	return shipment, nil
}

func (s *shipmentService) ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Shipment, error) {
	return s.repo.ListByFactory(ctx, factoryID, limit, offset)
}

func (s *shipmentService) RecordPayment(ctx context.Context, shipmentID uuid.UUID, amount decimal.Decimal, reference string) (*Shipment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", amount)
	}
	shipment, err := s.repo.AddPayment(ctx, shipmentID, amount, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	s.logger.Info("shipment payment recorded",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("amount", amount.String()),
		zap.String("payment_status", string(shipment.PaymentStatus)))
	return shipment, nil
}
