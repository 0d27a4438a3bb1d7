package rates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"greencycle/waste-portal/waste-portal-backend/pkg/money"
)

// Sanity band for the per-ton rate relative to the per-kg rate. 1000 kg per
// ton, with tolerance for markup either side.
var (
	bandLow  = decimal.NewFromInt(1800)
	bandHigh = decimal.NewFromInt(2200)
)

// Fallback rate used when no active rate is configured for a material. The
// fallback is documented behavior, not a silent failure: GetRate logs a
// warning so operators notice the gap.
var (
	fallbackPerKg  = money.MustDecimal("50")
	fallbackPerTon = money.MustDecimal("100000")
)

type Service interface {
	// GetRate returns the active rate for the material, or the documented
	// fallback if none is configured.
	GetRate(ctx context.Context, materialType string) (*Rate, error)
	SetRate(ctx context.Context, materialType string, perKg, perTon decimal.Decimal, editorID uuid.UUID) (*RateChange, error)
	History(ctx context.Context, materialType string, limit int) ([]RateEdit, error)
}

type rateService struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &rateService{repo: repo, logger: logger}
}

func (s *rateService) GetRate(ctx context.Context, materialType string) (*Rate, error) {
	rate, err := s.repo.GetActive(ctx, materialType)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate for %q: %w", materialType, err)
	}
	if rate == nil {
		s.logger.Warn("no active rate configured, using fallback",
			zap.String("material_type", materialType),
			zap.String("fallback_per_kg", fallbackPerKg.String()))
		return &Rate{
			MaterialType: materialType,
			RatePerKg:    fallbackPerKg,
			RatePerTon:   fallbackPerTon,
			IsActive:     true,
		}, nil
	}
	return rate, nil
}

func (s *rateService) SetRate(ctx context.Context, materialType string, perKg, perTon decimal.Decimal, editorID uuid.UUID) (*RateChange, error) {
	if materialType == "" {
		return nil, fmt.Errorf("material_type is required")
	}
	if !perKg.IsPositive() {
		return nil, fmt.Errorf("rate_per_kg must be positive, got %s", perKg)
	}
	if !perTon.IsPositive() {
		return nil, fmt.Errorf("rate_per_ton must be positive, got %s", perTon)
	}
	low := perKg.Mul(bandLow)
	high := perKg.Mul(bandHigh)
	if perTon.LessThan(low) || perTon.GreaterThan(high) {
		return nil, fmt.Errorf("rate_per_ton %s is outside the sanity band %s-%s for rate_per_kg %s",
			perTon, low, high, perKg)
	}

	current, err := s.repo.GetActive(ctx, materialType)
	if err != nil {
		return nil, fmt.Errorf("failed to read current rate: %w", err)
	}

	change := &RateChange{MaterialType: materialType, NewPerKg: perKg, NewPerTon: perTon}
	edit := &RateEdit{
		ID:           uuid.New(),
		MaterialType: materialType,
		NewPerKg:     perKg,
		NewPerTon:    perTon,
		EditedBy:     editorID,
	}
	if current != nil {
		change.OldPerKg = current.RatePerKg
		change.OldPerTon = current.RatePerTon
		edit.OldPerKg = current.RatePerKg
		edit.OldPerTon = current.RatePerTon
	}

	rate := &Rate{
		ID:           uuid.New(),
		MaterialType: materialType,
		RatePerKg:    perKg,
		RatePerTon:   perTon,
		IsActive:     true,
		UpdatedBy:    editorID,
	}
	if err := s.repo.Upsert(ctx, rate, edit); err != nil {
		return nil, fmt.Errorf("failed to save rate: %w", err)
	}

	s.logger.Info("rate updated",
		zap.String("material_type", materialType),
		zap.String("rate_per_kg", perKg.String()),
		zap.String("rate_per_ton", perTon.String()),
		zap.String("edited_by", editorID.String()))
	return change, nil
}

func (s *rateService) History(ctx context.Context, materialType string, limit int) ([]RateEdit, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListEdits(ctx, materialType, limit)
}
