package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
	"greencycle/waste-portal/waste-portal-backend/internal/config"
	"greencycle/waste-portal/waste-portal-backend/internal/fraud"
	"greencycle/waste-portal/waste-portal-backend/internal/identity"
	"greencycle/waste-portal/waste-portal-backend/internal/rates"
	"greencycle/waste-portal/waste-portal-backend/internal/shipments"
	"greencycle/waste-portal/waste-portal-backend/pkg/money"
	"greencycle/waste-portal/waste-portal-backend/pkg/tokencode"
	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

var (
	// ErrNotOwner is an authorization failure: the caller does not own the
	// token side it is trying to act on.
	ErrNotOwner = errors.New("actor does not own the referenced token")
	// ErrRoleMismatch is returned when a referenced actor does not hold the
	// role the operation requires.
	ErrRoleMismatch = errors.New("referenced actor role mismatch")
	// ErrIntegrity is returned when the fraud checker hard-rejects a token.
	ErrIntegrity = errors.New("token failed integrity checks")
)

const codeRetries = 5

type Service interface {
	Authenticate(ctx context.Context, vendorID uuid.UUID, collectorBarcode, materialType string, weightKg decimal.Decimal, notes string) (*Token, error)
	TransferToFactory(ctx context.Context, tokenID, vendorID, factoryID uuid.UUID, notes string) (*Token, error)
	Verify(ctx context.Context, tokenID, factoryID uuid.UUID, notes string) (*shipments.Shipment, error)
	ApprovePayment(ctx context.Context, tokenID, adminID uuid.UUID) error
	ReleasePayment(ctx context.Context, tokenID, adminID uuid.UUID) error
	Dispute(ctx context.Context, tokenID, adminID uuid.UUID, reason string) error
	Cancel(ctx context.Context, tokenID, adminID uuid.UUID, reason string) error
	Get(ctx context.Context, id uuid.UUID) (*Token, []TokenEvent, error)
	GetByCode(ctx context.Context, code string) (*Token, error)
	ListForActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]Token, error)
}

type tokenService struct {
	repo      Repository
	rates     rates.Service
	checker   *fraud.Checker
	directory identity.Directory
	sm        *workflows.StateMachine
	pricing   config.ShipmentPricing
	logger    *zap.Logger
}

func NewService(repo Repository, rateSvc rates.Service, checker *fraud.Checker, directory identity.Directory, pricing config.ShipmentPricing, logger *zap.Logger) Service {
	return &tokenService{
		repo:      repo,
		rates:     rateSvc,
		checker:   checker,
		directory: directory,
		sm:        workflows.NewStateMachine(),
		pricing:   pricing,
		logger:    logger,
	}
}

func (s *tokenService) Authenticate(ctx context.Context, vendorID uuid.UUID, collectorBarcode, materialType string, weightKg decimal.Decimal, notes string) (*Token, error) {
	if collectorBarcode == "" {
		return nil, fmt.Errorf("collector barcode is required")
	}
	if materialType == "" {
		return nil, fmt.Errorf("material_type is required")
	}
	collector, err := s.directory.FindByBarcode(ctx, collectorBarcode)
	if err != nil {
		return nil, fmt.Errorf("barcode %q did not resolve: %w", collectorBarcode, err)
	}
	if collector.Role != auth.RoleCollector {
		return nil, fmt.Errorf("%w: barcode %q belongs to a %s", ErrRoleMismatch, collectorBarcode, collector.Role)
	}

	// Price at the rate in effect right now; the per-kg rate is snapshotted
	// on the token for the locked shipment-pricing mode.
	rate, err := s.rates.GetRate(ctx, materialType)
	if err != nil {
		return nil, err
	}
	amount := money.Round(weightKg.Mul(rate.RatePerKg))

	now := time.Now()
	token := &Token{
		ID:                uuid.New(),
		CollectorID:       collector.ID,
		VendorID:          vendorID,
		MaterialType:      materialType,
		WeightKg:          weightKg,
		Amount:            amount,
		RatePerKgSnapshot: rate.RatePerKg,
		Status:            workflows.StatusAuthenticated,
		IsValid:           true,
		Notes:             notes,
		AuthenticatedAt:   &now,
	}

	for attempt := 0; ; attempt++ {
		token.Code = tokencode.Generate(materialType, now)

		report := s.checker.CheckToken(fraud.TokenInput{
			Code:         token.Code,
			CollectorID:  token.CollectorID,
			VendorID:     token.VendorID,
			MaterialType: token.MaterialType,
			WeightKg:     token.WeightKg,
		})
		if report.HasHard() {
			return nil, fmt.Errorf("%w: %s", ErrIntegrity, report.FlagReason())
		}
		if !report.Valid {
			token.IsValid = false
			token.FlaggedReason = report.FlagReason()
		}

		event := newEvent(token.ID, ActionAuthenticated, vendorID, EventMetadata{
			WeightKg:  &token.WeightKg,
			Amount:    &token.Amount,
			RatePerKg: &token.RatePerKgSnapshot,
			Note:      notes,
		})
		err := s.repo.Create(ctx, token, event)
		if errors.Is(err, ErrDuplicateCode) && attempt < codeRetries {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create token: %w", err)
		}
		break
	}

	s.logger.Info("token authenticated",
		zap.String("code", token.Code),
		zap.String("vendor_id", vendorID.String()),
		zap.String("amount", token.Amount.String()),
		zap.Bool("is_valid", token.IsValid))
	return token, nil
}

func (s *tokenService) TransferToFactory(ctx context.Context, tokenID, vendorID, factoryID uuid.UUID, notes string) (*Token, error) {
	token, err := s.repo.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.VendorID != vendorID {
		return nil, ErrNotOwner
	}
	factory, err := s.directory.Get(ctx, factoryID)
	if err != nil {
		return nil, fmt.Errorf("factory %s did not resolve: %w", factoryID, err)
	}
	if factory.Role != auth.RoleFactory {
		return nil, fmt.Errorf("%w: %s is a %s, not a factory", ErrRoleMismatch, factoryID, factory.Role)
	}

	now := time.Now()
	event := newEvent(tokenID, ActionTransferred, vendorID, EventMetadata{
		FactoryID: &factoryID,
		Note:      notes,
	})
	err = s.repo.Transition(ctx, tokenID,
		workflows.StatusAuthenticated, workflows.StatusTransferredToFactory,
		map[string]interface{}{"factory_id": factoryID, "transferred_at": now},
		event)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tokenID)
}

// shipmentRate resolves the per-ton rate a shipment is billed at. Whether
// factory billing floats with the current rate table or locks to the rate in
// effect at authentication is a configuration choice, not an assumption.
func (s *tokenService) shipmentRate(ctx context.Context, token *Token) (decimal.Decimal, error) {
	if s.pricing == config.PricingLocked {
		return token.RatePerKgSnapshot.Mul(decimal.NewFromInt(1000)), nil
	}
	rate, err := s.rates.GetRate(ctx, token.MaterialType)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.RatePerTon, nil
}

func (s *tokenService) Verify(ctx context.Context, tokenID, factoryID uuid.UUID, notes string) (*shipments.Shipment, error) {
	token, err := s.repo.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.FactoryID == nil || *token.FactoryID != factoryID {
		return nil, ErrNotOwner
	}

	ratePerTon, err := s.shipmentRate(ctx, token)
	if err != nil {
		return nil, err
	}
	weightTons := money.KgToTons(token.WeightKg)
	totalAmount := money.Round(weightTons.Mul(ratePerTon))

	now := time.Now()
	shipment := &shipments.Shipment{
		ID:            uuid.New(),
		TokenID:       token.ID,
		TokenCode:     token.Code,
		FactoryID:     factoryID,
		VendorID:      token.VendorID,
		CollectorID:   token.CollectorID,
		MaterialType:  token.MaterialType,
		WeightKg:      token.WeightKg,
		WeightTons:    weightTons,
		RatePerTon:    ratePerTon,
		TotalAmount:   totalAmount,
		PaymentStatus: shipments.PaymentUnpaid,
		PaidAmount:    decimal.Zero,
		VerifiedBy:    factoryID,
		VerifiedAt:    now,
	}
	event := newEvent(tokenID, ActionVerified, factoryID, EventMetadata{
		RatePerTon: &ratePerTon,
		Amount:     &totalAmount,
		Note:       notes,
	})
	err = s.repo.TransitionWithShipment(ctx, tokenID,
		workflows.StatusTransferredToFactory, workflows.StatusVerified,
		map[string]interface{}{"verified_at": now},
		event, shipment)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token verified",
		zap.String("code", token.Code),
		zap.String("factory_id", factoryID.String()),
		zap.String("total_amount", totalAmount.String()),
		zap.String("pricing", string(s.pricing)))
	return shipment, nil
}

func (s *tokenService) ApprovePayment(ctx context.Context, tokenID, adminID uuid.UUID) error {
	event := newEvent(tokenID, ActionApproved, adminID, EventMetadata{})
	return s.repo.Transition(ctx, tokenID,
		workflows.StatusVerified, workflows.StatusPaymentApproved,
		nil, event)
}

func (s *tokenService) ReleasePayment(ctx context.Context, tokenID, adminID uuid.UUID) error {
	now := time.Now()
	event := newEvent(tokenID, ActionReleased, adminID, EventMetadata{})
	return s.repo.Transition(ctx, tokenID,
		workflows.StatusPaymentApproved, workflows.StatusPaymentReleased,
		map[string]interface{}{"paid_out_at": now}, event)
}

// sideExit moves a token into disputed or cancelled from whatever
// non-terminal status it currently holds. The CAS against the just-read
// status keeps the move race-safe.
func (s *tokenService) sideExit(ctx context.Context, tokenID, adminID uuid.UUID, to workflows.Status, action EventAction, reason string) error {
	token, err := s.repo.GetByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if err := s.sm.Guard(token.Status, to); err != nil {
		return err
	}
	event := newEvent(tokenID, action, adminID, EventMetadata{Reason: reason})
	return s.repo.Transition(ctx, tokenID, token.Status, to,
		map[string]interface{}{"flagged_reason": reason}, event)
}

func (s *tokenService) Dispute(ctx context.Context, tokenID, adminID uuid.UUID, reason string) error {
	return s.sideExit(ctx, tokenID, adminID, workflows.StatusDisputed, ActionDisputed, reason)
}

func (s *tokenService) Cancel(ctx context.Context, tokenID, adminID uuid.UUID, reason string) error {
	return s.sideExit(ctx, tokenID, adminID, workflows.StatusCancelled, ActionCancelled, reason)
}

func (s *tokenService) Get(ctx context.Context, id uuid.UUID) (*Token, []TokenEvent, error) {
	token, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.repo.Events(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return token, events, nil
}

func (s *tokenService) GetByCode(ctx context.Context, code string) (*Token, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *tokenService) ListForActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]Token, error) {
	return s.repo.ListForActor(ctx, actorID, limit, offset)
}
