package tokens

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// fakeTokenRepository keeps tokens, events and shipments in maps and applies
// the same status-guarded update semantics as the gorm repository.
type fakeTokenRepository struct {
	tokens    map[uuid.UUID]*Token
	byCode    map[string]uuid.UUID
	events    map[uuid.UUID][]TokenEvent
	shipments map[uuid.UUID]*shipments.Shipment
}

func newFakeTokenRepository() *fakeTokenRepository {
	return &fakeTokenRepository{
		tokens:    make(map[uuid.UUID]*Token),
		byCode:    make(map[string]uuid.UUID),
		events:    make(map[uuid.UUID][]TokenEvent),
		shipments: make(map[uuid.UUID]*shipments.Shipment),
	}
}

func (f *fakeTokenRepository) Create(_ context.Context, token *Token, event *TokenEvent) error {
	if _, dup := f.byCode[token.Code]; dup {
		return ErrDuplicateCode
	}
	copied := *token
	f.tokens[token.ID] = &copied
	f.byCode[token.Code] = token.ID
	f.events[token.ID] = append(f.events[token.ID], *event)
	return nil
}

func (f *fakeTokenRepository) GetByID(_ context.Context, id uuid.UUID) (*Token, error) {
	t, ok := f.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTokenRepository) GetByCode(_ context.Context, code string) (*Token, error) {
	id, ok := f.byCode[code]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return f.GetByID(context.Background(), id)
}

func (f *fakeTokenRepository) Events(_ context.Context, tokenID uuid.UUID) ([]TokenEvent, error) {
	return f.events[tokenID], nil
}

func (f *fakeTokenRepository) ListForActor(_ context.Context, actorID uuid.UUID, _, _ int) ([]Token, error) {
	var out []Token
	for _, t := range f.tokens {
		if t.CollectorID == actorID || t.VendorID == actorID || (t.FactoryID != nil && *t.FactoryID == actorID) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokenRepository) ListStuck(_ context.Context, status workflows.Status, cutoff time.Time, _ int) ([]Token, error) {
	var out []Token
	for _, t := range f.tokens {
		if t.Status == status && t.UpdatedAt.Before(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTokenRepository) applyFields(t *Token, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case "factory_id":
			id := v.(uuid.UUID)
			t.FactoryID = &id
		case "transferred_at":
			at := v.(time.Time)
			t.TransferredAt = &at
		case "verified_at":
			at := v.(time.Time)
			t.VerifiedAt = &at
		case "paid_out_at":
			at := v.(time.Time)
			t.PaidOutAt = &at
		case "flagged_reason":
			t.FlaggedReason = v.(string)
		}
	}
}

func (f *fakeTokenRepository) Transition(_ context.Context, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent) error {
	t, ok := f.tokens[tokenID]
	if !ok {
		return ErrTokenNotFound
	}
	if t.Status != from {
		return &workflows.InvalidTransitionError{From: t.Status, To: to}
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	f.applyFields(t, fields)
	f.events[tokenID] = append(f.events[tokenID], *event)
	return nil
}

func (f *fakeTokenRepository) TransitionWithShipment(ctx context.Context, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent, shipment *shipments.Shipment) error {
	if _, dup := f.shipments[tokenID]; dup {
		return fmt.Errorf("shipment already exists for token %s", tokenID)
	}
	if err := f.Transition(ctx, tokenID, from, to, fields, event); err != nil {
		return err
	}
	copied := *shipment
	f.shipments[tokenID] = &copied
	return nil
}

func (f *fakeTokenRepository) Flag(_ context.Context, tokenID uuid.UUID, reason string, event *TokenEvent) error {
	t, ok := f.tokens[tokenID]
	if !ok {
		return ErrTokenNotFound
	}
	t.IsValid = false
	t.FlaggedReason = reason
	f.events[tokenID] = append(f.events[tokenID], *event)
	return nil
}

// fakeRateService serves a fixed rate table.
type fakeRateService struct {
	table map[string]*rates.Rate
}

func (f *fakeRateService) GetRate(_ context.Context, materialType string) (*rates.Rate, error) {
	if r, ok := f.table[materialType]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, fmt.Errorf("no rate for %q", materialType)
}

func (f *fakeRateService) SetRate(_ context.Context, _ string, _, _ decimal.Decimal, _ uuid.UUID) (*rates.RateChange, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeRateService) History(_ context.Context, _ string, _ int) ([]rates.RateEdit, error) {
	return nil, nil
}

// fakeDirectory resolves a fixed set of actors.
type fakeDirectory struct {
	byBarcode map[string]*identity.ActorRecord
	byID      map[uuid.UUID]*identity.ActorRecord
}

func (f *fakeDirectory) FindByBarcode(_ context.Context, barcode string) (*identity.ActorRecord, error) {
	if rec, ok := f.byBarcode[barcode]; ok {
		return rec, nil
	}
	return nil, identity.ErrActorNotFound
}

func (f *fakeDirectory) Get(_ context.Context, id uuid.UUID) (*identity.ActorRecord, error) {
	if rec, ok := f.byID[id]; ok {
		return rec, nil
	}
	return nil, identity.ErrActorNotFound
}

type fixture struct {
	repo      *fakeTokenRepository
	rates     *fakeRateService
	service   Service
	collector *identity.ActorRecord
	vendor    uuid.UUID
	factory   *identity.ActorRecord
}

func newFixture(t *testing.T, pricing config.ShipmentPricing) *fixture {
	t.Helper()

	collector := &identity.ActorRecord{
		ID:      uuid.New(),
		Barcode: "COL-0001",
		Role:    auth.RoleCollector,
	}
	factory := &identity.ActorRecord{
		ID:   uuid.New(),
		Role: auth.RoleFactory,
	}
	vendor := uuid.New()

	directory := &fakeDirectory{
		byBarcode: map[string]*identity.ActorRecord{collector.Barcode: collector},
		byID: map[uuid.UUID]*identity.ActorRecord{
			collector.ID: collector,
			factory.ID:   factory,
			vendor:       {ID: vendor, Role: auth.RoleVendor},
		},
	}
	rateTable := &fakeRateService{table: map[string]*rates.Rate{
		"plastic": {
			MaterialType: "plastic",
			RatePerKg:    money.MustDecimal("50"),
			RatePerTon:   money.MustDecimal("120000"),
			IsActive:     true,
		},
	}}
	repo := newFakeTokenRepository()

	return &fixture{
		repo:      repo,
		rates:     rateTable,
		service:   NewService(repo, rateTable, fraud.NewChecker(), directory, pricing, zap.NewNop()),
		collector: collector,
		vendor:    vendor,
		factory:   factory,
	}
}

func (fx *fixture) authenticate(t *testing.T, weightKg string) *Token {
	t.Helper()
	token, err := fx.service.Authenticate(context.Background(), fx.vendor, fx.collector.Barcode, "plastic", money.MustDecimal(weightKg), "")
	require.NoError(t, err)
	return token
}

func TestAuthenticateCreatesPricedToken(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)

	token := fx.authenticate(t, "10")

	assert.Equal(t, workflows.StatusAuthenticated, token.Status)
	assert.True(t, token.Amount.Equal(money.MustDecimal("500.00")), "10 kg at 50/kg should price at 500, got %s", token.Amount)
	assert.True(t, token.RatePerKgSnapshot.Equal(money.MustDecimal("50")))
	assert.Equal(t, fx.collector.ID, token.CollectorID)
	assert.Equal(t, fx.vendor, token.VendorID)
	assert.True(t, token.IsValid)
	assert.True(t, tokencode.Validate(token.Code), "code %q should match the canonical format", token.Code)
	assert.NotNil(t, token.AuthenticatedAt)

	events, err := fx.repo.Events(context.Background(), token.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionAuthenticated, events[0].Action)
	assert.Equal(t, fx.vendor, events[0].ActorID)
}

func TestAuthenticateUnknownBarcode(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)

	_, err := fx.service.Authenticate(context.Background(), fx.vendor, "COL-9999", "plastic", money.MustDecimal("10"), "")
	assert.ErrorIs(t, err, identity.ErrActorNotFound)
}

func TestAuthenticateBarcodeMustBeCollector(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	fx.collector.Role = auth.RoleVendor

	_, err := fx.service.Authenticate(context.Background(), fx.vendor, fx.collector.Barcode, "plastic", money.MustDecimal("10"), "")
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestAuthenticateHardRejectsImpossibleWeight(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)

	_, err := fx.service.Authenticate(context.Background(), fx.vendor, fx.collector.Barcode, "plastic", money.MustDecimal("-5"), "")
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.Empty(t, fx.repo.tokens)
}

func TestAuthenticateSoftFlagsHeavyDrop(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)

	token := fx.authenticate(t, "1500")
	assert.False(t, token.IsValid)
	assert.NotEmpty(t, token.FlaggedReason)
	assert.Equal(t, workflows.StatusAuthenticated, token.Status, "a soft flag still creates the token")
}

func TestTransferRequiresOwningVendor(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")

	_, err := fx.service.TransferToFactory(context.Background(), token.ID, uuid.New(), fx.factory.ID, "")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestTransferTargetMustBeFactory(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")

	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.vendor, "")
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestTransferAssignsFactory(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")

	updated, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "first load")
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusTransferredToFactory, updated.Status)
	require.NotNil(t, updated.FactoryID)
	assert.Equal(t, fx.factory.ID, *updated.FactoryID)
	assert.NotNil(t, updated.TransferredAt)
}

func TestVerifyCreatesShipment(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)

	shipment, err := fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "weighed on arrival")
	require.NoError(t, err)

	assert.Equal(t, token.ID, shipment.TokenID)
	assert.Equal(t, token.Code, shipment.TokenCode)
	assert.True(t, shipment.WeightTons.Equal(money.MustDecimal("0.01")), "10 kg is 0.01 t, got %s", shipment.WeightTons)
	assert.True(t, shipment.RatePerTon.Equal(money.MustDecimal("120000")))
	assert.True(t, shipment.TotalAmount.Equal(money.MustDecimal("1200.00")), "0.01 t at 120000/t should bill 1200, got %s", shipment.TotalAmount)
	assert.Equal(t, shipments.PaymentUnpaid, shipment.PaymentStatus)
	assert.Equal(t, fx.factory.ID, shipment.VerifiedBy)

	refreshed, _, err := fx.service.Get(context.Background(), token.ID)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusVerified, refreshed.Status)
}

func TestVerifyRequiresAssignedFactory(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)

	_, err = fx.service.Verify(context.Background(), token.ID, uuid.New(), "")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestDoubleVerifyRejected(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)
	_, err = fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "")
	require.NoError(t, err)

	_, err = fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "")
	assert.Error(t, err)
	assert.Len(t, fx.repo.shipments, 1, "a second verification must not create a second shipment")
}

func TestLockedPricingUsesAuthenticationSnapshot(t *testing.T) {
	fx := newFixture(t, config.PricingLocked)
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)

	// Rate table moves between authentication and verification.
	fx.rates.table["plastic"].RatePerKg = money.MustDecimal("80")
	fx.rates.table["plastic"].RatePerTon = money.MustDecimal("160000")

	shipment, err := fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "")
	require.NoError(t, err)
	// Locked mode derives the per-ton rate from the snapshotted 50/kg.
	assert.True(t, shipment.RatePerTon.Equal(money.MustDecimal("50000")), "got %s", shipment.RatePerTon)
	assert.True(t, shipment.TotalAmount.Equal(money.MustDecimal("500.00")))
}

func TestCurrentPricingFollowsRateTable(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)

	fx.rates.table["plastic"].RatePerTon = money.MustDecimal("160000")

	shipment, err := fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "")
	require.NoError(t, err)
	assert.True(t, shipment.RatePerTon.Equal(money.MustDecimal("160000")))
	assert.True(t, shipment.TotalAmount.Equal(money.MustDecimal("1600.00")))
}

func TestApproveAndReleaseFollowOrder(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	admin := uuid.New()
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)

	// Release before approve is a guard miss.
	err = fx.service.ReleasePayment(context.Background(), token.ID, admin)
	var invalid *workflows.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)

	_, err = fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "")
	require.NoError(t, err)
	require.NoError(t, fx.service.ApprovePayment(context.Background(), token.ID, admin))
	require.NoError(t, fx.service.ReleasePayment(context.Background(), token.ID, admin))

	final, events, err := fx.service.Get(context.Background(), token.ID)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusPaymentReleased, final.Status)
	assert.NotNil(t, final.PaidOutAt)

	// One event per lifecycle step, in order.
	require.Len(t, events, 5)
	actions := []EventAction{events[0].Action, events[1].Action, events[2].Action, events[3].Action, events[4].Action}
	assert.Equal(t, []EventAction{ActionAuthenticated, ActionTransferred, ActionVerified, ActionApproved, ActionReleased}, actions)
}

func TestDisputeFromAnyNonTerminalStatus(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	admin := uuid.New()
	token := fx.authenticate(t, "10")

	require.NoError(t, fx.service.Dispute(context.Background(), token.ID, admin, "weight contested"))

	disputed, _, err := fx.service.Get(context.Background(), token.ID)
	require.NoError(t, err)
	assert.Equal(t, workflows.StatusDisputed, disputed.Status)
	assert.Equal(t, "weight contested", disputed.FlaggedReason)

	// Disputed is terminal.
	err = fx.service.Cancel(context.Background(), token.ID, admin, "too late")
	var invalid *workflows.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, workflows.StatusDisputed, invalid.From)
}

func TestCancelReleasedTokenRejected(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	admin := uuid.New()
	token := fx.authenticate(t, "10")
	_, err := fx.service.TransferToFactory(context.Background(), token.ID, fx.vendor, fx.factory.ID, "")
	require.NoError(t, err)
	_, err = fx.service.Verify(context.Background(), token.ID, fx.factory.ID, "")
	require.NoError(t, err)
	require.NoError(t, fx.service.ApprovePayment(context.Background(), token.ID, admin))
	require.NoError(t, fx.service.ReleasePayment(context.Background(), token.ID, admin))

	err = fx.service.Cancel(context.Background(), token.ID, admin, "")
	var invalid *workflows.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestGetByCode(t *testing.T) {
	fx := newFixture(t, config.PricingCurrent)
	token := fx.authenticate(t, "10")

	found, err := fx.service.GetByCode(context.Background(), token.Code)
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)

	_, err = fx.service.GetByCode(context.Background(), "TRX-2026-PLST-ZZZZZ")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
