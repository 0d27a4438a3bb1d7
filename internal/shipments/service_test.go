package shipments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greencycle/waste-portal/waste-portal-backend/pkg/money"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (*Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Shipment), args.Error(1)
}

func (m *MockRepository) GetByToken(ctx context.Context, tokenID uuid.UUID) (*Shipment, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Shipment), args.Error(1)
}

func (m *MockRepository) ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Shipment, error) {
	args := m.Called(ctx, factoryID, limit, offset)
	return args.Get(0).([]Shipment), args.Error(1)
}

func (m *MockRepository) ListUnpaidOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Shipment, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).([]Shipment), args.Error(1)
}

func (m *MockRepository) AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reference string) (*Shipment, error) {
	args := m.Called(ctx, id, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Shipment), args.Error(1)
}

func newShipment(total string) *Shipment {
	return &Shipment{
		ID:            uuid.New(),
		TokenID:       uuid.New(),
		TokenCode:     "TRX-2026-PLST-A1B2C",
		TotalAmount:   money.MustDecimal(total),
		PaidAmount:    decimal.Zero,
		PaymentStatus: PaymentUnpaid,
	}
}

func TestApplyPaymentPartialThenPaid(t *testing.T) {
	s := newShipment("1200")
	now := time.Now()

	s.applyPayment(money.MustDecimal("500"), "PAY-001", now)
	assert.Equal(t, PaymentPartial, s.PaymentStatus)
	assert.True(t, s.PaidAmount.Equal(money.MustDecimal("500")))
	assert.Nil(t, s.PaidAt)

	s.applyPayment(money.MustDecimal("700"), "PAY-002", now)
	assert.Equal(t, PaymentPaid, s.PaymentStatus)
	assert.True(t, s.PaidAmount.Equal(money.MustDecimal("1200")))
	require.NotNil(t, s.PaidAt)
	assert.Equal(t, "PAY-002", s.PaymentReference)
}

func TestApplyPaymentOverpaymentStillPaid(t *testing.T) {
	s := newShipment("1000")

	s.applyPayment(money.MustDecimal("1500"), "PAY-003", time.Now())
	assert.Equal(t, PaymentPaid, s.PaymentStatus)
	assert.True(t, s.PaidAmount.Equal(money.MustDecimal("1500")))
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	_, err := service.RecordPayment(context.Background(), uuid.New(), decimal.Zero, "PAY-004")
	assert.Error(t, err)

	_, err = service.RecordPayment(context.Background(), uuid.New(), money.MustDecimal("-50"), "PAY-004")
	assert.Error(t, err)

	mockRepo.AssertNotCalled(t, "AddPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPaymentDelegatesToRepository(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	id := uuid.New()
	paid := newShipment("1200")
	paid.PaymentStatus = PaymentPartial
	paid.PaidAmount = money.MustDecimal("500")
	mockRepo.On("AddPayment", mock.Anything, id, money.MustDecimal("500"), "PAY-005").Return(paid, nil)

	shipment, err := service.RecordPayment(context.Background(), id, money.MustDecimal("500"), "PAY-005")
	assert.NoError(t, err)
	assert.Equal(t, PaymentPartial, shipment.PaymentStatus)
	mockRepo.AssertExpectations(t)
}

func TestRecordPaymentOnPaidShipment(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	id := uuid.New()
	mockRepo.On("AddPayment", mock.Anything, id, money.MustDecimal("100"), "PAY-006").Return(nil, ErrAlreadyPaid)

	_, err := service.RecordPayment(context.Background(), id, money.MustDecimal("100"), "PAY-006")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}
