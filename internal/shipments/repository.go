package shipments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Shipment, error)
	GetByToken(ctx context.Context, tokenID uuid.UUID) (*Shipment, error)
	ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Shipment, error)
	ListUnpaidOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Shipment, error)
	// AddPayment increments the paid amount under a row lock so concurrent
	// payments cannot lose updates, and flips the payment status when the
	// total is covered. Returns the updated shipment.
	AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reference string) (*Shipment, error)
}

// ErrAlreadyPaid is returned when a payment is recorded against a shipment
// that is already fully paid.
var ErrAlreadyPaid = errors.New("shipment is already fully paid")

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, id uuid.UUID) (*Shipment, error) {
	var s Shipment
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetByToken(ctx context.Context, tokenID uuid.UUID) (*Shipment, error) {
	var s Shipment
	err := r.db.WithContext(ctx).First(&s, "token_id = ?", tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) ListByFactory(ctx context.Context, factoryID uuid.UUID, limit, offset int) ([]Shipment, error) {
	var list []Shipment
	query := r.db.WithContext(ctx).Where("factory_id = ?", factoryID).Order("verified_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&list).Error
	return list, err
}

func (r *gormRepository) ListUnpaidOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Shipment, error) {
	var list []Shipment
	err := r.db.WithContext(ctx).
		Where("payment_status <> ? AND verified_at < ?", PaymentPaid, cutoff).
		Order("verified_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *gormRepository) AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal, reference string) (*Shipment, error) {
	var s Shipment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&s, "id = ?", id).Error; err != nil {
			return err
		}
		if s.PaymentStatus == PaymentPaid {
			return ErrAlreadyPaid
		}
		s.applyPayment(amount, reference, time.Now())
		return tx.Model(&Shipment{}).Where("id = ?", id).Updates(map[string]interface{}{
			"paid_amount":       s.PaidAmount,
			"payment_status":    s.PaymentStatus,
			"payment_reference": s.PaymentReference,
			"paid_at":           s.PaidAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
