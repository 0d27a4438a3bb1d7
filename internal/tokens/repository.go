package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"greencycle/waste-portal/waste-portal-backend/internal/shipments"
	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

var ErrTokenNotFound = errors.New("token not found")

// ErrDuplicateCode surfaces a token-code collision; callers regenerate and
// retry.
var ErrDuplicateCode = errors.New("token code already exists")

type Repository interface {
	Create(ctx context.Context, token *Token, event *TokenEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	GetByCode(ctx context.Context, code string) (*Token, error)
	Events(ctx context.Context, tokenID uuid.UUID) ([]TokenEvent, error)
	ListForActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]Token, error)
	ListStuck(ctx context.Context, status workflows.Status, cutoff time.Time, limit int) ([]Token, error)
	// Transition performs a state-guarded update: the new status and fields
	// are written only if the token is still in the expected prior status,
	// and the audit event is appended in the same transaction. A guard miss
	// returns *workflows.InvalidTransitionError carrying the actual current
	// status.
	Transition(ctx context.Context, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent) error
	// TransitionWithShipment is Transition plus the creation of exactly one
	// shipment, all in a single transaction. The unique index on
	// shipments.token_id backstops the guard against double verification.
	TransitionWithShipment(ctx context.Context, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent, shipment *shipments.Shipment) error
	Flag(ctx context.Context, tokenID uuid.UUID, reason string, event *TokenEvent) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, token *Token, event *TokenEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(token).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateCode
			}
			return err
		}
		return tx.Create(event).Error
	})
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	var t Token
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) GetByCode(ctx context.Context, code string) (*Token, error) {
	var t Token
	err := r.db.WithContext(ctx).First(&t, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) Events(ctx context.Context, tokenID uuid.UUID) ([]TokenEvent, error) {
	var events []TokenEvent
	err := r.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *gormRepository) ListForActor(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]Token, error) {
	var list []Token
	query := r.db.WithContext(ctx).
		Where("collector_id = ? OR vendor_id = ? OR factory_id = ?", actorID, actorID, actorID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&list).Error
	return list, err
}

func (r *gormRepository) ListStuck(ctx context.Context, status workflows.Status, cutoff time.Time, limit int) ([]Token, error) {
	var list []Token
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func transitionTx(tx *gorm.DB, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent) error {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := tx.Model(&Token{}).
		Where("id = ? AND status = ?", tokenID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Guard miss: report the token's actual status, or not-found.
		var current Token
		if err := tx.First(&current, "id = ?", tokenID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}
		return &workflows.InvalidTransitionError{From: current.Status, To: to}
	}
	return tx.Create(event).Error
}

func (r *gormRepository) Transition(ctx context.Context, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return transitionTx(tx, tokenID, from, to, fields, event)
	})
}

func (r *gormRepository) TransitionWithShipment(ctx context.Context, tokenID uuid.UUID, from, to workflows.Status, fields map[string]interface{}, event *TokenEvent, shipment *shipments.Shipment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionTx(tx, tokenID, from, to, fields, event); err != nil {
			return err
		}
		if err := tx.Create(shipment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("shipment already exists for token %s", tokenID)
			}
			return err
		}
		return nil
	})
}

func (r *gormRepository) Flag(ctx context.Context, tokenID uuid.UUID, reason string, event *TokenEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Token{}).
			Where("id = ?", tokenID).
			Updates(map[string]interface{}{"is_valid": false, "flagged_reason": reason})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotFound
		}
		return tx.Create(event).Error
	})
}
