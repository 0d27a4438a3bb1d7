package rates

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	GetActive(ctx context.Context, materialType string) (*Rate, error)
	// Upsert writes the new rate and its history row in one transaction, so
	// concurrent readers see either the old rate or the new one, never half
	// of an edit.
	Upsert(ctx context.Context, rate *Rate, edit *RateEdit) error
	ListEdits(ctx context.Context, materialType string, limit int) ([]RateEdit, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetActive(ctx context.Context, materialType string) (*Rate, error) {
	var rate Rate
	err := r.db.WithContext(ctx).
		Where("material_type = ? AND is_active = ?", materialType, true).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *gormRepository) Upsert(ctx context.Context, rate *Rate, edit *RateEdit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "material_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rate_per_kg", "rate_per_ton", "is_active", "updated_by", "updated_at",
			}),
		}).Create(rate).Error; err != nil {
			return err
		}
		return tx.Create(edit).Error
	})
}

func (r *gormRepository) ListEdits(ctx context.Context, materialType string, limit int) ([]RateEdit, error) {
	var edits []RateEdit
	err := r.db.WithContext(ctx).
		Where("material_type = ?", materialType).
		Order("created_at DESC").
		Limit(limit).
		Find(&edits).Error
	return edits, err
}
