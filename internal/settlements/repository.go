package settlements

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"greencycle/waste-portal/waste-portal-backend/internal/auth"
)

type Repository interface {
	// Rows joins tokens with the payee's actor record over the query window
	// (inclusive both ends). Buckets are assigned by the service.
	Rows(ctx context.Context, q Query) ([]Row, error)
	AppendAuditLog(ctx context.Context, entry *AdminAuditLog) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Rows(ctx context.Context, q Query) ([]Row, error) {
	ownerColumn := ""
	switch q.Role {
	case auth.RoleCollector:
		ownerColumn = "tokens.collector_id"
	case auth.RoleVendor:
		ownerColumn = "tokens.vendor_id"
	default:
		return nil, fmt.Errorf("unsupported settlement role %q", q.Role)
	}

	var rows []Row
	query := r.db.WithContext(ctx).
		Table("tokens").
		Select(fmt.Sprintf(`tokens.id AS token_id, tokens.code AS token_code,
			%s AS owner_id, actors.full_name AS owner_name,
			actors.bank_name, actors.account_number, actors.location,
			tokens.material_type, tokens.weight_kg, tokens.amount,
			tokens.status, tokens.is_valid, tokens.flagged_reason,
			tokens.created_at, tokens.paid_out_at`, ownerColumn)).
		Joins(fmt.Sprintf("LEFT JOIN actors ON actors.id = %s", ownerColumn)).
		Where("tokens.created_at >= ? AND tokens.created_at <= ?", q.Start, q.End).
		Order("tokens.created_at DESC")
	if q.Location != "" {
		query = query.Where("actors.location = ?", q.Location)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormRepository) AppendAuditLog(ctx context.Context, entry *AdminAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
