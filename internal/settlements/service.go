package settlements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"greencycle/waste-portal/waste-portal-backend/internal/config"
	"greencycle/waste-portal/waste-portal-backend/internal/wallet"
	"greencycle/waste-portal/waste-portal-backend/pkg/workflows"
)

type Service interface {
	// List is the read-side treasury view: rows bucketed into settled,
	// pending and flagged, plus window aggregates. No mutation.
	List(ctx context.Context, q Query) (*Result, error)
	// Disburse credits an actor's wallet from an admin action, referencing
	// the token or shipment the payout is for. The admin audit log entry is
	// distinct from the token's own trail.
	Disburse(ctx context.Context, adminID, targetOwnerID uuid.UUID, amount decimal.Decimal, description, reference string) (*wallet.LedgerEntry, error)
}

type settlementService struct {
	repo    Repository
	wallets wallet.Service
	cfg     config.SettlementConfig
	logger  *zap.Logger
}

func NewService(repo Repository, wallets wallet.Service, cfg config.SettlementConfig, logger *zap.Logger) Service {
	return &settlementService{repo: repo, wallets: wallets, cfg: cfg, logger: logger}
}

// bucketFor classifies one row. Flagged wins over everything: an invalid or
// disputed token needs review regardless of how far it got.
func bucketFor(row Row) Bucket {
	if !row.IsValid || row.Status == workflows.StatusDisputed {
		return BucketFlagged
	}
	if row.Status == workflows.StatusPaymentReleased {
		return BucketSettled
	}
	return BucketPending
}

func (s *settlementService) List(ctx context.Context, q Query) (*Result, error) {
	if q.Limit <= 0 || q.Limit > s.cfg.PageLimit {
		q.Limit = s.cfg.PageLimit
	}
	rows, err := s.repo.Rows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement rows: %w", err)
	}

	summary := Summary{TotalAmount: decimal.Zero, PendingAmount: decimal.Zero}
	var settlementSeconds float64
	for i := range rows {
		rows[i].Bucket = bucketFor(rows[i])
		summary.TotalAmount = summary.TotalAmount.Add(rows[i].Amount)
		switch rows[i].Bucket {
		case BucketSettled:
			summary.SettledCount++
			if rows[i].PaidOutAt != nil {
				settlementSeconds += rows[i].PaidOutAt.Sub(rows[i].CreatedAt).Seconds()
			}
		case BucketPending:
			summary.PendingCount++
			summary.PendingAmount = summary.PendingAmount.Add(rows[i].Amount)
		case BucketFlagged:
			summary.FlaggedCount++
		}
	}
	if summary.SettledCount > 0 {
		summary.AvgSettlementSeconds = settlementSeconds / float64(summary.SettledCount)
	}

	return &Result{Summary: summary, Rows: rows}, nil
}

func (s *settlementService) Disburse(ctx context.Context, adminID, targetOwnerID uuid.UUID, amount decimal.Decimal, description, reference string) (*wallet.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("disbursement amount must be positive, got %s", amount)
	}
	entry, err := s.wallets.Credit(ctx, targetOwnerID, amount, wallet.KindEarn, description, wallet.Refs{Reference: reference})
	if err != nil {
		return nil, fmt.Errorf("disbursement failed: %w", err)
	}
	audit := &AdminAuditLog{
		ID:        uuid.New(),
		AdminID:   adminID,
		Action:    "disburse",
		TargetID:  targetOwnerID,
		Amount:    amount,
		Reference: reference,
	}
	if err := s.repo.AppendAuditLog(ctx, audit); err != nil {
		// The credit has landed; losing the admin audit row is a reportable
		// inconsistency, not something to roll the payout back over.
		s.logger.Error("disbursement credited but audit log write failed",
			zap.String("admin_id", adminID.String()),
			zap.String("target_id", targetOwnerID.String()),
			zap.Error(err))
		return entry, fmt.Errorf("disbursement applied but audit log failed: %w", err)
	}
	s.logger.Info("disbursement",
		zap.String("admin_id", adminID.String()),
		zap.String("target_id", targetOwnerID.String()),
		zap.String("amount", amount.String()),
		zap.String("reference", reference))
	return entry, nil
}
