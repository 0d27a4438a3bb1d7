package fraud

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"greencycle/waste-portal/waste-portal-backend/pkg/tokencode"
)

// Severity decides how a caller should react to an issue: soft issues flag
// the token for manual review, hard issues block the operation.
type Severity string

const (
	SeveritySoft Severity = "soft"
	SeverityHard Severity = "hard"
)

// Weight bounds in kilograms. A single drop above reviewWeightKg is unusual
// enough to need manual review; above rejectWeightKg it is rejected outright.
var (
	reviewWeightKg = decimal.NewFromInt(1000)
	rejectWeightKg = decimal.NewFromInt(10000)
)

// Issue is one integrity finding on a token.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report is the result of checking a token. Valid is false if any issue was
// found, hard or soft; callers inspect severities to decide whether to block.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// HasHard reports whether any issue requires rejection.
func (r Report) HasHard() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityHard {
			return true
		}
	}
	return false
}

// FlagReason joins soft issue messages for storage on the token.
func (r Report) FlagReason() string {
	reason := ""
	for _, issue := range r.Issues {
		if reason != "" {
			reason += "; "
		}
		reason += issue.Message
	}
	return reason
}

// TokenInput is the integrity-relevant view of a token. The checker is a
// pure function over this snapshot; it never touches storage.
type TokenInput struct {
	Code         string
	CollectorID  uuid.UUID
	VendorID     uuid.UUID
	MaterialType string
	WeightKg     decimal.Decimal
	EventTimes   []time.Time
}

// Checker validates token shape, weight bounds and audit-trail ordering.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// CheckToken runs all integrity checks and returns the combined report.
func (c *Checker) CheckToken(tok TokenInput) Report {
	var issues []Issue

	if !tokencode.Validate(tok.Code) {
		issues = append(issues, Issue{SeverityHard, fmt.Sprintf("malformed token code %q", tok.Code)})
	}
	if tok.CollectorID == uuid.Nil {
		issues = append(issues, Issue{SeverityHard, "collector_id is required"})
	}
	if tok.VendorID == uuid.Nil {
		issues = append(issues, Issue{SeverityHard, "vendor_id is required"})
	}
	if tok.MaterialType == "" {
		issues = append(issues, Issue{SeverityHard, "material_type is required"})
	}

	switch {
	case !tok.WeightKg.IsPositive():
		issues = append(issues, Issue{SeverityHard, fmt.Sprintf("weight must be positive, got %s kg", tok.WeightKg)})
	case tok.WeightKg.GreaterThan(rejectWeightKg):
		issues = append(issues, Issue{SeverityHard, fmt.Sprintf("weight %s kg is far outside plausible bounds", tok.WeightKg)})
	case tok.WeightKg.GreaterThan(reviewWeightKg):
		issues = append(issues, Issue{SeveritySoft, fmt.Sprintf("weight %s kg is unusually high, manual review required", tok.WeightKg)})
	}

	for i := 1; i < len(tok.EventTimes); i++ {
		if tok.EventTimes[i].Before(tok.EventTimes[i-1]) {
			issues = append(issues, Issue{SeverityHard,
				fmt.Sprintf("audit trail timestamps out of order at position %d", i)})
			break
		}
	}

	return Report{Valid: len(issues) == 0, Issues: issues}
}
