package loan

import (
	"time"

	"p2p-lending-backend/pkg/money"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusFunded    Status = "funded"
	StatusActive    Status = "active"
	StatusRepaid    Status = "repaid"
	StatusDefaulted Status = "defaulted"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	return s == StatusRepaid || s == StatusDefaulted || s == StatusCancelled
}

// Loan is the ledger-owned record for one loan. The numeric ID is assigned
// monotonically by the database and never reused. Amounts are micro-unit
// integers (see pkg/money), never floats.
type Loan struct {
	ID                uint64    `gorm:"primaryKey;column:id" json:"loan_id"`
	Borrower          string    `gorm:"size:64;index:idx_loans_borrower" json:"borrower"`
	Investor          string    `gorm:"size:64;index:idx_loans_investor" json:"investor,omitempty"`
	AmountRequested   int64     `gorm:"column:amount_requested" json:"amount_requested"`
	InterestBps       int64     `gorm:"column:interest_bps" json:"interest_bps"`
	DurationSecs      int64     `gorm:"column:duration_secs" json:"duration_secs"`
	FundingDeadline   time.Time `gorm:"column:funding_deadline" json:"funding_deadline"`
	Status            Status    `gorm:"type:varchar(16);default:'open';index:idx_loans_status" json:"status"`
	StartTimestamp    int64     `gorm:"column:start_timestamp;default:0" json:"start_timestamp"`
	CollateralAmount  int64     `gorm:"column:collateral_amount" json:"collateral_amount"`
	CollateralClaimed bool      `gorm:"column:collateral_claimed;default:false" json:"collateral_claimed"`
	Score             int       `gorm:"column:score;default:0" json:"score"`
	InvestorWithdrawn bool      `gorm:"column:investor_withdrawn;default:false" json:"investor_withdrawn"`
	StatusUpdatedAt   time.Time `gorm:"autoCreateTime" json:"status_updated_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

func (l *Loan) Principal() money.Amount  { return money.FromUnits(l.AmountRequested) }
func (l *Loan) Collateral() money.Amount { return money.FromUnits(l.CollateralAmount) }

// InterestDue is floor(principal * interestBps / 10000).
func (l *Loan) InterestDue() money.Amount {
	return money.Interest(l.Principal(), l.InterestBps)
}

// RepaymentDue is principal + interest, the exact amount repay must carry.
func (l *Loan) RepaymentDue() money.Amount {
	return l.Principal().Add(l.InterestDue())
}

// DueAt is the repayment due date: startTimestamp + duration. Meaningless
// before activation (StartTimestamp stays 0 until then).
func (l *Loan) DueAt() time.Time {
	return time.Unix(l.StartTimestamp, 0).UTC().Add(time.Duration(l.DurationSecs) * time.Second)
}

// FundedGraceEnd is when a funded-but-never-activated loan becomes
// cancellable by the investor. Anchored at the funding deadline because the
// start timestamp is unset before activation.
func (l *Loan) FundedGraceEnd() time.Time {
	return l.FundingDeadline.Add(time.Duration(l.DurationSecs) * time.Second)
}
