package loan

import (
	"time"

	domain "p2p-lending-backend/internal/domain/loan"
	"p2p-lending-backend/pkg/money"
)

type CreateLoanInput struct {
	Borrower     string
	Amount       money.Amount
	InterestBps  int64
	DurationDays int64
	DeadlineDays int64
	Collateral   money.Amount
}

// LoanView is the authoritative post-mutation state returned by every
// command, so the caller never needs to poll-and-guess.
type LoanView struct {
	ID                uint64    `json:"loan_id"`
	Borrower          string    `json:"borrower"`
	Investor          string    `json:"investor,omitempty"`
	Amount            string    `json:"amount"`
	InterestBps       int64     `json:"interest_bps"`
	DurationSecs      int64     `json:"duration_secs"`
	FundingDeadline   time.Time `json:"funding_deadline"`
	Status            string    `json:"status"`
	StartTimestamp    int64     `json:"start_timestamp"`
	Collateral        string    `json:"collateral"`
	CollateralClaimed bool      `json:"collateral_claimed"`
	Score             int       `json:"score"`
	InvestorWithdrawn bool      `json:"investor_withdrawn"`
	RepaymentDue      string    `json:"repayment_due"`
	CreatedAt         time.Time `json:"created_at"`
}

// PayoutResult pairs a withdrawal payout with the post-mutation loan state.
type PayoutResult struct {
	Payout string   `json:"payout"`
	Loan   LoanView `json:"loan"`
}

func toView(l *domain.Loan) *LoanView {
	return &LoanView{
		ID:                l.ID,
		Borrower:          l.Borrower,
		Investor:          l.Investor,
		Amount:            l.Principal().String(),
		InterestBps:       l.InterestBps,
		DurationSecs:      l.DurationSecs,
		FundingDeadline:   l.FundingDeadline,
		Status:            string(l.Status),
		StartTimestamp:    l.StartTimestamp,
		Collateral:        l.Collateral().String(),
		CollateralClaimed: l.CollateralClaimed,
		Score:             l.Score,
		InvestorWithdrawn: l.InvestorWithdrawn,
		RepaymentDue:      l.RepaymentDue().String(),
		CreatedAt:         l.CreatedAt,
	}
}
