package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "p2p-lending-backend/internal/domain/loan"
	"p2p-lending-backend/internal/domain/uow"
	"p2p-lending-backend/pkg/money"

	"gorm.io/gorm"
)

// ReputationInvalidator drops cached borrower aggregates after a commit
// that changes them (score set, loan concluded).
type ReputationInvalidator interface {
	Invalidate(borrower string)
}

type Usecase struct {
	repo       domain.Repository
	uow        uow.UnitOfWork
	reputation ReputationInvalidator
}

// NewUsecase: repo serves reads, uow serves every mutating transition.
// reputation may be nil (no cache to invalidate).
func NewUsecase(r domain.Repository, tx uow.UnitOfWork, rep ReputationInvalidator) *Usecase {
	return &Usecase{repo: r, uow: tx, reputation: rep}
}

func (u *Usecase) invalidate(borrower string) {
	if u.reputation != nil {
		u.reputation.Invalidate(borrower)
	}
}

// Create opens a new loan request. Collateral, if any, is escrowed from the
// borrower as part of the same commit.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanView, error) {
	if in.Borrower == "" || in.Amount <= 0 || in.DurationDays <= 0 || in.DeadlineDays <= 0 ||
		in.InterestBps < 0 || in.Collateral < 0 {
		return nil, domain.ErrInvalidParameters
	}
	now := time.Now().UTC()
	l := &domain.Loan{
		Borrower:         in.Borrower,
		AmountRequested:  in.Amount.Units(),
		InterestBps:      in.InterestBps,
		DurationSecs:     in.DurationDays * 24 * 3600,
		FundingDeadline:  now.Add(time.Duration(in.DeadlineDays) * 24 * time.Hour),
		Status:           domain.StatusOpen,
		CollateralAmount: in.Collateral.Units(),
		StatusUpdatedAt:  now,
	}
	if err := u.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return toView(l), nil
}

// Cancel: Open → Cancelled by the borrower. Escrowed collateral is released
// back to the borrower in the same commit, so the claim guard flips here.
func (u *Usecase) Cancel(ctx context.Context, id uint64, caller string) (*LoanView, error) {
	return u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusOpen {
			return domain.ErrInvalidState
		}
		if caller != l.Borrower {
			return domain.ErrNotBorrower
		}
		l.Status = domain.StatusCancelled
		if l.CollateralAmount > 0 {
			l.CollateralClaimed = true
		}
		return nil
	})
}

// Fund: Open → Funded. The investor pays in exactly the requested principal,
// which stays escrowed until the borrower activates.
func (u *Usecase) Fund(ctx context.Context, id uint64, caller string, paid money.Amount) (*LoanView, error) {
	return u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusOpen {
			return domain.ErrInvalidState
		}
		if caller == l.Borrower {
			return domain.ErrSelfFunding
		}
		if !time.Now().UTC().Before(l.FundingDeadline) {
			return domain.ErrFundingExpired
		}
		if paid != l.Principal() {
			return domain.ErrAmountMismatch
		}
		l.Investor = caller
		l.Status = domain.StatusFunded
		return nil
	})
}

// CancelFunded: Funded → Cancelled by the investor, once the grace window
// (fundingDeadline + duration) has elapsed without activation. The investor
// is refunded their principal; the borrower's collateral stays locked until
// they reclaim it via WithdrawCollateral.
func (u *Usecase) CancelFunded(ctx context.Context, id uint64, caller string) (*LoanView, error) {
	return u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusFunded {
			return domain.ErrInvalidState
		}
		if caller != l.Investor {
			return domain.ErrNotInvestor
		}
		if !time.Now().UTC().After(l.FundedGraceEnd()) {
			return domain.ErrNotExpired
		}
		l.Status = domain.StatusCancelled
		return nil
	})
}

// Activate: Funded → Active by the borrower, releasing the escrowed
// principal to them and starting the repayment clock.
func (u *Usecase) Activate(ctx context.Context, id uint64, caller string) (*LoanView, error) {
	return u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusFunded {
			return domain.ErrInvalidState
		}
		if caller != l.Borrower {
			return domain.ErrNotBorrower
		}
		l.StartTimestamp = time.Now().UTC().Unix()
		l.Status = domain.StatusActive
		return nil
	})
}

// Repay: Active → Repaid by the borrower with exactly principal + interest.
// Accepted regardless of the due date; a late repayment pre-empts default.
func (u *Usecase) Repay(ctx context.Context, id uint64, caller string, paid money.Amount) (*LoanView, error) {
	v, err := u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusActive {
			return domain.ErrInvalidState
		}
		if caller != l.Borrower {
			return domain.ErrNotBorrower
		}
		if paid != l.RepaymentDue() {
			return domain.ErrAmountMismatch
		}
		l.Status = domain.StatusRepaid
		return nil
	})
	if err == nil {
		u.invalidate(v.Borrower)
	}
	return v, err
}

// TriggerDefault: Active → Defaulted by the investor, only after the due
// date has passed.
func (u *Usecase) TriggerDefault(ctx context.Context, id uint64, caller string) (*LoanView, error) {
	v, err := u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusActive {
			return domain.ErrInvalidState
		}
		if caller != l.Investor {
			return domain.ErrNotInvestor
		}
		if !time.Now().UTC().After(l.DueAt()) {
			return domain.ErrNotYetDue
		}
		l.Status = domain.StatusDefaulted
		return nil
	})
	if err == nil {
		u.invalidate(v.Borrower)
	}
	return v, err
}

// WithdrawInvestorShare releases the repayment to the investor, minus the
// platform fee on the interest. Withdrawal is gated on submitting a 1-5
// score for the borrower; both flip in one commit and only once.
func (u *Usecase) WithdrawInvestorShare(ctx context.Context, id uint64, caller string, score int) (*PayoutResult, error) {
	var payout money.Amount
	v, err := u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusRepaid {
			return domain.ErrInvalidState
		}
		if caller != l.Investor {
			return domain.ErrNotInvestor
		}
		if l.InvestorWithdrawn {
			return domain.ErrAlreadyWithdrawn
		}
		if score < 1 || score > 5 {
			return domain.ErrInvalidScore
		}
		interest := l.InterestDue()
		payout = l.Principal().Add(interest).Sub(money.PlatformFee(interest))
		l.InvestorWithdrawn = true
		l.Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.invalidate(v.Borrower)
	return &PayoutResult{Payout: payout.String(), Loan: *v}, nil
}

// WithdrawCollateral returns the full collateral to the borrower, fee-free.
// Valid after repayment, and after an investor-side CancelFunded (the
// cancellation leaves the borrower's collateral locked until reclaimed).
func (u *Usecase) WithdrawCollateral(ctx context.Context, id uint64, caller string) (*PayoutResult, error) {
	var payout money.Amount
	v, err := u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusRepaid && l.Status != domain.StatusCancelled {
			return domain.ErrInvalidState
		}
		if caller != l.Borrower {
			return domain.ErrNotBorrower
		}
		if l.CollateralAmount == 0 {
			return domain.ErrNoCollateral
		}
		if l.CollateralClaimed {
			return domain.ErrAlreadyClaimed
		}
		payout = l.Collateral()
		l.CollateralClaimed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PayoutResult{Payout: payout.String(), Loan: *v}, nil
}

// ClaimCollateral forfeits a defaulted borrower's collateral to the
// investor, minus the platform fee. With zero collateral the call still
// records the score and transfers nothing.
func (u *Usecase) ClaimCollateral(ctx context.Context, id uint64, caller string, score int) (*PayoutResult, error) {
	var payout money.Amount
	v, err := u.transition(ctx, id, func(l *domain.Loan) error {
		if l.Status != domain.StatusDefaulted {
			return domain.ErrInvalidState
		}
		if caller != l.Investor {
			return domain.ErrNotInvestor
		}
		if l.CollateralClaimed {
			return domain.ErrAlreadyClaimed
		}
		if score < 1 || score > 5 {
			return domain.ErrInvalidScore
		}
		if l.CollateralAmount > 0 {
			payout = l.Collateral().Sub(money.PlatformFee(l.Collateral()))
		}
		l.CollateralClaimed = true
		l.Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.invalidate(v.Borrower)
	return &PayoutResult{Payout: payout.String(), Loan: *v}, nil
}

// transition runs fn against the row-locked loan and saves it, returning the
// post-commit view. fn mutates the loan only after all guards pass.
func (u *Usecase) transition(ctx context.Context, id uint64, fn func(l *domain.Loan) error) (*LoanView, error) {
	if u.uow == nil {
		return nil, fmt.Errorf("loan usecase: no unit of work configured")
	}
	var view *LoanView
	err := u.uow.WithinLoanTx(ctx, id, func(r uow.Repos, l *domain.Loan) error {
		if err := fn(l); err != nil {
			return err
		}
		l.StatusUpdatedAt = time.Now().UTC()
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		view = toView(l)
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return view, nil
}

func (u *Usecase) Get(ctx context.Context, id uint64) (*LoanView, error) {
	l, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toView(l), nil
}

// List returns loan views, optionally filtered by status.
func (u *Usecase) List(ctx context.Context, status string) ([]LoanView, error) {
	ls, err := u.repo.List(ctx, domain.Status(status))
	if err != nil {
		return nil, err
	}
	out := make([]LoanView, 0, len(ls))
	for i := range ls {
		out = append(out, *toView(&ls[i]))
	}
	return out, nil
}

// CustodiedBalance sums everything the ledger currently holds in escrow:
// principal for funded loans, the full repayment for repaid-not-withdrawn
// loans, and unclaimed collateral. The conservation invariant says this is
// the ledger's total custodied balance.
func (u *Usecase) CustodiedBalance(ctx context.Context) (string, error) {
	ls, err := u.repo.ListCustodied(ctx)
	if err != nil {
		return "", err
	}
	var total money.Amount
	for i := range ls {
		l := &ls[i]
		switch l.Status {
		case domain.StatusFunded:
			total = total.Add(l.Principal())
		case domain.StatusRepaid:
			if !l.InvestorWithdrawn {
				total = total.Add(l.RepaymentDue())
			}
		}
		if l.CollateralAmount > 0 && !l.CollateralClaimed {
			total = total.Add(l.Collateral())
		}
	}
	return total.String(), nil
}
