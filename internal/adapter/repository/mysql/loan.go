package mysql

import (
	"context"

	loanDomain "p2p-lending-backend/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).First(&out, "id = ?", id)
	return &out, res.Error
}

// GetByIDForUpdate locks the loan row (SELECT ... FOR UPDATE) so concurrent
// transitions on the same id serialize; the loser sees the committed status.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*loanDomain.Loan, error) {
	q := r.db.WithContext(ctx)
	// sqlite has no FOR UPDATE; its single-writer lock serializes anyway.
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out loanDomain.Loan
	res := q.First(&out, "id = ?", id)
	return &out, res.Error
}

func (r *LoanRepository) List(ctx context.Context, status loanDomain.Status) ([]loanDomain.Loan, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []loanDomain.Loan
	res := q.Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrower string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("borrower = ?", borrower).
		Order("id DESC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) AggregateScores(ctx context.Context, borrower string) (loanDomain.ScoreAggregate, error) {
	var agg loanDomain.ScoreAggregate
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Select("COUNT(*) AS count, COALESCE(SUM(score), 0) AS sum").
		Where("borrower = ? AND score > 0", borrower).
		Scan(&agg)
	return agg, res.Error
}

func (r *LoanRepository) CountCompleted(ctx context.Context, borrower string) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("borrower = ? AND status IN ?", borrower, []loanDomain.Status{loanDomain.StatusRepaid, loanDomain.StatusDefaulted}).
		Count(&n)
	return n, res.Error
}

// ListCustodied fetches every loan that can still hold escrowed funds; the
// usecase does the fixed-point summing so no SQL dialect division is needed.
func (r *LoanRepository) ListCustodied(ctx context.Context) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("status = ?", loanDomain.StatusFunded).
		Or("status = ? AND investor_withdrawn = ?", loanDomain.StatusRepaid, false).
		Or("collateral_amount > 0 AND collateral_claimed = ?", false).
		Find(&out)
	return out, res.Error
}
