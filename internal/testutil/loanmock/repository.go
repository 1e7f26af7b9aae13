package loanmock

import (
	"context"
	"errors"

	domain "p2p-lending-backend/internal/domain/loan"
)

// Ensure compile-time compliance
var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("loanmock: method not implemented")

// Repo is a function-backed mock that satisfies loan.Repository. Fill in
// the function fields a test needs; unfilled ones fail loudly.
type Repo struct {
	CreateFn           func(ctx context.Context, l *domain.Loan) error
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Loan, error)
	SaveFn             func(ctx context.Context, l *domain.Loan) error
	ListFn             func(ctx context.Context, status domain.Status) ([]domain.Loan, error)
	ListByBorrowerFn   func(ctx context.Context, borrower string) ([]domain.Loan, error)
	AggregateScoresFn  func(ctx context.Context, borrower string) (domain.ScoreAggregate, error)
	CountCompletedFn   func(ctx context.Context, borrower string) (int64, error)
	ListCustodiedFn    func(ctx context.Context) ([]domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, errUnimplemented
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) List(ctx context.Context, status domain.Status) ([]domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, status)
	}
	return nil, errUnimplemented
}

func (m *Repo) ListByBorrower(ctx context.Context, borrower string) ([]domain.Loan, error) {
	if m.ListByBorrowerFn != nil {
		return m.ListByBorrowerFn(ctx, borrower)
	}
	return nil, errUnimplemented
}

func (m *Repo) AggregateScores(ctx context.Context, borrower string) (domain.ScoreAggregate, error) {
	if m.AggregateScoresFn != nil {
		return m.AggregateScoresFn(ctx, borrower)
	}
	return domain.ScoreAggregate{}, errUnimplemented
}

func (m *Repo) CountCompleted(ctx context.Context, borrower string) (int64, error) {
	if m.CountCompletedFn != nil {
		return m.CountCompletedFn(ctx, borrower)
	}
	return 0, errUnimplemented
}

func (m *Repo) ListCustodied(ctx context.Context) ([]domain.Loan, error) {
	if m.ListCustodiedFn != nil {
		return m.ListCustodiedFn(ctx)
	}
	return nil, errUnimplemented
}
