package uowmock

import (
	"context"
	"errors"

	"p2p-lending-backend/internal/domain/loan"
	"p2p-lending-backend/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn     func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn func(ctx context.Context, id uint64, fn func(r uow.Repos, l *loan.Loan) error) error
}

func New() *UoW { return &UoW{} }

// Passthrough builds a UoW that hands fn the given repos and loan with no
// real transaction, which is what most state-machine tests want.
func Passthrough(repos uow.Repos, byID func(id uint64) (*loan.Loan, error)) *UoW {
	return &UoW{
		WithinTxFn: func(ctx context.Context, fn func(r uow.Repos) error) error {
			return fn(repos)
		},
		WithinLoanTxFn: func(ctx context.Context, id uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
			l, err := byID(id)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
	}
}

func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, id uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, id, fn)
	}
	return errUnimplemented
}
