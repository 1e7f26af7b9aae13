package uow

import (
	"context"

	"p2p-lending-backend/internal/domain/loan"
)

type Repos struct {
	Loans loan.Repository
}

// UnitOfWork scopes a set of repository calls to one database transaction.
// Status transition and escrow movement must commit together, so every
// mutating ledger operation runs inside WithinLoanTx.
type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan row first, then pass it in. Operations on
	// the same id are linearized by the row lock; different ids proceed in
	// parallel.
	WithinLoanTx(ctx context.Context, id uint64, fn func(r Repos, l *loan.Loan) error) error
}
