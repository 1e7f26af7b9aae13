package loan

import "context"

// ScoreAggregate holds the raw inputs for a borrower's average score.
type ScoreAggregate struct {
	Count int64
	Sum   int64
}

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByIDForUpdate locks the row so same-id transitions are linearized.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	// List returns loans newest-first; status "" means all statuses.
	List(ctx context.Context, status Status) ([]Loan, error)
	ListByBorrower(ctx context.Context, borrower string) ([]Loan, error)

	// Read-side projections for the reputation index.
	AggregateScores(ctx context.Context, borrower string) (ScoreAggregate, error)
	CountCompleted(ctx context.Context, borrower string) (int64, error)

	// ListCustodied returns every loan currently holding escrowed funds
	// (funded principal, unreleased repayment, or unclaimed collateral).
	ListCustodied(ctx context.Context) ([]Loan, error)
}
