package reputation

import (
	"context"
	"sync"

	domain "p2p-lending-backend/internal/domain/loan"
)

// Snapshot is a derived, read-side projection of a borrower's loan history.
// AverageScore is scaled x100 (450 = 4.50) and nil when no loan has been
// scored yet.
type Snapshot struct {
	Borrower       string `json:"borrower"`
	CompletedLoans int64  `json:"completed_loans"`
	AverageScore   *int64 `json:"average_score"`
}

// Usecase recomputes borrower aggregates from the loan collection and
// memoizes them until a score-setting or loan-concluding commit invalidates
// the borrower's entry. This keeps the "recomputed from ledger" semantic
// without rescanning on every read.
type Usecase struct {
	repo domain.Repository

	mu    sync.RWMutex
	cache map[string]Snapshot
	gen   map[string]uint64
}

func NewUsecase(r domain.Repository) *Usecase {
	return &Usecase{repo: r, cache: make(map[string]Snapshot), gen: make(map[string]uint64)}
}

// Snapshot returns the borrower's aggregates, from cache when fresh.
func (u *Usecase) Snapshot(ctx context.Context, borrower string) (*Snapshot, error) {
	u.mu.RLock()
	if s, ok := u.cache[borrower]; ok {
		u.mu.RUnlock()
		return &s, nil
	}
	g := u.gen[borrower]
	u.mu.RUnlock()

	agg, err := u.repo.AggregateScores(ctx, borrower)
	if err != nil {
		return nil, err
	}
	completed, err := u.repo.CountCompleted(ctx, borrower)
	if err != nil {
		return nil, err
	}
	s := Snapshot{Borrower: borrower, CompletedLoans: completed}
	if agg.Count > 0 {
		avg := agg.Sum * 100 / agg.Count
		s.AverageScore = &avg
	}

	// An Invalidate between the repository reads above and this store means
	// the snapshot may already be stale; skip memoizing it and let the next
	// read recompute.
	u.mu.Lock()
	if u.gen[borrower] == g {
		u.cache[borrower] = s
	}
	u.mu.Unlock()
	return &s, nil
}

// AverageScore returns the x100-scaled mean score, or nil if unscored.
func (u *Usecase) AverageScore(ctx context.Context, borrower string) (*int64, error) {
	s, err := u.Snapshot(ctx, borrower)
	if err != nil {
		return nil, err
	}
	return s.AverageScore, nil
}

// CompletedLoans counts the borrower's Repaid and Defaulted loans.
func (u *Usecase) CompletedLoans(ctx context.Context, borrower string) (int64, error) {
	s, err := u.Snapshot(ctx, borrower)
	if err != nil {
		return 0, err
	}
	return s.CompletedLoans, nil
}

// Invalidate drops the borrower's cached snapshot. Called by the loan
// usecase after every commit that changes scores or completed counts.
func (u *Usecase) Invalidate(borrower string) {
	u.mu.Lock()
	delete(u.cache, borrower)
	u.gen[borrower]++
	u.mu.Unlock()
}
