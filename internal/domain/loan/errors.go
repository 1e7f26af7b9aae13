package loan

import "errors"

// Ledger errors. Each maps 1:1 to an error kind the façade reports, so the
// HTTP layer matches with errors.Is and never parses message text.
var (
	ErrNotFound          = errors.New("loan not found")
	ErrInvalidParameters = errors.New("invalid loan parameters")
	ErrInvalidState      = errors.New("transition not legal from current status")
	ErrNotBorrower       = errors.New("caller is not the borrower")
	ErrNotInvestor       = errors.New("caller is not the investor")
	ErrAmountMismatch    = errors.New("paid amount does not match required amount")
	ErrFundingExpired    = errors.New("funding deadline has passed")
	ErrSelfFunding       = errors.New("borrower cannot fund own loan")
	ErrNotExpired        = errors.New("activation grace period has not elapsed")
	ErrNotYetDue         = errors.New("loan is not past its due date")
	ErrAlreadyWithdrawn  = errors.New("investor share already withdrawn")
	ErrAlreadyClaimed    = errors.New("collateral already claimed")
	ErrNoCollateral      = errors.New("loan has no collateral")
	ErrInvalidScore      = errors.New("score must be between 1 and 5")
)
