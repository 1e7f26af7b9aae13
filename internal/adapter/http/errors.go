package http

import (
	"errors"
	"net/http"

	loanDomain "p2p-lending-backend/internal/domain/loan"
	riskDomain "p2p-lending-backend/internal/domain/risk"
	"p2p-lending-backend/pkg/money"
)

// kindOf maps a usecase error to the façade's error kind and HTTP status.
// Kinds are stable strings the UI renders specific messaging from; it never
// parses free text.
func kindOf(err error) (string, int) {
	switch {
	case errors.Is(err, loanDomain.ErrInvalidParameters), errors.Is(err, money.ErrInvalidAmount):
		return "InvalidParameters", http.StatusBadRequest
	case errors.Is(err, loanDomain.ErrNotFound):
		return "LoanNotFound", http.StatusNotFound
	case errors.Is(err, loanDomain.ErrNotBorrower):
		return "NotBorrower", http.StatusForbidden
	case errors.Is(err, loanDomain.ErrNotInvestor):
		return "NotInvestor", http.StatusForbidden
	case errors.Is(err, loanDomain.ErrInvalidState):
		return "InvalidState", http.StatusConflict
	case errors.Is(err, loanDomain.ErrAmountMismatch):
		return "AmountMismatch", http.StatusBadRequest
	case errors.Is(err, loanDomain.ErrFundingExpired):
		return "FundingExpired", http.StatusUnprocessableEntity
	case errors.Is(err, loanDomain.ErrSelfFunding):
		return "SelfFunding", http.StatusConflict
	case errors.Is(err, loanDomain.ErrNotExpired):
		return "NotExpired", http.StatusUnprocessableEntity
	case errors.Is(err, loanDomain.ErrNotYetDue):
		return "NotYetDue", http.StatusUnprocessableEntity
	case errors.Is(err, loanDomain.ErrAlreadyWithdrawn):
		return "AlreadyWithdrawn", http.StatusConflict
	case errors.Is(err, loanDomain.ErrAlreadyClaimed):
		return "AlreadyClaimed", http.StatusConflict
	case errors.Is(err, loanDomain.ErrNoCollateral):
		return "NoCollateral", http.StatusBadRequest
	case errors.Is(err, loanDomain.ErrInvalidScore):
		return "InvalidScore", http.StatusBadRequest
	case errors.Is(err, riskDomain.ErrMalformedAIResponse):
		return "MalformedAiResponse", http.StatusBadGateway
	case errors.Is(err, riskDomain.ErrInferenceUnavailable):
		return "InferenceUnavailable", http.StatusBadGateway
	default:
		return "Internal", http.StatusInternalServerError
	}
}
