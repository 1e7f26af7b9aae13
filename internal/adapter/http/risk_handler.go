package http

import (
	"net/http"

	"p2p-lending-backend/internal/usecase/reputation"
	"p2p-lending-backend/internal/usecase/risk"
	"p2p-lending-backend/pkg/money"

	"github.com/labstack/echo/v4"
)

type RiskHandler struct {
	uc  *risk.Usecase
	rep *reputation.Usecase
}

func NewRiskHandler(uc *risk.Usecase, rep *reputation.Usecase) *RiskHandler {
	return &RiskHandler{uc: uc, rep: rep}
}

type riskReq struct {
	Borrower       string `json:"borrower" validate:"required,ethaddr"`
	Amount         string `json:"amount" validate:"required,amount"`
	InterestBps    int64  `json:"interest_bps" validate:"gte=0,lte=100000"`
	DurationDays   int64  `json:"duration_days" validate:"required,gt=0"`
	Collateral     string `json:"collateral" validate:"omitempty,amount"`
	CompletedLoans *int64 `json:"completed_loans" validate:"omitempty,gte=0"`
}

// AnalyzeRisk scores a prospective loan. completed_loans may be supplied by
// the caller; when omitted it is sourced from the reputation index.
func (h *RiskHandler) AnalyzeRisk(c echo.Context) error {
	var req riskReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "InvalidParameters", Details: ToFieldErrors(err)})
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return loanError(c, 0, err)
	}
	collateral := money.Amount(0)
	if req.Collateral != "" {
		if collateral, err = money.Parse(req.Collateral); err != nil {
			return loanError(c, 0, err)
		}
	}

	completed := int64(0)
	if req.CompletedLoans != nil {
		completed = *req.CompletedLoans
	} else if n, err := h.rep.CompletedLoans(c.Request().Context(), req.Borrower); err == nil {
		completed = n
	}

	a, err := h.uc.Analyze(c.Request().Context(), risk.AnalyzeInput{
		Borrower:       req.Borrower,
		Amount:         amount,
		InterestBps:    req.InterestBps,
		DurationDays:   req.DurationDays,
		Collateral:     collateral,
		CompletedLoans: completed,
	})
	if err != nil {
		kind, status := kindOf(err)
		return c.JSON(status, ErrorResponse{Error: kind})
	}
	return c.JSON(http.StatusOK, a)
}
