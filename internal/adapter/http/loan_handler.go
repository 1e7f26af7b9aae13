package http

import (
	"context"
	"net/http"
	"strconv"

	"p2p-lending-backend/internal/usecase/loan"
	"p2p-lending-backend/internal/usecase/reputation"
	"p2p-lending-backend/pkg/money"

	"github.com/labstack/echo/v4"
)

// PartyHeader carries the caller identity on every command. Authentication
// of that identity is upstream's problem, not this service's.
const PartyHeader = "Ax-Party-Id"

type LoanHandler struct {
	uc  *loan.Usecase
	rep *reputation.Usecase
}

func NewLoanHandler(uc *loan.Usecase, rep *reputation.Usecase) *LoanHandler {
	return &LoanHandler{uc: uc, rep: rep}
}

func caller(c echo.Context) (string, bool) {
	p := c.Request().Header.Get(PartyHeader)
	return p, reEthAddr.MatchString(p)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "InvalidParameters", Details: []FieldError{{Field: "_", Message: msg}}})
}

func loanError(c echo.Context, id uint64, err error) error {
	kind, status := kindOf(err)
	return c.JSON(status, ErrorResponse{Error: kind, LoanID: id})
}

func loanID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

type createLoanReq struct {
	Amount       string `json:"amount" validate:"required,amount"`
	InterestBps  int64  `json:"interest_bps" validate:"gte=0,lte=100000"`
	DurationDays int64  `json:"duration_days" validate:"required,gt=0"`
	DeadlineDays int64  `json:"deadline_days" validate:"gte=0"`
	Collateral   string `json:"collateral" validate:"omitempty,amount"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	borrower, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	var req createLoanReq
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
	if req.DeadlineDays == 0 {
		req.DeadlineDays = 30 // default funding window
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		Borrower:     borrower,
		Amount:       amount,
		InterestBps:  req.InterestBps,
		DurationDays: req.DurationDays,
		DeadlineDays: req.DeadlineDays,
		Collateral:   collateral,
	})
	if err != nil {
		return loanError(c, 0, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

type paymentReq struct {
	PaidAmount string `json:"paid_amount" validate:"required,amount"`
}

func (h *LoanHandler) bindPayment(c echo.Context) (money.Amount, error) {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return 0, err
	}
	if err := c.Validate(&req); err != nil {
		return 0, err
	}
	return money.Parse(req.PaidAmount)
}

func (h *LoanHandler) Fund(c echo.Context) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	investor, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	paid, err := h.bindPayment(c)
	if err != nil {
		return badRequest(c, "paid_amount must be a valid decimal amount")
	}
	dto, err := h.uc.Fund(c.Request().Context(), id, investor, paid)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	return h.simpleTransition(c, h.uc.Cancel)
}

func (h *LoanHandler) CancelFunded(c echo.Context) error {
	return h.simpleTransition(c, h.uc.CancelFunded)
}

func (h *LoanHandler) Activate(c echo.Context) error {
	return h.simpleTransition(c, h.uc.Activate)
}

func (h *LoanHandler) TriggerDefault(c echo.Context) error {
	return h.simpleTransition(c, h.uc.TriggerDefault)
}

// simpleTransition covers the commands that carry no body: just id + caller.
func (h *LoanHandler) simpleTransition(c echo.Context,
	op func(ctx context.Context, id uint64, caller string) (*loan.LoanView, error)) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	party, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	dto, err := op(c.Request().Context(), id, party)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Repay(c echo.Context) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	borrower, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	paid, err := h.bindPayment(c)
	if err != nil {
		return badRequest(c, "paid_amount must be a valid decimal amount")
	}
	dto, err := h.uc.Repay(c.Request().Context(), id, borrower, paid)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type scoreReq struct {
	Score int `json:"score" validate:"required,gte=1,lte=5"`
}

func (h *LoanHandler) WithdrawInvestorShare(c echo.Context) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	investor, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	var req scoreReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.uc.WithdrawInvestorShare(c.Request().Context(), id, investor, req.Score)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) WithdrawCollateral(c echo.Context) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	borrower, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	res, err := h.uc.WithdrawCollateral(c.Request().Context(), id, borrower)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) ClaimCollateral(c echo.Context) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	investor, ok := caller(c)
	if !ok {
		return badRequest(c, "missing or invalid "+PartyHeader)
	}
	var req scoreReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.uc.ClaimCollateral(c.Request().Context(), id, investor, req.Score)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := loanID(c)
	if err != nil {
		return badRequest(c, "invalid loan id")
	}
	dto, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return loanError(c, id, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListLoans(c echo.Context) error {
	dtos, err := h.uc.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return loanError(c, 0, err)
	}
	return c.JSON(http.StatusOK, dtos)
}

// CustodiedBalance exposes the ledger's total escrowed funds; it makes the
// conservation invariant observable from outside.
func (h *LoanHandler) CustodiedBalance(c echo.Context) error {
	total, err := h.uc.CustodiedBalance(c.Request().Context())
	if err != nil {
		return loanError(c, 0, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"custodied_balance": total})
}

func (h *LoanHandler) GetReputation(c echo.Context) error {
	address := c.Param("address")
	if !reEthAddr.MatchString(address) {
		return badRequest(c, "invalid borrower address")
	}
	snap, err := h.rep.Snapshot(c.Request().Context(), address)
	if err != nil {
		return loanError(c, 0, err)
	}
	return c.JSON(http.StatusOK, snap)
}
