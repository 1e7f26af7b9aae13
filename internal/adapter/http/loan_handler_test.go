package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "p2p-lending-backend/internal/domain/loan"
	"p2p-lending-backend/internal/domain/uow"
	"p2p-lending-backend/internal/testutil/loanmock"
	"p2p-lending-backend/internal/testutil/uowmock"
	uc "p2p-lending-backend/internal/usecase/loan"
	"p2p-lending-backend/internal/usecase/reputation"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// -------- helpers --------

const (
	borrowerAddr = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	investorAddr = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// testLedger wires the real loan usecase to an in-memory store so handler
// tests exercise the whole command path below the HTTP surface.
type testLedger struct {
	store   map[uint64]*domain.Loan
	repo    *loanmock.Repo
	handler *LoanHandler
}

func newTestLedger() *testLedger {
	tl := &testLedger{store: map[uint64]*domain.Loan{}}
	var nextID uint64
	tl.repo = &loanmock.Repo{
		CreateFn: func(ctx context.Context, l *domain.Loan) error {
			nextID++
			l.ID = nextID
			cp := *l
			tl.store[l.ID] = &cp
			return nil
		},
		GetByIDFn: func(ctx context.Context, id uint64) (*domain.Loan, error) {
			l, ok := tl.store[id]
			if !ok {
				return nil, gorm.ErrRecordNotFound
			}
			cp := *l
			return &cp, nil
		},
		SaveFn: func(ctx context.Context, l *domain.Loan) error {
			cp := *l
			tl.store[l.ID] = &cp
			return nil
		},
		ListFn: func(ctx context.Context, status domain.Status) ([]domain.Loan, error) {
			var out []domain.Loan
			for _, l := range tl.store {
				if status == "" || l.Status == status {
					out = append(out, *l)
				}
			}
			return out, nil
		},
		AggregateScoresFn: func(ctx context.Context, borrower string) (domain.ScoreAggregate, error) {
			var agg domain.ScoreAggregate
			for _, l := range tl.store {
				if l.Borrower == borrower && l.Score > 0 {
					agg.Count++
					agg.Sum += int64(l.Score)
				}
			}
			return agg, nil
		},
		CountCompletedFn: func(ctx context.Context, borrower string) (int64, error) {
			var n int64
			for _, l := range tl.store {
				if l.Borrower == borrower && (l.Status == domain.StatusRepaid || l.Status == domain.StatusDefaulted) {
					n++
				}
			}
			return n, nil
		},
	}
	tx := uowmock.Passthrough(uow.Repos{Loans: tl.repo}, func(id uint64) (*domain.Loan, error) {
		l, ok := tl.store[id]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		cp := *l
		return &cp, nil
	})
	rep := reputation.NewUsecase(tl.repo)
	tl.handler = NewLoanHandler(uc.NewUsecase(tl.repo, tx, rep), rep)
	return tl
}

func (tl *testLedger) seed(l *domain.Loan) *domain.Loan {
	l.ID = uint64(len(tl.store) + 1)
	tl.store[l.ID] = l
	return l
}

func postJSON(e *echo.Echo, target, party string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var rd *bytes.Reader
	if body != nil {
		rd = mustJSON(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(stdhttp.MethodPost, target, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if party != "" {
		req.Header.Set(PartyHeader, party)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

// -------- create --------

func TestCreateLoan_Success(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	c, rec := postJSON(e, "/loans", borrowerAddr, map[string]any{
		"amount":        "100",
		"interest_bps":  1000,
		"duration_days": 30,
		"deadline_days": 7,
		"collateral":    "50",
	})
	if err := tl.handler.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}
	var got uc.LoanView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.Borrower != borrowerAddr || got.Amount != "100" || got.Status != string(domain.StatusOpen) {
		t.Fatalf("unexpected view: %+v", got)
	}
	if got.RepaymentDue != "110" {
		t.Fatalf("repayment_due = %s", got.RepaymentDue)
	}
}

func TestCreateLoan_MissingPartyHeader(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	c, rec := postJSON(e, "/loans", "", map[string]any{
		"amount": "100", "duration_days": 30,
	})
	if err := tl.handler.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateLoan_BindError(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	req := httptest.NewRequest(stdhttp.MethodPost, "/loans", strings.NewReader(`{"amount":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(PartyHeader, borrowerAddr)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := tl.handler.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateLoan_ValidationError(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	c, rec := postJSON(e, "/loans", borrowerAddr, map[string]any{
		"amount":        "-5",
		"duration_days": 0,
	})
	if err := tl.handler.CreateLoan(c); err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if er.Error != "InvalidParameters" {
		t.Fatalf("error = %q", er.Error)
	}
	if !containsFieldMsg(er.Details, "Amount", "at most 6 decimal places") {
		t.Fatalf("missing amount detail: %+v", er.Details)
	}
	if !containsFieldMsg(er.Details, "DurationDays", "is required") {
		t.Fatalf("missing duration detail: %+v", er.Details)
	}
}

// -------- transitions over HTTP --------

func TestFund_SelfFundingConflict(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	l := tl.seed(&domain.Loan{
		Borrower:        borrowerAddr,
		AmountRequested: 100_000_000,
		DurationSecs:    30 * 24 * 3600,
		FundingDeadline: time.Now().UTC().Add(24 * time.Hour),
		Status:          domain.StatusOpen,
	})

	c, rec := postJSON(e, "/loans/1/fund", borrowerAddr, map[string]any{"paid_amount": "100"})
	withID(c, "1")
	if err := tl.handler.Fund(c); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "SelfFunding" || er.LoanID != l.ID {
		t.Fatalf("unexpected error payload: %+v", er)
	}
}

func TestFund_Success(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	tl.seed(&domain.Loan{
		Borrower:        borrowerAddr,
		AmountRequested: 100_000_000,
		DurationSecs:    30 * 24 * 3600,
		FundingDeadline: time.Now().UTC().Add(24 * time.Hour),
		Status:          domain.StatusOpen,
	})

	c, rec := postJSON(e, "/loans/1/fund", investorAddr, map[string]any{"paid_amount": "100"})
	withID(c, "1")
	if err := tl.handler.Fund(c); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var got uc.LoanView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.Status != string(domain.StatusFunded) || got.Investor != investorAddr {
		t.Fatalf("unexpected view: %+v", got)
	}
}

func TestFund_BadAmountBody(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	tl.seed(&domain.Loan{
		Borrower:        borrowerAddr,
		AmountRequested: 100_000_000,
		FundingDeadline: time.Now().UTC().Add(24 * time.Hour),
		Status:          domain.StatusOpen,
	})

	c, rec := postJSON(e, "/loans/1/fund", investorAddr, map[string]any{"paid_amount": "nope"})
	withID(c, "1")
	if err := tl.handler.Fund(c); err != nil {
		t.Fatalf("Fund: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCancel_WrongCallerForbidden(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	tl.seed(&domain.Loan{
		Borrower:        borrowerAddr,
		AmountRequested: 100_000_000,
		FundingDeadline: time.Now().UTC().Add(24 * time.Hour),
		Status:          domain.StatusOpen,
	})

	c, rec := postJSON(e, "/loans/1/cancel", investorAddr, nil)
	withID(c, "1")
	if err := tl.handler.Cancel(c); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "NotBorrower" {
		t.Fatalf("error = %q", er.Error)
	}
}

func TestWithdrawInvestorShare_PayoutAndScore(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	tl.seed(&domain.Loan{
		Borrower:        borrowerAddr,
		Investor:        investorAddr,
		AmountRequested: 100_000_000,
		InterestBps:     1000,
		Status:          domain.StatusRepaid,
	})

	c, rec := postJSON(e, "/loans/1/withdraw", investorAddr, map[string]any{"score": 4})
	withID(c, "1")
	if err := tl.handler.WithdrawInvestorShare(c); err != nil {
		t.Fatalf("WithdrawInvestorShare: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var got uc.PayoutResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.Payout != "109" {
		t.Fatalf("payout = %s", got.Payout)
	}
	if got.Loan.Score != 4 || !got.Loan.InvestorWithdrawn {
		t.Fatalf("unexpected loan: %+v", got.Loan)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/99", nil)
	rec := httptest.NewRecorder()
	c := withID(e.NewContext(req, rec), "99")

	if err := tl.handler.GetLoan(c); err != nil {
		t.Fatalf("GetLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &er)
	if er.Error != "LoanNotFound" {
		t.Fatalf("error = %q", er.Error)
	}
}

func TestGetLoan_BadID(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans/abc", nil)
	rec := httptest.NewRecorder()
	c := withID(e.NewContext(req, rec), "abc")

	if err := tl.handler.GetLoan(c); err != nil {
		t.Fatalf("GetLoan: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListLoans_StatusFilter(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	tl.seed(&domain.Loan{Borrower: borrowerAddr, Status: domain.StatusOpen})
	tl.seed(&domain.Loan{Borrower: borrowerAddr, Status: domain.StatusFunded, Investor: investorAddr})

	req := httptest.NewRequest(stdhttp.MethodGet, "/loans?status=funded", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := tl.handler.ListLoans(c); err != nil {
		t.Fatalf("ListLoans: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []uc.LoanView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(got) != 1 || got[0].Status != string(domain.StatusFunded) {
		t.Fatalf("unexpected list: %+v", got)
	}
}

// -------- reputation --------

func TestGetReputation(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()
	tl.seed(&domain.Loan{Borrower: borrowerAddr, Status: domain.StatusRepaid, Score: 5})
	tl.seed(&domain.Loan{Borrower: borrowerAddr, Status: domain.StatusDefaulted, Score: 2})

	req := httptest.NewRequest(stdhttp.MethodGet, "/borrowers/"+borrowerAddr+"/reputation", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("address")
	c.SetParamValues(borrowerAddr)

	if err := tl.handler.GetReputation(c); err != nil {
		t.Fatalf("GetReputation: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got reputation.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.CompletedLoans != 2 {
		t.Fatalf("completed = %d", got.CompletedLoans)
	}
	// (5+2)*100/2 = 350
	if got.AverageScore == nil || *got.AverageScore != 350 {
		t.Fatalf("average = %v", got.AverageScore)
	}
}

func TestGetReputation_BadAddress(t *testing.T) {
	e := newEchoWithValidator()
	tl := newTestLedger()

	req := httptest.NewRequest(stdhttp.MethodGet, "/borrowers/nope/reputation", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("address")
	c.SetParamValues("nope")

	if err := tl.handler.GetReputation(c); err != nil {
		t.Fatalf("GetReputation: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
