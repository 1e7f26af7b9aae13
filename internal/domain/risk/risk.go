package risk

import (
	"context"
	"time"

	"p2p-lending-backend/pkg/money"
)

// Assessment is the result of one risk analysis. RiskScore is 0-100,
// 100 meaning lowest risk.
type Assessment struct {
	RiskScore int    `json:"riskScore"`
	Analysis  string `json:"analysis"`
}

// AccountSnapshot is the on-chain view of a borrower at analysis time.
// All-zero values are the documented fallback when the gateway is down.
type AccountSnapshot struct {
	Balance       money.Amount
	TxCount       int
	WalletAgeDays int
}

// ChainGateway looks up a borrower's on-chain balance and transaction
// history. Failures are recovered by the caller, not surfaced.
type ChainGateway interface {
	GetAccountSnapshot(ctx context.Context, address string) (*AccountSnapshot, error)
}

// InferenceClient is the AI completion port. Temperature is kept low and
// maxTokens bounded by the caller.
type InferenceClient interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// AssessmentCache stores assessments under deterministic keys with a TTL.
type AssessmentCache interface {
	Get(ctx context.Context, key string) (*Assessment, bool, error)
	Set(ctx context.Context, key string, a *Assessment, ttl time.Duration) error
}
