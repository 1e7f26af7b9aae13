package risk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	domain "p2p-lending-backend/internal/domain/risk"
	"p2p-lending-backend/pkg/money"

	"golang.org/x/sync/singleflight"
)

const (
	// Low temperature and a bounded completion keep the model direct and
	// the output parseable.
	inferenceTemperature = 0.5
	inferenceMaxTokens   = 250
)

type AnalyzeInput struct {
	Borrower       string
	Amount         money.Amount
	InterestBps    int64
	DurationDays   int64
	Collateral     money.Amount
	CompletedLoans int64
}

type Usecase struct {
	cache     domain.AssessmentCache
	gateway   domain.ChainGateway
	inference domain.InferenceClient

	ttl              time.Duration
	gatewayTimeout   time.Duration
	inferenceTimeout time.Duration

	group singleflight.Group
}

func NewUsecase(cache domain.AssessmentCache, gw domain.ChainGateway, inf domain.InferenceClient,
	ttl, gatewayTimeout, inferenceTimeout time.Duration) *Usecase {
	return &Usecase{
		cache:            cache,
		gateway:          gw,
		inference:        inf,
		ttl:              ttl,
		gatewayTimeout:   gatewayTimeout,
		inferenceTimeout: inferenceTimeout,
	}
}

// Analyze returns the risk assessment for the given loan terms, from cache
// when a fresh entry exists. Concurrent misses for the same key share one
// underlying computation.
func (u *Usecase) Analyze(ctx context.Context, in AnalyzeInput) (*domain.Assessment, error) {
	key := cacheKey(in)

	if a, ok, err := u.cache.Get(ctx, key); err == nil && ok {
		return a, nil
	} else if err != nil {
		// A broken cache degrades to a recompute, never a failed request.
		log.Printf("risk: cache get %s: %v", key, err)
	}

	v, err, _ := u.group.Do(key, func() (any, error) {
		return u.analyze(ctx, in, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Assessment), nil
}

func (u *Usecase) analyze(ctx context.Context, in AnalyzeInput, key string) (*domain.Assessment, error) {
	snap := u.accountSnapshot(ctx, in.Borrower)

	infCtx, cancel := context.WithTimeout(ctx, u.inferenceTimeout)
	defer cancel()
	text, err := u.inference.Complete(infCtx, buildPrompt(in, snap), inferenceTemperature, inferenceMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInferenceUnavailable, err)
	}

	a, err := parseAssessment(text)
	if err != nil {
		return nil, err
	}

	if err := u.cache.Set(ctx, key, a, u.ttl); err != nil {
		log.Printf("risk: cache set %s: %v", key, err)
	}
	return a, nil
}

// accountSnapshot fetches on-chain data under a bounded timeout. Gateway
// failure substitutes zero-valued defaults; the analysis continues.
func (u *Usecase) accountSnapshot(ctx context.Context, address string) *domain.AccountSnapshot {
	gwCtx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
	defer cancel()
	snap, err := u.gateway.GetAccountSnapshot(gwCtx, address)
	if err != nil || snap == nil {
		log.Printf("risk: gateway degraded for %s: %v", address, err)
		return &domain.AccountSnapshot{}
	}
	return snap
}

// cacheKey is the sha256 of the stable serialization of the six analysis
// inputs; identical terms always hit the same entry.
func cacheKey(in AnalyzeInput) string {
	s := fmt.Sprintf("%s|%d|%d|%d|%d|%d",
		strings.ToLower(in.Borrower), in.Amount.Units(), in.InterestBps,
		in.DurationDays, in.Collateral.Units(), in.CompletedLoans)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func buildPrompt(in AnalyzeInput, snap *domain.AccountSnapshot) string {
	var b strings.Builder
	b.WriteString("Analyze the risk of a P2P loan for an investor.\n\n")
	b.WriteString("Borrower on-chain data:\n")
	fmt.Fprintf(&b, "- Wallet age: %d days\n", snap.WalletAgeDays)
	fmt.Fprintf(&b, "- Transactions: %d\n", snap.TxCount)
	fmt.Fprintf(&b, "- Balance: %s ETH\n", snap.Balance.String())
	fmt.Fprintf(&b, "- Completed loans on this platform: %d\n\n", in.CompletedLoans)
	b.WriteString("Loan terms:\n")
	fmt.Fprintf(&b, "- Amount: %s ETH\n", in.Amount.String())
	fmt.Fprintf(&b, "- Interest: %d bps\n", in.InterestBps)
	fmt.Fprintf(&b, "- Duration: %d days\n", in.DurationDays)
	fmt.Fprintf(&b, "- Collateral: %s ETH\n\n", in.Collateral.String())
	b.WriteString("Task: assess the risk for an investor. Respond STRICTLY and ONLY with a JSON object. ")
	b.WriteString("Do not include text, explanations or markdown before or after the JSON object.\n\n")
	b.WriteString("Required JSON format:\n")
	b.WriteString(`{"riskScore": a number from 0 to 100 (100 = lowest risk), "analysis": "One short sentence explaining the score."}`)
	return b.String()
}

// parseAssessment extracts the JSON object substring from the model output
// (first '{' through last '}') and parses it. Anything else is malformed.
func parseAssessment(text string) (*domain.Assessment, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no json object found", domain.ErrMalformedAIResponse)
	}
	var a domain.Assessment
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedAIResponse, err)
	}
	if a.RiskScore < 0 || a.RiskScore > 100 {
		return nil, fmt.Errorf("%w: riskScore %d out of range", domain.ErrMalformedAIResponse, a.RiskScore)
	}
	return &a, nil
}
