package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domain "p2p-lending-backend/internal/domain/risk"
	"p2p-lending-backend/pkg/money"

	"golang.org/x/sync/errgroup"
)

// weiPerMicroEth converts wei (1e18 per ETH) to money.Amount micro-units
// (1e6 per ETH); sub-micro dust floors away.
var weiPerMicroEth = big.NewInt(1_000_000_000_000)

// EtherscanGateway implements risk.ChainGateway against the Etherscan
// account API: one balance call and one transaction-list call.
type EtherscanGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewEtherscanGateway(baseURL, apiKey string, timeout time.Duration) *EtherscanGateway {
	return &EtherscanGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type balanceResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

type txListResponse struct {
	Status string `json:"status"`
	Result []struct {
		TimeStamp string `json:"timeStamp"`
	} `json:"result"`
}

func (g *EtherscanGateway) GetAccountSnapshot(ctx context.Context, address string) (*domain.AccountSnapshot, error) {
	var (
		balance money.Amount
		txCount int
		ageDays int
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var out balanceResponse
		if err := g.get(egCtx, address, "balance", nil, &out); err != nil {
			return err
		}
		wei, ok := new(big.Int).SetString(out.Result, 10)
		if !ok {
			return fmt.Errorf("etherscan: bad balance %q", out.Result)
		}
		micro := new(big.Int).Quo(wei, weiPerMicroEth)
		if !micro.IsInt64() {
			return fmt.Errorf("etherscan: balance overflow %q", out.Result)
		}
		balance = money.FromUnits(micro.Int64())
		return nil
	})
	eg.Go(func() error {
		var out txListResponse
		params := url.Values{"startblock": {"0"}, "endblock": {"99999999"}, "sort": {"asc"}}
		if err := g.get(egCtx, address, "txlist", params, &out); err != nil {
			return err
		}
		txCount = len(out.Result)
		if txCount > 0 {
			first, err := strconv.ParseInt(out.Result[0].TimeStamp, 10, 64)
			if err != nil {
				return fmt.Errorf("etherscan: bad first tx timestamp: %w", err)
			}
			ageDays = int(time.Since(time.Unix(first, 0)).Hours() / 24)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	return &domain.AccountSnapshot{
		Balance:       balance,
		TxCount:       txCount,
		WalletAgeDays: ageDays,
	}, nil
}

func (g *EtherscanGateway) get(ctx context.Context, address, action string, extra url.Values, out any) error {
	q := url.Values{
		"module":  {"account"},
		"action":  {action},
		"address": {address},
		"apikey":  {g.apiKey},
	}
	for k, vs := range extra {
		q[k] = vs
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("etherscan: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
