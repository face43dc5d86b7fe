package fullnode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kamalbuilds/movetracer/movement"
)

func (c *Client) LedgerInfo(ctx context.Context) (*movement.LedgerInfo, error) {
	info := new(movement.LedgerInfo)
	if err := c.do(ctx, Request{Path: "/", Class: Lookup}, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) Account(ctx context.Context, address string) (*movement.AccountData, error) {
	account := new(movement.AccountData)
	if err := c.do(ctx, Request{Path: "/accounts/" + url.PathEscape(address), Class: Lookup}, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (c *Client) AccountResources(ctx context.Context, address string) ([]movement.Resource, error) {
	var resources []movement.Resource
	if err := c.do(ctx, Request{Path: "/accounts/" + url.PathEscape(address) + "/resources", Class: Lookup}, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (c *Client) AccountModule(ctx context.Context, address, module string) (*movement.MoveModule, error) {
	path := "/accounts/" + url.PathEscape(address) + "/module/" + url.PathEscape(module)
	m := new(movement.MoveModule)
	if err := c.do(ctx, Request{Path: path, Class: Lookup}, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash string) (*movement.Transaction, error) {
	tx := new(movement.Transaction)
	if err := c.do(ctx, Request{Path: "/transactions/by_hash/" + url.PathEscape(hash), Class: Transaction}, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Transactions lists the most recent committed transactions.
func (c *Client) Transactions(ctx context.Context, limit int) ([]movement.Transaction, error) {
	var txs []movement.Transaction
	req := Request{
		Path:  "/transactions",
		Query: url.Values{"limit": {strconv.Itoa(limit)}},
		Class: Transaction,
	}
	if err := c.do(ctx, req, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// SimulateOptions asks the node to estimate gas values the caller did not pin.
type SimulateOptions struct {
	EstimateGasUnitPrice bool
	EstimateMaxGasAmount bool
}

func (o SimulateOptions) query() url.Values {
	q := url.Values{}
	if o.EstimateGasUnitPrice {
		q.Set("estimate_gas_unit_price", "true")
	}
	if o.EstimateMaxGasAmount {
		q.Set("estimate_max_gas_amount", "true")
	}
	return q
}

var ErrEmptySimulation = errors.New("node returned no simulation result")

// simulationResponse accepts both shapes the node answers simulate with: an array of
// one record or a bare record.
type simulationResponse []movement.Transaction

func (s *simulationResponse) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var list []movement.Transaction
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one movement.Transaction
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = simulationResponse{one}
	return nil
}

func (c *Client) SimulateTransaction(ctx context.Context, body *movement.SignedSimulationBody,
	opts SimulateOptions,
) (*movement.Transaction, error) {
	var res simulationResponse
	req := Request{
		Method: http.MethodPost,
		Path:   "/transactions/simulate",
		Query:  opts.query(),
		Body:   body,
		Class:  Simulate,
	}
	if err := c.do(ctx, req, &res); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrEmptySimulation
	}
	return &res[0], nil
}

// View calls a read-only function and returns its return values.
func (c *Client) View(ctx context.Context, view movement.ViewRequest) ([]json.RawMessage, error) {
	var values []json.RawMessage
	req := Request{Method: http.MethodPost, Path: "/view", Body: view, Class: Lookup}
	if err := c.do(ctx, req, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *Client) EstimateGasPrice(ctx context.Context) (*movement.GasEstimation, error) {
	estimate := new(movement.GasEstimation)
	if err := c.do(ctx, Request{Path: "/estimate_gas_price", Class: Lookup}, estimate); err != nil {
		return nil, err
	}
	return estimate, nil
}

// ProbeResult is the health of a single endpoint.
type ProbeResult struct {
	Endpoint   string
	StatusCode int
	Latency    time.Duration
	Ledger     *movement.LedgerInfo
}

// Probe asks a single endpoint for its ledger info without failing over. Probes are not
// reported to the listener.
func (c *Client) Probe(ctx context.Context, endpoint string) (*ProbeResult, error) {
	start := time.Now()
	outcome := c.attempt(ctx, &SelectiveListener{}, endpoint, Request{Path: "/", Class: Lookup}, nil, c.timeouts.For(Lookup))
	result := &ProbeResult{Endpoint: endpoint, Latency: time.Since(start)}

	res, ok := outcome.Terminal()
	if !ok {
		te := outcome.Err()
		result.StatusCode = te.StatusCode
		return result, te
	}
	result.StatusCode = res.StatusCode
	if res.StatusCode >= http.StatusBadRequest {
		return result, decodeClientError(res)
	}
	ledger := new(movement.LedgerInfo)
	if err := json.Unmarshal(res.Body, ledger); err != nil {
		return result, fmt.Errorf("decode ledger info from %s: %w", endpoint, err)
	}
	result.Ledger = ledger
	return result, nil
}
