package simulator

import (
	"context"
	"time"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/sourcegraph/conc"
)

const (
	recentScanLimit = 50
	recentKeep      = 10
)

// GetTransaction fetches a committed transaction by hash.
func (s *Service) GetTransaction(ctx context.Context, hash, network string) (*movement.TransactionInfo, error) {
	if hash == "" {
		return nil, &movement.InvalidPayloadError{Field: "hash", Reason: "Missing required parameter: hash"}
	}
	d, node, err := s.resolve(network)
	if err != nil {
		return nil, err
	}
	return s.transaction(ctx, d.Network, node, hash)
}

// transaction looks a committed transaction up through the cache.
func (s *Service) transaction(ctx context.Context, network utils.Network, node FullNode, hash string) (*movement.TransactionInfo, error) {
	key := cacheKey{network: network, id: hash}
	if info, ok := s.txs.Get(key); ok {
		return info, nil
	}
	tx, err := node.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	info := tx.Info()
	// Pending transactions have no version yet and may still change.
	if info.Version != "" {
		s.txs.Add(key, info)
	}
	return info, nil
}

type AccountInfo struct {
	Exists            bool                `json:"exists"`
	SequenceNumber    string              `json:"sequence_number"`
	AuthenticationKey *string             `json:"authentication_key"`
	Resources         []movement.Resource `json:"resources,omitempty"`
}

// GetAccountInfo reports whether address exists and, when asked, its resources. A
// resource listing failure leaves Resources empty.
func (s *Service) GetAccountInfo(ctx context.Context, address, network string, includeResources bool) (*AccountInfo, error) {
	if address == "" {
		return nil, &movement.InvalidPayloadError{Field: "address", Reason: "Missing required parameter: address"}
	}
	d, node, err := s.resolve(network)
	if err != nil {
		return nil, err
	}
	address = movement.NormalizeAddress(address)

	account, err := node.Account(ctx, address)
	switch {
	case fullnode.IsNotFound(err):
		return &AccountInfo{SequenceNumber: movement.DefaultSequenceNumber}, nil
	case err != nil:
		return nil, err
	}

	info := &AccountInfo{
		Exists:            true,
		SequenceNumber:    account.SequenceNumber,
		AuthenticationKey: utils.HeapPtr(account.AuthenticationKey),
	}
	if includeResources {
		info.Resources = []movement.Resource{}
		resources, err := node.AccountResources(ctx, address)
		if err != nil {
			s.log.Debugw("Resource listing failed", "network", d.Network, "address", address, "err", err)
		} else if resources != nil {
			info.Resources = resources
		}
	}
	return info, nil
}

type RecentTransaction struct {
	Hash      string `json:"hash"`
	Sender    string `json:"sender"`
	Success   bool   `json:"success"`
	Function  string `json:"function"`
	Timestamp string `json:"timestamp"`
	GasUsed   string `json:"gas_used"`
}

// RecentTransactions lists up to ten of the latest entry function calls, as replay
// candidates.
func (s *Service) RecentTransactions(ctx context.Context, network string) ([]RecentTransaction, error) {
	_, node, err := s.resolve(network)
	if err != nil {
		return nil, err
	}
	txs, err := node.Transactions(ctx, recentScanLimit)
	if err != nil {
		return nil, err
	}

	recent := make([]RecentTransaction, 0, recentKeep)
	for i := range txs {
		tx := &txs[i]
		if tx.Type != movement.UserTransaction || tx.Payload == nil || tx.Payload.Function == "" {
			continue
		}
		recent = append(recent, RecentTransaction{
			Hash:      tx.Hash,
			Sender:    tx.Sender,
			Success:   tx.Success,
			Function:  tx.Payload.Function,
			Timestamp: tx.Timestamp,
			GasUsed:   tx.GasUsed,
		})
		if len(recent) == recentKeep {
			break
		}
	}
	return recent, nil
}

type HealthStatus string

const (
	Online   HealthStatus = "online"
	Degraded HealthStatus = "degraded"
	Offline  HealthStatus = "offline"
)

type EndpointHealth struct {
	Endpoint    string       `json:"endpoint"`
	Primary     bool         `json:"primary"`
	Status      HealthStatus `json:"status"`
	StatusCode  int          `json:"status_code,omitempty"`
	LatencyMs   int64        `json:"latency_ms"`
	BlockHeight string       `json:"block_height,omitempty"`
	ChainID     *uint8       `json:"chain_id,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type NetworkHealth struct {
	Network   string           `json:"network"`
	Name      string           `json:"name"`
	Status    HealthStatus     `json:"status"`
	Endpoints []EndpointHealth `json:"endpoints"`
	CheckedAt time.Time        `json:"checked_at"`
}

// NetworkHealth probes every endpoint of network concurrently. The network is online
// when every endpoint is, offline when none answers at all and degraded otherwise.
func (s *Service) NetworkHealth(ctx context.Context, network string) (*NetworkHealth, error) {
	d, node, err := s.resolve(network)
	if err != nil {
		return nil, err
	}

	endpoints := d.Endpoints()
	health := make([]EndpointHealth, len(endpoints))
	wg := conc.NewWaitGroup()
	for i, endpoint := range endpoints {
		wg.Go(func() {
			health[i] = probe(ctx, node, endpoint)
			health[i].Primary = i == 0
		})
	}
	wg.Wait()

	return &NetworkHealth{
		Network:   d.Network.String(),
		Name:      d.Name,
		Status:    aggregate(health),
		Endpoints: health,
		CheckedAt: s.now().UTC(),
	}, nil
}

func probe(ctx context.Context, node FullNode, endpoint string) EndpointHealth {
	h := EndpointHealth{Endpoint: endpoint, Status: Offline}
	res, err := node.Probe(ctx, endpoint)
	if res != nil {
		h.StatusCode = res.StatusCode
		h.LatencyMs = res.Latency.Milliseconds()
	}
	switch {
	case err == nil:
		h.Status = Online
		if res.Ledger != nil {
			h.BlockHeight = res.Ledger.BlockHeight
			h.ChainID = utils.HeapPtr(res.Ledger.ChainID)
		}
	case res != nil && res.StatusCode != 0:
		h.Status = Degraded
		h.Error = err.Error()
	default:
		h.Error = err.Error()
	}
	return h
}

func aggregate(health []EndpointHealth) HealthStatus {
	online, offline := 0, 0
	for i := range health {
		switch health[i].Status {
		case Online:
			online++
		case Offline:
			offline++
		}
	}
	switch {
	case len(health) > 0 && online == len(health):
		return Online
	case offline == len(health):
		return Offline
	default:
		return Degraded
	}
}
