package simulator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/utils"
)

//go:generate mockgen -destination=../mocks/mock_fullnode.go -package=mocks github.com/kamalbuilds/movetracer/simulator FullNode
type FullNode interface {
	LedgerInfo(ctx context.Context) (*movement.LedgerInfo, error)
	Account(ctx context.Context, address string) (*movement.AccountData, error)
	AccountResources(ctx context.Context, address string) ([]movement.Resource, error)
	AccountModule(ctx context.Context, address, module string) (*movement.MoveModule, error)
	TransactionByHash(ctx context.Context, hash string) (*movement.Transaction, error)
	Transactions(ctx context.Context, limit int) ([]movement.Transaction, error)
	SimulateTransaction(ctx context.Context, body *movement.SignedSimulationBody,
		opts fullnode.SimulateOptions) (*movement.Transaction, error)
	View(ctx context.Context, view movement.ViewRequest) ([]json.RawMessage, error)
	EstimateGasPrice(ctx context.Context) (*movement.GasEstimation, error)
	Probe(ctx context.Context, endpoint string) (*fullnode.ProbeResult, error)
}

var _ FullNode = (*fullnode.Client)(nil)

// ClientFactory builds the full node client of one network.
type ClientFactory func(network utils.NetworkDescriptor) FullNode

const (
	DefaultABICacheSize         = 256
	DefaultTransactionCacheSize = 1024
)

type cacheKey struct {
	network utils.Network
	id      string
}

// Service runs simulations, replays and validations against the networks of a registry.
type Service struct {
	registry *utils.Registry
	nodes    map[utils.Network]FullNode
	log      utils.SimpleLogger
	history  history.Store
	now      func() time.Time

	abis *lru.Cache[cacheKey, *movement.ModuleABI]
	txs  *lru.Cache[cacheKey, *movement.TransactionInfo]
}

func New(registry *utils.Registry, factory ClientFactory) *Service {
	s := &Service{
		registry: registry,
		nodes:    make(map[utils.Network]FullNode),
		log:      utils.NewNopZapLogger(),
		now:      time.Now,
	}
	for _, d := range registry.Networks() {
		s.nodes[d.Network] = factory(d)
	}
	return s.WithCacheSizes(DefaultABICacheSize, DefaultTransactionCacheSize)
}

func (s *Service) WithLogger(log utils.SimpleLogger) *Service {
	s.log = log
	return s
}

// WithHistory records every completed simulation and replay in store.
func (s *Service) WithHistory(store history.Store) *Service {
	s.history = store
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCacheSizes sizes the module ABI and committed transaction caches. Both hold
// immutable data only.
func (s *Service) WithCacheSizes(abis, txs int) *Service {
	var err error
	if s.abis, err = lru.New[cacheKey, *movement.ModuleABI](max(abis, 1)); err != nil {
		panic(err)
	}
	if s.txs, err = lru.New[cacheKey, *movement.TransactionInfo](max(txs, 1)); err != nil {
		panic(err)
	}
	return s
}

func (s *Service) Registry() *utils.Registry {
	return s.registry
}

func (s *Service) History() history.Store {
	return s.history
}

func (s *Service) resolve(network string) (*utils.NetworkDescriptor, FullNode, error) {
	d, err := s.registry.Resolve(network)
	if err != nil {
		return nil, nil, err
	}
	node, ok := s.nodes[d.Network]
	if !ok {
		return nil, nil, &utils.ConfigError{Network: network}
	}
	return d, node, nil
}

// moduleABI looks an ABI up through the cache. Published modules only change on
// upgrade, which a short-lived process can ignore.
func (s *Service) moduleABI(ctx context.Context, network utils.Network, node FullNode, id movement.FunctionID) (*movement.ModuleABI, error) {
	key := cacheKey{network: network, id: id.ModuleID()}
	if abi, ok := s.abis.Get(key); ok {
		return abi, nil
	}
	module, err := node.AccountModule(ctx, id.Address, id.Module)
	if err != nil {
		return nil, err
	}
	abi := module.ABI
	if abi == nil {
		abi = &movement.ModuleABI{Address: id.Address, Name: id.Module}
	}
	s.abis.Add(key, abi)
	return abi, nil
}

func (s *Service) record(rec history.Record, result *movement.SimulationResult) {
	if s.history == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()
	result.ID = rec.ID
	stored := *result
	rec.Result = &stored
	if _, err := s.history.Put(rec); err != nil {
		s.log.Warnw("Failed to record simulation history", "kind", rec.Kind, "err", err)
		result.ID = ""
	}
}
