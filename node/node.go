package node

import (
	"context"
	"fmt"
	"net"
	"reflect"
	"strconv"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/service"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/conc"
)

// Movetracer is a runnable movetracer server.
type Movetracer interface {
	Run(ctx context.Context)
	Config() Config
}

type NewMovetracerFn func(cfg *Config, version string) (Movetracer, error)

var _ Movetracer = (*Node)(nil)

type Node struct {
	cfg     *Config
	svc     *simulator.Service
	history history.Store
	handler *Handler
	http    *httpService

	services []service.Service
	log      utils.Logger

	version string
}

// New wires a simulator service and its REST surface from cfg. Listeners are bound
// here so that port conflicts surface before Run.
func New(cfg *Config, version string) (*Node, error) {
	log, err := utils.NewZapLogger(cfg.LogLevel, cfg.Colour)
	if err != nil {
		return nil, err
	}
	if cfg.Network == 0 {
		cfg.Network = utils.Testnet
	}

	reg := prometheus.NewRegistry()
	listener := fullnode.EventListener(&fullnode.SelectiveListener{})
	if cfg.Metrics {
		listener = makeFullNodeMetrics(reg)
	}
	svc, err := newService(cfg, log, listener, version)
	if err != nil {
		return nil, err
	}
	store := svc.History()

	maxSimulations := cfg.MaxSimulations
	if maxSimulations == 0 {
		maxSimulations = 1
	}
	throttler := utils.NewThrottler(maxSimulations, svc)
	if cfg.MaxQueuedSimulations > 0 {
		throttler = throttler.WithMaxQueueLen(cfg.MaxQueuedSimulations)
	}
	handler := NewHandler(svc).
		WithLogger(log).
		WithThrottler(throttler).
		WithDefaultNetwork(cfg.Network).
		WithCORS(cfg.CORSOrigins).
		WithVersion(version)

	n := &Node{
		cfg:     cfg,
		svc:     svc,
		history: store,
		handler: handler,
		log:     log,
		version: version,
	}

	if cfg.Metrics {
		makeInfoMetrics(reg, version)
		makeThrottlerMetrics(reg, throttler)
		handler.WithListener(makeHTTPMetrics(reg))

		metricsListener, err := listen(cfg.MetricsHost, cfg.MetricsPort)
		if err != nil {
			n.closeHistory()
			return nil, fmt.Errorf("listen for metrics: %w", err)
		}
		n.services = append(n.services, makeMetrics(metricsListener, reg, reg))
	}

	httpListener, err := listen(cfg.HTTPHost, cfg.HTTPPort)
	if err != nil {
		for _, s := range n.services {
			_ = s.(*httpService).listener.Close()
		}
		n.closeHistory()
		return nil, fmt.Errorf("listen for HTTP: %w", err)
	}
	n.http = makeHTTPService(httpListener, handler.Routes())
	n.services = append(n.services, n.http)
	return n, nil
}

// NewService builds a simulator.Service from cfg without any server around it. The
// caller owns the history store and must close it.
func NewService(cfg *Config, log utils.SimpleLogger, version string) (*simulator.Service, error) {
	return newService(cfg, log, &fullnode.SelectiveListener{}, version)
}

func newService(cfg *Config, log utils.SimpleLogger, listener fullnode.EventListener, version string) (*simulator.Service, error) {
	store, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	ua := "movetracer/" + version
	timeouts := cfg.Timeouts()
	newClient := func(d utils.NetworkDescriptor) simulator.FullNode {
		return fullnode.NewClient(d).
			WithLogger(log).
			WithListener(listener).
			WithTimeouts(timeouts).
			WithUserAgent(ua)
	}
	return simulator.New(cfg.Registry(), newClient).
		WithLogger(log).
		WithHistory(store).
		WithCacheSizes(cfg.ABICacheSize, cfg.TxCacheSize), nil
}

func openHistory(cfg *Config) (history.Store, error) {
	if cfg.HistoryPath == "" {
		return history.NewMemory(cfg.HistoryLimit), nil
	}
	dbLog, err := utils.NewZapLogger(utils.ERROR, cfg.Colour)
	if err != nil {
		return nil, fmt.Errorf("create history logger: %w", err)
	}
	store, err := history.NewPebble(cfg.HistoryPath, cfg.HistoryLimit, dbLog)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func listen(host string, port uint16) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)))
}

func (n *Node) closeHistory() {
	if err := n.history.Close(); err != nil {
		n.log.Errorw("Error while closing the history", "err", err)
	}
}

// Run starts every service and blocks until ctx is cancelled or a service fails.
// Run waits for all services to return before exiting.
func (n *Node) Run(ctx context.Context) {
	defer n.closeHistory()

	ctx, cancel := context.WithCancel(ctx)
	wg := conc.NewWaitGroup()
	for _, s := range n.services {
		wg.Go(func() {
			if err := s.Run(ctx); err != nil {
				n.log.Errorw("Service error", "name", reflect.TypeOf(s), "err", err)
				cancel()
			}
		})
	}
	defer wg.Wait()

	n.log.Infow("Movetracer is ready", "version", n.version, "network", n.cfg.Network, "http", n.addr())
	<-ctx.Done()
	cancel()
	n.log.Infow("Shutting down movetracer...")
}

func (n *Node) addr() string {
	return n.http.listener.Addr().String()
}

func (n *Node) Config() Config {
	return *n.cfg
}

func (n *Node) Service() *simulator.Service {
	return n.svc
}

// Handler returns the REST handler so it can be served elsewhere.
func (n *Node) Handler() *Handler {
	return n.handler
}
