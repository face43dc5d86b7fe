package node

import (
	"time"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
)

// Config is the top-level movetracer configuration.
type Config struct {
	LogLevel utils.LogLevel `mapstructure:"log-level" yaml:"log-level"`
	Colour   bool           `mapstructure:"colour" yaml:"colour"`
	Network  utils.Network  `mapstructure:"network" yaml:"network"`

	HTTPHost    string   `mapstructure:"http-host" yaml:"http-host"`
	HTTPPort    uint16   `mapstructure:"http-port" yaml:"http-port"`
	CORSOrigins []string `mapstructure:"cors-origins" yaml:"cors-origins"`

	Metrics     bool   `mapstructure:"metrics" yaml:"metrics"`
	MetricsHost string `mapstructure:"metrics-host" yaml:"metrics-host"`
	MetricsPort uint16 `mapstructure:"metrics-port" yaml:"metrics-port"`

	MainnetRPC       string   `mapstructure:"mainnet-rpc" yaml:"mainnet-rpc,omitempty"`
	MainnetFallbacks []string `mapstructure:"mainnet-fallbacks" yaml:"mainnet-fallbacks,omitempty"`
	TestnetRPC       string   `mapstructure:"testnet-rpc" yaml:"testnet-rpc,omitempty"`
	TestnetFallbacks []string `mapstructure:"testnet-fallbacks" yaml:"testnet-fallbacks,omitempty"`
	DevnetRPC        string   `mapstructure:"devnet-rpc" yaml:"devnet-rpc,omitempty"`
	DevnetFallbacks  []string `mapstructure:"devnet-fallbacks" yaml:"devnet-fallbacks,omitempty"`

	LookupTimeout      time.Duration `mapstructure:"lookup-timeout" yaml:"lookup-timeout"`
	TransactionTimeout time.Duration `mapstructure:"transaction-timeout" yaml:"transaction-timeout"`
	SimulateTimeout    time.Duration `mapstructure:"simulate-timeout" yaml:"simulate-timeout"`

	HistoryPath  string `mapstructure:"history-path" yaml:"history-path"`
	HistoryLimit int    `mapstructure:"history-limit" yaml:"history-limit"`

	ABICacheSize         int   `mapstructure:"abi-cache-size" yaml:"abi-cache-size"`
	TxCacheSize          int   `mapstructure:"tx-cache-size" yaml:"tx-cache-size"`
	MaxSimulations       uint  `mapstructure:"max-simulations" yaml:"max-simulations"`
	MaxQueuedSimulations int32 `mapstructure:"max-queued-simulations" yaml:"max-queued-simulations"`
}

// DefaultConfig mirrors the defaults of the command line flags.
func DefaultConfig() Config {
	t := fullnode.DefaultTimeouts()
	return Config{
		LogLevel:             utils.INFO,
		Network:              utils.Testnet,
		HTTPHost:             "localhost",
		HTTPPort:             6070,
		CORSOrigins:          []string{"*"},
		MetricsHost:          "localhost",
		MetricsPort:          9090,
		LookupTimeout:        t.Lookup,
		TransactionTimeout:   t.Transaction,
		SimulateTimeout:      t.Simulate,
		HistoryLimit:         history.DefaultLimit,
		ABICacheSize:         simulator.DefaultABICacheSize,
		TxCacheSize:          simulator.DefaultTransactionCacheSize,
		MaxSimulations:       16,
		MaxQueuedSimulations: 64,
		MainnetFallbacks:     []string{},
		TestnetFallbacks:     []string{},
		DevnetFallbacks:      []string{},
	}
}

// Registry applies the configured endpoint overrides to the built-in networks. An empty
// fallback list keeps the built-in fallbacks.
func (c *Config) Registry() *utils.Registry {
	overrides := make(map[utils.Network]utils.EndpointOverride)
	add := func(n utils.Network, primary string, fallbacks []string) {
		if len(fallbacks) == 0 {
			fallbacks = nil
		}
		if primary != "" || fallbacks != nil {
			overrides[n] = utils.EndpointOverride{PrimaryEndpoint: primary, FallbackEndpoints: fallbacks}
		}
	}
	add(utils.Mainnet, c.MainnetRPC, c.MainnetFallbacks)
	add(utils.Testnet, c.TestnetRPC, c.TestnetFallbacks)
	add(utils.Devnet, c.DevnetRPC, c.DevnetFallbacks)
	return utils.NewRegistry(overrides)
}

func (c *Config) Timeouts() fullnode.Timeouts {
	return fullnode.Timeouts{
		Lookup:      c.LookupTimeout,
		Transaction: c.TransactionTimeout,
		Simulate:    c.SimulateTimeout,
	}
}
