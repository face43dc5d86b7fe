package utils

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

var ErrUnknownNetwork = errors.New("unknown network (known: mainnet, testnet, devnet)")

// ConfigError is returned when a network identifier does not name a known network.
type ConfigError struct {
	Network string
}

func (e *ConfigError) Error() string {
	return "Invalid network: " + e.Network
}

func (e *ConfigError) Unwrap() error {
	return ErrUnknownNetwork
}

type Network int

// The following are necessary for Cobra and Viper, respectively, to unmarshal network
// CLI/config parameters properly.
var (
	_ pflag.Value              = (*Network)(nil)
	_ encoding.TextUnmarshaler = (*Network)(nil)
)

const (
	Mainnet Network = iota + 1
	Testnet
	Devnet
)

var knownNetworks = []Network{Mainnet, Testnet, Devnet}

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Devnet:
		return "devnet"
	default:
		// Should not happen.
		panic(ErrUnknownNetwork)
	}
}

func (n Network) MarshalYAML() (any, error) {
	return n.String(), nil
}

func (n Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

func (n *Network) Set(s string) error {
	switch s {
	case "MAINNET", "mainnet":
		*n = Mainnet
	case "TESTNET", "testnet":
		*n = Testnet
	case "DEVNET", "devnet":
		*n = Devnet
	default:
		return ErrUnknownNetwork
	}
	return nil
}

func (n *Network) Type() string {
	return "Network"
}

func (n *Network) UnmarshalText(text []byte) error {
	return n.Set(string(text))
}

// NetworkDescriptor names the full-node endpoints a network may be reached at.
// PrimaryEndpoint is always tried first, FallbackEndpoints in their listed order.
type NetworkDescriptor struct {
	Network           Network  `json:"id" yaml:"id"`
	Name              string   `json:"name" yaml:"name"`
	PrimaryEndpoint   string   `json:"primary_endpoint" yaml:"primary_endpoint"`
	FallbackEndpoints []string `json:"fallback_endpoints" yaml:"fallback_endpoints"`
	Indexer           string   `json:"indexer,omitempty" yaml:"indexer,omitempty"`
	Faucet            string   `json:"faucet,omitempty" yaml:"faucet,omitempty"`
}

// Endpoints returns the primary endpoint followed by the fallbacks.
func (d NetworkDescriptor) Endpoints() []string {
	endpoints := make([]string, 0, len(d.FallbackEndpoints)+1)
	endpoints = append(endpoints, d.PrimaryEndpoint)
	return append(endpoints, d.FallbackEndpoints...)
}

func defaultDescriptor(n Network) NetworkDescriptor {
	switch n {
	case Mainnet:
		return NetworkDescriptor{
			Network:           Mainnet,
			Name:              "Movement Mainnet",
			PrimaryEndpoint:   "https://mainnet.movementnetwork.xyz/v1",
			FallbackEndpoints: []string{"https://full.mainnet.movementinfra.xyz/v1"},
			Indexer:           "https://indexer.mainnet.movementnetwork.xyz/v1",
		}
	case Testnet:
		return NetworkDescriptor{
			Network:           Testnet,
			Name:              "Movement Testnet",
			PrimaryEndpoint:   "https://testnet.movementnetwork.xyz/v1",
			FallbackEndpoints: []string{"https://full.testnet.movementinfra.xyz/v1"},
			Indexer:           "https://indexer.testnet.movementnetwork.xyz/v1",
			Faucet:            "https://faucet.testnet.movementnetwork.xyz",
		}
	case Devnet:
		return NetworkDescriptor{
			Network:         Devnet,
			Name:            "Movement Devnet",
			PrimaryEndpoint: "https://devnet.movementnetwork.xyz/v1",
		}
	default:
		// Should not happen.
		panic(ErrUnknownNetwork)
	}
}

// EndpointOverride replaces the endpoints of a network. An empty PrimaryEndpoint keeps
// the built-in primary; a nil FallbackEndpoints keeps the built-in fallbacks.
type EndpointOverride struct {
	PrimaryEndpoint   string
	FallbackEndpoints []string
}

// Registry is the immutable set of networks the fetch layer may contact.
type Registry struct {
	networks map[Network]NetworkDescriptor
}

func DefaultRegistry() *Registry {
	return NewRegistry(nil)
}

func NewRegistry(overrides map[Network]EndpointOverride) *Registry {
	r := &Registry{networks: make(map[Network]NetworkDescriptor, len(knownNetworks))}
	for _, n := range knownNetworks {
		d := defaultDescriptor(n)
		if o, ok := overrides[n]; ok {
			if o.PrimaryEndpoint != "" {
				d.PrimaryEndpoint = strings.TrimSuffix(o.PrimaryEndpoint, "/")
			}
			if o.FallbackEndpoints != nil {
				d.FallbackEndpoints = make([]string, 0, len(o.FallbackEndpoints))
				for _, e := range o.FallbackEndpoints {
					if e = strings.TrimSpace(e); e != "" {
						d.FallbackEndpoints = append(d.FallbackEndpoints, strings.TrimSuffix(e, "/"))
					}
				}
			}
		}
		r.networks[n] = d
	}
	return r
}

// Resolve looks a network up by its identifier.
func (r *Registry) Resolve(id string) (*NetworkDescriptor, error) {
	var n Network
	if err := n.Set(id); err != nil {
		return nil, &ConfigError{Network: id}
	}
	return r.Descriptor(n)
}

func (r *Registry) Descriptor(n Network) (*NetworkDescriptor, error) {
	d, ok := r.networks[n]
	if !ok {
		return nil, &ConfigError{Network: fmt.Sprint(int(n))}
	}
	d.FallbackEndpoints = slices.Clone(d.FallbackEndpoints)
	return &d, nil
}

// Networks lists the registered networks in a stable order.
func (r *Registry) Networks() []NetworkDescriptor {
	out := make([]NetworkDescriptor, 0, len(r.networks))
	for _, n := range knownNetworks {
		if d, err := r.Descriptor(n); err == nil {
			out = append(out, *d)
		}
	}
	return out
}
