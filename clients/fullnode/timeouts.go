package fullnode

import (
	"fmt"
	"strings"
	"time"
)

// CallClass groups upstream calls that share a per-attempt timeout.
type CallClass int

const (
	Lookup CallClass = iota
	Transaction
	Simulate
)

func (c CallClass) String() string {
	switch c {
	case Lookup:
		return "lookup"
	case Transaction:
		return "transaction"
	case Simulate:
		return "simulate"
	default:
		return fmt.Sprintf("CallClass(%d)", int(c))
	}
}

const (
	DefaultLookupTimeout      = 5 * time.Second
	DefaultTransactionTimeout = 10 * time.Second
	DefaultSimulateTimeout    = 15 * time.Second
)

// Timeouts bounds each single attempt, not the whole failover walk.
type Timeouts struct {
	Lookup      time.Duration `mapstructure:"lookup" yaml:"lookup"`
	Transaction time.Duration `mapstructure:"transaction" yaml:"transaction"`
	Simulate    time.Duration `mapstructure:"simulate" yaml:"simulate"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Lookup:      DefaultLookupTimeout,
		Transaction: DefaultTransactionTimeout,
		Simulate:    DefaultSimulateTimeout,
	}
}

// For returns the timeout of class, falling back to the default when unset.
func (t Timeouts) For(class CallClass) time.Duration {
	def := DefaultTimeouts()
	pick := func(v, fallback time.Duration) time.Duration {
		if v <= 0 {
			return fallback
		}
		return v
	}
	switch class {
	case Transaction:
		return pick(t.Transaction, def.Transaction)
	case Simulate:
		return pick(t.Simulate, def.Simulate)
	default:
		return pick(t.Lookup, def.Lookup)
	}
}

func (t Timeouts) String() string {
	parts := []string{
		Lookup.String() + "=" + t.For(Lookup).String(),
		Transaction.String() + "=" + t.For(Transaction).String(),
		Simulate.String() + "=" + t.For(Simulate).String(),
	}
	return strings.Join(parts, ",")
}
