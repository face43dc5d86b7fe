package reconstruct

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kamalbuilds/movetracer/movement"
)

type Direction string

const (
	Inflow  Direction = "inflow"
	Outflow Direction = "outflow"
)

// BalanceChange is a coin balance written by a transaction. Simulation returns no
// pre-state, so Before is always "0" and Change equals After.
type BalanceChange struct {
	Address    string    `json:"address"`
	CoinType   string    `json:"coin_type"`
	CoinSymbol string    `json:"coin_symbol"`
	Before     string    `json:"before"`
	After      string    `json:"after"`
	Change     string    `json:"change"`
	Direction  Direction `json:"direction"`
}

var coinStorePattern = regexp.MustCompile(`0x1::coin::CoinStore<(.+)>`)

type coinStore struct {
	Coin *struct {
		Value string `json:"value"`
	} `json:"coin"`
}

// ExtractBalanceChanges finds coin store writes among changes. A write to the sender's
// own store is an outflow, any other an inflow.
func ExtractBalanceChanges(changes []movement.StateChange, sender string) []BalanceChange {
	balances := []BalanceChange{}
	for i := range changes {
		resource, ok := changes[i].ResourceData()
		if !ok {
			continue
		}
		match := coinStorePattern.FindStringSubmatch(resource.Type)
		if match == nil {
			continue
		}
		var store coinStore
		if err := json.Unmarshal(resource.Data, &store); err != nil || store.Coin == nil || store.Coin.Value == "" {
			continue
		}

		direction := Inflow
		if movement.AddressesEqual(changes[i].Address, sender) {
			direction = Outflow
		}
		balances = append(balances, BalanceChange{
			Address:    changes[i].Address,
			CoinType:   match[1],
			CoinSymbol: CoinSymbol(match[1]),
			Before:     "0",
			After:      store.Coin.Value,
			Change:     store.Coin.Value,
			Direction:  direction,
		})
	}
	return balances
}

// CoinSymbol returns the struct name of a fully qualified coin type.
func CoinSymbol(coinType string) string {
	parts := strings.Split(coinType, "::")
	if len(parts) >= 3 {
		return parts[len(parts)-1]
	}
	return coinType
}
