package reconstruct

import (
	"fmt"
	"strconv"

	"github.com/kamalbuilds/movetracer/movement"
)

// Views bundles the derived presentations of one simulation.
type Views struct {
	BalanceChanges []BalanceChange `json:"balance_changes"`
	Trace          *ExecutionTrace `json:"execution_trace,omitempty"`
	GasBreakdown   *GasBreakdown   `json:"gas_breakdown,omitempty"`
	GasCost        string          `json:"gas_cost_move"`
	GasUsed        string          `json:"gas_used_formatted"`
}

// BuildViews derives every view of result. The trace and breakdown are omitted when the
// result carries no entry function payload.
func BuildViews(result *movement.SimulationResult) (*Views, error) {
	gasUsed, err := parseGas(result.GasUsed)
	if err != nil {
		return nil, err
	}
	cost, err := CalculateGasCost(result.GasUsed, result.GasUnitPrice)
	if err != nil {
		return nil, err
	}

	views := &Views{
		BalanceChanges: ExtractBalanceChanges(result.Changes, result.Sender),
		GasCost:        cost,
		GasUsed:        FormatGas(gasUsed),
	}
	if payload, ok := result.Payload.EntryFunction(); ok {
		trace, err := BuildExecutionTrace(*payload, result.Events, gasUsed)
		if err != nil {
			return nil, err
		}
		views.Trace = trace
		views.GasBreakdown = BuildGasBreakdown(trace)
	}
	return views, nil
}

func parseGas(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	gas, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gas amount %q: %w", s, err)
	}
	return gas, nil
}
