package simulator

import (
	"context"
	"fmt"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/reconstruct"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/sourcegraph/conc"
)

type ValidationChecks struct {
	AccountExists  movement.CheckState `json:"account_exists"`
	HasBalance     movement.CheckState `json:"has_balance"`
	ModuleExists   movement.CheckState `json:"module_exists"`
	FunctionExists movement.CheckState `json:"function_exists"`
}

type ValidationInfo struct {
	SequenceNumber      string  `json:"sequence_number,omitempty"`
	BalanceOctas        string  `json:"balance_octas,omitempty"`
	BalanceMove         string  `json:"balance_move,omitempty"`
	EstimatedGasPrice   *uint64 `json:"estimated_gas_price,omitempty"`
	PrioritizedGasPrice *uint64 `json:"prioritized_gas_price,omitempty"`
	ChainID             *uint8  `json:"chain_id,omitempty"`
	BlockHeight         string  `json:"block_height,omitempty"`
}

// ValidationReport is the pre-flight assessment of a payload. Checks that could not
// be decided are "unknown" and leave Valid untouched.
type ValidationReport struct {
	Valid    bool             `json:"valid"`
	Checks   ValidationChecks `json:"checks"`
	Warnings []string         `json:"warnings"`
	Info     ValidationInfo   `json:"info"`
}

func (r *ValidationReport) fail(warning string) {
	r.Valid = false
	r.Warnings = append(r.Warnings, warning)
}

// finding applies the outcome of one check to the report.
type finding func(r *ValidationReport)

// Validate runs the account, balance, module, gas price and ledger checks concurrently.
// Only a missing account, module or function invalidates the payload.
func (s *Service) Validate(ctx context.Context, sender string, payload movement.EntryFunctionPayload,
	network string,
) (*ValidationReport, error) {
	req := movement.SimulationRequest{Sender: sender, Payload: payload}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := movement.ParseFunctionID(payload.Function)
	if err != nil {
		return nil, err
	}
	d, node, err := s.resolve(network)
	if err != nil {
		return nil, err
	}
	sender = movement.NormalizeAddress(sender)

	checks := []func() finding{
		func() finding { return s.checkAccount(ctx, d.Network, node, sender) },
		func() finding { return s.checkBalance(ctx, d.Network, node, sender) },
		func() finding { return s.checkModule(ctx, d.Network, node, id) },
		func() finding { return s.checkGasPrice(ctx, d.Network, node) },
		func() finding { return s.checkLedger(ctx, d.Network, node) },
	}
	findings := make([]finding, len(checks))
	wg := conc.NewWaitGroup()
	for i, check := range checks {
		wg.Go(func() {
			findings[i] = check()
		})
	}
	wg.Wait()

	report := &ValidationReport{Valid: true, Warnings: []string{}}
	for _, apply := range findings {
		if apply != nil {
			apply(report)
		}
	}
	return report, nil
}

func (s *Service) checkAccount(ctx context.Context, network utils.Network, node FullNode, sender string) finding {
	account, err := node.Account(ctx, sender)
	switch {
	case fullnode.IsNotFound(err):
		return func(r *ValidationReport) {
			r.Checks.AccountExists = movement.CheckFailed
			r.fail(accountNotFoundMessage)
		}
	case err != nil:
		s.log.Debugw("Account check failed", "network", network, "sender", sender, "err", err)
		return nil
	}
	return func(r *ValidationReport) {
		r.Checks.AccountExists = movement.CheckPassed
		r.Info.SequenceNumber = account.SequenceNumber
	}
}

func (s *Service) checkBalance(ctx context.Context, network utils.Network, node FullNode, sender string) finding {
	balance, err := s.balance(ctx, node, sender)
	if err != nil {
		s.log.Debugw("Balance check failed", "network", network, "sender", sender, "err", err)
		return nil
	}
	return func(r *ValidationReport) {
		r.Checks.HasBalance = movement.CheckOf(!balance.IsZero())
		r.Info.BalanceOctas = balance.Dec()
		r.Info.BalanceMove = reconstruct.FormatOctasExact(balance)
	}
}

func (s *Service) checkModule(ctx context.Context, network utils.Network, node FullNode, id movement.FunctionID) finding {
	abi, err := s.moduleABI(ctx, network, node, id)
	switch {
	case fullnode.IsNotFound(err):
		return func(r *ValidationReport) {
			r.Checks.ModuleExists = movement.CheckFailed
			r.Checks.FunctionExists = movement.CheckFailed
			r.fail("Module does not exist")
		}
	case err != nil:
		s.log.Debugw("Module check failed", "network", network, "module", id.ModuleID(), "err", err)
		return nil
	}
	exists := abi.HasFunction(id.Name)
	return func(r *ValidationReport) {
		r.Checks.ModuleExists = movement.CheckPassed
		r.Checks.FunctionExists = movement.CheckOf(exists)
		if !exists {
			r.fail(fmt.Sprintf("Function '%s' not found in module", id.Name))
		}
	}
}

func (s *Service) checkGasPrice(ctx context.Context, network utils.Network, node FullNode) finding {
	estimate, err := node.EstimateGasPrice(ctx)
	if err != nil {
		s.log.Debugw("Gas price check failed", "network", network, "err", err)
		return nil
	}
	return func(r *ValidationReport) {
		r.Info.EstimatedGasPrice = utils.HeapPtr(estimate.GasEstimate)
		r.Info.PrioritizedGasPrice = utils.HeapPtr(estimate.PrioritizedGasEstimate)
	}
}

func (s *Service) checkLedger(ctx context.Context, network utils.Network, node FullNode) finding {
	ledger, err := node.LedgerInfo(ctx)
	if err != nil {
		s.log.Debugw("Ledger check failed", "network", network, "err", err)
		return nil
	}
	return func(r *ValidationReport) {
		r.Info.ChainID = utils.HeapPtr(ledger.ChainID)
		r.Info.BlockHeight = ledger.BlockHeight
	}
}
