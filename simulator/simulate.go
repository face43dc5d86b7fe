package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/jinzhu/copier"
	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/reconstruct"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/sourcegraph/conc"
)

const (
	balanceFunction = "0x1::coin::balance"
	nativeCoin      = "0x1::aptos_coin::AptosCoin"

	signatureRequiredNote = "Gas estimation requires a signed transaction. " +
		"The payload is valid; sign it with a wallet to get exact gas usage."
	accountNotFoundMessage = "Sender account does not exist on-chain"
)

// ErrNotReplayable is returned for transactions that are not user transactions with an
// entry function payload.
var ErrNotReplayable = errors.New(
	"Transaction cannot be replayed. Only user transactions with entry function payloads can be replayed.")

// GasOptions pins simulation parameters. Empty gas fields are estimated by the node; an
// empty sequence number is read from the sender's account.
type GasOptions struct {
	MaxGasAmount            string `json:"max_gas_amount,omitempty"`
	GasUnitPrice            string `json:"gas_unit_price,omitempty"`
	SequenceNumber          string `json:"sequence_number,omitempty"`
	ExpirationTimestampSecs string `json:"expiration_timestamp_secs,omitempty"`
}

type SimulateRequest struct {
	Sender  string                        `json:"sender"`
	Payload movement.EntryFunctionPayload `json:"payload"`
	Network string                        `json:"network"`
	Gas     GasOptions                    `json:"gas"`
}

// Simulate dry-runs an unsigned entry function call as sender.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (*movement.SimulationResult, error) {
	simReq := movement.SimulationRequest{
		Sender:                  req.Sender,
		Payload:                 req.Payload,
		MaxGasAmount:            req.Gas.MaxGasAmount,
		GasUnitPrice:            req.Gas.GasUnitPrice,
		SequenceNumber:          req.Gas.SequenceNumber,
		ExpirationTimestampSecs: req.Gas.ExpirationTimestampSecs,
	}
	if err := simReq.Validate(); err != nil {
		return nil, err
	}
	network, node, err := s.resolve(req.Network)
	if err != nil {
		return nil, err
	}
	simReq.Sender = movement.NormalizeAddress(simReq.Sender)

	if simReq.SequenceNumber == "" {
		account, err := node.Account(ctx, simReq.Sender)
		switch {
		case fullnode.IsNotFound(err):
			s.log.Debugw("Sender account not found, skipping simulation", "network", network.Network, "sender", simReq.Sender)
			result := s.accountNotFound(simReq)
			s.recordSimulation(network, req, result)
			return result, nil
		case err != nil:
			return nil, err
		}
		simReq.SequenceNumber = account.SequenceNumber
	}

	body, err := movement.Build(simReq, s.now())
	if err != nil {
		return nil, err
	}
	tx, err := node.SimulateTransaction(ctx, body, fullnode.SimulateOptions{
		EstimateGasUnitPrice: req.Gas.GasUnitPrice == "",
		EstimateMaxGasAmount: req.Gas.MaxGasAmount == "",
	})
	if err != nil {
		return nil, err
	}

	result := movement.ResultFromTransaction(tx)
	if result.VMStatus == movement.VMStatusInvalidAuthKey {
		result.Validation = s.diagnose(ctx, network.Network, node, body)
		result.SimulationNote = signatureRequiredNote
	}
	s.recordSimulation(network, req, result)
	return result, nil
}

// accountNotFound is the deterministic result for a sender that was never created.
func (s *Service) accountNotFound(req movement.SimulationRequest) *movement.SimulationResult {
	payload := &movement.TransactionPayload{
		Type:          movement.EntryFunctionPayloadType,
		Function:      req.Payload.Function,
		TypeArguments: req.Payload.TypeArguments,
		Arguments:     req.Payload.Arguments,
	}
	return &movement.SimulationResult{
		Success:                 false,
		VMStatus:                movement.VMStatusAccountNotFound,
		GasUsed:                 "0",
		MaxGasAmount:            withDefault(req.MaxGasAmount, movement.DefaultMaxGasAmount),
		GasUnitPrice:            withDefault(req.GasUnitPrice, movement.DefaultGasUnitPrice),
		Version:                 "0",
		Sender:                  req.Sender,
		SequenceNumber:          movement.DefaultSequenceNumber,
		ExpirationTimestampSecs: "0",
		Payload:                 payload,
		Changes:                 []movement.StateChange{},
		Events:                  []movement.TransactionEvent{},
		Error:                   accountNotFoundMessage,
	}
}

// diagnose gathers gas price, balance and function existence concurrently. Every lookup
// is best effort.
func (s *Service) diagnose(ctx context.Context, network utils.Network, node FullNode,
	body *movement.SignedSimulationBody,
) *movement.Diagnostics {
	d := &movement.Diagnostics{PayloadValid: true, RequiresSignedSubmit: true}

	var (
		estimate *movement.GasEstimation
		balance  *uint256.Int
		exists   = movement.CheckUnknown
	)
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		var err error
		if estimate, err = node.EstimateGasPrice(ctx); err != nil {
			s.log.Debugw("Gas price lookup failed", "network", network, "err", err)
		}
	})
	wg.Go(func() {
		var err error
		if balance, err = s.balance(ctx, node, body.Sender); err != nil {
			s.log.Debugw("Balance lookup failed", "network", network, "sender", body.Sender, "err", err)
		}
	})
	wg.Go(func() {
		exists = s.functionExists(ctx, network, node, body.Payload.Function)
	})
	wg.Wait()

	d.FunctionExists = exists
	if estimate != nil {
		d.EstimatedGasPrice = utils.HeapPtr(estimate.GasEstimate)
		if estimate.PrioritizedGasEstimate != 0 {
			d.PrioritizedGasPrice = utils.HeapPtr(estimate.PrioritizedGasEstimate)
		}
		cost, err := reconstruct.CalculateGasCost(body.MaxGasAmount, strconv.FormatUint(estimate.GasEstimate, 10))
		if err == nil {
			d.EstimatedMaxGasCost = cost
		}
	}
	if balance != nil {
		d.BalanceOctas = balance.Dec()
		d.BalanceMove = reconstruct.FormatOctasExact(balance)
	}
	return d
}

// balance reads the sender's native coin balance through a view call.
func (s *Service) balance(ctx context.Context, node FullNode, address string) (*uint256.Int, error) {
	values, err := node.View(ctx, movement.ViewRequest{
		Function:      balanceFunction,
		TypeArguments: []string{nativeCoin},
		Arguments:     []json.RawMessage{movement.StringArg(address)},
	})
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("view returned no values")
	}
	var octas string
	if err = json.Unmarshal(values[0], &octas); err != nil {
		var n json.Number
		if err = json.Unmarshal(values[0], &n); err != nil {
			return nil, err
		}
		octas = n.String()
	}
	return uint256.FromDecimal(octas)
}

func (s *Service) functionExists(ctx context.Context, network utils.Network, node FullNode, function string) movement.CheckState {
	id, err := movement.ParseFunctionID(function)
	if err != nil {
		return movement.CheckFailed
	}
	abi, err := s.moduleABI(ctx, network, node, id)
	switch {
	case fullnode.IsNotFound(err):
		return movement.CheckFailed
	case err != nil:
		s.log.Debugw("Module lookup failed", "network", network, "module", id.ModuleID(), "err", err)
		return movement.CheckUnknown
	}
	return movement.CheckOf(abi.HasFunction(id.Name))
}

func (s *Service) recordSimulation(network *utils.NetworkDescriptor, req SimulateRequest, result *movement.SimulationResult) {
	if s.history == nil {
		return
	}
	raw, err := json.Marshal(req)
	if err != nil {
		s.log.Debugw("Failed to encode simulation request", "err", err)
	}
	s.record(history.Record{
		Kind:     history.KindSimulate,
		Network:  network.Network.String(),
		Sender:   movement.NormalizeAddress(req.Sender),
		Function: req.Payload.Function,
		Request:  raw,
	}, result)
}

// OriginalTransaction holds the execution facts of a committed transaction.
type OriginalTransaction struct {
	Version   string `json:"version"`
	Hash      string `json:"hash"`
	Success   bool   `json:"success"`
	VMStatus  string `json:"vm_status"`
	GasUsed   string `json:"gas_used"`
	Timestamp string `json:"timestamp"`
}

type ReplayResult struct {
	Original   OriginalTransaction        `json:"original"`
	Simulation *movement.SimulationResult `json:"simulation"`
}

// Replay re-simulates a committed user transaction against current state so both
// outcomes can be compared.
func (s *Service) Replay(ctx context.Context, hash, network string) (*ReplayResult, error) {
	if hash == "" {
		return nil, &movement.InvalidPayloadError{Field: "hash", Reason: "Missing required field: hash"}
	}
	d, node, err := s.resolve(network)
	if err != nil {
		return nil, err
	}
	tx, err := s.transaction(ctx, d.Network, node, hash)
	if err != nil {
		return nil, err
	}
	if tx.Type != movement.UserTransaction {
		return nil, ErrNotReplayable
	}
	payload, ok := tx.Payload.EntryFunction()
	if !ok {
		return nil, ErrNotReplayable
	}

	body, err := movement.Build(movement.SimulationRequest{
		Sender:         tx.Sender,
		Payload:        *payload,
		MaxGasAmount:   movement.DefaultMaxGasAmount,
		GasUnitPrice:   withDefault(tx.GasUnitPrice, movement.DefaultGasUnitPrice),
		SequenceNumber: movement.DefaultSequenceNumber,
	}, s.now())
	if err != nil {
		return nil, err
	}
	simulated, err := node.SimulateTransaction(ctx, body, fullnode.SimulateOptions{EstimateMaxGasAmount: true})
	if err != nil {
		return nil, err
	}

	replay := &ReplayResult{Simulation: movement.ResultFromTransaction(simulated)}
	if err = copier.Copy(&replay.Original, tx); err != nil {
		return nil, err
	}
	if s.history != nil {
		s.record(history.Record{
			Kind:     history.KindReplay,
			Network:  d.Network.String(),
			Sender:   movement.NormalizeAddress(tx.Sender),
			Function: payload.Function,
			Hash:     hash,
		}, replay.Simulation)
	}
	return replay, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
