package movement

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	UserTransaction          = "user_transaction"
	EntryFunctionPayloadType = "entry_function_payload"
	ScriptPayloadType        = "script_payload"
	Ed25519Signature         = "ed25519_signature"
)

// VM statuses the simulator reports or reacts to.
const (
	VMStatusExecuted        = "EXECUTED"
	VMStatusInvalidAuthKey  = "INVALID_AUTH_KEY"
	VMStatusAccountNotFound = "ACCOUNT_NOT_FOUND"
)

// EntryFunctionPayload is the minimal user-supplied payload of a simulation.
type EntryFunctionPayload struct {
	Function      string            `json:"function" validate:"required,function_id"`
	TypeArguments []string          `json:"type_arguments"`
	Arguments     []json.RawMessage `json:"arguments"`
}

// StringArg encodes s as a JSON string argument.
func StringArg(s string) json.RawMessage {
	return json.RawMessage(strconv.Quote(s))
}

// TransactionPayload is the payload of a transaction as the node reports it.
type TransactionPayload struct {
	Type          string            `json:"type"`
	Function      string            `json:"function,omitempty"`
	TypeArguments []string          `json:"type_arguments,omitempty"`
	Arguments     []json.RawMessage `json:"arguments,omitempty"`
	Code          json.RawMessage   `json:"code,omitempty"`
}

// EntryFunction returns the entry function a payload invokes, if it invokes one.
func (p *TransactionPayload) EntryFunction() (*EntryFunctionPayload, bool) {
	if p == nil || p.Type != EntryFunctionPayloadType || p.Function == "" {
		return nil, false
	}
	return &EntryFunctionPayload{
		Function:      p.Function,
		TypeArguments: nonNil(p.TypeArguments),
		Arguments:     nonNil(p.Arguments),
	}, true
}

type StateChangeType string

const (
	WriteResource   StateChangeType = "write_resource"
	DeleteResource  StateChangeType = "delete_resource"
	WriteModule     StateChangeType = "write_module"
	WriteTableItem  StateChangeType = "write_table_item"
	DeleteTableItem StateChangeType = "delete_table_item"
)

// StateChange is one post-execution storage mutation. Data holds {type, data} for
// resource writes; table item writes carry Handle, Key and Value instead.
type StateChange struct {
	Type         StateChangeType `json:"type"`
	Address      string          `json:"address,omitempty"`
	StateKeyHash string          `json:"state_key_hash"`
	Resource     string          `json:"resource,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Handle       string          `json:"handle,omitempty"`
	Key          string          `json:"key,omitempty"`
	Value        string          `json:"value,omitempty"`
}

type ResourceData struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ResourceData decodes the typed resource written by a write_resource change.
func (c *StateChange) ResourceData() (*ResourceData, bool) {
	if c.Type != WriteResource || len(c.Data) == 0 || string(c.Data) == "null" {
		return nil, false
	}
	var rd ResourceData
	if err := json.Unmarshal(c.Data, &rd); err != nil || rd.Type == "" {
		return nil, false
	}
	return &rd, true
}

type EventGUID struct {
	CreationNumber string `json:"creation_number"`
	AccountAddress string `json:"account_address"`
}

type TransactionEvent struct {
	GUID           EventGUID       `json:"guid"`
	SequenceNumber string          `json:"sequence_number"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
}

// Transaction is a transaction record as served by /transactions/by_hash and as
// returned, one per element, by /transactions/simulate.
type Transaction struct {
	Type                    string              `json:"type"`
	Version                 string              `json:"version"`
	Hash                    string              `json:"hash"`
	Success                 bool                `json:"success"`
	VMStatus                string              `json:"vm_status"`
	GasUsed                 string              `json:"gas_used"`
	Sender                  string              `json:"sender"`
	SequenceNumber          string              `json:"sequence_number"`
	MaxGasAmount            string              `json:"max_gas_amount"`
	GasUnitPrice            string              `json:"gas_unit_price"`
	ExpirationTimestampSecs string              `json:"expiration_timestamp_secs"`
	Timestamp               string              `json:"timestamp"`
	Payload                 *TransactionPayload `json:"payload"`
	Changes                 []StateChange       `json:"changes"`
	Events                  []TransactionEvent  `json:"events"`
}

// TransactionInfo is the lookup view of a committed transaction.
type TransactionInfo struct {
	Type         string              `json:"type"`
	Version      string              `json:"version"`
	Hash         string              `json:"hash"`
	Success      bool                `json:"success"`
	VMStatus     string              `json:"vm_status"`
	Sender       string              `json:"sender"`
	GasUsed      string              `json:"gas_used"`
	GasUnitPrice string              `json:"gas_unit_price"`
	Timestamp    string              `json:"timestamp"`
	Payload      *TransactionPayload `json:"payload"`
	Changes      []StateChange       `json:"changes"`
	Events       []TransactionEvent  `json:"events"`
}

func (tx *Transaction) Info() *TransactionInfo {
	return &TransactionInfo{
		Type:         tx.Type,
		Version:      tx.Version,
		Hash:         tx.Hash,
		Success:      tx.Success,
		VMStatus:     tx.VMStatus,
		Sender:       tx.Sender,
		GasUsed:      tx.GasUsed,
		GasUnitPrice: tx.GasUnitPrice,
		Timestamp:    tx.Timestamp,
		Payload:      tx.Payload,
		Changes:      nonNil(tx.Changes),
		Events:       nonNil(tx.Events),
	}
}

// CheckState is a tri-state check outcome. It marshals to true, false or "unknown".
type CheckState int

const (
	CheckUnknown CheckState = iota
	CheckPassed
	CheckFailed
)

func CheckOf(ok bool) CheckState {
	if ok {
		return CheckPassed
	}
	return CheckFailed
}

func (s CheckState) String() string {
	switch s {
	case CheckPassed:
		return "true"
	case CheckFailed:
		return "false"
	default:
		return "unknown"
	}
}

func (s CheckState) MarshalJSON() ([]byte, error) {
	switch s {
	case CheckPassed:
		return []byte("true"), nil
	case CheckFailed:
		return []byte("false"), nil
	default:
		return []byte(`"unknown"`), nil
	}
}

func (s *CheckState) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true":
		*s = CheckPassed
	case "false":
		*s = CheckFailed
	case `"unknown"`, "null":
		*s = CheckUnknown
	default:
		return fmt.Errorf("invalid check state %s", b)
	}
	return nil
}

// Diagnostics are the facts gathered when the node could not finish gas estimation
// for a placeholder-signed transaction.
type Diagnostics struct {
	PayloadValid         bool       `json:"payload_valid"`
	FunctionExists       CheckState `json:"function_exists"`
	EstimatedGasPrice    *uint64    `json:"estimated_gas_price,omitempty"`
	PrioritizedGasPrice  *uint64    `json:"prioritized_gas_price,omitempty"`
	BalanceOctas         string     `json:"account_balance_octas,omitempty"`
	BalanceMove          string     `json:"account_balance_move,omitempty"`
	EstimatedMaxGasCost  string     `json:"estimated_max_gas_cost_move,omitempty"`
	RequiresSignedSubmit bool       `json:"requires_signature"`
}

// SimulationResult is what a simulate or replay call produces.
type SimulationResult struct {
	ID                      string              `json:"id,omitempty"`
	Success                 bool                `json:"success"`
	VMStatus                string              `json:"vm_status"`
	GasUsed                 string              `json:"gas_used"`
	MaxGasAmount            string              `json:"max_gas_amount"`
	GasUnitPrice            string              `json:"gas_unit_price"`
	Hash                    string              `json:"hash"`
	Version                 string              `json:"version"`
	Sender                  string              `json:"sender"`
	SequenceNumber          string              `json:"sequence_number"`
	ExpirationTimestampSecs string              `json:"expiration_timestamp_secs"`
	Payload                 *TransactionPayload `json:"payload,omitempty"`
	Changes                 []StateChange       `json:"changes"`
	Events                  []TransactionEvent  `json:"events"`
	Validation              *Diagnostics        `json:"validation,omitempty"`
	SimulationNote          string              `json:"simulation_note,omitempty"`
	Error                   string              `json:"error,omitempty"`
}

// ResultFromTransaction maps a node simulation record into a SimulationResult,
// defaulting absent numeric fields to "0".
func ResultFromTransaction(tx *Transaction) *SimulationResult {
	return &SimulationResult{
		Success:                 tx.Success,
		VMStatus:                tx.VMStatus,
		GasUsed:                 orZero(tx.GasUsed),
		MaxGasAmount:            orZero(tx.MaxGasAmount),
		GasUnitPrice:            orZero(tx.GasUnitPrice),
		Hash:                    tx.Hash,
		Version:                 orZero(tx.Version),
		Sender:                  tx.Sender,
		SequenceNumber:          orZero(tx.SequenceNumber),
		ExpirationTimestampSecs: orZero(tx.ExpirationTimestampSecs),
		Payload:                 tx.Payload,
		Changes:                 nonNil(tx.Changes),
		Events:                  nonNil(tx.Events),
	}
}

type LedgerInfo struct {
	ChainID             uint8  `json:"chain_id"`
	Epoch               string `json:"epoch"`
	LedgerVersion       string `json:"ledger_version"`
	OldestLedgerVersion string `json:"oldest_ledger_version"`
	LedgerTimestamp     string `json:"ledger_timestamp"`
	NodeRole            string `json:"node_role"`
	OldestBlockHeight   string `json:"oldest_block_height"`
	BlockHeight         string `json:"block_height"`
	GitHash             string `json:"git_hash,omitempty"`
}

type AccountData struct {
	SequenceNumber    string `json:"sequence_number"`
	AuthenticationKey string `json:"authentication_key"`
}

type Resource struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type MoveModule struct {
	Bytecode string     `json:"bytecode"`
	ABI      *ModuleABI `json:"abi"`
}

type ModuleABI struct {
	Address          string        `json:"address"`
	Name             string        `json:"name"`
	Friends          []string      `json:"friends"`
	ExposedFunctions []FunctionABI `json:"exposed_functions"`
	Structs          []StructABI   `json:"structs"`
}

// HasFunction reports whether name is among the module's exposed functions.
func (m *ModuleABI) HasFunction(name string) bool {
	if m == nil {
		return false
	}
	for i := range m.ExposedFunctions {
		if m.ExposedFunctions[i].Name == name {
			return true
		}
	}
	return false
}

type FunctionABI struct {
	Name              string             `json:"name"`
	Visibility        string             `json:"visibility"`
	IsEntry           bool               `json:"is_entry"`
	IsView            bool               `json:"is_view"`
	GenericTypeParams []GenericTypeParam `json:"generic_type_params"`
	Params            []string           `json:"params"`
	Return            []string           `json:"return"`
}

type StructABI struct {
	Name              string             `json:"name"`
	IsNative          bool               `json:"is_native"`
	Abilities         []string           `json:"abilities"`
	GenericTypeParams []GenericTypeParam `json:"generic_type_params"`
	Fields            []FieldABI         `json:"fields"`
}

type FieldABI struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type GenericTypeParam struct {
	Constraints []string `json:"constraints"`
}

type GasEstimation struct {
	DeprioritizedGasEstimate uint64 `json:"deprioritized_gas_estimate,omitempty"`
	GasEstimate              uint64 `json:"gas_estimate"`
	PrioritizedGasEstimate   uint64 `json:"prioritized_gas_estimate,omitempty"`
}

type ViewRequest struct {
	Function      string            `json:"function"`
	TypeArguments []string          `json:"type_arguments"`
	Arguments     []json.RawMessage `json:"arguments"`
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
