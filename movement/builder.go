package movement

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSequenceNumber = "0"
	DefaultMaxGasAmount   = "2000000"
	DefaultGasUnitPrice   = "100"
	DefaultExpiration     = 600 * time.Second
)

var (
	placeholderPublicKey = "0x" + strings.Repeat("0", 64)
	placeholderSignature = "0x" + strings.Repeat("0", 128)
)

// SimulationRequest is the caller-supplied, possibly partial, simulation input. All
// numeric fields are decimal strings.
type SimulationRequest struct {
	Sender                  string               `json:"sender"`
	Payload                 EntryFunctionPayload `json:"payload"`
	MaxGasAmount            string               `json:"max_gas_amount,omitempty"`
	GasUnitPrice            string               `json:"gas_unit_price,omitempty"`
	SequenceNumber          string               `json:"sequence_number,omitempty"`
	ExpirationTimestampSecs string               `json:"expiration_timestamp_secs,omitempty"`
}

// EntryFunctionSubmission is an entry function payload tagged with its payload type.
// Unlike TransactionPayload it always carries both argument lists.
type EntryFunctionSubmission struct {
	Type string `json:"type"`
	EntryFunctionPayload
}

type Signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// SignedSimulationBody is the body posted to /transactions/simulate. Its signature is
// a zero-filled placeholder: simulation does not verify signatures.
type SignedSimulationBody struct {
	Sender                  string                  `json:"sender"`
	SequenceNumber          string                  `json:"sequence_number"`
	MaxGasAmount            string                  `json:"max_gas_amount"`
	GasUnitPrice            string                  `json:"gas_unit_price"`
	ExpirationTimestampSecs string                  `json:"expiration_timestamp_secs"`
	Payload                 EntryFunctionSubmission `json:"payload"`
	Signature               Signature               `json:"signature"`
}

// Validate checks the required fields before anything is sent upstream.
func (req *SimulationRequest) Validate() error {
	if strings.TrimSpace(req.Sender) == "" || req.Payload.Function == "" {
		return errMissingFields
	}
	return req.Payload.Validate()
}

// Build fills in every default of req and attaches placeholder signature material.
func Build(req SimulationRequest, now time.Time) (*SignedSimulationBody, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := &SignedSimulationBody{
		Sender:                  NormalizeAddress(req.Sender),
		SequenceNumber:          withDefault(req.SequenceNumber, DefaultSequenceNumber),
		MaxGasAmount:            withDefault(req.MaxGasAmount, DefaultMaxGasAmount),
		GasUnitPrice:            withDefault(req.GasUnitPrice, DefaultGasUnitPrice),
		ExpirationTimestampSecs: req.ExpirationTimestampSecs,
		Payload: EntryFunctionSubmission{
			Type: EntryFunctionPayloadType,
			EntryFunctionPayload: EntryFunctionPayload{
				Function:      req.Payload.Function,
				TypeArguments: nonNil(req.Payload.TypeArguments),
				Arguments:     nonNil(req.Payload.Arguments),
			},
		},
		Signature: Signature{
			Type:      Ed25519Signature,
			PublicKey: placeholderPublicKey,
			Signature: placeholderSignature,
		},
	}
	if body.ExpirationTimestampSecs == "" {
		body.ExpirationTimestampSecs = strconv.FormatInt(now.Add(DefaultExpiration).Unix(), 10)
	}
	return body, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
