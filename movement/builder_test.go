package movement_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kamalbuilds/movetracer/movement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("fills defaults", func(t *testing.T) {
		body, err := movement.Build(movement.SimulationRequest{
			Sender:  "1",
			Payload: movement.EntryFunctionPayload{Function: "0x1::aptos_account::transfer"},
		}, now)
		require.NoError(t, err)

		assert.Equal(t, "0x1", body.Sender)
		assert.Equal(t, "0", body.SequenceNumber)
		assert.Equal(t, "2000000", body.MaxGasAmount)
		assert.Equal(t, "100", body.GasUnitPrice)
		assert.Equal(t, "1700000600", body.ExpirationTimestampSecs)
		assert.Equal(t, "entry_function_payload", body.Payload.Type)
		assert.Equal(t, "ed25519_signature", body.Signature.Type)
		assert.Equal(t, "0x"+strings.Repeat("0", 64), body.Signature.PublicKey)
		assert.Equal(t, "0x"+strings.Repeat("0", 128), body.Signature.Signature)
	})

	t.Run("keeps caller values", func(t *testing.T) {
		body, err := movement.Build(movement.SimulationRequest{
			Sender:                  "0xabc",
			Payload:                 movement.EntryFunctionPayload{Function: "0x1::coin::transfer"},
			MaxGasAmount:            "5000",
			GasUnitPrice:            "150",
			SequenceNumber:          "42",
			ExpirationTimestampSecs: "99",
		}, now)
		require.NoError(t, err)
		assert.Equal(t, "5000", body.MaxGasAmount)
		assert.Equal(t, "150", body.GasUnitPrice)
		assert.Equal(t, "42", body.SequenceNumber)
		assert.Equal(t, "99", body.ExpirationTimestampSecs)
	})

	t.Run("wire shape carries empty lists", func(t *testing.T) {
		body, err := movement.Build(movement.SimulationRequest{
			Sender:  "0x1",
			Payload: movement.EntryFunctionPayload{Function: "0x1::coin::transfer"},
		}, now)
		require.NoError(t, err)

		raw, err := json.Marshal(body)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		payload := decoded["payload"].(map[string]any)
		assert.Equal(t, "entry_function_payload", payload["type"])
		assert.Equal(t, []any{}, payload["type_arguments"])
		assert.Equal(t, []any{}, payload["arguments"])
	})

	tests := map[string]movement.SimulationRequest{
		"missing sender":   {Payload: movement.EntryFunctionPayload{Function: "0x1::coin::transfer"}},
		"missing function": {Sender: "0x1"},
		"malformed":        {Sender: "0x1", Payload: movement.EntryFunctionPayload{Function: "0x1::coin"}},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := movement.Build(req, now)
			var invalid *movement.InvalidPayloadError
			require.ErrorAs(t, err, &invalid)
		})
	}
}
