package simulator_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func coinModule(functions ...string) *movement.MoveModule {
	abi := &movement.ModuleABI{Address: "0x1", Name: "aptos_account"}
	for _, fn := range functions {
		abi.ExposedFunctions = append(abi.ExposedFunctions, movement.FunctionABI{Name: fn, IsEntry: true})
	}
	return &movement.MoveModule{ABI: abi}
}

func TestValidate(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), "0x1").Return(&movement.AccountData{SequenceNumber: "4"}, nil)
		node.EXPECT().View(gomock.Any(), gomock.Any()).Return([]json.RawMessage{json.RawMessage(`"100000000"`)}, nil)
		node.EXPECT().AccountModule(gomock.Any(), "0x1", "aptos_account").Return(coinModule("transfer"), nil)
		node.EXPECT().EstimateGasPrice(gomock.Any()).
			Return(&movement.GasEstimation{GasEstimate: 100, PrioritizedGasEstimate: 150}, nil)
		node.EXPECT().LedgerInfo(gomock.Any()).Return(&movement.LedgerInfo{ChainID: 250, BlockHeight: "42"}, nil)

		report, err := svc.Validate(t.Context(), "0x1", transfer(), "testnet")
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Warnings)
		assert.Equal(t, simulator.ValidationChecks{
			AccountExists:  movement.CheckPassed,
			HasBalance:     movement.CheckPassed,
			ModuleExists:   movement.CheckPassed,
			FunctionExists: movement.CheckPassed,
		}, report.Checks)
		assert.Equal(t, "4", report.Info.SequenceNumber)
		assert.Equal(t, "100000000", report.Info.BalanceOctas)
		assert.Equal(t, "1.00000000", report.Info.BalanceMove)
		assert.EqualValues(t, 100, *report.Info.EstimatedGasPrice)
		assert.EqualValues(t, 150, *report.Info.PrioritizedGasPrice)
		assert.EqualValues(t, 250, *report.Info.ChainID)
		assert.Equal(t, "42", report.Info.BlockHeight)
	})

	t.Run("missing account and module", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), "0x9").Return(nil, notFound)
		node.EXPECT().View(gomock.Any(), gomock.Any()).Return([]json.RawMessage{json.RawMessage(`"0"`)}, nil)
		node.EXPECT().AccountModule(gomock.Any(), "0x1", "aptos_account").Return(nil, notFound)
		node.EXPECT().EstimateGasPrice(gomock.Any()).
			Return(&movement.GasEstimation{GasEstimate: 100, PrioritizedGasEstimate: 120}, nil)
		node.EXPECT().LedgerInfo(gomock.Any()).Return(&movement.LedgerInfo{ChainID: 250, BlockHeight: "7"}, nil)

		report, err := svc.Validate(t.Context(), "0x9", transfer(), "testnet")
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, movement.CheckFailed, report.Checks.AccountExists)
		assert.Equal(t, movement.CheckFailed, report.Checks.HasBalance)
		assert.Equal(t, movement.CheckFailed, report.Checks.ModuleExists)
		assert.Equal(t, movement.CheckFailed, report.Checks.FunctionExists)
		assert.Equal(t, []string{"Sender account does not exist on-chain", "Module does not exist"}, report.Warnings)

		// the independent checks still fill in info
		assert.Empty(t, report.Info.SequenceNumber)
		assert.Equal(t, "0", report.Info.BalanceOctas)
		require.NotNil(t, report.Info.EstimatedGasPrice)
		assert.EqualValues(t, 100, *report.Info.EstimatedGasPrice)
		require.NotNil(t, report.Info.PrioritizedGasPrice)
		assert.EqualValues(t, 120, *report.Info.PrioritizedGasPrice)
		require.NotNil(t, report.Info.ChainID)
		assert.EqualValues(t, 250, *report.Info.ChainID)
		assert.Equal(t, "7", report.Info.BlockHeight)
	})

	t.Run("missing function", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), gomock.Any()).Return(&movement.AccountData{SequenceNumber: "0"}, nil)
		node.EXPECT().View(gomock.Any(), gomock.Any()).Return([]json.RawMessage{json.RawMessage(`"1"`)}, nil)
		node.EXPECT().AccountModule(gomock.Any(), "0x1", "aptos_account").Return(coinModule("create_account"), nil)
		node.EXPECT().EstimateGasPrice(gomock.Any()).Return(&movement.GasEstimation{GasEstimate: 100}, nil)
		node.EXPECT().LedgerInfo(gomock.Any()).Return(&movement.LedgerInfo{}, nil)

		report, err := svc.Validate(t.Context(), "0x1", transfer(), "testnet")
		require.NoError(t, err)
		assert.False(t, report.Valid)
		assert.Equal(t, movement.CheckPassed, report.Checks.ModuleExists)
		assert.Equal(t, movement.CheckFailed, report.Checks.FunctionExists)
		assert.Equal(t, []string{"Function 'transfer' not found in module"}, report.Warnings)
	})

	t.Run("soft failures are unknown and keep the payload valid", func(t *testing.T) {
		svc, node := newService(t)
		down := errors.New("connection reset")
		node.EXPECT().Account(gomock.Any(), gomock.Any()).Return(nil, down)
		node.EXPECT().View(gomock.Any(), gomock.Any()).Return(nil, down)
		node.EXPECT().AccountModule(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, down)
		node.EXPECT().EstimateGasPrice(gomock.Any()).Return(nil, down)
		node.EXPECT().LedgerInfo(gomock.Any()).Return(nil, down)

		report, err := svc.Validate(t.Context(), "0x1", transfer(), "testnet")
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Equal(t, simulator.ValidationChecks{}, report.Checks)
		assert.Empty(t, report.Warnings)
		assert.Equal(t, simulator.ValidationInfo{}, report.Info)

		raw, err := json.Marshal(report.Checks)
		require.NoError(t, err)
		assert.JSONEq(t, `{"account_exists":"unknown","has_balance":"unknown","module_exists":"unknown","function_exists":"unknown"}`, string(raw))
	})

	t.Run("module ABI is cached", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), gomock.Any()).Return(&movement.AccountData{}, nil).Times(2)
		node.EXPECT().View(gomock.Any(), gomock.Any()).Return([]json.RawMessage{json.RawMessage(`"1"`)}, nil).Times(2)
		node.EXPECT().AccountModule(gomock.Any(), "0x1", "aptos_account").Return(coinModule("transfer"), nil).Times(1)
		node.EXPECT().EstimateGasPrice(gomock.Any()).Return(&movement.GasEstimation{}, nil).Times(2)
		node.EXPECT().LedgerInfo(gomock.Any()).Return(&movement.LedgerInfo{}, nil).Times(2)

		for range 2 {
			report, err := svc.Validate(t.Context(), "0x1", transfer(), "testnet")
			require.NoError(t, err)
			assert.True(t, report.Valid)
		}
	})

	t.Run("malformed function is rejected up front", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Validate(t.Context(), "0x1", movement.EntryFunctionPayload{Function: "transfer"}, "testnet")
		var payloadErr *movement.InvalidPayloadError
		require.ErrorAs(t, err, &payloadErr)
		assert.Equal(t, "function", payloadErr.Field)
	})
}
