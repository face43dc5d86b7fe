package simulator_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/mocks"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	clock    = time.Unix(1_700_000_000, 0)
	notFound = &fullnode.UpstreamClientError{StatusCode: http.StatusNotFound, Code: "account_not_found", Message: "not found"}
)

func newService(t *testing.T) (*simulator.Service, *mocks.MockFullNode) {
	t.Helper()
	node := mocks.NewMockFullNode(gomock.NewController(t))
	svc := simulator.New(utils.DefaultRegistry(), func(utils.NetworkDescriptor) simulator.FullNode {
		return node
	}).WithClock(func() time.Time { return clock })
	return svc, node
}

func transfer() movement.EntryFunctionPayload {
	return movement.EntryFunctionPayload{
		Function:  "0x1::aptos_account::transfer",
		Arguments: []json.RawMessage{movement.StringArg("0x2"), movement.StringArg("1000")},
	}
}

func executed(body *movement.SignedSimulationBody) *movement.Transaction {
	return &movement.Transaction{
		Type:           movement.UserTransaction,
		Success:        true,
		VMStatus:       "Executed successfully",
		GasUsed:        "12",
		Sender:         body.Sender,
		SequenceNumber: body.SequenceNumber,
		MaxGasAmount:   body.MaxGasAmount,
		GasUnitPrice:   body.GasUnitPrice,
		Hash:           "0xabc",
		Payload: &movement.TransactionPayload{
			Type:     movement.EntryFunctionPayloadType,
			Function: body.Payload.Function,
		},
	}
}

func TestSimulate(t *testing.T) {
	t.Run("reads sequence number and asks for estimates", func(t *testing.T) {
		svc, node := newService(t)
		store := history.NewMemory(history.DefaultLimit)
		svc.WithHistory(store)

		node.EXPECT().Account(gomock.Any(), "0x1").Return(&movement.AccountData{SequenceNumber: "7"}, nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), fullnode.SimulateOptions{
			EstimateGasUnitPrice: true,
			EstimateMaxGasAmount: true,
		}).DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
			assert.Equal(t, "7", body.SequenceNumber)
			assert.Equal(t, movement.DefaultMaxGasAmount, body.MaxGasAmount)
			assert.Equal(t, "1700000600", body.ExpirationTimestampSecs)
			return executed(body), nil
		})

		result, err := svc.Simulate(t.Context(), simulator.SimulateRequest{
			Sender:  "1",
			Payload: transfer(),
			Network: "testnet",
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "12", result.GasUsed)
		assert.Equal(t, "7", result.SequenceNumber)
		assert.Nil(t, result.Validation)
		assert.Empty(t, result.Changes)
		require.NotEmpty(t, result.ID)

		rec, err := store.Get(result.ID)
		require.NoError(t, err)
		assert.Equal(t, history.KindSimulate, rec.Kind)
		assert.Equal(t, "testnet", rec.Network)
		assert.Equal(t, "0x1", rec.Sender)
		assert.Equal(t, "0x1::aptos_account::transfer", rec.Function)
		assert.Equal(t, result.ID, rec.Result.ID)
		assert.True(t, clock.Equal(rec.CreatedAt))
	})

	t.Run("pinned options skip lookups and estimates", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), fullnode.SimulateOptions{}).
			DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
				assert.Equal(t, "3", body.SequenceNumber)
				assert.Equal(t, "5000", body.MaxGasAmount)
				assert.Equal(t, "150", body.GasUnitPrice)
				assert.Equal(t, "99", body.ExpirationTimestampSecs)
				return executed(body), nil
			})

		result, err := svc.Simulate(t.Context(), simulator.SimulateRequest{
			Sender:  "0x1",
			Payload: transfer(),
			Network: "mainnet",
			Gas: simulator.GasOptions{
				MaxGasAmount:            "5000",
				GasUnitPrice:            "150",
				SequenceNumber:          "3",
				ExpirationTimestampSecs: "99",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "5000", result.MaxGasAmount)
		assert.Empty(t, result.ID)
	})

	t.Run("missing account short-circuits", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), "0xdead").Return(nil, notFound)

		result, err := svc.Simulate(t.Context(), simulator.SimulateRequest{
			Sender:  "0xDEAD",
			Payload: transfer(),
			Network: "testnet",
		})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, movement.VMStatusAccountNotFound, result.VMStatus)
		assert.Equal(t, "0", result.GasUsed)
		assert.Equal(t, "Sender account does not exist on-chain", result.Error)
		assert.Equal(t, "0x1::aptos_account::transfer", result.Payload.Function)
	})

	t.Run("account lookup failure propagates", func(t *testing.T) {
		svc, node := newService(t)
		exhausted := &fullnode.AllEndpointsFailedError{Network: "testnet"}
		node.EXPECT().Account(gomock.Any(), "0x1").Return(nil, exhausted)

		_, err := svc.Simulate(t.Context(), simulator.SimulateRequest{Sender: "0x1", Payload: transfer(), Network: "testnet"})
		require.ErrorIs(t, err, exhausted)
		assert.Equal(t, http.StatusServiceUnavailable, simulator.HTTPStatus(err))
	})

	t.Run("upstream client error propagates", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), "0x1").Return(&movement.AccountData{SequenceNumber: "0"}, nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &fullnode.UpstreamClientError{StatusCode: http.StatusBadRequest, Message: "FUNCTION_RESOLUTION_FAILURE"})

		_, err := svc.Simulate(t.Context(), simulator.SimulateRequest{Sender: "0x1", Payload: transfer(), Network: "testnet"})
		require.Error(t, err)
		assert.Equal(t, "FUNCTION_RESOLUTION_FAILURE", err.Error())
		assert.Equal(t, http.StatusBadRequest, simulator.HTTPStatus(err))
	})

	t.Run("invalid input makes no calls", func(t *testing.T) {
		svc, _ := newService(t)
		tests := map[string]simulator.SimulateRequest{
			"no sender":    {Payload: transfer(), Network: "testnet"},
			"no function":  {Sender: "0x1", Network: "testnet"},
			"bad function": {Sender: "0x1", Payload: movement.EntryFunctionPayload{Function: "0x1::coin"}, Network: "testnet"},
		}
		for name, req := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := svc.Simulate(t.Context(), req)
				var payloadErr *movement.InvalidPayloadError
				require.ErrorAs(t, err, &payloadErr)
				assert.Equal(t, http.StatusBadRequest, simulator.HTTPStatus(err))
			})
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Simulate(t.Context(), simulator.SimulateRequest{Sender: "0x1", Payload: transfer(), Network: "porcini"})
		var configErr *utils.ConfigError
		require.ErrorAs(t, err, &configErr)
		assert.Equal(t, "Invalid network: porcini", err.Error())
	})

	t.Run("invalid auth key is diagnosed", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), "0x1").Return(&movement.AccountData{SequenceNumber: "0"}, nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
				tx := executed(body)
				tx.Success = false
				tx.VMStatus = movement.VMStatusInvalidAuthKey
				tx.GasUsed = "0"
				return tx, nil
			})
		node.EXPECT().EstimateGasPrice(gomock.Any()).
			Return(&movement.GasEstimation{GasEstimate: 100, PrioritizedGasEstimate: 150}, nil)
		node.EXPECT().View(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, view movement.ViewRequest) ([]json.RawMessage, error) {
				assert.Equal(t, "0x1::coin::balance", view.Function)
				assert.Equal(t, []string{"0x1::aptos_coin::AptosCoin"}, view.TypeArguments)
				return []json.RawMessage{json.RawMessage(`"250000000"`)}, nil
			})
		node.EXPECT().AccountModule(gomock.Any(), "0x1", "aptos_account").Return(&movement.MoveModule{
			ABI: &movement.ModuleABI{ExposedFunctions: []movement.FunctionABI{{Name: "transfer"}}},
		}, nil)

		result, err := svc.Simulate(t.Context(), simulator.SimulateRequest{Sender: "0x1", Payload: transfer(), Network: "testnet"})
		require.NoError(t, err)
		require.NotNil(t, result.Validation)
		assert.NotEmpty(t, result.SimulationNote)

		d := result.Validation
		assert.True(t, d.PayloadValid)
		assert.True(t, d.RequiresSignedSubmit)
		assert.Equal(t, movement.CheckPassed, d.FunctionExists)
		require.NotNil(t, d.EstimatedGasPrice)
		assert.EqualValues(t, 100, *d.EstimatedGasPrice)
		require.NotNil(t, d.PrioritizedGasPrice)
		assert.EqualValues(t, 150, *d.PrioritizedGasPrice)
		assert.Equal(t, "250000000", d.BalanceOctas)
		assert.Equal(t, "2.50000000", d.BalanceMove)
		assert.Equal(t, "2.0000", d.EstimatedMaxGasCost)
	})

	t.Run("diagnosis tolerates failing lookups", func(t *testing.T) {
		svc, node := newService(t)
		node.EXPECT().Account(gomock.Any(), "0x1").Return(&movement.AccountData{SequenceNumber: "0"}, nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
				tx := executed(body)
				tx.VMStatus = movement.VMStatusInvalidAuthKey
				return tx, nil
			})
		node.EXPECT().EstimateGasPrice(gomock.Any()).Return(nil, errors.New("down"))
		node.EXPECT().View(gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))
		node.EXPECT().AccountModule(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))

		result, err := svc.Simulate(t.Context(), simulator.SimulateRequest{Sender: "0x1", Payload: transfer(), Network: "testnet"})
		require.NoError(t, err)
		d := result.Validation
		require.NotNil(t, d)
		assert.True(t, d.PayloadValid)
		assert.Equal(t, movement.CheckUnknown, d.FunctionExists)
		assert.Nil(t, d.EstimatedGasPrice)
		assert.Empty(t, d.BalanceOctas)
		assert.Empty(t, d.EstimatedMaxGasCost)
	})

	t.Run("history failure does not fail the simulation", func(t *testing.T) {
		svc, node := newService(t)
		store := mocks.NewMockStore(gomock.NewController(t))
		svc.WithHistory(store)
		store.EXPECT().Put(gomock.Any()).Return("", errors.New("disk full"))
		node.EXPECT().Account(gomock.Any(), "0x1").Return(&movement.AccountData{SequenceNumber: "0"}, nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
				return executed(body), nil
			})

		result, err := svc.Simulate(t.Context(), simulator.SimulateRequest{Sender: "0x1", Payload: transfer(), Network: "testnet"})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Empty(t, result.ID)
	})
}

func committed(hash string) *movement.Transaction {
	return &movement.Transaction{
		Type:           movement.UserTransaction,
		Version:        "123",
		Hash:           hash,
		Success:        true,
		VMStatus:       "Executed successfully",
		GasUsed:        "40",
		Sender:         "0xa11ce",
		SequenceNumber: "9",
		MaxGasAmount:   "400",
		GasUnitPrice:   "120",
		Timestamp:      "1700000000000000",
		Payload: &movement.TransactionPayload{
			Type:      movement.EntryFunctionPayloadType,
			Function:  "0x1::aptos_account::transfer",
			Arguments: []json.RawMessage{movement.StringArg("0x2"), movement.StringArg("5")},
		},
	}
}

func TestReplay(t *testing.T) {
	t.Run("resimulates with the original price", func(t *testing.T) {
		svc, node := newService(t)
		store := history.NewMemory(history.DefaultLimit)
		svc.WithHistory(store)

		node.EXPECT().TransactionByHash(gomock.Any(), "0xbeef").Return(committed("0xbeef"), nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), fullnode.SimulateOptions{EstimateMaxGasAmount: true}).
			DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
				assert.Equal(t, "0xa11ce", body.Sender)
				assert.Equal(t, "0", body.SequenceNumber)
				assert.Equal(t, "2000000", body.MaxGasAmount)
				assert.Equal(t, "120", body.GasUnitPrice)
				assert.Equal(t, []json.RawMessage{movement.StringArg("0x2"), movement.StringArg("5")}, body.Payload.Arguments)
				assert.NotNil(t, body.Payload.TypeArguments)
				tx := executed(body)
				tx.GasUsed = "38"
				return tx, nil
			})

		replay, err := svc.Replay(t.Context(), "0xbeef", "testnet")
		require.NoError(t, err)
		assert.Equal(t, simulator.OriginalTransaction{
			Version:   "123",
			Hash:      "0xbeef",
			Success:   true,
			VMStatus:  "Executed successfully",
			GasUsed:   "40",
			Timestamp: "1700000000000000",
		}, replay.Original)
		assert.Equal(t, "38", replay.Simulation.GasUsed)

		rec, err := store.Get(replay.Simulation.ID)
		require.NoError(t, err)
		assert.Equal(t, history.KindReplay, rec.Kind)
		assert.Equal(t, "0xbeef", rec.Hash)
	})

	t.Run("missing price defaults", func(t *testing.T) {
		svc, node := newService(t)
		tx := committed("0x1")
		tx.GasUnitPrice = ""
		node.EXPECT().TransactionByHash(gomock.Any(), "0x1").Return(tx, nil)
		node.EXPECT().SimulateTransaction(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, body *movement.SignedSimulationBody, _ fullnode.SimulateOptions) (*movement.Transaction, error) {
				assert.Equal(t, "100", body.GasUnitPrice)
				return executed(body), nil
			})

		_, err := svc.Replay(t.Context(), "0x1", "testnet")
		require.NoError(t, err)
	})

	t.Run("only entry function user transactions", func(t *testing.T) {
		tests := map[string]func(*movement.Transaction){
			"block metadata": func(tx *movement.Transaction) { tx.Type = "block_metadata_transaction" },
			"script":         func(tx *movement.Transaction) { tx.Payload = &movement.TransactionPayload{Type: movement.ScriptPayloadType} },
			"no payload":     func(tx *movement.Transaction) { tx.Payload = nil },
		}
		for name, mutate := range tests {
			t.Run(name, func(t *testing.T) {
				svc, node := newService(t)
				tx := committed("0x2")
				mutate(tx)
				node.EXPECT().TransactionByHash(gomock.Any(), "0x2").Return(tx, nil)

				_, err := svc.Replay(t.Context(), "0x2", "testnet")
				require.ErrorIs(t, err, simulator.ErrNotReplayable)
				assert.Equal(t, http.StatusBadRequest, simulator.HTTPStatus(err))
			})
		}
	})

	t.Run("unknown hash", func(t *testing.T) {
		svc, node := newService(t)
		missing := &fullnode.UpstreamClientError{StatusCode: http.StatusNotFound, Message: "Transaction not found"}
		node.EXPECT().TransactionByHash(gomock.Any(), "0x3").Return(nil, missing)

		_, err := svc.Replay(t.Context(), "0x3", "testnet")
		require.ErrorIs(t, err, missing)
		assert.Equal(t, http.StatusNotFound, simulator.HTTPStatus(err))
	})

	t.Run("empty hash", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Replay(t.Context(), "", "testnet")
		var payloadErr *movement.InvalidPayloadError
		require.ErrorAs(t, err, &payloadErr)
	})
}
