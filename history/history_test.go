package history_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/kamalbuilds/movetracer/history"
	"github.com/kamalbuilds/movetracer/movement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T, limit int) map[string]history.Store {
	return map[string]history.Store{
		"memory": history.NewMemory(limit),
		"pebble": history.NewPebbleMemTest(t, limit),
	}
}

func record(fn string) history.Record {
	return history.Record{
		Kind:     history.KindSimulate,
		Network:  "testnet",
		Sender:   "0x1",
		Function: fn,
		Result:   &movement.SimulationResult{Success: true, VMStatus: "EXECUTED", GasUsed: "500"},
	}
}

func TestStore(t *testing.T) {
	for name, store := range backends(t, 3) {
		t.Run(name, func(t *testing.T) {
			t.Run("put assigns id and time", func(t *testing.T) {
				id, err := store.Put(record("0x1::coin::transfer"))
				require.NoError(t, err)
				assert.NotEmpty(t, id)

				got, err := store.Get(id)
				require.NoError(t, err)
				assert.Equal(t, id, got.ID)
				assert.False(t, got.CreatedAt.IsZero())
				assert.Equal(t, "0x1::coin::transfer", got.Function)
				assert.Equal(t, "500", got.Result.GasUsed)
			})

			t.Run("keeps caller id", func(t *testing.T) {
				rec := record("0x1::coin::mint")
				rec.ID = "fixed"
				rec.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
				id, err := store.Put(rec)
				require.NoError(t, err)
				assert.Equal(t, "fixed", id)

				got, err := store.Get("fixed")
				require.NoError(t, err)
				assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
			})

			t.Run("newest first and bounded", func(t *testing.T) {
				var ids []string
				for i := range 4 {
					id, err := store.Put(record(fmt.Sprintf("0x1::m::f%d", i)))
					require.NoError(t, err)
					ids = append(ids, id)
				}

				list, err := store.List()
				require.NoError(t, err)
				require.Len(t, list, 3)
				assert.Equal(t, "0x1::m::f3", list[0].Function)
				assert.Equal(t, "0x1::m::f2", list[1].Function)
				assert.Equal(t, "0x1::m::f1", list[2].Function)

				_, err = store.Get(ids[0])
				require.ErrorIs(t, err, history.ErrNotFound)
				_, err = store.Get("fixed")
				require.ErrorIs(t, err, history.ErrNotFound)
			})

			t.Run("unknown id", func(t *testing.T) {
				_, err := store.Get("nope")
				require.ErrorIs(t, err, history.ErrNotFound)
			})

			t.Run("clear", func(t *testing.T) {
				require.NoError(t, store.Clear())
				list, err := store.List()
				require.NoError(t, err)
				assert.Empty(t, list)

				id, err := store.Put(record("0x1::coin::transfer"))
				require.NoError(t, err)
				list, err = store.List()
				require.NoError(t, err)
				require.Len(t, list, 1)
				assert.Equal(t, id, list[0].ID)
			})

			t.Run("concurrent writers", func(t *testing.T) {
				require.NoError(t, store.Clear())
				var wg sync.WaitGroup
				for range 10 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := store.Put(record("0x1::coin::transfer"))
						assert.NoError(t, err)
					}()
				}
				wg.Wait()
				list, err := store.List()
				require.NoError(t, err)
				assert.Len(t, list, 3)
			})
		})
	}
}

func TestStoreReusedID(t *testing.T) {
	withID := func(id, fn string) history.Record {
		rec := record(fn)
		rec.ID = id
		return rec
	}
	functions := func(t *testing.T, store history.Store) []string {
		list, err := store.List()
		require.NoError(t, err)
		var fns []string
		for _, rec := range list {
			fns = append(fns, rec.ID+" "+rec.Function)
		}
		return fns
	}

	for name, store := range backends(t, 2) {
		t.Run(name, func(t *testing.T) {
			for _, rec := range []history.Record{
				withID("a", "0x1::m::first"),
				withID("a", "0x1::m::second"),
				withID("b", "0x1::m::third"),
			} {
				_, err := store.Put(rec)
				require.NoError(t, err)
			}
			assert.Equal(t, []string{"b 0x1::m::third", "a 0x1::m::second"}, functions(t, store))

			got, err := store.Get("a")
			require.NoError(t, err)
			assert.Equal(t, "0x1::m::second", got.Function)

			_, err = store.Put(withID("c", "0x1::m::fourth"))
			require.NoError(t, err)
			assert.Equal(t, []string{"c 0x1::m::fourth", "b 0x1::m::third"}, functions(t, store))

			_, err = store.Get("a")
			require.ErrorIs(t, err, history.ErrNotFound)
			got, err = store.Get("b")
			require.NoError(t, err)
			assert.Equal(t, "0x1::m::third", got.Function)
		})
	}
}

func TestPebbleStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	store, err := history.NewPebble(path, 2, nil)
	require.NoError(t, err)
	first, err := store.Put(record("0x1::a::one"))
	require.NoError(t, err)
	_, err = store.Put(record("0x1::a::two"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = history.NewPebble(path, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	got, err := store.Get(first)
	require.NoError(t, err)
	assert.Equal(t, "0x1::a::one", got.Function)

	// the reopened store continues the sequence and still evicts the oldest
	_, err = store.Put(record("0x1::a::three"))
	require.NoError(t, err)
	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "0x1::a::three", list[0].Function)
	assert.Equal(t, "0x1::a::two", list[1].Function)
}

func TestPebbleStoreReleasesDBOnLoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	db, err := pebble.Open(path, &pebble.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("r/bad"), []byte("{}"), pebble.Sync))
	require.NoError(t, db.Close())

	_, err = history.NewPebble(path, 2, nil)
	require.ErrorContains(t, err, "malformed history key")

	// the directory lock is released, so the database opens again
	db, err = pebble.Open(path, &pebble.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
