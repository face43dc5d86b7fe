package history

import (
	"encoding/binary"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

var _ Store = (*PebbleStore)(nil)

// Key layout:
//
//	r/<seq big-endian>  -> JSON record, so key order is insertion order
//	i/<id>              -> seq
var (
	recordPrefix = []byte("r/")
	indexPrefix  = []byte("i/")
)

// PebbleStore persists history across restarts.
type PebbleStore struct {
	db     *pebble.DB
	wMutex sync.Mutex
	limit  int
	seq    uint64
	count  int
	now    func() time.Time
}

// NewPebble opens a store at path.
func NewPebble(path string, limit int, logger pebble.Logger) (*PebbleStore, error) {
	return openPebble(path, limit, &pebble.Options{Logger: logger})
}

// NewPebbleMem opens a store backed by an in-memory filesystem.
func NewPebbleMem(limit int) (*PebbleStore, error) {
	return openPebble("", limit, &pebble.Options{FS: vfs.NewMem()})
}

// NewPebbleMemTest opens an in-memory store closed at the end of the test.
func NewPebbleMemTest(t *testing.T, limit int) *PebbleStore {
	store, err := NewPebbleMem(limit)
	if err != nil {
		t.Fatalf("create in-memory history: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close in-memory history: %v", err)
		}
	})
	return store
}

func openPebble(path string, limit int, options *pebble.Options) (*PebbleStore, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	db, err := pebble.Open(path, options)
	if err != nil {
		return nil, errors.Wrapf(err, "open history at %q", path)
	}
	s := &PebbleStore{db: db, limit: limit, now: time.Now}
	if err = s.load(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Wrapf(err, "load history (close: %v)", closeErr)
		}
		return nil, errors.WithMessage(err, "load history")
	}
	return s, nil
}

func (s *PebbleStore) load() error {
	iter, err := s.db.NewIter(prefixOptions(recordPrefix))
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		s.count++
	}
	if iter.Last() {
		key := iter.Key()
		if len(key) != len(recordPrefix)+8 {
			return errors.Errorf("malformed history key %q", key)
		}
		s.seq = binary.BigEndian.Uint64(key[len(recordPrefix):])
	}
	return iter.Error()
}

func (s *PebbleStore) Put(rec Record) (string, error) {
	prepare(&rec, s.now)
	value, err := json.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, "encode history record")
	}

	s.wMutex.Lock()
	defer s.wMutex.Unlock()

	seq := s.seq + 1
	batch := s.db.NewBatch()
	defer batch.Close()

	// A reused id replaces the record it pointed at.
	replaced, err := s.lookupSeq(rec.ID)
	if err != nil {
		return "", err
	}
	count := s.count + 1
	if replaced != 0 {
		if err = batch.Delete(recordKey(replaced), nil); err != nil {
			return "", errors.Wrap(err, "stage replaced record")
		}
		count--
	}
	if err = batch.Set(recordKey(seq), value, nil); err != nil {
		return "", errors.Wrap(err, "stage history record")
	}
	if err = batch.Set(indexKey(rec.ID), encodeSeq(seq), nil); err != nil {
		return "", errors.Wrap(err, "stage history index")
	}
	evicted, err := s.stageEvictions(batch, count-s.limit, replaced)
	if err != nil {
		return "", err
	}
	if err = batch.Commit(pebble.Sync); err != nil {
		return "", errors.Wrap(err, "commit history record")
	}

	s.seq = seq
	s.count = count - evicted
	return rec.ID, nil
}

// lookupSeq returns the sequence number id is stored under, or 0 when it is absent.
func (s *PebbleStore) lookupSeq(id string) (uint64, error) {
	seq, closer, err := s.db.Get(indexKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrap(err, "read history index")
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(seq), nil
}

// stageEvictions deletes the n oldest records and their index entries. The record at
// seq skip is already staged for deletion and is not counted.
func (s *PebbleStore) stageEvictions(batch *pebble.Batch, n int, skip uint64) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	iter, err := s.db.NewIter(prefixOptions(recordPrefix))
	if err != nil {
		return 0, errors.Wrap(err, "iterate history")
	}
	defer iter.Close()

	evicted := 0
	for iter.First(); iter.Valid() && evicted < n; iter.Next() {
		if skip != 0 && binary.BigEndian.Uint64(iter.Key()[len(recordPrefix):]) == skip {
			continue
		}
		var old Record
		if err = json.Unmarshal(iter.Value(), &old); err != nil {
			return 0, errors.Wrap(err, "decode evicted record")
		}
		if err = batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return 0, errors.Wrap(err, "stage eviction")
		}
		if err = batch.Delete(indexKey(old.ID), nil); err != nil {
			return 0, errors.Wrap(err, "stage index eviction")
		}
		evicted++
	}
	return evicted, errors.Wrap(iter.Error(), "iterate history")
}

func (s *PebbleStore) Get(id string) (*Record, error) {
	seq, closer, err := s.db.Get(indexKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "read history index")
	}
	key := recordKey(binary.BigEndian.Uint64(seq))
	if err = closer.Close(); err != nil {
		return nil, err
	}

	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "read history record")
	}
	defer closer.Close()

	rec := new(Record)
	if err = json.Unmarshal(value, rec); err != nil {
		return nil, errors.Wrap(err, "decode history record")
	}
	return rec, nil
}

// List returns records newest first.
func (s *PebbleStore) List() ([]Record, error) {
	iter, err := s.db.NewIter(prefixOptions(recordPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "iterate history")
	}
	defer iter.Close()

	records := []Record{}
	for iter.Last(); iter.Valid(); iter.Prev() {
		var rec Record
		if err = json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, errors.Wrap(err, "decode history record")
		}
		records = append(records, rec)
	}
	return records, errors.Wrap(iter.Error(), "iterate history")
}

func (s *PebbleStore) Clear() error {
	s.wMutex.Lock()
	defer s.wMutex.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, prefix := range [][]byte{recordPrefix, indexPrefix} {
		if err := batch.DeleteRange(prefix, upperBound(prefix), nil); err != nil {
			return errors.Wrap(err, "stage history clear")
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "clear history")
	}
	s.count = 0
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func prefixOptions(prefix []byte) *pebble.IterOptions {
	return &pebble.IterOptions{LowerBound: prefix, UpperBound: upperBound(prefix)}
}

func upperBound(prefix []byte) []byte {
	ub := append([]byte(nil), prefix...)
	ub[len(ub)-1]++
	return ub
}

func encodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func recordKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), recordPrefix...), seq)
}

func indexKey(id string) []byte {
	return append(append([]byte(nil), indexPrefix...), id...)
}
