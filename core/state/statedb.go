package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"fairswap/storage"
)

var errReadOnly = errors.New("state: write in read-only view")

type change struct {
	value   []byte
	deleted bool
}

// StateDB is a staged view over the database. Reads fall through to the
// database unless the key was touched in this unit; writes stay in memory
// until the owning Store commits them in one batch.
type StateDB struct {
	db       storage.Database
	writes   map[string]change
	readOnly bool
}

func newStateDB(db storage.Database, readOnly bool) *StateDB {
	return &StateDB{db: db, writes: make(map[string]change), readOnly: readOnly}
}

func (s *StateDB) get(key []byte) ([]byte, bool, error) {
	if c, ok := s.writes[string(key)]; ok {
		if c.deleted {
			return nil, false, nil
		}
		return c.value, true, nil
	}
	value, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *StateDB) put(key, value []byte) error {
	if s.readOnly {
		return errReadOnly
	}
	s.writes[string(key)] = change{value: append([]byte(nil), value...)}
	return nil
}

func (s *StateDB) delete(key []byte) error {
	if s.readOnly {
		return errReadOnly
	}
	s.writes[string(key)] = change{deleted: true}
	return nil
}

func (s *StateDB) getRLP(key []byte, out interface{}) (bool, error) {
	data, ok, err := s.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %x: %w", key, err)
	}
	return true, nil
}

func (s *StateDB) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.put(key, encoded)
}

// Dirty reports how many keys this unit has touched.
func (s *StateDB) Dirty() int { return len(s.writes) }

// commit writes every staged change in one batch, in key order.
func (s *StateDB) commit() error {
	if len(s.writes) == 0 {
		return nil
	}
	keys := make([][]byte, 0, len(s.writes))
	for k := range s.writes {
		keys = append(keys, []byte(k))
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	batch := s.db.NewBatch()
	for _, k := range keys {
		c := s.writes[string(k)]
		if c.deleted {
			batch.Delete(k)
			continue
		}
		batch.Put(k, c.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	s.writes = make(map[string]change)
	return nil
}
