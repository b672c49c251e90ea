package state

import (
	"context"
	"sync"

	"fairswap/storage"
)

// Store serializes read-modify-write units over a database. Each Update runs
// against a fresh StateDB and is committed as a single batch only if the
// callback succeeds; a failing callback leaves the database untouched.
type Store struct {
	mu sync.RWMutex
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Update runs fn with exclusive access and commits its writes atomically.
func (s *Store) Update(ctx context.Context, fn func(*StateDB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := newStateDB(s.db, false)
	if err := fn(st); err != nil {
		return err
	}
	return st.commit()
}

// View runs fn against a read-only StateDB.
func (s *Store) View(ctx context.Context, fn func(*StateDB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newStateDB(s.db, true))
}

// Height returns the number of committed transactions.
func (s *Store) Height(ctx context.Context) (uint64, error) {
	var height uint64
	err := s.View(ctx, func(st *StateDB) error {
		var err error
		height, err = st.Height()
		return err
	})
	return height, err
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Close()
}
