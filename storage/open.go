package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	EngineMemory  = "memory"
	EngineLevelDB = "leveldb"
	EngineBolt    = "bolt"
)

// Open returns the database backend named by engine rooted under dir.
func Open(engine, dir string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case EngineMemory:
		return NewMemDB(), nil
	case "", EngineLevelDB:
		return NewLevelDB(filepath.Join(dir, "ledger"))
	case EngineBolt:
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
		return NewBoltDB(filepath.Join(dir, "ledger.bolt"))
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", engine)
	}
}
