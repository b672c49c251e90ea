package config

import (
	"fmt"
	"strings"

	"fairswap/storage"
)

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("config: ChainID must be non-zero")
	}
	switch strings.ToLower(strings.TrimSpace(c.StorageEngine)) {
	case storage.EngineMemory, storage.EngineLevelDB, storage.EngineBolt:
	default:
		return fmt.Errorf("config: unknown StorageEngine %q", c.StorageEngine)
	}
	if _, err := c.AdminAddress(); err != nil {
		return fmt.Errorf("config: Admin: %w", err)
	}
	if c.Deposit.PerByte == 0 {
		return fmt.Errorf("config: deposit.PerByte must be positive")
	}
	if c.RPC.RequestsPerMinute < 0 {
		return fmt.Errorf("config: rpc.RequestsPerMinute must not be negative")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry.SampleRatio must be within [0,1]")
	}
	if c.Indexer.Enabled && strings.TrimSpace(c.Indexer.DSN) == "" {
		return fmt.Errorf("config: indexer.DSN required when the indexer is enabled")
	}
	return nil
}
