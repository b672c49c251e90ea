package config

import (
	"os"
	"strings"

	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/native/fairswap"
)

// Deposit sets the storage deposit schedule charged for new records.
type Deposit struct {
	BaseBytes uint64 `toml:"BaseBytes"`
	PerByte   uint64 `toml:"PerByte"`
}

func defaultDeposit() Deposit {
	s := bank.DefaultSchedule()
	return Deposit{BaseBytes: s.BaseBytes, PerByte: s.PerByte}
}

// Quota bounds transaction submissions per sender.
type Quota struct {
	MaxRequestsPerEpoch uint32 `toml:"MaxRequestsPerEpoch"`
	MaxBytesPerEpoch    uint64 `toml:"MaxBytesPerEpoch"`
	EpochSeconds        uint32 `toml:"EpochSeconds"`
}

// RPC configures the JSON-RPC listener. The JWT secret is read from the
// environment variable named by JWTSecretEnv and never stored in the file.
type RPC struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
	JWTSecretEnv      string  `toml:"JWTSecretEnv"`
	JWTIssuer         string  `toml:"JWTIssuer"`
	Quota             Quota   `toml:"quota"`
}

type Indexer struct {
	Enabled       bool   `toml:"Enabled"`
	DSN           string `toml:"DSN"`
	ListenAddress string `toml:"ListenAddress"`
}

type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Pauses lists modules that start paused.
type Pauses struct {
	FairSwap bool `toml:"FairSwap"`
}

// Schedule returns the deposit schedule as the bank consumes it.
func (c *Config) Schedule() bank.Schedule {
	return bank.Schedule{BaseBytes: c.Deposit.BaseBytes, PerByte: c.Deposit.PerByte}
}

// AdminAddress parses the configured ledger admin.
func (c *Config) AdminAddress() (crypto.Address, error) {
	return crypto.ParseAddress(strings.TrimSpace(c.Admin))
}

// JWTSecret resolves the admin token secret from the environment.
func (c *Config) JWTSecret() string {
	return strings.TrimSpace(os.Getenv(c.RPC.JWTSecretEnv))
}

func (c *Config) Quota() common.Quota {
	return common.Quota{
		MaxRequestsPerEpoch: c.RPC.Quota.MaxRequestsPerEpoch,
		MaxBytesPerEpoch:    c.RPC.Quota.MaxBytesPerEpoch,
		EpochSeconds:        c.RPC.Quota.EpochSeconds,
	}
}

// PausedModules returns the module names that start paused.
func (c *Config) PausedModules() []string {
	var out []string
	if c.Pauses.FairSwap {
		out = append(out, fairswap.ModuleName)
	}
	return out
}
