package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"fairswap/crypto"
	"fairswap/storage"
)

const (
	DefaultChainID       = 1337
	DefaultNetworkName   = "fairswap-local"
	DefaultRPCAddress    = ":8080"
	DefaultIndexerListen = ":8090"
	DefaultJWTSecretEnv  = "FAIRSWAP_JWT_SECRET"
	// KeystorePassphraseEnv unlocks the admin keystore written on first run.
	KeystorePassphraseEnv = "FAIRSWAP_KEYSTORE_PASSPHRASE"
)

type Config struct {
	ChainID           uint64 `toml:"ChainID"`
	NetworkName       string `toml:"NetworkName"`
	RPCAddress        string `toml:"RPCAddress"`
	DataDir           string `toml:"DataDir"`
	StorageEngine     string `toml:"StorageEngine"`
	GenesisFile       string `toml:"GenesisFile"`
	Admin             string `toml:"Admin"`
	AdminKeystorePath string `toml:"AdminKeystorePath"`

	Deposit   Deposit   `toml:"deposit"`
	RPC       RPC       `toml:"rpc"`
	Indexer   Indexer   `toml:"indexer"`
	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`
	Pauses    Pauses    `toml:"pauses"`
}

// Load loads the configuration from the given path, writing a default file
// (and a fresh admin keystore) when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ChainID == 0 {
		c.ChainID = DefaultChainID
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = DefaultNetworkName
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = DefaultRPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./fairswap-data"
	}
	if strings.TrimSpace(c.StorageEngine) == "" {
		c.StorageEngine = storage.EngineLevelDB
	}
	if c.Deposit == (Deposit{}) {
		c.Deposit = defaultDeposit()
	}
	if strings.TrimSpace(c.RPC.JWTSecretEnv) == "" {
		c.RPC.JWTSecretEnv = DefaultJWTSecretEnv
	}
	if c.RPC.Burst <= 0 {
		c.RPC.Burst = 20
	}
	if c.RPC.Quota.EpochSeconds == 0 {
		c.RPC.Quota.EpochSeconds = 60
	}
	if strings.TrimSpace(c.Indexer.ListenAddress) == "" {
		c.Indexer.ListenAddress = DefaultIndexerListen
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, os.Getenv(KeystorePassphraseEnv)); err != nil {
		return nil, err
	}

	cfg := &Config{
		RPC: RPC{RequestsPerMinute: 600},
		Indexer: Indexer{
			DSN: "sqlite://" + filepath.Join(filepath.Dir(path), "indexer.db"),
		},
		Admin:             key.Address().String(),
		AdminKeystorePath: keystorePath,
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.keystore")
}
