package genesis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fairswap/crypto"
	"fairswap/native/bank"
)

// Spec is the YAML document describing the initial ledger.
type Spec struct {
	ChainID  uint64        `yaml:"chainId"`
	Assets   []AssetSpec   `yaml:"assets"`
	Accounts []AccountSpec `yaml:"accounts"`
	Balances []BalanceSpec `yaml:"balances"`
}

type AssetSpec struct {
	Symbol    string `yaml:"symbol"`
	Name      string `yaml:"name"`
	Decimals  uint8  `yaml:"decimals"`
	Authority string `yaml:"authority"`
}

// AccountSpec funds an identity with native units.
type AccountSpec struct {
	Address string `yaml:"address"`
	Native  uint64 `yaml:"native"`
}

// BalanceSpec opens owner's token account for asset and mints amount into it.
type BalanceSpec struct {
	Owner  string `yaml:"owner"`
	Asset  string `yaml:"asset"`
	Amount uint64 `yaml:"amount"`
}

// Load reads and validates a genesis spec from path.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a genesis spec, rejecting unknown fields.
func Parse(raw []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode genesis spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *Spec) Validate() error {
	if s.ChainID == 0 {
		return fmt.Errorf("genesis: chainId must be set")
	}
	symbols := make(map[string]bool, len(s.Assets))
	for i, asset := range s.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if err := bank.ValidateSymbol(symbol); err != nil {
			return fmt.Errorf("genesis: assets[%d]: %w", i, err)
		}
		if symbols[symbol] {
			return fmt.Errorf("genesis: assets[%d]: duplicate symbol %s", i, symbol)
		}
		symbols[symbol] = true
		if _, err := crypto.ParseAddress(asset.Authority); err != nil {
			return fmt.Errorf("genesis: assets[%d].authority: %w", i, err)
		}
	}
	for i, account := range s.Accounts {
		if _, err := crypto.ParseAddress(account.Address); err != nil {
			return fmt.Errorf("genesis: accounts[%d].address: %w", i, err)
		}
	}
	for i, balance := range s.Balances {
		if _, err := crypto.ParseAddress(balance.Owner); err != nil {
			return fmt.Errorf("genesis: balances[%d].owner: %w", i, err)
		}
		if !symbols[strings.ToUpper(strings.TrimSpace(balance.Asset))] {
			return fmt.Errorf("genesis: balances[%d]: unknown asset %q", i, balance.Asset)
		}
	}
	return nil
}

// Apply writes the genesis allocation through the bank ledger. Token
// account deposits are charged to their owners, so accounts must be funded
// before balances are opened.
func (s *Spec) Apply(ledger *bank.Ledger, st bank.State) error {
	for _, asset := range s.Assets {
		authority, _ := crypto.ParseAddress(asset.Authority)
		if err := ledger.RegisterAsset(&bank.Asset{
			Symbol:    asset.Symbol,
			Name:      asset.Name,
			Decimals:  asset.Decimals,
			Authority: authority,
		}); err != nil {
			return fmt.Errorf("genesis: register %s: %w", asset.Symbol, err)
		}
	}
	for _, account := range s.Accounts {
		addr, _ := crypto.ParseAddress(account.Address)
		current, err := st.AccountGet(addr)
		if err != nil {
			return err
		}
		current = current.Clone()
		current.Balance += account.Native
		if err := st.AccountPut(addr, current); err != nil {
			return err
		}
	}
	for _, balance := range s.Balances {
		owner, _ := crypto.ParseAddress(balance.Owner)
		symbol := strings.ToUpper(strings.TrimSpace(balance.Asset))
		tokenAddr, _, err := bank.TokenAccountAddress(owner, symbol)
		if err != nil {
			return err
		}
		if _, err := ledger.Account(tokenAddr); errors.Is(err, bank.ErrAccountNotFound) {
			if _, err := ledger.OpenAccount(owner, owner, symbol); err != nil {
				return fmt.Errorf("genesis: open %s account of %s: %w", symbol, owner, err)
			}
		} else if err != nil {
			return err
		}
		if balance.Amount == 0 {
			continue
		}
		asset, err := ledger.Asset(symbol)
		if err != nil {
			return err
		}
		if err := ledger.Mint(asset.Authority, tokenAddr, balance.Amount); err != nil {
			return fmt.Errorf("genesis: mint %s to %s: %w", symbol, owner, err)
		}
	}
	return nil
}
