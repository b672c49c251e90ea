package bank

import (
	"fmt"
	"regexp"

	"fairswap/core/types"
	"fairswap/crypto"
)

const (
	tokenSeed = "token"
	vaultSeed = "vault"
)

// TokenAccountSize is the storage footprint charged for every token account.
const TokenAccountSize = 2*crypto.AddressLength + 12 + 8

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{2,12}$`)

// Asset describes a fungible asset kind tracked by the ledger.
type Asset struct {
	Symbol    string
	Name      string
	Decimals  uint8
	Authority crypto.Address
	Supply    uint64
}

// TokenAccount holds a single asset balance. Owner is the only principal that
// may move funds out of it: an identity for user accounts, or the owning Offer
// or Proposal record for vaults.
type TokenAccount struct {
	Address crypto.Address
	Owner   crypto.Address
	Asset   string
	Balance uint64
}

// Clone returns a copy safe for mutation.
func (a *TokenAccount) Clone() *TokenAccount {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Deposit is the storage reservation backing one record. It is refunded to
// Payer when the record is deleted.
type Deposit struct {
	Record crypto.Address
	Payer  crypto.Address
	Amount uint64
}

// State is the storage surface the bank needs. Missing native accounts are
// returned as zero-value accounts.
type State interface {
	AccountGet(addr crypto.Address) (*types.Account, error)
	AccountPut(addr crypto.Address, account *types.Account) error

	AssetGet(symbol string) (*Asset, bool, error)
	AssetPut(asset *Asset) error

	TokenAccountGet(addr crypto.Address) (*TokenAccount, bool, error)
	TokenAccountPut(account *TokenAccount) error
	TokenAccountDelete(addr crypto.Address) error
	TokenAccountsForAsset(symbol string) ([]crypto.Address, error)

	DepositGet(record crypto.Address) (*Deposit, bool, error)
	DepositPut(deposit *Deposit) error
	DepositDelete(record crypto.Address) error
}

// ValidateSymbol checks the canonical asset symbol form.
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// TokenAccountAddress derives the token account of owner for asset.
func TokenAccountAddress(owner crypto.Address, asset string) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress([]byte(tokenSeed), owner[:], []byte(asset))
}

// VaultAddress derives the custody account controlled by the record at owner.
func VaultAddress(owner crypto.Address) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress([]byte(vaultSeed), owner[:])
}
