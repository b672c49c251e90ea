package bank

import (
	"fmt"
	"math"
	"strings"

	"fairswap/crypto"
)

// Ledger applies bank operations against a State. It holds no state of its own
// and is cheap to construct per transaction.
type Ledger struct {
	state    State
	schedule Schedule
}

func NewLedger(state State, schedule Schedule) *Ledger {
	return &Ledger{state: state, schedule: schedule}
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	return nil
}

// Schedule returns the deposit schedule in effect.
func (l *Ledger) Schedule() Schedule { return l.schedule }

// RegisterAsset adds a new asset kind with zero supply.
func (l *Ledger) RegisterAsset(asset *Asset) error {
	if err := l.ready(); err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("bank: asset required")
	}
	symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
	if err := ValidateSymbol(symbol); err != nil {
		return err
	}
	if _, exists, err := l.state.AssetGet(symbol); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s", ErrAssetExists, symbol)
	}
	record := *asset
	record.Symbol = symbol
	record.Supply = 0
	return l.state.AssetPut(&record)
}

// Asset loads a registered asset.
func (l *Ledger) Asset(symbol string) (*Asset, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	asset, ok, err := l.state.AssetGet(symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, symbol)
	}
	return asset, nil
}

// Mint credits amount of the account's asset. Only the asset authority may mint.
func (l *Ledger) Mint(authority, to crypto.Address, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	account, err := l.Account(to)
	if err != nil {
		return err
	}
	asset, err := l.Asset(account.Asset)
	if err != nil {
		return err
	}
	if asset.Authority != authority {
		return fmt.Errorf("%w: %s is not the %s authority", ErrUnauthorized, authority, asset.Symbol)
	}
	if asset.Supply > math.MaxUint64-amount || account.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	asset.Supply += amount
	account.Balance += amount
	if err := l.state.AssetPut(asset); err != nil {
		return err
	}
	return l.state.TokenAccountPut(account)
}

// OpenAccount creates the derived token account of owner for asset. The
// storage deposit is taken from payer.
func (l *Ledger) OpenAccount(payer, owner crypto.Address, asset string) (*TokenAccount, error) {
	addr, _, err := TokenAccountAddress(owner, asset)
	if err != nil {
		return nil, err
	}
	return l.create(payer, addr, owner, asset)
}

// CreateVault creates the custody account controlled by the record at owner.
func (l *Ledger) CreateVault(payer, owner crypto.Address, asset string) (*TokenAccount, error) {
	addr, _, err := VaultAddress(owner)
	if err != nil {
		return nil, err
	}
	return l.create(payer, addr, owner, asset)
}

func (l *Ledger) create(payer, addr, owner crypto.Address, asset string) (*TokenAccount, error) {
	if _, err := l.Asset(asset); err != nil {
		return nil, err
	}
	if _, exists, err := l.state.TokenAccountGet(addr); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	if _, err := l.Reserve(payer, addr, TokenAccountSize); err != nil {
		return nil, err
	}
	account := &TokenAccount{Address: addr, Owner: owner, Asset: asset}
	if err := l.state.TokenAccountPut(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Account loads a token account.
func (l *Ledger) Account(addr crypto.Address) (*TokenAccount, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	account, ok, err := l.state.TokenAccountGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return account, nil
}

// Transfer moves amount between two token accounts of the same asset. The
// authority must be the owner of the source account.
func (l *Ledger) Transfer(from, to crypto.Address, amount uint64, authority crypto.Address) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	src, err := l.Account(from)
	if err != nil {
		return err
	}
	dst, err := l.Account(to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("%w: %s does not control %s", ErrUnauthorized, authority, from)
	}
	if src.Asset != dst.Asset {
		return fmt.Errorf("%w: %s -> %s", ErrAssetMismatch, src.Asset, dst.Asset)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientBalance, from, src.Balance, amount)
	}
	if from == to {
		return nil
	}
	if dst.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := l.state.TokenAccountPut(src); err != nil {
		return err
	}
	return l.state.TokenAccountPut(dst)
}

// Close deletes an empty token account and refunds its deposit.
func (l *Ledger) Close(addr, authority crypto.Address) error {
	account, err := l.Account(addr)
	if err != nil {
		return err
	}
	if account.Owner != authority {
		return fmt.Errorf("%w: %s does not control %s", ErrUnauthorized, authority, addr)
	}
	if account.Balance != 0 {
		return fmt.Errorf("%w: %s holds %d", ErrNonZeroBalance, addr, account.Balance)
	}
	if err := l.state.TokenAccountDelete(addr); err != nil {
		return err
	}
	_, err = l.Refund(addr)
	return err
}

// DrainAndClose moves the full balance of addr to recipient then closes it.
func (l *Ledger) DrainAndClose(addr, recipient, authority crypto.Address) (uint64, error) {
	account, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	amount := account.Balance
	if amount > 0 {
		if err := l.Transfer(addr, recipient, amount, authority); err != nil {
			return 0, err
		}
	}
	if err := l.Close(addr, authority); err != nil {
		return 0, err
	}
	return amount, nil
}

// TransferNative moves native units between identities.
func (l *Ledger) TransferNative(from, to crypto.Address, amount uint64) error {
	if err := l.ready(); err != nil {
		return err
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	src, err := l.state.AccountGet(from)
	if err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: native balance %d, need %d", ErrInsufficientBalance, src.Balance, amount)
	}
	if from == to {
		return nil
	}
	dst, err := l.state.AccountGet(to)
	if err != nil {
		return err
	}
	if dst.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	src = src.Clone()
	dst = dst.Clone()
	src.Balance -= amount
	dst.Balance += amount
	if err := l.state.AccountPut(from, src); err != nil {
		return err
	}
	return l.state.AccountPut(to, dst)
}
