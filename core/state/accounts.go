package state

import (
	"fmt"

	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
)

// AccountGet returns the native account of addr, or a zero account when none
// has been written.
func (s *StateDB) AccountGet(addr crypto.Address) (*types.Account, error) {
	account := new(types.Account)
	if _, err := s.getRLP(accountKey(addr), account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *StateDB) AccountPut(addr crypto.Address, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return s.putRLP(accountKey(addr), account)
}

func (s *StateDB) AssetGet(symbol string) (*bank.Asset, bool, error) {
	asset := new(bank.Asset)
	ok, err := s.getRLP(assetKey(symbol), asset)
	if err != nil || !ok {
		return nil, false, err
	}
	return asset, true, nil
}

// AssetPut stores asset and records new symbols in the asset list.
func (s *StateDB) AssetPut(asset *bank.Asset) error {
	if asset == nil {
		return fmt.Errorf("state: nil asset")
	}
	_, exists, err := s.get(assetKey(asset.Symbol))
	if err != nil {
		return err
	}
	if !exists {
		list, err := s.Assets()
		if err != nil {
			return err
		}
		if err := s.putRLP(assetListKey, append(list, asset.Symbol)); err != nil {
			return err
		}
	}
	return s.putRLP(assetKey(asset.Symbol), asset)
}

// Assets lists registered asset symbols in registration order.
func (s *StateDB) Assets() ([]string, error) {
	var list []string
	if _, err := s.getRLP(assetListKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *StateDB) TokenAccountGet(addr crypto.Address) (*bank.TokenAccount, bool, error) {
	account := new(bank.TokenAccount)
	ok, err := s.getRLP(tokenAccountKey(addr), account)
	if err != nil || !ok {
		return nil, false, err
	}
	return account, true, nil
}

// TokenAccountPut stores account and tracks it as a holder of its asset.
func (s *StateDB) TokenAccountPut(account *bank.TokenAccount) error {
	if account == nil {
		return fmt.Errorf("state: nil token account")
	}
	_, exists, err := s.get(tokenAccountKey(account.Address))
	if err != nil {
		return err
	}
	if !exists {
		holders, err := s.TokenAccountsForAsset(account.Asset)
		if err != nil {
			return err
		}
		if err := s.putRLP(holdersKey(account.Asset), append(holders, account.Address)); err != nil {
			return err
		}
	}
	return s.putRLP(tokenAccountKey(account.Address), account)
}

func (s *StateDB) TokenAccountDelete(addr crypto.Address) error {
	account, ok, err := s.TokenAccountGet(addr)
	if err != nil || !ok {
		return err
	}
	holders, err := s.TokenAccountsForAsset(account.Asset)
	if err != nil {
		return err
	}
	out := holders[:0]
	for _, holder := range holders {
		if holder != addr {
			out = append(out, holder)
		}
	}
	if err := s.putRLP(holdersKey(account.Asset), out); err != nil {
		return err
	}
	return s.delete(tokenAccountKey(addr))
}

func (s *StateDB) TokenAccountsForAsset(symbol string) ([]crypto.Address, error) {
	var holders []crypto.Address
	if _, err := s.getRLP(holdersKey(symbol), &holders); err != nil {
		return nil, err
	}
	return holders, nil
}

func (s *StateDB) DepositGet(record crypto.Address) (*bank.Deposit, bool, error) {
	deposit := new(bank.Deposit)
	ok, err := s.getRLP(depositKey(record), deposit)
	if err != nil || !ok {
		return nil, false, err
	}
	return deposit, true, nil
}

func (s *StateDB) DepositPut(deposit *bank.Deposit) error {
	if deposit == nil {
		return fmt.Errorf("state: nil deposit")
	}
	return s.putRLP(depositKey(deposit.Record), deposit)
}

func (s *StateDB) DepositDelete(record crypto.Address) error {
	return s.delete(depositKey(record))
}

// Height returns the number of committed transactions.
func (s *StateDB) Height() (uint64, error) {
	var height uint64
	if _, err := s.getRLP(heightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// IncrementHeight advances the height counter and returns the new value.
func (s *StateDB) IncrementHeight() (uint64, error) {
	height, err := s.Height()
	if err != nil {
		return 0, err
	}
	height++
	return height, s.putRLP(heightKey, height)
}
