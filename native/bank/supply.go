package bank

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Circulating sums every token account balance of asset.
func (l *Ledger) Circulating(symbol string) (*uint256.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	holders, err := l.state.TokenAccountsForAsset(symbol)
	if err != nil {
		return nil, err
	}
	total := uint256.NewInt(0)
	for _, addr := range holders {
		account, ok, err := l.state.TokenAccountGet(addr)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		total.Add(total, uint256.NewInt(account.Balance))
	}
	return total, nil
}

// CheckSupply verifies that circulating balances equal the minted supply.
func (l *Ledger) CheckSupply(symbol string) error {
	asset, err := l.Asset(symbol)
	if err != nil {
		return err
	}
	circulating, err := l.Circulating(symbol)
	if err != nil {
		return err
	}
	if !circulating.Eq(uint256.NewInt(asset.Supply)) {
		return fmt.Errorf("bank: %s supply %d, circulating %s", symbol, asset.Supply, circulating.Dec())
	}
	return nil
}
