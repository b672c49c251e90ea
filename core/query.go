package core

import (
	"context"
	"fmt"

	"fairswap/core/state"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
)

// Account returns the native account of addr; unknown identities have a zero
// account.
func (n *Node) Account(ctx context.Context, addr crypto.Address) (*types.Account, error) {
	var out *types.Account
	err := n.store.View(ctx, func(st *state.StateDB) error {
		var err error
		out, err = st.AccountGet(addr)
		return err
	})
	return out, err
}

func (n *Node) TokenAccount(ctx context.Context, addr crypto.Address) (*bank.TokenAccount, error) {
	var out *bank.TokenAccount
	err := n.store.View(ctx, func(st *state.StateDB) error {
		var err error
		out, err = bank.NewLedger(st, n.schedule).Account(addr)
		return err
	})
	return out, err
}

func (n *Node) Asset(ctx context.Context, symbol string) (*bank.Asset, error) {
	var out *bank.Asset
	err := n.store.View(ctx, func(st *state.StateDB) error {
		var err error
		out, err = bank.NewLedger(st, n.schedule).Asset(symbol)
		return err
	})
	return out, err
}

func (n *Node) Assets(ctx context.Context) ([]*bank.Asset, error) {
	var out []*bank.Asset
	err := n.store.View(ctx, func(st *state.StateDB) error {
		symbols, err := st.Assets()
		if err != nil {
			return err
		}
		ledger := bank.NewLedger(st, n.schedule)
		for _, symbol := range symbols {
			asset, err := ledger.Asset(symbol)
			if err != nil {
				return err
			}
			out = append(out, asset)
		}
		return nil
	})
	return out, err
}

func (n *Node) Height(ctx context.Context) (uint64, error) {
	return n.store.Height(ctx)
}

// Receipt returns the committed receipt at height, including its events.
func (n *Node) Receipt(ctx context.Context, height uint64) (*types.Receipt, error) {
	var out *types.Receipt
	err := n.store.View(ctx, func(st *state.StateDB) error {
		receipt, ok, err := st.ReceiptGet(height)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w %d", ErrUnknownHeight, height)
		}
		out = receipt
		return nil
	})
	return out, err
}
