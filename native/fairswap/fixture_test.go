package fairswap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"fairswap/core/events"
	"fairswap/core/state"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/fairswap"
	"fairswap/storage"
)

const nativeFunding = 1_000_000

var assets = []string{"GOLD", "SILVER", "COPPER"}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *storage.MemDB
	store    *state.Store
	engine   *fairswap.Engine
	recorder *events.Recorder

	seller crypto.Address
	buyer  crypto.Address
	buyer2 crypto.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	store := state.NewStore(db)
	engine := fairswap.NewEngine(store.SwapBackend())
	recorder := &events.Recorder{}
	engine.SetEmitter(recorder)

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		store:    store,
		engine:   engine,
		recorder: recorder,
		seller:   newIdentity(t),
		buyer:    newIdentity(t),
		buyer2:   newIdentity(t),
	}
	authority := newIdentity(t)
	require.NoError(t, store.Update(f.ctx, func(st *state.StateDB) error {
		ledger := bank.NewLedger(st, engine.Schedule())
		for _, symbol := range assets {
			if err := ledger.RegisterAsset(&bank.Asset{Symbol: symbol, Name: symbol, Authority: authority}); err != nil {
				return err
			}
		}
		for _, who := range []crypto.Address{f.seller, f.buyer, f.buyer2} {
			if err := st.AccountPut(who, &types.Account{Balance: nativeFunding}); err != nil {
				return err
			}
			for _, symbol := range assets {
				account, err := ledger.OpenAccount(who, who, symbol)
				if err != nil {
					return err
				}
				if err := ledger.Mint(authority, account.Address, 1000); err != nil {
					return err
				}
			}
		}
		return nil
	}))
	return f
}

func newIdentity(t *testing.T) crypto.Address {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.Address()
}

func (f *fixture) account(owner crypto.Address, asset string) crypto.Address {
	addr, _, err := bank.TokenAccountAddress(owner, asset)
	require.NoError(f.t, err)
	return addr
}

func (f *fixture) balance(owner crypto.Address, asset string) uint64 {
	return f.tokenBalance(f.account(owner, asset))
}

func (f *fixture) tokenBalance(addr crypto.Address) uint64 {
	var out uint64
	require.NoError(f.t, f.store.View(f.ctx, func(st *state.StateDB) error {
		account, ok, err := st.TokenAccountGet(addr)
		require.True(f.t, ok, "token account %s missing", addr)
		out = account.Balance
		return err
	}))
	return out
}

func (f *fixture) tokenAccountExists(addr crypto.Address) bool {
	var exists bool
	require.NoError(f.t, f.store.View(f.ctx, func(st *state.StateDB) error {
		var err error
		_, exists, err = st.TokenAccountGet(addr)
		return err
	}))
	return exists
}

func (f *fixture) native(owner crypto.Address) uint64 {
	var out uint64
	require.NoError(f.t, f.store.View(f.ctx, func(st *state.StateDB) error {
		account, err := st.AccountGet(owner)
		if err != nil {
			return err
		}
		out = account.Balance
		return nil
	}))
	return out
}

// snapshot captures every stored key and value.
func (f *fixture) snapshot() map[string]string {
	out := make(map[string]string)
	for _, key := range f.db.Keys() {
		value, err := f.db.Get([]byte(key))
		require.NoError(f.t, err)
		out[key] = string(value)
	}
	return out
}

func (f *fixture) checkSupply() {
	require.NoError(f.t, f.store.View(f.ctx, func(st *state.StateDB) error {
		ledger := bank.NewLedger(st, f.engine.Schedule())
		for _, symbol := range assets {
			if err := ledger.CheckSupply(symbol); err != nil {
				return err
			}
		}
		return nil
	}))
}

// createOffer opens an offer selling amountA GOLD for amountB SILVER.
func (f *fixture) createOffer(id, amountA, amountB uint64, allowAlternatives bool) crypto.Address {
	addr, err := f.engine.CreateOffer(f.ctx, fairswap.CreateOfferParams{
		Seller:            f.seller,
		OfferID:           id,
		SellerAccount:     f.account(f.seller, "GOLD"),
		AssetAAmount:      amountA,
		AssetBKind:        "SILVER",
		AssetBAmount:      amountB,
		AllowAlternatives: allowAlternatives,
	})
	require.NoError(f.t, err)
	return addr
}

// submitProposal bids amount COPPER from buyer against offer.
func (f *fixture) submitProposal(buyer, offer crypto.Address, id, amount uint64) crypto.Address {
	addr, err := f.engine.SubmitProposal(f.ctx, fairswap.SubmitProposalParams{
		Buyer:          buyer,
		Offer:          offer,
		ProposalID:     id,
		BuyerAccount:   f.account(buyer, "COPPER"),
		ProposedAmount: amount,
	})
	require.NoError(f.t, err)
	return addr
}

func (f *fixture) executeParams(buyer, offer crypto.Address) fairswap.ExecuteSwapParams {
	return fairswap.ExecuteSwapParams{
		Buyer:         buyer,
		Offer:         offer,
		BuyerPayment:  f.account(buyer, "SILVER"),
		SellerReceive: f.account(f.seller, "SILVER"),
		BuyerReceive:  f.account(buyer, "GOLD"),
	}
}

func (f *fixture) acceptParams(offer, proposal, buyer crypto.Address) fairswap.AcceptProposalParams {
	return fairswap.AcceptProposalParams{
		Seller:        f.seller,
		Offer:         offer,
		Proposal:      proposal,
		SellerReceive: f.account(f.seller, "COPPER"),
		BuyerReceive:  f.account(buyer, "GOLD"),
	}
}
