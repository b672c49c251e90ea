package bank_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"fairswap/core/state"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/storage"
)

func identity(t *testing.T) crypto.Address {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.Address()
}

func withLedger(t *testing.T, store *state.Store, fn func(l *bank.Ledger, st *state.StateDB)) {
	t.Helper()
	require.NoError(t, store.Update(context.Background(), func(st *state.StateDB) error {
		fn(bank.NewLedger(st, bank.DefaultSchedule()), st)
		return nil
	}))
}

func TestOpenMintTransferClose(t *testing.T) {
	store := state.NewStore(storage.NewMemDB())
	authority := identity(t)
	alice := identity(t)
	bob := identity(t)
	schedule := bank.DefaultSchedule()
	deposit := schedule.DepositFor(bank.TokenAccountSize)

	withLedger(t, store, func(l *bank.Ledger, st *state.StateDB) {
		require.NoError(t, st.AccountPut(alice, &types.Account{Balance: 10 * deposit}))
		require.NoError(t, st.AccountPut(bob, &types.Account{Balance: 10 * deposit}))
		require.NoError(t, l.RegisterAsset(&bank.Asset{Symbol: "gold", Name: "Gold", Decimals: 2, Authority: authority}))
		require.ErrorIs(t, l.RegisterAsset(&bank.Asset{Symbol: "GOLD"}), bank.ErrAssetExists)
		require.ErrorIs(t, l.RegisterAsset(&bank.Asset{Symbol: "x"}), bank.ErrInvalidSymbol)

		aliceGold, err := l.OpenAccount(alice, alice, "GOLD")
		require.NoError(t, err)
		_, err = l.OpenAccount(alice, alice, "GOLD")
		require.ErrorIs(t, err, bank.ErrAccountExists)
		bobGold, err := l.OpenAccount(bob, bob, "GOLD")
		require.NoError(t, err)

		acc, err := st.AccountGet(alice)
		require.NoError(t, err)
		require.Equal(t, 9*deposit, acc.Balance)

		require.ErrorIs(t, l.Mint(alice, aliceGold.Address, 100), bank.ErrUnauthorized)
		require.NoError(t, l.Mint(authority, aliceGold.Address, 100))

		require.ErrorIs(t, l.Transfer(aliceGold.Address, bobGold.Address, 10, bob), bank.ErrUnauthorized)
		require.ErrorIs(t, l.Transfer(aliceGold.Address, bobGold.Address, 101, alice), bank.ErrInsufficientBalance)
		require.ErrorIs(t, l.Transfer(aliceGold.Address, bobGold.Address, 0, alice), bank.ErrInvalidAmount)
		require.NoError(t, l.Transfer(aliceGold.Address, bobGold.Address, 40, alice))

		require.ErrorIs(t, l.Close(bobGold.Address, bob), bank.ErrNonZeroBalance)
		require.NoError(t, l.Transfer(bobGold.Address, aliceGold.Address, 40, bob))
		require.NoError(t, l.Close(bobGold.Address, bob))

		acc, err = st.AccountGet(bob)
		require.NoError(t, err)
		require.Equal(t, 10*deposit, acc.Balance)
		_, ok, err := st.DepositGet(bobGold.Address)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, l.CheckSupply("GOLD"))
		circulating, err := l.Circulating("GOLD")
		require.NoError(t, err)
		require.Equal(t, uint64(100), circulating.Uint64())
	})
}

func TestTransferRejectsAssetMismatch(t *testing.T) {
	store := state.NewStore(storage.NewMemDB())
	owner := identity(t)
	withLedger(t, store, func(l *bank.Ledger, st *state.StateDB) {
		require.NoError(t, st.AccountPut(owner, &types.Account{Balance: 1 << 20}))
		require.NoError(t, l.RegisterAsset(&bank.Asset{Symbol: "GOLD", Authority: owner}))
		require.NoError(t, l.RegisterAsset(&bank.Asset{Symbol: "SILVER", Authority: owner}))
		gold, err := l.OpenAccount(owner, owner, "GOLD")
		require.NoError(t, err)
		silver, err := l.OpenAccount(owner, owner, "SILVER")
		require.NoError(t, err)
		require.NoError(t, l.Mint(owner, gold.Address, 5))
		require.ErrorIs(t, l.Transfer(gold.Address, silver.Address, 5, owner), bank.ErrAssetMismatch)
		require.ErrorIs(t, l.Transfer(gold.Address, crypto.Address{1}, 5, owner), bank.ErrAccountNotFound)
	})
}

func TestOpenAccountRequiresDeposit(t *testing.T) {
	store := state.NewStore(storage.NewMemDB())
	owner := identity(t)
	withLedger(t, store, func(l *bank.Ledger, st *state.StateDB) {
		require.NoError(t, l.RegisterAsset(&bank.Asset{Symbol: "GOLD", Authority: owner}))
		_, err := l.OpenAccount(owner, owner, "GOLD")
		require.ErrorIs(t, err, bank.ErrInsufficientDeposit)
		_, err = l.OpenAccount(owner, owner, "NOPE")
		require.ErrorIs(t, err, bank.ErrAssetNotFound)
	})
}

func TestVaultIsControlledByOwningRecord(t *testing.T) {
	store := state.NewStore(storage.NewMemDB())
	seller := identity(t)
	record, _, err := crypto.FindProgramAddress([]byte("offer"), seller[:])
	require.NoError(t, err)
	withLedger(t, store, func(l *bank.Ledger, st *state.StateDB) {
		require.NoError(t, st.AccountPut(seller, &types.Account{Balance: 1 << 20}))
		require.NoError(t, l.RegisterAsset(&bank.Asset{Symbol: "GOLD", Authority: seller}))
		src, err := l.OpenAccount(seller, seller, "GOLD")
		require.NoError(t, err)
		require.NoError(t, l.Mint(seller, src.Address, 50))
		vault, err := l.CreateVault(seller, record, "GOLD")
		require.NoError(t, err)
		require.Equal(t, record, vault.Owner)
		require.False(t, crypto.IsOnCurve(vault.Address))
		require.NoError(t, l.Transfer(src.Address, vault.Address, 50, seller))

		require.ErrorIs(t, l.Transfer(vault.Address, src.Address, 50, seller), bank.ErrUnauthorized)
		moved, err := l.DrainAndClose(vault.Address, src.Address, record)
		require.NoError(t, err)
		require.Equal(t, uint64(50), moved)
		_, err = l.Account(vault.Address)
		require.ErrorIs(t, err, bank.ErrAccountNotFound)

		acc, err := st.AccountGet(seller)
		require.NoError(t, err)
		require.Equal(t, uint64(1<<20)-l.Schedule().DepositFor(bank.TokenAccountSize), acc.Balance)
	})
}

func TestNativeTransfer(t *testing.T) {
	store := state.NewStore(storage.NewMemDB())
	a, b := identity(t), identity(t)
	withLedger(t, store, func(l *bank.Ledger, st *state.StateDB) {
		require.NoError(t, st.AccountPut(a, &types.Account{Nonce: 3, Balance: 10}))
		require.ErrorIs(t, l.TransferNative(a, b, 11), bank.ErrInsufficientBalance)
		require.NoError(t, l.TransferNative(a, b, 4))
		accA, err := st.AccountGet(a)
		require.NoError(t, err)
		require.Equal(t, &types.Account{Nonce: 3, Balance: 6}, accA)
		accB, err := st.AccountGet(b)
		require.NoError(t, err)
		require.Equal(t, uint64(4), accB.Balance)
	})
}

func TestDepositSchedule(t *testing.T) {
	s := bank.Schedule{BaseBytes: 100, PerByte: 3}
	require.Equal(t, uint64(3*(100+50)), s.DepositFor(50))
	require.Zero(t, bank.Schedule{}.DepositFor(50))
}
