package genesis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fairswap/core/state"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/storage"
)

func sampleSpec(t *testing.T) (string, crypto.Address, crypto.Address) {
	t.Helper()
	authority, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	holder, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	doc := `chainId: 7
assets:
  - symbol: gold
    name: Gold
    decimals: 2
    authority: ` + authority.Address().String() + `
accounts:
  - address: "` + holder.Address().Hex() + `"
    native: 100000
balances:
  - owner: ` + holder.Address().String() + `
    asset: GOLD
    amount: 500
`
	return doc, authority.Address(), holder.Address()
}

func TestLoadAndApply(t *testing.T) {
	doc, authority, holder := sampleSpec(t)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	spec, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(7), spec.ChainID)

	store := state.NewStore(storage.NewMemDB())
	require.NoError(t, store.Update(context.Background(), func(st *state.StateDB) error {
		return spec.Apply(bank.NewLedger(st, bank.DefaultSchedule()), st)
	}))

	require.NoError(t, store.View(context.Background(), func(st *state.StateDB) error {
		ledger := bank.NewLedger(st, bank.DefaultSchedule())
		asset, err := ledger.Asset("GOLD")
		require.NoError(t, err)
		require.Equal(t, authority, asset.Authority)
		require.Equal(t, uint64(500), asset.Supply)

		tokenAddr, _, err := bank.TokenAccountAddress(holder, "GOLD")
		require.NoError(t, err)
		account, err := ledger.Account(tokenAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(500), account.Balance)

		native, err := st.AccountGet(holder)
		require.NoError(t, err)
		require.Equal(t, 100000-bank.DefaultSchedule().DepositFor(bank.TokenAccountSize), native.Balance)
		return ledger.CheckSupply("GOLD")
	}))
}

func TestParseRejectsInvalidSpecs(t *testing.T) {
	_, err := Parse([]byte("assets: []\n"))
	require.ErrorContains(t, err, "chainId")

	_, err = Parse([]byte("chainId: 1\nunknown: true\n"))
	require.Error(t, err)

	_, err = Parse([]byte("chainId: 1\nbalances:\n  - owner: \"0x" + strings.Repeat("aa", 32) + "\"\n    asset: GOLD\n    amount: 1\n"))
	require.ErrorContains(t, err, "unknown asset")
}
