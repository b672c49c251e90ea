package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fairswap/crypto"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Token:  "usdc",
		Total:  5000,
		Delta:  250,
		Reason: SupplyReasonMint,
	}.Event()
	require.NotNil(t, evt)
	require.Equal(t, TypeTokenSupply, evt.Type)
	require.Equal(t, "USDC", evt.Attributes["token"])
	require.Equal(t, "5000", evt.Attributes["total"])
	require.Equal(t, "250", evt.Attributes["delta"])
	require.Equal(t, SupplyReasonMint, evt.Attributes["reason"])
}

func TestTransferEventOmitsEmptyHash(t *testing.T) {
	var from, to crypto.Address
	from[0], to[0] = 1, 2
	evt := Transfer{Asset: " gold ", From: from, To: to, Amount: 7}.Event()
	require.Equal(t, "GOLD", evt.Attributes["asset"])
	require.Equal(t, from.String(), evt.Attributes["from"])
	require.Equal(t, "7", evt.Attributes["amount"])
	_, ok := evt.Attributes["txHash"]
	require.False(t, ok)

	evt = Transfer{Asset: NativeAsset, From: from, To: to, Amount: 1, TxHash: [32]byte{0xab}}.Event()
	require.Equal(t, "0xab"+strings.Repeat("00", 31), evt.Attributes["txHash"])
}
