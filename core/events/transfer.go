package events

import (
	"encoding/hex"
	"strconv"
	"strings"

	"fairswap/core/types"
	"fairswap/crypto"
)

const (
	// TypeTransfer is emitted for native unit and token account movements.
	TypeTransfer = "transfer"
	// TypeAccountOpened is emitted when a token account is created.
	TypeAccountOpened = "token.account.opened"
)

// NativeAsset labels transfers of native units.
const NativeAsset = "NATIVE"

type Transfer struct {
	Asset  string
	From   crypto.Address
	To     crypto.Address
	Amount uint64
	TxHash [32]byte
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := assetSymbol(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	attrs["from"] = e.From.String()
	attrs["to"] = e.To.String()
	attrs["amount"] = strconv.FormatUint(e.Amount, 10)
	if e.TxHash != ([32]byte{}) {
		attrs["txHash"] = "0x" + strings.ToLower(hex.EncodeToString(e.TxHash[:]))
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type AccountOpened struct {
	Account crypto.Address
	Owner   crypto.Address
	Asset   string
	Deposit uint64
}

func (AccountOpened) EventType() string { return TypeAccountOpened }

func (e AccountOpened) Event() *types.Event {
	return &types.Event{Type: TypeAccountOpened, Attributes: map[string]string{
		"account": e.Account.String(),
		"owner":   e.Owner.String(),
		"asset":   assetSymbol(e.Asset),
		"deposit": strconv.FormatUint(e.Deposit, 10),
	}}
}

// assetSymbol canonicalises a symbol the way the bank stores it.
func assetSymbol(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
