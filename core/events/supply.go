package events

import (
	"strconv"
	"strings"

	"fairswap/core/types"
)

const (
	// TypeTokenSupply is emitted whenever an asset's supply changes.
	TypeTokenSupply = "token.supply"
	// TypeAssetRegistered is emitted when a new asset kind is added.
	TypeAssetRegistered = "token.registered"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
)

// TokenSupply captures a supply delta for a fungible asset.
type TokenSupply struct {
	Token  string
	Total  uint64
	Delta  uint64
	Reason string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{}
	token := assetSymbol(e.Token)
	if token == "" {
		token = "UNKNOWN"
	}
	attrs["token"] = token
	attrs["total"] = strconv.FormatUint(e.Total, 10)
	if e.Delta != 0 {
		attrs["delta"] = strconv.FormatUint(e.Delta, 10)
	}
	reason := strings.TrimSpace(e.Reason)
	if reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}

type AssetRegistered struct {
	Symbol    string
	Name      string
	Decimals  uint8
	Authority string
}

func (AssetRegistered) EventType() string { return TypeAssetRegistered }

func (e AssetRegistered) Event() *types.Event {
	return &types.Event{Type: TypeAssetRegistered, Attributes: map[string]string{
		"token":     assetSymbol(e.Symbol),
		"name":      strings.TrimSpace(e.Name),
		"decimals":  strconv.Itoa(int(e.Decimals)),
		"authority": e.Authority,
	}}
}
