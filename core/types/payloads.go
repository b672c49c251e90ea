package types

import "fairswap/crypto"

// TransferPayload moves native units to another identity.
type TransferPayload struct {
	To     crypto.Address
	Amount uint64
}

// OpenAccountPayload opens the signer's derived token account for Asset.
type OpenAccountPayload struct {
	Asset string
}

// TokenTransferPayload moves tokens out of a signer-owned token account.
type TokenTransferPayload struct {
	From   crypto.Address
	To     crypto.Address
	Amount uint64
}

type CreateOfferPayload struct {
	OfferID           uint64
	SellerAccount     crypto.Address
	AssetAAmount      uint64
	AssetBKind        string
	AssetBAmount      uint64
	AllowAlternatives bool
}

type CancelOfferPayload struct {
	Offer         crypto.Address
	SellerAccount crypto.Address
}

type ExecuteSwapPayload struct {
	Offer         crypto.Address
	BuyerPayment  crypto.Address
	SellerReceive crypto.Address
	BuyerReceive  crypto.Address
}

type SubmitProposalPayload struct {
	Offer          crypto.Address
	ProposalID     uint64
	BuyerAccount   crypto.Address
	ProposedAmount uint64
}

type AcceptProposalPayload struct {
	Offer         crypto.Address
	Proposal      crypto.Address
	SellerReceive crypto.Address
	BuyerReceive  crypto.Address
}

type WithdrawProposalPayload struct {
	Proposal     crypto.Address
	BuyerAccount crypto.Address
}

type RegisterAssetPayload struct {
	Symbol    string
	Name      string
	Decimals  uint8
	Authority crypto.Address
}

type MintPayload struct {
	Asset  string
	To     crypto.Address
	Amount uint64
}
