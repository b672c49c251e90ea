package fairswap

import (
	"context"

	"fairswap/crypto"
	"fairswap/native/bank"
)

const ModuleName = "fairswap"

// Storage footprints charged as deposits for the two record kinds.
const (
	OfferSize    = 8 + crypto.AddressLength + 12 + 8 + 12 + 8 + 1 + 1
	ProposalSize = 8 + 2*crypto.AddressLength + 12 + 8 + 1
)

// Offer is a seller's standing commitment to trade AssetAAmount of AssetAKind
// for AssetBAmount of AssetBKind. The record exists only while the offer is
// open; its vault holds exactly AssetAAmount for that whole time.
type Offer struct {
	OfferID           uint64
	Seller            crypto.Address
	AssetAKind        string
	AssetAAmount      uint64
	AssetBKind        string
	AssetBAmount      uint64
	AllowAlternatives bool
	Bump              uint8
}

// Clone returns a copy safe for mutation.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// Proposal is a buyer's competing bid against an offer. Its vault holds
// exactly ProposedAmount of ProposedAssetKind until it is accepted or
// withdrawn.
type Proposal struct {
	ProposalID        uint64
	Buyer             crypto.Address
	Offer             crypto.Address
	ProposedAssetKind string
	ProposedAmount    uint64
	Bump              uint8
}

func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// ProposalEntry pairs a proposal with its address.
type ProposalEntry struct {
	Address  crypto.Address
	Proposal *Proposal
}

// State is the storage surface required by the engine.
type State interface {
	bank.State

	OfferGet(addr crypto.Address) (*Offer, bool, error)
	OfferPut(addr crypto.Address, offer *Offer) error
	// OfferDelete removes the offer and retires its address for good.
	OfferDelete(addr crypto.Address) error
	OfferRetired(addr crypto.Address) (bool, error)
	OpenOfferCount() (uint64, error)

	ProposalGet(addr crypto.Address) (*Proposal, bool, error)
	ProposalPut(addr crypto.Address, proposal *Proposal) error
	ProposalDelete(addr crypto.Address) error

	// ProposalIndex lists proposals submitted against offer that are still
	// open, including those orphaned by the offer closing.
	ProposalIndex(offer crypto.Address) ([]crypto.Address, error)
	ProposalIndexPut(offer crypto.Address, proposals []crypto.Address) error
}

// Backend runs functions against State. Update must apply every write made by
// fn atomically, or none of them when fn returns an error, and must serialize
// concurrent updates.
type Backend interface {
	Update(ctx context.Context, fn func(State) error) error
	View(ctx context.Context, fn func(State) error) error
}

type CreateOfferParams struct {
	Seller            crypto.Address
	OfferID           uint64
	SellerAccount     crypto.Address
	AssetAAmount      uint64
	AssetBKind        string
	AssetBAmount      uint64
	AllowAlternatives bool
}

type CancelOfferParams struct {
	Seller        crypto.Address
	Offer         crypto.Address
	SellerAccount crypto.Address
}

type ExecuteSwapParams struct {
	Buyer         crypto.Address
	Offer         crypto.Address
	BuyerPayment  crypto.Address
	SellerReceive crypto.Address
	BuyerReceive  crypto.Address
}

type SubmitProposalParams struct {
	Buyer          crypto.Address
	Offer          crypto.Address
	ProposalID     uint64
	BuyerAccount   crypto.Address
	ProposedAmount uint64
}

type AcceptProposalParams struct {
	Seller        crypto.Address
	Offer         crypto.Address
	Proposal      crypto.Address
	SellerReceive crypto.Address
	BuyerReceive  crypto.Address
}

type WithdrawProposalParams struct {
	Buyer        crypto.Address
	Proposal     crypto.Address
	BuyerAccount crypto.Address
}
