package fairswap

import (
	"strconv"

	"fairswap/core/types"
	"fairswap/crypto"
)

const (
	EventTypeOfferCreated      = "fairswap.offer.created"
	EventTypeOfferCancelled    = "fairswap.offer.cancelled"
	EventTypeSwapExecuted      = "fairswap.swap.executed"
	EventTypeProposalSubmitted = "fairswap.proposal.submitted"
	EventTypeProposalAccepted  = "fairswap.proposal.accepted"
	EventTypeProposalWithdrawn = "fairswap.proposal.withdrawn"
)

// Attribute keys shared by every fair-swap event.
const (
	AttrOffer             = "offer"
	AttrProposal          = "proposal"
	AttrVault             = "vault"
	AttrSeller            = "seller"
	AttrBuyer             = "buyer"
	AttrOfferID           = "offerId"
	AttrProposalID        = "proposalId"
	AttrAssetA            = "assetA"
	AttrAmountA           = "amountA"
	AttrAssetB            = "assetB"
	AttrAmountB           = "amountB"
	AttrAllowAlternatives = "allowAlternatives"
	AttrRefundAccount     = "refundAccount"
)

type swapEvent struct {
	evt *types.Event
}

func (e swapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e swapEvent) Event() *types.Event { return e.evt }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func offerAttributes(addr crypto.Address, offer *Offer) map[string]string {
	return map[string]string{
		AttrOffer:   addr.String(),
		AttrSeller:  offer.Seller.String(),
		AttrOfferID: u64(offer.OfferID),
		AttrAssetA:  offer.AssetAKind,
		AttrAmountA: u64(offer.AssetAAmount),
		AttrAssetB:  offer.AssetBKind,
		AttrAmountB: u64(offer.AssetBAmount),
	}
}

func offerCreatedEvent(addr, vault crypto.Address, offer *Offer) *types.Event {
	attrs := offerAttributes(addr, offer)
	attrs[AttrVault] = vault.String()
	attrs[AttrAllowAlternatives] = strconv.FormatBool(offer.AllowAlternatives)
	return &types.Event{Type: EventTypeOfferCreated, Attributes: attrs}
}

func offerCancelledEvent(addr crypto.Address, offer *Offer, refund crypto.Address) *types.Event {
	attrs := offerAttributes(addr, offer)
	attrs[AttrRefundAccount] = refund.String()
	return &types.Event{Type: EventTypeOfferCancelled, Attributes: attrs}
}

func swapExecutedEvent(addr crypto.Address, offer *Offer, buyer crypto.Address) *types.Event {
	attrs := offerAttributes(addr, offer)
	attrs[AttrBuyer] = buyer.String()
	return &types.Event{Type: EventTypeSwapExecuted, Attributes: attrs}
}

func proposalAttributes(addr crypto.Address, proposal *Proposal) map[string]string {
	return map[string]string{
		AttrProposal:   addr.String(),
		AttrOffer:      proposal.Offer.String(),
		AttrBuyer:      proposal.Buyer.String(),
		AttrProposalID: u64(proposal.ProposalID),
		AttrAssetB:     proposal.ProposedAssetKind,
		AttrAmountB:    u64(proposal.ProposedAmount),
	}
}

func proposalSubmittedEvent(addr, vault crypto.Address, proposal *Proposal, seller crypto.Address) *types.Event {
	attrs := proposalAttributes(addr, proposal)
	attrs[AttrVault] = vault.String()
	attrs[AttrSeller] = seller.String()
	return &types.Event{Type: EventTypeProposalSubmitted, Attributes: attrs}
}

func proposalWithdrawnEvent(addr crypto.Address, proposal *Proposal, refund crypto.Address) *types.Event {
	attrs := proposalAttributes(addr, proposal)
	attrs[AttrRefundAccount] = refund.String()
	return &types.Event{Type: EventTypeProposalWithdrawn, Attributes: attrs}
}

// The accepted event carries the offer's asset A and the proposal's asset in
// the asset B slots, matching what each side actually received.
func proposalAcceptedEvent(offerAddr, proposalAddr crypto.Address, offer *Offer, proposal *Proposal) *types.Event {
	attrs := offerAttributes(offerAddr, offer)
	attrs[AttrProposal] = proposalAddr.String()
	attrs[AttrBuyer] = proposal.Buyer.String()
	attrs[AttrProposalID] = u64(proposal.ProposalID)
	attrs[AttrAssetB] = proposal.ProposedAssetKind
	attrs[AttrAmountB] = u64(proposal.ProposedAmount)
	return &types.Event{Type: EventTypeProposalAccepted, Attributes: attrs}
}
