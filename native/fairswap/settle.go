package fairswap

import "fmt"

const (
	opExecuteSwap    = "execute_swap"
	opAcceptProposal = "accept_proposal"
)

func (ExecuteSwapParams) Name() string { return opExecuteSwap }

// The buyer pays the offer's stated terms straight to the seller and takes the
// escrowed asset. The seller authorised these terms when creating the offer,
// so no seller signature is involved.
func (p ExecuteSwapParams) apply(tx *txn) error {
	offer, err := loadOffer(tx.st, p.Offer)
	if err != nil {
		return err
	}
	payment, err := tx.bank.Account(p.BuyerPayment)
	if err != nil {
		return err
	}
	if payment.Asset != offer.AssetBKind {
		return precondition(ErrInvalidAssetKind, "payment account holds %s, offer requires %s", payment.Asset, offer.AssetBKind)
	}
	if _, err := source(tx, p.BuyerPayment, p.Buyer, offer.AssetBAmount); err != nil {
		return err
	}
	if err := receiver(tx, p.SellerReceive, offer.Seller, offer.AssetBKind); err != nil {
		return err
	}
	if err := receiver(tx, p.BuyerReceive, p.Buyer, offer.AssetAKind); err != nil {
		return err
	}
	vault, err := loadVault(tx, p.Offer, offer.AssetAKind, offer.AssetAAmount)
	if err != nil {
		return err
	}

	if err := tx.bank.Transfer(p.BuyerPayment, p.SellerReceive, offer.AssetBAmount, p.Buyer); err != nil {
		return err
	}
	if _, err := tx.bank.DrainAndClose(vault, p.BuyerReceive, p.Offer); err != nil {
		return err
	}
	if err := tx.st.OfferDelete(p.Offer); err != nil {
		return err
	}
	if err := closeRecord(tx, p.Offer); err != nil {
		return err
	}
	tx.record = p.Offer
	tx.emit(swapExecutedEvent(p.Offer, offer, p.Buyer))
	return nil
}

func (AcceptProposalParams) Name() string { return opAcceptProposal }

// Accepting settles both escrows at once: the proposal's funds go to the
// seller, the offer's funds go to the proposal's buyer, and both records and
// vaults are destroyed.
func (p AcceptProposalParams) apply(tx *txn) error {
	offer, err := loadOffer(tx.st, p.Offer)
	if err != nil {
		return err
	}
	if offer.Seller != p.Seller {
		return fmt.Errorf("%w: %s is not the seller of offer %s", ErrUnauthorized, p.Seller, p.Offer)
	}
	proposal, err := loadProposal(tx.st, p.Proposal)
	if err != nil {
		return err
	}
	if proposal.Offer != p.Offer {
		return precondition(ErrProposalOfferMismatch, "proposal %s targets %s", p.Proposal, proposal.Offer)
	}
	if err := receiver(tx, p.SellerReceive, offer.Seller, proposal.ProposedAssetKind); err != nil {
		return err
	}
	if err := receiver(tx, p.BuyerReceive, proposal.Buyer, offer.AssetAKind); err != nil {
		return err
	}
	proposalVault, err := loadVault(tx, p.Proposal, proposal.ProposedAssetKind, proposal.ProposedAmount)
	if err != nil {
		return err
	}
	offerVault, err := loadVault(tx, p.Offer, offer.AssetAKind, offer.AssetAAmount)
	if err != nil {
		return err
	}

	if _, err := tx.bank.DrainAndClose(proposalVault, p.SellerReceive, p.Proposal); err != nil {
		return err
	}
	if _, err := tx.bank.DrainAndClose(offerVault, p.BuyerReceive, p.Offer); err != nil {
		return err
	}
	if err := removeProposal(tx, p.Proposal, proposal); err != nil {
		return err
	}
	if err := tx.st.OfferDelete(p.Offer); err != nil {
		return err
	}
	if err := closeRecord(tx, p.Offer); err != nil {
		return err
	}
	tx.record = p.Offer
	tx.emit(proposalAcceptedEvent(p.Offer, p.Proposal, offer, proposal))
	return nil
}
