package fairswap

import (
	"fmt"

	"fairswap/crypto"
)

const (
	opSubmitProposal   = "submit_proposal"
	opWithdrawProposal = "withdraw_proposal"
)

func (SubmitProposalParams) Name() string { return opSubmitProposal }

func (p SubmitProposalParams) apply(tx *txn) error {
	if p.ProposedAmount == 0 {
		return precondition(ErrInvalidAmount, "")
	}
	offer, err := loadOffer(tx.st, p.Offer)
	if err != nil {
		return err
	}
	if !offer.AllowAlternatives {
		return precondition(ErrAlternativesNotAllowed, "offer %s", p.Offer)
	}
	addr, bump, err := ProposalAddress(p.Offer, p.Buyer, p.ProposalID)
	if err != nil {
		return err
	}
	if _, exists, err := tx.st.ProposalGet(addr); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: proposal %d of %s on %s", ErrDuplicateRecord, p.ProposalID, p.Buyer, p.Offer)
	}
	account, err := source(tx, p.BuyerAccount, p.Buyer, p.ProposedAmount)
	if err != nil {
		return err
	}

	if _, err := tx.bank.Reserve(p.Buyer, addr, ProposalSize); err != nil {
		return err
	}
	vault, err := tx.bank.CreateVault(p.Buyer, addr, account.Asset)
	if err != nil {
		return err
	}
	if err := tx.bank.Transfer(p.BuyerAccount, vault.Address, p.ProposedAmount, p.Buyer); err != nil {
		return err
	}
	proposal := &Proposal{
		ProposalID:        p.ProposalID,
		Buyer:             p.Buyer,
		Offer:             p.Offer,
		ProposedAssetKind: account.Asset,
		ProposedAmount:    p.ProposedAmount,
		Bump:              bump,
	}
	if err := tx.st.ProposalPut(addr, proposal); err != nil {
		return err
	}
	if err := indexAdd(tx.st, p.Offer, addr); err != nil {
		return err
	}
	tx.record = addr
	tx.emit(proposalSubmittedEvent(addr, vault.Address, proposal, offer.Seller))
	return nil
}

func (WithdrawProposalParams) Name() string { return opWithdrawProposal }

// Withdrawal only needs the proposal's own fields, so it stays available after
// the targeted offer has closed.
func (p WithdrawProposalParams) apply(tx *txn) error {
	proposal, err := loadProposal(tx.st, p.Proposal)
	if err != nil {
		return err
	}
	if proposal.Buyer != p.Buyer {
		return fmt.Errorf("%w: %s is not the buyer of proposal %s", ErrUnauthorized, p.Buyer, p.Proposal)
	}
	vault, err := loadVault(tx, p.Proposal, proposal.ProposedAssetKind, proposal.ProposedAmount)
	if err != nil {
		return err
	}
	if err := receiver(tx, p.BuyerAccount, proposal.Buyer, proposal.ProposedAssetKind); err != nil {
		return err
	}

	if _, err := tx.bank.DrainAndClose(vault, p.BuyerAccount, p.Proposal); err != nil {
		return err
	}
	if err := removeProposal(tx, p.Proposal, proposal); err != nil {
		return err
	}
	tx.record = p.Proposal
	tx.emit(proposalWithdrawnEvent(p.Proposal, proposal, p.BuyerAccount))
	return nil
}

func removeProposal(tx *txn, addr crypto.Address, proposal *Proposal) error {
	if err := tx.st.ProposalDelete(addr); err != nil {
		return err
	}
	if err := indexRemove(tx.st, proposal.Offer, addr); err != nil {
		return err
	}
	return closeRecord(tx, addr)
}

func indexAdd(st State, offer, proposal crypto.Address) error {
	index, err := st.ProposalIndex(offer)
	if err != nil {
		return err
	}
	for _, existing := range index {
		if existing == proposal {
			return nil
		}
	}
	return st.ProposalIndexPut(offer, append(index, proposal))
}

func indexRemove(st State, offer, proposal crypto.Address) error {
	index, err := st.ProposalIndex(offer)
	if err != nil {
		return err
	}
	out := index[:0]
	for _, existing := range index {
		if existing != proposal {
			out = append(out, existing)
		}
	}
	return st.ProposalIndexPut(offer, out)
}
