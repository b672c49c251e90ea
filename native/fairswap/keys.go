package fairswap

import (
	"encoding/binary"

	"fairswap/crypto"
	"fairswap/native/bank"
)

const (
	offerSeed    = "offer"
	proposalSeed = "proposal"
)

func le64(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

func offerSeeds(seller crypto.Address, offerID uint64) [][]byte {
	return [][]byte{[]byte(offerSeed), seller[:], le64(offerID)}
}

func proposalSeeds(offer, buyer crypto.Address, proposalID uint64) [][]byte {
	return [][]byte{[]byte(proposalSeed), offer[:], buyer[:], le64(proposalID)}
}

// OfferAddress derives the canonical address and bump of a seller's offer.
func OfferAddress(seller crypto.Address, offerID uint64) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(offerSeeds(seller, offerID)...)
}

// ProposalAddress derives the canonical address and bump of a buyer's
// proposal against offer.
func ProposalAddress(offer, buyer crypto.Address, proposalID uint64) (crypto.Address, uint8, error) {
	return crypto.FindProgramAddress(proposalSeeds(offer, buyer, proposalID)...)
}

// VaultAddress derives the custody account owned by an offer or proposal.
func VaultAddress(record crypto.Address) (crypto.Address, error) {
	addr, _, err := bank.VaultAddress(record)
	return addr, err
}

// verifyOffer re-derives the offer address from its stored fields.
func verifyOffer(addr crypto.Address, offer *Offer) error {
	if err := crypto.VerifyProgramAddress(addr, offer.Bump, offerSeeds(offer.Seller, offer.OfferID)...); err != nil {
		return precondition(ErrAddressMismatch, "offer %s", addr)
	}
	return nil
}

func verifyProposal(addr crypto.Address, proposal *Proposal) error {
	if err := crypto.VerifyProgramAddress(addr, proposal.Bump, proposalSeeds(proposal.Offer, proposal.Buyer, proposal.ProposalID)...); err != nil {
		return precondition(ErrAddressMismatch, "proposal %s", addr)
	}
	return nil
}
