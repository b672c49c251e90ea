package state

import (
	"context"

	"fairswap/crypto"
	"fairswap/native/fairswap"
)

func (s *StateDB) OfferGet(addr crypto.Address) (*fairswap.Offer, bool, error) {
	offer := new(fairswap.Offer)
	ok, err := s.getRLP(offerKey(addr), offer)
	if err != nil || !ok {
		return nil, false, err
	}
	return offer, true, nil
}

func (s *StateDB) OfferPut(addr crypto.Address, offer *fairswap.Offer) error {
	_, exists, err := s.get(offerKey(addr))
	if err != nil {
		return err
	}
	if !exists {
		if err := s.adjustOpenOffers(1); err != nil {
			return err
		}
	}
	return s.putRLP(offerKey(addr), offer)
}

func (s *StateDB) OfferDelete(addr crypto.Address) error {
	_, exists, err := s.get(offerKey(addr))
	if err != nil || !exists {
		return err
	}
	if err := s.adjustOpenOffers(-1); err != nil {
		return err
	}
	if err := s.delete(offerKey(addr)); err != nil {
		return err
	}
	return s.put(offerTombstoneKey(addr), []byte{1})
}

// OfferRetired reports whether an offer was once stored at addr and has since
// been closed.
func (s *StateDB) OfferRetired(addr crypto.Address) (bool, error) {
	_, ok, err := s.get(offerTombstoneKey(addr))
	return ok, err
}

func (s *StateDB) OpenOfferCount() (uint64, error) {
	var n uint64
	if _, err := s.getRLP(openOfferCountKey, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *StateDB) adjustOpenOffers(delta int) error {
	n, err := s.OpenOfferCount()
	if err != nil {
		return err
	}
	if delta < 0 && n > 0 {
		n--
	} else if delta > 0 {
		n++
	}
	return s.putRLP(openOfferCountKey, n)
}

func (s *StateDB) ProposalGet(addr crypto.Address) (*fairswap.Proposal, bool, error) {
	proposal := new(fairswap.Proposal)
	ok, err := s.getRLP(proposalKey(addr), proposal)
	if err != nil || !ok {
		return nil, false, err
	}
	return proposal, true, nil
}

func (s *StateDB) ProposalPut(addr crypto.Address, proposal *fairswap.Proposal) error {
	return s.putRLP(proposalKey(addr), proposal)
}

func (s *StateDB) ProposalDelete(addr crypto.Address) error {
	return s.delete(proposalKey(addr))
}

func (s *StateDB) ProposalIndex(offer crypto.Address) ([]crypto.Address, error) {
	var index []crypto.Address
	if _, err := s.getRLP(proposalIndexKey(offer), &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (s *StateDB) ProposalIndexPut(offer crypto.Address, proposals []crypto.Address) error {
	if len(proposals) == 0 {
		return s.delete(proposalIndexKey(offer))
	}
	return s.putRLP(proposalIndexKey(offer), proposals)
}

// SwapBackend exposes the store to the fair-swap engine.
func (s *Store) SwapBackend() fairswap.Backend { return swapBackend{store: s} }

type swapBackend struct {
	store *Store
}

func (b swapBackend) Update(ctx context.Context, fn func(fairswap.State) error) error {
	return b.store.Update(ctx, func(st *StateDB) error { return fn(st) })
}

func (b swapBackend) View(ctx context.Context, fn func(fairswap.State) error) error {
	return b.store.View(ctx, func(st *StateDB) error { return fn(st) })
}

var _ fairswap.State = (*StateDB)(nil)
