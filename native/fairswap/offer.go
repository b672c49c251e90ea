package fairswap

import "fmt"

const (
	opCreateOffer = "create_offer"
	opCancelOffer = "cancel_offer"
)

func (CreateOfferParams) Name() string { return opCreateOffer }

func (p CreateOfferParams) apply(tx *txn) error {
	if p.AssetAAmount == 0 || p.AssetBAmount == 0 {
		return precondition(ErrInvalidAmount, "")
	}
	if _, err := tx.bank.Asset(p.AssetBKind); err != nil {
		return precondition(ErrInvalidAssetKind, "unknown asset %q", p.AssetBKind)
	}
	addr, bump, err := OfferAddress(p.Seller, p.OfferID)
	if err != nil {
		return err
	}
	if _, exists, err := tx.st.OfferGet(addr); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: offer %d of %s", ErrDuplicateRecord, p.OfferID, p.Seller)
	}
	// Proposals orphaned by an earlier offer at addr still reference it.
	if retired, err := tx.st.OfferRetired(addr); err != nil {
		return err
	} else if retired {
		return fmt.Errorf("%w: offer %d of %s was already used", ErrDuplicateRecord, p.OfferID, p.Seller)
	}
	account, err := source(tx, p.SellerAccount, p.Seller, p.AssetAAmount)
	if err != nil {
		return err
	}

	if _, err := tx.bank.Reserve(p.Seller, addr, OfferSize); err != nil {
		return err
	}
	vault, err := tx.bank.CreateVault(p.Seller, addr, account.Asset)
	if err != nil {
		return err
	}
	if err := tx.bank.Transfer(p.SellerAccount, vault.Address, p.AssetAAmount, p.Seller); err != nil {
		return err
	}
	offer := &Offer{
		OfferID:           p.OfferID,
		Seller:            p.Seller,
		AssetAKind:        account.Asset,
		AssetAAmount:      p.AssetAAmount,
		AssetBKind:        p.AssetBKind,
		AssetBAmount:      p.AssetBAmount,
		AllowAlternatives: p.AllowAlternatives,
		Bump:              bump,
	}
	if err := tx.st.OfferPut(addr, offer); err != nil {
		return err
	}
	tx.record = addr
	tx.emit(offerCreatedEvent(addr, vault.Address, offer))
	return nil
}

func (CancelOfferParams) Name() string { return opCancelOffer }

func (p CancelOfferParams) apply(tx *txn) error {
	offer, err := loadOffer(tx.st, p.Offer)
	if err != nil {
		return err
	}
	if offer.Seller != p.Seller {
		return fmt.Errorf("%w: %s is not the seller of offer %s", ErrUnauthorized, p.Seller, p.Offer)
	}
	vault, err := loadVault(tx, p.Offer, offer.AssetAKind, offer.AssetAAmount)
	if err != nil {
		return err
	}
	if err := receiver(tx, p.SellerAccount, offer.Seller, offer.AssetAKind); err != nil {
		return err
	}

	if _, err := tx.bank.DrainAndClose(vault, p.SellerAccount, p.Offer); err != nil {
		return err
	}
	if err := tx.st.OfferDelete(p.Offer); err != nil {
		return err
	}
	if err := closeRecord(tx, p.Offer); err != nil {
		return err
	}
	tx.record = p.Offer
	tx.emit(offerCancelledEvent(p.Offer, offer, p.SellerAccount))
	return nil
}
