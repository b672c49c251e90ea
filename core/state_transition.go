package core

import (
	"context"
	"fmt"

	"fairswap/core/events"
	"fairswap/core/state"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/fairswap"
)

// apply dispatches tx by type. The returned swap result is non-nil for the
// fair-swap operations.
func (n *Node) apply(ctx context.Context, st *state.StateDB, tx *types.Transaction, from crypto.Address) ([]*types.Event, *fairswap.Result, error) {
	ledger := bank.NewLedger(st, n.schedule)
	switch tx.Type {
	case types.TxTypeTransfer:
		var p types.TransferPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, nil, err
		}
		if err := ledger.TransferNative(from, p.To, p.Amount); err != nil {
			return nil, nil, err
		}
		return single(events.Transfer{Asset: events.NativeAsset, From: from, To: p.To, Amount: p.Amount}), nil, nil

	case types.TxTypeOpenAccount:
		var p types.OpenAccountPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, nil, err
		}
		account, err := ledger.OpenAccount(from, from, p.Asset)
		if err != nil {
			return nil, nil, err
		}
		return single(events.AccountOpened{
			Account: account.Address,
			Owner:   from,
			Asset:   account.Asset,
			Deposit: n.schedule.DepositFor(bank.TokenAccountSize),
		}), nil, nil

	case types.TxTypeTokenTransfer:
		var p types.TokenTransferPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, nil, err
		}
		if err := ledger.Transfer(p.From, p.To, p.Amount, from); err != nil {
			return nil, nil, err
		}
		account, err := ledger.Account(p.From)
		if err != nil {
			return nil, nil, err
		}
		return single(events.Transfer{Asset: account.Asset, From: p.From, To: p.To, Amount: p.Amount}), nil, nil

	case types.TxTypeRegisterAsset:
		var p types.RegisterAssetPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, nil, err
		}
		if from != n.admin {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotAdmin, from)
		}
		if err := ledger.RegisterAsset(&bank.Asset{Symbol: p.Symbol, Name: p.Name, Decimals: p.Decimals, Authority: p.Authority}); err != nil {
			return nil, nil, err
		}
		return single(events.AssetRegistered{Symbol: p.Symbol, Name: p.Name, Decimals: p.Decimals, Authority: p.Authority.String()}), nil, nil

	case types.TxTypeMint:
		var p types.MintPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, nil, err
		}
		if err := ledger.Mint(from, p.To, p.Amount); err != nil {
			return nil, nil, err
		}
		account, err := ledger.Account(p.To)
		if err != nil {
			return nil, nil, err
		}
		asset, err := ledger.Asset(account.Asset)
		if err != nil {
			return nil, nil, err
		}
		return single(events.TokenSupply{Token: asset.Symbol, Total: asset.Supply, Delta: p.Amount, Reason: events.SupplyReasonMint}), nil, nil
	}

	op, err := swapOperation(tx, from)
	if err != nil {
		return nil, nil, err
	}
	res, err := n.engine.Apply(ctx, st, op)
	if err != nil {
		return nil, nil, err
	}
	return res.Events, res, nil
}

func swapOperation(tx *types.Transaction, from crypto.Address) (fairswap.Operation, error) {
	switch tx.Type {
	case types.TxTypeCreateOffer:
		var p types.CreateOfferPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, err
		}
		return fairswap.CreateOfferParams{
			Seller:            from,
			OfferID:           p.OfferID,
			SellerAccount:     p.SellerAccount,
			AssetAAmount:      p.AssetAAmount,
			AssetBKind:        p.AssetBKind,
			AssetBAmount:      p.AssetBAmount,
			AllowAlternatives: p.AllowAlternatives,
		}, nil
	case types.TxTypeCancelOffer:
		var p types.CancelOfferPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, err
		}
		return fairswap.CancelOfferParams{Seller: from, Offer: p.Offer, SellerAccount: p.SellerAccount}, nil
	case types.TxTypeExecuteSwap:
		var p types.ExecuteSwapPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, err
		}
		return fairswap.ExecuteSwapParams{
			Buyer:         from,
			Offer:         p.Offer,
			BuyerPayment:  p.BuyerPayment,
			SellerReceive: p.SellerReceive,
			BuyerReceive:  p.BuyerReceive,
		}, nil
	case types.TxTypeSubmitProposal:
		var p types.SubmitProposalPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, err
		}
		return fairswap.SubmitProposalParams{
			Buyer:          from,
			Offer:          p.Offer,
			ProposalID:     p.ProposalID,
			BuyerAccount:   p.BuyerAccount,
			ProposedAmount: p.ProposedAmount,
		}, nil
	case types.TxTypeAcceptProposal:
		var p types.AcceptProposalPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, err
		}
		return fairswap.AcceptProposalParams{
			Seller:        from,
			Offer:         p.Offer,
			Proposal:      p.Proposal,
			SellerReceive: p.SellerReceive,
			BuyerReceive:  p.BuyerReceive,
		}, nil
	case types.TxTypeWithdrawProposal:
		var p types.WithdrawProposalPayload
		if err := tx.DecodePayload(&p); err != nil {
			return nil, err
		}
		return fairswap.WithdrawProposalParams{Buyer: from, Proposal: p.Proposal, BuyerAccount: p.BuyerAccount}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTxType, tx.Type)
	}
}

func single(evt events.Event) []*types.Event {
	return []*types.Event{evt.Event()}
}
