package fairswap_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"fairswap/core/state"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/native/fairswap"
)

func TestCreateOfferEscrowsAssetA(t *testing.T) {
	f := newFixture(t)
	nativeBefore := f.native(f.seller)

	offer := f.createOffer(1, 100, 50, true)

	vault, err := fairswap.VaultAddress(offer)
	require.NoError(t, err)
	require.Equal(t, uint64(100), f.tokenBalance(vault))
	require.Equal(t, uint64(900), f.balance(f.seller, "GOLD"))
	schedule := f.engine.Schedule()
	deposits := schedule.DepositFor(fairswap.OfferSize) + schedule.DepositFor(bank.TokenAccountSize)
	require.Equal(t, nativeBefore-deposits, f.native(f.seller))
	require.False(t, crypto.IsOnCurve(offer))

	stored, err := f.engine.Offer(f.ctx, offer)
	require.NoError(t, err)
	require.Equal(t, f.seller, stored.Seller)
	require.Equal(t, "GOLD", stored.AssetAKind)
	require.Equal(t, "SILVER", stored.AssetBKind)
	require.Equal(t, uint64(50), stored.AssetBAmount)
	require.True(t, stored.AllowAlternatives)

	expected, bump, err := fairswap.OfferAddress(f.seller, 1)
	require.NoError(t, err)
	require.Equal(t, expected, offer)
	require.Equal(t, bump, stored.Bump)
	require.Equal(t, []string{fairswap.EventTypeOfferCreated}, f.recorder.Types())

	open, err := f.engine.OpenOffers(f.ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), open)
}

func TestCreateOfferRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.createOffer(1, 100, 50, true)
	before := f.snapshot()

	_, err := f.engine.CreateOffer(f.ctx, fairswap.CreateOfferParams{
		Seller:        f.seller,
		OfferID:       1,
		SellerAccount: f.account(f.seller, "GOLD"),
		AssetAAmount:  10,
		AssetBKind:    "SILVER",
		AssetBAmount:  5,
	})
	require.ErrorIs(t, err, fairswap.ErrDuplicateRecord)
	require.Equal(t, before, f.snapshot())
}

func TestCreateOfferValidation(t *testing.T) {
	f := newFixture(t)
	before := f.snapshot()
	base := fairswap.CreateOfferParams{
		Seller:        f.seller,
		OfferID:       7,
		SellerAccount: f.account(f.seller, "GOLD"),
		AssetAAmount:  100,
		AssetBKind:    "SILVER",
		AssetBAmount:  50,
	}

	p := base
	p.AssetAAmount = 1001
	_, err := f.engine.CreateOffer(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrInsufficientBalance)

	p = base
	p.AssetBKind = "PLATINUM"
	_, err = f.engine.CreateOffer(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.ErrorIs(t, err, fairswap.ErrInvalidAssetKind)

	p = base
	p.AssetBAmount = 0
	_, err = f.engine.CreateOffer(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrInvalidAmount)

	p = base
	p.SellerAccount = f.account(f.buyer, "GOLD")
	_, err = f.engine.CreateOffer(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrUnauthorized)

	p = base
	p.SellerAccount = crypto.Address{0xfe}
	_, err = f.engine.CreateOffer(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.ErrorIs(t, err, fairswap.ErrAccountNotFound)

	require.Equal(t, before, f.snapshot())
	require.Empty(t, f.recorder.Events)
}

func TestAcceptProposalScenario(t *testing.T) {
	f := newFixture(t)
	sellerNative := f.native(f.seller)
	buyerNative := f.native(f.buyer)

	offer := f.createOffer(1, 100, 50, true)
	proposal := f.submitProposal(f.buyer, offer, 1, 40)
	require.Equal(t, uint64(960), f.balance(f.buyer, "COPPER"))

	offerVault, err := fairswap.VaultAddress(offer)
	require.NoError(t, err)
	proposalVault, err := fairswap.VaultAddress(proposal)
	require.NoError(t, err)
	require.Equal(t, uint64(40), f.tokenBalance(proposalVault))

	require.NoError(t, f.engine.AcceptProposal(f.ctx, f.acceptParams(offer, proposal, f.buyer)))

	require.Equal(t, uint64(1040), f.balance(f.seller, "COPPER"))
	require.Equal(t, uint64(1100), f.balance(f.buyer, "GOLD"))
	require.Equal(t, uint64(900), f.balance(f.seller, "GOLD"))
	require.Equal(t, uint64(960), f.balance(f.buyer, "COPPER"))
	require.False(t, f.tokenAccountExists(offerVault))
	require.False(t, f.tokenAccountExists(proposalVault))
	require.Equal(t, sellerNative, f.native(f.seller))
	require.Equal(t, buyerNative, f.native(f.buyer))

	_, err = f.engine.Offer(f.ctx, offer)
	require.ErrorIs(t, err, fairswap.ErrOfferNotFound)
	_, err = f.engine.Proposal(f.ctx, proposal)
	require.ErrorIs(t, err, fairswap.ErrProposalNotFound)
	f.checkSupply()

	before := f.snapshot()
	err = f.engine.ExecuteSwap(f.ctx, f.executeParams(f.buyer2, offer))
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.ErrorIs(t, err, fairswap.ErrOfferNotFound)
	require.Equal(t, before, f.snapshot())

	require.Equal(t, []string{
		fairswap.EventTypeOfferCreated,
		fairswap.EventTypeProposalSubmitted,
		fairswap.EventTypeProposalAccepted,
	}, f.recorder.Types())
	accepted := f.recorder.Events[2].Event()
	require.Equal(t, "100", accepted.Attributes[fairswap.AttrAmountA])
	require.Equal(t, "COPPER", accepted.Attributes[fairswap.AttrAssetB])
	require.Equal(t, "40", accepted.Attributes[fairswap.AttrAmountB])
}

func TestSubmitProposalRequiresAlternatives(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(2, 100, 50, false)
	before := f.snapshot()

	_, err := f.engine.SubmitProposal(f.ctx, fairswap.SubmitProposalParams{
		Buyer:          f.buyer,
		Offer:          offer,
		ProposalID:     1,
		BuyerAccount:   f.account(f.buyer, "COPPER"),
		ProposedAmount: 40,
	})
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.ErrorIs(t, err, fairswap.ErrAlternativesNotAllowed)
	require.Equal(t, before, f.snapshot())
	require.Equal(t, uint64(1000), f.balance(f.buyer, "COPPER"))
}

func TestSubmitProposalRejectsDuplicateAndMissingOffer(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, true)
	f.submitProposal(f.buyer, offer, 1, 40)

	_, err := f.engine.SubmitProposal(f.ctx, fairswap.SubmitProposalParams{
		Buyer: f.buyer, Offer: offer, ProposalID: 1,
		BuyerAccount: f.account(f.buyer, "COPPER"), ProposedAmount: 10,
	})
	require.ErrorIs(t, err, fairswap.ErrDuplicateRecord)

	// the same id is free for another buyer
	f.submitProposal(f.buyer2, offer, 1, 10)

	_, err = f.engine.SubmitProposal(f.ctx, fairswap.SubmitProposalParams{
		Buyer: f.buyer, Offer: crypto.Address{0x42}, ProposalID: 2,
		BuyerAccount: f.account(f.buyer, "COPPER"), ProposedAmount: 10,
	})
	require.ErrorIs(t, err, fairswap.ErrOfferNotFound)

	_, err = f.engine.SubmitProposal(f.ctx, fairswap.SubmitProposalParams{
		Buyer: f.buyer, Offer: offer, ProposalID: 3,
		BuyerAccount: f.account(f.buyer, "COPPER"), ProposedAmount: 5000,
	})
	require.ErrorIs(t, err, fairswap.ErrInsufficientBalance)

	entries, err := f.engine.ProposalsForOffer(f.ctx, offer)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestExecuteSwap(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, false)
	sellerNative := f.native(f.seller)
	vault, err := fairswap.VaultAddress(offer)
	require.NoError(t, err)

	require.NoError(t, f.engine.ExecuteSwap(f.ctx, f.executeParams(f.buyer, offer)))

	require.Equal(t, uint64(1050), f.balance(f.seller, "SILVER"))
	require.Equal(t, uint64(950), f.balance(f.buyer, "SILVER"))
	require.Equal(t, uint64(1100), f.balance(f.buyer, "GOLD"))
	require.False(t, f.tokenAccountExists(vault))
	schedule := f.engine.Schedule()
	refund := schedule.DepositFor(fairswap.OfferSize) + schedule.DepositFor(bank.TokenAccountSize)
	require.Equal(t, sellerNative+refund, f.native(f.seller))
	f.checkSupply()

	open, err := f.engine.OpenOffers(f.ctx)
	require.NoError(t, err)
	require.Zero(t, open)
}

func TestExecuteSwapRejectsWrongPaymentAsset(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, false)
	before := f.snapshot()

	p := f.executeParams(f.buyer, offer)
	p.BuyerPayment = f.account(f.buyer, "COPPER")
	err := f.engine.ExecuteSwap(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.ErrorIs(t, err, fairswap.ErrInvalidAssetKind)
	require.Equal(t, before, f.snapshot())
}

func TestExecuteSwapRejectsForeignAccounts(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, false)
	before := f.snapshot()

	p := f.executeParams(f.buyer, offer)
	p.BuyerPayment = f.account(f.buyer2, "SILVER")
	require.ErrorIs(t, f.engine.ExecuteSwap(f.ctx, p), fairswap.ErrUnauthorized)

	p = f.executeParams(f.buyer, offer)
	p.SellerReceive = f.account(f.buyer, "SILVER")
	require.ErrorIs(t, f.engine.ExecuteSwap(f.ctx, p), fairswap.ErrAddressMismatch)

	p = f.executeParams(f.buyer, offer)
	p.BuyerReceive = f.account(f.buyer, "COPPER")
	require.ErrorIs(t, f.engine.ExecuteSwap(f.ctx, p), fairswap.ErrInvalidAssetKind)

	require.Equal(t, before, f.snapshot())
}

func TestCancelOfferRefundsSeller(t *testing.T) {
	f := newFixture(t)
	sellerNative := f.native(f.seller)
	offer := f.createOffer(1, 100, 50, true)

	err := f.engine.CancelOffer(f.ctx, fairswap.CancelOfferParams{Seller: f.seller, Offer: offer, SellerAccount: f.account(f.seller, "GOLD")})
	require.NoError(t, err)
	require.Equal(t, uint64(1000), f.balance(f.seller, "GOLD"))
	require.Equal(t, sellerNative, f.native(f.seller))
	_, err = f.engine.Offer(f.ctx, offer)
	require.ErrorIs(t, err, fairswap.ErrOfferNotFound)

	_, err = f.engine.CreateOffer(f.ctx, fairswap.CreateOfferParams{
		Seller:        f.seller,
		OfferID:       1,
		SellerAccount: f.account(f.seller, "GOLD"),
		AssetAAmount:  10,
		AssetBKind:    "SILVER",
		AssetBAmount:  5,
	})
	require.ErrorIs(t, err, fairswap.ErrDuplicateRecord)
}

func TestSecondSettlementFails(t *testing.T) {
	cancel := func(f *fixture, offer, _ crypto.Address) error {
		return f.engine.CancelOffer(f.ctx, fairswap.CancelOfferParams{Seller: f.seller, Offer: offer, SellerAccount: f.account(f.seller, "GOLD")})
	}
	execute := func(f *fixture, offer, _ crypto.Address) error {
		return f.engine.ExecuteSwap(f.ctx, f.executeParams(f.buyer, offer))
	}
	accept := func(f *fixture, offer, proposal crypto.Address) error {
		return f.engine.AcceptProposal(f.ctx, f.acceptParams(offer, proposal, f.buyer))
	}
	cases := map[string]func(*fixture, crypto.Address, crypto.Address) error{
		"cancel":  cancel,
		"execute": execute,
		"accept":  accept,
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			offer := f.createOffer(1, 100, 50, true)
			proposal := f.submitProposal(f.buyer, offer, 1, 40)
			require.NoError(t, op(f, offer, proposal))
			before := f.snapshot()
			err := op(f, offer, proposal)
			require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
			require.ErrorIs(t, err, fairswap.ErrOfferNotFound)
			require.Equal(t, before, f.snapshot())
		})
	}
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, true)
	proposal := f.submitProposal(f.buyer, offer, 1, 40)
	before := f.snapshot()

	err := f.engine.CancelOffer(f.ctx, fairswap.CancelOfferParams{Seller: f.buyer, Offer: offer, SellerAccount: f.account(f.buyer, "GOLD")})
	require.ErrorIs(t, err, fairswap.ErrUnauthorized)

	p := f.acceptParams(offer, proposal, f.buyer)
	p.Seller = f.buyer2
	require.ErrorIs(t, f.engine.AcceptProposal(f.ctx, p), fairswap.ErrUnauthorized)

	err = f.engine.WithdrawProposal(f.ctx, fairswap.WithdrawProposalParams{Buyer: f.buyer2, Proposal: proposal, BuyerAccount: f.account(f.buyer2, "COPPER")})
	require.ErrorIs(t, err, fairswap.ErrUnauthorized)

	require.Equal(t, before, f.snapshot())
}

func TestWithdrawOrphanedProposal(t *testing.T) {
	f := newFixture(t)
	buyerNative := f.native(f.buyer)
	offer := f.createOffer(1, 100, 50, true)
	proposal := f.submitProposal(f.buyer, offer, 1, 40)

	require.NoError(t, f.engine.CancelOffer(f.ctx, fairswap.CancelOfferParams{Seller: f.seller, Offer: offer, SellerAccount: f.account(f.seller, "GOLD")}))

	err := f.engine.AcceptProposal(f.ctx, f.acceptParams(offer, proposal, f.buyer))
	require.ErrorIs(t, err, fairswap.ErrOfferNotFound)

	entries, err := f.engine.ProposalsForOffer(f.ctx, offer)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, proposal, entries[0].Address)

	require.NoError(t, f.engine.WithdrawProposal(f.ctx, fairswap.WithdrawProposalParams{Buyer: f.buyer, Proposal: proposal, BuyerAccount: f.account(f.buyer, "COPPER")}))
	require.Equal(t, uint64(1000), f.balance(f.buyer, "COPPER"))
	require.Equal(t, buyerNative, f.native(f.buyer))

	entries, err = f.engine.ProposalsForOffer(f.ctx, offer)
	require.NoError(t, err)
	require.Empty(t, entries)

	err = f.engine.WithdrawProposal(f.ctx, fairswap.WithdrawProposalParams{Buyer: f.buyer, Proposal: proposal, BuyerAccount: f.account(f.buyer, "COPPER")})
	require.ErrorIs(t, err, fairswap.ErrProposalNotFound)
	f.checkSupply()
}

func TestClosedOfferIDCannotBeReused(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, true)
	proposal := f.submitProposal(f.buyer, offer, 1, 40)
	require.NoError(t, f.engine.CancelOffer(f.ctx, fairswap.CancelOfferParams{Seller: f.seller, Offer: offer, SellerAccount: f.account(f.seller, "GOLD")}))
	before := f.snapshot()

	_, err := f.engine.CreateOffer(f.ctx, fairswap.CreateOfferParams{
		Seller:            f.seller,
		OfferID:           1,
		SellerAccount:     f.account(f.seller, "GOLD"),
		AssetAAmount:      1,
		AssetBKind:        "SILVER",
		AssetBAmount:      1,
		AllowAlternatives: true,
	})
	require.ErrorIs(t, err, fairswap.ErrDuplicateRecord)
	require.Equal(t, before, f.snapshot())

	err = f.engine.AcceptProposal(f.ctx, f.acceptParams(offer, proposal, f.buyer))
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.Equal(t, before, f.snapshot())
	require.Equal(t, uint64(960), f.balance(f.buyer, "COPPER"))
	require.Equal(t, uint64(1000), f.balance(f.buyer, "GOLD"))

	// A fresh id still works and the orphaned bid stays withdrawable.
	f.createOffer(2, 1, 1, true)
	require.NoError(t, f.engine.WithdrawProposal(f.ctx, fairswap.WithdrawProposalParams{Buyer: f.buyer, Proposal: proposal, BuyerAccount: f.account(f.buyer, "COPPER")}))
	require.Equal(t, uint64(1000), f.balance(f.buyer, "COPPER"))
	f.checkSupply()
}

func TestAcceptRejectsProposalForOtherOffer(t *testing.T) {
	f := newFixture(t)
	offer1 := f.createOffer(1, 100, 50, true)
	offer2 := f.createOffer(2, 100, 50, true)
	proposal := f.submitProposal(f.buyer, offer1, 1, 40)
	before := f.snapshot()

	err := f.engine.AcceptProposal(f.ctx, f.acceptParams(offer2, proposal, f.buyer))
	require.ErrorIs(t, err, fairswap.ErrPreconditionFailed)
	require.ErrorIs(t, err, fairswap.ErrProposalOfferMismatch)
	require.Equal(t, before, f.snapshot())
}

func TestAcceptRevertsOnIncompatibleReceiver(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, true)
	proposal := f.submitProposal(f.buyer, offer, 1, 40)
	before := f.snapshot()

	p := f.acceptParams(offer, proposal, f.buyer)
	p.SellerReceive = f.account(f.seller, "SILVER")
	err := f.engine.AcceptProposal(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrInvalidAssetKind)

	p = f.acceptParams(offer, proposal, f.buyer)
	p.BuyerReceive = f.account(f.buyer2, "GOLD")
	err = f.engine.AcceptProposal(f.ctx, p)
	require.ErrorIs(t, err, fairswap.ErrAddressMismatch)

	require.Equal(t, before, f.snapshot())
	_, err = f.engine.Proposal(f.ctx, proposal)
	require.NoError(t, err)
}

func TestPausedModuleRejectsOperations(t *testing.T) {
	f := newFixture(t)
	pauses := common.NewPauses(fairswap.ModuleName)
	f.engine.SetPauses(pauses)

	_, err := f.engine.CreateOffer(f.ctx, fairswap.CreateOfferParams{
		Seller: f.seller, OfferID: 1, SellerAccount: f.account(f.seller, "GOLD"),
		AssetAAmount: 1, AssetBKind: "SILVER", AssetBAmount: 1,
	})
	require.ErrorIs(t, err, common.ErrModulePaused)
	require.Equal(t, "paused", fairswap.Reason(err))

	pauses.Set(fairswap.ModuleName, false)
	f.createOffer(1, 1, 1, false)
}

func TestConcurrentSettlementHasOneWinner(t *testing.T) {
	f := newFixture(t)
	offer := f.createOffer(1, 100, 50, true)
	proposal := f.submitProposal(f.buyer2, offer, 1, 40)

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				errs[i] = f.engine.ExecuteSwap(f.ctx, f.executeParams(f.buyer, offer))
			case 1:
				errs[i] = f.engine.AcceptProposal(f.ctx, f.acceptParams(offer, proposal, f.buyer2))
			default:
				errs[i] = f.engine.CancelOffer(f.ctx, fairswap.CancelOfferParams{Seller: f.seller, Offer: offer, SellerAccount: f.account(f.seller, "GOLD")})
			}
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, fairswap.ErrOfferNotFound)
	}
	require.Equal(t, 1, wins)
	f.checkSupply()
}

func TestReasonClassification(t *testing.T) {
	require.Equal(t, "", fairswap.Reason(nil))
	require.Equal(t, "unauthorized", fairswap.Reason(fairswap.ErrUnauthorized))
	require.Equal(t, "duplicate_record", fairswap.Reason(fairswap.ErrDuplicateRecord))
	require.Equal(t, "insufficient_balance", fairswap.Reason(fairswap.ErrInsufficientBalance))
	require.Equal(t, "precondition_failed", fairswap.Reason(fairswap.ErrPreconditionFailed))
	require.Equal(t, "internal", fairswap.Reason(bank.ErrNilState))
}

func operationCount(t *testing.T, operation, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "fairswap_operations_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["operation"] == operation && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestSuccessCountedOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	before := operationCount(t, "create_offer", "success")
	params := fairswap.CreateOfferParams{
		Seller:        f.seller,
		OfferID:       9,
		SellerAccount: f.account(f.seller, "GOLD"),
		AssetAAmount:  10,
		AssetBKind:    "SILVER",
		AssetBAmount:  5,
	}

	rollback := errors.New("rollback")
	err := f.store.Update(f.ctx, func(st *state.StateDB) error {
		_, err := f.engine.Apply(f.ctx, st, params)
		require.NoError(t, err)
		return rollback
	})
	require.ErrorIs(t, err, rollback)
	require.Equal(t, before, operationCount(t, "create_offer", "success"))

	_, err = f.engine.CreateOffer(f.ctx, params)
	require.NoError(t, err)
	require.Equal(t, before+1, operationCount(t, "create_offer", "success"))
}
