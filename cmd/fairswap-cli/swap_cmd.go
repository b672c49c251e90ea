package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
)

type offerView struct {
	Address    string `json:"address"`
	Seller     string `json:"seller"`
	AssetAKind string `json:"assetAKind"`
	AssetBKind string `json:"assetBKind"`
}

type proposalView struct {
	Address           string `json:"address"`
	Buyer             string `json:"buyer"`
	Offer             string `json:"offer"`
	ProposedAssetKind string `json:"proposedAssetKind"`
}

// tokenAccount returns the explicit account when given, otherwise the
// owner's derived account for asset.
func tokenAccount(explicit string, owner crypto.Address, asset string) (crypto.Address, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return crypto.ParseAddress(explicit)
	}
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		return crypto.Address{}, fmt.Errorf("asset required to derive token account")
	}
	addr, _, err := bank.TokenAccountAddress(owner, asset)
	return addr, err
}

func fetchOffer(addr string) (*offerView, crypto.Address, error) {
	offerAddr, err := crypto.ParseAddress(addr)
	if err != nil {
		return nil, crypto.Address{}, fmt.Errorf("invalid --offer: %w", err)
	}
	raw, err := rpcCall("fs_getOffer", offerAddr.String())
	if err != nil {
		return nil, crypto.Address{}, err
	}
	var view offerView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, crypto.Address{}, fmt.Errorf("failed to decode offer: %w", err)
	}
	return &view, offerAddr, nil
}

func fetchProposal(addr string) (*proposalView, crypto.Address, error) {
	proposalAddr, err := crypto.ParseAddress(addr)
	if err != nil {
		return nil, crypto.Address{}, fmt.Errorf("invalid --proposal: %w", err)
	}
	raw, err := rpcCall("fs_getProposal", proposalAddr.String())
	if err != nil {
		return nil, crypto.Address{}, err
	}
	var view proposalView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, crypto.Address{}, fmt.Errorf("failed to decode proposal: %w", err)
	}
	return &view, proposalAddr, nil
}

func runOfferCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, offerUsage())
		return 1
	}
	switch args[0] {
	case "create":
		return runOfferCreate(args[1:], stdout, stderr)
	case "cancel":
		return runOfferCancel(args[1:], stdout, stderr)
	case "execute":
		return runOfferExecute(args[1:], stdout, stderr)
	case "get":
		return runQuery("fs_getOffer", args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown offer subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, offerUsage())
		return 1
	}
}

func runOfferCreate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("offer create", stderr)
	keyPath := fs.String("key", "", "seller keystore file")
	offerID := fs.Uint64("id", 0, "seller-chosen offer id")
	assetA := fs.String("asset-a", "", "asset offered; selects the seller's derived token account")
	account := fs.String("account", "", "explicit seller token account (overrides --asset-a)")
	amountA := fs.Uint64("amount-a", 0, "amount of asset A placed in escrow")
	assetB := fs.String("asset-b", "", "asset requested")
	amountB := fs.Uint64("amount-b", 0, "amount of asset B requested")
	allowAlt := fs.Bool("allow-alternatives", false, "accept proposals in other assets")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *amountA == 0 || *amountB == 0 {
		return printError(stderr, "--amount-a and --amount-b must be positive")
	}
	if strings.TrimSpace(*assetB) == "" {
		return printError(stderr, "--asset-b is required")
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	sellerAccount, err := tokenAccount(*account, key.Address(), *assetA)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, types.TxTypeCreateOffer, &types.CreateOfferPayload{
		OfferID:           *offerID,
		SellerAccount:     sellerAccount,
		AssetAAmount:      *amountA,
		AssetBKind:        strings.ToUpper(strings.TrimSpace(*assetB)),
		AssetBAmount:      *amountB,
		AllowAlternatives: *allowAlt,
	})
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runOfferCancel(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("offer cancel", stderr)
	keyPath := fs.String("key", "", "seller keystore file")
	offer := fs.String("offer", "", "offer address")
	refund := fs.String("refund", "", "token account receiving the escrowed asset (default: seller's derived account)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	view, offerAddr, err := fetchOffer(*offer)
	if err != nil {
		return printCallError(stderr, err)
	}
	refundAccount, err := tokenAccount(*refund, key.Address(), view.AssetAKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, types.TxTypeCancelOffer, &types.CancelOfferPayload{
		Offer:         offerAddr,
		SellerAccount: refundAccount,
	})
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runOfferExecute(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("offer execute", stderr)
	keyPath := fs.String("key", "", "buyer keystore file")
	offer := fs.String("offer", "", "offer address")
	pay := fs.String("pay", "", "buyer account paying asset B")
	sellerReceive := fs.String("seller-receive", "", "seller account receiving asset B")
	receive := fs.String("receive", "", "buyer account receiving asset A")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	view, offerAddr, err := fetchOffer(*offer)
	if err != nil {
		return printCallError(stderr, err)
	}
	seller, err := crypto.ParseAddress(view.Seller)
	if err != nil {
		return printError(stderr, err.Error())
	}
	payment, err := tokenAccount(*pay, key.Address(), view.AssetBKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	sellerAccount, err := tokenAccount(*sellerReceive, seller, view.AssetBKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	buyerAccount, err := tokenAccount(*receive, key.Address(), view.AssetAKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, types.TxTypeExecuteSwap, &types.ExecuteSwapPayload{
		Offer:         offerAddr,
		BuyerPayment:  payment,
		SellerReceive: sellerAccount,
		BuyerReceive:  buyerAccount,
	})
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runProposalCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, proposalUsage())
		return 1
	}
	switch args[0] {
	case "submit":
		return runProposalSubmit(args[1:], stdout, stderr)
	case "accept":
		return runProposalAccept(args[1:], stdout, stderr)
	case "withdraw":
		return runProposalWithdraw(args[1:], stdout, stderr)
	case "get":
		return runQuery("fs_getProposal", args[1:], stdout, stderr)
	case "list":
		return runQuery("fs_listProposals", args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown proposal subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, proposalUsage())
		return 1
	}
}

func runProposalSubmit(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("proposal submit", stderr)
	keyPath := fs.String("key", "", "buyer keystore file")
	offer := fs.String("offer", "", "offer address")
	proposalID := fs.Uint64("id", 0, "buyer-chosen proposal id")
	asset := fs.String("asset", "", "asset proposed; selects the buyer's derived token account")
	account := fs.String("account", "", "explicit buyer token account (overrides --asset)")
	amount := fs.Uint64("amount", 0, "amount proposed")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *amount == 0 {
		return printError(stderr, "--amount must be positive")
	}
	offerAddr, err := crypto.ParseAddress(strings.TrimSpace(*offer))
	if err != nil {
		return printError(stderr, fmt.Sprintf("invalid --offer: %v", err))
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	buyerAccount, err := tokenAccount(*account, key.Address(), *asset)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, types.TxTypeSubmitProposal, &types.SubmitProposalPayload{
		Offer:          offerAddr,
		ProposalID:     *proposalID,
		BuyerAccount:   buyerAccount,
		ProposedAmount: *amount,
	})
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runProposalAccept(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("proposal accept", stderr)
	keyPath := fs.String("key", "", "seller keystore file")
	proposal := fs.String("proposal", "", "proposal address")
	sellerReceive := fs.String("seller-receive", "", "seller account receiving the proposed asset")
	buyerReceive := fs.String("buyer-receive", "", "buyer account receiving asset A")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	pview, proposalAddr, err := fetchProposal(*proposal)
	if err != nil {
		return printCallError(stderr, err)
	}
	oview, offerAddr, err := fetchOffer(pview.Offer)
	if err != nil {
		return printCallError(stderr, err)
	}
	buyer, err := crypto.ParseAddress(pview.Buyer)
	if err != nil {
		return printError(stderr, err.Error())
	}
	sellerAccount, err := tokenAccount(*sellerReceive, key.Address(), pview.ProposedAssetKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	buyerAccount, err := tokenAccount(*buyerReceive, buyer, oview.AssetAKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, types.TxTypeAcceptProposal, &types.AcceptProposalPayload{
		Offer:         offerAddr,
		Proposal:      proposalAddr,
		SellerReceive: sellerAccount,
		BuyerReceive:  buyerAccount,
	})
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runProposalWithdraw(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("proposal withdraw", stderr)
	keyPath := fs.String("key", "", "buyer keystore file")
	proposal := fs.String("proposal", "", "proposal address")
	refund := fs.String("refund", "", "token account receiving the escrowed asset (default: buyer's derived account)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	view, proposalAddr, err := fetchProposal(*proposal)
	if err != nil {
		return printCallError(stderr, err)
	}
	refundAccount, err := tokenAccount(*refund, key.Address(), view.ProposedAssetKind)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, types.TxTypeWithdrawProposal, &types.WithdrawProposalPayload{
		Proposal:     proposalAddr,
		BuyerAccount: refundAccount,
	})
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func offerUsage() string {
	return strings.TrimSpace(`Usage:
  fairswap-cli offer <command> [flags]

Commands:
  create   --key <file> --id <n> --asset-a <SYM> --amount-a <n> --asset-b <SYM> --amount-b <n> [--allow-alternatives]
  cancel   --key <file> --offer <addr> [--refund <account>]
  execute  --key <file> --offer <addr> [--pay <account>] [--seller-receive <account>] [--receive <account>]
  get      <offer-address>`)
}

func proposalUsage() string {
	return strings.TrimSpace(`Usage:
  fairswap-cli proposal <command> [flags]

Commands:
  submit    --key <file> --offer <addr> --id <n> --asset <SYM> --amount <n>
  accept    --key <file> --proposal <addr> [--seller-receive <account>] [--buyer-receive <account>]
  withdraw  --key <file> --proposal <addr> [--refund <account>]
  get       <proposal-address>
  list      <offer-address>`)
}
