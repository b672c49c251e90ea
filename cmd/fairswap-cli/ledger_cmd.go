package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"fairswap/core/types"
	"fairswap/crypto"
)

// runQuery forwards a single positional argument to a read-only method.
func runQuery(method string, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return printError(stderr, fmt.Sprintf("%s expects exactly one argument", method))
	}
	result, err := rpcCall(method, strings.TrimSpace(args[0]))
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runHeight(stdout, stderr io.Writer) int {
	result, err := rpcCall("fs_height")
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runDerive(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("derive", stderr)
	seller := fs.String("seller", "", "seller identity")
	offerID := fs.Int64("offer-id", -1, "offer id (with --seller)")
	offer := fs.String("offer", "", "offer address")
	buyer := fs.String("buyer", "", "buyer identity")
	proposalID := fs.Int64("proposal-id", -1, "proposal id (with --buyer)")
	owner := fs.String("owner", "", "token account owner")
	asset := fs.String("asset", "", "token account asset (with --owner)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	params := map[string]interface{}{}
	for name, value := range map[string]string{"seller": *seller, "offer": *offer, "buyer": *buyer, "owner": *owner, "asset": *asset} {
		if v := strings.TrimSpace(value); v != "" {
			params[name] = v
		}
	}
	if *offerID >= 0 {
		params["offerId"] = *offerID
	}
	if *proposalID >= 0 {
		params["proposalId"] = *proposalID
	}
	result, err := rpcCall("fs_deriveAddresses", params)
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runTransfer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("transfer", stderr)
	keyPath := fs.String("key", "", "sender keystore file")
	to := fs.String("to", "", "recipient identity")
	amount := fs.Uint64("amount", 0, "native units to send")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *amount == 0 {
		return printError(stderr, "--amount must be positive")
	}
	recipient, err := crypto.ParseAddress(strings.TrimSpace(*to))
	if err != nil {
		return printError(stderr, fmt.Sprintf("invalid --to: %v", err))
	}
	return signAndSend(*keyPath, types.TxTypeTransfer, &types.TransferPayload{To: recipient, Amount: *amount}, stdout, stderr)
}

func runOpenAccount(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("open-account", stderr)
	keyPath := fs.String("key", "", "owner keystore file")
	asset := fs.String("asset", "", "asset symbol")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	symbol := strings.ToUpper(strings.TrimSpace(*asset))
	if symbol == "" {
		return printError(stderr, "--asset is required")
	}
	return signAndSend(*keyPath, types.TxTypeOpenAccount, &types.OpenAccountPayload{Asset: symbol}, stdout, stderr)
}

func runTokenTransfer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("token-transfer", stderr)
	keyPath := fs.String("key", "", "owner keystore file")
	from := fs.String("from", "", "source token account")
	to := fs.String("to", "", "destination token account")
	amount := fs.Uint64("amount", 0, "amount to move")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *amount == 0 {
		return printError(stderr, "--amount must be positive")
	}
	src, err := crypto.ParseAddress(strings.TrimSpace(*from))
	if err != nil {
		return printError(stderr, fmt.Sprintf("invalid --from: %v", err))
	}
	dst, err := crypto.ParseAddress(strings.TrimSpace(*to))
	if err != nil {
		return printError(stderr, fmt.Sprintf("invalid --to: %v", err))
	}
	return signAndSend(*keyPath, types.TxTypeTokenTransfer, &types.TokenTransferPayload{From: src, To: dst, Amount: *amount}, stdout, stderr)
}

func runRegisterAsset(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("register-asset", stderr)
	keyPath := fs.String("key", "", "ledger admin keystore file")
	symbol := fs.String("symbol", "", "asset symbol")
	name := fs.String("name", "", "display name")
	decimals := fs.Uint("decimals", 0, "display decimals")
	authority := fs.String("authority", "", "mint authority identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *decimals > 255 {
		return printError(stderr, "--decimals must be <= 255")
	}
	auth, err := crypto.ParseAddress(strings.TrimSpace(*authority))
	if err != nil {
		return printError(stderr, fmt.Sprintf("invalid --authority: %v", err))
	}
	return signAndSend(*keyPath, types.TxTypeRegisterAsset, &types.RegisterAssetPayload{
		Symbol:    strings.ToUpper(strings.TrimSpace(*symbol)),
		Name:      strings.TrimSpace(*name),
		Decimals:  uint8(*decimals),
		Authority: auth,
	}, stdout, stderr)
}

func runMint(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("mint", stderr)
	keyPath := fs.String("key", "", "asset authority keystore file")
	asset := fs.String("asset", "", "asset symbol")
	to := fs.String("to", "", "destination token account")
	amount := fs.Uint64("amount", 0, "amount to mint")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *amount == 0 {
		return printError(stderr, "--amount must be positive")
	}
	dst, err := crypto.ParseAddress(strings.TrimSpace(*to))
	if err != nil {
		return printError(stderr, fmt.Sprintf("invalid --to: %v", err))
	}
	return signAndSend(*keyPath, types.TxTypeMint, &types.MintPayload{
		Asset:  strings.ToUpper(strings.TrimSpace(*asset)),
		To:     dst,
		Amount: *amount,
	}, stdout, stderr)
}

func signAndSend(keyPath string, txType types.TxType, payload interface{}, stdout, stderr io.Writer) int {
	key, err := loadKey(keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	result, err := submit(key, txType, payload)
	if err != nil {
		return printCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func runPause(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return printError(stderr, "usage: pause list | pause set --module <name> --paused=<bool>")
	}
	switch args[0] {
	case "list":
		raw, err := adminRequest(http.MethodGet, "/admin/pause", nil)
		if err != nil {
			return printCallError(stderr, err)
		}
		writeResult(stdout, raw)
		return 0
	case "set":
		fs := newFlagSet("pause set", stderr)
		module := fs.String("module", "fairswap", "module name")
		paused := fs.Bool("paused", true, "pause (true) or resume (false)")
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		raw, err := adminRequest(http.MethodPost, "/admin/pause", map[string]interface{}{
			"module": strings.TrimSpace(*module),
			"paused": *paused,
		})
		if err != nil {
			return printCallError(stderr, err)
		}
		writeResult(stdout, raw)
		return 0
	default:
		return printError(stderr, fmt.Sprintf("unknown pause subcommand %q", args[0]))
	}
}
