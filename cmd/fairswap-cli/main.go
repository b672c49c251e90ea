package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "account":
		return runQuery("fs_getAccount", args[1:], stdout, stderr)
	case "token-account":
		return runQuery("fs_getTokenAccount", args[1:], stdout, stderr)
	case "asset":
		return runQuery("fs_getAsset", args[1:], stdout, stderr)
	case "height":
		return runHeight(stdout, stderr)
	case "derive":
		return runDerive(args[1:], stdout, stderr)
	case "transfer":
		return runTransfer(args[1:], stdout, stderr)
	case "open-account":
		return runOpenAccount(args[1:], stdout, stderr)
	case "token-transfer":
		return runTokenTransfer(args[1:], stdout, stderr)
	case "register-asset":
		return runRegisterAsset(args[1:], stdout, stderr)
	case "mint":
		return runMint(args[1:], stdout, stderr)
	case "offer":
		return runOfferCommand(args[1:], stdout, stderr)
	case "proposal":
		return runProposalCommand(args[1:], stdout, stderr)
	case "pause":
		return runPause(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: fairswap-cli [--rpc URL] [--chain-id N] [--token JWT] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signing commands read a keystore given by --key; the passphrase comes from")
	fmt.Fprintln(w, walletPassEnv+" or an interactive prompt.")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  keygen [--out file]              - Create a new wallet keystore")
	fmt.Fprintln(w, "  address --key <file>             - Print the wallet identity")
	fmt.Fprintln(w, "  account <address>                - Native balance and nonce")
	fmt.Fprintln(w, "  token-account <address>          - Token account owner, asset and balance")
	fmt.Fprintln(w, "  asset <symbol>                   - Registered asset details")
	fmt.Fprintln(w, "  height                           - Current ledger height")
	fmt.Fprintln(w, "  derive [flags]                   - Derive offer, proposal, vault and token account addresses")
	fmt.Fprintln(w, "  transfer --key --to --amount     - Send native units")
	fmt.Fprintln(w, "  open-account --key --asset       - Open your token account for an asset")
	fmt.Fprintln(w, "  token-transfer --key --from --to --amount")
	fmt.Fprintln(w, "  register-asset --key --symbol --name --decimals --authority (admin)")
	fmt.Fprintln(w, "  mint --key --asset --to --amount (asset authority)")
	fmt.Fprintln(w, "  offer                            - Offer subcommands")
	fmt.Fprintln(w, "  proposal                         - Proposal subcommands")
	fmt.Fprintln(w, "  pause list|set                   - Admin module pauses (requires --token)")
}
