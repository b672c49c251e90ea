package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"fairswap/cmd/internal/passphrase"
	"fairswap/crypto"
)

const walletPassEnv = "FAIRSWAP_WALLET_PASSPHRASE"

var walletPassphrase = passphrase.NewSource(walletPassEnv, "wallet").Get

func loadKey(path string) (*crypto.PrivateKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--key is required")
	}
	pass, err := walletPassphrase()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock %s: %w", path, err)
	}
	return key, nil
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	out := fs.String("out", "wallet.keystore", "keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		return printError(stderr, fmt.Sprintf("%s already exists; refusing to overwrite", *out))
	}
	pass, err := walletPassphrase()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err.Error())
	}
	if err := crypto.SaveToKeystore(*out, key, pass); err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintf(stdout, "Address: %s\nKeystore: %s\n", key.Address().String(), *out)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	keyPath := fs.String("key", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*keyPath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	addr := key.Address()
	fmt.Fprintf(stdout, "%s\n%s\n", addr.String(), addr.Hex())
	return 0
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func printCallError(w io.Writer, err error) int {
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) {
		fmt.Fprintln(w, rpcErr.Error())
		return 1
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
