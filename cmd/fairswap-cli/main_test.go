package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
)

func stubPassphrase(t *testing.T, value string) {
	t.Helper()
	original := walletPassphrase
	walletPassphrase = func() (string, error) { return value, nil }
	t.Cleanup(func() { walletPassphrase = original })
}

func stubRPC(t *testing.T, fn func(method string, params ...interface{}) (json.RawMessage, error)) {
	t.Helper()
	original := rpcCall
	rpcCall = fn
	t.Cleanup(func() { rpcCall = original })
}

func TestApplyGlobalFlags(t *testing.T) {
	origEndpoint, origToken, origChain := rpcEndpoint, rpcAuthToken, chainID
	t.Cleanup(func() { rpcEndpoint, rpcAuthToken, chainID = origEndpoint, origToken, origChain })

	rest, err := applyGlobalFlags([]string{"--rpc", "http://node:1", "height", "--chain-id=9", "--token", "abc"})
	require.NoError(t, err)
	require.Equal(t, []string{"height"}, rest)
	require.Equal(t, "http://node:1", rpcEndpoint)
	require.Equal(t, "abc", rpcAuthToken)
	require.Equal(t, uint64(9), chainID)

	_, err = applyGlobalFlags([]string{"--rpc"})
	require.Error(t, err)
	_, err = applyGlobalFlags([]string{"--chain-id", "zero"})
	require.Error(t, err)
}

func TestRunValidation(t *testing.T) {
	stubRPC(t, func(method string, _ ...interface{}) (json.RawMessage, error) {
		t.Fatalf("unexpected RPC call %s", method)
		return nil, nil
	})
	cases := map[string][]string{
		"no command":        nil,
		"unknown command":   {"bogus"},
		"offer usage":       {"offer"},
		"offer unknown":     {"offer", "steal"},
		"create no amounts": {"offer", "create", "--asset-b", "SILVER"},
		"create no asset b": {"offer", "create", "--amount-a", "1", "--amount-b", "2"},
		"submit bad offer":  {"proposal", "submit", "--offer", "nope", "--amount", "5"},
		"query no arg":      {"account"},
		"transfer no key":   {"transfer", "--to", "fsw1x", "--amount", "1"},
		"pause no token":    {"pause", "list"},
	}
	origToken := rpcAuthToken
	rpcAuthToken = ""
	t.Cleanup(func() { rpcAuthToken = origToken })
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			require.Equal(t, 1, run(args, &stdout, &stderr))
			require.NotEmpty(t, stderr.String())
		})
	}
}

func TestTokenAccountDerivation(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	want, _, err := bank.TokenAccountAddress(key.Address(), "GOLD")
	require.NoError(t, err)

	got, err := tokenAccount("", key.Address(), " gold ")
	require.NoError(t, err)
	require.Equal(t, want, got)

	explicit, err := tokenAccount(key.Address().String(), key.Address(), "")
	require.NoError(t, err)
	require.Equal(t, key.Address(), explicit)

	_, err = tokenAccount("", key.Address(), "")
	require.Error(t, err)
}

func TestOfferCreateSignsWithNextNonce(t *testing.T) {
	stubPassphrase(t, "pw")
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "wallet.keystore")
	require.NoError(t, crypto.SaveToKeystore(keyPath, key, "pw"))

	var sent *types.Transaction
	stubRPC(t, func(method string, params ...interface{}) (json.RawMessage, error) {
		switch method {
		case "fs_getAccount":
			require.Equal(t, key.Address().String(), params[0])
			return json.RawMessage(`{"address":"x","balance":"10","nonce":4}`), nil
		case "fs_sendTransaction":
			raw, err := hexutil.Decode(params[0].(string))
			require.NoError(t, err)
			sent = new(types.Transaction)
			require.NoError(t, sent.UnmarshalBinary(raw))
			return json.RawMessage(`{"txHash":"0x01","height":5,"events":[]}`), nil
		}
		t.Fatalf("unexpected method %s", method)
		return nil, nil
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"--chain-id", "77", "offer", "create", "--key", keyPath, "--id", "3",
		"--asset-a", "GOLD", "--amount-a", "100", "--asset-b", "silver", "--amount-b", "50"}, &stdout, &stderr)
	t.Cleanup(func() { chainID = defaultChainID() })
	require.Equal(t, 0, code, stderr.String())
	require.Contains(t, stdout.String(), `"height": 5`)

	require.NotNil(t, sent)
	require.Equal(t, uint64(77), sent.ChainID)
	require.Equal(t, uint64(4), sent.Nonce)
	require.Equal(t, types.TxTypeCreateOffer, sent.Type)
	from, err := sent.From()
	require.NoError(t, err)
	require.Equal(t, key.Address(), from)

	var payload types.CreateOfferPayload
	require.NoError(t, sent.DecodePayload(&payload))
	sellerAccount, _, err := bank.TokenAccountAddress(key.Address(), "GOLD")
	require.NoError(t, err)
	require.Equal(t, sellerAccount, payload.SellerAccount)
	require.Equal(t, "SILVER", payload.AssetBKind)
	require.Equal(t, uint64(3), payload.OfferID)
}

func TestCallRPCSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "fs_height", req.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32022,"message":"precondition failed"}}`))
	}))
	defer srv.Close()

	original := rpcEndpoint
	rpcEndpoint = srv.URL
	t.Cleanup(func() { rpcEndpoint = original })

	_, err := callRPC("fs_height")
	var rpcErr *rpcError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32022, rpcErr.Code)
}
