package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"fairswap/config"
	"fairswap/core/types"
	"fairswap/crypto"
)

var (
	rpcEndpoint  = defaultRPCEndpoint()
	rpcAuthToken = strings.TrimSpace(os.Getenv("FAIRSWAP_RPC_TOKEN"))
	chainID      = defaultChainID()
	httpClient   = &http.Client{Timeout: 15 * time.Second}
	rpcCall      = callRPC
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("FAIRSWAP_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func defaultChainID() uint64 {
	if v := strings.TrimSpace(os.Getenv("FAIRSWAP_CHAIN_ID")); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			return parsed
		}
	}
	return config.DefaultChainID
}

// applyGlobalFlags strips --rpc, --token and --chain-id from args.
func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, inline := strings.Cut(arg, "=")
		switch name {
		case "--rpc", "--token", "--chain-id":
		default:
			out = append(out, arg)
			continue
		}
		if !inline {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "--rpc":
			rpcEndpoint = strings.TrimSpace(value)
		case "--token":
			rpcAuthToken = strings.TrimSpace(value)
		case "--chain-id":
			parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
			if err != nil || parsed == 0 {
				return nil, fmt.Errorf("invalid --chain-id %q", value)
			}
			chainID = parsed
		}
	}
	return out, nil
}

func callRPC(method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(strings.TrimRight(rpcEndpoint, "/")+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("RPC call failed: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// adminRequest calls an admin REST path with the configured bearer token.
func adminRequest(method, path string, payload interface{}) (json.RawMessage, error) {
	if rpcAuthToken == "" {
		return nil, fmt.Errorf("admin token required; pass --token or set FAIRSWAP_RPC_TOKEN")
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, strings.TrimRight(rpcEndpoint, "/")+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("admin request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

type accountView struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// submit builds a transaction for the signer's next nonce, signs it and
// sends it.
func submit(key *crypto.PrivateKey, txType types.TxType, payload interface{}) (json.RawMessage, error) {
	raw, err := rpcCall("fs_getAccount", key.Address().String())
	if err != nil {
		return nil, err
	}
	var account accountView
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	tx, err := types.NewTransaction(chainID, txType, account.Nonce, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(key); err != nil {
		return nil, err
	}
	encoded, err := tx.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return rpcCall("fs_sendTransaction", hexutil.Encode(encoded))
}

func writeResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, pretty.String())
}
