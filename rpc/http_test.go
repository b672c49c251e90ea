package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"fairswap/core"
	"fairswap/core/genesis"
	"fairswap/core/state"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/native/fairswap"
	"fairswap/storage"
)

const (
	testChainID = 7
	testSecret  = "rpc-test-secret"
)

type rpcHarness struct {
	t      *testing.T
	node   *core.Node
	server *Server
	seller *crypto.PrivateKey
	buyer  *crypto.PrivateKey
}

func newRPCHarness(t *testing.T, cfg Config) *rpcHarness {
	t.Helper()
	admin := mustKey(t)
	h := &rpcHarness{t: t, seller: mustKey(t), buyer: mustKey(t)}
	h.node = core.NewNode(state.NewStore(storage.NewMemDB()), core.Options{
		ChainID:  testChainID,
		Admin:    admin.Address(),
		Schedule: bank.DefaultSchedule(),
	})
	spec := &genesis.Spec{
		ChainID: testChainID,
		Assets: []genesis.AssetSpec{
			{Symbol: "GOLD", Name: "Gold", Authority: admin.Address().String()},
			{Symbol: "SILVER", Name: "Silver", Authority: admin.Address().String()},
		},
		Accounts: []genesis.AccountSpec{
			{Address: h.seller.Address().String(), Native: 1_000_000},
			{Address: h.buyer.Address().String(), Native: 1_000_000},
		},
		Balances: []genesis.BalanceSpec{
			{Owner: h.seller.Address().String(), Asset: "GOLD", Amount: 1000},
			{Owner: h.buyer.Address().String(), Asset: "SILVER", Amount: 10},
		},
	}
	require.NoError(t, h.node.InitGenesis(context.Background(), spec))
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = testSecret
	}
	h.server = NewServer(h.node, cfg)
	return h
}

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

type rawResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (h *rpcHarness) call(method string, params ...interface{}) (int, rawResponse) {
	h.t.Helper()
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		require.NoError(h.t, err)
		rawParams = append(rawParams, data)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: json.RawMessage("1")})
	require.NoError(h.t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	var resp rawResponse
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func (h *rpcHarness) signedTx(key *crypto.PrivateKey, txType types.TxType, payload interface{}) string {
	h.t.Helper()
	account, err := h.node.Account(context.Background(), key.Address())
	require.NoError(h.t, err)
	tx, err := types.NewTransaction(testChainID, txType, account.Nonce, payload)
	require.NoError(h.t, err)
	require.NoError(h.t, tx.Sign(key))
	raw, err := tx.MarshalBinary()
	require.NoError(h.t, err)
	return hexutil.Encode(raw)
}

func (h *rpcHarness) send(key *crypto.PrivateKey, txType types.TxType, payload interface{}) (int, rawResponse) {
	h.t.Helper()
	return h.call("fs_sendTransaction", h.signedTx(key, txType, payload))
}

func (h *rpcHarness) tokenAccount(owner crypto.Address, asset string) crypto.Address {
	addr, _, err := bank.TokenAccountAddress(owner, asset)
	require.NoError(h.t, err)
	return addr
}

func (h *rpcHarness) createOffer(id uint64) crypto.Address {
	h.t.Helper()
	status, resp := h.send(h.seller, types.TxTypeCreateOffer, types.CreateOfferPayload{
		OfferID:           id,
		SellerAccount:     h.tokenAccount(h.seller.Address(), "GOLD"),
		AssetAAmount:      100,
		AssetBKind:        "SILVER",
		AssetBAmount:      50,
		AllowAlternatives: true,
	})
	require.Equal(h.t, http.StatusOK, status)
	require.Nil(h.t, resp.Error)
	offer, _, err := fairswap.OfferAddress(h.seller.Address(), id)
	require.NoError(h.t, err)
	return offer
}

func adminToken(t *testing.T, scope string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestSendTransactionAndQueryOffer(t *testing.T) {
	h := newRPCHarness(t, Config{})
	offer := h.createOffer(1)

	status, resp := h.call("fs_getOffer", offer.String())
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	var got offerJSON
	require.NoError(t, json.Unmarshal(resp.Result, &got))
	require.Equal(t, offer.String(), got.Address)
	require.Equal(t, "100", got.VaultBalance)
	require.Equal(t, "GOLD", got.AssetAKind)
	require.Equal(t, h.seller.Address().String(), got.Seller)

	status, resp = h.call("fs_height")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, "1", string(resp.Result))
}

func TestProposalLifecycleOverRPC(t *testing.T) {
	h := newRPCHarness(t, Config{})
	offer := h.createOffer(1)
	buyer := h.buyer.Address()

	status, resp := h.send(h.buyer, types.TxTypeSubmitProposal, types.SubmitProposalPayload{
		Offer:          offer,
		ProposalID:     9,
		BuyerAccount:   h.tokenAccount(buyer, "SILVER"),
		ProposedAmount: 5,
	})
	require.Equal(t, http.StatusOK, status, string(resp.Result))
	var receipt receiptJSON
	require.NoError(t, json.Unmarshal(resp.Result, &receipt))
	require.Len(t, receipt.Events, 1)
	require.Equal(t, fairswap.EventTypeProposalSubmitted, receipt.Events[0].Type)

	_, resp = h.call("fs_listProposals", offer.String())
	require.Nil(t, resp.Error)
	var listed []proposalJSON
	require.NoError(t, json.Unmarshal(resp.Result, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "5", listed[0].VaultBalance)
	require.Equal(t, offer.String(), listed[0].Offer)

	_, resp = h.call("fs_getProposal", listed[0].Address)
	require.Nil(t, resp.Error)
	var single proposalJSON
	require.NoError(t, json.Unmarshal(resp.Result, &single))
	require.Equal(t, listed[0], single)
}

func TestErrorCodes(t *testing.T) {
	h := newRPCHarness(t, Config{})
	offer := h.createOffer(1)
	buyer := h.buyer.Address()
	seller := h.seller.Address()

	_, resp := h.call("fs_unknown")
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	missing, _, err := fairswap.OfferAddress(seller, 42)
	require.NoError(t, err)
	status, resp := h.call("fs_getOffer", missing.String())
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codePreconditionFailed, resp.Error.Code)

	_, resp = h.call("fs_getOffer", "not-an-address")
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = h.send(h.seller, types.TxTypeCreateOffer, types.CreateOfferPayload{
		OfferID:       1,
		SellerAccount: h.tokenAccount(seller, "GOLD"),
		AssetAAmount:  1,
		AssetBKind:    "SILVER",
		AssetBAmount:  1,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, codeDuplicateRecord, resp.Error.Code)

	_, resp = h.send(h.buyer, types.TxTypeOpenAccount, types.OpenAccountPayload{Asset: "GOLD"})
	require.Nil(t, resp.Error)
	_, resp = h.send(h.seller, types.TxTypeOpenAccount, types.OpenAccountPayload{Asset: "SILVER"})
	require.Nil(t, resp.Error)

	// The buyer holds 10 SILVER, the offer asks 50.
	status, resp = h.send(h.buyer, types.TxTypeExecuteSwap, types.ExecuteSwapPayload{
		Offer:         offer,
		BuyerPayment:  h.tokenAccount(buyer, "SILVER"),
		SellerReceive: h.tokenAccount(seller, "SILVER"),
		BuyerReceive:  h.tokenAccount(buyer, "GOLD"),
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInsufficientBalance, resp.Error.Code)

	status, resp = h.send(h.buyer, types.TxTypeCancelOffer, types.CancelOfferPayload{
		Offer:         offer,
		SellerAccount: h.tokenAccount(buyer, "GOLD"),
	})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeForbidden, resp.Error.Code)
}

func TestDeriveAddresses(t *testing.T) {
	h := newRPCHarness(t, Config{})
	seller, buyer := h.seller.Address(), h.buyer.Address()
	offerID, proposalID := uint64(3), uint64(4)

	_, resp := h.call("fs_deriveAddresses", deriveParams{
		Seller:     seller.String(),
		OfferID:    &offerID,
		Buyer:      buyer.String(),
		ProposalID: &proposalID,
		Owner:      buyer.String(),
		Asset:      "silver",
	})
	require.Nil(t, resp.Error)
	var out deriveResult
	require.NoError(t, json.Unmarshal(resp.Result, &out))

	offer, bump, err := fairswap.OfferAddress(seller, offerID)
	require.NoError(t, err)
	require.Equal(t, offer.String(), out.Offer.Address)
	require.Equal(t, bump, out.Offer.Bump)
	vault, err := fairswap.VaultAddress(offer)
	require.NoError(t, err)
	require.Equal(t, vault.String(), out.Offer.Vault)

	proposal, _, err := fairswap.ProposalAddress(offer, buyer, proposalID)
	require.NoError(t, err)
	require.Equal(t, proposal.String(), out.Proposal.Address)
	require.Equal(t, h.tokenAccount(buyer, "SILVER").String(), out.TokenAccount)

	_, resp = h.call("fs_deriveAddresses", deriveParams{})
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestAdminPauseRequiresScope(t *testing.T) {
	h := newRPCHarness(t, Config{})
	handler := h.server.Handler()

	pause := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/pause", strings.NewReader(`{"module":"fairswap","paused":true}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusUnauthorized, pause("").Code)
	require.Equal(t, http.StatusForbidden, pause(adminToken(t, "read")).Code)
	require.False(t, h.node.Pauses().IsPaused(fairswap.ModuleName))

	rec := pause(adminToken(t, "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	var st pauseState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, []string{"fairswap"}, st.Paused)

	status, resp := h.send(h.seller, types.TxTypeCreateOffer, types.CreateOfferPayload{
		OfferID:       1,
		SellerAccount: h.tokenAccount(h.seller.Address(), "GOLD"),
		AssetAAmount:  1,
		AssetBKind:    "SILVER",
		AssetBAmount:  1,
	})
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, codeModulePaused, resp.Error.Code)
}

func TestRateLimit(t *testing.T) {
	h := newRPCHarness(t, Config{RequestsPerMinute: 1, Burst: 2})
	for i := 0; i < 2; i++ {
		status, _ := h.call("fs_height")
		require.Equal(t, http.StatusOK, status)
	}
	status, resp := h.call("fs_height")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestSubmissionQuota(t *testing.T) {
	h := newRPCHarness(t, Config{Quota: common.Quota{MaxRequestsPerEpoch: 1, EpochSeconds: 3600}})
	h.server.clock = func() time.Time { return time.Unix(7200, 0) }

	_, resp := h.send(h.buyer, types.TxTypeOpenAccount, types.OpenAccountPayload{Asset: "GOLD"})
	require.Nil(t, resp.Error)
	status, resp := h.send(h.buyer, types.TxTypeOpenAccount, types.OpenAccountPayload{Asset: "SILVER"})
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeQuotaExceeded, resp.Error.Code)

	h.server.clock = func() time.Time { return time.Unix(10800, 0) }
	status, resp = h.send(h.buyer, types.TxTypeOpenAccount, types.OpenAccountPayload{Asset: "GOLD"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, codeDuplicateRecord, resp.Error.Code)
}

func TestQuotaDropsPastEpochs(t *testing.T) {
	h := newRPCHarness(t, Config{Quota: common.Quota{MaxRequestsPerEpoch: 5, EpochSeconds: 60}})
	h.server.clock = func() time.Time { return time.Unix(600, 0) }
	require.NoError(t, h.server.chargeQuota(h.seller.Address(), 10))
	require.NoError(t, h.server.chargeQuota(h.buyer.Address(), 10))
	require.Len(t, h.server.quotas, 2)

	h.server.clock = func() time.Time { return time.Unix(660, 0) }
	require.NoError(t, h.server.chargeQuota(h.buyer.Address(), 10))
	require.Len(t, h.server.quotas, 1)
	usage := h.server.quotas[h.buyer.Address().String()]
	require.Equal(t, common.QuotaNow{ReqCount: 1, BytesUsed: 10, EpochID: 11}, usage)
}

func TestEventStream(t *testing.T) {
	h := newRPCHarness(t, Config{})
	srv := httptest.NewServer(h.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/events?type=fairswap.", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return h.node.Feed().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, resp := h.send(h.buyer, types.TxTypeOpenAccount, types.OpenAccountPayload{Asset: "GOLD"})
	require.Nil(t, resp.Error)
	offer := h.createOffer(1)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var payload eventPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Equal(t, fairswap.EventTypeOfferCreated, payload.Type)
	require.Equal(t, uint64(2), payload.Height)
	require.Equal(t, offer.String(), payload.Attributes[fairswap.AttrOffer])
}
