package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/native/fairswap"
	"fairswap/observability"
)

type eventJSON struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type receiptJSON struct {
	TxHash string      `json:"txHash"`
	Height uint64      `json:"height"`
	Events []eventJSON `json:"events"`
}

type offerJSON struct {
	Address           string `json:"address"`
	Vault             string `json:"vault"`
	VaultBalance      string `json:"vaultBalance"`
	OfferID           uint64 `json:"offerId"`
	Seller            string `json:"seller"`
	AssetAKind        string `json:"assetAKind"`
	AssetAAmount      string `json:"assetAAmount"`
	AssetBKind        string `json:"assetBKind"`
	AssetBAmount      string `json:"assetBAmount"`
	AllowAlternatives bool   `json:"allowAlternatives"`
	Bump              uint8  `json:"bump"`
}

type proposalJSON struct {
	Address           string `json:"address"`
	Vault             string `json:"vault"`
	VaultBalance      string `json:"vaultBalance"`
	ProposalID        uint64 `json:"proposalId"`
	Buyer             string `json:"buyer"`
	Offer             string `json:"offer"`
	ProposedAssetKind string `json:"proposedAssetKind"`
	ProposedAmount    string `json:"proposedAmount"`
	Bump              uint8  `json:"bump"`
}

type tokenAccountJSON struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type accountJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

type assetJSON struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Decimals  uint8  `json:"decimals"`
	Authority string `json:"authority"`
	Supply    string `json:"supply"`
}

type deriveParams struct {
	Seller     string  `json:"seller,omitempty"`
	OfferID    *uint64 `json:"offerId,omitempty"`
	Offer      string  `json:"offer,omitempty"`
	Buyer      string  `json:"buyer,omitempty"`
	ProposalID *uint64 `json:"proposalId,omitempty"`
	Owner      string  `json:"owner,omitempty"`
	Asset      string  `json:"asset,omitempty"`
}

type derivedRecordJSON struct {
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
	Vault   string `json:"vault"`
}

type deriveResult struct {
	Offer        *derivedRecordJSON `json:"offer,omitempty"`
	Proposal     *derivedRecordJSON `json:"proposal,omitempty"`
	TokenAccount string             `json:"tokenAccount,omitempty"`
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func parseAddressParam(raw json.RawMessage) (crypto.Address, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return crypto.Address{}, err
	}
	return crypto.ParseAddress(strings.TrimSpace(value))
}

// singleAddress decodes the lone address parameter shared by the query methods.
func singleAddress(w http.ResponseWriter, req *RPCRequest) (crypto.Address, bool) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "address parameter required", nil)
		return crypto.Address{}, false
	}
	addr, err := parseAddressParam(req.Params[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return crypto.Address{}, false
	}
	return addr, true
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "transaction parameter required", nil)
		return
	}
	var encoded string
	if err := json.Unmarshal(req.Params[0], &encoded); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "transaction must be a hex string", err.Error())
		return
	}
	raw, err := hexutil.Decode(strings.TrimSpace(encoded))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction encoding", err.Error())
		return
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction format", err.Error())
		return
	}
	from, err := tx.From()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction signature", err.Error())
		return
	}
	if err := s.chargeQuota(from, uint64(len(raw))); err != nil {
		observability.ModuleMetrics().RecordThrottle(moduleName, "quota")
		writeLedgerError(w, req.ID, "submission quota exceeded", err)
		return
	}

	receipt, err := s.node.SubmitTransaction(r.Context(), tx)
	if err != nil {
		writeLedgerError(w, req.ID, "transaction rejected", err)
		return
	}
	out := receiptJSON{
		TxHash: "0x" + hex.EncodeToString(receipt.TxHash[:]),
		Height: receipt.Height,
		Events: make([]eventJSON, 0, len(receipt.Events)),
	}
	for _, evt := range receipt.Events {
		out.Events = append(out.Events, eventJSON{Type: evt.Type, Attributes: evt.Attributes})
	}
	writeResult(w, req.ID, out)
}

// chargeQuota counts one submission of size bytes against from.
func (s *Server) chargeQuota(from crypto.Address, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := from.String()
	epoch := s.quota.Epoch(s.clock().Unix())
	if epoch != s.quotaEpoch {
		// Counters from earlier windows no longer limit anything.
		for sender, usage := range s.quotas {
			if usage.EpochID < epoch {
				delete(s.quotas, sender)
			}
		}
		s.quotaEpoch = epoch
	}
	next, err := common.CheckQuota(s.quota, epoch, s.quotas[key], 1, size)
	if err != nil {
		return err
	}
	s.quotas[key] = next
	return nil
}

func (s *Server) vaultBalance(r *http.Request, record crypto.Address) (crypto.Address, uint64, error) {
	vault, err := fairswap.VaultAddress(record)
	if err != nil {
		return crypto.Address{}, 0, err
	}
	account, err := s.node.TokenAccount(r.Context(), vault)
	if errors.Is(err, bank.ErrAccountNotFound) {
		return vault, 0, nil
	}
	if err != nil {
		return crypto.Address{}, 0, err
	}
	return vault, account.Balance, nil
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := singleAddress(w, req)
	if !ok {
		return
	}
	offer, err := s.node.Engine().Offer(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load offer", err)
		return
	}
	vault, balance, err := s.vaultBalance(r, addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load offer vault", err)
		return
	}
	writeResult(w, req.ID, offerJSON{
		Address:           addr.String(),
		Vault:             vault.String(),
		VaultBalance:      u64(balance),
		OfferID:           offer.OfferID,
		Seller:            offer.Seller.String(),
		AssetAKind:        offer.AssetAKind,
		AssetAAmount:      u64(offer.AssetAAmount),
		AssetBKind:        offer.AssetBKind,
		AssetBAmount:      u64(offer.AssetBAmount),
		AllowAlternatives: offer.AllowAlternatives,
		Bump:              offer.Bump,
	})
}

func (s *Server) proposalView(r *http.Request, addr crypto.Address, proposal *fairswap.Proposal) (proposalJSON, error) {
	vault, balance, err := s.vaultBalance(r, addr)
	if err != nil {
		return proposalJSON{}, err
	}
	return proposalJSON{
		Address:           addr.String(),
		Vault:             vault.String(),
		VaultBalance:      u64(balance),
		ProposalID:        proposal.ProposalID,
		Buyer:             proposal.Buyer.String(),
		Offer:             proposal.Offer.String(),
		ProposedAssetKind: proposal.ProposedAssetKind,
		ProposedAmount:    u64(proposal.ProposedAmount),
		Bump:              proposal.Bump,
	}, nil
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := singleAddress(w, req)
	if !ok {
		return
	}
	proposal, err := s.node.Engine().Proposal(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load proposal", err)
		return
	}
	out, err := s.proposalView(r, addr, proposal)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load proposal vault", err)
		return
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	offer, ok := singleAddress(w, req)
	if !ok {
		return
	}
	entries, err := s.node.Engine().ProposalsForOffer(r.Context(), offer)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to list proposals", err)
		return
	}
	out := make([]proposalJSON, 0, len(entries))
	for _, entry := range entries {
		item, err := s.proposalView(r, entry.Address, entry.Proposal)
		if err != nil {
			writeLedgerError(w, req.ID, "failed to load proposal vault", err)
			return
		}
		out = append(out, item)
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleGetTokenAccount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := singleAddress(w, req)
	if !ok {
		return
	}
	account, err := s.node.TokenAccount(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load token account", err)
		return
	}
	writeResult(w, req.ID, tokenAccountJSON{
		Address: account.Address.String(),
		Owner:   account.Owner.String(),
		Asset:   account.Asset,
		Balance: u64(account.Balance),
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addr, ok := singleAddress(w, req)
	if !ok {
		return
	}
	account, err := s.node.Account(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load account", err)
		return
	}
	writeResult(w, req.ID, accountJSON{Address: addr.String(), Balance: u64(account.Balance), Nonce: account.Nonce})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "symbol parameter required", nil)
		return
	}
	var symbol string
	if err := json.Unmarshal(req.Params[0], &symbol); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "symbol must be a string", err.Error())
		return
	}
	asset, err := s.node.Asset(r.Context(), strings.ToUpper(strings.TrimSpace(symbol)))
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load asset", err)
		return
	}
	writeResult(w, req.ID, assetJSON{
		Symbol:    asset.Symbol,
		Name:      asset.Name,
		Decimals:  asset.Decimals,
		Authority: asset.Authority.String(),
		Supply:    u64(asset.Supply),
	})
}

func (s *Server) handleDeriveAddresses(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params deriveParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	out, err := derive(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to derive addresses", err.Error())
		return
	}
	if out.Offer == nil && out.Proposal == nil && out.TokenAccount == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "nothing to derive", nil)
		return
	}
	writeResult(w, req.ID, out)
}

func derive(params deriveParams) (*deriveResult, error) {
	out := &deriveResult{}
	var (
		offer    crypto.Address
		hasOffer bool
	)
	if params.Offer != "" {
		addr, err := crypto.ParseAddress(params.Offer)
		if err != nil {
			return nil, err
		}
		offer, hasOffer = addr, true
	}
	if params.Seller != "" && params.OfferID != nil {
		seller, err := crypto.ParseAddress(params.Seller)
		if err != nil {
			return nil, err
		}
		addr, bump, err := fairswap.OfferAddress(seller, *params.OfferID)
		if err != nil {
			return nil, err
		}
		record, err := derivedRecord(addr, bump)
		if err != nil {
			return nil, err
		}
		out.Offer = record
		if !hasOffer {
			offer, hasOffer = addr, true
		}
	}
	if hasOffer && params.Buyer != "" && params.ProposalID != nil {
		buyer, err := crypto.ParseAddress(params.Buyer)
		if err != nil {
			return nil, err
		}
		addr, bump, err := fairswap.ProposalAddress(offer, buyer, *params.ProposalID)
		if err != nil {
			return nil, err
		}
		record, err := derivedRecord(addr, bump)
		if err != nil {
			return nil, err
		}
		out.Proposal = record
	}
	if params.Owner != "" && params.Asset != "" {
		owner, err := crypto.ParseAddress(params.Owner)
		if err != nil {
			return nil, err
		}
		addr, _, err := bank.TokenAccountAddress(owner, strings.ToUpper(params.Asset))
		if err != nil {
			return nil, err
		}
		out.TokenAccount = addr.String()
	}
	return out, nil
}

func derivedRecord(addr crypto.Address, bump uint8) (*derivedRecordJSON, error) {
	vault, err := fairswap.VaultAddress(addr)
	if err != nil {
		return nil, err
	}
	return &derivedRecordJSON{Address: addr.String(), Bump: bump, Vault: vault.String()}, nil
}

func (s *Server) handleHeight(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	height, err := s.node.Height(r.Context())
	if err != nil {
		writeLedgerError(w, req.ID, "failed to load height", err)
		return
	}
	writeResult(w, req.ID, height)
}
