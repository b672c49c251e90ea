package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handler exposes the read model over REST.
func (ix *Indexer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/offers", func(offers chi.Router) {
		offers.Get("/", ix.handleOffers)
		offers.Get("/active", ix.handleActiveOffers)
		offers.Get("/seller/{seller}", ix.handleOffersBySeller)
		offers.Get("/{address}", ix.handleOffer)
	})
	r.Route("/proposals", func(proposals chi.Router) {
		proposals.Get("/offer/{offer}", ix.handleProposalsByOffer)
		proposals.Get("/buyer/{buyer}", ix.handleProposalsByBuyer)
		proposals.Get("/pending", ix.handlePendingProposals)
		proposals.Get("/", ix.handleProposals)
		proposals.Get("/{id}", ix.handleProposal)
	})
	r.Route("/swaps", func(swaps chi.Router) {
		swaps.Get("/recent", ix.handleRecentSwaps)
		swaps.Get("/buyer/{buyer}", ix.handleSwapsByBuyer)
		swaps.Get("/seller/{seller}", ix.handleSwapsBySeller)
		swaps.Get("/stats", ix.handleStats)
		swaps.Get("/", ix.handleSwaps)
		swaps.Get("/{id}", ix.handleSwap)
	})
	return r
}

// Serve runs the REST API on addr until ctx is cancelled.
func (ix *Indexer) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           ix.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		ix.logger.Info("starting indexer API", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type envelope struct {
	Data interface{} `json:"data"`
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope{Data: data})
}

func (ix *Indexer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, ErrInvalidFilter) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ix.logger.ErrorContext(r.Context(), "indexer query failed",
		"path", r.URL.Path,
		"error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func limitParam(r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return clampLimit(n), true
}

// pageParams reads limit and offset; both must be non-negative integers.
func pageParams(r *http.Request) (Page, bool) {
	limit, ok := limitParam(r)
	if !ok {
		return Page{}, false
	}
	page := Page{Limit: limit}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Page{}, false
		}
		page.Offset = n
	}
	return page, true
}

// filterHandler serves a filtered, paginated list built from the query string.
func filterHandler[T any](ix *Indexer, query func(r *http.Request, page Page) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := pageParams(r)
		if !ok {
			http.Error(w, "invalid pagination", http.StatusBadRequest)
			return
		}
		rows, err := query(r, page)
		if err != nil {
			ix.writeFailure(w, r, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		writeData(w, rows)
	}
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// listHandler adapts a limited list query with an optional path key.
func listHandler[T any](ix *Indexer, key string, query func(r *http.Request, key string, limit int) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		var value string
		if key != "" {
			value = strings.TrimSpace(chi.URLParam(r, key))
		}
		rows, err := query(r, value, limit)
		if err != nil {
			ix.writeFailure(w, r, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		writeData(w, rows)
	}
}

func (ix *Indexer) handleOffers(w http.ResponseWriter, r *http.Request) {
	filterHandler(ix, func(r *http.Request, page Page) ([]OfferRow, error) {
		return ix.Offers(r.Context(), OfferFilter{
			Status: OfferStatus(queryParam(r, "status")),
			Seller: queryParam(r, "seller"),
			AssetA: queryParam(r, "asset_a"),
			AssetB: queryParam(r, "asset_b"),
			Page:   page,
		})
	})(w, r)
}

func (ix *Indexer) handleProposals(w http.ResponseWriter, r *http.Request) {
	filterHandler(ix, func(r *http.Request, page Page) ([]ProposalRow, error) {
		return ix.Proposals(r.Context(), ProposalFilter{
			Status: ProposalStatus(queryParam(r, "status")),
			Offer:  queryParam(r, "offer"),
			Buyer:  queryParam(r, "buyer"),
			Page:   page,
		})
	})(w, r)
}

func (ix *Indexer) handleSwaps(w http.ResponseWriter, r *http.Request) {
	filterHandler(ix, func(r *http.Request, page Page) ([]SwapRow, error) {
		return ix.Swaps(r.Context(), SwapFilter{
			Offer:  queryParam(r, "offer"),
			Buyer:  queryParam(r, "buyer"),
			Seller: queryParam(r, "seller"),
			Asset:  queryParam(r, "asset"),
			Page:   page,
		})
	})(w, r)
}

func (ix *Indexer) handleProposal(w http.ResponseWriter, r *http.Request) {
	row, err := ix.Proposal(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		ix.writeFailure(w, r, err)
		return
	}
	writeData(w, row)
}

func (ix *Indexer) handleSwap(w http.ResponseWriter, r *http.Request) {
	row, err := ix.Swap(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		ix.writeFailure(w, r, err)
		return
	}
	writeData(w, row)
}

func (ix *Indexer) handleActiveOffers(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "", func(r *http.Request, _ string, limit int) ([]OfferRow, error) {
		return ix.ActiveOffers(r.Context(), limit)
	})(w, r)
}

func (ix *Indexer) handleOffersBySeller(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "seller", func(r *http.Request, seller string, limit int) ([]OfferRow, error) {
		return ix.OffersBySeller(r.Context(), seller, limit)
	})(w, r)
}

func (ix *Indexer) handleOffer(w http.ResponseWriter, r *http.Request) {
	row, err := ix.Offer(r.Context(), strings.TrimSpace(chi.URLParam(r, "address")))
	if err != nil {
		ix.writeFailure(w, r, err)
		return
	}
	writeData(w, row)
}

func (ix *Indexer) handleProposalsByOffer(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "offer", func(r *http.Request, offer string, limit int) ([]ProposalRow, error) {
		return ix.ProposalsByOffer(r.Context(), offer, limit)
	})(w, r)
}

func (ix *Indexer) handleProposalsByBuyer(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "buyer", func(r *http.Request, buyer string, limit int) ([]ProposalRow, error) {
		return ix.ProposalsByBuyer(r.Context(), buyer, limit)
	})(w, r)
}

func (ix *Indexer) handlePendingProposals(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "", func(r *http.Request, _ string, limit int) ([]ProposalRow, error) {
		return ix.PendingProposals(r.Context(), limit)
	})(w, r)
}

func (ix *Indexer) handleRecentSwaps(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "", func(r *http.Request, _ string, limit int) ([]SwapRow, error) {
		return ix.RecentSwaps(r.Context(), limit)
	})(w, r)
}

func (ix *Indexer) handleSwapsByBuyer(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "buyer", func(r *http.Request, buyer string, limit int) ([]SwapRow, error) {
		return ix.SwapsByBuyer(r.Context(), buyer, limit)
	})(w, r)
}

func (ix *Indexer) handleSwapsBySeller(w http.ResponseWriter, r *http.Request) {
	listHandler(ix, "seller", func(r *http.Request, seller string, limit int) ([]SwapRow, error) {
		return ix.SwapsBySeller(r.Context(), seller, limit)
	})(w, r)
}

func (ix *Indexer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ix.Stats(r.Context())
	if err != nil {
		ix.writeFailure(w, r, err)
		return
	}
	writeData(w, stats)
}
