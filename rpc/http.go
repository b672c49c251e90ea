package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fairswap/core"
	"fairswap/native/common"
	"fairswap/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	moduleName      = "rpc"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Config tunes the RPC server. Zero values fall back to permissive defaults;
// an empty JWTSecret disables the admin routes.
type Config struct {
	JWTSecret         string
	JWTIssuer         string
	RequestsPerMinute float64
	Burst             int
	Quota             common.Quota
	Logger            *slog.Logger
}

type Server struct {
	node    *core.Node
	logger  *slog.Logger
	limiter *rateLimiter
	auth    *authenticator
	router  chi.Router

	mu         sync.Mutex
	quotas     map[string]common.QuotaNow
	quotaEpoch uint64
	quota      common.Quota
	clock      func() time.Time
}

func NewServer(node *core.Node, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:    node,
		logger:  logger.With(slog.String("component", moduleName)),
		limiter: newRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		auth:    newAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		quotas:  make(map[string]common.QuotaNow),
		quota:   cfg.Quota,
		clock:   time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.With(s.limiter.Middleware).Post("/", s.handle)
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(s.auth.Middleware(scopeAdmin))
		ar.Get("/pause", s.handleListPauses)
		ar.Post("/pause", s.handleSetPause)
	})
	return r
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "fairswap.rpc")
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
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

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// responseWriter remembers the JSON-RPC code written so the dispatcher can
// record it.
type responseWriter struct {
	http.ResponseWriter
	code int
}

func writeError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if rw, ok := w.(*responseWriter); ok {
		rw.code = code
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	rw := &responseWriter{ResponseWriter: w}
	defer func() {
		observability.ModuleMetrics().Observe(moduleName, req.Method, rw.code, time.Since(start))
	}()

	switch req.Method {
	case "fs_sendTransaction":
		s.handleSendTransaction(rw, r, req)
	case "fs_getOffer":
		s.handleGetOffer(rw, r, req)
	case "fs_getProposal":
		s.handleGetProposal(rw, r, req)
	case "fs_listProposals":
		s.handleListProposals(rw, r, req)
	case "fs_getTokenAccount":
		s.handleGetTokenAccount(rw, r, req)
	case "fs_getAccount":
		s.handleGetAccount(rw, r, req)
	case "fs_getAsset":
		s.handleGetAsset(rw, r, req)
	case "fs_deriveAddresses":
		s.handleDeriveAddresses(rw, r, req)
	case "fs_height":
		s.handleHeight(rw, r, req)
	default:
		writeError(rw, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}
