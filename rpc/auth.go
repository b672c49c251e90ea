package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	scopeAdmin = "admin"
	scopeClaim = "scope"
	clockSkew  = 2 * time.Minute
)

var (
	errAuthDisabled  = errors.New("admin authentication not configured")
	errMissingBearer = errors.New("missing bearer token")
)

// authenticator validates HS256 bearer tokens for the admin routes.
type authenticator struct {
	secret []byte
	issuer string
}

func newAuthenticator(secret, issuer string) *authenticator {
	return &authenticator{secret: []byte(strings.TrimSpace(secret)), issuer: strings.TrimSpace(issuer)}
}

func (a *authenticator) Middleware(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.authenticate(r.Header.Get("Authorization"))
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, errAuthDisabled) {
					status = http.StatusServiceUnavailable
				}
				writeError(w, status, nil, codeUnauthorized, "unauthorized", err.Error())
				return
			}
			if !hasScopes(extractScopes(claims), required) {
				writeError(w, http.StatusForbidden, nil, codeUnauthorized, "insufficient scope", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *authenticator) authenticate(header string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errAuthDisabled
	}
	tokenString := extractBearer(header)
	if tokenString == "" {
		return nil, errMissingBearer
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(clockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	return claims, nil
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func extractScopes(claims jwt.MapClaims) []string {
	switch v := claims[scopeClaim].(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func hasScopes(scopes []string, required []string) bool {
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	for _, scope := range required {
		if _, ok := set[scope]; !ok {
			return false
		}
	}
	return true
}

type pauseRequest struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type pauseState struct {
	Paused []string `json:"paused"`
}

func (s *Server) handleListPauses(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pauseState{Paused: s.node.Pauses().Paused()})
}

func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidParams, "invalid pause request", err.Error())
		return
	}
	module := strings.TrimSpace(req.Module)
	if module == "" {
		writeError(w, http.StatusBadRequest, nil, codeInvalidParams, "module required", nil)
		return
	}
	s.node.Pauses().Set(module, req.Paused)
	s.logger.Warn("module pause updated", slog.String("module", module), slog.Bool("paused", req.Paused))
	s.handleListPauses(w, r)
}
