// internal/httpserver/server.go
//
// HTTP server wiring for the memory-match backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/leaderboard".
//   - Wallet endpoints: POST /wallet/connect, POST /wallet/disconnect.
//   - Player + game endpoints (require a wallet session): mounted in routes_game.go.
//   - JWT + cookie handling for the connected wallet address.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The token is also returned in the connect response so the mini-app can
//     send it as a bearer header where cookies are blocked.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/antoniobmagic/MEMORY-GAME/internal/config"
	"github.com/antoniobmagic/MEMORY-GAME/internal/play"
	"github.com/antoniobmagic/MEMORY-GAME/internal/wallet"
)

// Server bundles router, the play service and auth settings.
type Server struct {
	r    *chi.Mux
	play *play.Service
	cfg  config.Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(svc *play.Service, cfg config.Config) *Server {
	s := &Server{r: chi.NewRouter(), play: svc, cfg: cfg}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"memory-match","endpoints":["/health","POST /wallet/connect","POST /game/new","POST /game/select","/leaderboard"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Post("/wallet/connect", s.handleConnect)
	s.r.Post("/wallet/disconnect", s.handleDisconnect)
	s.r.Get("/leaderboard", s.handleLeaderboard)

	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		s.mountGame(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ WALLET -------------------------------------

// connectReq relays the browser extension's eth_requestAccounts outcome.
type connectReq struct {
	Provider     string           `json:"provider"` // metamask | rabby | core
	NotInstalled bool             `json:"notInstalled"`
	Accounts     []string         `json:"accounts"`
	Error        *wallet.RPCError `json:"error"`
}

type connectRes struct {
	Address  string    `json:"address"`
	Provider string    `json:"provider"`
	Token    string    `json:"token"`
	Status   statusRes `json:"status"`
}

// handleConnect resolves the address through the selected provider, loads or
// creates the player record, and issues the wallet session cookie.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	kind, err := wallet.ParseKind(req.Provider)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_provider", "message": err.Error()})
		return
	}

	var h wallet.Injected
	if !req.NotInstalled {
		h = &wallet.Relayed{Accounts: req.Accounts, Err: req.Error}
	}
	p, err := wallet.New(kind, h)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_provider", "message": err.Error()})
		return
	}
	address, err := p.Connect(r.Context())
	if err != nil {
		status, code := http.StatusBadRequest, "connect_failed"
		switch {
		case errors.Is(err, wallet.ErrNotInstalled):
			code = "not_installed"
		case errors.Is(err, wallet.ErrUserRejected):
			status, code = http.StatusForbidden, "user_rejected"
		}
		writeJSON(w, status, map[string]string{"error": code, "message": err.Error()})
		return
	}

	st, err := s.play.Status(r.Context(), address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("load player on connect")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load_failed"})
		return
	}
	tok, exp, err := s.signJWT(address, kind)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sign_failed"})
		return
	}
	s.setAuthCookie(w, tok, exp)
	log.Info().Str("address", address).Str("provider", kind.String()).Msg("wallet connected")
	writeJSON(w, http.StatusOK, connectRes{Address: address, Provider: kind.String(), Token: tok, Status: toStatusRes(st)})
}

// handleDisconnect clears the wallet session cookie.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleLeaderboard returns the top scores (?limit=, default 10).
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.play.Leaderboard(r.Context(), queryLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"top": rows})
}

// ------------------------------ JWT & cookies ------------------------------

// ctxAddressKey is the context key type for the authenticated address.
type ctxAddressKey struct{}

func addressFrom(r *http.Request) string {
	a, _ := r.Context().Value(ctxAddressKey{}).(string)
	return a
}

// signJWT creates an HS256 JWT whose subject is the wallet address.
func (s *Server) signJWT(address string, kind wallet.Kind) (string, time.Time, error) {
	exp := time.Now().Add(s.cfg.JWTExpiry)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      address,
		"provider": kind.String(),
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode // required inside the Telegram webview when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); len(a) > 7 && (a[:7] == "Bearer " || a[:7] == "bearer ") {
		return a[7:]
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth enforces a valid wallet JWT and injects the address into the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := s.bearerOrCookie(r)
		if tokenStr == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Please connect your wallet to play!"})
			return
		}
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		address, _ := claims["sub"].(string)
		if address == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxAddressKey{}, address)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryLimit reads ?limit=; 0 lets the store apply its default.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
