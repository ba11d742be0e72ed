// internal/httpserver/routes_game.go
//
// HTTP routes for playing a session (all behind requireAuth):
//   - GET  /player/me     → record, budget, multiplier, cooldown
//   - GET  /scores/mine   → the player's best scores
//   - POST /game/new      → start a session (429 while cooling down)
//   - GET  /game/current  → the live session, if any
//   - POST /game/select   → select a card
//   - POST /game/resolve  → turn a displayed mismatch back over
//   - POST /game/abandon  → drop the live session
//
// Every game response carries `alerts`: messages the mini-app shows with the
// host's alert dialog.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/antoniobmagic/MEMORY-GAME/internal/game"
	"github.com/antoniobmagic/MEMORY-GAME/internal/notify"
	"github.com/antoniobmagic/MEMORY-GAME/internal/play"
)

// mountGame registers the authenticated player and game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Get("/player/me", s.handlePlayer)
	r.Get("/scores/mine", s.handleMyScores)
	r.Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNew)
		r.Get("/current", s.handleCurrent)
		r.Post("/select", s.handleSelect)
		r.Post("/resolve", s.handleResolve)
		r.Post("/abandon", s.handleAbandon)
	})
}

// statusRes is the player view returned by /player/me and /wallet/connect.
type statusRes struct {
	play.Status
	CanPlay         bool  `json:"canPlay"`
	WaitRemainingMs int64 `json:"waitRemainingMs,omitempty"`
}

func toStatusRes(st play.Status) statusRes {
	return statusRes{
		Status:          st,
		CanPlay:         st.Eligible.Allowed,
		WaitRemainingMs: st.Eligible.WaitRemaining.Milliseconds(),
	}
}

// gameRes wraps a session response with alerts and an optional error code.
type gameRes struct {
	play.Outcome
	Alerts          []string `json:"alerts"`
	Error           string   `json:"error,omitempty"`
	WaitRemainingMs int64    `json:"waitRemainingMs,omitempty"`
}

// alertSink collects alerts for the response and also logs them.
func alertSink(b *notify.Buffer, address string) notify.Notifier {
	return notify.Multi{b, notify.Log{Address: address}}
}

// sessionReq is the body of /game/select and /game/resolve. CardID is
// required by /game/select only.
type sessionReq struct {
	SessionID string `json:"sessionId"`
	CardID    *int   `json:"cardId"`
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	st, err := s.play.Status(r.Context(), addressFrom(r))
	if err != nil {
		log.Error().Err(err).Str("address", addressFrom(r)).Msg("load player")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "load_failed"})
		return
	}
	writeJSON(w, http.StatusOK, toStatusRes(st))
}

func (s *Server) handleMyScores(w http.ResponseWriter, r *http.Request) {
	rows, err := s.play.History(r.Context(), addressFrom(r), queryLimit(r))
	if err != nil {
		log.Error().Err(err).Str("address", addressFrom(r)).Msg("load scores")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": rows})
}

// handleNew starts a session if the cooldown allows it.
func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	var alerts notify.Buffer
	view, err := s.play.Start(r.Context(), addressFrom(r), alertSink(&alerts, addressFrom(r)))

	res := gameRes{Outcome: play.Outcome{View: view}}
	status := http.StatusOK
	var cd *play.CooldownError
	switch {
	case errors.As(err, &cd):
		status, res.Error, res.WaitRemainingMs = http.StatusTooManyRequests, "cooldown", cd.Wait.Milliseconds()
	case err != nil:
		status, res.Error = http.StatusInternalServerError, "load_failed"
	}
	res.Alerts = alerts.Messages()
	writeJSON(w, status, res)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	view, err := s.play.Current(addressFrom(r))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no_session"})
		return
	}
	writeJSON(w, http.StatusOK, gameRes{Outcome: play.Outcome{View: view}, Alerts: []string{}})
}

// handleSelect applies one card selection and reports any progression change.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}

	var alerts notify.Buffer
	out, err := s.play.Select(r.Context(), addressFrom(r), req.SessionID, *req.CardID, alertSink(&alerts, addressFrom(r)))
	res := gameRes{Outcome: out}
	status := http.StatusOK
	switch {
	case errors.Is(err, play.ErrNoSession):
		status, res.Error = http.StatusConflict, "no_session"
	case errors.Is(err, game.ErrUnknownCard):
		status, res.Error = http.StatusBadRequest, "unknown_card"
	case errors.Is(err, game.ErrNotInProgress):
		status, res.Error = http.StatusConflict, "finished"
	case err != nil:
		status, res.Error = http.StatusInternalServerError, "save_failed"
	}
	res.Alerts = alerts.Messages()
	writeJSON(w, status, res)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	view, err := s.play.Resolve(r.Context(), addressFrom(r), req.SessionID)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no_session"})
		return
	}
	writeJSON(w, http.StatusOK, gameRes{Outcome: play.Outcome{View: view}, Alerts: []string{}})
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"abandoned": s.play.Abandon(addressFrom(r))})
}
