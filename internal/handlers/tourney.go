package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mainstage/backend/internal/config"
	"github.com/mainstage/backend/internal/models"
	"github.com/mainstage/backend/internal/services"
)

// TourneyHandler serves team registration, scoring, and effect endpoints.
type TourneyHandler struct {
	tourney  *services.TourneyService
	users    *services.UserService
	effects  *services.EffectRegistry
	cooldown *services.CooldownGate
	cfg      *config.Config
}

func NewTourneyHandler(tourney *services.TourneyService, users *services.UserService, effects *services.EffectRegistry, cooldown *services.CooldownGate, cfg *config.Config) *TourneyHandler {
	return &TourneyHandler{tourney: tourney, users: users, effects: effects, cooldown: cooldown, cfg: cfg}
}

// Register resolves the Twitch identity to a local user, creating it on
// first contact, then assigns a team.
func (h *TourneyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterTourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TwitchID == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "twitch_id and display_name are required")
		return
	}

	user, err := h.users.GetOrCreateByTwitchID(r.Context(), req.TwitchID, req.DisplayName, req.Avatar, req.IsPremium)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve user", err)
		return
	}

	result, err := h.tourney.Register(r.Context(), user.ID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to register", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Award adds points to the submitter's team. Chat-originated awards pass
// through the cooldown gate first; the configured window applies per
// submitter, not per team.
func (h *TourneyHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req models.AwardPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserName) == "" {
		writeError(w, http.StatusBadRequest, "user_name is required")
		return
	}
	if req.Points <= 0 {
		writeError(w, http.StatusBadRequest, "points must be positive")
		return
	}

	window := time.Duration(h.cfg.AwardCooldownMinutes) * time.Minute
	status, err := h.cooldown.Check(r.Context(), req.UserName, window)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check cooldown", err)
		return
	}
	if status.Active {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   services.CodeCooldownActive,
			"message": "You need to wait " + status.WaitLabel + " before earning more points.",
		})
		return
	}

	result, err := h.tourney.AwardPoints(r.Context(), req.UserName, req.Points, req.Details)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to award points", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Scoreboard returns team totals, MVPs, and active effects.
func (h *TourneyHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.tourney.Scoreboard(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to build scoreboard", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Standings returns teams ordered by total points.
func (h *TourneyHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.tourney.Standings(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to build standings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": standings})
}

// Effect arms a one-shot block against a team.
func (h *TourneyHandler) Effect(w http.ResponseWriter, r *http.Request) {
	var req models.EffectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := services.TeamNames[req.TeamNumber]; !ok {
		writeError(w, http.StatusBadRequest, "unknown team number")
		return
	}
	if req.EffectType != string(services.EffectBlockTeam) {
		writeError(w, http.StatusBadRequest, "unknown effect type")
		return
	}

	reason := strings.TrimSpace(req.Details)
	if reason == "" {
		reason = services.DefaultBlockReason
	}
	h.effects.Activate(req.TeamNumber, reason)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"team_number": req.TeamNumber,
		"team_name":   services.TeamNames[req.TeamNumber],
		"reason":      reason,
	})
}

// ClearEffect disarms a pending block without consuming it.
func (h *TourneyHandler) ClearEffect(w http.ResponseWriter, r *http.Request) {
	var req models.EffectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := services.TeamNames[req.TeamNumber]; !ok {
		writeError(w, http.StatusBadRequest, "unknown team number")
		return
	}

	h.effects.Clear(req.TeamNumber)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Cooldown reports the submitter's cooldown state without consuming anything.
func (h *TourneyHandler) Cooldown(w http.ResponseWriter, r *http.Request) {
	var req models.CooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserName) == "" {
		writeError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	minutes := req.Minutes
	if minutes <= 0 {
		minutes = h.cfg.AwardCooldownMinutes
	}

	status, err := h.cooldown.Check(r.Context(), req.UserName, time.Duration(minutes)*time.Minute)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check cooldown", err)
		return
	}
	writeJSON(w, http.StatusOK, models.CooldownResponse{
		Active:           status.Active,
		RemainingSeconds: status.RemainingSeconds,
		WaitLabel:        status.WaitLabel,
	})
}
