package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mainstage/backend/internal/models"
	"github.com/mainstage/backend/internal/services"
)

// UsersHandler serves the pilot profile surface used by the hub site widget
// and the chat bot: sign-in enrichment, check-ins, and the EXP leaderboard.
type UsersHandler struct {
	users   *services.UserService
	cards   *services.CardService
	ranking *services.RankingService
}

func NewUsersHandler(users *services.UserService, cards *services.CardService, ranking *services.RankingService) *UsersHandler {
	return &UsersHandler{users: users, cards: cards, ranking: ranking}
}

// LoginWidget resolves (or registers) the user and returns the profile block
// the sign-in widget renders: active card, EXP, rank title, and progress.
func (h *UsersHandler) LoginWidget(w http.ResponseWriter, r *http.Request) {
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

	collection, err := h.cards.Collection(r.Context(), user.ID, user.IsPremium)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load card collection", err)
		return
	}

	level := services.LevelForExp(user.Exp)
	resp := map[string]any{
		"exp":            user.Exp,
		"level":          level.Level,
		"title":          level.Title,
		"level_progress": level.Progress,
	}
	if def := services.DefaultCard(collection); def != nil {
		resp["user_card"] = map[string]any{
			"name":       def.Name,
			"sysname":    def.Sysname,
			"is_premium": def.IsPremium,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckIn records a chat check-in: the user is registered on first contact,
// their check-in counter is bumped, and the starter card issued if needed.
func (h *UsersHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
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

	collection, err := h.cards.Collection(r.Context(), user.ID, user.IsPremium)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to load card collection", err)
		return
	}

	if err := h.users.IncrementStat(r.Context(), user.ID, "checkin_count", 1); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to record check-in", err)
		return
	}

	resp := map[string]any{
		"twitch_id":  user.TwitchID,
		"local_id":   user.ID,
		"is_premium": user.IsPremium,
	}
	if def := services.DefaultCard(collection); def != nil {
		resp["default_card_name"] = def.Sysname
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExpRank serves the EXP leaderboard.
func (h *UsersHandler) ExpRank(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ranking.ExpRanking(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to build ranking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ranking": entries})
}
