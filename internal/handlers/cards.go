package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mainstage/backend/internal/models"
	"github.com/mainstage/backend/internal/services"
)

// CardsHandler serves the pilot card endpoints: gacha pulls, collection
// listing, and active-card switching.
type CardsHandler struct {
	cards *services.CardService
	users *services.UserService
}

func NewCardsHandler(cards *services.CardService, users *services.UserService) *CardsHandler {
	return &CardsHandler{cards: cards, users: users}
}

// Gacha draws one card for the user and adds it to their collection.
// Duplicates are reported as such; the draw itself is not retried.
func (h *CardsHandler) Gacha(w http.ResponseWriter, r *http.Request) {
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

	card, err := h.cards.PerformGacha(r.Context(), user.IsPremium)
	if err != nil {
		if errors.Is(err, services.ErrNoPullableCards) {
			writeError(w, http.StatusConflict, "no cards available for pulling")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "gacha draw failed", err)
		return
	}

	added, err := h.cards.AddCardToUser(r.Context(), user.ID, card.ID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to issue card", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card": map[string]any{
			"id":         card.ID,
			"name":       card.Name,
			"catalog_no": card.CatalogNo,
			"sysname":    card.Sysname,
			"is_premium": card.IsPremium,
		},
		"added":     added,
		"duplicate": !added,
	})
}

// GetCards lists the user's collection by the keywords usable in chat.
func (h *CardsHandler) GetCards(w http.ResponseWriter, r *http.Request) {
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

	names := make([]string, 0, len(collection))
	for _, c := range collection {
		names = append(names, c.Sysname)
	}
	resp := map[string]any{
		"count": len(collection),
		"cards": names,
	}
	if def := services.DefaultCard(collection); def != nil {
		resp["active_card"] = def.Sysname
	}
	writeJSON(w, http.StatusOK, resp)
}

// ChangeCard switches the user's active card to one they already own.
// Business rejections come back as well-formed 200 results.
func (h *CardsHandler) ChangeCard(w http.ResponseWriter, r *http.Request) {
	var req models.ChangeCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TwitchID == "" || req.DisplayName == "" || req.NewCardName == "" {
		writeError(w, http.StatusBadRequest, "twitch_id, display_name, and new_card_name are required")
		return
	}

	user, err := h.users.GetOrCreateByTwitchID(r.Context(), req.TwitchID, req.DisplayName, nil, nil)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to resolve user", err)
		return
	}

	result, err := h.cards.SetActiveCard(r.Context(), user.ID, req.NewCardName)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to change active card", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
