package handlers

import (
	"net/http"

	"github.com/mainstage/backend/internal/services"
)

// TwitchHandler exposes stream metadata for the site frontend.
type TwitchHandler struct {
	twitch *services.TwitchService
}

func NewTwitchHandler(twitch *services.TwitchService) *TwitchHandler {
	return &TwitchHandler{twitch: twitch}
}

// LiveData returns the current broadcast, or live:false when offline.
func (h *TwitchHandler) LiveData(w http.ResponseWriter, r *http.Request) {
	stream, err := h.twitch.GetLiveData(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusBadGateway, "failed to fetch live data", err)
		return
	}
	if stream == nil {
		writeJSON(w, http.StatusOK, map[string]any{"live": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"live": true, "stream": stream})
}

// VODs returns the channel's recent archived broadcasts.
func (h *TwitchHandler) VODs(w http.ResponseWriter, r *http.Request) {
	vods, err := h.twitch.GetVODs(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusBadGateway, "failed to fetch vods", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vods": vods})
}

// Clips returns the channel's recent clips.
func (h *TwitchHandler) Clips(w http.ResponseWriter, r *http.Request) {
	clips, err := h.twitch.GetClips(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusBadGateway, "failed to fetch clips", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clips": clips})
}
