package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mainstage/backend/internal/db"
	"github.com/mainstage/backend/internal/models"
	"github.com/mainstage/backend/internal/services"
)

const songRequestExp = 2

// SRSHandler serves the song request system endpoints.
type SRSHandler struct {
	srs     *services.SongRequestService
	library *services.LibraryService
	users   *services.UserService
	store   srsUserStore
}

type srsUserStore interface {
	GetUserByDisplayName(ctx context.Context, displayName string) (db.User, error)
}

func NewSRSHandler(srs *services.SongRequestService, library *services.LibraryService, users *services.UserService, store srsUserStore) *SRSHandler {
	return &SRSHandler{srs: srs, library: library, users: users, store: store}
}

// RequestSong handles chat-originated requests: free-text lookup, enqueue,
// and an EXP award for registered users.
func (h *SRSHandler) RequestSong(w http.ResponseWriter, r *http.Request) {
	var req models.RequestSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SongTitle) == "" || strings.TrimSpace(req.UserName) == "" {
		writeError(w, http.StatusBadRequest, "song_title and user_name are required")
		return
	}

	var avatar *string
	var userID int64
	var isPremium bool
	user, err := h.store.GetUserByDisplayName(r.Context(), req.UserName)
	switch {
	case err == nil:
		userID = user.ID
		isPremium = user.IsPremium
		if user.TwitchAvatar.Valid {
			avatar = &user.TwitchAvatar.String
		}
	case !errors.Is(err, sql.ErrNoRows):
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to look up user", err)
		return
	}

	result := h.srs.Request(req.SongTitle, req.UserName, avatar)
	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   result.Code,
			"message": result.Message,
		})
		return
	}

	// Unregistered chatters can still request; only known users earn EXP.
	if userID != 0 {
		if err := h.users.AwardExp(r.Context(), userID, isPremium, songRequestExp); err != nil {
			slog.Error("failed to award request exp", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		if err := h.users.IncrementStat(r.Context(), userID, "song_requests", 1); err != nil {
			slog.Error("failed to update request stat", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"request":     result.Entry,
		"exp_awarded": userID != 0,
	})
}

// RequestSite handles requests from the picker UI, which sends an exact
// title and artist instead of free text.
func (h *SRSHandler) RequestSite(w http.ResponseWriter, r *http.Request) {
	var req models.RequestSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.UserName) == "" {
		writeError(w, http.StatusBadRequest, "title and user_name are required")
		return
	}

	result := h.srs.Request(req.Title+" "+req.Artist, req.UserName, nil)
	status := map[string]any{
		"success": result.Success,
		"message": result.Message,
	}
	if !result.Success {
		status["error"] = result.Code
	} else {
		status["request"] = result.Entry
	}
	writeJSON(w, http.StatusOK, status)
}

// CheckSong resolves a query against the active library without enqueueing.
func (h *SRSHandler) CheckSong(w http.ResponseWriter, r *http.Request) {
	var req models.RequestSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	song := h.library.FindSong(req.SongTitle)
	if song == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": true, "song": song})
}

// RemoveSong pops the head of the queue after it has been played.
func (h *SRSHandler) RemoveSong(w http.ResponseWriter, r *http.Request) {
	result := h.srs.Remove()
	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   result.Code,
			"message": result.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"played":  result.Played,
		"next":    result.Next,
	})
}

// Status returns the full request-system snapshot.
func (h *SRSHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.srs.Status())
}

// InitLibrary loads a song catalog and resets the queue.
func (h *SRSHandler) InitLibrary(w http.ResponseWriter, r *http.Request) {
	var req models.InitLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LibraryID == "" {
		writeError(w, http.StatusBadRequest, "library_id is required")
		return
	}

	lib, err := h.library.Load(req.LibraryID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusNotFound, "library not found", err)
		return
	}

	h.srs.Clear()
	slog.Info("library initialized", slog.String("library", lib.ID), slog.Int("songs", len(lib.Songs)))

	writeJSON(w, http.StatusOK, h.srs.Status())
}

// Clear empties the queue without touching the loaded library.
func (h *SRSHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.srs.Clear()
	writeJSON(w, http.StatusOK, h.srs.Status())
}

// RequestStatus toggles whether new requests are accepted.
func (h *SRSHandler) RequestStatus(w http.ResponseWriter, r *http.Request) {
	var req models.RequestStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var open bool
	switch strings.ToLower(req.Toggle) {
	case "on":
		open = true
	case "off":
		open = false
	default:
		writeError(w, http.StatusBadRequest, `toggle must be "on" or "off"`)
		return
	}

	result := h.srs.SetRequestsOpen(open)
	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   result.Code,
			"message": result.Message,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"requests_open": result.RequestsOpen,
		"message":       result.Message,
	})
}
