package handlers

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mainstage/backend/internal/config"
	"github.com/mainstage/backend/internal/logging"
	"github.com/mainstage/backend/internal/models"
	"github.com/mainstage/backend/internal/services"
	"golang.org/x/crypto/scrypt"
)

type AdminHandler struct {
	cfg  *config.Config
	auth *services.AuthService
}

func NewAdminHandler(cfg *config.Config, auth *services.AuthService) *AdminHandler {
	return &AdminHandler{cfg: cfg, auth: auth}
}

// VerifyPassword checks the console password hash and issues an admin token
// on success. The client hashes the password with scrypt salted by the
// current UTC day, so captured hashes expire daily.
func (h *AdminHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	utcDay := strconv.Itoa(time.Now().UTC().Day())
	expectedHash := hashWithScrypt(h.cfg.AdminConsolePassword, utcDay)

	if req.PasswordHash != expectedHash {
		logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadAdminPassword, "console password verification failed")
		writeJSON(w, http.StatusOK, models.VerifyAdminResponse{Valid: false})
		return
	}

	token, err := h.auth.GenerateToken("console", services.RoleAdmin)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, models.VerifyAdminResponse{Valid: true, Token: token})
}

// IssueBotToken mints a long-lived bot token. Admin only.
func (h *AdminHandler) IssueBotToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}

	token, err := h.auth.GenerateToken(req.Actor, services.RoleBot)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// hashWithScrypt hashes a password using scrypt with the given salt.
// Parameters match the console frontend: N=16384, r=8, p=1, keyLen=32.
func hashWithScrypt(password, salt string) string {
	saltBytes := []byte(strings.ToLower(salt))
	dk, err := scrypt.Key([]byte(password), saltBytes, 16384, 8, 1, 32)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(dk)
}
