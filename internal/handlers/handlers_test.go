package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mainstage/backend/internal/config"
	"github.com/mainstage/backend/internal/db"
	"github.com/mainstage/backend/internal/models"
	"github.com/mainstage/backend/internal/services"
)

type fakeHub struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeHub) Broadcast(e models.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

type fakeUserStore struct {
	users map[string]db.User
}

func (f *fakeUserStore) GetUserByDisplayName(ctx context.Context, name string) (db.User, error) {
	user, ok := f.users[name]
	if !ok {
		return db.User{}, sql.ErrNoRows
	}
	return user, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestAdminHandler_VerifyPassword(t *testing.T) {
	cfg := &config.Config{AdminConsolePassword: "test-password"}
	auth := services.NewAuthService("test-secret", time.Hour, time.Hour)
	handler := NewAdminHandler(cfg, auth)

	utcDay := strconv.Itoa(time.Now().UTC().Day())
	correctHash := hashWithScrypt("test-password", utcDay)
	wrongHash := hashWithScrypt("wrong-password", utcDay)

	tests := []struct {
		name          string
		passwordHash  string
		expectedValid bool
	}{
		{"correct password hash", correctHash, true},
		{"wrong password hash", wrongHash, false},
		{"empty hash", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.VerifyPassword, "/api/admin/verify",
				models.VerifyAdminRequest{PasswordHash: tt.passwordHash})

			if rec.Code != http.StatusOK {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusOK)
			}

			var resp models.VerifyAdminResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Valid != tt.expectedValid {
				t.Errorf("Valid = %v, want %v", resp.Valid, tt.expectedValid)
			}

			if tt.expectedValid {
				claims, err := auth.ValidateToken(resp.Token)
				if err != nil {
					t.Fatalf("returned token invalid: %v", err)
				}
				if claims.Role != services.RoleAdmin {
					t.Errorf("token role = %q, want admin", claims.Role)
				}
			} else if resp.Token != "" {
				t.Error("token issued for invalid password")
			}
		})
	}
}

func TestAdminHandler_VerifyPassword_InvalidJSON(t *testing.T) {
	cfg := &config.Config{AdminConsolePassword: "test"}
	handler := NewAdminHandler(cfg, services.NewAuthService("s", time.Hour, time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/verify", bytes.NewReader([]byte("invalid json")))
	rec := httptest.NewRecorder()
	handler.VerifyPassword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdminHandler_IssueBotToken(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Hour, time.Hour)
	handler := NewAdminHandler(&config.Config{}, auth)

	rec := postJSON(t, handler.IssueBotToken, "/api/admin/bot-token",
		map[string]string{"actor": "geekbot"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeMap(t, rec)
	claims, err := auth.ValidateToken(resp["token"].(string))
	if err != nil {
		t.Fatalf("returned token invalid: %v", err)
	}
	if claims.Actor != "geekbot" || claims.Role != services.RoleBot {
		t.Errorf("claims = %s/%s, want geekbot/bot", claims.Actor, claims.Role)
	}

	// Missing actor is rejected.
	rec = postJSON(t, handler.IssueBotToken, "/api/admin/bot-token", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func newTestSRSHandler(t *testing.T, users map[string]db.User) (*SRSHandler, *services.SongRequestService) {
	t.Helper()
	dir := t.TempDir()

	lib := map[string]any{
		"game_id":    "setlist",
		"game_title": "Friday Setlist",
		"game_year":  2026,
		"songs": []map[string]string{
			{"id": "freebird", "title": "Free Bird", "artist": "Lynyrd Skynyrd"},
			{"id": "africa", "title": "Africa", "artist": "Toto"},
		},
	}
	data, err := json.Marshal(lib)
	if err != nil {
		t.Fatalf("failed to marshal library: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "setlist.json"), data, 0o644); err != nil {
		t.Fatalf("failed to write library: %v", err)
	}

	library := services.NewLibraryService(dir)
	if _, err := library.Load("setlist"); err != nil {
		t.Fatalf("failed to load library: %v", err)
	}

	srs := services.NewSongRequestService(library, &fakeHub{}, 3)
	srs.SetRequestsOpen(true)

	store := &fakeUserStore{users: users}
	userSvc := services.NewUserService(noopUserStore{})
	return NewSRSHandler(srs, library, userSvc, store), srs
}

// noopUserStore satisfies the user service for handler tests that don't
// assert on EXP writes.
type noopUserStore struct{}

func (noopUserStore) GetUserByTwitchID(ctx context.Context, twitchID string) (db.User, error) {
	return db.User{}, sql.ErrNoRows
}
func (noopUserStore) CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error) {
	return db.User{ID: 1}, nil
}
func (noopUserStore) UpdateUser(ctx context.Context, arg db.UpdateUserParams) error { return nil }
func (noopUserStore) AddUserExp(ctx context.Context, userID int64, exp int64) error { return nil }
func (noopUserStore) UpsertUserStat(ctx context.Context, arg db.UpsertUserStatParams) error {
	return nil
}

func TestSRSHandler_RequestSong(t *testing.T) {
	handler, _ := newTestSRSHandler(t, map[string]db.User{
		"viewer": {ID: 1, TwitchDisplayName: "viewer"},
	})

	rec := postJSON(t, handler.RequestSong, "/api/srs/request-song",
		models.RequestSongRequest{SongTitle: "free bird", UserName: "viewer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeMap(t, rec)
	if resp["success"] != true {
		t.Fatalf("success = %v, want true: %v", resp["success"], resp)
	}
	if resp["exp_awarded"] != true {
		t.Errorf("exp_awarded = %v, want true", resp["exp_awarded"])
	}

	// A duplicate is a 200 with a typed rejection, not an HTTP error.
	rec = postJSON(t, handler.RequestSong, "/api/srs/request-song",
		models.RequestSongRequest{SongTitle: "free bird", UserName: "other"})
	resp = decodeMap(t, rec)
	if rec.Code != http.StatusOK || resp["success"] != false {
		t.Errorf("duplicate: status %d success %v, want 200/false", rec.Code, resp["success"])
	}
	if resp["error"] != services.CodeDuplicate {
		t.Errorf("error = %v, want %s", resp["error"], services.CodeDuplicate)
	}
}

func TestSRSHandler_RequestSong_UnknownUser(t *testing.T) {
	handler, _ := newTestSRSHandler(t, nil)

	rec := postJSON(t, handler.RequestSong, "/api/srs/request-song",
		models.RequestSongRequest{SongTitle: "africa", UserName: "stranger"})
	resp := decodeMap(t, rec)
	if resp["success"] != true {
		t.Fatalf("unregistered chatter rejected: %v", resp)
	}
	if resp["exp_awarded"] != false {
		t.Errorf("exp_awarded = %v, want false", resp["exp_awarded"])
	}
}

func TestSRSHandler_RequestSong_Validation(t *testing.T) {
	handler, _ := newTestSRSHandler(t, nil)

	rec := postJSON(t, handler.RequestSong, "/api/srs/request-song",
		models.RequestSongRequest{SongTitle: "", UserName: "viewer"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSRSHandler_RemoveSong(t *testing.T) {
	handler, srs := newTestSRSHandler(t, nil)
	srs.Request("africa", "viewer", nil)

	rec := postJSON(t, handler.RemoveSong, "/api/srs/remove-song", struct{}{})
	resp := decodeMap(t, rec)
	if resp["success"] != true {
		t.Fatalf("remove failed: %v", resp)
	}

	rec = postJSON(t, handler.RemoveSong, "/api/srs/remove-song", struct{}{})
	resp = decodeMap(t, rec)
	if resp["error"] != services.CodeEmpty {
		t.Errorf("error = %v, want %s", resp["error"], services.CodeEmpty)
	}
}

func TestSRSHandler_RequestStatus(t *testing.T) {
	handler, srs := newTestSRSHandler(t, nil)

	rec := postJSON(t, handler.RequestStatus, "/api/srs/request-status",
		models.RequestStatusRequest{Toggle: "off"})
	resp := decodeMap(t, rec)
	if resp["success"] != true || resp["requests_open"] != false {
		t.Errorf("toggle off: %v", resp)
	}
	if srs.RequestsOpen() {
		t.Error("requests still open after toggle off")
	}

	rec = postJSON(t, handler.RequestStatus, "/api/srs/request-status",
		models.RequestStatusRequest{Toggle: "sideways"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTourneyHandler_EffectValidation(t *testing.T) {
	hub := &fakeHub{}
	effects := services.NewEffectRegistry(hub)
	handler := NewTourneyHandler(nil, nil, effects, nil, &config.Config{})

	rec := postJSON(t, handler.Effect, "/api/tourney/effect",
		models.EffectRequest{TeamNumber: 2, EffectType: "block_team", Details: "EMP"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if effect, ok := effects.ConsumeIfPresent(2); !ok || effect.Reason != "EMP" {
		t.Errorf("effect = %+v ok=%v, want armed with EMP", effect, ok)
	}

	// Blank details fall back to the default reason.
	postJSON(t, handler.Effect, "/api/tourney/effect",
		models.EffectRequest{TeamNumber: 1, EffectType: "block_team"})
	if effect, _ := effects.ConsumeIfPresent(1); effect.Reason != services.DefaultBlockReason {
		t.Errorf("Reason = %q, want default", effect.Reason)
	}

	tests := []struct {
		name string
		req  models.EffectRequest
	}{
		{"unknown team", models.EffectRequest{TeamNumber: 9, EffectType: "block_team"}},
		{"unknown effect", models.EffectRequest{TeamNumber: 1, EffectType: "tailwind"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Effect, "/api/tourney/effect", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

// memUserStore backs profile-surface tests with real get-or-create behavior.
type memUserStore struct {
	nextID   int64
	byTwitch map[string]db.User
	stats    map[string]int64
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		nextID:   1,
		byTwitch: make(map[string]db.User),
		stats:    make(map[string]int64),
	}
}

func (m *memUserStore) GetUserByTwitchID(ctx context.Context, twitchID string) (db.User, error) {
	user, ok := m.byTwitch[twitchID]
	if !ok {
		return db.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (m *memUserStore) CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error) {
	user := db.User{
		ID:                m.nextID,
		TwitchID:          arg.TwitchID,
		TwitchDisplayName: arg.TwitchDisplayName,
		IsPremium:         arg.IsPremium,
	}
	m.nextID++
	m.byTwitch[arg.TwitchID] = user
	return user, nil
}

func (m *memUserStore) UpdateUser(ctx context.Context, arg db.UpdateUserParams) error { return nil }
func (m *memUserStore) AddUserExp(ctx context.Context, userID int64, exp int64) error { return nil }
func (m *memUserStore) UpsertUserStat(ctx context.Context, arg db.UpsertUserStatParams) error {
	m.stats[arg.StatKey] += arg.StatValue
	return nil
}

// memCardStore is an in-memory card collection for profile-surface tests.
type memCardStore struct {
	owned    map[int64]map[int64]bool
	defaults map[int64]int64
	catalog  map[int64]db.Card
}

func newMemCardStore() *memCardStore {
	return &memCardStore{
		owned:    make(map[int64]map[int64]bool),
		defaults: make(map[int64]int64),
		catalog:  make(map[int64]db.Card),
	}
}

func (m *memCardStore) UserOwnsCard(ctx context.Context, userID, cardID int64) (bool, error) {
	return m.owned[userID][cardID], nil
}

func (m *memCardStore) ClearDefaultCard(ctx context.Context, userID int64) error {
	m.defaults[userID] = 0
	return nil
}

func (m *memCardStore) InsertUserCard(ctx context.Context, userID, cardID int64) error {
	if m.owned[userID] == nil {
		m.owned[userID] = make(map[int64]bool)
	}
	m.owned[userID][cardID] = true
	m.defaults[userID] = cardID
	return nil
}

func (m *memCardStore) SetDefaultCard(ctx context.Context, userID, cardID int64) error {
	m.defaults[userID] = cardID
	return nil
}

func (m *memCardStore) ListUserCards(ctx context.Context, userID int64) ([]db.UserCard, error) {
	ids := make([]int64, 0, len(m.owned[userID]))
	for id := range m.owned[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []db.UserCard
	for _, id := range ids {
		card, ok := m.catalog[id]
		if !ok {
			card = db.Card{ID: id}
		}
		out = append(out, db.UserCard{Card: card, IsDefault: m.defaults[userID] == id})
	}
	return out, nil
}

func (m *memCardStore) ListPullableCards(ctx context.Context, includePremium bool) ([]db.Card, error) {
	return nil, nil
}

func newTestProfileEnv() (*services.UserService, *services.CardService, *memUserStore, *memCardStore) {
	users := newMemUserStore()
	cards := newMemCardStore()
	cards.catalog[1] = db.Card{ID: 1, Name: "Standard", Sysname: "standard"}
	cards.catalog[2] = db.Card{ID: 2, Name: "Premium", Sysname: "premium", IsPremium: true}
	return services.NewUserService(users), services.NewCardService(cards), users, cards
}

func TestUsersHandler_CheckIn(t *testing.T) {
	userSvc, cardSvc, users, _ := newTestProfileEnv()
	handler := NewUsersHandler(userSvc, cardSvc, nil)

	rec := postJSON(t, handler.CheckIn, "/api/check-in",
		models.RegisterTourneyRequest{TwitchID: "555", DisplayName: "viewer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeMap(t, rec)
	if resp["default_card_name"] != "standard" {
		t.Errorf("default_card_name = %v, want standard", resp["default_card_name"])
	}
	if users.stats["checkin_count"] != 1 {
		t.Errorf("checkin_count = %d, want 1", users.stats["checkin_count"])
	}

	// Missing identity is a validation error.
	rec = postJSON(t, handler.CheckIn, "/api/check-in", models.RegisterTourneyRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUsersHandler_LoginWidget(t *testing.T) {
	userSvc, cardSvc, _, _ := newTestProfileEnv()
	handler := NewUsersHandler(userSvc, cardSvc, nil)

	premium := true
	rec := postJSON(t, handler.LoginWidget, "/api/login-widget",
		models.RegisterTourneyRequest{TwitchID: "556", DisplayName: "copilot", IsPremium: &premium})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeMap(t, rec)
	if resp["title"] != "Cadet" {
		t.Errorf("title = %v, want Cadet", resp["title"])
	}
	card, ok := resp["user_card"].(map[string]any)
	if !ok {
		t.Fatalf("user_card missing from response: %v", resp)
	}
	if card["sysname"] != "premium" {
		t.Errorf("user_card sysname = %v, want premium starter", card["sysname"])
	}
}

func TestCardsHandler_ChangeCard(t *testing.T) {
	userSvc, cardSvc, _, cards := newTestProfileEnv()
	cards.catalog[9] = db.Card{ID: 9, Name: "Blackbird", Sysname: "blackbird"}
	handler := NewCardsHandler(cardSvc, userSvc)
	ctx := context.Background()

	user, err := userSvc.GetOrCreateByTwitchID(ctx, "555", "viewer", nil, nil)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, id := range []int64{1, 9} {
		if _, err := cardSvc.AddCardToUser(ctx, user.ID, id); err != nil {
			t.Fatalf("seed card %d: %v", id, err)
		}
	}

	rec := postJSON(t, handler.ChangeCard, "/api/change-card",
		models.ChangeCardRequest{TwitchID: "555", DisplayName: "viewer", NewCardName: "standard"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeMap(t, rec)
	if resp["success"] != true || resp["new_card"] != "standard" {
		t.Errorf("response = %v, want successful switch to standard", resp)
	}

	// An unowned card is a 200 with a typed rejection.
	rec = postJSON(t, handler.ChangeCard, "/api/change-card",
		models.ChangeCardRequest{TwitchID: "555", DisplayName: "viewer", NewCardName: "concorde"})
	resp = decodeMap(t, rec)
	if rec.Code != http.StatusOK || resp["success"] != false {
		t.Errorf("unowned card: status %d success %v, want 200/false", rec.Code, resp["success"])
	}

	rec = postJSON(t, handler.ChangeCard, "/api/change-card",
		models.ChangeCardRequest{TwitchID: "555"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

type stubRankingStore struct {
	ranked []db.RankedUser
}

func (s stubRankingStore) ExpRanking(ctx context.Context, limit int) ([]db.RankedUser, error) {
	return s.ranked, nil
}

func TestUsersHandler_ExpRank(t *testing.T) {
	ranking := services.NewRankingService(stubRankingStore{ranked: []db.RankedUser{
		{ID: 1, TwitchDisplayName: "maverick", Exp: 120},
	}})
	handler := NewUsersHandler(nil, nil, ranking)

	req := httptest.NewRequest(http.MethodGet, "/api/exp-rank", nil)
	rec := httptest.NewRecorder()
	handler.ExpRank(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeMap(t, rec)
	entries, ok := resp["ranking"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("ranking = %v, want one entry", resp["ranking"])
	}
	first := entries[0].(map[string]any)
	if first["display_name"] != "maverick" || first["title"] != "Ensign" {
		t.Errorf("entry = %v, want maverick as Ensign", first)
	}
}
