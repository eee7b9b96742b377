package models

// Admin console verification
type VerifyAdminRequest struct {
	PasswordHash string `json:"passwordHash"`
}

type VerifyAdminResponse struct {
	Valid bool   `json:"valid"`
	Token string `json:"token,omitempty"`
}

// Song request system
type RequestSongRequest struct {
	SongTitle string `json:"song_title"`
	UserName  string `json:"user_name"`
}

type RequestSiteRequest struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	UserName string `json:"user_name"`
}

type InitLibraryRequest struct {
	LibraryID string `json:"library_id"`
}

type RequestStatusRequest struct {
	Toggle string `json:"toggle"` // "on" or "off"
}

// QueueEntry is one pending song request. Entries are immutable after enqueue;
// the hub receives copies, never shared references.
type QueueEntry struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	User   string  `json:"user"`
	Avatar *string `json:"avatar,omitempty"`
}

// QueueStatus is the full request-system snapshot relayed to clients.
type QueueStatus struct {
	Status       bool         `json:"status"`
	Message      string       `json:"message"`
	ID           *string      `json:"id"`
	Title        string       `json:"title,omitempty"`
	Year         int          `json:"year,omitempty"`
	SongCount    int          `json:"song_count,omitempty"`
	RequestsOpen bool         `json:"requests_open"`
	QueueLength  int          `json:"queue_length"`
	Queue        []QueueEntry `json:"queue"`
}

// Tournament
type RegisterTourneyRequest struct {
	TwitchID    string  `json:"twitch_id"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar,omitempty"`
	IsPremium   *bool   `json:"is_premium,omitempty"`
}

type RegisterTourneyResponse struct {
	Success    bool   `json:"success"`
	TeamNumber int    `json:"team_number"`
	TeamName   string `json:"team_name"`
	Message    string `json:"message"`
}

type AwardPointsRequest struct {
	UserName string `json:"user_name"`
	Points   int    `json:"points"`
	Details  string `json:"details"`
}

type AwardPointsResponse struct {
	Success    bool   `json:"success"`
	TeamNumber int    `json:"team_number,omitempty"`
	TeamName   string `json:"team_name,omitempty"`
	Points     int    `json:"points,omitempty"`
	Message    string `json:"message"`
}

type TeamScore struct {
	TeamNumber  int     `json:"team_number"`
	TeamName    string  `json:"team_name"`
	TotalPoints int     `json:"total_points"`
	MVP         *string `json:"mvp"`
	MVPPoints   *int    `json:"mvp_points"`
}

type BlockedTeam struct {
	TeamNumber int    `json:"team_number"`
	Reason     string `json:"reason"`
}

type ActiveEffects struct {
	BlockedTeams []BlockedTeam `json:"blocked_teams"`
}

type ScoreboardResponse struct {
	Scores  []TeamScore   `json:"scores"`
	Effects ActiveEffects `json:"effects"`
}

type EffectRequest struct {
	TeamNumber int    `json:"team_number"`
	EffectType string `json:"effect_type"`
	Details    string `json:"details,omitempty"`
}

type CooldownRequest struct {
	UserName string `json:"user_name"`
	Minutes  int    `json:"minutes,omitempty"`
}

type CooldownResponse struct {
	Active           bool   `json:"active"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty"`
	WaitLabel        string `json:"wait_label,omitempty"`
}

// Pilot profile surface
type RankEntry struct {
	Rank        int     `json:"rank"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar,omitempty"`
	Exp         int64   `json:"exp"`
	IsPremium   bool    `json:"is_premium"`
	Level       int     `json:"level"`
	Title       string  `json:"title"`
	Progress    int     `json:"level_progress"`
	Team        *string `json:"team,omitempty"`
	ActiveCard  *string `json:"active_card,omitempty"`
}

type ChangeCardRequest struct {
	TwitchID    string `json:"twitch_id"`
	DisplayName string `json:"display_name"`
	NewCardName string `json:"new_card_name"`
}

type ChangeCardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	NewCard string `json:"new_card,omitempty"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
