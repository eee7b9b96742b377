package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TwitchService talks to the Helix API with an app access token. The token
// is cached under a read-write lock and refreshed with a one minute buffer
// before expiry.
type TwitchService struct {
	clientID     string
	clientSecret string
	channelName  string
	userID       string
	httpClient   *http.Client

	// overridable for tests
	authURL string
	apiURL  string

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
	isLive      bool
}

type twitchTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Stream is a live broadcast as returned by the streams endpoint.
type Stream struct {
	ID           string `json:"id"`
	UserLogin    string `json:"user_login"`
	GameName     string `json:"game_name"`
	Title        string `json:"title"`
	ViewerCount  int    `json:"viewer_count"`
	StartedAt    string `json:"started_at"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Video is an archived broadcast.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     string `json:"duration"`
	CreatedAt    string `json:"created_at"`
	ViewCount    int    `json:"view_count"`
}

// Clip is a viewer-created highlight.
type Clip struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	CreatorName  string `json:"creator_name"`
	ViewCount    int    `json:"view_count"`
	CreatedAt    string `json:"created_at"`
}

func NewTwitchService(clientID, clientSecret, channelName, userID string) *TwitchService {
	return &TwitchService{
		clientID:     clientID,
		clientSecret: clientSecret,
		channelName:  channelName,
		userID:       userID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		authURL: "https://id.twitch.tv/oauth2/token",
		apiURL:  "https://api.twitch.tv/helix",
	}
}

func (s *TwitchService) getAccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.token != "" && time.Until(s.tokenExpiry) > time.Minute {
		token := s.token
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.token != "" && time.Until(s.tokenExpiry) > time.Minute {
		return s.token, nil
	}

	data := url.Values{}
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", s.authURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed: %s", string(body))
	}

	var tokenResp twitchTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	s.token = tokenResp.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return s.token, nil
}

func (s *TwitchService) helixGet(ctx context.Context, path string, query url.Values, out any) error {
	token, err := s.getAccessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.apiURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", s.clientID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitch api returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetLiveData returns the current broadcast for the configured channel, or
// nil when the stream is offline. The thumbnail URL is resolved to 640x360.
func (s *TwitchService) GetLiveData(ctx context.Context) (*Stream, error) {
	q := url.Values{}
	q.Set("user_login", s.channelName)

	var body struct {
		Data []Stream `json:"data"`
	}
	if err := s.helixGet(ctx, "/streams", q, &body); err != nil {
		return nil, err
	}

	if len(body.Data) == 0 {
		s.setLive(false)
		return nil, nil
	}

	stream := body.Data[0]
	stream.ThumbnailURL = ResizeThumbnail(stream.ThumbnailURL, 640, 360)
	s.setLive(true)

	slog.Info("stream is live",
		slog.String("channel", s.channelName),
		slog.String("title", stream.Title),
		slog.Int("viewers", stream.ViewerCount))

	return &stream, nil
}

// GetVODs returns the channel's most recent archived broadcasts.
func (s *TwitchService) GetVODs(ctx context.Context) ([]Video, error) {
	q := url.Values{}
	q.Set("user_id", s.userID)
	q.Set("type", "archive")
	q.Set("first", "8")

	var body struct {
		Data []Video `json:"data"`
	}
	if err := s.helixGet(ctx, "/videos", q, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// GetClips returns the channel's most recent clips.
func (s *TwitchService) GetClips(ctx context.Context) ([]Clip, error) {
	q := url.Values{}
	q.Set("broadcaster_id", s.userID)
	q.Set("first", "20")

	var body struct {
		Data []Clip `json:"data"`
	}
	if err := s.helixGet(ctx, "/clips", q, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

func (s *TwitchService) setLive(live bool) {
	s.mu.Lock()
	s.isLive = live
	s.mu.Unlock()
}

// IsLive reports the live state from the most recent GetLiveData call.
func (s *TwitchService) IsLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLive
}

// HasToken reports whether a usable cached app token is held.
func (s *TwitchService) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && time.Until(s.tokenExpiry) > time.Minute
}

// ResizeThumbnail fills in the template dimensions Helix returns in
// thumbnail URLs.
func ResizeThumbnail(u string, width, height int) string {
	if u == "" {
		return ""
	}
	r := strings.NewReplacer(
		"%{width}", fmt.Sprintf("%d", width),
		"%{height}", fmt.Sprintf("%d", height),
		"{width}", fmt.Sprintf("%d", width),
		"{height}", fmt.Sprintf("%d", height),
	)
	return r.Replace(u)
}
