package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mainstage/backend/internal/hub"
)

// ComponentHealth is the status of one subsystem.
type ComponentHealth struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemHealth is the aggregated health report.
type SystemHealth struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Timestamp  string                     `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// UserCounter exposes the single aggregate the health check reads from the
// user table. Satisfied by *db.Queries.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// StatusService aggregates component health for the monitoring endpoint.
type StatusService struct {
	db        *sql.DB
	users     UserCounter
	twitch    *TwitchService
	srs       *SongRequestService
	hub       *hub.Hub
	version   string
	startTime time.Time
}

func NewStatusService(database *sql.DB, users UserCounter, twitch *TwitchService, srs *SongRequestService, h *hub.Hub, version string) *StatusService {
	return &StatusService{
		db:        database,
		users:     users,
		twitch:    twitch,
		srs:       srs,
		hub:       h,
		version:   version,
		startTime: time.Now(),
	}
}

// Health runs all component checks. Overall status is "healthy" only when
// every component is.
func (s *StatusService) Health(ctx context.Context) SystemHealth {
	components := map[string]ComponentHealth{
		"database":  s.checkDatabase(ctx),
		"twitch":    s.checkTwitch(),
		"srs":       s.checkSRS(),
		"websocket": s.checkHub(),
	}

	status := "healthy"
	for _, c := range components {
		if !c.Healthy {
			status = "degraded"
			break
		}
	}

	return SystemHealth{
		Status:     status,
		Version:    s.version,
		Uptime:     formatUptime(time.Since(s.startTime)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
}

func (s *StatusService) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return ComponentHealth{
			Healthy: false,
			Message: fmt.Sprintf("Database error: %v", err),
		}
	}
	elapsed := time.Since(start)

	details := map[string]any{
		"response_time": elapsed.Round(time.Millisecond).String(),
	}
	if count, err := s.users.CountUsers(ctx); err == nil {
		details["total_users"] = count
	}

	return ComponentHealth{
		Healthy: true,
		Message: "Database connected",
		Details: details,
	}
}

func (s *StatusService) checkTwitch() ComponentHealth {
	message := "Stream is offline"
	if s.twitch.IsLive() {
		message = "Stream is live"
	}
	return ComponentHealth{
		Healthy: true,
		Message: message,
		Details: map[string]any{
			"live":      s.twitch.IsLive(),
			"has_token": s.twitch.HasToken(),
		},
	}
}

func (s *StatusService) checkSRS() ComponentHealth {
	status := s.srs.Status()
	message := "Song request system not initialized"
	if status.Status {
		message = "Song request system initialized"
	}
	return ComponentHealth{
		Healthy: true,
		Message: message,
		Details: map[string]any{
			"library":       status.ID,
			"requests_open": status.RequestsOpen,
			"queue_length":  status.QueueLength,
		},
	}
}

func (s *StatusService) checkHub() ComponentHealth {
	stats := s.hub.Stats()
	return ComponentHealth{
		Healthy: true,
		Message: fmt.Sprintf("%d client(s) connected", stats.Clients),
		Details: map[string]any{
			"clients": stats.Clients,
		},
	}
}

func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds())
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours%24, minutes%60)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
