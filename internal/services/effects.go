package services

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/mainstage/backend/internal/models"
)

// EffectKind is the closed set of one-shot effect variants. Only a block
// effect exists today; new kinds extend this set rather than a string map.
type EffectKind string

const (
	EffectBlockTeam EffectKind = "block_team"
)

// DefaultBlockReason is used when an activation carries no detail text.
const DefaultBlockReason = "System Malfunction"

// Effect is a pending one-shot penalty for a team.
type Effect struct {
	Kind   EffectKind
	Reason string
}

// EffectRegistry holds at most one pending effect per team, in process memory
// only. An effect is consumed at most once, when points are next awarded to
// that team. All access runs under the registry's own mutex so a consume is
// never interleaved with another caller.
type EffectRegistry struct {
	hub Broadcaster

	mu      sync.Mutex
	pending map[int]Effect
}

// NewEffectRegistry creates an empty registry.
func NewEffectRegistry(hub Broadcaster) *EffectRegistry {
	return &EffectRegistry{
		hub:     hub,
		pending: make(map[int]Effect),
	}
}

// Activate sets a block effect for the team, overwriting any pending one,
// and signals clients to refresh the scoreboard.
func (r *EffectRegistry) Activate(teamNumber int, reason string) {
	if reason == "" {
		reason = DefaultBlockReason
	}

	r.mu.Lock()
	r.pending[teamNumber] = Effect{Kind: EffectBlockTeam, Reason: reason}
	r.mu.Unlock()

	slog.Info("effect activated", slog.Int("team", teamNumber), slog.String("reason", reason))
	r.hub.Broadcast(models.Event{Type: models.EventScoreUpdate})
}

// ConsumeIfPresent atomically removes and returns the pending effect for the
// team. A second immediate call returns false.
func (r *EffectRegistry) ConsumeIfPresent(teamNumber int) (Effect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	effect, ok := r.pending[teamNumber]
	if ok {
		delete(r.pending, teamNumber)
	}
	return effect, ok
}

// Clear removes the pending effect for the team, if any, and signals a refresh.
func (r *EffectRegistry) Clear(teamNumber int) {
	r.mu.Lock()
	delete(r.pending, teamNumber)
	r.mu.Unlock()

	slog.Info("effect cleared", slog.Int("team", teamNumber))
	r.hub.Broadcast(models.Event{Type: models.EventScoreUpdate})
}

// List returns the pending effects ordered by team number, for status reporting.
func (r *EffectRegistry) List() []models.BlockedTeam {
	r.mu.Lock()
	out := make([]models.BlockedTeam, 0, len(r.pending))
	for team, effect := range r.pending {
		out = append(out, models.BlockedTeam{TeamNumber: team, Reason: effect.Reason})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TeamNumber < out[j].TeamNumber })
	return out
}
