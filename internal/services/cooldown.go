package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CooldownStore reads the append-only score log. Satisfied by *db.Queries.
type CooldownStore interface {
	LatestCooldownTime(ctx context.Context, source string) (time.Time, error)
}

// CooldownStatus is the outcome of a cooldown check.
type CooldownStatus struct {
	Active           bool
	RemainingSeconds int
	WaitLabel        string
}

// CooldownGate answers whether a source acted too recently, computed from the
// newest cooldown-flagged log row at check time. It never writes; the caller
// decides whether to log after taking the gated action.
type CooldownGate struct {
	store CooldownStore
	now   func() time.Time
}

// NewCooldownGate creates a gate over the given log store.
func NewCooldownGate(store CooldownStore) *CooldownGate {
	return &CooldownGate{store: store, now: time.Now}
}

// Check reports whether source is still inside its cooldown window.
func (g *CooldownGate) Check(ctx context.Context, source string, window time.Duration) (CooldownStatus, error) {
	last, err := g.store.LatestCooldownTime(ctx, source)
	if errors.Is(err, sql.ErrNoRows) {
		return CooldownStatus{}, nil
	}
	if err != nil {
		return CooldownStatus{}, fmt.Errorf("failed to read cooldown log for %q: %w", source, err)
	}

	elapsed := g.now().Sub(last)
	if elapsed >= window {
		return CooldownStatus{}, nil
	}

	remaining := window - elapsed
	seconds := int(remaining.Round(time.Second).Seconds())
	return CooldownStatus{
		Active:           true,
		RemainingSeconds: seconds,
		WaitLabel:        waitLabel(seconds),
	}, nil
}

// waitLabel renders a remaining time for chat display: whole minutes when at
// least one minute remains, otherwise seconds.
func waitLabel(seconds int) string {
	if minutes := seconds / 60; minutes >= 1 {
		return fmt.Sprintf("%d %s", minutes, plural("minute", minutes))
	}
	return fmt.Sprintf("%d %s", seconds, plural("second", seconds))
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
