package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mainstage/backend/internal/database"
)

func newTestDB(t *testing.T) (*Queries, *sql.DB) {
	t.Helper()
	sqlDB, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return New(sqlDB), sqlDB
}

func seedUser(t *testing.T, q *Queries, twitchID, name string) int64 {
	t.Helper()
	user, err := q.CreateUser(context.Background(), CreateUserParams{
		TwitchID:          twitchID,
		TwitchDisplayName: name,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user.ID
}

func TestTeamMVPs_TieBreaks(t *testing.T) {
	q, sqlDB := newTestDB(t)
	ctx := context.Background()

	alpha := seedUser(t, q, "100", "alpha")
	bravo := seedUser(t, q, "101", "bravo")
	charlie := seedUser(t, q, "102", "charlie")
	delta := seedUser(t, q, "103", "delta")

	for id, team := range map[int64]int{alpha: 1, bravo: 1, charlie: 2, delta: 2} {
		if err := q.InsertTourneyMember(ctx, id, team); err != nil {
			t.Fatalf("insert member %d: %v", id, err)
		}
	}

	// Team 1: an exact tie on points and update time. Team 2: equal points
	// with distinct update times.
	fixtures := []struct {
		userID     int64
		points     int
		lastUpdate string
	}{
		{alpha, 10, "2026-08-01 10:00:00"},
		{bravo, 10, "2026-08-01 10:00:00"},
		{charlie, 7, "2026-08-01 09:00:00"},
		{delta, 7, "2026-08-01 11:00:00"},
	}
	for _, fx := range fixtures {
		_, err := sqlDB.ExecContext(ctx,
			`UPDATE tourney_members SET points = ?, last_update = ? WHERE user_id = ?`,
			fx.points, fx.lastUpdate, fx.userID)
		if err != nil {
			t.Fatalf("set fixture for user %d: %v", fx.userID, err)
		}
	}

	mvps, err := q.TeamMVPs(ctx)
	if err != nil {
		t.Fatalf("TeamMVPs error: %v", err)
	}

	if len(mvps) != 2 {
		t.Fatalf("mvp rows = %d, want one per team: %+v", len(mvps), mvps)
	}
	if mvps[0].TeamNumber != 1 || mvps[0].MVP != "alpha" || mvps[0].MVPPoints != 10 {
		t.Errorf("team 1 MVP = %+v, want alpha with 10 points on an exact tie", mvps[0])
	}
	if mvps[1].TeamNumber != 2 || mvps[1].MVP != "delta" || mvps[1].MVPPoints != 7 {
		t.Errorf("team 2 MVP = %+v, want delta with 7 points via later update", mvps[1])
	}
}
