package db

import (
	"context"
	"time"
)

const getTourneyMember = `
SELECT user_id, team_number, points, last_update FROM tourney_members WHERE user_id = ?`

func (q *Queries) GetTourneyMember(ctx context.Context, userID int64) (TourneyMember, error) {
	var m TourneyMember
	err := q.db.QueryRowContext(ctx, getTourneyMember, userID).
		Scan(&m.UserID, &m.TeamNumber, &m.Points, &m.LastUpdate)
	return m, err
}

// teamPopulations counts members per team, including empty teams, so balanced
// assignment sees zero-population teams.
const teamPopulations = `
WITH teams(team_number) AS (VALUES (1), (2), (3))
SELECT teams.team_number, COUNT(tm.user_id)
FROM teams
LEFT JOIN tourney_members tm ON tm.team_number = teams.team_number
GROUP BY teams.team_number
ORDER BY teams.team_number`

func (q *Queries) TeamPopulations(ctx context.Context) ([]TeamPopulation, error) {
	rows, err := q.db.QueryContext(ctx, teamPopulations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamPopulation
	for rows.Next() {
		var p TeamPopulation
		if err := rows.Scan(&p.TeamNumber, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const insertTourneyMember = `
INSERT INTO tourney_members (user_id, team_number) VALUES (?, ?)`

func (q *Queries) InsertTourneyMember(ctx context.Context, userID int64, teamNumber int) error {
	_, err := q.db.ExecContext(ctx, insertTourneyMember, userID, teamNumber)
	return err
}

const addMemberPoints = `
UPDATE tourney_members SET points = points + ?, last_update = CURRENT_TIMESTAMP WHERE user_id = ?`

func (q *Queries) AddMemberPoints(ctx context.Context, userID int64, points int) error {
	_, err := q.db.ExecContext(ctx, addMemberPoints, points, userID)
	return err
}

const teamTotals = `
SELECT team_number, COALESCE(SUM(points), 0)
FROM tourney_members
GROUP BY team_number
ORDER BY team_number`

func (q *Queries) TeamTotals(ctx context.Context) ([]TeamTotal, error) {
	rows, err := q.db.QueryContext(ctx, teamTotals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamTotal
	for rows.Next() {
		var t TeamTotal
		if err := rows.Scan(&t.TeamNumber, &t.TotalPoints); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// teamMVPs selects each team's highest scorer, ties broken by most recent
// update, then by lowest user id so an exact tie still yields one row per team.
const teamMVPs = `
SELECT tm.team_number, u.twitch_display_name, tm.points
FROM tourney_members tm
JOIN users u ON tm.user_id = u.id
WHERE NOT EXISTS (
    SELECT 1 FROM tourney_members t2
    WHERE t2.team_number = tm.team_number
      AND (t2.points > tm.points
           OR (t2.points = tm.points AND t2.last_update > tm.last_update)
           OR (t2.points = tm.points AND t2.last_update = tm.last_update AND t2.user_id < tm.user_id))
)
ORDER BY tm.team_number`

func (q *Queries) TeamMVPs(ctx context.Context) ([]TeamMVP, error) {
	rows, err := q.db.QueryContext(ctx, teamMVPs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamMVP
	for rows.Next() {
		var m TeamMVP
		if err := rows.Scan(&m.TeamNumber, &m.MVP, &m.MVPPoints); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type InsertTourneyLogParams struct {
	Source      string
	Points      int
	Details     string
	HasCooldown bool
}

const insertTourneyLog = `
INSERT INTO tourney_log (source, points, details, has_cooldown) VALUES (?, ?, ?, ?)`

func (q *Queries) InsertTourneyLog(ctx context.Context, arg InsertTourneyLogParams) error {
	_, err := q.db.ExecContext(ctx, insertTourneyLog, arg.Source, arg.Points, arg.Details, arg.HasCooldown)
	return err
}

const latestCooldownTime = `
SELECT transaction_time FROM tourney_log
WHERE source = ? AND has_cooldown = 1
ORDER BY transaction_time DESC, id DESC
LIMIT 1`

// LatestCooldownTime returns the timestamp of the newest cooldown-flagged log
// row for a source. Returns sql.ErrNoRows if the source has no such row.
func (q *Queries) LatestCooldownTime(ctx context.Context, source string) (time.Time, error) {
	var t time.Time
	err := q.db.QueryRowContext(ctx, latestCooldownTime, source).Scan(&t)
	return t, err
}
