package db

import (
	"context"
	"database/sql"
)

const getUserByTwitchID = `
SELECT id, twitch_id, twitch_display_name, twitch_avatar, exp, is_premium, last_login, last_activity, created_at
FROM users WHERE twitch_id = ?`

func (q *Queries) GetUserByTwitchID(ctx context.Context, twitchID string) (User, error) {
	return q.scanUser(q.db.QueryRowContext(ctx, getUserByTwitchID, twitchID))
}

const getUserByID = `
SELECT id, twitch_id, twitch_display_name, twitch_avatar, exp, is_premium, last_login, last_activity, created_at
FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return q.scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByDisplayName = `
SELECT id, twitch_id, twitch_display_name, twitch_avatar, exp, is_premium, last_login, last_activity, created_at
FROM users WHERE twitch_display_name = ?`

func (q *Queries) GetUserByDisplayName(ctx context.Context, displayName string) (User, error) {
	return q.scanUser(q.db.QueryRowContext(ctx, getUserByDisplayName, displayName))
}

type CreateUserParams struct {
	TwitchID          string
	TwitchDisplayName string
	TwitchAvatar      sql.NullString
	IsPremium         bool
}

const createUser = `
INSERT INTO users (twitch_id, twitch_display_name, twitch_avatar, is_premium, last_login, last_activity)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	res, err := q.db.ExecContext(ctx, createUser, arg.TwitchID, arg.TwitchDisplayName, arg.TwitchAvatar, arg.IsPremium)
	if err != nil {
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return q.GetUserByID(ctx, id)
}

type UpdateUserParams struct {
	ID                int64
	TwitchDisplayName string
	TwitchAvatar      sql.NullString
	IsPremium         sql.NullBool
}

const updateUser = `
UPDATE users SET
    twitch_display_name = ?,
    twitch_avatar = COALESCE(?, twitch_avatar),
    is_premium = COALESCE(?, is_premium),
    last_login = CURRENT_TIMESTAMP,
    last_activity = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) error {
	_, err := q.db.ExecContext(ctx, updateUser, arg.TwitchDisplayName, arg.TwitchAvatar, arg.IsPremium, arg.ID)
	return err
}

const addUserExp = `
UPDATE users SET exp = exp + ?, last_activity = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) AddUserExp(ctx context.Context, userID int64, exp int64) error {
	_, err := q.db.ExecContext(ctx, addUserExp, exp, userID)
	return err
}

type UpsertUserStatParams struct {
	UserID    int64
	StatKey   string
	StatValue int64
	Increment bool
}

const upsertUserStatIncrement = `
INSERT INTO user_stats (user_id, stat_key, stat_value) VALUES (?, ?, ?)
ON CONFLICT (user_id, stat_key) DO UPDATE SET stat_value = stat_value + excluded.stat_value`

const upsertUserStatSet = `
INSERT INTO user_stats (user_id, stat_key, stat_value) VALUES (?, ?, ?)
ON CONFLICT (user_id, stat_key) DO UPDATE SET stat_value = excluded.stat_value`

func (q *Queries) UpsertUserStat(ctx context.Context, arg UpsertUserStatParams) error {
	query := upsertUserStatSet
	if arg.Increment {
		query = upsertUserStatIncrement
	}
	_, err := q.db.ExecContext(ctx, query, arg.UserID, arg.StatKey, arg.StatValue)
	return err
}

// expRanking ranks users by cumulative EXP, oldest account first on ties,
// carrying the member's team and active card when present.
const expRanking = `
SELECT u.id, u.twitch_display_name, u.twitch_avatar, u.exp, u.is_premium,
       tm.team_number, c.sysname
FROM users u
LEFT JOIN tourney_members tm ON tm.user_id = u.id
LEFT JOIN user_cards uc ON uc.user_id = u.id AND uc.is_default = 1
LEFT JOIN cards c ON c.id = uc.card_id
ORDER BY u.exp DESC, u.created_at
LIMIT ?`

func (q *Queries) ExpRanking(ctx context.Context, limit int) ([]RankedUser, error) {
	rows, err := q.db.QueryContext(ctx, expRanking, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RankedUser
	for rows.Next() {
		var u RankedUser
		if err := rows.Scan(&u.ID, &u.TwitchDisplayName, &u.TwitchAvatar, &u.Exp, &u.IsPremium, &u.TeamNumber, &u.ActiveCard); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

func (q *Queries) scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TwitchID, &u.TwitchDisplayName, &u.TwitchAvatar, &u.Exp, &u.IsPremium, &u.LastLogin, &u.LastActivity, &u.CreatedAt)
	return u, err
}
