package db

import "context"

const userOwnsCard = `
SELECT COUNT(*) FROM user_cards WHERE user_id = ? AND card_id = ?`

func (q *Queries) UserOwnsCard(ctx context.Context, userID, cardID int64) (bool, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, userOwnsCard, userID, cardID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

const clearDefaultCard = `
UPDATE user_cards SET is_default = 0 WHERE user_id = ?`

func (q *Queries) ClearDefaultCard(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, clearDefaultCard, userID)
	return err
}

const insertUserCard = `
INSERT INTO user_cards (user_id, card_id, is_default) VALUES (?, ?, 1)`

func (q *Queries) InsertUserCard(ctx context.Context, userID, cardID int64) error {
	_, err := q.db.ExecContext(ctx, insertUserCard, userID, cardID)
	return err
}

const setDefaultCard = `
UPDATE user_cards SET is_default = 1 WHERE user_id = ? AND card_id = ?`

func (q *Queries) SetDefaultCard(ctx context.Context, userID, cardID int64) error {
	_, err := q.db.ExecContext(ctx, setDefaultCard, userID, cardID)
	return err
}

const listUserCards = `
SELECT c.id, c.name, c.catalog_no, c.sysname, c.spawn_rate, c.is_premium, c.is_pull, c.is_active, uc.is_default
FROM cards c
JOIN user_cards uc ON uc.card_id = c.id
WHERE uc.user_id = ?
ORDER BY c.id`

func (q *Queries) ListUserCards(ctx context.Context, userID int64) ([]UserCard, error) {
	rows, err := q.db.QueryContext(ctx, listUserCards, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserCard
	for rows.Next() {
		var c UserCard
		if err := rows.Scan(&c.ID, &c.Name, &c.CatalogNo, &c.Sysname, &c.SpawnRate, &c.IsPremium, &c.IsPull, &c.IsActive, &c.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const listPullableCards = `
SELECT id, name, catalog_no, sysname, spawn_rate, is_premium, is_pull, is_active
FROM cards
WHERE spawn_rate IS NOT NULL AND is_pull = 1 AND is_active = 1 AND (is_premium = 0 OR ? = 1)
ORDER BY id`

func (q *Queries) ListPullableCards(ctx context.Context, includePremium bool) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, listPullableCards, includePremium)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.Name, &c.CatalogNo, &c.Sysname, &c.SpawnRate, &c.IsPremium, &c.IsPull, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
