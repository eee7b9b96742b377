package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/mainstage/backend/internal/db"
)

// EXP multipliers applied on award. Global scales everything, used for
// boost weekends.
const (
	expStandard = 1.0
	expPremium  = 1.15
	expGlobal   = 1.0
)

type levelStep struct {
	Level int
	Title string
	Exp   int64
}

// levelTable maps cumulative EXP thresholds to pilot ranks.
var levelTable = []levelStep{
	{Level: 1, Title: "Cadet", Exp: 0},
	{Level: 2, Title: "Ensign", Exp: 100},
	{Level: 3, Title: "Lieutenant", Exp: 300},
	{Level: 4, Title: "Captain", Exp: 700},
	{Level: 5, Title: "Commander", Exp: 1500},
	{Level: 6, Title: "Wing Commander", Exp: 3000},
	{Level: 7, Title: "Ace", Exp: 6000},
	{Level: 8, Title: "Veteran Ace", Exp: 12000},
	{Level: 9, Title: "Sky Marshal", Exp: 25000},
	{Level: 10, Title: "Legend", Exp: 50000},
}

// PlayerLevel is a user's rank derived from cumulative EXP.
type PlayerLevel struct {
	Level    int    `json:"level"`
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

// UserStore is the persistence surface the user service needs.
// Satisfied by *db.Queries.
type UserStore interface {
	GetUserByTwitchID(ctx context.Context, twitchID string) (db.User, error)
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	UpdateUser(ctx context.Context, arg db.UpdateUserParams) error
	AddUserExp(ctx context.Context, userID int64, exp int64) error
	UpsertUserStat(ctx context.Context, arg db.UpsertUserStatParams) error
}

// UserService manages Twitch-backed user records, EXP, and activity stats.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// GetOrCreateByTwitchID returns the user for the given Twitch identity,
// registering them on first contact. Known users get their display name,
// avatar, and premium flag refreshed from the caller's current values.
func (s *UserService) GetOrCreateByTwitchID(ctx context.Context, twitchID, displayName string, avatar *string, isPremium *bool) (db.User, error) {
	user, err := s.store.GetUserByTwitchID(ctx, twitchID)
	if errors.Is(err, sql.ErrNoRows) {
		params := db.CreateUserParams{
			TwitchID:          twitchID,
			TwitchDisplayName: displayName,
		}
		if avatar != nil {
			params.TwitchAvatar = sql.NullString{String: *avatar, Valid: true}
		}
		if isPremium != nil {
			params.IsPremium = *isPremium
		}
		created, err := s.store.CreateUser(ctx, params)
		if err != nil {
			return db.User{}, fmt.Errorf("failed to register user %q: %w", displayName, err)
		}
		slog.Info("user registered", slog.String("twitch_id", twitchID), slog.String("name", displayName))
		return created, nil
	}
	if err != nil {
		return db.User{}, fmt.Errorf("failed to look up user %q: %w", twitchID, err)
	}

	update := db.UpdateUserParams{
		ID:                user.ID,
		TwitchDisplayName: displayName,
	}
	if avatar != nil {
		update.TwitchAvatar = sql.NullString{String: *avatar, Valid: true}
	}
	if isPremium != nil {
		update.IsPremium = sql.NullBool{Bool: *isPremium, Valid: true}
	}
	if err := s.store.UpdateUser(ctx, update); err != nil {
		return db.User{}, fmt.Errorf("failed to refresh user %q: %w", displayName, err)
	}

	user.TwitchDisplayName = displayName
	if avatar != nil {
		user.TwitchAvatar = sql.NullString{String: *avatar, Valid: true}
	}
	if isPremium != nil {
		user.IsPremium = *isPremium
	}
	return user, nil
}

// AwardExp adds base EXP scaled by the user's premium multiplier.
func (s *UserService) AwardExp(ctx context.Context, userID int64, isPremium bool, baseExp int64) error {
	mult := expStandard
	if isPremium {
		mult = expPremium
	}
	total := int64(math.Round(float64(baseExp) * mult * expGlobal))
	if err := s.store.AddUserExp(ctx, userID, total); err != nil {
		return fmt.Errorf("failed to award exp to user %d: %w", userID, err)
	}
	return nil
}

// IncrementStat bumps a counter stat by value, creating the row on first use.
func (s *UserService) IncrementStat(ctx context.Context, userID int64, key string, value int64) error {
	err := s.store.UpsertUserStat(ctx, db.UpsertUserStatParams{
		UserID:    userID,
		StatKey:   key,
		StatValue: value,
		Increment: true,
	})
	if err != nil {
		return fmt.Errorf("failed to update stat %q for user %d: %w", key, userID, err)
	}
	return nil
}

// SetStat overwrites a stat with value.
func (s *UserService) SetStat(ctx context.Context, userID int64, key string, value int64) error {
	err := s.store.UpsertUserStat(ctx, db.UpsertUserStatParams{
		UserID:    userID,
		StatKey:   key,
		StatValue: value,
	})
	if err != nil {
		return fmt.Errorf("failed to set stat %q for user %d: %w", key, userID, err)
	}
	return nil
}

// LevelForExp resolves cumulative EXP to a rank and the percentage progress
// toward the next one. Progress is 100 at the table ceiling.
func LevelForExp(exp int64) PlayerLevel {
	current := levelTable[0]
	var next *levelStep
	for i := range levelTable {
		if exp < levelTable[i].Exp {
			next = &levelTable[i]
			break
		}
		current = levelTable[i]
	}

	progress := 100
	if next != nil {
		progress = int(float64(exp-current.Exp) / float64(next.Exp-current.Exp) * 100)
	}

	return PlayerLevel{Level: current.Level, Title: current.Title, Progress: progress}
}
