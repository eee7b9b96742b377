package services

import (
	"context"
	"fmt"

	"github.com/mainstage/backend/internal/db"
	"github.com/mainstage/backend/internal/models"
)

// expRankLimit caps the leaderboard length.
const expRankLimit = 10

// RankingStore is the persistence surface the ranking service needs.
// Satisfied by *db.Queries.
type RankingStore interface {
	ExpRanking(ctx context.Context, limit int) ([]db.RankedUser, error)
}

// RankingService builds the EXP leaderboard shown on the hub site.
type RankingService struct {
	store RankingStore
}

func NewRankingService(store RankingStore) *RankingService {
	return &RankingService{store: store}
}

// ExpRanking returns the top pilots by cumulative EXP, enriched with rank
// titles and team assignment.
func (s *RankingService) ExpRanking(ctx context.Context) ([]models.RankEntry, error) {
	ranked, err := s.store.ExpRanking(ctx, expRankLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read exp ranking: %w", err)
	}

	out := make([]models.RankEntry, 0, len(ranked))
	for i, u := range ranked {
		level := LevelForExp(u.Exp)
		entry := models.RankEntry{
			Rank:        i + 1,
			DisplayName: u.TwitchDisplayName,
			Exp:         u.Exp,
			IsPremium:   u.IsPremium,
			Level:       level.Level,
			Title:       level.Title,
			Progress:    level.Progress,
		}
		if u.TwitchAvatar.Valid {
			avatar := u.TwitchAvatar.String
			entry.Avatar = &avatar
		}
		if u.TeamNumber.Valid {
			team := TeamNames[int(u.TeamNumber.Int64)]
			entry.Team = &team
		}
		if u.ActiveCard.Valid {
			card := u.ActiveCard.String
			entry.ActiveCard = &card
		}
		out = append(out, entry)
	}
	return out, nil
}
