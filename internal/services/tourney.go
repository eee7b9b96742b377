package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/mainstage/backend/internal/db"
	"github.com/mainstage/backend/internal/models"
)

// TeamNames maps the fixed team numbers to their display names.
var TeamNames = map[int]string{
	1: "Afterburner",
	2: "Concorde",
	3: "Stratos",
}

// teamCards maps each team to its one-time registration bonus card.
var teamCards = map[int]int64{
	1: 25,
	2: 26,
	3: 27,
}

// TourneyStore is the persistence surface the scoring engine needs.
// Satisfied by *db.Queries.
type TourneyStore interface {
	GetUserByDisplayName(ctx context.Context, displayName string) (db.User, error)
	GetTourneyMember(ctx context.Context, userID int64) (db.TourneyMember, error)
	TeamPopulations(ctx context.Context) ([]db.TeamPopulation, error)
	InsertTourneyMember(ctx context.Context, userID int64, teamNumber int) error
	AddMemberPoints(ctx context.Context, userID int64, points int) error
	TeamTotals(ctx context.Context) ([]db.TeamTotal, error)
	TeamMVPs(ctx context.Context) ([]db.TeamMVP, error)
	InsertTourneyLog(ctx context.Context, arg db.InsertTourneyLogParams) error
}

// CardIssuer grants cards, used for the one-time team registration bonus.
// Satisfied by *CardService.
type CardIssuer interface {
	AddCardToUser(ctx context.Context, userID, cardID int64) (bool, error)
}

// TourneyService is the team-scoring engine. Registration and awards each run
// as one critical section under the service mutex: the balance-check-then-insert
// and the consume-effect-then-persist sequences are never interleaved across
// concurrent callers. Persistence always happens before any broadcast.
type TourneyService struct {
	store   TourneyStore
	effects *EffectRegistry
	cards   CardIssuer
	hub     Broadcaster

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTourneyService creates the scoring engine.
func NewTourneyService(store TourneyStore, effects *EffectRegistry, cards CardIssuer, hub Broadcaster) *TourneyService {
	return &TourneyService{
		store:   store,
		effects: effects,
		cards:   cards,
		hub:     hub,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register assigns the user to the least-populated team (uniform among ties)
// and issues the team's bonus card. Registration is terminal: an already
// assigned user gets a well-formed non-success result, never a reassignment.
func (s *TourneyService) Register(ctx context.Context, userID int64) (models.RegisterTourneyResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetTourneyMember(ctx, userID)
	if err == nil {
		name := TeamNames[existing.TeamNumber]
		return models.RegisterTourneyResponse{
			Success:    false,
			TeamNumber: existing.TeamNumber,
			TeamName:   name,
			Message:    fmt.Sprintf("You are already in %s! You have %d points.", name, existing.Points),
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.RegisterTourneyResponse{}, fmt.Errorf("failed to look up registration: %w", err)
	}

	populations, err := s.store.TeamPopulations(ctx)
	if err != nil {
		return models.RegisterTourneyResponse{}, fmt.Errorf("failed to read team populations: %w", err)
	}

	team := s.pickBalancedTeam(populations)
	if err := s.store.InsertTourneyMember(ctx, userID, team); err != nil {
		return models.RegisterTourneyResponse{}, fmt.Errorf("failed to register user %d: %w", userID, err)
	}

	// Bonus card grant is best-effort: the registration is already durable,
	// a failed grant must not undo it.
	if _, err := s.cards.AddCardToUser(ctx, userID, teamCards[team]); err != nil {
		slog.Error("failed to issue team card",
			slog.Int64("user_id", userID),
			slog.Int("team", team),
			slog.Any("error", err))
	}

	name := TeamNames[team]
	slog.Info("tourney registration", slog.Int64("user_id", userID), slog.String("team", name))

	return models.RegisterTourneyResponse{
		Success:    true,
		TeamNumber: team,
		TeamName:   name,
		Message:    fmt.Sprintf("Welcome to %s! Your team card has been added.", name),
	}, nil
}

// pickBalancedTeam returns a team drawn uniformly among those tied for the
// minimum population. Callers hold s.mu.
func (s *TourneyService) pickBalancedTeam(populations []db.TeamPopulation) int {
	minCount := -1
	for _, p := range populations {
		if minCount == -1 || p.Count < minCount {
			minCount = p.Count
		}
	}

	var candidates []int
	for _, p := range populations {
		if p.Count == minCount {
			candidates = append(candidates, p.TeamNumber)
		}
	}
	if len(candidates) == 0 {
		return 1
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// AwardPoints adds points to the submitter's team total. A pending block
// effect for the team is consumed and rejects the award, still logging a
// zero-point attempt row so the activity history stays complete. The durable
// write happens before the refresh broadcast in both branches.
func (s *TourneyService) AwardPoints(ctx context.Context, userName string, points int, details string) (models.AwardPointsResponse, error) {
	user, err := s.store.GetUserByDisplayName(ctx, userName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AwardPointsResponse{
			Message: fmt.Sprintf("User %s not found in database", userName),
		}, nil
	}
	if err != nil {
		return models.AwardPointsResponse{}, fmt.Errorf("failed to resolve user %q: %w", userName, err)
	}

	member, err := s.store.GetTourneyMember(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AwardPointsResponse{
			Message: fmt.Sprintf("%s is not registered for the tournament", userName),
		}, nil
	}
	if err != nil {
		return models.AwardPointsResponse{}, fmt.Errorf("failed to resolve team for %q: %w", userName, err)
	}

	teamName := TeamNames[member.TeamNumber]

	s.mu.Lock()
	defer s.mu.Unlock()

	if effect, ok := s.effects.ConsumeIfPresent(member.TeamNumber); ok {
		logErr := s.store.InsertTourneyLog(ctx, db.InsertTourneyLogParams{
			Source:      userName,
			Points:      0,
			Details:     "BLOCKED: " + effect.Reason,
			HasCooldown: false,
		})
		if logErr != nil {
			slog.Error("failed to log blocked award", slog.String("user", userName), slog.Any("error", logErr))
		}

		s.hub.Broadcast(models.Event{Type: models.EventScoreUpdate})

		return models.AwardPointsResponse{
			Success:    false,
			TeamNumber: member.TeamNumber,
			TeamName:   teamName,
			Message:    fmt.Sprintf("Your team %s is grounded: %s", teamName, effect.Reason),
		}, nil
	}

	if err := s.store.AddMemberPoints(ctx, user.ID, points); err != nil {
		return models.AwardPointsResponse{}, fmt.Errorf("failed to persist points for %q: %w", userName, err)
	}

	// The cooldown-flagged log row is part of the durable award: without it
	// the next gated award for this submitter would pass early. The points
	// update above stays committed either way.
	if err := s.store.InsertTourneyLog(ctx, db.InsertTourneyLogParams{
		Source:      userName,
		Points:      points,
		Details:     details,
		HasCooldown: true,
	}); err != nil {
		return models.AwardPointsResponse{}, fmt.Errorf("failed to log awarded points for %q: %w", userName, err)
	}

	s.hub.Broadcast(models.Event{Type: models.EventScoreUpdate})

	slog.Info("points awarded",
		slog.String("user", userName),
		slog.String("team", teamName),
		slog.Int("points", points))

	return models.AwardPointsResponse{
		Success:    true,
		TeamNumber: member.TeamNumber,
		TeamName:   teamName,
		Points:     points,
		Message:    fmt.Sprintf("+%d points for %s!", points, teamName),
	}, nil
}

// Scoreboard aggregates per-team totals, each team's MVP, and active effects.
// Teams with no members still appear with zero points.
func (s *TourneyService) Scoreboard(ctx context.Context) (models.ScoreboardResponse, error) {
	totals, err := s.store.TeamTotals(ctx)
	if err != nil {
		return models.ScoreboardResponse{}, fmt.Errorf("failed to read team totals: %w", err)
	}

	mvps, err := s.store.TeamMVPs(ctx)
	if err != nil {
		return models.ScoreboardResponse{}, fmt.Errorf("failed to read team MVPs: %w", err)
	}

	totalByTeam := make(map[int]int, len(totals))
	for _, t := range totals {
		totalByTeam[t.TeamNumber] = t.TotalPoints
	}
	mvpByTeam := make(map[int]db.TeamMVP, len(mvps))
	for _, m := range mvps {
		mvpByTeam[m.TeamNumber] = m
	}

	teams := make([]int, 0, len(TeamNames))
	for team := range TeamNames {
		teams = append(teams, team)
	}
	sort.Ints(teams)

	scores := make([]models.TeamScore, 0, len(teams))
	for _, team := range teams {
		score := models.TeamScore{
			TeamNumber:  team,
			TeamName:    TeamNames[team],
			TotalPoints: totalByTeam[team],
		}
		if m, ok := mvpByTeam[team]; ok {
			mvp := m.MVP
			pts := m.MVPPoints
			score.MVP = &mvp
			score.MVPPoints = &pts
		}
		scores = append(scores, score)
	}

	return models.ScoreboardResponse{
		Scores:  scores,
		Effects: models.ActiveEffects{BlockedTeams: s.effects.List()},
	}, nil
}

// Standings returns the scoreboard entries sorted by total points, best first.
func (s *TourneyService) Standings(ctx context.Context) ([]models.TeamScore, error) {
	board, err := s.Scoreboard(ctx)
	if err != nil {
		return nil, err
	}
	scores := board.Scores
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].TotalPoints > scores[j].TotalPoints })
	return scores, nil
}
