package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mainstage/backend/internal/db"
	"github.com/mainstage/backend/internal/models"
)

// ErrNoPullableCards means the pull pool is empty for the requested tier.
var ErrNoPullableCards = errors.New("no cards available for pulling")

// Starter cards issued on a user's first contact with the card system.
const (
	cardStandardID int64 = 1
	cardPremiumID  int64 = 2
)

// CardStore is the persistence surface the card service needs.
// Satisfied by *db.Queries.
type CardStore interface {
	UserOwnsCard(ctx context.Context, userID, cardID int64) (bool, error)
	ClearDefaultCard(ctx context.Context, userID int64) error
	InsertUserCard(ctx context.Context, userID, cardID int64) error
	SetDefaultCard(ctx context.Context, userID, cardID int64) error
	ListUserCards(ctx context.Context, userID int64) ([]db.UserCard, error)
	ListPullableCards(ctx context.Context, includePremium bool) ([]db.Card, error)
}

// CardService manages pilot card collections and gacha pulls.
type CardService struct {
	store CardStore

	mu  sync.Mutex
	rng *rand.Rand
}

func NewCardService(store CardStore) *CardService {
	return &CardService{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AddCardToUser issues a card and makes it the user's default. Returns false
// without writing when the card is already owned or the id is the "Try Again"
// placeholder (id 0 or below).
func (s *CardService) AddCardToUser(ctx context.Context, userID, cardID int64) (bool, error) {
	if cardID <= 0 {
		return false, nil
	}

	owned, err := s.store.UserOwnsCard(ctx, userID, cardID)
	if err != nil {
		return false, fmt.Errorf("failed to check card ownership: %w", err)
	}
	if owned {
		return false, nil
	}

	if err := s.store.ClearDefaultCard(ctx, userID); err != nil {
		return false, fmt.Errorf("failed to clear default card: %w", err)
	}
	if err := s.store.InsertUserCard(ctx, userID, cardID); err != nil {
		return false, fmt.Errorf("failed to issue card %d to user %d: %w", cardID, userID, err)
	}
	return true, nil
}

// Collection returns the user's cards, issuing the starter card on first
// contact. Premium users who were first seen through a surface that could not
// tell their status get the premium card backfilled and made default.
func (s *CardService) Collection(ctx context.Context, userID int64, isPremium bool) ([]db.UserCard, error) {
	cards, err := s.store.ListUserCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards for user %d: %w", userID, err)
	}

	if len(cards) == 0 {
		starter := cardStandardID
		if isPremium {
			starter = cardPremiumID
		}
		if _, err := s.AddCardToUser(ctx, userID, starter); err != nil {
			return nil, err
		}
		return s.store.ListUserCards(ctx, userID)
	}

	if isPremium && !ownsCard(cards, cardPremiumID) {
		if _, err := s.AddCardToUser(ctx, userID, cardPremiumID); err != nil {
			return nil, err
		}
		return s.store.ListUserCards(ctx, userID)
	}
	return cards, nil
}

func ownsCard(cards []db.UserCard, cardID int64) bool {
	for _, c := range cards {
		if c.ID == cardID {
			return true
		}
	}
	return false
}

// DefaultCard picks the active card out of a collection, nil if none is set.
func DefaultCard(cards []db.UserCard) *db.UserCard {
	for i := range cards {
		if cards[i].IsDefault {
			return &cards[i]
		}
	}
	return nil
}

// SetActiveCard makes the named card the user's default. The card has to be
// in the user's collection already; switching to the current default is a
// well-formed non-success.
func (s *CardService) SetActiveCard(ctx context.Context, userID int64, sysname string) (models.ChangeCardResponse, error) {
	cards, err := s.store.ListUserCards(ctx, userID)
	if err != nil {
		return models.ChangeCardResponse{}, fmt.Errorf("failed to load cards for user %d: %w", userID, err)
	}

	var target *db.UserCard
	for i := range cards {
		if cards[i].Sysname == sysname {
			target = &cards[i]
			break
		}
	}
	if target == nil {
		return models.ChangeCardResponse{
			Message: "I couldn't find this card in your Frequent Flyer membership. Please double-check and try again.",
		}, nil
	}
	if target.IsDefault {
		return models.ChangeCardResponse{
			Message: "You're already using this card :)",
		}, nil
	}

	if err := s.store.ClearDefaultCard(ctx, userID); err != nil {
		return models.ChangeCardResponse{}, fmt.Errorf("failed to clear default card: %w", err)
	}
	if err := s.store.SetDefaultCard(ctx, userID, target.ID); err != nil {
		return models.ChangeCardResponse{}, fmt.Errorf("failed to set active card: %w", err)
	}

	label := target.Name
	if target.IsPremium {
		label = "Premium " + label
	}
	return models.ChangeCardResponse{
		Success: true,
		Message: fmt.Sprintf("You are now using your %s Card as your active card!", label),
		NewCard: target.Sysname,
	}, nil
}

// PerformGacha draws one card from the pull pool, weighted by spawn rate.
// Premium users draw from the full pool including premium cards.
func (s *CardService) PerformGacha(ctx context.Context, isPremium bool) (db.Card, error) {
	cards, err := s.store.ListPullableCards(ctx, isPremium)
	if err != nil {
		return db.Card{}, fmt.Errorf("failed to load pull pool: %w", err)
	}
	if len(cards) == 0 {
		return db.Card{}, ErrNoPullableCards
	}
	return s.weightedRandom(cards), nil
}

func (s *CardService) weightedRandom(cards []db.Card) db.Card {
	var total float64
	for _, c := range cards {
		total += c.SpawnRate.Float64
	}

	s.mu.Lock()
	roll := s.rng.Float64() * total
	s.mu.Unlock()

	var cumulative float64
	for _, c := range cards {
		cumulative += c.SpawnRate.Float64
		if roll <= cumulative {
			return c
		}
	}
	return cards[len(cards)-1]
}
