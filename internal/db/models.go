package db

import (
	"database/sql"
	"time"
)

type User struct {
	ID                int64
	TwitchID          string
	TwitchDisplayName string
	TwitchAvatar      sql.NullString
	Exp               int64
	IsPremium         bool
	LastLogin         sql.NullTime
	LastActivity      sql.NullTime
	CreatedAt         time.Time
}

type TourneyMember struct {
	UserID     int64
	TeamNumber int
	Points     int
	LastUpdate time.Time
}

type TeamPopulation struct {
	TeamNumber int
	Count      int
}

type TeamTotal struct {
	TeamNumber  int
	TotalPoints int
}

type TeamMVP struct {
	TeamNumber int
	MVP        string
	MVPPoints  int
}

type Card struct {
	ID        int64
	Name      string
	CatalogNo string
	Sysname   string
	SpawnRate sql.NullFloat64
	IsPremium bool
	IsPull    bool
	IsActive  bool
}

// UserCard is a card as held in a user's collection.
type UserCard struct {
	Card
	IsDefault bool
}

// RankedUser is one leaderboard row with the member's team and active card.
type RankedUser struct {
	ID                int64
	TwitchDisplayName string
	TwitchAvatar      sql.NullString
	Exp               int64
	IsPremium         bool
	TeamNumber        sql.NullInt64
	ActiveCard        sql.NullString
}
