package main

import (
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Credentials struct {
	Username string `json:"username" gorm:"index"`
	Password string `json:"password"`
}

type PWChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

type DBCredentials struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
	Admin        bool
}

type Team struct {
	gorm.Model
	TeamID string `json:"teamId" gorm:"uniqueIndex"`
	Name   string `json:"name"`
}

type Course struct {
	gorm.Model
	Day   int            `json:"day" gorm:"uniqueIndex"`
	Name  string         `json:"name"`
	City  string         `json:"city"`
	Date  datatypes.Date `json:"date"`
	Holes []CourseHole   `json:"holes" gorm:"foreignKey:Day;references:Day"`
}

type CourseHole struct {
	gorm.Model
	Day          int `json:"-" gorm:"uniqueIndex:idx_day_hole"`
	HoleNumber   int `json:"number" gorm:"uniqueIndex:idx_day_hole"`
	Par          int `json:"par"`
	HandicapRank int `json:"handicapRank"`
}

type Player struct {
	gorm.Model
	PlayerID       string `json:"playerId" gorm:"uniqueIndex"`
	Name           string `json:"name"`
	TeamID         string `json:"teamId" gorm:"index"`
	CourseHandicap int    `json:"courseHandicap"`
}

// Side is one or two players competing as a unit. Player2ID is empty for
// singles sides.
type Side struct {
	gorm.Model
	SideID    string `json:"sideId" gorm:"uniqueIndex"`
	TeamID    string `json:"teamId"`
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`
}

type Match struct {
	gorm.Model
	MatchID string `json:"matchId" gorm:"uniqueIndex"`
	Day     int    `json:"day" gorm:"index"`
	MatchNo int    `json:"matchNo"`
	Format  string `json:"format"`
	SideAID string `json:"sideAId"`
	SideBID string `json:"sideBId"`
}

// GrossScore is one raw score entry: the strokes one player (or one side,
// for scramble matches) took on one hole. The unique index over
// (match, owner, hole) makes every write an idempotent overwrite of a
// single fine-grained key, so concurrent scorers on different keys never
// conflict.
type GrossScore struct {
	gorm.Model
	MatchID    string `json:"matchId" gorm:"uniqueIndex:idx_score_key"`
	OwnerID    string `json:"ownerId" gorm:"uniqueIndex:idx_score_key"`
	HoleNumber int    `json:"hole" gorm:"uniqueIndex:idx_score_key"`
	Strokes    int    `json:"strokes"`
}

// PlayerClaim links a login to the player it scores for. Both columns are
// unique: one identity per player, one player per identity.
type PlayerClaim struct {
	gorm.Model
	PlayerID string `json:"playerId" gorm:"uniqueIndex"`
	Username string `json:"username" gorm:"uniqueIndex"`
}

type ScoreWrite struct {
	OwnerID string `json:"ownerId"`
	Hole    int    `json:"hole"`
	Strokes int    `json:"strokes"`
}

type ScoreDelete struct {
	OwnerID string `json:"ownerId"`
	Hole    int    `json:"hole"`
	All     bool   `json:"all"`
}

type ClaimRequest struct {
	PlayerID string `json:"playerId"`
}

type NewUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Admin    bool   `json:"admin"`
}
