package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ellisms1/frellis-cup/engine"
)

func newTestServer(t *testing.T) *Server {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, applyMigrations(db))

	r := chi.NewRouter()
	s := &Server{
		db:      db,
		r:       r,
		devMode: true,
		loginRateLimiter: limiter.New(memory.NewStore(), limiter.Rate{
			Period: time.Minute,
			Limit:  100,
		}),
	}
	s.registerRoutes()
	return s
}

func authToken(t *testing.T, username string, admin bool) string {
	claims := &Claims{
		Username: username,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtKey)
	assert.NoError(t, err)
	return tokenStr
}

func doRequest(s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	return rec
}

// setupYAML builds a small event: one team each side, a singles match on
// day 1 and a scramble match on day 2, each day on an all-par-4 course.
func setupYAML() string {
	var b strings.Builder
	b.WriteString(`teams:
  - id: red
    name: Team Ellis
  - id: blue
    name: Team Morris
players:
  - id: p1
    name: Walt Ellis
    team: red
    courseHandicap: 0
  - id: p2
    name: Sara Morris
    team: blue
    courseHandicap: 0
  - id: p3
    name: Ray Ellis
    team: red
    courseHandicap: 9
  - id: p4
    name: June Morris
    team: blue
    courseHandicap: 14
courses:
`)
	for day := 1; day <= 2; day++ {
		fmt.Fprintf(&b, "  - day: %d\n    name: Course %d\n    city: Concord\n    date: 2026-09-%02d\n    holes:\n", day, day, 10+day)
		for h := 1; h <= 18; h++ {
			fmt.Fprintf(&b, "      - number: %d\n        par: 4\n        handicapRank: %d\n", h, h)
		}
	}
	b.WriteString(`sides:
  - id: s1
    team: red
    players: [p1]
  - id: s2
    team: blue
    players: [p2]
  - id: s3
    team: red
    players: [p1, p3]
  - id: s4
    team: blue
    players: [p2, p4]
matches:
  - id: m1
    day: 1
    matchNo: 1
    format: singles-net
    sideA: s1
    sideB: s2
  - id: m2
    day: 2
    matchNo: 1
    format: scramble-stableford
    sideA: s3
    sideB: s4
`)
	return b.String()
}

func seedTestEvent(t *testing.T, s *Server) {
	assert.NoError(t, importSetup(s.db, []byte(setupYAML())))
}

func TestSetupImport(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)

	var teams, players, courses, holes, sides, matches int64
	s.db.Model(&Team{}).Count(&teams)
	s.db.Model(&Player{}).Count(&players)
	s.db.Model(&Course{}).Count(&courses)
	s.db.Model(&CourseHole{}).Count(&holes)
	s.db.Model(&Side{}).Count(&sides)
	s.db.Model(&Match{}).Count(&matches)
	assert.EqualValues(t, 2, teams)
	assert.EqualValues(t, 4, players)
	assert.EqualValues(t, 2, courses)
	assert.EqualValues(t, 36, holes)
	assert.EqualValues(t, 4, sides)
	assert.EqualValues(t, 2, matches)

	// Importing the same file again changes nothing.
	seedTestEvent(t, s)
	s.db.Model(&Player{}).Count(&players)
	s.db.Model(&CourseHole{}).Count(&holes)
	assert.EqualValues(t, 4, players)
	assert.EqualValues(t, 36, holes)
}

func TestSetupImportRejectsBadCourse(t *testing.T) {
	s := newTestServer(t)
	bad := strings.Replace(setupYAML(), "handicapRank: 18", "handicapRank: 1", 1)
	err := importSetup(s.db, []byte(bad))
	assert.Error(t, err)

	// Nothing was written.
	var teams int64
	s.db.Model(&Team{}).Count(&teams)
	assert.EqualValues(t, 0, teams)
}

func TestServer_POSTLoginHandler(t *testing.T) {
	s := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	s.db.Create(&DBCredentials{Username: "admin", PasswordHash: string(hash), Admin: true})

	rec := doRequest(s, http.MethodPost, "/login", "", Credentials{Username: "admin", Password: "letmein"})
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	assert.NotEmpty(t, cookies)
	assert.Equal(t, "auth_token", cookies[0].Name)

	rec = doRequest(s, http.MethodPost, "/login", "", Credentials{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_PUTScore(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	admin := authToken(t, "admin", true)

	// Admin can write any key.
	rec := doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p1", Hole: 1, Strokes: 4})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Writes are idempotent overwrites of the same key.
	rec = doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p1", Hole: 1, Strokes: 5})
	assert.Equal(t, http.StatusOK, rec.Code)
	var count int64
	s.db.Model(&GrossScore{}).Where("match_id = ?", "m1").Count(&count)
	assert.EqualValues(t, 1, count)
	var score GrossScore
	s.db.First(&score, "match_id = ? AND owner_id = ? AND hole_number = ?", "m1", "p1", 1)
	assert.Equal(t, 5, score.Strokes)

	// Out of range inputs are rejected before they reach storage.
	rec = doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p1", Hole: 19, Strokes: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p1", Hole: 1, Strokes: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// So are owners that don't play in the match.
	rec = doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p3", Hole: 1, Strokes: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Scramble scores are owned by the side, not the players.
	rec = doRequest(s, http.MethodPut, "/matches/m2/scores", admin, ScoreWrite{OwnerID: "s3", Hole: 1, Strokes: 4})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(s, http.MethodPut, "/matches/m2/scores", admin, ScoreWrite{OwnerID: "p1", Hole: 1, Strokes: 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ScoreAuthorization(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)

	// A login with no claimed player cannot score.
	walt := authToken(t, "walt", false)
	rec := doRequest(s, http.MethodPut, "/matches/m1/scores", walt, ScoreWrite{OwnerID: "p1", Hole: 1, Strokes: 4})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// After claiming p1 walt can score m1 (p1 plays in it)...
	rec = doRequest(s, http.MethodPost, "/claim", walt, ClaimRequest{PlayerID: "p1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(s, http.MethodPut, "/matches/m1/scores", walt, ScoreWrite{OwnerID: "p2", Hole: 1, Strokes: 4})
	assert.Equal(t, http.StatusOK, rec.Code)

	// ...but ray, who claimed p3, does not play on day 1.
	ray := authToken(t, "ray", false)
	rec = doRequest(s, http.MethodPost, "/claim", ray, ClaimRequest{PlayerID: "p3"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(s, http.MethodPut, "/matches/m1/scores", ray, ScoreWrite{OwnerID: "p1", Hole: 2, Strokes: 4})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_POSTClaim(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	walt := authToken(t, "walt", false)
	sara := authToken(t, "sara", false)

	rec := doRequest(s, http.MethodPost, "/claim", walt, ClaimRequest{PlayerID: "p1"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// One identity per player.
	rec = doRequest(s, http.MethodPost, "/claim", sara, ClaimRequest{PlayerID: "p1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// One player per identity.
	rec = doRequest(s, http.MethodPost, "/claim", walt, ClaimRequest{PlayerID: "p3"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown players cannot be claimed.
	rec = doRequest(s, http.MethodPost, "/claim", sara, ClaimRequest{PlayerID: "nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Releasing the claim frees the player up again.
	rec = doRequest(s, http.MethodDelete, "/claim", walt, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doRequest(s, http.MethodPost, "/claim", sara, ClaimRequest{PlayerID: "p1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_GETMatchScorecard(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	admin := authToken(t, "admin", true)

	// Walt wins the first two holes, the third is halved.
	for _, w := range []ScoreWrite{
		{OwnerID: "p1", Hole: 1, Strokes: 4}, {OwnerID: "p2", Hole: 1, Strokes: 5},
		{OwnerID: "p1", Hole: 2, Strokes: 3}, {OwnerID: "p2", Hole: 2, Strokes: 4},
		{OwnerID: "p1", Hole: 3, Strokes: 4}, {OwnerID: "p2", Hole: 3, Strokes: 4},
	} {
		rec := doRequest(s, http.MethodPut, "/matches/m1/scores", admin, w)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(s, http.MethodGet, "/matches/m1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var card engine.MatchScorecard
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&card))
	assert.Len(t, card.Holes, 18)
	assert.Equal(t, engine.StateInProgress, card.Status.State)
	assert.Equal(t, "2 Up Thru 3", card.Status.Label)
	assert.Equal(t, "s1", card.Status.LeaderSide)
	assert.Equal(t, 0.0, card.Points["red"])
	assert.Equal(t, 0.0, card.Points["blue"])
	assert.True(t, card.Holes[0].Played)
	assert.False(t, card.Holes[3].Played)
}

func TestServer_GETStandings(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	admin := authToken(t, "admin", true)

	// Walt takes the singles 18 up; the scramble ends level on points.
	for h := 1; h <= 18; h++ {
		doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p1", Hole: h, Strokes: 3})
		doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p2", Hole: h, Strokes: 4})
		doRequest(s, http.MethodPut, "/matches/m2/scores", admin, ScoreWrite{OwnerID: "s3", Hole: h, Strokes: 4})
		doRequest(s, http.MethodPut, "/matches/m2/scores", admin, ScoreWrite{OwnerID: "s4", Hole: h, Strokes: 4})
	}

	rec := doRequest(s, http.MethodGet, "/standings", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Totals map[string]float64 `json:"totals"`
		Leader string             `json:"leader"`
		Days   []engine.DayScore  `json:"days"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1.5, resp.Totals["red"])
	assert.Equal(t, 0.5, resp.Totals["blue"])
	assert.Equal(t, "Team Ellis", resp.Leader)
	assert.Len(t, resp.Days, 2)
	assert.Equal(t, 1.0, resp.Days[0].Totals["red"])

	// Day view matches the standings' day rollup.
	rec = doRequest(s, http.MethodGet, "/days/1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var day engine.DayScore
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&day))
	assert.Equal(t, "Final 18 Up", day.Matches[0].Status.Label)
	assert.Equal(t, 1.0, day.Totals["red"])
}

func TestServer_DELETEScoreReseed(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	admin := authToken(t, "admin", true)

	for h := 1; h <= 12; h++ {
		doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p1", Hole: h, Strokes: 3})
		doRequest(s, http.MethodPut, "/matches/m1/scores", admin, ScoreWrite{OwnerID: "p2", Hole: h, Strokes: 4})
	}

	rec := doRequest(s, http.MethodGet, "/matches/m1", "", nil)
	var card engine.MatchScorecard
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&card))
	assert.True(t, card.Status.IsFinal)
	assert.Equal(t, "Final 12&6", card.Status.Label)

	// Clearing every entry puts the match back to square one.
	rec = doRequest(s, http.MethodDelete, "/matches/m1/scores", admin, ScoreDelete{All: true})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(s, http.MethodGet, "/matches/m1", "", nil)
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&card))
	assert.Equal(t, engine.StateNotStarted, card.Status.State)
	assert.Equal(t, "Not Started", card.Status.Label)
	assert.Equal(t, 0.0, card.Points["red"])
	assert.Equal(t, 0.0, card.Points["blue"])
}

func TestServer_AdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	scorer := authToken(t, "walt", false)

	rec := doRequest(s, http.MethodPost, "/players", scorer, Player{Name: "Intruder", TeamID: "red"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(s, http.MethodPost, "/players", "", Player{Name: "Intruder", TeamID: "red"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_POSTMatchValidation(t *testing.T) {
	s := newTestServer(t)
	seedTestEvent(t, s)
	admin := authToken(t, "admin", true)

	// Singles format requires one-player sides.
	rec := doRequest(s, http.MethodPost, "/matches", admin, Match{
		Day: 1, MatchNo: 2, Format: "singles-net", SideAID: "s3", SideBID: "s2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Sides must come from opposing teams.
	rec = doRequest(s, http.MethodPost, "/matches", admin, Match{
		Day: 1, MatchNo: 2, Format: "fourball-net", SideAID: "s3", SideBID: "s3",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/matches", admin, Match{
		Day: 1, MatchNo: 2, Format: "fourball-net", SideAID: "s3", SideBID: "s4",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodPost, "/matches", admin, Match{
		Day: 1, MatchNo: 3, Format: "shamble", SideAID: "s3", SideBID: "s4",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
