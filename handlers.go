package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ellisms1/frellis-cup/engine"
)

func (s *Server) POSTLoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Check if rate limit has been exceeded
	key := loginRateLimitKey(r, creds.Username)
	ctx, err := s.loginRateLimiter.Peek(r.Context(), key)
	if err != nil {
		http.Error(w, "Rate limiter error", http.StatusInternalServerError)
		return
	}
	if ctx.Reached {
		http.Error(w, "Too many failed login attempts", http.StatusTooManyRequests)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", creds.Username)
	if result.Error != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err = bcrypt.CompareHashAndPassword([]byte(dbCreds.PasswordHash), []byte(creds.Password))
	if err != nil {
		s.loginRateLimiter.Increment(r.Context(), key, 2)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	expiration := time.Now().Add(8 * time.Hour)
	claims := &Claims{
		Username: creds.Username,
		Admin:    dbCreds.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(jwtKey)
	if err != nil {
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}

	// Set HTTP-only JWT cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    tokenStr,
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusOK)
}

func loginRateLimitKey(r *http.Request, username string) string {
	ip := r.RemoteAddr
	return fmt.Sprintf("%s:%s", ip, username)
}

func (s *Server) POSTLogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   !s.devMode,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Unix(0, 0), // Expire immediately
		MaxAge:   -1,              // Force deletion
	})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) POSTAuthMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", claims.Username)
	if result.Error != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Include the player this login scores for, if one has been claimed.
	var claimedPlayer string
	var claim PlayerClaim
	if err := s.db.First(&claim, "username = ?", claims.Username).Error; err == nil {
		claimedPlayer = claim.PlayerID
	}

	json.NewEncoder(w).Encode(map[string]any{
		"authenticated": true,
		"username":      claims.Username,
		"admin":         claims.Admin,
		"playerId":      claimedPlayer,
	})
}

func (s *Server) POSTChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	var pwChangeReq PWChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&pwChangeReq); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	dbCreds := &DBCredentials{}
	result := s.db.First(dbCreds, "username = ?", claims.Username)
	if result.Error != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err := bcrypt.CompareHashAndPassword([]byte(dbCreds.PasswordHash), []byte(pwChangeReq.CurrentPassword))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pwChangeReq.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Could not check password", http.StatusInternalServerError)
		return
	}
	dbCreds.PasswordHash = string(hash)
	if err := s.db.Save(&dbCreds).Error; err != nil {
		http.Error(w, "Could not save password", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) POSTUserHandler(w http.ResponseWriter, r *http.Request) {
	var req NewUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req.Username = basicSanitize(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password must be set", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Could not hash password", http.StatusInternalServerError)
		return
	}
	user := DBCredentials{Username: req.Username, PasswordHash: string(hash), Admin: req.Admin}
	if err := s.db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Username already exists", http.StatusConflict)
		} else {
			http.Error(w, "Could not save user", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"username": user.Username})
}

func (s *Server) GETTeams(w http.ResponseWriter, r *http.Request) {
	var teams []Team
	if err := s.db.Order("team_id ASC").Find(&teams).Error; err != nil {
		http.Error(w, "Error fetching teams", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(teams)
}

func (s *Server) POSTTeam(w http.ResponseWriter, r *http.Request) {
	var team Team
	if err := json.NewDecoder(r.Body).Decode(&team); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	team.Name = basicSanitize(team.Name)
	if team.Name == "" {
		http.Error(w, "Team name must be set", http.StatusBadRequest)
		return
	}
	if team.TeamID == "" {
		team.TeamID = uuid.NewString()
	}

	// The event is contested between exactly two teams.
	var count int64
	if err := s.db.Model(&Team{}).Count(&count).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if count >= 2 {
		http.Error(w, "Both teams already exist", http.StatusConflict)
		return
	}

	if err := s.db.Create(&team).Error; err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Team already exists", http.StatusConflict)
		} else {
			http.Error(w, "Could not save team", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(team)
}

func (s *Server) GETCourses(w http.ResponseWriter, r *http.Request) {
	var courses []Course
	if err := s.db.Preload("Holes").Order("day ASC").Find(&courses).Error; err != nil {
		http.Error(w, "Error fetching courses", http.StatusInternalServerError)
		return
	}
	for i := range courses {
		sortHoles(courses[i].Holes)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(courses)
}

func (s *Server) GETCourse(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDayParam(w, r)
	if !ok {
		return
	}

	var course Course
	if err := s.db.Preload("Holes").First(&course, "day = ?", day).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}
	sortHoles(course.Holes)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(course)
}

func (s *Server) POSTCourse(w http.ResponseWriter, r *http.Request) {
	var course Course
	if err := json.NewDecoder(r.Body).Decode(&course); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	course.Name = basicSanitize(course.Name)
	course.City = basicSanitize(course.City)
	if course.Day < 1 {
		http.Error(w, "Day must be positive", http.StatusBadRequest)
		return
	}

	// Validate the full 18 hole layout before anything is saved.
	ec := engine.Course{Day: course.Day, Name: course.Name, City: course.City}
	for _, h := range course.Holes {
		ec.Holes = append(ec.Holes, engine.Hole{Number: h.HoleNumber, Par: h.Par, HandicapRank: h.HandicapRank})
	}
	if err := ec.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid course: %s", err.Error()), http.StatusBadRequest)
		return
	}

	for i := range course.Holes {
		course.Holes[i].Day = course.Day
	}
	if err := s.db.Create(&course).Error; err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Course already exists for that day", http.StatusConflict)
		} else {
			http.Error(w, "Could not save course", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(course)
}

func (s *Server) DELETECourse(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDayParam(w, r)
	if !ok {
		return
	}

	var course Course
	if err := s.db.First(&course, "day = ?", day).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	if err := s.db.Unscoped().Where("day = ?", day).Delete(&CourseHole{}).Error; err != nil {
		http.Error(w, "Failed to delete course holes", http.StatusInternalServerError)
		return
	}
	if err := s.db.Unscoped().Delete(&course).Error; err != nil {
		http.Error(w, "Failed to delete course", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GETPlayers(w http.ResponseWriter, r *http.Request) {
	var players []Player
	if err := s.db.Order("name ASC").Find(&players).Error; err != nil {
		http.Error(w, "Error fetching players", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(players)
}

func (s *Server) POSTPlayer(w http.ResponseWriter, r *http.Request) {
	var player Player
	if err := json.NewDecoder(r.Body).Decode(&player); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	player.Name = basicSanitize(player.Name)
	if player.Name == "" {
		http.Error(w, "Player name must be set", http.StatusBadRequest)
		return
	}
	if player.CourseHandicap < 0 {
		http.Error(w, "Handicap cannot be negative", http.StatusBadRequest)
		return
	}
	if !s.teamExists(player.TeamID) {
		http.Error(w, "Unknown team", http.StatusBadRequest)
		return
	}
	if player.PlayerID == "" {
		player.PlayerID = uuid.NewString()
	}

	if err := s.db.Create(&player).Error; err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Player already exists", http.StatusConflict)
		} else {
			http.Error(w, "Could not save player", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(player)
}

func (s *Server) PUTPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var existing Player
	if err := s.db.First(&existing, "player_id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Player not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	var updated Player
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if updated.CourseHandicap < 0 {
		http.Error(w, "Handicap cannot be negative", http.StatusBadRequest)
		return
	}

	existing.Name = basicSanitize(updated.Name)
	existing.CourseHandicap = updated.CourseHandicap
	if updated.TeamID != "" {
		if !s.teamExists(updated.TeamID) {
			http.Error(w, "Unknown team", http.StatusBadRequest)
			return
		}
		existing.TeamID = updated.TeamID
	}

	if err := s.db.Save(&existing).Error; err != nil {
		http.Error(w, "Could not update player", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(existing)
}

func (s *Server) DELETEPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	var player Player
	if err := s.db.First(&player, "player_id = ?", playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Player not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	if err := s.db.Unscoped().Where("player_id = ?", playerID).Delete(&PlayerClaim{}).Error; err != nil {
		http.Error(w, "Failed to delete player claim", http.StatusInternalServerError)
		return
	}
	if err := s.db.Unscoped().Delete(&player).Error; err != nil {
		http.Error(w, "Failed to delete player", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GETSides(w http.ResponseWriter, r *http.Request) {
	var sides []Side
	if err := s.db.Order("side_id ASC").Find(&sides).Error; err != nil {
		http.Error(w, "Error fetching sides", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sides)
}

func (s *Server) POSTSide(w http.ResponseWriter, r *http.Request) {
	var side Side
	if err := json.NewDecoder(r.Body).Decode(&side); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if side.Player1ID == "" {
		http.Error(w, "Side must have at least one player", http.StatusBadRequest)
		return
	}
	if !s.teamExists(side.TeamID) {
		http.Error(w, "Unknown team", http.StatusBadRequest)
		return
	}
	for _, pid := range []string{side.Player1ID, side.Player2ID} {
		if pid == "" {
			continue
		}
		var player Player
		if err := s.db.First(&player, "player_id = ?", pid).Error; err != nil {
			http.Error(w, fmt.Sprintf("Unknown player %s", pid), http.StatusBadRequest)
			return
		}
		if player.TeamID != side.TeamID {
			http.Error(w, fmt.Sprintf("Player %s is not on team %s", pid, side.TeamID), http.StatusBadRequest)
			return
		}
	}
	if side.SideID == "" {
		side.SideID = uuid.NewString()
	}

	if err := s.db.Create(&side).Error; err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Side already exists", http.StatusConflict)
		} else {
			http.Error(w, "Could not save side", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(side)
}

func (s *Server) GETMatches(w http.ResponseWriter, r *http.Request) {
	q := s.db.Order("day ASC, match_no ASC")
	if day := r.URL.Query().Get("day"); day != "" {
		q = q.Where("day = ?", day)
	}

	var matches []Match
	if err := q.Find(&matches).Error; err != nil {
		http.Error(w, "Error fetching matches", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}

func (s *Server) POSTMatch(w http.ResponseWriter, r *http.Request) {
	var match Match
	if err := json.NewDecoder(r.Body).Decode(&match); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	format, ok := parseFormat(match.Format)
	if !ok {
		http.Error(w, "Unknown format", http.StatusBadRequest)
		return
	}
	if match.Day < 1 {
		http.Error(w, "Day must be positive", http.StatusBadRequest)
		return
	}

	sideA, err := s.loadSideRecord(match.SideAID, format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sideB, err := s.loadSideRecord(match.SideBID, format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if sideA.TeamID == sideB.TeamID {
		http.Error(w, "Sides must be from opposing teams", http.StatusBadRequest)
		return
	}
	if match.MatchID == "" {
		match.MatchID = uuid.NewString()
	}

	if err := s.db.Create(&match).Error; err != nil {
		if isUniqueConstraintError(err) {
			http.Error(w, "Match already exists", http.StatusConflict)
		} else {
			http.Error(w, "Could not save match", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(match)
}

// loadSideRecord fetches a side and checks its roster size fits the match
// format: two players for fourball and scramble, one for singles.
func (s *Server) loadSideRecord(sideID string, format engine.Format) (*Side, error) {
	var side Side
	if err := s.db.First(&side, "side_id = ?", sideID).Error; err != nil {
		return nil, fmt.Errorf("Unknown side %s", sideID)
	}
	players := 1
	if side.Player2ID != "" {
		players = 2
	}
	want := 2
	if format == engine.SinglesNet {
		want = 1
	}
	if players != want {
		return nil, fmt.Errorf("Side %s has %d players, format needs %d", sideID, players, want)
	}
	return &side, nil
}

func (s *Server) DELETEMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var match Match
	if err := s.db.First(&match, "match_id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Match not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	if err := s.db.Unscoped().Where("match_id = ?", matchID).Delete(&GrossScore{}).Error; err != nil {
		http.Error(w, "Failed to delete match scores", http.StatusInternalServerError)
		return
	}
	if err := s.db.Unscoped().Delete(&match).Error; err != nil {
		http.Error(w, "Failed to delete match", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GETClaims(w http.ResponseWriter, r *http.Request) {
	var claims []PlayerClaim
	if err := s.db.Find(&claims).Error; err != nil {
		http.Error(w, "Error fetching claims", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(claims)
}

// POSTClaim links the logged in user to a player. The claim table demands
// one identity per player and one player per identity, so the insert runs
// in a transaction and relies on the unique indexes to reject a racing
// claim; a read-then-write check would let two concurrent claims both
// succeed.
func (s *Server) POSTClaim(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	claim := PlayerClaim{PlayerID: req.PlayerID, Username: claims.Username}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var player Player
		if err := tx.First(&player, "player_id = ?", req.PlayerID).Error; err != nil {
			return err
		}
		return tx.Create(&claim).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			http.Error(w, "Player not found", http.StatusNotFound)
		case isUniqueConstraintError(err):
			http.Error(w, "Player already claimed", http.StatusConflict)
		default:
			http.Error(w, "Could not save claim", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(claim)
}

func (s *Server) DELETEClaim(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		http.Error(w, "User info not found in context", http.StatusInternalServerError)
		return
	}

	result := s.db.Unscoped().Where("username = ?", claims.Username).Delete(&PlayerClaim{})
	if result.Error != nil {
		http.Error(w, "Could not delete claim", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "No claim to release", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUTScore writes a single (owner, hole) gross value for a match. Each key
// is an idempotent upsert, so the last write for a key wins and writes to
// different keys never interfere.
func (s *Server) PUTScore(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var write ScoreWrite
	if err := json.NewDecoder(r.Body).Decode(&write); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if write.Hole < 1 || write.Hole > 18 {
		http.Error(w, "Hole must be between 1 and 18", http.StatusBadRequest)
		return
	}
	if write.Strokes < 1 || write.Strokes > 30 {
		http.Error(w, "Strokes must be between 1 and 30", http.StatusBadRequest)
		return
	}

	match, owners, err := s.matchOwners(matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Match not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}
	if !owners[write.OwnerID] {
		http.Error(w, "Owner does not play in this match", http.StatusBadRequest)
		return
	}
	if !s.canScore(r, match) {
		http.Error(w, "Not allowed to score this match", http.StatusForbidden)
		return
	}

	score := GrossScore{
		MatchID:    matchID,
		OwnerID:    write.OwnerID,
		HoleNumber: write.Hole,
		Strokes:    write.Strokes,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}, {Name: "owner_id"}, {Name: "hole_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"strokes", "updated_at"}),
	}).Create(&score).Error
	if err != nil {
		http.Error(w, "Could not save score", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(score)
}

func (s *Server) DELETEScore(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var del ScoreDelete
	if err := json.NewDecoder(r.Body).Decode(&del); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	match, owners, err := s.matchOwners(matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Match not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}
	if !s.canScore(r, match) {
		http.Error(w, "Not allowed to score this match", http.StatusForbidden)
		return
	}

	q := s.db.Unscoped().Where("match_id = ?", matchID)
	if !del.All {
		if !owners[del.OwnerID] {
			http.Error(w, "Owner does not play in this match", http.StatusBadRequest)
			return
		}
		if del.Hole < 1 || del.Hole > 18 {
			http.Error(w, "Hole must be between 1 and 18", http.StatusBadRequest)
			return
		}
		q = q.Where("owner_id = ? AND hole_number = ?", del.OwnerID, del.Hole)
	}
	if err := q.Delete(&GrossScore{}).Error; err != nil {
		http.Error(w, "Could not delete score", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canScore is the write side of authorization: admins may score anything,
// other logins only matches their claimed player is part of. The engine
// itself never checks permissions.
func (s *Server) canScore(r *http.Request, match *Match) bool {
	claims, ok := r.Context().Value(userContextKey).(*Claims)
	if !ok || claims == nil {
		return false
	}
	if claims.Admin {
		return true
	}

	var claim PlayerClaim
	if err := s.db.First(&claim, "username = ?", claims.Username).Error; err != nil {
		return false
	}
	for _, sideID := range []string{match.SideAID, match.SideBID} {
		var side Side
		if err := s.db.First(&side, "side_id = ?", sideID).Error; err != nil {
			continue
		}
		if side.Player1ID == claim.PlayerID || side.Player2ID == claim.PlayerID {
			return true
		}
	}
	return false
}

func (s *Server) GETMatchScorecard(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var match Match
	if err := s.db.First(&match, "match_id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Match not found", http.StatusNotFound)
		} else {
			http.Error(w, "Database error", http.StatusInternalServerError)
		}
		return
	}

	course, err := s.loadEngineCourse(match.Day)
	if err != nil {
		http.Error(w, "Course not found for match day", http.StatusInternalServerError)
		return
	}
	em, err := s.loadEngineMatch(&match)
	if err != nil {
		http.Error(w, "Error loading match snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(engine.ScoreMatch(course, em))
}

func (s *Server) GETDayScore(w http.ResponseWriter, r *http.Request) {
	day, ok := parseDayParam(w, r)
	if !ok {
		return
	}

	score, err := s.scoreDay(day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Course not found for that day", http.StatusNotFound)
		} else {
			http.Error(w, "Error scoring day", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(score)
}

func (s *Server) GETStandings(w http.ResponseWriter, r *http.Request) {
	var courses []Course
	if err := s.db.Order("day ASC").Find(&courses).Error; err != nil {
		http.Error(w, "Error fetching courses", http.StatusInternalServerError)
		return
	}

	var days []engine.DayScore
	for _, c := range courses {
		score, err := s.scoreDay(c.Day)
		if err != nil {
			http.Error(w, "Error scoring day", http.StatusInternalServerError)
			return
		}
		days = append(days, score)
	}

	tournament := engine.ScoreTournament(days)

	// Resolve the leading team id to its display name.
	leader := tournament.Leader
	if leader != engine.LeaderTied {
		var team Team
		if err := s.db.First(&team, "team_id = ?", leader).Error; err == nil {
			leader = team.Name
		}
	}

	var teams []Team
	if err := s.db.Order("team_id ASC").Find(&teams).Error; err != nil {
		http.Error(w, "Error fetching teams", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"teams":  teams,
		"totals": tournament.Totals,
		"leader": leader,
		"days":   tournament.Days,
	})
}

// scoreDay assembles the day's snapshot and runs the engine over it.
func (s *Server) scoreDay(day int) (engine.DayScore, error) {
	course, err := s.loadEngineCourse(day)
	if err != nil {
		return engine.DayScore{}, err
	}

	var matches []Match
	if err := s.db.Where("day = ?", day).Order("match_no ASC").Find(&matches).Error; err != nil {
		return engine.DayScore{}, err
	}

	var ems []*engine.Match
	for i := range matches {
		em, err := s.loadEngineMatch(&matches[i])
		if err != nil {
			return engine.DayScore{}, err
		}
		ems = append(ems, em)
	}
	return engine.ScoreDay(course, day, ems), nil
}

// loadEngineCourse builds the engine's course model for a day.
func (s *Server) loadEngineCourse(day int) (*engine.Course, error) {
	var course Course
	if err := s.db.Preload("Holes").First(&course, "day = ?", day).Error; err != nil {
		return nil, err
	}
	sortHoles(course.Holes)

	ec := &engine.Course{Day: course.Day, Name: course.Name, City: course.City}
	for _, h := range course.Holes {
		ec.Holes = append(ec.Holes, engine.Hole{Number: h.HoleNumber, Par: h.Par, HandicapRank: h.HandicapRank})
	}
	return ec, nil
}

// loadEngineMatch builds the engine's snapshot of a match: the pairing
// plus every gross score currently recorded for it.
func (s *Server) loadEngineMatch(match *Match) (*engine.Match, error) {
	sideA, err := s.loadEngineSide(match.SideAID)
	if err != nil {
		return nil, err
	}
	sideB, err := s.loadEngineSide(match.SideBID)
	if err != nil {
		return nil, err
	}

	var scores []GrossScore
	if err := s.db.Where("match_id = ?", match.MatchID).Find(&scores).Error; err != nil {
		return nil, err
	}
	gross := make(map[string]map[int]int)
	for _, sc := range scores {
		if gross[sc.OwnerID] == nil {
			gross[sc.OwnerID] = make(map[int]int)
		}
		gross[sc.OwnerID][sc.HoleNumber] = sc.Strokes
	}

	return &engine.Match{
		ID:      match.MatchID,
		Day:     match.Day,
		MatchNo: match.MatchNo,
		Format:  engine.Format(match.Format),
		SideA:   sideA,
		SideB:   sideB,
		Gross:   gross,
	}, nil
}

// loadEngineSide resolves a side's roster. A player id that no longer
// resolves is skipped; the engine then reports the affected holes as not
// played rather than erroring.
func (s *Server) loadEngineSide(sideID string) (engine.Side, error) {
	var side Side
	if err := s.db.First(&side, "side_id = ?", sideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.Side{ID: sideID}, nil
		}
		return engine.Side{}, err
	}

	es := engine.Side{ID: side.SideID, TeamID: side.TeamID}
	for _, pid := range []string{side.Player1ID, side.Player2ID} {
		if pid == "" {
			continue
		}
		var player Player
		if err := s.db.First(&player, "player_id = ?", pid).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return engine.Side{}, err
		}
		es.Players = append(es.Players, engine.SidePlayer{ID: player.PlayerID, CourseHandicap: player.CourseHandicap})
	}
	return es, nil
}

// matchOwners returns the set of ids allowed to own scores in a match:
// the side ids for scramble matches, the player ids otherwise.
func (s *Server) matchOwners(matchID string) (*Match, map[string]bool, error) {
	var match Match
	if err := s.db.First(&match, "match_id = ?", matchID).Error; err != nil {
		return nil, nil, err
	}

	owners := make(map[string]bool)
	if engine.Format(match.Format) == engine.ScrambleStableford {
		owners[match.SideAID] = true
		owners[match.SideBID] = true
		return &match, owners, nil
	}

	for _, sideID := range []string{match.SideAID, match.SideBID} {
		var side Side
		if err := s.db.First(&side, "side_id = ?", sideID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, nil, err
		}
		for _, pid := range []string{side.Player1ID, side.Player2ID} {
			if pid != "" {
				owners[pid] = true
			}
		}
	}
	return &match, owners, nil
}

func (s *Server) teamExists(teamID string) bool {
	var team Team
	return s.db.First(&team, "team_id = ?", teamID).Error == nil
}

func parseFormat(f string) (engine.Format, bool) {
	switch engine.Format(f) {
	case engine.FourballNet, engine.ScrambleStableford, engine.SinglesNet:
		return engine.Format(f), true
	}
	return "", false
}

func sortHoles(holes []CourseHole) {
	sort.Slice(holes, func(i, j int) bool {
		return holes[i].HoleNumber < holes[j].HoleNumber
	})
}
