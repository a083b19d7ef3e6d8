package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ellisms1/frellis-cup/engine"
)

// setupFile is the YAML tournament definition: the two teams, rosters,
// per-day courses, sides and the match schedule. Importing the same file
// twice is a no-op; records are matched on their natural keys.
type setupFile struct {
	Teams []struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"teams"`
	Players []struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		Team           string `yaml:"team"`
		CourseHandicap int    `yaml:"courseHandicap"`
	} `yaml:"players"`
	Courses []struct {
		Day   int    `yaml:"day"`
		Name  string `yaml:"name"`
		City  string `yaml:"city"`
		Date  string `yaml:"date"`
		Holes []struct {
			Number       int `yaml:"number"`
			Par          int `yaml:"par"`
			HandicapRank int `yaml:"handicapRank"`
		} `yaml:"holes"`
	} `yaml:"courses"`
	Sides []struct {
		ID      string   `yaml:"id"`
		Team    string   `yaml:"team"`
		Players []string `yaml:"players"`
	} `yaml:"sides"`
	Matches []struct {
		ID      string `yaml:"id"`
		Day     int    `yaml:"day"`
		MatchNo int    `yaml:"matchNo"`
		Format  string `yaml:"format"`
		SideA   string `yaml:"sideA"`
		SideB   string `yaml:"sideB"`
	} `yaml:"matches"`
}

func seedFromFile(db *gorm.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return importSetup(db, data)
}

func (s *Server) POSTSetupImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if err := importSetup(s.db, data); err != nil {
		http.Error(w, fmt.Sprintf("Import failed: %s", err.Error()), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func importSetup(db *gorm.DB, data []byte) error {
	var setup setupFile
	if err := yaml.Unmarshal(data, &setup); err != nil {
		return fmt.Errorf("parsing setup file: %w", err)
	}
	if len(setup.Teams) > 2 {
		return fmt.Errorf("a cup has two teams, file defines %d", len(setup.Teams))
	}

	teamIDs := make(map[string]bool)
	for _, t := range setup.Teams {
		if t.ID == "" || t.Name == "" {
			return fmt.Errorf("team id and name must be set")
		}
		teamIDs[t.ID] = true
	}

	playerIDs := make(map[string]bool)
	for _, p := range setup.Players {
		if !teamIDs[p.Team] {
			return fmt.Errorf("player %q: unknown team %q", p.Name, p.Team)
		}
		if p.CourseHandicap < 0 {
			return fmt.Errorf("player %q: negative handicap", p.Name)
		}
		if p.ID != "" {
			playerIDs[p.ID] = true
		}
	}

	// Validate every course layout up front so a bad file changes nothing.
	for _, c := range setup.Courses {
		ec := engine.Course{Day: c.Day, Name: c.Name, City: c.City}
		for _, h := range c.Holes {
			ec.Holes = append(ec.Holes, engine.Hole{Number: h.Number, Par: h.Par, HandicapRank: h.HandicapRank})
		}
		if err := ec.Validate(); err != nil {
			return fmt.Errorf("course day %d: %w", c.Day, err)
		}
	}

	sideIDs := make(map[string]bool)
	for _, side := range setup.Sides {
		if !teamIDs[side.Team] {
			return fmt.Errorf("side %q: unknown team %q", side.ID, side.Team)
		}
		if len(side.Players) < 1 || len(side.Players) > 2 {
			return fmt.Errorf("side %q: sides have one or two players", side.ID)
		}
		for _, pid := range side.Players {
			if !playerIDs[pid] {
				return fmt.Errorf("side %q: unknown player %q", side.ID, pid)
			}
		}
		sideIDs[side.ID] = true
	}

	for _, m := range setup.Matches {
		if _, ok := parseFormat(m.Format); !ok {
			return fmt.Errorf("match %q: unknown format %q", m.ID, m.Format)
		}
		if !sideIDs[m.SideA] || !sideIDs[m.SideB] {
			return fmt.Errorf("match %q: unknown side", m.ID)
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range setup.Teams {
			team := Team{TeamID: t.ID, Name: t.Name}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "team_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name"}),
			}).Create(&team).Error
			if err != nil {
				return err
			}
		}

		for _, p := range setup.Players {
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			player := Player{PlayerID: p.ID, Name: p.Name, TeamID: p.Team, CourseHandicap: p.CourseHandicap}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "player_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "team_id", "course_handicap"}),
			}).Create(&player).Error
			if err != nil {
				return err
			}
		}

		for _, c := range setup.Courses {
			course := Course{Day: c.Day, Name: c.Name, City: c.City}
			if c.Date != "" {
				d, err := time.Parse("2006-01-02", c.Date)
				if err != nil {
					return fmt.Errorf("course day %d: bad date %q", c.Day, c.Date)
				}
				course.Date = datatypes.Date(d)
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "day"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "city", "date"}),
			}).Create(&course).Error
			if err != nil {
				return err
			}
			for _, h := range c.Holes {
				hole := CourseHole{Day: c.Day, HoleNumber: h.Number, Par: h.Par, HandicapRank: h.HandicapRank}
				err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "day"}, {Name: "hole_number"}},
					DoUpdates: clause.AssignmentColumns([]string{"par", "handicap_rank"}),
				}).Create(&hole).Error
				if err != nil {
					return err
				}
			}
		}

		for _, sd := range setup.Sides {
			side := Side{SideID: sd.ID, TeamID: sd.Team, Player1ID: sd.Players[0]}
			if len(sd.Players) == 2 {
				side.Player2ID = sd.Players[1]
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "side_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"team_id", "player1_id", "player2_id"}),
			}).Create(&side).Error
			if err != nil {
				return err
			}
		}

		for _, m := range setup.Matches {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			match := Match{MatchID: m.ID, Day: m.Day, MatchNo: m.MatchNo, Format: m.Format, SideAID: m.SideA, SideBID: m.SideB}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "match_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"day", "match_no", "format", "side_a_id", "side_b_id"}),
			}).Create(&match).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
