package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"gorm.io/gorm"
)

// scrapedHandicap is one row pulled from the club's roster page.
type scrapedHandicap struct {
	Name     string
	Handicap int
}

// updateHandicaps scrapes the club roster page and refreshes each matched
// player's course handicap. The page carries one table row per member with
// the name in the first cell and the current course handicap in the last.
func updateHandicaps(db *gorm.DB, url string) (int, error) {
	rows, err := scrapeHandicapRoster(url)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no roster rows parsed from URL: %s", url)
	}

	updated := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			result := tx.Model(&Player{}).
				Where("name = ?", row.Name).
				Update("course_handicap", row.Handicap)
			if result.Error != nil {
				return result.Error
			}
			updated += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func scrapeHandicapRoster(url string) ([]scrapedHandicap, error) {
	c := colly.NewCollector(
		// Optional: make it look like Chrome
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/115.0.0.0 Safari/537.36"),
	)
	c.Async = true

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
	})

	rows := make([]scrapedHandicap, 0, 30)
	c.OnHTML("table.roster tbody > tr", func(e *colly.HTMLElement) {
		tds := e.DOM.ChildrenFiltered("td")
		if tds.Length() < 2 {
			return
		}

		name := strings.TrimSpace(tds.Eq(0).Text())
		hcp, ok := parseHandicapCell(tds.Eq(tds.Length() - 1))
		if name == "" || !ok {
			return
		}
		rows = append(rows, scrapedHandicap{Name: basicSanitize(name), Handicap: hcp})
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()

	return rows, nil
}

// parseHandicapCell pulls the course handicap out of a roster cell. Some
// club pages wrap the number in a span, some prefix it with a plus sign,
// and scratch-or-better players show as "+N" which we floor at zero since
// the event plays plus handicaps as scratch.
func parseHandicapCell(cell *goquery.Selection) (int, bool) {
	text := strings.TrimSpace(cell.Text())
	if span := cell.Find("span.hcp"); span.Length() > 0 {
		text = strings.TrimSpace(span.Text())
	}
	plus := strings.HasPrefix(text, "+")
	text = strings.TrimPrefix(text, "+")

	// Course handicaps are whole strokes; indexes like "12.4" round down.
	if i := strings.IndexByte(text, '.'); i >= 0 {
		text = text[:i]
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, false
	}
	if plus {
		return 0, true
	}
	return n, true
}

func (s *Server) POSTSyncHandicaps(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	// The body is optional; the configured roster URL is the default.
	_ = json.NewDecoder(r.Body).Decode(&req)
	url := req.URL
	if url == "" {
		url = s.handicapURL
	}
	if url == "" {
		http.Error(w, "No roster URL configured", http.StatusBadRequest)
		return
	}

	updated, err := updateHandicaps(s.db, url)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error syncing handicaps: %s", err.Error()), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"updated": updated})
}
