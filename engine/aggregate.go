package engine

// MatchScorecard is everything derived for one match: the 18 hole results,
// the folded status, and the team points the match is currently worth.
type MatchScorecard struct {
	MatchID string             `json:"matchId"`
	Day     int                `json:"day"`
	MatchNo int                `json:"matchNo"`
	Format  Format             `json:"format"`
	SideA   Side               `json:"sideA"`
	SideB   Side               `json:"sideB"`
	Holes   []HoleResult       `json:"holes"`
	Status  MatchStatus        `json:"status"`
	Points  map[string]float64 `json:"points"`
}

// DayScore is all of one day's match scorecards plus the day's team point
// totals.
type DayScore struct {
	Day     int                `json:"day"`
	Matches []MatchScorecard   `json:"matches"`
	Totals  map[string]float64 `json:"totals"`
}

// TournamentScore is the event-wide rollup: each day's scores, the two
// grand totals, and the leading team id ("Tied" when level).
type TournamentScore struct {
	Days   []DayScore         `json:"days"`
	Totals map[string]float64 `json:"totals"`
	Leader string             `json:"leader"`
}

// LeaderTied is the leader value reported while the grand totals are level.
const LeaderTied = "Tied"

// ScoreMatch derives a match's full scorecard from a snapshot of its raw
// scores. It is a pure function of its inputs: identical snapshots produce
// identical scorecards, and nothing is cached between calls.
func ScoreMatch(course *Course, m *Match) MatchScorecard {
	holes := ScoreHoles(course, m)
	status := Status(m, holes)
	return MatchScorecard{
		MatchID: m.ID,
		Day:     m.Day,
		MatchNo: m.MatchNo,
		Format:  m.Format,
		SideA:   m.SideA,
		SideB:   m.SideB,
		Holes:   holes,
		Status:  status,
		Points:  AllocatePoints(status, m.SideA, m.SideB),
	}
}

// ScoreDay scores every match of a day on its course and sums the team
// points.
func ScoreDay(course *Course, day int, matches []*Match) DayScore {
	score := DayScore{Day: day, Totals: map[string]float64{}}
	for _, m := range matches {
		card := ScoreMatch(course, m)
		score.Matches = append(score.Matches, card)
		for team, pts := range card.Points {
			score.Totals[team] += pts
		}
	}
	return score
}

// ScoreTournament sums day scores into the event standings. The leader is
// the team with the higher grand total, or LeaderTied when level.
func ScoreTournament(days []DayScore) TournamentScore {
	score := TournamentScore{Days: days, Totals: map[string]float64{}}
	for _, d := range days {
		for team, pts := range d.Totals {
			score.Totals[team] += pts
		}
	}

	best, tied := "", false
	for team, pts := range score.Totals {
		switch {
		case best == "" || pts > score.Totals[best]:
			best, tied = team, false
		case pts == score.Totals[best]:
			tied = true
		}
	}
	switch {
	case best == "" || tied:
		score.Leader = LeaderTied
	default:
		score.Leader = best
	}
	return score
}
