package engine

// Format selects the scoring rules for a match.
type Format string

const (
	// FourballNet is match play between two-player sides. Each player plays
	// their own ball; a side's hole score is the better of its two nets.
	FourballNet Format = "fourball-net"

	// ScrambleStableford is stroke play between two-player sides. Each side
	// records one team gross per hole, scored as modified stableford points
	// against par with no handicap.
	ScrambleStableford Format = "scramble-stableford"

	// SinglesNet is head-to-head match play at net scores.
	SinglesNet Format = "singles-net"
)

// SidePlayer is a roster slot on a side with the handicap that player gets
// on the day's course.
type SidePlayer struct {
	ID             string `json:"id"`
	CourseHandicap int    `json:"courseHandicap"`
}

// Side is one or two players competing as a unit within a match.
type Side struct {
	ID      string       `json:"id"`
	TeamID  string       `json:"teamId"`
	Players []SidePlayer `json:"players"`
}

// Match is the engine's view of one match: the pairing plus a snapshot of
// every gross score entered so far. Gross is keyed by owner then hole
// number, where the owner is a player id for fourball and singles matches
// and a side id for scramble matches. Keys the match doesn't reference are
// ignored, and absent keys simply mean no score yet.
type Match struct {
	ID      string
	Day     int
	MatchNo int
	Format  Format
	SideA   Side
	SideB   Side
	Gross   map[string]map[int]int
}

func (m *Match) gross(ownerID string, hole int) *int {
	holes, ok := m.Gross[ownerID]
	if !ok {
		return nil
	}
	strokes, ok := holes[hole]
	if !ok {
		return nil
	}
	return &strokes
}

// FourballDetail carries each side's best (lowest) net among the players
// who have a score entered. A nil best means the side has no entry yet.
type FourballDetail struct {
	BestNetA *int `json:"bestNetA"`
	BestNetB *int `json:"bestNetB"`
}

// StablefordDetail carries each side's team gross and the stableford
// points it converts to. Points are only meaningful when the gross is set.
type StablefordDetail struct {
	GrossA  *int `json:"grossA"`
	GrossB  *int `json:"grossB"`
	PointsA int  `json:"pointsA"`
	PointsB int  `json:"pointsB"`
}

// SinglesDetail carries each player's net score.
type SinglesDetail struct {
	NetA *int `json:"netA"`
	NetB *int `json:"netB"`
}

// HoleResult is the outcome of a single hole. Exactly one of the detail
// fields is set, matching Format. WinnerSide is empty when the hole was
// halved or has not been played.
type HoleResult struct {
	Hole       int               `json:"hole"`
	Played     bool              `json:"played"`
	WinnerSide string            `json:"winnerSide,omitempty"`
	Format     Format            `json:"format"`
	Fourball   *FourballDetail   `json:"fourball,omitempty"`
	Stableford *StablefordDetail `json:"stableford,omitempty"`
	Singles    *SinglesDetail    `json:"singles,omitempty"`
}

// StablefordPoints maps strokes-relative-to-par to modified stableford
// points. The scale is clamped at both ends: anything three or more under
// par scores 10, anything two or more over scores -2.
func StablefordPoints(diff int) int {
	switch {
	case diff <= -3:
		return 10
	case diff == -2:
		return 6
	case diff == -1:
		return 3
	case diff == 0:
		return 1
	case diff == 1:
		return -1
	default:
		return -2
	}
}

// ScoreHole computes the outcome of one hole from whatever scores have been
// entered. Missing entries never produce an error; the hole is reported as
// not played until both sides have the inputs their format requires. A hole
// number the course doesn't know is likewise reported as not played.
func ScoreHole(course *Course, m *Match, number int) HoleResult {
	hole, ok := course.Hole(number)
	if !ok {
		return HoleResult{Hole: number, Format: m.Format}
	}

	switch m.Format {
	case FourballNet:
		return scoreFourball(hole, m)
	case ScrambleStableford:
		return scoreScramble(hole, m)
	case SinglesNet:
		return scoreSingles(hole, m)
	default:
		return HoleResult{Hole: hole.Number, Format: m.Format}
	}
}

// bestNet returns the lowest net among the side's players who have a gross
// entered, or nil when nobody on the side has a score yet.
func bestNet(m *Match, side Side, hole Hole) *int {
	var best *int
	for _, p := range side.Players {
		net := NetScore(m.gross(p.ID, hole.Number), p.CourseHandicap, hole.HandicapRank)
		if net == nil {
			continue
		}
		if best == nil || *net < *best {
			best = net
		}
	}
	return best
}

func scoreFourball(hole Hole, m *Match) HoleResult {
	detail := &FourballDetail{
		BestNetA: bestNet(m, m.SideA, hole),
		BestNetB: bestNet(m, m.SideB, hole),
	}
	res := HoleResult{Hole: hole.Number, Format: FourballNet, Fourball: detail}
	if detail.BestNetA == nil || detail.BestNetB == nil {
		return res
	}
	res.Played = true
	switch {
	case *detail.BestNetA < *detail.BestNetB:
		res.WinnerSide = m.SideA.ID
	case *detail.BestNetB < *detail.BestNetA:
		res.WinnerSide = m.SideB.ID
	}
	return res
}

func scoreScramble(hole Hole, m *Match) HoleResult {
	detail := &StablefordDetail{
		GrossA: m.gross(m.SideA.ID, hole.Number),
		GrossB: m.gross(m.SideB.ID, hole.Number),
	}
	if detail.GrossA != nil {
		detail.PointsA = StablefordPoints(*detail.GrossA - hole.Par)
	}
	if detail.GrossB != nil {
		detail.PointsB = StablefordPoints(*detail.GrossB - hole.Par)
	}
	res := HoleResult{Hole: hole.Number, Format: ScrambleStableford, Stableford: detail}
	if detail.GrossA == nil || detail.GrossB == nil {
		return res
	}
	res.Played = true
	// Per-hole winner is display only; the match is decided on cumulative
	// points, not holes won.
	switch {
	case detail.PointsA > detail.PointsB:
		res.WinnerSide = m.SideA.ID
	case detail.PointsB > detail.PointsA:
		res.WinnerSide = m.SideB.ID
	}
	return res
}

// singlesPlayer returns the side's lone player. Sides with an empty roster
// score as if no entry exists.
func singlesPlayer(side Side) (SidePlayer, bool) {
	if len(side.Players) == 0 {
		return SidePlayer{}, false
	}
	return side.Players[0], true
}

func scoreSingles(hole Hole, m *Match) HoleResult {
	detail := &SinglesDetail{}
	if p, ok := singlesPlayer(m.SideA); ok {
		detail.NetA = NetScore(m.gross(p.ID, hole.Number), p.CourseHandicap, hole.HandicapRank)
	}
	if p, ok := singlesPlayer(m.SideB); ok {
		detail.NetB = NetScore(m.gross(p.ID, hole.Number), p.CourseHandicap, hole.HandicapRank)
	}
	res := HoleResult{Hole: hole.Number, Format: SinglesNet, Singles: detail}
	if detail.NetA == nil || detail.NetB == nil {
		return res
	}
	res.Played = true
	switch {
	case *detail.NetA < *detail.NetB:
		res.WinnerSide = m.SideA.ID
	case *detail.NetB < *detail.NetA:
		res.WinnerSide = m.SideB.ID
	}
	return res
}

// ScoreHoles runs ScoreHole over holes 1 through 18 in order.
func ScoreHoles(course *Course, m *Match) []HoleResult {
	results := make([]HoleResult, 18)
	for i := range results {
		results[i] = ScoreHole(course, m, i+1)
	}
	return results
}
