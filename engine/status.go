package engine

import "fmt"

// MatchState names the five states a match status can be in. The closeout,
// tie and in-progress precedence lives entirely in the transition logic
// below so each state is testable on its own.
type MatchState string

const (
	StateNotStarted   MatchState = "not-started"
	StateInProgress   MatchState = "in-progress"
	StateClosedOut    MatchState = "closed-out"    // decided before the 18th
	StateFinalTied    MatchState = "final-tied"    // all square after 18
	StateFinalDecided MatchState = "final-decided" // decided on the 18th
)

// MatchStatus is the running state of a match folded from its 18 hole
// results. Match-play formats fill HolesWonA/HolesWonB; the stableford
// format fills PointsA/PointsB instead. LeaderSide is empty while the
// match is tied or not started.
type MatchStatus struct {
	State       MatchState `json:"state"`
	Format      Format     `json:"format"`
	HolesWonA   int        `json:"holesWonA"`
	HolesWonB   int        `json:"holesWonB"`
	PointsA     int        `json:"pointsA"`
	PointsB     int        `json:"pointsB"`
	HolesPlayed int        `json:"holesPlayed"`
	IsFinal     bool       `json:"isFinal"`
	IsTied      bool       `json:"isTied"`
	LeaderSide  string     `json:"leaderSide,omitempty"`
	Label       string     `json:"label"`
}

// Status folds a match's hole results into its running status, selecting
// the holes-won or cumulative-points algorithm by format.
func Status(m *Match, results []HoleResult) MatchStatus {
	if m.Format == ScrambleStableford {
		return pointsStatus(m, results)
	}
	return holesStatus(m, results)
}

// holesStatus is standard match play: the match ends early once one side
// leads by more holes than remain. Dormie (lead equal to holes remaining)
// is not final; the trailing side can still halve the match.
func holesStatus(m *Match, results []HoleResult) MatchStatus {
	status := MatchStatus{Format: m.Format}
	for _, r := range results {
		if !r.Played {
			continue
		}
		status.HolesPlayed++
		switch r.WinnerSide {
		case m.SideA.ID:
			status.HolesWonA++
		case m.SideB.ID:
			status.HolesWonB++
		}
	}

	diff := status.HolesWonA - status.HolesWonB
	lead := diff
	if lead < 0 {
		lead = -lead
	}
	remaining := 18 - status.HolesPlayed

	switch {
	case status.HolesPlayed == 0:
		status.State = StateNotStarted
		status.IsTied = true
		status.Label = "Not Started"

	case status.HolesPlayed == 18 && diff == 0:
		status.State = StateFinalTied
		status.IsFinal = true
		status.IsTied = true
		status.Label = "Final (Tied)"

	case status.HolesPlayed == 18:
		status.State = StateFinalDecided
		status.IsFinal = true
		status.LeaderSide = leaderSide(m, diff)
		status.Label = fmt.Sprintf("Final %d Up", lead)

	case lead > remaining:
		status.State = StateClosedOut
		status.IsFinal = true
		status.LeaderSide = leaderSide(m, diff)
		status.Label = fmt.Sprintf("Final %d&%d", lead, remaining)

	case diff == 0:
		status.State = StateInProgress
		status.IsTied = true
		status.Label = fmt.Sprintf("AS Thru %d", status.HolesPlayed)

	default:
		status.State = StateInProgress
		status.LeaderSide = leaderSide(m, diff)
		status.Label = fmt.Sprintf("%d Up Thru %d", lead, status.HolesPlayed)
	}
	return status
}

// pointsStatus is cumulative stroke play: sides accumulate stableford
// points over the holes both have scored, and the match is only final
// after all 18. The label shows the running totals rather than holes up.
func pointsStatus(m *Match, results []HoleResult) MatchStatus {
	status := MatchStatus{Format: m.Format}
	for _, r := range results {
		if !r.Played || r.Stableford == nil {
			continue
		}
		status.HolesPlayed++
		status.PointsA += r.Stableford.PointsA
		status.PointsB += r.Stableford.PointsB
	}

	if status.HolesPlayed == 0 {
		status.State = StateNotStarted
		status.IsTied = true
		status.Label = "—"
		return status
	}

	diff := status.PointsA - status.PointsB
	status.IsTied = diff == 0
	status.LeaderSide = leaderSide(m, diff)
	status.Label = fmt.Sprintf("%d–%d", status.PointsA, status.PointsB)

	switch {
	case status.HolesPlayed < 18:
		status.State = StateInProgress
	case status.IsTied:
		status.IsFinal = true
		status.State = StateFinalTied
	default:
		status.IsFinal = true
		status.State = StateFinalDecided
	}
	return status
}

func leaderSide(m *Match, diff int) string {
	switch {
	case diff > 0:
		return m.SideA.ID
	case diff < 0:
		return m.SideB.ID
	default:
		return ""
	}
}
