package engine

// AllocatePoints splits a match's point between the two teams. Matches
// still in progress award nothing, a final tie is worth half a point each,
// and a decided match gives the leader's team the full point. Total over
// every MatchStatus; never errors.
func AllocatePoints(status MatchStatus, sideA, sideB Side) map[string]float64 {
	points := map[string]float64{
		sideA.TeamID: 0,
		sideB.TeamID: 0,
	}
	if !status.IsFinal {
		return points
	}
	if status.IsTied {
		points[sideA.TeamID] += 0.5
		points[sideB.TeamID] += 0.5
		return points
	}
	switch status.LeaderSide {
	case sideA.ID:
		points[sideA.TeamID] += 1
	case sideB.ID:
		points[sideB.TeamID] += 1
	}
	return points
}
