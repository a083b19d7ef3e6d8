package engine

// StrokesReceived returns the number of handicap strokes a player receives
// on a hole. Every player gets courseHcp/18 strokes on every hole, and one
// extra stroke on the holes whose handicap rank is at most courseHcp mod 18.
// A 20 handicap therefore strokes twice on the two hardest holes and once
// everywhere else.
func StrokesReceived(courseHcp, holeRank int) int {
	if courseHcp < 0 {
		courseHcp = 0
	}
	strokes := courseHcp / 18
	if holeRank <= courseHcp%18 {
		strokes++
	}
	return strokes
}

// NetScore converts a gross score to a net score for the hole. A nil gross
// means no score has been entered yet and propagates through as nil.
func NetScore(gross *int, courseHcp, holeRank int) *int {
	if gross == nil {
		return nil
	}
	net := *gross - StrokesReceived(courseHcp, holeRank)
	return &net
}
