package engine

import "fmt"

// Hole is one hole of a course as played on a given day.
type Hole struct {
	Number       int `json:"number"`
	Par          int `json:"par"`
	HandicapRank int `json:"handicapRank"`
}

// Course is a single day's course setup. Holes are ordered 1 through 18
// and the handicap ranks form a permutation of 1..18.
type Course struct {
	Day   int    `json:"day"`
	Name  string `json:"name"`
	City  string `json:"city"`
	Holes []Hole `json:"holes"`
}

// Hole returns the hole with the given number. The second return is false
// for numbers outside the course, which callers treat as a hole with no
// score entered rather than an error.
func (c *Course) Hole(number int) (Hole, bool) {
	for _, h := range c.Holes {
		if h.Number == number {
			return h, true
		}
	}
	return Hole{}, false
}

// Validate checks the course invariants: 18 holes, hole numbers and
// handicap ranks each a permutation of 1..18, pars between 3 and 5.
func (c *Course) Validate() error {
	if len(c.Holes) != 18 {
		return fmt.Errorf("course %q has %d holes, want 18", c.Name, len(c.Holes))
	}
	var numbers, ranks [19]bool
	for _, h := range c.Holes {
		if h.Number < 1 || h.Number > 18 {
			return fmt.Errorf("hole number %d out of range", h.Number)
		}
		if numbers[h.Number] {
			return fmt.Errorf("duplicate hole number %d", h.Number)
		}
		numbers[h.Number] = true

		if h.HandicapRank < 1 || h.HandicapRank > 18 {
			return fmt.Errorf("hole %d: handicap rank %d out of range", h.Number, h.HandicapRank)
		}
		if ranks[h.HandicapRank] {
			return fmt.Errorf("hole %d: duplicate handicap rank %d", h.Number, h.HandicapRank)
		}
		ranks[h.HandicapRank] = true

		if h.Par < 3 || h.Par > 5 {
			return fmt.Errorf("hole %d: par %d out of range", h.Number, h.Par)
		}
	}
	return nil
}
