package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testCourse builds a valid 18 hole par-72 course whose handicap ranks
// match the hole numbers.
func testCourse() *Course {
	c := &Course{Day: 1, Name: "Pine Hollow", City: "Concord"}
	pars := []int{4, 5, 3, 4, 4, 5, 3, 4, 4, 4, 3, 5, 4, 4, 5, 3, 4, 4}
	for i := 0; i < 18; i++ {
		c.Holes = append(c.Holes, Hole{Number: i + 1, Par: pars[i], HandicapRank: i + 1})
	}
	return c
}

func TestCourseValidate(t *testing.T) {
	assert.NoError(t, testCourse().Validate())

	short := testCourse()
	short.Holes = short.Holes[:17]
	assert.Error(t, short.Validate())

	dupNumber := testCourse()
	dupNumber.Holes[5].Number = 1
	assert.Error(t, dupNumber.Validate())

	dupRank := testCourse()
	dupRank.Holes[5].HandicapRank = 1
	assert.Error(t, dupRank.Validate())

	badRank := testCourse()
	badRank.Holes[0].HandicapRank = 19
	assert.Error(t, badRank.Validate())

	badPar := testCourse()
	badPar.Holes[0].Par = 6
	assert.Error(t, badPar.Validate())
}

func TestCourseHoleLookup(t *testing.T) {
	c := testCourse()

	h, ok := c.Hole(3)
	assert.True(t, ok)
	assert.Equal(t, 3, h.Par)

	_, ok = c.Hole(19)
	assert.False(t, ok)

	_, ok = c.Hole(0)
	assert.False(t, ok)
}
