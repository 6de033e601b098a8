package engine

import "time"

const (
	baseGravityInterval  = 900 * time.Millisecond
	gravityStepPerLevel  = 60 * time.Millisecond
	minGravityInterval   = 120 * time.Millisecond
	linesPerLevel        = 10
	softDropPointsPerRow = 1
	hardDropPointsPerRow = 2
)

// LineClearBonus returns the points for clearing n rows at once before the
// level multiplier is applied.
func LineClearBonus(n int) int {
	switch n {
	case 1:
		return 100
	case 2:
		return 300
	case 3:
		return 500
	case 4:
		return 800
	default:
		return 0
	}
}

// LevelForLines returns the level reached after clearing lines rows in total
func LevelForLines(lines int) int {
	return max(1, lines/linesPerLevel+1)
}

// GravityInterval returns the time between gravity ticks at level
func GravityInterval(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	return max(minGravityInterval, baseGravityInterval-time.Duration(level-1)*gravityStepPerLevel)
}
