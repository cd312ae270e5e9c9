package publish

import (
	"math"

	"boardwatch/internal/ledger"
)

// Classification levels.
const (
	LevelLow     = "low"
	LevelMedium  = "medium"
	LevelHigh    = "high"
	LevelExtreme = "extreme"
)

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// trendThreshold is the change in percentage points needed to leave stable.
const trendThreshold = 1.0

// Trend compares the current percentage against recent history.
type Trend struct {
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
}

// ClassificationSection is the snapshot's flagged-rhetoric summary.
type ClassificationSection struct {
	Percentage float64 `json:"percentage"`
	Level      string  `json:"level"`
	Trend      Trend   `json:"trend"`
	Analyzed   int     `json:"analyzedComments"`
	Flagged    int     `json:"flaggedComments"`
	UpdatedAt  int64   `json:"updatedAt"`
}

// Level buckets a percentage.
func Level(percentage float64) string {
	switch {
	case percentage >= 30:
		return LevelExtreme
	case percentage >= 20:
		return LevelHigh
	case percentage >= 10:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ComputeTrend compares current with the mean of previous. No history is stable.
func ComputeTrend(current float64, previous []float64) Trend {
	if len(previous) == 0 {
		return Trend{Direction: TrendStable}
	}
	var sum float64
	for _, p := range previous {
		sum += p
	}
	diff := current - sum/float64(len(previous))
	direction := TrendStable
	switch {
	case diff > trendThreshold:
		direction = TrendUp
	case diff < -trendThreshold:
		direction = TrendDown
	}
	return Trend{Direction: direction, Amount: math.Abs(diff)}
}

// buildClassification uses the newest point as current and up to window
// earlier points as history. points are oldest first.
func buildClassification(points []ledger.Point, window int) *ClassificationSection {
	if len(points) == 0 {
		return nil
	}
	latest := points[len(points)-1]
	earlier := points[:len(points)-1]
	if window > 0 && len(earlier) > window {
		earlier = earlier[len(earlier)-window:]
	}
	previous := make([]float64, 0, len(earlier))
	for _, p := range earlier {
		previous = append(previous, p.Percentage)
	}
	return &ClassificationSection{
		Percentage: latest.Percentage,
		Level:      Level(latest.Percentage),
		Trend:      ComputeTrend(latest.Percentage, previous),
		Analyzed:   latest.Analyzed,
		Flagged:    latest.Flagged,
		UpdatedAt:  latest.RecordedAt.UnixMilli(),
	}
}

// TrendPoint is one entry of the classification trends file.
type TrendPoint struct {
	Timestamp  int64   `json:"timestamp"`
	Percentage float64 `json:"percentage"`
	Analyzed   int     `json:"analyzedComments"`
	Flagged    int     `json:"flaggedComments"`
}

// TrendPoints converts ledger history (oldest first) to the trends file shape.
func TrendPoints(points []ledger.Point) []TrendPoint {
	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, TrendPoint{
			Timestamp:  p.RecordedAt.UnixMilli(),
			Percentage: p.Percentage,
			Analyzed:   p.Analyzed,
			Flagged:    p.Flagged,
		})
	}
	return out
}
