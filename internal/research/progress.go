package research

import (
	"math"
	"time"
)

// ProgressEstimator maps elapsed time on a job with no native progress onto a
// percent range, easing with a square root so early progress moves fastest.
type ProgressEstimator struct {
	From     int
	To       int
	Expected time.Duration
}

// Percent returns the estimated percent after elapsed. It starts at From, never
// decreases as elapsed grows, and stays below To so that only completion reaches it.
func (e ProgressEstimator) Percent(elapsed time.Duration) int {
	span := e.To - e.From
	if span <= 1 || elapsed <= 0 || e.Expected <= 0 {
		return e.From
	}
	ratio := float64(elapsed) / float64(e.Expected)
	if ratio > 1 {
		ratio = 1
	}
	return e.From + int(float64(span-1)*math.Sqrt(ratio))
}
