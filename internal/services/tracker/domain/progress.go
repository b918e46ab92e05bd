package domain

import "time"

// Progress is a point-in-time view of how far along a job is. All values are
// recomputed from the placement timestamp, so repeated calls with an
// advancing clock yield non-decreasing percentages until completion.
type Progress struct {
	ElapsedMinutes   int
	RemainingMinutes int
	Percent          float64
	Complete         bool
}

// ProgressAt computes the job's progress at now. Elapsed minutes are floored,
// remaining minutes never go below zero, and the percentage is clamped to
// [0, 100].
func (j Job) ProgressAt(now time.Time) Progress {
	durationMinutes := int(j.Duration / time.Minute)
	elapsedMinutes := int(now.Sub(j.PlacedAt) / time.Minute)
	if elapsedMinutes < 0 {
		elapsedMinutes = 0
	}

	remainingMinutes := durationMinutes - elapsedMinutes
	if remainingMinutes < 0 {
		remainingMinutes = 0
	}

	percent := 100.0
	if durationMinutes > 0 {
		percent = float64(elapsedMinutes) / float64(durationMinutes) * 100
		if percent > 100 {
			percent = 100
		}
		if percent < 0 {
			percent = 0
		}
	}

	return Progress{
		ElapsedMinutes:   elapsedMinutes,
		RemainingMinutes: remainingMinutes,
		Percent:          percent,
		Complete:         elapsedMinutes >= durationMinutes,
	}
}
