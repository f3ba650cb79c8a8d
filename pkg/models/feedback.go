package models

import "time"

// PersonalScore is a per-(model,category) running tally of this instance's
// own outcome feedback.
type PersonalScore struct {
	Model     string  `json:"model"`
	Category  Category `json:"category"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
}

// Total is successes+failures.
func (p PersonalScore) Total() int { return p.Successes + p.Failures }

// Score is successes/total, or 0 when there is no data yet.
func (p PersonalScore) Score() float64 {
	t := p.Total()
	if t == 0 {
		return 0
	}
	return float64(p.Successes) / float64(t)
}

// ContextScore is PersonalScore further keyed by a context tag.
type ContextScore struct {
	Model      string   `json:"model"`
	Category   Category `json:"category"`
	ContextTag string   `json:"contextTag"`
	Successes  int      `json:"successes"`
	Failures   int      `json:"failures"`
}

func (c ContextScore) Total() int { return c.Successes + c.Failures }

func (c ContextScore) Score() float64 {
	t := c.Total()
	if t == 0 {
		return 0
	}
	return float64(c.Successes) / float64(t)
}

// CommunityScore is an aggregate of external ratings for a (model,category).
type CommunityScore struct {
	Model        string   `json:"model"`
	Category     Category `json:"category"`
	TotalRatings int      `json:"totalRatings"`
	SumRatings   float64  `json:"sumRatings"`
	Contributors int      `json:"contributors"`
}

// AvgRating is sumRatings/totalRatings, or 0 when there are no ratings.
func (c CommunityScore) AvgRating() float64 {
	if c.TotalRatings == 0 {
		return 0
	}
	return c.SumRatings / float64(c.TotalRatings)
}

// RatingEvent records a single community-rating submission, used to drive
// the per-instance hourly rate limit.
type RatingEvent struct {
	Model      string    `json:"model"`
	Category   Category  `json:"category"`
	SubmittedAt time.Time `json:"submittedAt"`
}

const (
	// PersonalSampleThreshold is the minimum observation count before a
	// personal score is considered meaningful (§4.1.3).
	PersonalSampleThreshold = 3
	// ContextSampleThreshold mirrors PersonalSampleThreshold for context scores.
	ContextSampleThreshold = 3
	// CommunitySampleThreshold is the minimum rating count before a
	// community score is considered meaningful (§4.1.3).
	CommunitySampleThreshold = 10
)
