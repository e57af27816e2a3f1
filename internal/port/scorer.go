package port

import "tradelens/internal/domain"

// DefenseScorer rates one commodity's defense criticality. The returned
// score is always in [0,10]; out-of-range model output is an error.
type DefenseScorer interface {
	Score(hs6, description string) (*domain.DefenseScore, error)
}
