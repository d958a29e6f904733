package theory

import (
	"fmt"
	"math"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"gonum.org/v1/gonum/stat"
)

// Krumhansl-Schmuckler key profiles (probe-tone ratings), indexed from the tonic
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyCandidate is one of the 24 major/minor keys with its correlation score
type KeyCandidate struct {
	Key         models.Key
	Correlation float64
}

// PitchClassHistogram sums event durations per pitch class. Rests are ignored.
func PitchClassHistogram(score *models.Score) ([]float64, float64) {
	hist := make([]float64, 12)
	total := 0.0
	for _, ev := range score.Events() {
		if ev.IsRest() {
			continue
		}
		hist[mod12(*ev.Pitch)] += ev.Duration
		total += ev.Duration
	}
	return hist, total
}

// RankKeys correlates the score's pitch-class histogram with every rotation of the
// major and minor profiles. Candidates come back in C..B major then C..B minor order.
func RankKeys(score *models.Score) ([]KeyCandidate, error) {
	hist, total := PitchClassHistogram(score)
	if total == 0 {
		return nil, fmt.Errorf("%w: score has no pitched events", ErrKeyDetermination)
	}

	candidates := make([]KeyCandidate, 0, 24)
	for _, mode := range []models.Mode{models.ModeMajor, models.ModeMinor} {
		profile := majorProfile
		if mode == models.ModeMinor {
			profile = minorProfile
		}
		for tonic := 0; tonic < 12; tonic++ {
			candidates = append(candidates, KeyCandidate{
				Key:         models.Key{Tonic: SpellPitchClass(tonic), Mode: mode},
				Correlation: stat.Correlation(hist, rotate(profile, tonic), nil),
			})
		}
	}
	return candidates, nil
}

// EstimateKey picks the best correlated key. Ties keep the earliest candidate.
func EstimateKey(score *models.Score) (models.Key, error) {
	candidates, err := RankKeys(score)
	if err != nil {
		return models.Key{}, err
	}

	best := -1
	for i, c := range candidates {
		if math.IsNaN(c.Correlation) {
			continue
		}
		if best < 0 || c.Correlation > candidates[best].Correlation {
			best = i
		}
	}
	if best < 0 {
		return models.Key{}, fmt.Errorf("%w: pitch content has no tonal profile", ErrKeyDetermination)
	}
	return candidates[best].Key, nil
}

// rotate aligns a tonic-relative profile to absolute pitch classes for the given tonic
func rotate(profile []float64, tonic int) []float64 {
	out := make([]float64, len(profile))
	for pc := range out {
		out[pc] = profile[mod12(pc-tonic)]
	}
	return out
}
