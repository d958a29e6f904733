// Package encoding turns scores into fixed time-step symbol series.
package encoding

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
)

// ErrUnacceptableDuration marks a score holding a duration outside the accepted set
var ErrUnacceptableDuration = errors.New("unacceptable duration")

// DefaultAcceptedDurations are the beat durations representable on the 16th-note grid:
// sixteenth, eighth, dotted eighth, quarter, dotted quarter, half, dotted half, whole.
var DefaultAcceptedDurations = []float64{0.25, 0.5, 0.75, 1.0, 1.5, 2, 3, 4}

// DurationSet is an immutable set of accepted beat durations
type DurationSet struct {
	values  []float64
	members map[float64]struct{}
}

// NewDurationSet builds a set from the given durations. Duplicates are collapsed.
func NewDurationSet(durations []float64) (DurationSet, error) {
	members := make(map[float64]struct{}, len(durations))
	values := make([]float64, 0, len(durations))
	for _, d := range durations {
		if d <= 0 {
			return DurationSet{}, fmt.Errorf("accepted duration must be positive, got %v", d)
		}
		if _, ok := members[d]; ok {
			continue
		}
		members[d] = struct{}{}
		values = append(values, d)
	}
	sort.Float64s(values)
	return DurationSet{values: values, members: members}, nil
}

// Contains reports whether d is an accepted duration
func (s DurationSet) Contains(d float64) bool {
	_, ok := s.members[d]
	return ok
}

// Values returns the accepted durations in ascending order
func (s DurationSet) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of accepted durations
func (s DurationSet) Len() int {
	return len(s.values)
}

// IsAcceptable reports whether every note and rest of the score has an accepted duration.
// An empty score is acceptable.
func IsAcceptable(score *models.Score, accepted DurationSet) bool {
	return CheckDurations(score, accepted) == nil
}

// CheckDurations is IsAcceptable with the offending duration reported.
// It stops at the first duration that is not accepted.
func CheckDurations(score *models.Score, accepted DurationSet) error {
	for i, ev := range score.Events() {
		if !accepted.Contains(ev.Duration) {
			return fmt.Errorf("%w: event %d lasts %v beats", ErrUnacceptableDuration, i, ev.Duration)
		}
	}
	return nil
}
