// Package theory holds the key handling of the pipeline: pitch spelling, key
// determination (embedded or estimated) and transposition to C major / A minor.
package theory

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
)

// ErrKeyDetermination is returned when a score's key cannot be resolved to a major or minor key
var ErrKeyDetermination = errors.New("key determination failed")

// Reference tonics: major keys move to C, minor keys to A
var (
	majorReference = models.Tonic{Step: 'C'}
	minorReference = models.Tonic{Step: 'A'}
)

// referenceOctave is the octave both tonics are placed in when measuring the interval
const referenceOctave = 4

// DetermineKey returns the key annotated on the first measure of the first part,
// falling back to statistical estimation when there is none.
func DetermineKey(score *models.Score) (models.Key, error) {
	if key := score.EmbeddedKey(); key != nil {
		if !key.IsDefinite() {
			return models.Key{}, fmt.Errorf("%w: embedded key %s has unsupported mode", ErrKeyDetermination, key)
		}
		return *key, nil
	}
	return EstimateKey(score)
}

// Interval returns the semitone offset that maps the key onto its reference tonic
func Interval(key models.Key) (int, error) {
	var target models.Tonic
	switch key.Mode {
	case models.ModeMajor:
		target = majorReference
	case models.ModeMinor:
		target = minorReference
	default:
		return 0, fmt.Errorf("%w: mode %q is neither major nor minor", ErrKeyDetermination, key.Mode)
	}
	return MIDI(target, referenceOctave) - MIDI(key.Tonic, referenceOctave), nil
}

// Transpose returns a copy of the score with every pitched event shifted by semitones.
// Embedded keys are transposed along with the notes.
func Transpose(score *models.Score, semitones int) *models.Score {
	out := score.Clone()
	for i := range out.Parts {
		for j := range out.Parts[i].Measures {
			m := &out.Parts[i].Measures[j]
			if m.Key != nil {
				m.Key.Tonic = SpellPitchClass(PitchClass(m.Key.Tonic) + semitones)
			}
			for k := range m.Events {
				if p := m.Events[k].Pitch; p != nil {
					*p += semitones
				}
			}
		}
	}
	return out
}

// TransposeToReference determines the key of the score and moves it to C major or A minor.
// It returns the transposed copy, the original key and the interval applied.
func TransposeToReference(score *models.Score) (*models.Score, models.Key, int, error) {
	key, err := DetermineKey(score)
	if err != nil {
		return nil, models.Key{}, 0, err
	}
	interval, err := Interval(key)
	if err != nil {
		return nil, key, 0, err
	}
	return Transpose(score, interval), key, interval, nil
}
