package theory

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
)

// Semitone offset of each natural step from C
var stepSemitones = map[byte]int{
	'C': 0,
	'D': 2,
	'E': 4,
	'F': 5,
	'G': 7,
	'A': 9,
	'B': 11,
}

// Spelling used for estimated keys, indexed by pitch class
var pitchClassSpelling = [12]models.Tonic{
	{Step: 'C'},
	{Step: 'C', Alter: 1},
	{Step: 'D'},
	{Step: 'E', Alter: -1},
	{Step: 'E'},
	{Step: 'F'},
	{Step: 'F', Alter: 1},
	{Step: 'G'},
	{Step: 'A', Alter: -1},
	{Step: 'A'},
	{Step: 'B', Alter: -1},
	{Step: 'B'},
}

// ParseTonic parses a spelled tonic name.
// Supports: C, c, F#, Bb, E- (flat written as '-'), C##, etc.
func ParseTonic(name string) (models.Tonic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tonic{}, fmt.Errorf("empty tonic")
	}

	step := strings.ToUpper(name[:1])[0]
	if _, ok := stepSemitones[step]; !ok {
		return models.Tonic{}, fmt.Errorf("invalid tonic step: %q", name)
	}

	alter := 0
	for _, r := range name[1:] {
		switch r {
		case '#':
			alter++
		case 'b', '-':
			alter--
		default:
			return models.Tonic{}, fmt.Errorf("invalid tonic alteration in %q", name)
		}
	}

	return models.Tonic{Step: step, Alter: alter}, nil
}

// PitchClass returns the tonic's pitch class (0=C ... 11=B)
func PitchClass(t models.Tonic) int {
	return mod12(stepSemitones[t.Step] + t.Alter)
}

// SpellPitchClass returns the conventional spelling for a pitch class
func SpellPitchClass(pc int) models.Tonic {
	return pitchClassSpelling[mod12(pc)]
}

// MIDI returns the MIDI note number of a spelled pitch in the given octave (C4 = 60).
// The alteration is applied after the octave, so B#4 is 72 and Cb4 is 59.
func MIDI(t models.Tonic, octave int) int {
	return (octave+1)*12 + stepSemitones[t.Step] + t.Alter
}

func mod12(n int) int {
	n %= 12
	if n < 0 {
		n += 12
	}
	return n
}
