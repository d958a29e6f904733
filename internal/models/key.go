package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode is the modality of a key
type Mode string

const (
	ModeMajor   Mode = "major"
	ModeMinor   Mode = "minor"
	ModeUnknown Mode = "unknown" // e.g. dorian or an unparseable annotation
)

// Tonic is a spelled pitch class: a letter step (A-G) plus an alteration in semitones.
// Spelling matters for transposition: B#4 and C5 are the same pitch class but not the same pitch.
type Tonic struct {
	Step  byte `json:"step"`
	Alter int  `json:"alter"`
}

// Key is a tonic plus a mode
type Key struct {
	Tonic Tonic `json:"tonic"`
	Mode  Mode  `json:"mode"`
}

// IsDefinite reports whether the key has a major or minor mode
func (k Key) IsDefinite() bool {
	return k.Mode == ModeMajor || k.Mode == ModeMinor
}

func (t Tonic) String() string {
	s := string(t.Step)
	switch {
	case t.Alter > 0:
		for i := 0; i < t.Alter; i++ {
			s += "#"
		}
	case t.Alter < 0:
		for i := 0; i > t.Alter; i-- {
			s += "b"
		}
	}
	return s
}

type tonicJSON struct {
	Step  string `json:"step"`
	Alter int    `json:"alter"`
}

// MarshalJSON writes the step as its letter, e.g. {"step":"C","alter":0}
func (t Tonic) MarshalJSON() ([]byte, error) {
	step := ""
	if t.Step != 0 {
		step = string(t.Step)
	}
	return json.Marshal(tonicJSON{Step: step, Alter: t.Alter})
}

// UnmarshalJSON accepts a single letter A-G in either case
func (t *Tonic) UnmarshalJSON(data []byte) error {
	var raw tonicJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	step := strings.ToUpper(raw.Step)
	if len(step) != 1 || step[0] < 'A' || step[0] > 'G' {
		return fmt.Errorf("invalid tonic step %q", raw.Step)
	}
	t.Step = step[0]
	t.Alter = raw.Alter
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.Tonic, k.Mode)
}
