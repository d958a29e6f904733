package models

// Score is one parsed piece of music: parts -> measures -> timed events.
type Score struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"` // Path the score was parsed from
	Parts  []Part `json:"parts"`
}

// Part is a single monophonic voice of a score
type Part struct {
	Name     string    `json:"name,omitempty"`
	Measures []Measure `json:"measures"`
}

// Measure holds the events of one bar in time order.
// Key is only set when the notation carries an explicit key (not just a key signature).
type Measure struct {
	Number int     `json:"number"`
	Key    *Key    `json:"key,omitempty"`
	Events []Event `json:"events"`
}

// Event is a note or a rest. Duration is in beats (quarter notes).
type Event struct {
	Pitch    *int    `json:"pitch,omitempty"` // MIDI note number, nil for rests
	Duration float64 `json:"duration"`
}

// Note returns a pitched event
func Note(pitch int, duration float64) Event {
	p := pitch
	return Event{Pitch: &p, Duration: duration}
}

// Rest returns an unpitched event
func Rest(duration float64) Event {
	return Event{Duration: duration}
}

// IsRest reports whether the event carries no pitch
func (e Event) IsRest() bool {
	return e.Pitch == nil
}

// Events returns every event of the score flattened in time order.
// Parts are visited in order, so multi-part scores are read as one stream.
func (s *Score) Events() []Event {
	if s == nil {
		return nil
	}
	var out []Event
	for _, part := range s.Parts {
		for _, measure := range part.Measures {
			out = append(out, measure.Events...)
		}
	}
	return out
}

// EmbeddedKey returns the key annotated on the first measure of the first part, if any
func (s *Score) EmbeddedKey() *Key {
	if s == nil || len(s.Parts) == 0 || len(s.Parts[0].Measures) == 0 {
		return nil
	}
	return s.Parts[0].Measures[0].Key
}

// Clone returns a deep copy of the score
func (s *Score) Clone() *Score {
	if s == nil {
		return nil
	}
	out := &Score{
		ID:     s.ID,
		Title:  s.Title,
		Source: s.Source,
		Parts:  make([]Part, len(s.Parts)),
	}
	for i, part := range s.Parts {
		measures := make([]Measure, len(part.Measures))
		for j, m := range part.Measures {
			measures[j] = Measure{Number: m.Number}
			if m.Key != nil {
				k := *m.Key
				measures[j].Key = &k
			}
			measures[j].Events = make([]Event, len(m.Events))
			for k, ev := range m.Events {
				measures[j].Events[k] = Event{Duration: ev.Duration}
				if ev.Pitch != nil {
					p := *ev.Pitch
					measures[j].Events[k].Pitch = &p
				}
			}
		}
		out.Parts[i] = Part{Name: part.Name, Measures: measures}
	}
	return out
}
