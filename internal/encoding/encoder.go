package encoding

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
)

// Symbol alphabet shared by the encoder and the dataset builder
const (
	RestSymbol         = "r"
	ContinuationSymbol = "_"
	DelimiterSymbol    = "/"
)

// DefaultTimeStep is a sixteenth note, in beats
const DefaultTimeStep = 0.25

// gridTolerance absorbs float noise when checking that a duration sits on the grid
const gridTolerance = 1e-9

var (
	// ErrOffGrid is returned for events that are not a positive multiple of the time step
	ErrOffGrid = errors.New("duration is not on the time-step grid")
	// ErrMalformedSeries is returned when a series cannot be split into events
	ErrMalformedSeries = errors.New("malformed encoded series")
)

// Series is an encoded song: one symbol per time step
type Series []string

// String renders the series as a space-joined token stream
func (s Series) String() string {
	return strings.Join(s, " ")
}

// ParseSeries splits a token stream back into a series
func ParseSeries(tokens string) Series {
	return Series(strings.Fields(tokens))
}

// Run is one event recovered from a series: its symbol and how long it lasts
type Run struct {
	Symbol   string
	Duration float64
}

// Symbol returns the token for an event: its MIDI pitch or the rest marker
func Symbol(ev models.Event) string {
	if ev.IsRest() {
		return RestSymbol
	}
	return strconv.Itoa(*ev.Pitch)
}

// Steps returns how many time steps an event of the given duration occupies
func Steps(duration, timeStep float64) (int, error) {
	if timeStep <= 0 {
		return 0, fmt.Errorf("time step must be positive, got %v", timeStep)
	}
	steps := math.Round(duration / timeStep)
	if steps < 1 || math.Abs(steps*timeStep-duration) > gridTolerance {
		return 0, fmt.Errorf("%w: %v beats at step %v", ErrOffGrid, duration, timeStep)
	}
	return int(steps), nil
}

// Encode converts the score's events into a time-step series.
// p=60 d=1.0 -> 60 _ _ _ ; a rest of 0.5 -> r _
func Encode(score *models.Score, timeStep float64) (Series, error) {
	var series Series
	for i, ev := range score.Events() {
		steps, err := Steps(ev.Duration, timeStep)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		series = append(series, Symbol(ev))
		for step := 1; step < steps; step++ {
			series = append(series, ContinuationSymbol)
		}
	}
	return series, nil
}

// Runs groups each symbol with its trailing continuation markers and
// returns the events the series was encoded from.
func Runs(series Series, timeStep float64) ([]Run, error) {
	var runs []Run
	for i, token := range series {
		if token == ContinuationSymbol {
			if len(runs) == 0 {
				return nil, fmt.Errorf("%w: continuation at position %d has no event", ErrMalformedSeries, i)
			}
			runs[len(runs)-1].Duration += timeStep
			continue
		}
		runs = append(runs, Run{Symbol: token, Duration: timeStep})
	}
	return runs, nil
}
