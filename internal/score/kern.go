package score

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/Conceptual-Machines/melody-dataset/internal/theory"
)

// KernSource reads Humdrum **kern files.
// Only the first **kern spine is read; chords are reduced to their first note and grace notes are kept with zero duration.
type KernSource struct{}

func (KernSource) Extensions() []string {
	return []string{".krn"}
}

func (KernSource) Parse(ctx context.Context, path string) (*models.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ParseKern(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.ID = songID(path)
	s.Source = path
	return s, nil
}

// *G: major, *e-: minor, *d:dor modal
var kernKeyPattern = regexp.MustCompile(`^\*([A-Ga-g])([#\-]*):([a-z]*)$`)

const maxKernLine = 1024 * 1024

type kernReader struct {
	column   int // index of the spine being read, -1 until the header is seen
	done     bool
	current  models.Measure
	measures []models.Measure
}

// ParseKern reads a Humdrum **kern document
func ParseKern(r io.Reader) (*models.Score, error) {
	kr := &kernReader{column: -1}
	title := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxKernLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "!!!OTL"):
			if i := strings.IndexByte(line, ':'); i >= 0 {
				title = strings.TrimSpace(line[i+1:])
			}
			continue
		case strings.HasPrefix(line, "!"):
			continue
		}

		fields := strings.Split(line, "\t")
		if kr.column < 0 {
			if strings.HasPrefix(line, "**") {
				for i, f := range fields {
					if f == "**kern" {
						kr.column = i
						break
					}
				}
				if kr.column < 0 {
					return nil, fmt.Errorf("line %d: no **kern spine", lineNo)
				}
			}
			continue
		}
		if kr.done {
			break
		}
		if kr.column >= len(fields) {
			return nil, fmt.Errorf("line %d: spine %d missing", lineNo, kr.column+1)
		}

		token := fields[kr.column]
		var err error
		switch {
		case strings.HasPrefix(token, "*"):
			err = kr.interpret(fields)
		case strings.HasPrefix(token, "="):
			kr.barline(token)
		default:
			err = kr.data(token)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read kern: %w", err)
	}
	if kr.column < 0 {
		return nil, fmt.Errorf("no **kern spine")
	}

	if len(kr.current.Events) > 0 || (kr.current.Key != nil && len(kr.measures) == 0) {
		kr.measures = append(kr.measures, kr.current)
	}
	return &models.Score{
		Title: title,
		Parts: []models.Part{{Name: "kern", Measures: kr.measures}},
	}, nil
}

func (kr *kernReader) interpret(fields []string) error {
	token := fields[kr.column]
	if token == "*-" {
		kr.done = true
		return nil
	}
	if m := kernKeyPattern.FindStringSubmatch(token); m != nil {
		tonic, err := theory.ParseTonic(m[1] + m[2])
		if err != nil {
			return err
		}
		mode := models.ModeMajor
		if m[1] == strings.ToLower(m[1]) {
			mode = models.ModeMinor
		}
		if m[3] != "" {
			mode = models.ModeUnknown
		}
		kr.current.Key = &models.Key{Tonic: tonic, Mode: mode}
	}
	kr.column = nextColumn(fields, kr.column)
	return nil
}

// nextColumn follows the spine through split (*^), merge (*v) and terminate (*-)
// manipulators applied to the spines on its left.
func nextColumn(fields []string, col int) int {
	next := col
	for j := 0; j < col; {
		switch fields[j] {
		case "*^":
			next++
			j++
		case "*-":
			next--
			j++
		case "*v":
			k := j
			for k < len(fields) && fields[k] == "*v" {
				k++
			}
			if col < k {
				// our spine is merged into the first spine of the run
				return next - (col - j)
			}
			next -= k - j - 1
			j = k
		default:
			j++
		}
	}
	return next
}

func (kr *kernReader) barline(token string) {
	number := kr.current.Number + 1
	digits := strings.TrimLeft(token, "=")
	if end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); end >= 0 {
		digits = digits[:end]
	}
	if n, err := strconv.Atoi(digits); err == nil {
		number = n
	}

	if len(kr.current.Events) == 0 {
		// nothing sounded yet: keep any key annotation for the measure that follows
		kr.current.Number = number
		return
	}
	kr.measures = append(kr.measures, kr.current)
	kr.current = models.Measure{Number: number}
}

func (kr *kernReader) data(token string) error {
	ev, ok, err := parseKernNote(token)
	if err != nil {
		return err
	}
	if ok {
		kr.current.Events = append(kr.current.Events, ev)
	}
	return nil
}

// parseKernNote parses one data token. ok is false for null tokens.
// Grace notes take no time and come back with a zero duration.
func parseKernNote(token string) (ev models.Event, ok bool, err error) {
	if token == "." {
		return models.Event{}, false, nil
	}
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}

	var duration float64
	if !strings.ContainsAny(token, "qQ") {
		duration, err = kernDuration(token)
		if err != nil {
			return models.Event{}, false, err
		}
	}

	letter := strings.IndexAny(token, "abcdefgABCDEFG")
	if letter < 0 {
		if strings.ContainsRune(token, 'r') {
			return models.Rest(duration), true, nil
		}
		return models.Event{}, false, fmt.Errorf("token %q has no pitch or rest", token)
	}

	step := token[letter]
	run := 1
	for letter+run < len(token) && token[letter+run] == step {
		run++
	}
	alter := 0
accidentals:
	for _, c := range token[letter+run:] {
		switch c {
		case '#':
			alter++
		case '-':
			alter--
		case 'n':
		default:
			break accidentals
		}
	}

	// c is C4, cc is C5, C is C3, CC is C2
	octave := 3 + run
	if step < 'a' {
		octave = 4 - run
	}
	pitch := theory.MIDI(models.Tonic{Step: strings.ToUpper(string(step))[0], Alter: alter}, octave)
	return models.Note(pitch, duration), true, nil
}

// kernDuration converts a reciprocal duration (4 = quarter, 8. = dotted eighth,
// 0 = breve, 3%2 = rational) into beats.
func kernDuration(token string) (float64, error) {
	start := strings.IndexAny(token, "0123456789")
	if start < 0 {
		return 0, fmt.Errorf("token %q has no duration", token)
	}
	end := start
	for end < len(token) && token[end] >= '0' && token[end] <= '9' {
		end++
	}
	recip, err := strconv.Atoi(token[start:end])
	if err != nil {
		return 0, fmt.Errorf("token %q has an invalid duration: %w", token, err)
	}

	var beats float64
	switch {
	case end < len(token) && token[end] == '%':
		denEnd := end + 1
		for denEnd < len(token) && token[denEnd] >= '0' && token[denEnd] <= '9' {
			denEnd++
		}
		den, err := strconv.Atoi(token[end+1 : denEnd])
		if err != nil || recip == 0 {
			return 0, fmt.Errorf("token %q has an invalid rational duration", token)
		}
		beats = 4 * float64(den) / float64(recip)
	case recip == 0:
		beats = 8
	default:
		beats = 4 / float64(recip)
	}

	add := beats / 2
	for i := 0; i < strings.Count(token, "."); i++ {
		beats += add
		add /= 2
	}
	return beats, nil
}
