// Package dataset assembles encoded songs into a single delimited corpus, builds the
// token vocabulary and slides training windows over the integer-mapped corpus.
package dataset

import (
	"fmt"
	"os"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/encoding"
)

// Delimiter returns the song separator block: sequenceLength delimiter tokens
func Delimiter(sequenceLength int) string {
	return strings.TrimSuffix(strings.Repeat(encoding.DelimiterSymbol+" ", sequenceLength), " ")
}

// Assemble joins per-song token streams in the given order, separating each pair of songs
// with sequenceLength delimiter tokens, so no window of that size spans two songs without
// touching a delimiter.
//
//	["60", "62"], 2 -> "60 / / 62"
func Assemble(songs []string, sequenceLength int) (string, error) {
	if sequenceLength < 1 {
		return "", fmt.Errorf("sequence length must be at least 1, got %d", sequenceLength)
	}

	separator := " " + Delimiter(sequenceLength) + " "
	var b strings.Builder
	for i, song := range songs {
		song = strings.TrimSpace(song)
		if song == "" {
			return "", fmt.Errorf("song %d is empty", i)
		}
		if i > 0 {
			b.WriteString(separator)
		}
		b.WriteString(song)
	}
	return b.String(), nil
}

// SaveCorpus writes the single-file dataset
func SaveCorpus(path, corpus string) error {
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}

// LoadCorpus reads the single-file dataset
func LoadCorpus(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return string(data), nil
}
