package dataset

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// ExportVersion identifies the training export layout
const ExportVersion = "melody-dataset.v1"

// ExportHeader precedes the training set in an export file
type ExportHeader struct {
	Version string   `msgpack:"version"`
	Tokens  []string `msgpack:"tokens"` // Vocabulary tokens indexed by id
}

// WriteTrainingSet encodes the header followed by the training set
func WriteTrainingSet(w io.Writer, vocab *Vocabulary, set *TrainingSet) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(ExportHeader{Version: ExportVersion, Tokens: vocab.Tokens()}); err != nil {
		return fmt.Errorf("failed to encode export header: %w", err)
	}
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("failed to encode training set: %w", err)
	}
	return nil
}

// ReadTrainingSet decodes an export written by WriteTrainingSet
func ReadTrainingSet(r io.Reader) (*ExportHeader, *TrainingSet, error) {
	dec := msgpack.NewDecoder(r)
	var header ExportHeader
	if err := dec.Decode(&header); err != nil {
		return nil, nil, fmt.Errorf("failed to decode export header: %w", err)
	}
	if header.Version != ExportVersion {
		return nil, nil, fmt.Errorf("unsupported export version %q", header.Version)
	}
	var set TrainingSet
	if err := dec.Decode(&set); err != nil {
		return nil, nil, fmt.Errorf("failed to decode training set: %w", err)
	}
	return &header, &set, nil
}

// ExportTrainingSet writes the export to path
func ExportTrainingSet(path string, vocab *Vocabulary, set *TrainingSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export %s: %w", path, err)
	}
	if err := WriteTrainingSet(f, vocab, set); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
