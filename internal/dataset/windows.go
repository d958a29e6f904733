package dataset

import (
	"fmt"
	"iter"
	"strings"
)

// TrainingExample is a context window and the id that follows it
type TrainingExample struct {
	Context []int `msgpack:"context" json:"context"`
	Target  int   `msgpack:"target" json:"target"`
}

// ToIDs maps every corpus token to its vocabulary id.
// The first unmapped token aborts the mapping.
func ToIDs(corpus string, vocab *Vocabulary) ([]int, error) {
	tokens := strings.Fields(corpus)
	ids := make([]int, len(tokens))
	for i, token := range tokens {
		id, ok := vocab.ids[token]
		if !ok {
			return nil, &UnmappedSymbolError{Token: token, Position: i}
		}
		ids[i] = id
	}
	return ids, nil
}

// Windows slides a fixed-size window over an integer series
type Windows struct {
	ids            []int
	sequenceLength int
}

// NewWindows copies the series so later changes to ids do not leak into the windows
func NewWindows(ids []int, sequenceLength int) (*Windows, error) {
	if sequenceLength < 1 {
		return nil, fmt.Errorf("sequence length must be at least 1, got %d", sequenceLength)
	}
	own := make([]int, len(ids))
	copy(own, ids)
	return &Windows{ids: own, sequenceLength: sequenceLength}, nil
}

// Len returns the number of examples: len(ids) - sequenceLength, or 0 for short series
func (w *Windows) Len() int {
	if n := len(w.ids) - w.sequenceLength; n > 0 {
		return n
	}
	return 0
}

// SequenceLength returns the context size
func (w *Windows) SequenceLength() int {
	return w.sequenceLength
}

// At returns example i. The context is a fresh slice.
func (w *Windows) At(i int) TrainingExample {
	context := make([]int, w.sequenceLength)
	copy(context, w.ids[i:i+w.sequenceLength])
	return TrainingExample{Context: context, Target: w.ids[i+w.sequenceLength]}
}

// All yields every example in order. The sequence can be ranged over any number of times.
func (w *Windows) All() iter.Seq2[int, TrainingExample] {
	return func(yield func(int, TrainingExample) bool) {
		for i := 0; i < w.Len(); i++ {
			if !yield(i, w.At(i)) {
				return
			}
		}
	}
}

// TrainingSet is the buffer pair handed to the external trainer:
// one-hot contexts of shape (NumExamples, SequenceLength, VocabularySize) flattened
// row-major, and targets of shape (NumExamples).
type TrainingSet struct {
	NumExamples    int       `msgpack:"num_examples"`
	SequenceLength int       `msgpack:"sequence_length"`
	VocabularySize int       `msgpack:"vocabulary_size"`
	Inputs         []float32 `msgpack:"inputs"`
	Targets        []int     `msgpack:"targets"`
}

// InputShape returns the shape of Inputs
func (t *TrainingSet) InputShape() [3]int {
	return [3]int{t.NumExamples, t.SequenceLength, t.VocabularySize}
}

// OneHot expands every context into one-hot rows of width vocabSize
func OneHot(w *Windows, vocabSize int) (*TrainingSet, error) {
	if vocabSize < 1 {
		return nil, fmt.Errorf("vocabulary size must be at least 1, got %d", vocabSize)
	}
	for i, id := range w.ids {
		if id < 0 || id >= vocabSize {
			return nil, fmt.Errorf("id %d at position %d outside vocabulary of size %d", id, i, vocabSize)
		}
	}

	n := w.Len()
	set := &TrainingSet{
		NumExamples:    n,
		SequenceLength: w.sequenceLength,
		VocabularySize: vocabSize,
		Inputs:         make([]float32, n*w.sequenceLength*vocabSize),
		Targets:        make([]int, n),
	}
	for i, ex := range w.All() {
		base := i * w.sequenceLength * vocabSize
		for step, id := range ex.Context {
			set.Inputs[base+step*vocabSize+id] = 1
		}
		set.Targets[i] = ex.Target
	}
	return set, nil
}
