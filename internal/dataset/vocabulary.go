package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrUnmappedSymbol is the sentinel matched by UnmappedSymbolError
var ErrUnmappedSymbol = errors.New("unmapped symbol")

// UnmappedSymbolError reports a corpus token the vocabulary has no id for.
// It means the vocabulary is stale relative to the corpus.
type UnmappedSymbolError struct {
	Token    string
	Position int
}

func (e *UnmappedSymbolError) Error() string {
	return fmt.Sprintf("unmapped symbol %q at position %d", e.Token, e.Position)
}

// Is lets errors.Is match ErrUnmappedSymbol
func (e *UnmappedSymbolError) Is(target error) bool {
	return target == ErrUnmappedSymbol
}

// Vocabulary is a bijective token <-> dense id mapping
type Vocabulary struct {
	ids    map[string]int
	tokens []string // indexed by id
}

// BuildVocabulary assigns ids 0..|V|-1 to the distinct tokens of the corpus,
// in lexicographic token order so repeated builds agree.
func BuildVocabulary(corpus string) *Vocabulary {
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(corpus) {
		seen[token] = struct{}{}
	}

	tokens := make([]string, 0, len(seen))
	for token := range seen {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	ids := make(map[string]int, len(tokens))
	for i, token := range tokens {
		ids[token] = i
	}
	return &Vocabulary{ids: ids, tokens: tokens}
}

// NewVocabulary validates a loaded mapping: ids must be exactly 0..|V|-1 with no duplicates
func NewVocabulary(mapping map[string]int) (*Vocabulary, error) {
	tokens := make([]string, len(mapping))
	assigned := make([]bool, len(mapping))
	ids := make(map[string]int, len(mapping))

	for token, id := range mapping {
		if strings.TrimSpace(token) == "" || strings.ContainsAny(token, " \t\n") {
			return nil, fmt.Errorf("invalid token %q", token)
		}
		if id < 0 || id >= len(mapping) {
			return nil, fmt.Errorf("token %q has id %d outside 0..%d", token, id, len(mapping)-1)
		}
		if assigned[id] {
			return nil, fmt.Errorf("id %d assigned to both %q and %q", id, tokens[id], token)
		}
		assigned[id] = true
		tokens[id] = token
		ids[token] = id
	}
	return &Vocabulary{ids: ids, tokens: tokens}, nil
}

// Size returns |V|
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// ID returns the id of a token. Unknown tokens are an error, never a default id.
func (v *Vocabulary) ID(token string) (int, error) {
	id, ok := v.ids[token]
	if !ok {
		return 0, &UnmappedSymbolError{Token: token, Position: -1}
	}
	return id, nil
}

// Token returns the token for an id
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Tokens returns the tokens ordered by id
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// Mapping returns a copy of the token -> id map
func (v *Vocabulary) Mapping() map[string]int {
	out := make(map[string]int, len(v.ids))
	for token, id := range v.ids {
		out[token] = id
	}
	return out
}

// Save writes the mapping as indented JSON
func (v *Vocabulary) Save(path string) error {
	data, err := json.MarshalIndent(v.ids, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vocabulary %s: %w", path, err)
	}
	return nil
}

// LoadVocabulary reads a mapping written by Save
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", path, err)
	}
	var mapping map[string]int
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary %s: %w", path, err)
	}
	return NewVocabulary(mapping)
}
