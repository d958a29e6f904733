package theory

import (
	"errors"
	"testing"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreWithKey(key *models.Key, events ...models.Event) *models.Score {
	return &models.Score{
		ID: "test",
		Parts: []models.Part{{
			Measures: []models.Measure{{Number: 1, Key: key, Events: events}},
		}},
	}
}

func pitches(s *models.Score) []int {
	var out []int
	for _, ev := range s.Events() {
		if !ev.IsRest() {
			out = append(out, *ev.Pitch)
		}
	}
	return out
}

func TestParseTonic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected models.Tonic
		wantErr  bool
	}{
		{name: "natural", input: "C", expected: models.Tonic{Step: 'C'}},
		{name: "lowercase", input: "g", expected: models.Tonic{Step: 'G'}},
		{name: "sharp", input: "F#", expected: models.Tonic{Step: 'F', Alter: 1}},
		{name: "flat b", input: "Bb", expected: models.Tonic{Step: 'B', Alter: -1}},
		{name: "flat dash", input: "e-", expected: models.Tonic{Step: 'E', Alter: -1}},
		{name: "double sharp", input: "C##", expected: models.Tonic{Step: 'C', Alter: 2}},
		{name: "empty", input: "", wantErr: true},
		{name: "bad step", input: "H", wantErr: true},
		{name: "bad alteration", input: "Cx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTonic(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMIDI(t *testing.T) {
	assert.Equal(t, 60, MIDI(models.Tonic{Step: 'C'}, 4))
	assert.Equal(t, 69, MIDI(models.Tonic{Step: 'A'}, 4))
	assert.Equal(t, 72, MIDI(models.Tonic{Step: 'B', Alter: 1}, 4))
	assert.Equal(t, 59, MIDI(models.Tonic{Step: 'C', Alter: -1}, 4))
	assert.Equal(t, 48, MIDI(models.Tonic{Step: 'C'}, 3))
}

func TestInterval(t *testing.T) {
	tests := []struct {
		name     string
		key      models.Key
		expected int
	}{
		{name: "C major", key: models.Key{Tonic: models.Tonic{Step: 'C'}, Mode: models.ModeMajor}, expected: 0},
		{name: "A minor", key: models.Key{Tonic: models.Tonic{Step: 'A'}, Mode: models.ModeMinor}, expected: 0},
		{name: "G major", key: models.Key{Tonic: models.Tonic{Step: 'G'}, Mode: models.ModeMajor}, expected: -7},
		{name: "F major", key: models.Key{Tonic: models.Tonic{Step: 'F'}, Mode: models.ModeMajor}, expected: -5},
		{name: "Bb major", key: models.Key{Tonic: models.Tonic{Step: 'B', Alter: -1}, Mode: models.ModeMajor}, expected: -10},
		{name: "E minor", key: models.Key{Tonic: models.Tonic{Step: 'E'}, Mode: models.ModeMinor}, expected: 5},
		{name: "C minor", key: models.Key{Tonic: models.Tonic{Step: 'C'}, Mode: models.ModeMinor}, expected: 9},
		{name: "B minor", key: models.Key{Tonic: models.Tonic{Step: 'B'}, Mode: models.ModeMinor}, expected: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interval(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestInterval_UnknownMode(t *testing.T) {
	_, err := Interval(models.Key{Tonic: models.Tonic{Step: 'D'}, Mode: models.ModeUnknown})
	assert.True(t, errors.Is(err, ErrKeyDetermination))
}

func TestTransposeToReference_CanonicalKeysAreIdentity(t *testing.T) {
	for _, key := range []models.Key{
		{Tonic: models.Tonic{Step: 'C'}, Mode: models.ModeMajor},
		{Tonic: models.Tonic{Step: 'A'}, Mode: models.ModeMinor},
	} {
		t.Run(key.String(), func(t *testing.T) {
			k := key
			score := scoreWithKey(&k,
				models.Note(60, 1), models.Rest(0.5), models.Note(64, 0.5), models.Note(67, 2))

			transposed, detected, interval, err := TransposeToReference(score)
			require.NoError(t, err)
			assert.Equal(t, key, detected)
			assert.Equal(t, 0, interval)
			assert.Equal(t, pitches(score), pitches(transposed))
		})
	}
}

func TestTransposeToReference_EmbeddedKey(t *testing.T) {
	key := models.Key{Tonic: models.Tonic{Step: 'G'}, Mode: models.ModeMajor}
	score := scoreWithKey(&key, models.Note(67, 1), models.Rest(1), models.Note(71, 0.5), models.Note(74, 0.5))

	transposed, _, interval, err := TransposeToReference(score)
	require.NoError(t, err)
	assert.Equal(t, -7, interval)
	assert.Equal(t, []int{60, 64, 67}, pitches(transposed))

	// rests and durations survive untouched
	events := transposed.Events()
	require.Len(t, events, 4)
	assert.True(t, events[1].IsRest())
	assert.Equal(t, 1.0, events[1].Duration)
	assert.Equal(t, 0.5, events[3].Duration)

	// the key annotation moves with the notes
	require.NotNil(t, transposed.EmbeddedKey())
	assert.Equal(t, models.Tonic{Step: 'C'}, transposed.EmbeddedKey().Tonic)

	// input is not mutated
	assert.Equal(t, []int{67, 71, 74}, pitches(score))
	assert.Equal(t, models.Tonic{Step: 'G'}, score.EmbeddedKey().Tonic)
}

func TestTransposeToReference_UnsupportedEmbeddedMode(t *testing.T) {
	key := models.Key{Tonic: models.Tonic{Step: 'D'}, Mode: models.ModeUnknown}
	score := scoreWithKey(&key, models.Note(62, 1))

	_, _, _, err := TransposeToReference(score)
	assert.ErrorIs(t, err, ErrKeyDetermination)
}

func TestEstimateKey(t *testing.T) {
	t.Run("C major melody", func(t *testing.T) {
		score := scoreWithKey(nil,
			models.Note(60, 4), models.Note(64, 2), models.Note(67, 2),
			models.Note(62, 1), models.Note(65, 1), models.Note(69, 1), models.Note(71, 1),
			models.Note(72, 4))

		key, err := EstimateKey(score)
		require.NoError(t, err)
		assert.Equal(t, models.Key{Tonic: models.Tonic{Step: 'C'}, Mode: models.ModeMajor}, key)
	})

	t.Run("A minor melody", func(t *testing.T) {
		score := scoreWithKey(nil,
			models.Note(69, 4), models.Note(72, 2), models.Note(76, 2),
			models.Note(71, 1), models.Note(74, 1), models.Note(64, 2),
			models.Note(57, 4))

		key, err := EstimateKey(score)
		require.NoError(t, err)
		assert.Equal(t, models.Key{Tonic: models.Tonic{Step: 'A'}, Mode: models.ModeMinor}, key)
	})

	t.Run("G major melody transposes to C", func(t *testing.T) {
		score := scoreWithKey(nil,
			models.Note(67, 4), models.Note(71, 2), models.Note(74, 2),
			models.Note(69, 1), models.Note(72, 1), models.Note(76, 1), models.Note(78, 1),
			models.Note(79, 4))

		transposed, key, interval, err := TransposeToReference(score)
		require.NoError(t, err)
		assert.Equal(t, models.ModeMajor, key.Mode)
		assert.Equal(t, models.Tonic{Step: 'G'}, key.Tonic)
		assert.Equal(t, -7, interval)
		assert.Equal(t, 60, pitches(transposed)[0])
	})

	t.Run("only rests", func(t *testing.T) {
		score := scoreWithKey(nil, models.Rest(1), models.Rest(2))
		_, err := EstimateKey(score)
		assert.ErrorIs(t, err, ErrKeyDetermination)
	})

	t.Run("empty score", func(t *testing.T) {
		_, err := DetermineKey(&models.Score{})
		assert.ErrorIs(t, err, ErrKeyDetermination)
	})
}

func TestRankKeys_ReturnsAllCandidates(t *testing.T) {
	score := scoreWithKey(nil, models.Note(60, 1), models.Note(64, 1), models.Note(67, 1))
	candidates, err := RankKeys(score)
	require.NoError(t, err)
	require.Len(t, candidates, 24)
	assert.Equal(t, models.ModeMajor, candidates[0].Key.Mode)
	assert.Equal(t, models.ModeMinor, candidates[12].Key.Mode)
	assert.Equal(t, models.Tonic{Step: 'E', Alter: -1}, candidates[3].Key.Tonic)
}
