package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Conceptual-Machines/melody-dataset/internal/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPipeline_Defaults(t *testing.T) {
	p, err := LoadPipeline("")
	require.NoError(t, err)

	assert.Equal(t, 64, p.SequenceLength)
	assert.Equal(t, 0.25, p.TimeStep)
	assert.Equal(t, encoding.DefaultAcceptedDurations, p.AcceptedDurations)
	assert.Equal(t, "mapping.json", p.MappingPath)
	assert.Equal(t, "file_dataset.txt", p.DatasetPath)
	assert.Equal(t, "dataset", p.SaveDir)
	assert.Equal(t, KeyFailureSkip, p.KeyFailurePolicy)
	assert.Equal(t, SongStoreFile, p.SongStore)
	assert.GreaterOrEqual(t, p.Workers, 1)
}

func TestLoadPipeline_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := "sequence_length: 32\nkey_failure_policy: abort\naccepted_durations: [0.5, 1, 2]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.Equal(t, 32, p.SequenceLength)
	assert.Equal(t, KeyFailureAbort, p.KeyFailurePolicy)
	assert.Equal(t, []float64{0.5, 1, 2}, p.AcceptedDurations)
	assert.Equal(t, 0.25, p.TimeStep)
}

func TestLoadPipeline_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sequence_length: 32\n"), 0o644))

	t.Setenv("SEQUENCE_LENGTH", "16")
	t.Setenv("ACCEPTED_DURATIONS", "0.25, 0.5,1")
	t.Setenv("DATASET_ROOT", "/data/kern")
	t.Setenv("WORKERS", "3")

	p, err := LoadPipeline(path)
	require.NoError(t, err)
	assert.Equal(t, 16, p.SequenceLength)
	assert.Equal(t, []float64{0.25, 0.5, 1}, p.AcceptedDurations)
	assert.Equal(t, "/data/kern", p.DatasetRoot)
	assert.Equal(t, 3, p.Workers)
}

func TestLoadPipeline_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad sequence length", env: map[string]string{"SEQUENCE_LENGTH": "many"}},
		{name: "zero sequence length", env: map[string]string{"SEQUENCE_LENGTH": "0"}},
		{name: "negative time step", env: map[string]string{"TIME_STEP": "-0.25"}},
		{name: "duration off grid", env: map[string]string{"ACCEPTED_DURATIONS": "0.25,0.3"}},
		{name: "bad duration", env: map[string]string{"ACCEPTED_DURATIONS": "quarter"}},
		{name: "unknown policy", env: map[string]string{"KEY_FAILURE_POLICY": "retry"}},
		{name: "unknown store", env: map[string]string{"SONG_STORE": "s3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadPipeline("")
			assert.Error(t, err)
		})
	}
}

func TestLoadPipeline_MissingFile(t *testing.T) {
	_, err := LoadPipeline(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPipeline_DurationSet(t *testing.T) {
	set, err := Defaults().DurationSet()
	require.NoError(t, err)
	assert.True(t, set.Contains(0.75))
	assert.False(t, set.Contains(0.3))
}

func TestLoad(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "")
	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
}
