package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/encoding"
	"github.com/Conceptual-Machines/melody-dataset/pkg/embedded"
	"github.com/goccy/go-yaml"
)

// Key failure policies
const (
	KeyFailureSkip  = "skip"  // drop the song and keep going
	KeyFailureAbort = "abort" // fail the whole run
)

// Song store backends
const (
	SongStoreFile     = "file"
	SongStoreMemory   = "memory"
	SongStorePostgres = "postgres"
)

// Pipeline holds every setting of a preprocessing run.
// It is passed by value into each stage and never modified after loading.
type Pipeline struct {
	DatasetRoot       string    `yaml:"dataset_root"`
	AcceptedDurations []float64 `yaml:"accepted_durations"`
	SaveDir           string    `yaml:"save_dir"`     // Per-song encoded files
	MappingPath       string    `yaml:"mapping_path"` // Vocabulary JSON
	DatasetPath       string    `yaml:"dataset_path"` // Single-file dataset
	ExportPath        string    `yaml:"export_path"`  // Training set export (msgpack)
	SequenceLength    int       `yaml:"sequence_length"`
	TimeStep          float64   `yaml:"time_step"`
	Workers           int       `yaml:"workers"`
	KeyFailurePolicy  string    `yaml:"key_failure_policy"`
	SongStore         string    `yaml:"song_store"`
}

// LoadPipeline reads the embedded defaults, overlays the YAML file at path (if any)
// and then the environment, and validates the result.
func LoadPipeline(path string) (Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(embedded.DefaultPipelineYAML, &p); err != nil {
		return Pipeline{}, fmt.Errorf("parse default pipeline config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Pipeline{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Pipeline{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := p.applyEnv(); err != nil {
		return Pipeline{}, err
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

func (p *Pipeline) applyEnv() error {
	p.DatasetRoot = getEnv("DATASET_ROOT", p.DatasetRoot)
	p.SaveDir = getEnv("SAVE_DIR", p.SaveDir)
	p.MappingPath = getEnv("MAPPING_PATH", p.MappingPath)
	p.DatasetPath = getEnv("DATASET_PATH", p.DatasetPath)
	p.ExportPath = getEnv("TRAINING_EXPORT_PATH", p.ExportPath)
	p.KeyFailurePolicy = getEnv("KEY_FAILURE_POLICY", p.KeyFailurePolicy)
	p.SongStore = getEnv("SONG_STORE", p.SongStore)

	if v := os.Getenv("SEQUENCE_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SEQUENCE_LENGTH %q: %w", v, err)
		}
		p.SequenceLength = n
	}
	if v := os.Getenv("TIME_STEP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TIME_STEP %q: %w", v, err)
		}
		p.TimeStep = f
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORKERS %q: %w", v, err)
		}
		p.Workers = n
	}
	if v := os.Getenv("ACCEPTED_DURATIONS"); v != "" {
		durations, err := parseDurations(v)
		if err != nil {
			return err
		}
		p.AcceptedDurations = durations
	}
	return nil
}

func parseDurations(list string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		d, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid accepted duration %q: %w", field, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Validate checks that the settings describe a runnable pipeline
func (p Pipeline) Validate() error {
	if p.SequenceLength < 1 {
		return fmt.Errorf("sequence_length must be at least 1, got %d", p.SequenceLength)
	}
	if p.TimeStep <= 0 {
		return fmt.Errorf("time_step must be positive, got %v", p.TimeStep)
	}
	if len(p.AcceptedDurations) == 0 {
		return fmt.Errorf("accepted_durations is empty")
	}
	for _, d := range p.AcceptedDurations {
		if _, err := encoding.Steps(d, p.TimeStep); err != nil {
			return fmt.Errorf("accepted duration %v: %w", d, err)
		}
	}
	switch p.KeyFailurePolicy {
	case KeyFailureSkip, KeyFailureAbort:
	default:
		return fmt.Errorf("unknown key_failure_policy %q (want %s or %s)", p.KeyFailurePolicy, KeyFailureSkip, KeyFailureAbort)
	}
	switch p.SongStore {
	case SongStoreFile, SongStoreMemory, SongStorePostgres:
	default:
		return fmt.Errorf("unknown song_store %q", p.SongStore)
	}
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}
	return nil
}

// DurationSet returns the accepted durations as a set
func (p Pipeline) DurationSet() (encoding.DurationSet, error) {
	return encoding.NewDurationSet(p.AcceptedDurations)
}

// Defaults returns the embedded defaults without file or environment overlays
func Defaults() Pipeline {
	var p Pipeline
	if err := yaml.Unmarshal(embedded.DefaultPipelineYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded pipeline config is invalid: %v", err))
	}
	p.Workers = runtime.NumCPU()
	return p
}
