// Package pipeline runs the preprocessing stages: per-song encoding on a worker
// pool, corpus assembly, vocabulary construction and training set generation.
package pipeline

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/Conceptual-Machines/melody-dataset/internal/score"
	"github.com/google/uuid"
)

// Stage names used in logs and metrics
const (
	StagePreprocess = "preprocess"
	StageAssemble   = "assemble"
	StageVocabulary = "vocabulary"
	StageWindows    = "windows"
)

const progressInterval = 50

// Recorder receives pipeline metrics
type Recorder interface {
	RecordSongOutcome(outcome Outcome)
	RecordStage(ctx context.Context, stage string, duration time.Duration, success bool)
	RecordCorpus(tokens, vocabularySize, examples int)
}

// RunLog persists run bookkeeping; optional
type RunLog interface {
	StartRun(ctx context.Context, run *models.PipelineRun) error
	FinishRun(ctx context.Context, run *models.PipelineRun) error
	SaveVocabulary(ctx context.Context, runID string, vocab *dataset.Vocabulary) error
}

type nopRecorder struct{}

func (nopRecorder) RecordSongOutcome(Outcome) {}

func (nopRecorder) RecordStage(context.Context, string, time.Duration, bool) {}

func (nopRecorder) RecordCorpus(int, int, int) {}

// Runner executes the stages of one run against a song store
type Runner struct {
	cfg      config.Pipeline
	runID    string
	registry *score.Registry
	store    SongStore
	recorder Recorder
	runs     RunLog
}

// Option customises a Runner
type Option func(*Runner)

// WithRegistry replaces the default score sources
func WithRegistry(registry *score.Registry) Option {
	return func(r *Runner) { r.registry = registry }
}

// WithRecorder sends stage and song metrics to rec
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithRunLog records the run and its vocabulary through runs
func WithRunLog(runs RunLog) Option {
	return func(r *Runner) { r.runs = runs }
}

// WithRunID fixes the run id instead of generating one
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

func NewRunner(cfg config.Pipeline, store SongStore, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		runID:    uuid.New().String(),
		registry: score.DefaultRegistry(),
		store:    store,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunID identifies the run in logs, metrics and persisted records
func (r *Runner) RunID() string {
	return r.runID
}

// Config returns the settings the runner was built with
func (r *Runner) Config() config.Pipeline {
	return r.cfg
}
