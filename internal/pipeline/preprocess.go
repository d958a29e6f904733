package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/encoding"
	"github.com/Conceptual-Machines/melody-dataset/internal/logger"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/Conceptual-Machines/melody-dataset/internal/theory"
	"github.com/remeh/sizedwaitgroup"
)

// Outcome is what happened to one song during preprocessing
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeUnacceptable Outcome = "unacceptable_duration"
	OutcomeKeyFailure   Outcome = "key_failure"
	OutcomeEmpty        Outcome = "empty"
	OutcomeFailed       Outcome = "failed" // read or parse error
)

// Stats counts song outcomes of a preprocessing pass
type Stats struct {
	Discovered   int `json:"discovered"`
	Accepted     int `json:"accepted"`
	Unacceptable int `json:"unacceptable"`
	KeyFailures  int `json:"key_failures"`
	Empty        int `json:"empty"`
	Failed       int `json:"failed"`
}

// Skipped counts songs dropped for musical reasons
func (s Stats) Skipped() int {
	return s.Unacceptable + s.KeyFailures + s.Empty
}

func (s *Stats) add(o Outcome) {
	switch o {
	case OutcomeAccepted:
		s.Accepted++
	case OutcomeUnacceptable:
		s.Unacceptable++
	case OutcomeKeyFailure:
		s.KeyFailures++
	case OutcomeEmpty:
		s.Empty++
	case OutcomeFailed:
		s.Failed++
	}
}

type songResult struct {
	outcome Outcome
	err     error
}

// Preprocess discovers every score under the dataset root, then filters,
// transposes and encodes each one on the worker pool and saves accepted songs
// to the store under their discovery index.
func (r *Runner) Preprocess(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats, err := r.preprocess(ctx)
	r.recorder.RecordStage(ctx, StagePreprocess, time.Since(start), err == nil)
	if err != nil {
		return stats, err
	}

	logger.LogStage(StagePreprocess, time.Since(start), logger.Fields{
		"run_id":       r.runID,
		"discovered":   stats.Discovered,
		"accepted":     stats.Accepted,
		"skipped":      stats.Skipped(),
		"failed":       stats.Failed,
		"unacceptable": stats.Unacceptable,
		"key_failures": stats.KeyFailures,
	})
	return stats, nil
}

func (r *Runner) preprocess(parent context.Context) (Stats, error) {
	var stats Stats
	durations, err := r.cfg.DurationSet()
	if err != nil {
		return stats, err
	}

	paths, err := r.registry.Discover(parent, r.cfg.DatasetRoot)
	if err != nil {
		return stats, fmt.Errorf("discover scores: %w", err)
	}
	stats.Discovered = len(paths)
	logger.Info("Loading songs", logger.Fields{
		"run_id":  r.runID,
		"root":    r.cfg.DatasetRoot,
		"songs":   len(paths),
		"workers": r.cfg.Workers,
	})

	if err := r.store.Reset(parent); err != nil {
		return stats, fmt.Errorf("reset song store: %w", err)
	}

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	results := make([]songResult, len(paths))
	var processed atomic.Int64
	swg := sizedwaitgroup.New(r.cfg.Workers)
	for i, path := range paths {
		if err := swg.AddWithContext(ctx); err != nil {
			break
		}
		go func(index int, path string) {
			defer swg.Done()
			res := r.encodeSong(ctx, index, path, durations)
			results[index] = res
			if res.err != nil {
				cancel(res.err)
			}
			if n := processed.Add(1); n%progressInterval == 0 {
				logger.Info("Songs processed", logger.Fields{
					"run_id":    r.runID,
					"processed": n,
					"total":     len(paths),
				})
			}
		}(i, path)
	}
	swg.Wait()

	if err := context.Cause(ctx); err != nil {
		return stats, err
	}
	for _, res := range results {
		stats.add(res.outcome)
		r.recorder.RecordSongOutcome(res.outcome)
	}
	return stats, nil
}

// encodeSong runs one song through parse, duration filter, transposition and
// encoding. The returned error is set only when the whole run must stop.
func (r *Runner) encodeSong(ctx context.Context, index int, path string, durations encoding.DurationSet) songResult {
	fields := logger.Fields{"run_id": r.runID, "song": path}

	s, err := r.registry.Parse(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return songResult{outcome: OutcomeFailed, err: ctx.Err()}
		}
		logger.Error("Failed to parse song", err, fields)
		return songResult{outcome: OutcomeFailed}
	}

	if err := encoding.CheckDurations(s, durations); err != nil {
		fields["reason"] = err.Error()
		logger.Warn("Skipping song with unacceptable durations", fields)
		return songResult{outcome: OutcomeUnacceptable}
	}

	transposed, key, interval, err := theory.TransposeToReference(s)
	if err != nil {
		if !errors.Is(err, theory.ErrKeyDetermination) {
			logger.Error("Failed to transpose song", err, fields)
			return songResult{outcome: OutcomeFailed}
		}
		if r.cfg.KeyFailurePolicy == config.KeyFailureAbort {
			return songResult{outcome: OutcomeKeyFailure, err: fmt.Errorf("%s: %w", path, err)}
		}
		fields["reason"] = err.Error()
		logger.Warn("Skipping song without a usable key", fields)
		return songResult{outcome: OutcomeKeyFailure}
	}

	series, err := encoding.Encode(transposed, r.cfg.TimeStep)
	if err != nil {
		logger.Error("Failed to encode song", err, fields)
		return songResult{outcome: OutcomeFailed}
	}
	if len(series) == 0 {
		logger.Warn("Skipping song without events", fields)
		return songResult{outcome: OutcomeEmpty}
	}

	song := &models.EncodedSong{
		RunID:      r.runID,
		SongIndex:  index,
		SourcePath: path,
		Title:      s.Title,
		KeyName:    key.String(),
		Interval:   interval,
		Tokens:     series.String(),
	}
	if err := r.store.Save(ctx, song); err != nil {
		if ctx.Err() != nil {
			return songResult{outcome: OutcomeFailed, err: ctx.Err()}
		}
		logger.Error("Failed to save song", err, fields)
		return songResult{outcome: OutcomeFailed}
	}
	return songResult{outcome: OutcomeAccepted}
}
