package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/logger"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// Summary describes a completed run
type Summary struct {
	RunID          string        `json:"run_id"`
	Stats          Stats         `json:"stats"`
	CorpusTokens   int           `json:"corpus_tokens"`
	VocabularySize int           `json:"vocabulary_size"`
	Examples       int           `json:"examples"`
	Elapsed        time.Duration `json:"elapsed"`
}

// stage times fn, records it and logs the fields it returns
func (r *Runner) stage(ctx context.Context, name string, fn func() (logger.Fields, error)) error {
	start := time.Now()
	fields, err := fn()
	elapsed := time.Since(start)
	r.recorder.RecordStage(ctx, name, elapsed, err == nil)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if fields == nil {
		fields = logger.Fields{}
	}
	fields["run_id"] = r.runID
	logger.LogStage(name, elapsed, fields)
	return nil
}

// Assemble joins the stored songs in index order and writes the single-file dataset
func (r *Runner) Assemble(ctx context.Context) (string, error) {
	var corpus string
	err := r.stage(ctx, StageAssemble, func() (logger.Fields, error) {
		songs, err := r.store.List(ctx)
		if err != nil {
			return nil, err
		}
		series := make([]string, len(songs))
		for i, song := range songs {
			series[i] = song.Tokens
		}
		corpus, err = dataset.Assemble(series, r.cfg.SequenceLength)
		if err != nil {
			return nil, err
		}
		if err := dataset.SaveCorpus(r.cfg.DatasetPath, corpus); err != nil {
			return nil, err
		}
		return logger.Fields{
			"songs":  len(songs),
			"tokens": humanize.Comma(int64(len(strings.Fields(corpus)))),
			"path":   r.cfg.DatasetPath,
		}, nil
	})
	return corpus, err
}

// BuildVocabulary derives the token mapping from the corpus and writes it to the mapping path
func (r *Runner) BuildVocabulary(ctx context.Context, corpus string) (*dataset.Vocabulary, error) {
	var vocab *dataset.Vocabulary
	err := r.stage(ctx, StageVocabulary, func() (logger.Fields, error) {
		vocab = dataset.BuildVocabulary(corpus)
		if err := vocab.Save(r.cfg.MappingPath); err != nil {
			return nil, err
		}
		if r.runs != nil {
			if err := r.runs.SaveVocabulary(ctx, r.runID, vocab); err != nil {
				return nil, err
			}
		}
		return logger.Fields{"size": vocab.Size(), "path": r.cfg.MappingPath}, nil
	})
	return vocab, err
}

// TrainingSet maps the corpus to ids, cuts it into windows, expands them to
// one-hot rows and exports the result.
func (r *Runner) TrainingSet(ctx context.Context, corpus string, vocab *dataset.Vocabulary) (*dataset.TrainingSet, error) {
	var set *dataset.TrainingSet
	err := r.stage(ctx, StageWindows, func() (logger.Fields, error) {
		ids, err := dataset.ToIDs(corpus, vocab)
		if err != nil {
			return nil, err
		}
		windows, err := dataset.NewWindows(ids, r.cfg.SequenceLength)
		if err != nil {
			return nil, err
		}
		if windows.Len() == 0 {
			logger.Warn("Corpus is shorter than one window", logger.Fields{
				"run_id":          r.runID,
				"tokens":          len(ids),
				"sequence_length": r.cfg.SequenceLength,
			})
		}
		set, err = dataset.OneHot(windows, vocab.Size())
		if err != nil {
			return nil, err
		}
		if err := dataset.ExportTrainingSet(r.cfg.ExportPath, vocab, set); err != nil {
			return nil, err
		}

		fields := logger.Fields{"examples": humanize.Comma(int64(set.NumExamples)), "path": r.cfg.ExportPath}
		if info, err := os.Stat(r.cfg.ExportPath); err == nil {
			fields["size"] = humanize.Bytes(uint64(info.Size()))
		}
		return fields, nil
	})
	return set, err
}

// Run chains every stage: preprocess, assemble, vocabulary and windows
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	run := &models.PipelineRun{
		ID:             r.runID,
		StartedAt:      start,
		DatasetRoot:    r.cfg.DatasetRoot,
		SequenceLength: r.cfg.SequenceLength,
	}
	if r.runs != nil {
		if err := r.runs.StartRun(ctx, run); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}

	summary, err := r.run(ctx)
	summary.RunID = r.runID
	summary.Elapsed = time.Since(start)

	if r.runs != nil {
		finished := time.Now()
		run.FinishedAt = &finished
		run.Accepted = summary.Stats.Accepted
		run.Skipped = summary.Stats.Skipped()
		run.Failed = summary.Stats.Failed
		run.CorpusTokens = summary.CorpusTokens
		run.VocabularySize = summary.VocabularySize
		if ferr := r.runs.FinishRun(ctx, run); ferr != nil {
			logger.Error("Failed to record run", ferr, logger.Fields{"run_id": r.runID})
		}
	}
	if err != nil {
		logger.Error("Run failed", err, logger.Fields{"run_id": r.runID})
		return summary, err
	}

	r.recorder.RecordCorpus(summary.CorpusTokens, summary.VocabularySize, summary.Examples)
	logger.Info("Run completed", logger.Fields{
		"run_id":        r.runID,
		"accepted":      humanize.Comma(int64(summary.Stats.Accepted)),
		"skipped":       humanize.Comma(int64(summary.Stats.Skipped())),
		"failed":        summary.Stats.Failed,
		"corpus_tokens": humanize.Comma(int64(summary.CorpusTokens)),
		"vocabulary":    summary.VocabularySize,
		"examples":      humanize.Comma(int64(summary.Examples)),
		"elapsed":       durafmt.Parse(summary.Elapsed).LimitFirstN(2).String(),
	})
	return summary, nil
}

func (r *Runner) run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	stats, err := r.Preprocess(ctx)
	summary.Stats = stats
	if err != nil {
		return summary, err
	}

	corpus, err := r.Assemble(ctx)
	if err != nil {
		return summary, err
	}
	summary.CorpusTokens = len(strings.Fields(corpus))

	vocab, err := r.BuildVocabulary(ctx, corpus)
	if err != nil {
		return summary, err
	}
	summary.VocabularySize = vocab.Size()

	set, err := r.TrainingSet(ctx, corpus, vocab)
	if err != nil {
		return summary, err
	}
	summary.Examples = set.NumExamples
	return summary, nil
}
