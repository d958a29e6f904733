package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/database"
	"github.com/Conceptual-Machines/melody-dataset/internal/logger"
	"github.com/Conceptual-Machines/melody-dataset/internal/metrics"
	"github.com/Conceptual-Machines/melody-dataset/internal/pipeline"
	"github.com/google/uuid"
)

// stores bundles the song store with the optional database run log
type stores struct {
	songs pipeline.SongStore
	db    *database.Store
}

// openStores builds the configured song store. With latest set, the postgres
// store reads the most recent run instead of starting a new one.
func openStores(ctx context.Context, p config.Pipeline, latest bool) (*stores, string, error) {
	runID := uuid.New().String()

	switch p.SongStore {
	case config.SongStoreFile:
		return &stores{songs: pipeline.NewFileStore(p.SaveDir)}, runID, nil
	case config.SongStoreMemory:
		if latest {
			return nil, "", fmt.Errorf("the memory song store only lives for a single 'run'")
		}
		return &stores{songs: pipeline.NewMemoryStore()}, runID, nil
	case config.SongStorePostgres:
		db, err := database.Connect(appConfig.DatabaseURL)
		if err != nil {
			return nil, "", err
		}
		if err := database.Migrate(db); err != nil {
			return nil, "", fmt.Errorf("failed to run migrations: %w", err)
		}
		if latest {
			runID, err = database.LatestRunID(ctx, db)
			if errors.Is(err, database.ErrNoRuns) {
				return nil, "", fmt.Errorf("no preprocessed run found, run 'preprocess' first")
			}
			if err != nil {
				return nil, "", err
			}
		}
		store := database.NewStore(db, runID)
		return &stores{songs: store, db: store}, runID, nil
	default:
		return nil, "", fmt.Errorf("unknown song store %q", p.SongStore)
	}
}

// newRunner wires stores and metrics into a pipeline runner
func newRunner(ctx context.Context, p config.Pipeline, latest bool) (*pipeline.Runner, *stores, error) {
	st, runID, err := openStores(ctx, p, latest)
	if err != nil {
		return nil, nil, err
	}

	cw, err := metrics.NewClient(ctx, appConfig.Environment)
	if err != nil {
		return nil, nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithRunID(runID),
		pipeline.WithRecorder(metrics.NewPipelineRecorder(ctx, cw, metrics.NewSentryMetrics())),
	}
	if st.db != nil {
		opts = append(opts, pipeline.WithRunLog(st.db))
	}

	logger.Debug("Pipeline configured", logger.Fields{
		"run_id":          runID,
		"song_store":      p.SongStore,
		"dataset_root":    p.DatasetRoot,
		"sequence_length": p.SequenceLength,
		"workers":         p.Workers,
	})
	return pipeline.NewRunner(p, st.songs, opts...), st, nil
}
