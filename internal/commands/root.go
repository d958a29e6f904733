// Package commands implements the melody-dataset command line.
package commands

import (
	"context"
	"fmt"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	workers    int

	// Service configuration, set by Execute
	appConfig = config.Load()
	version   = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "melody-dataset",
	Short: "Encode a folk-melody corpus into sequence-model training data",
	Long: `melody-dataset turns a directory of notation files (Humdrum **kern or JSON scores)
into a fixed time-step token corpus, a vocabulary and sliding-window training examples.

Stages:
  preprocess  filter, transpose and encode every song into the song store
  assemble    join the encoded songs into the single-file dataset
  vocab       build the token -> id mapping from the dataset
  windows     cut the dataset into one-hot training windows and export them
  run         all of the above in order

Settings come from the embedded defaults, the --config YAML file and then the
environment (DATASET_ROOT, SEQUENCE_LENGTH, SONG_STORE, ...).

Examples:
  melody-dataset run
  melody-dataset --config pipeline.yaml preprocess
  SONG_STORE=postgres melody-dataset run
  melody-dataset serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute(ctx context.Context, cfg *config.Config, releaseVersion string) error {
	appConfig = cfg
	version = releaseVersion
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "pipeline YAML file overlaid on the defaults")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "worker pool size (overrides WORKERS)")
}

// loadPipeline resolves the pipeline settings for the current invocation
func loadPipeline() (config.Pipeline, error) {
	p, err := config.LoadPipeline(configFile)
	if err != nil {
		return config.Pipeline{}, fmt.Errorf("load pipeline config: %w", err)
	}
	if workers > 0 {
		p.Workers = workers
	}
	return p, nil
}
