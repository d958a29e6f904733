package commands

import (
	"fmt"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/getsentry/sentry-go"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Filter, transpose and encode every song into the song store",
	Long: `Walk the dataset root, drop songs with durations outside the accepted set,
transpose the rest to C major / A minor and write one encoded token stream per song.

Examples:
  melody-dataset preprocess
  DATASET_ROOT=deutschl/erk SAVE_DIR=dataset melody-dataset preprocess`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline()
		if err != nil {
			return err
		}
		runner, st, err := newRunner(cmd.Context(), p, false)
		if err != nil {
			return err
		}

		run := &models.PipelineRun{
			ID:             runner.RunID(),
			StartedAt:      time.Now(),
			DatasetRoot:    p.DatasetRoot,
			SequenceLength: p.SequenceLength,
		}
		if st.db != nil {
			if err := st.db.StartRun(cmd.Context(), run); err != nil {
				return err
			}
		}

		stats, err := runner.Preprocess(cmd.Context())
		if err != nil {
			return err
		}

		if st.db != nil {
			finished := time.Now()
			run.FinishedAt = &finished
			run.Accepted = stats.Accepted
			run.Skipped = stats.Skipped()
			run.Failed = stats.Failed
			if err := st.db.FinishRun(cmd.Context(), run); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s songs, %s accepted, %s skipped, %d failed\n",
			runner.RunID(),
			humanize.Comma(int64(stats.Discovered)),
			humanize.Comma(int64(stats.Accepted)),
			humanize.Comma(int64(stats.Skipped())),
			stats.Failed)
		return nil
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Join the encoded songs into the single-file dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline()
		if err != nil {
			return err
		}
		runner, _, err := newRunner(cmd.Context(), p, true)
		if err != nil {
			return err
		}
		corpus, err := runner.Assemble(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", p.DatasetPath, humanize.Bytes(uint64(len(corpus))))
		return nil
	},
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build the token -> id mapping from the single-file dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline()
		if err != nil {
			return err
		}
		corpus, err := dataset.LoadCorpus(p.DatasetPath)
		if err != nil {
			return err
		}
		runner, _, err := newRunner(cmd.Context(), p, p.SongStore != config.SongStoreMemory)
		if err != nil {
			return err
		}
		vocab, err := runner.BuildVocabulary(cmd.Context(), corpus)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d tokens)\n", p.MappingPath, vocab.Size())
		return nil
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Generate one-hot training windows and export them",
	Long: `Map the single-file dataset through the vocabulary, slide a window of
sequence_length tokens over it and export inputs and targets as msgpack
for the external trainer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline()
		if err != nil {
			return err
		}
		corpus, err := dataset.LoadCorpus(p.DatasetPath)
		if err != nil {
			return err
		}
		vocab, err := dataset.LoadVocabulary(p.MappingPath)
		if err != nil {
			return err
		}
		runner, _, err := newRunner(cmd.Context(), p, p.SongStore != config.SongStoreMemory)
		if err != nil {
			return err
		}
		set, err := runner.TrainingSet(cmd.Context(), corpus, vocab)
		if err != nil {
			return err
		}
		shape := set.InputShape()
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: inputs %dx%dx%d, %s examples\n",
			p.ExportPath, shape[0], shape[1], shape[2], humanize.Comma(int64(set.NumExamples)))
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage: preprocess, assemble, vocab, windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPipeline()
		if err != nil {
			return err
		}

		transaction := sentry.StartTransaction(cmd.Context(), "pipeline.run")
		defer transaction.Finish()
		ctx := transaction.Context()

		runner, _, err := newRunner(ctx, p, false)
		if err != nil {
			return err
		}
		transaction.SetTag("run_id", runner.RunID())

		summary, err := runner.Run(ctx)
		if err != nil {
			transaction.Status = sentry.SpanStatusInternalError
			return err
		}
		transaction.Status = sentry.SpanStatusOK

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "run %s finished in %s\n", summary.RunID, durafmt.Parse(summary.Elapsed).LimitFirstN(2))
		fmt.Fprintf(out, "  songs:      %s accepted, %s skipped, %d failed\n",
			humanize.Comma(int64(summary.Stats.Accepted)), humanize.Comma(int64(summary.Stats.Skipped())), summary.Stats.Failed)
		fmt.Fprintf(out, "  corpus:     %s tokens\n", humanize.Comma(int64(summary.CorpusTokens)))
		fmt.Fprintf(out, "  vocabulary: %d tokens\n", summary.VocabularySize)
		fmt.Fprintf(out, "  examples:   %s\n", humanize.Comma(int64(summary.Examples)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preprocessCmd, assembleCmd, vocabCmd, windowsCmd, runCmd)
}
