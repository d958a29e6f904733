package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/pipeline"
)

// PipelineRecorder fans pipeline metrics out to CloudWatch and Sentry
type PipelineRecorder struct {
	ctx        context.Context
	cloudwatch *Client
	sentry     *SentryMetrics
}

// NewPipelineRecorder returns a pipeline.Recorder. ctx carries the Sentry
// transaction that corpus sizes are attached to.
func NewPipelineRecorder(ctx context.Context, cw *Client, sm *SentryMetrics) *PipelineRecorder {
	return &PipelineRecorder{ctx: ctx, cloudwatch: cw, sentry: sm}
}

func (r *PipelineRecorder) RecordSongOutcome(outcome pipeline.Outcome) {
	r.cloudwatch.RecordSongOutcome(string(outcome))
}

func (r *PipelineRecorder) RecordStage(ctx context.Context, stage string, duration time.Duration, success bool) {
	r.cloudwatch.RecordStageDuration(stage, duration, success)
	if r.sentry != nil {
		r.sentry.RecordStage(ctx, stage, duration, success)
	}
}

func (r *PipelineRecorder) RecordCorpus(tokens, vocabularySize, examples int) {
	r.cloudwatch.RecordCorpusSize(tokens, vocabularySize, examples)
	if r.sentry != nil {
		r.sentry.RecordCorpus(r.ctx, tokens, vocabularySize, examples)
	}
}
