package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_DisabledOutsideProduction(t *testing.T) {
	client, err := NewClient(context.Background(), "development")
	require.NoError(t, err)
	assert.False(t, client.Enabled())

	// no-ops when disabled
	client.RecordSongOutcome("accepted")
	client.RecordStageDuration("assemble", time.Second, true)
	client.RecordCorpusSize(10, 3, 2)
	client.RecordAPIRequest("/health", 200, time.Millisecond)
}

func TestNilClientIsDisabled(t *testing.T) {
	var client *Client
	assert.False(t, client.Enabled())
	client.RecordSongOutcome("accepted")
}

func TestPipelineRecorder(t *testing.T) {
	cw, err := NewClient(context.Background(), "test")
	require.NoError(t, err)

	var rec pipeline.Recorder = NewPipelineRecorder(context.Background(), cw, NewSentryMetrics())
	rec.RecordSongOutcome(pipeline.OutcomeAccepted)
	rec.RecordStage(context.Background(), pipeline.StageAssemble, 5*time.Millisecond, true)
	rec.RecordCorpus(100, 12, 36)
}

func TestBoolToString(t *testing.T) {
	assert.Equal(t, "true", boolToString(true))
	assert.Equal(t, "false", boolToString(false))
}
