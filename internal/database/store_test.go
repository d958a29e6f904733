package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/Conceptual-Machines/melody-dataset/internal/pipeline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	_ pipeline.SongStore = (*Store)(nil)
	_ pipeline.RunLog    = (*Store)(nil)
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := Connect(url)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect("")
	assert.Error(t, err)
}

func TestStore_Songs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	runID := uuid.New().String()
	store := NewStore(db, runID)
	t.Cleanup(func() { _ = store.Reset(ctx) })

	require.NoError(t, store.Reset(ctx))
	require.NoError(t, store.Save(ctx, &models.EncodedSong{SongIndex: 5, Tokens: "62 _"}))
	require.NoError(t, store.Save(ctx, &models.EncodedSong{SongIndex: 1, Tokens: "60 _"}))
	// saving the same index again replaces the row
	require.NoError(t, store.Save(ctx, &models.EncodedSong{SongIndex: 5, Tokens: "64 _"}))

	songs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "60 _", songs[0].Tokens)
	assert.Equal(t, "64 _", songs[1].Tokens)
	assert.Equal(t, runID, songs[1].RunID)
}

func TestStore_RunsAndVocabulary(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	runID := uuid.New().String()
	store := NewStore(db, runID)

	run := &models.PipelineRun{ID: runID, StartedAt: time.Now().Add(time.Hour), SequenceLength: 64}
	require.NoError(t, store.StartRun(ctx, run))
	run.Accepted = 3
	require.NoError(t, store.FinishRun(ctx, run))

	latest, err := LatestRunID(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, runID, latest)

	vocab := dataset.BuildVocabulary("60 _ / 62")
	require.NoError(t, store.SaveVocabulary(ctx, runID, vocab))
	loaded, err := store.LoadVocabulary(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, vocab.Mapping(), loaded.Mapping())
}
