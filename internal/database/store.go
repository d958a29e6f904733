package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoRuns is returned by LatestRunID when nothing has been recorded yet
var ErrNoRuns = errors.New("no pipeline runs recorded")

// Store keeps the songs of one run. It implements pipeline.SongStore and pipeline.RunLog.
type Store struct {
	db    *gorm.DB
	runID string
}

func NewStore(db *gorm.DB, runID string) *Store {
	return &Store{db: db, runID: runID}
}

// Reset deletes songs previously saved under this run id
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("run_id = ?", s.runID).
		Delete(&models.EncodedSong{}).Error
}

func (s *Store) Save(ctx context.Context, song *models.EncodedSong) error {
	row := *song
	row.ID = 0
	row.RunID = s.runID
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "song_index"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (s *Store) List(ctx context.Context) ([]models.EncodedSong, error) {
	var songs []models.EncodedSong
	if err := s.db.WithContext(ctx).
		Where("run_id = ?", s.runID).
		Order("song_index ASC").
		Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func (s *Store) StartRun(ctx context.Context, run *models.PipelineRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) FinishRun(ctx context.Context, run *models.PipelineRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

// SaveVocabulary replaces the vocabulary stored for runID
func (s *Store) SaveVocabulary(ctx context.Context, runID string, vocab *dataset.Vocabulary) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&models.VocabularyEntry{}).Error; err != nil {
			return err
		}
		tokens := vocab.Tokens()
		if len(tokens) == 0 {
			return nil
		}
		entries := make([]models.VocabularyEntry, len(tokens))
		for id, token := range tokens {
			entries[id] = models.VocabularyEntry{RunID: runID, Token: token, TokenID: id}
		}
		return tx.Create(&entries).Error
	})
}

// LoadVocabulary rebuilds the vocabulary stored for runID
func (s *Store) LoadVocabulary(ctx context.Context, runID string) (*dataset.Vocabulary, error) {
	var entries []models.VocabularyEntry
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no vocabulary stored for run %s", runID)
	}
	mapping := make(map[string]int, len(entries))
	for _, e := range entries {
		mapping[e.Token] = e.TokenID
	}
	return dataset.NewVocabulary(mapping)
}

// LatestRunID returns the id of the most recently started run
func LatestRunID(ctx context.Context, db *gorm.DB) (string, error) {
	var run models.PipelineRun
	err := db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", err
	}
	return run.ID, nil
}
