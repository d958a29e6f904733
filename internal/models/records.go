package models

import (
	"time"
)

// EncodedSong is one accepted, transposed and encoded song persisted by the database song store
type EncodedSong struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	RunID      string    `gorm:"not null;uniqueIndex:idx_run_song" json:"run_id"`
	SongIndex  int       `gorm:"not null;uniqueIndex:idx_run_song" json:"song_index"`
	SourcePath string    `gorm:"type:text" json:"source_path"`
	Title      string    `json:"title"`
	KeyName    string    `json:"key_name"`  // Detected key before transposition
	Interval   int       `json:"interval"`  // Semitones applied
	Tokens     string    `gorm:"type:text;not null" json:"tokens"`
}

// VocabularyEntry is one token -> id pair of a persisted vocabulary
type VocabularyEntry struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	RunID   string `gorm:"not null;uniqueIndex:idx_run_token;uniqueIndex:idx_run_token_id" json:"run_id"`
	Token   string `gorm:"not null;uniqueIndex:idx_run_token" json:"token"`
	TokenID int    `gorm:"not null;uniqueIndex:idx_run_token_id" json:"token_id"`
}

// PipelineRun tracks one preprocessing run
type PipelineRun struct {
	ID             string     `gorm:"primarykey" json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	DatasetRoot    string     `json:"dataset_root"`
	SequenceLength int        `json:"sequence_length"`
	Accepted       int        `json:"accepted"`
	Skipped        int        `json:"skipped"`
	Failed         int        `json:"failed"`
	CorpusTokens   int        `json:"corpus_tokens"`
	VocabularySize int        `json:"vocabulary_size"`
}
