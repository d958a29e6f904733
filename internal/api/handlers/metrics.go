package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/gin-gonic/gin"
	"github.com/hako/durafmt"
)

type MetricsHandler struct {
	startTime time.Time
	version   string
	pipeline  config.Pipeline
	vocab     *dataset.Vocabulary
}

func NewMetricsHandler(version string, pipeline config.Pipeline, vocab *dataset.Vocabulary) *MetricsHandler {
	return &MetricsHandler{
		startTime: time.Now(),
		version:   version,
		pipeline:  pipeline,
		vocab:     vocab,
	}
}

// formatUptime keeps the two most significant units, e.g. "2 hours 5 minutes"
func formatUptime(d time.Duration) string {
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(2).String()
}

type MetricsResponse struct {
	Status    string          `json:"status"`
	Uptime    string          `json:"uptime"`
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version"`
	StartTime string          `json:"start_time"`
	System    SystemMetrics   `json:"system"`
	Pipeline  PipelineMetrics `json:"pipeline"`
}

type SystemMetrics struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
	MemTotalMB   uint64 `json:"mem_total_mb"`
	NumGC        uint32 `json:"num_gc"`
}

type PipelineMetrics struct {
	SequenceLength    int       `json:"sequence_length"`
	TimeStep          float64   `json:"time_step"`
	AcceptedDurations []float64 `json:"accepted_durations"`
	VocabularyLoaded  bool      `json:"vocabulary_loaded"`
	VocabularySize    int       `json:"vocabulary_size"`
}

const (
	bytesToMB = 1024 * 1024
)

func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.startTime)

	metrics := MetricsResponse{
		Status:    "healthy",
		Uptime:    formatUptime(uptime),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		StartTime: h.startTime.UTC().Format(time.RFC3339),
		System: SystemMetrics{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAllocMB:   m.Alloc / bytesToMB,
			MemTotalMB:   m.TotalAlloc / bytesToMB,
			NumGC:        m.NumGC,
		},
		Pipeline: PipelineMetrics{
			SequenceLength:    h.pipeline.SequenceLength,
			TimeStep:          h.pipeline.TimeStep,
			AcceptedDurations: h.pipeline.AcceptedDurations,
			VocabularyLoaded:  h.vocab != nil,
		},
	}
	if h.vocab != nil {
		metrics.Pipeline.VocabularySize = h.vocab.Size()
	}

	c.JSON(http.StatusOK, metrics)
}
