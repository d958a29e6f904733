package handlers

import (
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/encoding"
	"github.com/Conceptual-Machines/melody-dataset/internal/logger"
	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"github.com/Conceptual-Machines/melody-dataset/internal/score"
	"github.com/Conceptual-Machines/melody-dataset/internal/theory"
	"github.com/gin-gonic/gin"
)

type EncodeHandler struct {
	durations encoding.DurationSet
	timeStep  float64
}

func NewEncodeHandler(pipeline config.Pipeline) (*EncodeHandler, error) {
	durations, err := pipeline.DurationSet()
	if err != nil {
		return nil, err
	}
	return &EncodeHandler{durations: durations, timeStep: pipeline.TimeStep}, nil
}

type EncodeRequest struct {
	Score *models.Score `json:"score" binding:"required"`
	// Transpose defaults to true; set false to encode at the original pitch
	Transpose *bool `json:"transpose"`
}

type EncodeResponse struct {
	Tokens   string      `json:"tokens"`
	Steps    int         `json:"steps"`
	Key      *models.Key `json:"key,omitempty"`
	Interval int         `json:"interval"`
}

// Encode runs one score through the duration filter, key normalisation and encoder
func (h *EncodeHandler) Encode(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxScoreBodyBytes)

	var req EncodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := score.Validate(req.Score); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := encoding.CheckDurations(req.Score, h.durations); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := EncodeResponse{}
	s := req.Score
	if req.Transpose == nil || *req.Transpose {
		transposed, key, interval, err := theory.TransposeToReference(s)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, theory.ErrKeyDetermination) {
				status = http.StatusUnprocessableEntity
			} else {
				logger.Error("Failed to transpose score", err, logger.WithContext(c))
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		s = transposed
		resp.Key = &key
		resp.Interval = interval
	}

	series, err := encoding.Encode(s, h.timeStep)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	resp.Tokens = series.String()
	resp.Steps = len(series)

	c.JSON(http.StatusOK, resp)
}
