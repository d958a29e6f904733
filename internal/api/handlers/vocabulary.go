package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/gin-gonic/gin"
)

type VocabularyHandler struct {
	vocab *dataset.Vocabulary
}

// NewVocabularyHandler serves vocab; a nil vocab answers 503 until a mapping file exists
func NewVocabularyHandler(vocab *dataset.Vocabulary) *VocabularyHandler {
	return &VocabularyHandler{vocab: vocab}
}

type VocabularyResponse struct {
	Size    int            `json:"size"`
	Mapping map[string]int `json:"mapping"`
}

type IDsRequest struct {
	Tokens string `json:"tokens"`
}

type IDsResponse struct {
	IDs []int `json:"ids"`
}

func (h *VocabularyHandler) ready(c *gin.Context) bool {
	if h.vocab == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vocabulary not loaded"})
		return false
	}
	return true
}

// GetVocabulary returns the token -> id mapping
func (h *VocabularyHandler) GetVocabulary(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	c.JSON(http.StatusOK, VocabularyResponse{Size: h.vocab.Size(), Mapping: h.vocab.Mapping()})
}

// ToIDs maps a space-separated token stream to vocabulary ids
func (h *VocabularyHandler) ToIDs(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(strings.Fields(req.Tokens)) > maxIDsTokens {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many tokens"})
		return
	}

	ids, err := dataset.ToIDs(req.Tokens, h.vocab)
	if err != nil {
		var unmapped *dataset.UnmappedSymbolError
		if errors.As(err, &unmapped) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    err.Error(),
				"token":    unmapped.Token,
				"position": unmapped.Position,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, IDsResponse{IDs: ids})
}
