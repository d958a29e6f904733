package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, vocab *dataset.Vocabulary) *gin.Engine {
	t.Helper()
	router, err := SetupRouter(Dependencies{
		Pipeline:   config.Defaults(),
		Vocabulary: vocab,
		Version:    "test",
	})
	require.NoError(t, err)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestMetrics(t *testing.T) {
	w := do(newRouter(t, dataset.BuildVocabulary("60 _ r")), http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Version  string `json:"version"`
		Pipeline struct {
			SequenceLength int  `json:"sequence_length"`
			VocabularySize int  `json:"vocabulary_size"`
			Loaded         bool `json:"vocabulary_loaded"`
		} `json:"pipeline"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 64, body.Pipeline.SequenceLength)
	assert.Equal(t, 3, body.Pipeline.VocabularySize)
	assert.True(t, body.Pipeline.Loaded)
}

const gMajorScore = `{
	"score": {
		"parts": [{"measures": [{
			"number": 1,
			"key": {"tonic": {"step": "G", "alter": 0}, "mode": "major"},
			"events": [{"pitch": 67, "duration": 1}, {"duration": 0.5}, {"pitch": 69, "duration": 0.5}]
		}]}]
	}%s
}`

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		extra    string
		tokens   string
		interval int
	}{
		{name: "transposed to C", extra: "", tokens: "60 _ _ _ r _ 62 _", interval: -7},
		{name: "original pitch", extra: `, "transpose": false`, tokens: "67 _ _ _ r _ 69 _", interval: 0},
	}

	router := newRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(gMajorScore)
			body = bytes.Replace(body, []byte("%s"), []byte(tt.extra), 1)
			w := do(router, http.MethodPost, "/api/v1/encode", string(body))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp struct {
				Tokens   string `json:"tokens"`
				Steps    int    `json:"steps"`
				Interval int    `json:"interval"`
				Key      *struct {
					Tonic struct {
						Step string `json:"step"`
					} `json:"tonic"`
					Mode string `json:"mode"`
				} `json:"key"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.tokens, resp.Tokens)
			assert.Equal(t, 8, resp.Steps)
			assert.Equal(t, tt.interval, resp.Interval)
			if tt.interval != 0 {
				require.NotNil(t, resp.Key)
				assert.Equal(t, "G", resp.Key.Tonic.Step)
				assert.Equal(t, "major", resp.Key.Mode)
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "invalid json", body: `{`, status: http.StatusBadRequest},
		{name: "missing score", body: `{}`, status: http.StatusBadRequest},
		{name: "zero duration", body: `{"score": {"parts": [{"measures": [{"events": [{"pitch": 60, "duration": 0}]}]}]}}`, status: http.StatusBadRequest},
		{name: "unacceptable duration", body: `{"score": {"parts": [{"measures": [{"events": [{"pitch": 60, "duration": 0.3}]}]}]}}`, status: http.StatusUnprocessableEntity},
		{name: "no key", body: `{"score": {"parts": [{"measures": [{"events": [{"duration": 1}]}]}]}}`, status: http.StatusUnprocessableEntity},
	}

	router := newRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/v1/encode", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestVocabulary(t *testing.T) {
	vocab := dataset.BuildVocabulary("60 _ / 62")
	router := newRouter(t, vocab)

	w := do(router, http.MethodGet, "/api/v1/vocabulary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Size    int            `json:"size"`
		Mapping map[string]int `json:"mapping"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Size)
	assert.Equal(t, vocab.Mapping(), resp.Mapping)
}

func TestVocabulary_NotLoaded(t *testing.T) {
	router := newRouter(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/api/v1/vocabulary", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodPost, "/api/v1/ids", `{"tokens": "60"}`).Code)
}

func TestIDs(t *testing.T) {
	router := newRouter(t, dataset.BuildVocabulary("60 _ / 62"))

	w := do(router, http.MethodPost, "/api/v1/ids", `{"tokens": "60 _ / 62"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		IDs []int `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, []int{1, 3, 0, 2}, ok.IDs)

	w = do(router, http.MethodPost, "/api/v1/ids", `{"tokens": "60 64"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var bad struct {
		Token    string `json:"token"`
		Position int    `json:"position"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bad))
	assert.Equal(t, "64", bad.Token)
	assert.Equal(t, 1, bad.Position)
}
