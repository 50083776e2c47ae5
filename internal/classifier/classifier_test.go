package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/models"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		reply string
		want  models.ImageQuality
	}{
		{"alta_calidad", models.QualityHigh},
		{"ALTA_CALIDAD", models.QualityHigh},
		{"La imagen es alta_calidad.", models.QualityHigh},
		{"baja_calidad", models.QualityLow},
		{"  baja_calidad\n", models.QualityLow},
		{"no puedo determinarlo", models.QualityUnknown},
		{"", models.QualityUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseQuality(tt.reply), "reply %q", tt.reply)
	}
}

func TestClassifyImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"alta_calidad"}}]}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Classifier.BaseURL = server.URL
	cfg.Classifier.Model = "test-model"

	quality, err := New(cfg).ClassifyImage(context.Background(), []byte("fake image"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, models.QualityHigh, quality)
}

func TestClassifyImageNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Classifier.BaseURL = server.URL

	_, err := New(cfg).ClassifyImage(context.Background(), []byte("fake image"), "image/jpeg")
	assert.Error(t, err)
}
