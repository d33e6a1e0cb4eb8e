package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

func TestAnalyzeFrame(t *testing.T) {
	var got frameRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(models.FrameAnalysis{FaceDetected: true, Brightness: 0.7, Quality: 0.9})
	}))
	defer srv.Close()

	c := NewClient(Config{FrameURL: srv.URL})
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	res, err := c.AnalyzeFrame(context.Background(), "aW1n", ts)
	require.NoError(t, err)
	assert.True(t, res.FaceDetected)
	assert.Equal(t, 0.7, res.Brightness)
	assert.Equal(t, "aW1n", got.ImageBase64)
	assert.Equal(t, ts.UnixMilli(), got.Timestamp)
}

func TestAnalyzeAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req audioRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)
		assert.Equal(t, 130.0, req.SpeechRate)
		json.NewEncoder(w).Encode(Result{Status: "ok", Metrics: map[string]float64{"prosody": 0.6}})
	}))
	defer srv.Close()

	c := NewClient(Config{AudioURL: srv.URL})
	res, err := c.AnalyzeAudio(context.Background(), "sess-1", models.AudioSignalSummary{SpeechRate: 130})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 0.6, res.Metrics["prosody"])
}

func TestAnalyzeVisual(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req visualRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Frames, 2)
		json.NewEncoder(w).Encode(Result{Status: "ok"})
	}))
	defer srv.Close()

	c := NewClient(Config{VisualURL: srv.URL})
	frames := []models.Frame{{ImageBase64: "YQ=="}, {ImageBase64: "Yg=="}}
	_, err := c.AnalyzeVisual(context.Background(), "sess-1", frames)
	assert.NoError(t, err)
}

func TestAnalyzeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "baseline", req.Kind)
		json.NewEncoder(w).Encode(Result{Status: "ok"})
	}))
	defer srv.Close()

	c := NewClient(Config{TextURL: srv.URL})
	_, err := c.AnalyzeText(context.Background(), "sess-1", "hello", models.KindBaseline)
	assert.NoError(t, err)
}

func TestCalculateComposite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CompositeResult{Score: 74.2, Components: map[string]float64{"clinical": 70}})
	}))
	defer srv.Close()

	c := NewClient(Config{FusionURL: srv.URL})
	res, err := c.CalculateComposite(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 74.2, res.Score)
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model cold start", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{FusionURL: srv.URL})
	_, err := c.CalculateComposite(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_UnconfiguredEndpoint(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.CalculateComposite(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
