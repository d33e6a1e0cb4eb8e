// Package analysis holds the HTTP clients for the external analysis
// collaborators: per-frame face analysis, the batch audio/visual/text
// analysis functions, and the tier-1 fusion function. Only the wire
// contract lives here; the scoring policy is internal/assessment/scoring.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// DefaultTimeout bounds each analysis call. There is no hard deadline on
// the session itself, only on individual network calls.
const DefaultTimeout = 30 * time.Second

// Config holds the endpoint URLs of the analysis collaborators. Empty URLs
// make the corresponding call fail fast, which the scorer treats as a tier
// fallthrough, not an error.
type Config struct {
	FrameURL  string `yaml:"frame_url"`
	AudioURL  string `yaml:"audio_url"`
	VisualURL string `yaml:"visual_url"`
	TextURL   string `yaml:"text_url"`
	FusionURL string `yaml:"fusion_url"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Client is the HTTP client for all analysis endpoints.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client; a zero TimeoutSeconds selects DefaultTimeout.
func NewClient(cfg Config) *Client {
	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// Result is the generic analysis function response.
type Result struct {
	Status  string             `json:"status"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// CompositeResult is the tier-1 fusion response.
type CompositeResult struct {
	Score        float64            `json:"score"`
	Components   map[string]float64 `json:"components,omitempty"`
	ModelVersion string             `json:"model_version,omitempty"`
}

type frameRequest struct {
	ImageBase64 string `json:"image_base64"`
	Timestamp   int64  `json:"timestamp"`
}

// AnalyzeFrame submits one encoded frame to the face analysis endpoint.
func (c *Client) AnalyzeFrame(ctx context.Context, imageBase64 string, capturedAt time.Time) (*models.FrameAnalysis, error) {
	var out models.FrameAnalysis
	err := c.post(ctx, c.cfg.FrameURL, "frame", frameRequest{
		ImageBase64: imageBase64,
		Timestamp:   capturedAt.UnixMilli(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type audioRequest struct {
	SessionID     string  `json:"session_id"`
	SpeechRate    float64 `json:"speech_rate"`
	VoiceQuality  float64 `json:"voice_quality"`
	EmotionalTone string  `json:"emotional_tone"`
}

// AnalyzeAudio submits the session's audio signal summary.
func (c *Client) AnalyzeAudio(ctx context.Context, sessionID string, summary models.AudioSignalSummary) (*Result, error) {
	var out Result
	err := c.post(ctx, c.cfg.AudioURL, "audio", audioRequest{
		SessionID:     sessionID,
		SpeechRate:    summary.SpeechRate,
		VoiceQuality:  summary.VoiceQuality,
		EmotionalTone: summary.EmotionalTone,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type visualRequest struct {
	SessionID string         `json:"session_id"`
	Frames    []models.Frame `json:"frames"`
}

// AnalyzeVisual submits the accumulated session frames for batch analysis.
func (c *Client) AnalyzeVisual(ctx context.Context, sessionID string, frames []models.Frame) (*Result, error) {
	var out Result
	err := c.post(ctx, c.cfg.VisualURL, "visual", visualRequest{
		SessionID: sessionID,
		Frames:    frames,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type textRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
	Kind       string `json:"kind"`
}

// AnalyzeText submits the final transcript.
func (c *Client) AnalyzeText(ctx context.Context, sessionID, transcript string, kind models.AssessmentKind) (*Result, error) {
	var out Result
	err := c.post(ctx, c.cfg.TextURL, "text", textRequest{
		SessionID:  sessionID,
		Transcript: transcript,
		Kind:       string(kind),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type compositeRequest struct {
	SessionID string `json:"session_id"`
}

// CalculateComposite invokes the external fusion function. A successful
// response is the authoritative tier-1 composite score.
func (c *Client) CalculateComposite(ctx context.Context, sessionID string) (*CompositeResult, error) {
	var out CompositeResult
	err := c.post(ctx, c.cfg.FusionURL, "fusion", compositeRequest{SessionID: sessionID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends a JSON request and decodes a JSON response.
func (c *Client) post(ctx context.Context, url, name string, in, out any) error {
	if url == "" {
		return fmt.Errorf("%s: endpoint not configured", name)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s", name, resp.Status, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", name, err)
	}
	return nil
}
