// Package media abstracts the capture gateway that owns the microphone and
// camera. The session controller acquires streams through it on entry to the
// active state and releases them on every exit path.
package media

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

// StreamKind identifies a capture stream type.
type StreamKind string

const (
	StreamAudio StreamKind = "audio"
	StreamVideo StreamKind = "video"
)

// Stream is a live capture stream handle.
type Stream interface {
	Kind() StreamKind
	Release(ctx context.Context) error
}

// Gateway acquires capture streams and grabs frames from the live video
// stream.
type Gateway interface {
	AcquireStream(ctx context.Context, kind StreamKind) (Stream, error)
	CaptureFrame(ctx context.Context) (*models.Frame, error)
}

// Client talks to the local capture gateway daemon over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a gateway client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type acquireRequest struct {
	Kind string `json:"kind"`
}

type acquireResponse struct {
	StreamID string `json:"stream_id"`
}

// AcquireStream requests a capture stream of the given kind. Permission
// denial surfaces as a non-200 response from the gateway.
func (c *Client) AcquireStream(ctx context.Context, kind StreamKind) (Stream, error) {
	body, _ := json.Marshal(acquireRequest{Kind: string(kind)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/streams", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acquire %s stream: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("acquire %s stream %s: %s", kind, resp.Status, string(b))
	}

	var out acquireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("acquire %s stream decode: %w", kind, err)
	}
	return &remoteStream{client: c, id: out.StreamID, kind: kind}, nil
}

type captureResponse struct {
	ImageBase64 string `json:"image_base64"`
	CapturedAt  int64  `json:"captured_at"`
}

// CaptureFrame grabs and encodes one frame from the live video stream.
func (c *Client) CaptureFrame(ctx context.Context) (*models.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/frames/capture", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("capture frame %s: %s", resp.Status, string(b))
	}

	var out captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("capture frame decode: %w", err)
	}
	return &models.Frame{
		ImageBase64: out.ImageBase64,
		CapturedAt:  time.UnixMilli(out.CapturedAt),
	}, nil
}

type remoteStream struct {
	client *Client
	id     string
	kind   StreamKind
}

func (s *remoteStream) Kind() StreamKind { return s.kind }

func (s *remoteStream) Release(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.client.baseURL+"/streams/"+s.id, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.http.Do(req)
	if err != nil {
		return fmt.Errorf("release %s stream: %w", s.kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("release %s stream: %s", s.kind, resp.Status)
	}
	return nil
}
