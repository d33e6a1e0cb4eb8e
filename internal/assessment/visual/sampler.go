// Package visual periodically samples video frames and accumulates rolling
// face/quality aggregates for a session.
package visual

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/wellspring/internal/telemetry"
	"github.com/halcyonlabs/wellspring/pkg/models"
)

// DefaultInterval is the fixed capture cadence while a session is active.
const DefaultInterval = 5 * time.Second

// brightnessAlpha is the smoothing factor of the exponential running
// average over per-frame brightness.
const brightnessAlpha = 0.3

// qualityRampSamples is how many face-detected samples it takes for the
// session quality score to reach the per-frame quality average.
const qualityRampSamples = 10

// FrameSource captures and encodes one frame from the live video stream.
type FrameSource interface {
	CaptureFrame(ctx context.Context) (*models.Frame, error)
}

// FrameAnalyzer sends a captured frame to the external face analysis
// endpoint.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, imageBase64 string, capturedAt time.Time) (*models.FrameAnalysis, error)
}

// Sampler drives the fixed-interval capture loop. A failed capture or
// analysis drops that sample and leaves the aggregates untouched; stopping
// is idempotent and irreversible for the session.
type Sampler struct {
	source   FrameSource
	analyzer FrameAnalyzer
	interval time.Duration
	log      zerolog.Logger

	mu         sync.Mutex
	samples    []models.VisualSample
	frames     []models.Frame
	summary    models.VisualSummary
	avgQuality float64

	stopped  atomic.Bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSampler builds a sampler; interval <= 0 selects DefaultInterval.
func NewSampler(source FrameSource, analyzer FrameAnalyzer, interval time.Duration, log zerolog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{
		source:   source,
		analyzer: analyzer,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the capture loop. It is a no-op if the sampler was already
// stopped.
func (s *Sampler) Start(ctx context.Context) {
	if s.stopped.Load() {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.sampleOnce(loopCtx)
			}
		}
	}()
}

// Stop halts sampling immediately. Safe to call from any goroutine and any
// number of times; once stopped the sampler never resumes.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.cancel != nil {
			s.cancel()
			<-s.done
		} else {
			close(s.done)
		}
	})
}

// Running reports whether the capture loop is still live.
func (s *Sampler) Running() bool {
	if s.stopped.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return s.cancel != nil
	}
}

// sampleOnce captures, analyzes and folds a single frame.
func (s *Sampler) sampleOnce(ctx context.Context) {
	frame, err := s.source.CaptureFrame(ctx)
	if err != nil {
		telemetry.FrameDropped(ctx)
		s.log.Debug().Err(err).Msg("frame capture failed, sample dropped")
		return
	}

	res, err := s.analyzer.AnalyzeFrame(ctx, frame.ImageBase64, frame.CapturedAt)
	if err != nil {
		telemetry.FrameDropped(ctx)
		s.log.Debug().Err(err).Msg("frame analysis failed, sample dropped")
		return
	}

	telemetry.FrameCaptured(ctx)
	s.fold(*frame, *res)
}

// fold merges one analyzed frame into the rolling aggregates and retains the
// encoded image for the batch visual-analysis stage.
func (s *Sampler) fold(frame models.Frame, res models.FrameAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frames = append(s.frames, frame)
	s.samples = append(s.samples, models.VisualSample{
		CapturedAt:   frame.CapturedAt,
		FaceDetected: res.FaceDetected,
		Brightness:   res.Brightness,
		Quality:      res.Quality,
	})

	s.summary.Samples++
	if res.FaceDetected {
		s.summary.FacesDetected++
	}
	s.summary.FaceDetectionRate = float64(s.summary.FacesDetected) / float64(s.summary.Samples)

	if s.summary.Samples == 1 {
		s.summary.AvgBrightness = res.Brightness
	} else {
		s.summary.AvgBrightness = brightnessAlpha*res.Brightness + (1-brightnessAlpha)*s.summary.AvgBrightness
	}

	if res.FaceDetected {
		// Online average of per-frame quality over detected frames, ramped
		// in so a single lucky frame cannot saturate the session score.
		n := float64(s.summary.FacesDetected)
		s.avgQuality += (res.Quality - s.avgQuality) / n
		ramp := n / qualityRampSamples
		if ramp > 1 {
			ramp = 1
		}
		if q := s.avgQuality * ramp; q > s.summary.QualityScore {
			s.summary.QualityScore = q
		}
		if s.summary.QualityScore > 1 {
			s.summary.QualityScore = 1
		}
	}
}

// Summary returns a copy of the rolling aggregates.
func (s *Sampler) Summary() models.VisualSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Frames returns the retained encoded frames in capture order.
func (s *Sampler) Frames() []models.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Samples returns the per-frame sample records in capture order.
func (s *Sampler) Samples() []models.VisualSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.VisualSample, len(s.samples))
	copy(out, s.samples)
	return out
}
