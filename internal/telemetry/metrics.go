// Package telemetry registers pipeline counters on the global OpenTelemetry
// meter. Without an SDK installed the counters are no-ops, so call sites
// never need to guard instrumentation.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/halcyonlabs/wellspring"

var (
	initOnce sync.Once

	sessionsStarted   metric.Int64Counter
	sessionsRejected  metric.Int64Counter
	framesCaptured    metric.Int64Counter
	framesDropped     metric.Int64Counter
	tierFallbacks     metric.Int64Counter
	outcomesPersisted metric.Int64Counter
)

func ensure() {
	initOnce.Do(func() {
		meter := otel.Meter(meterName)
		sessionsStarted, _ = meter.Int64Counter("wellspring.sessions.started",
			metric.WithDescription("Assessment sessions started"))
		sessionsRejected, _ = meter.Int64Counter("wellspring.sessions.rejected",
			metric.WithDescription("Sessions rejected by the validation gate"))
		framesCaptured, _ = meter.Int64Counter("wellspring.frames.captured",
			metric.WithDescription("Video frames captured and analyzed"))
		framesDropped, _ = meter.Int64Counter("wellspring.frames.dropped",
			metric.WithDescription("Video frames dropped on capture or analysis failure"))
		tierFallbacks, _ = meter.Int64Counter("wellspring.scoring.fallbacks",
			metric.WithDescription("Scoring tier fallthroughs"))
		outcomesPersisted, _ = meter.Int64Counter("wellspring.outcomes.persisted",
			metric.WithDescription("Assessment outcomes durably persisted"))
	})
}

// SessionStarted records a session entering the active state.
func SessionStarted(ctx context.Context) {
	ensure()
	sessionsStarted.Add(ctx, 1)
}

// SessionRejected records a validation-gate rejection.
func SessionRejected(ctx context.Context) {
	ensure()
	sessionsRejected.Add(ctx, 1)
}

// FrameCaptured records a successfully analyzed frame.
func FrameCaptured(ctx context.Context) {
	ensure()
	framesCaptured.Add(ctx, 1)
}

// FrameDropped records a dropped visual sample.
func FrameDropped(ctx context.Context) {
	ensure()
	framesDropped.Add(ctx, 1)
}

// TierFallback records that the named scoring tier failed and the next tier
// was attempted.
func TierFallback(ctx context.Context, tier string) {
	ensure()
	tierFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

// OutcomePersisted records a durable outcome write, tagged by model version.
func OutcomePersisted(ctx context.Context, modelVersion string) {
	ensure()
	outcomesPersisted.Add(ctx, 1, metric.WithAttributes(attribute.String("model_version", modelVersion)))
}
