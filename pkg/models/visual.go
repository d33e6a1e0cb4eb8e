package models

import "time"

// Frame is a single encoded video frame retained for the batch visual
// analysis stage.
type Frame struct {
	CapturedAt  time.Time `json:"captured_at"`
	ImageBase64 string    `json:"image_base64"`
}

// FrameAnalysis is the per-frame result returned by the face analysis
// endpoint.
type FrameAnalysis struct {
	FaceDetected bool    `json:"face_detected"`
	Brightness   float64 `json:"brightness"`
	Quality      float64 `json:"quality"`
}

// VisualSample is one analyzed frame folded into the session aggregates.
type VisualSample struct {
	CapturedAt   time.Time
	FaceDetected bool
	Brightness   float64
	Quality      float64
}

// VisualSummary holds the rolling aggregates over all analyzed frames of a
// session. AvgBrightness is an exponential running average; QualityScore is
// monotone non-decreasing and capped at 1.0.
type VisualSummary struct {
	Samples           int     `json:"samples"`
	FacesDetected     int     `json:"faces_detected"`
	FaceDetectionRate float64 `json:"face_detection_rate"`
	AvgBrightness     float64 `json:"avg_brightness"`
	QualityScore      float64 `json:"quality_score"`
}
