package models

// AudioSignalSummary is the coarse per-utterance audio signal emitted by the
// conversation widget. The widget already summarizes per utterance, so the
// collector keeps only the most recent observation.
type AudioSignalSummary struct {
	SpeechRate    float64 `json:"speech_rate"`    // words per minute
	VoiceQuality  float64 `json:"voice_quality"`  // 0..1
	EmotionalTone string  `json:"emotional_tone"` // e.g. "neutral", "flat", "animated"
}
