// Package audio collects coarse audio-derived signal emitted by the
// conversation widget.
package audio

import (
	"sync"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// Collector is a passive sink for widget audio-signal events. The widget
// already summarizes per utterance, so no averaging happens here: the most
// recent observation wins.
type Collector struct {
	mu      sync.Mutex
	summary models.AudioSignalSummary
	seen    bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Observe overwrites the stored summary with the latest signal.
func (c *Collector) Observe(s models.AudioSignalSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = s
	c.seen = true
}

// Summary returns the latest observation and whether any signal has been
// seen this session.
func (c *Collector) Summary() (models.AudioSignalSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary, c.seen
}
