package extract

import (
	"strings"
	"testing"

	"github.com/halcyonlabs/wellspring/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestExtract_FullConversation(t *testing.T) {
	e := NewKeywordExtractor()

	transcript := strings.Join([]string{
		"Over the last two weeks, how often have you had little interest or pleasure in doing things?",
		"Honestly, not at all.",
		"Have you been feeling down, depressed, or hopeless?",
		"I would say several days.",
		"How often have you been feeling nervous, anxious, or on edge?",
		"Not at all really.",
		"Have you found yourself unable to stop worrying?",
		"No, not at all.",
		"On a scale of one to ten, how would you rate your mood today? I'd say a 7.",
	}, "\n")

	got := e.Extract(transcript)

	assert.Equal(t, 0, got[models.QuestionPHQ1])
	assert.Equal(t, 1, got[models.QuestionPHQ2])
	assert.Equal(t, 0, got[models.QuestionGAD1])
	assert.Equal(t, 0, got[models.QuestionGAD2])
	assert.Equal(t, 7, got[models.QuestionMood])
	assert.Len(t, got, 5)
}

func TestExtract_FirstMatchWins(t *testing.T) {
	e := NewKeywordExtractor()

	// The same question's keywords appear twice with different answer
	// phrases; the first detected answer must be retained.
	transcript := "little interest in anything, nearly every day. " +
		"Later you mentioned little interest again but said not at all."

	got := e.Extract(transcript)
	assert.Equal(t, 3, got[models.QuestionPHQ1])
}

func TestExtract_AnswerOutsideWindowIgnored(t *testing.T) {
	e := NewKeywordExtractor()

	filler := strings.Repeat("and then we talked about other topics for a while ", 6)
	transcript := "little interest " + filler + "several days"

	got := e.Extract(transcript)
	_, ok := got[models.QuestionPHQ1]
	assert.False(t, ok, "answer phrase beyond the lookahead window must not match")
}

func TestExtract_Mood(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       int
		found      bool
	}{
		{"rate token", "how would you rate your day? maybe an 8 I think", 8, true},
		{"mood token", "my mood is about a 3 today", 3, true},
		{"out of range skipped", "rate it 15 I guess... my mood is a 6", 6, true},
		{"zero rejected", "my mood is 0", 0, false},
		{"no numeral", "my mood is fine", 0, false},
		{"case insensitive", "My MOOD today: 9", 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKeywordExtractor().Extract(tt.transcript)
			v, ok := got[models.QuestionMood]
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestExtract_CaseInsensitive(t *testing.T) {
	e := NewKeywordExtractor()

	got := e.Extract("LITTLE INTEREST in things? NOT AT ALL.")
	assert.Equal(t, 0, got[models.QuestionPHQ1])
}

func TestExtract_EmptyTranscript(t *testing.T) {
	e := NewKeywordExtractor()
	assert.Empty(t, e.Extract(""))
}

func TestExtract_Idempotent(t *testing.T) {
	e := NewKeywordExtractor()
	transcript := "feeling down? several days. anxious? nearly every day."

	first := e.Extract(transcript)
	second := e.Extract(transcript)
	assert.Equal(t, first, second)
}

func TestKeywordExtractor_ImplementsExtractor(t *testing.T) {
	var _ Extractor = NewKeywordExtractor()
}
