// Package extract derives clinical instrument answers from a running
// conversation transcript.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// Extractor turns a transcript into a partial clinical response map. The
// keyword matcher below is the default implementation; the interface exists
// so it can be swapped for an NLP-backed extractor without touching the
// session controller or the scorer.
type Extractor interface {
	Extract(transcript string) map[models.QuestionKey]int
}

// answerWindow is how far past a question keyword we look for an answer
// phrase.
const answerWindow = 200

// answerPhrase maps a canonical Likert phrase to its instrument score.
type answerPhrase struct {
	phrase string
	score  int
}

// Canonical PHQ/GAD answer phrases, scored 0-3.
var answerPhrases = []answerPhrase{
	{"not at all", 0},
	{"several days", 1},
	{"more than half the days", 2},
	{"nearly every day", 3},
}

// Per-question keyword sets, ordered. The earliest occurrence of any keyword
// anchors the answer search window for that question.
var questionKeywords = map[models.QuestionKey][]string{
	models.QuestionPHQ1: {"little interest", "pleasure", "doing things"},
	models.QuestionPHQ2: {"feeling down", "depressed", "hopeless"},
	models.QuestionGAD1: {"nervous", "anxious", "on edge"},
	models.QuestionGAD2: {"stop worrying", "control worrying", "worrying"},
}

// moodPattern matches a 1-2 digit numeral shortly after a mood prompt token.
var moodPattern = regexp.MustCompile(`\b(?:mood|feeling|rate)\b[^0-9]{0,40}?(\d{1,2})`)

// KeywordExtractor is the keyword-proximity transcript matcher. It is
// stateless; Extract may be re-run on the full transcript after every update
// and always reports the first match it finds for each key.
//
// Known limitation, preserved intentionally: the answer phrase found in a
// question's window is not verified to be a reply to that question, so an
// unrelated co-occurrence inside the window can be picked up.
type KeywordExtractor struct{}

// NewKeywordExtractor returns the default transcript extractor.
func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// Extract scans the transcript and returns every question it can answer.
// Missing keys are simply absent from the result.
func (e *KeywordExtractor) Extract(transcript string) map[models.QuestionKey]int {
	lower := strings.ToLower(transcript)
	out := make(map[models.QuestionKey]int)

	for _, key := range models.AllQuestionKeys {
		if key == models.QuestionMood {
			if v, ok := extractMood(lower); ok {
				out[key] = v
			}
			continue
		}
		if v, ok := extractLikert(lower, questionKeywords[key]); ok {
			out[key] = v
		}
	}
	return out
}

// extractLikert anchors on the earliest keyword occurrence and scans the
// following window for the earliest canonical answer phrase.
func extractLikert(lower string, keywords []string) (int, bool) {
	anchor := -1
	anchorLen := 0
	for _, kw := range keywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		if anchor < 0 || idx < anchor {
			anchor = idx
			anchorLen = len(kw)
		}
	}
	if anchor < 0 {
		return 0, false
	}

	start := anchor + anchorLen
	end := start + answerWindow
	if start > len(lower) {
		start = len(lower)
	}
	if end > len(lower) {
		end = len(lower)
	}
	window := lower[start:end]

	best := -1
	score := 0
	for _, ap := range answerPhrases {
		idx := strings.Index(window, ap.phrase)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best = idx
			score = ap.score
		}
	}
	if best < 0 {
		return 0, false
	}
	return score, true
}

// extractMood returns the first in-range numeral following a mood token.
func extractMood(lower string) (int, bool) {
	for _, m := range moodPattern.FindAllStringSubmatch(lower, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= 1 && n <= 10 {
			return n, true
		}
	}
	return 0, false
}
