package models

// QuestionKey identifies one of the five fixed assessment questions.
type QuestionKey string

const (
	QuestionPHQ1 QuestionKey = "q1" // little interest or pleasure
	QuestionPHQ2 QuestionKey = "q2" // feeling down, depressed, hopeless
	QuestionGAD1 QuestionKey = "q3" // feeling nervous, anxious, on edge
	QuestionGAD2 QuestionKey = "q4" // not being able to stop worrying
	QuestionMood QuestionKey = "q5" // self-reported mood, 1-10
)

// AllQuestionKeys lists the five question keys in canonical order.
var AllQuestionKeys = []QuestionKey{
	QuestionPHQ1, QuestionPHQ2, QuestionGAD1, QuestionGAD2, QuestionMood,
}

// PositiveScreenThreshold is the conventional cut-off for a positive PHQ-2
// or GAD-2 screen (total >= 3).
const PositiveScreenThreshold = 3

// ScoreRange returns the inclusive valid score range for a question key.
func ScoreRange(key QuestionKey) (min, max int) {
	if key == QuestionMood {
		return 1, 10
	}
	return 0, 3
}

// ClinicalResponses maps question keys to extracted scores. Keys are write
// once: the first answer recorded for a key wins and later answers for the
// same key are ignored, so re-running extraction over a growing transcript
// is idempotent.
type ClinicalResponses struct {
	answers map[QuestionKey]int
}

// NewClinicalResponses returns an empty response set.
func NewClinicalResponses() *ClinicalResponses {
	return &ClinicalResponses{answers: make(map[QuestionKey]int)}
}

// Set records an answer for key. It returns false if the key was already
// answered or the score is outside the valid range for the key.
func (c *ClinicalResponses) Set(key QuestionKey, score int) bool {
	if _, ok := c.answers[key]; ok {
		return false
	}
	min, max := ScoreRange(key)
	if score < min || score > max {
		return false
	}
	c.answers[key] = score
	return true
}

// Get returns the answer for key, if recorded.
func (c *ClinicalResponses) Get(key QuestionKey) (int, bool) {
	v, ok := c.answers[key]
	return v, ok
}

// Answered returns the number of answered keys.
func (c *ClinicalResponses) Answered() int {
	return len(c.answers)
}

// Complete reports whether all five keys are answered.
func (c *ClinicalResponses) Complete() bool {
	return len(c.answers) == len(AllQuestionKeys)
}

// PHQ2Total returns q1+q2. Missing answers count as zero; callers that need
// validated totals should check Complete first.
func (c *ClinicalResponses) PHQ2Total() int {
	return c.answers[QuestionPHQ1] + c.answers[QuestionPHQ2]
}

// GAD2Total returns q3+q4.
func (c *ClinicalResponses) GAD2Total() int {
	return c.answers[QuestionGAD1] + c.answers[QuestionGAD2]
}

// MoodScale returns the self-reported mood (1-10), or 0 if unanswered.
func (c *ClinicalResponses) MoodScale() int {
	return c.answers[QuestionMood]
}

// Clone returns an independent copy of the response set.
func (c *ClinicalResponses) Clone() *ClinicalResponses {
	out := NewClinicalResponses()
	for k, v := range c.answers {
		out.answers[k] = v
	}
	return out
}
