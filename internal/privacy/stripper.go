// Package privacy scrubs transcripts before they leave the process. The
// conversation widget wraps spans the user asked to withhold in
// <private>...</private>; on top of that, contact details are masked so they
// never reach the external analysis services or the log stream.
package privacy

import (
	"regexp"
	"strings"
)

var (
	// privateTagRegex matches <private>...</private> spans from the widget.
	privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// phoneRegex matches common phone formats with 7+ digits so it does not
	// swallow the small numerals the mood extraction depends on.
	phoneRegex = regexp.MustCompile(`\+?\d[\d\-\s().]{6,}\d`)
)

// StripPrivateSpans removes all <private>...</private> content from text.
func StripPrivateSpans(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// MaskContactDetails replaces email addresses and phone numbers with
// placeholders.
func MaskContactDetails(text string) string {
	text = emailRegex.ReplaceAllString(text, "[email]")
	text = phoneRegex.ReplaceAllString(text, "[phone]")
	return text
}

// IsEntirelyPrivate checks if the text is entirely within <private> spans.
func IsEntirelyPrivate(text string) bool {
	stripped := StripPrivateSpans(text)
	return strings.TrimSpace(stripped) == ""
}

// Clean performs full privacy cleaning on text. This is the function to use
// before a transcript is sent to an analysis service.
func Clean(text string) string {
	text = StripPrivateSpans(text)
	text = MaskContactDetails(text)
	return strings.TrimSpace(text)
}
