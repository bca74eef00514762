package scoring

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FeedScreener/internal/domain"
)

var fenceExpr = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// EncodePrompt serializes the batch into a single natural-language
// instruction. The only output contract imposed on the service is a
// JSON array of numbers, same length and order as the input list.
func EncodePrompt(items []domain.Item, scoringContext string) string {
	var b strings.Builder
	b.WriteString("You are ranking feed items against a viewer preference.\n")
	b.WriteString("Preference: ")
	b.WriteString(strings.TrimSpace(scoringContext))
	b.WriteString("\n\nItems:\n")

	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s | %s", i+1, item.Title, item.Channel)
		if item.Duration > 0 {
			b.WriteString(" | ")
			b.WriteString(formatDuration(item.Duration))
		}
		if item.Metadata != "" {
			b.WriteString(" | ")
			b.WriteString(item.Metadata)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nScore how well each item matches the preference. "+
		"Respond with exactly one JSON array of %d floating-point numbers, "+
		"one per item, in the same order as the list. No other text.\n", len(items))
	return b.String()
}

// DecodeScores parses the raw assistant text into an ordered score
// slice. Markdown code fences are stripped if present. Values are
// returned as decoded; clamping to [0,1] is the caller's job.
func DecodeScores(text string, expectedCount int) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty response text: %w", ErrResponseFormat)
	}

	if m := fenceExpr.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	}

	var scores []float64
	if err := json.Unmarshal([]byte(trimmed), &scores); err != nil {
		return nil, fmt.Errorf("parse score array: %v: %w", err, ErrResponseFormat)
	}

	if len(scores) != expectedCount {
		return nil, fmt.Errorf("got %d scores for %d items: %w", len(scores), expectedCount, ErrCountMismatch)
	}

	return scores, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
