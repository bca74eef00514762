package scoring

import (
	"errors"
	"strings"
	"testing"
	"time"

	"FeedScreener/internal/domain"
)

func TestEncodePrompt(t *testing.T) {
	t.Parallel()

	items := []domain.Item{
		{Title: "Intro to Raft", Channel: "DistSys Weekly", Duration: 754 * time.Second},
		{Title: "Cat video", Channel: "Cats", Metadata: "4M views"},
	}

	prompt := EncodePrompt(items, "consensus algorithms")

	for _, want := range []string{
		"Preference: consensus algorithms",
		"1. Intro to Raft | DistSys Weekly | 12:34",
		"2. Cat video | Cats | 4M views",
		"JSON array of 2 floating-point numbers",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestDecodeScores(t *testing.T) {
	t.Parallel()

	scores, err := DecodeScores("[0.1, 0.9, 1.4]", 3)
	if err != nil {
		t.Fatalf("decode plain array: %v", err)
	}
	if scores[2] != 1.4 {
		t.Fatalf("codec must return raw values, got %v", scores[2])
	}
}

func TestDecodeScoresFenced(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"```json\n[0.5, 0.6]\n```",
		"```\n[0.5, 0.6]\n```",
	} {
		scores, err := DecodeScores(text, 2)
		if err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		if scores[0] != 0.5 || scores[1] != 0.6 {
			t.Fatalf("decode %q = %v", text, scores)
		}
	}
}

func TestDecodeScoresFormatErrors(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "not json", `{"scores": [1]}`} {
		if _, err := DecodeScores(text, 1); !errors.Is(err, ErrResponseFormat) {
			t.Errorf("DecodeScores(%q) error = %v, want ErrResponseFormat", text, err)
		}
	}
}

func TestDecodeScoresCountMismatch(t *testing.T) {
	t.Parallel()

	if _, err := DecodeScores("[0.1, 0.2]", 3); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("short array error = %v, want ErrCountMismatch", err)
	}
	if _, err := DecodeScores("[0.1, 0.2, 0.3, 0.4]", 3); !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("long array error = %v, want ErrCountMismatch", err)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	if got := formatDuration(754 * time.Second); got != "12:34" {
		t.Fatalf("formatDuration = %s, want 12:34", got)
	}
	if got := formatDuration(3723 * time.Second); got != "1:02:03" {
		t.Fatalf("formatDuration = %s, want 1:02:03", got)
	}
}
