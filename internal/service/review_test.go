package service

import (
	"context"
	"strings"
	"testing"

	"github.com/plantlab/lessonhub/internal/domain"
)

func TestLessonDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	long := strings.Repeat("water the beds daily ", 10)
	env.seedLesson(t, &domain.Lesson{
		ID:          "l1",
		Title:       "Garden Basics 101",
		Summary:     "Intro lesson",
		Content:     long,
		GradeLevels: domain.StringArray{"K-2"},
	})
	env.seedLesson(t, &domain.Lesson{
		ID:      "l2",
		Title:   "Imported Table Lesson",
		Content: "| Step | Action |\n| 1 | Dig |\n",
	})

	details, err := env.review.LessonDetails(ctx, []string{"l1", "l2", "ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 details, missing ids silently skipped, got %d", len(details))
	}

	byID := make(map[string]LessonReviewDetail, len(details))
	for _, d := range details {
		byID[d.ID] = d
	}

	d1 := byID["l1"]
	if d1.ContentLength != len(long) {
		t.Errorf("expected content length %d, got %d", len(long), d1.ContentLength)
	}
	if !d1.HasSummary {
		t.Error("expected has_summary for a non-empty summary")
	}
	if d1.HasTableFormatArtifact {
		t.Error("plain prose must not flag a table artifact")
	}
	if d1.Link != "http://review.local/lessons/l1" {
		t.Errorf("unexpected review link %q", d1.Link)
	}
	// Preview capped at the configured 40 runes plus an ellipsis.
	if got := []rune(d1.ContentPreview); len(got) != 41 || !strings.HasSuffix(d1.ContentPreview, "…") {
		t.Errorf("unexpected preview %q", d1.ContentPreview)
	}

	d2 := byID["l2"]
	if !d2.HasTableFormatArtifact {
		t.Error("expected pipe-delimited rows to flag a table artifact")
	}
	if d2.HasSummary {
		t.Error("expected has_summary false for an empty summary")
	}
	if strings.HasSuffix(d2.ContentPreview, "…") {
		t.Errorf("short content must not be truncated: %q", d2.ContentPreview)
	}
}

func TestLessonDetails_EmptyInput(t *testing.T) {
	env := newTestEnv(t)

	details, err := env.review.LessonDetails(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("expected no details for no ids, got %d", len(details))
	}
}
