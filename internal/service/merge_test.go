package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/domain"
)

func TestMergeFields_UnionsSetFields(t *testing.T) {
	canonical := &domain.Lesson{
		ID:     "c",
		Title:  "Canonical",
		Themes: domain.StringArray{"A"},
	}
	duplicates := []domain.Lesson{
		{ID: "d1", Themes: domain.StringArray{"A", "B"}},
		{ID: "d2", Themes: domain.StringArray{"B", "C"}},
	}

	if !MergeFields(canonical, duplicates) {
		t.Fatal("expected merge to report a change")
	}
	if !reflect.DeepEqual(canonical.Themes, domain.StringArray{"A", "B", "C"}) {
		t.Errorf("expected themes {A,B,C}, got %v", canonical.Themes)
	}
}

func TestMergeFields_AllSetFields(t *testing.T) {
	canonical := &domain.Lesson{ID: "c"}
	duplicates := []domain.Lesson{{
		ID:           "d",
		GradeLevels:  domain.StringArray{"3-5"},
		Ingredients:  domain.StringArray{"kale"},
		Skills:       domain.StringArray{"chopping"},
		CulturalTags: domain.StringArray{"harvest festival"},
		Seasons:      domain.StringArray{"fall"},
	}}

	if !MergeFields(canonical, duplicates) {
		t.Fatal("expected merge to report a change")
	}
	if len(canonical.GradeLevels) != 1 || len(canonical.Ingredients) != 1 ||
		len(canonical.Skills) != 1 || len(canonical.CulturalTags) != 1 ||
		len(canonical.Seasons) != 1 {
		t.Errorf("expected every set field to gain the duplicate's value: %+v", canonical)
	}
}

func TestMergeFields_SourceURLBackfillOnly(t *testing.T) {
	canonical := &domain.Lesson{ID: "c", SourceURL: "https://curated.example/canonical"}
	duplicates := []domain.Lesson{{ID: "d", SourceURL: "https://import.example/dup"}}

	if MergeFields(canonical, duplicates) {
		t.Error("expected no change when canonical already has a source url")
	}
	if canonical.SourceURL != "https://curated.example/canonical" {
		t.Errorf("canonical source url was overwritten: %s", canonical.SourceURL)
	}

	empty := &domain.Lesson{ID: "c2"}
	if !MergeFields(empty, duplicates) {
		t.Error("expected backfill of an empty source url to report a change")
	}
	if empty.SourceURL != "https://import.example/dup" {
		t.Errorf("expected backfilled source url, got %q", empty.SourceURL)
	}
}

func TestMergeFields_NeverTouchesTitleOrSummary(t *testing.T) {
	canonical := &domain.Lesson{ID: "c", Title: "Keep Me", Summary: ""}
	duplicates := []domain.Lesson{{ID: "d", Title: "Other Title", Summary: "A richer summary"}}

	MergeFields(canonical, duplicates)

	if canonical.Title != "Keep Me" {
		t.Errorf("title was modified: %q", canonical.Title)
	}
	if canonical.Summary != "" {
		t.Errorf("summary was modified: %q", canonical.Summary)
	}
}

func TestMergeFields_Idempotent(t *testing.T) {
	canonical := &domain.Lesson{ID: "c", Themes: domain.StringArray{"A"}}
	duplicates := []domain.Lesson{{ID: "d", Themes: domain.StringArray{"A", "B"}}}

	if !MergeFields(canonical, duplicates) {
		t.Fatal("expected first merge to change the canonical")
	}
	if MergeFields(canonical, duplicates) {
		t.Error("expected second merge over the same inputs to be a no-op")
	}
	if !reflect.DeepEqual(canonical.Themes, domain.StringArray{"A", "B"}) {
		t.Errorf("expected stable themes {A,B}, got %v", canonical.Themes)
	}
}

func TestMergeInto_PersistsAndBumpsTimestamp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedLesson(t, &domain.Lesson{
		ID:     "c",
		Title:  "Canonical",
		Themes: domain.StringArray{"A"},
	})
	env.seedLesson(t, &domain.Lesson{
		ID:        "d",
		Title:     "Duplicate",
		Themes:    domain.StringArray{"B"},
		SourceURL: "https://import.example/d",
	})

	before := env.mustGetLesson(t, "c").UpdatedAt
	time.Sleep(5 * time.Millisecond)

	merged, err := env.resolution.MergeInto(ctx, reviewer, "c", []string{"d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !merged {
		t.Fatal("expected the merge to report changes")
	}

	after := env.mustGetLesson(t, "c")
	if !reflect.DeepEqual(after.Themes, domain.StringArray{"A", "B"}) {
		t.Errorf("expected persisted themes {A,B}, got %v", after.Themes)
	}
	if after.SourceURL != "https://import.example/d" {
		t.Errorf("expected backfilled source url, got %q", after.SourceURL)
	}
	if !after.UpdatedAt.After(before) {
		t.Error("expected the canonical's last-modified timestamp to advance")
	}

	// The duplicates remain live and untouched.
	dup := env.mustGetLesson(t, "d")
	if !reflect.DeepEqual(dup.Themes, domain.StringArray{"B"}) {
		t.Errorf("duplicate was mutated: %v", dup.Themes)
	}
}

func TestMergeInto_PermissionGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLesson(t, &domain.Lesson{ID: "c", Title: "Canonical"})
	env.seedLesson(t, &domain.Lesson{ID: "d", Title: "Duplicate"})

	member := auth.Caller{Subject: "member-1", Role: auth.RoleMember}
	if _, err := env.resolution.MergeInto(ctx, member, "c", []string{"d"}); !IsCategory(err, CategoryPermissionDenied) {
		t.Errorf("expected permission_denied, got %v", err)
	}
}

func TestMergeInto_MissingLessons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedLesson(t, &domain.Lesson{ID: "c", Title: "Canonical"})

	if _, err := env.resolution.MergeInto(ctx, reviewer, "c", []string{"ghost"}); !IsCategory(err, CategoryNotFound) {
		t.Errorf("expected not_found for a missing duplicate, got %v", err)
	}
	if _, err := env.resolution.MergeInto(ctx, reviewer, "ghost", []string{"c"}); !IsCategory(err, CategoryNotFound) {
		t.Errorf("expected not_found for a missing canonical, got %v", err)
	}
	if _, err := env.resolution.MergeInto(ctx, reviewer, "c", []string{"c"}); !IsCategory(err, CategoryInvalidArgument) {
		t.Errorf("expected invalid_argument for a self-merge, got %v", err)
	}
}
