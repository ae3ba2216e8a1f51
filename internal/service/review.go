package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/plantlab/lessonhub/internal/repository"
)

// tableArtifactPattern matches a pipe-delimited table row, the residue some
// imports leave behind when source documents contained tabular layouts.
var tableArtifactPattern = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)

// ReviewConfig holds presentation settings for the review projection.
type ReviewConfig struct {
	// BaseURL prefixes the per-lesson review links.
	BaseURL string
	// PreviewLength caps the content preview, in runes.
	PreviewLength int
}

// LessonReviewDetail is the side-by-side comparison projection the admin
// review UI renders for each member of a candidate group.
type LessonReviewDetail struct {
	ID                     string   `json:"id"`
	Title                  string   `json:"title"`
	Summary                string   `json:"summary"`
	ContentLength          int      `json:"content_length"`
	GradeLevels            []string `json:"grade_levels"`
	HasTableFormatArtifact bool     `json:"has_table_format_artifact"`
	HasSummary             bool     `json:"has_summary"`
	Link                   string   `json:"link"`
	ContentPreview         string   `json:"content_preview"`
}

// ReviewService produces read-only lesson projections for the duplicate
// review UI.
type ReviewService struct {
	lessonRepo *repository.LessonRepository
	baseURL    string
	previewLen int
}

// NewReviewService creates a review service.
func NewReviewService(lessonRepo *repository.LessonRepository, cfg *ReviewConfig) *ReviewService {
	previewLen := cfg.PreviewLength
	if previewLen <= 0 {
		previewLen = 300
	}
	return &ReviewService{
		lessonRepo: lessonRepo,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		previewLen: previewLen,
	}
}

// LessonDetails returns the review projection for each requested id. Missing
// ids are simply absent from the result; an empty result is not an error.
func (s *ReviewService) LessonDetails(ctx context.Context, ids []string) ([]LessonReviewDetail, error) {
	lessons, err := s.lessonRepo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, storageFailure("failed to load lessons for review", err)
	}

	details := make([]LessonReviewDetail, 0, len(lessons))
	for _, lesson := range lessons {
		details = append(details, LessonReviewDetail{
			ID:                     lesson.ID,
			Title:                  lesson.Title,
			Summary:                lesson.Summary,
			ContentLength:          len(lesson.Content),
			GradeLevels:            lesson.GradeLevels,
			HasTableFormatArtifact: tableArtifactPattern.MatchString(lesson.Content),
			HasSummary:             strings.TrimSpace(lesson.Summary) != "",
			Link:                   fmt.Sprintf("%s/%s", s.baseURL, lesson.ID),
			ContentPreview:         previewOf(lesson.Content, s.previewLen),
		})
	}
	return details, nil
}

// previewOf truncates content to at most limit runes, appending an ellipsis
// when anything was cut.
func previewOf(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}
