package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/domain"
	"github.com/plantlab/lessonhub/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database, migrated and ready. The
// shared-cache name keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type testEnv struct {
	db         *gorm.DB
	lessons    *repository.LessonRepository
	archives   *repository.ArchiveRepository
	decisions  *repository.ResolutionRepository
	dismissals *repository.DismissalRepository
	finder     *FinderService
	resolution *ResolutionService
	review     *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	lessons := repository.NewLessonRepository(db)
	archives := repository.NewArchiveRepository(db)
	decisions := repository.NewResolutionRepository(db)
	dismissals := repository.NewDismissalRepository(db)

	return &testEnv{
		db:         db,
		lessons:    lessons,
		archives:   archives,
		decisions:  decisions,
		dismissals: dismissals,
		finder: NewFinderService(lessons, nil, &FinderConfig{
			SimilarityThreshold: 0.95,
			ExcludedTitle:       "Unknown",
		}),
		resolution: NewResolutionService(db, lessons, archives, decisions, dismissals, nil),
		review: NewReviewService(lessons, &ReviewConfig{
			BaseURL:       "http://review.local/lessons",
			PreviewLength: 40,
		}),
	}
}

// reviewer is a caller that passes the permission gate in tests.
var reviewer = auth.Caller{Subject: "reviewer-1", Role: auth.RoleReviewer}

func (e *testEnv) seedLesson(t *testing.T, lesson *domain.Lesson) *domain.Lesson {
	t.Helper()
	if err := e.lessons.Create(context.Background(), lesson); err != nil {
		t.Fatalf("failed to seed lesson %s: %v", lesson.ID, err)
	}
	return lesson
}

func (e *testEnv) mustGetLesson(t *testing.T, id string) *domain.Lesson {
	t.Helper()
	lesson, err := e.lessons.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load lesson %s: %v", id, err)
	}
	return lesson
}

func (e *testEnv) countLessons(t *testing.T) int64 {
	t.Helper()
	count, err := e.lessons.Count(context.Background())
	if err != nil {
		t.Fatalf("failed to count lessons: %v", err)
	}
	return count
}

func (e *testEnv) countArchives(t *testing.T, lessonID string) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(&domain.ArchivedLesson{}).Where("lesson_id = ?", lessonID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count archives: %v", err)
	}
	return count
}
