package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/plantlab/lessonhub/internal/api/middleware"
	"github.com/plantlab/lessonhub/internal/auth"
	"github.com/plantlab/lessonhub/internal/domain"
	"github.com/plantlab/lessonhub/internal/repository"
	"github.com/plantlab/lessonhub/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testServiceToken = "svc-token"

type handlerEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	lessons := repository.NewLessonRepository(db)
	archives := repository.NewArchiveRepository(db)
	decisions := repository.NewResolutionRepository(db)
	dismissals := repository.NewDismissalRepository(db)

	finder := service.NewFinderService(lessons, nil, &service.FinderConfig{
		SimilarityThreshold: 0.95,
		ExcludedTitle:       "Unknown",
	})
	resolution := service.NewResolutionService(db, lessons, archives, decisions, dismissals, nil)
	review := service.NewReviewService(lessons, &service.ReviewConfig{
		BaseURL:       "http://review.local/lessons",
		PreviewLength: 40,
	})

	h := NewDuplicatesHandler(finder, resolution, review)
	provider := auth.NewStaticTokenProvider([]string{testServiceToken})

	router := gin.New()
	router.Use(middleware.Identity(provider))
	router.GET("/pairs", h.FindPairs)
	router.GET("/groups", h.FindGroups)
	router.POST("/details", h.Details)
	router.POST("/check-resolved", h.CheckResolved)
	router.POST("/archive", h.Archive)
	router.GET("/archives/:id", h.ArchiveLookup)
	router.POST("/dismiss", h.Dismiss)

	return &handlerEnv{db: db, router: router}
}

func (e *handlerEnv) seed(t *testing.T, lesson *domain.Lesson) {
	t.Helper()
	if err := e.db.Create(lesson).Error; err != nil {
		t.Fatalf("failed to seed lesson %s: %v", lesson.ID, err)
	}
}

// request performs an HTTP round trip against the test router. An empty token
// sends no Authorization header, resolving the caller to anonymous.
func (e *handlerEnv) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestArchiveEndpoint_Success(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "dup", Title: "A"})
	env.seed(t, &domain.Lesson{ID: "canon", Title: "A"})

	w := env.request(t, http.MethodPost, "/archive", testServiceToken,
		`{"duplicate_id":"dup","canonical_id":"canon","merge":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["success"] != true || resp["archived_id"] != "dup" || resp["canonical_id"] != "canon" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestArchiveEndpoint_AnonymousIsForbidden(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "dup", Title: "A"})
	env.seed(t, &domain.Lesson{ID: "canon", Title: "A"})

	w := env.request(t, http.MethodPost, "/archive", "",
		`{"duplicate_id":"dup","canonical_id":"canon"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "permission_denied") {
		t.Errorf("expected the error category in the body: %s", w.Body.String())
	}

	// The gate fired before any write.
	var count int64
	env.db.Model(&domain.Lesson{}).Count(&count)
	if count != 2 {
		t.Errorf("expected both lessons untouched, got %d", count)
	}
}

func TestArchiveEndpoint_MissingLessonIsNotFound(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "canon", Title: "A"})

	w := env.request(t, http.MethodPost, "/archive", testServiceToken,
		`{"duplicate_id":"ghost","canonical_id":"canon"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Errorf("expected the error category in the body: %s", w.Body.String())
	}
}

func TestArchiveEndpoint_SelfReferenceIsBadRequest(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "dup", Title: "A"})

	w := env.request(t, http.MethodPost, "/archive", testServiceToken,
		`{"duplicate_id":"dup","canonical_id":"dup"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "invalid_argument") {
		t.Errorf("expected the error category in the body: %s", w.Body.String())
	}
}

func TestArchiveEndpoint_MalformedBodyIsBadRequest(t *testing.T) {
	env := newHandlerEnv(t)

	w := env.request(t, http.MethodPost, "/archive", testServiceToken, `{"duplicate_id":"dup"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing required field, got %d", w.Code)
	}
}

func TestDismissEndpoint_RepeatIsConflict(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "a", Title: "A"})
	env.seed(t, &domain.Lesson{ID: "b", Title: "B"})

	first := env.request(t, http.MethodPost, "/dismiss", testServiceToken,
		`{"ids":["a","b"],"detection_method":"same_title"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 for the first dismissal, got %d: %s", first.Code, first.Body.String())
	}

	second := env.request(t, http.MethodPost, "/dismiss", testServiceToken,
		`{"ids":["b","a"]}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a repeated dismissal, got %d: %s", second.Code, second.Body.String())
	}
	if !strings.Contains(second.Body.String(), "conflict") {
		t.Errorf("expected the error category in the body: %s", second.Body.String())
	}
}

func TestPairsEndpoint_StorageFailureHidesDetail(t *testing.T) {
	env := newHandlerEnv(t)

	// Force a storage fault underneath the read path.
	if err := env.db.Exec("DROP TABLE lessons").Error; err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	w := env.request(t, http.MethodGet, "/pairs", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}

	body := w.Body.String()
	if !strings.Contains(body, "storage_failure") {
		t.Errorf("expected the error category in the body: %s", body)
	}
	// Raw driver detail stays in the logs, never in the response.
	if strings.Contains(body, "no such table") || strings.Contains(body, "SQL") {
		t.Errorf("response leaked storage detail: %s", body)
	}
}

func TestCheckResolvedEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "a", Title: "A"})
	env.seed(t, &domain.Lesson{ID: "b", Title: "B"})

	w := env.request(t, http.MethodPost, "/check-resolved", "", `{"ids":["a","b"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp CheckResolvedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.IsResolved || resp.ResolutionType != "none" {
		t.Errorf("expected an unresolved group, got %+v", resp)
	}

	if code := env.request(t, http.MethodPost, "/dismiss", testServiceToken, `{"ids":["a","b"]}`).Code; code != http.StatusOK {
		t.Fatalf("dismissal failed with %d", code)
	}

	w = env.request(t, http.MethodPost, "/check-resolved", "", `{"ids":["a","b"]}`)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !resp.IsResolved || resp.ResolutionType != "dismissed" || resp.ResolvedAt == "" {
		t.Errorf("expected a dismissed group with timestamp, got %+v", resp)
	}
}

func TestArchiveLookupEndpoint(t *testing.T) {
	env := newHandlerEnv(t)
	env.seed(t, &domain.Lesson{ID: "dup", Title: "A"})
	env.seed(t, &domain.Lesson{ID: "canon", Title: "A"})

	if code := env.request(t, http.MethodPost, "/archive", testServiceToken,
		`{"duplicate_id":"dup","canonical_id":"canon"}`).Code; code != http.StatusOK {
		t.Fatalf("archive failed with %d", code)
	}

	w := env.request(t, http.MethodGet, "/archives/dup", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"current_canonical_id":"canon"`) {
		t.Errorf("expected the resolved canonical in the body: %s", w.Body.String())
	}

	if code := env.request(t, http.MethodGet, "/archives/canon", "", "").Code; code != http.StatusNotFound {
		t.Errorf("expected 404 for a live lesson, got %d", code)
	}
}
