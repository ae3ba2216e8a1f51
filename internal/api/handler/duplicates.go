package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plantlab/lessonhub/internal/api/middleware"
	"github.com/plantlab/lessonhub/internal/domain"
	"github.com/plantlab/lessonhub/internal/service"
)

// DuplicatesHandler exposes the duplicate review workflow to the admin UI.
type DuplicatesHandler struct {
	finder     *service.FinderService
	resolution *service.ResolutionService
	review     *service.ReviewService
}

// NewDuplicatesHandler creates a new duplicates handler.
// Parameters:
//   - finder: duplicate pair finder.
//   - resolution: resolution service (archive, dismiss, state checks).
//   - review: review projection service.
// Returns:
//   - *DuplicatesHandler: initialized handler.
func NewDuplicatesHandler(finder *service.FinderService, resolution *service.ResolutionService, review *service.ReviewService) *DuplicatesHandler {
	return &DuplicatesHandler{
		finder:     finder,
		resolution: resolution,
		review:     review,
	}
}

// FindPairs handles GET /api/v1/duplicates/pairs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) FindPairs(c *gin.Context) {
	pairs, err := h.finder.FindDuplicatePairs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pairs": pairs,
		"total": len(pairs),
	})
}

// FindGroups handles GET /api/v1/duplicates/groups: pairs folded into
// connected components with already-resolved groups filtered out.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) FindGroups(c *gin.Context) {
	ctx := c.Request.Context()

	pairs, err := h.finder.FindDuplicatePairs(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	groups, err := h.resolution.FilterUnresolved(ctx, service.GroupPairs(pairs))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"total":  len(groups),
	})
}

// DetailsRequest asks for review projections of specific lessons.
type DetailsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// Details handles POST /api/v1/duplicates/details.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) Details(c *gin.Context) {
	var req DetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	details, err := h.review.LessonDetails(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lessons": details,
		"total":   len(details),
	})
}

// CheckResolvedRequest asks whether a group was already handled.
type CheckResolvedRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// CheckResolvedResponse reports the group's resolution state.
type CheckResolvedResponse struct {
	IsResolved     bool   `json:"is_resolved"`
	ResolutionType string `json:"resolution_type"`
	ResolvedAt     string `json:"resolved_at,omitempty"`
}

// CheckResolved handles POST /api/v1/duplicates/check-resolved.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) CheckResolved(c *gin.Context) {
	var req CheckResolvedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	state, err := h.resolution.CheckGroupState(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := CheckResolvedResponse{
		IsResolved:     state.Resolved(),
		ResolutionType: resolutionType(state.State),
	}
	if state.ResolvedAt != nil {
		resp.ResolvedAt = state.ResolvedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	c.JSON(http.StatusOK, resp)
}

// ArchiveRequest resolves one duplicate against a chosen canonical.
type ArchiveRequest struct {
	DuplicateID string `json:"duplicate_id" binding:"required"`
	CanonicalID string `json:"canonical_id" binding:"required"`
	Merge       bool   `json:"merge"`
}

// Archive handles POST /api/v1/duplicates/archive.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) Archive(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	caller := middleware.CallerFrom(c)
	result, err := h.resolution.Archive(c.Request.Context(), caller, req.DuplicateID, req.CanonicalID, req.Merge)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"archived_id":       result.ArchivedID,
		"canonical_id":      result.CanonicalID,
		"archive_record_id": result.ArchiveRecordID,
		"merge_performed":   result.MergePerformed,
	})
}

// ArchiveLookup handles GET /api/v1/duplicates/archives/:id: the stored
// snapshot for an archived lesson plus its current canonical target.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) ArchiveLookup(c *gin.Context) {
	lookup, err := h.resolution.LookupArchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot":             lookup.Snapshot,
		"current_canonical_id": lookup.CurrentCanonicalID,
	})
}

// DismissRequest records a keep-all decision for a group.
type DismissRequest struct {
	IDs             []string `json:"ids" binding:"required,min=2"`
	DetectionMethod string   `json:"detection_method"`
	Note            string   `json:"note"`
}

// Dismiss handles POST /api/v1/duplicates/dismiss.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *DuplicatesHandler) Dismiss(c *gin.Context) {
	var req DismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	caller := middleware.CallerFrom(c)
	record, err := h.resolution.Dismiss(c.Request.Context(), caller, req.IDs, req.DetectionMethod, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"dismissal_id": record.ID,
	})
}

func resolutionType(state domain.ResolutionState) string {
	switch state {
	case domain.StateArchived:
		return "archived"
	case domain.StateDismissed:
		return "dismissed"
	default:
		return "none"
	}
}

// writeError maps a categorized operation error to its HTTP status. Raw
// storage detail stays in the logs; clients see the category, message, and
// remediation hint only.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch service.CategoryOf(err) {
	case service.CategoryPermissionDenied:
		status = http.StatusForbidden
	case service.CategoryNotFound:
		status = http.StatusNotFound
	case service.CategoryInvalidArgument:
		status = http.StatusBadRequest
	case service.CategoryConflict:
		status = http.StatusConflict
	}

	body := gin.H{"success": false, "error": gin.H{
		"category": service.CategoryOf(err),
		"message":  "operation failed",
	}}
	var opErr *service.Error
	if errors.As(err, &opErr) {
		body["error"] = gin.H{
			"category": opErr.Category,
			"message":  opErr.Message,
			"hint":     opErr.Hint,
		}
	}

	c.JSON(status, body)
}
