package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/portfolio-contact/internal/api/dto"
	"github.com/spec-kit/portfolio-contact/internal/auth"
	"github.com/spec-kit/portfolio-contact/internal/domain"
	"github.com/spec-kit/portfolio-contact/internal/repository"
	"github.com/spec-kit/portfolio-contact/internal/service"
	apperrors "github.com/spec-kit/portfolio-contact/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// SubmissionManager is the admin view over stored submissions.
type SubmissionManager interface {
	List(ctx context.Context, filter repository.SubmissionFilter) (*repository.SubmissionPage, error)
	Recent(ctx context.Context, limit int) ([]domain.Submission, error)
	Get(ctx context.Context, id string) (*service.SubmissionDetail, error)
	MarkAsRead(ctx context.Context, id, actor string) (*domain.Submission, error)
	MarkAsReplied(ctx context.Context, id, actor string) (*domain.Submission, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus, actor string) (*domain.Submission, error)
	Stats(ctx context.Context) (domain.SubmissionStats, error)
}

// SubmissionsHandler manages admin submission endpoints.
type SubmissionsHandler struct {
	service SubmissionManager
}

// NewSubmissionsHandler constructs handler.
func NewSubmissionsHandler(submissionService SubmissionManager) *SubmissionsHandler {
	return &SubmissionsHandler{service: submissionService}
}

// List GET /api/v1/admin/submissions.
func (h *SubmissionsHandler) List(c *fiber.Ctx) error {
	filter, err := parseSubmissionQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.SubmissionResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewSubmissionResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PaginationMeta{
			Page:       page.Page,
			PageSize:   page.PageSize,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// Recent GET /api/v1/admin/submissions/recent.
func (h *SubmissionsHandler) Recent(c *fiber.Ctx) error {
	submissions, err := h.service.Recent(c.UserContext(), parseInt(c.Query("limit"), 10))
	if err != nil {
		return err
	}
	items := make([]dto.SubmissionResponse, 0, len(submissions))
	for i := range submissions {
		items = append(items, dto.NewSubmissionResponse(&submissions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /api/v1/admin/submissions/stats.
func (h *SubmissionsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats)})
}

// Get GET /api/v1/admin/submissions/:id.
func (h *SubmissionsHandler) Get(c *fiber.Ctx) error {
	detail, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.SubmissionDetailResponse{
		SubmissionResponse: dto.NewSubmissionResponse(detail.Submission),
		Notifications:      make([]dto.NotificationJobResponse, 0, len(detail.Jobs)),
	}
	for i := range detail.Jobs {
		resp.Notifications = append(resp.Notifications, dto.NewNotificationJobResponse(&detail.Jobs[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkAsRead POST /api/v1/admin/submissions/:id/read.
func (h *SubmissionsHandler) MarkAsRead(c *fiber.Ctx) error {
	submission, err := h.service.MarkAsRead(c.UserContext(), c.Params("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(submission)})
}

// MarkAsReplied POST /api/v1/admin/submissions/:id/replied.
func (h *SubmissionsHandler) MarkAsReplied(c *fiber.Ctx) error {
	submission, err := h.service.MarkAsReplied(c.UserContext(), c.Params("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(submission)})
}

// UpdateStatus PATCH /api/v1/admin/submissions/:id/status.
func (h *SubmissionsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid payload")
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	submission, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(submission)})
}

func actor(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.Email
	}
	return ""
}

func parseSubmissionQuery(c *fiber.Ctx) (repository.SubmissionFilter, error) {
	filter := repository.SubmissionFilter{Page: parseInt(c.Query("page"), 1)}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := domain.SubmissionStatus(status)
		filter.Status = &s
	}
	if projectType := strings.TrimSpace(c.Query("project_type")); projectType != "" {
		p := domain.ProjectType(projectType)
		filter.ProjectType = &p
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}

	from, err := parseTime(c.Query("created_from"), false)
	if err != nil {
		return filter, apperrors.NewValidationError("invalid created_from", map[string]any{"created_from": c.Query("created_from")})
	}
	to, err := parseTime(c.Query("created_to"), true)
	if err != nil {
		return filter, apperrors.NewValidationError("invalid created_to", map[string]any{"created_to": c.Query("created_to")})
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, nil
}

// parseTime accepts RFC3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTime(val string, endOfDay bool) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
