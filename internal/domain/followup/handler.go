package followup

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinictrack/clinictrack/internal/domain/clinic"
	"github.com/clinictrack/clinictrack/internal/platform/auth"
	"github.com/clinictrack/clinictrack/internal/platform/clock"
	"github.com/clinictrack/clinictrack/pkg/pagination"
)

const dateLayout = "2006-01-02"

// ProfileResolver maps an authenticated staff user to their clinic. The
// clinic service satisfies it; a user without a profile is reported as
// clinic.ErrNotFound.
type ProfileResolver interface {
	ClinicIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	profiles ProfileResolver
}

func NewHandler(svc *Service, profiles ProfileResolver) *Handler {
	return &Handler{svc: svc, profiles: profiles}
}

// RegisterRoutes mounts the staff endpoints behind the auth middleware and
// the tokenized public endpoint without it.
func (h *Handler) RegisterRoutes(e *echo.Echo, authMW echo.MiddlewareFunc) {
	staff := e.Group("", authMW)
	staff.GET("/", h.Dashboard)
	staff.GET("/followups/export/", h.Export)
	staff.GET("/followups/new/", h.NewForm)
	staff.POST("/followups/new/", h.Create)
	staff.GET("/followups/:id/edit/", h.EditForm)
	staff.POST("/followups/:id/edit/", h.Update)
	staff.POST("/followups/:id/done/", h.MarkDone)

	e.GET("/followups/public/:token/", h.PublicView)
}

// clinicID resolves the caller's clinic from the authenticated user ID.
// An authenticated user without a clinic profile is a misconfigured account
// and gets a 404, not an auth failure.
func (h *Handler) clinicID(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
	}
	clinicID, err := h.profiles.ClinicIDForUser(c.Request().Context(), uid)
	if errors.Is(err, clinic.ErrNotFound) {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusNotFound, "no clinic profile")
	}
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return clinicID, uid, nil
}

type followupRequest struct {
	PatientName string `json:"patient_name" form:"patient_name"`
	Phone       string `json:"phone" form:"phone"`
	Language    string `json:"language" form:"language"`
	Notes       string `json:"notes" form:"notes"`
	DueDate     string `json:"due_date" form:"due_date"`
	Status      string `json:"status" form:"status"`
}

func (r *followupRequest) toInput() (Input, error) {
	in := Input{
		PatientName: r.PatientName,
		Phone:       r.Phone,
		Language:    Language(r.Language),
		Notes:       r.Notes,
		Status:      Status(r.Status),
	}
	if raw := strings.TrimSpace(r.DueDate); raw != "" {
		due, err := time.Parse(dateLayout, raw)
		if err != nil {
			return in, ValidationErrors{{Field: "due_date", Message: "enter a valid date (YYYY-MM-DD)"}}
		}
		in.DueDate = due
	}
	return in, nil
}

// writeError maps domain errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"errors": ve})
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return err
}

// parseFilters reads the optional status and due-date range query parameters.
// Unrecognized or unparsable values are ignored rather than rejected.
func parseFilters(c echo.Context) ListFilter {
	var filter ListFilter

	if s := Status(c.QueryParam("status")); ValidStatus(s) {
		filter.Status = &s
	}
	if d, err := time.Parse(dateLayout, c.QueryParam("due_start")); err == nil {
		filter.DueStart = &d
	}
	if d, err := time.Parse(dateLayout, c.QueryParam("due_end")); err == nil {
		filter.DueEnd = &d
	}
	return filter
}

// listItem decorates a follow-up with its derived overdue flag for listings.
type listItem struct {
	*FollowUp
	Overdue bool `json:"is_overdue"`
}

func listItems(followups []*FollowUp, today time.Time) []listItem {
	items := make([]listItem, len(followups))
	for i, f := range followups {
		items[i] = listItem{FollowUp: f, Overdue: f.IsOverdue(today)}
	}
	return items
}

// Dashboard returns the clinic's summary counts plus one filtered page of
// follow-ups ordered by due date.
func (h *Handler) Dashboard(c echo.Context) error {
	clinicID, _, err := h.clinicID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	summary, err := h.svc.Summary(ctx, clinicID)
	if err != nil {
		return err
	}

	filter := parseFilters(c)
	followups, page, err := h.svc.List(ctx, clinicID, filter, pagination.PageNumberFromContext(c))
	if err != nil {
		return err
	}

	today := clock.Today(h.svc.Clock())
	applied := map[string]string{}
	if filter.Status != nil {
		applied["status"] = string(*filter.Status)
	}
	if filter.DueStart != nil {
		applied["due_start"] = filter.DueStart.Format(dateLayout)
	}
	if filter.DueEnd != nil {
		applied["due_end"] = filter.DueEnd.Format(dateLayout)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"summary":   summary,
		"filters":   applied,
		"today":     today.Format(dateLayout),
		"followups": pagination.NewResponse(listItems(followups, today), page),
	})
}

var exportHeader = []string{
	"patient_name", "phone", "language", "due_date", "status",
	"notes", "public_token", "view_count", "created_at", "updated_at",
}

// Export streams the clinic's filtered follow-ups as a CSV attachment.
func (h *Handler) Export(c echo.Context) error {
	clinicID, _, err := h.clinicID(c)
	if err != nil {
		return err
	}

	followups, err := h.svc.Export(c.Request().Context(), clinicID, parseFilters(c))
	if err != nil {
		return err
	}

	filename := "followups-" + h.svc.Clock().Now().Format("20060102-150405") + ".csv"
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, f := range followups {
		record := []string{
			f.PatientName,
			f.Phone,
			string(f.Language),
			f.DueDate.Format(dateLayout),
			string(f.Status),
			f.Notes,
			f.PublicToken,
			strconv.Itoa(f.ViewCount),
			f.CreatedAt.Format(time.RFC3339),
			f.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// NewForm describes the creation form: accepted fields, choices, defaults.
func (h *Handler) NewForm(c echo.Context) error {
	if _, _, err := h.clinicID(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fields":    []string{"patient_name", "phone", "language", "notes", "due_date", "status"},
		"languages": []Language{LanguageEN, LanguageHI},
		"statuses":  []Status{StatusPending, StatusDone},
		"defaults":  map[string]string{"language": string(LanguageEN), "status": string(StatusPending)},
		"today":     clock.Today(h.svc.Clock()).Format(dateLayout),
	})
}

func (h *Handler) Create(c echo.Context) error {
	clinicID, userID, err := h.clinicID(c)
	if err != nil {
		return err
	}

	var req followupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in, err := req.toInput()
	if err != nil {
		return writeError(c, err)
	}

	f, err := h.svc.Create(c.Request().Context(), clinicID, userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) EditForm(c echo.Context) error {
	clinicID, _, err := h.clinicID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	f, err := h.svc.Get(c.Request().Context(), clinicID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Update(c echo.Context) error {
	clinicID, _, err := h.clinicID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	var req followupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in, err := req.toInput()
	if err != nil {
		return writeError(c, err)
	}

	f, err := h.svc.Update(c.Request().Context(), clinicID, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) MarkDone(c echo.Context) error {
	clinicID, _, err := h.clinicID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	f, err := h.svc.MarkDone(c.Request().Context(), clinicID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, f)
}

// PublicView serves the tokenized patient page. No authentication: the token
// in the path is the entire capability.
func (h *Handler) PublicView(c echo.Context) error {
	f, lines, err := h.svc.PublicView(
		c.Request().Context(),
		c.Param("token"),
		c.Request().UserAgent(),
		clientIP(c),
	)
	if err != nil {
		return writeError(c, err)
	}

	today := clock.Today(h.svc.Clock())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_name": f.PatientName,
		"due_date":     f.DueDate.Format(dateLayout),
		"status":       f.Status,
		"is_overdue":   f.IsOverdue(today),
		"language":     f.Language,
		"instructions": lines,
	})
}

// clientIP prefers the first X-Forwarded-For entry, falling back to the
// connection's remote address.
func clientIP(c echo.Context) string {
	if xff := c.Request().Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}
