package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-service/internal/service"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util/errorutil"
)

const exportFilename = "queries-export.csv"

// AnalyticsHandler serves dashboard summaries, reports and the CSV export.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analyticsService}
}

// Summary GET /api/analytics.
func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.analytics.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// AdvancedReport GET /api/reports/advanced?startDate=&endDate=&team=.
func (h *AnalyticsHandler) AdvancedReport(c *fiber.Ctx) error {
	start, err := parseDateParam(c.Query("startDate"), "startDate", false)
	if err != nil {
		return err
	}
	end, err := parseDateParam(c.Query("endDate"), "endDate", true)
	if err != nil {
		return err
	}

	report, err := h.analytics.AdvancedReport(c.UserContext(), service.ReportFilter{
		Start: start,
		End:   end,
		Team:  c.Query("team"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// Export GET /api/reports/export.
func (h *AnalyticsHandler) Export(c *fiber.Ctx) error {
	body, err := h.analytics.ExportCSV(c.UserContext())
	if err != nil {
		return err
	}
	c.Attachment(exportFilename)
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(body)
}

// parseDateParam accepts RFC 3339 timestamps or bare dates. A bare end date
// covers the whole day.
func parseDateParam(raw, name string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date", map[string]any{name: "expected YYYY-MM-DD or RFC 3339"})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
