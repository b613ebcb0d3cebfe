package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"schoolattend/internal/attendance"
	"schoolattend/internal/export"
	"schoolattend/internal/metrics"
	"schoolattend/internal/report"
)

const warningsHeader = "X-Export-Warnings"

func (h *handler) buildSheet(c *gin.Context) (report.Sheet, bool) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return report.Sheet{}, false
	}
	group := strings.TrimSpace(c.Query("group"))
	if group == "" {
		badRequest(c, "group required")
		return report.Sheet{}, false
	}
	ctx := c.Request.Context()

	r, err := h.Roster.Roster(ctx)
	if err != nil {
		h.fail(c, err)
		return report.Sheet{}, false
	}
	persons, err := h.Service.ListPersons(ctx, attendance.PersonFilter{Group: group})
	if err != nil {
		h.fail(c, err)
		return report.Sheet{}, false
	}
	rows, err := h.Service.EventsOnDate(ctx, date, group)
	if err != nil {
		h.fail(c, err)
		return report.Sheet{}, false
	}
	sheet := h.Aggregator.Export(date, group, r, persons, rows)
	metrics.ExportWarnings.Add(float64(len(sheet.Warnings)))
	return sheet, true
}

func (h *handler) exportPreview(c *gin.Context) {
	sheet, ok := h.buildSheet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (h *handler) exportWorkbook(c *gin.Context) {
	sheet, ok := h.buildSheet(c)
	if !ok {
		return
	}
	buf, err := export.Workbook(export.Title(h.ExportTitle, sheet.Date, sheet.Group), sheet)
	if err != nil {
		h.fail(c, err)
		return
	}
	metrics.Exports.Inc()

	data := buf.Bytes()
	if len(sheet.Warnings) > 0 {
		c.Header(warningsHeader, strings.Join(sheet.Warnings, "; "))
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(sheet.Date, sheet.Group)))
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}
