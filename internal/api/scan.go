package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"schoolattend/internal/attendance"
	"schoolattend/internal/live"
	"schoolattend/internal/metrics"
	"schoolattend/internal/notify"
	"schoolattend/internal/report"
)

type scanRequest struct {
	CardID string `json:"card_id" form:"card_id"`
}

func rejectionMessage(res attendance.ScanResult) string {
	switch res.Reason {
	case attendance.ReasonUnknownCard:
		return "Card not recognised."
	case attendance.ReasonAlreadyClockedIn:
		return fmt.Sprintf("%s has already clocked in today.", res.Person.Name)
	case attendance.ReasonClockOutNotAllowedInWindow:
		return "Clock out is not allowed between 06:00 AM and 09:00 AM."
	case attendance.ReasonMustClockInFirst:
		return fmt.Sprintf("%s must clock in before clocking out.", res.Person.Name)
	case attendance.ReasonAlreadyComplete:
		return fmt.Sprintf("%s has already clocked in and out today.", res.Person.Name)
	}
	return string(res.Reason)
}

func (h *handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.CardID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "card_id required"})
		return
	}

	res, err := h.Service.Scan(c.Request.Context(), req.CardID)
	if err != nil {
		metrics.ScanErrors.Inc()
		h.log.WithError(err).Error("scan failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"reason":  "store_unavailable",
			"message": "Attendance could not be recorded, please scan again.",
		})
		return
	}

	if !res.Accepted {
		metrics.Scans.WithLabelValues(string(res.Reason)).Inc()
		status := http.StatusOK
		if res.Reason == attendance.ReasonUnknownCard {
			status = http.StatusNotFound
			c.JSON(status, gin.H{"status": "error", "reason": res.Reason, "message": rejectionMessage(res)})
			return
		}
		c.JSON(status, gin.H{
			"status":  "warning",
			"reason":  res.Reason,
			"name":    res.Person.Name,
			"message": rejectionMessage(res),
		})
		return
	}

	metrics.Scans.WithLabelValues(string(res.Kind)).Inc()
	shown := report.FormatClock(res.Event.Time)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"name":    res.Person.Name,
		"kind":    res.Kind,
		"label":   res.Kind.Label(),
		"date":    res.Event.Date,
		"time":    shown,
		"message": fmt.Sprintf("%s recorded for %s at %s.", res.Kind.Label(), res.Person.Name, shown),
	})
	h.afterScan(c.Request.Context(), res)
}

// afterScan fans an accepted scan out to dashboards and, optionally, the
// notification queue. Nothing here can change the scan's outcome.
func (h *handler) afterScan(ctx context.Context, res attendance.ScanResult) {
	if h.Live != nil {
		h.Live.Broadcast(live.Message{Type: "SCAN", Payload: report.LiveEntry{
			PersonID: res.Person.ID,
			Name:     res.Person.Name,
			Group:    res.Person.Group,
			Kind:     res.Kind,
			Status:   report.Status(res.Kind),
			Time:     report.FormatClock(res.Event.Time),
		}})
	}
	if !h.NotifyOnScan || h.Notifier == nil {
		return
	}
	job := notify.ScanNoticeJob{Name: res.Person.Name, Kind: res.Kind, Time: res.Event.Time}
	if _, err := h.Notifier.EnqueueScan(context.WithoutCancel(ctx), job); err != nil {
		h.log.WithFields(logrus.Fields{"person": res.Person.ID}).WithError(err).Warn("scan notice not queued")
	}
}
