package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/attendance"
	"schoolattend/internal/report"
	"schoolattend/internal/roster"
	"schoolattend/internal/validator"
)

const maxRangeDays = 366

// dateParam reads an ISO date query parameter, defaulting to today.
func (h *handler) dateParam(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		return h.Service.Today(), true
	}
	if err := validator.Get().Var(v, "isodate"); err != nil {
		badRequest(c, name+" must be YYYY-MM-DD")
		return "", false
	}
	return v, true
}

func (h *handler) summary(c *gin.Context) {
	totals, err := h.Service.Totals(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	recent, err := h.Service.Recent(c.Request.Context(), report.RecentLimit*2)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Aggregator.Summarize(h.Service.Today(), totals, recent))
}

func (h *handler) recent(c *gin.Context) {
	// Fetch a little more than shown so skipped malformed rows do not shorten the feed.
	rows, err := h.Service.Recent(c.Request.Context(), report.RecentLimit*2)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Aggregator.Recent(rows))
}

func (h *handler) liveView(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	rows, err := h.Service.EventsOnDate(c.Request.Context(), date, c.Query("group"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "entries": h.Aggregator.LiveView(rows)})
}

func (h *handler) dailyRecords(c *gin.Context) {
	from, ok := h.dateParam(c, "from")
	if !ok {
		return
	}
	to, ok := h.dateParam(c, "to")
	if !ok {
		return
	}
	f, _ := time.Parse(attendance.DateLayout, from)
	t, _ := time.Parse(attendance.DateLayout, to)
	if t.Before(f) {
		badRequest(c, "from must not be after to")
		return
	}
	if t.Sub(f) > maxRangeDays*24*time.Hour {
		badRequest(c, "range too long")
		return
	}
	rows, err := h.Service.EventsBetween(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "records": h.Aggregator.Daily(rows)})
}

func (h *handler) statistics(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			badRequest(c, "days must be between 1 and 90")
			return
		}
		days = n
	}
	st, err := h.Service.Statistics(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) listPersons(c *gin.Context) {
	persons, err := h.Service.ListPersons(c.Request.Context(), attendance.PersonFilter{
		Group: c.Query("group"),
		Name:  c.Query("name"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if persons == nil {
		persons = []attendance.Person{}
	}
	c.JSON(http.StatusOK, gin.H{"persons": persons})
}

func (h *handler) getPerson(c *gin.Context) {
	p, err := h.Service.Person(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) createPerson(c *gin.Context) {
	var in attendance.PersonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.Service.CreatePerson(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handler) updatePerson(c *gin.Context) {
	var patch attendance.PersonPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.Service.UpdatePerson(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) deletePerson(c *gin.Context) {
	if err := h.Service.DeletePerson(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) groups(c *gin.Context) {
	groups, err := h.Service.Groups(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if groups == nil {
		groups = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *handler) importRoster(c *gin.Context) {
	r, err := h.Roster.Roster(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := roster.Import(c.Request.Context(), h.Service, r)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.WithField("created", res.Created).Info("roster imported")
	c.JSON(http.StatusOK, res)
}

func (h *handler) sendReport(c *gin.Context) {
	var req struct {
		Date string `json:"date"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.Date == "" {
		req.Date = h.Service.Today()
	} else if err := validator.Get().Var(req.Date, "isodate"); err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}
	if h.Notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications not configured"})
		return
	}
	id, err := h.Notifier.EnqueueReport(c.Request.Context(), req.Date)
	if err != nil {
		h.log.WithError(err).Error("report not queued")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report could not be queued"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "date": req.Date})
}
