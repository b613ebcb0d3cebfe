// Package api exposes the attendance service over HTTP.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/httpmiddleware"
	"schoolattend/internal/live"
	"schoolattend/internal/notify"
	"schoolattend/internal/report"
	"schoolattend/internal/roster"
)

// RosterSource returns the current roster.
type RosterSource interface {
	Roster(ctx context.Context) (roster.Roster, error)
}

// Notifier enqueues notification jobs.
type Notifier interface {
	EnqueueReport(ctx context.Context, date string) (string, error)
	EnqueueScan(ctx context.Context, job notify.ScanNoticeJob) (string, error)
}

// Broadcaster pushes live activity to dashboards.
type Broadcaster interface {
	Broadcast(msg live.Message)
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps wires the router to its collaborators.
type Deps struct {
	Service     *attendance.Service
	Aggregator  *report.Aggregator
	Roster      RosterSource
	Notifier    Notifier
	Live        Broadcaster
	Tokens      *auth.Tokens
	Credentials auth.Credentials
	Health      map[string]HealthCheck
	Log         *logrus.Logger

	ExportTitle     string
	NotifyOnScan    bool
	RateLimitPerMin int
}

type handler struct {
	Deps
	log *logrus.Entry
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logrus.New()
		d.Log.Out = io.Discard
	}
	if d.Aggregator == nil {
		d.Aggregator = report.NewAggregator(d.Log)
	}
	h := &handler{Deps: d, log: d.Log.WithFields(logrus.Fields{"module": "api", "scope": "handler"})}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(d.Log, "/healthz", "/metrics"))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.health)

	limiter := httpmiddleware.NewTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin)
	v1 := r.Group("/v1")
	v1.POST("/scans", limiter.GinMiddleware(), h.scan)
	v1.POST("/auth/login", limiter.GinMiddleware(), h.login)
	v1.POST("/auth/refresh", h.refresh)

	admin := v1.Group("/admin", auth.Require(d.Tokens, auth.RoleAdmin, false))
	admin.GET("/summary", h.summary)
	admin.GET("/recent", h.recent)
	admin.GET("/live", h.liveView)
	admin.GET("/attendance", h.dailyRecords)
	admin.GET("/statistics", h.statistics)
	admin.GET("/export", h.exportWorkbook)
	admin.GET("/export/preview", h.exportPreview)
	admin.GET("/persons", h.listPersons)
	admin.POST("/persons", h.createPerson)
	admin.GET("/persons/:id", h.getPerson)
	admin.PATCH("/persons/:id", h.updatePerson)
	admin.DELETE("/persons/:id", h.deletePerson)
	admin.GET("/groups", h.groups)
	admin.POST("/roster/import", h.importRoster)
	admin.POST("/reports/telegram", h.sendReport)

	if d.Live != nil {
		r.GET("/ws/activity", auth.Require(d.Tokens, auth.RoleAdmin, true), func(c *gin.Context) {
			d.Live.ServeWS(c.Writer, c.Request)
		})
	}
	return r
}

func (h *handler) health(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
