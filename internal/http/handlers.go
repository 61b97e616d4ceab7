/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/dt-jamiem/jira-dashboard/internal/metrics"
	"github.com/dt-jamiem/jira-dashboard/internal/repo"
	"github.com/dt-jamiem/jira-dashboard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type reports interface {
	Statistics(ctx context.Context, maxResults int) (metrics.Summary, error)
	Performance(ctx context.Context, days int) (services.Performance, error)
	Overview(ctx context.Context) ([]services.ProjectOverview, error)
	Projects(ctx context.Context) ([]domain.Project, error)
	Issues(ctx context.Context, maxResults int) (services.IssueList, error)
	ProjectIssues(ctx context.Context, projectKey string, maxResults int) (services.IssueList, error)
	Initiatives(ctx context.Context, maxResults int) ([]services.Progress, error)
	TechnologyInitiatives(ctx context.Context, maxResults int) ([]services.Progress, error)
	Trends(ctx context.Context, team string, days int, skipWeekends bool) (services.Trends, error)
	OpenAge(ctx context.Context, team string, days int) (services.OpenAge, error)
	Analytics(ctx context.Context, team string, days int) (services.TeamAnalytics, error)
	Capacity(ctx context.Context, days int) (services.CapacityReport, error)
	RunDigest(ctx context.Context) (services.Digest, error)
	LastRun(ctx context.Context) (*repo.LastRun, error)
}

type Handlers struct {
	cfg config.Config
	log zerolog.Logger
	svc reports
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc reports) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Jira Dashboard API is running"})
}

func (h *Handlers) Statistics(c *gin.Context) {
	out, err := h.svc.Statistics(c.Request.Context(), intQuery(c, "maxResults", 0))
	h.respond(c, "statistics", out, err)
}

func (h *Handlers) Performance(c *gin.Context) {
	out, err := h.svc.Performance(c.Request.Context(), intQuery(c, "days", 30))
	h.respond(c, "performance metrics", out, err)
}

func (h *Handlers) Overview(c *gin.Context) {
	out, err := h.svc.Overview(c.Request.Context())
	h.respond(c, "overview", out, err)
}

func (h *Handlers) Projects(c *gin.Context) {
	out, err := h.svc.Projects(c.Request.Context())
	h.respond(c, "projects", out, err)
}

func (h *Handlers) Issues(c *gin.Context) {
	out, err := h.svc.Issues(c.Request.Context(), intQuery(c, "maxResults", 0))
	h.respond(c, "issues", out, err)
}

func (h *Handlers) ProjectIssues(c *gin.Context) {
	out, err := h.svc.ProjectIssues(c.Request.Context(), c.Param("projectKey"), intQuery(c, "maxResults", 0))
	h.respond(c, "issues", out, err)
}

func (h *Handlers) Initiatives(c *gin.Context) {
	out, err := h.svc.Initiatives(c.Request.Context(), intQuery(c, "maxResults", 0))
	h.respond(c, "initiatives", out, err)
}

func (h *Handlers) TechnologyInitiatives(c *gin.Context) {
	out, err := h.svc.TechnologyInitiatives(c.Request.Context(), intQuery(c, "maxResults", 0))
	h.respond(c, "technology initiatives", out, err)
}

func (h *Handlers) Trends(c *gin.Context) {
	out, err := h.svc.Trends(c.Request.Context(), c.Param("team"), intQuery(c, "days", 90), boolQuery(c, "skipWeekends"))
	h.respond(c, "trends", out, err)
}

func (h *Handlers) OpenAge(c *gin.Context) {
	out, err := h.svc.OpenAge(c.Request.Context(), c.Param("team"), intQuery(c, "days", 30))
	h.respond(c, "open ticket age", out, err)
}

func (h *Handlers) Analytics(c *gin.Context) {
	out, err := h.svc.Analytics(c.Request.Context(), c.Param("team"), intQuery(c, "days", 30))
	h.respond(c, "analytics", out, err)
}

func (h *Handlers) Capacity(c *gin.Context) {
	out, err := h.svc.Capacity(c.Request.Context(), intQuery(c, "days", 30))
	h.respond(c, "capacity", out, err)
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.LastRun(c.Request.Context())
	h.respond(c, "last run", lr, err)
}

func (h *Handlers) RunNow(c *gin.Context) {
	// detached from the request so the digest outlives it
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), services.DigestTimeout)
		defer cancel()
		if _, err := h.svc.RunDigest(ctx); err != nil {
			h.log.Error().Err(err).Msg("on-demand digest failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) respond(c *gin.Context, what string, out any, err error) {
	if err == nil {
		c.JSON(http.StatusOK, out)
		return
	}
	status := statusFor(err)
	ev := h.log.Error()
	if status < http.StatusInternalServerError {
		ev = h.log.Warn()
	}
	ev.Err(err).Str("report", what).Int("status", status).Msg("report failed")
	c.JSON(status, gin.H{"error": "Failed to fetch " + what, "details": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidProjectKey):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnknownTeam), errors.Is(err, services.ErrNoRunLog), errors.Is(err, repo.ErrNoRuns):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// intQuery parses a positive integer parameter; anything else yields def.
func intQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func boolQuery(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
