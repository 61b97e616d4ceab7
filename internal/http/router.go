/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc reports) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).
			Dur("took", time.Since(start)).Msg("http")
	})

	h := NewHandlers(cfg, log, svc)

	api := r.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/statistics", h.Statistics)
	api.GET("/performance", h.Performance)
	api.GET("/projects", h.Projects)
	api.GET("/projects/:projectKey/issues", h.ProjectIssues)
	api.GET("/issues", h.Issues)
	api.GET("/overview", h.Overview)
	api.GET("/initiatives", h.Initiatives)
	api.GET("/technology-initiatives", h.TechnologyInitiatives)
	api.GET("/trends/:team", h.Trends)
	api.GET("/open-age/:team", h.OpenAge)
	api.GET("/analytics/:team", h.Analytics)
	api.GET("/capacity", h.Capacity)

	r.GET("/admin/last-run", h.LastRun)
	r.POST("/admin/run", h.RunNow)

	return r
}
