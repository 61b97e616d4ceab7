/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/adapters/jira"
	"github.com/dt-jamiem/jira-dashboard/internal/adapters/openai"
	"github.com/dt-jamiem/jira-dashboard/internal/adapters/telegram"
	"github.com/dt-jamiem/jira-dashboard/internal/config"
	apihttp "github.com/dt-jamiem/jira-dashboard/internal/http"
	"github.com/dt-jamiem/jira-dashboard/internal/jobs"
	"github.com/dt-jamiem/jira-dashboard/internal/logger"
	"github.com/dt-jamiem/jira-dashboard/internal/repo"
	"github.com/dt-jamiem/jira-dashboard/internal/services"
	"github.com/dt-jamiem/jira-dashboard/internal/source"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	an, err := config.LoadAnalytics(cfg.AnalyticsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("analytics config")
	}
	rules, err := an.Rulebook()
	if err != nil {
		log.Fatal().Err(err).Msg("classifier rules")
	}

	// DB is optional: it only records digest runs
	var runs services.RunLog
	if cfg.DBDSN != "" {
		db, err := repo.Open(ctx, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("db unavailable; run log disabled")
		} else {
			defer db.Close()
			r := repo.NewRepository(db, log)
			if err := r.EnsureSchema(ctx); err != nil {
				log.Error().Err(err).Msg("ensure schema failed; run log disabled")
			} else {
				runs = r
			}
		}
	}

	// Adapters
	jc := jira.NewClient(cfg, an.ShortNameField, log)
	llm := openai.NewClient(cfg, log)
	tg := telegram.NewClient(cfg, log)

	// Services
	svc := services.New(cfg, an, rules, log, source.NewPaginator(jc, log), jc, llm, tg, runs)

	// Cron
	cr, err := jobs.NewCron(cfg, log, svc)
	if err != nil {
		log.Fatal().Err(err).Msg("cron")
	}
	cr.Start()
	defer cr.Stop()

	// HTTP server (Gin)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apihttp.NewRouter(cfg, log, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", cfg.HTTPAddr).Str("jira", cfg.JiraBaseURL).Time("next_digest", cr.Next()).
		Bool("run_log", runs != nil).Bool("telegram", tg.Enabled()).Bool("openai", llm.Enabled()).Msg("jira dashboard api started")

	// graceful shutdown
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}
