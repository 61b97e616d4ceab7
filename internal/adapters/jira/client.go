/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/dt-jamiem/jira-dashboard/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// MaxPageSize is the Jira Cloud limit for search pages.
const MaxPageSize = 100

// Client talks to the Jira Cloud REST API v3. It is safe for concurrent use.
// Requests are rate limited and never retried.
type Client struct {
	baseURL  string
	token    string
	user     string
	pass     string
	pageSize int
	// shortName is the field id of the "Project Short Name" custom field
	shortName string
	http      *http.Client
	limiter   *rate.Limiter
	log       zerolog.Logger
}

func NewClient(cfg config.Config, shortNameField string, log zerolog.Logger) *Client {
	limit := rate.Inf
	if cfg.JiraRateLimit > 0 {
		limit = rate.Limit(cfg.JiraRateLimit)
	}
	burst := cfg.JiraRateBurst
	if burst <= 0 {
		burst = 1
	}
	size := cfg.JiraPageSize
	if size <= 0 || size > MaxPageSize {
		size = MaxPageSize
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.JiraBaseURL, "/"),
		token:     cfg.JiraPAT,
		user:      cfg.JiraEmail,
		pass:      cfg.JiraAPIToken,
		pageSize:  size,
		shortName: cfg.FieldID(shortNameField),
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:   rate.NewLimiter(limit, burst),
		log:       log,
	}
}

// ShortNameField is the resolved id of the short name custom field, for field lists.
func (c *Client) ShortNameField() string { return c.shortName }

func (c *Client) apiURL(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

// doJSON performs one request and decodes a 2xx body into out. Every failure
// is a *domain.SourceError.
func (c *Client) doJSON(ctx context.Context, op, method, u string, body, out any) error {
	if c.baseURL == "" {
		return &domain.SourceError{Op: op, Err: errors.New("jira: empty baseURL")}
	}
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		r = bytes.NewReader(b)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait refuses early when the deadline cannot be met; report it as one.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return &domain.SourceError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return &domain.SourceError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.user != "" && c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.SourceError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("jira request failed")
		return &domain.SourceError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.SourceError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
