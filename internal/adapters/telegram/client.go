/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	"github.com/rs/zerolog"
)

const defaultAPIBase = "https://api.telegram.org"

// maxMessage is Telegram's limit for one sendMessage text.
const maxMessage = 4096

type Client struct {
	token   string
	apiBase string
	chats   []int64
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		token:   cfg.TelegramToken,
		apiBase: defaultAPIBase,
		chats:   cfg.TelegramChatIDs,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Enabled reports whether a token and at least one chat are configured.
func (c *Client) Enabled() bool { return c.token != "" && len(c.chats) > 0 }

// SendMessagePlain sends without parse_mode so report text is never parsed as markdown.
func (c *Client) SendMessagePlain(ctx context.Context, chatID int64, text string) error {
	if c.token == "" || chatID == 0 {
		return fmt.Errorf("telegram: missing token or chat id")
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	body := map[string]any{"chat_id": chatID, "text": text, "disable_web_page_preview": true}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram sendMessage status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// Broadcast sends text to every configured chat, split into message sized
// chunks on line boundaries. It tries every chat and joins the failures.
func (c *Client) Broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, chat := range c.chats {
		for _, part := range chunk(text, maxMessage) {
			if err := c.SendMessagePlain(ctx, chat, part); err != nil {
				c.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

func chunk(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, line[:limit])
			line = line[limit:]
		}
		if cur.Len()+len(line) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
