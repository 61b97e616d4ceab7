/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	TZ       string
	Location *time.Location
	HTTPAddr string

	// DBDSN is optional; without it report runs are not recorded.
	DBDSN string

	JiraBaseURL    string
	JiraEmail      string
	JiraAPIToken   string
	JiraPAT        string
	JiraRateLimit  float64 // requests per second, 0 disables limiting
	JiraRateBurst  int
	JiraPageSize   int
	JiraFieldsFile string
	JiraFieldMap   map[string]string // name -> id

	OpenAIKey     string
	OpenAIModel   string
	OpenAITimeout time.Duration

	TelegramToken   string
	TelegramChatIDs []int64

	DigestCron  string
	DigestDays  int
	HTTPTimeout time.Duration

	AnalyticsFile string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func atof(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func parseInt64s(csv string) []int64 {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func Load() Config {
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		TZ:       getenv("APP_TZ", "UTC"),
		HTTPAddr: getenv("HTTP_ADDR", ":5000"),

		DBDSN: getenv("DB_DSN", ""),

		JiraBaseURL:    strings.TrimRight(getenv("JIRA_BASE_URL", ""), "/"),
		JiraEmail:      getenv("JIRA_EMAIL", ""),
		JiraAPIToken:   getenv("JIRA_API_TOKEN", ""),
		JiraPAT:        getenv("JIRA_PAT", ""),
		JiraRateLimit:  atof("JIRA_RATE_LIMIT", 5),
		JiraRateBurst:  atoi("JIRA_RATE_BURST", 5),
		JiraPageSize:   atoi("JIRA_PAGE_SIZE", 100),
		JiraFieldsFile: getenv("JIRA_FIELDS_FILE", "/config/jira_fields.json"),

		OpenAIKey:     getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: dur("OPENAI_TIMEOUT", 20*time.Second),

		TelegramToken:   getenv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatIDs: parseInt64s(getenv("TELEGRAM_CHAT_IDS", "")),

		DigestCron:  getenv("DIGEST_CRON", "0 9 * * MON"),
		DigestDays:  atoi("DIGEST_DAYS", 7),
		HTTPTimeout: dur("HTTP_TIMEOUT", 30*time.Second),

		AnalyticsFile: getenv("ANALYTICS_FILE", ""),
	}

	// set global timezone if available; day boundaries are computed in it
	cfg.Location = time.UTC
	if loc, err := time.LoadLocation(cfg.TZ); err == nil {
		time.Local = loc
		cfg.Location = loc
	} else {
		log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
	}

	// optional Jira custom field mapping (name -> id), relative path as fallback
	if m, err := loadFieldMap(cfg.JiraFieldsFile); err == nil {
		cfg.JiraFieldMap = m
	} else if m, err := loadFieldMap("config/jira_fields.json"); err == nil {
		cfg.JiraFieldMap = m
	}
	return cfg
}

// loadFieldMap reads the output of GET /rest/api/3/field.
func loadFieldMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var arr []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, err
	}
	m := map[string]string{}
	for _, f := range arr {
		n := strings.TrimSpace(f.Name)
		if n != "" && f.ID != "" {
			m[n] = f.ID
		}
	}
	if len(m) == 0 {
		return nil, os.ErrNotExist
	}
	return m, nil
}

// FieldID resolves a custom field by display name, falling back to name.
func (c Config) FieldID(name string) string {
	if id, ok := c.JiraFieldMap[name]; ok {
		return id
	}
	return name
}
