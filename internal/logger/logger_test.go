package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
)

func TestNew_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	l := newTo(&buf, config.Config{AppEnv: "prod"})
	l.Debug().Msg("hidden")
	l.Info().Str("team", "devops").Msg("trends report")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("debug should be filtered, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["service"] != "jira-dashboard" || rec["team"] != "devops" || rec["message"] != "trends report" {
		t.Fatalf("record %v", rec)
	}
}

func TestNew_ConsoleInDev(t *testing.T) {
	var buf bytes.Buffer
	l := newTo(&buf, config.Config{AppEnv: "dev"})
	l.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("dev output %q", buf.String())
	}
}
