package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dt-jamiem/jira-dashboard/internal/config"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"
)

const narratorPrompt = "You are a service delivery lead. Given the JSON metrics of a support team's last period, " +
	"write a short plain-text summary for a chat channel: volume trend, resolution rate, ageing backlog, " +
	"capacity hot spots and one suggested action. No markdown. At most 8 lines."

type Client struct {
	key     string
	model   string
	timeout time.Duration
	cli     openai.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, opts ...option.RequestOption) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}, opts...)
	return &Client{key: cfg.OpenAIKey, model: model, timeout: cfg.OpenAITimeout, cli: openai.NewClient(opts...), log: log}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return strings.TrimSpace(c.key) != "" }

// Narrate turns report facts into a short human summary.
func (c *Client) Narrate(ctx context.Context, facts any) (string, error) {
	if !c.Enabled() {
		return "", errors.New("openai: missing key")
	}
	payload, err := json.Marshal(facts)
	if err != nil {
		return "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	c.log.Info().Str("model", c.model).Int("bytes", len(payload)).Msg("openai narrate call")
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(narratorPrompt),
			openai.UserMessage(string(payload)),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
