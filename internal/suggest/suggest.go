// Package suggest proposes likely ingredients for dishes the catalog does
// not know, so the clarification answer gives the user something to
// confirm. Suggestions are advisory text only; they never enter the
// catalog or the nutrition math.
package suggest

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AA-Fatima/599-cal/pkg/anthropic"
)

// Suggester proposes ingredient names for an unknown dish. An empty slice
// with a nil error means "no suggestions"; callers treat failures the
// same way.
type Suggester interface {
	SuggestIngredients(ctx context.Context, dish string) ([]string, error)
}

// Disabled is the no-op suggester used when no API key is configured.
type Disabled struct{}

func (Disabled) SuggestIngredients(context.Context, string) ([]string, error) {
	return nil, nil
}

const systemPrompt = `You are a culinary assistant. Given a dish name, reply with the typical ingredients of that dish, one ingredient name per line. Reply with ingredient names only: no quantities, no calories, no commentary. At most 10 ingredients.`

// Claude suggests ingredients through the Anthropic API. A token-bucket
// limiter drops requests rather than queueing them: a clarification
// answer without suggestions is still a valid answer.
type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// Options configures the Claude suggester.
type Options struct {
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
}

// NewClaude creates a Claude suggester.
func NewClaude(client anthropic.Client, opts Options) *Claude {
	if opts.Model == "" {
		opts.Model = "claude-haiku-4-5-20251001"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 10
	}
	limit := rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	return &Claude{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		limiter:   rate.NewLimiter(limit, opts.RequestsPerMinute),
	}
}

func (c *Claude) SuggestIngredients(ctx context.Context, dish string) ([]string, error) {
	if !c.limiter.Allow() {
		zap.L().Debug("suggest: rate limited, skipping", zap.String("dish", dish))
		return nil, nil
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: dish},
		},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(c.model, "suggest")

	return parseIngredientList(resp), nil
}

// parseIngredientList extracts one ingredient per line from the text
// blocks, tolerating bullet and numbered list formatting.
func parseIngredientList(resp *anthropic.MessageResponse) []string {
	var out []string
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		for _, line := range strings.Split(block.Text, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimLeft(line, "-*•0123456789. ")
			if line == "" {
				continue
			}
			out = append(out, strings.ToLower(line))
		}
	}
	return out
}
