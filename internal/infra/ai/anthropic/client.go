package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/decode"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/prompt"
)

const (
	defaultModel = "claude-sonnet-4-20250514"
	providerName = "anthropic"
)

// Client implements ai.Identifier, ai.FacetAnalyzer and ai.Answerer on the
// Messages API. It is the second model on the primary path.
type Client struct {
	client     anthropic.Client
	configured bool
	model      string
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	c := &Client{model: model}
	if strings.TrimSpace(apiKey) != "" {
		c.client = anthropic.NewClient(option.WithAPIKey(apiKey))
		c.configured = true
	}
	return c
}

func (c *Client) Name() string { return providerName }

func (c *Client) Identify(ctx context.Context, img ai.Image) ([]ai.Candidate, error) {
	mime := img.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	msg := anthropic.NewUserMessage(
		anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(img.Data)),
		anthropic.NewTextBlock(prompt.IdentifyUser()),
	)
	content, err := c.send(ctx, prompt.IdentifySystem(), []anthropic.MessageParam{msg})
	if err != nil {
		return nil, err
	}
	return prompt.ParseCandidates(content)
}

func (c *Client) Ingredients(ctx context.Context, p ai.ProductContext) (*analysis.IngredientsData, error) {
	var out analysis.IngredientsData
	if err := c.structured(ctx, prompt.IngredientsSystem(), prompt.ProductUser(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Composition(ctx context.Context, p ai.ProductContext) (*analysis.CompositionData, error) {
	var out analysis.CompositionData
	if err := c.structured(ctx, prompt.CompositionSystem(), prompt.ProductUser(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sentiment(ctx context.Context, p ai.ProductContext) (*analysis.SentimentData, error) {
	var out analysis.SentimentData
	if err := c.structured(ctx, prompt.SentimentSystem(), prompt.ProductUser(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Answer(ctx context.Context, question string, cc ai.ChatContext) (string, error) {
	var msgs []anthropic.MessageParam
	for _, m := range prompt.ChatHistory(cc.History) {
		if m[0] == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m[1])))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m[1])))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(question)))

	content, err := c.send(ctx, prompt.ChatSystem(cc), msgs)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(content)
	if answer == "" {
		return "", fmt.Errorf("%s: %w: empty answer", providerName, ai.ErrUnparseable)
	}
	return answer, nil
}

func (c *Client) structured(ctx context.Context, system, user string, out any) error {
	content, err := c.send(ctx, system, []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
	})
	if err != nil {
		return err
	}
	return decode.JSON(content, out)
}

func (c *Client) send(ctx context.Context, system string, msgs []anthropic.MessageParam) (string, error) {
	if !c.configured {
		return "", fmt.Errorf("%s: %w", providerName, ai.ErrNotConfigured)
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%s: %w: no text content", providerName, ai.ErrUnparseable)
	}
	return text.String(), nil
}

// classify maps SDK errors onto the ai failure taxonomy. The SDK surfaces the
// HTTP status in the error text.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ai.Unavailable(providerName, err)
	}
	s := err.Error()
	if strings.Contains(s, "429") || strings.Contains(s, "rate_limit") {
		return ai.RateLimited(providerName, err)
	}
	return ai.Unavailable(providerName, err)
}
