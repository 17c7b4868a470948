package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/decode"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	defaultModel = "gpt-4o-mini"
	providerName = "openai"
)

// Client implements ai.Identifier, ai.FacetAnalyzer and ai.Answerer on the
// chat completions API. A client without an API key fails every call with
// ai.ErrNotConfigured.
type Client struct {
	api   *openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithBaseURL(apiKey, model, "")
}

// NewClientWithBaseURL points the client at an OpenAI-compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := &Client{Model: model}
	if strings.TrimSpace(apiKey) == "" {
		return c
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

func (c *Client) Name() string { return providerName }

func (c *Client) Identify(ctx context.Context, img ai.Image) ([]ai.Candidate, error) {
	content, err := c.complete(ctx, true, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.IdentifySystem()},
		{Role: openai.ChatMessageRoleUser, MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.IdentifyUser()},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    img.DataURL(),
				Detail: openai.ImageURLDetailAuto,
			}},
		}},
	})
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
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.ChatSystem(cc)},
	}
	for _, m := range prompt.ChatHistory(cc.History) {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m[0], Content: m[1]})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: question})

	content, err := c.complete(ctx, false, msgs)
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
	content, err := c.complete(ctx, true, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	})
	if err != nil {
		return err
	}
	return decode.JSON(content, out)
}

func (c *Client) complete(ctx context.Context, jsonMode bool, msgs []openai.ChatCompletionMessage) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%s: %w", providerName, ai.ErrNotConfigured)
	}
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no choices", providerName, ai.ErrUnparseable)
	}
	return resp.Choices[0].Message.Content, nil
}

func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return ai.RateLimited(providerName, err)
	}
	return ai.Unavailable(providerName, err)
}
