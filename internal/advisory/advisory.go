// Package advisory produces plain-language guidance for pool members
// through a hosted generative model. Advisory text is informational only
// and is never recorded on a chain; a model outage degrades to canned
// guidance rather than an error.
package advisory

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/stokvelhub/pool-ledger/internal/adapter"
	"github.com/stokvelhub/pool-ledger/internal/logger"
)

const systemPrompt = "You are a financial guide for community savings pools. " +
	"Explain clearly and simply, in plain language, without giving regulated financial advice. " +
	"Amounts are in the pool's own currency."

// fallbackText is served when the model is unreachable
const fallbackText = "Our advisory service is briefly unavailable. Your pool's " +
	"records are unaffected: every contribution and withdrawal stays in the " +
	"tamper-evident history and your treasurer can export a full audit pack " +
	"at any time. Please try again in a few minutes."

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Client asks the hosted model for guidance
type Client struct {
	http  adapter.HTTPClient
	json  adapter.JSON
	url   string
	model string
}

// NewClient creates an advisory client against the given completion
// endpoint
func NewClient(http adapter.HTTPClient, json adapter.JSON, url, model string) *Client {
	return &Client{http: http, json: json, url: url, model: model}
}

// Guide answers a member's question about their pool. The model is tried
// twice; after that the canned fallback is returned with a nil error so
// callers never surface an advisory outage to members.
func (c *Client) Guide(ctx context.Context, question string) (string, error) {
	body, err := c.json.Marshal(completionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal advisory request: %w", err)
	}

	var resp []byte
	op := func() error {
		resp, err = c.http.PostJSON(ctx, c.url, body)
		if err != nil {
			var statusErr *adapter.StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		logger.Warn("advisory model unavailable, serving fallback", zap.Error(err))
		return fallbackText, nil
	}

	var out completionResponse
	if err := c.json.Unmarshal(resp, &out); err != nil {
		logger.Warn("advisory response undecodable, serving fallback", zap.Error(err))
		return fallbackText, nil
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return fallbackText, nil
	}
	return out.Choices[0].Message.Content, nil
}
