package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/news-digest/internal/ratelimit"
	"github.com/jonathan/news-digest/internal/types"
)

// Oracle is a Client that schedules every call on the AI limiter and retries
// failures. A call that fails every attempt returns *types.ExternalServiceError.
type Oracle struct {
	client  Client
	limiter *ratelimit.Limiter
	retrier ratelimit.Retrier
	logger  *slog.Logger
}

var _ Client = (*Oracle)(nil)

// NewOracle wraps client. A nil limiter leaves calls unthrottled.
func NewOracle(client Client, limiter *ratelimit.Limiter, retrier ratelimit.Retrier, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	if retrier.Logger == nil {
		retrier.Logger = logger
	}
	return &Oracle{
		client:  client,
		limiter: limiter,
		retrier: retrier,
		logger:  logger,
	}
}

// GenerateContent returns a non-empty plain-text response.
func (o *Oracle) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return o.call(ctx, tier, func(ctx context.Context) (string, error) {
		text, err := o.client.GenerateContent(ctx, prompt, tier)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("empty response")
		}
		return text, nil
	})
}

// GenerateJSON returns a fence-free JSON response.
func (o *Oracle) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return o.call(ctx, tier, func(ctx context.Context) (string, error) {
		text, err := o.client.GenerateJSON(ctx, prompt, tier)
		if err != nil {
			return "", err
		}
		return CleanJSONBlock(text), nil
	})
}

// GetModel returns the wrapped client's model for tier.
func (o *Oracle) GetModel(tier ModelTier) string {
	return o.client.GetModel(tier)
}

// Close closes the wrapped client.
func (o *Oracle) Close() error {
	return o.client.Close()
}

func (o *Oracle) call(ctx context.Context, tier ModelTier, task func(ctx context.Context) (string, error)) (string, error) {
	text, err := ratelimit.Call(ctx, o.limiter, o.retrier, task)
	if err != nil {
		o.logger.Warn("AI call failed after retries", "model", o.client.GetModel(tier), "error", err)
		return "", &types.ExternalServiceError{Service: "ai model " + o.client.GetModel(tier), Cause: err}
	}
	return text, nil
}

// ServiceError returns err as an *types.ExternalServiceError, wrapping it when
// it is not one already.
func ServiceError(service string, err error) error {
	if err == nil {
		return nil
	}
	var ext *types.ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &types.ExternalServiceError{Service: service, Cause: err}
}
