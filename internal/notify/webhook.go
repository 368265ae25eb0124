package notify

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"forex-journal-go/internal/config"
	"forex-journal-go/internal/journal"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Notifier delivers alert batches to an external channel.
type Notifier interface {
	Send(ctx context.Context, userID string, alerts []journal.Alert) error
}

// Nop is a Notifier that drops everything. Used when no webhook is
// configured.
type Nop struct{}

func (Nop) Send(context.Context, string, []journal.Alert) error { return nil }

// WebhookClient posts alert batches as JSON to a configured endpoint.
type WebhookClient struct {
	client  *resty.Client
	url     string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure WebhookClient implements the interface
var _ Notifier = (*WebhookClient)(nil)

// NewWebhookClient creates a webhook notifier from config.
func NewWebhookClient(cfg *config.Notify, logger *zap.Logger) *WebhookClient {
	return &WebhookClient{
		client:  resty.New(),
		url:     cfg.WebhookURL,
		logger:  logger.Named("webhook"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// payload is the wire shape of one notification.
type payload struct {
	UserID string          `json:"user_id"`
	SentAt time.Time       `json:"sent_at"`
	Alerts []journal.Alert `json:"alerts"`
}

// Send posts the alerts, retrying transient failures with exponential
// backoff. Rate limiting applies per attempt.
func (c *WebhookClient) Send(ctx context.Context, userID string, alerts []journal.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body := payload{UserID: userID, SentAt: time.Now().UTC(), Alerts: alerts}

	var lastErr error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(c.url)

		if err == nil && !resp.IsError() {
			c.logger.Debug("Delivered alert batch",
				zap.String("user_id", userID),
				zap.Int("alerts", len(alerts)))
			return nil
		}

		// Retry server-side and network failures; give up on 4xx.
		shouldRetry := true
		if err == nil {
			lastErr = fmt.Errorf("webhook returned status %s", resp.Status())
			if code := resp.StatusCode(); code < 500 && code != http.StatusTooManyRequests {
				shouldRetry = false
			}
		} else {
			lastErr = err
		}
		if !shouldRetry {
			return fmt.Errorf("webhook delivery rejected: %w", lastErr)
		}

		retryAfter := time.Duration(math.Pow(2, float64(i))) * time.Second
		c.logger.Warn("Webhook delivery failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", maxRetries, lastErr)
}
