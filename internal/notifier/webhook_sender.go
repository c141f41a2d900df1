package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

const (
	envelopeKind = "event.match"

	webhookQueueSize   = 100
	webhookWorkerCount = 3
	webhookTimeout     = 10 * time.Second
	webhookUserAgent   = "disaster-response/v1"

	// Exponential backoff: 500ms, then 1s before the last attempt.
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// WebhookEnvelope is the JSON document POSTed to the configured endpoint.
// DeliveryID is unique per POST so receivers can dedupe retried deliveries.
type WebhookEnvelope struct {
	Kind       string      `json:"kind"`
	DeliveryID string      `json:"deliveryId"`
	SentAt     time.Time   `json:"sentAt"`
	Event      types.Event `json:"event"`
	NGO        types.NGO   `json:"ngo"`
	Match      types.Match `json:"match"`
}

// WebhookSenderConfig holds the configuration for creating a WebhookSender.
type WebhookSenderConfig struct {
	URL                string
	TimeoutSeconds     int
	InsecureSkipVerify bool
	MinSeverity        string
	// AuthToken is a pre-resolved bearer token. Stored at construction time;
	// rotation requires a restart.
	AuthToken string
}

// WebhookSender implements Sender for generic HTTP POST webhooks. Send
// enqueues; a small worker pool delivers with retries so a slow endpoint
// never blocks dispatch.
type WebhookSender struct {
	httpClient  *http.Client
	logger      *zap.Logger
	url         string
	authToken   string
	minSeverity types.Severity
	queue       chan WebhookEnvelope
	wg          sync.WaitGroup
}

// NewWebhookSender creates a WebhookSender. Returns an error if the URL is invalid.
func NewWebhookSender(logger *zap.Logger, cfg WebhookSenderConfig) (*WebhookSender, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("webhook URL must include a host")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = webhookTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user-configured
		logger.Warn("Webhook TLS certificate verification disabled",
			zap.String("url", RedactURL(cfg.URL)))
	}

	minSev := types.Severity(cfg.MinSeverity)
	if minSev == types.SeverityNone {
		minSev = types.SeverityLow
	}
	if !minSev.Valid() {
		return nil, fmt.Errorf("invalid webhook min severity %q", cfg.MinSeverity)
	}

	return &WebhookSender{
		httpClient:  &http.Client{Timeout: timeout, Transport: transport},
		logger:      logger.Named("webhook-sender"),
		url:         cfg.URL,
		authToken:   cfg.AuthToken,
		minSeverity: minSev,
		queue:       make(chan WebhookEnvelope, webhookQueueSize),
	}, nil
}

// Name implements Sender.
func (ws *WebhookSender) Name() string { return "webhook" }

// ShouldSend implements Sender. True when severity meets the minimum threshold.
func (ws *WebhookSender) ShouldSend(severity types.Severity) bool {
	return severity.Rank() >= ws.minSeverity.Rank()
}

// Start implements Sender. Launches the delivery workers.
func (ws *WebhookSender) Start(ctx context.Context) {
	for i := 0; i < webhookWorkerCount; i++ {
		ws.wg.Add(1)
		go ws.worker(ctx)
	}
	ws.logger.Info("Webhook sender started",
		zap.String("url", RedactURL(ws.url)),
		zap.Int("workers", webhookWorkerCount),
		zap.String("min_severity", string(ws.minSeverity)),
	)
}

// Close waits for the workers to finish draining queued deliveries. Call
// after the context passed to Start is cancelled.
func (ws *WebhookSender) Close() {
	ws.wg.Wait()
}

// Send implements Sender. It stamps the envelope and enqueues it; delivery
// happens on the worker pool under the sender's own lifecycle, since the
// caller's context rarely outlives async delivery.
func (ws *WebhookSender) Send(_ context.Context, n Notification) error {
	env := WebhookEnvelope{
		Kind:       envelopeKind,
		DeliveryID: uuid.NewString(),
		SentAt:     time.Now().UTC(),
		Event:      n.Event,
		NGO:        n.NGO,
		Match:      n.Match,
	}

	select {
	case ws.queue <- env:
		return nil
	default:
		webhookSendTotal.WithLabelValues("dropped").Inc()
		ws.logger.Warn("Webhook queue full, dropping notification",
			zap.String("event", n.Event.ID),
			zap.String("ngo", n.NGO.ID))
		return fmt.Errorf("webhook queue full")
	}
}

func (ws *WebhookSender) worker(ctx context.Context) {
	defer ws.wg.Done()
	for {
		select {
		case env := <-ws.queue:
			if err := ws.deliver(ctx, env); err != nil {
				ws.logger.Error("Webhook delivery failed",
					zap.String("delivery", env.DeliveryID),
					zap.String("url", RedactURL(ws.url)),
					zap.Error(err))
			}
		case <-ctx.Done():
			ws.drain()
			return
		}
	}
}

// drain flushes whatever is still queued at shutdown. Each delivery gets its
// own deadline since the run context is already gone.
func (ws *WebhookSender) drain() {
	for {
		select {
		case env := <-ws.queue:
			ctx, cancel := context.WithTimeout(context.Background(), ws.httpClient.Timeout)
			if err := ws.deliver(ctx, env); err != nil {
				ws.logger.Warn("Webhook delivery failed during shutdown drain",
					zap.String("delivery", env.DeliveryID),
					zap.Error(err))
			}
			cancel()
		default:
			return
		}
	}
}

// deliver POSTs the envelope, retrying transient failures with exponential
// backoff until maxAttempts is spent.
func (ws *WebhookSender) deliver(ctx context.Context, env WebhookEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		webhookSendTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	backoff := baseBackoff
	for attempt := 1; ; attempt++ {
		err := ws.post(ctx, body)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == maxAttempts {
			webhookSendTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("webhook delivery attempt %d: %w", attempt, err)
		}

		webhookSendTotal.WithLabelValues("retry").Inc()
		ws.logger.Debug("Webhook delivery transient failure, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			webhookSendTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("webhook delivery cancelled: %w", ctx.Err())
		}
		backoff *= 2
	}
}

// post executes a single HTTP POST.
func (ws *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	if ws.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+ws.authToken)
	}

	start := time.Now()
	resp, err := ws.httpClient.Do(req)
	if err != nil {
		webhookSendDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return err
	}
	// Drain and close the body so the connection is reusable.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		webhookSendTotal.WithLabelValues("success").Inc()
		webhookSendDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
		return nil
	}
	webhookSendDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
	return statusError(resp.StatusCode)
}

// statusError is a non-2xx response code.
type statusError int

func (s statusError) Error() string {
	return fmt.Sprintf("webhook endpoint returned HTTP %d", int(s))
}

// retryable classifies delivery errors: server-side codes and throttling are
// worth another attempt, other client errors are final. Transport errors
// (refused connections, timeouts) retry.
func retryable(err error) bool {
	var s statusError
	if errors.As(err, &s) {
		return int(s) >= 500 || int(s) == http.StatusTooManyRequests
	}
	return true
}

// RedactURL masks credentials in a URL for safe logging.
// It redacts userinfo passwords and query parameter values.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid-url>"
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
