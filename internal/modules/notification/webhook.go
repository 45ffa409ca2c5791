// README: Redis-backed notification queue and the worker that delivers it to a signed webhook.
package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultQueueKey = "medride:notifications"
	SignatureHeader = "X-Medride-Signature"

	// DeadLetterSuffix names the list holding payloads whose delivery was abandoned.
	DeadLetterSuffix = ":dead"
)

// RedisQueue is a Sink that pushes notifications onto a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Name() string { return "redis" }

func (q *RedisQueue) Deliver(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push notification to redis: %w", err)
	}
	return nil
}

type WebhookConfig struct {
	URL        string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// queueClient is the part of *redis.Client the worker uses.
type queueClient interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// WebhookWorker pops queued notifications and POSTs them to the configured URL.
// Payloads that still fail after MaxRetries are parked on key+DeadLetterSuffix.
type WebhookWorker struct {
	client     queueClient
	key        string
	cfg        WebhookConfig
	logger     *logrus.Logger
	httpClient *http.Client
}

func NewWebhookWorker(client queueClient, key string, cfg WebhookConfig, logger *logrus.Logger) *WebhookWorker {
	if key == "" {
		key = DefaultQueueKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	return &WebhookWorker{
		client:     client,
		key:        key,
		cfg:        cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Run blocks on the queue until ctx is done.
func (w *WebhookWorker) Run(ctx context.Context) {
	w.logger.Info("Starting webhook worker")
	for {
		if ctx.Err() != nil {
			w.logger.Info("Stopping webhook worker")
			return
		}
		result, err := w.client.BRPop(ctx, time.Second, w.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.logger.WithError(err).Error("Failed to pop notification from Redis")
			sleep(ctx, w.cfg.BaseDelay)
			continue
		}
		// result[0] is the key, result[1] the payload.
		w.handle(ctx, []byte(result[1]))
	}
}

// DeadLetterKey is the list abandoned payloads are pushed to.
func (w *WebhookWorker) DeadLetterKey() string {
	return w.key + DeadLetterSuffix
}

func (w *WebhookWorker) handle(ctx context.Context, payload []byte) {
	err := w.Deliver(ctx, payload)
	if err == nil {
		return
	}
	log := w.logger.WithError(err).WithField("dead_letter_key", w.DeadLetterKey())
	// Shutdown can interrupt a delivery; the payload is parked either way.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.Timeout)
	defer cancel()
	if perr := w.client.LPush(pushCtx, w.DeadLetterKey(), payload).Err(); perr != nil {
		log.WithField("push_error", perr).Error("Webhook delivery abandoned and payload lost")
		return
	}
	log.Warn("Webhook delivery abandoned, payload moved to dead-letter list")
}

// Deliver POSTs one raw payload, retrying with exponential backoff.
func (w *WebhookWorker) Deliver(ctx context.Context, payload []byte) error {
	if w.cfg.URL == "" {
		w.logger.Debug("Webhook URL is not configured, skipping delivery")
		return nil
	}
	delay := w.cfg.BaseDelay
	var lastErr error
	for i := 0; i < w.cfg.MaxRetries; i++ {
		lastErr = w.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		w.logger.WithError(lastErr).WithField("retries_left", w.cfg.MaxRetries-1-i).Warn("Webhook delivery failed")
		if i < w.cfg.MaxRetries-1 {
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", w.cfg.MaxRetries, lastErr)
}

func (w *WebhookWorker) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(payload, w.cfg.Secret))
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
