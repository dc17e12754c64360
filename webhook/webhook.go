// Package webhook notifies callers when a retrieval job reaches a terminal
// state.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/shelfscout/retry"
)

// Event types.
const (
	EventRetrievalCompleted = "retrieval.completed"
	EventRetrievalFailed    = "retrieval.failed"
)

// SignatureHeader carries "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Shelfscout-Signature"

// Event is the JSON body posted to a webhook endpoint.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, jobID string, data any) *Event {
	return &Event{Type: eventType, JobID: jobID, Timestamp: time.Now().Unix(), Data: data}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Notifier posts events, retrying failed deliveries after each delay in
// Backoff.
type Notifier struct {
	Client  *http.Client
	Backoff []time.Duration
}

// NewNotifier returns a Notifier with a 10s request timeout and retries
// after 1s, 5s and 30s.
func NewNotifier() *Notifier {
	return &Notifier{
		Client:  &http.Client{Timeout: 10 * time.Second},
		Backoff: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver posts event once. Any status of 400 or above is an error.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Shelfscout-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Send delivers event, retrying per Backoff until it succeeds, the
// schedule runs out or ctx ends. It reports the last error.
func (n *Notifier) Send(ctx context.Context, url, secret string, event *Event) error {
	delays := append([]time.Duration{0}, n.Backoff...)
	var err error
	for attempt, delay := range delays {
		if sleepErr := retry.Sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		if err = n.Deliver(ctx, url, secret, event); err == nil {
			slog.Info("webhook delivered", "event", event.Type, "job_id", event.JobID, "attempt", attempt+1)
			return nil
		}
		slog.Warn("webhook delivery failed",
			"event", event.Type,
			"job_id", event.JobID,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery gave up", "event", event.Type, "job_id", event.JobID)
	return err
}

// SendAsync runs Send in the background, detached from any request.
func (n *Notifier) SendAsync(url, secret string, event *Event) {
	go func() {
		_ = n.Send(context.Background(), url, secret, event)
	}()
}
