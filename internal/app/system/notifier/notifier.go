// Package notifier delivers task-assignment notifications to the outbound
// notification endpoint.
//
// Delivery is fire-and-forget: it happens after the assignment write has
// already succeeded, failures are logged and never retried, and nothing is
// rolled back. A circuit breaker stops us hammering the endpoint while it
// is down.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Payload is the body of the notification POST.
type Payload struct {
	RecipientEmail string `json:"recipientEmail"`
	RecipientName  string `json:"recipientName"`
	TaskTitle      string `json:"taskTitle"`
}

// Client posts notifications to a single configured endpoint.
// A Client with an empty endpoint is valid and drops everything.
type Client struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	log      *zap.Logger
}

// New builds a notification client for the given endpoint URL.
func New(endpoint string, logger *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("notification circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		breaker:  cb,
		log:      logger,
	}
}

// Send posts one notification and waits for the result. Most callers want
// SendAsync; Send exists for tests and for callers that need the error.
func (c *Client) Send(ctx context.Context, p Payload) error {
	if c.endpoint == "" {
		c.log.Debug("notification endpoint not configured; dropping notification",
			zap.String("recipient", p.RecipientEmail))
		return nil
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, p)
	})
	return err
}

// SendAsync posts the notification on its own goroutine. Failure is logged
// and otherwise ignored; the triggering write has already succeeded.
func (c *Client) SendAsync(p Payload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := c.Send(ctx, p); err != nil {
			c.log.Error("task assignment notification failed",
				zap.String("recipient", p.RecipientEmail),
				zap.String("task", p.TaskTitle),
				zap.Error(err))
		}
	}()
}

func (c *Client) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}
