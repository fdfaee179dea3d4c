// Package notifications publishes budget alerts to an ntfy topic.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"sheet_budget/internal/reconcile"
	"sheet_budget/internal/retry"

	"github.com/rs/zerolog/log"
)

const (
	circuitThreshold = 5
	circuitCooldown  = 30 * time.Second
	maxListedChanges = 10
)

type Options struct {
	BaseURL  string
	Topic    string
	Priority string
	Enabled  bool
	Retry    retry.Config
}

type Client struct {
	httpClient *http.Client
	options    Options

	mutex       sync.Mutex
	failures    int
	circuitOpen bool
	openedAt    time.Time
	totalSent   int64
	totalFailed int64
}

// SendError describes a failed publish
type SendError struct {
	Kind       string
	StatusCode int
	Err        error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether publishing again may succeed
func (e *SendError) Retryable() bool {
	switch e.Kind {
	case "network", "server", "rate_limit":
		return true
	default:
		return false
	}
}

func NewClient(options Options) *Client {
	options.BaseURL = strings.TrimSuffix(options.BaseURL, "/")
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		options:    options,
	}
}

// Send publishes a message. Transient failures are retried; after repeated failures the
// client stops trying for a cooldown period.
func (c *Client) Send(ctx context.Context, title, message string, tags ...string) error {
	if !c.options.Enabled {
		log.Debug().Str("title", title).Msg("Notifications disabled, skipping")
		return nil
	}
	if c.isCircuitOpen() {
		log.Warn().Str("title", title).Msg("Circuit breaker open, skipping notification")
		return &SendError{Kind: "circuit_open", Err: errors.New("circuit breaker is open")}
	}

	config := c.options.Retry
	config.Permanent = func(err error) bool {
		var sendErr *SendError
		return errors.As(err, &sendErr) && !sendErr.Retryable()
	}

	_, err := retry.WithRetry(ctx, config, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.publish(ctx, title, message, tags)
	})
	if err != nil {
		c.recordFailure()
		return err
	}
	c.recordSuccess()
	return nil
}

// NotifyDrift reports sheets added, renamed or removed outside the app
func (c *Client) NotifyDrift(ctx context.Context, changes reconcile.Changes) error {
	if changes.Empty() {
		return nil
	}
	return c.Send(ctx, "Budgets changed", FormatDrift(changes), "card_index_dividers")
}

// NotifyOverspent reports a budget whose leftover dropped below zero
func (c *Client) NotifyOverspent(ctx context.Context, sheetName string, leftover int) error {
	message := fmt.Sprintf("%s is %d over budget", sheetName, -leftover)
	return c.Send(ctx, "Over budget", message, "warning")
}

// FormatDrift renders reconciliation changes one per line
func FormatDrift(changes reconcile.Changes) string {
	var lines []string
	for _, entry := range changes.Added {
		lines = append(lines, "+ "+entry.SheetName)
	}
	for _, rename := range changes.Renamed {
		lines = append(lines, fmt.Sprintf("~ %s -> %s", rename.OldName, rename.NewName))
	}
	for _, entry := range changes.Removed {
		lines = append(lines, "- "+entry.SheetName)
	}

	if len(lines) > maxListedChanges {
		remaining := len(lines) - maxListedChanges
		lines = append(lines[:maxListedChanges], fmt.Sprintf("... and %d more", remaining))
	}
	return strings.Join(lines, "\n")
}

func (c *Client) publish(ctx context.Context, title, message string, tags []string) error {
	url := c.options.BaseURL + "/" + c.options.Topic
	log.Debug().Str("url", url).Str("title", title).Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return &SendError{Kind: "client", Err: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", title)
	if c.options.Priority != "" {
		req.Header.Set("Priority", c.options.Priority)
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendError{Kind: "network", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &SendError{
			Kind:       categorizeStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

func categorizeStatus(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode >= 500:
		return "server"
	default:
		return "client"
	}
}

// Circuit breaker

func (c *Client) isCircuitOpen() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.circuitOpen && time.Since(c.openedAt) > circuitCooldown {
		c.circuitOpen = false
		c.failures = 0
		log.Info().Msg("Circuit breaker moving to half-open state")
	}
	return c.circuitOpen
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalSent++
	c.failures = 0
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.totalFailed++
	c.failures++
	if c.failures >= circuitThreshold && !c.circuitOpen {
		c.circuitOpen = true
		c.openedAt = time.Now()
		log.Warn().Int("failures", c.failures).Msg("Circuit breaker opened due to consecutive failures")
	}
}

// Metrics returns how many notifications were sent and how many failed
func (c *Client) Metrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
