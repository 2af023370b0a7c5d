package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"roleplay-insights-go/internal/logger"
)

// Client lists events from the conversational-memory HTTP API.
type Client struct {
	baseURL    string
	memoryID   string
	maxResults int
	http       *http.Client
	maxRetry   time.Duration
	log        *logger.Logger
}

type ClientOptions struct {
	BaseURL    string
	MemoryID   string
	MaxResults int
	Timeout    time.Duration
}

func NewClient(opts ClientOptions, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		memoryID:   opts.MemoryID,
		maxResults: maxResults,
		http:       &http.Client{Timeout: timeout},
		maxRetry:   timeout,
		log:        log.Component("memory-client"),
	}
}

type listEventsResponse struct {
	Events []json.RawMessage `json:"events"`
}

// ListEvents returns the raw events of one (session, actor) pair in whatever
// order the service yields them.
func (c *Client) ListEvents(ctx context.Context, sessionID, actorID string) ([]json.RawMessage, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("memory service not configured")
	}
	u, err := url.Parse(fmt.Sprintf("%s/memories/%s/sessions/%s/events",
		c.baseURL, url.PathEscape(c.memoryID), url.PathEscape(sessionID)))
	if err != nil {
		return nil, fmt.Errorf("memory url: %w", err)
	}
	q := u.Query()
	q.Set("actorId", actorID)
	q.Set("maxResults", strconv.Itoa(c.maxResults))
	u.RawQuery = q.Encode()

	var resp listEventsResponse
	if err := c.doJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	c.log.WithField("session_id", sessionID).
		WithField("actor_id", actorID).
		WithField("events", len(resp.Events)).
		Debug("memory events listed")
	return resp.Events, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint string, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry

	var lastErr error
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("memory server error: %d %s", resp.StatusCode, string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("memory request rejected: %d %s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = fmt.Errorf("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v", err)
			return backoff.Permanent(lastErr)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}
