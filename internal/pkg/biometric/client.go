// Package biometric reads access-control events from an ISAPI-compatible
// fingerprint terminal.
package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/google/uuid"
	"github.com/icholy/digest"
)

const (
	maxRetries = 3

	// deviceTimeLayout is the naive part of a device timestamp.
	deviceTimeLayout = "2006-01-02T15:04:05"
	statusMore       = "MORE"
)

// Client implements punch.Source against the AcsEvent search endpoint.
type Client struct {
	cfg     config.BiometricConfig
	http    *http.Client
	backoff func(attempt int) time.Duration
}

// NewClient creates a device client. Credentials are optional; when set the
// client answers digest challenges.
func NewClient(cfg config.BiometricConfig) *Client {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Username != "" {
		httpClient.Transport = &digest.Transport{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return &Client{
		cfg:  cfg,
		http: httpClient,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}
}

// APIError is a non-success answer from the device.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("biometric API error [%d]: %s", e.StatusCode, e.Body)
}

type searchRequest struct {
	AcsEventCond searchCondition `json:"AcsEventCond"`
}

type searchCondition struct {
	SearchID             string `json:"searchID"`
	SearchResultPosition int    `json:"searchResultPosition"`
	MaxResults           int    `json:"maxResults"`
	Major                int    `json:"major"`
	Minor                int    `json:"minor"`
	StartTime            string `json:"startTime"`
	EndTime              string `json:"endTime"`
	TimeReverseOrder     bool   `json:"timeReverseOrder"`
}

type searchResponse struct {
	AcsEvent struct {
		SearchID           string  `json:"searchID"`
		ResponseStatusStrg string  `json:"responseStatusStrg"`
		NumOfMatches       int     `json:"numOfMatches"`
		TotalMatches       int     `json:"totalMatches"`
		InfoList           []event `json:"InfoList"`
	} `json:"AcsEvent"`
}

type event struct {
	EmployeeNoString string `json:"employeeNoString"`
	Time             string `json:"time"`
}

// Fetch implements punch.Source. start and end are device wall-clock times.
// Events without an employee number or with an unreadable time are dropped.
func (c *Client) Fetch(ctx context.Context, start, end time.Time) ([]punch.Punch, error) {
	cond := searchCondition{
		SearchID:         uuid.NewString(),
		MaxResults:       c.cfg.MaxResults,
		StartTime:        c.formatTime(start),
		EndTime:          c.formatTime(end),
		TimeReverseOrder: true,
	}

	var punches []punch.Punch
	for page := 1; ; page++ {
		resp, err := c.search(ctx, cond)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", punch.ErrUpstreamFetch, page, err)
		}

		for _, ev := range resp.AcsEvent.InfoList {
			p, ok := toPunch(ev)
			if !ok {
				continue
			}
			punches = append(punches, p)
		}

		slog.Debug("Biometric: fetched page",
			"page", page,
			"events", len(resp.AcsEvent.InfoList),
			"total_matches", resp.AcsEvent.TotalMatches,
			"status", resp.AcsEvent.ResponseStatusStrg,
		)

		if resp.AcsEvent.ResponseStatusStrg != statusMore || len(resp.AcsEvent.InfoList) == 0 {
			break
		}
		cond.SearchResultPosition += len(resp.AcsEvent.InfoList)
	}

	slog.Info("Biometric: fetched events", "punches", len(punches), "start", cond.StartTime, "end", cond.EndTime)
	return punches, nil
}

func (c *Client) search(ctx context.Context, cond searchCondition) (searchResponse, error) {
	body, err := json.Marshal(searchRequest{AcsEventCond: cond})
	if err != nil {
		return searchResponse{}, fmt.Errorf("failed to encode search: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		var resp searchResponse
		lastErr = c.post(ctx, body, &resp)
		if lastErr == nil {
			return resp, nil
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			return searchResponse{}, lastErr
		}

		slog.Warn("Biometric: search failed",
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", lastErr,
		)
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return searchResponse{}, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}
	return searchResponse{}, fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte, out *searchResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"?format=json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(res)

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &APIError{StatusCode: res.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}

func (c *Client) formatTime(t time.Time) string {
	return t.Format(deviceTimeLayout) + c.cfg.TimezoneOffset
}

// toPunch keeps the device wall clock and ignores any offset suffix.
func toPunch(ev event) (punch.Punch, bool) {
	if ev.EmployeeNoString == "" || len(ev.Time) < len(deviceTimeLayout) {
		return punch.Punch{}, false
	}
	ts, err := time.Parse(deviceTimeLayout, ev.Time[:len(deviceTimeLayout)])
	if err != nil {
		return punch.Punch{}, false
	}
	return punch.Punch{EmployeeID: ev.EmployeeNoString, Timestamp: ts}, true
}

// retryable reports whether err is transient. Client errors from the device are not.
func retryable(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func drain(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
}

// ParseOffset turns a "+05:00" style offset into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	t, err := time.Parse("-07:00", offset)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone offset %q: %w", offset, err)
	}
	_, seconds := t.Zone()
	return time.FixedZone(offset, seconds), nil
}
