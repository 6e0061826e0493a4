// Package webhook implements the RunReporter port by posting run reports as
// JSON to a configured URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunReporter = (*Reporter)(nil)

// Reporter posts run reports to a webhook endpoint. The receiver defines what
// happens next (chat message, pager, nothing); this side only guarantees the
// payload shape.
type Reporter struct {
	url  string
	http *http.Client
}

// NewReporter creates a reporter for production use.
func NewReporter(url string) *Reporter {
	return &Reporter{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewReporterWithHTTPClient creates a Reporter with a custom http.Client.
// This constructor is intended for testing.
func NewReporterWithHTTPClient(url string, httpClient *http.Client) *Reporter {
	return &Reporter{url: url, http: httpClient}
}

type reportPayload struct {
	Game           string          `json:"game"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	Succeeded      int             `json:"succeeded"`
	AlreadyClaimed int             `json:"already_claimed"`
	Failed         int             `json:"failed"`
	Results        []resultPayload `json:"results"`
}

type resultPayload struct {
	AccountID  int64     `json:"account_id"`
	Label      string    `json:"label"`
	Outcome    string    `json:"outcome"`
	Reward     string    `json:"reward,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	SignedDays int       `json:"signed_days"`
	Attempts   int       `json:"attempts"`
	Timestamp  time.Time `json:"timestamp"`
}

// Report posts the run report. Any non-2xx response is an error so the caller
// can log the delivery failure.
func (r *Reporter) Report(ctx context.Context, report model.RunReport) error {
	payload := reportPayload{
		Game:           report.GameName,
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		Succeeded:      report.Succeeded(),
		AlreadyClaimed: report.AlreadyClaimed(),
		Failed:         report.Failed(),
		Results:        make([]resultPayload, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		payload.Results = append(payload.Results, resultPayload{
			AccountID:  res.AccountID,
			Label:      res.Label,
			Outcome:    string(res.Outcome),
			Reward:     res.Reward,
			Detail:     res.Detail,
			SignedDays: res.SignedDays,
			Attempts:   res.Attempts,
			Timestamp:  res.CreatedAt,
		})
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting run report: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded with HTTP %d", resp.StatusCode)
	}
	return nil
}
