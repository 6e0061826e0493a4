package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// TriggerRunRequest is the JSON body for the trigger run endpoint. The game
// is optional when exactly one game is configured.
type TriggerRunRequest struct {
	Game string `json:"game"`
}

// RegisterAccountRequest is the JSON body for the register account endpoint.
// The token is write-only; no response ever carries it back.
type RegisterAccountRequest struct {
	Game      string `json:"game"`
	AccountID string `json:"account_id"`
	Label     string `json:"label"`
	Token     string `json:"token"`
}

// ReplaceTokenRequest is the JSON body for the replace token endpoint.
type ReplaceTokenRequest struct {
	Token string `json:"token"`
}

// ReplaceTokenResponse reports how the replacement token was classified.
type ReplaceTokenResponse struct {
	TokenKind string `json:"token_kind"`
}

// SetEnabledRequest is the JSON body for the enable/disable endpoint. Enabled
// is a pointer so an absent field is distinguishable from false.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetWebhookRequest is the JSON body for the webhook setting endpoint.
type SetWebhookRequest struct {
	URL string `json:"url"`
}

// AccountResponse is the JSON representation of a registered account.
type AccountResponse struct {
	ID              int64  `json:"id"`
	Game            string `json:"game"`
	AccountID       string `json:"account_id"`
	Label           string `json:"label"`
	TokenKind       string `json:"token_kind"`
	Enabled         bool   `json:"enabled"`
	LastCheckinDate string `json:"last_checkin_date,omitempty"`
	FailureCount    int    `json:"failure_count"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ResultResponse is the JSON representation of a stored check-in result.
type ResultResponse struct {
	ID         int64  `json:"id"`
	AccountID  int64  `json:"account_id"`
	Game       string `json:"game"`
	Label      string `json:"label"`
	Outcome    string `json:"outcome"`
	Reward     string `json:"reward,omitempty"`
	Detail     string `json:"detail,omitempty"`
	SignedDays int    `json:"signed_days"`
	Attempts   int    `json:"attempts"`
	CreatedAt  string `json:"created_at"`
}

// RunReportResponse is the JSON representation of a completed run.
type RunReportResponse struct {
	Game           string           `json:"game"`
	StartedAt      string           `json:"started_at"`
	FinishedAt     string           `json:"finished_at"`
	Succeeded      int              `json:"succeeded"`
	AlreadyClaimed int              `json:"already_claimed"`
	Failed         int              `json:"failed"`
	Results        []ResultResponse `json:"results"`
}

// GameResponse is the JSON representation of a catalog entry. Endpoint URLs
// stay server-side.
type GameResponse struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	RequiredToken string `json:"required_token"`
}

// StatsResponse is the JSON representation of aggregate check-in statistics.
type StatsResponse struct {
	Game           string  `json:"game,omitempty"`
	TotalResults   int     `json:"total_results"`
	Successes      int     `json:"successes"`
	AlreadyClaimed int     `json:"already_claimed"`
	Failures       int     `json:"failures"`
	SuccessRate    float64 `json:"success_rate"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Games  int    `json:"games"`
}

// toAccountResponse converts a domain Account to its JSON representation.
func toAccountResponse(acct model.Account) AccountResponse {
	return AccountResponse{
		ID:              acct.ID,
		Game:            acct.GameName,
		AccountID:       acct.AccountID,
		Label:           acct.Label,
		TokenKind:       string(acct.TokenKind),
		Enabled:         acct.Enabled,
		LastCheckinDate: acct.LastCheckinDate,
		FailureCount:    acct.FailureCount,
		CreatedAt:       acct.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       acct.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toResultResponse converts a domain CheckinResult to its JSON representation.
func toResultResponse(res model.CheckinResult) ResultResponse {
	return ResultResponse{
		ID:         res.ID,
		AccountID:  res.AccountID,
		Game:       res.GameName,
		Label:      res.Label,
		Outcome:    string(res.Outcome),
		Reward:     res.Reward,
		Detail:     res.Detail,
		SignedDays: res.SignedDays,
		Attempts:   res.Attempts,
		CreatedAt:  res.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toRunReportResponse converts a domain RunReport to its JSON representation.
func toRunReportResponse(report model.RunReport) RunReportResponse {
	results := make([]ResultResponse, 0, len(report.Results))
	for _, res := range report.Results {
		results = append(results, toResultResponse(res))
	}

	return RunReportResponse{
		Game:           report.GameName,
		StartedAt:      report.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:     report.FinishedAt.UTC().Format(time.RFC3339),
		Succeeded:      report.Succeeded(),
		AlreadyClaimed: report.AlreadyClaimed(),
		Failed:         report.Failed(),
		Results:        results,
	}
}

// toGameResponse converts a domain Game to its JSON representation.
func toGameResponse(game model.Game) GameResponse {
	return GameResponse{
		Name:          game.Name,
		DisplayName:   game.DisplayName,
		RequiredToken: string(game.RequiredToken),
	}
}

// toStatsResponse converts domain CheckinStats to its JSON representation.
func toStatsResponse(stats model.CheckinStats) StatsResponse {
	return StatsResponse{
		Game:           stats.GameName,
		TotalResults:   stats.TotalResults,
		Successes:      stats.Successes,
		AlreadyClaimed: stats.AlreadyClaimed,
		Failures:       stats.Failures,
		SuccessRate:    stats.SuccessRate(),
	}
}
