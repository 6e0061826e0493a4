// Package skport implements the AttendanceClient port against the SKPort
// web API and its v2 signed-request scheme.
package skport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AttendanceClient = (*Client)(nil)

// Client implements the driven.AttendanceClient port. It holds no per-account
// state; session material lives in the model.GameSession the caller threads
// through each call.
type Client struct {
	http *http.Client
	now  func() time.Time
}

// NewClient creates a client for production use. The transport timeout is a
// safety net alongside context cancellation.
func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and
// clock. This constructor is intended for testing, allowing injection of an
// httptest server and a fixed timestamp.
func NewClientWithHTTPClient(httpClient *http.Client, now func() time.Time) *Client {
	return &Client{http: httpClient, now: now}
}

// Authenticate exchanges a session token for remote session state through the
// grant, cred and sign-token chain. The player binding lookup is best-effort;
// when it fails the check-in calls simply omit the role header.
func (c *Client) Authenticate(ctx context.Context, game model.Game, sessionToken string) (model.GameSession, error) {
	grantCode, err := c.grantCode(ctx, game, sessionToken)
	if err != nil {
		return model.GameSession{}, err
	}

	cred, err := c.generateCred(ctx, game, grantCode)
	if err != nil {
		return model.GameSession{}, err
	}

	signToken, err := c.refreshSignToken(ctx, game, cred)
	if err != nil {
		return model.GameSession{}, err
	}

	session := model.GameSession{Cred: cred, SignToken: signToken}

	role, err := c.playerRole(ctx, game, session)
	if err != nil {
		slog.Warn("player binding lookup failed, proceeding without a role header",
			"game", game.Name, "error", err)
	} else {
		session.GameRole = role
	}

	return session, nil
}

// CheckStatus fetches today's attendance state and the number of days already
// claimed this period.
func (c *Client) CheckStatus(ctx context.Context, game model.Game, session model.GameSession) (model.AttendanceStatus, error) {
	var parsed statusResponse
	if err := c.signedRequest(ctx, http.MethodGet, game.BaseURL+game.StatusPath, session, &parsed); err != nil {
		return model.AttendanceStatus{}, fmt.Errorf("attendance status: %w", err)
	}

	if parsed.Code == codeTokenExpired {
		return model.AttendanceStatus{}, fmt.Errorf("attendance status rejected (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrAuthRejected)
	}
	if parsed.Code != codeOK {
		return model.AttendanceStatus{}, fmt.Errorf("attendance status failed (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrRemoteAPI)
	}

	signed := 0
	for _, day := range parsed.Data.Calendar {
		if day.Done {
			signed++
		}
	}

	state := model.AttendanceNotClaimed
	if parsed.Data.HasToday {
		state = model.AttendanceAlreadyClaimed
	}

	return model.AttendanceStatus{State: state, SignedDays: signed}, nil
}

// Claim posts today's attendance claim. A claim that raced an earlier run is
// reported as already claimed, not as an error.
func (c *Client) Claim(ctx context.Context, game model.Game, session model.GameSession) (model.ClaimResult, error) {
	var parsed claimResponse
	if err := c.signedRequest(ctx, http.MethodPost, game.BaseURL+game.ClaimPath, session, &parsed); err != nil {
		return model.ClaimResult{}, fmt.Errorf("attendance claim: %w", err)
	}

	switch {
	case parsed.Code == codeOK:
		return model.ClaimResult{
			State:  model.ClaimClaimed,
			Reward: rewardText(parsed.Data.AwardIDs, parsed.Data.ResourceInfoMap),
		}, nil
	case isAlreadyClaimed(parsed.Code, parsed.Message):
		return model.ClaimResult{State: model.ClaimAlreadyClaimed}, nil
	case parsed.Code == codeTokenExpired:
		return model.ClaimResult{}, fmt.Errorf("attendance claim rejected (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrAuthRejected)
	default:
		return model.ClaimResult{}, fmt.Errorf("attendance claim failed (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrRemoteAPI)
	}
}

// grantCode exchanges the session token for a one-shot OAuth grant code.
func (c *Client) grantCode(ctx context.Context, game model.Game, sessionToken string) (string, error) {
	payload := map[string]any{
		"token":   sessionToken,
		"appCode": game.AppCode,
		"type":    0,
	}

	var parsed grantResponse
	if err := c.postJSON(ctx, game.OAuthURL+"/user/oauth2/v2/grant", nil, payload, &parsed); err != nil {
		return "", fmt.Errorf("oauth grant: %w", err)
	}

	if parsed.Status != codeOK || parsed.Data.Code == "" {
		return "", fmt.Errorf("oauth grant rejected (%d %s): %w",
			parsed.Status, parsed.Msg, driven.ErrAuthRejected)
	}
	return parsed.Data.Code, nil
}

// generateCred exchanges the grant code for a cred.
func (c *Client) generateCred(ctx context.Context, game model.Game, grantCode string) (string, error) {
	payload := map[string]any{
		"kind": 1,
		"code": grantCode,
	}
	extra := http.Header{}
	extra.Set("platform", headerPlatform)

	var parsed credResponse
	if err := c.postJSON(ctx, game.BaseURL+"/user/auth/generate_cred_by_code", extra, payload, &parsed); err != nil {
		return "", fmt.Errorf("generate cred: %w", err)
	}

	if parsed.Code != codeOK || parsed.Data.Cred == "" {
		return "", fmt.Errorf("generate cred rejected (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrAuthRejected)
	}
	return parsed.Data.Cred, nil
}

// refreshSignToken fetches the HMAC key used to sign check-in calls. The
// refresh endpoint itself takes only the session headers, not a signature.
func (c *Client) refreshSignToken(ctx context.Context, game model.Game, cred string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, game.BaseURL+"/auth/refresh", nil)
	if err != nil {
		return "", fmt.Errorf("creating refresh request: %w", err)
	}
	setSessionHeaders(req, cred, c.timestamp())

	var parsed refreshResponse
	if err := c.do(req, &parsed); err != nil {
		return "", fmt.Errorf("refresh sign token: %w", err)
	}

	if parsed.Code != codeOK || parsed.Data.Token == "" {
		return "", fmt.Errorf("refresh sign token rejected (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrAuthRejected)
	}
	return parsed.Data.Token, nil
}

// playerRole resolves the account's game role from its bindings, formatted as
// "{gameID}_{roleID}_{serverID}".
func (c *Client) playerRole(ctx context.Context, game model.Game, session model.GameSession) (string, error) {
	var parsed bindingResponse
	if err := c.signedRequest(ctx, http.MethodGet, game.APIBaseURL+"/game/player/binding", session, &parsed); err != nil {
		return "", fmt.Errorf("player binding: %w", err)
	}

	if parsed.Code != codeOK {
		return "", fmt.Errorf("player binding rejected (%d %s): %w",
			parsed.Code, parsed.Message, driven.ErrRemoteAPI)
	}

	for _, app := range parsed.Data.List {
		if app.AppCode != game.Name {
			continue
		}
		for _, binding := range app.BindingList {
			role := binding.DefaultRole
			if role == nil && len(binding.Roles) > 0 {
				role = &binding.Roles[0]
			}
			if role != nil && role.RoleID != "" {
				return fmt.Sprintf("%s_%s_%s", game.GameID, role.RoleID, role.ServerID), nil
			}
		}
	}
	return "", fmt.Errorf("account has no %s binding", game.Name)
}

// signedRequest issues a request under the v2 signing scheme and decodes the
// JSON response into out. Neither verb carries a body; the signature covers
// an empty body string.
func (c *Client) signedRequest(ctx context.Context, method, rawURL string, session model.GameSession, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	ts := c.timestamp()
	setSessionHeaders(req, session.Cred, ts)
	req.Header.Set("sign", Sign(session.SignToken, req.URL.EscapedPath(), "", ts))
	if session.GameRole != "" {
		req.Header.Set("sk-game-role", session.GameRole)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

// postJSON posts a JSON payload without signing, for the auth-chain steps
// that run before a sign token exists.
func (c *Client) postJSON(ctx context.Context, rawURL string, extra http.Header, payload, out any) error {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vals := range extra {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	return c.do(req, out)
}

// do executes the request and decodes the JSON body into out, mapping
// HTTP-level rejections and transport failures to the port's sentinels.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("HTTP %d: %w", resp.StatusCode, driven.ErrAuthRejected)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("HTTP %d: %w", resp.StatusCode, driven.ErrRemoteAPI)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", driven.ErrNetwork, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", driven.ErrRemoteAPI, err)
	}
	return nil
}

func (c *Client) timestamp() string {
	return strconv.FormatInt(c.now().Unix(), 10)
}

func setSessionHeaders(req *http.Request, cred, timestamp string) {
	req.Header.Set("cred", cred)
	req.Header.Set("platform", headerPlatform)
	req.Header.Set("vname", headerVName)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("sk-language", "en")
}
