package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericfisherdev/rollcall/internal/application"
	"github.com/ericfisherdev/rollcall/internal/config"
	"github.com/ericfisherdev/rollcall/internal/domain/model"
	"github.com/ericfisherdev/rollcall/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API. Runs execute
// synchronously within the request so an external scheduler can treat the
// response as the run's report.
type Handler struct {
	accounts *application.AccountService
	checkin  *application.CheckinService
	settings driven.SettingsStore
	catalog  *config.Catalog
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	accounts *application.AccountService,
	checkin *application.CheckinService,
	settings driven.SettingsStore,
	catalog *config.Catalog,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accounts: accounts,
		checkin:  checkin,
		settings: settings,
		catalog:  catalog,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/runs", h.TriggerRun)
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("POST /api/v1/accounts", h.RegisterAccount)
	mux.HandleFunc("PUT /api/v1/accounts/{id}/token", h.ReplaceToken)
	mux.HandleFunc("PUT /api/v1/accounts/{id}/enabled", h.SetEnabled)
	mux.HandleFunc("GET /api/v1/accounts/{id}/results", h.AccountResults)
	mux.HandleFunc("GET /api/v1/games", h.ListGames)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("PUT /api/v1/settings/webhook", h.SetWebhook)
	mux.HandleFunc("DELETE /api/v1/settings/webhook", h.ClearWebhook)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// TriggerRun executes a check-in run for the requested game and returns its
// report. The game may be omitted when exactly one game is configured.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.resolveGame(req.Game)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.checkin.Run(r.Context(), game)
	if err != nil {
		h.logger.Error("run failed", "game", game.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}

	writeJSON(w, http.StatusOK, toRunReportResponse(*report))
}

// ListAccounts returns registered accounts, optionally filtered by game and
// enabled state.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	gameName := r.URL.Query().Get("game")
	enabledOnly := r.URL.Query().Get("enabled") == "true"

	accounts, err := h.accounts.List(r.Context(), gameName, enabledOnly)
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, acct := range accounts {
		resp = append(resp, toAccountResponse(acct))
	}

	writeJSON(w, http.StatusOK, resp)
}

// RegisterAccount stores a credential for an account, replacing any existing
// one. The token is accepted in the body only and never echoed back.
func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Game) == "" || strings.TrimSpace(req.AccountID) == "" ||
		strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "game, account_id and token are required")
		return
	}
	if _, ok := h.catalog.Get(req.Game); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown game %q", req.Game))
		return
	}

	acct, err := h.accounts.Register(r.Context(), req.Game, req.AccountID, req.Label, req.Token)
	if err != nil {
		h.writeStoreError(w, "register account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

// ReplaceToken swaps the stored token for an account and reports the new
// token's classification.
func (h *Handler) ReplaceToken(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	var req ReplaceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	kind, err := h.accounts.ReplaceToken(r.Context(), id, req.Token)
	if err != nil {
		h.writeStoreError(w, "replace token", err)
		return
	}

	writeJSON(w, http.StatusOK, ReplaceTokenResponse{TokenKind: string(kind)})
}

// SetEnabled toggles whether runs include the account.
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "body must set enabled to true or false")
		return
	}

	if err := h.accounts.SetEnabled(r.Context(), id, *req.Enabled); err != nil {
		h.writeStoreError(w, "set enabled", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AccountResults returns an account's most recent results, newest first.
func (h *Handler) AccountResults(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDFromPath(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results, err := h.accounts.History(r.Context(), id, limit)
	if err != nil {
		h.writeStoreError(w, "list results", err)
		return
	}

	resp := make([]ResultResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, toResultResponse(res))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListGames returns the configured game catalog.
func (h *Handler) ListGames(w http.ResponseWriter, _ *http.Request) {
	games := h.catalog.All()

	resp := make([]GameResponse, 0, len(games))
	for _, game := range games {
		resp = append(resp, toGameResponse(game))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats returns aggregate check-in statistics, optionally filtered by game.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.Stats(r.Context(), r.URL.Query().Get("game"))
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// SetWebhook stores the run report delivery URL.
func (h *Handler) SetWebhook(w http.ResponseWriter, r *http.Request) {
	var req SetWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	if err := h.settings.Set(r.Context(), driven.SettingWebhookURL, req.URL); err != nil {
		h.logger.Error("failed to store webhook url", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearWebhook removes the stored delivery URL, silencing run reports.
func (h *Handler) ClearWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Delete(r.Context(), driven.SettingWebhookURL); err != nil {
		h.logger.Error("failed to clear webhook url", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Games:  len(h.catalog.All()),
	})
}

// resolveGame maps a request's game name to its catalog entry, defaulting to
// the sole configured game when the name is empty.
func (h *Handler) resolveGame(name string) (model.Game, error) {
	if name != "" {
		game, ok := h.catalog.Get(name)
		if !ok {
			return model.Game{}, fmt.Errorf("unknown game %q", name)
		}
		return game, nil
	}

	game, ok := h.catalog.Sole()
	if !ok {
		return model.Game{}, errors.New("multiple games configured; the request must name one")
	}
	return game, nil
}

// writeStoreError maps store sentinels to response codes.
func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, driven.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, driven.ErrUnknownGame):
		writeError(w, http.StatusBadRequest, "unknown game")
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "encryption key not configured")
	default:
		h.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// accountIDFromPath parses the {id} path segment, writing a 400 on failure.
func accountIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return 0, false
	}
	return id, true
}
