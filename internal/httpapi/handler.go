// Package httpapi exposes the publish command and issue status over HTTP.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/internal/publish"
	"github.com/Sokol111/newsletter-publisher/pkg/core/logger"
	"github.com/Sokol111/newsletter-publisher/pkg/http/problems"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/Sokol111/newsletter-publisher/pkg/security/token"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	PermissionPublish = "newsletters:publish"
	PermissionRead    = "newsletters:read"
)

const (
	msgLogIn      = "Please log in."
	msgForbidden  = "You are not allowed to publish newsletters."
	msgInProgress = "This request is still being processed, retry shortly."
	msgInternal   = "Something went wrong"
)

// retryAfterSeconds is sent with 409 while a duplicate is still in flight.
const retryAfterSeconds = "1"

type handler struct {
	processor publish.Processor
	issues    issue.Reader
	pending   outbox.Repository
	validator token.Validator
}

func newHandler(p publish.Processor, issues issue.Reader, pending outbox.Repository, v token.Validator) *handler {
	return &handler{processor: p, issues: issues, pending: pending, validator: v}
}

func (h *handler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx, claims, err := token.Authenticate(r.Context(), h.validator, r, PermissionPublish)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	cmd, err := decodeCommand(w, r)
	if err != nil {
		problems.Write(w, r, problems.BadRequest(err.Error()))
		return
	}
	cmd.CallerID = claims.Subject

	resp, err := h.processor.Publish(ctx, cmd)
	var verr *publish.ValidationError
	switch {
	case err == nil:
		writeCached(w, resp)
	case errors.As(err, &verr):
		p := problems.BadRequest(verr.Error())
		p.Errors = lo.Map(verr.Fields, func(f publish.FieldError, _ int) problems.FieldError {
			return problems.FieldError{Field: f.Field, Message: f.Message}
		})
		problems.Write(w, r, p)
	case errors.Is(err, idempotency.ErrInProgress):
		w.Header().Set("Retry-After", retryAfterSeconds)
		problems.Write(w, r, problems.Conflict(msgInProgress))
	default:
		logger.Get(ctx).Error("failed to publish newsletter issue",
			zap.String("caller_id", cmd.CallerID), zap.Error(err))
		problems.Write(w, r, problems.Internal(msgInternal))
	}
}

type issueStatus struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Text              string    `json:"text"`
	HTML              string    `json:"html"`
	PublishedAt       time.Time `json:"publishedAt"`
	PendingDeliveries int64     `json:"pendingDeliveries"`
}

// GetIssue reports an issue of the caller and how many deliveries are still queued.
func (h *handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	ctx, claims, err := token.Authenticate(r.Context(), h.validator, r, PermissionRead, PermissionPublish)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	id := r.PathValue("issueId")
	iss, err := h.issues.Get(ctx, id)
	switch {
	case errors.Is(err, persistence.ErrEntityNotFound):
		problems.Write(w, r, problems.NotFound("issue not found"))
		return
	case err != nil:
		logger.Get(ctx).Error("failed to load issue", zap.String("issue_id", id), zap.Error(err))
		problems.Write(w, r, problems.Internal(msgInternal))
		return
	}
	// Issues of other callers are reported as missing.
	if iss.CallerID != claims.Subject {
		problems.Write(w, r, problems.NotFound("issue not found"))
		return
	}

	pending, err := h.pending.CountPending(ctx, id)
	if err != nil {
		logger.Get(ctx).Error("failed to count pending deliveries", zap.String("issue_id", id), zap.Error(err))
		problems.Write(w, r, problems.Internal(msgInternal))
		return
	}

	writeJSON(w, http.StatusOK, issueStatus{
		ID:                iss.ID,
		Title:             iss.Title,
		Text:              iss.TextContent,
		HTML:              iss.HTMLContent,
		PublishedAt:       iss.PublishedAt,
		PendingDeliveries: pending,
	})
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, token.ErrInsufficientPermissions) {
		problems.Write(w, r, problems.Forbidden(msgForbidden))
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="newsletter"`)
	problems.Write(w, r, problems.Unauthorized(msgLogIn))
}
