package publish

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
)

const (
	// RedirectLocation is where a successful publish sends the browser.
	RedirectLocation = "/admin/newsletters"
	// FlashCookie carries the one-time confirmation message.
	FlashCookie      = "_flash"
	PublishedMessage = "The newsletter issue has been published!"
)

// Result is the JSON body of the cached success response.
type Result struct {
	IssueID    string `json:"issueId"`
	Recipients int    `json:"recipients"`
	Message    string `json:"message"`
}

func publishedResponse(issueID string, recipients int) (idempotency.CachedResponse, error) {
	body, err := json.Marshal(Result{IssueID: issueID, Recipients: recipients, Message: PublishedMessage})
	if err != nil {
		return idempotency.CachedResponse{}, fmt.Errorf("failed to encode publish result: %w", err)
	}

	flash := &http.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(PublishedMessage),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return idempotency.CachedResponse{
		StatusCode: http.StatusSeeOther,
		Headers: []idempotency.Header{
			{Name: "Location", Value: []byte(RedirectLocation)},
			{Name: "Set-Cookie", Value: []byte(flash.String())},
			{Name: "Content-Type", Value: []byte("application/json")},
		},
		Body: body,
	}, nil
}
