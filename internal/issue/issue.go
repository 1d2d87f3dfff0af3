package issue

import (
	"time"

	"github.com/google/uuid"
)

// CollectionName holds published newsletter issues.
const CollectionName = "issues"

// Issue is a published newsletter. It never changes after insertion.
type Issue struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	TextContent    string    `bson:"textContent"`
	HTMLContent    string    `bson:"htmlContent"`
	PublishedAt    time.Time `bson:"publishedAt"`
	CallerID       string    `bson:"callerId"`
	IdempotencyKey string    `bson:"idempotencyKey"`
}

// New assigns a fresh id to an issue published at now.
func New(title, text, html, callerID, key string, now time.Time) Issue {
	return Issue{
		ID:             uuid.NewString(),
		Title:          title,
		TextContent:    text,
		HTMLContent:    html,
		PublishedAt:    now.UTC(),
		CallerID:       callerID,
		IdempotencyKey: key,
	}
}
