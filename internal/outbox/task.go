package outbox

import "time"

// CollectionName holds one pending delivery per (issue, recipient), enforced
// by the ux_outbox_issue_recipient unique index.
const CollectionName = "newsletter_outbox"

// Task is a pending delivery of an issue to one recipient. A task is
// claimable while LockExpiresAt is not in the future.
type Task struct {
	ID             string    `bson:"_id"`
	IssueID        string    `bson:"issueId"`
	RecipientEmail string    `bson:"recipientEmail"`
	CreatedAt      time.Time `bson:"createdAt"`
	LockExpiresAt  time.Time `bson:"lockExpiresAt"`
	LockedBy       string    `bson:"lockedBy,omitempty"`
	// Attempts counts the claims that went on to a send attempt.
	Attempts  int    `bson:"attempts"`
	LastError string `bson:"lastError,omitempty"`
}
