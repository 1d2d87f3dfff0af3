package idempotency

import "time"

// Status of an idempotency record.
type Status string

const (
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
)

// Header is one response header line. Order and duplicates are preserved.
type Header struct {
	Name  string `bson:"name"`
	Value []byte `bson:"value"`
}

// CachedResponse is the response produced by the first successful execution
// of a command, replayed verbatim for every later request with the same key.
type CachedResponse struct {
	StatusCode int      `bson:"statusCode"`
	Headers    []Header `bson:"headers"`
	Body       []byte   `bson:"body"`
}

// HeaderValues returns the values of every header named name, in order.
func (r CachedResponse) HeaderValues(name string) []string {
	var values []string
	for _, h := range r.Headers {
		if h.Name == name {
			values = append(values, string(h.Value))
		}
	}
	return values
}

// Record is the stored state of one (caller, key) pair.
type Record struct {
	CallerID    string          `bson:"callerId"`
	Key         string          `bson:"key"`
	Status      Status          `bson:"status"`
	ClaimToken  string          `bson:"claimToken,omitempty"`
	ClaimedAt   time.Time       `bson:"claimedAt"`
	CreatedAt   time.Time       `bson:"createdAt"`
	CompletedAt *time.Time      `bson:"completedAt,omitempty"`
	Response    *CachedResponse `bson:"response,omitempty"`
}

// Claim is proof of ownership of a key until Complete or Release.
type Claim struct {
	CallerID  string
	Key       Key
	Token     string
	ClaimedAt time.Time
}

// ClaimResult is either a fresh claim or the response of an earlier
// completed execution. Exactly one of the fields is set.
type ClaimResult struct {
	Claim  *Claim
	Cached *CachedResponse
}

// Started reports whether the caller owns the key and must execute the command.
func (r ClaimResult) Started() bool {
	return r.Claim != nil
}

func started(c Claim) ClaimResult {
	return ClaimResult{Claim: &c}
}

func alreadyCompleted(resp CachedResponse) ClaimResult {
	return ClaimResult{Cached: &resp}
}
