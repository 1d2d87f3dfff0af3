package publish

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
	"github.com/google/uuid"
)

// memDB is the shared state of the fakes. fakeTx snapshots it at the start
// of a transaction and restores the snapshot when fn fails.
type memDB struct {
	mu      sync.Mutex
	records map[string]memRecord
	issues  map[string]issue.Issue
	tasks   map[string]outbox.Task
}

type memRecord struct {
	token    string
	released bool
	response *idempotency.CachedResponse
}

type snapshot struct {
	records map[string]memRecord
	issues  map[string]issue.Issue
	tasks   map[string]outbox.Task
}

func newMemDB() *memDB {
	return &memDB{
		records: map[string]memRecord{},
		issues:  map[string]issue.Issue{},
		tasks:   map[string]outbox.Task{},
	}
}

func (db *memDB) snapshot() snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return snapshot{records: maps.Clone(db.records), issues: maps.Clone(db.issues), tasks: maps.Clone(db.tasks)}
}

func (db *memDB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.records, db.issues, db.tasks = s.records, s.issues, s.tasks
}

func (db *memDB) issueCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.issues)
}

func (db *memDB) taskRecipients(issueID string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []string
	for _, t := range db.tasks {
		if t.IssueID == issueID {
			out = append(out, t.RecipientEmail)
		}
	}
	return out
}

// fakeTx serializes transactions and rolls back on error.
type fakeTx struct {
	db      *memDB
	mu      sync.Mutex
	commits int
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	before := f.db.snapshot()
	out, err := fn(ctx)
	if err != nil {
		f.db.restore(before)
		return nil, err
	}
	f.commits++
	return out, nil
}

type fakeStore struct {
	db          *memDB
	waitTimeout time.Duration
	claims      int
}

func storeKey(callerID string, key idempotency.Key) string {
	return callerID + "/" + key.String()
}

func (s *fakeStore) ClaimOrFetch(ctx context.Context, callerID string, key idempotency.Key) (idempotency.ClaimResult, error) {
	deadline := time.Now().Add(s.waitTimeout)
	for {
		s.db.mu.Lock()
		s.claims++
		id := storeKey(callerID, key)
		rec, ok := s.db.records[id]
		switch {
		case !ok || (rec.response == nil && rec.released):
			token := uuid.NewString()
			s.db.records[id] = memRecord{token: token}
			s.db.mu.Unlock()
			return idempotency.ClaimResult{Claim: &idempotency.Claim{CallerID: callerID, Key: key, Token: token}}, nil
		case rec.response != nil:
			resp := *rec.response
			s.db.mu.Unlock()
			return idempotency.ClaimResult{Cached: &resp}, nil
		}
		s.db.mu.Unlock()

		if time.Now().After(deadline) {
			return idempotency.ClaimResult{}, idempotency.ErrInProgress
		}
		select {
		case <-ctx.Done():
			return idempotency.ClaimResult{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (s *fakeStore) held(claim idempotency.Claim) (memRecord, bool) {
	rec, ok := s.db.records[storeKey(claim.CallerID, claim.Key)]
	return rec, ok && rec.token == claim.Token && rec.response == nil
}

func (s *fakeStore) Complete(_ context.Context, claim idempotency.Claim, resp idempotency.CachedResponse) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rec, ok := s.held(claim)
	if !ok {
		return idempotency.ErrClaimLost
	}
	rec.response = &resp
	s.db.records[storeKey(claim.CallerID, claim.Key)] = rec
	return nil
}

func (s *fakeStore) Release(_ context.Context, claim idempotency.Claim) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rec, ok := s.held(claim)
	if !ok {
		return idempotency.ErrClaimLost
	}
	rec.released = true
	s.db.records[storeKey(claim.CallerID, claim.Key)] = rec
	return nil
}

func (s *fakeStore) Get(context.Context, string, idempotency.Key) (*idempotency.Record, error) {
	return nil, persistence.ErrEntityNotFound
}

type fakeIssues struct {
	db *memDB
}

func (f *fakeIssues) Insert(_ context.Context, iss issue.Issue) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.issues[iss.ID] = iss
	return nil
}

func (f *fakeIssues) Get(_ context.Context, id string) (*issue.Issue, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	iss, ok := f.db.issues[id]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}
	return &iss, nil
}

type fakeOutbox struct {
	db  *memDB
	err error
}

func (f *fakeOutbox) Enqueue(_ context.Context, issueID string, recipients []string) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	// A partial write before the failure must be rolled back by the transaction.
	for i, email := range recipients {
		if f.err != nil && i == len(recipients)-1 {
			return 0, f.err
		}
		id := uuid.NewString()
		f.db.tasks[id] = outbox.Task{ID: id, IssueID: issueID, RecipientEmail: email}
	}
	return len(recipients), f.err
}

func (f *fakeOutbox) CountPending(_ context.Context, issueID string) (int64, error) {
	return int64(len(f.db.taskRecipients(issueID))), nil
}

type staticRecipients struct {
	emails []string
	err    error
}

func (s staticRecipients) ConfirmedRecipients(context.Context) ([]string, error) {
	return s.emails, s.err
}
