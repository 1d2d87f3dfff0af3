package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/email"
	"github.com/Sokol111/newsletter-publisher/internal/issue"
	"github.com/Sokol111/newsletter-publisher/internal/outbox"
	"github.com/Sokol111/newsletter-publisher/pkg/persistence"
)

// fakeClock only moves when Advance is called; Sleep records the duration.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	// onSleep runs after each recorded sleep, outside the lock.
	onSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	// Yield so that a cancelled loop is observed instead of spinning.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Millisecond):
		return nil
	}
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeQueue is an in-memory TaskQueue with the same lease rules as the Mongo store.
type fakeQueue struct {
	mu        sync.Mutex
	clock     *fakeClock
	tasks     map[string]*outbox.Task
	seq       int
	claimErr  error
	claimedBy []string
}

func newFakeQueue(clock *fakeClock) *fakeQueue {
	return &fakeQueue{clock: clock, tasks: make(map[string]*outbox.Task)}
}

func (q *fakeQueue) add(issueID string, recipients ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	for _, r := range recipients {
		q.seq++
		id := fmt.Sprintf("task-%03d", q.seq)
		q.tasks[id] = &outbox.Task{
			ID:             id,
			IssueID:        issueID,
			RecipientEmail: r,
			CreatedAt:      now.Add(time.Duration(q.seq) * time.Microsecond),
			LockExpiresAt:  now,
		}
	}
}

func (q *fakeQueue) TryClaimOne(_ context.Context, workerID string, lease time.Duration) (*outbox.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	now := q.clock.Now()
	var claimable []*outbox.Task
	for _, t := range q.tasks {
		if !t.LockExpiresAt.After(now) {
			claimable = append(claimable, t)
		}
	}
	if len(claimable) == 0 {
		return nil, outbox.ErrNoTask
	}
	sort.Slice(claimable, func(i, j int) bool {
		if !claimable[i].LockExpiresAt.Equal(claimable[j].LockExpiresAt) {
			return claimable[i].LockExpiresAt.Before(claimable[j].LockExpiresAt)
		}
		return claimable[i].CreatedAt.Before(claimable[j].CreatedAt)
	})
	t := claimable[0]
	t.LockExpiresAt = now.Add(lease)
	t.LockedBy = workerID
	t.Attempts++
	q.claimedBy = append(q.claimedBy, workerID)
	claimed := *t
	return &claimed, nil
}

func (q *fakeQueue) held(task outbox.Task) (*outbox.Task, error) {
	t, ok := q.tasks[task.ID]
	if !ok || t.LockedBy != task.LockedBy || !t.LockExpiresAt.Equal(task.LockExpiresAt) {
		return nil, outbox.ErrLeaseLost
	}
	return t, nil
}

func (q *fakeQueue) Retire(_ context.Context, task outbox.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, err := q.held(task); err != nil {
		return err
	}
	delete(q.tasks, task.ID)
	return nil
}

func (q *fakeQueue) Reschedule(_ context.Context, task outbox.Task, next time.Time, errMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, err := q.held(task)
	if err != nil {
		return err
	}
	t.LockExpiresAt = next
	t.LockedBy = ""
	t.LastError = errMsg
	return nil
}

func (q *fakeQueue) Release(_ context.Context, task outbox.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, err := q.held(task)
	if err != nil {
		return err
	}
	t.LockExpiresAt = q.clock.Now()
	t.LockedBy = ""
	t.Attempts--
	return nil
}

func (q *fakeQueue) claimers() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.claimedBy...)
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *fakeQueue) get(id string) outbox.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return *q.tasks[id]
}

type fakeIssues map[string]*issue.Issue

func (f fakeIssues) Get(_ context.Context, id string) (*issue.Issue, error) {
	if iss, ok := f[id]; ok {
		return iss, nil
	}
	return nil, fmt.Errorf("get issue %s: %w", id, persistence.ErrEntityNotFound)
}

// recordingSender fails for recipients listed in failures and records every call.
type recordingSender struct {
	mu        sync.Mutex
	calls     []email.Message
	failures  map[string]error
	inFlight  map[string]bool
	overlaps  int
	delay     time.Duration
	deadlines []time.Time
}

func newRecordingSender() *recordingSender {
	return &recordingSender{failures: make(map[string]error), inFlight: make(map[string]bool)}
}

func (s *recordingSender) Send(ctx context.Context, msg email.Message) error {
	s.mu.Lock()
	if s.inFlight[msg.To] {
		s.overlaps++
	}
	s.inFlight[msg.To] = true
	s.calls = append(s.calls, msg)
	if d, ok := ctx.Deadline(); ok {
		s.deadlines = append(s.deadlines, d)
	}
	err := s.failures[msg.To]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.inFlight[msg.To] = false
	s.mu.Unlock()
	return err
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.To)
	}
	return out
}

var errMailboxFull = errors.New("550 mailbox full")

type failingIssues struct{ err error }

func (f failingIssues) Get(context.Context, string) (*issue.Issue, error) {
	return nil, f.err
}

// lostLeaseQueue behaves as if another worker re-claimed every task before it was retired.
type lostLeaseQueue struct {
	*fakeQueue
}

func (q lostLeaseQueue) Retire(context.Context, outbox.Task) error {
	return outbox.ErrLeaseLost
}

// slowIssues advances the clock by delay on every read and records the read deadline.
type slowIssues struct {
	fakeIssues
	clock    *fakeClock
	delay    time.Duration
	deadline time.Time
}

func (s *slowIssues) Get(ctx context.Context, id string) (*issue.Issue, error) {
	s.deadline, _ = ctx.Deadline()
	s.clock.Advance(s.delay)
	return s.fakeIssues.Get(ctx, id)
}

type panickingSender struct{}

func (panickingSender) Send(context.Context, email.Message) error {
	panic("smtp client is nil")
}
