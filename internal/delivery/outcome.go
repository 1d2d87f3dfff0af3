package delivery

// Outcome of one worker iteration.
type Outcome int

const (
	// OutcomeEmpty: nothing was claimable.
	OutcomeEmpty Outcome = iota
	// OutcomeDelivered: sent and retired.
	OutcomeDelivered
	// OutcomeAbandoned: the send failed for the last time, or the issue is gone; the task was retired.
	OutcomeAbandoned
	// OutcomeRescheduled: the send failed and the task will be retried later.
	OutcomeRescheduled
	// OutcomeDeferred: no send was attempted; the task was released as is.
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeRescheduled:
		return "rescheduled"
	case OutcomeDeferred:
		return "deferred"
	}
	return "unknown"
}
