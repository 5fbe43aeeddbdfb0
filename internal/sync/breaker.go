package sync

// BreakerState is the circuit breaker's current position.
type BreakerState string

const (
	// BreakerClosed allows calls through.
	BreakerClosed BreakerState = "closed"
	// BreakerOpen rejects calls for the rest of the run. The breaker never
	// half-opens: a systemic provider outage inside one sync run is not
	// worth re-probing against the remaining time budget.
	BreakerOpen BreakerState = "open"
)

// Breaker trips open after a threshold of consecutive failures. Not
// goroutine-safe: enhancement batches record results sequentially between
// batch dispatches.
type Breaker struct {
	threshold   int
	consecutive int
	state       BreakerState
}

// NewBreaker creates a closed breaker tripping at threshold consecutive
// failures. threshold <= 0 defaults to 3.
func NewBreaker(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Breaker{threshold: threshold, state: BreakerClosed}
}

// Allow reports whether the next call may proceed.
func (b *Breaker) Allow() bool { return b.state == BreakerClosed }

// State returns the current state.
func (b *Breaker) State() BreakerState { return b.state }

// ConsecutiveFailures returns the current failure streak.
func (b *Breaker) ConsecutiveFailures() int { return b.consecutive }

// RecordSuccess resets the failure streak.
func (b *Breaker) RecordSuccess() {
	b.consecutive = 0
}

// RecordFailure extends the failure streak, opening the breaker at the
// threshold.
func (b *Breaker) RecordFailure() {
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.state = BreakerOpen
	}
}
