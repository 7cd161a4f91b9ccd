package syncd

import "time"

// Reconnect backoff defaults.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 30 * time.Second
)

// Backoff computes exponential reconnect delays: Initial doubled per
// attempt, capped at Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	attempt int
}

// Next returns the delay for the next attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	max := b.Max
	if max <= 0 {
		max = DefaultBackoffMax
	}

	d := initial
	for i := 0; i < b.attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	b.attempt++
	return d
}

// Reset clears the attempt counter after a successful connect.
func (b *Backoff) Reset() {
	b.attempt = 0
}
