package queue

import "time"

const (
	backoffBase = 5 * time.Minute
	backoffCap  = time.Hour
)

// Backoff returns the delay a retried embedding job must wait out before it
// becomes claimable again: 5min * 2^(attempts-1), capped at one hour. Zero
// for attempts <= 0. Must stay in lockstep with the eligibility predicate in
// db.ClaimNextJob.
func Backoff(attempts int32) time.Duration {
	if attempts <= 0 {
		return 0
	}
	// 5min * 2^4 already exceeds the cap.
	if attempts > 4 {
		return backoffCap
	}
	d := backoffBase << (attempts - 1)
	if d > backoffCap {
		return backoffCap
	}
	return d
}
