package runner

import "time"

// BackoffPolicy is the single retry delay policy shared by every
// transient-failure site in the loop.
type BackoffPolicy struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

// DefaultBackoff is the policy used by production runners.
var DefaultBackoff = BackoffPolicy{
	Base:   5 * time.Second,
	Factor: 2,
	Max:    60 * time.Second,
}

// Delay returns the sleep before retry attempt n (1-based). Attempt
// values below 1 are treated as 1.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.Base)
	for i := 1; i < attempt; i++ {
		d *= p.Factor
		if time.Duration(d) >= p.Max {
			return p.Max
		}
	}
	if time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}
