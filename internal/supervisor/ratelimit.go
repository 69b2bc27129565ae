package supervisor

import (
	"time"

	"golang.org/x/time/rate"
)

// tokenBucket pairs a request-per-minute limiter with a token-per-minute
// limiter, both backed by golang.org/x/time/rate. A dispatch must clear
// both; the combined wait is the larger of the two reservation delays, and
// denied reservations are cancelled so probing never consumes capacity.
type tokenBucket struct {
	rpm *rate.Limiter // nil when unlimited
	tpm *rate.Limiter

	tpmPerMinute int
}

func newTokenBucket(rpm, tpm int) *tokenBucket {
	b := &tokenBucket{tpmPerMinute: tpm}
	if rpm > 0 {
		b.rpm = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
	}
	if tpm > 0 {
		b.tpm = rate.NewLimiter(rate.Limit(float64(tpm)/60.0), tpm)
	}
	return b
}

// Allow reports whether a request estimated to cost estimatedTokens may
// proceed right now, consuming capacity when it may. If not, it returns
// the minimum wait until it would, so the caller can defer the turn with
// an explicit wait.
func (b *tokenBucket) Allow(estimatedTokens int64, now time.Time) (ok bool, wait time.Duration) {
	return b.reserve(estimatedTokens, now, true)
}

// Peek is the non-consuming variant of Allow: the reservations it takes
// are always cancelled, so agents that end up not selected this round keep
// their capacity.
func (b *tokenBucket) Peek(estimatedTokens int64, now time.Time) (ok bool, wait time.Duration) {
	return b.reserve(estimatedTokens, now, false)
}

func (b *tokenBucket) reserve(estimatedTokens int64, now time.Time, consume bool) (ok bool, wait time.Duration) {
	if b.rpm == nil && b.tpm == nil {
		return true, 0
	}

	var reservations []*rate.Reservation
	if b.rpm != nil {
		r := b.rpm.ReserveN(now, 1)
		reservations = append(reservations, r)
		if d := r.DelayFrom(now); d > wait {
			wait = d
		}
	}
	if b.tpm != nil {
		n := int(estimatedTokens)
		if n > b.tpm.Burst() {
			// Larger than the bucket can ever hold: deny with a wait
			// proportional to the request, so the caller still gets an
			// explicit deferral instead of an infinite one.
			for _, r := range reservations {
				r.CancelAt(now)
			}
			return false, time.Duration(float64(n) / float64(b.tpmPerMinute) * float64(time.Minute))
		}
		r := b.tpm.ReserveN(now, n)
		reservations = append(reservations, r)
		if d := r.DelayFrom(now); d > wait {
			wait = d
		}
	}

	if wait > 0 || !consume {
		for _, r := range reservations {
			r.CancelAt(now)
		}
		return wait == 0, wait
	}
	return true, 0
}
