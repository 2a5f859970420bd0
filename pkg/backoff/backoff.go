package backoff

import (
	"math"
	"time"

	"github.com/Lxr713/AO3-Crawler/pkg/failure"
)

// Policy computes retry delays per failure kind. Attempt numbers are 1-based;
// every curve is clamped to Max.
//
// Rate-limit responses mean the server is actively shedding load, so they get
// the steepest curve (base * 3^(attempt-1)). TLS handshake failures tend to
// come from transient connection churn and get an extra linear term on top of
// the standard doubling. Everything else retries on plain exponential backoff.
type Policy struct {
	Base time.Duration
	Max  time.Duration
}

// NewPolicy returns a Policy with the given base and ceiling, substituting
// safe defaults for non-positive values.
func NewPolicy(base, max time.Duration) Policy {
	if base <= 0 {
		base = 1 * time.Second
	}
	if max <= 0 {
		max = 60 * time.Second
	}
	return Policy{Base: base, Max: max}
}

// Delay returns the wait before retry number attempt for the given kind.
// attempt < 1 is treated as 1. Non-retryable kinds never consult the policy;
// for completeness they fall on the standard curve.
func (p Policy) Delay(kind failure.Kind, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d float64
	switch kind {
	case failure.KindRateLimited:
		d = float64(p.Base) * math.Pow(3, float64(attempt-1))
	case failure.KindTLSHandshake:
		d = float64(p.Base)*math.Pow(2, float64(attempt-1)) + float64(attempt)*float64(2*time.Second)
	default:
		d = float64(p.Base) * math.Pow(2, float64(attempt-1))
	}

	// math.Pow overflows float64 long before time.Duration wraps, so clamp on
	// the float value.
	if d > float64(p.Max) || d < 0 {
		return p.Max
	}
	return time.Duration(d)
}
