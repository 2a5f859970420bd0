package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Lxr713/AO3-Crawler/pkg/backoff"
	"github.com/Lxr713/AO3-Crawler/pkg/config"
	"github.com/Lxr713/AO3-Crawler/pkg/failure"
	"github.com/Lxr713/AO3-Crawler/pkg/metrics"
	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

// maxBodyBytes caps a single response body read. Full-work pages are large
// but bounded; anything bigger is not a page we want.
const maxBodyBytes = 32 << 20

// HTTPFetcher abstracts the retrying fetch for components that consume its
// results, so processors can be tested against a stub.
type HTTPFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error)
}

// Fetcher performs one bounded-concurrency HTTP GET with retries. The
// concurrency permit is held only across the network call and body read,
// never across a backoff sleep, so a stalled retry does not starve other
// units. The Fetcher never touches the checkpoint; persistence of its
// outcome is the orchestrator's job.
type Fetcher struct {
	client     *http.Client
	sem        *semaphore.Weighted
	policy     backoff.Policy
	maxRetries int
	userAgent  string
	log        *logrus.Entry
}

// NewFetcher creates a Fetcher sharing the given concurrency limiter.
func NewFetcher(client *http.Client, sem *semaphore.Weighted, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:     client,
		sem:        sem,
		policy:     backoff.NewPolicy(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		log:        log,
	}
}

// FetchWithRetry GETs rawURL, retrying classified transient failures with
// failure-specific backoff, up to the configured attempt budget.
//
// Returns the body on HTTP 200; utils.ErrNonRetryable immediately on a
// non-retryable status; utils.ErrRetriesExhausted (wrapping the exhausting
// failure kind) when the budget runs out; or the context error if cancelled,
// which the caller must treat as interruption, not failure.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	reqLog := f.log.WithField("url", rawURL)

	var lastKind failure.Kind
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		// Cancellation is checked at every loop boundary so a shutdown takes
		// effect at the next natural suspension point.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, kind, err := f.attempt(ctx, rawURL, attempt, reqLog)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !kind.Retryable() {
			metrics.FetchFailures.WithLabelValues(kind.String()).Inc()
			return nil, err
		}

		metrics.FetchFailures.WithLabelValues(kind.String()).Inc()
		lastKind = kind

		if attempt == f.maxRetries {
			break
		}

		delay := f.policy.Delay(kind, attempt)
		reqLog.WithFields(logrus.Fields{
			"attempt": attempt, "max_retries": f.maxRetries, "kind": kind, "delay": delay,
		}).Warn("Retrying after backoff")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	reqLog.WithField("kind", lastKind).Errorf("All %d attempts failed, giving up", f.maxRetries)
	return nil, fmt.Errorf("%w: %s", utils.ErrRetriesExhausted, lastKind)
}

// attempt performs one permit-bounded GET. On failure it returns the
// classified kind alongside the error; a nil error means a 200 with the body
// fully read.
func (f *Fetcher) attempt(ctx context.Context, rawURL string, attempt int, reqLog *logrus.Entry) ([]byte, failure.Kind, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, failure.KindTransport, err
	}
	defer f.sem.Release(1)

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()
	metrics.FetchAttempts.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, failure.KindClientError, fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	reqLog.WithField("attempt", attempt).Debug("Fetching")
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, failure.KindTransport, ctx.Err()
		}
		kind := failure.ClassifyErr(err)
		reqLog.WithFields(logrus.Fields{"attempt": attempt, "kind": kind}).Warnf("Transport error: %v", err)
		return nil, kind, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, failure.KindTransport, ctx.Err()
			}
			kind := failure.ClassifyErr(readErr)
			return nil, kind, fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, readErr)
		}
		return body, "", nil
	}

	kind := failure.ClassifyStatus(resp.StatusCode)
	if !kind.Retryable() {
		reqLog.WithFields(logrus.Fields{"status": resp.StatusCode}).Warn("Non-retryable status")
		return nil, kind, fmt.Errorf("%w: status %d", utils.ErrNonRetryable, resp.StatusCode)
	}
	reqLog.WithFields(logrus.Fields{"status": resp.StatusCode, "kind": kind, "attempt": attempt}).Warn("Retryable status")
	return nil, kind, fmt.Errorf("status %d (%s)", resp.StatusCode, kind)
}
