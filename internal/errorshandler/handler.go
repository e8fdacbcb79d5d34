// Package errorshandler implements the per-pod failure decision procedure:
// a single, non-decreasing counter of failures observed across the whole
// pod's lifetime, compared against a configured retry budget to decide
// whether a given failure should be retried, skipped, or escalated to a
// fatal pod failure.
package errorshandler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// Config mirrors the pipeline descriptor's errorHandlerConfiguration block.
type Config struct {
	OnFailure  domain.OnFailureAction
	Retries    int
}

// Handler tracks one global failure counter for the pod and turns it, plus
// the configured retry budget and on-failure action, into an Outcome. The
// counter is guarded by a mutex; the main loop is single-threaded, so the
// order failures are recorded in is the order the loop observes them.
type Handler struct {
	mu       sync.Mutex
	cfg      Config
	failures int
}

// New validates cfg and returns a Handler. Retries below zero or an
// unrecognized OnFailure action are configuration errors.
func New(cfg Config) (*Handler, error) {
	if !cfg.OnFailure.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownOnFailureAction, cfg.OnFailure)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("errorHandlerConfiguration.retries must be >= 0, got %d", cfg.Retries)
	}
	return &Handler{cfg: cfg}, nil
}

// HandleError records one more failure against the pod-wide odometer and
// decides its outcome. The counter never resets and never decreases: it is
// not a per-record retry count, it is a running total across every failure
// the pod has ever seen, by design (spec.md Design Note 4) — a pipeline
// with a single unlucky record and a pipeline with many once-failing
// records exhaust the same budget.
func (h *Handler) HandleError(cause error) domain.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures++
	outcome := domain.OutcomeFail
	switch {
	case h.failures <= h.cfg.Retries:
		outcome = domain.OutcomeRetry
	case h.cfg.OnFailure == domain.OnFailureSkip:
		outcome = domain.OutcomeSkip
	}
	slog.Warn("handle error",
		slog.Any("error", cause),
		slog.Int("failures", h.failures),
		slog.Int("retries", h.cfg.Retries),
		slog.String("outcome", outcome.String()),
	)
	return outcome
}

// FailProcessingOnPermanentErrors reports whether a permanent (post-retry)
// failure should bring the whole pod down, as opposed to being routed
// around (skip) or shipped elsewhere (dead-letter).
func (h *Handler) FailProcessingOnPermanentErrors() bool {
	return h.cfg.OnFailure != domain.OnFailureSkip && h.cfg.OnFailure != domain.OnFailureDeadLetter
}

// Failures returns the current value of the pod-wide failure odometer.
func (h *Handler) Failures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures
}
