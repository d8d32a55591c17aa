// Package orchestrate turns free-text business requirements into structured
// classification results by driving AI providers with retries, failover, and
// output validation.
//
// One orchestration call is a single sequence of provider attempts: primary
// provider up to its attempt budget, then the secondary under the same
// policy. Transient failures are absorbed here and never surface to callers
// unless every configured provider is exhausted. Calls share no mutable
// state, so any number of orchestrations may run concurrently.
package orchestrate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/leadgrid/leadgrid/internal/llm"
	"github.com/leadgrid/leadgrid/internal/logging"
)

// PromptFunc produces the prompt for a given attempt (1-based). Regenerating
// the prompt per attempt lets callers vary wording so repeated attempts are
// not identical; the orchestrator stays agnostic to prompt content.
type PromptFunc func(attempt int) string

// ClassifiedError is the terminal error of an exhausted orchestration. It
// carries an HTTP status for the API layer and a message fit for end users.
type ClassifiedError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// httpStatusFor maps an error kind to the status the API layer should surface.
func httpStatusFor(kind Kind) int {
	switch kind {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindValidationFailed, KindExtractionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Provenance records which provider, model, and attempt produced a result.
type Provenance struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Attempts  int    `json:"attempts"`
	RawOutput string `json:"rawOutput,omitempty"`
}

// RoleRanking is a validated, priority-ordered decision-maker list.
type RoleRanking struct {
	Roles []RoleCandidate `json:"roles"`
	Provenance
}

// IndustryResult is an ordered industry list, primary first.
type IndustryResult struct {
	Industries []string `json:"industries"`
	Provenance
}

// Primary returns the primary industry label.
func (r *IndustryResult) Primary() string {
	if len(r.Industries) == 0 {
		return ""
	}
	return r.Industries[0]
}

// Orchestrator drives classification calls against a primary and an optional
// secondary provider.
type Orchestrator struct {
	primary   llm.Client
	secondary llm.Client // nil disables fallback
	policy    RetryPolicy
	log       *logging.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator. secondary may be nil, in which case primary
// exhaustion fails the call directly.
func New(primary, secondary llm.Client, policy RetryPolicy, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		policy:    policy,
		log:       log.Sub("orchestrate"),
		sleep:     sleepContext,
	}
}

// RankRoles asks the providers for a ranked decision-maker list and returns
// it validated and cleaned.
func (o *Orchestrator) RankRoles(ctx context.Context, promptFor PromptFunc) (*RoleRanking, error) {
	out, cerr := o.run(ctx, promptFor, func(v any) (any, error) {
		roles, violations := NormalizeRoles(v)
		if len(violations) > 0 {
			return nil, fmt.Errorf("invalid decision-maker list: %s", strings.Join(violations, "; "))
		}
		return roles, nil
	})
	if cerr != nil {
		return nil, cerr
	}
	return &RoleRanking{Roles: out.value.([]RoleCandidate), Provenance: out.prov}, nil
}

// ClassifyIndustry asks the providers for the requirement's industry and
// returns the normalized industry list.
func (o *Orchestrator) ClassifyIndustry(ctx context.Context, promptFor PromptFunc) (*IndustryResult, error) {
	out, cerr := o.run(ctx, promptFor, func(v any) (any, error) {
		industries := NormalizeIndustries(v)
		if len(industries) == 0 {
			return nil, fmt.Errorf("no usable industry name in response")
		}
		return industries, nil
	})
	if cerr != nil {
		return nil, cerr
	}
	return &IndustryResult{Industries: out.value.([]string), Provenance: out.prov}, nil
}

// acceptFunc validates an extracted value and returns the typed payload.
type acceptFunc func(v any) (any, error)

type outcome struct {
	value any
	prov  Provenance
}

// run is the top-level state machine: TryPrimary → TrySecondary → Fail.
// Fallback to the secondary is unconditional once the primary is exhausted.
func (o *Orchestrator) run(ctx context.Context, promptFor PromptFunc, accept acceptFunc) (*outcome, *ClassifiedError) {
	providers := []llm.Client{o.primary}
	if o.secondary != nil {
		providers = append(providers, o.secondary)
	}

	var best *ClassifiedError
	for _, client := range providers {
		out, cerr := o.tryProvider(ctx, client, promptFor, accept)
		if cerr == nil {
			return out, nil
		}
		best = moreActionable(best, cerr)

		if ctx.Err() != nil {
			break // canceled: do not start the next provider
		}
		o.log.Warn().
			Str("provider", client.Name()).
			Str("kind", string(cerr.Kind)).
			Msg("provider exhausted, falling back")
	}

	if best == nil {
		best = &ClassifiedError{
			Kind:    KindTerminal,
			Status:  http.StatusInternalServerError,
			Message: "no provider configured",
		}
	}
	return nil, best
}

// retryState is the per-call mutable retry bookkeeping. Keeping it on the
// stack (rather than in shared counters) means concurrent orchestration
// calls cannot interfere with each other's budgets.
type retryState struct {
	maxAttempts int
	escalated   bool
}

// escalate widens the attempt budget the first time a provider signals
// sustained overload. A provider that said "I'm overloaded" deserves more
// patience; a provider returning generic errors does not.
func (s *retryState) escalate(extended int) {
	if !s.escalated && extended > s.maxAttempts {
		s.maxAttempts = extended
	}
	s.escalated = true
}

// tryProvider runs the inner attempt loop against one provider.
func (o *Orchestrator) tryProvider(ctx context.Context, client llm.Client, promptFor PromptFunc, accept acceptFunc) (*outcome, *ClassifiedError) {
	state := retryState{maxAttempts: o.policy.MaxAttempts}
	var lastCls *Classification
	var best *ClassifiedError

	for attempt := 1; attempt <= state.maxAttempts; attempt++ {
		if delay := NextDelay(attempt, lastCls, o.policy); delay > 0 {
			o.log.Debug().
				Str("provider", client.Name()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("waiting before retry")
			if err := o.sleep(ctx, delay); err != nil {
				return nil, canceledError(err)
			}
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if o.policy.RequestTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, o.policy.RequestTimeout)
		}
		resp, err := client.Complete(callCtx, llm.CompletionRequest{Prompt: promptFor(attempt)})
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return nil, canceledError(ctx.Err())
			}

			cls := Classify(err)
			o.log.Warn().
				Str("provider", client.Name()).
				Int("attempt", attempt).
				Str("kind", string(cls.Kind)).
				Err(err).
				Msg("provider call failed")

			cerr := &ClassifiedError{Kind: cls.Kind, Status: httpStatusFor(cls.Kind), Message: cls.Message, Err: err}
			best = moreActionable(best, cerr)

			if cls.Kind == KindUnavailable || cls.Kind == KindRateLimited {
				state.escalate(o.policy.MaxAttemptsExtended)
			}
			if !cls.Kind.Retryable() {
				return nil, best
			}
			lastCls = &cls
			continue
		}

		value, err := Extract(resp.Content)
		if err != nil {
			o.log.Warn().
				Str("provider", client.Name()).
				Int("attempt", attempt).
				Err(err).
				Msg("extraction failed, retrying")
			cls := Classification{Kind: KindExtractionFailed, Message: err.Error()}
			best = moreActionable(best, &ClassifiedError{Kind: cls.Kind, Status: httpStatusFor(cls.Kind), Message: cls.Message, Err: err})
			lastCls = &cls
			continue
		}

		payload, err := accept(value)
		if err != nil {
			o.log.Warn().
				Str("provider", client.Name()).
				Int("attempt", attempt).
				Err(err).
				Msg("validation failed, retrying")
			cls := Classification{Kind: KindValidationFailed, Message: err.Error()}
			best = moreActionable(best, &ClassifiedError{Kind: cls.Kind, Status: httpStatusFor(cls.Kind), Message: cls.Message, Err: err})
			lastCls = &cls
			continue
		}

		model := resp.Model
		if model == "" {
			model = client.Model()
		}
		return &outcome{
			value: payload,
			prov: Provenance{
				Provider:  client.Name(),
				Model:     model,
				Attempts:  attempt,
				RawOutput: resp.Content,
			},
		}, nil
	}

	if best == nil {
		best = &ClassifiedError{
			Kind:    KindTerminal,
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("%s: attempts exhausted", client.Name()),
		}
	}
	return nil, best
}

// moreActionable keeps the error whose message is most useful to an end
// user. Quota and overload errors explain themselves; network and generic
// failures do not.
func moreActionable(best, candidate *ClassifiedError) *ClassifiedError {
	if best == nil {
		return candidate
	}
	if candidate == nil {
		return best
	}
	if actionability(candidate.Kind) > actionability(best.Kind) {
		return candidate
	}
	return best
}

func actionability(kind Kind) int {
	switch kind {
	case KindRateLimited:
		return 4
	case KindUnavailable:
		return 3
	case KindValidationFailed, KindExtractionFailed:
		return 2
	case KindNetwork:
		return 1
	default:
		return 0
	}
}

func canceledError(err error) *ClassifiedError {
	return &ClassifiedError{
		Kind:    KindTerminal,
		Status:  http.StatusInternalServerError,
		Message: "orchestration canceled",
		Err:     err,
	}
}

// sleepContext waits for d on a private timer, aborting promptly if ctx is
// canceled. The wait never blocks other orchestration calls.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
