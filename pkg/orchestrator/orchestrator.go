package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/candidate"
	"GoModelRouter/pkg/discovery"
	"GoModelRouter/pkg/generation"
	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/metrics"
)

// Attempter asks a single candidate to fulfil a request.
type Attempter interface {
	Attempt(ctx context.Context, candidateID string, req generation.Request) (generation.Result, error)
}

// Refresher refreshes the pool when it is stale.
type Refresher interface {
	RefreshIfStale(ctx context.Context) discovery.RefreshResult
}

// Orderer produces the attempt order for one request.
type Orderer interface {
	Ordered() []string
}

// Recorder records attempt outcomes. *store.Store satisfies it.
type Recorder interface {
	RecordSuccess(ctx context.Context, id string) (candidate.Record, bool)
	RecordFailure(ctx context.Context, id string) candidate.FailureOutcome
}

// Observer is told about every finished attempt. reason is empty on success.
type Observer interface {
	Observe(reason generation.Reason, elapsed time.Duration)
}

// Config tunes the attempt loop.
type Config struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	AbortOnAuth    bool          `mapstructure:"abort_on_auth"`
}

// DefaultConfig returns a 30 second per-attempt timeout and the default policy.
func DefaultConfig() Config {
	return Config{AttemptTimeout: 30 * time.Second}
}

// State is the position of one Generate call in its lifecycle.
type State int

const (
	Idle State = iota
	Selecting
	Attempting
	Succeeded
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Orchestrator runs the first-success fallback loop.
type Orchestrator struct {
	cfg       Config
	policy    Policy
	refresher Refresher
	orderer   Orderer
	recorder  Recorder
	attempter Attempter
	observers []Observer
	log       *zap.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy replaces the failure decision table.
func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithObserver adds an attempt observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// New builds an orchestrator. refresher may be nil.
func New(cfg Config, refresher Refresher, orderer Orderer, recorder Recorder, attempter Attempter, log *zap.Logger, opts ...Option) *Orchestrator {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}
	o := &Orchestrator{
		cfg:       cfg,
		policy:    DefaultPolicy(),
		refresher: refresher,
		orderer:   orderer,
		recorder:  recorder,
		attempter: attempter,
		log:       logger.OrNop(log).Named("orchestrator"),
	}
	if cfg.AbortOnAuth {
		o.policy = AbortOnAuthPolicy()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate tries candidates one at a time until one succeeds. It returns an
// error matching ErrExhausted when none did, or the context error if the
// caller went away.
func (o *Orchestrator) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	o.transition(Idle, Selecting)
	if o.refresher != nil {
		o.refresher.RefreshIfStale(ctx)
	}
	order := o.orderer.Ordered()

	var failures []AttemptFailure
	for i, id := range order {
		if err := ctx.Err(); err != nil {
			return generation.Result{}, err
		}
		o.log.Debug("attempting candidate",
			zap.Stringer("state", Attempting),
			zap.Int("position", i+1),
			zap.Int("of", len(order)),
			zap.String("candidate", id))

		res, err := o.attempt(ctx, id, req)
		if err == nil {
			o.recorder.RecordSuccess(ctx, id)
			o.transition(Attempting, Succeeded)
			o.log.Info("generation succeeded",
				zap.String("candidate", id),
				zap.Int("attempts", i+1))
			return res, nil
		}

		// The caller gave up mid-attempt. This is not the candidate's fault.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return generation.Result{}, fmt.Errorf("attempt %s interrupted: %w", id, ctxErr)
		}

		reason := generation.ReasonOf(err)
		failures = append(failures, AttemptFailure{Candidate: id, Reason: reason, Err: err})
		action := o.policy.Decide(reason)
		o.log.Warn("candidate failed",
			zap.String("candidate", id),
			zap.String("reason", string(reason)),
			zap.Stringer("action", action),
			zap.Error(err))

		switch action {
		case Next:
			o.recorder.RecordFailure(ctx, id)
		case Abort:
			metrics.Exhaustions.WithLabelValues("true").Inc()
			o.transition(Attempting, Exhausted)
			return generation.Result{}, &ExhaustedError{Attempts: failures, Aborted: true}
		}
	}

	metrics.Exhaustions.WithLabelValues("false").Inc()
	o.transition(Attempting, Exhausted)
	o.log.Error("all candidates failed", zap.Int("attempts", len(failures)))
	return generation.Result{}, &ExhaustedError{Attempts: failures}
}

func (o *Orchestrator) attempt(ctx context.Context, id string, req generation.Request) (generation.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	start := time.Now()
	res, err := o.attempter.Attempt(attemptCtx, id, req)
	elapsed := time.Since(start)

	outcome, reason := "success", generation.Reason("")
	if err != nil {
		outcome, reason = "failure", generation.ReasonOf(err)
	}
	// Nothing was sent, so there is no outcome to feed back into health.
	if reason == generation.ReasonThrottled {
		metrics.ThrottledAttempts.Inc()
		return res, err
	}
	metrics.CandidateAttempts.WithLabelValues(id, outcome, string(reason)).Inc()
	metrics.CandidateAttemptDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if ctx.Err() == nil {
		for _, obs := range o.observers {
			obs.Observe(reason, elapsed)
		}
	}
	return res, err
}

func (o *Orchestrator) transition(from, to State) {
	o.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to))
}
