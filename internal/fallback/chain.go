// Package fallback implements ordered producer cascades. A chain tries each
// producer in priority order and returns the first success together with
// which tier produced it. Every chain must end in a pure producer that
// performs only local synthesis, so execution is guaranteed to yield a value.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// FailureKind tags why a producer failed. The chain switches on the tag
// instead of matching error text; configuration failures in particular must
// not consume the timeout budget of genuine network failures.
type FailureKind int

const (
	FailureProvider FailureKind = iota + 1 // transient/network/non-2xx
	FailureConfiguration                   // missing credential or capability
	FailureValidation                      // malformed provider response
	FailureTimeout                         // timeout or polling budget exceeded
)

func (k FailureKind) String() string {
	switch k {
	case FailureProvider:
		return "provider"
	case FailureConfiguration:
		return "configuration"
	case FailureValidation:
		return "validation"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Failure is the tagged error half of a producer result.
type Failure struct {
	Kind     FailureKind
	Producer string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failure in producer %q: %v", f.Kind, f.Producer, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Fail builds a tagged failure.
func Fail(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Failf builds a tagged failure from a format string.
func Failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Producer is one tier of a chain. Run returns either a value or a tagged
// failure, never both. Check, when set, is a configuration gate evaluated
// before Run and outside the tier's timeout budget.
type Producer[I, O any] struct {
	Name    string
	Timeout time.Duration
	// Pure marks a producer whose Run performs only local, side-effect-free
	// synthesis and is contractually forbidden to fail. Every chain's last
	// producer must be pure.
	Pure  bool
	Check func() *Failure
	Run   func(ctx context.Context, in I) (O, *Failure)
}

// Outcome is a successful chain execution. Tier is the 1-based index of the
// producer that succeeded; Degraded is true whenever any earlier tier failed.
type Outcome[O any] struct {
	Value    O
	Provider string
	Tier     int
	Attempts int
	Degraded bool
	Failures []*Failure
}

// Chain is an ordered list of producers for one artifact type.
type Chain[I, O any] struct {
	name      string
	producers []Producer[I, O]
}

// NewChain builds a chain, enforcing the terminal-producer invariant: the
// last producer must be pure so downstream stages can assume an artifact
// always exists.
func NewChain[I, O any](name string, producers ...Producer[I, O]) (*Chain[I, O], error) {
	if len(producers) == 0 {
		return nil, fmt.Errorf("chain %q: at least one producer required", name)
	}
	last := producers[len(producers)-1]
	if !last.Pure {
		return nil, fmt.Errorf("chain %q: terminal producer %q must be pure", name, last.Name)
	}
	for _, p := range producers {
		if p.Run == nil {
			return nil, fmt.Errorf("chain %q: producer %q has no Run function", name, p.Name)
		}
	}
	return &Chain[I, O]{name: name, producers: producers}, nil
}

// Name returns the chain's artifact-type name.
func (c *Chain[I, O]) Name() string { return c.name }

// Tiers returns the number of producers.
func (c *Chain[I, O]) Tiers() int { return len(c.producers) }

// Execute tries each producer in order and returns the first success. It
// only returns an error when the caller's context is cancelled or the
// terminal producer violates its purity contract, which is a bug in chain
// construction rather than a runtime condition.
func (c *Chain[I, O]) Execute(ctx context.Context, in I) (Outcome[O], error) {
	var out Outcome[O]

	for i, p := range c.producers {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("chain %q: %w", c.name, err)
		}

		tier := i + 1
		if p.Check != nil {
			if f := p.Check(); f != nil {
				f.Producer = p.Name
				log.WithFields(log.Fields{
					"chain": c.name, "producer": p.Name, "tier": tier,
				}).Debugf("Skipping unconfigured producer: %v", f.Err)
				out.Failures = append(out.Failures, f)
				out.Attempts++
				continue
			}
		}

		value, failure := c.runProducer(ctx, p, in)
		out.Attempts++
		if failure == nil {
			out.Value = value
			out.Provider = p.Name
			out.Tier = tier
			out.Degraded = tier > 1
			if out.Degraded {
				log.WithFields(log.Fields{
					"chain": c.name, "producer": p.Name, "tier": tier,
				}).Warn("Artifact produced by fallback tier")
			}
			return out, nil
		}

		failure.Producer = p.Name
		out.Failures = append(out.Failures, failure)
		if p.Pure {
			// Contract violation: the terminal producer may not fail.
			return out, fmt.Errorf("chain %q: pure producer %q failed: %w", c.name, p.Name, failure)
		}
		log.WithFields(log.Fields{
			"chain": c.name, "producer": p.Name, "tier": tier, "kind": failure.Kind.String(),
		}).Warnf("Producer failed, advancing to next tier: %v", failure.Err)
	}

	// Unreachable when the terminal producer honors its purity contract.
	return out, fmt.Errorf("chain %q: all %d producers failed", c.name, len(c.producers))
}

func (c *Chain[I, O]) runProducer(ctx context.Context, p Producer[I, O], in I) (O, *Failure) {
	runCtx := ctx
	if p.Timeout > 0 && !p.Pure {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	value, failure := p.Run(runCtx, in)
	if failure != nil && failure.Kind != FailureTimeout {
		// Reclassify deadline-driven provider errors so the timeout budget
		// rule stays visible to callers.
		if errors.Is(failure.Err, context.DeadlineExceeded) && ctx.Err() == nil {
			failure.Kind = FailureTimeout
		}
	}
	return value, failure
}
