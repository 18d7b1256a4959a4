// Package writer implements the Writer Node (§4.E): the single entry point
// for mutations, which validates, stamps, and applies an operation to the
// in-memory Access Manager, then appends the resulting event to the
// EventBuffer. Grounded on the teacher's domain/core/aggregates/graph.go
// mutate-then-addEvent pattern, restructured around an explicit Validator
// plug point and a hash function supplied at construction time (§4.E's
// hashCode requirement) rather than a fixed validation rule baked into the
// aggregate itself.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"applicationaccess/domain/events"
	"applicationaccess/pkg/accesserrors"
)

// Validator is invoked before an event is applied, giving callers a plug
// point for tenant-specific rules (e.g. name format, quota limits). The
// default NullValidator accepts everything.
type Validator interface {
	Validate(e events.Event) error
}

// NullValidator accepts every event.
type NullValidator struct{}

// Validate implements Validator by always succeeding.
func (NullValidator) Validate(events.Event) error { return nil }

// HashFunc computes the integrity hash stamped onto an event's header.
type HashFunc func(e events.Event) int32

// DefaultHash is a simple FNV-1a style hash over the event's kind and
// payload fields, sufficient for detecting accidental corruption in
// transit; it is not a security boundary.
func DefaultHash(e events.Event) int32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, s := range []string{
		string(e.Header.Kind), e.User, e.Group,
		e.UserToGroupUser, e.UserToGroupGroup,
		e.GroupToGroupFrom, e.GroupToGroupTo,
		e.ApplicationComponent, e.AccessLevel,
		e.EntityType, e.Entity,
		e.UserToEntityUser, e.GroupToEntityGroup,
	} {
		for i := 0; i < len(s); i++ {
			h ^= uint32(s[i])
			h *= prime32
		}
	}
	return int32(h)
}

// Mutator applies an already-validated, already-stamped event to the
// in-memory Access Manager. It is the thin seam between this package and
// domain/accessmanager, so the Writer Node itself stays independent of the
// concrete Access Manager type.
type Mutator interface {
	Apply(e events.Event) error
}

// Sink receives the event after a successful mutation, typically an
// eventbuffer.Buffer.
type Sink interface {
	AddEvent(ctx context.Context, e events.Event) error
}

// Node is the Writer Node.
type Node struct {
	validator Validator
	hash      HashFunc
	mutator   Mutator
	sink      Sink
	clock     func() time.Time
	logger    *zap.Logger
}

// Option configures a Node at construction time.
type Option func(*Node)

// WithValidator overrides the default NullValidator.
func WithValidator(v Validator) Option { return func(n *Node) { n.validator = v } }

// WithHash overrides the default hash function.
func WithHash(h HashFunc) Option { return func(n *Node) { n.hash = h } }

// WithClock overrides the Node's time source, for deterministic tests.
func WithClock(c func() time.Time) Option { return func(n *Node) { n.clock = c } }

// New constructs a Writer Node over mutator, appending accepted events to
// sink.
func New(mutator Mutator, sink Sink, logger *zap.Logger, opts ...Option) *Node {
	n := &Node{
		validator: NullValidator{},
		hash:      DefaultHash,
		mutator:   mutator,
		sink:      sink,
		clock:     time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Write validates e, stamps it with a fresh eventId/timestamp/hashCode,
// applies it to the Access Manager, and on success appends it to the
// buffer. If validation or application fails, nothing is appended.
func (n *Node) Write(ctx context.Context, e events.Event) error {
	if err := n.validator.Validate(e); err != nil {
		n.logger.Warn("event failed validation", zap.String("kind", string(e.Header.Kind)), zap.Error(err))
		return err
	}

	e.Header.EventID = uuid.NewString()
	e.Header.Timestamp = n.clock()
	e.Header.HashCode = n.hash(e)

	if err := n.mutator.Apply(e); err != nil {
		if !accesserrors.Is(err, accesserrors.KindAlreadyExists) && !accesserrors.Is(err, accesserrors.KindNotFound) {
			n.logger.Error("failed to apply event",
				zap.String("eventId", e.Header.EventID),
				zap.String("kind", string(e.Header.Kind)),
				zap.Error(err),
			)
		}
		return err
	}

	if err := n.sink.AddEvent(ctx, e); err != nil {
		n.logger.Error("failed to buffer applied event",
			zap.String("eventId", e.Header.EventID),
			zap.Error(err),
		)
		return fmt.Errorf("event applied but failed to buffer: %w", err)
	}

	n.logger.Debug("wrote event",
		zap.String("eventId", e.Header.EventID),
		zap.String("kind", string(e.Header.Kind)),
	)
	return nil
}

// Distributor fans a single applied event out to multiple events.Sink
// implementations (e.g. an eventbridge.Notifier next to another sink; the
// EventBuffer exposes AddEvent rather than Append and so is not one of
// them), matching §4.E's note that the Writer Node may have more than one
// downstream consumer of its write stream.
type Distributor struct {
	sinks []events.Sink
}

// NewDistributor constructs a Distributor over sinks.
func NewDistributor(sinks ...events.Sink) *Distributor {
	return &Distributor{sinks: sinks}
}

// Append implements events.Sink by calling Append on every wrapped sink,
// in order without short-circuiting on failures, so one failing secondary
// sink does not stop the others from being called; the first error is
// returned.
func (d *Distributor) Append(e events.Event) error {
	var firstErr error
	for _, s := range d.sinks {
		if err := s.Append(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
