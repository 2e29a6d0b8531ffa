// SPDX-License-Identifier: MPL-2.0

package aggregate

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/graphweave/graphweave/internal/config"
	"github.com/graphweave/graphweave/internal/emit"
	"github.com/graphweave/graphweave/internal/registry"
	"github.com/graphweave/graphweave/internal/resolve"
)

type (
	// SnapshotSource supplies the registry snapshot a request resolves against.
	SnapshotSource interface {
		Snapshot() *registry.Snapshot
	}

	// Service resolves selectors and renders aggregates. It is safe for
	// concurrent use as long as its source is.
	Service struct {
		source   SnapshotSource
		resolver *resolve.Resolver
		emitter  *emit.Emitter
	}

	// Option configures a Service.
	Option func(*Service)

	// Report describes a rendered aggregate.
	Report struct {
		// Names lists the emitted partials in output order.
		Names []string
		// Generation is the registry generation the aggregate was resolved against.
		Generation uint64
		// Bytes is the size of the document written.
		Bytes int64
	}
)

// WithResolver replaces the default resolver.
func WithResolver(r *resolve.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithEmitter replaces the default emitter.
func WithEmitter(e *emit.Emitter) Option {
	return func(s *Service) {
		if e != nil {
			s.emitter = e
		}
	}
}

// New creates a Service reading snapshots from source.
func New(source SnapshotSource, opts ...Option) *Service {
	s := &Service{
		source:   source,
		resolver: resolve.New(),
		emitter:  emit.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a Service whose resolver depth ceiling, aggregator
// name and section plan come from cfg.
func NewFromConfig(source SnapshotSource, cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	plan, err := cfg.SectionPlan()
	if err != nil {
		return nil, fmt.Errorf("build section plan: %w", err)
	}
	return New(source,
		WithResolver(resolve.New(resolve.WithMaxDepth(cfg.Resolver.MaxDepth))),
		WithEmitter(emit.New(emit.WithAggregatorName(cfg.AggregatorName), emit.WithPlan(plan...))),
	), nil
}

// Snapshot returns the source's current snapshot.
func (s *Service) Snapshot() *registry.Snapshot { return s.source.Snapshot() }

// Resolve resolves selectors against the current snapshot.
func (s *Service) Resolve(selectors ...string) (*resolve.Selection, *registry.Snapshot, error) {
	snap := s.source.Snapshot()
	sel, err := s.resolver.Resolve(snap, selectors...)
	if err != nil {
		return nil, snap, err
	}
	return sel, snap, nil
}

// Aggregate resolves selectors against the current snapshot and writes the
// aggregate to w.
func (s *Service) Aggregate(ctx context.Context, w io.Writer, selectors ...string) (*Report, error) {
	return s.AggregateFrom(ctx, s.source.Snapshot(), w, selectors...)
}

// AggregateFrom is Aggregate against a caller-held snapshot. The document is
// rendered in memory first, so nothing reaches w unless resolution and
// emission both succeed.
func (s *Service) AggregateFrom(ctx context.Context, snap *registry.Snapshot, w io.Writer, selectors ...string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := s.resolver.Resolve(snap, selectors...)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.emitter.Write(&buf, sel); err != nil {
		return nil, fmt.Errorf("emit aggregate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := buf.WriteTo(w)
	if err != nil {
		return nil, fmt.Errorf("write aggregate: %w", err)
	}
	return &Report{Names: sel.Names(), Generation: snap.Generation(), Bytes: n}, nil
}
