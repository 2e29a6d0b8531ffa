// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/graphweave/graphweave/internal/config"
	"github.com/graphweave/graphweave/internal/dag"
	"github.com/graphweave/graphweave/internal/partial"
)

type (
	// Discovery scans roots for partial files.
	Discovery struct {
		roots    []string
		patterns []string
		ignore   []string
		maxDepth int
		logger   *log.Logger
	}

	// Option configures a Discovery.
	Option func(*Discovery)

	// candidate is a matched file before parsing.
	candidate struct {
		path string
	}
)

// WithRoots replaces the configured roots.
func WithRoots(roots ...string) Option {
	return func(d *Discovery) {
		if len(roots) > 0 {
			d.roots = slices.Clone(roots)
		}
	}
}

// WithLogger sets the logger for scan progress.
func WithLogger(logger *log.Logger) Option {
	return func(d *Discovery) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Discovery from cfg. A nil cfg means config.DefaultConfig().
func New(cfg *config.Config, opts ...Option) *Discovery {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	d := &Discovery{
		roots:    slices.Clone(cfg.Roots),
		patterns: slices.Clone(cfg.Patterns),
		ignore:   slices.Clone(cfg.Ignore),
		maxDepth: cfg.Resolver.MaxDepth,
		logger:   log.New(io.Discard),
	}
	if len(d.patterns) == 0 {
		d.patterns = []string{config.DefaultPattern}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Roots returns the roots scanned, in precedence order.
func (d *Discovery) Roots() []string { return slices.Clone(d.roots) }

// Discover scans every root in order and parses the matching files. Within
// a root, files are visited in lexical order, so the result is deterministic.
// Only context cancellation makes it fail; everything else is a Diagnostic.
func (d *Discovery) Discover(ctx context.Context) (Result, error) {
	var result Result

	var candidates []candidate
	for _, root := range d.roots {
		found, diags, err := d.scanRoot(ctx, root)
		if err != nil {
			return Result{}, err
		}
		candidates = append(candidates, found...)
		result.Diagnostics = append(result.Diagnostics, diags...)
	}

	owners := make(map[string]string, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("discovery canceled: %w", err)
		}

		p, err := partial.ParseNamed(c.path, partial.FileSource(c.path))
		if err != nil {
			d.logger.Warn("Skipping partial", "path", c.path, "err", err)
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodePartialParseSkipped,
				Message:  fmt.Sprintf("skipped %s: %v", c.path, err),
				Path:     c.path,
				Cause:    err,
			})
			continue
		}

		if first, taken := owners[p.Name()]; taken {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodePartialNameCollision,
				Message:  fmt.Sprintf("partial %q in %s is shadowed by %s", p.Name(), c.path, first),
				Path:     c.path,
			})
			continue
		}
		owners[p.Name()] = c.path
		result.Partials = append(result.Partials, p)
	}

	result.Diagnostics = append(result.Diagnostics, d.checkRequirements(result.Partials)...)
	d.logger.Debug("Discovery finished", "partials", len(result.Partials), "diagnostics", len(result.Diagnostics))
	return result, nil
}

// scanRoot walks one root and returns the files matching the patterns.
func (d *Discovery) scanRoot(ctx context.Context, root string) ([]candidate, []Diagnostic, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, []Diagnostic{rootDiagnostic(root, err)}, nil
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, []Diagnostic{rootDiagnostic(absRoot, err)}, nil
	}
	if !info.IsDir() {
		return nil, []Diagnostic{rootDiagnostic(absRoot, fmt.Errorf("%s is not a directory", absRoot))}, nil
	}

	d.logger.Debug("Scanning root", "root", absRoot)

	var (
		found []candidate
		diags []Diagnostic
	)
	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeRootScanFailed,
				Message:  fmt.Sprintf("cannot read %s: %v", path, err),
				Path:     path,
				Cause:    err,
			})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(d.ignore, rel) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !matchesAny(d.patterns, rel) {
			return nil
		}
		found = append(found, candidate{path: path})
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("discovery canceled: %w", walkErr)
		}
		diags = append(diags, rootDiagnostic(absRoot, walkErr))
	}
	return found, diags, nil
}

// checkRequirements reports dangling requirements, cycles and chains deeper
// than the resolver ceiling. Partials stay in the result: the resolver
// reports the same problems precisely when a selection reaches them.
func (d *Discovery) checkRequirements(partials []*partial.Partial) []Diagnostic {
	graph := dag.FromPartials(partials)
	paths := make(map[string]string, len(partials))
	for _, p := range partials {
		paths[p.Name()] = p.Key()
	}

	var diags []Diagnostic
	for _, edge := range graph.Dangling() {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeRequirementUnresolved,
			Message:  fmt.Sprintf("partial %q requires %q, which was not found", edge.From, edge.To),
			Path:     paths[edge.From],
		})
	}

	depths, err := graph.Depths()
	var cycleErr *dag.CycleError
	if errors.As(err, &cycleErr) {
		return append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeRequirementCycle,
			Message:  fmt.Sprintf("requirement cycle among partials: %s", strings.Join(cycleErr.Cycle, ", ")),
			Cause:    err,
		})
	}

	if d.maxDepth > 0 {
		for _, name := range graph.Nodes() {
			if depths[name] > d.maxDepth {
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeRequirementTooDeep,
					Message: fmt.Sprintf("selecting %q walks %d requirement levels, more than the limit of %d",
						name, depths[name], d.maxDepth),
					Path: paths[name],
				})
			}
		}
	}
	return diags
}

func rootDiagnostic(root string, err error) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeRootScanFailed,
		Message:  fmt.Sprintf("cannot scan root %s: %v", root, err),
		Path:     root,
		Cause:    err,
	}
}

// matchesAny reports whether the slash-separated relative path matches one of
// the doublestar patterns. Invalid patterns never match; config validation
// rejects them earlier.
func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
