package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentx-labs/webbundle/internal/bundle"
	"github.com/agentx-labs/webbundle/internal/config"
	"github.com/agentx-labs/webbundle/internal/ctxlog"
	"github.com/agentx-labs/webbundle/internal/extension"
	"github.com/agentx-labs/webbundle/internal/registry"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Builder runs builds for one project configuration.
type Builder struct {
	fs  afero.Fs
	cfg *config.Config
}

// New returns a Builder reading and writing through fsys.
func New(fsys afero.Fs, cfg *config.Config) *Builder {
	return &Builder{fs: fsys, cfg: cfg}
}

// coreSource returns the core root as a registry source.
func (b *Builder) coreSource() registry.Source {
	return registry.Source{Name: b.cfg.Core.Name, BasePath: b.cfg.CorePath()}
}

// bundleOptions reads the configured preamble. A preamble file overrides
// the inline preamble.
func (b *Builder) bundleOptions() (bundle.Options, error) {
	opts := bundle.Options{Preamble: b.cfg.Bundle.Preamble}
	if b.cfg.Bundle.PreambleFile == "" {
		return opts, nil
	}
	path := b.cfg.Abs(b.cfg.Bundle.PreambleFile)
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return opts, fmt.Errorf("reading preamble %s: %w", path, err)
	}
	opts.Preamble = string(data)
	return opts, nil
}

// Packs discovers the expansion packs under the configured packs root.
func (b *Builder) Packs() ([]extension.Pack, error) {
	return extension.Discover(b.fs, b.cfg.PacksPath())
}

// LoadScope reads a fresh snapshot for the core scope (pack == nil) or for
// pack layered over core. A core that cannot be loaded is an error. A pack
// that cannot be loaded, or that does not accept the core version, yields
// a scope whose targets all fail with that reason.
func (b *Builder) LoadScope(ctx context.Context, pack *extension.Pack) (*Scope, error) {
	opts, err := b.bundleOptions()
	if err != nil {
		return nil, err
	}

	sources := extension.BuildSources(b.cfg.Resolution.Order, b.coreSource(), pack, b.cfg.Root)
	if pack == nil {
		snap, err := registry.Load(ctx, b.fs, sources)
		if err != nil {
			return nil, fmt.Errorf("loading core: %w", err)
		}
		return &Scope{Snapshot: snap, bundleOpts: opts}, nil
	}

	scope := &Scope{Pack: pack, bundleOpts: opts}
	if pack.Err != nil {
		scope.err = fmt.Errorf("pack %s: %w", pack.ID, pack.Err)
	}
	snap, err := registry.Load(ctx, b.fs, sources)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if scope.err == nil {
			scope.err = fmt.Errorf("loading pack %s: %w", pack.ID, err)
		}
		scope.listed = listEntries(b.fs, pack.Path)
	} else {
		scope.Snapshot = snap
	}
	if scope.err == nil {
		scope.err = b.checkCompatible(pack)
	}
	if scope.err != nil {
		ctxlog.FromContext(ctx).Debug("pack cannot be built", "pack", pack.ID, "error", scope.err)
	}
	return scope, nil
}

// checkCompatible reports why pack does not accept the configured core.
func (b *Builder) checkCompatible(pack *extension.Pack) error {
	ok, err := pack.Compatible(b.cfg.Core.Version)
	if err != nil {
		return err
	}
	if !ok {
		return &IncompatiblePackError{
			Pack:        pack.ID,
			Constraint:  pack.Config.RequiresCore,
			CoreVersion: b.cfg.Core.Version,
		}
	}
	return nil
}

// Scopes loads the core scope and, unless noExpansions is set, one scope per
// discovered pack in pack priority order.
func (b *Builder) Scopes(ctx context.Context, noExpansions bool) ([]*Scope, error) {
	core, err := b.LoadScope(ctx, nil)
	if err != nil {
		return nil, err
	}
	scopes := []*Scope{core}
	if noExpansions {
		return scopes, nil
	}

	packs, err := b.Packs()
	if err != nil {
		return nil, err
	}
	for i := range packs {
		scope, err := b.LoadScope(ctx, &packs[i])
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// job pairs a target with the scope it resolves against.
type job struct {
	scope  *Scope
	target Target
}

// Run builds every selected target. Targets run concurrently up to the
// configured limit; the report lists them in enumeration order.
func (b *Builder) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	scopes, err := b.Scopes(ctx, opts.NoExpansions)
	if err != nil {
		return nil, err
	}

	var jobs []job
	for _, scope := range scopes {
		for _, t := range scope.targets(opts) {
			jobs = append(jobs, job{scope: scope, target: t})
		}
	}

	out := b.cfg.OutputPath()
	if opts.Clean && !opts.Validate {
		if err := b.fs.RemoveAll(out); err != nil {
			return nil, fmt.Errorf("cleaning %s: %w", out, err)
		}
	}

	report := &Report{Validate: opts.Validate, Targets: make([]TargetResult, len(jobs))}
	for i, j := range jobs {
		report.Targets[i] = TargetResult{Target: j.target, State: StatePending}
	}

	logger.Debug("build started", "targets", len(jobs), "scopes", len(scopes), "concurrency", b.cfg.Build.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Build.Concurrency)
	for i := range jobs {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			b.runTarget(gctx, jobs[i].scope, &report.Targets[i], opts.Validate, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)

	logger.Debug("build finished", "succeeded", report.Succeeded(), "failed", report.Failed(), "duration", report.Duration)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// runTarget drives one target through its states. It only touches res.
func (b *Builder) runTarget(ctx context.Context, scope *Scope, res *TargetResult, validate bool, out string) {
	logger := ctxlog.FromContext(ctx).With("target", res.Target.String())
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		logger.Debug("target done", "state", res.State, "resources", res.Resources, "errors", len(res.Errors))
	}()

	step := func(to State) bool {
		if err := res.advance(to); err != nil {
			res.fail(err)
			return false
		}
		logger.Debug("target state", "state", to)
		return true
	}

	if !step(StateResolving) {
		return
	}
	if err := scope.Err(); err != nil {
		res.fail(err)
		return
	}

	entry, err := scope.Entry(res.Kind, res.ID)
	if err != nil {
		res.fail(err)
		return
	}

	result := scope.Resolve(ctx, entry)
	res.Resources = result.Resources()
	if !result.OK() {
		res.fail(result.Errors...)
		return
	}
	if !step(StateResolved) || validate {
		return
	}

	bdl, err := bundle.New(entry, result, scope.bundleOpts)
	if err != nil {
		res.fail(err)
		return
	}
	if !step(StateSerialized) {
		return
	}

	path := res.ArtifactPath(out)
	if err := b.write(path, bdl.Text); err != nil {
		res.fail(err)
		return
	}
	res.Path = path
	step(StateWritten)
}

func (b *Builder) write(path string, data []byte) error {
	if err := b.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(b.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ErrBuildFailed is returned by callers that turn a failed report into an
// error, such as the CLI.
var ErrBuildFailed = errors.New("build failed")
