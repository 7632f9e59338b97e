package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kaomoneus/cppl/internal/command"
	"github.com/kaomoneus/cppl/internal/ctxlog"
	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/fsutil"
	"github.com/kaomoneus/cppl/internal/incremental"
	"github.com/kaomoneus/cppl/internal/ldeps"
	"github.com/kaomoneus/cppl/internal/solver"
	"github.com/kaomoneus/cppl/internal/strpool"
	"github.com/kaomoneus/cppl/internal/task"
)

// Driver orchestrates one build: collect, preamble, parse imports, solve,
// codegen, link.
type Driver struct {
	cfg    Config
	runner command.Runner

	tm      *task.Manager
	status  *runStatus
	checker *incremental.Checker
	pool    *strpool.Pool

	// units is keyed by unit identifier; filled by collectSources.
	units map[string]*Unit

	solved *solver.Solved

	// children counts child invocations this run, for the final
	// nothing-to-build notice.
	children atomic.Int64
}

// New creates a driver over the given configuration and child runner.
func New(cfg Config, runner command.Runner) (*Driver, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Driver{
		cfg:     cfg,
		runner:  runner,
		status:  &runStatus{},
		checker: incremental.NewChecker(incremental.DefaultMetaCacheSize),
		pool:    strpool.New(),
		units:   make(map[string]*Unit),
	}, nil
}

// Run executes all build phases. The returned error is the first recorded
// failure; warnings are logged and do not fail the run.
func (d *Driver) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	d.tm = task.NewManager(d.cfg.Jobs)
	defer d.tm.Close()

	d.collectSources(ctx)
	d.buildPreamble(ctx)
	d.parseImports(ctx)
	d.solveDependencies(ctx)
	d.codeGen(ctx)

	if d.cfg.LinkEnabled {
		d.link(ctx)
	}

	if d.status.valid() && d.children.Load() == 0 {
		logger.Info("Nothing to build.")
	}

	for _, w := range d.status.allWarnings() {
		logger.Warn(w)
	}

	return d.status.error()
}

// frontendOpts assembles the per-phase shared argv pieces. preamble is
// passed only for phases that consume the precompiled preamble.
func (d *Driver) frontendOpts(withPreamble bool) command.FrontendOpts {
	opts := command.FrontendOpts{
		Frontend: d.cfg.Frontend,
		SrcRoot:  d.cfg.SourcesRoot,
		StdLib:   d.cfg.StdLib,
		Includes: d.cfg.Includes,
	}
	if withPreamble && d.cfg.PreambleSource != "" {
		opts.Preamble = d.cfg.preamblePCH()
	}
	return opts
}

// collectSources walks the project root and every library root and
// registers a unit per source file found.
func (d *Driver) collectSources(ctx context.Context) {
	if !d.status.valid() {
		return
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Collecting sources...", "root", d.cfg.SourcesRoot)

	excludes := buildRootExcludes(d.cfg.SourcesRoot, d.cfg.BuildRoot)
	relPaths, err := fsutil.FindFilesByExtension(d.cfg.SourcesRoot, SourceExt, excludes...)
	if err != nil {
		d.status.fail(fmt.Errorf("failed to collect sources under %s: %w", d.cfg.SourcesRoot, err))
		return
	}
	for _, rel := range relPaths {
		d.addUnit(d.cfg.newProjectUnit(rel))
	}

	for _, libRoot := range d.cfg.LibraryRoots {
		libRels, err := fsutil.FindFilesByExtension(libRoot, SourceExt)
		if err != nil {
			d.status.fail(fmt.Errorf("failed to collect library sources under %s: %w", libRoot, err))
			return
		}
		for _, rel := range libRels {
			d.addUnit(d.cfg.newLibraryUnit(libRoot, rel))
		}
	}

	logger.Debug("Sources collected.", "units", len(d.units))
}

func (d *Driver) addUnit(u *Unit) {
	if prev, ok := d.units[u.ID]; ok {
		d.status.fail(fmt.Errorf(
			"unit %s defined by both %s and %s", u.ID, prev.Files.Source, u.Files.Source,
		))
		return
	}
	d.units[u.ID] = u
}

// sortedUnits returns all units in identifier order, the canonical
// scheduling and reporting order.
func (d *Driver) sortedUnits() []*Unit {
	ids := make([]string, 0, len(d.units))
	for id := range d.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	units := make([]*Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, d.units[id])
	}
	return units
}

// buildPreamble compiles the precompiled preamble when requested and
// stale. A rebuilt preamble invalidates every artifact of the run.
func (d *Driver) buildPreamble(ctx context.Context) {
	if !d.status.valid() || d.cfg.PreambleSource == "" {
		return
	}
	logger := ctxlog.FromContext(ctx)

	pch := d.cfg.preamblePCH()
	state := d.checker.CheckRecord(pch, d.cfg.preamblePCHMeta(), d.cfg.PreambleSource)
	if state.UpToDate {
		logger.Debug("Preamble up to date.", "pch", pch)
		return
	}

	logger.Info("PREAMBLE", "source", d.cfg.PreambleSource, "out", pch)
	if err := fsutil.CreateDirsForFile(pch); err != nil {
		d.status.fail(err)
		return
	}

	cmd := command.BuildPreamble(
		d.frontendOpts(false), d.cfg.PreambleSource, pch, d.cfg.preamblePCHMeta(),
		d.cfg.ExtraPreambleArgs,
	)
	warning, err := d.execute(ctx, cmd)
	d.status.warn(warning)
	if err != nil {
		d.status.fail(fmt.Errorf("preamble: phase failed: %w", err))
		return
	}
	if !d.cfg.DryRun {
		d.checker.InvalidateMeta(d.cfg.preamblePCHMeta())
		d.checker.MarkPreambleUpdated()
	}
}

// parseImports refreshes every stale parsed-imports record in parallel.
func (d *Driver) parseImports(ctx context.Context) {
	if !d.status.valid() {
		return
	}
	logger := ctxlog.FromContext(ctx)

	var taskIDs []task.ID
	for _, u := range d.sortedUnits() {
		state := d.checker.CheckRecord(u.Files.LDeps, u.Files.LDepsMeta, u.Files.Source)
		if state.UpToDate {
			continue
		}

		taskIDs = append(taskIDs, d.tm.AddTask(func(tc *task.Context) {
			logger.Info("PARSE IMP", "source", u.Files.Source, "ldeps", u.Files.LDeps)
			if err := fsutil.CreateDirsForFile(u.Files.LDeps); err != nil {
				d.status.fail(err)
				tc.Successful = false
				return
			}

			cmd := command.ParseImport(
				d.frontendOpts(true), u.Files.Source, u.ID,
				u.Files.LDeps, u.Files.LDepsMeta,
				d.cfg.ExtraParseArgs,
			)
			warning, err := d.execute(ctx, cmd)
			d.status.warn(warning)
			if err != nil {
				d.status.fail(fmt.Errorf("parse imports %s: %w", u.ID, err))
				tc.Successful = false
				return
			}
			d.checker.InvalidateMeta(u.Files.LDepsMeta)
		}))
	}

	if !d.tm.WaitForTasks(taskIDs...) {
		d.status.fail(errors.New("parse imports: phase failed"))
	}
}

// solveDependencies decodes all parsed-imports records, builds the graph
// and computes each node's transitive dependency list.
func (d *Driver) solveDependencies(ctx context.Context) {
	if !d.status.valid() {
		return
	}
	logger := ctxlog.FromContext(ctx)

	parsed := make(depgraph.ParsedDeps, len(d.units))
	for _, u := range d.sortedUnits() {
		rec, err := ldeps.Load(u.Files.LDeps)
		if err != nil {
			if d.cfg.DryRun {
				// Without executing children there may be nothing to
				// decode; the command dump is the dry run's output.
				logger.Debug("Dry run: no parsed imports to solve.", "unit", u.ID)
				return
			}
			d.status.fail(fmt.Errorf("failed to read parsed imports of %s: %w", u.ID, err))
			return
		}

		deps := &depgraph.UnitDeps{
			IsPublic:   rec.IsPublic,
			IsExternal: u.External || rec.IsExternal,
		}
		for _, imp := range rec.DeclImports {
			deps.DeclDeps = append(deps.DeclDeps, d.pool.Intern(imp))
		}
		for _, imp := range rec.BodyImports {
			deps.DefDeps = append(deps.DefDeps, d.pool.Intern(imp))
		}
		parsed[d.pool.Intern(u.ID)] = deps
	}

	graph, err := depgraph.Build(parsed, d.pool)
	if err != nil {
		d.status.fail(fmt.Errorf("dependencies solver: %w", err))
		return
	}

	if d.cfg.Trace {
		var sb strings.Builder
		graph.Dump(&sb)
		logger.Debug("Dependency graph:\n" + sb.String())
	}

	solved, err := solver.Solve(graph)
	if err != nil {
		d.status.fail(fmt.Errorf("dependencies solver: %w", err))
		return
	}
	d.solved = solved

	if d.cfg.Trace {
		all := make(depgraph.NodesSet, len(graph.Nodes()))
		for nid := range graph.Nodes() {
			all[nid] = struct{}{}
		}
		var sb strings.Builder
		for _, nid := range all.Sorted() {
			fmt.Fprintf(&sb, "[%s] %s\n", nid, graph.UnitPath(nid))
			for _, dep := range solved.RangedDependencies(nid) {
				fmt.Fprintf(&sb, "    [%s] %s\n", dep, graph.UnitPath(dep))
			}
		}
		logger.Debug("Solved dependencies:\n" + sb.String())
	}

	logger.Debug("Dependency graph solved.", "nodes", len(graph.Nodes()))
}

// codeGen walks the solved graph from terminals to roots and rebuilds
// every stale node.
func (d *Driver) codeGen(ctx context.Context) {
	if !d.status.valid() || d.solved == nil {
		return
	}

	if !d.solved.DfsJobs(d.tm, func(n *depgraph.Node) bool {
		return d.processNode(ctx, n)
	}) {
		d.status.fail(errors.New("codegen: phase failed"))
	}
}

func (d *Driver) processNode(ctx context.Context, n *depgraph.Node) bool {
	switch n.Kind {
	case depgraph.KindDefinition:
		return d.processDefinition(ctx, n)
	default:
		return d.processDeclaration(ctx, n)
	}
}

// unitOf resolves the registered unit of a graph node.
func (d *Driver) unitOf(n *depgraph.Node) (*Unit, bool) {
	u, ok := d.units[d.solved.Graph().UnitPath(n.ID)]
	if !ok {
		d.status.fail(fmt.Errorf(
			"unit %s is present in dependencies but was never collected",
			d.solved.Graph().UnitPath(n.ID),
		))
	}
	return u, ok
}

// declASTDependencies maps a node's solved dependency list to the
// declaration-AST artifact paths handed to the front-end.
func (d *Driver) declASTDependencies(n *depgraph.Node) ([]string, bool) {
	depIDs := d.solved.RangedDependencies(n.ID)
	paths := make([]string, 0, len(depIDs))
	for _, depID := range depIDs {
		depUnit, ok := d.units[d.solved.Graph().UnitPath(depID)]
		if !ok {
			d.status.fail(fmt.Errorf(
				"dependency %s has no collected unit", d.solved.Graph().UnitPath(depID),
			))
			return nil, false
		}
		paths = append(paths, depUnit.Files.DeclAST)
	}
	return paths, true
}

func (d *Driver) processDefinition(ctx context.Context, n *depgraph.Node) bool {
	logger := ctxlog.FromContext(ctx)

	u, ok := d.unitOf(n)
	if !ok {
		return false
	}

	state := d.checker.CheckArtifact(
		u.Files.Object, u.Files.ObjectMeta, u.Files.Source, n.Dependencies,
	)
	if state.UpToDate {
		logger.Debug("Object up to date.", "unit", u.ID)
		return true
	}

	deps, ok := d.declASTDependencies(n)
	if !ok {
		return false
	}

	logger.Info("BUILD OBJ", "unit", u.ID, "out", u.Files.Object)
	if err := fsutil.CreateDirsForFile(u.Files.Object); err != nil {
		d.status.fail(err)
		return false
	}

	cmd := command.BuildObj(
		d.frontendOpts(true), u.Files.Source, u.ID, deps,
		u.Files.Object, u.Files.ObjectMeta,
		d.cfg.ExtraParseArgs, d.cfg.ExtraCodeGenArgs,
	)
	warning, err := d.execute(ctx, cmd)
	d.status.warn(warning)
	if err != nil {
		d.status.fail(fmt.Errorf("build obj %s: %w", u.ID, err))
		return false
	}

	// Objects are terminal outputs: they never cascade, but any rebuilt
	// object forces the link.
	d.checker.InvalidateMeta(u.Files.ObjectMeta)
	d.checker.MarkObjectsUpdated()
	return true
}

func (d *Driver) processDeclaration(ctx context.Context, n *depgraph.Node) bool {
	logger := ctxlog.FromContext(ctx)

	u, ok := d.unitOf(n)
	if !ok {
		return false
	}

	state := d.checker.CheckArtifact(
		u.Files.DeclAST, u.Files.DeclASTMeta, u.Files.Source, n.Dependencies,
	)
	if state.UpToDate {
		logger.Debug("Declaration up to date.", "unit", u.ID)
		return true
	}

	deps, ok := d.declASTDependencies(n)
	if !ok {
		return false
	}

	logger.Info("BUILD DECL", "unit", u.ID, "out", u.Files.DeclAST)
	if err := fsutil.CreateDirsForFile(u.Files.DeclAST); err != nil {
		d.status.fail(err)
		return false
	}

	// The same unit's definition compile reports identical diagnostics;
	// suppress the duplicate set here.
	suppressWarnings := n.Unit.Definition != nil

	cmd := command.BuildDecl(
		d.frontendOpts(true), u.Files.Source, u.ID, deps,
		u.Files.DeclAST, u.Files.DeclASTMeta,
		suppressWarnings, d.cfg.ExtraParseArgs,
	)
	warning, err := d.execute(ctx, cmd)
	d.status.warn(warning)
	if err != nil {
		d.status.fail(fmt.Errorf("build decl %s: %w", u.ID, err))
		return false
	}

	if d.cfg.DryRun {
		return true
	}

	d.checker.InvalidateMeta(u.Files.DeclASTMeta)
	newMeta, err := d.checker.LoadMeta(u.Files.DeclASTMeta)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.status.fail(fmt.Errorf("front-end produced no meta for %s", u.ID))
		} else {
			d.status.fail(fmt.Errorf("meta of %s: %w", u.ID, err))
		}
		return false
	}

	// The rebuild cascades iff the declaration artifact actually changed.
	if state.PriorMeta == nil || state.PriorMeta.ArtifactHash != newMeta.ArtifactHash {
		d.checker.MarkUpdated(n.ID)
	}

	return d.generateOutputs(ctx, n, u, newMeta.Fragments)
}

// execute runs one child command and counts the invocation.
func (d *Driver) execute(ctx context.Context, cmd *command.Command) (string, error) {
	if !d.cfg.DryRun {
		d.children.Add(1)
	}
	return cmd.Execute(ctx, d.runner, d.cfg.DryRun)
}

// link runs the final link over all project objects, unless nothing was
// rebuilt and the output still exists.
func (d *Driver) link(ctx context.Context) {
	if !d.status.valid() || d.cfg.DryRun {
		return
	}
	logger := ctxlog.FromContext(ctx)

	if !d.checker.ObjectsUpdated() && fsutil.Exists(d.cfg.Output) {
		logger.Debug("Link output up to date.", "output", d.cfg.Output)
		return
	}

	var objects []string
	for _, u := range d.sortedUnits() {
		if !u.External {
			objects = append(objects, u.Files.Object)
		}
	}
	if len(objects) == 0 {
		d.status.fail(errors.New("link: no project objects"))
		return
	}

	logger.Info("LINK", "output", d.cfg.Output, "objects", len(objects))
	if err := fsutil.CreateDirsForFile(d.cfg.Output); err != nil {
		d.status.fail(err)
		return
	}

	cmd := command.Link(d.cfg.Linker, objects, d.cfg.Output, d.cfg.StdLib, d.cfg.ExtraLinkArgs)
	warning, err := d.execute(ctx, cmd)
	d.status.warn(warning)
	if err != nil {
		d.status.fail(fmt.Errorf("link: phase failed: %w", err))
	}
}

// buildRootExcludes computes walk exclusions so artifacts under the build
// root are never collected as sources.
func buildRootExcludes(sourcesRoot, buildRoot string) []string {
	rel, err := relUnder(sourcesRoot, buildRoot)
	if err != nil {
		// The build root lives outside the source tree; nothing to
		// exclude.
		return nil
	}
	return []string{rel, rel + "/**"}
}
