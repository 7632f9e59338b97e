// cppl-deps decodes parsed-imports records, builds and solves the
// dependency graph, and dumps both. It is a diagnostic companion to the
// cppl driver and shares all of its core packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kaomoneus/cppl/internal/cli"
	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/fsutil"
	"github.com/kaomoneus/cppl/internal/ldeps"
	"github.com/kaomoneus/cppl/internal/solver"
	"github.com/kaomoneus/cppl/internal/strpool"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitBuildFailed)
	}
}

func run(outW io.Writer, args []string) error {
	flagSet := flag.NewFlagSet("cppl-deps", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	buildRoot := flagSet.String("buildRoot", "./build", "Build root holding the .ldeps records.")
	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return &cli.ExitError{Code: cli.ExitWrongArguments, Message: err.Error()}
	}

	// Positional arguments name individual records; by default every
	// record under the build root is solved.
	files := flagSet.Args()
	if len(files) == 0 {
		found, err := fsutil.FindFilesByExtension(*buildRoot, ".ldeps")
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", *buildRoot, err)
		}
		for _, rel := range found {
			files = append(files, filepath.Join(*buildRoot, filepath.FromSlash(rel)))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no .ldeps records under %s", *buildRoot)
	}

	pool := strpool.New()
	parsed := make(depgraph.ParsedDeps, len(files))
	for _, path := range files {
		rec, err := ldeps.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		deps := &depgraph.UnitDeps{
			IsPublic:   rec.IsPublic,
			IsExternal: rec.IsExternal,
		}
		for _, imp := range rec.DeclImports {
			deps.DeclDeps = append(deps.DeclDeps, pool.Intern(imp))
		}
		for _, imp := range rec.BodyImports {
			deps.DefDeps = append(deps.DefDeps, pool.Intern(imp))
		}
		parsed[pool.Intern(rec.UnitID)] = deps
	}

	graph, err := depgraph.Build(parsed, pool)
	if err != nil {
		return err
	}
	graph.Dump(outW)

	solved, err := solver.Solve(graph)
	if err != nil {
		return err
	}

	fmt.Fprintln(outW)
	fmt.Fprintln(outW, "Solved dependencies:")
	for _, nid := range sortedNodeIDs(graph) {
		fmt.Fprintf(outW, "[%s] %s\n", nid, graph.UnitPath(nid))
		for _, dep := range solved.RangedDependencies(nid) {
			fmt.Fprintf(outW, "    [%s] %s\n", dep, graph.UnitPath(dep))
		}
	}

	return nil
}

func sortedNodeIDs(g *depgraph.Graph) []depgraph.NodeID {
	all := make(depgraph.NodesSet, len(g.Nodes()))
	for nid := range g.Nodes() {
		all[nid] = struct{}{}
	}
	return all.Sorted()
}
