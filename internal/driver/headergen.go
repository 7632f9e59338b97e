package driver

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kaomoneus/cppl/internal/ctxlog"
	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/fsutil"
	"github.com/kaomoneus/cppl/internal/meta"
	"github.com/kaomoneus/cppl/internal/unitid"
)

// genMode selects what the generator emits from a public declaration.
type genMode int

const (
	// modeHeader emits a C++ header with include-style wrapping.
	modeHeader genMode = iota
	// modeSurrogate emits a declaration-only unit with import-style
	// wrapping.
	modeSurrogate
)

// headerGenerator transforms a unit source into its exported header or
// declaration surrogate by applying the fragment actions recorded by the
// declaration compile.
type headerGenerator struct {
	unitID     string
	sourcePath string
	outPath    string

	// includes are the unit's direct dependencies: header paths in header
	// mode, unit identifiers in surrogate mode.
	includes []string
	// preambleSource is included when the unit has no dependencies.
	preambleSource string

	fragments []meta.Fragment
	mode      genMode
}

// execute reads the source, applies the fragment list and writes the
// transformed output.
func (g *headerGenerator) execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("GEN HEADER", "unit", g.unitID, "out", g.outPath)

	source, err := os.ReadFile(g.sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", g.sourcePath, err)
	}

	var out strings.Builder
	g.emitHead(&out)

	if err := g.applyFragments(&out, source); err != nil {
		return fmt.Errorf("%s: %w", g.sourcePath, err)
	}

	if err := fsutil.CreateDirsForFile(g.outPath); err != nil {
		return err
	}
	return os.WriteFile(g.outPath, []byte(out.String()), 0o644)
}

func (g *headerGenerator) emitHead(out *strings.Builder) {
	out.WriteString("// This file is generated by the cppl driver.\n\n")

	if len(g.includes) == 0 {
		if g.preambleSource != "" {
			g.emitInclude(out, g.preambleSource)
		}
		out.WriteString("\n")
		return
	}

	for _, inc := range g.includes {
		g.emitInclude(out, inc)
	}
	out.WriteString("\n")
}

func (g *headerGenerator) emitInclude(out *strings.Builder, inc string) {
	switch g.mode {
	case modeSurrogate:
		fmt.Fprintf(out, "#import %s\n", inc)
	default:
		fmt.Fprintf(out, "#include \"%s\"\n", inc)
	}
}

// applyFragments copies the source into out, rewriting every fragment
// range according to its action. Fragment bounds are validated against the
// source length; the list is sorted and non-overlapping by codec contract.
func (g *headerGenerator) applyFragments(out *strings.Builder, source []byte) error {
	pos := uint32(0)
	size := uint32(len(source))

	for _, f := range g.fragments {
		if f.Start < pos || f.End > size {
			return fmt.Errorf(
				"fragment [%d, %d) out of bounds (source size %d)", f.Start, f.End, size,
			)
		}

		out.Write(source[pos:f.Start])
		g.emitFragment(out, source[f.Start:f.End], f.Action)
		pos = f.End
	}

	out.Write(source[pos:])
	return nil
}

func (g *headerGenerator) emitFragment(out *strings.Builder, original []byte, action meta.FragmentAction) {
	switch action {
	case meta.ActionSkip:
		// Dropped in both modes.

	case meta.ActionSkipInHeaderOnly:
		if g.mode == modeSurrogate {
			out.Write(original)
		}

	case meta.ActionReplaceWithSemicolon:
		out.WriteString(";")

	case meta.ActionPutExtern:
		// A zero-width anchor: insert and keep whatever the range held.
		out.WriteString("extern ")
		out.Write(original)

	case meta.ActionStartUnit, meta.ActionStartUnitFirstDecl:
		out.WriteString(g.openScope())

	case meta.ActionEndUnit, meta.ActionEndUnitEOF:
		out.WriteString(g.closeScope())
	}
}

// openScope renders the unit scope opener: nested namespaces for headers,
// a unit marker for surrogates.
func (g *headerGenerator) openScope() string {
	if g.mode == modeSurrogate {
		return "#unit " + g.unitID + "\n"
	}

	var sb strings.Builder
	for _, c := range unitid.Components(g.unitID) {
		fmt.Fprintf(&sb, "namespace %s { ", c)
	}
	sb.WriteString("\n")
	return sb.String()
}

func (g *headerGenerator) closeScope() string {
	if g.mode == modeSurrogate {
		return "#endunit\n"
	}

	n := len(unitid.Components(g.unitID))
	return strings.Repeat("} ", n) + "// namespace " + g.unitID + "\n"
}

// generateOutputs emits the header and the declaration surrogate of a
// public declaration node, when those outputs were requested.
func (d *Driver) generateOutputs(ctx context.Context, n *depgraph.Node, u *Unit, fragments []meta.Fragment) bool {
	graph := d.solved.Graph()
	if !graph.IsPublic(n.ID) {
		return true
	}

	if u.Files.Header != "" {
		g := &headerGenerator{
			unitID:         u.ID,
			sourcePath:     u.Files.Source,
			outPath:        u.Files.Header,
			includes:       d.headerIncludes(n),
			preambleSource: d.cfg.PreambleSource,
			fragments:      fragments,
			mode:           modeHeader,
		}
		if err := g.execute(ctx); err != nil {
			d.status.fail(fmt.Errorf("header generation %s: %w", u.ID, err))
			return false
		}
	}

	if u.Files.DeclSurrogate != "" && !u.External {
		g := &headerGenerator{
			unitID:         u.ID,
			sourcePath:     u.Files.Source,
			outPath:        u.Files.DeclSurrogate,
			includes:       d.surrogateImports(n),
			preambleSource: d.cfg.PreambleSource,
			fragments:      fragments,
			mode:           modeSurrogate,
		}
		if err := g.execute(ctx); err != nil {
			d.status.fail(fmt.Errorf("decl surrogate generation %s: %w", u.ID, err))
			return false
		}
	}

	return true
}

// headerIncludes renders the node's direct dependencies as header include
// paths.
func (d *Driver) headerIncludes(n *depgraph.Node) []string {
	var incs []string
	for _, depID := range n.Dependencies.Sorted() {
		depPath := d.solved.Graph().UnitPath(depID)
		incs = append(incs, unitid.ToRelPath(depPath, HeaderExt))
	}
	sort.Strings(incs)
	return incs
}

// surrogateImports renders the node's direct dependencies as unit
// references.
func (d *Driver) surrogateImports(n *depgraph.Node) []string {
	var imps []string
	for _, depID := range n.Dependencies.Sorted() {
		imps = append(imps, d.solved.Graph().UnitPath(depID))
	}
	sort.Strings(imps)
	return imps
}
