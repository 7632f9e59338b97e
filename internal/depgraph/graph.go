package depgraph

import (
	"fmt"
	"io"
	"sort"

	"github.com/kaomoneus/cppl/internal/strpool"
)

// NodesSet is a set of node IDs.
type NodesSet map[NodeID]struct{}

// Contains reports set membership.
func (s NodesSet) Contains(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the set's members in ascending ID order. Dumps and
// schedulers use it so their output does not depend on map iteration order.
func (s NodesSet) Sorted() []NodeID {
	ids := make([]NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Unit ties the up-to-two nodes of a source unit together.
type Unit struct {
	// Path is the interned unit identifier.
	Path strpool.ID
	// Declaration always exists.
	Declaration *Node
	// Definition is nil for external units.
	Definition *Node
}

// Node is one vertex of the bipartite graph.
type Node struct {
	ID   NodeID
	Kind NodeKind
	// Unit backlinks to the owning unit. It is nil only while the graph is
	// under construction; Build fails if any node ends up without one.
	Unit *Unit
	// Dependencies are the node's outgoing edges: the declarations it
	// needs preloaded.
	Dependencies NodesSet
	// Dependents are the incoming edges: nodes that need this one.
	Dependents NodesSet
}

// UnitDeps is the decoded parsed-imports input for one unit, with import
// targets already interned.
type UnitDeps struct {
	DeclDeps   []strpool.ID
	DefDeps    []strpool.ID
	IsPublic   bool
	IsExternal bool
}

// ParsedDeps maps every unit to its parsed imports.
type ParsedDeps map[strpool.ID]*UnitDeps

// Graph is the built dependency graph. It is immutable after Build and safe
// for concurrent reads.
type Graph struct {
	nodes map[NodeID]*Node
	units map[strpool.ID]*Unit

	// roots have no dependencies; terminals have no dependents and are the
	// starting points of the build walk.
	roots     NodesSet
	terminals NodesSet

	publicNodes   NodesSet
	externalNodes NodesSet

	invalid bool

	pool *strpool.Pool
}

// Build assembles the graph from parsed imports. It fails on an import of a
// unit no record was produced for. A cyclic graph is returned with
// Invalid() set rather than as an error; the solver diagnoses cycle paths.
func Build(parsed ParsedDeps, pool *strpool.Pool) (*Graph, error) {
	g := &Graph{
		nodes:         make(map[NodeID]*Node),
		units:         make(map[strpool.ID]*Unit),
		roots:         make(NodesSet),
		terminals:     make(NodesSet),
		publicNodes:   make(NodesSet),
		externalNodes: make(NodesSet),
		pool:          pool,
	}

	for pathID, deps := range parsed {
		unit := g.createUnit(pathID, deps.IsExternal)

		if len(deps.DeclDeps) == 0 {
			// A declaration with no dependencies is a root; if the
			// definition has none either it is a root too.
			g.roots[unit.Declaration.ID] = struct{}{}
			if len(deps.DefDeps) == 0 && !deps.IsExternal {
				g.roots[unit.Definition.ID] = struct{}{}
			}
		}

		g.addDependencies(unit.Declaration, deps.DeclDeps)

		if !deps.IsExternal {
			// The definition carries both the ordinary and the body-only
			// dependencies.
			g.addDependencies(unit.Definition, deps.DeclDeps)
			g.addDependencies(unit.Definition, deps.DefDeps)
		}

		if deps.IsPublic {
			g.publicNodes[unit.Declaration.ID] = struct{}{}
		}
		if deps.IsExternal {
			g.externalNodes[unit.Declaration.ID] = struct{}{}
		}
	}

	// Imports may reference units that produced no parsed-imports record;
	// such nodes exist but have no owning unit.
	var unknown []string
	for _, n := range g.nodes {
		if n.Unit == nil {
			unknown = append(unknown, pool.Get(n.ID.Unit()))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown import target(s): %v", unknown)
	}

	if len(g.nodes) > 0 && len(g.roots) == 0 {
		g.invalid = true
	}

	g.collectTerminals()
	g.collectPublicNodes()

	return g, nil
}

// Node returns the node with the given ID. It panics on unknown IDs: every
// ID handed out by the graph resolves.
func (g *Graph) Node(id NodeID) *Node {
	n, ok := g.nodes[id]
	if !ok {
		panic(fmt.Sprintf("depgraph: unknown node %s", id))
	}
	return n
}

// Nodes returns all nodes keyed by ID.
func (g *Graph) Nodes() map[NodeID]*Node { return g.nodes }

// UnitCount reports how many units contributed nodes.
func (g *Graph) UnitCount() int { return len(g.units) }

// Roots returns the nodes without dependencies.
func (g *Graph) Roots() NodesSet { return g.roots }

// Terminals returns the nodes without dependents, the walk starting points.
func (g *Graph) Terminals() NodesSet { return g.terminals }

// IsPublic reports whether the node is part of the exported library
// surface.
func (g *Graph) IsPublic(id NodeID) bool { return g.publicNodes.Contains(id) }

// IsExternal reports whether the node belongs to a library unit.
func (g *Graph) IsExternal(id NodeID) bool { return g.externalNodes.Contains(id) }

// Invalid reports that the graph has nodes but no roots, i.e. every
// declaration chain closes on itself.
func (g *Graph) Invalid() bool { return g.invalid }

// UnitPath resolves the unit identifier string of a node.
func (g *Graph) UnitPath(id NodeID) string {
	return g.pool.Get(id.Unit())
}

func (g *Graph) createUnit(pathID strpool.ID, isExternal bool) *Unit {
	unit, ok := g.units[pathID]
	if !ok {
		unit = &Unit{Path: pathID}
		g.units[pathID] = unit
	}

	decl := g.getOrCreateNode(KindDeclaration, pathID)
	decl.Unit = unit
	unit.Declaration = decl

	// Note that the definition node does not depend on the declaration
	// node: the definition compile re-parses the whole source, so the
	// declaration AST is not preloaded for it.
	if !isExternal {
		def := g.getOrCreateNode(KindDefinition, pathID)
		def.Unit = unit
		unit.Definition = def
	}

	return unit
}

func (g *Graph) addDependencies(dependent *Node, deps []strpool.ID) {
	for _, dep := range deps {
		declDep := g.getOrCreateNode(KindDeclaration, dep)
		dependent.Dependencies[declDep.ID] = struct{}{}
		declDep.Dependents[dependent.ID] = struct{}{}
	}
}

func (g *Graph) getOrCreateNode(kind NodeKind, pathID strpool.ID) *Node {
	id := MakeNodeID(kind, pathID)
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{
		ID:           id,
		Kind:         kind,
		Dependencies: make(NodesSet),
		Dependents:   make(NodesSet),
	}
	g.nodes[id] = n
	return n
}

func (g *Graph) collectTerminals() {
	for id, n := range g.nodes {
		if len(n.Dependents) == 0 {
			g.terminals[id] = struct{}{}
		}
	}
}

// collectPublicNodes closes the public set under declaration edges: every
// node reachable from a public node along its dependencies becomes public
// too. The walk starts at terminals and propagates toward roots.
func (g *Graph) collectPublicNodes() {
	visited := make(map[NodeID]bool)
	for _, id := range g.terminals.Sorted() {
		g.markPublicFrom(visited, id, false)
	}
}

// markPublicFrom walks id's dependencies. visited records whether a node was
// walked with the public mark; a node first reached over a private path is
// walked again when a public path reaches it.
func (g *Graph) markPublicFrom(visited map[NodeID]bool, id NodeID, markPublic bool) {
	if g.publicNodes.Contains(id) {
		markPublic = true
	} else if markPublic {
		g.publicNodes[id] = struct{}{}
	}

	if walkedPublic, seen := visited[id]; seen && (walkedPublic || !markPublic) {
		return
	}
	visited[id] = markPublic

	for _, dep := range g.Node(id).Dependencies.Sorted() {
		g.markPublicFrom(visited, dep, markPublic)
	}
}

// Dump writes a human-readable rendering of the graph in breadth-first
// order from the roots.
func (g *Graph) Dump(w io.Writer) {
	if len(g.roots) == 0 {
		fmt.Fprintf(w, "(empty)\n")
		return
	}

	visited := make(NodesSet)
	worklist := g.roots.Sorted()
	for len(worklist) > 0 {
		var next []NodeID
		for _, id := range worklist {
			if visited.Contains(id) {
				continue
			}
			visited[id] = struct{}{}

			n := g.Node(id)
			g.dumpNode(w, n)
			next = append(next, n.Dependents.Sorted()...)
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		worklist = next
	}

	fmt.Fprintf(w, "Terminals:\n")
	for _, id := range g.terminals.Sorted() {
		fmt.Fprintf(w, "    [%s] %s\n", id, g.UnitPath(id))
	}

	if len(visited) < len(g.nodes) {
		fmt.Fprintf(w, "Isolated nodes:\n")
		all := make(NodesSet, len(g.nodes))
		for id := range g.nodes {
			all[id] = struct{}{}
		}
		for _, id := range all.Sorted() {
			if !visited.Contains(id) {
				g.dumpNode(w, g.nodes[id])
			}
		}
	}
}

func (g *Graph) dumpNode(w io.Writer, n *Node) {
	marker := ""
	if g.roots.Contains(n.ID) {
		marker = "(root)"
	}
	fmt.Fprintf(w, "Node%s[%s] %s\n", marker, n.ID, g.UnitPath(n.ID))
	if len(n.Dependents) > 0 {
		fmt.Fprintf(w, "    Is used by:\n")
		for _, dep := range n.Dependents.Sorted() {
			fmt.Fprintf(w, "        [%s] %s\n", dep, g.UnitPath(dep))
		}
	}
	if len(n.Dependencies) > 0 {
		fmt.Fprintf(w, "    Dependencies:\n")
		for _, dep := range n.Dependencies.Sorted() {
			fmt.Fprintf(w, "        [%s] %s\n", dep, g.UnitPath(dep))
		}
	}
}
