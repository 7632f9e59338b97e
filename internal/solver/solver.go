package solver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kaomoneus/cppl/internal/depgraph"
)

// ErrCycles is wrapped by Solve's error when the graph contains dependency
// cycles.
var ErrCycles = errors.New("dependency cycles found")

// maxReportedCycles bounds how many distinct cycles a single failure
// reports.
const maxReportedCycles = 10

type nodeInfo struct {
	// stackSize is the DFS topological-order tag of the node.
	stackSize int
	// fullDeps maps an order tag to the dependency carrying it. Keys are
	// unique per node, so the map doubles as the dedup set.
	fullDeps map[int]depgraph.NodeID
}

// Solved carries the graph together with each node's solved transitive
// dependencies. It is immutable after Solve and safe for concurrent reads.
type Solved struct {
	graph  *depgraph.Graph
	infos  map[depgraph.NodeID]*nodeInfo
	cycles []cyclePath
}

// cyclePath records the nodes of one detected cycle with their distance
// from the walk's starting terminal, for rendering in walk order.
type cyclePath map[depgraph.NodeID]int

// sortedByPath orders a node set by unit path then kind. Interned IDs
// depend on discovery order, so ordering by them would leak map iteration
// order into the solved ranges; path order is stable across runs.
func (s *Solved) sortedByPath(set depgraph.NodesSet) []depgraph.NodeID {
	ids := set.Sorted()
	sort.SliceStable(ids, func(i, j int) bool {
		pi, pj := s.graph.UnitPath(ids[i]), s.graph.UnitPath(ids[j])
		if pi != pj {
			return pi < pj
		}
		return ids[i].Kind() < ids[j].Kind()
	})
	return ids
}

// Solve computes the transitive dependency lists. It fails if the graph is
// invalid or any cycle is found.
func Solve(g *depgraph.Graph) (*Solved, error) {
	s := &Solved{
		graph: g,
		infos: make(map[depgraph.NodeID]*nodeInfo),
	}

	stackSize := 0
	for _, nid := range s.sortedByPath(g.Terminals()) {
		s.dfsSolve(g.Node(nid), 0, &stackSize, make(cyclePath))
	}

	// Nodes not reached from any terminal can only sit on isolated
	// cycles; hunt those down for diagnostics.
	s.findIsolatedCycles()

	if g.Invalid() || len(s.cycles) > 0 {
		return nil, fmt.Errorf("%w:\n%s", ErrCycles, s.renderCycles())
	}

	return s, nil
}

// Graph returns the underlying dependency graph.
func (s *Solved) Graph() *depgraph.Graph { return s.graph }

// RangedDependencies returns the node's full transitive dependency list,
// deepest dependencies first.
func (s *Solved) RangedDependencies(nid depgraph.NodeID) []depgraph.NodeID {
	info, ok := s.infos[nid]
	if !ok {
		return nil
	}

	ranges := make([]int, 0, len(info.fullDeps))
	for r := range info.fullDeps {
		ranges = append(ranges, r)
	}
	sort.Ints(ranges)

	deps := make([]depgraph.NodeID, 0, len(ranges))
	for _, r := range ranges {
		deps = append(deps, info.fullDeps[r])
	}
	return deps
}

// dfsSolve finds the topological order tag for n and accumulates its full
// dependency set from its children's sets. distFromTerm tracks the distance
// from the starting terminal, used only to render cycles in walk order.
func (s *Solved) dfsSolve(n *depgraph.Node, distFromTerm int, stackSize *int, cycleCandidate cyclePath) {
	if _, onPath := cycleCandidate[n.ID]; onPath {
		s.addCycle(cycleCandidate)
		return
	}
	cycleCandidate[n.ID] = distFromTerm
	defer delete(cycleCandidate, n.ID)

	if _, visited := s.infos[n.ID]; visited {
		return
	}
	info := &nodeInfo{fullDeps: make(map[int]depgraph.NodeID)}
	s.infos[n.ID] = info

	for _, depID := range s.sortedByPath(n.Dependencies) {
		dep := s.graph.Node(depID)
		s.dfsSolve(dep, distFromTerm+1, stackSize, cycleCandidate)

		depInfo, ok := s.infos[depID]
		if !ok {
			// Only possible on a cyclic path; the cycle is already
			// recorded and the build will fail.
			continue
		}
		for r, nid := range depInfo.fullDeps {
			info.fullDeps[r] = nid
		}
		info.fullDeps[depInfo.stackSize] = depID
	}

	info.stackSize = *stackSize
	*stackSize++
}

func (s *Solved) addCycle(c cyclePath) {
	if len(s.cycles) >= maxReportedCycles {
		return
	}
	clone := make(cyclePath, len(c))
	for nid, dist := range c {
		clone[nid] = dist
	}
	s.cycles = append(s.cycles, clone)
}

func (s *Solved) findIsolatedCycles() {
	if len(s.infos) == len(s.graph.Nodes()) {
		return
	}

	isolated := make(depgraph.NodesSet)
	for nid := range s.graph.Nodes() {
		if _, ok := s.infos[nid]; !ok {
			isolated[nid] = struct{}{}
		}
	}

	visited := make(depgraph.NodesSet)
	for _, nid := range isolated.Sorted() {
		if !visited.Contains(nid) {
			s.findCyclesDFS(isolated, nid, visited, 0, make(cyclePath))
		}
	}
}

func (s *Solved) findCyclesDFS(
	subgraph depgraph.NodesSet,
	nid depgraph.NodeID,
	visited depgraph.NodesSet,
	dist int,
	cycleCandidate cyclePath,
) {
	if _, onPath := cycleCandidate[nid]; onPath {
		s.addCycle(cycleCandidate)
		return
	}
	cycleCandidate[nid] = dist
	defer delete(cycleCandidate, nid)

	if visited.Contains(nid) {
		return
	}
	visited[nid] = struct{}{}

	for _, dep := range s.graph.Node(nid).Dependencies.Sorted() {
		if subgraph.Contains(dep) {
			s.findCyclesDFS(subgraph, dep, visited, dist+1, cycleCandidate)
		}
	}
}

func (s *Solved) renderCycles() string {
	var sb strings.Builder
	for i, c := range s.cycles {
		fmt.Fprintf(&sb, "cycle #%d:\n", i)

		type entry struct {
			nid  depgraph.NodeID
			dist int
		}
		path := make([]entry, 0, len(c))
		for nid, dist := range c {
			path = append(path, entry{nid, dist})
		}
		sort.Slice(path, func(i, j int) bool { return path[i].dist < path[j].dist })

		for _, e := range path {
			fmt.Fprintf(&sb, "  [%s] %s\n", e.nid, s.graph.UnitPath(e.nid))
		}
	}
	if len(s.cycles) == 0 {
		sb.WriteString("  (cycle paths unavailable)\n")
	}
	return sb.String()
}
