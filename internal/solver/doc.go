// Package solver computes, for every node of the dependency graph, the
// ordered transitive set of declaration artifacts that must be preloaded to
// compile it, and exposes the parallel depth-first walk the codegen phase
// runs over the graph.
//
// The ordering is the classic DFS topological one: each node is tagged with
// the size of the ordering stack at the moment it is finished, and a node's
// full dependency list is keyed by those tags, so deeper dependencies
// always precede the nodes that need them. Lists are deduplicated within a
// node but may repeat between nodes.
//
// Solving is also where declaration cycles are diagnosed: any node chain
// not cut by a body-only import shows up as a cycle here and fails the
// build with the offending paths (up to a fixed number of them) rendered
// for the user.
package solver
