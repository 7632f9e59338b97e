// Package depgraph builds the bipartite dependency graph the build walk
// runs over.
//
// Every unit contributes a Declaration node; non-external units contribute
// a Definition node as well. An ordinary import of X by Y makes both of Y's
// nodes depend on Declaration(X); a body-only import affects only
// Definition(Y). No edge connects a unit's Definition to its own
// Declaration: the definition compile re-parses the full source, so the
// declaration AST is never preloaded for it.
//
// Body-only imports are the language's mechanism for breaking mutual
// references between two units; the builder honors that declared split and
// performs no other topological repair. A graph with nodes but no roots is
// marked invalid: a cycle among declarations is a fatal input error,
// diagnosed with full paths by the solver.
package depgraph
