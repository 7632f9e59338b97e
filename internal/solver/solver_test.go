package solver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/strpool"
)

type fixtureUnit struct {
	decl     []string
	body     []string
	external bool
}

func solveFixture(t *testing.T, units map[string]fixtureUnit) (*Solved, *strpool.Pool, error) {
	t.Helper()
	pool := strpool.New()
	parsed := make(depgraph.ParsedDeps)
	for name, u := range units {
		deps := &depgraph.UnitDeps{IsExternal: u.external}
		for _, d := range u.decl {
			deps.DeclDeps = append(deps.DeclDeps, pool.Intern(d))
		}
		for _, d := range u.body {
			deps.DefDeps = append(deps.DefDeps, pool.Intern(d))
		}
		parsed[pool.Intern(name)] = deps
	}
	g, err := depgraph.Build(parsed, pool)
	require.NoError(t, err)
	s, err := Solve(g)
	return s, pool, err
}

func decl(pool *strpool.Pool, name string) depgraph.NodeID {
	id, _ := pool.Lookup(name)
	return depgraph.MakeNodeID(depgraph.KindDeclaration, id)
}

func def(pool *strpool.Pool, name string) depgraph.NodeID {
	id, _ := pool.Lookup(name)
	return depgraph.MakeNodeID(depgraph.KindDefinition, id)
}

func depNames(s *Solved, pool *strpool.Pool, nid depgraph.NodeID) []string {
	var names []string
	for _, dep := range s.RangedDependencies(nid) {
		names = append(names, s.Graph().UnitPath(dep))
	}
	return names
}

func TestSolveChainOrder(t *testing.T) {
	// main -> B -> A: main's full deps must list A before B.
	s, pool, err := solveFixture(t, map[string]fixtureUnit{
		"A":    {},
		"B":    {decl: []string{"A"}},
		"main": {decl: []string{"B"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, depNames(s, pool, decl(pool, "main")))
	assert.Equal(t, []string{"A", "B"}, depNames(s, pool, def(pool, "main")))
	assert.Equal(t, []string{"A"}, depNames(s, pool, decl(pool, "B")))
	assert.Empty(t, depNames(s, pool, decl(pool, "A")))
}

func TestSolveDeduplicatesDiamond(t *testing.T) {
	// D imports B and C, both of which import A: A appears once in D's
	// full dependency list and before B and C.
	s, pool, err := solveFixture(t, map[string]fixtureUnit{
		"A": {},
		"B": {decl: []string{"A"}},
		"C": {decl: []string{"A"}},
		"D": {decl: []string{"B", "C"}},
	})
	require.NoError(t, err)

	names := depNames(s, pool, decl(pool, "D"))
	require.Len(t, names, 3)
	assert.Equal(t, "A", names[0])
	assert.ElementsMatch(t, []string{"A", "B", "C"}, names)
}

func TestSolveBodyOnlyCycleSucceeds(t *testing.T) {
	s, pool, err := solveFixture(t, map[string]fixtureUnit{
		"A": {body: []string{"B"}},
		"B": {decl: []string{"A"}},
	})
	require.NoError(t, err)

	// A's definition depends on B's declaration, which depends on A's
	// declaration: both must be in the ranged list, A first.
	assert.Equal(t, []string{"A", "B"}, depNames(s, pool, def(pool, "A")))
}

func TestSolveDeclarationCycleFails(t *testing.T) {
	_, _, err := solveFixture(t, map[string]fixtureUnit{
		"A": {decl: []string{"B"}},
		"B": {decl: []string{"A"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycles)
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "B")
}

func TestSolveDeterminism(t *testing.T) {
	solve := func() map[string][]string {
		s, pool, err := solveFixture(t, map[string]fixtureUnit{
			"A": {},
			"B": {decl: []string{"A"}},
			"C": {decl: []string{"A", "B"}},
			"D": {decl: []string{"C"}, body: []string{"B"}},
		})
		require.NoError(t, err)

		out := make(map[string][]string)
		for nid, n := range s.Graph().Nodes() {
			key := n.Kind.String() + " " + s.Graph().UnitPath(nid)
			out[key] = depNames(s, pool, nid)
		}
		return out
	}

	first := solve()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, solve()); diff != "" {
			t.Fatalf("solved dependencies differ between runs:\n%s", diff)
		}
	}
}

func TestRangedDependenciesUnknownNode(t *testing.T) {
	s, _, err := solveFixture(t, map[string]fixtureUnit{"A": {}})
	require.NoError(t, err)

	assert.Nil(t, s.RangedDependencies(depgraph.MakeNodeID(depgraph.KindDeclaration, 999)))
}
