package incremental

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaomoneus/cppl/internal/contenthash"
	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/meta"
)

type fixture struct {
	dir      string
	source   string
	artifact string
	metaPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		source:   filepath.Join(dir, "UnitA.cppl"),
		artifact: filepath.Join(dir, "UnitA.decl-ast"),
		metaPath: filepath.Join(dir, "UnitA.decl-ast.meta"),
	}
	f.writeSource(t, "class A {};")
	f.writeArtifact(t, "decl-ast-bytes")
	f.writeMeta(t, "class A {};", "decl-ast-bytes")
	return f
}

func (f *fixture) writeSource(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.source, []byte(content), 0o644))
}

func (f *fixture) writeArtifact(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.artifact, []byte(content), 0o644))
}

func (f *fixture) writeMeta(t *testing.T, source, artifact string) {
	t.Helper()
	m := &meta.Meta{
		SourceHash:   contenthash.Sum([]byte(source)),
		ArtifactHash: contenthash.Sum([]byte(artifact)),
	}
	require.NoError(t, m.Save(f.metaPath))
}

func TestUpToDate(t *testing.T) {
	f := newFixture(t)
	c := NewChecker(DefaultMetaCacheSize)

	state := c.CheckArtifact(f.artifact, f.metaPath, f.source, nil)
	assert.True(t, state.UpToDate)
	require.NotNil(t, state.PriorMeta)
	assert.Equal(t, contenthash.Sum([]byte("class A {};")), state.PriorMeta.SourceHash)
}

func TestStaleWhenArtifactMissing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.artifact))

	c := NewChecker(DefaultMetaCacheSize)
	state := c.CheckArtifact(f.artifact, f.metaPath, f.source, nil)
	assert.False(t, state.UpToDate)
	// The prior meta is still captured for the cascade comparison.
	assert.NotNil(t, state.PriorMeta)
}

func TestStaleWhenMetaMissing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.metaPath))

	c := NewChecker(DefaultMetaCacheSize)
	state := c.CheckArtifact(f.artifact, f.metaPath, f.source, nil)
	assert.False(t, state.UpToDate)
	assert.Nil(t, state.PriorMeta)
}

func TestStaleWhenMetaCorrupt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.metaPath, []byte("garbage"), 0o644))

	c := NewChecker(DefaultMetaCacheSize)
	state := c.CheckArtifact(f.artifact, f.metaPath, f.source, nil)
	assert.False(t, state.UpToDate)
	assert.Nil(t, state.PriorMeta)
}

func TestStaleWhenSourceChanged(t *testing.T) {
	f := newFixture(t)
	f.writeSource(t, "class A { int x; };")

	c := NewChecker(DefaultMetaCacheSize)
	state := c.CheckArtifact(f.artifact, f.metaPath, f.source, nil)
	assert.False(t, state.UpToDate)
	assert.NotNil(t, state.PriorMeta)
}

func TestStaleWhenSourceMissing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(f.source))

	c := NewChecker(DefaultMetaCacheSize)
	state := c.CheckArtifact(f.artifact, f.metaPath, f.source, nil)
	assert.False(t, state.UpToDate)
}

func TestStaleAfterPreambleRebuild(t *testing.T) {
	f := newFixture(t)
	c := NewChecker(DefaultMetaCacheSize)

	assert.True(t, c.CheckArtifact(f.artifact, f.metaPath, f.source, nil).UpToDate)
	c.MarkPreambleUpdated()
	assert.False(t, c.CheckArtifact(f.artifact, f.metaPath, f.source, nil).UpToDate)
}

func TestStaleWhenDependencyUpdated(t *testing.T) {
	f := newFixture(t)
	c := NewChecker(DefaultMetaCacheSize)

	dep := depgraph.MakeNodeID(depgraph.KindDeclaration, 7)
	other := depgraph.MakeNodeID(depgraph.KindDeclaration, 8)
	deps := depgraph.NodesSet{dep: {}}

	assert.True(t, c.CheckArtifact(f.artifact, f.metaPath, f.source, deps).UpToDate)

	c.MarkUpdated(other)
	assert.True(t, c.CheckArtifact(f.artifact, f.metaPath, f.source, deps).UpToDate)

	c.MarkUpdated(dep)
	assert.False(t, c.CheckArtifact(f.artifact, f.metaPath, f.source, deps).UpToDate)
	assert.True(t, c.IsUpdated(dep))
	assert.Equal(t, 2, c.UpdatedCount())
}

func TestMetaCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	c := NewChecker(DefaultMetaCacheSize)

	before, err := c.LoadMeta(f.metaPath)
	require.NoError(t, err)

	// Rewrite the record on disk; the cache still serves the old one
	// until invalidated.
	f.writeMeta(t, "new source", "new artifact")
	cached, err := c.LoadMeta(f.metaPath)
	require.NoError(t, err)
	assert.Equal(t, before, cached)

	c.InvalidateMeta(f.metaPath)
	fresh, err := c.LoadMeta(f.metaPath)
	require.NoError(t, err)
	assert.Equal(t, contenthash.Sum([]byte("new source")), fresh.SourceHash)
}

func TestObjectsUpdatedFlag(t *testing.T) {
	c := NewChecker(DefaultMetaCacheSize)
	assert.False(t, c.ObjectsUpdated())
	c.MarkObjectsUpdated()
	assert.True(t, c.ObjectsUpdated())
}
