// Package incremental decides which artifacts have to be rebuilt during a
// run and tracks the rebuild cascade.
//
// An artifact is up to date only if it exists, its companion meta record
// decodes, the recorded source hash matches the current source, the
// preamble was not rebuilt this run, and none of the node's dependencies
// landed in the updated set. A rebuilt declaration whose artifact hash
// changed enters the updated set and thereby forces every transitive
// dependent stale; definition outputs are terminal and never cascade.
package incremental

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kaomoneus/cppl/internal/contenthash"
	"github.com/kaomoneus/cppl/internal/depgraph"
	"github.com/kaomoneus/cppl/internal/fsutil"
	"github.com/kaomoneus/cppl/internal/meta"
)

// DefaultMetaCacheSize bounds the decoded-meta cache. Dependency metas are
// re-read by every dependent's staleness check; the cache keeps each one
// decoded at most once per run for typical project sizes.
const DefaultMetaCacheSize = 4096

// ArtifactState is the outcome of a staleness check.
type ArtifactState struct {
	// UpToDate means the artifact needs no rebuild this run.
	UpToDate bool
	// PriorMeta is the decoded meta record found on disk, nil when the
	// record was missing or corrupt. After a rebuild the caller compares
	// the fresh artifact hash against PriorMeta's to decide whether the
	// change cascades.
	PriorMeta *meta.Meta
}

// Checker tracks the run's shared rebuild state. All methods are safe for
// concurrent use by walk tasks.
type Checker struct {
	mu              sync.Mutex
	updated         depgraph.NodesSet
	preambleUpdated bool
	objectsUpdated  bool

	metas *lru.Cache[string, *meta.Meta]
}

// NewChecker creates a checker with a decoded-meta cache of the given size.
func NewChecker(metaCacheSize int) *Checker {
	cache, err := lru.New[string, *meta.Meta](metaCacheSize)
	if err != nil {
		panic(err)
	}
	return &Checker{
		updated: make(depgraph.NodesSet),
		metas:   cache,
	}
}

// CheckArtifact applies the up-to-date rules for one node's artifact. deps
// is the node's outgoing edge set.
func (c *Checker) CheckArtifact(artifactPath, metaPath, sourcePath string, deps depgraph.NodesSet) ArtifactState {
	state := ArtifactState{}

	m, err := c.LoadMeta(metaPath)
	if err == nil {
		state.PriorMeta = m
	}

	if !fsutil.Exists(artifactPath) || state.PriorMeta == nil {
		return state
	}

	srcHash, err := contenthash.SumFile(sourcePath)
	if err != nil || !contenthash.Equal(m.SourceHash, srcHash) {
		return state
	}

	if c.PreambleUpdated() {
		return state
	}

	if c.anyUpdated(deps) {
		return state
	}

	state.UpToDate = true
	return state
}

// CheckRecord applies the reduced staleness rules used for parsed-imports
// records: file present, meta decodes, recorded source hash current. The
// preamble and the rebuild cascade do not invalidate parsed imports.
func (c *Checker) CheckRecord(recordPath, metaPath, sourcePath string) ArtifactState {
	state := ArtifactState{}

	m, err := c.LoadMeta(metaPath)
	if err == nil {
		state.PriorMeta = m
	}

	if !fsutil.Exists(recordPath) || state.PriorMeta == nil {
		return state
	}

	srcHash, err := contenthash.SumFile(sourcePath)
	if err != nil || !contenthash.Equal(m.SourceHash, srcHash) {
		return state
	}

	state.UpToDate = true
	return state
}

// LoadMeta loads and caches the decoded meta record at path. Missing and
// corrupt records are not cached; they report their error every time.
func (c *Checker) LoadMeta(path string) (*meta.Meta, error) {
	if m, ok := c.metas.Get(path); ok {
		return m, nil
	}
	m, err := meta.Load(path)
	if err != nil {
		return nil, err
	}
	c.metas.Add(path, m)
	return m, nil
}

// InvalidateMeta drops the cached record for path after the artifact was
// rebuilt and its record rewritten.
func (c *Checker) InvalidateMeta(path string) {
	c.metas.Remove(path)
}

// MarkUpdated records that a declaration artifact changed content this run.
func (c *Checker) MarkUpdated(nid depgraph.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated[nid] = struct{}{}
}

// IsUpdated reports whether the node's artifact changed this run.
func (c *Checker) IsUpdated(nid depgraph.NodeID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated.Contains(nid)
}

// UpdatedCount reports how many declaration artifacts changed this run.
func (c *Checker) UpdatedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updated)
}

func (c *Checker) anyUpdated(deps depgraph.NodesSet) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for nid := range deps {
		if c.updated.Contains(nid) {
			return true
		}
	}
	return false
}

// MarkPreambleUpdated short-circuits every later up-to-date check: a fresh
// preamble invalidates all artifacts built against the old one.
func (c *Checker) MarkPreambleUpdated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preambleUpdated = true
}

// PreambleUpdated reports whether the preamble was rebuilt this run.
func (c *Checker) PreambleUpdated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preambleUpdated
}

// MarkObjectsUpdated records that at least one object was rebuilt; the link
// phase uses it to decide whether relinking is needed.
func (c *Checker) MarkObjectsUpdated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objectsUpdated = true
}

// ObjectsUpdated reports whether any object was rebuilt this run.
func (c *Checker) ObjectsUpdated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objectsUpdated
}
