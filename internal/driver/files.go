package driver

import (
	"path/filepath"

	"github.com/kaomoneus/cppl/internal/unitid"
)

// FilesInfo names every file belonging to one unit: its source and the
// artifact paths derived by extension substitution on the unit's
// build-root-relative template.
type FilesInfo struct {
	// Source is the unit's source file. For project units it is the
	// sources root joined with the root-relative path; library units keep
	// it absolute.
	Source string

	LDeps     string
	LDepsMeta string

	DeclAST     string
	DeclASTMeta string

	Object     string
	ObjectMeta string

	// Header and DeclSurrogate are set only when the respective output
	// was requested.
	Header        string
	DeclSurrogate string
}

// unitFiles derives the artifact layout for a project unit with the given
// root-relative source path (slash-separated).
func (c *Config) unitFiles(relPath string) FilesInfo {
	return c.derivedFiles(
		filepath.Join(c.SourcesRoot, filepath.FromSlash(relPath)),
		filepath.Join(c.BuildRoot, filepath.FromSlash(relPath)),
		relPath,
	)
}

// libraryFiles derives the artifact layout for an external unit. The
// source stays at its absolute location; artifacts land under the libs
// subdirectory of the build root, keyed by the library root's base name.
func (c *Config) libraryFiles(libRoot, relPath string) FilesInfo {
	absSource, err := filepath.Abs(filepath.Join(libRoot, filepath.FromSlash(relPath)))
	if err != nil {
		absSource = filepath.Join(libRoot, filepath.FromSlash(relPath))
	}
	artifactBase := filepath.Join(
		c.BuildRoot, LibsSubdir, filepath.Base(filepath.Clean(libRoot)),
		filepath.FromSlash(relPath),
	)
	return c.derivedFiles(absSource, artifactBase, relPath)
}

func (c *Config) derivedFiles(source, artifactBase, relPath string) FilesInfo {
	base := trimExt(artifactBase)

	f := FilesInfo{
		Source:  source,
		LDeps:   base + LDepsExt,
		DeclAST: base + DeclASTExt,
		Object:  base + ObjectExt,
	}
	f.LDepsMeta = f.LDeps + MetaExt
	f.DeclASTMeta = f.DeclAST + MetaExt
	f.ObjectMeta = f.Object + MetaExt

	relBase := trimExt(relPath)
	if c.HeadersDir != "" {
		f.Header = filepath.Join(c.HeadersDir, filepath.FromSlash(relBase)+HeaderExt)
	}
	if c.DeclOutDir != "" {
		f.DeclSurrogate = filepath.Join(c.DeclOutDir, filepath.FromSlash(relBase)+DeclSurrogateExt)
	}

	return f
}

// preamblePCH is the precompiled preamble location under the build root.
func (c *Config) preamblePCH() string {
	return filepath.Join(c.BuildRoot, PreambleOut)
}

func (c *Config) preamblePCHMeta() string {
	return c.preamblePCH() + MetaExt
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}

// Unit is one discovered source unit with its derived identity and files.
type Unit struct {
	// ID is the unit identifier, e.g. "pkg::UnitA".
	ID string
	// RelPath is the source path relative to its root, slash-separated.
	RelPath string
	// Files are the unit's derived file locations.
	Files FilesInfo
	// External marks library units.
	External bool
}

// newProjectUnit registers a project unit discovered at relPath.
func (c *Config) newProjectUnit(relPath string) *Unit {
	return &Unit{
		ID:      unitid.FromRelPath(relPath),
		RelPath: relPath,
		Files:   c.unitFiles(relPath),
	}
}

// newLibraryUnit registers an external unit discovered at relPath under
// libRoot.
func (c *Config) newLibraryUnit(libRoot, relPath string) *Unit {
	return &Unit{
		ID:       unitid.FromRelPath(relPath),
		RelPath:  relPath,
		Files:    c.libraryFiles(libRoot, relPath),
		External: true,
	}
}
