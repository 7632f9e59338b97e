package driver

// File extensions of the unit model. Artifact names are derived from the
// unit's build-root-relative path by appending these.
const (
	// SourceExt marks compilable units.
	SourceExt = ".cppl"
	// DeclASTExt is the binary declaration AST.
	DeclASTExt = ".decl-ast"
	// ObjectExt is the compiled object.
	ObjectExt = ".o"
	// LDepsExt is the parsed-imports record.
	LDepsExt = ".ldeps"
	// MetaExt is appended to an artifact path for its companion record.
	MetaExt = ".meta"
	// HeaderExt is the generated public header.
	HeaderExt = ".h"
	// DeclSurrogateExt is the generated declaration surrogate unit.
	DeclSurrogateExt = ".decl" + SourceExt
)

// Defaults applied by Config.setDefaults.
const (
	// DefaultSourcesRoot is the project root when -root is not given.
	DefaultSourcesRoot = "."
	// DefaultBuildRoot holds all intermediate artifacts.
	DefaultBuildRoot = "./build"
	// DefaultOutputExecutable is the link output when -o is not given.
	DefaultOutputExecutable = "a.out"
	// DefaultOutputObjectsDir is the -c output location when -o is not
	// given.
	DefaultOutputObjectsDir = "a.dir"
	// DefaultFrontend is the front-end executable, resolved via PATH.
	DefaultFrontend = "cppl-front"
	// PreambleOut is the precompiled preamble file name under the build
	// root.
	PreambleOut = "preamble.pch"
	// LibsSubdir is the build-root subdirectory holding library-unit
	// artifacts.
	LibsSubdir = "libs"
)
