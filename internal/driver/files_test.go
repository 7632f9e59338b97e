package driver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitFilesDerivation(t *testing.T) {
	cfg := Config{
		SourcesRoot: "src",
		BuildRoot:   "build",
		HeadersDir:  "out/inc",
		DeclOutDir:  "out/decl",
	}

	u := cfg.newProjectUnit("pkg/UnitA.cppl")
	assert.Equal(t, "pkg::UnitA", u.ID)
	assert.False(t, u.External)

	f := u.Files
	assert.Equal(t, filepath.Join("src", "pkg", "UnitA.cppl"), f.Source)
	assert.Equal(t, filepath.Join("build", "pkg", "UnitA.ldeps"), f.LDeps)
	assert.Equal(t, filepath.Join("build", "pkg", "UnitA.ldeps.meta"), f.LDepsMeta)
	assert.Equal(t, filepath.Join("build", "pkg", "UnitA.decl-ast"), f.DeclAST)
	assert.Equal(t, filepath.Join("build", "pkg", "UnitA.decl-ast.meta"), f.DeclASTMeta)
	assert.Equal(t, filepath.Join("build", "pkg", "UnitA.o"), f.Object)
	assert.Equal(t, filepath.Join("build", "pkg", "UnitA.o.meta"), f.ObjectMeta)
	assert.Equal(t, filepath.Join("out", "inc", "pkg", "UnitA.h"), f.Header)
	assert.Equal(t, filepath.Join("out", "decl", "pkg", "UnitA.decl.cppl"), f.DeclSurrogate)
}

func TestLibraryFilesDerivation(t *testing.T) {
	cfg := Config{
		SourcesRoot: "src",
		BuildRoot:   "build",
	}

	u := cfg.newLibraryUnit("/opt/ext", "lib/X.cppl")
	assert.Equal(t, "lib::X", u.ID)
	assert.True(t, u.External)

	f := u.Files
	// Library sources stay absolute; artifacts land under the libs
	// subdirectory keyed by the library root's base name.
	assert.True(t, filepath.IsAbs(f.Source))
	assert.Equal(t, filepath.Join("build", "libs", "ext", "lib", "X.decl-ast"), f.DeclAST)
	assert.Equal(t, filepath.Join("build", "libs", "ext", "lib", "X.o"), f.Object)

	// No headers were requested.
	assert.Empty(t, f.Header)
	assert.Empty(t, f.DeclSurrogate)
}

func TestPreamblePaths(t *testing.T) {
	cfg := Config{BuildRoot: "build"}
	assert.Equal(t, filepath.Join("build", "preamble.pch"), cfg.preamblePCH())
	assert.Equal(t, filepath.Join("build", "preamble.pch.meta"), cfg.preamblePCHMeta())
}
