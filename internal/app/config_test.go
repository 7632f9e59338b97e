package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaomoneus/cppl/internal/cli"
	"github.com/kaomoneus/cppl/internal/project"
)

func TestResolveConfigFromFlagsOnly(t *testing.T) {
	cfg, err := resolveConfig(&cli.Options{
		SourcesRoot:      t.TempDir(), // no cppl.hcl here
		BuildRoot:        "out",
		LinkDisabled:     true,
		Jobs:             3,
		ExtraCodeGenArgs: `-O2 -DMSG="a b"`,
	})
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.BuildRoot)
	assert.False(t, cfg.LinkEnabled)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, []string{"-O2", `-DMSG="a b"`}, cfg.ExtraCodeGenArgs)
}

func TestResolveConfigProjectFileFillsGaps(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, project.DefaultFileName),
		[]byte(`
project {
  build_root = "from-file"
  stdlib     = "libc++"
  jobs       = 6
  libraries  = ["ext"]
}

extra_args {
  link = "-static"
}
`), 0o644))

	// The command line sets the build root; the file fills the rest.
	cfg, err := resolveConfig(&cli.Options{
		SourcesRoot: root,
		BuildRoot:   "from-flags",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-flags", cfg.BuildRoot)
	assert.Equal(t, "libc++", cfg.StdLib)
	assert.Equal(t, 6, cfg.Jobs)
	assert.Equal(t, []string{"ext"}, cfg.LibraryRoots)
	assert.Equal(t, []string{"-static"}, cfg.ExtraLinkArgs)
}

func TestResolveConfigExplicitMissingFileFails(t *testing.T) {
	_, err := resolveConfig(&cli.Options{
		SourcesRoot: t.TempDir(),
		ConfigPath:  filepath.Join(t.TempDir(), "absent.hcl"),
	})
	assert.Error(t, err)
}
