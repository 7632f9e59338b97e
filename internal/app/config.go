package app

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/kaomoneus/cppl/internal/cli"
	"github.com/kaomoneus/cppl/internal/command"
	"github.com/kaomoneus/cppl/internal/driver"
	"github.com/kaomoneus/cppl/internal/project"
)

// resolveConfig merges the command line with the optional project file into
// the driver configuration. Explicit flags win over file values; the
// driver fills the remaining defaults.
func resolveConfig(opts *cli.Options) (driver.Config, error) {
	cfg := driver.Config{
		SourcesRoot:  opts.SourcesRoot,
		BuildRoot:    opts.BuildRoot,
		LibraryRoots: opts.LibraryRoots,
		Includes:     opts.Includes,

		PreambleSource: opts.Preamble,

		Output:      opts.Output,
		LinkEnabled: !opts.LinkDisabled,
		HeadersDir:  opts.HeadersDir,
		DeclOutDir:  opts.DeclOutDir,

		Jobs:     opts.Jobs,
		StdLib:   opts.StdLib,
		Frontend: opts.Frontend,

		ExtraPreambleArgs: command.Tokenize(opts.ExtraPreambleArgs),
		ExtraParseArgs:    command.Tokenize(opts.ExtraParseArgs),
		ExtraCodeGenArgs:  command.Tokenize(opts.ExtraCodeGenArgs),
		ExtraLinkArgs:     command.Tokenize(opts.ExtraLinkArgs),

		Verbose: opts.Verbose,
		Trace:   opts.Trace,
		DryRun:  opts.DryRun,
	}

	file, err := loadProjectFile(opts)
	if err != nil {
		return cfg, err
	}
	if file != nil {
		applyProjectFile(&cfg, file)
	}

	return cfg, nil
}

// loadProjectFile reads the file named by -config, or the default
// cppl.hcl next to the sources root when present.
func loadProjectFile(opts *cli.Options) (*project.File, error) {
	path := opts.ConfigPath
	explicit := path != ""
	if !explicit {
		root := opts.SourcesRoot
		if root == "" {
			root = "."
		}
		path = filepath.Join(root, project.DefaultFileName)
	}

	file, err := project.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("project file: %w", err)
	}
	return file, nil
}

// applyProjectFile fills configuration gaps the command line left open.
func applyProjectFile(cfg *driver.Config, file *project.File) {
	if p := file.Project; p != nil {
		setIfEmpty(&cfg.SourcesRoot, p.Root)
		setIfEmpty(&cfg.BuildRoot, p.BuildRoot)
		setIfEmpty(&cfg.StdLib, p.StdLib)
		setIfEmpty(&cfg.PreambleSource, p.Preamble)
		setIfEmpty(&cfg.Output, p.Output)
		setIfEmpty(&cfg.Frontend, p.Frontend)
		setIfEmpty(&cfg.Linker, p.Linker)
		if cfg.Jobs == 0 && p.Jobs != nil {
			cfg.Jobs = *p.Jobs
		}
		cfg.Includes = append(cfg.Includes, p.Includes...)
		cfg.LibraryRoots = append(cfg.LibraryRoots, p.Libraries...)
	}

	if e := file.ExtraArgs; e != nil {
		appendTokens(&cfg.ExtraPreambleArgs, e.Preamble)
		appendTokens(&cfg.ExtraParseArgs, e.Parse)
		appendTokens(&cfg.ExtraCodeGenArgs, e.CodeGen)
		appendTokens(&cfg.ExtraLinkArgs, e.Link)
	}
}

func setIfEmpty(dst *string, src *string) {
	if *dst == "" && src != nil {
		*dst = *src
	}
}

func appendTokens(dst *[]string, src *string) {
	if src != nil {
		*dst = append(*dst, command.Tokenize(*src)...)
	}
}
