// Package project loads the optional cppl.hcl project file. The file
// carries the same settings as the command line; explicit flags win over
// file values.
package project

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// DefaultFileName is looked up in the sources root when no explicit
// -config flag is given.
const DefaultFileName = "cppl.hcl"

// File is the decoded project file.
//
//	project {
//	  root       = "."
//	  build_root = "build"
//	  stdlib     = "libc++"
//	  jobs       = 8
//	  preamble   = "preamble.hpp"
//	  output     = "bin/app"
//	  includes   = ["/opt/sdk/include"]
//	  libraries  = ["ext"]
//	  frontend   = "/opt/cppl/bin/cppl-front"
//	}
//
//	extra_args {
//	  preamble = "-fexceptions"
//	  parse    = "-DDEBUG"
//	  codegen  = "-O2"
//	  link     = "-static"
//	}
type File struct {
	Project   *ProjectBlock   `hcl:"project,block"`
	ExtraArgs *ExtraArgsBlock `hcl:"extra_args,block"`
}

// ProjectBlock mirrors the driver's path and toolchain settings. All
// attributes are optional; nil means "not set here".
type ProjectBlock struct {
	Root      *string  `hcl:"root,optional"`
	BuildRoot *string  `hcl:"build_root,optional"`
	StdLib    *string  `hcl:"stdlib,optional"`
	Jobs      *int     `hcl:"jobs,optional"`
	Preamble  *string  `hcl:"preamble,optional"`
	Output    *string  `hcl:"output,optional"`
	Includes  []string `hcl:"includes,optional"`
	Libraries []string `hcl:"libraries,optional"`
	Frontend  *string  `hcl:"frontend,optional"`
	Linker    *string  `hcl:"linker,optional"`
}

// ExtraArgsBlock carries per-phase extra argument strings, in the same
// quoted form the -FH/-FP/-FC/-FL flags accept.
type ExtraArgsBlock struct {
	Preamble *string `hcl:"preamble,optional"`
	Parse    *string `hcl:"parse,optional"`
	CodeGen  *string `hcl:"codegen,optional"`
	Link     *string `hcl:"link,optional"`
}

// Load reads and decodes the project file at path. A missing file is
// reported as fs.ErrNotExist so callers can treat it as "no project file".
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, &hcl.EvalContext{}, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %s", path, diags.Error())
	}

	return &f, nil
}
