package command

// FrontendOpts carries the argv pieces every front-end phase shares.
type FrontendOpts struct {
	// Frontend is the front-end executable path.
	Frontend string
	// SrcRoot is passed as -cppl-src-root to the parse-imports, declaration
	// and object phases; the preamble phase does not receive it.
	SrcRoot string
	// StdLib names the standard library implementation, forwarded as
	// -stdlib=<name> when set.
	StdLib string
	// Includes are header search paths, one -I<path> each.
	Includes []string
	// Preamble is the precompiled preamble path; when set it is passed as
	// -cppl-include-preamble to every compile phase.
	Preamble string
}

func (o FrontendOpts) base() *Command {
	c := New(o.Frontend).
		KVEqIfNotEmpty("-stdlib", o.StdLib)
	for _, inc := range o.Includes {
		c.Arg("-I" + inc)
	}
	return c
}

// BuildPreamble assembles the preamble compilation argv.
func BuildPreamble(o FrontendOpts, source, out, metaOut string, extra []string) *Command {
	return New(o.Frontend).
		Arg("-cppl-preamble").
		KVEqIfNotEmpty("-stdlib", o.StdLib).
		KVEq("-cppl-meta", metaOut).
		Args(extra).
		Arg(source).
		KVSpace("-o", out)
}

// ParseImport assembles the parse-imports argv for one unit. The child
// writes the parsed-imports record to out and its meta record next to it.
func ParseImport(o FrontendOpts, source, unitID, out, metaOut string, extra []string) *Command {
	return o.base().
		Arg("-cppl-import").
		KVEq("-cppl-src-root", o.SrcRoot).
		KVEq("-cppl-unit-id", unitID).
		KVEq("-cppl-meta", metaOut).
		Args(extra).
		Arg(source).
		KVSpace("-o", out)
}

// BuildDecl assembles the declaration compile argv. deps is the ordered
// transitive declaration-AST list to preload. suppressWarnings is set when
// the same unit is also compiled for a definition, which reports the same
// diagnostics again.
func BuildDecl(o FrontendOpts, source, unitID string, deps []string, out, metaOut string, suppressWarnings bool, extra []string) *Command {
	return o.base().
		Arg("-cppl-decl").
		KVEq("-cppl-src-root", o.SrcRoot).
		KVEq("-cppl-unit-id", unitID).
		KVEq("-cppl-meta", metaOut).
		KVEqIfNotEmpty("-cppl-include-preamble", o.Preamble).
		KVsEq("-cppl-include-dependency", deps).
		Condition(suppressWarnings).
		Arg("-w").
		ConditionEnd().
		Args(extra).
		Arg(source).
		KVSpace("-o", out)
}

// BuildObj assembles the definition (object) compile argv.
func BuildObj(o FrontendOpts, source, unitID string, deps []string, out, metaOut string, extraParse, extraCodeGen []string) *Command {
	return o.base().
		Arg("-cppl-obj").
		KVEq("-cppl-src-root", o.SrcRoot).
		KVEq("-cppl-unit-id", unitID).
		KVEq("-cppl-meta", metaOut).
		KVEqIfNotEmpty("-cppl-include-preamble", o.Preamble).
		KVsEq("-cppl-include-dependency", deps).
		Args(extraParse).
		Args(extraCodeGen).
		Arg(source).
		KVSpace("-o", out)
}

// Link assembles the link argv over all project objects.
func Link(linker string, objects []string, out, stdLib string, extra []string) *Command {
	return New(linker).
		KVEqIfNotEmpty("-stdlib", stdLib).
		Args(extra).
		Args(objects).
		KVSpace("-o", out)
}
