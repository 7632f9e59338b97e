// Package unitid derives unit identifiers from source paths and back.
//
// A unit identifier is the project-relative source path with the extension
// stripped and path separators replaced by "::", e.g. "pkg/UnitA.cppl"
// becomes "pkg::UnitA". Identifiers are stable across runs for the same
// relative path and are used both as on-wire keys in dependency records and
// as the -cppl-unit-id argument for the front-end.
package unitid

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Separator joins identifier components.
const Separator = "::"

// FromRelPath converts a relative source path into a unit identifier.
func FromRelPath(relPath string) string {
	components := strings.Split(filepath.ToSlash(relPath), "/")
	last := components[len(components)-1]
	if dot := strings.LastIndexByte(last, '.'); dot >= 0 {
		components[len(components)-1] = last[:dot]
	}
	return FromComponents(components)
}

// FromComponents assembles an identifier from its components.
func FromComponents(components []string) string {
	return strings.Join(components, Separator)
}

// Components splits an identifier back into its components.
func Components(id string) []string {
	return strings.Split(id, Separator)
}

// ToRelPath converts an identifier into a relative path with the given
// extension. The extension is appended verbatim, so it should include the
// leading dot.
func ToRelPath(id string, ext string) string {
	return filepath.Join(Components(id)...) + ext
}

// Validate reports whether id is a well-formed unit identifier: non-empty
// components joined by the separator, no path separators inside components.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("unit identifier is empty")
	}
	for _, c := range Components(id) {
		if c == "" {
			return fmt.Errorf("unit identifier %q contains an empty component", id)
		}
		if strings.ContainsAny(c, `/\`) {
			return fmt.Errorf("unit identifier %q contains a path separator", id)
		}
	}
	return nil
}
