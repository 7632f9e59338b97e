package depgraph

import (
	"fmt"

	"github.com/kaomoneus/cppl/internal/strpool"
)

// NodeKind distinguishes the two node flavors of a unit.
type NodeKind uint8

const (
	// KindDeclaration is the declaration node; every unit has exactly one.
	KindDeclaration NodeKind = iota
	// KindDefinition is the definition node; only non-external units have
	// one.
	KindDefinition
)

func (k NodeKind) String() string {
	if k == KindDeclaration {
		return "DECL"
	}
	return "DEF"
}

// NodeID packs a node's kind and its unit identifier into a single 64-bit
// word: the top bit is the kind, the low 63 bits are the interned unit ID.
// The encoding is bijective over the 32-bit ID space the string pool hands
// out.
type NodeID uint64

const kindShift = 63

// MakeNodeID encodes a kind and unit ID pair.
func MakeNodeID(kind NodeKind, unit strpool.ID) NodeID {
	return NodeID(uint64(kind)<<kindShift | uint64(unit)&(^uint64(0)>>1))
}

// Kind extracts the node kind.
func (id NodeID) Kind() NodeKind {
	return NodeKind(uint64(id) >> kindShift)
}

// Unit extracts the interned unit ID.
func (id NodeID) Unit() strpool.ID {
	return strpool.ID(uint64(id) & (^uint64(0) >> 1))
}

func (id NodeID) String() string {
	return fmt.Sprintf("%d:%s", id.Unit(), id.Kind())
}
