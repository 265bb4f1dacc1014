// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package schema holds the in-memory form of a protoz document. Values are
// built once by a loader and are never mutated while text is emitted from
// them.
package schema

import (
	"fmt"
	"strconv"

	"gopkg.microglot.org/protozc/internal/optional"
)

type Modifier uint8

// The zero value is ModifierRequired so that a field declared without a
// modifier lowers exactly like an explicitly required one.
const (
	ModifierRequired Modifier = iota
	ModifierOptional
	ModifierRepeated
)

func (m Modifier) String() string {
	switch m {
	case ModifierRequired:
		return "required"
	case ModifierOptional:
		return "optional"
	case ModifierRepeated:
		return "repeated"
	default:
		return fmt.Sprintf("unknown-%d", m)
	}
}

// ParseModifier converts the textual modifier of a source document. The empty
// string is accepted and means required.
func ParseModifier(s string) (Modifier, bool) {
	switch s {
	case "", "required":
		return ModifierRequired, true
	case "optional":
		return ModifierOptional, true
	case "repeated":
		return ModifierRepeated, true
	default:
		return ModifierRequired, false
	}
}

type TypeCategory uint8

const (
	TypeCategoryPrimitive TypeCategory = iota
	TypeCategoryEnum
	TypeCategoryNestedMessage
	TypeCategoryReferenceMessage
)

func (c TypeCategory) String() string {
	switch c {
	case TypeCategoryPrimitive:
		return "primitive"
	case TypeCategoryEnum:
		return "enum"
	case TypeCategoryNestedMessage:
		return "nestedMessage"
	case TypeCategoryReferenceMessage:
		return "referenceMessage"
	default:
		return fmt.Sprintf("unknown-%d", c)
	}
}

// Pos is the one based line and column of a declaration in its source
// document. The zero value means the position is unknown.
type Pos struct {
	Line   int32
	Column int32
}

type Schema struct {
	URI      string
	Messages []*Message
	Enums    []*Enum
}

// EnumTable maps every declared enum name to its definition. When a name is
// declared twice the first declaration wins.
func (s *Schema) EnumTable() map[string]*Enum {
	table := make(map[string]*Enum, len(s.Enums))
	for _, e := range s.Enums {
		if _, ok := table[e.Name]; !ok {
			table[e.Name] = e
		}
	}
	return table
}

type Message struct {
	Pos         Pos
	Name        string
	Description string
	Entries     []Entry
}

// Fields builds the lookup table used to resolve Index.ForField. Every field
// is reachable by its decimal id and by its name. An id key always wins over
// a name key that happens to spell the same text.
func (m *Message) Fields() map[string]*Field {
	table := make(map[string]*Field, 2*len(m.Entries))
	for _, entry := range m.Entries {
		if f, ok := entry.(*Field); ok {
			if _, taken := table[f.Name]; !taken {
				table[f.Name] = f
			}
		}
	}
	for _, entry := range m.Entries {
		if f, ok := entry.(*Field); ok {
			table[strconv.FormatInt(int64(f.ID), 10)] = f
		}
	}
	return table
}

// Entry is either a *Field or an *Index.
type Entry interface {
	EntryID() int32
	EntryName() string
	EntryPos() Pos
	isEntry()
}

type Field struct {
	Pos         Pos
	ID          int32
	Name        string
	Description string
	Modifier    Modifier
	Category    TypeCategory
	// Primitive is the declared type name of a primitive field.
	Primitive string
	// TypeName is the enum name of an enum field or the message name of a
	// nested or referenced message field.
	TypeName string
	Default  optional.Optional[string]
}

func (f *Field) EntryID() int32    { return f.ID }
func (f *Field) EntryName() string { return f.Name }
func (f *Field) EntryPos() Pos     { return f.Pos }
func (*Field) isEntry()            {}

type Index struct {
	Pos  Pos
	ID   int32
	Name string
	// ForField names the mirrored field by id or by name.
	ForField string
	// SortBy is carried for downstream consumers and never rendered.
	SortBy string
}

func (ix *Index) EntryID() int32    { return ix.ID }
func (ix *Index) EntryName() string { return ix.Name }
func (ix *Index) EntryPos() Pos     { return ix.Pos }
func (*Index) isEntry()             {}

type Enum struct {
	Pos         Pos
	Name        string
	Description string
	Items       []*EnumItem
}

type EnumItem struct {
	Pos         Pos
	Name        string
	Description string
	Value       optional.Optional[int64]
}
