// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package lower maps single schema entries onto proto2 field statements.
//
// Primitive and enum fields map directly onto one statement. Nested and
// referenced message fields cannot be expressed by the flat output layout so
// they are lowered into a fallback: a comment showing the statement as it
// would have been written against the message's header type, followed by the
// real statement using a placeholder type. Indices mirror the field they
// reference and are lowered by the same rules.
package lower

import (
	"fmt"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/optional"
	"gopkg.microglot.org/protozc/internal/schema"
)

const (
	// HeaderSuffix is appended to every message name in the output.
	HeaderSuffix = "Header"
	// HandleType replaces nested message types. The nested payload lives
	// next to its parent so one local identifier is enough to find it.
	HandleType = "uint32"
	// LocatorType replaces referenced message types. See LocatorMessage.
	LocatorType = "LocalMessageDescriptor"
)

type Shape uint8

const (
	ShapeDirect Shape = iota
	ShapeFallback
)

// Statement is the lowered form of one field or index.
type Statement struct {
	Shape    Shape
	Modifier schema.Modifier
	Name     string
	ID       int32
	// Type is the type token of the real statement.
	Type string
	// Intended is the header type shown by the comment of a fallback.
	Intended string
	Default  optional.Optional[string]
}

// Line is one output line of a statement, without indentation.
type Line struct {
	Comment bool
	Text    string
}

func (s Statement) Lines() []Line {
	if s.Shape == ShapeDirect {
		return []Line{{Text: s.render(s.Type)}}
	}
	return []Line{
		{Comment: true, Text: s.render(s.Intended)},
		{Text: s.render(s.Type)},
	}
}

func (s Statement) render(typ string) string {
	clause := ""
	if s.Default.IsPresent() {
		clause = fmt.Sprintf(" [default=%s]", s.Default.Value())
	}
	return fmt.Sprintf("%s %s %s= %d%s;", s.Modifier, typ, s.Name, s.ID, clause)
}

// Scope carries the lookup tables needed to lower the entries of a single
// message.
type Scope struct {
	URI     string
	Message *schema.Message
	Fields  map[string]*schema.Field
	Enums   map[string]*schema.Enum
}

// NewScope builds the scope for lowering the entries of m.
func NewScope(s *schema.Schema, m *schema.Message, enums map[string]*schema.Enum) *Scope {
	if enums == nil {
		enums = s.EnumTable()
	}
	return &Scope{
		URI:     s.URI,
		Message: m,
		Fields:  m.Fields(),
		Enums:   enums,
	}
}

func (sc *Scope) location(pos schema.Pos) exc.Location {
	return exc.Location{URI: sc.URI, Line: pos.Line, Column: pos.Column}
}

// Entry lowers either kind of message entry.
func Entry(e schema.Entry, sc *Scope) (Statement, error) {
	switch v := e.(type) {
	case *schema.Field:
		return Field(v, sc)
	case *schema.Index:
		return Index(v, sc)
	default:
		return Statement{}, exc.New(sc.location(e.EntryPos()), exc.CodeMalformedSchema, fmt.Sprintf("unsupported entry %T in message %q", e, sc.Message.Name))
	}
}

func Field(f *schema.Field, sc *Scope) (Statement, error) {
	return lower(f, f.Name, f.ID, f.Pos, sc)
}

func Index(ix *schema.Index, sc *Scope) (Statement, error) {
	f, ok := sc.Fields[ix.ForField]
	if !ok {
		return Statement{}, exc.New(
			sc.location(ix.Pos),
			exc.CodeUnresolvedField,
			fmt.Sprintf("index %q (%d) of message %q mirrors unknown field %q", ix.Name, ix.ID, sc.Message.Name, ix.ForField),
		)
	}
	return lower(f, ix.Name, ix.ID, ix.Pos, sc)
}

// lower applies the type rules of f to a statement named name with the given
// id. pos locates the entry being lowered, which differs from f.Pos for an
// index.
func lower(f *schema.Field, name string, id int32, pos schema.Pos, sc *Scope) (Statement, error) {
	st := Statement{
		Shape:    ShapeDirect,
		Modifier: f.Modifier,
		Name:     name,
		ID:       id,
		Default:  f.Default,
	}
	switch f.Category {
	case schema.TypeCategoryPrimitive:
		st.Type = f.Primitive
	case schema.TypeCategoryEnum:
		if _, ok := sc.Enums[f.TypeName]; !ok {
			return Statement{}, exc.New(
				sc.location(pos),
				exc.CodeUnresolvedEnum,
				fmt.Sprintf("%q (%d) of message %q uses undeclared enum %q", name, id, sc.Message.Name, f.TypeName),
			)
		}
		st.Type = f.TypeName
	case schema.TypeCategoryNestedMessage:
		st.Shape = ShapeFallback
		st.Type = HandleType
		st.Intended = f.TypeName + HeaderSuffix
	case schema.TypeCategoryReferenceMessage:
		st.Shape = ShapeFallback
		st.Type = LocatorType
		st.Intended = f.TypeName + HeaderSuffix
	default:
		return Statement{}, exc.New(
			sc.location(pos),
			exc.CodeMalformedSchema,
			fmt.Sprintf("%q (%d) of message %q has unknown type category %s", name, id, sc.Message.Name, f.Category),
		)
	}
	return st, nil
}
