// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package protoz loads protoz schema documents.
//
// A document is XML rooted at a protozbuff element:
//
//	<protozbuff xmlns="http://tempuri.org/protoZ.xsd">
//	  <message name="Folder" description="...">
//	    <field id="1" modifier="repeated" name="files" type="referenceMessage" messageType="File"/>
//	    <index id="2" name="by_name" forField="1" sortBy="filename"/>
//	  </message>
//	  <enum name="kind">
//	    <enumItem name="plain"/>
//	    <enumItem name="special" value="42"/>
//	  </enum>
//	</protozbuff>
//
// The loader checks the shape of every declaration. Cross references between
// declarations are resolved later, when the schema is emitted.
package protoz

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/optional"
	"gopkg.microglot.org/protozc/internal/schema"
)

// Namespace is the XML namespace of protoz documents. Documents may also
// omit the namespace entirely.
const Namespace = "http://tempuri.org/protoZ.xsd"

const (
	typeEnum             = "enum"
	typeNestedMessage    = "nestedMessage"
	typeReferenceMessage = "referenceMessage"
)

// Load decodes the document in r. uri names the document in every reported
// location.
func Load(uri string, r io.Reader) (*schema.Schema, error) {
	var doc xmlDocument
	d := xml.NewDecoder(r)
	if err := d.Decode(&doc); err != nil {
		var e exc.Exception
		if errors.As(err, &e) {
			return nil, e
		}
		var se *xml.SyntaxError
		if errors.As(err, &se) {
			return nil, exc.Wrap(exc.Location{URI: uri, Line: int32(se.Line)}, exc.CodeMalformedSchema, err)
		}
		if errors.Is(err, io.EOF) {
			return nil, exc.New(exc.Location{URI: uri}, exc.CodeUnexpectedEOF, "document is empty")
		}
		return nil, exc.Wrap(exc.Location{URI: uri}, exc.CodeMalformedSchema, err)
	}
	if doc.XMLName.Local != "protozbuff" {
		return nil, exc.New(exc.Location{URI: uri}, exc.CodeMalformedSchema, fmt.Sprintf("root element is %q, expected \"protozbuff\"", doc.XMLName.Local))
	}
	if space := doc.XMLName.Space; space != "" && space != Namespace {
		return nil, exc.New(exc.Location{URI: uri}, exc.CodeMalformedSchema, fmt.Sprintf("root element is in namespace %q, expected %q", space, Namespace))
	}
	l := &loader{uri: uri}
	return l.schema(&doc)
}

type loader struct {
	uri string
}

func (l *loader) fail(pos schema.Pos, code string, format string, a ...any) error {
	return exc.New(exc.Location{URI: l.uri, Line: pos.Line, Column: pos.Column}, code, fmt.Sprintf(format, a...))
}

func (l *loader) schema(doc *xmlDocument) (*schema.Schema, error) {
	s := &schema.Schema{
		URI:      l.uri,
		Messages: make([]*schema.Message, 0, len(doc.Messages)),
		Enums:    make([]*schema.Enum, 0, len(doc.Enums)),
	}
	for x := range doc.Messages {
		m, err := l.message(&doc.Messages[x])
		if err != nil {
			return nil, err
		}
		s.Messages = append(s.Messages, m)
	}
	for x := range doc.Enums {
		e, err := l.enum(&doc.Enums[x])
		if err != nil {
			return nil, err
		}
		s.Enums = append(s.Enums, e)
	}
	return s, nil
}

func (l *loader) message(xm *xmlMessage) (*schema.Message, error) {
	if xm.Name == "" {
		return nil, l.fail(xm.pos, exc.CodeMalformedSchema, "message has no name")
	}
	m := &schema.Message{
		Pos:         xm.pos,
		Name:        xm.Name,
		Description: xm.Description,
		Entries:     make([]schema.Entry, 0, len(xm.Entries)),
	}
	for x := range xm.Entries {
		xe := &xm.Entries[x]
		var (
			entry schema.Entry
			err   error
		)
		switch xe.XMLName.Local {
		case "field":
			entry, err = l.field(m, xe)
		case "index":
			entry, err = l.index(m, xe)
		default:
			err = l.fail(xe.pos, exc.CodeMalformedSchema, "unexpected element %q in message %q", xe.XMLName.Local, m.Name)
		}
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, entry)
	}
	return m, nil
}

func (l *loader) id(xe *xmlEntry, message string) (int32, error) {
	id, err := strconv.ParseInt(xe.ID, 10, 32)
	if err != nil || id < 1 {
		return 0, l.fail(xe.pos, exc.CodeInvalidNumber, "%s %q of message %q has invalid id %q", xe.XMLName.Local, xe.Name, message, xe.ID)
	}
	return int32(id), nil
}

func (l *loader) field(m *schema.Message, xe *xmlEntry) (*schema.Field, error) {
	if xe.Name == "" {
		return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "field of message %q has no name", m.Name)
	}
	id, err := l.id(xe, m.Name)
	if err != nil {
		return nil, err
	}
	modifier, ok := schema.ParseModifier(xe.Modifier)
	if !ok {
		return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "field %q of message %q has unknown modifier %q", xe.Name, m.Name, xe.Modifier)
	}
	f := &schema.Field{
		Pos:         xe.pos,
		ID:          id,
		Name:        xe.Name,
		Description: xe.Description,
		Modifier:    modifier,
		Default:     optional.FromPtr(xe.Default),
	}
	switch xe.Type {
	case "":
		return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "field %q of message %q has no type", xe.Name, m.Name)
	case typeEnum:
		if xe.EnumType == "" {
			return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "enum field %q of message %q has no enumType", xe.Name, m.Name)
		}
		f.Category = schema.TypeCategoryEnum
		f.TypeName = xe.EnumType
	case typeNestedMessage, typeReferenceMessage:
		if xe.MessageType == "" {
			return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "%s field %q of message %q has no messageType", xe.Type, xe.Name, m.Name)
		}
		f.Category = schema.TypeCategoryNestedMessage
		if xe.Type == typeReferenceMessage {
			f.Category = schema.TypeCategoryReferenceMessage
		}
		f.TypeName = xe.MessageType
	default:
		f.Category = schema.TypeCategoryPrimitive
		f.Primitive = xe.Type
	}
	return f, nil
}

func (l *loader) index(m *schema.Message, xe *xmlEntry) (*schema.Index, error) {
	if xe.Name == "" {
		return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "index of message %q has no name", m.Name)
	}
	id, err := l.id(xe, m.Name)
	if err != nil {
		return nil, err
	}
	if xe.ForField == "" {
		return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "index %q of message %q has no forField", xe.Name, m.Name)
	}
	return &schema.Index{
		Pos:      xe.pos,
		ID:       id,
		Name:     xe.Name,
		ForField: xe.ForField,
		SortBy:   xe.SortBy,
	}, nil
}

func (l *loader) enum(xe *xmlEnum) (*schema.Enum, error) {
	if xe.Name == "" {
		return nil, l.fail(xe.pos, exc.CodeMalformedSchema, "enum has no name")
	}
	e := &schema.Enum{
		Pos:         xe.pos,
		Name:        xe.Name,
		Description: xe.Description,
		Items:       make([]*schema.EnumItem, 0, len(xe.Items)),
	}
	for x := range xe.Items {
		xi := &xe.Items[x]
		if xi.Name == "" {
			return nil, l.fail(xi.pos, exc.CodeMalformedSchema, "item of enum %q has no name", e.Name)
		}
		item := &schema.EnumItem{
			Pos:         xi.pos,
			Name:        xi.Name,
			Description: xi.Description,
		}
		if xi.Value != nil {
			v, err := strconv.ParseInt(*xi.Value, 10, 32)
			if err != nil {
				return nil, l.fail(xi.pos, exc.CodeInvalidNumber, "item %q of enum %q has invalid value %q", xi.Name, e.Name, *xi.Value)
			}
			item.Value = optional.Some(v)
		}
		e.Items = append(e.Items, item)
	}
	return e, nil
}
