// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package emit renders a schema.Schema as proto2 text.
package emit

import (
	"fmt"
	"io"
	"strings"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/lower"
	"gopkg.microglot.org/protozc/internal/schema"
)

const (
	indent        = "    "
	commentIndent = "  //"
)

// Generate renders s under the package namespace. Every entry of every message
// is lowered before the call fails so that the returned exc.MultiException
// names all unresolved references at once. No text is returned on failure.
func Generate(s *schema.Schema, namespace string) (string, error) {
	e := &emitter{
		schema:   s,
		enums:    s.EnumTable(),
		reporter: exc.NewReporter(nil),
	}
	e.document(namespace)
	if fatal := e.reporter.Fatal(); len(fatal) > 0 {
		return "", exc.MultiException(fatal)
	}
	return e.buf.String(), nil
}

// GenerateTo renders s and writes the complete text to w with a single call.
// Nothing is written when generation fails.
func GenerateTo(w io.Writer, s *schema.Schema, namespace string) error {
	text, err := Generate(s, namespace)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

type emitter struct {
	schema   *schema.Schema
	enums    map[string]*schema.Enum
	reporter exc.Reporter
	buf      strings.Builder
}

func (e *emitter) line(s string) {
	e.buf.WriteString(s)
	e.buf.WriteByte('\n')
}

func (e *emitter) linef(format string, a ...any) {
	e.line(fmt.Sprintf(format, a...))
}

func (e *emitter) document(namespace string) {
	e.linef("package %s;", namespace)
	for _, m := range e.schema.Messages {
		e.line("")
		e.message(m)
	}
	for _, en := range e.schema.Enums {
		e.line("")
		e.enum(en)
	}
	e.line("")
	e.block("message "+lower.LocatorType, lower.LocatorLines())
}

func (e *emitter) message(m *schema.Message) {
	scope := lower.NewScope(e.schema, m, e.enums)
	lines := make([]lower.Line, 0, len(m.Entries))
	for _, entry := range m.Entries {
		st, err := lower.Entry(entry, scope)
		if err != nil {
			e.report(err)
			continue
		}
		lines = append(lines, st.Lines()...)
	}
	e.block("message "+m.Name+lower.HeaderSuffix, lines)
}

func (e *emitter) enum(en *schema.Enum) {
	lines := make([]lower.Line, 0, len(en.Items))
	for _, item := range en.Items {
		if item.Value.IsPresent() {
			lines = append(lines, lower.Line{Text: fmt.Sprintf("%s=%d;", item.Name, item.Value.Value())})
			continue
		}
		lines = append(lines, lower.Line{Text: item.Name + ";"})
	}
	e.block("enum "+en.Name, lines)
}

func (e *emitter) block(head string, lines []lower.Line) {
	e.line(head)
	e.line("{")
	for _, l := range lines {
		if l.Comment {
			e.line(commentIndent + l.Text)
			continue
		}
		e.line(indent + l.Text)
	}
	e.line("}")
}

func (e *emitter) report(err error) {
	if ex, ok := err.(exc.Exception); ok {
		e.reporter.Report(ex)
		return
	}
	e.reporter.Report(exc.WrapUnknown(exc.Location{URI: e.schema.URI}, err))
}
