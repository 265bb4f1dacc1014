// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package exc

import (
	"fmt"
	"strings"
)

type Exception interface {
	error
	Code() string
	Message() string
	Location() Location
}

// Location identifies a position within a source document. Line and Column
// are one based; zero means the position is unknown.
type Location struct {
	URI    string
	Line   int32
	Column int32
}

type exc struct {
	code     string
	message  string
	location Location
}

func (e *exc) Error() string {
	return fmt.Sprintf("%s:%d:%d -- %s: %s", e.location.URI, e.location.Line, e.location.Column, e.code, e.message)
}

func (e *exc) Code() string {
	return e.code
}

func (e *exc) Message() string {
	return e.message
}

func (e *exc) Location() Location {
	return e.location
}

type excUnwrap struct {
	Exception
	cause error
}

func (e *excUnwrap) Unwrap() error {
	return e.cause
}

func New(location Location, code string, message string) Exception {
	return &exc{
		location: location,
		message:  message,
		code:     code,
	}
}

func Wrap(location Location, code string, err error) Exception {
	if err == nil {
		return nil
	}
	if e, ok := err.(Exception); ok {
		return &excUnwrap{
			Exception: New(location, code, e.Message()),
			cause:     e,
		}
	}
	return &excUnwrap{
		cause:     err,
		Exception: New(location, code, err.Error()),
	}
}

func WrapUnknown(location Location, err error) Exception {
	return Wrap(location, CodeUnknownFatal, err)
}

// MultiException is the error returned when one or more fatal exceptions were
// reported during a single operation.
type MultiException []Exception

func (self MultiException) Error() string {
	if len(self) == 0 {
		return "no exceptions"
	}
	var b strings.Builder
	for _, err := range self[:len(self)-1] {
		b.WriteString(err.Error())
		b.WriteString("; ")
	}
	b.WriteString(self[len(self)-1].Error())
	return b.String()
}

// Codes returns the code of each exception in order.
func (self MultiException) Codes() []string {
	codes := make([]string, 0, len(self))
	for _, e := range self {
		codes = append(codes, e.Code())
	}
	return codes
}
