// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package idl

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/descriptorpb"

	"gopkg.microglot.org/protozc/internal/exc"
)

type Closer interface {
	Close(ctx context.Context) error
}

type Reader interface {
	Read(ctx context.Context, size int32) ([]byte, error)
}

type FileBody interface {
	Reader
	Closer
}

type FileKind uint32

const (
	FileKindNone FileKind = iota
	FileKindProtoZ
	FileKindProtobuf
)

func (k FileKind) String() string {
	switch k {
	case FileKindNone:
		return "none"
	case FileKindProtoZ:
		return "protoz"
	case FileKindProtobuf:
		return "protobuf"
	default:
		return fmt.Sprintf("unkown-%d", k)
	}
}

type File interface {
	Path(ctx context.Context) string
	Kind(ctx context.Context) FileKind
	Body(ctx context.Context) (FileBody, error)
}

type FileSystem interface {
	Open(ctx context.Context, uri string) ([]File, error)
	Write(ctx context.Context, uri string, content string) error
}

type Compiler interface {
	Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error)
}

type CompileRequest struct {
	Files []string
	// Namespace is written verbatim as the package of every output.
	Namespace string
	// Check parses every output with a protobuf parser. Parser diagnostics
	// are returned as warnings and never suppress an output.
	Check bool
}

type CompileResponse struct {
	Outputs  []*Output
	Warnings []exc.Exception
}

// Output is the generated text for one source document.
type Output struct {
	// Source is the URI of the document the output was generated from.
	Source string
	// Path is the output file name, relative to the output directory.
	Path    string
	Content string
	// Descriptor is set only when the output was checked and the protobuf
	// parser accepted it.
	Descriptor *descriptorpb.FileDescriptorProto
}
