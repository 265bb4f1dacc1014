package compiler

import (
	"context"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
)

type SubCompiler interface {
	CompileFile(ctx context.Context, r exc.Reporter, file idl.File, req *idl.CompileRequest) (*idl.Output, error)
}

func DefaultSubCompilers() map[idl.FileKind]SubCompiler {
	return map[idl.FileKind]SubCompiler{
		idl.FileKindProtoZ: &SubCompilerProtoZ{
			Checker: &ProtobufChecker{},
		},
		// Generated protobuf files are outputs only.
		idl.FileKindProtobuf: nil,
	}
}
