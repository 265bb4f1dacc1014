package compiler

import (
	"context"
	"errors"
	"io"

	"gopkg.microglot.org/protozc/internal/compiler/protoz"
	"gopkg.microglot.org/protozc/internal/emit"
	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
	"gopkg.microglot.org/protozc/internal/target"
)

// SubCompilerProtoZ loads a protoz document, emits it as protobuf text and
// optionally checks the text with a protobuf parser.
type SubCompilerProtoZ struct {
	Checker *ProtobufChecker
}

func (self *SubCompilerProtoZ) CompileFile(ctx context.Context, r exc.Reporter, file idl.File, req *idl.CompileRequest) (*idl.Output, error) {
	uri := file.Path(ctx)
	b, err := file.Body(ctx)
	if err != nil {
		return nil, r.Report(asException(uri, err))
	}
	defer b.Close(ctx)

	s, err := protoz.Load(uri, &fileBodyIO{ctx: ctx, body: b})
	if err != nil {
		return nil, r.Report(asException(uri, err))
	}
	content, err := emit.Generate(s, req.Namespace)
	if err != nil {
		var me exc.MultiException
		if !errors.As(err, &me) {
			return nil, r.Report(asException(uri, err))
		}
		// There is no partial output so the document fails even when the
		// reporter treats these codes as warnings.
		for _, e := range me {
			r.Report(e)
		}
		return nil, err
	}
	output := &idl.Output{
		Source:  uri,
		Path:    target.OutputPath(uri),
		Content: content,
	}
	if req.Check && self.Checker != nil {
		descriptor, err := self.Checker.Check(ctx, r, output)
		if err != nil {
			return nil, err
		}
		output.Descriptor = descriptor
	}
	return output, nil
}

type fileBodyIO struct {
	ctx  context.Context
	body idl.FileBody
}

func (self *fileBodyIO) Read(p []byte) (int, error) {
	b, err := self.body.Read(self.ctx, int32(len(p)))
	if err != nil && !errors.Is(err, io.EOF) {
		return len(b), err
	}
	copy(p, b)
	if errors.Is(err, io.EOF) {
		return len(b), io.EOF
	}
	return len(b), nil
}
