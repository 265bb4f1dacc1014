package compiler

import (
	"context"
	"errors"
	"strings"

	"github.com/bufbuild/protocompile/options"
	"github.com/bufbuild/protocompile/parser"
	"github.com/bufbuild/protocompile/reporter"
	"google.golang.org/protobuf/types/descriptorpb"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
)

// ProtobufChecker parses generated text with the protocompile parser. Parser
// errors and warnings are reported as exc.CodeProtobufParseError which the
// default reporter treats as non-fatal.
type ProtobufChecker struct{}

// Check returns the descriptor of output when the parser accepts it and nil
// when it reported diagnostics. An error is returned only when the reporter
// decided a diagnostic was fatal.
func (self *ProtobufChecker) Check(ctx context.Context, r exc.Reporter, output *idl.Output) (*descriptorpb.FileDescriptorProto, error) {
	h := reporter.NewHandler(&protoReporter{Reporter: r})
	node, err := parser.Parse(output.Path, strings.NewReader(output.Content), h)
	if err != nil {
		return nil, checkErr(r, output.Path, err)
	}
	result, err := parser.ResultFromAST(node, true, h)
	if err != nil {
		return nil, checkErr(r, output.Path, err)
	}
	if _, err := options.InterpretUnlinkedOptions(result); err != nil {
		return nil, checkErr(r, output.Path, err)
	}
	return result.FileDescriptorProto(), nil
}

// checkErr converts a parser failure into the result of Check. Diagnostics
// that went through protoReporter were reported already.
func checkErr(r exc.Reporter, uri string, err error) error {
	if errors.Is(err, reporter.ErrInvalidSource) {
		return nil
	}
	var e exc.Exception
	if errors.As(err, &e) {
		return e
	}
	if fatal := r.Report(exc.Wrap(exc.Location{URI: uri}, exc.CodeProtobufParseError, err)); fatal != nil {
		return fatal
	}
	return nil
}

type protoReporter struct {
	Reporter exc.Reporter
}

func (self *protoReporter) Error(e reporter.ErrorWithPos) error {
	pos := e.GetPosition()
	loc := exc.Location{
		URI:    pos.Filename,
		Line:   int32(pos.Line),
		Column: int32(pos.Col),
	}
	if fatal := self.Reporter.Report(exc.Wrap(loc, exc.CodeProtobufParseError, e)); fatal != nil {
		return fatal
	}
	return nil
}

func (self *protoReporter) Warning(e reporter.ErrorWithPos) {
	_ = self.Error(e)
}
