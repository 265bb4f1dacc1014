// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
	"gopkg.microglot.org/protozc/internal/target"
)

type Option func(c *compiler) error

func OptionWithFS(fs idl.FileSystem) Option {
	return func(c *compiler) error {
		c.FS = fs
		return nil
	}
}

func OptionWithLookupEnv(lookupEnv func(string) (string, bool)) Option {
	return func(c *compiler) error {
		c.LookupENV = lookupEnv
		return nil
	}
}

// OptionWithNonFatal adds exception codes that are reported as warnings
// instead of failing a compilation.
func OptionWithNonFatal(codes ...string) Option {
	return func(c *compiler) error {
		c.NonFatal = append(c.NonFatal, codes...)
		return nil
	}
}

func OptionWithMaxConcurrency(max int) Option {
	return func(c *compiler) error {
		if max < 1 {
			return fmt.Errorf("max concurrency must be positive, got %d", max)
		}
		c.MaxConcurrency = max
		return nil
	}
}

func OptionWithLogger(logger zerolog.Logger) Option {
	return func(c *compiler) error {
		c.Logger = logger
		return nil
	}
}

func New(opts ...Option) (idl.Compiler, error) {
	c := &compiler{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.LookupENV == nil {
		c.LookupENV = os.LookupEnv
	}
	if c.FS == nil {
		dfs, err := NewDefaultFS(c.LookupENV)
		if err != nil {
			return nil, err
		}
		c.FS = dfs
	}
	if c.MaxConcurrency == 0 {
		max := runtime.GOMAXPROCS(-1)
		cpus := runtime.NumCPU()
		if max > cpus {
			max = cpus
		}
		c.MaxConcurrency = max
	}
	if c.Semaphore == nil {
		c.Semaphore = newSemaphore(c.MaxConcurrency)
	}
	if c.SubCompilers == nil {
		c.SubCompilers = DefaultSubCompilers()
	}
	return c, nil
}

type compiler struct {
	LookupENV      func(string) (string, bool)
	FS             idl.FileSystem
	MaxConcurrency int
	Semaphore      *semaphore
	NonFatal       []string
	SubCompilers   map[idl.FileKind]SubCompiler
	Logger         zerolog.Logger
}

// Compile generates one output per source document found under the requested
// targets. Outputs are returned in target order. When any fatal exception is
// reported the error is an exc.MultiException and the response holds the
// outputs that did succeed.
func (self *compiler) Compile(ctx context.Context, req *idl.CompileRequest) (*idl.CompileResponse, error) {
	r := exc.NewReporter(self.NonFatal)
	files := make([]idl.File, 0, len(req.Files))
	seen := make(map[string]bool, len(req.Files))
	for _, f := range req.Files {
		uri := target.Normalize(f)
		in, err := self.FS.Open(ctx, uri)
		if err != nil {
			r.Report(asException(uri, err))
			continue
		}
		for _, inf := range in {
			if inf.Kind(ctx) == idl.FileKindNone {
				self.Logger.Debug().Str("file", inf.Path(ctx)).Msg("skipping file of unknown kind")
				continue
			}
			// A document named by more than one target compiles once, at
			// its first position.
			if seen[inf.Path(ctx)] {
				continue
			}
			seen[inf.Path(ctx)] = true
			files = append(files, inf)
		}
	}

	outputs := make([]*idl.Output, len(files))
	results := make(chan fileResult, len(files))
	expectedResults := len(files)

	for offset, file := range files {
		go func(offset int, file idl.File) {
			output, err := self.compileFile(ctx, r, file, req)
			results <- fileResult{offset, output, err}
		}(offset, file)
	}

	for x := 0; x < expectedResults; x = x + 1 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result := <-results:
			if result.err != nil {
				continue
			}
			outputs[result.offset] = result.output
		}
	}

	response := &idl.CompileResponse{
		Outputs: make([]*idl.Output, 0, len(outputs)),
	}
	for _, output := range outputs {
		if output != nil {
			response.Outputs = append(response.Outputs, output)
		}
	}
	fatal := r.Fatal()
	response.Warnings = warnings(r.Reported(), fatal)
	if len(fatal) > 0 {
		return response, exc.MultiException(fatal)
	}
	return response, nil
}

func (self *compiler) compileFile(ctx context.Context, r exc.Reporter, file idl.File, req *idl.CompileRequest) (*idl.Output, error) {
	if err := self.Semaphore.Acquire(ctx); err != nil {
		return nil, err
	}
	defer self.Semaphore.Release()
	path := file.Path(ctx)
	sc := self.SubCompilers[file.Kind(ctx)]
	if sc == nil {
		e := exc.New(exc.Location{URI: path}, exc.CodeUnsupportedFileFormat, fmt.Sprintf("Unsupported file format %s", file.Kind(ctx)))
		return nil, r.Report(e)
	}
	start := time.Now()
	output, err := sc.CompileFile(ctx, r, file, req)
	if err != nil {
		self.Logger.Debug().Str("file", path).Err(err).Msg("compilation failed")
		return nil, err
	}
	self.Logger.Debug().
		Str("file", path).
		Str("output", output.Path).
		Bool("checked", output.Descriptor != nil).
		Dur("elapsed", time.Since(start)).
		Msg("compiled")
	return output, nil
}

type fileResult struct {
	offset int
	output *idl.Output
	err    error
}

func asException(uri string, err error) exc.Exception {
	if e, ok := err.(exc.Exception); ok {
		return e
	}
	return exc.WrapUnknown(exc.Location{URI: uri}, err)
}

func warnings(reported []exc.Exception, fatal []exc.Exception) []exc.Exception {
	isFatal := make(map[exc.Exception]bool, len(fatal))
	for _, e := range fatal {
		isFatal[e] = true
	}
	var out []exc.Exception
	for _, e := range reported {
		if !isFatal[e] {
			out = append(out, e)
		}
	}
	return out
}
