package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"gopkg.microglot.org/protozc/internal/compiler"
	"gopkg.microglot.org/protozc/internal/config"
	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/fs"
	"gopkg.microglot.org/protozc/internal/idl"
	"gopkg.microglot.org/protozc/internal/target"
	"gopkg.microglot.org/protozc/internal/watch"
)

type opts struct {
	Config           string
	Namespace        string
	Roots            []string
	Output           string
	Check            bool
	DescriptorSetOut string
	Watch            bool
	LogLevel         string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.LookupEnv))
}

// stdinTarget is the target that reads one schema document from STDIN. The
// document is compiled as stdinPath.
const (
	stdinTarget = "-"
	stdinPath   = "/stdin.xml"
)

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	op := &opts{}
	flags := pflag.NewFlagSet("protozc", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&op.Config, "config", "", "Configuration file. Defaults to $XDG_CONFIG_HOME/"+config.SearchPath+" when present.")
	flags.StringVar(&op.Namespace, "namespace", "", "Package name written at the top of every output.")
	flags.StringSliceVar(&op.Roots, "root", []string{"."}, "Root search paths for targets.")
	flags.StringVar(&op.Output, "output", ".", "Output directory or - for STDOUT.")
	flags.BoolVar(&op.Check, "check", false, "Parse every output with a protobuf parser and report its diagnostics as warnings.")
	flags.StringVar(&op.DescriptorSetOut, "descriptor_set_out", "", "Writes a protobuf FileDescriptorSet containing all the outputs to FILE. Implies --check.")
	flags.BoolVar(&op.Watch, "watch", false, "Compile again whenever a schema under the roots changes.")
	flags.StringVar(&op.LogLevel, "log-level", "", "Log level: debug, info, warn or error.")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	targets := flags.Args()

	cfg, err := config.LoadWithFallback(op.Config, lookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	applyFlags(cfg, flags, op)

	logger, err := config.NewLogger(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if cfg.Namespace == "" {
		fmt.Fprintln(stderr, "a namespace is required: set --namespace, PROTOZC_NAMESPACE or namespace in the config file")
		return 2
	}
	if len(targets) < 1 {
		fmt.Fprintln(stderr, "no targets given")
		return 2
	}

	mf := make(fs.FileSystemMulti, 0, len(cfg.Roots)+2)
	if slices.Contains(targets, stdinTarget) {
		if op.Watch {
			fmt.Fprintln(stderr, "--watch cannot be used with a - target")
			return 2
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		mf = append(mf, fs.NewFileSystemMemory(map[string]string{stdinPath: string(b)}))
		targets = slices.Clone(targets)
		for x, t := range targets {
			if t == stdinTarget {
				targets[x] = stdinPath
			}
		}
	}
	for _, root := range cfg.Roots {
		rf, err := fs.NewFileSystemLocal(root)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		mf = append(mf, rf)
	}
	df, err := compiler.NewDefaultFS(lookupEnv)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	mf = append(mf, df)

	c, err := compiler.New(
		compiler.OptionWithLookupEnv(lookupEnv),
		compiler.OptionWithFS(mf),
		compiler.OptionWithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	req := &idl.CompileRequest{
		Files:     targets,
		Namespace: cfg.Namespace,
		Check:     cfg.Check || cfg.DescriptorSetOut != "",
	}

	status := compileOnce(ctx, c, req, cfg, stdout, stderr, logger)
	if !op.Watch {
		return status
	}
	w := watch.New(watchPaths(cfg.Roots, targets), func(ctx context.Context) {
		logger.Info().Msg("schemas changed, compiling")
		compileOnce(ctx, c, req, cfg, stdout, stderr, logger)
	}, watch.WithLogger(logger), watch.WithFilter(func(path string) bool {
		return fs.KindOf(path) == idl.FileKindProtoZ
	}))
	if err := w.Run(ctx); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return status
}

// watchPaths resolves every target against the roots the same way the
// compiler does, first root wins, so that targets in nested directories are
// watched directly. Roots are watched for targets that do not exist yet.
func watchPaths(roots []string, targets []string) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, t := range targets {
		rel := filepath.FromSlash(target.Normalize(t))
		found := false
		for _, root := range roots {
			p := filepath.Join(root, rel)
			if _, err := os.Stat(p); err == nil {
				add(p)
				found = true
				break
			}
		}
		if !found {
			for _, root := range roots {
				add(root)
			}
		}
	}
	return paths
}

func applyFlags(cfg *config.Config, flags *pflag.FlagSet, op *opts) {
	if flags.Changed("namespace") {
		cfg.Namespace = op.Namespace
	}
	if flags.Changed("root") {
		cfg.Roots = op.Roots
	}
	if flags.Changed("output") {
		cfg.Output = op.Output
	}
	if flags.Changed("check") {
		cfg.Check = op.Check
	}
	if flags.Changed("descriptor_set_out") {
		cfg.DescriptorSetOut = op.DescriptorSetOut
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = op.LogLevel
	}
}

// compileOnce runs one compilation and writes its outputs. Nothing is written
// when any target failed.
func compileOnce(ctx context.Context, c idl.Compiler, req *idl.CompileRequest, cfg *config.Config, stdout io.Writer, stderr io.Writer, logger zerolog.Logger) int {
	out, err := c.Compile(ctx, req)
	if out != nil {
		for _, w := range out.Warnings {
			logger.Warn().Str("code", w.Code()).Msg(w.Error())
		}
	}
	if err != nil {
		var me exc.MultiException
		if errors.As(err, &me) {
			for _, e := range me {
				fmt.Fprintln(stderr, e.Error())
			}
			return 1
		}
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	if cfg.DescriptorSetOut != "" {
		if err := writeDescriptorSet(cfg.DescriptorSetOut, out.Outputs); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
	}

	if cfg.Output == "-" {
		for _, output := range out.Outputs {
			if _, err := io.WriteString(stdout, output.Content); err != nil {
				fmt.Fprintln(stderr, err.Error())
				return 1
			}
		}
		return 0
	}
	dest, err := fs.NewFileSystemLocal(cfg.Output)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	for _, output := range out.Outputs {
		if err := dest.Write(ctx, output.Path, output.Content); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		logger.Info().Str("source", output.Source).Str("output", filepath.Join(cfg.Output, output.Path)).Msg("wrote")
	}
	return 0
}

func writeDescriptorSet(path string, outputs []*idl.Output) error {
	fds := &descriptorpb.FileDescriptorSet{}
	for _, output := range outputs {
		if output.Descriptor == nil {
			return fmt.Errorf("%s: cannot add %s to the descriptor set, the protobuf parser rejected it", output.Source, output.Path)
		}
		fds.File = append(fds.File, output.Descriptor)
	}
	b, err := proto.Marshal(fds)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
