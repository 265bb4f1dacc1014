// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
)

const (
	fileExt    = ".protoz" // Typical protoz schema content
	fileXMLExt = ".xml"    // protoz schema content under its historical extension
	protoExt   = ".proto"  // Generated protobuf IDL content
)

var knownExts = map[string]idl.FileKind{
	fileExt:    idl.FileKindProtoZ,
	fileXMLExt: idl.FileKindProtoZ,
	protoExt:   idl.FileKindProtobuf,
}

// KindOf returns the kind of file implied by the extension of path.
func KindOf(path string) idl.FileKind {
	return knownExts[filepath.Ext(path)]
}

// cleanURI reduces a target URI to a rooted, slash separated path.
func cleanURI(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		uri = u.Path
	}
	return path.Clean("/" + filepath.ToSlash(uri))
}

var _ idl.FileSystem = FileSystemMulti{}

// FileSystemMulti is an ordered set of FileSystem implementations that are
// tried in order. Note that this type does not implement write operations.
// Those must be performed on individual backends.
type FileSystemMulti []idl.FileSystem

// Open returns the files of the first backend that has uri. A backend failure
// other than a missing file stops the search so that an unreadable root does
// not silently fall through to a later one.
func (r FileSystemMulti) Open(ctx context.Context, uri string) ([]idl.File, error) {
	for _, backend := range r {
		files, err := backend.Open(ctx, uri)
		if err == nil {
			return files, nil
		}
		var e exc.Exception
		if errors.As(err, &e) && e.Code() != exc.CodeFileNotFound {
			return nil, err
		}
	}
	return nil, exc.New(exc.Location{URI: uri}, exc.CodeFileNotFound, fmt.Sprintf("could not open %s from any file system", uri))
}

func (r FileSystemMulti) Write(ctx context.Context, uri string, content string) error {
	return exc.New(exc.Location{URI: uri}, exc.CodeUnsuportedFileSystemOperation, "cannot write to a composite file system")
}

// FileFilter is a filter function type used to select which files to open when
// the path being opened is a directory. Implementations should return true if
// the file should be opened, false otherwise.
type FileFilter func(ctx context.Context, fname string) bool

type FileSystemLocalOption func(*fileSystemLocal)

// WithOptionFSFactory installs a custom factory function used to generate the
// underlying file system handle. The default value is os.DirFS. The string
// value provided to the factory function is the root directory of the file
// system. All paths given to open or write are considered relative to this
// root.
func WithOptionFSFactory(v func(root string) fs.FS) FileSystemLocalOption {
	return func(rfs *fileSystemLocal) {
		rfs.fsFactory = v
	}
}

// WithOptionFileFilter installs a custom filter function used to select files
// when a target is a directory. The default value selects protoz schema
// files only so that generated .proto files sitting next to their sources are
// never picked up as inputs.
func WithOptionFileFilter(v FileFilter) FileSystemLocalOption {
	return func(rfs *fileSystemLocal) {
		rfs.fileFilter = v
	}
}

type fileSystemLocal struct {
	root       string
	fsFactory  func(string) fs.FS
	fileFilter FileFilter
}

// NewFileSystemLocal creates a new FileSystem that uses the local file system.
func NewFileSystemLocal(root string, options ...FileSystemLocalOption) (idl.FileSystem, error) {
	absroot, err := filepath.Abs(root)
	if err != nil {
		return nil, exc.WrapUnknown(exc.Location{URI: root}, err)
	}
	result := &fileSystemLocal{
		root:      absroot,
		fsFactory: os.DirFS,
		fileFilter: func(ctx context.Context, fname string) bool {
			return KindOf(fname) == idl.FileKindProtoZ
		},
	}
	for _, option := range options {
		option(result)
	}
	return result, nil
}

func (r *fileSystemLocal) Open(ctx context.Context, uri string) ([]idl.File, error) {
	rooted := cleanURI(uri)
	// fs.FS wants un-rooted paths and spells the root as ".".
	p := strings.TrimPrefix(rooted, "/")
	if p == "" {
		p = "."
	}
	dir := r.fsFactory(r.root)
	stat, err := fs.Stat(dir, p)
	if err != nil {
		return nil, fsErr(rooted, err)
	}
	if !stat.IsDir() {
		return []idl.File{NewFileFN(rooted, func() (io.ReadCloser, error) {
			return dir.Open(p)
		})}, nil
	}
	entries, err := fs.ReadDir(dir, p)
	if err != nil {
		return nil, fsErr(rooted, err)
	}
	files := make([]idl.File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !r.fileFilter(ctx, entry.Name()) {
			continue
		}
		entryPath := path.Join(p, entry.Name())
		files = append(files, NewFileFN("/"+entryPath, func() (io.ReadCloser, error) {
			return dir.Open(entryPath)
		}))
	}
	if len(files) < 1 {
		return nil, exc.New(exc.Location{URI: rooted}, exc.CodeFileNotFound, fmt.Sprintf("directory %s holds no schema documents", rooted))
	}
	return files, nil
}

// Write replaces the file at uri with content. The content is written to a
// temporary file in the same directory first so readers never observe a
// partially written file.
func (r *fileSystemLocal) Write(ctx context.Context, uri string, content string) error {
	p := filepath.Join(r.root, filepath.FromSlash(cleanURI(uri)))
	d := filepath.Dir(p)
	if err := os.MkdirAll(d, os.ModeDir|0o755); err != nil {
		return fsErr(d, err)
	}
	tmp, err := os.CreateTemp(d, "."+filepath.Base(p)+".*")
	if err != nil {
		return fsErr(d, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fsErr(tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fsErr(tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fsErr(tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fsErr(p, err)
	}
	return nil
}

func fsErr(path string, err error) error {
	var errT *fs.PathError
	if !errors.As(err, &errT) {
		return exc.WrapUnknown(exc.Location{URI: path}, err)
	}
	switch {
	case errors.Is(errT, fs.ErrNotExist):
		return exc.Wrap(exc.Location{URI: errT.Path}, exc.CodeFileNotFound, errT)
	case errors.Is(errT, fs.ErrPermission):
		return exc.Wrap(exc.Location{URI: errT.Path}, exc.CodePermissionDenied, errT)
	default:
		return exc.WrapUnknown(exc.Location{URI: errT.Path}, errT)
	}
}
