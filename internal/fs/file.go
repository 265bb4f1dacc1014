// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
)

// NewFileString wraps static content in idl.File. The kind is taken from the
// path extension.
func NewFileString(path string, content string) idl.File {
	return NewFileFN(path, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	})
}

// NewFileFN wraps file based content in idl.File. The open function runs on
// every call to Body so it must return a fresh handle each time.
func NewFileFN(path string, open func() (io.ReadCloser, error)) idl.File {
	return &lazyFile{
		path: path,
		kind: KindOf(path),
		open: open,
	}
}

type lazyFile struct {
	path string
	kind idl.FileKind
	open func() (io.ReadCloser, error)
}

func (f *lazyFile) Path(ctx context.Context) string {
	return f.path
}

func (f *lazyFile) Kind(ctx context.Context) idl.FileKind {
	return f.kind
}

func (f *lazyFile) Body(ctx context.Context) (idl.FileBody, error) {
	rc, err := f.open()
	if err != nil {
		return nil, fsErr(f.path, err)
	}
	return &readerBody{
		path:   f.path,
		reader: bufio.NewReader(rc),
		closer: rc,
	}, nil
}

// readerBody adapts a buffered reader to idl.FileBody. The slice returned by
// Read is reused by the next call.
type readerBody struct {
	path   string
	reader *bufio.Reader
	closer io.Closer
	buf    []byte
}

func (b *readerBody) Read(ctx context.Context, size int32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, exc.WrapUnknown(exc.Location{URI: b.path}, err)
	}
	if cap(b.buf) < int(size) {
		b.buf = make([]byte, size)
	}
	count, err := b.reader.Read(b.buf[:size])
	switch {
	case errors.Is(err, io.EOF):
		return b.buf[:count], exc.Wrap(exc.Location{URI: b.path}, exc.CodeEOF, err)
	case err != nil:
		return nil, exc.WrapUnknown(exc.Location{URI: b.path}, err)
	}
	return b.buf[:count], nil
}

func (b *readerBody) Close(ctx context.Context) error {
	return b.closer.Close()
}
