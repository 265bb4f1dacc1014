package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
)

func readAll(t *testing.T, ctx context.Context, f idl.File) string {
	t.Helper()
	body, err := f.Body(ctx)
	require.NoError(t, err)
	defer body.Close(ctx)
	var out []byte
	for {
		b, err := body.Read(ctx, 4)
		out = append(out, b...)
		if err != nil {
			var e exc.Exception
			require.ErrorAs(t, err, &e)
			require.Equal(t, exc.CodeEOF, e.Code())
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}
	return string(out)
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, idl.FileKindProtoZ, KindOf("/a/b.xml"))
	require.Equal(t, idl.FileKindProtoZ, KindOf("b.protoz"))
	require.Equal(t, idl.FileKindProtobuf, KindOf("b.proto"))
	require.Equal(t, idl.FileKindNone, KindOf("b.txt"))
}

func TestFileSystemLocal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "schemas"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "schemas", "b.xml"), []byte("bbb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "schemas", "a.protoz"), []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "schemas", "a.proto"), []byte("generated"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "schemas", "notes.txt"), []byte("ignored"), 0o644))

	lfs, err := NewFileSystemLocal(root)
	require.NoError(t, err)

	files, err := lfs.Open(ctx, "/schemas/b.xml")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "/schemas/b.xml", files[0].Path(ctx))
	require.Equal(t, idl.FileKindProtoZ, files[0].Kind(ctx))
	require.Equal(t, "bbb", readAll(t, ctx, files[0]))

	files, err = lfs.Open(ctx, "schemas")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "/schemas/a.protoz", files[0].Path(ctx))
	require.Equal(t, "/schemas/b.xml", files[1].Path(ctx))
	require.Equal(t, "aaa", readAll(t, ctx, files[0]))

	_, err = lfs.Open(ctx, "/missing.xml")
	var e exc.Exception
	require.ErrorAs(t, err, &e)
	require.Equal(t, exc.CodeFileNotFound, e.Code())

	require.NoError(t, lfs.Write(ctx, "/out/nested/a.proto", "package a;\n"))
	b, err := os.ReadFile(filepath.Join(root, "out", "nested", "a.proto"))
	require.NoError(t, err)
	require.Equal(t, "package a;\n", string(b))
	entries, err := os.ReadDir(filepath.Join(root, "out", "nested"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileSystemMulti(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	first := NewFileSystemMemory(map[string]string{"/a.xml": "first"})
	second := NewFileSystemMemory(map[string]string{"/a.xml": "second", "/b.xml": "b"})
	multi := FileSystemMulti{first, second}

	files, err := multi.Open(ctx, "/a.xml")
	require.NoError(t, err)
	require.Equal(t, "first", readAll(t, ctx, files[0]))

	files, err = multi.Open(ctx, "/b.xml")
	require.NoError(t, err)
	require.Equal(t, "b", readAll(t, ctx, files[0]))

	_, err = multi.Open(ctx, "/c.xml")
	require.Error(t, err)

	var e exc.Exception
	require.ErrorAs(t, multi.Write(ctx, "/c.proto", ""), &e)
	require.Equal(t, exc.CodeUnsuportedFileSystemOperation, e.Code())
}

func TestFileSystemMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewFileSystemMemory(map[string]string{
		"dir/b.xml":       "b",
		"/dir/a.protoz":   "a",
		"/dir/a.proto":    "skip",
		"/dir/sub/c.xml":  "skip",
		"/other/d.protoz": "skip",
	})
	files, err := m.Open(ctx, "/dir")
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "/dir/a.protoz", files[0].Path(ctx))
	require.Equal(t, "/dir/b.xml", files[1].Path(ctx))

	require.NoError(t, m.Write(ctx, "out/a.proto", "x"))
	content, ok := m.Read("/out/a.proto")
	require.True(t, ok)
	require.Equal(t, "x", content)
}

func TestFileBodyCanceled(t *testing.T) {
	t.Parallel()
	f := NewFileString("/a.xml", "content")
	require.Equal(t, idl.FileKindProtoZ, f.Kind(context.Background()))
	body, err := f.Body(context.Background())
	require.NoError(t, err)
	defer body.Close(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = body.Read(ctx, 4)
	var e exc.Exception
	require.ErrorAs(t, err, &e)
	require.Equal(t, "/a.xml", e.Location().URI)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileBodyOpenError(t *testing.T) {
	t.Parallel()
	f := NewFileFN("/missing.xml", func() (io.ReadCloser, error) {
		return nil, &os.PathError{Op: "open", Path: "/missing.xml", Err: os.ErrNotExist}
	})
	_, err := f.Body(context.Background())
	var e exc.Exception
	require.ErrorAs(t, err, &e)
	require.Equal(t, exc.CodeFileNotFound, e.Code())
}

type deniedFS struct{}

func (deniedFS) Open(ctx context.Context, uri string) ([]idl.File, error) {
	return nil, exc.New(exc.Location{URI: uri}, exc.CodePermissionDenied, "denied")
}

func (deniedFS) Write(ctx context.Context, uri string, content string) error {
	return nil
}

func TestFileSystemMultiStopsOnFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	multi := FileSystemMulti{
		NewFileSystemMemory(map[string]string{"/a.xml": "a"}),
		deniedFS{},
		NewFileSystemMemory(map[string]string{"/b.xml": "b"}),
	}
	files, err := multi.Open(ctx, "/a.xml")
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = multi.Open(ctx, "/b.xml")
	var e exc.Exception
	require.ErrorAs(t, err, &e)
	require.Equal(t, exc.CodePermissionDenied, e.Code())
}
