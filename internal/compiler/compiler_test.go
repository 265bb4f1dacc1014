package compiler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/fs"
	"gopkg.microglot.org/protozc/internal/idl"
)

const header = `<?xml version="1.0" encoding="utf-8" ?>
<protozbuff xmlns="http://tempuri.org/protoZ.xsd">
`

const locator = `
message LocalMessageDescriptor
{
    repeated int32 coordinate = 1 [packed=true];
}
`

func newTestCompiler(t *testing.T, files map[string]string, opts ...Option) idl.Compiler {
	t.Helper()
	opts = append([]Option{OptionWithFS(fs.NewFileSystemMemory(files))}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestCompile(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "message with two fields",
			input: header + `  <message name="Folder" description="Document definition">
    <field id="1" modifier="required" name="name" type="string"
           description="Folder Name." />
    <field id="42" modifier="optional" name="size" type="int64"
           description="Folder size." />
  </message>
</protozbuff>`,
			expected: `package bar;

message FolderHeader
{
    required string name= 1;
    optional int64 size= 42;
}
` + locator,
		},
		{
			name: "no modifier means required",
			input: header + `  <message name="Folder" description="Document definition">
    <field id="1" name="size" type="double"
           description="Folder size." />
  </message>
</protozbuff>`,
			expected: `package bar;

message FolderHeader
{
    required double size= 1;
}
` + locator,
		},
		{
			name: "enum type for field",
			input: header + `  <message name="Folder" description="Document definition">
    <field id="1" modifier="required" name="name" type="enum" enumType="my_enum"
           description="Folder Name." />
  </message>
  <enum name="my_enum" description="description of my enum">
     <enumItem name="item1" description="first item" />
     <enumItem name="item2" description="second item" value="42"/>
     <enumItem name="item3" description="third item"/>
  </enum>
</protozbuff>`,
			expected: `package bar;

message FolderHeader
{
    required my_enum name= 1;
}

enum my_enum
{
    item1;
    item2=42;
    item3;
}
` + locator,
		},
		{
			name: "index",
			input: header + `  <message name="Folder" description="Document definition">
    <field id="1" name="name" type="referenceMessage" messageType="File"
           description="Folder Name." modifier="repeated" />
    <index id="2" name="my_index" forField="1" sortBy="filename" />
  </message>
  <message name="File" description="File desc">
     <field id="3" name="filename" type="string" modifier="required" />
  </message>
</protozbuff>`,
			expected: `package bar;

message FolderHeader
{
  //repeated FileHeader name= 1;
    repeated LocalMessageDescriptor name= 1;
  //repeated FileHeader my_index= 2;
    repeated LocalMessageDescriptor my_index= 2;
}

message FileHeader
{
    required string filename= 3;
}
` + locator,
		},
		{
			name: "index with default",
			input: header + `  <message name="Folder" description="Document definition">
    <field id="1" name="name" type="referenceMessage" messageType="File"
           description="Folder Name." modifier="repeated" default="foo" />
    <index id="2" name="my_index" forField="1" sortBy="filename"/>
  </message>
  <message name="File" description="File desc">
     <field id="3" name="filename" type="string" modifier="required"/>
  </message>
</protozbuff>`,
			expected: `package bar;

message FolderHeader
{
  //repeated FileHeader name= 1 [default=foo];
    repeated LocalMessageDescriptor name= 1 [default=foo];
  //repeated FileHeader my_index= 2 [default=foo];
    repeated LocalMessageDescriptor my_index= 2 [default=foo];
}

message FileHeader
{
    required string filename= 3;
}
` + locator,
		},
		{
			name: "nested message",
			input: header + `  <message name="Folder" description="Document definition">
    <field id="1" name="name" type="nestedMessage" messageType="File"
           description="Folder Name." modifier="required" />
  </message>
  <message name="File" description="File desc">
     <field id="2" name="filename" type="string" modifier="required" />
  </message>
</protozbuff>`,
			expected: `package bar;

message FolderHeader
{
  //required FileHeader name= 1;
    required uint32 name= 1;
}

message FileHeader
{
    required string filename= 2;
}
` + locator,
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			c := newTestCompiler(t, map[string]string{"/schemas/foo.xml": testCase.input})
			out, err := c.Compile(context.Background(), &idl.CompileRequest{
				Files:     []string{"schemas/foo.xml"},
				Namespace: "bar",
			})
			require.NoError(t, err)
			require.Empty(t, out.Warnings)
			require.Len(t, out.Outputs, 1)
			require.Equal(t, "/schemas/foo.xml", out.Outputs[0].Source)
			require.Equal(t, "schemas/foo.proto", out.Outputs[0].Path)
			require.Equal(t, testCase.expected, out.Outputs[0].Content)
			require.Nil(t, out.Outputs[0].Descriptor)
		})
	}
}

func TestCompileOrder(t *testing.T) {
	t.Parallel()
	files := make(map[string]string)
	targets := make([]string, 0)
	for x := 9; x >= 0; x = x - 1 {
		name := fmt.Sprintf("/s/m%d.xml", x)
		files[name] = fmt.Sprintf(`<protozbuff><message name="M%d"><field id="1" name="x" type="string"/></message></protozbuff>`, x)
		targets = append(targets, name)
	}
	for _, max := range []int{1, 4} {
		c := newTestCompiler(t, files, OptionWithMaxConcurrency(max))
		out, err := c.Compile(context.Background(), &idl.CompileRequest{Files: targets, Namespace: "ns"})
		require.NoError(t, err)
		require.Len(t, out.Outputs, len(targets))
		for x, target := range targets {
			require.Equal(t, target, out.Outputs[x].Source)
		}
	}

	// Directory targets expand in name order and duplicates compile once.
	c := newTestCompiler(t, files)
	out, err := c.Compile(context.Background(), &idl.CompileRequest{Files: []string{"/s", "/s/m3.xml"}, Namespace: "ns"})
	require.NoError(t, err)
	require.Len(t, out.Outputs, 10)
	require.Equal(t, "/s/m0.xml", out.Outputs[0].Source)
	require.Equal(t, "/s/m9.xml", out.Outputs[9].Source)
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/good.xml": `<protozbuff><message name="Good"><field id="1" name="x" type="string"/></message></protozbuff>`,
		"/bad.xml": `<protozbuff>
<message name="Bad">
<field id="1" name="kind" type="enum" enumType="nope"/>
<index id="2" name="by_missing" forField="7"/>
</message>
</protozbuff>`,
		"/broken.xml": `<protozbuff><message name="B"><field id="x" name="y" type="string"/></message></protozbuff>`,
		"/out.proto":  `package x;`,
	}
	c := newTestCompiler(t, files)
	out, err := c.Compile(context.Background(), &idl.CompileRequest{
		Files:     []string{"/good.xml", "/bad.xml", "/missing.xml", "/broken.xml", "/out.proto"},
		Namespace: "ns",
	})
	var me exc.MultiException
	require.True(t, errors.As(err, &me))
	require.ElementsMatch(t, []string{
		exc.CodeUnresolvedEnum,
		exc.CodeUnresolvedField,
		exc.CodeFileNotFound,
		exc.CodeInvalidNumber,
		exc.CodeUnsupportedFileFormat,
	}, me.Codes())
	for _, e := range me {
		if e.Code() == exc.CodeUnresolvedEnum {
			require.Equal(t, exc.Location{URI: "/bad.xml", Line: 3, Column: e.Location().Column}, e.Location())
		}
	}
	require.NotNil(t, out)
	require.Len(t, out.Outputs, 1)
	require.Equal(t, "/good.xml", out.Outputs[0].Source)
}

func TestCompileCheck(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"/folder.xml": `<protozbuff><message name="Folder">
<field id="1" name="name" type="string"/>
<field id="2" name="files" type="referenceMessage" messageType="File" modifier="repeated"/>
</message>
<message name="File"><field id="1" name="filename" type="string"/></message>
</protozbuff>`,
		"/enum.xml": `<protozbuff><message name="Folder"><field id="1" name="kind" type="enum" enumType="kind"/></message>
<enum name="kind"><enumItem name="plain"/></enum>
</protozbuff>`,
	}
	c := newTestCompiler(t, files)
	out, err := c.Compile(context.Background(), &idl.CompileRequest{
		Files:     []string{"/folder.xml", "/enum.xml"},
		Namespace: "bar",
		Check:     true,
	})
	require.NoError(t, err)
	require.Len(t, out.Outputs, 2)

	folder := out.Outputs[0].Descriptor
	require.NotNil(t, folder)
	require.Equal(t, "bar", folder.GetPackage())
	names := make([]string, 0, len(folder.GetMessageType()))
	for _, m := range folder.GetMessageType() {
		names = append(names, m.GetName())
	}
	require.Equal(t, []string{"FolderHeader", "FileHeader", "LocalMessageDescriptor"}, names)
	locator := folder.GetMessageType()[2].GetField()[0]
	require.Equal(t, "coordinate", locator.GetName())
	require.True(t, locator.GetOptions().GetPacked())

	// Bare enum items are not valid protobuf; the output is still produced.
	require.Nil(t, out.Outputs[1].Descriptor)
	require.Contains(t, out.Outputs[1].Content, "    plain;\n")
	require.NotEmpty(t, out.Warnings)
	found := false
	for _, w := range out.Warnings {
		require.Equal(t, exc.CodeProtobufParseError, w.Code())
		if w.Location().URI == "enum.proto" {
			found = true
		}
	}
	require.True(t, found)
}

func TestOptionWithMaxConcurrency(t *testing.T) {
	t.Parallel()
	_, err := New(OptionWithFS(fs.NewFileSystemMemory(nil)), OptionWithMaxConcurrency(0))
	require.Error(t, err)
}

func TestSemaphoreAcquireCanceled(t *testing.T) {
	t.Parallel()
	sem := newSemaphore(1)
	require.NoError(t, sem.Acquire(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sem.Acquire(ctx), context.Canceled)
	sem.Release()
	require.NoError(t, sem.Acquire(context.Background()))
	sem.Release()
}
