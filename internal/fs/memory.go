// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.microglot.org/protozc/internal/exc"
	"gopkg.microglot.org/protozc/internal/idl"
)

// FileSystemMemory is a FileSystem backed by a map of absolute paths to file
// content. Opening a path that is a prefix directory of stored files returns
// the protoz files beneath it in name order.
type FileSystemMemory struct {
	lock  sync.RWMutex
	files map[string]string
}

var _ idl.FileSystem = (*FileSystemMemory)(nil)

func NewFileSystemMemory(files map[string]string) *FileSystemMemory {
	m := &FileSystemMemory{files: make(map[string]string, len(files))}
	for k, v := range files {
		m.files[cleanURI(k)] = v
	}
	return m
}

func (m *FileSystemMemory) Open(ctx context.Context, uri string) ([]idl.File, error) {
	p := cleanURI(uri)
	m.lock.RLock()
	defer m.lock.RUnlock()
	if content, ok := m.files[p]; ok {
		return []idl.File{NewFileString(p, content)}, nil
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	var names []string
	for name := range m.files {
		if strings.HasPrefix(name, prefix) && !strings.Contains(name[len(prefix):], "/") && KindOf(name) == idl.FileKindProtoZ {
			names = append(names, name)
		}
	}
	if len(names) < 1 {
		return nil, exc.New(exc.Location{URI: uri}, exc.CodeFileNotFound, fmt.Sprintf("%s not found", uri))
	}
	sort.Strings(names)
	files := make([]idl.File, 0, len(names))
	for _, name := range names {
		files = append(files, NewFileString(name, m.files[name]))
	}
	return files, nil
}

func (m *FileSystemMemory) Write(ctx context.Context, uri string, content string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.files[cleanURI(uri)] = content
	return nil
}

// Read returns the stored content of uri.
func (m *FileSystemMemory) Read(uri string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	content, ok := m.files[cleanURI(uri)]
	return content, ok
}
