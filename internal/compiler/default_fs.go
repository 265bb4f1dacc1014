// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package compiler

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"gopkg.microglot.org/protozc/internal/fs"
	"gopkg.microglot.org/protozc/internal/idl"
)

// schemaDirName is the directory searched for under each platform data root.
const schemaDirName = "protoz"

// PathEnv lists extra schema roots, separated like PATH, that are searched
// before the platform data directories.
const PathEnv = "PROTOZC_PATH"

// NewDefaultFS returns the file systems searched after any user supplied
// roots: the PathEnv entries, then the protoz directory of the user data home
// and of every shared data directory.
func NewDefaultFS(lookup func(string) (string, bool)) (idl.FileSystem, error) {
	roots := defaultRoots(lookup, xdg.DataHome, xdg.DataDirs)
	f := make(fs.FileSystemMulti, 0, len(roots))
	for _, root := range roots {
		absRoot, errAbs := filepath.Abs(root)
		if errAbs != nil {
			return nil, errAbs
		}
		rf, err := fs.NewFileSystemLocal(absRoot)
		if err != nil {
			return nil, err
		}
		f = append(f, rf)
	}
	return f, nil
}

func defaultRoots(lookup func(string) (string, bool), dataHome string, dataDirs []string) []string {
	roots := make([]string, 0, len(dataDirs)+2)
	if extra, ok := lookup(PathEnv); ok {
		for _, p := range filepath.SplitList(extra) {
			if p != "" {
				roots = append(roots, p)
			}
		}
	}
	if dataHome != "" {
		roots = append(roots, filepath.Join(dataHome, schemaDirName))
	}
	for _, dir := range dataDirs {
		if dir != "" {
			roots = append(roots, filepath.Join(dir, schemaDirName))
		}
	}
	return roots
}
