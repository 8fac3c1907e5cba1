// Copyright 2017 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package test contains helpers shared by the tests of several packages.
package test

import (
	"os"
	"path/filepath"
	"strings"
)

// WithTempFS writes files, keyed by slash-separated paths relative to a new
// temporary directory, and invokes f with the directory. The directory is
// removed when f returns. Leading newlines of the contents are dropped so
// that grammars can be written as indented raw strings.
func WithTempFS(files map[string]string, f func(root string)) {
	root, err := os.MkdirTemp("", "pegc_test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(root)

	if err := WriteFiles(root, files); err != nil {
		panic(err)
	}
	f(root)
}

// WriteFiles writes files below root, creating directories as needed.
func WriteFiles(root string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o644); err != nil {
			return err
		}
	}
	return nil
}
