// Copyright 2020 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithFields(t *testing.T) {
	logger := New().WithFields(map[string]any{"rule": "expr"})

	fieldvalue, ok := logger.(*StandardLogger).fields["rule"]
	if !ok {
		t.Fatal("Logger did not contain configured field")
	}

	if fieldvalue.(string) != "expr" {
		t.Fatal("Logger did not contain configured field value")
	}
}

func TestWithFieldsOverridesAndMerges(t *testing.T) {
	base := New().WithFields(map[string]any{"rule": "expr"})
	logger := base.
		WithFields(map[string]any{"rule": "term"}).
		WithFields(map[string]any{"grammar": "calc.peg"})

	fields := logger.(*StandardLogger).fields
	if fields["rule"] != "term" || fields["grammar"] != "calc.peg" {
		t.Fatalf("Unexpected fields: %v", fields)
	}

	if base.(*StandardLogger).fields["rule"] != "expr" {
		t.Fatal("WithFields modified the receiver")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		note  string
		level Level
		debug bool
		info  bool
	}{
		{note: "debug", level: Debug, debug: true, info: true},
		{note: "info", level: Info, info: true},
		{note: "error", level: Error},
	}

	for _, tc := range tests {
		t.Run(tc.note, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New()
			logger.SetOutput(&buf)
			logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			logger.SetLevel(tc.level)

			if logger.GetLevel() != tc.level {
				t.Fatalf("Expected level %v but got %v", tc.level, logger.GetLevel())
			}

			logger.Debug("planned %d funcs", 3)
			logger.Info("built")

			if strings.Contains(buf.String(), "planned 3 funcs") != tc.debug {
				t.Fatalf("Unexpected debug output: %q", buf.String())
			}
			if strings.Contains(buf.String(), "built") != tc.info {
				t.Fatalf("Unexpected info output: %q", buf.String())
			}
		})
	}
}
