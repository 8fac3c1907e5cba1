// Copyright 2021 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package logging contains helpers that configure the logrus logger used by
// the command line tools.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/open-peg/pegc/logging"
)

// Log formats accepted by GetFormatter.
const (
	FormatText       = "text"
	FormatJSON       = "json"
	FormatJSONPretty = "json-pretty"
)

// GetLevel parses a log level. The empty string selects info.
func GetLevel(level string) (logging.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logging.Debug, nil
	case "", "info":
		return logging.Info, nil
	case "warn":
		return logging.Warn, nil
	case "error":
		return logging.Error, nil
	default:
		return logging.Debug, fmt.Errorf("invalid log level: %v", level)
	}
}

// GetFormatter returns the logrus formatter for a log format. Unknown formats
// select JSON.
func GetFormatter(format, timestampFormat string) logrus.Formatter {
	switch format {
	case FormatText:
		return &prettyFormatter{}
	case FormatJSONPretty:
		return &logrus.JSONFormatter{PrettyPrint: true, TimestampFormat: timestampFormat}
	default:
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
}

// prettyFormatter writes the level and message on one line followed by one
// line per field in key order. Multi-line values are indented below their
// key.
type prettyFormatter struct{}

const (
	fieldIndent     = "  "
	multiLineIndent = "      "
)

func (*prettyFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(e.Level.String()), e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		val, err := formatValue(e.Data[k])
		if err != nil {
			return nil, err
		}
		b.WriteString(fieldIndent)
		b.WriteString(k)
		if strings.Contains(val, "\n") {
			b.WriteString(" = |\n")
			b.WriteString(multiLineIndent)
		} else {
			b.WriteString(" = ")
		}
		b.WriteString(val)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		if strings.Contains(v, "\n") {
			lines := strings.Split(strings.TrimSuffix(v, "\n"), "\n")
			return strings.Join(lines, "\n"+multiLineIndent), nil
		}
		return v, nil
	case error:
		return v.Error(), nil
	}
	bs, err := json.MarshalIndent(v, multiLineIndent, "  ")
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
