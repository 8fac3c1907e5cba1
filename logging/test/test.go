// Copyright 2020 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package test provides a logger that buffers messages for assertions.
package test

import (
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/open-peg/pegc/logging"
)

// LogEntry represents a log message.
type LogEntry struct {
	Level   logging.Level
	Fields  map[string]any
	Message string
}

// buffer is shared by a logger and the loggers derived from it with
// WithFields.
type buffer struct {
	mtx     sync.Mutex
	level   logging.Level
	entries []LogEntry
}

// Logger buffers the messages at or above its level.
type Logger struct {
	buf    *buffer
	fields map[string]any
}

// New returns a Logger at level Info.
func New() *Logger {
	return &Logger{buf: &buffer{level: logging.Info}}
}

// WithFields returns a logger adding fields to its messages. Messages of both
// loggers end up in the same buffer.
func (l *Logger) WithFields(fields map[string]any) logging.Logger {
	cp := make(map[string]any, len(l.fields)+len(fields))
	maps.Copy(cp, l.fields)
	maps.Copy(cp, fields)
	return &Logger{buf: l.buf, fields: cp}
}

func (l *Logger) Debug(f string, a ...any) { l.log(logging.Debug, f, a...) }
func (l *Logger) Info(f string, a ...any)  { l.log(logging.Info, f, a...) }
func (l *Logger) Warn(f string, a ...any)  { l.log(logging.Warn, f, a...) }
func (l *Logger) Error(f string, a ...any) { l.log(logging.Error, f, a...) }

func (l *Logger) SetLevel(level logging.Level) {
	l.buf.mtx.Lock()
	defer l.buf.mtx.Unlock()
	l.buf.level = level
}

func (l *Logger) GetLevel() logging.Level {
	l.buf.mtx.Lock()
	defer l.buf.mtx.Unlock()
	return l.buf.level
}

// Entries returns a copy of the buffered entries.
func (l *Logger) Entries() []LogEntry {
	l.buf.mtx.Lock()
	defer l.buf.mtx.Unlock()
	return append([]LogEntry(nil), l.buf.entries...)
}

// Find returns the first buffered entry whose message contains s.
func (l *Logger) Find(s string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, s) {
			return e, true
		}
	}
	return LogEntry{}, false
}

// Levels are ordered from Error (lowest) to Debug (highest).
func (l *Logger) log(lvl logging.Level, f string, a ...any) {
	l.buf.mtx.Lock()
	defer l.buf.mtx.Unlock()
	if lvl > l.buf.level {
		return
	}
	l.buf.entries = append(l.buf.entries, LogEntry{
		Level:   lvl,
		Fields:  l.fields,
		Message: fmt.Sprintf(f, a...),
	})
}
