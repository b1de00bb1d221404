/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger provides the structured, leveled logging used across every
// component of this module. It is a thin wrapper around logrus: it keeps the
// level/entry/field vocabulary the rest of the tree calls into, without the
// multi-backend hook machinery a long-running service would need.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Level mirrors logrus' level vocabulary so callers never import logrus directly.
type Level uint8

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) logrus() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Entry accumulates fields and an optional error for a single log line.
// FieldAdd/ErrorAdd return the receiver so calls chain, matching the
// FieldAdd(...).Log() call-site style used across this module.
type Entry interface {
	// FieldAdd attaches a structured field to the entry.
	FieldAdd(key string, val interface{}) Entry
	// ErrorAdd attaches err as the entry's "error" field when adderror is true
	// and err is not nil; otherwise the entry is returned unchanged.
	ErrorAdd(adderror bool, err error) Entry
	// Log emits the entry at the level it was created with.
	Log()
}

// Logger is the per-component logging handle. Components hold one Logger
// (or use Default()) and open an Entry per log line.
type Logger interface {
	// SetLevel changes the minimum level that reaches the output.
	SetLevel(lvl Level)
	// GetLevel returns the current minimum level.
	GetLevel() Level
	// Entry opens a new log entry at the given level with the given message.
	Entry(lvl Level, msg string) Entry
}

var _default Logger = New()

// Default returns the package-wide Logger used when a component is not
// constructed with an explicit one.
func Default() Logger {
	return _default
}

// SetDefault replaces the package-wide Logger.
func SetDefault(l Logger) {
	if l != nil {
		_default = l
	}
}

// New returns a Logger backed by a fresh logrus.Logger at InfoLevel.
func New() Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)

	return &logHandle{l: l}
}
