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

// Package template scans request fields for `<<< EXPR >>>` markers and
// substitutes each with the result of evaluating EXPR against a small,
// injected evaluation function, rather than a general expression engine.
// Evaluating an embedded expression is, by design, arbitrary code: this is
// acceptable only because the caller is a trusted auditor driving the tool
// against targets it already controls, never an untrusted input source.
package template

import (
	"regexp"
)

// DefaultPattern matches `<<< EXPR >>>`, whitespace tolerant around the
// triple brackets, with EXPR allowed to span multiple lines.
var DefaultPattern = regexp.MustCompile(`(?s)<<<\s*(.*?)\s*>>>`)

// Action evaluates one matched EXPR against env and returns its string
// replacement. env built by NewEnv carries only "self" (the owning worker);
// the time, random, hash, encoding and json helpers are recognized by name
// inside DefaultAction, not looked up in env.
type Action func(expr string, env Env) (string, error)

// Env is the evaluation environment exposed to an Action: a flat namespace
// of values an Action implementation may consult ("self" from NewEnv, plus
// whatever a caller adds). It intentionally has no "eval anything" entry point.
type Env map[string]interface{}

// Options configures one evaluation pass. Pattern/Action/TargetFields
// default to DefaultPattern, DefaultAction and DefaultFields when zero.
type Options struct {
	Enable       bool
	Pattern      *regexp.Regexp
	Action       Action
	TargetFields []string
}

// DefaultFields are the request fields walked when TargetFields is empty.
var DefaultFields = []string{"url", "headers", "cookies", "params", "form", "json"}

// Evaluator walks a set of request fields, recursing into maps and slices,
// and replaces every `<<< EXPR >>>` occurrence inside string leaves.
type Evaluator interface {
	// Eval applies the evaluator to a single field value and returns the
	// transformed value. Maps are value-replaced (keys untouched), slices
	// are element-replaced preserving length, non-string scalars pass
	// through unchanged.
	Eval(field string, value interface{}, env Env) (interface{}, error)
}

// New returns an Evaluator configured by opts. A zero-value Options enables
// nothing useful on its own: set Enable, and leave Pattern/Action/TargetFields
// zero to use the defaults.
func New(opts Options) Evaluator {
	if opts.Pattern == nil {
		opts.Pattern = DefaultPattern
	}
	if opts.Action == nil {
		opts.Action = DefaultAction
	}
	if len(opts.TargetFields) == 0 {
		opts.TargetFields = DefaultFields
	}

	return &evaluator{opts: opts}
}

// IsTargetField reports whether name is among the evaluator's configured
// target fields.
func IsTargetField(opts Options, name string) bool {
	fields := opts.TargetFields
	if len(fields) == 0 {
		fields = DefaultFields
	}

	for _, f := range fields {
		if f == name {
			return true
		}
	}

	return false
}
