/*
MIT License

Copyright (c) 2019 Nicolas JUHEL

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package context provides Config, the string-keyed scratch space behind
// worker.SharedMap. The Driver builds one Config per Worker, so callbacks can
// keep state across that worker's requests; entries stored by one worker are
// not visible to its siblings in the cohort.
// It wraps the atomic package's concurrent map with context.Context
// delegation, narrowed from a generic key type to string, the only key
// type anything in this module ever stores under.
package context

import (
	"context"

	libatm "github.com/nabbar/httprace/atomic"
)

type ccx struct {
	m libatm.Map[string]
	x context.Context
}

// Clone returns an independent copy of c's entries under ctx (or c's own
// context if ctx is nil). A canceled c is drained and returns nil instead.
func (c *ccx) Clone(ctx context.Context) Config {
	if c.Err() != nil {
		c.Clean()
		return nil
	} else if ctx == nil {
		ctx = c.GetContext()
	}

	n := &ccx{
		m: libatm.NewMapAny[string](),
		x: ctx,
	}

	c.m.Range(func(key string, value any) bool {
		n.Store(key, value)
		return true
	})

	return n
}

// Merge copies every entry of cfg into c, overwriting on key collision.
func (c *ccx) Merge(cfg Config) bool {
	if c.Err() != nil {
		c.Clean()
		return false
	} else if cfg == nil {
		return false
	}

	cfg.Walk(func(k string, v interface{}) bool {
		c.m.Store(k, v)
		return true
	})

	return true
}
