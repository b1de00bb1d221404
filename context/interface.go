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

package context

import (
	"context"

	libatm "github.com/nabbar/httprace/atomic"
)

type FuncWalk func(key string, val interface{}) bool

// MapManage is the string-keyed store backing a Config, independent of the
// context.Context it rides along with.
type MapManage interface {
	// Clean drops every entry.
	Clean()
	Load(key string) (val interface{}, ok bool)
	// Store is a no-op when cfg is nil; use Delete to remove a key.
	Store(key string, cfg interface{})
	Delete(key string)
}

type Context interface {
	// GetContext returns the wrapped context.Context, or context.Background
	// if none was set.
	GetContext() context.Context
}

// Config is a context.Context carrying a concurrent string-keyed map
// alongside it, safe to use from several goroutines at once. The Driver
// gives each Worker its own Config (worker.Cohort.Shared), so sibling
// workers do not see each other's entries.
type Config interface {
	context.Context
	MapManage
	Context

	// Clone copies every entry into a new Config under ctx (c's own context
	// if ctx is nil). Returns nil if c is already canceled.
	Clone(ctx context.Context) Config
	// Merge copies every entry of cfg into c. Returns false if cfg is nil.
	Merge(cfg Config) bool
	// Walk visits every entry; WalkLimit restricts the visit to validKeys.
	Walk(fct FuncWalk)
	WalkLimit(fct FuncWalk, validKeys ...string)

	LoadOrStore(key string, cfg interface{}) (val interface{}, loaded bool)
	LoadAndDelete(key string) (val interface{}, loaded bool)
}

// New returns a Config wrapping ctx (context.Background if ctx is nil) with
// an empty map.
func New(ctx context.Context) Config {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ccx{
		m: libatm.NewMapAny[string](),
		x: ctx,
	}
}
