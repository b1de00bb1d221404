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

// Package atomic supplies the two goroutine-safe maps the rest of httprace
// builds its shared state on: Map, a sync.Map wrapper keyed by a comparable
// type with any values, and MapTyped, the same thing with a typed value that
// re-asserts on every read. context uses Map for its string-keyed scratch
// space; errors/pool uses MapTyped to index collected errors by sequence
// number.
package atomic

import (
	"sync"
)

// Map is a sync.Map keyed by K with untyped values, plus the casting Range
// needs to drop an entry it can no longer interpret as K.
type Map[K comparable] interface {
	// Load returns the stored value for key, or ok=false if absent.
	Load(key K) (value any, ok bool)
	// Store overwrites the value for key.
	Store(key K, value any)
	// LoadOrStore returns the existing value for key, storing value first if absent.
	LoadOrStore(key K, value any) (actual any, loaded bool)
	// LoadAndDelete removes key and returns the value it held, if any.
	LoadAndDelete(key K) (value any, loaded bool)
	// Delete removes key. A missing key is a no-op.
	Delete(key K)
	// Swap stores value for key and returns the value it replaced.
	Swap(key K, value any) (previous any, loaded bool)
	// CompareAndSwap stores new for key only if the current value equals old.
	CompareAndSwap(key K, old, new any) bool
	// CompareAndDelete removes key only if its current value equals old.
	CompareAndDelete(key K, old any) (deleted bool)
	// Range calls f for every entry until f returns false or entries run out.
	Range(f func(key K, value any) bool)
}

// MapTyped wraps Map with a typed value V, re-asserting the type on every
// read and dropping any entry that no longer asserts.
type MapTyped[K comparable, V any] interface {
	Load(key K) (value V, ok bool)
	Store(key K, value V)
	LoadOrStore(key K, value V) (actual V, loaded bool)
	LoadAndDelete(key K) (value V, loaded bool)
	Delete(key K)
	Swap(key K, value V) (previous V, loaded bool)
	CompareAndSwap(key K, old, new V) bool
	CompareAndDelete(key K, old V) (deleted bool)
	Range(f func(key K, value V) bool)
}

// NewMapAny returns a Map backed by a sync.Map.
func NewMapAny[K comparable]() Map[K] {
	return &ma[K]{
		m: sync.Map{},
	}
}

// NewMapTyped returns a MapTyped backed by a Map[K].
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return &mt[K, V]{
		m: NewMapAny[K](),
	}
}
