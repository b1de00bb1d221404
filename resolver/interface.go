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

// Package resolver implements a thread-safe, cached name-resolution policy:
// one cache entry per (host, port), refreshed under mutual exclusion once
// its age exceeds the configured expiry, then reshaped per connect mode so
// callers can bias which resolved address a worker's socket prefers.
package resolver

import (
	"context"
	"net"
	"sync"
	"time"

	liblog "github.com/nabbar/httprace/logger"
)

// Mode selects how the cached address list is reshaped for a given worker.
type Mode string

const (
	// ModeNormal bypasses the cache entirely and returns a fresh system lookup.
	ModeNormal Mode = "normal"
	// ModeSame returns the cached list verbatim for every worker.
	ModeSame Mode = "same"
	// ModeDifferent rotates the cached list left by worker_index mod len(list).
	ModeDifferent Mode = "different"
	// ModeRandom returns a per-call random permutation of the cached list.
	ModeRandom Mode = "random"
)

// DefaultExpiry is the fixed policy constant for cache entry freshness.
const DefaultExpiry = 10 * time.Second

// Resolver resolves a host/port pair to an ordered list of dial targets
// ("ip:port" strings), biased by Mode and worker index.
type Resolver interface {
	// Resolve returns the ordered list of addresses to attempt, in the order
	// a Connection should try them (first success wins).
	Resolve(ctx context.Context, host, port string, mode Mode, workerIndex int) ([]string, error)

	// Len returns the number of (host, port) keys currently cached.
	Len() int
	// Clean empties the cache.
	Clean()
}

// LookupFunc performs the underlying system name lookup. Swappable in tests
// so a caller can inject a fixed address list and count invocations without
// a real DNS round trip.
type LookupFunc func(ctx context.Context, host string) ([]string, error)

func defaultLookup(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

// New returns a Resolver with the given cache expiry. A zero expiry uses
// DefaultExpiry. A nil lookup uses the system resolver.
func New(expiry time.Duration, lookup LookupFunc, log liblog.Logger) Resolver {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if lookup == nil {
		lookup = defaultLookup
	}
	if log == nil {
		log = liblog.Default()
	}

	return &resolver{
		mu:     sync.Mutex{},
		cache:  make(map[string]entry),
		expiry: expiry,
		lookup: lookup,
		log:    log,
	}
}
