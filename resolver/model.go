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

package resolver

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	liblog "github.com/nabbar/httprace/logger"
)

type entry struct {
	addrs []string
	at    time.Time
}

type resolver struct {
	mu     sync.Mutex
	cache  map[string]entry
	expiry time.Duration
	lookup LookupFunc
	log    liblog.Logger
}

func (r *resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.cache)
}

func (r *resolver) Clean() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = make(map[string]entry)
}

func (r *resolver) Resolve(ctx context.Context, host, port string, mode Mode, workerIndex int) ([]string, error) {
	if mode == ModeNormal {
		addrs, err := r.resolveRaw(ctx, host, port)
		if err != nil {
			return nil, err
		}
		return addrs, nil
	}

	key := net.JoinHostPort(host, port)

	r.mu.Lock()
	e, ok := r.cache[key]
	fresh := ok && time.Since(e.at) < r.expiry

	if !fresh {
		addrs, err := r.resolveRaw(ctx, host, port)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}

		e = entry{addrs: addrs, at: time.Now()}
		r.cache[key] = e
	}
	r.mu.Unlock()

	switch mode {
	case ModeSame:
		return cloneAddrs(e.addrs), nil
	case ModeDifferent:
		return rotate(e.addrs, workerIndex), nil
	case ModeRandom:
		return shuffle(e.addrs), nil
	default:
		r.log.Entry(liblog.WarnLevel, "unknown connect mode, falling back to same").
			FieldAdd("mode", string(mode)).
			Log()
		return cloneAddrs(e.addrs), nil
	}
}

func (r *resolver) resolveRaw(ctx context.Context, host, port string) ([]string, error) {
	ips, err := r.lookup(ctx, host)
	if err != nil {
		return nil, ErrorLookup.Error(err)
	}
	if len(ips) == 0 {
		return nil, ErrorEmptyResult.Error()
	}

	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, net.JoinHostPort(ip, port))
	}

	return addrs, nil
}

func cloneAddrs(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func rotate(in []string, workerIndex int) []string {
	n := len(in)
	if n == 0 {
		return cloneAddrs(in)
	}

	shift := workerIndex % n
	if shift < 0 {
		shift += n
	}

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = in[(i+shift)%n]
	}

	return out
}

func shuffle(in []string) []string {
	out := cloneAddrs(in)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}
