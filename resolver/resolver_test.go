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

package resolver_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/nabbar/httprace/errors"
	"github.com/nabbar/httprace/resolver"
)

// countingLookup returns a fixed address list and counts every invocation,
// so tests can assert cache hits/misses without a real DNS round trip.
func countingLookup(addrs []string, calls *int32) resolver.LookupFunc {
	return func(_ context.Context, _ string) ([]string, error) {
		atomic.AddInt32(calls, 1)
		out := make([]string, len(addrs))
		copy(out, addrs)
		return out, nil
	}
}

func failingLookup(err error) resolver.LookupFunc {
	return func(_ context.Context, _ string) ([]string, error) {
		return nil, err
	}
}

func emptyLookup() resolver.LookupFunc {
	return func(_ context.Context, _ string) ([]string, error) {
		return nil, nil
	}
}

var _ = Describe("resolver", func() {
	var calls int32

	BeforeEach(func() {
		calls = 0
	})

	Context("ModeNormal", func() {
		It("bypasses the cache and looks up on every call", func() {
			addrs := []string{"10.0.0.1", "10.0.0.2"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeNormal, 0)
			Expect(err).ToNot(HaveOccurred())
			_, err = r.Resolve(context.Background(), "example.com", "443", resolver.ModeNormal, 0)
			Expect(err).ToNot(HaveOccurred())

			Expect(calls).To(Equal(int32(2)))
			Expect(r.Len()).To(Equal(0), "normal mode never populates the cache")
		})
	})

	Context("ModeSame", func() {
		It("returns the cached list verbatim for every worker", func() {
			addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			a0, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())
			a1, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 7)
			Expect(err).ToNot(HaveOccurred())

			Expect(a0).To(Equal([]string{"10.0.0.1:443", "10.0.0.2:443", "10.0.0.3:443"}))
			Expect(a1).To(Equal(a0))
			Expect(calls).To(Equal(int32(1)), "second call should hit the warm cache")
		})
	})

	Context("ModeDifferent", func() {
		It("rotates the cached list by worker index", func() {
			addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			a0, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeDifferent, 0)
			Expect(err).ToNot(HaveOccurred())
			a1, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeDifferent, 1)
			Expect(err).ToNot(HaveOccurred())
			a2, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeDifferent, 2)
			Expect(err).ToNot(HaveOccurred())

			Expect(a0).To(Equal([]string{"10.0.0.1:443", "10.0.0.2:443", "10.0.0.3:443"}))
			Expect(a1).To(Equal([]string{"10.0.0.2:443", "10.0.0.3:443", "10.0.0.1:443"}))
			Expect(a2).To(Equal([]string{"10.0.0.3:443", "10.0.0.1:443", "10.0.0.2:443"}))
		})

		It("wraps around without error when worker_count exceeds the address count", func() {
			addrs := []string{"10.0.0.1", "10.0.0.2"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			// worker index 5 against a 2-address list: 5 % 2 == 1, same as index 1.
			a1, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeDifferent, 1)
			Expect(err).ToNot(HaveOccurred())
			a5, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeDifferent, 5)
			Expect(err).ToNot(HaveOccurred())

			Expect(a5).To(Equal(a1))
		})
	})

	Context("ModeRandom", func() {
		It("returns a permutation of the cached list", func() {
			addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			got, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeRandom, 0)
			Expect(err).ToNot(HaveOccurred())

			want := make([]string, len(addrs))
			for i, a := range addrs {
				want[i] = fmt.Sprintf("%s:443", a)
			}

			sortedGot := append([]string(nil), got...)
			sort.Strings(sortedGot)
			sortedWant := append([]string(nil), want...)
			sort.Strings(sortedWant)

			Expect(sortedGot).To(Equal(sortedWant))
		})
	})

	Context("unknown mode", func() {
		It("falls back to the same-list behavior", func() {
			addrs := []string{"10.0.0.1"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			got, err := r.Resolve(context.Background(), "example.com", "443", resolver.Mode("bogus"), 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal([]string{"10.0.0.1:443"}))
		})
	})

	Context("cache expiry", func() {
		It("reuses a fresh entry and refreshes once the entry goes stale", func() {
			addrs := []string{"10.0.0.1"}
			r := resolver.New(20*time.Millisecond, countingLookup(addrs, &calls), nil)

			_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())
			_, err = r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(calls).To(Equal(int32(1)), "second call within the expiry window must not re-resolve")

			time.Sleep(40 * time.Millisecond)

			_, err = r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(calls).To(Equal(int32(2)), "call past expiry must trigger exactly one refresh")
		})

		It("defaults a non-positive expiry to DefaultExpiry", func() {
			addrs := []string{"10.0.0.1"}
			r := resolver.New(0, countingLookup(addrs, &calls), nil)

			_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())
			_, err = r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())

			Expect(calls).To(Equal(int32(1)))
		})
	})

	Context("concurrent callers against a cold cache", func() {
		It("serialize on the cache mutex and produce exactly one refresh", func() {
			addrs := []string{"10.0.0.1", "10.0.0.2"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			const n = 32
			var wg sync.WaitGroup
			wg.Add(n)

			for i := 0; i < n; i++ {
				go func(workerIndex int) {
					defer wg.Done()
					defer GinkgoRecover()

					_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeDifferent, workerIndex)
					Expect(err).ToNot(HaveOccurred())
				}(i)
			}

			wg.Wait()

			Expect(calls).To(Equal(int32(1)), "N concurrent callers against a cold entry must see exactly one lookup")
			Expect(r.Len()).To(Equal(1))
		})
	})

	Context("lookup failures", func() {
		It("wraps a lookup error as ErrorLookup", func() {
			r := resolver.New(time.Minute, failingLookup(fmt.Errorf("network unreachable")), nil)

			_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).To(HaveOccurred())
			Expect(liberr.IsCode(err, resolver.ErrorLookup)).To(BeTrue())
		})

		It("reports ErrorEmptyResult when the lookup returns no addresses", func() {
			r := resolver.New(time.Minute, emptyLookup(), nil)

			_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).To(HaveOccurred())
			Expect(liberr.IsCode(err, resolver.ErrorEmptyResult)).To(BeTrue())
		})

		It("does not cache a failed lookup", func() {
			r := resolver.New(time.Minute, failingLookup(fmt.Errorf("network unreachable")), nil)

			_, err := r.Resolve(context.Background(), "example.com", "443", resolver.ModeSame, 0)
			Expect(err).To(HaveOccurred())
			Expect(r.Len()).To(Equal(0))
		})
	})

	Context("Len and Clean", func() {
		It("tracks the number of distinct host:port keys and Clean empties it", func() {
			addrs := []string{"10.0.0.1"}
			r := resolver.New(time.Minute, countingLookup(addrs, &calls), nil)

			_, err := r.Resolve(context.Background(), "a.example.com", "443", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())
			_, err = r.Resolve(context.Background(), "b.example.com", "80", resolver.ModeSame, 0)
			Expect(err).ToNot(HaveOccurred())

			Expect(r.Len()).To(Equal(2))

			r.Clean()
			Expect(r.Len()).To(Equal(0))
		})
	})
})
