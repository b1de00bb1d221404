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

// Package worker owns one HTTP session, a work queue, cookie persistence,
// and the optional template-evaluation stage on outbound requests. A Worker
// runs one item at a time from its queue until the queue drains, a fatal
// I/O error escapes, or it is abandoned by the Driver.
package worker

import (
	"net/http"
	"time"

	"github.com/nabbar/httprace/barrier"
	errpool "github.com/nabbar/httprace/errors/pool"
	"github.com/nabbar/httprace/resolver"
)

// Request is the serializable half of a work item: method, URL, an ordered
// multimap of headers, query parameters and cookies, and an optional body
// in either raw, form, or JSON shape.
type Request struct {
	Method  string
	URL     string
	Headers map[string][]string
	Params  map[string][]string
	Cookies map[string][]string
	Body    []byte
	Form    map[string]interface{}
	JSON    interface{}
}

// Clone returns a deep copy so concurrent workers never share map storage.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}

	c := &Request{
		Method: r.Method,
		URL:    r.URL,
		Body:   append([]byte(nil), r.Body...),
	}

	c.Headers = cloneMultimap(r.Headers)
	c.Params = cloneMultimap(r.Params)
	c.Cookies = cloneMultimap(r.Cookies)
	c.Form = cloneAny(r.Form)
	c.JSON = cloneAny(r.JSON)

	return c
}

func cloneMultimap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}

	out := make(map[string][]string, len(m))
	for k, v := range m {
		nv := make([]string, len(v))
		copy(nv, v)
		out[k] = nv
	}

	return out
}

func cloneAny(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, sub := range t {
			out[k] = cloneAny(sub)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, sub := range t {
			out[i] = cloneAny(sub)
		}
		return out
	default:
		return v
	}
}

// Response is one entry in a Worker's history: either a completed HTTP
// exchange, a fake-send shell carrying only the prepared request, or a
// recorded transport error.
type Response struct {
	Request    *Request
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// Callback is an opaque unit of computation invoked with the owning Worker.
// It may mutate the work queue and observe worker state; it runs
// synchronously between requests and never participates in the barrier
// protocol.
type Callback func(w *Worker)

// WorkItem is a tagged union: exactly one of Request or Callback must be set.
type WorkItem struct {
	Request  *Request
	Callback Callback
}

// Validate returns ErrorInvalidWorkItem unless exactly one of Request or
// Callback is set.
func (i WorkItem) Validate() error {
	hasReq := i.Request != nil
	hasCb := i.Callback != nil

	if hasReq == hasCb {
		return ErrorInvalidWorkItem.Error()
	}

	return nil
}

func (i WorkItem) clone() WorkItem {
	return WorkItem{Request: i.Request.Clone(), Callback: i.Callback}
}

// CloneQueue deep-copies a work queue so callback mutation on one worker's
// queue never affects another's.
func CloneQueue(items []WorkItem) []WorkItem {
	out := make([]WorkItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}

// Options mirrors the Driver-recognized options that affect Worker behavior.
type Options struct {
	ConnectMode     resolver.Mode
	DoEval          bool
	FakeSend        bool
	SaveSentCookies bool
	SendTimeout     time.Duration
}

// Cohort is everything a Worker needs from its Driver: identity, the
// coordination primitives for the barrier protocol, behavior options, and a
// shared pool every worker in the cohort reports non-fatal warnings into
// (template evaluation failures, cookie extraction failures) without the
// Driver needing a mutex of its own to collect them.
type Cohort struct {
	Index    int
	Shared   SharedMap
	Sync     barrier.Signal
	SendGate barrier.Gate
	ReadGate barrier.Gate
	Options  Options
	Warnings errpool.Pool
}
