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

package worker

import (
	"bytes"
	stdctx "context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/nabbar/httprace/barrier"
	libconn "github.com/nabbar/httprace/conn"
	libctx "github.com/nabbar/httprace/context"
	errpool "github.com/nabbar/httprace/errors/pool"
	liblog "github.com/nabbar/httprace/logger"
	"github.com/nabbar/httprace/template"
)

// SharedMap is the extension-point map a Driver hands every Worker: a place
// callbacks and template actions can stash cross-request state without the
// Worker itself knowing what it means.
type SharedMap = libctx.Config

// sessionHeaders are applied to every outgoing request before request-level
// headers are overlaid. No User-Agent is set: the caller's per-request
// headers, if any, are the only way one is sent.
var sessionHeaders = http.Header{
	"Accept":          []string{"*/*"},
	"Accept-Encoding": []string{"gzip, deflate"},
	"Connection":      []string{"keep-alive"},
}

// Worker runs one HTTP session: a work queue drained one item at a time, a
// cookie jar, the most recent response, and the full response history. It
// implements template.Self so it can serve as its own "self" binding during
// template evaluation.
type Worker struct {
	id  uuid.UUID
	idx int

	mu       sync.Mutex
	queue    []WorkItem
	response *Response
	history  []*Response

	shared SharedMap
	opts   Options
	tmpl   template.Evaluator

	client   *http.Client
	jar      http.CookieJar
	log      liblog.Logger
	sync     barrier.Signal
	warnings errpool.Pool

	done chan struct{}
}

// New builds a Worker bound to the given Cohort. tlsCfg is cloned per worker
// by the transport factory; pass nil to use Go's default TLS policy. The
// Worker owns an independent http.Transport dialed through f, so connect-mode
// reshaping and the barrier overlay are scoped to this worker alone.
func New(idx int, queue []WorkItem, f *libconn.Factory, cohort Cohort, tlsCfg *tls.Config, log liblog.Logger) (*Worker, error) {
	if log == nil {
		log = liblog.Default()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	wctx := libconn.WorkerContext{
		WorkerIndex: idx,
		ConnectMode: cohort.Options.ConnectMode,
		Sync:        cohort.Sync,
		SendGate:    cohort.SendGate,
		ReadGate:    cohort.ReadGate,
	}

	warnings := cohort.Warnings
	if warnings == nil {
		warnings = errpool.New()
	}

	w := &Worker{
		id:       uuid.New(),
		idx:      idx,
		queue:    CloneQueue(queue),
		shared:   cohort.Shared,
		opts:     cohort.Options,
		log:      log,
		jar:      jar,
		sync:     cohort.Sync,
		warnings: warnings,
		done:     make(chan struct{}),
	}

	w.tmpl = template.New(template.Options{
		Enable:       cohort.Options.DoEval,
		Pattern:      template.DefaultPattern,
		Action:       template.DefaultAction,
		TargetFields: template.DefaultFields,
	})

	if !cohort.Options.FakeSend {
		w.client = &http.Client{
			Jar:       jar,
			Transport: f.Transport(wctx, tlsCfg),
			Timeout:   cohort.Options.SendTimeout,
		}
	}

	return w, nil
}

// ID returns the worker's session identity.
func (w *Worker) ID() uuid.UUID { return w.id }

// WorkerIndex implements template.Self.
func (w *Worker) WorkerIndex() int { return w.idx }

// Shared returns the cross-request extension-point map.
func (w *Worker) Shared() SharedMap { return w.shared }

// Sync returns the worker's per-wave barrier signal, for the Driver only.
func (w *Worker) Sync() barrier.Signal { return w.sync }

// Warnings returns the pool non-fatal errors (template evaluation failures,
// cookie extraction failures) are collected into. When the Worker was built
// with a Cohort.Warnings shared across a whole cohort, this is that same
// pool; otherwise it is a private one scoped to this Worker.
func (w *Worker) Warnings() errpool.Pool { return w.warnings }

// Response returns the most recently recorded exchange, or nil if none yet.
func (w *Worker) Response() *Response {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.response
}

// History returns every recorded exchange, in send order.
func (w *Worker) History() []*Response {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Response, len(w.history))
	copy(out, w.history)
	return out
}

// WorkQueue returns the items still pending.
func (w *Worker) WorkQueue() []WorkItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WorkItem, len(w.queue))
	copy(out, w.queue)
	return out
}

// SetWorkQueue replaces the pending queue. Callbacks use this to inject,
// reorder, or drain remaining work.
func (w *Worker) SetWorkQueue(items []WorkItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = items
}

// PushWork appends items to the back of the queue.
func (w *Worker) PushWork(items ...WorkItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue = append(w.queue, items...)
}

// Done returns a channel closed once Run has returned, whether by a drained
// queue, a fatal error, or a canceled context.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run drains the work queue one item at a time: callbacks execute inline and
// may mutate the queue; requests are (optionally) template-evaluated,
// (optionally) mined for cookies, and sent through the worker's client. Run
// returns on the first fatal send error, a canceled context, or an empty
// queue, and always closes Done().
func (w *Worker) Run(ctx stdctx.Context) error {
	defer close(w.done)
	defer w.closeSession()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return nil
		}
		item := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		if err := item.Validate(); err != nil {
			return err
		}

		if item.Callback != nil {
			item.Callback(w)

			w.mu.Lock()
			for _, pending := range w.queue {
				if verr := pending.Validate(); verr != nil {
					w.mu.Unlock()
					return verr
				}
			}
			w.mu.Unlock()
			continue
		}

		req := item.Request
		if w.opts.DoEval {
			req = w.evalRequest(req)
		}

		if w.opts.SaveSentCookies {
			w.extractCookies(req)
		}

		resp := w.send(ctx, req)

		w.mu.Lock()
		w.response = resp
		w.history = append(w.history, resp)
		w.mu.Unlock()

		if resp.Err != nil {
			return resp.Err
		}
	}
}

func (w *Worker) closeSession() {
	if w.client == nil {
		return
	}
	if closer, ok := w.client.Transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

func (w *Worker) evalRequest(req *Request) *Request {
	env := template.NewEnv(w)
	out := req.Clone()

	if v, err := w.tmpl.Eval("url", out.URL, env); err == nil {
		out.URL, _ = v.(string)
	} else {
		w.log.Entry(liblog.WarnLevel, "template evaluation failed on url").ErrorAdd(true, err).Log()
		w.warnings.Add(ErrorTemplateEvalURL.Error(err))
	}

	if v, err := w.tmpl.Eval("headers", toAny(out.Headers), env); err == nil {
		out.Headers = fromAny(v, out.Headers)
	}

	if v, err := w.tmpl.Eval("cookies", toAny(out.Cookies), env); err == nil {
		out.Cookies = fromAny(v, out.Cookies)
	}

	if v, err := w.tmpl.Eval("params", toAny(out.Params), env); err == nil {
		out.Params = fromAny(v, out.Params)
	}

	if out.Form != nil {
		if v, err := w.tmpl.Eval("form", out.Form, env); err == nil {
			if m, ok := v.(map[string]interface{}); ok {
				out.Form = m
			}
		}
	}

	if out.JSON != nil {
		if v, err := w.tmpl.Eval("json", out.JSON, env); err == nil {
			out.JSON = v
		}
	}

	return out
}

func toAny(m map[string][]string) interface{} {
	if m == nil {
		return nil
	}
	return m
}

func fromAny(v interface{}, fallback map[string][]string) map[string][]string {
	if m, ok := v.(map[string][]string); ok {
		return m
	}
	return fallback
}

// extractCookies mines a request for cookies it would otherwise attach
// itself, and pre-seeds the session jar with them. The Cookie header takes
// precedence over the cookie map; malformed pairs are logged and skipped.
// Every extracted cookie is scoped to the request's own host.
func (w *Worker) extractCookies(req *Request) {
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		w.log.Entry(liblog.WarnLevel, "cannot extract cookies: invalid request url").ErrorAdd(true, err).Log()
		w.warnings.Add(ErrorCookieExtraction.Error(err))
		return
	}

	var pairs []*http.Cookie

	if header, ok := req.Headers["Cookie"]; ok && len(header) > 0 {
		pairs = append(pairs, parseCookieHeader(header, w.log)...)
	} else {
		for name, values := range req.Cookies {
			if len(values) == 0 {
				continue
			}
			pairs = append(pairs, &http.Cookie{Name: name, Value: values[0]})
		}
	}

	if len(pairs) == 0 {
		return
	}

	origin := &url.URL{Scheme: u.Scheme, Host: u.Host}
	w.jar.SetCookies(origin, pairs)
}

func parseCookieHeader(values []string, log liblog.Logger) []*http.Cookie {
	var out []*http.Cookie

	for _, line := range values {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			kv := strings.SplitN(part, "=", 2)
			if len(kv) != 2 {
				log.Entry(liblog.WarnLevel, "skipping malformed cookie header entry").FieldAdd("entry", part).Log()
				continue
			}

			out = append(out, &http.Cookie{Name: strings.TrimSpace(kv[0]), Value: strings.TrimSpace(kv[1])})
		}
	}

	return out
}

// send executes one request, or fabricates a response shell without
// transmitting anything when fake-send mode is on. The barrier protocol's
// pre-send and post-send signals are raised from inside the Connection
// (package conn); send itself raises the sync signal once more on the way
// out, marking the Driver's post-read barrier: "this worker has produced one
// response." Fake-send never raises it, since no Connection, and so no
// barrier, was ever entered for this request.
func (w *Worker) send(ctx stdctx.Context, req *Request) *Response {
	if w.opts.FakeSend {
		return &Response{Request: req}
	}

	defer w.sync.Raise()

	httpReq, err := w.buildRequest(ctx, req)
	if err != nil {
		return &Response{Request: req, Err: ErrorRequestBuild.Error(err)}
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return &Response{Request: req, Err: ErrorSend.Error(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Response{Request: req, Err: ErrorSend.Error(err)}
	}

	return &Response{
		Request:    req,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
}

func (w *Worker) buildRequest(ctx stdctx.Context, req *Request) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	if len(req.Params) > 0 {
		q := u.Query()
		for k, values := range req.Params {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	body, err := requestBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, values := range sessionHeaders {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	for k, values := range req.Headers {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	for name, values := range req.Cookies {
		if len(values) == 0 {
			continue
		}
		httpReq.AddCookie(&http.Cookie{Name: name, Value: values[0]})
	}

	return httpReq, nil
}

func requestBody(req *Request) (io.Reader, error) {
	switch {
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(b), nil

	case req.Form != nil:
		vals := url.Values{}
		for k, v := range req.Form {
			vals.Set(k, toFormValue(v))
		}
		return strings.NewReader(vals.Encode()), nil

	case req.Body != nil:
		return bytes.NewReader(req.Body), nil

	default:
		return nil, nil
	}
}

func toFormValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
