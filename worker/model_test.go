package worker_test

import (
	stdctx "context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/httprace/barrier"
	libconn "github.com/nabbar/httprace/conn"
	libctx "github.com/nabbar/httprace/context"
	"github.com/nabbar/httprace/resolver"
	"github.com/nabbar/httprace/worker"
)

func openGate() barrier.Gate {
	g := barrier.NewGate()
	g.Raise()
	return g
}

func newCohort(opts worker.Options) worker.Cohort {
	return worker.Cohort{
		Index:    0,
		Shared:   libctx.New(nil),
		Sync:     barrier.NewSignal(),
		SendGate: openGate(),
		ReadGate: openGate(),
		Options:  opts,
	}
}

var _ = Describe("Worker", func() {
	It("rejects a work item that sets neither Request nor Callback", func() {
		err := worker.WorkItem{}.Validate()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a work item that sets both Request and Callback", func() {
		err := worker.WorkItem{
			Request:  &worker.Request{Method: "GET", URL: "http://example.invalid"},
			Callback: func(w *worker.Worker) {},
		}.Validate()
		Expect(err).To(HaveOccurred())
	})

	It("runs in fake-send mode without opening a connection", func() {
		queue := []worker.WorkItem{
			{Request: &worker.Request{Method: "GET", URL: "http://127.0.0.1:1/should-not-dial"}},
		}

		w, err := worker.New(0, queue, nil, newCohort(worker.Options{FakeSend: true}), nil, nil)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), time.Second)
		defer cancel()

		Expect(w.Run(ctx)).To(Succeed())
		Expect(w.Response().Err).To(BeNil())
		Expect(w.Response().StatusCode).To(Equal(0))
	})

	It("executes a callback inline and honors queue mutation", func() {
		var ran bool

		queue := []worker.WorkItem{
			{Callback: func(w *worker.Worker) {
				ran = true
				w.PushWork(worker.WorkItem{Request: &worker.Request{Method: "GET", URL: "http://127.0.0.1:1/x"}})
			}},
		}

		w, err := worker.New(0, queue, nil, newCohort(worker.Options{FakeSend: true}), nil, nil)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), time.Second)
		defer cancel()

		Expect(w.Run(ctx)).To(Succeed())
		Expect(ran).To(BeTrue())
		Expect(w.History()).To(HaveLen(1))
	})

	It("sends a real request end to end through the conn factory", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusTeapot)
			_, _ = rw.Write([]byte("ok"))
		}))
		defer srv.Close()

		res := resolver.New(0, nil, nil)
		factory := libconn.NewFactory(res, nil)

		queue := []worker.WorkItem{
			{Request: &worker.Request{Method: "GET", URL: srv.URL}},
		}

		w, err := worker.New(0, queue, factory, newCohort(worker.Options{SaveSentCookies: true, SendTimeout: 5 * time.Second}), nil, nil)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), 5*time.Second)
		defer cancel()

		Expect(w.Run(ctx)).To(Succeed())
		Expect(w.Response().Err).To(BeNil())
		Expect(w.Response().StatusCode).To(Equal(http.StatusTeapot))
		Expect(string(w.Response().Body)).To(Equal("ok"))
	})

	It("prefers the Cookie header over the cookie map and skips malformed pairs", func() {
		var seen string

		srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("session"); err == nil {
				seen = c.Value
			}
			rw.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		req := &worker.Request{
			Method:  "GET",
			URL:     srv.URL,
			Headers: map[string][]string{"Cookie": {"session=from-header; broken; other=1"}},
			Cookies: map[string][]string{"session": {"from-map"}},
		}

		queue := []worker.WorkItem{{Request: req}}

		res := resolver.New(0, nil, nil)
		factory := libconn.NewFactory(res, nil)

		w, err := worker.New(0, queue, factory, newCohort(worker.Options{SaveSentCookies: true, SendTimeout: 5 * time.Second}), nil, nil)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), 5*time.Second)
		defer cancel()

		Expect(w.Run(ctx)).To(Succeed())
		Expect(seen).To(Equal("from-header"))
	})
})
