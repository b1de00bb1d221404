package template_test

import (
	"github.com/nabbar/httprace/template"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeSelf struct{ idx int }

func (f fakeSelf) WorkerIndex() int { return f.idx }

var _ = Describe("Evaluator", func() {
	It("substitutes self.worker_index", func() {
		ev := template.New(template.Options{Enable: true})
		env := template.NewEnv(fakeSelf{idx: 2})

		out, err := ev.Eval("url", "http://host/<<< self.worker_index >>>", env)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("http://host/2"))
	})

	It("recurses into maps and preserves keys", func() {
		ev := template.New(template.Options{Enable: true})
		env := template.NewEnv(fakeSelf{idx: 0})

		in := map[string]interface{}{"n": "<<< self.worker_index >>>", "k": "literal"}
		out, err := ev.Eval("json", in, env)
		Expect(err).NotTo(HaveOccurred())

		m := out.(map[string]interface{})
		Expect(m["n"]).To(Equal("0"))
		Expect(m["k"]).To(Equal("literal"))
	})

	It("recurses into slices preserving arity", func() {
		ev := template.New(template.Options{Enable: true})
		env := template.NewEnv(fakeSelf{idx: 1})

		in := []interface{}{"<<< self.worker_index >>>", "x", "<<< self.worker_index >>>"}
		out, err := ev.Eval("json", in, env)
		Expect(err).NotTo(HaveOccurred())

		s := out.([]interface{})
		Expect(s).To(HaveLen(3))
		Expect(s[0]).To(Equal("1"))
		Expect(s[1]).To(Equal("x"))
	})

	It("produces distinct values for random_float across calls", func() {
		ev := template.New(template.Options{Enable: true})
		env := template.NewEnv(fakeSelf{idx: 0})

		a, _ := ev.Eval("json", "<<< random_float() >>>", env)
		b, _ := ev.Eval("json", "<<< random_float() >>>", env)
		Expect(a).NotTo(Equal(b))
	})

	It("passes through fields outside the target list unchanged", func() {
		ev := template.New(template.Options{Enable: true, TargetFields: []string{"url"}})
		env := template.NewEnv(fakeSelf{idx: 0})

		out, err := ev.Eval("headers", "<<< self.worker_index >>>", env)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("<<< self.worker_index >>>"))
	})

	It("does nothing when disabled", func() {
		ev := template.New(template.Options{Enable: false})
		env := template.NewEnv(fakeSelf{idx: 0})

		out, err := ev.Eval("url", "<<< self.worker_index >>>", env)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("<<< self.worker_index >>>"))
	})
})
