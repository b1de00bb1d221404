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

// Package driver orchestrates one cohort of Workers through the wave barrier
// protocol described in the design notes: lower both gates, wait for every
// worker's pre-send signal, sleep the configured send delay, raise the send
// gate, wait for the post-send signal, swap the gates, wait for the
// post-read signal, prune the dead, repeat until nothing remains alive.
package driver

import (
	"crypto/tls"

	libval "github.com/go-playground/validator/v10"

	"github.com/nabbar/httprace/duration"
	liberr "github.com/nabbar/httprace/errors"
	errpool "github.com/nabbar/httprace/errors/pool"
	liblog "github.com/nabbar/httprace/logger"
	"github.com/nabbar/httprace/resolver"
	"github.com/nabbar/httprace/worker"
)

// Options configures one Process call. A zero WorkerCount, an empty
// ConnectMode and a nil Timeout or SendDelay fall back to the documented
// defaults inside Driver.Process / (*Options).withDefaults. The bool fields
// are taken as given, so a zero Options runs with SaveSentCookies off;
// DefaultOptions returns it on.
type Options struct {
	WorkerCount     int                `mapstructure:"workerCount" json:"worker_count" yaml:"worker_count" toml:"worker_count" validate:"gte=0"`
	Timeout         *duration.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" validate:"omitempty,gte=0"`
	SendDelay       *duration.Duration `mapstructure:"sendDelay" json:"send_delay" yaml:"send_delay" toml:"send_delay" validate:"omitempty,gte=0"`
	ConnectMode     resolver.Mode      `mapstructure:"connectMode" json:"connect_mode" yaml:"connect_mode" toml:"connect_mode" validate:"omitempty,oneof=normal same different random"`
	DoEval          bool               `mapstructure:"doEval" json:"do_eval" yaml:"do_eval" toml:"do_eval"`
	FakeSend        bool               `mapstructure:"fakeSend" json:"fake_send" yaml:"fake_send" toml:"fake_send"`
	SaveSentCookies bool               `mapstructure:"saveSentCookies" json:"save_sent_cookies" yaml:"save_sent_cookies" toml:"save_sent_cookies"`
	SendKwargs      map[string]string  `mapstructure:"sendKwargs" json:"send_kwargs" yaml:"send_kwargs" toml:"send_kwargs"`
	TLSConfig       *tls.Config        `mapstructure:"-" json:"-" yaml:"-" toml:"-"`
}

// DefaultOptions mirrors the defaults from the external interface section:
// two workers, a 10 second wave timeout, a 100ms send delay, connect_mode
// same, save_sent_cookies on.
func DefaultOptions() Options {
	timeout := duration.Seconds(10)
	sendDelay := duration.ParseDuration(100_000_000)

	return Options{
		WorkerCount:     2,
		Timeout:         &timeout,
		SendDelay:       &sendDelay,
		ConnectMode:     resolver.ModeSame,
		SaveSentCookies: true,
	}
}

// withDefaults fills in the documented defaults for every field the caller
// left unset. Timeout and SendDelay are pointers so a caller can request a
// literal 0 (unbounded wait, no inter-wave sleep) without it being confused
// with "never set" the way a bare duration.Duration zero value would be.
func (o Options) withDefaults() Options {
	if o.WorkerCount <= 0 {
		o.WorkerCount = 2
	}
	if o.ConnectMode == "" {
		o.ConnectMode = resolver.ModeSame
	}
	if o.Timeout == nil {
		t := duration.Seconds(10)
		o.Timeout = &t
	}
	if o.SendDelay == nil {
		d := duration.ParseDuration(100_000_000)
		o.SendDelay = &d
	}
	return o
}

// Validate runs the struct tag constraints above and returns an aggregated
// liberr.Error, or nil when every field is within range.
func (o Options) Validate() liberr.Error {
	err := ErrorValidation.Error(nil)

	if ver := libval.New().Struct(o); ver != nil {
		if e, ok := ver.(*libval.InvalidValidationError); ok {
			err.Add(e)
		}
		if verrs, ok := ver.(libval.ValidationErrors); ok {
			for _, e := range verrs {
				err.Add(e)
			}
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// Driver owns the resolver and connection factory shared by every worker it
// spawns, and runs the wave loop described in the package doc comment.
type Driver struct {
	resolver resolver.Resolver
	log      liblog.Logger
	warnings errpool.Pool
}

// Warnings returns the pool of non-fatal errors collected across every
// worker of the most recent Process call (template evaluation failures,
// cookie extraction failures). It is nil until Process has run at least
// once.
func (d *Driver) Warnings() errpool.Pool {
	return d.warnings
}

// New returns a Driver with its own name-resolution cache (10s expiry per
// the external interface section) and, when log is nil, the package-wide
// default logger.
func New(log liblog.Logger) *Driver {
	if log == nil {
		log = liblog.Default()
	}

	return &Driver{
		resolver: resolver.New(resolver.DefaultExpiry, nil, log),
		log:      log,
	}
}

// NewWithResolver is New, but with the caller's own Resolver instead of one
// built fresh: tests inject a fixed or counting LookupFunc this way to
// verify connect_mode reshaping against a known address list, without the
// package exposing a mutable package-level resolver singleton.
func NewWithResolver(r resolver.Resolver, log liblog.Logger) *Driver {
	if log == nil {
		log = liblog.Default()
	}
	if r == nil {
		r = resolver.New(resolver.DefaultExpiry, nil, log)
	}

	return &Driver{
		resolver: r,
		log:      log,
	}
}

// Result is one spawned worker together with the fatal error, if any, that
// ended its run. A worker pruned mid-cohort for tardiness carries nil here:
// pruning is not itself a failure.
type Result struct {
	Worker *worker.Worker
	Err    error
}
