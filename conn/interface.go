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

// Package conn provides the socket layer that intercepts writes to withhold
// the final two bytes of a serialized HTTP request until the Driver's send
// gate opens, and withholds response reading until the read gate opens. It
// also resolves and dials the peer address per the worker's connect-mode
// policy, and restores the original hostname for SNI / Host-header
// correctness regardless of which resolved address was actually dialed.
package conn

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/nabbar/httprace/barrier"
	liblog "github.com/nabbar/httprace/logger"
	"github.com/nabbar/httprace/resolver"
)

// bufferSize is the number of trailing bytes withheld from every write until
// flush. 1 byte would still leave "\r\n\r" visible to a permissive server on
// a bodyless request; 2 guarantees the terminal "\r\n" arrives atomically.
const bufferSize = 2

// WorkerContext carries the per-worker coordination state a Connection needs:
// which wave-signal to raise, which process-wide gates to wait on, the
// worker's index (for connect-mode reshaping and logging correlation), and
// the connect-mode policy itself. It is threaded down from the worker/session
// layer into Factory.Transport via closure rather than smuggled through
// keyword arguments.
type WorkerContext struct {
	WorkerIndex int
	ConnectMode resolver.Mode
	Sync        barrier.Signal
	SendGate    barrier.Gate
	ReadGate    barrier.Gate
}

// Factory builds per-worker http.Transports whose dial functions resolve
// through a shared Resolver and whose connections are wrapped with the
// write-buffering, barrier-overlaid Conn.
type Factory struct {
	Resolver     resolver.Resolver
	Dialer       *net.Dialer
	Log          liblog.Logger
	ProbeTimeout time.Duration
}

// NewFactory returns a Factory with a 10s dial timeout and a 50ms write
// readiness probe timeout.
func NewFactory(r resolver.Resolver, log liblog.Logger) *Factory {
	if log == nil {
		log = liblog.Default()
	}

	return &Factory{
		Resolver:     r,
		Dialer:       &net.Dialer{Timeout: 10 * time.Second},
		Log:          log,
		ProbeTimeout: 50 * time.Millisecond,
	}
}

// Transport returns an *http.Transport dedicated to one worker/connect-mode
// pairing. HTTP/2 is disabled: the trailing-bytes overlay only has meaning
// against HTTP/1.1's request framing, since h2 multiplexes frames in a way
// that makes withholding "the final 2 bytes of the request" undefined.
func (f *Factory) Transport(wctx WorkerContext, tlsCfg *tls.Config) *http.Transport {
	return &http.Transport{
		DialContext:       f.dialPlain(wctx),
		DialTLSContext:    f.dialTLS(wctx, tlsCfg),
		ForceAttemptHTTP2: false,
		DisableKeepAlives: false,
	}
}
