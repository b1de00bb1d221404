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

package conn

import (
	"net"
	"sync"
	"time"

	liblog "github.com/nabbar/httprace/logger"
)

// conn wraps a dialed net.Conn (plain or already TLS-handshaked) with the
// write-buffering and barrier overlays described in the Connection design.
type conn struct {
	net.Conn

	mu           sync.Mutex
	buf          []byte
	pendingFlush bool

	wctx         WorkerContext
	log          liblog.Logger
	probeTimeout time.Duration
}

func newConn(underlying net.Conn, wctx WorkerContext, log liblog.Logger, probeTimeout time.Duration) net.Conn {
	return &conn{
		Conn:         underlying,
		wctx:         wctx,
		log:          log,
		probeTimeout: probeTimeout,
	}
}

// Write appends p to the residual send buffer, then forwards everything but
// the trailing bufferSize bytes to the socket. The residual stays buffered
// until flush, called once per request from the barrier round trip in Read.
func (c *conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf = append(c.buf, p...)
	c.pendingFlush = true

	for len(c.buf) > bufferSize {
		toSend := c.buf[:len(c.buf)-bufferSize]

		n, err := c.Conn.Write(toSend)
		c.buf = c.buf[n:]

		if err != nil {
			return len(p), err
		}
	}

	return len(p), nil
}

// flush transmits whatever remains in the residual buffer, draining it
// completely (it is the intended terminus of the write-buffer overlay, not
// subject to the ">2 bytes -> trim to 2" rule that governs Write).
func (c *conn) flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.buf) > 0 {
		n, err := c.Conn.Write(c.buf)
		c.buf = c.buf[n:]

		if err != nil {
			return err
		}
	}

	return nil
}

// Read runs the barrier round trip exactly once per request, triggered by
// the first Read call after new data was written, then delegates to the
// underlying connection for the actual response bytes.
func (c *conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	run := c.pendingFlush
	c.pendingFlush = false
	c.mu.Unlock()

	if run {
		if err := c.roundTrip(); err != nil {
			return 0, err
		}
	}

	return c.Conn.Read(p)
}

// roundTrip is the barrier overlay: probe writability, raise the pre-send
// sync, wait for the send gate, flush, raise the post-send sync, wait for
// the read gate. The Worker's response parse (the caller of Read) only
// proceeds once this returns.
func (c *conn) roundTrip() error {
	if err := waitWritable(c.Conn, c.probeTimeout); err != nil {
		c.log.Entry(liblog.WarnLevel, "write readiness probe failed").
			ErrorAdd(true, err).
			Log()
	}

	c.wctx.Sync.Raise()
	c.wctx.SendGate.Wait(nil)

	if err := c.flush(); err != nil {
		return ErrorFlush.Error(err)
	}

	c.wctx.Sync.Raise()
	c.wctx.ReadGate.Wait(nil)

	return nil
}
