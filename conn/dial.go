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
	"context"
	"crypto/tls"
	"net"

	liberr "github.com/nabbar/httprace/errors"
	liblog "github.com/nabbar/httprace/logger"
)

// rawDial resolves hostport per the worker's connect mode and dials the
// resulting addresses in order, returning the first successful raw
// connection and the original hostname (for SNI/Host-header restoration).
func (f *Factory) rawDial(ctx context.Context, wctx WorkerContext, network, hostport string) (net.Conn, string, liberr.Error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, "", ErrorConnectFailure.Error(err)
	}

	addrs, rerr := f.Resolver.Resolve(ctx, host, port, wctx.ConnectMode, wctx.WorkerIndex)
	if rerr != nil {
		return nil, host, ErrorConnectFailure.Error(rerr)
	}

	var last error
	for _, a := range addrs {
		c, derr := f.Dialer.DialContext(ctx, network, a)
		if derr == nil {
			if tc, ok := c.(*net.TCPConn); ok {
				_ = tc.SetNoDelay(true)
			}
			return c, host, nil
		}
		last = derr
	}

	return nil, host, ErrorConnectFailure.Error(last)
}

func (f *Factory) dialPlain(wctx WorkerContext) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, _, err := f.rawDial(ctx, wctx, network, addr)
		if err != nil {
			return nil, err
		}

		return newConn(raw, wctx, f.Log, f.ProbeTimeout), nil
	}
}

func (f *Factory) dialTLS(wctx WorkerContext, tlsCfg *tls.Config) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, host, err := f.rawDial(ctx, wctx, network, addr)
		if err != nil {
			return nil, err
		}

		cfg := tlsCfg
		if cfg == nil {
			cfg = &tls.Config{}
		}
		cfg = cfg.Clone()
		// Restored here, after dialing a possibly different resolved address,
		// so SNI and the eventual Host header reflect the user-supplied name.
		cfg.ServerName = host
		if len(cfg.NextProtos) == 0 {
			cfg.NextProtos = []string{"http/1.1"}
		}

		tc := tls.Client(raw, cfg)
		if herr := tc.HandshakeContext(ctx); herr != nil {
			_ = raw.Close()
			f.Log.Entry(liblog.ErrorLevel, "tls handshake failed").
				FieldAdd("host", host).
				ErrorAdd(true, herr).
				Log()
			return nil, ErrorHandshake.Error(herr)
		}

		return newConn(tc, wctx, f.Log, f.ProbeTimeout), nil
	}
}
