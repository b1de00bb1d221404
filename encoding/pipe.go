/*
 * MIT License
 *
 * Copyright (c) 2023 Nicolas JUHEL
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

package encoding

import "fmt"

// Pipe adapts a read or write function (and an optional close function)
// into an io.ReadCloser/io.WriteCloser pair, shared by hexa and sha256's
// EncodeReader/DecodeReader/EncodeWriter/DecodeWriter so neither sub-package
// redeclares the same wrapper struct.
type Pipe struct {
	F func(p []byte) (n int, err error)
	C func() error
}

func (p *Pipe) Read(b []byte) (n int, err error) {
	if p.F == nil {
		return 0, fmt.Errorf("encoding: invalid reader")
	}
	return p.F(b)
}

func (p *Pipe) Write(b []byte) (n int, err error) {
	if p.F == nil {
		return 0, fmt.Errorf("encoding: invalid writer")
	}
	return p.F(b)
}

func (p *Pipe) Close() error {
	if p.C == nil {
		return nil
	}
	return p.C()
}
