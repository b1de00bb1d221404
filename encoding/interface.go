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

// Package encoding defines the Coder interface shared by the hexa and
// sha256 sub-packages that back the template evaluator's hash.sha256() and
// encoding.hex() namespace functions.
package encoding

import (
	"io"
)

// Coder is implemented by hexa.New() and sha256.New(); sha256's Decode is a
// stub since hashing has no inverse.
type Coder interface {
	Encode(p []byte) []byte
	Decode(p []byte) ([]byte, error)

	EncodeReader(r io.Reader) io.ReadCloser
	DecodeReader(r io.Reader) io.ReadCloser

	EncodeWriter(w io.Writer) io.WriteCloser
	DecodeWriter(w io.Writer) io.WriteCloser

	Reset()
}
