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
	liberr "github.com/nabbar/httprace/errors"
)

const (
	ErrorInvalidWorkItem liberr.CodeError = liberr.MinPkgWorker + iota
	ErrorRequestBuild
	ErrorSend
	ErrorTemplateEvalURL
	ErrorCookieExtraction
)

func init() {
	liberr.RegisterIdFctMessage(ErrorInvalidWorkItem, errMessages)
}

func errMessages(code liberr.CodeError) string {
	switch code {
	case ErrorInvalidWorkItem:
		return "work item must set exactly one of Request or Callback"
	case ErrorRequestBuild:
		return "failed to build outgoing http request"
	case ErrorSend:
		return "http request failed"
	case ErrorTemplateEvalURL:
		return "template evaluation failed on url"
	case ErrorCookieExtraction:
		return "cannot extract cookies: invalid request url"
	}
	return liberr.NullMessage
}
