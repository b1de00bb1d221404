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

package template

import (
	liberr "github.com/nabbar/httprace/errors"
)

const (
	ErrorAction liberr.CodeError = liberr.MinPkgTemplate + iota
)

func init() {
	liberr.RegisterIdFctMessage(ErrorAction, errMessages)
}

func errMessages(code liberr.CodeError) string {
	if code == ErrorAction {
		return "template action evaluation failed"
	}
	return liberr.NullMessage
}

type evaluator struct {
	opts Options
}

func (e *evaluator) Eval(field string, value interface{}, env Env) (interface{}, error) {
	if !e.opts.Enable || !IsTargetField(e.opts, field) {
		return value, nil
	}

	return e.walk(value, env)
}

func (e *evaluator) walk(value interface{}, env Env) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return e.substitute(v, env)

	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, sub := range v {
			nv, err := e.walk(sub, env)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil

	case map[string][]string:
		out := make(map[string][]string, len(v))
		for k, list := range v {
			nl := make([]string, len(list))
			for i, s := range list {
				ns, err := e.substitute(s, env)
				if err != nil {
					return nil, err
				}
				nl[i] = ns
			}
			out[k] = nl
		}
		return out, nil

	case []interface{}:
		// preserves arity: the source's lazy-generator conversion of tuples
		// is treated as a bug here, every element yields exactly one output.
		out := make([]interface{}, len(v))
		for i, sub := range v {
			nv, err := e.walk(sub, env)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil

	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			ns, err := e.substitute(s, env)
			if err != nil {
				return nil, err
			}
			out[i] = ns
		}
		return out, nil

	default:
		return value, nil
	}
}

func (e *evaluator) substitute(s string, env Env) (string, error) {
	var outerErr error

	result := e.opts.Pattern.ReplaceAllStringFunc(s, func(match string) string {
		if outerErr != nil {
			return match
		}

		sub := e.opts.Pattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}

		repl, err := e.opts.Action(sub[1], env)
		if err != nil {
			outerErr = ErrorAction.Error(err)
			return match
		}

		return repl
	})

	if outerErr != nil {
		return "", outerErr
	}

	return result, nil
}
