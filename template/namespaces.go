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
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	libenc "github.com/nabbar/httprace/encoding"
	libhexa "github.com/nabbar/httprace/encoding/hexa"
	libsha "github.com/nabbar/httprace/encoding/sha256"
)

// Self is the minimal surface the template environment exposes as "self".
// Worker implements this directly; the evaluator never needs the whole
// Worker interface.
type Self interface {
	WorkerIndex() int
}

// NewEnv builds the evaluation environment for one field pass, holding only
// "self"; the utility helpers live in DefaultAction.
func NewEnv(self Self) Env {
	return Env{
		"self": self,
	}
}

// DefaultAction implements the small default language described in the
// design notes: worker-index substitution, timestamps, cryptographic-grade
// random floats/ints, and hash/hex helpers. It is not a general expression
// evaluator; unrecognized expressions are an error.
func DefaultAction(expr string, env Env) (string, error) {
	expr = strings.TrimSpace(expr)

	switch {
	case expr == "self.worker_index":
		self, _ := env["self"].(Self)
		if self == nil {
			return "", fmt.Errorf("template: self not bound in environment")
		}
		return strconv.Itoa(self.WorkerIndex()), nil

	case expr == "random_float()":
		var b [8]byte
		if _, err := crand.Read(b[:]); err != nil {
			return "", err
		}
		f := float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case expr == "random_int()":
		n, err := crand.Int(crand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			return "", err
		}
		return n.String(), nil

	case expr == "timestamp()":
		return strconv.FormatInt(time.Now().UnixNano(), 10), nil

	case strings.HasPrefix(expr, "hash.sha256(") && strings.HasSuffix(expr, ")"):
		digest := libsha.New().Encode([]byte(trimCall(expr, "hash.sha256(")))
		return encodeLiteral(libhexa.New(), string(digest)), nil

	case strings.HasPrefix(expr, "encoding.hex(") && strings.HasSuffix(expr, ")"):
		return encodeLiteral(libhexa.New(), trimCall(expr, "encoding.hex(")), nil

	case strings.HasPrefix(expr, "json.encode(") && strings.HasSuffix(expr, ")"):
		lit := trimCall(expr, "json.encode(")
		b, err := json.Marshal(lit)
		if err != nil {
			return "", err
		}
		return string(b), nil

	default:
		return "", fmt.Errorf("template: unrecognized expression %q", expr)
	}
}

func trimCall(expr, prefix string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(expr, prefix), ")")
	return strings.Trim(strings.TrimSpace(inner), `"'`)
}

func encodeLiteral(c libenc.Coder, literal string) string {
	return string(c.Encode([]byte(literal)))
}
