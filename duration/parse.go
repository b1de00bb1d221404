/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2022 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseString extends time.ParseDuration with a leading "Nd" days component
// (e.g. "5d23h15m13s"), since the stdlib parser has no day unit. "d" never
// collides with a stdlib unit suffix (ns, us, µs, μs, ms, s, m, h), so the
// first "d" in the string, if any, always marks the end of the day count.
func parseString(s string) (Duration, error) {
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, " ", "")

	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	sign := time.Duration(1)
	rest := s

	switch rest[0] {
	case '-':
		sign = -1
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	}

	if rest == "" {
		return 0, fmt.Errorf("duration: invalid duration %q", s)
	}

	var days time.Duration

	if idx := strings.IndexByte(rest, 'd'); idx >= 0 {
		f, err := strconv.ParseFloat(rest[:idx], 64)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid day component in %q: %w", s, err)
		}

		days = time.Duration(f * 24 * float64(time.Hour))
		rest = rest[idx+1:]
	}

	var rem time.Duration

	if rest != "" {
		v, err := time.ParseDuration(rest)
		if err != nil {
			return 0, err
		}
		rem = v
	}

	return Duration(sign * (days + rem)), nil
}

func (d *Duration) parseString(s string) error {
	if v, e := parseString(s); e != nil {
		return e
	} else {
		*d = v
		return nil
	}
}

func (d *Duration) unmarshall(val []byte) error {
	if tmp, err := ParseByte(val); err != nil {
		return err
	} else {
		*d = tmp
		return nil
	}
}
