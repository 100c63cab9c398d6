/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package calib

import (
	"math"
	"strconv"
	"strings"
)

// OpenEnd is the persisted and keyed form of an unbounded range end.
const OpenEnd = "end"

// End is the end of a validity range: either a time in seconds since the
// epoch or open-ended. The zero value is open-ended.
type End struct {
	t       float64
	bounded bool
}

// Open is the unbounded End.
var Open = End{} //nolint:gochecknoglobals

// Until returns a bounded End at t.
func Until(t float64) End {
	return End{t: t, bounded: true}
}

// ParseEnd parses "end" (or "") as Open and anything else as a float number of
// seconds.
func ParseEnd(s string) (End, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == OpenEnd {
		return Open, nil
	}

	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Open, err
	}

	return Until(t), nil
}

// IsOpen reports whether the end is unbounded.
func (e End) IsOpen() bool { return !e.bounded }

// Time returns the bounded end time, or +Inf if open.
func (e End) Time() float64 {
	if !e.bounded {
		return math.Inf(1)
	}

	return e.t
}

// String returns the key form: "end", or the time rounded up to a whole
// second.
func (e End) String() string {
	if !e.bounded {
		return OpenEnd
	}

	return strconv.FormatInt(int64(math.Ceil(e.t)), 10)
}

// Key returns the canonical range key "<floor(begin)>-<ceil(end)|end>". A NaN
// begin, the closest thing to a missing one, keys as 0.
//
// Distinct ranges that agree after rounding share a key; callers adding such a
// range get the existing one back.
func Key(begin float64, end End) string {
	b := int64(0)
	if !math.IsNaN(begin) {
		b = int64(math.Floor(begin))
	}

	return strconv.FormatInt(b, 10) + "-" + end.String()
}
