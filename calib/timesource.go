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
	"fmt"
	"time"
)

// TimeSource resolves an opaque event handle to seconds since the epoch.
type TimeSource interface {
	EventTime(evt any) (float64, error)
}

// EventID identifies an acquisition event by its timestamp.
type EventID struct {
	Sec  uint32
	Nsec uint32
}

// Time returns the event time as float seconds.
func (e EventID) Time() float64 {
	return float64(e.Sec) + float64(e.Nsec)*1e-9
}

// EventIDTime is a TimeSource understanding EventID, *EventID, time.Time and
// plain float64 seconds.
type EventIDTime struct{}

// EventTime implements TimeSource.
func (EventIDTime) EventTime(evt any) (float64, error) {
	switch e := evt.(type) {
	case EventID:
		return e.Time(), nil
	case *EventID:
		if e != nil {
			return e.Time(), nil
		}
	case time.Time:
		return float64(e.UnixNano()) / 1e9, nil
	case float64:
		return e, nil
	}

	return 0, fmt.Errorf("%w: event %T", ErrUnsupportedValue, evt)
}
