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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestType(t *testing.T) {
	Convey("Given a Type", t, func() {
		f, _, logged := newTestFactory(t)
		ct := newType(f.env, PixelMask, DTypeUint8)

		Convey("AddRange is idempotent per key", func() {
			r1, err := ct.AddRange(1000, Open, "")
			So(err, ShouldBeNil)

			r2, err := ct.AddRange(1000.4, Open, "")
			So(err, ShouldBeNil)
			So(r2, ShouldEqual, r1)
			So(ct.Ranges(), ShouldHaveLength, 1)
			So(ct.Range(1000, Open), ShouldEqual, r1)
			So(ct.RangeForKey("1000-end"), ShouldEqual, r1)
			So(ct.Range(1000, Until(2000)), ShouldBeNil)
		})

		Convey("AddRange refuses inverted bounded ranges", func() {
			_, err := ct.AddRange(2000, Until(1000), "")
			So(err, ShouldWrap, ErrInvalidRange)

			_, err = ct.AddRange(1000, Until(1000), "")
			So(err, ShouldWrap, ErrInvalidRange)
		})

		for _, tc := range []struct {
			name  string
			order []int
		}{
			{"in order", []int{0, 1, 2}},
			{"reversed", []int{2, 1, 0}},
			{"interleaved", []int{1, 2, 0}},
		} {
			Convey("RangeForTsec finds the winning range when added "+tc.name, func() {
				bounds := []struct {
					begin float64
					end   End
				}{{0, Until(100)}, {100, Until(200)}, {200, Open}}

				rs := make([]*Range, 3)

				for _, i := range tc.order {
					r, err := ct.AddRange(bounds[i].begin, bounds[i].end, "")
					So(err, ShouldBeNil)

					rs[i] = r
				}

				So(ct.RangeForTsec(50), ShouldEqual, rs[0])
				So(ct.RangeForTsec(100), ShouldEqual, rs[1])
				So(ct.RangeForTsec(200), ShouldEqual, rs[2])
				So(ct.RangeForTsec(1000), ShouldEqual, rs[2])
				So(ct.RangeForTsec(-1), ShouldBeNil)
			})
		}

		Convey("a later open range shadows an earlier one", func() {
			early, err := ct.AddRange(0, Open, "")
			So(err, ShouldBeNil)

			late, err := ct.AddRange(500, Open, "")
			So(err, ShouldBeNil)

			So(ct.RangeForTsec(100), ShouldEqual, early)
			So(ct.RangeForTsec(600), ShouldEqual, late)

			Convey("until it is marked", func() {
				So(ct.MarkRange(500, Open, "bad"), ShouldEqual, "500-end")
				So(ct.IsMarked("500-end"), ShouldBeTrue)
				So(ct.RangeForTsec(600), ShouldEqual, early)
				So(ct.Range(500, Open), ShouldBeNil)
				So(ct.Ranges(), ShouldHaveLength, 2)
				So(ct.HistoryText(), ShouldEndWith, "mark range 500-end: bad")

				Convey("and re-adding revives it", func() {
					again, err := ct.AddRange(500, Open, "")
					So(err, ShouldBeNil)
					So(again, ShouldEqual, late)
					So(ct.RangeForTsec(600), ShouldEqual, late)
				})
			})
		})

		Convey("marking a range cascades to its versions", func() {
			r, err := ct.AddRange(0, Open, "")
			So(err, ShouldBeNil)

			_, err = r.AddVersion(0, 1, mustArray(t, DTypeUint8, []int{1}, 1), "")
			So(err, ShouldBeNil)

			So(ct.MarkRangeForKey(r.Key(), ""), ShouldEqual, r.Key())
			So(r.IsMarked(1), ShouldBeTrue)
			So(r.Version(0), ShouldBeNil)
		})

		Convey("re-adding a marked range keeps individually retired versions marked", func() {
			r, err := ct.AddRange(0, Open, "")
			So(err, ShouldBeNil)

			for i := range 3 {
				_, err = r.AddVersion(0, 1, mustArray(t, DTypeUint8, []int{1}, float64(i)), "")
				So(err, ShouldBeNil)
			}

			So(r.MarkVersion(3, "bad constants"), ShouldEqual, 3)
			So(ct.MarkRangeForKey(r.Key(), ""), ShouldEqual, r.Key())
			So(r.IsMarked(1), ShouldBeTrue)

			again, err := ct.AddRange(0, Open, "")
			So(err, ShouldBeNil)
			So(again, ShouldEqual, r)
			So(r.IsMarked(1), ShouldBeFalse)
			So(r.IsMarked(2), ShouldBeFalse)
			So(r.IsMarked(3), ShouldBeTrue)
			So(r.VNumDef(), ShouldEqual, 2)
			So(r.Version(0).VNum(), ShouldEqual, 2)
		})

		Convey("marking a missing range logs and returns empty", func() {
			So(ct.MarkRangeForKey("1-2", ""), ShouldEqual, "")
			So(len(*logged), ShouldEqual, 1)
		})

		Convey("RangeForEvent resolves events with the time source", func() {
			r, err := ct.AddRange(100, Until(200), "")
			So(err, ShouldBeNil)

			So(ct.RangeForEvent(EventIDTime{}, EventID{Sec: 150}), ShouldEqual, r)
			So(ct.RangeForEvent(EventIDTime{}, 150.0), ShouldEqual, r)
			So(ct.RangeForEvent(EventIDTime{}, struct{}{}), ShouldBeNil)
		})
	})
}
