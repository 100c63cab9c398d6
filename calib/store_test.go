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
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStore(t *testing.T) {
	Convey("Given a new Store", t, func() {
		f, mc, logged := newTestFactory(t)
		s := f.NewStore("/calib/epix100a/epix100a-1234567890.h5")

		Convey("DetName needs both type and id", func() {
			So(s.DetName(), ShouldEqual, "")
			So(s.SetDetType("epix100a"), ShouldBeNil)
			So(s.DetName(), ShouldEqual, "")
			s.SetDetID("1234567890")
			So(s.DetName(), ShouldEqual, "epix100a-1234567890")
		})

		Convey("SetDetName splits at the first separator", func() {
			So(s.SetDetName("epix10ka-0000000001-0000000002"), ShouldBeNil)
			So(s.DetType(), ShouldEqual, "epix10ka")
			So(s.DetID(), ShouldEqual, "0000000001-0000000002")
			So(s.DetName(), ShouldEqual, "epix10ka-0000000001-0000000002")

			So(s.SetDetName("nodash"), ShouldWrap, ErrInvalidDetName)
			So(s.SetDetName("-id"), ShouldWrap, ErrInvalidDetName)
			So(s.SetDetType("a-b"), ShouldWrap, ErrInvalidDetName)
		})

		Convey("AddCType is idempotent and only accepts known types", func() {
			t1, err := s.AddCType(Pedestals, "first")
			So(err, ShouldBeNil)
			So(t1.DType(), ShouldEqual, DTypeFloat32)

			t2, err := s.AddCType(Pedestals, "")
			So(err, ShouldBeNil)
			So(t2, ShouldEqual, t1)
			So(s.CTypes(), ShouldHaveLength, 1)
			So(s.HistoryText(), ShouldEndWith, "add ctype pedestals: first")

			_, err = s.AddCType("bogus", "")
			So(err, ShouldWrap, ErrUnknownCType)
		})

		Convey("MarkCType cascades and hides the type from lookups", func() {
			ct, err := s.AddCType(PixelGain, "")
			So(err, ShouldBeNil)

			r, err := ct.AddRange(0, Open, "")
			So(err, ShouldBeNil)

			_, err = r.AddVersion(0, 1, mustArray(t, DTypeFloat32, []int{1}, 1), "")
			So(err, ShouldBeNil)

			So(s.MarkCType(PixelGain, "gone"), ShouldEqual, PixelGain)
			So(s.CTypeObj(PixelGain), ShouldBeNil)
			So(s.IsMarked(PixelGain), ShouldBeTrue)
			So(ct.IsMarked(r.Key()), ShouldBeTrue)
			So(r.IsMarked(1), ShouldBeTrue)

			So(s.MarkCType(PixelRMS, ""), ShouldEqual, CType(""))
			So(len(*logged), ShouldEqual, 1)

			Convey("and re-adding it revives only what the mark swept up", func() {
				retired, err := ct.AddRange(100, Until(200), "")
				So(err, ShouldBeNil)
				So(ct.IsMarked(retired.Key()), ShouldBeFalse)

				So(s.MarkCType(PixelGain, "again"), ShouldEqual, PixelGain)
				So(ct.MarkRangeForKey(retired.Key(), "retired"), ShouldEqual, retired.Key())

				again, err := s.AddCType(PixelGain, "")
				So(err, ShouldBeNil)
				So(again, ShouldEqual, ct)
				So(ct.IsMarked(r.Key()), ShouldBeFalse)
				So(r.IsMarked(1), ShouldBeFalse)
				So(ct.IsMarked(retired.Key()), ShouldBeTrue)
			})

			Convey("and Save drops it from the file and from memory", func() {
				So(s.Save(""), ShouldBeNil)
				So(s.CTypes(), ShouldBeEmpty)

				loaded, err := f.Load(s.Path())
				So(err, ShouldBeNil)
				So(loaded.CTypes(), ShouldBeEmpty)
			})
		})

		Convey("Save without any path is a configuration error", func() {
			s.SetPath("")
			So(s.Save(""), ShouldWrap, ErrInvalidConfig)
			So(s.Load(""), ShouldWrap, ErrInvalidConfig)
		})

		Convey("Save refuses an invalid tree", func() {
			ct, err := s.AddCType(Pedestals, "")
			So(err, ShouldBeNil)

			r, err := ct.AddRange(0, Until(10), "")
			So(err, ShouldBeNil)

			r.end = Until(-5)

			v, err := r.AddVersion(0, 1, nil, "")
			So(err, ShouldBeNil)
			v.vnum = 3

			err = s.Save("")
			So(err, ShouldWrap, ErrInvalidRange)
			So(err, ShouldWrap, ErrInvalidVersion)
			So(mc.files, ShouldBeEmpty)
		})

		Convey("Loading a missing file fails", func() {
			_, err := f.Load("/nowhere.h5")
			So(err, ShouldNotBeNil)
		})

		Convey("Load skips unrecognised content", func() {
			root := newMemGroup("")
			So(root.Put("dettype", "cspad"), ShouldBeNil)
			So(root.Put("colour", "blue"), ShouldBeNil)

			g, err := root.Subgroup("pedestals")
			So(err, ShouldBeNil)

			rg, err := g.Subgroup("junk")
			So(err, ShouldBeNil)
			So(rg.Put("begin", "not a float"), ShouldBeNil)

			mc.files["/odd.h5"] = root

			loaded, err := f.Load("/odd.h5")
			So(err, ShouldBeNil)
			So(loaded.DetType(), ShouldEqual, "cspad")
			So(loaded.CTypeObj(Pedestals), ShouldNotBeNil)
			So(loaded.CTypeObj(Pedestals).Ranges(), ShouldBeEmpty)
			So(len(*logged), ShouldEqual, 2)
		})

		Convey("Dump describes the tree", func() {
			So(s.SetDetName("epix100a-1"), ShouldBeNil)

			ct, err := s.AddCType(PixelMask, "")
			So(err, ShouldBeNil)

			r, err := ct.AddRange(1000, Open, "")
			So(err, ShouldBeNil)

			_, err = r.AddVersion(0, 5, mustArray(t, DTypeUint8, []int{3, 3}, 1), "")
			So(err, ShouldBeNil)

			r.MarkVersion(1, "")

			var sb strings.Builder
			So(s.Dump(&sb), ShouldBeNil)
			So(sb.String(), ShouldContainSubstring, "store epix100a-1")
			So(sb.String(), ShouldContainSubstring, "range 1000-end versdef=0")
			So(sb.String(), ShouldContainSubstring, "v0001 tsprod=5.000000 uint8[3x3] (marked)")
		})
	})
}

func TestStoreRoundTrip(t *testing.T) {
	Convey("A populated Store survives Save and Load", t, func() {
		f, _, _ := newTestFactory(t)
		s := f.NewStore("/calib/x.h5")
		So(s.SetDetName("epix100a-1234567890"), ShouldBeNil)
		s.SetTSCFile(1600000000.25)
		s.SetPredecessor("epix100a-0000000001")
		So(s.AddPar("operator", "someone"), ShouldBeNil)
		So(s.AddPar("runs", 7), ShouldBeNil)

		for i, name := range []CType{Pedestals, PixelGain} {
			ct, err := s.AddCType(name, "")
			So(err, ShouldBeNil)

			for j, b := range [][2]float64{{0, 100}, {100, 0}} {
				end := Open
				if b[1] != 0 {
					end = Until(b[1])
				}

				r, err := ct.AddRange(b[0], end, "r")
				So(err, ShouldBeNil)

				for k := 0; k < 2; k++ {
					a, err := ArrayOf(DTypeFloat32, []int{2, 2}, []float32{
						float32(i), float32(j), float32(k), 0.1,
					})
					So(err, ShouldBeNil)

					_, err = r.AddVersion(0, 1000.5+float64(k), a, "v")
					So(err, ShouldBeNil)
				}
			}
		}

		So(s.Save(""), ShouldBeNil)

		loaded, err := f.Load("/calib/x.h5")
		So(err, ShouldBeNil)

		So(loaded.DetType(), ShouldEqual, "epix100a")
		So(loaded.DetID(), ShouldEqual, "1234567890")
		So(loaded.DetName(), ShouldEqual, "epix100a-1234567890")
		So(loaded.TSCFile(), ShouldEqual, 1600000000.25)
		So(loaded.Predecessor(), ShouldEqual, "epix100a-0000000001")
		So(loaded.Successor(), ShouldEqual, "")
		So(loaded.Pars(), ShouldResemble, map[string]any{"operator": "someone", "runs": int64(7)})

		So(len(loaded.CTypes()), ShouldEqual, 2)

		for _, want := range s.CTypes() {
			got := loaded.CTypeObj(want.CType())
			So(got, ShouldNotBeNil)
			So(len(got.Ranges()), ShouldEqual, 2)

			for _, wr := range want.Ranges() {
				gr := got.RangeForKey(wr.Key())
				So(gr, ShouldNotBeNil)
				So(gr.Begin(), ShouldEqual, wr.Begin())
				So(gr.End(), ShouldResemble, wr.End())
				So(gr.HistoryText(), ShouldEqual, wr.HistoryText())

				for _, wv := range wr.Versions() {
					gv := gr.Version(wv.VNum())
					So(gv, ShouldNotBeNil)
					So(gv.TSProd(), ShouldEqual, wv.TSProd())
					So(gv.Data().Equal(wv.Data()), ShouldBeTrue)
				}
			}
		}

		Convey("and a marked version is compacted away while siblings survive", func() {
			r := loaded.CTypeObj(Pedestals).RangeForTsec(50)
			So(r.MarkVersion(1, ""), ShouldEqual, 1)
			So(r.Versions(), ShouldHaveLength, 2)

			So(loaded.Save(""), ShouldBeNil)

			again, err := f.Load("/calib/x.h5")
			So(err, ShouldBeNil)

			r2 := again.CTypeObj(Pedestals).RangeForTsec(50)
			So(r2.Versions(), ShouldHaveLength, 1)
			So(r2.Versions()[0].VNum(), ShouldEqual, 2)
			So(r2.Versions()[0].Data().Equal(r.Versions()[0].Data()), ShouldBeTrue)
		})
	})
}
