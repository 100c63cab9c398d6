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

package constants

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/detector"
	internaltest "github.com/wtsi-hgi/calibstore/internal/test"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	return New(internaltest.NewFactory(t), internaltest.NewPaths(t))
}

func TestLookup(t *testing.T) {
	Convey("Lookup finds constants in a loaded store", t, func() {
		s := internaltest.NewFactory(t).NewStore("")
		So(internaltest.Epix.Apply(s), ShouldBeNil)

		internaltest.AddRanges(t, s,
			internaltest.RangeSpec{Begin: 200, End: calib.Open, Value: 3},
			internaltest.RangeSpec{Begin: 0, End: calib.Until(100), Value: 1},
			internaltest.RangeSpec{Begin: 100, End: calib.Until(200), Value: 2},
		)

		for _, tc := range []struct {
			time float64
			key  string
		}{
			{50, "0-100"},
			{100, "100-200"},
			{150, "100-200"},
			{1000, "200-end"},
		} {
			found, err := Lookup(s, Query{CType: calib.PixelMask, Time: tc.time})
			So(err, ShouldBeNil)
			So(found.Range.Key(), ShouldEqual, tc.key)
		}

		_, err := Lookup(s, Query{CType: calib.PixelMask, Time: -1})
		So(err, ShouldWrap, ErrNotFound)

		_, err = Lookup(s, Query{CType: calib.PixelMask, Time: 50, VNum: 2})
		So(err, ShouldWrap, ErrNotFound)

		_, err = Lookup(s, Query{CType: calib.Pedestals, Time: 50})
		So(err, ShouldWrap, ErrNotFound)
	})
}

func TestManager(t *testing.T) {
	Convey("Given a Manager with an empty calibration root", t, func() {
		m := newTestManager(t)
		id := internaltest.Epix

		ones, err := calib.Fill(calib.DTypeUint8, []int{3, 3}, 1)
		So(err, ShouldBeNil)

		Convey("Get on a detector without a store is not found", func() {
			_, err := m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
			So(err, ShouldWrap, ErrNotFound)
		})

		Convey("Add creates the store and Get finds the constants", func() {
			added, err := m.Add(AddRequest{
				Detector: id, CType: calib.PixelMask, Time: 1000, Data: ones, Comment: "initial mask",
			})
			So(err, ShouldBeNil)
			So(added.Version.VNum(), ShouldEqual, 1)
			So(added.Range.Key(), ShouldEqual, "1000-end")

			want, err := m.Paths().File(id)
			So(err, ShouldBeNil)
			So(added.Path, ShouldEqual, want)

			exists, err := m.Exists(id)
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)

			found, err := m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
			So(err, ShouldBeNil)
			So(found.Version.Data().Equal(ones), ShouldBeTrue)
			So(found.Store.TSCFile(), ShouldEqual, 1000)
			So(found.Range.HistoryText(), ShouldEndWith, "add constants vers=1: initial mask")

			Convey("lookups before the first range or for other types are not found", func() {
				_, err := m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 10})
				So(err, ShouldWrap, ErrNotFound)

				_, err = m.Get(Query{Detector: id, CType: calib.Pedestals, Time: 5000})
				So(err, ShouldWrap, ErrNotFound)

				_, err = m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000, VNum: 4})
				So(err, ShouldWrap, ErrNotFound)
			})

			Convey("adding again at the same time makes a new version", func() {
				zeros, err := calib.Fill(calib.DTypeFloat32, []int{3, 3}, 0)
				So(err, ShouldBeNil)

				added, err := m.Add(AddRequest{Detector: id, CType: calib.PixelMask, Time: 1000, Data: zeros})
				So(err, ShouldBeNil)
				So(added.Version.VNum(), ShouldEqual, 2)
				So(added.Version.Data().DType, ShouldEqual, calib.DTypeUint8)

				found, err := m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
				So(err, ShouldBeNil)
				So(found.Version.VNum(), ShouldEqual, 2)

				found, err = m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000, VNum: 1})
				So(err, ShouldBeNil)
				So(found.Version.Data().Equal(ones), ShouldBeTrue)
			})

			Convey("a later range takes over from its start", func() {
				twos, err := calib.Fill(calib.DTypeUint8, []int{3, 3}, 2)
				So(err, ShouldBeNil)

				_, err = m.Add(AddRequest{Detector: id, CType: calib.PixelMask, Time: 3000, Data: twos})
				So(err, ShouldBeNil)

				found, err := m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 2000})
				So(err, ShouldBeNil)
				So(found.Version.Data().Equal(ones), ShouldBeTrue)

				found, err = m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
				So(err, ShouldBeNil)
				So(found.Version.Data().Equal(twos), ShouldBeTrue)
				So(found.Store.TSCFile(), ShouldEqual, 1000)
			})

			Convey("Delete retires the version so it is no longer found", func() {
				vnum, err := m.Delete(Query{Detector: id, CType: calib.PixelMask, Time: 5000}, "retired")
				So(err, ShouldBeNil)
				So(vnum, ShouldEqual, 1)

				_, err = m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
				So(err, ShouldWrap, ErrNotFound)

				_, err = m.Delete(Query{Detector: id, CType: calib.PixelMask, Time: 5000}, "")
				So(err, ShouldWrap, ErrNotFound)
			})

			Convey("SetDefault picks the version returned by default", func() {
				_, err := m.Add(AddRequest{Detector: id, CType: calib.PixelMask, Time: 1000, Data: ones})
				So(err, ShouldBeNil)

				So(m.SetDefault(Query{Detector: id, CType: calib.PixelMask, Time: 5000, VNum: 1}), ShouldBeNil)

				found, err := m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
				So(err, ShouldBeNil)
				So(found.Version.VNum(), ShouldEqual, 1)
				So(found.Range.VNumDefOverride(), ShouldEqual, 1)

				err = m.SetDefault(Query{Detector: id, CType: calib.PixelMask, Time: 5000, VNum: 9})
				So(err, ShouldWrap, ErrNotFound)

				So(m.SetDefault(Query{Detector: id, CType: calib.PixelMask, Time: 5000}), ShouldBeNil)

				found, err = m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
				So(err, ShouldBeNil)
				So(found.Version.VNum(), ShouldEqual, 2)
			})

			Convey("MarkRange retires a whole range", func() {
				n, err := m.MarkRange(id, calib.PixelMask, "1000-end", "wrong run")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)

				_, err = m.Get(Query{Detector: id, CType: calib.PixelMask, Time: 5000})
				So(err, ShouldWrap, ErrNotFound)

				_, err = m.MarkRange(id, calib.PixelMask, "1000-end", "")
				So(err, ShouldWrap, ErrNotFound)
			})

			Convey("MarkCType retires a calibration type", func() {
				So(m.MarkCType(id, calib.PixelMask, "obsolete"), ShouldBeNil)

				s, err := m.Load(id)
				So(err, ShouldBeNil)
				So(s.CTypeObj(calib.PixelMask), ShouldBeNil)
				So(s.HistoryText(), ShouldContainSubstring, "obsolete")

				So(m.MarkCType(id, calib.PixelMask, ""), ShouldWrap, ErrNotFound)
			})

			Convey("Publish copies the store to the repository", func() {
				path, err := m.Publish(id)
				So(err, ShouldBeNil)

				want, err := m.Paths().RepoFile(id)
				So(err, ShouldBeNil)
				So(path, ShouldEqual, want)

				orig, err := os.ReadFile(added.Path)
				So(err, ShouldBeNil)

				copied, err := os.ReadFile(path)
				So(err, ShouldBeNil)
				So(copied, ShouldResemble, orig)

				entries, err := os.ReadDir(filepath.Dir(path))
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})

			Convey("List and LoadAll find the store", func() {
				So(os.WriteFile(filepath.Join(filepath.Dir(added.Path), "stray.db"), nil, 0o600), ShouldBeNil)

				ids, err := m.List()
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []detector.Identity{id})

				stores, err := m.LoadAll()
				So(err, ShouldBeNil)
				So(stores, ShouldHaveLength, 1)
				So(stores[0].DetName(), ShouldEqual, id.Name())
			})
		})

		Convey("text calibration types store text", func() {
			_, err := m.Add(AddRequest{Detector: id, CType: calib.Geometry, Time: 0, Text: "SENSOR 0"})
			So(err, ShouldBeNil)

			found, err := m.Get(Query{Detector: id, CType: calib.Geometry, Time: 1})
			So(err, ShouldBeNil)
			So(found.Version.Text(), ShouldEqual, "SENSOR 0")
		})

		Convey("array types need data and known types are enforced", func() {
			_, err := m.Add(AddRequest{Detector: id, CType: calib.Pedestals, Time: 0})
			So(err, ShouldWrap, calib.ErrInvalidArray)

			_, err = m.Add(AddRequest{Detector: id, CType: "nonsense", Time: 0, Data: ones})
			So(err, ShouldWrap, calib.ErrUnknownCType)
		})

		Convey("predecessor links are followed by name", func() {
			oldID := detector.New("epix100a", "0000000001")
			midID := detector.New("epix100a", "0000000002")

			_, err := m.Add(AddRequest{Detector: oldID, CType: calib.PixelMask, Time: 0, Data: ones,
				Successor: midID.Name()})
			So(err, ShouldBeNil)

			_, err = m.Add(AddRequest{Detector: midID, CType: calib.PixelMask, Time: 0, Data: ones,
				Predecessor: oldID.Name(), Successor: id.Name()})
			So(err, ShouldBeNil)

			_, err = m.Add(AddRequest{Detector: id, CType: calib.PixelMask, Time: 0, Data: ones,
				Predecessor: midID.Name()})
			So(err, ShouldBeNil)

			s, err := m.Load(id)
			So(err, ShouldBeNil)

			lineage, err := m.Lineage(s)
			So(err, ShouldBeNil)
			So(lineage, ShouldHaveLength, 3)
			So(lineage[2].DetName(), ShouldEqual, oldID.Name())

			first := lineage[2]
			next, err := m.Successor(first)
			So(err, ShouldBeNil)
			So(next.DetName(), ShouldEqual, midID.Name())

			none, err := m.Predecessor(first)
			So(err, ShouldBeNil)
			So(none, ShouldBeNil)

			Convey("and cycles are reported", func() {
				_, err := m.Add(AddRequest{Detector: oldID, CType: calib.PixelMask, Time: 0, Data: ones,
					Predecessor: id.Name()})
				So(err, ShouldBeNil)

				_, err = m.Lineage(s)
				So(err, ShouldWrap, ErrLinkCycle)
			})
		})

		Convey("a missing calibration root is a configuration error", func() {
			bad := New(m.factory, detector.Paths{})

			_, err := bad.Get(Query{Detector: id, CType: calib.PixelMask})
			So(err, ShouldWrap, calib.ErrInvalidConfig)

			_, err = bad.List()
			So(err, ShouldWrap, calib.ErrInvalidConfig)
		})
	})
}
