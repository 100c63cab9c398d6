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

// Package test provides fixtures shared by the tests of packages that build
// on calib: a factory over the bolt container, temporary path conventions,
// populated stores and failing writers.
package test

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/calibstore/bolt"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/detector"
)

// Epix is the detector used by most tests.
var Epix = detector.New("epix100a", "1234567890") //nolint:gochecknoglobals

// QuietLogger returns a logger that discards everything.
func QuietLogger() log15.Logger { //nolint:ireturn
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())

	return l
}

// NewFactory returns a Factory that saves to bolt containers and logs nothing.
func NewFactory(t *testing.T) *calib.Factory {
	t.Helper()

	f, err := calib.NewFactory(calib.Config{Backend: bolt.NewContainer(bolt.Options{}), Logger: QuietLogger()})
	if err != nil {
		t.Fatal(err)
	}

	return f
}

// NewPaths returns calib and repository roots in a new temp dir.
func NewPaths(t *testing.T) detector.Paths {
	t.Helper()

	root := t.TempDir()

	return detector.Paths{
		CalibRoot: filepath.Join(root, "calib"),
		RepoRoot:  filepath.Join(root, "repo"),
	}
}

// Fill returns an array of the given type and shape with every value v.
func Fill(t *testing.T, dt calib.DType, v float64, shape ...int) *calib.Array {
	t.Helper()

	a, err := calib.Fill(dt, shape, v)
	if err != nil {
		t.Fatal(err)
	}

	return a
}

// RangeSpec describes a range to add with AddRanges.
type RangeSpec struct {
	Begin float64
	End   calib.End
	Value float64
}

// AddRanges adds a pixel_mask range to s for each spec, each with one 3x3
// version filled with the spec's value.
func AddRanges(t *testing.T, s *calib.Store, specs ...RangeSpec) *calib.Type {
	t.Helper()

	ct, err := s.AddCType(calib.PixelMask, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, spec := range specs {
		r, err := ct.AddRange(spec.Begin, spec.End, "")
		if err != nil {
			t.Fatal(err)
		}

		if _, err := r.AddVersion(0, spec.Begin, Fill(t, calib.DTypeUint8, spec.Value, 3, 3), ""); err != nil {
			t.Fatal(err)
		}
	}

	return ct
}

// BadWriter is an io.WriteCloser that always fails.
type BadWriter struct{}

func (BadWriter) Write([]byte) (int, error) {
	return 0, fs.ErrClosed
}

func (BadWriter) Close() error {
	return fs.ErrClosed
}
