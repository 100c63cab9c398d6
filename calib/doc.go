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

// Package calib is a versioned, time-indexed store of detector calibration
// constants.
//
// A Store belongs to one physical detector and holds a Type per calibration
// type (pedestals, pixel_mask, ...). Each Type is split into validity Ranges,
// and each Range holds numbered Versions of the constants. Given a type and a
// time, Type.RangeForTsec and Range.Version(0) find the constants that were
// valid then:
//
//	f, err := calib.NewFactory(calib.Config{Backend: bolt.NewContainer(bolt.Options{})})
//	s, err := f.Load(path)
//	if ct := s.CTypeObj(calib.PixelMask); ct != nil {
//		if r := ct.RangeForTsec(t); r != nil {
//			v := r.Version(0)
//		}
//	}
//
// Deleting is done by marking. Marked entries stay in memory, are ignored by
// lookups, and are removed from the container file by the next Save.
//
// Read-path lookups return nil rather than an error when nothing matches.
package calib
