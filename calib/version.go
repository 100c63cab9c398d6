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
)

// Version is one numbered snapshot of calibration constants: a numeric array,
// or text for types such as geometry.
type Version struct {
	Base

	vnum   int
	tsprod float64
	data   *Array
	text   string
	isText bool
}

func newVersion(e *env, vnum int, tsprod float64) *Version {
	return &Version{Base: newBase(e), vnum: vnum, tsprod: tsprod}
}

// MaxVNum is the highest version number a Range accepts.
const MaxVNum = 9999

// VersionName is the persisted group name of a version number, zero padded so
// lexical order is numeric order for 1 to MaxVNum.
func VersionName(vnum int) string {
	return fmt.Sprintf("v%04d", vnum)
}

// VNum returns the version number.
func (v *Version) VNum() int { return v.vnum }

// SetVNum sets the version number.
func (v *Version) SetVNum(vnum int) { v.vnum = vnum }

// TSProd returns the production time in seconds since the epoch.
func (v *Version) TSProd() float64 { return v.tsprod }

// SetTSProd sets the production time.
func (v *Version) SetTSProd(t float64) { v.tsprod = t }

// Data returns the array payload, or nil for a text version.
func (v *Version) Data() *Array { return v.data }

// Text returns the text payload.
func (v *Version) Text() string { return v.text }

// IsText reports whether the payload is text.
func (v *Version) IsText() bool { return v.isText }

// AddData sets an array payload.
func (v *Version) AddData(a *Array) {
	v.data, v.text, v.isText = a, "", false
}

// AddText sets a text payload.
func (v *Version) AddText(s string) {
	v.data, v.text, v.isText = nil, s, true
}

// Describe summarises the payload, eg. "float32[3x3]" or "text(120)".
func (v *Version) Describe() string {
	switch {
	case v.isText:
		return fmt.Sprintf("text(%d)", len(v.text))
	case v.data != nil:
		return v.data.Describe()
	}

	return "empty"
}

func (v *Version) save(g Group) error {
	if v.vnum <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, v.vnum)
	}

	if err := g.Put("version", int64(v.vnum)); err != nil {
		return err
	}

	if err := g.Put("tsprod", v.tsprod); err != nil {
		return err
	}

	if err := v.saveData(g); err != nil {
		return err
	}

	return v.saveBase(g)
}

func (v *Version) saveData(g Group) error {
	switch {
	case v.isText:
		return g.Put("data", v.text)
	case v.data != nil:
		return g.Put("data", v.data)
	}

	return g.Delete("data")
}

func (v *Version) load(g Group) error {
	entries, err := g.Entries()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsGroup() {
			if err := v.loadGroup(e); err != nil {
				return err
			}

			continue
		}

		v.loadLeaf(g.Name(), e)
	}

	return nil
}

func (v *Version) loadGroup(e Entry) error {
	ok, err := v.loadBase(e)
	if !ok {
		v.env.log.Warn("skipping unrecognised group in version", "vnum", v.vnum, "group", e.Name)
	}

	return err
}

func (v *Version) loadLeaf(group string, e Entry) {
	switch e.Name {
	case "version":
		if n, ok := leafInt(e.Value); ok {
			v.vnum = int(n)

			return
		}
	case "tsprod":
		if t, ok := leafFloat(e.Value); ok {
			v.tsprod = t

			return
		}
	case "data":
		switch d := e.Value.(type) {
		case *Array:
			v.AddData(d)

			return
		case string:
			v.AddText(d)

			return
		}
	}

	v.env.log.Warn("skipping unrecognised leaf in version", "group", group, "leaf", e.Name)
}
