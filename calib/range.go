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
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Status is the lifecycle state of a child entity. Marked children stay in
// memory until the next Save, which deletes them from the container.
type Status uint8

const (
	Live Status = iota
	Marked
)

func (s Status) String() string {
	if s == Marked {
		return "marked"
	}

	return "live"
}

// Range is a validity window [begin, end] holding numbered Versions.
type Range struct {
	Base

	begin    float64
	end      End
	versions map[int]*Version
	status   map[int]Status
	cascaded map[int]struct{}
	vnumDef  int
}

func newRange(e *env, begin float64, end End) *Range {
	return &Range{
		Base:     newBase(e),
		begin:    begin,
		end:      end,
		versions: make(map[int]*Version),
		status:   make(map[int]Status),
		cascaded: make(map[int]struct{}),
	}
}

// Begin returns the start of the window in seconds since the epoch.
func (r *Range) Begin() float64 { return r.begin }

// End returns the end of the window.
func (r *Range) End() End { return r.end }

// Key returns the range key, see Key.
func (r *Range) Key() string { return Key(r.begin, r.end) }

// Versions returns every version in number order, including marked ones.
func (r *Range) Versions() []*Version {
	out := make([]*Version, 0, len(r.versions))
	for _, vnum := range slices.Sorted(maps.Keys(r.versions)) {
		out = append(out, r.versions[vnum])
	}

	return out
}

// IsMarked reports whether the numbered version is marked for deletion.
func (r *Range) IsMarked(vnum int) bool { return r.status[vnum] == Marked }

// VNumLast returns the highest version number present, marked or not, or 0.
func (r *Range) VNumLast() int {
	last := 0
	for vnum := range r.versions {
		last = max(last, vnum)
	}

	return last
}

func (r *Range) vnumLastLive() int {
	last := 0

	for vnum := range r.versions {
		if r.status[vnum] == Live {
			last = max(last, vnum)
		}
	}

	return last
}

// VNumDef returns the default version number: the explicit override if it is
// set and live, otherwise the highest live version, or 0 if there is none.
func (r *Range) VNumDef() int {
	if r.vnumDef != 0 && r.versions[r.vnumDef] != nil && r.status[r.vnumDef] == Live {
		return r.vnumDef
	}

	return r.vnumLastLive()
}

// VNumDefOverride returns the explicit default, 0 if unset.
func (r *Range) VNumDefOverride() int { return r.vnumDef }

// SetVNumDef overrides the default version; 0 clears the override. Asking for
// a version that does not exist logs a warning, adds a history record and
// leaves the default unchanged.
func (r *Range) SetVNumDef(vnum int) bool {
	if vnum != 0 && r.versions[vnum] == nil {
		r.env.log.Warn("default version does not exist", "range", r.Key(), "vnum", vnum)
		r.AddHistory(fmt.Sprintf("WARNING: default version %d requested but does not exist", vnum))

		return false
	}

	r.vnumDef = vnum

	return true
}

// Version returns the numbered live version, or the default one for vnum 0.
// It returns nil if there is no such live version.
func (r *Range) Version(vnum int) *Version {
	if vnum == 0 {
		vnum = r.VNumDef()
	}

	if r.status[vnum] != Live {
		return nil
	}

	return r.versions[vnum]
}

// AddVersion stores an array payload as a live version. vnum 0 means
// VNumLast()+1, and numbers over MaxVNum are refused. tsprod 0 means now. A
// non-empty cmt is recorded in the range's history. Re-using a number replaces
// that version.
func (r *Range) AddVersion(vnum int, tsprod float64, data *Array, cmt string) (*Version, error) {
	v, err := r.addVersion(vnum, tsprod, cmt)
	if err != nil {
		return nil, err
	}

	v.AddData(data)

	return v, nil
}

// AddTextVersion is AddVersion for a text payload.
func (r *Range) AddTextVersion(vnum int, tsprod float64, text string, cmt string) (*Version, error) {
	v, err := r.addVersion(vnum, tsprod, cmt)
	if err != nil {
		return nil, err
	}

	v.AddText(text)

	return v, nil
}

func (r *Range) addVersion(vnum int, tsprod float64, cmt string) (*Version, error) {
	if vnum < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, vnum)
	}

	if vnum == 0 {
		vnum = r.VNumLast() + 1
	}

	if vnum > MaxVNum {
		return nil, fmt.Errorf("%w: %d is over %d", ErrInvalidVersion, vnum, MaxVNum)
	}

	if tsprod == 0 {
		tsprod = r.env.nowSec()
	}

	v := newVersion(r.env, vnum, tsprod)
	r.versions[vnum] = v
	r.status[vnum] = Live
	delete(r.cascaded, vnum)

	if cmt != "" {
		r.AddHistory(fmt.Sprintf("add version %d: %s", vnum, cmt))
	}

	return v, nil
}

// MarkVersion marks the numbered version (VNumLast() for 0) for deletion at
// the next Save and returns its number. A missing target logs a warning and
// returns 0.
func (r *Range) MarkVersion(vnum int, cmt string) int {
	if vnum == 0 {
		vnum = r.VNumLast()
	}

	if r.versions[vnum] == nil {
		r.env.log.Warn("version to mark not found", "range", r.Key(), "vnum", vnum)

		return 0
	}

	r.status[vnum] = Marked
	delete(r.cascaded, vnum)
	r.AddHistory(markRecord("version "+VersionName(vnum), cmt))

	return vnum
}

func markRecord(what, cmt string) string {
	if cmt == "" {
		return "mark " + what
	}

	return "mark " + what + ": " + cmt
}

// markAll marks every live version, remembering them so revive restores only
// those and not versions that were marked individually.
func (r *Range) markAll() {
	for vnum := range r.versions {
		if r.status[vnum] == Live {
			r.status[vnum] = Marked
			r.cascaded[vnum] = struct{}{}
		}
	}
}

func (r *Range) revive() {
	for vnum := range r.cascaded {
		if _, ok := r.versions[vnum]; ok {
			r.status[vnum] = Live
		}
	}

	clear(r.cascaded)
}

// TsecInRange reports whether begin <= t <= end; an open end contains every
// t >= begin.
func (r *Range) TsecInRange(t float64) bool {
	return t >= r.begin && (r.end.IsOpen() || t <= r.end.t)
}

// EventInRange resolves evt with src and calls TsecInRange. An event the
// source cannot resolve is never in range.
func (r *Range) EventInRange(src TimeSource, evt any) bool {
	t, err := src.EventTime(evt)
	if err != nil {
		r.env.log.Warn("could not resolve event time", "err", err)

		return false
	}

	return r.TsecInRange(t)
}

// Compare orders ranges by begin ascending. For equal begins an open end sorts
// first, then the larger bounded end.
func Compare(a, b *Range) int {
	if c := cmp.Compare(a.begin, b.begin); c != 0 {
		return c
	}

	switch {
	case a.end.IsOpen() && b.end.IsOpen():
		return 0
	case a.end.IsOpen():
		return -1
	case b.end.IsOpen():
		return 1
	}

	return cmp.Compare(b.end.t, a.end.t)
}

func (r *Range) compact() {
	for vnum, st := range r.status {
		if st == Marked {
			delete(r.versions, vnum)
			delete(r.status, vnum)
		}
	}

	clear(r.cascaded)
}

func (r *Range) validate() []error {
	var errs []error

	if !r.end.IsOpen() && r.begin >= r.end.t {
		errs = append(errs, fmt.Errorf("%w: %s begin %v >= end %v", ErrInvalidRange, r.Key(), r.begin, r.end.t))
	}

	for vnum, v := range r.versions {
		if vnum <= 0 || vnum > MaxVNum || v.vnum != vnum {
			errs = append(errs, fmt.Errorf("%w: %s holds %d as %d", ErrInvalidVersion, r.Key(), v.vnum, vnum))
		}
	}

	return errs
}

func (r *Range) save(g Group) error {
	if err := g.Put("begin", r.begin); err != nil {
		return err
	}

	var end any = OpenEnd
	if !r.end.IsOpen() {
		end = r.end.t
	}

	if err := g.Put("end", end); err != nil {
		return err
	}

	if err := g.Put("range", r.Key()); err != nil {
		return err
	}

	if err := g.Put("versdef", int64(r.vnumDef)); err != nil {
		return err
	}

	for _, vnum := range slices.Sorted(maps.Keys(r.versions)) {
		if err := r.saveVersion(g, vnum); err != nil {
			return err
		}
	}

	return r.saveBase(g)
}

func (r *Range) saveVersion(g Group, vnum int) error {
	name := VersionName(vnum)

	if r.status[vnum] == Marked {
		return g.Delete(name)
	}

	sub, err := g.Subgroup(name)
	if err != nil {
		return err
	}

	if err := r.versions[vnum].save(sub); err != nil {
		return fmt.Errorf("version %d: %w", vnum, err)
	}

	return nil
}

// loadRange reconstructs a Range from a group holding begin and end leaves. It
// returns nil if the group is not a range.
func loadRange(e *env, g Group) (*Range, error) {
	entries, err := g.Entries()
	if err != nil {
		return nil, err
	}

	leaves, groups := leavesOf(entries)

	begin, okb := leafFloat(leaves["begin"])
	end, oke := endLeaf(leaves["end"])

	if !okb || !oke {
		e.log.Warn("skipping group without begin/end", "group", g.Name())

		return nil, nil //nolint:nilnil
	}

	r := newRange(e, begin, end)

	if key := r.Key(); key != g.Name() {
		e.log.Warn("range group name differs from its key", "group", g.Name(), "range", key)
	}

	r.loadLeaves(leaves)

	for _, sub := range groups {
		if err := r.loadGroup(sub); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func endLeaf(v any) (End, bool) {
	if s, ok := leafString(v); ok {
		end, err := ParseEnd(s)

		return end, err == nil
	}

	t, ok := leafFloat(v)

	return Until(t), ok
}

func (r *Range) loadLeaves(leaves map[string]any) {
	for _, name := range slices.Sorted(maps.Keys(leaves)) {
		switch name {
		case "begin", "end", "range":
		case "versdef":
			n, ok := leafInt(leaves[name])
			if !ok {
				r.env.log.Warn("skipping bad default version", "range", r.Key(), "versdef", leaves[name])

				continue
			}

			r.vnumDef = int(n)
		default:
			r.env.log.Warn("skipping unrecognised leaf in range", "range", r.Key(), "leaf", name)
		}
	}
}

func (r *Range) loadGroup(e Entry) error {
	if ok, err := r.loadBase(e); ok {
		return err
	}

	v := newVersion(r.env, 0, 0)
	if err := v.load(e.Group); err != nil {
		return err
	}

	if v.vnum <= 0 {
		r.env.log.Warn("skipping group without a version number", "range", r.Key(), "group", e.Name)

		return nil
	}

	r.versions[v.vnum] = v
	r.status[v.vnum] = Live

	return nil
}
