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
	"maps"
	"slices"
)

// Type holds the validity ranges of one calibration type.
type Type struct {
	Base

	ctype  CType
	dtype  DType
	ranges   map[string]*Range
	status   map[string]Status
	cascaded map[string]struct{}
}

func newType(e *env, ct CType, dt DType) *Type {
	return &Type{
		Base:     newBase(e),
		ctype:    ct,
		dtype:    dt,
		ranges:   make(map[string]*Range),
		status:   make(map[string]Status),
		cascaded: make(map[string]struct{}),
	}
}

// CType returns the calibration type name.
func (t *Type) CType() CType { return t.ctype }

// DType returns the storage dtype of this calibration type.
func (t *Type) DType() DType { return t.dtype }

// Ranges returns every range, including marked ones, in Compare order.
func (t *Type) Ranges() []*Range {
	out := slices.Collect(maps.Values(t.ranges))
	slices.SortStableFunc(out, Compare)

	return out
}

// IsMarked reports whether the range with the given key is marked for
// deletion.
func (t *Type) IsMarked(key string) bool { return t.status[key] == Marked }

// Range returns the live range for (begin, end), or nil.
func (t *Type) Range(begin float64, end End) *Range {
	return t.RangeForKey(Key(begin, end))
}

// RangeForKey returns the live range with the given key, or nil.
func (t *Type) RangeForKey(key string) *Range {
	if t.status[key] != Live {
		return nil
	}

	return t.ranges[key]
}

// AddRange returns the range for (begin, end), creating it if needed. Adding
// a marked range revives it and its versions.
func (t *Type) AddRange(begin float64, end End, cmt string) (*Range, error) {
	if !end.IsOpen() && begin >= end.t {
		return nil, fmt.Errorf("%w: begin %v >= end %v", ErrInvalidRange, begin, end.t)
	}

	key := Key(begin, end)
	if err := t.env.checkName(key); err != nil {
		return nil, err
	}

	if r, ok := t.ranges[key]; ok {
		if t.status[key] == Marked {
			t.status[key] = Live
			r.revive()
			t.AddHistory("revive range " + key)
		}

		return r, nil
	}

	r := newRange(t.env, begin, end)
	t.ranges[key] = r
	t.status[key] = Live

	if cmt != "" {
		t.AddHistory(fmt.Sprintf("add range %s: %s", key, cmt))
	}

	return r, nil
}

// MarkRange marks the range for (begin, end) and all its versions for deletion.
// It returns the range key, or "" if there is no such range.
func (t *Type) MarkRange(begin float64, end End, cmt string) string {
	return t.MarkRangeForKey(Key(begin, end), cmt)
}

// MarkRangeForKey is MarkRange by key.
func (t *Type) MarkRangeForKey(key string, cmt string) string {
	r, ok := t.ranges[key]
	if !ok {
		t.env.log.Warn("range to mark not found", "ctype", t.ctype, "range", key)

		return ""
	}

	t.status[key] = Marked
	delete(t.cascaded, key)
	r.markAll()
	t.AddHistory(markRecord("range "+key, cmt))

	return key
}

// markAll marks every live range and its versions, remembering the ranges so
// revive restores only those.
func (t *Type) markAll() {
	for key, r := range t.ranges {
		if t.status[key] == Live {
			t.status[key] = Marked
			t.cascaded[key] = struct{}{}
			r.markAll()
		}
	}
}

func (t *Type) revive() {
	for key := range t.cascaded {
		if r, ok := t.ranges[key]; ok {
			t.status[key] = Live
			r.revive()
		}
	}

	clear(t.cascaded)
}

// RangeForTsec returns the live range containing tsec, scanning ranges in
// reverse Compare order so later and more specific ranges win. It returns nil
// if none contains tsec.
func (t *Type) RangeForTsec(tsec float64) *Range {
	ranges := t.Ranges()

	for i := len(ranges) - 1; i >= 0; i-- {
		r := ranges[i]
		if t.status[r.Key()] == Live && r.TsecInRange(tsec) {
			return r
		}
	}

	return nil
}

// RangeForEvent resolves evt with src and calls RangeForTsec.
func (t *Type) RangeForEvent(src TimeSource, evt any) *Range {
	tsec, err := src.EventTime(evt)
	if err != nil {
		t.env.log.Warn("could not resolve event time", "ctype", t.ctype, "err", err)

		return nil
	}

	return t.RangeForTsec(tsec)
}

func (t *Type) compact() {
	for key, st := range t.status {
		if st == Marked {
			delete(t.ranges, key)
			delete(t.status, key)

			continue
		}

		t.ranges[key].compact()
	}

	clear(t.cascaded)
}

func (t *Type) validate() []error {
	var errs []error

	for key, r := range t.ranges {
		if rk := r.Key(); rk != key {
			errs = append(errs, fmt.Errorf("%w: %s held as %s", ErrInvalidRange, rk, key))
		}

		for _, err := range r.validate() {
			errs = append(errs, fmt.Errorf("%s: %w", t.ctype, err))
		}
	}

	return errs
}

func (t *Type) save(g Group) error {
	if err := g.Put("ctype", string(t.ctype)); err != nil {
		return err
	}

	for _, key := range slices.Sorted(maps.Keys(t.ranges)) {
		if err := t.saveRange(g, key); err != nil {
			return err
		}
	}

	return t.saveBase(g)
}

func (t *Type) saveRange(g Group, key string) error {
	if t.status[key] == Marked {
		return g.Delete(key)
	}

	sub, err := g.Subgroup(key)
	if err != nil {
		return err
	}

	if err := t.ranges[key].save(sub); err != nil {
		return fmt.Errorf("range %s: %w", key, err)
	}

	return nil
}

func (t *Type) load(g Group) error {
	entries, err := g.Entries()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if !e.IsGroup() {
			if _, isStr := leafString(e.Value); e.Name != "ctype" || !isStr {
				t.env.log.Warn("skipping unrecognised leaf in ctype", "ctype", t.ctype, "leaf", e.Name)
			}

			continue
		}

		if err := t.loadGroup(e); err != nil {
			return err
		}
	}

	return nil
}

func (t *Type) loadGroup(e Entry) error {
	if ok, err := t.loadBase(e); ok {
		return err
	}

	r, err := loadRange(t.env, e.Group)
	if err != nil || r == nil {
		return err
	}

	key := r.Key()
	t.ranges[key] = r
	t.status[key] = Live

	return nil
}
