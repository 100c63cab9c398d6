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

// Group is a named node in a hierarchical container file. It holds typed
// leaves and nested groups in one namespace.
type Group interface {
	// Name is this group's name within its parent ("" for the root).
	Name() string

	// Subgroup returns the named child group, creating it when the container
	// is being written.
	Subgroup(name string) (Group, error)

	// Delete removes the named child group or leaf. Deleting something
	// absent is not an error.
	Delete(name string) error

	// Put stores a leaf. value must be a string, int64, float64 or *Array.
	Put(name string, value any) error

	// Entries lists the direct children, sorted by name. A leaf that cannot be
	// decoded is listed with an UnreadableLeaf value rather than failing.
	Entries() ([]Entry, error)
}

// Entry is one child of a Group: exactly one of Group and Value is set.
type Entry struct {
	Name  string
	Group Group
	Value any
}

// UnreadableLeaf is the Value of an Entry whose stored bytes a Container could
// not decode, such as a leaf kind written by a newer version. Loaders skip it
// with a warning.
type UnreadableLeaf struct {
	Err error
}

func (u UnreadableLeaf) Error() string { return u.Err.Error() }

func (u UnreadableLeaf) Unwrap() error { return u.Err }

// IsGroup reports whether the entry is a nested group.
func (e Entry) IsGroup() bool { return e.Group != nil }

// Container opens hierarchical container files. Write must replace the file at
// path atomically: readers see either the old tree or the complete new one.
type Container interface {
	Write(path string, fn func(root Group) error) error
	Read(path string, fn func(root Group) error) error
}

// leafValue normalises parameter and attribute values to the kinds a Group
// can hold.
func leafValue(v any) (any, error) {
	switch val := v.(type) {
	case string, int64, float64, *Array:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case bool:
		if val {
			return int64(1), nil
		}

		return int64(0), nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func leafString(v any) (string, bool) {
	s, ok := v.(string)

	return s, ok
}

func leafFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	}

	return 0, false
}

func leafInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return int64(val), true
		}
	}

	return 0, false
}

// leavesOf splits entries into leaf values by name and groups in name order.
func leavesOf(entries []Entry) (map[string]any, []Entry) {
	leaves := make(map[string]any, len(entries))

	var groups []Entry

	for _, e := range entries {
		if e.IsGroup() {
			groups = append(groups, e)
		} else {
			leaves[e.Name] = e.Value
		}
	}

	return leaves, groups
}
