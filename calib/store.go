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
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// DetNameSeparator joins detector type and id in a detector name.
const DetNameSeparator = "-"

// Store is the calibration repository of one physical detector: calibration
// types, their ranges and versions, plus detector metadata. A Store maps to
// one container file.
type Store struct {
	Base

	path        string
	detType     string
	detID       string
	tscfile     float64
	predecessor string
	successor   string
	ctypes      map[CType]*Type
	status      map[CType]Status
}

func newStore(e *env, path string) *Store {
	return &Store{
		Base:   newBase(e),
		path:   path,
		ctypes: make(map[CType]*Type),
		status: make(map[CType]Status),
	}
}

// Path returns the default Save/Load path.
func (s *Store) Path() string { return s.path }

// SetPath sets the default Save/Load path.
func (s *Store) SetPath(path string) { s.path = path }

// DetType returns the detector type, eg. "epix100a".
func (s *Store) DetType() string { return s.detType }

// DetID returns the detector id fingerprint.
func (s *Store) DetID() string { return s.detID }

// SetDetType sets the detector type, which may not contain the detector name
// separator.
func (s *Store) SetDetType(t string) error {
	if strings.Contains(t, DetNameSeparator) {
		return fmt.Errorf("%w: type %q contains %q", ErrInvalidDetName, t, DetNameSeparator)
	}

	s.detType = t

	return nil
}

// SetDetID sets the detector id.
func (s *Store) SetDetID(id string) { s.detID = id }

// DetName returns "<type>-<id>", or "" unless both are set.
func (s *Store) DetName() string {
	if s.detType == "" || s.detID == "" {
		return ""
	}

	return s.detType + DetNameSeparator + s.detID
}

// SetDetName splits name at its first separator into type and id. Since types
// never contain the separator, ids that do round-trip unchanged.
func (s *Store) SetDetName(name string) error {
	t, id, ok := strings.Cut(name, DetNameSeparator)
	if !ok || t == "" || id == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDetName, name)
	}

	s.detType, s.detID = t, id

	return nil
}

// TSCFile returns the file creation time in seconds since the epoch.
func (s *Store) TSCFile() float64 { return s.tscfile }

// SetTSCFile sets the file creation time.
func (s *Store) SetTSCFile(t float64) { s.tscfile = t }

// Predecessor returns the detector name this detector replaced, if any.
func (s *Store) Predecessor() string { return s.predecessor }

// SetPredecessor links to the detector this one replaced.
func (s *Store) SetPredecessor(detname string) { s.predecessor = detname }

// Successor returns the detector name that replaced this one, if any.
func (s *Store) Successor() string { return s.successor }

// SetSuccessor links to the detector that replaced this one.
func (s *Store) SetSuccessor(detname string) { s.successor = detname }

// CTypes returns every calibration type, including marked ones, by name.
func (s *Store) CTypes() []*Type {
	out := make([]*Type, 0, len(s.ctypes))
	for _, ct := range slices.Sorted(maps.Keys(s.ctypes)) {
		out = append(out, s.ctypes[ct])
	}

	return out
}

// IsMarked reports whether the calibration type is marked for deletion.
func (s *Store) IsMarked(ct CType) bool { return s.status[ct] == Marked }

// CTypeObj returns the live Type for ct, or nil.
func (s *Store) CTypeObj(ct CType) *Type {
	if s.status[ct] != Live {
		return nil
	}

	return s.ctypes[ct]
}

// AddCType returns the Type for ct, creating it if needed. ct must be in the
// configured table. Adding a marked type revives it.
func (s *Store) AddCType(ct CType, cmt string) (*Type, error) {
	_, dt, err := s.env.ctypes.Lookup(string(ct))
	if err != nil {
		return nil, err
	}

	if err := s.env.checkName(string(ct)); err != nil {
		return nil, err
	}

	if t, ok := s.ctypes[ct]; ok {
		if s.status[ct] == Marked {
			s.status[ct] = Live
			t.revive()
			s.AddHistory("revive ctype " + string(ct))
		}

		return t, nil
	}

	t := newType(s.env, ct, dt)
	s.ctypes[ct] = t
	s.status[ct] = Live

	if cmt != "" {
		s.AddHistory(fmt.Sprintf("add ctype %s: %s", ct, cmt))
	}

	return t, nil
}

// MarkCType marks the Type and everything under it for deletion, returning ct,
// or "" if there is no such type.
func (s *Store) MarkCType(ct CType, cmt string) CType {
	t, ok := s.ctypes[ct]
	if !ok {
		s.env.log.Warn("ctype to mark not found", "detname", s.DetName(), "ctype", ct)

		return ""
	}

	s.status[ct] = Marked
	t.markAll()
	s.AddHistory(markRecord("ctype "+string(ct), cmt))

	return ct
}

// Validate checks the invariants of the whole tree, returning every violation.
func (s *Store) Validate() error {
	var merr *multierror.Error

	for _, t := range s.ctypes {
		merr = multierror.Append(merr, t.validate()...)
	}

	return merr.ErrorOrNil()
}

// Save writes the whole tree to path, or to Path() if path is empty. Marked
// entities are left out and then dropped from memory.
func (s *Store) Save(path string) error {
	if path == "" {
		path = s.path
	}

	if path == "" {
		return fmt.Errorf("%w: no path to save store %q to", ErrInvalidConfig, s.DetName())
	}

	if err := s.Validate(); err != nil {
		return err
	}

	if err := s.env.backend.Write(path, s.save); err != nil {
		return err
	}

	s.compact()
	s.path = path
	s.env.log.Info("saved store", "detname", s.DetName(), "path", path)

	return nil
}

func (s *Store) compact() {
	for ct, st := range s.status {
		if st == Marked {
			delete(s.ctypes, ct)
			delete(s.status, ct)

			continue
		}

		s.ctypes[ct].compact()
	}
}

func (s *Store) save(root Group) error {
	for name, v := range map[string]string{
		"dettype":     s.detType,
		"detid":       s.detID,
		"detname":     s.DetName(),
		"predecessor": s.predecessor,
		"successor":   s.successor,
	} {
		if err := putString(root, name, v); err != nil {
			return err
		}
	}

	if s.tscfile != 0 {
		if err := root.Put("tscfile", s.tscfile); err != nil {
			return err
		}
	}

	for _, ct := range slices.Sorted(maps.Keys(s.ctypes)) {
		if err := s.saveCType(root, ct); err != nil {
			return err
		}
	}

	return s.saveBase(root)
}

func putString(g Group, name, v string) error {
	if v == "" {
		return g.Delete(name)
	}

	return g.Put(name, v)
}

func (s *Store) saveCType(root Group, ct CType) error {
	if s.status[ct] == Marked {
		return root.Delete(string(ct))
	}

	sub, err := root.Subgroup(string(ct))
	if err != nil {
		return err
	}

	if err := s.ctypes[ct].save(sub); err != nil {
		return fmt.Errorf("ctype %s: %w", ct, err)
	}

	return nil
}

// Load replaces the in-memory tree with the one saved at path, or at Path() if
// path is empty. Unrecognised content is logged and skipped.
func (s *Store) Load(path string) error {
	if path == "" {
		path = s.path
	}

	if path == "" {
		return fmt.Errorf("%w: no path to load store from", ErrInvalidConfig)
	}

	fresh := newStore(s.env, path)

	if err := s.env.backend.Read(path, fresh.load); err != nil {
		return err
	}

	*s = *fresh

	s.env.log.Debug("loaded store", "detname", s.DetName(), "path", path)

	return nil
}

func (s *Store) load(root Group) error {
	entries, err := root.Entries()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsGroup() {
			if err := s.loadGroup(e); err != nil {
				return err
			}

			continue
		}

		s.loadLeaf(e)
	}

	return nil
}

func (s *Store) loadLeaf(e Entry) {
	str, isStr := leafString(e.Value)

	switch {
	case e.Name == "dettype" && isStr:
		s.detType = str
	case e.Name == "detid" && isStr:
		s.detID = str
	case e.Name == "predecessor" && isStr:
		s.predecessor = str
	case e.Name == "successor" && isStr:
		s.successor = str
	case e.Name == "detname" && isStr:
	case e.Name == "tscfile":
		if t, ok := leafFloat(e.Value); ok {
			s.tscfile = t

			return
		}

		fallthrough
	default:
		s.env.log.Warn("skipping unrecognised leaf in store", "path", s.path, "leaf", e.Name)
	}
}

func (s *Store) loadGroup(e Entry) error {
	if ok, err := s.loadBase(e); ok {
		return err
	}

	ct, dt, err := s.env.ctypes.Lookup(e.Name)
	if err != nil {
		s.env.log.Warn("loading calibration type missing from the table", "ctype", e.Name)
	}

	t := newType(s.env, ct, dt)
	if err := t.load(e.Group); err != nil {
		return fmt.Errorf("ctype %s: %w", ct, err)
	}

	s.ctypes[ct] = t
	s.status[ct] = Live

	return nil
}

// Dump writes an indented description of the whole tree to w.
func (s *Store) Dump(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("store %s path=%s tscfile=%.6f predecessor=%q successor=%q\n",
		s.DetName(), s.path, s.tscfile, s.predecessor, s.successor)

	for _, t := range s.CTypes() {
		ew.printf("  ctype %s dtype=%s%s\n", t.ctype, t.dtype, markedSuffix(s.IsMarked(t.ctype)))

		for _, r := range t.Ranges() {
			ew.printf("    range %s versdef=%d%s\n", r.Key(), r.VNumDef(), markedSuffix(t.IsMarked(r.Key())))

			for _, v := range r.Versions() {
				ew.printf("      %s tsprod=%.6f %s%s\n", VersionName(v.vnum), v.tsprod,
					v.Describe(), markedSuffix(r.IsMarked(v.vnum)))
			}
		}
	}

	return ew.err
}

func markedSuffix(marked bool) string {
	if marked {
		return " (marked)"
	}

	return ""
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, a ...any) {
	if e.err != nil {
		return
	}

	_, e.err = fmt.Fprintf(e.w, format, a...)
}
