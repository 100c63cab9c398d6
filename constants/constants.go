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

// Package constants provides the operations tools perform on detector
// calibration stores: adding, fetching and retiring constants, following
// predecessor links, and publishing stores to the central repository.
package constants

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/calibstore/calib"
	"github.com/wtsi-hgi/calibstore/detector"
)

const (
	// ErrNotFound is returned when no constants match a request.
	ErrNotFound = calib.Error("no constants found")

	// ErrLinkCycle is returned when predecessor links loop.
	ErrLinkCycle = calib.Error("detector links form a cycle")
)

// Manager performs constant operations on the stores under a calibration root.
type Manager struct {
	factory *calib.Factory
	paths   detector.Paths
	log     log15.Logger
}

// New returns a Manager making stores with f at the locations given by paths.
func New(f *calib.Factory, paths detector.Paths) *Manager {
	return &Manager{factory: f, paths: paths, log: f.Logger()}
}

// Paths returns the configured path convention.
func (m *Manager) Paths() detector.Paths { return m.paths }

// CTypes returns the calibration types stores are made with.
func (m *Manager) CTypes() calib.CTypeTable { return m.factory.CTypes() }

// Exists reports whether id has a store under the calibration root.
func (m *Manager) Exists(id detector.Identity) (bool, error) {
	path, err := m.paths.File(id)
	if err != nil {
		return false, err
	}

	return fileExists(path)
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}

	return false, err
}

// Open loads id's store, or returns a new empty one for id if it has none.
func (m *Manager) Open(id detector.Identity) (*calib.Store, error) {
	path, err := m.paths.File(id)
	if err != nil {
		return nil, err
	}

	exists, err := fileExists(path)
	if err != nil {
		return nil, err
	}

	if exists {
		return m.factory.Load(path)
	}

	s := m.factory.NewStore(path)
	if err := id.Apply(s); err != nil {
		return nil, err
	}

	return s, nil
}

// Load loads id's existing store, returning ErrNotFound if it has none.
func (m *Manager) Load(id detector.Identity) (*calib.Store, error) {
	exists, err := m.Exists(id)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("%w: no store for %s", ErrNotFound, id.Name())
	}

	path, err := m.paths.File(id)
	if err != nil {
		return nil, err
	}

	return m.factory.Load(path)
}

// LoadName is Load by detector name.
func (m *Manager) LoadName(detname string) (*calib.Store, error) {
	id, err := detector.ParseName(detname)
	if err != nil {
		return nil, err
	}

	return m.Load(id)
}

// AddRequest describes constants to add.
type AddRequest struct {
	Detector detector.Identity
	CType    calib.CType

	// Time is the event time the constants apply from. End bounds the new
	// range; the zero value leaves it open.
	Time float64
	End  calib.End

	// Data or, for text calibration types, Text is the payload.
	Data *calib.Array
	Text string

	// VNum picks the version number; 0 means the next one.
	VNum int

	Comment     string
	Predecessor string
	Successor   string
}

// Added describes where constants were stored.
type Added struct {
	Path    string
	Range   *calib.Range
	Version *calib.Version
}

// Add stores the constants in the detector's store, creating the store and
// its directory if needed, and saves it.
func (m *Manager) Add(req AddRequest) (*Added, error) {
	s, err := m.Open(req.Detector)
	if err != nil {
		return nil, err
	}

	if s.TSCFile() == 0 {
		s.SetTSCFile(req.Time)
	}

	if req.Predecessor != "" {
		s.SetPredecessor(req.Predecessor)
	}

	if req.Successor != "" {
		s.SetSuccessor(req.Successor)
	}

	ct, err := s.AddCType(req.CType, "")
	if err != nil {
		return nil, err
	}

	r, err := ct.AddRange(req.Time, req.End, "")
	if err != nil {
		return nil, err
	}

	v, err := addVersion(ct, r, req)
	if err != nil {
		return nil, err
	}

	r.AddHistory(fmt.Sprintf("add constants vers=%d: %s", v.VNum(), commentOr(req.Comment)))

	if _, err := m.paths.MakeDir(req.Detector); err != nil {
		return nil, err
	}

	if err := s.Save(""); err != nil {
		return nil, err
	}

	m.log.Info("added constants", "detname", s.DetName(), "ctype", req.CType,
		"range", r.Key(), "vnum", v.VNum())

	return &Added{Path: s.Path(), Range: r, Version: v}, nil
}

func addVersion(ct *calib.Type, r *calib.Range, req AddRequest) (*calib.Version, error) {
	if ct.DType() == calib.DTypeText {
		return r.AddTextVersion(req.VNum, 0, req.Text, "")
	}

	if req.Data == nil {
		return nil, fmt.Errorf("%w: %s needs array data", calib.ErrInvalidArray, req.CType)
	}

	if req.Data.DType != ct.DType() {
		a, err := calib.NewArray(ct.DType(), req.Data.Shape, req.Data.Values)
		if err != nil {
			return nil, err
		}

		req.Data = a
	}

	return r.AddVersion(req.VNum, 0, req.Data, "")
}

func commentOr(cmt string) string {
	if cmt == "" {
		return "no comment"
	}

	return cmt
}

// Query selects constants by detector, calibration type and time. VNum 0
// selects the range's default version.
type Query struct {
	Detector detector.Identity
	CType    calib.CType
	Time     float64
	VNum     int
}

// Found is the result of Get.
type Found struct {
	Store   *calib.Store
	Range   *calib.Range
	Version *calib.Version
}

// Get returns the constants valid at q.Time. It returns an error wrapping
// ErrNotFound if there are none, as distinct from IO and configuration errors.
func (m *Manager) Get(q Query) (*Found, error) {
	s, err := m.Load(q.Detector)
	if err != nil {
		return nil, err
	}

	return Lookup(s, q)
}

// Lookup is Get on an already loaded store.
func Lookup(s *calib.Store, q Query) (*Found, error) {
	ct := s.CTypeObj(q.CType)
	if ct == nil {
		return nil, fmt.Errorf("%w: %s has no %s", ErrNotFound, s.DetName(), q.CType)
	}

	r := ct.RangeForTsec(q.Time)
	if r == nil {
		return nil, fmt.Errorf("%w: %s %s has no range for time %v", ErrNotFound, s.DetName(), q.CType, q.Time)
	}

	v := r.Version(q.VNum)
	if v == nil {
		return nil, fmt.Errorf("%w: %s %s range %s has no version %d", ErrNotFound,
			s.DetName(), q.CType, r.Key(), q.VNum)
	}

	return &Found{Store: s, Range: r, Version: v}, nil
}

// Delete marks the version (the last one for vnum 0) of the range valid at
// tsec, saves the store and returns the marked version number.
func (m *Manager) Delete(q Query, cmt string) (int, error) {
	s, err := m.Load(q.Detector)
	if err != nil {
		return 0, err
	}

	ct := s.CTypeObj(q.CType)
	if ct == nil {
		return 0, fmt.Errorf("%w: %s has no %s", ErrNotFound, s.DetName(), q.CType)
	}

	r := ct.RangeForTsec(q.Time)
	if r == nil {
		return 0, fmt.Errorf("%w: %s %s has no range for time %v", ErrNotFound, s.DetName(), q.CType, q.Time)
	}

	vnum := r.MarkVersion(q.VNum, cmt)
	if vnum == 0 {
		return 0, fmt.Errorf("%w: %s %s range %s has no version %d", ErrNotFound,
			s.DetName(), q.CType, r.Key(), q.VNum)
	}

	if err := s.Save(""); err != nil {
		return 0, err
	}

	m.log.Info("marked constants", "detname", s.DetName(), "ctype", q.CType, "range", r.Key(), "vnum", vnum)

	return vnum, nil
}

// MarkRange marks the range with the given key, and all its versions, saves
// the store, and returns the number of versions retired.
func (m *Manager) MarkRange(id detector.Identity, ct calib.CType, key, cmt string) (int, error) {
	s, t, err := m.loadType(id, ct)
	if err != nil {
		return 0, err
	}

	r := t.RangeForKey(key)
	if r == nil {
		return 0, fmt.Errorf("%w: %s %s has no range %s", ErrNotFound, s.DetName(), ct, key)
	}

	n := len(r.Versions())

	t.MarkRangeForKey(key, cmt)

	if err := s.Save(""); err != nil {
		return 0, err
	}

	m.log.Info("marked range", "detname", s.DetName(), "ctype", ct, "range", key, "versions", n)

	return n, nil
}

// MarkCType marks a whole calibration type of id's store and saves it.
func (m *Manager) MarkCType(id detector.Identity, ct calib.CType, cmt string) error {
	s, _, err := m.loadType(id, ct)
	if err != nil {
		return err
	}

	s.MarkCType(ct, cmt)

	if err := s.Save(""); err != nil {
		return err
	}

	m.log.Info("marked ctype", "detname", s.DetName(), "ctype", ct)

	return nil
}

// SetDefault makes q.VNum the default version of the range valid at q.Time
// and saves the store. VNum 0 clears the override.
func (m *Manager) SetDefault(q Query) error {
	s, t, err := m.loadType(q.Detector, q.CType)
	if err != nil {
		return err
	}

	r := t.RangeForTsec(q.Time)
	if r == nil {
		return fmt.Errorf("%w: %s %s has no range for time %v", ErrNotFound, s.DetName(), q.CType, q.Time)
	}

	if !r.SetVNumDef(q.VNum) {
		return fmt.Errorf("%w: %s %s range %s has no version %d", ErrNotFound,
			s.DetName(), q.CType, r.Key(), q.VNum)
	}

	return s.Save("")
}

func (m *Manager) loadType(id detector.Identity, ct calib.CType) (*calib.Store, *calib.Type, error) {
	s, err := m.Load(id)
	if err != nil {
		return nil, nil, err
	}

	t := s.CTypeObj(ct)
	if t == nil {
		return nil, nil, fmt.Errorf("%w: %s has no %s", ErrNotFound, s.DetName(), ct)
	}

	return s, t, nil
}

// Predecessor loads the store s replaced, or returns nil if it has none.
func (m *Manager) Predecessor(s *calib.Store) (*calib.Store, error) {
	if s.Predecessor() == "" {
		return nil, nil //nolint:nilnil
	}

	return m.LoadName(s.Predecessor())
}

// Successor loads the store that replaced s, or returns nil if it has none.
func (m *Manager) Successor(s *calib.Store) (*calib.Store, error) {
	if s.Successor() == "" {
		return nil, nil //nolint:nilnil
	}

	return m.LoadName(s.Successor())
}

// Lineage returns s followed by its predecessors, oldest last.
func (m *Manager) Lineage(s *calib.Store) ([]*calib.Store, error) {
	seen := map[string]bool{s.DetName(): true}
	out := []*calib.Store{s}

	for {
		p, err := m.Predecessor(out[len(out)-1])
		if err != nil || p == nil {
			return out, err
		}

		if seen[p.DetName()] {
			return out, fmt.Errorf("%w: at %s", ErrLinkCycle, p.DetName())
		}

		seen[p.DetName()] = true
		out = append(out, p)
	}
}

// List returns the identities of every store under the calibration root.
func (m *Manager) List() ([]detector.Identity, error) {
	if strings.TrimSpace(m.paths.CalibRoot) == "" {
		return nil, fmt.Errorf("%w: no calib root directory", calib.ErrInvalidConfig)
	}

	suffix := "." + m.paths.Extension()

	matches, err := filepath.Glob(filepath.Join(m.paths.CalibRoot, "*", "*"+suffix))
	if err != nil {
		return nil, err
	}

	var ids []detector.Identity

	for _, path := range matches {
		id, err := detector.ParseName(strings.TrimSuffix(filepath.Base(path), suffix))
		if err != nil || id.Type != filepath.Base(filepath.Dir(path)) {
			m.log.Warn("skipping file not named for its detector", "path", path)

			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// LoadAll loads every store under the calibration root. Stores that fail to
// load are left out and their errors returned together.
func (m *Manager) LoadAll() ([]*calib.Store, error) {
	ids, err := m.List()
	if err != nil {
		return nil, err
	}

	var (
		stores []*calib.Store
		merr   *multierror.Error
	)

	for _, id := range ids {
		s, err := m.Load(id)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", id.Name(), err))

			continue
		}

		stores = append(stores, s)
	}

	return stores, merr.ErrorOrNil()
}

// Publish copies id's store into the repository root, replacing any earlier
// copy atomically, and returns the published path.
func (m *Manager) Publish(id detector.Identity) (string, error) {
	src, err := m.paths.File(id)
	if err != nil {
		return "", err
	}

	if _, err = m.Load(id); err != nil {
		return "", err
	}

	dir, err := m.paths.MakeRepoDir(id)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(dir, m.paths.FileName(id))

	if err := copyFile(src, dst); err != nil {
		return "", err
	}

	m.log.Info("published store", "detname", id.Name(), "path", dst)

	return dst, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer in.Close()

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+"."+uuid.NewString()+".tmp")

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	if err = out.Sync(); err != nil {
		_ = out.Close()

		return err
	}

	if err = out.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, dst)
}
