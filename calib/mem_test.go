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
	"maps"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
)

type memGroup struct {
	name   string
	leaves map[string]any
	groups map[string]*memGroup
}

func newMemGroup(name string) *memGroup {
	return &memGroup{name: name, leaves: map[string]any{}, groups: map[string]*memGroup{}}
}

func (g *memGroup) Name() string { return g.name }

func (g *memGroup) Subgroup(name string) (Group, error) {
	sub, ok := g.groups[name]
	if !ok {
		sub = newMemGroup(name)
		g.groups[name] = sub
	}

	return sub, nil
}

func (g *memGroup) Delete(name string) error {
	delete(g.groups, name)
	delete(g.leaves, name)

	return nil
}

func (g *memGroup) Put(name string, value any) error {
	v, err := leafValue(value)
	if err != nil {
		return err
	}

	g.leaves[name] = v

	return nil
}

func (g *memGroup) Entries() ([]Entry, error) {
	var out []Entry

	for _, name := range slices.Sorted(maps.Keys(g.leaves)) {
		out = append(out, Entry{Name: name, Value: g.leaves[name]})
	}

	for _, name := range slices.Sorted(maps.Keys(g.groups)) {
		out = append(out, Entry{Name: name, Group: g.groups[name]})
	}

	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

type memContainer struct {
	files map[string]*memGroup
}

func newMemContainer() *memContainer {
	return &memContainer{files: map[string]*memGroup{}}
}

func (m *memContainer) Write(path string, fn func(root Group) error) error {
	root := newMemGroup("")
	if err := fn(root); err != nil {
		return err
	}

	m.files[path] = root

	return nil
}

func (m *memContainer) Read(path string, fn func(root Group) error) error {
	root, ok := m.files[path]
	if !ok {
		return os.ErrNotExist
	}

	return fn(root)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

// newTestFactory returns a Factory on an in-memory container whose clock
// never advances, and the warnings it logs.
func newTestFactory(t *testing.T) (*Factory, *memContainer, *[]*log15.Record) {
	t.Helper()

	mc := newMemContainer()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}

	var logged []*log15.Record

	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(log15.LvlWarn, log15.FuncHandler(func(r *log15.Record) error {
		logged = append(logged, r)

		return nil
	})))

	f, err := NewFactory(Config{Backend: mc, Logger: logger, Now: clock.now})
	if err != nil {
		t.Fatal(err)
	}

	return f, mc, &logged
}

func mustArray(t *testing.T, dt DType, shape []int, v float64) *Array {
	t.Helper()

	a, err := Fill(dt, shape, v)
	if err != nil {
		t.Fatal(err)
	}

	return a
}
