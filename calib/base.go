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
	"bufio"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const historyTimeFormat = "2006-01-02T15:04:05.000000"

// Record is one history entry.
type Record struct {
	Time time.Time
	Text string
}

// Base gives an entity a parameter bag and an append-only history log. It is
// embedded in Store, Type, Range and Version.
type Base struct {
	env  *env
	pars map[string]any
	hist map[int64]string
	last int64
}

func newBase(e *env) Base {
	return Base{env: e, pars: make(map[string]any), hist: make(map[int64]string)}
}

// AddPar sets a parameter. Values must be strings, integers, floats, bools or
// *Array.
func (b *Base) AddPar(name string, v any) error {
	lv, err := leafValue(v)
	if err != nil {
		return err
	}

	b.pars[name] = lv

	return nil
}

// Par returns the named parameter.
func (b *Base) Par(name string) (any, bool) {
	v, ok := b.pars[name]

	return v, ok
}

// Pars returns a copy of all parameters.
func (b *Base) Pars() map[string]any { return maps.Clone(b.pars) }

// DelPar removes a parameter.
func (b *Base) DelPar(name string) { delete(b.pars, name) }

// ClearPars removes every parameter.
func (b *Base) ClearPars() { clear(b.pars) }

// AddHistory appends a record timestamped now. Records appended in quick
// succession get strictly increasing times at least a microsecond apart.
func (b *Base) AddHistory(text string) time.Time {
	us := max(b.env.now().UnixMicro(), b.last+1)

	return b.putHistory(us, text)
}

// AddHistoryAt appends a record at the given time, moved forward by whole
// microseconds if that time is already taken.
func (b *Base) AddHistoryAt(text string, t time.Time) time.Time {
	us := t.UnixMicro()
	for {
		if _, taken := b.hist[us]; !taken {
			break
		}

		us++
	}

	return b.putHistory(us, text)
}

func (b *Base) putHistory(us int64, text string) time.Time {
	b.hist[us] = text
	b.last = max(b.last, us)

	return time.UnixMicro(us)
}

// History returns the records in time order.
func (b *Base) History() []Record {
	keys := slices.Sorted(maps.Keys(b.hist))
	out := make([]Record, len(keys))

	for i, us := range keys {
		out[i] = Record{Time: time.UnixMicro(us), Text: b.hist[us]}
	}

	return out
}

// ClearHistory removes every history record.
func (b *Base) ClearHistory() {
	clear(b.hist)
	b.last = 0
}

// HistoryText renders the history as "<local time> <text>" lines in time
// order.
func (b *Base) HistoryText() string {
	var sb strings.Builder

	for i, r := range b.History() {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(r.Time.Local().Format(historyTimeFormat)) //nolint:gosmopolitan
		sb.WriteByte(' ')
		sb.WriteString(r.Text)
	}

	return sb.String()
}

// WriteHistory writes HistoryText to w, newline terminated.
func (b *Base) WriteHistory(w io.Writer) error {
	text := b.HistoryText()
	if text == "" {
		return nil
	}

	_, err := io.WriteString(w, text+"\n")

	return err
}

// ReadHistory adds the records in r, in the format written by WriteHistory.
// Blank lines are skipped.
func (b *Base) ReadHistory(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ts, text, _ := strings.Cut(line, " ")

		t, err := time.ParseInLocation(historyTimeFormat, ts, time.Local) //nolint:gosmopolitan
		if err != nil {
			return fmt.Errorf("bad history line %q: %w", line, err)
		}

		b.AddHistoryAt(text, t)
	}

	return scanner.Err()
}

func historyName(us int64) string {
	return strconv.FormatFloat(float64(us)/1e6, 'f', 6, 64)
}

func parseHistoryName(name string) (int64, error) {
	f, err := strconv.ParseFloat(name, 64)
	if err != nil {
		return 0, err
	}

	return int64(math.Round(f * 1e6)), nil
}

// saveBase writes the reserved parameter and history groups into g.
func (b *Base) saveBase(g Group) error {
	if err := b.saveReserved(g, b.env.parsGroup, b.pars); err != nil {
		return err
	}

	hist := make(map[string]any, len(b.hist))
	for us, text := range b.hist {
		hist[historyName(us)] = text
	}

	return b.saveReserved(g, b.env.histGroup, hist)
}

func (b *Base) saveReserved(g Group, name string, leaves map[string]any) error {
	if len(leaves) == 0 {
		return g.Delete(name)
	}

	sub, err := g.Subgroup(name)
	if err != nil {
		return err
	}

	for _, k := range slices.Sorted(maps.Keys(leaves)) {
		if err := sub.Put(k, leaves[k]); err != nil {
			return fmt.Errorf("%s %q: %w", name, k, err)
		}
	}

	return nil
}

// loadBase loads e if it is one of the reserved groups, reporting whether it
// was.
func (b *Base) loadBase(e Entry) (bool, error) {
	switch e.Name {
	case b.env.parsGroup:
		return true, b.loadPars(e.Group)
	case b.env.histGroup:
		return true, b.loadHistory(e.Group)
	}

	return false, nil
}

func (b *Base) loadPars(g Group) error {
	entries, err := g.Entries()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsGroup() {
			b.env.log.Warn("skipping nested group in parameters", "group", e.Name)

			continue
		}

		if u, ok := e.Value.(UnreadableLeaf); ok {
			b.env.log.Warn("skipping unreadable parameter", "name", e.Name, "err", u.Err)

			continue
		}

		b.pars[e.Name] = e.Value
	}

	return nil
}

func (b *Base) loadHistory(g Group) error {
	entries, err := g.Entries()
	if err != nil {
		return err
	}

	for _, e := range entries {
		us, errp := parseHistoryName(e.Name)
		text, ok := leafString(e.Value)

		if errp != nil || !ok {
			b.env.log.Warn("skipping unrecognised history record", "name", e.Name)

			continue
		}

		b.putHistory(us, text)
	}

	return nil
}
